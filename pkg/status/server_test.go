package status

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/plantwise/plantwise/pkg/logx"
	"github.com/plantwise/plantwise/pkg/models"
	"github.com/plantwise/plantwise/pkg/telem"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	logger := logx.New("error")
	store, err := models.New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("models.New: %v", err)
	}
	return NewServer(store, telem.NewStore(telem.Config{}), logger)
}

func TestLiveHandler(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.liveHandler(rec, httptest.NewRequest("GET", "/status/live", nil))

	if rec.Code != 200 {
		t.Errorf("live status = %d", rec.Code)
	}
}

func TestReadyHandler(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.readyHandler(rec, httptest.NewRequest("GET", "/status/ready", nil))
	if rec.Code != 200 {
		t.Errorf("ready with loaded model = %d", rec.Code)
	}

	// without a model bundle the daemon is not ready
	empty := NewServer(nil, nil, logx.New("error"))
	rec = httptest.NewRecorder()
	empty.readyHandler(rec, httptest.NewRequest("GET", "/status/ready", nil))
	if rec.Code != 503 {
		t.Errorf("ready without model = %d", rec.Code)
	}
}

func TestStatusHandlerReportsModel(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.statusHandler(rec, httptest.NewRequest("GET", "/status", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload Status
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Status != "healthy" {
		t.Errorf("status = %q", payload.Status)
	}
	if payload.Model.Version == "" {
		t.Error("model version missing")
	}
	if payload.Model.Source != models.SourceSynthetic {
		t.Errorf("model source = %q", payload.Model.Source)
	}
	if _, ok := payload.Components["model_store"]; !ok {
		t.Error("model_store component missing")
	}
}

func TestDetailedHandlerIncludesTelemetry(t *testing.T) {
	logger := logx.New("error")
	store, err := models.New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("models.New: %v", err)
	}
	tstore := telem.NewStore(telem.Config{})
	tstore.AddRecord(telem.Record{Timestamp: time.Now(), PlantID: "p1", Kind: telem.KindHealth, Fallback: true})
	s := NewServer(store, tstore, logger)

	rec := httptest.NewRecorder()
	s.detailedHandler(rec, httptest.NewRequest("GET", "/status/detailed", nil))

	var payload Status
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Telemetry["records"] != 1 {
		t.Errorf("telemetry records = %d", payload.Telemetry["records"])
	}
	if payload.Telemetry["fallback_records"] != 1 {
		t.Errorf("fallback records = %d", payload.Telemetry["fallback_records"])
	}
	if payload.Memory == nil {
		t.Error("memory info missing")
	}
}
