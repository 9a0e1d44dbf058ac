package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	pkg "github.com/plantwise/plantwise/pkg"
	"github.com/plantwise/plantwise/pkg/logx"
	"github.com/plantwise/plantwise/pkg/models"
	"github.com/plantwise/plantwise/pkg/telem"
)

func TestRecordPrediction(t *testing.T) {
	s := NewServer(nil, nil, logx.New("error"))

	s.RecordPrediction(telem.KindHealth, 0.8, false)
	s.RecordPrediction(telem.KindHealth, 0.5, true)
	s.RecordPrediction(telem.KindSeasonal, 0.7, false)

	if got := testutil.ToFloat64(s.predictions.WithLabelValues(telem.KindHealth)); got != 2 {
		t.Errorf("health predictions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(s.fallbackPredictions.WithLabelValues(telem.KindHealth)); got != 1 {
		t.Errorf("health fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.predictionConfidence.WithLabelValues(telem.KindSeasonal)); got != 0.7 {
		t.Errorf("seasonal confidence = %v, want 0.7", got)
	}
}

func TestRecordTrainingResult(t *testing.T) {
	s := NewServer(nil, nil, logx.New("error"))

	s.RecordTrainingResult(&models.TrainResult{
		Status:  pkg.TrainStatusSuccess,
		Samples: 120,
		Metrics: map[string]float64{"r2_growth": 0.82},
	})
	s.RecordTrainingResult(nil) // must not panic

	if got := testutil.ToFloat64(s.trainingRuns.WithLabelValues(pkg.TrainStatusSuccess)); got != 1 {
		t.Errorf("training runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.trainingSamples); got != 120 {
		t.Errorf("training samples = %v, want 120", got)
	}
	if got := testutil.ToFloat64(s.modelPerformance.WithLabelValues("r2_growth")); got != 0.82 {
		t.Errorf("r2_growth = %v, want 0.82", got)
	}
}

func TestUpdateMetricsFromStores(t *testing.T) {
	store := telem.NewStore(telem.Config{})
	store.AddRecord(telem.Record{Timestamp: time.Now(), PlantID: "p1", Kind: telem.KindHealth})
	store.AddRecord(telem.Record{Timestamp: time.Now(), PlantID: "p1", Kind: telem.KindSeasonal})

	s := NewServer(nil, store, logx.New("error"))
	s.UpdateMetrics()

	if got := testutil.ToFloat64(s.telemetryRecords.WithLabelValues("p1")); got != 2 {
		t.Errorf("telemetry records = %v, want 2", got)
	}
	if got := testutil.ToFloat64(s.daemonUptime); got < 0 {
		t.Errorf("uptime negative: %v", got)
	}
}
