package mqtt

import (
	"testing"
	"time"

	pkg "github.com/plantwise/plantwise/pkg"
	"github.com/plantwise/plantwise/pkg/logx"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Enabled {
		t.Error("mqtt should default to disabled")
	}
	if cfg.Port != 1883 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.TopicPrefix != "plantwise" {
		t.Errorf("topic prefix = %q", cfg.TopicPrefix)
	}
}

func TestDisabledClientIsNoOp(t *testing.T) {
	c := NewClient(DefaultConfig(), logx.New("error"))

	if err := c.Connect(); err != nil {
		t.Errorf("disabled Connect: %v", err)
	}
	if c.IsConnected() {
		t.Error("disabled client reports connected")
	}

	// publishes on a disabled client must be silent no-ops
	if err := c.PublishHealthPrediction(&pkg.HealthPrediction{PlantID: "p1"}); err != nil {
		t.Errorf("PublishHealthPrediction: %v", err)
	}
	if err := c.PublishSeasonalPrediction(&pkg.SeasonalPredictionResult{PlantID: "p1"}); err != nil {
		t.Errorf("PublishSeasonalPrediction: %v", err)
	}
	if err := c.PublishStatus(map[string]interface{}{"ok": true}); err != nil {
		t.Errorf("PublishStatus: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Errorf("Disconnect: %v", err)
	}
	if !c.GetLastPublish().Equal(time.Time{}) {
		t.Error("no-op publishes must not update last publish time")
	}
}
