package models

import (
	pkg "github.com/plantwise/plantwise/pkg"
)

// Sample is one labeled training example. Targets not relevant to a given
// estimator are simply ignored by its trainer.
type Sample struct {
	Features pkg.PlantHealthFeatures `json:"features"`

	// Regression targets
	GrowthRate      float64 `json:"growth_rate"`      // [0,2.5]
	WaterDelta      float64 `json:"water_delta"`      // [-0.6,0.6]
	FertilizerDelta float64 `json:"fertilizer_delta"` // [-0.6,0.6]
	LightDelta      float64 `json:"light_delta"`      // [-0.6,0.6]
	RiskScore       float64 `json:"risk_score"`       // [0,1]
	Confidence      float64 `json:"confidence"`       // [0,1]

	// Classification target
	GrowthPhase string `json:"growth_phase"`
}

// Dataset is a labeled training set plus its provenance
type Dataset struct {
	Samples []Sample `json:"samples"`
	Source  string   `json:"source"` // synthetic|feedback
}

// Training data sources
const (
	SourceSynthetic = "synthetic"
	SourceFeedback  = "feedback"
)

// Minimum sample counts. Partial retrains of a single estimator need 50
// samples; the full feedback-driven retrain needs 100.
const (
	MinSamplesPartial  = 50
	MinSamplesFeedback = 100
)

// featureRows extracts the raw vectors in dataset order
func (d *Dataset) featureRows() [][]float64 {
	rows := make([][]float64, len(d.Samples))
	for i := range d.Samples {
		rows[i] = d.Samples[i].Features.Vector()
	}
	return rows
}

// targets extracts one regression target column
func (d *Dataset) targets(get func(*Sample) float64) []float64 {
	out := make([]float64, len(d.Samples))
	for i := range d.Samples {
		out[i] = get(&d.Samples[i])
	}
	return out
}

// split partitions the dataset into train and held-out evaluation parts.
// The split is positional: callers shuffle at generation time, so slicing
// here keeps training deterministic.
func (d *Dataset) split(holdoutFraction float64) (train, holdout *Dataset) {
	n := len(d.Samples)
	cut := n - int(float64(n)*holdoutFraction)
	if cut <= 0 || cut >= n {
		return d, &Dataset{Source: d.Source}
	}
	return &Dataset{Samples: d.Samples[:cut], Source: d.Source},
		&Dataset{Samples: d.Samples[cut:], Source: d.Source}
}
