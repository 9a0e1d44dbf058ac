// Package models owns the trained estimators behind the plantwise
// prediction services: growth-rate, care-adjustment, risk and confidence
// regressions, a growth-phase classifier and a species-behavior clusterer,
// together with the feature scaler and polynomial expansion they were
// fitted with.
package models

import (
	"fmt"
	"math"
	"sync"
	"time"

	pkg "github.com/plantwise/plantwise/pkg"
	"github.com/plantwise/plantwise/pkg/logx"
)

// Output clamps for the regression heads
const (
	GrowthRateMax    = 2.5
	CareDeltaLimit   = 0.6
	holdoutFraction  = 0.2
	behaviorClusters = 4
)

// phaseLabels is the label encoding for the growth-phase classifier.
// Index order is part of the persisted artifact.
var phaseLabels = []string{pkg.PhaseDormant, pkg.PhaseSlow, pkg.PhaseActive, pkg.PhaseRapid}

// artifacts is one immutable fitted bundle. Prediction requests read a
// bundle pointer; retrains build a fresh bundle and swap the pointer only
// after the save succeeds, so concurrent readers never observe a
// half-updated model.
type artifacts struct {
	Version     string    `json:"model_version"`
	LastTrained time.Time `json:"last_trained"`
	Source      string    `json:"training_data_source"`

	Scaler   *StandardScaler     `json:"-"`
	Expander *PolynomialExpander `json:"-"`

	Growth     *linearEstimator `json:"-"`
	Water      *linearEstimator `json:"-"`
	Fertilizer *linearEstimator `json:"-"`
	Light      *linearEstimator `json:"-"`
	Risk       *linearEstimator `json:"-"`
	Confidence *linearEstimator `json:"-"`

	PhaseLabels []string           `json:"-"`
	Phases      []*linearEstimator `json:"-"`

	Cluster *behaviorClusterer `json:"-"`
}

// Store is the model store. Reads are concurrent; Train is the only
// mutating operation and is serialized by trainMu.
type Store struct {
	mu      sync.RWMutex
	trainMu sync.Mutex

	dir    string
	logger *logx.Logger
	arts   *artifacts
}

// TrainResult reports the outcome of a training pass
type TrainResult struct {
	Status  string             `json:"status"`
	Samples int                `json:"samples"`
	Version string             `json:"model_version,omitempty"`
	Source  string             `json:"training_data_source,omitempty"`
	Metrics map[string]float64 `json:"performance,omitempty"`
}

// New opens the model store at dir. A previously saved artifact bundle is
// loaded if present and intact; otherwise the store bootstraps itself by
// synthesizing a rule-labeled training set and fitting fresh estimators, so
// the system is never left without a usable model.
func New(dir string, logger *logx.Logger) (*Store, error) {
	s := &Store{dir: dir, logger: logger}

	if err := s.Load(); err == nil {
		logger.Info("model artifacts loaded",
			"dir", dir,
			"model_version", s.arts.Version,
			"training_data_source", s.arts.Source,
		)
		return s, nil
	} else {
		logger.Warn("no usable model artifacts, bootstrapping from synthetic data",
			"dir", dir, "error", err)
	}

	result, err := s.Train(SynthesizeDataset())
	if err != nil {
		return nil, fmt.Errorf("synthetic bootstrap failed: %w", err)
	}
	if result.Status != pkg.TrainStatusSuccess {
		return nil, fmt.Errorf("synthetic bootstrap returned status %s", result.Status)
	}
	return s, nil
}

// Version returns the active model version tag
func (s *Store) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.arts == nil {
		return ""
	}
	return s.arts.Version
}

// LastTrained returns when the active bundle was fitted
func (s *Store) LastTrained() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.arts == nil {
		return time.Time{}
	}
	return s.arts.LastTrained
}

// Source reports whether the active bundle was trained on synthetic
// bootstrap data or real user feedback
func (s *Store) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.arts == nil {
		return ""
	}
	return s.arts.Source
}

// snapshot returns the active bundle for a burst of related inferences
func (s *Store) snapshot() (*artifacts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.arts == nil {
		return nil, &pkg.InferenceError{Model: "store", Cause: fmt.Errorf("no artifacts loaded")}
	}
	return s.arts, nil
}

// prepare runs the scaler and polynomial expansion fitted with this bundle
func (a *artifacts) prepare(f *pkg.PlantHealthFeatures) ([]float64, error) {
	if f == nil {
		return nil, fmt.Errorf("nil feature vector")
	}
	scaled, err := a.Scaler.Transform(f.Vector())
	if err != nil {
		return nil, err
	}
	return a.Expander.Expand(scaled)
}

// PredictGrowthRate predicts the expected relative growth rate in [0,2.5]
func (s *Store) PredictGrowthRate(f *pkg.PlantHealthFeatures) (float64, error) {
	a, err := s.snapshot()
	if err != nil {
		return 0, err
	}
	v, err := a.prepare(f)
	if err != nil {
		return 0, &pkg.InferenceError{Model: "growth", Cause: err}
	}
	out, err := a.Growth.predict(v)
	if err != nil {
		return 0, &pkg.InferenceError{Model: "growth", Cause: err}
	}
	return clampRange(out, 0, GrowthRateMax), nil
}

// PredictCareAdjustments predicts the watering, fertilizing and light
// deltas, each clamped to [-0.6,0.6]
func (s *Store) PredictCareAdjustments(f *pkg.PlantHealthFeatures) (water, fertilizer, light float64, err error) {
	a, err := s.snapshot()
	if err != nil {
		return 0, 0, 0, err
	}
	v, err := a.prepare(f)
	if err != nil {
		return 0, 0, 0, &pkg.InferenceError{Model: "care_adjustments", Cause: err}
	}

	heads := []*linearEstimator{a.Water, a.Fertilizer, a.Light}
	out := make([]float64, len(heads))
	for i, head := range heads {
		p, perr := head.predict(v)
		if perr != nil {
			return 0, 0, 0, &pkg.InferenceError{Model: "care_adjustments", Cause: perr}
		}
		out[i] = clampRange(p, -CareDeltaLimit, CareDeltaLimit)
	}
	return out[0], out[1], out[2], nil
}

// PredictRiskScore predicts the overall risk score in [0,1]
func (s *Store) PredictRiskScore(f *pkg.PlantHealthFeatures) (float64, error) {
	a, err := s.snapshot()
	if err != nil {
		return 0, err
	}
	v, err := a.prepare(f)
	if err != nil {
		return 0, &pkg.InferenceError{Model: "risk", Cause: err}
	}
	out, err := a.Risk.predict(v)
	if err != nil {
		return 0, &pkg.InferenceError{Model: "risk", Cause: err}
	}
	return clampRange(out, 0, 1), nil
}

// PredictGrowthPhase classifies the current growth phase and reports the
// classifier's confidence in [0,1]
func (s *Store) PredictGrowthPhase(f *pkg.PlantHealthFeatures) (string, float64, error) {
	a, err := s.snapshot()
	if err != nil {
		return "", 0, err
	}
	v, err := a.prepare(f)
	if err != nil {
		return "", 0, &pkg.InferenceError{Model: "growth_phase", Cause: err}
	}

	// One-vs-rest scores over the label encoding, softmax-normalized for a
	// usable confidence figure
	scores := make([]float64, len(a.Phases))
	best := 0
	for i, head := range a.Phases {
		p, perr := head.predict(v)
		if perr != nil {
			return "", 0, &pkg.InferenceError{Model: "growth_phase", Cause: perr}
		}
		scores[i] = p
		if p > scores[best] {
			best = i
		}
	}

	var total float64
	for _, sc := range scores {
		total += math.Exp(sc)
	}
	confidence := math.Exp(scores[best]) / total

	return a.PhaseLabels[best], clampRange(confidence, 0, 1), nil
}

// PredictConfidence predicts the model's self-reported certainty in [0,1]
func (s *Store) PredictConfidence(f *pkg.PlantHealthFeatures) (float64, error) {
	a, err := s.snapshot()
	if err != nil {
		return 0, err
	}
	v, err := a.prepare(f)
	if err != nil {
		return 0, &pkg.InferenceError{Model: "confidence", Cause: err}
	}
	out, err := a.Confidence.predict(v)
	if err != nil {
		return 0, &pkg.InferenceError{Model: "confidence", Cause: err}
	}
	return clampRange(out, 0, 1), nil
}

// PredictBehaviorCluster assigns the plant to a species-behavior cluster
func (s *Store) PredictBehaviorCluster(f *pkg.PlantHealthFeatures) (int, error) {
	a, err := s.snapshot()
	if err != nil {
		return 0, err
	}
	if f == nil {
		return 0, &pkg.InferenceError{Model: "behavior_cluster", Cause: fmt.Errorf("nil feature vector")}
	}
	scaled, err := a.Scaler.Transform(f.Vector())
	if err != nil {
		return 0, &pkg.InferenceError{Model: "behavior_cluster", Cause: err}
	}
	idx, _, err := a.Cluster.assign(scaled)
	if err != nil {
		return 0, &pkg.InferenceError{Model: "behavior_cluster", Cause: err}
	}
	return idx, nil
}

// Train fits a fresh artifact bundle against the dataset, evaluates it on a
// held-out split, persists it, and only then publishes it to readers. Below
// the minimum sample count it reports insufficient_data without side
// effects. A failed training pass leaves the active bundle untouched.
func (s *Store) Train(ds *Dataset) (*TrainResult, error) {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	if ds == nil || len(ds.Samples) < MinSamplesPartial {
		n := 0
		if ds != nil {
			n = len(ds.Samples)
		}
		return &TrainResult{Status: pkg.TrainStatusInsufficientData, Samples: n}, nil
	}

	next, metrics, err := fitBundle(ds)
	if err != nil {
		s.logger.Error("training failed, keeping active model",
			"samples", len(ds.Samples), "source", ds.Source, "error", err)
		return &TrainResult{Status: pkg.TrainStatusFailed, Samples: len(ds.Samples)}, err
	}

	if err := saveArtifacts(s.dir, next); err != nil {
		s.logger.Error("model save failed, keeping active model",
			"model_version", next.Version, "error", err)
		return &TrainResult{Status: pkg.TrainStatusFailed, Samples: len(ds.Samples)}, err
	}

	s.mu.Lock()
	s.arts = next
	s.mu.Unlock()

	s.logger.Info("model artifacts trained and published",
		"model_version", next.Version,
		"training_data_source", next.Source,
		"samples", len(ds.Samples),
	)

	return &TrainResult{
		Status:  pkg.TrainStatusSuccess,
		Samples: len(ds.Samples),
		Version: next.Version,
		Source:  next.Source,
		Metrics: metrics,
	}, nil
}

// fitBundle trains every estimator and evaluates on the held-out split
func fitBundle(ds *Dataset) (*artifacts, map[string]float64, error) {
	train, holdout := ds.split(holdoutFraction)

	scaler := &StandardScaler{}
	rawRows := train.featureRows()
	if err := scaler.Fit(rawRows); err != nil {
		return nil, nil, err
	}
	scaledRows, err := scaler.TransformAll(rawRows)
	if err != nil {
		return nil, nil, err
	}

	expander := &PolynomialExpander{InputDim: len(pkg.FeatureNames)}
	rows := make([][]float64, len(scaledRows))
	for i, r := range scaledRows {
		rows[i], err = expander.Expand(r)
		if err != nil {
			return nil, nil, err
		}
	}

	a := &artifacts{
		Version:     fmt.Sprintf("%s-%s", ds.Source, time.Now().UTC().Format("20060102T150405Z")),
		LastTrained: time.Now().UTC(),
		Source:      ds.Source,
		Scaler:      scaler,
		Expander:    expander,
		PhaseLabels: phaseLabels,
	}

	type head struct {
		name   string
		target func(*Sample) float64
		dest   **linearEstimator
	}
	heads := []head{
		{"growth_rate", func(s *Sample) float64 { return s.GrowthRate }, &a.Growth},
		{"water_delta", func(s *Sample) float64 { return s.WaterDelta }, &a.Water},
		{"fertilizer_delta", func(s *Sample) float64 { return s.FertilizerDelta }, &a.Fertilizer},
		{"light_delta", func(s *Sample) float64 { return s.LightDelta }, &a.Light},
		{"risk_score", func(s *Sample) float64 { return s.RiskScore }, &a.Risk},
		{"prediction_confidence", func(s *Sample) float64 { return s.Confidence }, &a.Confidence},
	}

	metrics := make(map[string]float64)
	holdoutRows, err := prepareRows(a, holdout)
	if err != nil {
		return nil, nil, err
	}

	for _, h := range heads {
		est, err := fitLinear(h.name, rows, train.targets(h.target))
		if err != nil {
			return nil, nil, err
		}
		*h.dest = est
		metrics["r2_"+h.name] = est.R2
		if len(holdoutRows) > 0 {
			metrics["holdout_mae_"+h.name] = est.evaluate(holdoutRows, holdout.targets(h.target))
		}
	}

	// One-vs-rest phase heads
	a.Phases = make([]*linearEstimator, len(phaseLabels))
	for i, label := range phaseLabels {
		targets := make([]float64, len(train.Samples))
		for j := range train.Samples {
			if train.Samples[j].GrowthPhase == label {
				targets[j] = 1.0
			}
		}
		est, err := fitLinear("phase_"+label, rows, targets)
		if err != nil {
			return nil, nil, err
		}
		a.Phases[i] = est
	}
	metrics["phase_holdout_accuracy"] = phaseAccuracy(a, holdout)

	cluster, err := fitClusters(scaledRows, behaviorClusters)
	if err != nil {
		return nil, nil, err
	}
	a.Cluster = cluster

	return a, metrics, nil
}

// prepareRows applies the bundle's transforms to a dataset
func prepareRows(a *artifacts, ds *Dataset) ([][]float64, error) {
	rows := make([][]float64, 0, len(ds.Samples))
	for i := range ds.Samples {
		v, err := a.prepare(&ds.Samples[i].Features)
		if err != nil {
			return nil, err
		}
		rows = append(rows, v)
	}
	return rows, nil
}

// phaseAccuracy scores the phase classifier on a held-out dataset
func phaseAccuracy(a *artifacts, ds *Dataset) float64 {
	if len(ds.Samples) == 0 {
		return 0
	}
	correct := 0
	for i := range ds.Samples {
		v, err := a.prepare(&ds.Samples[i].Features)
		if err != nil {
			continue
		}
		best := 0
		bestScore := math.Inf(-1)
		for j, head := range a.Phases {
			p, err := head.predict(v)
			if err != nil {
				continue
			}
			if p > bestScore {
				bestScore = p
				best = j
			}
		}
		if a.PhaseLabels[best] == ds.Samples[i].GrowthPhase {
			correct++
		}
	}
	return float64(correct) / float64(len(ds.Samples))
}
