package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Artifact file names inside the model directory
const (
	manifestFile   = "manifest.json"
	scalerFile     = "scaler.json"
	expanderFile   = "expander.json"
	growthFile     = "growth.json"
	waterFile      = "care_water.json"
	fertilizerFile = "care_fertilizer.json"
	lightFile      = "care_light.json"
	riskFile       = "risk.json"
	confidenceFile = "confidence.json"
	phasesFile     = "phases.json"
	clusterFile    = "cluster.json"
)

// manifest carries the bundle metadata that distinguishes heuristic
// bootstrap models from feedback-trained ones
type manifest struct {
	Version     string    `json:"model_version"`
	LastTrained time.Time `json:"last_trained"`
	Source      string    `json:"training_data_source"`
	PhaseLabels []string  `json:"phase_labels"`
}

// writeArtifact persists one artifact atomically: the JSON is written to a
// temp file and renamed into place, so a crash mid-save cannot leave a
// corrupt artifact that breaks the next load.
func writeArtifact(dir, name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	path := filepath.Join(dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish %s: %w", name, err)
	}
	return nil
}

// readArtifact loads one artifact
func readArtifact(dir, name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// saveArtifacts persists a full bundle. The manifest is written last so a
// bundle is only considered current once every estimator landed.
func saveArtifacts(dir string, a *artifacts) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	parts := []struct {
		name string
		v    interface{}
	}{
		{scalerFile, a.Scaler},
		{expanderFile, a.Expander},
		{growthFile, a.Growth},
		{waterFile, a.Water},
		{fertilizerFile, a.Fertilizer},
		{lightFile, a.Light},
		{riskFile, a.Risk},
		{confidenceFile, a.Confidence},
		{phasesFile, a.Phases},
		{clusterFile, a.Cluster},
	}
	for _, p := range parts {
		if err := writeArtifact(dir, p.name, p.v); err != nil {
			return err
		}
	}

	return writeArtifact(dir, manifestFile, &manifest{
		Version:     a.Version,
		LastTrained: a.LastTrained,
		Source:      a.Source,
		PhaseLabels: a.PhaseLabels,
	})
}

// Save persists the active bundle
func (s *Store) Save() error {
	s.mu.RLock()
	a := s.arts
	s.mu.RUnlock()
	if a == nil {
		return fmt.Errorf("no artifacts to save")
	}
	return saveArtifacts(s.dir, a)
}

// Load replaces the active bundle with the one on disk. Every required
// artifact must be present and intact; otherwise the active bundle is left
// unchanged and the error describes the first missing piece.
func (s *Store) Load() error {
	if s.dir == "" {
		return fmt.Errorf("no model directory configured")
	}

	var m manifest
	if err := readArtifact(s.dir, manifestFile, &m); err != nil {
		return err
	}

	a := &artifacts{
		Version:     m.Version,
		LastTrained: m.LastTrained,
		Source:      m.Source,
		PhaseLabels: m.PhaseLabels,
		Scaler:      &StandardScaler{},
		Expander:    &PolynomialExpander{},
		Growth:      &linearEstimator{},
		Water:       &linearEstimator{},
		Fertilizer:  &linearEstimator{},
		Light:       &linearEstimator{},
		Risk:        &linearEstimator{},
		Confidence:  &linearEstimator{},
		Cluster:     &behaviorClusterer{},
	}

	parts := []struct {
		name string
		v    interface{}
	}{
		{scalerFile, a.Scaler},
		{expanderFile, a.Expander},
		{growthFile, a.Growth},
		{waterFile, a.Water},
		{fertilizerFile, a.Fertilizer},
		{lightFile, a.Light},
		{riskFile, a.Risk},
		{confidenceFile, a.Confidence},
		{phasesFile, &a.Phases},
		{clusterFile, a.Cluster},
	}
	for _, p := range parts {
		if err := readArtifact(s.dir, p.name, p.v); err != nil {
			return err
		}
	}

	if len(a.PhaseLabels) == 0 || len(a.Phases) != len(a.PhaseLabels) {
		return fmt.Errorf("phase artifact mismatch: %d heads for %d labels", len(a.Phases), len(a.PhaseLabels))
	}

	s.mu.Lock()
	s.arts = a
	s.mu.Unlock()
	return nil
}
