package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler standardizes feature vectors to zero mean and unit
// variance. The scaler fitted during a training pass must be the one used
// for every inference against those estimators; a dimensionality mismatch
// is reported as an error, never silently truncated.
type StandardScaler struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// Fit computes per-column mean and standard deviation
func (s *StandardScaler) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return fmt.Errorf("cannot fit scaler on empty dataset")
	}
	dim := len(rows[0])
	s.Means = make([]float64, dim)
	s.Stds = make([]float64, dim)

	col := make([]float64, len(rows))
	for j := 0; j < dim; j++ {
		for i, row := range rows {
			if len(row) != dim {
				return fmt.Errorf("ragged dataset: row %d has %d columns, want %d", i, len(row), dim)
			}
			col[i] = row[j]
		}
		s.Means[j] = stat.Mean(col, nil)
		std := stat.StdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1.0
		}
		s.Stds[j] = std
	}
	return nil
}

// Transform standardizes a single vector
func (s *StandardScaler) Transform(v []float64) ([]float64, error) {
	if len(s.Means) == 0 {
		return nil, fmt.Errorf("scaler not fitted")
	}
	if len(v) != len(s.Means) {
		return nil, fmt.Errorf("feature dimensionality mismatch: got %d, scaler fitted for %d", len(v), len(s.Means))
	}
	out := make([]float64, len(v))
	for i := range v {
		out[i] = (v[i] - s.Means[i]) / s.Stds[i]
	}
	return out, nil
}

// TransformAll standardizes a batch of vectors
func (s *StandardScaler) TransformAll(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		t, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// PolynomialExpander appends squared terms to a vector, giving the linear
// estimators a cheap second-order view of the features.
type PolynomialExpander struct {
	InputDim int `json:"input_dim"`
}

// Expand appends x_i^2 terms. The expander records the input width at fit
// time so a mismatched vector fails loudly.
func (p *PolynomialExpander) Expand(v []float64) ([]float64, error) {
	if p.InputDim == 0 {
		p.InputDim = len(v)
	}
	if len(v) != p.InputDim {
		return nil, fmt.Errorf("feature dimensionality mismatch: got %d, expander fitted for %d", len(v), p.InputDim)
	}
	out := make([]float64, 0, 2*len(v))
	out = append(out, v...)
	for _, x := range v {
		out = append(out, x*x)
	}
	return out, nil
}
