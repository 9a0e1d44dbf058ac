package models

import (
	"fmt"
	"math"
	"time"

	"github.com/sajari/regression"
)

// linearEstimator holds the fitted coefficients of one regression. The
// coefficients are extracted from the solver at train time so inference is
// a plain dot product and the artifact serializes to JSON.
type linearEstimator struct {
	Name        string    `json:"name"`
	Bias        float64   `json:"bias"`
	Weights     []float64 `json:"weights"`
	R2          float64   `json:"r2"`
	LastTrained time.Time `json:"last_trained"`
}

// fitLinear trains a least-squares regression of targets on rows
func fitLinear(name string, rows [][]float64, targets []float64) (*linearEstimator, error) {
	if len(rows) == 0 || len(rows) != len(targets) {
		return nil, fmt.Errorf("estimator %s: %d rows vs %d targets", name, len(rows), len(targets))
	}

	// A constant target column (a one-vs-rest head whose class is absent
	// from the training split, for example) has no variance to explain;
	// the solver would report R2=NaN, which the JSON artifact cannot
	// carry. Fit the constant directly instead.
	if constant, value := constantTarget(targets); constant {
		return &linearEstimator{
			Name:        name,
			Bias:        value,
			Weights:     make([]float64, len(rows[0])),
			R2:          0,
			LastTrained: time.Now().UTC(),
		}, nil
	}

	var r regression.Regression
	r.SetObserved(name)
	for i := range rows[0] {
		r.SetVar(i, fmt.Sprintf("f%d", i))
	}
	for i, row := range rows {
		r.Train(regression.DataPoint(targets[i], row))
	}
	if err := r.Run(); err != nil {
		return nil, fmt.Errorf("estimator %s: %w", name, err)
	}

	coeffs := r.GetCoeffs()
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("estimator %s: solver produced no coefficients", name)
	}
	for _, c := range coeffs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("estimator %s: solver produced non-finite coefficient", name)
		}
	}

	r2 := r.R2
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		r2 = 0
	}

	return &linearEstimator{
		Name:        name,
		Bias:        coeffs[0],
		Weights:     coeffs[1:],
		R2:          r2,
		LastTrained: time.Now().UTC(),
	}, nil
}

// constantTarget reports whether every target equals the first one
func constantTarget(targets []float64) (bool, float64) {
	for _, t := range targets[1:] {
		if t != targets[0] {
			return false, 0
		}
	}
	return true, targets[0]
}

// predict evaluates the fitted model on one vector
func (e *linearEstimator) predict(v []float64) (float64, error) {
	if e == nil || len(e.Weights) == 0 {
		return 0, fmt.Errorf("estimator not fitted")
	}
	if len(v) != len(e.Weights) {
		return 0, fmt.Errorf("estimator %s: got %d features, fitted for %d", e.Name, len(v), len(e.Weights))
	}
	out := e.Bias
	for i, x := range v {
		out += x * e.Weights[i]
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("estimator %s: non-finite prediction", e.Name)
	}
	return out, nil
}

// evaluate computes mean absolute error on a held-out set
func (e *linearEstimator) evaluate(rows [][]float64, targets []float64) float64 {
	if len(rows) == 0 {
		return 0
	}
	sum := 0.0
	n := 0
	for i, row := range rows {
		pred, err := e.predict(row)
		if err != nil {
			continue
		}
		sum += math.Abs(pred - targets[i])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
