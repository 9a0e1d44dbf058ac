package pkg

import (
	"errors"
	"fmt"
)

// ErrDataUnavailable is returned when the primary entity for a prediction
// (plant, user or species) cannot be located. It is the only error in the
// prediction path that propagates to the caller.
var ErrDataUnavailable = errors.New("required record unavailable")

// ErrProviderTimeout marks an environmental provider call that timed out or
// failed. Callers degrade to default seasonal assumptions.
var ErrProviderTimeout = errors.New("environmental provider unavailable")

// InferenceError wraps a model inference failure (malformed feature vector,
// unfit estimator). It never surfaces past the predictor: every call site
// converts it into the documented fallback prediction.
type InferenceError struct {
	Model string
	Cause error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed for model %s: %v", e.Model, e.Cause)
}

func (e *InferenceError) Unwrap() error { return e.Cause }

// Training statuses. Insufficient data is an expected operational state and
// therefore a status value, not an error.
const (
	TrainStatusSuccess          = "success"
	TrainStatusInsufficientData = "insufficient_data"
	TrainStatusFailed           = "failed"
)
