package health

// Risk indicator thresholds. Tuned against the synthetic training
// distribution; revisit once enough feedback-trained models are in
// production to calibrate from real outcomes.
const (
	// OverdueCareDays flags a plant whose last care event is too far back
	OverdueCareDays = 14

	// LowConsistencyThreshold flags erratic care timing
	LowConsistencyThreshold = 0.5

	// HighStressThreshold flags a hostile environment
	HighStressThreshold = 0.7

	// ExperienceGapThreshold flags a species too demanding for its owner
	ExperienceGapThreshold = 0.3
)

// Health score bands driving the risk level
const (
	CriticalHealthFloor = 0.3
	HighHealthFloor     = 0.5
	MediumHealthFloor   = 0.7
)

// Indicator counts driving the risk level
const (
	CriticalIndicatorCount = 3
	HighIndicatorCount     = 2
	MediumIndicatorCount   = 1
)

// Fallback outputs when inference is unavailable
const (
	FallbackHealthScore = 0.7
	FallbackConfidence  = 0.5
)

// Confidence cap while the plant reads high or critical risk
const highRiskConfidenceCap = 0.6

// Intervention urgency scale (1 = routine, 5 = immediate)
const (
	urgencyRoutine   = 1
	urgencyElevated  = 2
	urgencyConcern   = 3
	urgencySerious   = 4
	urgencyImmediate = 5
)
