// Package pkg defines the shared domain types for the plantwise prediction services
package pkg

import (
	"context"
	"time"
)

// Plant represents a tracked plant owned by a user
type Plant struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	SpeciesID  string     `json:"species_id"`
	Name       string     `json:"name"`
	Location   string     `json:"location,omitempty"`
	AcquiredAt *time.Time `json:"acquired_at,omitempty"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Species represents a plant species record with its care profile
type Species struct {
	ID               string  `json:"id"`
	CommonName       string  `json:"common_name"`
	ScientificName   string  `json:"scientific_name,omitempty"`
	CareLevel        string  `json:"care_level"` // easy|medium|hard|expert
	WateringDays     float64 `json:"watering_days"`
	OptimalTempC     float64 `json:"optimal_temp_c"`
	OptimalHumidity  float64 `json:"optimal_humidity_pct"`
	LightRequirement string  `json:"light_requirement,omitempty"` // low|medium|bright|direct
}

// User represents the owning user's profile as seen by the prediction core
type User struct {
	ID              string    `json:"id"`
	ExperienceLevel string    `json:"experience_level"` // beginner|intermediate|advanced|expert
	Location        string    `json:"location,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// CareLog represents a single logged care event for a plant
type CareLog struct {
	ID          string    `json:"id"`
	PlantID     string    `json:"plant_id"`
	CareType    string    `json:"care_type"`
	Notes       string    `json:"notes,omitempty"`
	PerformedAt time.Time `json:"performed_at"`
}

// Care types
const (
	CareWatering    = "watering"
	CareFertilizing = "fertilizing"
	CarePruning     = "pruning"
	CareRepotting   = "repotting"
)

// CanonicalCareTypes is the closed set used for diversity scoring
var CanonicalCareTypes = []string{CareWatering, CareFertilizing, CarePruning, CareRepotting}

// Risk levels
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// Growth phases
const (
	PhaseDormant = "dormant"
	PhaseSlow    = "slow"
	PhaseActive  = "active"
	PhaseRapid   = "rapid"
)

// PlantHealthFeatures is the fixed-width feature vector consumed by the
// model store. It is computed fresh per prediction request and never
// persisted as its own entity.
type PlantHealthFeatures struct {
	CareFrequencyScore       float64 `json:"care_frequency_score"`
	ConsistencyScore         float64 `json:"consistency_score"`
	EnvironmentalStressScore float64 `json:"environmental_stress_score"`
	SpeciesDifficultyScore   float64 `json:"species_difficulty_score"`
	UserExperienceScore      float64 `json:"user_experience_score"`
	SeasonalFactor           float64 `json:"seasonal_factor"`
	DaysSinceLastCare        int     `json:"days_since_last_care"`
	CareTypeDiversity        float64 `json:"care_type_diversity"`
	HistoricalSuccessRate    float64 `json:"historical_success_rate"`
	PlantAgeMonths           int     `json:"plant_age_months"`
	RecentActivityTrend      float64 `json:"recent_activity_trend"`
	CarePatternDeviation     float64 `json:"care_pattern_deviation"`
}

// FeatureNames lists the vector components in their fixed order
var FeatureNames = []string{
	"care_frequency_score",
	"consistency_score",
	"environmental_stress_score",
	"species_difficulty_score",
	"user_experience_score",
	"seasonal_factor",
	"days_since_last_care",
	"care_type_diversity",
	"historical_success_rate",
	"plant_age_months",
	"recent_activity_trend",
	"care_pattern_deviation",
}

// Vector returns the features in the fixed order expected by the model store
func (f *PlantHealthFeatures) Vector() []float64 {
	return []float64{
		f.CareFrequencyScore,
		f.ConsistencyScore,
		f.EnvironmentalStressScore,
		f.SpeciesDifficultyScore,
		f.UserExperienceScore,
		f.SeasonalFactor,
		float64(f.DaysSinceLastCare),
		f.CareTypeDiversity,
		f.HistoricalSuccessRate,
		float64(f.PlantAgeMonths),
		f.RecentActivityTrend,
		f.CarePatternDeviation,
	}
}

// HealthRiskFactor is a named risk condition attached to a health prediction
type HealthRiskFactor struct {
	Factor         string  `json:"factor"`
	Severity       float64 `json:"severity"`
	Description    string  `json:"description"`
	Recommendation string  `json:"recommendation"`
}

// PreventionAction is a recommended action to head off a predicted issue
type PreventionAction struct {
	Action      string `json:"action"`
	Priority    string `json:"priority"` // low|medium|high|urgent
	Description string `json:"description"`
	Timing      string `json:"timing"`
	Details     string `json:"details,omitempty"`
}

// PredictedIssue is a concrete issue the model expects within a timeframe
type PredictedIssue struct {
	Issue       string  `json:"issue"`
	Probability float64 `json:"probability"`
	Timeframe   string  `json:"timeframe"`
	Symptoms    string  `json:"symptoms,omitempty"`
	Prevention  string  `json:"prevention,omitempty"`
}

// HealthPrediction is the output of the health predictor for one plant at
// one point in time. Logged as an interaction record for later training,
// never mutated after creation.
type HealthPrediction struct {
	PlantID             string               `json:"plant_id"`
	HealthScore         float64              `json:"health_score"`
	RiskLevel           string               `json:"risk_level"`
	Confidence          float64              `json:"confidence"`
	RiskFactors         []HealthRiskFactor   `json:"risk_factors"`
	PreventionActions   []PreventionAction   `json:"prevention_actions"`
	PredictedIssues     []PredictedIssue     `json:"predicted_issues"`
	OptimalCareWindow   map[string]time.Time `json:"optimal_care_window"`
	InterventionUrgency int                  `json:"intervention_urgency"` // 1..5
	Fallback            bool                 `json:"fallback,omitempty"`
	GeneratedAt         time.Time            `json:"generated_at"`
}

// ScheduledAction is one entry in a risk-mitigation schedule
type ScheduledAction struct {
	Action   string    `json:"action"`
	DueDate  time.Time `json:"due_date"`
	Interval string    `json:"interval,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// CareOptimization is the optimized care plan derived from a health
// prediction plus the same plant's features.
type CareOptimization struct {
	PlantID                  string             `json:"plant_id"`
	OptimalWateringFrequency float64            `json:"optimal_watering_frequency_days"`
	FertilizingSchedule      map[string]float64 `json:"optimal_fertilizing_schedule"`
	PredictedSuccessRate     float64            `json:"predicted_care_success_rate"`
	PersonalizedAdjustments  []string           `json:"personalized_adjustments"`
	SeasonalModifications    map[string]string  `json:"seasonal_modifications"`
	RiskMitigationSchedule   []ScheduledAction  `json:"risk_mitigation_schedule"`
	GrowthTrajectory         string             `json:"predicted_growth_trajectory"`
	GeneratedAt              time.Time          `json:"generated_at"`
}

// Care adjustment types
const (
	AdjustIncrease       = "increase"
	AdjustDecrease       = "decrease"
	AdjustMaintain       = "maintain"
	AdjustScheduleChange = "schedule_change"
)

// Seasonal care dimensions
const (
	CareDimWatering    = "watering"
	CareDimFertilizing = "fertilizing"
	CareDimLight       = "light"
	CareDimHumidity    = "humidity"
	CareDimTemperature = "temperature"
)

// CareAdjustment is a recommended change to one care dimension over a period
type CareAdjustment struct {
	CareType             string    `json:"care_type"`
	AdjustmentType       string    `json:"adjustment_type"`
	CurrentValue         float64   `json:"current_value"`
	RecommendedValue     float64   `json:"recommended_value"`
	AdjustmentPercentage float64   `json:"adjustment_percentage"`
	Reason               string    `json:"reason"`
	Confidence           float64   `json:"confidence"`
	EffectiveDate        time.Time `json:"effective_date"`
	DurationDays         int       `json:"duration_days"`
}

// Seasonal risk types
const (
	RiskTypePest               = "pest"
	RiskTypeDisease            = "disease"
	RiskTypeEnvStress          = "environmental_stress"
	RiskTypeDormancy           = "dormancy"
	RiskTypeColdStress         = "cold_stress"
	RiskTypeHeatStress         = "heat_stress"
	RiskTypeLowHumidity        = "low_humidity_stress"
	RiskTypeHighHumidity       = "high_humidity_stress"
	RiskTypeInsufficientLight  = "insufficient_light"
	RiskTypeExcessiveLight     = "excessive_light"
	RiskTypeSeasonalTransition = "seasonal_transition_stress"
	RiskTypePestDisease        = "pest_disease_risk"
)

// RiskFactor is a seasonal risk with probability, impact and mitigation plan
type RiskFactor struct {
	RiskType            string     `json:"risk_type"`
	RiskLevel           string     `json:"risk_level"`
	Probability         float64    `json:"probability"`
	ImpactSeverity      float64    `json:"impact_severity"`
	OnsetDate           *time.Time `json:"onset_date,omitempty"`
	MitigationActions   []string   `json:"mitigation_actions"`
	MonitoringFrequency string     `json:"monitoring_frequency"`
}

// SizeProjection is one weekly point in a growth forecast
type SizeProjection struct {
	Week         int     `json:"week"`
	RelativeSize float64 `json:"relative_size"` // 1.0 = current size
	GrowthRate   float64 `json:"growth_rate"`
}

// FloweringPrediction marks an expected flowering window
type FloweringPrediction struct {
	ExpectedStart time.Time `json:"expected_start"`
	ExpectedEnd   time.Time `json:"expected_end"`
	Probability   float64   `json:"probability"`
	Trigger       string    `json:"trigger,omitempty"`
}

// DormancyPeriod marks an expected low-activity window
type DormancyPeriod struct {
	ExpectedStart time.Time `json:"expected_start"`
	ExpectedEnd   time.Time `json:"expected_end"`
	Intensity     string    `json:"intensity"` // light|moderate|deep
	CareNotes     string    `json:"care_notes,omitempty"`
}

// GrowthForecast is the growth component of a seasonal prediction
type GrowthForecast struct {
	ExpectedGrowthRate   float64               `json:"expected_growth_rate"`
	GrowthPhase          string                `json:"growth_phase"`
	SizeProjections      []SizeProjection      `json:"size_projections"`
	FloweringPredictions []FloweringPrediction `json:"flowering_predictions"`
	DormancyPeriods      []DormancyPeriod      `json:"dormancy_periods"`
	StressLikelihood     float64               `json:"stress_likelihood"`
}

// PlantActivity is a recommended activity inside an optimal window
type PlantActivity struct {
	Activity    string    `json:"activity"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Priority    string    `json:"priority"`
	Reason      string    `json:"reason,omitempty"`
}

// SeasonalPredictionResult is the full output of the seasonal predictor for
// one plant over a forward-looking horizon. Persisted to the prediction
// history for audit and learning.
type SeasonalPredictionResult struct {
	PlantID              string             `json:"plant_id"`
	PeriodStart          time.Time          `json:"period_start"`
	PeriodEnd            time.Time          `json:"period_end"`
	GrowthForecast       GrowthForecast     `json:"growth_forecast"`
	CareAdjustments      []CareAdjustment   `json:"care_adjustments"`
	RiskFactors          []RiskFactor       `json:"risk_factors"`
	OptimalActivities    []PlantActivity    `json:"optimal_activities"`
	ConfidenceScore      float64            `json:"confidence_score"`
	ModelVersion         string             `json:"model_version"`
	EnvironmentalFactors map[string]float64 `json:"environmental_factors"`
	GeneratedAt          time.Time          `json:"generated_at"`
}

// Interaction types eligible for feedback-driven training
const (
	InteractionHealthPrediction = "health_prediction"
	InteractionCareOptimization = "care_optimization"
)

// Feedback is a user rating attached to a logged interaction
type Feedback struct {
	Rating      int       `json:"rating"` // 1..5
	Comment     string    `json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// HealthPredictionPayload is the typed payload logged with a
// health_prediction interaction.
type HealthPredictionPayload struct {
	Features    PlantHealthFeatures `json:"features"`
	HealthScore float64             `json:"health_score"`
	RiskLevel   string              `json:"risk_level"`
	Confidence  float64             `json:"confidence"`
}

// CareOptimizationPayload is the typed payload logged with a
// care_optimization interaction.
type CareOptimizationPayload struct {
	Features             PlantHealthFeatures `json:"features"`
	WateringFrequency    float64             `json:"watering_frequency_days"`
	PredictedSuccessRate float64             `json:"predicted_success_rate"`
}

// Interaction is a logged prediction event. Exactly one payload pointer is
// set, selected by Type, so training code can pattern-match instead of
// digging through untyped maps.
type Interaction struct {
	ID        string                   `json:"id"`
	UserID    string                   `json:"user_id"`
	PlantID   string                   `json:"plant_id"`
	Type      string                   `json:"interaction_type"`
	Health    *HealthPredictionPayload `json:"health,omitempty"`
	Care      *CareOptimizationPayload `json:"care,omitempty"`
	Feedback  *Feedback                `json:"user_feedback,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
}

// PlantRepository supplies plant, care-log and species records
type PlantRepository interface {
	GetPlant(ctx context.Context, id string) (*Plant, error)
	GetPlantsByUser(ctx context.Context, userID string) ([]Plant, error)
	GetCareLogs(ctx context.Context, plantID string, since *time.Time) ([]CareLog, error)
	GetSpecies(ctx context.Context, id string) (*Species, error)
}

// UserRepository supplies user profiles
type UserRepository interface {
	GetUser(ctx context.Context, id string) (*User, error)
}

// InteractionStore logs prediction interactions and serves them back to the
// learning loop
type InteractionStore interface {
	LogInteraction(ctx context.Context, in *Interaction) error
	QueryInteractions(ctx context.Context, types []string, since time.Time, withFeedback bool) ([]Interaction, error)
}

// DailyConditions is one day of an environmental forecast
type DailyConditions struct {
	Date            time.Time `json:"date"`
	TempC           float64   `json:"temp_c"`
	HumidityPct     float64   `json:"humidity_pct"`
	PrecipitationMM float64   `json:"precipitation_mm"`
	DaylightHours   float64   `json:"daylight_hours"`
}

// Forecast is an environmental forecast for a location
type Forecast struct {
	Location string            `json:"location"`
	Days     []DailyConditions `json:"days"`
	Default  bool              `json:"default,omitempty"` // true when provider data was unavailable
}

// SeasonalTransition marks a detected or expected seasonal shift
type SeasonalTransition struct {
	Kind       string    `json:"kind"` // autumn_onset|winter_onset|spring_onset|summer_onset
	Date       time.Time `json:"date"`
	TempC      float64   `json:"temp_c"`
	Daylight   float64   `json:"daylight_hours"`
	Confidence float64   `json:"confidence"`
}

// EnvironmentProvider supplies weather and seasonal transition data. May
// time out; callers fall back to default assumptions.
type EnvironmentProvider interface {
	GetWeather(ctx context.Context, location string, days int) (*Forecast, error)
	GetSeasonalTransitions(ctx context.Context, location string) ([]SeasonalTransition, error)
}
