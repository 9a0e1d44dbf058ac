// Package health predicts near-term plant health and derives optimized
// care plans from those predictions.
package health

import (
	"context"
	"fmt"
	"math"
	"time"

	pkg "github.com/plantwise/plantwise/pkg"
	"github.com/plantwise/plantwise/pkg/features"
	"github.com/plantwise/plantwise/pkg/logx"
	"github.com/plantwise/plantwise/pkg/models"
)

// Predictor computes health predictions for individual plants
type Predictor struct {
	features     *features.Extractor
	models       *models.Store
	plants       pkg.PlantRepository
	users        pkg.UserRepository
	interactions pkg.InteractionStore
	logger       *logx.Logger
	now          func() time.Time
}

// NewPredictor creates a health predictor. interactions may be nil when
// prediction logging is disabled.
func NewPredictor(fx *features.Extractor, store *models.Store, plants pkg.PlantRepository, users pkg.UserRepository, interactions pkg.InteractionStore, logger *logx.Logger) *Predictor {
	return &Predictor{
		features:     fx,
		models:       store,
		plants:       plants,
		users:        users,
		interactions: interactions,
		logger:       logger,
		now:          time.Now,
	}
}

// PredictPlantHealth produces a health prediction for one plant. Inference
// failure never propagates to the caller: the result degrades to a neutral
// fallback prediction with the Fallback flag set.
func (p *Predictor) PredictPlantHealth(ctx context.Context, plantID string) (*pkg.HealthPrediction, error) {
	plant, err := p.plants.GetPlant(ctx, plantID)
	if err != nil {
		return nil, err
	}
	if plant == nil {
		return nil, pkg.ErrDataUnavailable
	}

	f, err := p.features.Extract(ctx, plantID)
	if err != nil {
		return nil, err
	}

	prediction := p.predict(plantID, f)
	p.logPrediction(ctx, plant, f, prediction)
	return prediction, nil
}

// predict runs inference and assembles the prediction, falling back to
// neutral defaults when any head fails
func (p *Predictor) predict(plantID string, f *pkg.PlantHealthFeatures) *pkg.HealthPrediction {
	now := p.now()

	riskScore, err := p.models.PredictRiskScore(f)
	if err != nil {
		p.logger.Warn("health inference failed, serving fallback", "plant_id", plantID, "error", err)
		return fallbackPrediction(plantID, now)
	}
	confidence, err := p.models.PredictConfidence(f)
	if err != nil {
		p.logger.Warn("confidence inference failed, serving fallback", "plant_id", plantID, "error", err)
		return fallbackPrediction(plantID, now)
	}

	healthScore := clamp01(1.0 - riskScore)
	indicators := riskIndicators(f)
	riskLevel := riskLevelFor(healthScore, len(indicators))

	// High-risk predictions must not read confident
	if riskLevel == pkg.RiskHigh || riskLevel == pkg.RiskCritical {
		confidence = math.Min(confidence, highRiskConfidenceCap)
	}

	return &pkg.HealthPrediction{
		PlantID:             plantID,
		HealthScore:         round3(healthScore),
		RiskLevel:           riskLevel,
		Confidence:          round3(clamp01(confidence)),
		RiskFactors:         indicators,
		PreventionActions:   preventionActions(indicators, riskLevel),
		PredictedIssues:     predictedIssues(f, healthScore),
		OptimalCareWindow:   careWindow(f, now),
		InterventionUrgency: interventionUrgency(riskLevel, healthScore, indicators),
		GeneratedAt:         now,
	}
}

// fallbackPrediction is the neutral answer served when models are
// unavailable
func fallbackPrediction(plantID string, now time.Time) *pkg.HealthPrediction {
	return &pkg.HealthPrediction{
		PlantID:     plantID,
		HealthScore: FallbackHealthScore,
		RiskLevel:   pkg.RiskMedium,
		Confidence:  FallbackConfidence,
		PreventionActions: []pkg.PreventionAction{{
			Action:      "maintain_routine",
			Priority:    "medium",
			Description: "continue the current care routine and monitor the plant",
			Timing:      "ongoing",
		}},
		InterventionUrgency: urgencyElevated,
		Fallback:            true,
		GeneratedAt:         now,
	}
}

// riskIndicators checks the feature vector against the named thresholds
func riskIndicators(f *pkg.PlantHealthFeatures) []pkg.HealthRiskFactor {
	var out []pkg.HealthRiskFactor

	if f.DaysSinceLastCare > OverdueCareDays {
		out = append(out, pkg.HealthRiskFactor{
			Factor:         "overdue_care",
			Severity:       clamp01(float64(f.DaysSinceLastCare-OverdueCareDays) / 16.0),
			Description:    fmt.Sprintf("no care logged for %d days", f.DaysSinceLastCare),
			Recommendation: "check soil moisture and water if dry",
		})
	}
	if f.ConsistencyScore < LowConsistencyThreshold {
		out = append(out, pkg.HealthRiskFactor{
			Factor:         "inconsistent_care",
			Severity:       clamp01(LowConsistencyThreshold - f.ConsistencyScore + 0.5),
			Description:    "care events arrive at irregular intervals",
			Recommendation: "set a recurring reminder matching the species cadence",
		})
	}
	if f.EnvironmentalStressScore > HighStressThreshold {
		out = append(out, pkg.HealthRiskFactor{
			Factor:         "environmental_stress",
			Severity:       clamp01(f.EnvironmentalStressScore),
			Description:    "seasonal and environmental conditions are unfavorable",
			Recommendation: "stabilize temperature and humidity around the plant",
		})
	}
	if gap := f.SpeciesDifficultyScore - f.UserExperienceScore; gap > ExperienceGapThreshold {
		out = append(out, pkg.HealthRiskFactor{
			Factor:         "experience_gap",
			Severity:       clamp01(gap),
			Description:    "species difficulty exceeds the owner's experience level",
			Recommendation: "follow species care guides closely and log every action",
		})
	}
	return out
}

// riskLevelFor applies the banded mapping from health score and indicator
// count. Either dimension alone can raise the level, never lower it.
func riskLevelFor(healthScore float64, indicatorCount int) string {
	switch {
	case healthScore < CriticalHealthFloor || indicatorCount >= CriticalIndicatorCount:
		return pkg.RiskCritical
	case healthScore < HighHealthFloor || indicatorCount >= HighIndicatorCount:
		return pkg.RiskHigh
	case healthScore < MediumHealthFloor || indicatorCount >= MediumIndicatorCount:
		return pkg.RiskMedium
	default:
		return pkg.RiskLow
	}
}

// interventionUrgency maps the risk level to a base urgency, raised (never
// lowered) by a very low health score or a severe indicator
func interventionUrgency(riskLevel string, healthScore float64, indicators []pkg.HealthRiskFactor) int {
	urgency := urgencyRoutine
	switch riskLevel {
	case pkg.RiskMedium:
		urgency = urgencyElevated
	case pkg.RiskHigh:
		urgency = urgencySerious
	case pkg.RiskCritical:
		urgency = urgencyImmediate
	}
	if healthScore < CriticalHealthFloor && urgency < urgencySerious {
		urgency = urgencySerious
	}
	for _, ind := range indicators {
		if ind.Severity > 0.8 && urgency < urgencyConcern {
			urgency = urgencyConcern
		}
	}
	return urgency
}

// preventionActions turns indicators into a prioritized action list
func preventionActions(indicators []pkg.HealthRiskFactor, riskLevel string) []pkg.PreventionAction {
	priority := "low"
	switch riskLevel {
	case pkg.RiskMedium:
		priority = "medium"
	case pkg.RiskHigh:
		priority = "high"
	case pkg.RiskCritical:
		priority = "urgent"
	}

	var out []pkg.PreventionAction
	for _, ind := range indicators {
		out = append(out, pkg.PreventionAction{
			Action:      ind.Factor,
			Priority:    priority,
			Description: ind.Recommendation,
			Timing:      timingFor(riskLevel),
		})
	}
	if len(out) == 0 {
		out = append(out, pkg.PreventionAction{
			Action:      "maintain_routine",
			Priority:    "low",
			Description: "current care is working, keep it up",
			Timing:      "ongoing",
		})
	}
	return out
}

func timingFor(riskLevel string) string {
	switch riskLevel {
	case pkg.RiskCritical:
		return "today"
	case pkg.RiskHigh:
		return "within 2 days"
	case pkg.RiskMedium:
		return "this week"
	default:
		return "ongoing"
	}
}

// predictedIssues names the concrete problems the feature profile points at
func predictedIssues(f *pkg.PlantHealthFeatures, healthScore float64) []pkg.PredictedIssue {
	var out []pkg.PredictedIssue

	if f.CareFrequencyScore < 0.4 && f.DaysSinceLastCare > OverdueCareDays {
		out = append(out, pkg.PredictedIssue{
			Issue:       "underwatering",
			Probability: clamp01(0.5 + 0.3*(1.0-f.CareFrequencyScore)),
			Timeframe:   "1-2 weeks",
			Symptoms:    "drooping leaves, dry soil pulling from the pot edge",
			Prevention:  "water thoroughly and resume a regular schedule",
		})
	}
	if f.CareFrequencyScore > 0.9 && f.CarePatternDeviation < 0.2 && f.DaysSinceLastCare <= 2 {
		out = append(out, pkg.PredictedIssue{
			Issue:       "overwatering",
			Probability: 0.45,
			Timeframe:   "2-4 weeks",
			Symptoms:    "yellowing lower leaves, persistently wet soil",
			Prevention:  "let the top layer of soil dry before watering again",
		})
	}
	if f.EnvironmentalStressScore > HighStressThreshold && healthScore < MediumHealthFloor {
		out = append(out, pkg.PredictedIssue{
			Issue:       "stress_decline",
			Probability: clamp01(f.EnvironmentalStressScore * 0.8),
			Timeframe:   "2-3 weeks",
			Symptoms:    "leaf drop, stalled growth",
			Prevention:  "move to a more stable spot away from drafts and heat sources",
		})
	}
	return out
}

// careWindow suggests the next care dates from the current cadence
func careWindow(f *pkg.PlantHealthFeatures, now time.Time) map[string]time.Time {
	// A low frequency score means the plant is behind schedule
	daysUntilWater := 3
	if f.DaysSinceLastCare > OverdueCareDays {
		daysUntilWater = 0
	} else if f.CareFrequencyScore >= 0.8 {
		daysUntilWater = 5
	}
	return map[string]time.Time{
		"next_watering":    now.AddDate(0, 0, daysUntilWater),
		"next_fertilizing": now.AddDate(0, 0, 14),
		"next_inspection":  now.AddDate(0, 0, 7),
	}
}

// logPrediction records the interaction for the learning loop. Logging
// failure is never allowed to fail the prediction.
func (p *Predictor) logPrediction(ctx context.Context, plant *pkg.Plant, f *pkg.PlantHealthFeatures, prediction *pkg.HealthPrediction) {
	if p.interactions == nil || prediction.Fallback {
		return
	}
	in := &pkg.Interaction{
		UserID:  plant.UserID,
		PlantID: plant.ID,
		Type:    pkg.InteractionHealthPrediction,
		Health: &pkg.HealthPredictionPayload{
			Features:    *f,
			HealthScore: prediction.HealthScore,
			RiskLevel:   prediction.RiskLevel,
			Confidence:  prediction.Confidence,
		},
		CreatedAt: prediction.GeneratedAt,
	}
	if err := p.interactions.LogInteraction(ctx, in); err != nil {
		p.logger.Warn("interaction logging failed", "plant_id", plant.ID, "error", err)
	}
}

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
