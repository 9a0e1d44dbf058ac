package health

import (
	"context"
	"time"

	pkg "github.com/plantwise/plantwise/pkg"
)

// Watering cadence may shift at most 20% from the species baseline so a
// single optimization never swings the schedule drastically
const maxWateringShift = 0.2

// OptimizeCareSchedule derives an optimized care plan from an existing
// health prediction for the same plant. The prediction is an input, not
// recomputed, so a cached or fallback prediction optimizes consistently.
func (p *Predictor) OptimizeCareSchedule(ctx context.Context, plantID string, prediction *pkg.HealthPrediction) (*pkg.CareOptimization, error) {
	plant, err := p.plants.GetPlant(ctx, plantID)
	if err != nil {
		return nil, err
	}
	if plant == nil {
		return nil, pkg.ErrDataUnavailable
	}
	species, err := p.plants.GetSpecies(ctx, plant.SpeciesID)
	if err != nil {
		p.logger.Warn("species lookup failed", "plant_id", plantID, "error", err)
		species = nil
	}

	f, err := p.features.Extract(ctx, plantID)
	if err != nil {
		return nil, err
	}
	now := p.now()

	baseline := 7.0
	if species != nil && species.WateringDays > 0 {
		baseline = species.WateringDays
	}

	opt := &pkg.CareOptimization{
		PlantID:                  plantID,
		OptimalWateringFrequency: optimalWateringFrequency(baseline, f, prediction),
		FertilizingSchedule:      fertilizingSchedule(f),
		PredictedSuccessRate:     successRate(f, prediction),
		PersonalizedAdjustments:  p.personalizedAdjustments(f, species),
		SeasonalModifications:    seasonalModifications(f),
		RiskMitigationSchedule:   mitigationSchedule(prediction, now),
		GrowthTrajectory:         p.growthTrajectory(f),
		GeneratedAt:              now,
	}

	p.logOptimization(ctx, plant, f, opt)
	return opt, nil
}

// optimalWateringFrequency shifts the species baseline by the plant's
// observed cadence and risk, bounded to ±20%
func optimalWateringFrequency(baseline float64, f *pkg.PlantHealthFeatures, prediction *pkg.HealthPrediction) float64 {
	shift := 0.0
	// Behind schedule: water more often. Overdoing it: stretch the cadence.
	if f.CareFrequencyScore < 0.4 {
		shift = -maxWateringShift * (0.4 - f.CareFrequencyScore) / 0.4
	} else if f.CareFrequencyScore > 0.9 && f.DaysSinceLastCare <= 2 {
		shift = maxWateringShift * 0.5
	}
	if prediction != nil && (prediction.RiskLevel == pkg.RiskHigh || prediction.RiskLevel == pkg.RiskCritical) && shift > 0 {
		// never stretch the cadence for a plant already at risk
		shift = 0
	}
	if shift < -maxWateringShift {
		shift = -maxWateringShift
	}
	if shift > maxWateringShift {
		shift = maxWateringShift
	}
	return round3(baseline * (1.0 + shift))
}

// fertilizingSchedule returns interval days per season, stretched while
// seasonal activity is low
func fertilizingSchedule(f *pkg.PlantHealthFeatures) map[string]float64 {
	schedule := map[string]float64{
		"spring": 14,
		"summer": 14,
		"fall":   28,
		"winter": 0, // paused
	}
	if f.SeasonalFactor < 0.5 {
		schedule["spring"] = 21
		schedule["summer"] = 21
	}
	return schedule
}

// successRate estimates how likely the optimized plan is to succeed
func successRate(f *pkg.PlantHealthFeatures, prediction *pkg.HealthPrediction) float64 {
	rate := 0.4*f.HistoricalSuccessRate + 0.3*f.ConsistencyScore + 0.3*f.UserExperienceScore
	if prediction != nil {
		rate = 0.7*rate + 0.3*prediction.HealthScore
	}
	return round3(clamp01(rate))
}

// personalizedAdjustments names concrete habit changes for this owner,
// using the behavior cluster when available
func (p *Predictor) personalizedAdjustments(f *pkg.PlantHealthFeatures, species *pkg.Species) []string {
	var out []string

	if cluster, err := p.models.PredictBehaviorCluster(f); err == nil {
		switch cluster {
		case 0:
			out = append(out, "your care pattern is sparse: shorter, more frequent check-ins will help")
		case 1:
			out = append(out, "your routine is steady but light: add a monthly close inspection")
		case 3:
			out = append(out, "you care intensively: watch for overwatering rather than neglect")
		}
	}
	if f.ConsistencyScore < LowConsistencyThreshold {
		out = append(out, "space care events evenly instead of clustering them")
	}
	if f.CareTypeDiversity < 0.5 {
		out = append(out, "add fertilizing and pruning to the routine, not just watering")
	}
	if species != nil && (species.CareLevel == "hard" || species.CareLevel == "expert") {
		out = append(out, "this species is demanding: log every care action to track what works")
	}
	if len(out) == 0 {
		out = append(out, "your current routine suits this plant well")
	}
	return out
}

// seasonalModifications summarizes how care should change per season
func seasonalModifications(f *pkg.PlantHealthFeatures) map[string]string {
	mods := map[string]string{
		"spring": "resume feeding and increase watering as growth picks up",
		"summer": "watch for heat stress and water more on hot days",
		"fall":   "taper feeding and stretch the watering cadence",
		"winter": "water sparingly and hold fertilizer until spring",
	}
	if f.EnvironmentalStressScore > HighStressThreshold {
		mods["current"] = "conditions are stressful right now, change one variable at a time"
	}
	return mods
}

// mitigationSchedule converts the prediction's risk factors into dated
// follow-up actions
func mitigationSchedule(prediction *pkg.HealthPrediction, now time.Time) []pkg.ScheduledAction {
	if prediction == nil {
		return nil
	}
	var out []pkg.ScheduledAction
	for i, rf := range prediction.RiskFactors {
		due := now.AddDate(0, 0, 2+i)
		if prediction.RiskLevel == pkg.RiskCritical {
			due = now
		}
		out = append(out, pkg.ScheduledAction{
			Action:   rf.Recommendation,
			DueDate:  due,
			Interval: "weekly",
			Reason:   rf.Description,
		})
	}
	return out
}

// growthTrajectory labels the expected direction from the phase head
func (p *Predictor) growthTrajectory(f *pkg.PlantHealthFeatures) string {
	phase, _, err := p.models.PredictGrowthPhase(f)
	if err != nil {
		return "stable"
	}
	switch phase {
	case pkg.PhaseRapid:
		return "strong_growth"
	case pkg.PhaseActive:
		return "steady_growth"
	case pkg.PhaseSlow:
		return "slow_growth"
	case pkg.PhaseDormant:
		return "dormant"
	default:
		return "stable"
	}
}

func (p *Predictor) logOptimization(ctx context.Context, plant *pkg.Plant, f *pkg.PlantHealthFeatures, opt *pkg.CareOptimization) {
	if p.interactions == nil {
		return
	}
	in := &pkg.Interaction{
		UserID:  plant.UserID,
		PlantID: plant.ID,
		Type:    pkg.InteractionCareOptimization,
		Care: &pkg.CareOptimizationPayload{
			Features:             *f,
			WateringFrequency:    opt.OptimalWateringFrequency,
			PredictedSuccessRate: opt.PredictedSuccessRate,
		},
		CreatedAt: opt.GeneratedAt,
	}
	if err := p.interactions.LogInteraction(ctx, in); err != nil {
		p.logger.Warn("interaction logging failed", "plant_id", plant.ID, "error", err)
	}
}
