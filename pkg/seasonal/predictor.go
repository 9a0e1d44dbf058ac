// Package seasonal produces forward-looking behavior predictions for a
// plant: growth forecast, care adjustments, risk factors and optimal
// activity windows over a horizon.
package seasonal

import (
	"context"
	"math"
	"time"

	pkg "github.com/plantwise/plantwise/pkg"
	"github.com/plantwise/plantwise/pkg/features"
	"github.com/plantwise/plantwise/pkg/logx"
	"github.com/plantwise/plantwise/pkg/models"
)

// Confidence caps applied after the component rollup. High risk signals
// must drag reported confidence down even when the component scores are
// individually optimistic.
const (
	confCapManyRisks     = 0.6  // three or more risk factors
	confCapHighStress    = 0.55 // stress likelihood above 0.7
	confCapCriticalRisk  = 0.5  // any critical risk factor
	confPenaltyNoWeather = 0.15 // provider fell back to defaults
)

// Neutral fallbacks substituted when a model head fails during a request
const (
	fallbackGrowthRate = 1.0
	fallbackRiskScore  = 0.5
	fallbackConfidence = 0.5
)

// weeklyGrowthFraction converts the model's growth rate into a
// compounding weekly size increment
const weeklyGrowthFraction = 0.015

// Predictor orchestrates the feature extractor and model store into full
// seasonal predictions
type Predictor struct {
	features *features.Extractor
	models   *models.Store
	plants   pkg.PlantRepository
	env      pkg.EnvironmentProvider
	logger   *logx.Logger
	now      func() time.Time
}

// NewPredictor creates a seasonal predictor
func NewPredictor(fx *features.Extractor, store *models.Store, plants pkg.PlantRepository, env pkg.EnvironmentProvider, logger *logx.Logger) *Predictor {
	return &Predictor{
		features: fx,
		models:   store,
		plants:   plants,
		env:      env,
		logger:   logger,
		now:      time.Now,
	}
}

// environment is the joined result of the provider fan-out
type environment struct {
	forecast    *pkg.Forecast
	transitions []pkg.SeasonalTransition
	usedDefault bool
}

// Predict runs the staged prediction pipeline for one plant over the given
// horizon in days. Only a missing plant aborts the request; every other
// stage degrades to documented defaults.
func (p *Predictor) Predict(ctx context.Context, plantID string, days int) (*pkg.SeasonalPredictionResult, error) {
	if days <= 0 {
		days = 90
	}
	now := p.now()

	// Stage: collect context
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
	env := p.collectEnvironment(ctx, plant.Location, days, now)

	// Stage: extract features
	f, err := p.features.Extract(ctx, plantID)
	if err != nil {
		return nil, err
	}

	// Stage: run models. Each head degrades independently.
	degraded := false
	growthRate, err := p.models.PredictGrowthRate(f)
	if err != nil {
		p.logger.Warn("growth inference failed, using neutral rate", "plant_id", plantID, "error", err)
		growthRate = fallbackGrowthRate
		degraded = true
	}
	waterDelta, fertDelta, lightDelta, err := p.models.PredictCareAdjustments(f)
	if err != nil {
		p.logger.Warn("care adjustment inference failed, using zero deltas", "plant_id", plantID, "error", err)
		waterDelta, fertDelta, lightDelta = 0, 0, 0
		degraded = true
	}
	riskScore, err := p.models.PredictRiskScore(f)
	if err != nil {
		p.logger.Warn("risk inference failed, using neutral risk", "plant_id", plantID, "error", err)
		riskScore = fallbackRiskScore
		degraded = true
	}
	phase, _, err := p.models.PredictGrowthPhase(f)
	if err != nil {
		phase = pkg.PhaseActive
		degraded = true
	}
	modelConfidence, err := p.models.PredictConfidence(f)
	if err != nil {
		modelConfidence = fallbackConfidence
		degraded = true
	}

	profile := profileFor(species)
	periodEnd := now.AddDate(0, 0, days)

	forecast := p.buildGrowthForecast(growthRate, phase, f, env, profile, now, days)
	adjustments := p.buildCareAdjustments(species, f, waterDelta, fertDelta, lightDelta, modelConfidence, now)
	risks := p.buildRiskFactors(f, riskScore, env, species, profile, now, days)

	// Stage: assemble activities. Missing transition data degrades to an
	// empty list rather than aborting the prediction.
	activities := p.assembleActivities(env, profile, phase, now, periodEnd)

	// Stage: compute confidence
	confidence := p.rollupConfidence(modelConfidence, f, forecast, risks, env, degraded)

	return &pkg.SeasonalPredictionResult{
		PlantID:              plantID,
		PeriodStart:          now,
		PeriodEnd:            periodEnd,
		GrowthForecast:       forecast,
		CareAdjustments:      adjustments,
		RiskFactors:          risks,
		OptimalActivities:    activities,
		ConfidenceScore:      confidence,
		ModelVersion:         p.models.Version(),
		EnvironmentalFactors: environmentalFactors(env),
		GeneratedAt:          now,
	}, nil
}

// collectEnvironment fans out the weather and transition lookups and joins
// them, substituting defaults when the provider is unavailable
func (p *Predictor) collectEnvironment(ctx context.Context, location string, days int, now time.Time) environment {
	type weatherResult struct {
		forecast *pkg.Forecast
		err      error
	}
	type transitionResult struct {
		transitions []pkg.SeasonalTransition
		err         error
	}

	weatherCh := make(chan weatherResult, 1)
	transitionCh := make(chan transitionResult, 1)

	go func() {
		f, err := p.env.GetWeather(ctx, location, days)
		weatherCh <- weatherResult{f, err}
	}()
	go func() {
		tr, err := p.env.GetSeasonalTransitions(ctx, location)
		transitionCh <- transitionResult{tr, err}
	}()

	w := <-weatherCh
	t := <-transitionCh

	env := environment{}
	if w.err != nil || w.forecast == nil {
		p.logger.Warn("environmental data unavailable, using default assumptions",
			"location", location, "error", w.err)
		env.forecast = defaultForecast(location, days, now)
		env.usedDefault = true
	} else {
		env.forecast = w.forecast
	}
	if t.err != nil {
		env.transitions = nil
	} else {
		env.transitions = t.transitions
	}
	return env
}

// defaultForecast mirrors weather.DefaultForecast without importing the
// client package: mild conditions that bias no risk signal
func defaultForecast(location string, days int, start time.Time) *pkg.Forecast {
	f := &pkg.Forecast{Location: location, Default: true}
	for i := 0; i < days; i++ {
		f.Days = append(f.Days, pkg.DailyConditions{
			Date:          start.AddDate(0, 0, i),
			TempC:         20.0,
			HumidityPct:   50.0,
			DaylightHours: 12.0,
		})
	}
	return f
}

// buildGrowthForecast compounds the predicted growth rate into weekly size
// projections and derives dormancy and flowering windows from seasonal
// transitions intersected with the species profile
func (p *Predictor) buildGrowthForecast(growthRate float64, phase string, f *pkg.PlantHealthFeatures, env environment, profile Profile, now time.Time, days int) pkg.GrowthForecast {
	weeks := days / 7
	if weeks < 1 {
		weeks = 1
	}

	size := 1.0
	projections := make([]pkg.SizeProjection, 0, weeks)
	for w := 1; w <= weeks; w++ {
		size *= 1.0 + growthRate*weeklyGrowthFraction
		projections = append(projections, pkg.SizeProjection{
			Week:         w,
			RelativeSize: round3(size),
			GrowthRate:   growthRate,
		})
	}

	stress := clamp01(0.6*f.EnvironmentalStressScore + 0.4*f.CarePatternDeviation)

	forecast := pkg.GrowthForecast{
		ExpectedGrowthRate: growthRate,
		GrowthPhase:        phase,
		SizeProjections:    projections,
		StressLikelihood:   stress,
	}

	horizon := now.AddDate(0, 0, days)
	for _, tr := range env.transitions {
		if tr.Date.After(horizon) || tr.Date.Before(now) {
			continue
		}
		switch tr.Kind {
		case "autumn_onset", "winter_onset":
			if tr.TempC <= profile.TriggerTempC || tr.Daylight <= profile.TriggerDaylightHours {
				forecast.DormancyPeriods = append(forecast.DormancyPeriods, pkg.DormancyPeriod{
					ExpectedStart: tr.Date,
					ExpectedEnd:   tr.Date.AddDate(0, 0, profile.DormancyDays),
					Intensity:     profile.Intensity,
					CareNotes:     "reduce watering and pause fertilizing while growth slows",
				})
			}
		case "spring_onset":
			if profile.FloweringAfterSpring {
				forecast.FloweringPredictions = append(forecast.FloweringPredictions, pkg.FloweringPrediction{
					ExpectedStart: tr.Date.AddDate(0, 0, 14),
					ExpectedEnd:   tr.Date.AddDate(0, 0, 14+profile.FloweringDays),
					Probability:   clamp01(0.6 * tr.Confidence * (0.5 + 0.5*f.SeasonalFactor)),
					Trigger:       "spring transition",
				})
			}
		}
	}

	return forecast
}

// buildCareAdjustments turns the model deltas into concrete adjustments
// against the species baselines
func (p *Predictor) buildCareAdjustments(species *pkg.Species, f *pkg.PlantHealthFeatures, waterDelta, fertDelta, lightDelta, confidence float64, now time.Time) []pkg.CareAdjustment {
	wateringBaseline := 7.0
	if species != nil && species.WateringDays > 0 {
		wateringBaseline = species.WateringDays
	}

	adjustments := make([]pkg.CareAdjustment, 0, 3)

	// A positive water delta means more water, which shortens the cadence
	waterAdj := pkg.CareAdjustment{
		CareType:             pkg.CareDimWatering,
		AdjustmentType:       adjustmentType(waterDelta),
		CurrentValue:         wateringBaseline,
		RecommendedValue:     round2(wateringBaseline * (1.0 - waterDelta*0.5)),
		AdjustmentPercentage: round2(waterDelta * 100),
		Reason:               deltaReason("watering", waterDelta, f),
		Confidence:           confidence,
		EffectiveDate:        now,
		DurationDays:         30,
	}
	adjustments = append(adjustments, waterAdj)

	adjustments = append(adjustments, pkg.CareAdjustment{
		CareType:             pkg.CareDimFertilizing,
		AdjustmentType:       adjustmentType(fertDelta),
		CurrentValue:         1.0,
		RecommendedValue:     round2(1.0 + fertDelta),
		AdjustmentPercentage: round2(fertDelta * 100),
		Reason:               deltaReason("fertilizing", fertDelta, f),
		Confidence:           confidence,
		EffectiveDate:        now,
		DurationDays:         30,
	})

	adjustments = append(adjustments, pkg.CareAdjustment{
		CareType:             pkg.CareDimLight,
		AdjustmentType:       adjustmentType(lightDelta),
		CurrentValue:         1.0,
		RecommendedValue:     round2(1.0 + lightDelta),
		AdjustmentPercentage: round2(lightDelta * 100),
		Reason:               deltaReason("light exposure", lightDelta, f),
		Confidence:           confidence,
		EffectiveDate:        now,
		DurationDays:         45,
	})

	return adjustments
}

// adjustmentType buckets a model delta
func adjustmentType(delta float64) string {
	switch {
	case delta > 0.05:
		return pkg.AdjustIncrease
	case delta < -0.05:
		return pkg.AdjustDecrease
	default:
		return pkg.AdjustMaintain
	}
}

// deltaReason explains an adjustment in terms of the features that drove it
func deltaReason(dimension string, delta float64, f *pkg.PlantHealthFeatures) string {
	switch {
	case delta > 0.05:
		return "the model recommends more " + dimension + " for the current seasonal growth level"
	case delta < -0.05:
		return "the model recommends less " + dimension + " while growth activity is reduced"
	default:
		return "current " + dimension + " matches the predicted need"
	}
}

// buildRiskFactors derives seasonal risk factors from the forecast
// extremes, the model risk score and the feature profile
func (p *Predictor) buildRiskFactors(f *pkg.PlantHealthFeatures, riskScore float64, env environment, species *pkg.Species, profile Profile, now time.Time, days int) []pkg.RiskFactor {
	risks := make([]pkg.RiskFactor, 0, 4)

	optimalTemp := 21.0
	if species != nil && species.OptimalTempC > 0 {
		optimalTemp = species.OptimalTempC
	}

	hot, cold, dryAir, humidAir := 0, 0, 0, 0
	for _, d := range env.forecast.Days {
		if d.TempC > optimalTemp+8 {
			hot++
		}
		if d.TempC < optimalTemp-8 {
			cold++
		}
		if d.HumidityPct > 0 && d.HumidityPct < 30 {
			dryAir++
		}
		if d.HumidityPct > 80 {
			humidAir++
		}
	}
	total := len(env.forecast.Days)
	if total == 0 {
		total = 1
	}

	if cold > 0 {
		frac := float64(cold) / float64(total)
		onset := firstMatchingDay(env.forecast, func(d pkg.DailyConditions) bool { return d.TempC < optimalTemp-8 })
		risks = append(risks, pkg.RiskFactor{
			RiskType:            pkg.RiskTypeColdStress,
			RiskLevel:           levelForProbability(frac),
			Probability:         clamp01(frac * 1.5),
			ImpactSeverity:      0.7,
			OnsetDate:           onset,
			MitigationActions:   []string{"move away from cold windows and drafts", "reduce watering while temperatures stay low"},
			MonitoringFrequency: "daily during cold spells",
		})
	}
	if hot > 0 {
		frac := float64(hot) / float64(total)
		onset := firstMatchingDay(env.forecast, func(d pkg.DailyConditions) bool { return d.TempC > optimalTemp+8 })
		risks = append(risks, pkg.RiskFactor{
			RiskType:            pkg.RiskTypeHeatStress,
			RiskLevel:           levelForProbability(frac),
			Probability:         clamp01(frac * 1.5),
			ImpactSeverity:      0.6,
			OnsetDate:           onset,
			MitigationActions:   []string{"increase watering frequency", "move out of direct afternoon sun"},
			MonitoringFrequency: "daily during heat waves",
		})
	}
	if dryAir > total/4 {
		risks = append(risks, pkg.RiskFactor{
			RiskType:            pkg.RiskTypeLowHumidity,
			RiskLevel:           pkg.RiskMedium,
			Probability:         clamp01(float64(dryAir) / float64(total) * 1.2),
			ImpactSeverity:      0.5,
			MitigationActions:   []string{"mist regularly or run a humidifier", "group plants to raise local humidity"},
			MonitoringFrequency: "weekly",
		})
	}
	if humidAir > total/4 {
		risks = append(risks, pkg.RiskFactor{
			RiskType:            pkg.RiskTypeHighHumidity,
			RiskLevel:           pkg.RiskMedium,
			Probability:         clamp01(float64(humidAir) / float64(total) * 1.2),
			ImpactSeverity:      0.5,
			MitigationActions:   []string{"improve air circulation", "let soil dry further between waterings"},
			MonitoringFrequency: "weekly",
		})
	}

	// Elevated model risk plus erratic care reads as pest and disease
	// exposure
	if riskScore > 0.6 && f.CarePatternDeviation > 0.5 {
		risks = append(risks, pkg.RiskFactor{
			RiskType:            pkg.RiskTypePestDisease,
			RiskLevel:           levelForProbability(riskScore),
			Probability:         clamp01(riskScore),
			ImpactSeverity:      round2(riskScore),
			MitigationActions:   []string{"inspect leaves and soil weekly", "isolate at the first sign of infestation"},
			MonitoringFrequency: "weekly inspection",
		})
	}

	// Transitions inside the horizon stress the plant while it adapts
	horizon := now.AddDate(0, 0, days)
	for _, tr := range env.transitions {
		if tr.Date.After(horizon) || tr.Date.Before(now) {
			continue
		}
		onset := tr.Date
		risks = append(risks, pkg.RiskFactor{
			RiskType:            pkg.RiskTypeSeasonalTransition,
			RiskLevel:           pkg.RiskLow,
			Probability:         clamp01(tr.Confidence),
			ImpactSeverity:      0.4,
			OnsetDate:           &onset,
			MitigationActions:   []string{"adjust care gradually across the transition"},
			MonitoringFrequency: "weekly around the transition date",
		})
		if (tr.Kind == "autumn_onset" || tr.Kind == "winter_onset") &&
			(tr.TempC <= profile.TriggerTempC || tr.Daylight <= profile.TriggerDaylightHours) {
			risks = append(risks, pkg.RiskFactor{
				RiskType:            pkg.RiskTypeDormancy,
				RiskLevel:           pkg.RiskLow,
				Probability:         clamp01(tr.Confidence * 0.9),
				ImpactSeverity:      0.3,
				OnsetDate:           &onset,
				MitigationActions:   []string{"cut back watering", "hold fertilizer until growth resumes"},
				MonitoringFrequency: "biweekly during dormancy",
			})
		}
	}

	return risks
}

// firstMatchingDay returns the date of the first forecast day matching the
// predicate
func firstMatchingDay(forecast *pkg.Forecast, match func(pkg.DailyConditions) bool) *time.Time {
	for _, d := range forecast.Days {
		if match(d) {
			date := d.Date
			return &date
		}
	}
	return nil
}

// levelForProbability buckets a probability into a risk level
func levelForProbability(p float64) string {
	switch {
	case p >= 0.75:
		return pkg.RiskCritical
	case p >= 0.5:
		return pkg.RiskHigh
	case p >= 0.25:
		return pkg.RiskMedium
	default:
		return pkg.RiskLow
	}
}

// assembleActivities derives optimal activity windows from the seasonal
// context. Without transition data only the phase-based windows are
// emitted; an empty list is a valid degraded result.
func (p *Predictor) assembleActivities(env environment, profile Profile, phase string, now, periodEnd time.Time) []pkg.PlantActivity {
	activities := make([]pkg.PlantActivity, 0, 3)

	for _, tr := range env.transitions {
		if tr.Date.After(periodEnd) || tr.Date.Before(now) {
			continue
		}
		switch tr.Kind {
		case "spring_onset":
			activities = append(activities, pkg.PlantActivity{
				Activity:    "repotting",
				WindowStart: tr.Date,
				WindowEnd:   tr.Date.AddDate(0, 0, 30),
				Priority:    "medium",
				Reason:      "repot as growth resumes after the spring transition",
			})
			activities = append(activities, pkg.PlantActivity{
				Activity:    "pruning",
				WindowStart: tr.Date.AddDate(0, 0, -14),
				WindowEnd:   tr.Date,
				Priority:    "low",
				Reason:      "shape before new growth starts",
			})
		case "autumn_onset", "winter_onset":
			if tr.TempC <= profile.TriggerTempC {
				activities = append(activities, pkg.PlantActivity{
					Activity:    "final feeding",
					WindowStart: tr.Date.AddDate(0, 0, -21),
					WindowEnd:   tr.Date,
					Priority:    "medium",
					Reason:      "last fertilizer application before dormancy",
				})
			}
		}
	}

	if phase == pkg.PhaseActive || phase == pkg.PhaseRapid {
		activities = append(activities, pkg.PlantActivity{
			Activity:    "fertilizing",
			WindowStart: now,
			WindowEnd:   now.AddDate(0, 0, 28),
			Priority:    "medium",
			Reason:      "feed during the active growth phase",
		})
	}

	return activities
}

// rollupConfidence combines the model's self-reported confidence with data
// quality signals, then applies the documented risk clamps so confidence
// can never read high while risk signals read high.
func (p *Predictor) rollupConfidence(modelConfidence float64, f *pkg.PlantHealthFeatures, forecast pkg.GrowthForecast, risks []pkg.RiskFactor, env environment, degraded bool) float64 {
	dataQuality := clamp01(0.4*f.ConsistencyScore + 0.3*f.CareTypeDiversity + 0.3*(1.0-f.CarePatternDeviation))
	confidence := 0.6*modelConfidence + 0.4*dataQuality

	if env.usedDefault {
		confidence -= confPenaltyNoWeather
	}
	if degraded {
		confidence = math.Min(confidence, fallbackConfidence)
	}

	// Post-hoc clamps, not averaging: risk signals cap confidence outright
	if len(risks) >= 3 {
		confidence = math.Min(confidence, confCapManyRisks)
	}
	if forecast.StressLikelihood > 0.7 {
		confidence = math.Min(confidence, confCapHighStress)
	}
	for _, r := range risks {
		if r.RiskLevel == pkg.RiskCritical {
			confidence = math.Min(confidence, confCapCriticalRisk)
			break
		}
	}

	return round3(clamp01(confidence))
}

// environmentalFactors summarizes the forecast for the result payload
func environmentalFactors(env environment) map[string]float64 {
	out := map[string]float64{}
	if len(env.forecast.Days) == 0 {
		return out
	}
	var temp, humidity, daylight float64
	for _, d := range env.forecast.Days {
		temp += d.TempC
		humidity += d.HumidityPct
		daylight += d.DaylightHours
	}
	n := float64(len(env.forecast.Days))
	out["avg_temp_c"] = round2(temp / n)
	out["avg_humidity_pct"] = round2(humidity / n)
	out["avg_daylight_hours"] = round2(daylight / n)
	if env.usedDefault {
		out["default_assumptions"] = 1
	}
	return out
}

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
