package models

import (
	"math"
	"math/rand"

	pkg "github.com/plantwise/plantwise/pkg"
)

// syntheticSampleCount is the size of the bootstrap training set
const syntheticSampleCount = 600

// syntheticSeed keeps the bootstrap deterministic so cold-started daemons
// agree on their fallback model
const syntheticSeed = 20240517

// SynthesizeDataset builds a labeled training set from documented domain
// rules. It exists purely as a cold-start bootstrap: growth rises with the
// seasonal growth coefficient and steady care, falls with plant age and
// environmental stress; risk tracks neglect, stress and the gap between
// species difficulty and user experience. Models trained on it are tagged
// SourceSynthetic so consumers can distinguish heuristic predictions from
// learned ones.
func SynthesizeDataset() *Dataset {
	rng := rand.New(rand.NewSource(syntheticSeed))
	samples := make([]Sample, 0, syntheticSampleCount)

	for i := 0; i < syntheticSampleCount; i++ {
		// Uniform draws land almost entirely in the slow/active band, so
		// stratify a slice of them toward vigorous young plants; every
		// phase head needs positives on both sides of any split.
		var f pkg.PlantHealthFeatures
		if i%6 == 0 {
			f = vigorousFeatures(rng)
		} else {
			f = randomFeatures(rng)
		}
		samples = append(samples, labelSample(f, rng))
	}

	return &Dataset{Samples: samples, Source: SourceSynthetic}
}

// randomFeatures draws a plausible feature vector
func randomFeatures(rng *rand.Rand) pkg.PlantHealthFeatures {
	return pkg.PlantHealthFeatures{
		CareFrequencyScore:       rng.Float64(),
		ConsistencyScore:         rng.Float64(),
		EnvironmentalStressScore: rng.Float64(),
		SpeciesDifficultyScore:   0.2 + 0.7*rng.Float64(),
		UserExperienceScore:      0.3 + 0.7*rng.Float64(),
		SeasonalFactor:           0.35 + 0.65*rng.Float64(),
		DaysSinceLastCare:        rng.Intn(31),
		CareTypeDiversity:        float64(rng.Intn(5)) / 4.0,
		HistoricalSuccessRate:    rng.Float64(),
		PlantAgeMonths:           1 + rng.Intn(72),
		RecentActivityTrend:      2.0 * rng.Float64(),
		CarePatternDeviation:     rng.Float64(),
	}
}

// vigorousFeatures draws a well-kept young plant in growing season
func vigorousFeatures(rng *rand.Rand) pkg.PlantHealthFeatures {
	return pkg.PlantHealthFeatures{
		CareFrequencyScore:       0.7 + 0.3*rng.Float64(),
		ConsistencyScore:         0.7 + 0.3*rng.Float64(),
		EnvironmentalStressScore: 0.3 * rng.Float64(),
		SpeciesDifficultyScore:   0.2 + 0.5*rng.Float64(),
		UserExperienceScore:      0.5 + 0.5*rng.Float64(),
		SeasonalFactor:           0.8 + 0.2*rng.Float64(),
		DaysSinceLastCare:        rng.Intn(8),
		CareTypeDiversity:        float64(2+rng.Intn(3)) / 4.0,
		HistoricalSuccessRate:    0.6 + 0.4*rng.Float64(),
		PlantAgeMonths:           1 + rng.Intn(12),
		RecentActivityTrend:      1.0 + rng.Float64(),
		CarePatternDeviation:     0.3 * rng.Float64(),
	}
}

// labelSample applies the domain rules plus a little noise
func labelSample(f pkg.PlantHealthFeatures, rng *rand.Rand) Sample {
	noise := func(scale float64) float64 { return (rng.Float64() - 0.5) * scale }

	ageDecay := 1.0 / (1.0 + float64(f.PlantAgeMonths)/36.0)
	growth := 2.0 * f.SeasonalFactor *
		(0.5 + 0.5*f.CareFrequencyScore) *
		(0.6 + 0.4*f.ConsistencyScore) *
		(1.0 - 0.5*f.EnvironmentalStressScore) *
		ageDecay
	growth = clampRange(growth+noise(0.2), 0, 2.5)

	neglect := math.Max(0, float64(f.DaysSinceLastCare)-7) / 30.0
	mismatch := math.Max(0, f.SpeciesDifficultyScore-f.UserExperienceScore)
	risk := 0.35*f.EnvironmentalStressScore +
		0.25*(1.0-f.ConsistencyScore) +
		0.2*math.Min(1, neglect) +
		0.2*mismatch
	risk = clampRange(risk+noise(0.1), 0, 1)

	waterDelta := 0.4*(0.6-f.CareFrequencyScore) + 0.3*(f.SeasonalFactor-0.6)
	fertDelta := 0.5*(f.SeasonalFactor-0.5) - 0.2*f.EnvironmentalStressScore
	lightDelta := 0.5 * (0.8 - f.SeasonalFactor)

	confidence := 0.4 + 0.3*f.ConsistencyScore + 0.2*f.HistoricalSuccessRate - 0.2*f.CarePatternDeviation
	confidence = clampRange(confidence+noise(0.08), 0, 1)

	return Sample{
		Features:        f,
		GrowthRate:      growth,
		WaterDelta:      clampRange(waterDelta+noise(0.1), -0.6, 0.6),
		FertilizerDelta: clampRange(fertDelta+noise(0.1), -0.6, 0.6),
		LightDelta:      clampRange(lightDelta+noise(0.1), -0.6, 0.6),
		RiskScore:       risk,
		Confidence:      confidence,
		GrowthPhase:     phaseFor(f.SeasonalFactor, growth),
	}
}

// FeedbackSample labels a feedback-derived feature vector. Risk and
// confidence come from the observed outcome; the remaining targets reuse
// the bootstrap domain rules, without noise, dampened by the observed
// risk so bad outcomes pull the growth label down.
func FeedbackSample(f pkg.PlantHealthFeatures, observedRisk, observedConfidence float64) Sample {
	ageDecay := 1.0 / (1.0 + float64(f.PlantAgeMonths)/36.0)
	growth := 2.0 * f.SeasonalFactor *
		(0.5 + 0.5*f.CareFrequencyScore) *
		(0.6 + 0.4*f.ConsistencyScore) *
		(1.0 - 0.5*f.EnvironmentalStressScore) *
		ageDecay
	growth = clampRange(growth*(1.0-0.4*observedRisk), 0, 2.5)

	waterDelta := 0.4*(0.6-f.CareFrequencyScore) + 0.3*(f.SeasonalFactor-0.6)
	fertDelta := 0.5*(f.SeasonalFactor-0.5) - 0.2*f.EnvironmentalStressScore
	lightDelta := 0.5 * (0.8 - f.SeasonalFactor)

	return Sample{
		Features:        f,
		GrowthRate:      growth,
		WaterDelta:      clampRange(waterDelta, -0.6, 0.6),
		FertilizerDelta: clampRange(fertDelta, -0.6, 0.6),
		LightDelta:      clampRange(lightDelta, -0.6, 0.6),
		RiskScore:       clampRange(observedRisk, 0, 1),
		Confidence:      clampRange(observedConfidence, 0, 1),
		GrowthPhase:     phaseFor(f.SeasonalFactor, growth),
	}
}

// phaseFor labels the growth phase from the seasonal coefficient and the
// resulting growth rate
func phaseFor(seasonal, growth float64) string {
	switch {
	case seasonal < 0.45:
		return pkg.PhaseDormant
	case growth > 1.2:
		return pkg.PhaseRapid
	case seasonal < 0.65 || growth < 0.5:
		return pkg.PhaseSlow
	default:
		return pkg.PhaseActive
	}
}

func clampRange(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
