// Package rationale turns predictions into structured natural-language
// explanations. The builder is a pure transformation: every clause it
// emits traces back to a concrete input field, never invented filler.
package rationale

import (
	"fmt"
	"strings"

	pkg "github.com/plantwise/plantwise/pkg"
)

// PlantContext bundles the inputs a rationale can draw on
type PlantContext struct {
	Plant    *pkg.Plant
	Species  *pkg.Species
	Features *pkg.PlantHealthFeatures
	Health   *pkg.HealthPrediction
	Forecast *pkg.Forecast
}

// RuleResult is the rule-based recommendation the explanation covers
type RuleResult struct {
	WateringIntervalDays   float64
	FertilizerIntervalDays float64
	LightRecommendation    string
}

// MLPrediction carries the model outputs blended into the recommendation
type MLPrediction struct {
	WaterDelta      float64
	FertilizerDelta float64
	LightDelta      float64
	Confidence      float64
	ModelVersion    string
}

// Rationale is the structured explanation returned to the caller
type Rationale struct {
	Watering              string   `json:"watering"`
	Fertilizer            string   `json:"fertilizer"`
	Light                 string   `json:"light"`
	Environmental         string   `json:"environmental"`
	Health                string   `json:"health"`
	Confidence            string   `json:"confidence"`
	KeyFactors            []string `json:"key_factors"`
	PrimaryInfluence      string   `json:"primary_influence"`
	SecondaryInfluences   []string `json:"secondary_influences"`
	DataLimitations       []string `json:"data_limitations,omitempty"`
	LowConfidence         bool     `json:"low_confidence,omitempty"`
	ConfidenceExplanation string   `json:"confidence_explanation"`
}

// deltaSignificant is the magnitude below which a model delta is treated
// as agreement with the rule baseline
const deltaSignificant = 0.05

// Build assembles the rationale. Missing context never produces partial
// output: without the features the whole bundle degrades to the documented
// low-confidence fallback.
func Build(ctx PlantContext, rule RuleResult, ml MLPrediction) Rationale {
	if ctx.Features == nil {
		return fallbackRationale()
	}
	f := ctx.Features

	r := Rationale{
		Watering:      wateringRationale(ctx, rule, ml),
		Fertilizer:    fertilizerRationale(f, rule, ml),
		Light:         lightRationale(ctx, rule, ml),
		Environmental: environmentalRationale(ctx),
		Health:        healthRationale(ctx),
	}

	factors := keyFactors(f, ctx.Health)
	r.KeyFactors = factors
	if len(factors) > 0 {
		r.PrimaryInfluence = factors[0]
		r.SecondaryInfluences = factors[1:]
	}
	r.DataLimitations = dataLimitations(ctx)
	r.LowConfidence = ml.Confidence < 0.5 || len(r.DataLimitations) > 1
	r.Confidence, r.ConfidenceExplanation = confidenceRationale(f, ml, r.DataLimitations)
	return r
}

// fallbackRationale is the bundle served when the inputs cannot support a
// traceable explanation
func fallbackRationale() Rationale {
	return Rationale{
		Watering:              "we could not analyze this plant's watering history, so the recommendation follows general guidance",
		Fertilizer:            "feeding guidance follows the general schedule for houseplants",
		Light:                 "light guidance follows the general recommendation for this kind of plant",
		Environmental:         "no environmental data was available for this recommendation",
		Health:                "not enough history to assess this plant's health trend",
		Confidence:            "confidence is low because the recommendation is based on general guidance rather than this plant's data",
		ConfidenceExplanation: "insufficient plant data for a personalized explanation",
		LowConfidence:         true,
		DataLimitations:       []string{"plant history unavailable"},
	}
}

func wateringRationale(ctx PlantContext, rule RuleResult, ml MLPrediction) string {
	f := ctx.Features
	var reasons []string

	if ctx.Species != nil && ctx.Species.WateringDays > 0 {
		reasons = append(reasons, fmt.Sprintf("%s is typically watered every %.0f days", speciesName(ctx.Species), ctx.Species.WateringDays))
	}
	if rule.WateringIntervalDays > 0 {
		reasons = append(reasons, fmt.Sprintf("your current conditions suggest a %.0f-day interval", rule.WateringIntervalDays))
	}
	switch {
	case ml.WaterDelta > deltaSignificant:
		reasons = append(reasons, "the model sees signs this plant wants more frequent water")
	case ml.WaterDelta < -deltaSignificant:
		reasons = append(reasons, "the model suggests letting the soil dry longer between waterings")
	}
	if f.DaysSinceLastCare > 14 {
		reasons = append(reasons, fmt.Sprintf("the last logged care was %d days ago", f.DaysSinceLastCare))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "your watering pattern already matches what this plant needs")
	}
	return joinReasons(reasons)
}

func fertilizerRationale(f *pkg.PlantHealthFeatures, rule RuleResult, ml MLPrediction) string {
	var reasons []string

	if f.SeasonalFactor >= 0.7 {
		reasons = append(reasons, "the plant is in an active growth period that benefits from feeding")
	} else if f.SeasonalFactor < 0.45 {
		reasons = append(reasons, "growth activity is low this time of year, so feeding can be reduced")
	}
	if rule.FertilizerIntervalDays > 0 {
		reasons = append(reasons, fmt.Sprintf("a %.0f-day feeding cadence fits the season", rule.FertilizerIntervalDays))
	}
	switch {
	case ml.FertilizerDelta > deltaSignificant:
		reasons = append(reasons, "the model predicts the plant would respond well to more nutrients")
	case ml.FertilizerDelta < -deltaSignificant:
		reasons = append(reasons, "the model predicts current feeding is more than the plant can use")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "the current feeding schedule matches the plant's predicted needs")
	}
	return joinReasons(reasons)
}

func lightRationale(ctx PlantContext, rule RuleResult, ml MLPrediction) string {
	var reasons []string

	if ctx.Species != nil && ctx.Species.LightRequirement != "" {
		reasons = append(reasons, fmt.Sprintf("%s prefers %s light", speciesName(ctx.Species), ctx.Species.LightRequirement))
	}
	if rule.LightRecommendation != "" {
		reasons = append(reasons, rule.LightRecommendation)
	}
	switch {
	case ml.LightDelta > deltaSignificant:
		reasons = append(reasons, "the model suggests a brighter spot would support the predicted growth")
	case ml.LightDelta < -deltaSignificant:
		reasons = append(reasons, "the model suggests the current spot may be brighter than needed")
	}
	if ctx.Features.SeasonalFactor < 0.45 {
		reasons = append(reasons, "daylight is limited in the current season")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "current light conditions look appropriate")
	}
	return joinReasons(reasons)
}

func environmentalRationale(ctx PlantContext) string {
	f := ctx.Features
	var reasons []string

	if ctx.Forecast != nil && len(ctx.Forecast.Days) > 0 {
		if ctx.Forecast.Default {
			reasons = append(reasons, "local weather data was unavailable, so seasonal averages were assumed")
		} else {
			hot, cold := forecastExtremes(ctx.Forecast, ctx.Species)
			if cold > 0 {
				reasons = append(reasons, fmt.Sprintf("%d forecast days run colder than this plant prefers", cold))
			}
			if hot > 0 {
				reasons = append(reasons, fmt.Sprintf("%d forecast days run hotter than this plant prefers", hot))
			}
			if hot == 0 && cold == 0 {
				reasons = append(reasons, "the forecast stays inside this plant's comfortable range")
			}
		}
	}
	if f.EnvironmentalStressScore > 0.7 {
		reasons = append(reasons, "overall environmental stress on this plant is currently high")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "no notable environmental pressure was detected")
	}
	return joinReasons(reasons)
}

func healthRationale(ctx PlantContext) string {
	f := ctx.Features
	var reasons []string

	if ctx.Health != nil {
		reasons = append(reasons, fmt.Sprintf("the plant's health score is %.2f with %s risk", ctx.Health.HealthScore, ctx.Health.RiskLevel))
		for _, rf := range ctx.Health.RiskFactors {
			reasons = append(reasons, rf.Description)
		}
	}
	if ctx.Health == nil {
		if f.ConsistencyScore >= 0.7 {
			reasons = append(reasons, "care has been consistent, which supports steady health")
		} else if f.ConsistencyScore < 0.5 {
			reasons = append(reasons, "irregular care timing is the main health concern on record")
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "no health concerns are on record for this plant")
	}
	return joinReasons(reasons)
}

// confidenceRationale explains the confidence number in terms of the data
// behind it
func confidenceRationale(f *pkg.PlantHealthFeatures, ml MLPrediction, limitations []string) (string, string) {
	var reasons []string

	switch {
	case ml.Confidence >= 0.75:
		reasons = append(reasons, fmt.Sprintf("the model reports high certainty (%.0f%%)", ml.Confidence*100))
	case ml.Confidence >= 0.5:
		reasons = append(reasons, fmt.Sprintf("the model reports moderate certainty (%.0f%%)", ml.Confidence*100))
	default:
		reasons = append(reasons, fmt.Sprintf("the model reports low certainty (%.0f%%)", ml.Confidence*100))
	}
	if f.ConsistencyScore >= 0.7 {
		reasons = append(reasons, "your care log history is regular enough to learn from")
	}
	for _, l := range limitations {
		reasons = append(reasons, l)
	}

	explanation := "certainty reflects model self-assessment and care history quality"
	if len(limitations) > 0 {
		explanation = "certainty is reduced by gaps in the available data"
	}
	return joinReasons(reasons), explanation
}

// keyFactors ranks the inputs that moved the recommendation most
func keyFactors(f *pkg.PlantHealthFeatures, health *pkg.HealthPrediction) []string {
	type factor struct {
		name   string
		weight float64
	}
	candidates := []factor{
		{"care consistency", 1.0 - f.ConsistencyScore},
		{"time since last care", float64(f.DaysSinceLastCare) / 30.0},
		{"environmental stress", f.EnvironmentalStressScore},
		{"seasonal growth activity", absDiff(f.SeasonalFactor, 0.5)},
		{"species difficulty", f.SpeciesDifficultyScore},
	}
	if health != nil {
		candidates = append(candidates, factor{"current health risk", 1.0 - health.HealthScore})
	}

	// stable selection sort keeps ties in declaration order
	for i := 0; i < len(candidates); i++ {
		max := i
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].weight > candidates[max].weight {
				max = j
			}
		}
		candidates[i], candidates[max] = candidates[max], candidates[i]
	}

	var out []string
	for _, c := range candidates {
		if c.weight >= 0.3 {
			out = append(out, c.name)
		}
		if len(out) == 4 {
			break
		}
	}
	return out
}

// dataLimitations discloses the gaps behind the explanation
func dataLimitations(ctx PlantContext) []string {
	f := ctx.Features
	var out []string

	if f.DaysSinceLastCare >= 30 && f.CareFrequencyScore == 0.5 {
		out = append(out, "this plant has little or no logged care history")
	}
	if ctx.Species == nil {
		out = append(out, "no species profile was available")
	}
	if ctx.Forecast == nil || ctx.Forecast.Default {
		out = append(out, "local weather data was unavailable")
	}
	if f.PlantAgeMonths <= 1 {
		out = append(out, "the plant was added recently, so trends are preliminary")
	}
	return out
}

// forecastExtremes counts days outside the species comfort band
func forecastExtremes(forecast *pkg.Forecast, species *pkg.Species) (hot, cold int) {
	optimal := 21.0
	if species != nil && species.OptimalTempC > 0 {
		optimal = species.OptimalTempC
	}
	for _, d := range forecast.Days {
		if d.TempC > optimal+8 {
			hot++
		}
		if d.TempC < optimal-8 {
			cold++
		}
	}
	return hot, cold
}

// joinReasons joins clauses with an Oxford comma: "a", "a and b",
// "a, b, and c"
func joinReasons(reasons []string) string {
	switch len(reasons) {
	case 0:
		return ""
	case 1:
		return reasons[0]
	case 2:
		return reasons[0] + " and " + reasons[1]
	default:
		return strings.Join(reasons[:len(reasons)-1], ", ") + ", and " + reasons[len(reasons)-1]
	}
}

func speciesName(s *pkg.Species) string {
	if s.CommonName != "" {
		return s.CommonName
	}
	return "this species"
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
