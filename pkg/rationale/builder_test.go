package rationale

import (
	"strings"
	"testing"
	"time"

	pkg "github.com/plantwise/plantwise/pkg"
)

func baseContext() PlantContext {
	return PlantContext{
		Plant: &pkg.Plant{ID: "p1", Name: "ficus"},
		Species: &pkg.Species{
			CommonName:       "ficus benjamina",
			WateringDays:     7,
			OptimalTempC:     21,
			LightRequirement: "bright",
		},
		Features: &pkg.PlantHealthFeatures{
			CareFrequencyScore:    0.8,
			ConsistencyScore:      0.85,
			SeasonalFactor:        0.8,
			DaysSinceLastCare:     3,
			CareTypeDiversity:     0.5,
			HistoricalSuccessRate: 0.7,
			PlantAgeMonths:        12,
		},
	}
}

func TestJoinReasons(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"a"}, "a"},
		{[]string{"a", "b"}, "a and b"},
		{[]string{"a", "b", "c"}, "a, b, and c"},
		{[]string{"a", "b", "c", "d"}, "a, b, c, and d"},
	}
	for _, c := range cases {
		if got := joinReasons(c.in); got != c.want {
			t.Errorf("joinReasons(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBuildAllSectionsPresent(t *testing.T) {
	r := Build(baseContext(), RuleResult{WateringIntervalDays: 7, FertilizerIntervalDays: 14}, MLPrediction{Confidence: 0.8})

	sections := map[string]string{
		"watering":      r.Watering,
		"fertilizer":    r.Fertilizer,
		"light":         r.Light,
		"environmental": r.Environmental,
		"health":        r.Health,
		"confidence":    r.Confidence,
	}
	for name, text := range sections {
		if strings.TrimSpace(text) == "" {
			t.Errorf("section %q is empty", name)
		}
	}
	if r.LowConfidence {
		t.Error("well-supported input should not read low confidence")
	}
}

func TestBuildTraceability(t *testing.T) {
	// Every clause must map to an input: with a water delta the watering
	// section mentions the model, without one it must not.
	ctx := baseContext()

	withDelta := Build(ctx, RuleResult{WateringIntervalDays: 7}, MLPrediction{WaterDelta: 0.3, Confidence: 0.8})
	if !strings.Contains(withDelta.Watering, "more frequent water") {
		t.Errorf("significant water delta not explained: %q", withDelta.Watering)
	}

	noDelta := Build(ctx, RuleResult{WateringIntervalDays: 7}, MLPrediction{WaterDelta: 0.01, Confidence: 0.8})
	if strings.Contains(noDelta.Watering, "model") {
		t.Errorf("insignificant delta produced a model clause: %q", noDelta.Watering)
	}

	// species baseline clause only when a species is present
	ctx.Species = nil
	noSpecies := Build(ctx, RuleResult{}, MLPrediction{Confidence: 0.8})
	if strings.Contains(noSpecies.Watering, "typically watered") {
		t.Errorf("species clause without species input: %q", noSpecies.Watering)
	}
}

func TestBuildHealthSectionUsesPrediction(t *testing.T) {
	ctx := baseContext()
	ctx.Health = &pkg.HealthPrediction{
		HealthScore: 0.42,
		RiskLevel:   pkg.RiskHigh,
		RiskFactors: []pkg.HealthRiskFactor{
			{Factor: "overdue_care", Description: "no care logged for 20 days"},
		},
	}
	r := Build(ctx, RuleResult{}, MLPrediction{Confidence: 0.7})
	if !strings.Contains(r.Health, "0.42") || !strings.Contains(r.Health, "high") {
		t.Errorf("health section misses prediction values: %q", r.Health)
	}
	if !strings.Contains(r.Health, "no care logged for 20 days") {
		t.Errorf("risk factor description not carried through: %q", r.Health)
	}
}

func TestBuildEnvironmentalSection(t *testing.T) {
	ctx := baseContext()
	start := time.Now()
	ctx.Forecast = &pkg.Forecast{Days: []pkg.DailyConditions{
		{Date: start, TempC: 2},
		{Date: start.AddDate(0, 0, 1), TempC: 3},
		{Date: start.AddDate(0, 0, 2), TempC: 21},
	}}
	r := Build(ctx, RuleResult{}, MLPrediction{Confidence: 0.7})
	if !strings.Contains(r.Environmental, "2 forecast days run colder") {
		t.Errorf("cold days not counted: %q", r.Environmental)
	}

	ctx.Forecast = &pkg.Forecast{Default: true, Days: []pkg.DailyConditions{{TempC: 20}}}
	r = Build(ctx, RuleResult{}, MLPrediction{Confidence: 0.7})
	if !strings.Contains(r.Environmental, "unavailable") {
		t.Errorf("default forecast not disclosed: %q", r.Environmental)
	}
}

func TestBuildFallbackBundle(t *testing.T) {
	r := Build(PlantContext{}, RuleResult{}, MLPrediction{})
	if !r.LowConfidence {
		t.Error("fallback bundle must read low confidence")
	}
	if len(r.DataLimitations) == 0 {
		t.Error("fallback bundle must disclose the limitation")
	}
	if r.Watering == "" || r.Confidence == "" {
		t.Error("fallback bundle must still fill every section")
	}
}

func TestKeyFactorsOrdering(t *testing.T) {
	f := &pkg.PlantHealthFeatures{
		ConsistencyScore:         0.2, // weight 0.8
		DaysSinceLastCare:        6,   // weight 0.2, below cut
		EnvironmentalStressScore: 0.5, // weight 0.5
		SeasonalFactor:           0.5, // weight 0.0
		SpeciesDifficultyScore:   0.4, // weight 0.4
	}
	factors := keyFactors(f, nil)
	if len(factors) == 0 {
		t.Fatal("expected factors")
	}
	if factors[0] != "care consistency" {
		t.Errorf("primary factor = %q, want care consistency", factors[0])
	}
	for _, name := range factors {
		if name == "time since last care" {
			t.Error("factor below the weight cut included")
		}
	}
}

func TestLowModelConfidenceMarksBundle(t *testing.T) {
	r := Build(baseContext(), RuleResult{}, MLPrediction{Confidence: 0.3})
	if !r.LowConfidence {
		t.Error("model confidence 0.3 should mark the bundle low confidence")
	}
	if !strings.Contains(r.Confidence, "low certainty") {
		t.Errorf("confidence section should state low certainty: %q", r.Confidence)
	}
}
