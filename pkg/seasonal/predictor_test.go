package seasonal

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	pkg "github.com/plantwise/plantwise/pkg"
	"github.com/plantwise/plantwise/pkg/features"
	"github.com/plantwise/plantwise/pkg/logx"
	"github.com/plantwise/plantwise/pkg/models"
)

type fakePlantRepo struct {
	plants  map[string]*pkg.Plant
	species map[string]*pkg.Species
	logs    map[string][]pkg.CareLog
}

func (f *fakePlantRepo) GetPlant(_ context.Context, id string) (*pkg.Plant, error) {
	return f.plants[id], nil
}

func (f *fakePlantRepo) GetPlantsByUser(_ context.Context, userID string) ([]pkg.Plant, error) {
	var out []pkg.Plant
	for _, p := range f.plants {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePlantRepo) GetCareLogs(_ context.Context, plantID string, since *time.Time) ([]pkg.CareLog, error) {
	var out []pkg.CareLog
	for _, l := range f.logs[plantID] {
		if since != nil && l.PerformedAt.Before(*since) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakePlantRepo) GetSpecies(_ context.Context, id string) (*pkg.Species, error) {
	return f.species[id], nil
}

type fakeUserRepo struct {
	users map[string]*pkg.User
}

func (f *fakeUserRepo) GetUser(_ context.Context, id string) (*pkg.User, error) {
	return f.users[id], nil
}

type fakeEnv struct {
	forecast    *pkg.Forecast
	transitions []pkg.SeasonalTransition
	weatherErr  error
}

func (f *fakeEnv) GetWeather(_ context.Context, _ string, _ int) (*pkg.Forecast, error) {
	if f.weatherErr != nil {
		return nil, f.weatherErr
	}
	return f.forecast, nil
}

func (f *fakeEnv) GetSeasonalTransitions(_ context.Context, _ string) ([]pkg.SeasonalTransition, error) {
	if f.weatherErr != nil {
		return nil, f.weatherErr
	}
	return f.transitions, nil
}

func mildForecast(days int) *pkg.Forecast {
	f := &pkg.Forecast{Location: "test"}
	start := time.Now()
	for i := 0; i < days; i++ {
		f.Days = append(f.Days, pkg.DailyConditions{
			Date:          start.AddDate(0, 0, i),
			TempC:         21.0,
			HumidityPct:   55.0,
			DaylightHours: 13.0,
		})
	}
	return f
}

func coldForecast(days int) *pkg.Forecast {
	f := &pkg.Forecast{Location: "test"}
	start := time.Now()
	for i := 0; i < days; i++ {
		f.Days = append(f.Days, pkg.DailyConditions{
			Date:          start.AddDate(0, 0, i),
			TempC:         2.0,
			HumidityPct:   20.0,
			DaylightHours: 8.0,
		})
	}
	return f
}

func testRepos() (*fakePlantRepo, *fakeUserRepo) {
	now := time.Now()
	acquired := now.AddDate(-1, 0, 0)
	plants := &fakePlantRepo{
		plants: map[string]*pkg.Plant{
			"p1": {ID: "p1", UserID: "u1", SpeciesID: "s1", Name: "office ficus", Location: "helsinki", AcquiredAt: &acquired, Active: true, CreatedAt: acquired},
		},
		species: map[string]*pkg.Species{
			"s1": {ID: "s1", CommonName: "ficus benjamina", CareLevel: "medium", WateringDays: 7, OptimalTempC: 21, OptimalHumidity: 50},
		},
		logs: map[string][]pkg.CareLog{},
	}
	for i := 0; i < 12; i++ {
		plants.logs["p1"] = append(plants.logs["p1"], pkg.CareLog{
			ID:          "l" + string(rune('a'+i)),
			PlantID:     "p1",
			CareType:    pkg.CareWatering,
			PerformedAt: now.AddDate(0, 0, -7*i),
		})
	}
	users := &fakeUserRepo{users: map[string]*pkg.User{
		"u1": {ID: "u1", ExperienceLevel: "intermediate", CreatedAt: now.AddDate(-2, 0, 0)},
	}}
	return plants, users
}

func testPredictor(t *testing.T, plants *fakePlantRepo, users *fakeUserRepo, env pkg.EnvironmentProvider) *Predictor {
	t.Helper()
	logger := logx.New("error")
	store, err := models.New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("models.New: %v", err)
	}
	fx := features.NewExtractor(plants, users, logger)
	return NewPredictor(fx, store, plants, env, logger)
}

func TestPredictBasic(t *testing.T) {
	plants, users := testRepos()
	env := &fakeEnv{forecast: mildForecast(90)}
	p := testPredictor(t, plants, users, env)

	result, err := p.Predict(context.Background(), "p1", 90)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if result.PlantID != "p1" {
		t.Errorf("plant id = %q", result.PlantID)
	}
	if result.ModelVersion == "" {
		t.Error("model version missing")
	}
	if result.ConfidenceScore < 0 || result.ConfidenceScore > 1 {
		t.Errorf("confidence out of range: %v", result.ConfidenceScore)
	}
	if len(result.CareAdjustments) != 3 {
		t.Fatalf("expected 3 care adjustments, got %d", len(result.CareAdjustments))
	}
	if result.CareAdjustments[0].CareType != pkg.CareDimWatering {
		t.Errorf("first adjustment = %q", result.CareAdjustments[0].CareType)
	}
	if got := len(result.GrowthForecast.SizeProjections); got != 90/7 {
		t.Errorf("expected %d weekly projections, got %d", 90/7, got)
	}
	if result.EnvironmentalFactors["avg_temp_c"] != 21.0 {
		t.Errorf("avg_temp_c = %v", result.EnvironmentalFactors["avg_temp_c"])
	}
}

func TestSizeProjectionsCompound(t *testing.T) {
	plants, users := testRepos()
	env := &fakeEnv{forecast: mildForecast(90)}
	p := testPredictor(t, plants, users, env)

	result, err := p.Predict(context.Background(), "p1", 90)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	projections := result.GrowthForecast.SizeProjections
	rate := result.GrowthForecast.ExpectedGrowthRate
	for i, proj := range projections {
		want := math.Pow(1.0+rate*weeklyGrowthFraction, float64(i+1))
		if math.Abs(proj.RelativeSize-want) > 0.01 {
			t.Errorf("week %d: size %v, want ~%v", proj.Week, proj.RelativeSize, want)
		}
		if i > 0 && rate > 0 && proj.RelativeSize < projections[i-1].RelativeSize {
			t.Errorf("week %d: projection shrank", proj.Week)
		}
	}
}

func TestConfidenceClampedUnderRisk(t *testing.T) {
	plants, users := testRepos()

	mild := testPredictor(t, plants, users, &fakeEnv{forecast: mildForecast(90)})
	mildResult, err := mild.Predict(context.Background(), "p1", 90)
	if err != nil {
		t.Fatalf("mild Predict: %v", err)
	}

	cold := testPredictor(t, plants, users, &fakeEnv{forecast: coldForecast(90)})
	coldResult, err := cold.Predict(context.Background(), "p1", 90)
	if err != nil {
		t.Fatalf("cold Predict: %v", err)
	}

	if len(coldResult.RiskFactors) < 2 {
		t.Fatalf("cold forecast produced %d risk factors", len(coldResult.RiskFactors))
	}
	hasCritical := false
	for _, r := range coldResult.RiskFactors {
		if r.RiskLevel == pkg.RiskCritical {
			hasCritical = true
		}
	}
	if hasCritical && coldResult.ConfidenceScore > confCapCriticalRisk {
		t.Errorf("critical risk present but confidence %v > %v", coldResult.ConfidenceScore, confCapCriticalRisk)
	}
	if coldResult.ConfidenceScore > mildResult.ConfidenceScore {
		t.Errorf("risky scenario more confident (%v) than mild (%v)",
			coldResult.ConfidenceScore, mildResult.ConfidenceScore)
	}
}

func TestPredictProviderUnavailable(t *testing.T) {
	plants, users := testRepos()
	env := &fakeEnv{weatherErr: errors.New("provider down")}
	p := testPredictor(t, plants, users, env)

	result, err := p.Predict(context.Background(), "p1", 60)
	if err != nil {
		t.Fatalf("Predict should degrade, got error: %v", err)
	}
	if result.EnvironmentalFactors["default_assumptions"] != 1 {
		t.Error("default assumptions not flagged")
	}
	// no transitions means no transition-driven activities or dormancy
	if len(result.GrowthForecast.DormancyPeriods) != 0 {
		t.Errorf("unexpected dormancy periods without transition data")
	}
}

func TestPredictDormancyFromTransitions(t *testing.T) {
	plants, users := testRepos()
	transition := pkg.SeasonalTransition{
		Kind:       "autumn_onset",
		Date:       time.Now().AddDate(0, 0, 30),
		TempC:      12.0,
		Daylight:   9.0,
		Confidence: 0.8,
	}
	env := &fakeEnv{forecast: mildForecast(90), transitions: []pkg.SeasonalTransition{transition}}
	p := testPredictor(t, plants, users, env)

	result, err := p.Predict(context.Background(), "p1", 90)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(result.GrowthForecast.DormancyPeriods) == 0 {
		t.Fatal("expected a dormancy period from the autumn transition")
	}
	d := result.GrowthForecast.DormancyPeriods[0]
	if !d.ExpectedEnd.After(d.ExpectedStart) {
		t.Error("dormancy period has no duration")
	}
	foundDormancyRisk := false
	for _, r := range result.RiskFactors {
		if r.RiskType == pkg.RiskTypeDormancy {
			foundDormancyRisk = true
		}
	}
	if !foundDormancyRisk {
		t.Error("expected a dormancy risk factor")
	}
}

func TestPredictIgnoresPastTransitions(t *testing.T) {
	plants, users := testRepos()
	// An autumn onset from last season is outside the forecast window and
	// must not produce a dormancy period starting in the past.
	transition := pkg.SeasonalTransition{
		Kind:       "autumn_onset",
		Date:       time.Now().AddDate(0, 0, -60),
		TempC:      12.0,
		Daylight:   9.0,
		Confidence: 0.8,
	}
	env := &fakeEnv{forecast: mildForecast(90), transitions: []pkg.SeasonalTransition{transition}}
	p := testPredictor(t, plants, users, env)

	result, err := p.Predict(context.Background(), "p1", 90)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(result.GrowthForecast.DormancyPeriods) != 0 {
		t.Errorf("past transition produced dormancy periods: %+v", result.GrowthForecast.DormancyPeriods)
	}
	for _, r := range result.RiskFactors {
		if r.RiskType == pkg.RiskTypeDormancy || r.RiskType == pkg.RiskTypeSeasonalTransition {
			t.Errorf("past transition produced risk factor %q", r.RiskType)
		}
	}
}

func TestPredictUnknownPlant(t *testing.T) {
	plants, users := testRepos()
	p := testPredictor(t, plants, users, &fakeEnv{forecast: mildForecast(30)})

	if _, err := p.Predict(context.Background(), "nope", 30); !errors.Is(err, pkg.ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestProfileFallback(t *testing.T) {
	if p := profileFor(nil); p.TriggerTempC != genericProfile.TriggerTempC {
		t.Errorf("nil species should use generic profile")
	}
	known := profileFor(&pkg.Species{CommonName: "orchid phalaenopsis"})
	if !known.FloweringAfterSpring {
		t.Errorf("orchid profile should flower after spring")
	}
	unknown := profileFor(&pkg.Species{CommonName: "mystery plant"})
	if unknown.DormancyDays != genericProfile.DormancyDays {
		t.Errorf("unknown species should use generic profile")
	}
}
