package learning

import (
	"context"
	"math/rand"
	"testing"
	"time"

	pkg "github.com/plantwise/plantwise/pkg"
	"github.com/plantwise/plantwise/pkg/logx"
	"github.com/plantwise/plantwise/pkg/models"
)

type fakeInteractionStore struct {
	interactions []pkg.Interaction
	lastTypes    []string
	lastSince    time.Time
}

func (f *fakeInteractionStore) LogInteraction(_ context.Context, in *pkg.Interaction) error {
	f.interactions = append(f.interactions, *in)
	return nil
}

func (f *fakeInteractionStore) QueryInteractions(_ context.Context, types []string, since time.Time, withFeedback bool) ([]pkg.Interaction, error) {
	f.lastTypes = types
	f.lastSince = since
	var out []pkg.Interaction
	for _, in := range f.interactions {
		if withFeedback && in.Feedback == nil {
			continue
		}
		if in.CreatedAt.Before(since) {
			continue
		}
		out = append(out, in)
	}
	return out, nil
}

func ratedHealthInteraction(rng *rand.Rand, rating int, createdAt time.Time) pkg.Interaction {
	f := pkg.PlantHealthFeatures{
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
	return pkg.Interaction{
		PlantID: "p1",
		UserID:  "u1",
		Type:    pkg.InteractionHealthPrediction,
		Health: &pkg.HealthPredictionPayload{
			Features:    f,
			HealthScore: 0.5 + 0.4*rng.Float64(),
			RiskLevel:   pkg.RiskMedium,
			Confidence:  0.7,
		},
		Feedback:  &pkg.Feedback{Rating: rating, SubmittedAt: createdAt},
		CreatedAt: createdAt,
	}
}

func seedStore(store *fakeInteractionStore, count int) {
	rng := rand.New(rand.NewSource(7))
	now := time.Now()
	for i := 0; i < count; i++ {
		rating := 2 + rng.Intn(3) // 2..4, no duplication weighting
		store.interactions = append(store.interactions,
			ratedHealthInteraction(rng, rating, now.AddDate(0, 0, -rng.Intn(30))))
	}
}

func newLoop(t *testing.T, interactions pkg.InteractionStore) (*Loop, *models.Store) {
	t.Helper()
	logger := logx.New("error")
	store, err := models.New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("models.New: %v", err)
	}
	return NewLoop(interactions, store, logger), store
}

func TestTrainFromFeedbackInsufficientData(t *testing.T) {
	interactions := &fakeInteractionStore{}
	seedStore(interactions, 30)
	loop, store := newLoop(t, interactions)
	before := store.Version()

	result, err := loop.TrainFromFeedback(context.Background(), 90)
	if err != nil {
		t.Fatalf("TrainFromFeedback: %v", err)
	}
	if result.Status != pkg.TrainStatusInsufficientData {
		t.Errorf("status = %q", result.Status)
	}
	if result.Samples != 30 {
		t.Errorf("samples = %d, want 30", result.Samples)
	}
	if store.Version() != before {
		t.Error("insufficient data must not touch the active model")
	}
	if store.Source() != models.SourceSynthetic {
		t.Errorf("source changed to %q", store.Source())
	}
}

func TestTrainFromFeedbackRetrains(t *testing.T) {
	interactions := &fakeInteractionStore{}
	seedStore(interactions, 150)
	loop, store := newLoop(t, interactions)
	before := store.Version()

	result, err := loop.TrainFromFeedback(context.Background(), 90)
	if err != nil {
		t.Fatalf("TrainFromFeedback: %v", err)
	}
	if result.Status != pkg.TrainStatusSuccess {
		t.Fatalf("status = %q", result.Status)
	}
	if result.Samples < 150 {
		t.Errorf("samples = %d, want >= 150", result.Samples)
	}
	if store.Version() == before {
		t.Error("successful retrain should publish a new version")
	}
	if store.Source() != models.SourceFeedback {
		t.Errorf("source = %q, want feedback", store.Source())
	}
	if len(result.Metrics) == 0 {
		t.Error("expected performance metrics")
	}
}

func TestTrainFromFeedbackQueryWindow(t *testing.T) {
	interactions := &fakeInteractionStore{}
	loop, _ := newLoop(t, interactions)

	if _, err := loop.TrainFromFeedback(context.Background(), 30); err != nil {
		t.Fatalf("TrainFromFeedback: %v", err)
	}
	if len(interactions.lastTypes) != 2 {
		t.Errorf("queried types = %v", interactions.lastTypes)
	}
	wantSince := time.Now().AddDate(0, 0, -30)
	if diff := interactions.lastSince.Sub(wantSince); diff < -time.Minute || diff > time.Minute {
		t.Errorf("since = %v, want about %v", interactions.lastSince, wantSince)
	}
}

func TestBuildSamplesWeighting(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	now := time.Now()
	ins := []pkg.Interaction{
		ratedHealthInteraction(rng, 3, now),
		ratedHealthInteraction(rng, 5, now),
		ratedHealthInteraction(rng, 1, now),
	}
	rated := buildSamples(ins)
	if len(rated) != 3 {
		t.Fatalf("got %d rated samples, want 3", len(rated))
	}
	// rating 3 contributes once, ratings 1 and 5 twice each
	if samples := expandSamples(rated); len(samples) != 5 {
		t.Errorf("got %d expanded samples, want 5", len(samples))
	}
}

func TestStrongRatingsDoNotInflateGuard(t *testing.T) {
	interactions := &fakeInteractionStore{}
	rng := rand.New(rand.NewSource(11))
	now := time.Now()
	// 60 interactions, all rated 5: duplication would double them past the
	// 100-sample threshold, but fewer than 100 qualifying interactions must
	// still report insufficient_data.
	for i := 0; i < 60; i++ {
		interactions.interactions = append(interactions.interactions,
			ratedHealthInteraction(rng, 5, now.AddDate(0, 0, -rng.Intn(30))))
	}
	loop, store := newLoop(t, interactions)
	before := store.Version()

	result, err := loop.TrainFromFeedback(context.Background(), 90)
	if err != nil {
		t.Fatalf("TrainFromFeedback: %v", err)
	}
	if result.Status != pkg.TrainStatusInsufficientData {
		t.Errorf("status = %q, want insufficient_data", result.Status)
	}
	if result.Samples != 60 {
		t.Errorf("samples = %d, want 60", result.Samples)
	}
	if store.Version() != before {
		t.Error("guarded retrain must not touch the active model")
	}
}

func TestBuildSamplesSkipsIncomplete(t *testing.T) {
	now := time.Now()
	ins := []pkg.Interaction{
		{Type: pkg.InteractionHealthPrediction, CreatedAt: now}, // no feedback
		{Type: pkg.InteractionHealthPrediction, Feedback: &pkg.Feedback{Rating: 4}, CreatedAt: now}, // no payload
		{Type: "unrelated", Feedback: &pkg.Feedback{Rating: 4}, CreatedAt: now},
	}
	if samples := buildSamples(ins); len(samples) != 0 {
		t.Errorf("incomplete interactions produced %d samples", len(samples))
	}
}

func TestRatingQuality(t *testing.T) {
	cases := map[int]float64{0: 0, 1: 0, 3: 0.5, 5: 1, 7: 1}
	for rating, want := range cases {
		if got := ratingQuality(rating); got != want {
			t.Errorf("ratingQuality(%d) = %v, want %v", rating, got, want)
		}
	}
}
