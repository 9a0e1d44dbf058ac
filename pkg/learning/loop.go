// Package learning closes the feedback cycle: it turns rated prediction
// interactions into training data and retrains the model store.
package learning

import (
	"context"
	"math"
	"math/rand"
	"time"

	pkg "github.com/plantwise/plantwise/pkg"
	"github.com/plantwise/plantwise/pkg/logx"
	"github.com/plantwise/plantwise/pkg/models"
)

// feedbackSeed keeps the pre-training shuffle deterministic for a given
// sample count so repeated retrains over the same feedback agree
const feedbackSeed = 20240911

// Loop drives feedback-based retraining
type Loop struct {
	interactions pkg.InteractionStore
	models       *models.Store
	logger       *logx.Logger
	now          func() time.Time
}

// NewLoop creates a learning loop over the given interaction store and
// model store
func NewLoop(interactions pkg.InteractionStore, store *models.Store, logger *logx.Logger) *Loop {
	return &Loop{
		interactions: interactions,
		models:       store,
		logger:       logger,
		now:          time.Now,
	}
}

// TrainFromFeedback retrains the model store from rated interactions inside
// the lookback window. Below the minimum sample count it reports
// insufficient_data without touching the active model. A failed training
// pass also leaves the active model serving.
func (l *Loop) TrainFromFeedback(ctx context.Context, lookbackDays int) (*models.TrainResult, error) {
	if lookbackDays <= 0 {
		lookbackDays = 90
	}
	since := l.now().AddDate(0, 0, -lookbackDays)

	interactions, err := l.interactions.QueryInteractions(ctx,
		[]string{pkg.InteractionHealthPrediction, pkg.InteractionCareOptimization},
		since, true)
	if err != nil {
		return nil, err
	}

	// The minimum-sample guard counts qualifying interactions, before the
	// strong-rating duplication below; duplicates must not let a small
	// feedback window trigger a retrain.
	rated := buildSamples(interactions)
	if len(rated) < models.MinSamplesFeedback {
		l.logger.Info("not enough rated feedback for retraining",
			"samples", len(rated), "required", models.MinSamplesFeedback)
		return &models.TrainResult{
			Status:  pkg.TrainStatusInsufficientData,
			Samples: len(rated),
		}, nil
	}
	samples := expandSamples(rated)

	// Train/holdout split is positional, so shuffle here
	rng := rand.New(rand.NewSource(feedbackSeed + int64(len(samples))))
	rng.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})

	ds := &models.Dataset{Samples: samples, Source: models.SourceFeedback}
	result, err := l.models.Train(ds)
	if err != nil {
		l.logger.Error("feedback retrain failed, previous model stays active",
			"samples", len(samples), "error", err)
		return result, err
	}
	l.logger.Info("feedback retrain complete",
		"status", result.Status, "samples", result.Samples, "model_version", result.Version)
	return result, nil
}

// ratedSample is one labeled sample plus its duplication weight
type ratedSample struct {
	sample models.Sample
	strong bool
}

// buildSamples converts rated interactions into labeled training samples,
// one per qualifying interaction
func buildSamples(interactions []pkg.Interaction) []ratedSample {
	var out []ratedSample
	for i := range interactions {
		in := &interactions[i]
		if in.Feedback == nil {
			continue
		}
		sample, ok := sampleFrom(in)
		if !ok {
			continue
		}
		out = append(out, ratedSample{
			sample: sample,
			strong: in.Feedback.Rating == 1 || in.Feedback.Rating == 5,
		})
	}
	return out
}

// expandSamples duplicates strongly rated samples (1 or 5) so clear
// outcomes weigh more than lukewarm ones
func expandSamples(rated []ratedSample) []models.Sample {
	out := make([]models.Sample, 0, len(rated))
	for _, rs := range rated {
		out = append(out, rs.sample)
		if rs.strong {
			out = append(out, rs.sample)
		}
	}
	return out
}

// sampleFrom labels one interaction. The rating is treated as the observed
// outcome quality; risk and confidence labels anchor to how well the
// original prediction matched it.
func sampleFrom(in *pkg.Interaction) (models.Sample, bool) {
	quality := ratingQuality(in.Feedback.Rating)

	switch in.Type {
	case pkg.InteractionHealthPrediction:
		if in.Health == nil {
			return models.Sample{}, false
		}
		observedHealth := 0.5*in.Health.HealthScore + 0.5*quality
		observedRisk := 1.0 - observedHealth
		agreement := 1.0 - math.Abs(in.Health.HealthScore-quality)
		return models.FeedbackSample(in.Health.Features, observedRisk, agreement), true

	case pkg.InteractionCareOptimization:
		if in.Care == nil {
			return models.Sample{}, false
		}
		observedRisk := 1.0 - 0.5*(in.Care.PredictedSuccessRate+quality)
		agreement := 1.0 - math.Abs(in.Care.PredictedSuccessRate-quality)
		return models.FeedbackSample(in.Care.Features, observedRisk, agreement), true
	}
	return models.Sample{}, false
}

// ratingQuality maps a 1..5 rating onto [0,1]
func ratingQuality(rating int) float64 {
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	return float64(rating-1) / 4.0
}
