// Package service is the outward-facing facade of the prediction core.
// It wires the predictors to the prediction history, telemetry store,
// metrics and the MQTT publisher, so callers get one entry point per
// exposed operation.
package service

import (
	"context"
	"time"

	pkg "github.com/plantwise/plantwise/pkg"
	"github.com/plantwise/plantwise/pkg/features"
	"github.com/plantwise/plantwise/pkg/health"
	"github.com/plantwise/plantwise/pkg/learning"
	"github.com/plantwise/plantwise/pkg/logx"
	"github.com/plantwise/plantwise/pkg/metrics"
	"github.com/plantwise/plantwise/pkg/models"
	"github.com/plantwise/plantwise/pkg/mqtt"
	"github.com/plantwise/plantwise/pkg/rationale"
	"github.com/plantwise/plantwise/pkg/seasonal"
	"github.com/plantwise/plantwise/pkg/store"
	"github.com/plantwise/plantwise/pkg/telem"
)

// Service bundles the prediction operations with their side channels
type Service struct {
	healthPredictor   *health.Predictor
	seasonalPredictor *seasonal.Predictor
	loop              *learning.Loop
	features          *features.Extractor
	models            *models.Store
	plants            pkg.PlantRepository
	db                *store.DB
	telemetry         *telem.Store
	metrics           *metrics.Server
	publisher         *mqtt.Client
	logger            *logx.Logger
}

// Deps lists the collaborators a Service needs. db, telemetry, metrics
// and publisher are optional; a nil value disables that side channel.
type Deps struct {
	Health    *health.Predictor
	Seasonal  *seasonal.Predictor
	Loop      *learning.Loop
	Features  *features.Extractor
	Models    *models.Store
	Plants    pkg.PlantRepository
	DB        *store.DB
	Telemetry *telem.Store
	Metrics   *metrics.Server
	Publisher *mqtt.Client
	Logger    *logx.Logger
}

// New creates the service facade
func New(deps Deps) *Service {
	return &Service{
		healthPredictor:   deps.Health,
		seasonalPredictor: deps.Seasonal,
		loop:              deps.Loop,
		features:          deps.Features,
		models:            deps.Models,
		plants:            deps.Plants,
		db:                deps.DB,
		telemetry:         deps.Telemetry,
		metrics:           deps.Metrics,
		publisher:         deps.Publisher,
		logger:            deps.Logger,
	}
}

// PredictPlantHealth runs a health prediction and records it on every
// side channel
func (s *Service) PredictPlantHealth(ctx context.Context, plantID string) (*pkg.HealthPrediction, error) {
	prediction, err := s.healthPredictor.PredictPlantHealth(ctx, plantID)
	if err != nil {
		return nil, err
	}

	s.record(telem.Record{
		Timestamp:    prediction.GeneratedAt,
		PlantID:      plantID,
		Kind:         telem.KindHealth,
		RiskLevel:    prediction.RiskLevel,
		Confidence:   prediction.Confidence,
		ModelVersion: s.models.Version(),
		Fallback:     prediction.Fallback,
	})
	if s.metrics != nil {
		s.metrics.RecordPrediction(telem.KindHealth, prediction.Confidence, prediction.Fallback)
	}
	s.persist(ctx, plantID, telem.KindHealth, prediction, prediction.Confidence)
	if s.publisher != nil {
		if err := s.publisher.PublishHealthPrediction(prediction); err != nil {
			s.logger.Warn("health prediction publish failed", "plant_id", plantID, "error", err)
		}
	}

	return prediction, nil
}

// OptimizeCareSchedule derives a care optimization from an existing health
// prediction
func (s *Service) OptimizeCareSchedule(ctx context.Context, plantID string, prediction *pkg.HealthPrediction) (*pkg.CareOptimization, error) {
	opt, err := s.healthPredictor.OptimizeCareSchedule(ctx, plantID, prediction)
	if err != nil {
		return nil, err
	}

	s.record(telem.Record{
		Timestamp:    opt.GeneratedAt,
		PlantID:      plantID,
		Kind:         telem.KindOptimization,
		Confidence:   opt.PredictedSuccessRate,
		ModelVersion: s.models.Version(),
	})
	if s.metrics != nil {
		s.metrics.RecordPrediction(telem.KindOptimization, opt.PredictedSuccessRate, false)
	}
	s.persist(ctx, plantID, telem.KindOptimization, opt, opt.PredictedSuccessRate)

	return opt, nil
}

// PredictSeasonalBehavior runs a seasonal prediction over the horizon in
// days
func (s *Service) PredictSeasonalBehavior(ctx context.Context, plantID string, days int) (*pkg.SeasonalPredictionResult, error) {
	result, err := s.seasonalPredictor.Predict(ctx, plantID, days)
	if err != nil {
		return nil, err
	}

	s.record(telem.Record{
		Timestamp:    result.GeneratedAt,
		PlantID:      plantID,
		Kind:         telem.KindSeasonal,
		Confidence:   result.ConfidenceScore,
		ModelVersion: result.ModelVersion,
	})
	if s.metrics != nil {
		s.metrics.RecordPrediction(telem.KindSeasonal, result.ConfidenceScore, false)
	}
	s.persist(ctx, plantID, telem.KindSeasonal, result, result.ConfidenceScore)
	if s.publisher != nil {
		if err := s.publisher.PublishSeasonalPrediction(result); err != nil {
			s.logger.Warn("seasonal prediction publish failed", "plant_id", plantID, "error", err)
		}
	}

	return result, nil
}

// BuildRationale explains a health prediction for one plant in natural
// language
func (s *Service) BuildRationale(ctx context.Context, plantID string, prediction *pkg.HealthPrediction) (*rationale.Rationale, error) {
	plant, err := s.plants.GetPlant(ctx, plantID)
	if err != nil {
		return nil, err
	}
	if plant == nil {
		return nil, pkg.ErrDataUnavailable
	}
	species, err := s.plants.GetSpecies(ctx, plant.SpeciesID)
	if err != nil {
		species = nil
	}

	plantCtx := rationale.PlantContext{
		Plant:   plant,
		Species: species,
		Health:  prediction,
	}

	f, err := s.features.Extract(ctx, plantID)
	if err != nil {
		// a context the builder cannot trace degrades to the fallback bundle
		r := rationale.Build(plantCtx, rationale.RuleResult{}, rationale.MLPrediction{})
		return &r, nil
	}
	plantCtx.Features = f

	rule := rationale.RuleResult{FertilizerIntervalDays: 14}
	if species != nil {
		rule.WateringIntervalDays = species.WateringDays
		if species.LightRequirement != "" {
			rule.LightRecommendation = "keep it in " + species.LightRequirement + " light"
		}
	}

	ml := rationale.MLPrediction{ModelVersion: s.models.Version()}
	if water, fert, light, err := s.models.PredictCareAdjustments(f); err == nil {
		ml.WaterDelta, ml.FertilizerDelta, ml.LightDelta = water, fert, light
	}
	if confidence, err := s.models.PredictConfidence(f); err == nil {
		ml.Confidence = confidence
	}

	r := rationale.Build(plantCtx, rule, ml)
	return &r, nil
}

// TrainModelsFromFeedback runs one feedback retrain pass and records the
// outcome
func (s *Service) TrainModelsFromFeedback(ctx context.Context, lookbackDays int) (*models.TrainResult, error) {
	result, err := s.loop.TrainFromFeedback(ctx, lookbackDays)
	if s.metrics != nil && result != nil {
		s.metrics.RecordTrainingResult(result)
	}
	if s.telemetry != nil && result != nil {
		level := "info"
		if result.Status == pkg.TrainStatusFailed {
			level = "error"
		}
		s.telemetry.AddEvent(telem.Event{
			Timestamp: time.Now(),
			Level:     level,
			Type:      telem.EventTypeTraining,
			Message:   "feedback retrain " + result.Status,
			Data:      result,
		})
	}
	if s.publisher != nil && result != nil {
		if perr := s.publisher.PublishTrainingResult(result); perr != nil {
			s.logger.Warn("training result publish failed", "error", perr)
		}
	}
	return result, err
}

// record adds a telemetry record when the store is wired
func (s *Service) record(r telem.Record) {
	if s.telemetry == nil {
		return
	}
	s.telemetry.AddRecord(r)
	if r.Fallback {
		s.telemetry.AddEvent(telem.Event{
			Timestamp: r.Timestamp,
			Level:     "warn",
			Type:      telem.EventTypeFallback,
			PlantID:   r.PlantID,
			Message:   "prediction served from fallback",
		})
	}
}

// persist writes the prediction to the history table when the database is
// wired. Persistence failure never fails the prediction.
func (s *Service) persist(ctx context.Context, plantID, kind string, payload interface{}, confidence float64) {
	if s.db == nil {
		return
	}
	if err := s.db.SavePrediction(ctx, plantID, kind, payload, s.models.Version(), confidence); err != nil {
		s.logger.Warn("prediction history write failed", "plant_id", plantID, "kind", kind, "error", err)
	}
}
