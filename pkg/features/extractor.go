// Package features turns raw plant, care-log, species and user records into
// the fixed-width feature vectors consumed by the model store.
package features

import (
	"context"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	pkg "github.com/plantwise/plantwise/pkg"
	"github.com/plantwise/plantwise/pkg/logx"
)

// Extraction defaults used when the underlying records are too sparse to
// compute a real score.
const (
	DefaultFrequencyScore   = 0.5
	DefaultConsistencyScore = 0.5
	DefaultPatternDeviation = 0.3
	DefaultSuccessRate      = 0.7
	DefaultStaleDays        = 30
	DefaultAgeMonths        = 6
)

// Healthy watering cadence for a generic plant profile, in days
const (
	healthyGapMinDays = 5.0
	healthyGapMaxDays = 10.0
	// Gap beyond which the frequency score bottoms out
	neglectGapDays = 30.0
)

// recentWindowDays is the window used for the activity-trend ratio
const recentWindowDays = 14

// Extractor computes PlantHealthFeatures from repository records
type Extractor struct {
	plants pkg.PlantRepository
	users  pkg.UserRepository
	logger *logx.Logger
	now    func() time.Time
}

// NewExtractor creates a feature extractor over the given repositories
func NewExtractor(plants pkg.PlantRepository, users pkg.UserRepository, logger *logx.Logger) *Extractor {
	return &Extractor{
		plants: plants,
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// Extract builds the feature vector for a plant. Returns
// pkg.ErrDataUnavailable when the plant or its owner cannot be located.
// Every sub-score is a deterministic pure function of its inputs.
func (e *Extractor) Extract(ctx context.Context, plantID string) (*pkg.PlantHealthFeatures, error) {
	plant, err := e.plants.GetPlant(ctx, plantID)
	if err != nil {
		return nil, err
	}
	if plant == nil {
		return nil, pkg.ErrDataUnavailable
	}

	user, err := e.users.GetUser(ctx, plant.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, pkg.ErrDataUnavailable
	}

	// Species lookup is allowed to fail; difficulty falls back to neutral.
	species, err := e.plants.GetSpecies(ctx, plant.SpeciesID)
	if err != nil {
		e.logger.Warn("species lookup failed, using neutral difficulty",
			"plant_id", plantID, "species_id", plant.SpeciesID, "error", err)
		species = nil
	}

	logs, err := e.plants.GetCareLogs(ctx, plantID, nil)
	if err != nil {
		return nil, err
	}

	now := e.now()
	consistency := ConsistencyScore(logs)

	f := &pkg.PlantHealthFeatures{
		CareFrequencyScore:       CareFrequencyScore(logs),
		ConsistencyScore:         consistency,
		EnvironmentalStressScore: EnvironmentalStressScore(now.Month(), consistency),
		SpeciesDifficultyScore:   SpeciesDifficultyScore(species),
		UserExperienceScore:      UserExperienceScore(user.ExperienceLevel, len(logs)),
		SeasonalFactor:           SeasonalFactor(now.Month()),
		DaysSinceLastCare:        DaysSinceLastCare(logs, now),
		CareTypeDiversity:        CareTypeDiversity(logs),
		PlantAgeMonths:           PlantAgeMonths(plant.AcquiredAt, now),
		RecentActivityTrend:      RecentActivityTrend(logs, now),
		CarePatternDeviation:     CarePatternDeviation(logs),
	}

	f.HistoricalSuccessRate = e.historicalSuccessRate(ctx, plant, now)

	return f, nil
}

// historicalSuccessRate is the fraction of the user's other active plants
// with at least one care log in the last 30 days.
func (e *Extractor) historicalSuccessRate(ctx context.Context, plant *pkg.Plant, now time.Time) float64 {
	others, err := e.plants.GetPlantsByUser(ctx, plant.UserID)
	if err != nil {
		e.logger.Warn("plant list lookup failed, using default success rate",
			"user_id", plant.UserID, "error", err)
		return DefaultSuccessRate
	}

	since := now.AddDate(0, 0, -30)
	total := 0
	cared := 0
	for i := range others {
		if others[i].ID == plant.ID || !others[i].Active {
			continue
		}
		total++
		logs, err := e.plants.GetCareLogs(ctx, others[i].ID, &since)
		if err != nil {
			continue
		}
		if len(logs) > 0 {
			cared++
		}
	}

	if total == 0 {
		return DefaultSuccessRate
	}
	return float64(cared) / float64(total)
}

// wateringGaps returns the day-length gaps between consecutive watering logs
func wateringGaps(logs []pkg.CareLog) []float64 {
	times := make([]time.Time, 0, len(logs))
	for _, l := range logs {
		if l.CareType == pkg.CareWatering {
			times = append(times, l.PerformedAt)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	if len(times) < 2 {
		return nil
	}
	gaps := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		gaps = append(gaps, times[i].Sub(times[i-1]).Hours()/24.0)
	}
	return gaps
}

// CareFrequencyScore maps the mean gap between watering events to a score
// that peaks inside the healthy cadence window and degrades linearly
// outside it. Neutral 0.5 when fewer than two watering logs exist.
func CareFrequencyScore(logs []pkg.CareLog) float64 {
	gaps := wateringGaps(logs)
	if len(gaps) == 0 {
		return DefaultFrequencyScore
	}

	mean := stat.Mean(gaps, nil)
	switch {
	case mean < healthyGapMinDays:
		// Overwatering degrades toward zero at a zero-day cadence
		return clamp01(mean / healthyGapMinDays)
	case mean <= healthyGapMaxDays:
		return 1.0
	default:
		return clamp01(1.0 - (mean-healthyGapMaxDays)/(neglectGapDays-healthyGapMaxDays))
	}
}

// ConsistencyScore averages max(0, 1-cv) of inter-event gaps across every
// care type with at least three logged events. Neutral 0.5 when no care
// type has enough data.
func ConsistencyScore(logs []pkg.CareLog) float64 {
	byType := make(map[string][]time.Time)
	for _, l := range logs {
		byType[l.CareType] = append(byType[l.CareType], l.PerformedAt)
	}

	scores := make([]float64, 0, len(byType))
	for _, times := range byType {
		if len(times) < 3 {
			continue
		}
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
		gaps := make([]float64, 0, len(times)-1)
		for i := 1; i < len(times); i++ {
			gaps = append(gaps, times[i].Sub(times[i-1]).Hours()/24.0)
		}
		cv := coefficientOfVariation(gaps)
		scores = append(scores, math.Max(0, 1.0-cv))
	}

	if len(scores) == 0 {
		return DefaultConsistencyScore
	}
	return stat.Mean(scores, nil)
}

// seasonBaselineStress is the season-based baseline: winter and summer are
// harder on houseplants than spring and fall.
func seasonBaselineStress(month time.Month) float64 {
	switch month {
	case time.December, time.January, time.February:
		return 0.6
	case time.June, time.July, time.August:
		return 0.5
	case time.March, time.April, time.May:
		return 0.3
	default: // September, October, November
		return 0.35
	}
}

// EnvironmentalStressScore averages the season baseline with the inverse of
// the care consistency score.
func EnvironmentalStressScore(month time.Month, consistency float64) float64 {
	return clamp01((seasonBaselineStress(month) + (1.0 - consistency)) / 2.0)
}

// SpeciesDifficultyScore maps the species' declared care level to a
// difficulty score. Unknown species get a neutral 0.5.
func SpeciesDifficultyScore(species *pkg.Species) float64 {
	if species == nil {
		return 0.5
	}
	switch species.CareLevel {
	case "easy":
		return 0.2
	case "medium":
		return 0.5
	case "hard":
		return 0.8
	case "expert":
		return 0.9
	default:
		return 0.5
	}
}

// UserExperienceScore maps the user's self-reported tier to a base score
// plus a bonus of up to +0.2 scaled by total logged care events.
func UserExperienceScore(level string, totalLogs int) float64 {
	var base float64
	switch level {
	case "beginner":
		base = 0.3
	case "intermediate":
		base = 0.5
	case "advanced":
		base = 0.7
	case "expert":
		base = 0.9
	default:
		base = 0.3
	}

	bonus := math.Min(0.2, float64(totalLogs)*0.002)
	return clamp01(base + bonus)
}

// SeasonalFactor is a fixed month-to-growth-activity coefficient: spring
// and early summer high, winter low.
func SeasonalFactor(month time.Month) float64 {
	switch month {
	case time.March:
		return 0.8
	case time.April:
		return 0.9
	case time.May:
		return 1.0
	case time.June:
		return 0.95
	case time.July:
		return 0.85
	case time.August:
		return 0.8
	case time.September:
		return 0.7
	case time.October:
		return 0.55
	case time.November:
		return 0.45
	case time.December, time.January:
		return 0.35
	default: // February
		return 0.5
	}
}

// DaysSinceLastCare counts whole days since the most recent care log of any
// type. Plants with no logs at all are treated as stale at 30 days.
func DaysSinceLastCare(logs []pkg.CareLog, now time.Time) int {
	if len(logs) == 0 {
		return DefaultStaleDays
	}
	latest := logs[0].PerformedAt
	for _, l := range logs[1:] {
		if l.PerformedAt.After(latest) {
			latest = l.PerformedAt
		}
	}
	days := int(now.Sub(latest).Hours() / 24.0)
	if days < 0 {
		return 0
	}
	return days
}

// CareTypeDiversity is the distinct care-type count over the canonical set
// of four, capped at 1.0.
func CareTypeDiversity(logs []pkg.CareLog) float64 {
	seen := make(map[string]bool)
	for _, l := range logs {
		seen[l.CareType] = true
	}
	return math.Min(1.0, float64(len(seen))/float64(len(pkg.CanonicalCareTypes)))
}

// PlantAgeMonths is the months since acquisition with a floor of one.
// Plants without a known acquisition date default to six months.
func PlantAgeMonths(acquiredAt *time.Time, now time.Time) int {
	if acquiredAt == nil {
		return DefaultAgeMonths
	}
	months := int(now.Sub(*acquiredAt).Hours() / 24.0 / 30.0)
	if months < 1 {
		return 1
	}
	return months
}

// RecentActivityTrend is the ratio of log counts in the last 14 days to the
// 14 days before that, capped at 2.0. Activity with no prior baseline reads
// as a steady 1.0; no activity in either window reads as 0.
func RecentActivityTrend(logs []pkg.CareLog, now time.Time) float64 {
	recentStart := now.AddDate(0, 0, -recentWindowDays)
	priorStart := now.AddDate(0, 0, -2*recentWindowDays)

	recent := 0
	prior := 0
	for _, l := range logs {
		switch {
		case l.PerformedAt.After(recentStart):
			recent++
		case l.PerformedAt.After(priorStart):
			prior++
		}
	}

	if prior == 0 {
		if recent > 0 {
			return 1.0
		}
		return 0.0
	}
	return math.Min(2.0, float64(recent)/float64(prior))
}

// CarePatternDeviation is the coefficient of variation of watering
// intervals, capped at 1.0. Defaults to 0.3 with fewer than three watering
// logs.
func CarePatternDeviation(logs []pkg.CareLog) float64 {
	gaps := wateringGaps(logs)
	if len(gaps) < 2 {
		return DefaultPatternDeviation
	}
	return math.Min(1.0, coefficientOfVariation(gaps))
}

// coefficientOfVariation is stdev/mean, zero-guarded
func coefficientOfVariation(xs []float64) float64 {
	mean := stat.Mean(xs, nil)
	if mean == 0 {
		return 0
	}
	return stat.StdDev(xs, nil) / mean
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
