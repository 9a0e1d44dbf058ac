// Package telem provides short-term prediction telemetry storage and
// event logging
package telem

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Record is one timestamped prediction outcome for a plant
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	PlantID      string    `json:"plant_id"`
	Kind         string    `json:"kind"` // seasonal|health|optimization
	RiskLevel    string    `json:"risk_level,omitempty"`
	Confidence   float64   `json:"confidence"`
	ModelVersion string    `json:"model_version"`
	Fallback     bool      `json:"fallback,omitempty"`
}

// Prediction kinds
const (
	KindSeasonal     = "seasonal"
	KindHealth       = "health"
	KindOptimization = "optimization"
)

// Event represents a system event (training runs, fallbacks, errors)
type Event struct {
	Timestamp time.Time   `json:"timestamp"`
	Level     string      `json:"level"`
	Type      string      `json:"type"`
	PlantID   string      `json:"plant_id,omitempty"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
}

// Event types
const (
	EventTypeTraining = "training"
	EventTypeFallback = "fallback"
	EventTypeError    = "error"
)

// Store manages in-memory prediction telemetry with bounded retention
type Store struct {
	mu            sync.RWMutex
	records       map[string][]Record // plant -> records
	events        []Event
	maxRecords    int
	maxEvents     int
	retentionTime time.Duration
	maxRAMMB      int
}

// Config for the telemetry store
type Config struct {
	MaxRecordsPerPlant int `yaml:"max_records_per_plant"`
	MaxEvents          int `yaml:"max_events"`
	RetentionHours     int `yaml:"retention_hours"`
	MaxRAMMB           int `yaml:"max_ram_mb"`
}

// NewStore creates a new telemetry store with the given configuration
func NewStore(config Config) *Store {
	if config.MaxRecordsPerPlant <= 0 {
		config.MaxRecordsPerPlant = 1000
	}
	if config.MaxEvents <= 0 {
		config.MaxEvents = 500
	}
	if config.RetentionHours <= 0 {
		config.RetentionHours = 24
	}
	if config.MaxRAMMB <= 0 {
		config.MaxRAMMB = 10
	}

	return &Store{
		records:       make(map[string][]Record),
		events:        make([]Event, 0, config.MaxEvents),
		maxRecords:    config.MaxRecordsPerPlant,
		maxEvents:     config.MaxEvents,
		retentionTime: time.Duration(config.RetentionHours) * time.Hour,
		maxRAMMB:      config.MaxRAMMB,
	}
}

// AddRecord stores a new prediction record for a plant
func (s *Store) AddRecord(record Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plant := record.PlantID
	if s.records[plant] == nil {
		s.records[plant] = make([]Record, 0, s.maxRecords)
	}

	s.records[plant] = append(s.records[plant], record)

	if len(s.records[plant]) > s.maxRecords {
		// Keep the most recent records
		copy(s.records[plant], s.records[plant][len(s.records[plant])-s.maxRecords:])
		s.records[plant] = s.records[plant][:s.maxRecords]
	}

	s.cleanOldRecords(plant)
	s.enforceRAMCapLocked()
}

// AddEvent stores a new system event
func (s *Store) AddEvent(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)

	if len(s.events) > s.maxEvents {
		// Keep the most recent events
		copy(s.events, s.events[len(s.events)-s.maxEvents:])
		s.events = s.events[:s.maxEvents]
	}

	s.enforceRAMCapLocked()
}

// GetRecords returns recent records for a plant
func (s *Store) GetRecords(plantID string, limit int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.records[plantID]
	if records == nil {
		return nil
	}

	if limit <= 0 || limit >= len(records) {
		result := make([]Record, len(records))
		copy(result, records)
		return result
	}

	start := len(records) - limit
	result := make([]Record, limit)
	copy(result, records[start:])
	return result
}

// GetRecentRecords returns records for a plant within a time window
func (s *Store) GetRecentRecords(plantID string, since time.Duration) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.records[plantID]
	if records == nil {
		return nil
	}

	cutoff := time.Now().Add(-since)
	var result []Record

	for _, record := range records {
		if record.Timestamp.After(cutoff) {
			result = append(result, record)
		}
	}

	return result
}

// GetEvents returns recent events
func (s *Store) GetEvents(limit int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit >= len(s.events) {
		result := make([]Event, len(s.events))
		copy(result, s.events)
		return result
	}

	start := len(s.events) - limit
	result := make([]Event, limit)
	copy(result, s.events[start:])
	return result
}

// GetPlants returns a list of all plants with stored records
func (s *Store) GetPlants() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plants := make([]string, 0, len(s.records))
	for plant := range s.records {
		plants = append(plants, plant)
	}
	return plants
}

// Cleanup removes old data based on retention policy
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for plant := range s.records {
		s.cleanOldRecords(plant)
	}

	s.cleanOldEvents()
}

// cleanOldRecords removes records older than retention time for a plant
func (s *Store) cleanOldRecords(plant string) {
	cutoff := time.Now().Add(-s.retentionTime)
	records := s.records[plant]

	keepIndex := 0
	for i, record := range records {
		if record.Timestamp.After(cutoff) {
			keepIndex = i
			break
		}
		keepIndex = i + 1
	}

	if keepIndex > 0 {
		copy(records, records[keepIndex:])
		s.records[plant] = records[:len(records)-keepIndex]
	}
}

// cleanOldEvents removes events older than retention time
func (s *Store) cleanOldEvents() {
	cutoff := time.Now().Add(-s.retentionTime)

	keepIndex := 0
	for i, event := range s.events {
		if event.Timestamp.After(cutoff) {
			keepIndex = i
			break
		}
		keepIndex = i + 1
	}

	if keepIndex > 0 {
		copy(s.events, s.events[keepIndex:])
		s.events = s.events[:len(s.events)-keepIndex]
	}
}

// GetStats returns storage statistics
func (s *Store) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plantStats := make(map[string]int)
	totalRecords := 0
	fallbacks := 0
	for plant, records := range s.records {
		plantStats[plant] = len(records)
		totalRecords += len(records)
		for _, r := range records {
			if r.Fallback {
				fallbacks++
			}
		}
	}

	estBytes := s.estimateBytesLocked()

	return map[string]interface{}{
		"total_records":    totalRecords,
		"total_events":     len(s.events),
		"fallback_records": fallbacks,
		"plant_records":    plantStats,
		"retention_hours":  s.retentionTime.Hours(),
		"max_ram_mb":       s.maxRAMMB,
		"estimated_bytes":  estBytes,
	}
}

// ExportJSON exports all data as JSON for debugging/analysis
func (s *Store) ExportJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	export := struct {
		Timestamp time.Time           `json:"timestamp"`
		Records   map[string][]Record `json:"records"`
		Events    []Event             `json:"events"`
	}{
		Timestamp: time.Now(),
		Records:   s.records,
		Events:    s.events,
	}

	return json.Marshal(export)
}

// --- RAM cap enforcement helpers ---

// estimateBytesLocked returns an approximate memory usage for telemetry
// content. It assumes a conservative size per record/event to avoid
// exceeding the cap.
func (s *Store) estimateBytesLocked() int {
	const (
		bytesPerRecord = 192 // rough estimate including struct overhead
		bytesPerEvent  = 160
	)
	totalRecords := 0
	for _, arr := range s.records {
		totalRecords += len(arr)
	}
	return totalRecords*bytesPerRecord + len(s.events)*bytesPerEvent
}

// enforceRAMCapLocked downsamples old records/events when the estimated
// memory exceeds the configured maxRAMMB cap. Must be called with s.mu
// locked.
func (s *Store) enforceRAMCapLocked() {
	if s.maxRAMMB <= 0 {
		return
	}
	capBytes := s.maxRAMMB * 1024 * 1024
	// Try up to a few rounds of downsampling to get under cap
	for i := 0; i < 5; i++ {
		if s.estimateBytesLocked() <= capBytes {
			return
		}
		// Downsample each plant's older records by factor 2
		for p, arr := range s.records {
			if len(arr) <= 200 {
				continue
			}
			s.records[p] = downsampleKeepRecent(arr, 2, 100)
		}
		// Trim older events by half if still above cap
		if len(s.events) > 200 && s.estimateBytesLocked() > capBytes {
			keep := len(s.events) / 2
			copy(s.events, s.events[len(s.events)-keep:])
			s.events = s.events[:keep]
		}
	}
}

// downsampleKeepRecent keeps the last recentKeep items intact and
// downsamples the older portion by keeping every nth item. The order is
// preserved.
func downsampleKeepRecent[T any](in []T, n int, recentKeep int) []T {
	if n <= 1 || len(in) <= recentKeep {
		return in
	}
	if recentKeep < 0 {
		recentKeep = 0
	}
	cutoff := len(in) - recentKeep
	if cutoff < 0 {
		cutoff = 0
	}
	older := in[:cutoff]
	newer := in[cutoff:]
	// keep every nth from older
	kept := make([]T, 0, len(older)/n+len(newer))
	for i := 0; i < len(older); i++ {
		if i%n == 0 {
			kept = append(kept, older[i])
		}
	}
	kept = append(kept, newer...)
	return kept
}

// SetMaxRAMMB updates the RAM cap and enforces it immediately.
func (s *Store) SetMaxRAMMB(mb int) error {
	if mb < 4 || mb > 128 {
		return fmt.Errorf("max_ram_mb must be between 4-128, got %d", mb)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxRAMMB = mb
	s.enforceRAMCapLocked()
	return nil
}
