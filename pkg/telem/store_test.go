package telem

import (
	"testing"
	"time"
)

func TestAddAndGetRecords(t *testing.T) {
	store := NewStore(Config{})

	for i := 0; i < 5; i++ {
		store.AddRecord(Record{
			Timestamp:    time.Now().Add(time.Duration(i) * time.Second),
			PlantID:      "p1",
			Kind:         KindHealth,
			RiskLevel:    "low",
			Confidence:   0.8,
			ModelVersion: "v1",
		})
	}

	records := store.GetRecords("p1", 0)
	if len(records) != 5 {
		t.Errorf("got %d records, want 5", len(records))
	}

	limited := store.GetRecords("p1", 2)
	if len(limited) != 2 {
		t.Errorf("got %d limited records, want 2", len(limited))
	}
	// limit returns the most recent
	if !limited[1].Timestamp.After(limited[0].Timestamp) {
		t.Error("limited records out of order")
	}

	if got := store.GetRecords("unknown", 0); got != nil {
		t.Errorf("unknown plant returned %v", got)
	}
}

func TestRecordLimitEnforced(t *testing.T) {
	store := NewStore(Config{MaxRecordsPerPlant: 10})

	for i := 0; i < 25; i++ {
		store.AddRecord(Record{
			Timestamp: time.Now().Add(time.Duration(i) * time.Second),
			PlantID:   "p1",
			Kind:      KindSeasonal,
		})
	}

	if got := len(store.GetRecords("p1", 0)); got != 10 {
		t.Errorf("got %d records, want 10", got)
	}
}

func TestGetRecentRecords(t *testing.T) {
	store := NewStore(Config{})
	now := time.Now()

	store.AddRecord(Record{Timestamp: now.Add(-2 * time.Hour), PlantID: "p1"})
	store.AddRecord(Record{Timestamp: now.Add(-10 * time.Minute), PlantID: "p1"})
	store.AddRecord(Record{Timestamp: now.Add(-1 * time.Minute), PlantID: "p1"})

	recent := store.GetRecentRecords("p1", 30*time.Minute)
	if len(recent) != 2 {
		t.Errorf("got %d recent records, want 2", len(recent))
	}
}

func TestEventLimitEnforced(t *testing.T) {
	store := NewStore(Config{MaxEvents: 5})

	for i := 0; i < 12; i++ {
		store.AddEvent(Event{
			Timestamp: time.Now(),
			Level:     "info",
			Type:      EventTypeTraining,
			Message:   "retrain",
		})
	}

	if got := len(store.GetEvents(0)); got != 5 {
		t.Errorf("got %d events, want 5", got)
	}
	if got := len(store.GetEvents(3)); got != 3 {
		t.Errorf("got %d limited events, want 3", got)
	}
}

func TestCleanupRespectsRetention(t *testing.T) {
	store := NewStore(Config{RetentionHours: 1})
	now := time.Now()

	store.AddRecord(Record{Timestamp: now.Add(-2 * time.Hour), PlantID: "p1"})
	store.AddRecord(Record{Timestamp: now, PlantID: "p1"})
	store.AddEvent(Event{Timestamp: now.Add(-3 * time.Hour), Type: EventTypeError})
	store.AddEvent(Event{Timestamp: now, Type: EventTypeTraining})

	store.Cleanup()

	if got := len(store.GetRecords("p1", 0)); got != 1 {
		t.Errorf("got %d records after cleanup, want 1", got)
	}
	if got := len(store.GetEvents(0)); got != 1 {
		t.Errorf("got %d events after cleanup, want 1", got)
	}
}

func TestGetStats(t *testing.T) {
	store := NewStore(Config{})
	store.AddRecord(Record{Timestamp: time.Now(), PlantID: "p1", Fallback: true})
	store.AddRecord(Record{Timestamp: time.Now(), PlantID: "p2"})

	stats := store.GetStats()
	if stats["total_records"].(int) != 2 {
		t.Errorf("total_records = %v", stats["total_records"])
	}
	if stats["fallback_records"].(int) != 1 {
		t.Errorf("fallback_records = %v", stats["fallback_records"])
	}

	plants := store.GetPlants()
	if len(plants) != 2 {
		t.Errorf("got %d plants, want 2", len(plants))
	}
}

func TestDownsampleKeepRecent(t *testing.T) {
	in := make([]int, 100)
	for i := range in {
		in[i] = i
	}
	out := downsampleKeepRecent(in, 2, 20)
	// older 80 halved to 40, newest 20 intact
	if len(out) != 60 {
		t.Errorf("got %d items, want 60", len(out))
	}
	if out[len(out)-1] != 99 {
		t.Errorf("most recent item lost: last = %d", out[len(out)-1])
	}
}

func TestSetMaxRAMMBValidates(t *testing.T) {
	store := NewStore(Config{})
	if err := store.SetMaxRAMMB(2); err == nil {
		t.Error("expected error below minimum")
	}
	if err := store.SetMaxRAMMB(16); err != nil {
		t.Errorf("SetMaxRAMMB(16): %v", err)
	}
}
