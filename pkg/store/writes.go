package store

import (
	"context"
	"fmt"

	pkg "github.com/plantwise/plantwise/pkg"
)

// UpsertSpecies inserts or replaces a species record
func (d *DB) UpsertSpecies(ctx context.Context, s *pkg.Species) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO species
		 (id, common_name, scientific_name, care_level, watering_days, optimal_temp_c, optimal_humidity_pct, light_requirement)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.CommonName, s.ScientificName, s.CareLevel,
		s.WateringDays, s.OptimalTempC, s.OptimalHumidity, s.LightRequirement)
	if err != nil {
		return fmt.Errorf("upsert species %s: %w", s.ID, err)
	}
	return nil
}

// UpsertUser inserts or replaces a user record
func (d *DB) UpsertUser(ctx context.Context, u *pkg.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = d.now()
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO users (id, experience_level, location, created_at)
		 VALUES (?, ?, ?, ?)`,
		u.ID, u.ExperienceLevel, u.Location, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}

// UpsertPlant inserts or replaces a plant record
func (d *DB) UpsertPlant(ctx context.Context, p *pkg.Plant) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = d.now()
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO plants
		 (id, user_id, species_id, name, location, acquired_at, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.SpeciesID, p.Name, p.Location, p.AcquiredAt, p.Active, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert plant %s: %w", p.ID, err)
	}
	return nil
}

// AddCareLog appends a care-log entry. A missing ID is assigned from the
// event timestamp.
func (d *DB) AddCareLog(ctx context.Context, l *pkg.CareLog) error {
	if l.PerformedAt.IsZero() {
		l.PerformedAt = d.now()
	}
	if l.ID == "" {
		l.ID = fmt.Sprintf("cl-%d", l.PerformedAt.UnixNano())
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO care_logs (id, plant_id, care_type, notes, performed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.PlantID, l.CareType, l.Notes, l.PerformedAt)
	if err != nil {
		return fmt.Errorf("insert care log for plant %s: %w", l.PlantID, err)
	}
	return nil
}
