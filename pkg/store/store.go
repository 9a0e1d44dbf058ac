// Package store implements the persistence layer on SQLite: plant, user
// and care-log repositories, the interaction log, and the prediction
// history.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	pkg "github.com/plantwise/plantwise/pkg"
	"github.com/plantwise/plantwise/pkg/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS species (
	id TEXT PRIMARY KEY,
	common_name TEXT NOT NULL,
	scientific_name TEXT NOT NULL DEFAULT '',
	care_level TEXT NOT NULL DEFAULT 'medium',
	watering_days REAL NOT NULL DEFAULT 7,
	optimal_temp_c REAL NOT NULL DEFAULT 21,
	optimal_humidity_pct REAL NOT NULL DEFAULT 50,
	light_requirement TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	experience_level TEXT NOT NULL DEFAULT 'beginner',
	location TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS plants (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	species_id TEXT NOT NULL REFERENCES species(id),
	name TEXT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	acquired_at TIMESTAMP,
	active INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_plants_user ON plants(user_id);

CREATE TABLE IF NOT EXISTS care_logs (
	id TEXT PRIMARY KEY,
	plant_id TEXT NOT NULL REFERENCES plants(id),
	care_type TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	performed_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_care_logs_plant ON care_logs(plant_id, performed_at);

CREATE TABLE IF NOT EXISTS interactions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	plant_id TEXT NOT NULL,
	interaction_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	feedback TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interactions_type ON interactions(interaction_type, created_at);

CREATE TABLE IF NOT EXISTS prediction_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	plant_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	payload TEXT NOT NULL,
	model_version TEXT NOT NULL,
	confidence REAL NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_prediction_history_plant ON prediction_history(plant_id, created_at);
`

var (
	_ pkg.PlantRepository  = (*DB)(nil)
	_ pkg.UserRepository   = (*DB)(nil)
	_ pkg.InteractionStore = (*DB)(nil)
)

// DB wraps the SQLite connection and implements the repository interfaces
type DB struct {
	db     *sqlx.DB
	logger *logx.Logger
	now    func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral database.
func Open(path string, logger *logx.Logger) (*DB, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	logger.Info("database opened", "path", path)
	return &DB{db: db, logger: logger, now: time.Now}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

type plantRow struct {
	ID         string     `db:"id"`
	UserID     string     `db:"user_id"`
	SpeciesID  string     `db:"species_id"`
	Name       string     `db:"name"`
	Location   string     `db:"location"`
	AcquiredAt *time.Time `db:"acquired_at"`
	Active     bool       `db:"active"`
	CreatedAt  time.Time  `db:"created_at"`
}

func (r *plantRow) toPlant() pkg.Plant {
	return pkg.Plant{
		ID:         r.ID,
		UserID:     r.UserID,
		SpeciesID:  r.SpeciesID,
		Name:       r.Name,
		Location:   r.Location,
		AcquiredAt: r.AcquiredAt,
		Active:     r.Active,
		CreatedAt:  r.CreatedAt,
	}
}

// GetPlant returns the plant with the given id, or nil when absent
func (d *DB) GetPlant(ctx context.Context, id string) (*pkg.Plant, error) {
	var row plantRow
	err := d.db.GetContext(ctx, &row, `SELECT * FROM plants WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plant %s: %w", id, err)
	}
	plant := row.toPlant()
	return &plant, nil
}

// GetPlantsByUser returns all plants owned by a user
func (d *DB) GetPlantsByUser(ctx context.Context, userID string) ([]pkg.Plant, error) {
	var rows []plantRow
	err := d.db.SelectContext(ctx, &rows,
		`SELECT * FROM plants WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("get plants for user %s: %w", userID, err)
	}
	plants := make([]pkg.Plant, 0, len(rows))
	for i := range rows {
		plants = append(plants, rows[i].toPlant())
	}
	return plants, nil
}

type careLogRow struct {
	ID          string    `db:"id"`
	PlantID     string    `db:"plant_id"`
	CareType    string    `db:"care_type"`
	Notes       string    `db:"notes"`
	PerformedAt time.Time `db:"performed_at"`
}

// GetCareLogs returns care logs for a plant, oldest first, optionally
// bounded to entries at or after since
func (d *DB) GetCareLogs(ctx context.Context, plantID string, since *time.Time) ([]pkg.CareLog, error) {
	query := `SELECT * FROM care_logs WHERE plant_id = ?`
	args := []interface{}{plantID}
	if since != nil {
		query += ` AND performed_at >= ?`
		args = append(args, *since)
	}
	query += ` ORDER BY performed_at`

	var rows []careLogRow
	if err := d.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("get care logs for plant %s: %w", plantID, err)
	}
	logs := make([]pkg.CareLog, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, pkg.CareLog{
			ID:          r.ID,
			PlantID:     r.PlantID,
			CareType:    r.CareType,
			Notes:       r.Notes,
			PerformedAt: r.PerformedAt,
		})
	}
	return logs, nil
}

type speciesRow struct {
	ID               string  `db:"id"`
	CommonName       string  `db:"common_name"`
	ScientificName   string  `db:"scientific_name"`
	CareLevel        string  `db:"care_level"`
	WateringDays     float64 `db:"watering_days"`
	OptimalTempC     float64 `db:"optimal_temp_c"`
	OptimalHumidity  float64 `db:"optimal_humidity_pct"`
	LightRequirement string  `db:"light_requirement"`
}

// GetSpecies returns the species with the given id, or nil when absent
func (d *DB) GetSpecies(ctx context.Context, id string) (*pkg.Species, error) {
	var row speciesRow
	err := d.db.GetContext(ctx, &row, `SELECT * FROM species WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get species %s: %w", id, err)
	}
	return &pkg.Species{
		ID:               row.ID,
		CommonName:       row.CommonName,
		ScientificName:   row.ScientificName,
		CareLevel:        row.CareLevel,
		WateringDays:     row.WateringDays,
		OptimalTempC:     row.OptimalTempC,
		OptimalHumidity:  row.OptimalHumidity,
		LightRequirement: row.LightRequirement,
	}, nil
}

type userRow struct {
	ID              string    `db:"id"`
	ExperienceLevel string    `db:"experience_level"`
	Location        string    `db:"location"`
	CreatedAt       time.Time `db:"created_at"`
}

// GetUser returns the user with the given id, or nil when absent
func (d *DB) GetUser(ctx context.Context, id string) (*pkg.User, error) {
	var row userRow
	err := d.db.GetContext(ctx, &row, `SELECT * FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &pkg.User{
		ID:              row.ID,
		ExperienceLevel: row.ExperienceLevel,
		Location:        row.Location,
		CreatedAt:       row.CreatedAt,
	}, nil
}
