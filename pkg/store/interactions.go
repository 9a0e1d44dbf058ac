package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	pkg "github.com/plantwise/plantwise/pkg"
)

type interactionRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	PlantID   string    `db:"plant_id"`
	Type      string    `db:"interaction_type"`
	Payload   string    `db:"payload"`
	Feedback  *string   `db:"feedback"`
	CreatedAt time.Time `db:"created_at"`
}

// interactionPayload is the stored payload envelope: one variant set,
// selected by the interaction type
type interactionPayload struct {
	Health *pkg.HealthPredictionPayload `json:"health,omitempty"`
	Care   *pkg.CareOptimizationPayload `json:"care,omitempty"`
}

// LogInteraction appends a prediction interaction to the log. A missing
// ID is assigned from the creation timestamp.
func (d *DB) LogInteraction(ctx context.Context, in *pkg.Interaction) error {
	if in.CreatedAt.IsZero() {
		in.CreatedAt = d.now()
	}
	if in.ID == "" {
		in.ID = fmt.Sprintf("in-%d", in.CreatedAt.UnixNano())
	}

	payload, err := json.Marshal(interactionPayload{Health: in.Health, Care: in.Care})
	if err != nil {
		return fmt.Errorf("marshal interaction payload: %w", err)
	}

	var feedback *string
	if in.Feedback != nil {
		data, err := json.Marshal(in.Feedback)
		if err != nil {
			return fmt.Errorf("marshal feedback: %w", err)
		}
		s := string(data)
		feedback = &s
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO interactions (id, user_id, plant_id, interaction_type, payload, feedback, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.PlantID, in.Type, string(payload), feedback, in.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

// AttachFeedback stores a user rating on an existing interaction
func (d *DB) AttachFeedback(ctx context.Context, interactionID string, feedback *pkg.Feedback) error {
	if feedback.SubmittedAt.IsZero() {
		feedback.SubmittedAt = d.now()
	}
	data, err := json.Marshal(feedback)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	res, err := d.db.ExecContext(ctx,
		`UPDATE interactions SET feedback = ? WHERE id = ?`, string(data), interactionID)
	if err != nil {
		return fmt.Errorf("attach feedback: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return pkg.ErrDataUnavailable
	}
	return nil
}

// QueryInteractions returns interactions of the given types created at or
// after since, optionally restricted to those carrying user feedback
func (d *DB) QueryInteractions(ctx context.Context, types []string, since time.Time, withFeedback bool) ([]pkg.Interaction, error) {
	query := `SELECT * FROM interactions WHERE interaction_type IN (?) AND created_at >= ?`
	if withFeedback {
		query += ` AND feedback IS NOT NULL`
	}
	query += ` ORDER BY created_at`

	query, args, err := sqlx.In(query, types, since)
	if err != nil {
		return nil, fmt.Errorf("build interaction query: %w", err)
	}
	query = d.db.Rebind(query)

	var rows []interactionRow
	if err := d.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}

	out := make([]pkg.Interaction, 0, len(rows))
	for _, r := range rows {
		in := pkg.Interaction{
			ID:        r.ID,
			UserID:    r.UserID,
			PlantID:   r.PlantID,
			Type:      r.Type,
			CreatedAt: r.CreatedAt,
		}
		var payload interactionPayload
		if err := json.Unmarshal([]byte(r.Payload), &payload); err != nil {
			d.logger.Warn("skipping interaction with corrupt payload", "id", r.ID, "error", err)
			continue
		}
		in.Health = payload.Health
		in.Care = payload.Care

		if r.Feedback != nil {
			var fb pkg.Feedback
			if err := json.Unmarshal([]byte(*r.Feedback), &fb); err != nil {
				d.logger.Warn("skipping interaction with corrupt feedback", "id", r.ID, "error", err)
				continue
			}
			in.Feedback = &fb
		}
		out = append(out, in)
	}
	return out, nil
}

type predictionHistoryRow struct {
	ID           int64     `db:"id"`
	PlantID      string    `db:"plant_id"`
	Kind         string    `db:"kind"`
	Payload      string    `db:"payload"`
	ModelVersion string    `db:"model_version"`
	Confidence   float64   `db:"confidence"`
	CreatedAt    time.Time `db:"created_at"`
}

// PredictionRecord is one persisted prediction history entry
type PredictionRecord struct {
	PlantID      string          `json:"plant_id"`
	Kind         string          `json:"kind"`
	Payload      json.RawMessage `json:"payload"`
	ModelVersion string          `json:"model_version"`
	Confidence   float64         `json:"confidence"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SavePrediction persists a prediction payload for audit and learning
func (d *DB) SavePrediction(ctx context.Context, plantID, kind string, payload interface{}, modelVersion string, confidence float64) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal prediction payload: %w", err)
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO prediction_history (plant_id, kind, payload, model_version, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		plantID, kind, string(data), modelVersion, confidence, d.now())
	if err != nil {
		return fmt.Errorf("insert prediction history: %w", err)
	}
	return nil
}

// GetPredictionHistory returns the most recent persisted predictions for a
// plant, newest first
func (d *DB) GetPredictionHistory(ctx context.Context, plantID string, limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []predictionHistoryRow
	err := d.db.SelectContext(ctx, &rows,
		`SELECT * FROM prediction_history WHERE plant_id = ? ORDER BY created_at DESC LIMIT ?`,
		plantID, limit)
	if err != nil {
		return nil, fmt.Errorf("get prediction history for plant %s: %w", plantID, err)
	}
	out := make([]PredictionRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, PredictionRecord{
			PlantID:      r.PlantID,
			Kind:         r.Kind,
			Payload:      json.RawMessage(r.Payload),
			ModelVersion: r.ModelVersion,
			Confidence:   r.Confidence,
			CreatedAt:    r.CreatedAt,
		})
	}
	return out, nil
}
