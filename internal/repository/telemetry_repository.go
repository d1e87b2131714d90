package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/quizhub-api/internal/models"
)

// TelemetryRepository appends product events to telemetry_events.
type TelemetryRepository struct {
	db *sqlx.DB
}

// NewTelemetryRepository constructs the repository.
func NewTelemetryRepository(db *sqlx.DB) *TelemetryRepository {
	return &TelemetryRepository{db: db}
}

// Insert stores a telemetry event.
func (r *TelemetryRepository) Insert(ctx context.Context, event *models.TelemetryEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if len(event.Meta) == 0 {
		event.Meta = json.RawMessage(`{}`)
	}

	const query = `INSERT INTO telemetry_events (id, user_id, event_type, meta, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, event.ID, event.UserID, event.EventType, []byte(event.Meta), event.CreatedAt); err != nil {
		return fmt.Errorf("insert telemetry event: %w", err)
	}
	return nil
}
