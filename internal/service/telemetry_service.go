package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/quizhub-api/internal/models"
)

type telemetryStore interface {
	Insert(ctx context.Context, event *models.TelemetryEvent) error
}

type eventPublisher interface {
	Publish(ctx context.Context, event string, v any) error
}

// telemetryRecorder is what the enrollment services depend on.
type telemetryRecorder interface {
	Record(ctx context.Context, actorID, event string, metadata map[string]interface{})
}

// TelemetryService records product events. Every failure is logged and swallowed.
type TelemetryService struct {
	store     telemetryStore
	publisher eventPublisher
	clock     Clock
	logger    *zap.Logger
}

// NewTelemetryService builds the sink. publisher may be nil when no event bus is configured.
func NewTelemetryService(store telemetryStore, publisher eventPublisher, logger *zap.Logger) *TelemetryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelemetryService{store: store, publisher: publisher, clock: systemClock, logger: logger}
}

// Record stores the event and mirrors it onto the event bus.
func (s *TelemetryService) Record(ctx context.Context, actorID, event string, metadata map[string]interface{}) {
	if s == nil {
		return
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	meta, err := json.Marshal(metadata)
	if err != nil {
		s.logger.Warn("failed to encode telemetry metadata", zap.String("event", event), zap.Error(err))
		meta = []byte(`{}`)
	}

	record := &models.TelemetryEvent{
		EventType: event,
		Meta:      meta,
		CreatedAt: s.clock(),
	}
	if actorID != "" {
		record.UserID = &actorID
	}

	if s.store != nil {
		if err := s.store.Insert(ctx, record); err != nil {
			s.logger.Warn("failed to record telemetry event", zap.String("event", event), zap.Error(err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event, record); err != nil {
			s.logger.Warn("failed to publish telemetry event", zap.String("event", event), zap.Error(err))
		}
	}
}
