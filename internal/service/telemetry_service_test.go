package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/quizhub-api/internal/models"
)

type telemetryStoreStub struct {
	events []*models.TelemetryEvent
	err    error
}

func (s *telemetryStoreStub) Insert(ctx context.Context, event *models.TelemetryEvent) error {
	s.events = append(s.events, event)
	return s.err
}

type publisherStub struct {
	subjects []string
	err      error
}

func (p *publisherStub) Publish(ctx context.Context, event string, v any) error {
	p.subjects = append(p.subjects, event)
	return p.err
}

// telemetrySpy records events in memory for service tests.
type telemetrySpy struct {
	events []recordedEvent
}

type recordedEvent struct {
	actor    string
	name     string
	metadata map[string]interface{}
}

func (s *telemetrySpy) Record(ctx context.Context, actorID, event string, metadata map[string]interface{}) {
	s.events = append(s.events, recordedEvent{actor: actorID, name: event, metadata: metadata})
}

func (s *telemetrySpy) named(name string) []recordedEvent {
	var out []recordedEvent
	for _, e := range s.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

func TestTelemetryServiceRecordStoresAndPublishes(t *testing.T) {
	store := &telemetryStoreStub{}
	pub := &publisherStub{}
	svc := NewTelemetryService(store, pub, nil)

	svc.Record(context.Background(), "mentor-1", models.EventGroupInviteBulk, map[string]interface{}{"group_id": "g-1", "total_emails": 3})

	require.Len(t, store.events, 1)
	event := store.events[0]
	assert.Equal(t, models.EventGroupInviteBulk, event.EventType)
	require.NotNil(t, event.UserID)
	assert.Equal(t, "mentor-1", *event.UserID)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(event.Meta, &meta))
	assert.Equal(t, "g-1", meta["group_id"])
	assert.Equal(t, []string{models.EventGroupInviteBulk}, pub.subjects)
}

func TestTelemetryServiceSwallowsFailures(t *testing.T) {
	store := &telemetryStoreStub{err: errors.New("db down")}
	pub := &publisherStub{err: errors.New("nats down")}
	svc := NewTelemetryService(store, pub, nil)

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), "", models.EventGroupQRJoin, nil)
	})
	require.Len(t, store.events, 1)
	assert.Nil(t, store.events[0].UserID)
	assert.JSONEq(t, `{}`, string(store.events[0].Meta))
}

func TestTelemetryServiceWithoutPublisher(t *testing.T) {
	store := &telemetryStoreStub{}
	svc := NewTelemetryService(store, nil, nil)
	svc.Record(context.Background(), "u", models.EventAssignmentCreated, map[string]interface{}{"n": 1})
	assert.Len(t, store.events, 1)
}
