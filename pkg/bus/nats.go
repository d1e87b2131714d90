package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrNilBus is returned when publishing through an unconfigured bus.
var ErrNilBus = errors.New("nil bus")

// Bus publishes JSON events onto a NATS JetStream stream.
type Bus struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	prefix string
}

// New connects to url and ensures a stream capturing every subject below prefix exists.
func New(url, prefix string, opts ...nats.Option) (*Bus, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return nil, errors.New("bus subject prefix is required")
	}

	opts = append([]nats.Option{
		nats.Name("quizhub-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}, opts...)

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open jetstream: %w", err)
	}

	b := &Bus{conn: nc, js: js, prefix: prefix}
	if err := b.ensureStream(); err != nil {
		nc.Close()
		return nil, err
	}
	return b, nil
}

func (b *Bus) ensureStream() error {
	name := StreamName(b.prefix)
	if _, err := b.js.StreamInfo(name); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("lookup stream %s: %w", name, err)
	}

	_, err := b.js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{b.prefix + ".>"},
		Storage:  nats.FileStorage,
		MaxAge:   30 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", name, err)
	}
	return nil
}

// Close drains the underlying NATS connection.
func (b *Bus) Close() {
	if b == nil || b.conn == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// Subject returns the full subject for an event name.
func (b *Bus) Subject(event string) string {
	return Subject(b.prefix, event)
}

// Publish encodes v as JSON and publishes it under the prefixed event subject.
func (b *Bus) Publish(ctx context.Context, event string, v any) error {
	if b == nil || b.js == nil {
		return ErrNilBus
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if _, err := b.js.Publish(b.Subject(event), data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// Subject joins a prefix and an event name into a NATS subject.
func Subject(prefix, event string) string {
	prefix = strings.Trim(prefix, ".")
	event = strings.Trim(event, ".")
	if prefix == "" {
		return event
	}
	return prefix + "." + event
}

// StreamName derives a JetStream stream name from a subject prefix.
func StreamName(prefix string) string {
	name := strings.ToUpper(strings.Trim(prefix, "."))
	return strings.NewReplacer(".", "_", "*", "", ">", "", " ", "_").Replace(name)
}
