package mailer

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/quizhub-api/pkg/config"
)

// Message is a single outbound email.
type Message struct {
	To      mail.Address
	Subject string
	Text    string
	HTML    string
}

// Validate checks the message has a recipient and content.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To.Address) == "" {
		return errors.New("message has no recipient")
	}
	if m.Text == "" && m.HTML == "" {
		return errors.New("message has no content")
	}
	return nil
}

// Mailer delivers messages synchronously. Callers wanting fire-and-forget delivery
// dispatch through a jobs.Queue.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New selects the mailer implementation configured for the environment.
func New(cfg config.EmailConfig, logger *zap.Logger) Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Provider == config.EmailProviderSendgrid && cfg.SendgridAPIKey != "" {
		return NewSendgridMailer(cfg)
	}
	if cfg.Provider == config.EmailProviderSendgrid {
		logger.Warn("sendgrid selected without api key, falling back to log mailer")
	}
	return NewLogMailer(cfg.SubjectPrefix, logger)
}

// LogMailer writes messages to the logger instead of delivering them.
type LogMailer struct {
	subjectPrefix string
	logger        *zap.Logger
}

// NewLogMailer builds a mailer for local development.
func NewLogMailer(subjectPrefix string, logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{subjectPrefix: subjectPrefix, logger: logger}
}

// Send logs the message.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.logger.Info("email suppressed",
		zap.String("to", msg.To.Address),
		zap.String("subject", m.subjectPrefix+msg.Subject),
		zap.Int("text_bytes", len(msg.Text)),
	)
	return nil
}
