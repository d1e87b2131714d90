package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/quizhub-api/pkg/config"
)

func testEmailConfig() config.EmailConfig {
	return config.EmailConfig{
		Provider:       config.EmailProviderSendgrid,
		SendgridAPIKey: "SG.key",
		FromAddress:    "no-reply@quizhub.local",
		FromName:       "QuizHub",
		SubjectPrefix:  "[QuizHub] ",
	}
}

func TestNewSelectsProvider(t *testing.T) {
	assert.IsType(t, &SendgridMailer{}, New(testEmailConfig(), zap.NewNop()))

	cfg := testEmailConfig()
	cfg.SendgridAPIKey = ""
	assert.IsType(t, &LogMailer{}, New(cfg, nil))

	cfg.Provider = config.EmailProviderLog
	assert.IsType(t, &LogMailer{}, New(cfg, nil))
}

func TestSendgridMailerSend(t *testing.T) {
	m := NewSendgridMailer(testEmailConfig())
	var captured rest.Request
	m.api = func(req rest.Request) (*rest.Response, error) {
		captured = req
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}

	err := m.Send(context.Background(), Message{
		To:      mail.Address{Address: "student@example.com"},
		Subject: "You're invited",
		Text:    "join",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, string(captured.Method))
	var payload struct {
		Personalizations []struct {
			Subject string `json:"subject"`
			To      []struct {
				Email string `json:"email"`
			} `json:"to"`
		} `json:"personalizations"`
	}
	require.NoError(t, json.Unmarshal(captured.Body, &payload))
	require.Len(t, payload.Personalizations, 1)
	assert.Equal(t, "[QuizHub] You're invited", payload.Personalizations[0].Subject)
	assert.Equal(t, "student@example.com", payload.Personalizations[0].To[0].Email)
}

func TestSendgridMailerReportsRejection(t *testing.T) {
	m := NewSendgridMailer(testEmailConfig())
	m.api = func(rest.Request) (*rest.Response, error) {
		return &rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}, nil
	}

	err := m.Send(context.Background(), Message{To: mail.Address{Address: "a@b.c"}, Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestMessageValidate(t *testing.T) {
	assert.Error(t, Message{Text: "x"}.Validate())
	assert.Error(t, Message{To: mail.Address{Address: "a@b.c"}}.Validate())
	assert.NoError(t, NewLogMailer("", nil).Send(context.Background(), Message{To: mail.Address{Address: "a@b.c"}, Text: "x"}))
}
