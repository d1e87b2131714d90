package service

import (
	"context"
	"fmt"
	"html"
	"net/mail"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/quizhub-api/pkg/jobs"
	"github.com/noah-isme/quizhub-api/pkg/mailer"
)

// Notification job types.
const (
	NotificationInvite     = "invite_email"
	NotificationAssignment = "assignment_email"
)

// InviteNotice carries what the invite email needs. The token only ever leaves the
// service through this email.
type InviteNotice struct {
	Email     string
	GroupID   string
	GroupName string
	Token     string
	ExpiresAt time.Time
}

// AssignmentNotice tells a newly added student about the quizzes waiting for them.
type AssignmentNotice struct {
	Email         string
	GroupName     string
	AssignedCount int
}

// notifier is what the enrollment services depend on.
type notifier interface {
	NotifyInvite(ctx context.Context, notice InviteNotice)
	NotifyAssignments(ctx context.Context, notice AssignmentNotice)
}

// NotificationConfig tunes the delivery queue.
type NotificationConfig struct {
	BaseURL    string
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

// NotificationService renders notification emails and hands them to a worker queue so
// request handlers never wait on the mail provider.
type NotificationService struct {
	mailer  mailer.Mailer
	queue   *jobs.Queue
	baseURL string
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService wires the queue; call Start before enqueueing.
func NewNotificationService(m mailer.Mailer, cfg NotificationConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{
		mailer:  m,
		baseURL: cfg.BaseURL,
		metrics: metrics,
		logger:  logger,
	}
	svc.queue = jobs.NewQueue("notifications", svc.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for the delivery workers to exit.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyInvite queues the invite email.
func (s *NotificationService) NotifyInvite(ctx context.Context, notice InviteNotice) {
	s.enqueue(NotificationInvite, s.inviteMessage(notice))
}

// NotifyAssignments queues the assignment email. Nothing is sent when no quiz was assigned.
func (s *NotificationService) NotifyAssignments(ctx context.Context, notice AssignmentNotice) {
	if notice.AssignedCount <= 0 {
		return
	}
	s.enqueue(NotificationAssignment, s.assignmentMessage(notice))
}

func (s *NotificationService) enqueue(kind string, msg mailer.Message) {
	if err := s.queue.Enqueue(jobs.Job{Type: kind, Payload: msg}); err != nil {
		s.metrics.RecordNotification(kind, err)
		s.logger.Warn("failed to queue notification", zap.String("type", kind), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mailer.Message)
	if !ok {
		s.logger.Error("dropping notification with unexpected payload", zap.String("type", job.Type))
		return nil
	}
	err := s.mailer.Send(ctx, msg)
	s.metrics.RecordNotification(job.Type, err)
	return err
}

// InviteURL is the signup link carried by an invite email.
func (s *NotificationService) InviteURL(notice InviteNotice) string {
	q := url.Values{}
	q.Set("invite_token", notice.Token)
	q.Set("email", notice.Email)
	q.Set("group_id", notice.GroupID)
	return s.baseURL + "/signup?" + q.Encode()
}

func (s *NotificationService) inviteMessage(notice InviteNotice) mailer.Message {
	link := s.InviteURL(notice)
	expires := notice.ExpiresAt.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
	return mailer.Message{
		To:      mail.Address{Address: notice.Email},
		Subject: fmt.Sprintf("You're invited to join %s", notice.GroupName),
		Text: fmt.Sprintf("You have been invited to join %s on QuizHub.\n\nCreate your account here: %s\n\nThis invite expires on %s.\n",
			notice.GroupName, link, expires),
		HTML: fmt.Sprintf(`<p>You have been invited to join <strong>%s</strong> on QuizHub.</p><p><a href="%s">Create your account</a></p><p>This invite expires on %s.</p>`,
			html.EscapeString(notice.GroupName), html.EscapeString(link), expires),
	}
}

func (s *NotificationService) assignmentMessage(notice AssignmentNotice) mailer.Message {
	quizzes := "quiz"
	if notice.AssignedCount > 1 {
		quizzes = "quizzes"
	}
	return mailer.Message{
		To:      mail.Address{Address: notice.Email},
		Subject: fmt.Sprintf("New %s in %s", quizzes, notice.GroupName),
		Text: fmt.Sprintf("You were added to %s and have %d %s waiting for you.\n\nSign in at %s to get started.\n",
			notice.GroupName, notice.AssignedCount, quizzes, s.baseURL),
	}
}
