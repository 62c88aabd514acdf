// Package mailer delivers account verification emails over SMTP. Sends are
// queued and retried in the background so registration latency never depends
// on the mail server.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kalamna/auth-api/internal/models"
	"github.com/kalamna/auth-api/pkg/config"
	"github.com/kalamna/auth-api/pkg/jobs"
)

const jobTypeVerification = "verification_email"

var verificationTemplate = template.Must(template.New("verification").Parse(`<html>
<body>
<p>Hi {{.FullName}},</p>
<p>Welcome to {{.BusinessName}} on Kalamna. Confirm your email address to activate your account:</p>
<p><a href="{{.VerifyLink}}">Verify my email</a></p>
<p>The link expires in 48 hours. If you did not create this account, ignore this message.</p>
</body>
</html>`))

type verificationPayload struct {
	To           string
	FullName     string
	BusinessName string
	Token        string
}

// Mailer renders and sends verification emails through an SMTP relay.
type Mailer struct {
	cfg    config.MailConfig
	queue  *jobs.Queue
	logger *zap.Logger

	// send is swapped in tests to avoid a live SMTP connection.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// New builds a Mailer and its delivery queue. Call Start before enqueuing.
func New(cfg config.MailConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Mailer{
		cfg:    cfg,
		logger: logger,
		send:   smtp.SendMail,
	}
	m.queue = jobs.NewQueue(jobTypeVerification, m.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logger,
	})
	return m
}

// Start launches the delivery workers.
func (m *Mailer) Start(ctx context.Context) {
	m.queue.Start(ctx)
}

// Stop drains the workers.
func (m *Mailer) Stop() {
	m.queue.Stop()
}

// SendVerification queues a verification email for the given employee. When
// delivery is disabled the message is logged instead of sent, which keeps
// local development working without an SMTP relay.
func (m *Mailer) SendVerification(employee *models.Employee, business *models.Business, verifyToken string) error {
	if !m.cfg.Enabled {
		m.logger.Sugar().Infow("mail disabled, skipping verification email",
			"employee_id", employee.ID, "email", employee.Email)
		return nil
	}

	return m.queue.Enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: jobTypeVerification,
		Payload: verificationPayload{
			To:           employee.Email,
			FullName:     employee.FullName,
			BusinessName: business.Name,
			Token:        verifyToken,
		},
	})
}

func (m *Mailer) deliver(_ context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(verificationPayload)
	if !ok {
		return fmt.Errorf("mailer: unexpected payload type %T", job.Payload)
	}

	body, err := m.render(payload)
	if err != nil {
		return fmt.Errorf("mailer: render: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(addr, auth, m.cfg.FromAddress, []string{payload.To}, body); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", payload.To, err)
	}
	m.logger.Sugar().Infow("verification email sent", "to", payload.To)
	return nil
}

func (m *Mailer) render(payload verificationPayload) ([]byte, error) {
	link := m.cfg.VerifyURL + "?token=" + url.QueryEscape(payload.Token)

	var html bytes.Buffer
	err := verificationTemplate.Execute(&html, struct {
		FullName     string
		BusinessName string
		VerifyLink   string
	}{payload.FullName, payload.BusinessName, link})
	if err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.FromAddress)
	fmt.Fprintf(&msg, "To: %s\r\n", payload.To)
	msg.WriteString("Subject: Verify your email address\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.Write(html.Bytes())
	return msg.Bytes(), nil
}
