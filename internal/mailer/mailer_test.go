package mailer

import (
	"context"
	"net/smtp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalamna/auth-api/internal/models"
	"github.com/kalamna/auth-api/pkg/config"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestMailer(t *testing.T, enabled bool) (*Mailer, *[]capturedMail) {
	t.Helper()
	m := New(config.MailConfig{
		Enabled:     enabled,
		Host:        "smtp.example.com",
		Port:        587,
		FromAddress: "no-reply@kalamna.io",
		FromName:    "Kalamna Services",
		VerifyURL:   "https://app.kalamna.io/verify",
		Workers:     1,
	}, nil)

	var mu sync.Mutex
	sent := &[]capturedMail{}
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		mu.Lock()
		defer mu.Unlock()
		*sent = append(*sent, capturedMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
	return m, sent
}

func TestSendVerificationDeliversRenderedMail(t *testing.T) {
	m, sent := newTestMailer(t, true)
	m.Start(context.Background())
	defer m.Stop()

	employee := &models.Employee{ID: "e1", FullName: "Ada Owner", Email: "ada@acme.com"}
	business := &models.Business{ID: "b1", Name: "Acme Corp"}
	require.NoError(t, m.SendVerification(employee, business, "tok-123"))

	require.Eventually(t, func() bool { return len(*sent) == 1 }, time.Second, 10*time.Millisecond)
	mail := (*sent)[0]
	assert.Equal(t, "smtp.example.com:587", mail.addr)
	assert.Equal(t, "no-reply@kalamna.io", mail.from)
	assert.Equal(t, []string{"ada@acme.com"}, mail.to)
	assert.Contains(t, mail.msg, "Ada Owner")
	assert.Contains(t, mail.msg, "Acme Corp")
	assert.Contains(t, mail.msg, "https://app.kalamna.io/verify?token=tok-123")
	assert.Contains(t, mail.msg, "Subject: Verify your email address")
}

func TestSendVerificationDisabledIsNoop(t *testing.T) {
	m, sent := newTestMailer(t, false)
	m.Start(context.Background())
	defer m.Stop()

	employee := &models.Employee{ID: "e1", FullName: "Ada", Email: "ada@acme.com"}
	require.NoError(t, m.SendVerification(employee, &models.Business{Name: "Acme"}, "tok"))

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, *sent)
}

func TestSendVerificationBeforeStartFails(t *testing.T) {
	m, _ := newTestMailer(t, true)

	employee := &models.Employee{Email: "ada@acme.com"}
	err := m.SendVerification(employee, &models.Business{Name: "Acme"}, "tok")
	assert.Error(t, err)
}
