package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/config"
	"github.com/eventhub/backend/internal/models"
)

// Mail is a single plain-text message.
type Mail struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// NewMailer picks the delivery provider configured for the process.
func NewMailer(cfg config.MailConfig, log *zap.Logger) Mailer {
	switch cfg.Provider {
	case "smtp":
		return &SMTPMailer{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			From:     cfg.From,
		}
	case "sendgrid":
		return NewSendGridMailer(cfg.SendGridAPIKey, cfg.From, cfg.Sandbox)
	default:
		return &LogMailer{log: log}
	}
}

// LogMailer writes mails to the log instead of delivering them.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, mail Mail) error {
	m.log.Info("mail",
		zap.String("to", mail.To),
		zap.String("subject", mail.Subject),
		zap.Int("bodyLen", len(mail.Body)),
	)
	return nil
}

type SMTPMailer struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func (m *SMTPMailer) Send(_ context.Context, mail Mail) error {
	if m.Host == "" || m.User == "" || m.Password == "" {
		return fmt.Errorf("smtp not configured")
	}

	from := m.From
	if from == "" {
		from = m.User
	}

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + mail.To + "\r\n")
	b.WriteString("Subject: " + mail.Subject + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(mail.Body + "\r\n")

	addr := m.Host + ":" + strconv.Itoa(m.Port)
	auth := smtp.PlainAuth("", m.User, m.Password, m.Host)
	return smtp.SendMail(addr, auth, from, []string{mail.To}, []byte(b.String()))
}

func welcomeMail(u *models.User) Mail {
	return Mail{
		To:      u.Email,
		Subject: "Welcome to EventHub",
		Body: fmt.Sprintf(
			"Hi %s,\n\nyour account is ready. Confirm your email with this code: %s\n\nThe code expires in 24 hours.\n",
			u.Name, u.VerificationToken,
		),
	}
}

func resetMail(u *models.User, token string) Mail {
	return Mail{
		To:      u.Email,
		Subject: "Reset your EventHub password",
		Body: fmt.Sprintf(
			"Hi %s,\n\nuse this code to choose a new password: %s\n\nThe code expires in one hour. If you did not ask for it, ignore this email.\n",
			u.Name, token,
		),
	}
}
