package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const sendGridEndpoint = "https://api.sendgrid.com/v3/mail/send"

// SendGridMailer delivers through the SendGrid v3 mail API. Sandbox mode
// makes SendGrid validate the payload without sending anything.
type SendGridMailer struct {
	apiKey   string
	from     string
	fromName string
	endpoint string
	sandbox  bool
	client   *http.Client
}

func NewSendGridMailer(apiKey, from string, sandbox bool) *SendGridMailer {
	return &SendGridMailer{
		apiKey:   strings.TrimSpace(apiKey),
		from:     strings.TrimSpace(from),
		fromName: "EventHub",
		endpoint: sendGridEndpoint,
		sandbox:  sandbox,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgPart struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgToggle struct {
	Enable bool `json:"enable"`
}

type sgMailSettings struct {
	SandboxMode sgToggle `json:"sandbox_mode"`
}

type sgPayload struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgPart            `json:"content"`
	Categories       []string            `json:"categories,omitempty"`
	MailSettings     *sgMailSettings     `json:"mail_settings,omitempty"`
}

func (m *SendGridMailer) payload(mail Mail) sgPayload {
	p := sgPayload{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: mail.To}}}},
		From:             sgAddress{Email: m.from, Name: m.fromName},
		Subject:          mail.Subject,
		Content:          []sgPart{{Type: "text/plain", Value: mail.Body}},
		Categories:       []string{"eventhub"},
	}
	if m.sandbox {
		p.MailSettings = &sgMailSettings{SandboxMode: sgToggle{Enable: true}}
	}
	return p
}

func (m *SendGridMailer) Send(ctx context.Context, mail Mail) error {
	switch {
	case m.apiKey == "":
		return fmt.Errorf("sendgrid: SENDGRID_API_KEY is not set")
	case m.from == "":
		return fmt.Errorf("sendgrid: EMAIL_FROM is not set")
	}

	body, err := json.Marshal(m.payload(mail))
	if err != nil {
		return fmt.Errorf("sendgrid: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	defer resp.Body.Close()

	// 202 when queued, 200 in sandbox mode.
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("sendgrid: http %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
}
