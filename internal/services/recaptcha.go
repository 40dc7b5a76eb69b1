package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const recaptchaEndpoint = "https://www.google.com/recaptcha/api/siteverify"

// RecaptchaVerifier guards registration against bots. With an empty secret
// it is disabled and every request passes.
type RecaptchaVerifier struct {
	secret     string
	endpoint   string
	httpClient *http.Client
	log        *zap.Logger
}

type recaptchaResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

func NewRecaptchaVerifier(secret string, log *zap.Logger) *RecaptchaVerifier {
	return &RecaptchaVerifier{
		secret:   strings.TrimSpace(secret),
		endpoint: recaptchaEndpoint,
		httpClient: &http.Client{
			Timeout: 8 * time.Second,
		},
		log: log,
	}
}

func (v *RecaptchaVerifier) Enabled() bool {
	return v != nil && v.secret != ""
}

// Verify checks a reCAPTCHA v2 token. It returns ErrCaptchaFailed when
// Google rejects the token and a plain error when the check itself failed.
func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if !v.Enabled() {
		return nil
	}
	tok := strings.TrimSpace(token)
	if tok == "" {
		return ErrCaptchaFailed
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", tok)
	if ip := strings.TrimSpace(remoteIP); ip != "" {
		form.Set("remoteip", ip)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("recaptcha verify http %d", resp.StatusCode)
	}

	var out recaptchaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	if !out.Success {
		v.log.Info("recaptcha rejected",
			zap.String("ip", remoteIP),
			zap.Strings("codes", out.ErrorCodes),
		)
		return ErrCaptchaFailed
	}
	return nil
}
