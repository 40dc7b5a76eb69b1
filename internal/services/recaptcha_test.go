package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestRecaptchaVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.PostForm.Get("secret") != "s3cret" {
			t.Errorf("secret = %q", r.PostForm.Get("secret"))
		}
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("response") == "human" {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	v := NewRecaptchaVerifier("s3cret", zap.NewNop())
	v.endpoint = srv.URL
	ctx := context.Background()

	if err := v.Verify(ctx, "human", "192.0.2.1"); err != nil {
		t.Fatalf("valid token: %v", err)
	}
	if err := v.Verify(ctx, "bot", ""); !errors.Is(err, ErrCaptchaFailed) {
		t.Fatalf("rejected token err = %v", err)
	}
	if err := v.Verify(ctx, "  ", ""); !errors.Is(err, ErrCaptchaFailed) {
		t.Fatalf("blank token err = %v", err)
	}

	var disabled *RecaptchaVerifier
	if disabled.Enabled() || disabled.Verify(ctx, "", "") != nil {
		t.Fatal("nil verifier should let everything through")
	}
	if NewRecaptchaVerifier("", zap.NewNop()).Enabled() {
		t.Fatal("empty secret should disable the check")
	}
}
