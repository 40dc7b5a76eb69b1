package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eventhub/backend/internal/models"
)

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()

	req := &models.RegisterRequest{Email: "mario@example.com", Password: "Secret1", Name: "Mario"}
	res, err := h.auth.Register(ctx, req)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.User.Role != models.RoleUser || res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatalf("unexpected response: %+v", res)
	}
	if res.User.PasswordHash == "Secret1" {
		t.Fatal("password stored in clear")
	}

	if _, err := h.auth.Register(ctx, req); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("duplicate register err = %v", err)
	}

	if _, err := h.auth.Login(ctx, &models.LoginRequest{Email: "mario@example.com", Password: "Wrong1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, err := h.auth.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "Secret1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v", err)
	}

	login, err := h.auth.Login(ctx, &models.LoginRequest{Email: "mario@example.com", Password: "Secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.Tokens.AccessToken == login.Tokens.RefreshToken {
		t.Fatal("access and refresh tokens are identical")
	}
	if login.User.LastLogin == nil {
		t.Fatal("last login not recorded")
	}

	u, err := h.auth.UserFromAccessToken(ctx, login.Tokens.AccessToken)
	if err != nil || u.ID != res.User.ID {
		t.Fatalf("UserFromAccessToken = %v, %v", u, err)
	}
	if _, err := h.auth.UserFromAccessToken(ctx, login.Tokens.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token accepted as access token: %v", err)
	}

	pair, err := h.auth.Refresh(ctx, login.Tokens.RefreshToken)
	if err != nil || pair.AccessToken == "" {
		t.Fatalf("Refresh = %+v, %v", pair, err)
	}
}

func TestBlockedUserLockedOut(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()

	res, err := h.auth.Register(ctx, &models.RegisterRequest{Email: "luigi@example.com", Password: "Secret1", Name: "Luigi"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	admin := h.user(models.RoleAdmin)
	if err := h.admin.Block(ctx, admin, res.User.ID, "spam"); err != nil {
		t.Fatalf("Block: %v", err)
	}

	if _, err := h.auth.Login(ctx, &models.LoginRequest{Email: "luigi@example.com", Password: "Secret1"}); !errors.Is(err, ErrUserBlocked) {
		t.Fatalf("login err = %v, want ErrUserBlocked", err)
	}
	if _, err := h.auth.UserFromAccessToken(ctx, res.Tokens.AccessToken); !errors.Is(err, ErrUserBlocked) {
		t.Fatalf("access err = %v, want ErrUserBlocked", err)
	}
	if _, err := h.auth.Refresh(ctx, res.Tokens.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh err = %v, want ErrInvalidToken", err)
	}
	if h.countNotifications(res.User.ID, models.NotifyUserBlocked) != 1 {
		t.Fatal("blocked user not notified")
	}

	if err := h.admin.Block(ctx, h.user(models.RoleAdmin), admin.ID, "nope"); !errors.Is(err, ErrCannotBlockAdmin) {
		t.Fatalf("blocking admin err = %v", err)
	}

	if err := h.admin.Unblock(ctx, admin, res.User.ID); err != nil {
		t.Fatalf("Unblock: %v", err)
	}
	if _, err := h.auth.Login(ctx, &models.LoginRequest{Email: "luigi@example.com", Password: "Secret1"}); err != nil {
		t.Fatalf("login after unblock: %v", err)
	}
}

func TestPasswordReset(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()

	if _, err := h.auth.Register(ctx, &models.RegisterRequest{Email: "anna@example.com", Password: "Secret1", Name: "Anna"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if tok, err := h.auth.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: "ghost@example.com"}); err != nil || tok != "" {
		t.Fatalf("unknown email = %q, %v", tok, err)
	}

	token, err := h.auth.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: "anna@example.com"})
	if err != nil || token == "" {
		t.Fatalf("ForgotPassword = %q, %v", token, err)
	}

	if err := h.auth.ResetPassword(ctx, &models.ResetPasswordRequest{Token: token, NewPassword: "Newpass2"}); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if err := h.auth.ResetPassword(ctx, &models.ResetPasswordRequest{Token: token, NewPassword: "Other3x"}); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("token reuse err = %v", err)
	}
	if _, err := h.auth.Login(ctx, &models.LoginRequest{Email: "anna@example.com", Password: "Newpass2"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestResetTokenExpires(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()

	if _, err := h.auth.Register(ctx, &models.RegisterRequest{Email: "bea@example.com", Password: "Secret1", Name: "Bea"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, err := h.auth.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: "bea@example.com"})
	if err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}

	h.auth.now = func() time.Time { return time.Now().Add(resetTokenTTL + time.Minute) }
	if err := h.auth.ResetPassword(ctx, &models.ResetPasswordRequest{Token: token, NewPassword: "Newpass2"}); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expired token err = %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()

	res, err := h.auth.Register(ctx, &models.RegisterRequest{Email: "carla@example.com", Password: "Secret1", Name: "Carla"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	err = h.auth.ChangePassword(ctx, res.User.ID, &models.ChangePasswordRequest{CurrentPassword: "Nope1", NewPassword: "Newpass2"})
	if !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("wrong current password err = %v", err)
	}
	if err := h.auth.ChangePassword(ctx, res.User.ID, &models.ChangePasswordRequest{CurrentPassword: "Secret1", NewPassword: "Newpass2"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := h.auth.Login(ctx, &models.LoginRequest{Email: "carla@example.com", Password: "Newpass2"}); err != nil {
		t.Fatalf("login with changed password: %v", err)
	}
}

func TestTokenService(t *testing.T) {
	ts := NewTokenService("a", "r", time.Minute, time.Hour)
	pair, err := ts.IssuePair("u1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if id, err := ts.ParseAccess(pair.AccessToken); err != nil || id != "u1" {
		t.Fatalf("ParseAccess = %q, %v", id, err)
	}
	if _, err := ts.ParseRefresh(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}
	if _, err := ts.ParseAccess("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token err = %v", err)
	}

	ts.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := ts.ParseAccess(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired access token err = %v", err)
	}
	if id, err := ts.ParseRefresh(pair.RefreshToken); err != nil || id != "u1" {
		t.Fatalf("refresh still valid: %q, %v", id, err)
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(ErrCapacityExceeded) != KindConflict {
		t.Fatal("capacity exceeded should be a conflict")
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatal("plain errors are internal")
	}
}
