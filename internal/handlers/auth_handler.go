package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/services"
)

const captchaTimeout = 15 * time.Second

type AuthHandler struct {
	auth    *services.AuthService
	captcha *services.RecaptchaVerifier
	errs    *Errors
}

// NewAuthHandler accepts a nil or disabled verifier when registration runs
// without reCAPTCHA.
func NewAuthHandler(auth *services.AuthService, captcha *services.RecaptchaVerifier, errs *Errors) *AuthHandler {
	return &AuthHandler{auth: auth, captcha: captcha, errs: errs}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !bind(w, r, &req) {
		return
	}

	if h.captcha.Enabled() {
		ctx, cancel := context.WithTimeout(r.Context(), captchaTimeout)
		defer cancel()
		if err := h.captcha.Verify(ctx, req.RecaptchaToken, clientIP(r)); err != nil {
			h.errs.write(w, r, err, "Failed to verify reCAPTCHA")
			return
		}
	}

	resp, err := h.auth.Register(r.Context(), &req)
	if err != nil {
		h.errs.write(w, r, err, "Registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, models.NewMessageResponse("Registration successful", resp))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !bind(w, r, &req) {
		return
	}

	resp, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		h.errs.write(w, r, err, "Login failed")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Login successful", resp))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Refresh token required"))
		return
	}

	tokens, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.errs.write(w, r, err, "Token refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"tokens": tokens}))
}

// Logout is an acknowledgement only; tokens are stateless and expire on
// their own.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Logout successful", nil))
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), currentUser(r).ID)
	if err != nil {
		h.errs.write(w, r, err, "Failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"user": user}))
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := h.auth.UpdateProfile(r.Context(), currentUser(r).ID, &req)
	if err != nil {
		h.errs.write(w, r, err, "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Profile updated", map[string]any{"user": user}))
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req models.ChangePasswordRequest
	if !bind(w, r, &req) {
		return
	}

	if err := h.auth.ChangePassword(r.Context(), currentUser(r).ID, &req); err != nil {
		h.errs.write(w, r, err, "Failed to change password")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Password changed", nil))
}

// ForgotPassword always answers the same way so callers cannot probe for
// registered emails.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if !bind(w, r, &req) {
		return
	}

	token, err := h.auth.ForgotPassword(r.Context(), &req)
	if err != nil {
		h.errs.write(w, r, err, "Failed to process request")
		return
	}
	var data any
	if token != "" {
		data = map[string]string{"resetToken": token}
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("If the email is registered you will receive reset instructions", data))
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if !bind(w, r, &req) {
		return
	}

	if err := h.auth.ResetPassword(r.Context(), &req); err != nil {
		h.errs.write(w, r, err, "Failed to reset password")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Password reset successful", nil))
}
