package models

import (
	"net/mail"
	"strings"
	"time"
	"unicode"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID                 string     `json:"id" bson:"_id"`
	Email              string     `json:"email" bson:"email"`
	PasswordHash       string     `json:"-" bson:"password_hash"`
	Name               string     `json:"name" bson:"name"`
	Avatar             string     `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Role               Role       `json:"role" bson:"role"`
	IsBlocked          bool       `json:"isBlocked" bson:"is_blocked"`
	BlockedReason      string     `json:"blockedReason,omitempty" bson:"blocked_reason,omitempty"`
	BlockedAt          *time.Time `json:"blockedAt,omitempty" bson:"blocked_at,omitempty"`
	EventsCreated      int        `json:"eventsCreated" bson:"events_created"`
	EventsAttended     int        `json:"eventsAttended" bson:"events_attended"`
	IsEmailVerified    bool       `json:"isEmailVerified" bson:"is_email_verified"`
	VerificationToken  string     `json:"-" bson:"verification_token,omitempty"`
	VerificationExpiry *time.Time `json:"-" bson:"verification_expiry,omitempty"`
	ResetToken         string     `json:"-" bson:"reset_token,omitempty"`
	ResetTokenExpiry   *time.Time `json:"-" bson:"reset_token_expiry,omitempty"`
	LastLogin          *time.Time `json:"lastLogin,omitempty" bson:"last_login,omitempty"`
	CreatedAt          time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt          time.Time  `json:"updatedAt" bson:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// PublicUser is the reduced view embedded in events, messages and rosters.
type PublicUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

// UserUpdate carries the optional fields a store applies to a user document.
// Nil pointers are left untouched.
type UserUpdate struct {
	Name               *string
	Avatar             *string
	PasswordHash       *string
	Role               *Role
	IsBlocked          *bool
	BlockedReason      *string
	BlockedAt          *time.Time
	ClearBlockedAt     bool
	IsEmailVerified    *bool
	VerificationToken  *string
	VerificationExpiry *time.Time
	ResetToken         *string
	ResetTokenExpiry   *time.Time
	ClearResetToken    bool
	LastLogin          *time.Time
}

type UserFilter struct {
	Search       string
	Role         Role
	IsBlocked    *bool
	CreatedSince *time.Time
}

type RegisterRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	Name           string `json:"name"`
	RecaptchaToken string `json:"recaptchaToken,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type UpdateProfileRequest struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

type BlockUserRequest struct {
	Reason string `json:"reason"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type AuthResponse struct {
	User   User      `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// strongPassword requires a lowercase letter, an uppercase letter and a digit.
func strongPassword(p string) bool {
	var lower, upper, digit bool
	for _, r := range p {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

func validatePassword(errors map[string]string, field, p string) {
	switch {
	case p == "":
		errors[field] = "Password is required"
	case len(p) < 6:
		errors[field] = "Password must be at least 6 characters"
	case !strongPassword(p):
		errors[field] = "Password must contain a lowercase letter, an uppercase letter and a number"
	}
}

func (r *RegisterRequest) Validate() map[string]string {
	errors := make(map[string]string)

	r.Email = NormalizeEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validEmail(r.Email) {
		errors["email"] = "Email is not valid"
	}
	validatePassword(errors, "password", r.Password)
	if n := len([]rune(r.Name)); n < 2 || n > 50 {
		errors["name"] = "Name must be between 2 and 50 characters"
	}

	return errors
}

func (r *LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	r.Email = NormalizeEmail(r.Email)
	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

func (r *ForgotPasswordRequest) Validate() map[string]string {
	errors := make(map[string]string)
	r.Email = NormalizeEmail(r.Email)
	if r.Email == "" || !validEmail(r.Email) {
		errors["email"] = "A valid email is required"
	}
	return errors
}

func (r *ResetPasswordRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Token) == "" {
		errors["token"] = "Token is required"
	}
	validatePassword(errors, "newPassword", r.NewPassword)
	return errors
}

func (r *ChangePasswordRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.CurrentPassword == "" {
		errors["currentPassword"] = "Current password is required"
	}
	validatePassword(errors, "newPassword", r.NewPassword)
	return errors
}

func (r *UpdateProfileRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
		if n := len([]rune(name)); n < 2 || n > 50 {
			errors["name"] = "Name must be between 2 and 50 characters"
		}
	}
	if r.Avatar != nil && len(*r.Avatar) > 500 {
		errors["avatar"] = "Avatar URL is too long"
	}
	return errors
}

func (r *BlockUserRequest) Validate() map[string]string {
	errors := make(map[string]string)
	r.Reason = strings.TrimSpace(r.Reason)
	if len([]rune(r.Reason)) > 500 {
		errors["reason"] = "Reason cannot exceed 500 characters"
	}
	return errors
}
