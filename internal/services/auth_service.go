package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/storage"
)

const (
	verificationTTL = 24 * time.Hour
	resetTokenTTL   = time.Hour
	mailTimeout     = 15 * time.Second
)

type AuthOptions struct {
	BcryptCost int

	// ExposeResetToken returns the reset token from ForgotPassword. Development only.
	ExposeResetToken bool
}

type AuthService struct {
	users  storage.UserStore
	tokens *TokenService
	mailer Mailer
	log    *zap.Logger
	opts   AuthOptions
	now    func() time.Time
}

func NewAuthService(users storage.UserStore, tokens *TokenService, mailer Mailer, log *zap.Logger, opts AuthOptions) *AuthService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:  users,
		tokens: tokens,
		mailer: mailer,
		log:    log,
		opts:   opts,
		now:    time.Now,
	}
}

func (s *AuthService) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// sendMail delivers in the background; mail failures never fail the request.
func (s *AuthService) sendMail(m Mail) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()
		if err := s.mailer.Send(ctx, m); err != nil {
			s.log.Warn("mail delivery failed", zap.String("to", m.To), zap.String("subject", m.Subject), zap.Error(err))
		}
	}()
}

func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	if _, err := s.users.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}
	verification, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("verification token: %w", err)
	}

	now := s.now().UTC()
	expiry := now.Add(verificationTTL)
	u := &models.User{
		ID:                 uuid.NewString(),
		Email:              req.Email,
		PasswordHash:       hash,
		Name:               req.Name,
		Role:               models.RoleUser,
		VerificationToken:  verification,
		VerificationExpiry: &expiry,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	s.sendMail(welcomeMail(u))
	s.log.Info("user registered", zap.String("userId", u.ID))

	tokens, err := s.tokens.IssuePair(u.ID)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{User: *u, Tokens: tokens}, nil
}

func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	u, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !checkPassword(u.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	if u.IsBlocked {
		return nil, ErrUserBlocked
	}

	now := s.now().UTC()
	if updated, err := s.users.UpdateUser(ctx, u.ID, models.UserUpdate{LastLogin: &now}); err != nil {
		s.log.Warn("last login not recorded", zap.String("userId", u.ID), zap.Error(err))
	} else {
		u = updated
	}

	tokens, err := s.tokens.IssuePair(u.ID)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{User: *u, Tokens: tokens}, nil
}

// Refresh trades a valid refresh token for a new pair. A blocked or missing
// user makes the token invalid.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return models.TokenPair{}, err
	}
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.TokenPair{}, ErrInvalidToken
		}
		return models.TokenPair{}, err
	}
	if u.IsBlocked {
		return models.TokenPair{}, ErrInvalidToken
	}
	return s.tokens.IssuePair(u.ID)
}

// UserFromAccessToken resolves the bearer of an access token.
func (s *AuthService) UserFromAccessToken(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.ParseAccess(token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if u.IsBlocked {
		return nil, ErrUserBlocked
	}
	return u, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.User, error) {
	u, err := s.users.UpdateUser(ctx, userID, models.UserUpdate{Name: req.Name, Avatar: req.Avatar})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *AuthService) ChangePassword(ctx context.Context, userID string, req *models.ChangePasswordRequest) error {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !checkPassword(u.PasswordHash, req.CurrentPassword) {
		return ErrWrongPassword
	}
	hash, err := s.hash(req.NewPassword)
	if err != nil {
		return err
	}
	_, err = s.users.UpdateUser(ctx, userID, models.UserUpdate{PasswordHash: &hash})
	return err
}

// ForgotPassword stores a one-hour reset token and mails it. Unknown emails
// succeed silently. The token is returned only when ExposeResetToken is set.
func (s *AuthService) ForgotPassword(ctx context.Context, req *models.ForgotPasswordRequest) (string, error) {
	u, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	token, err := gonanoid.New(32)
	if err != nil {
		return "", fmt.Errorf("reset token: %w", err)
	}
	expiry := s.now().UTC().Add(resetTokenTTL)
	if _, err := s.users.UpdateUser(ctx, u.ID, models.UserUpdate{
		ResetToken:       &token,
		ResetTokenExpiry: &expiry,
	}); err != nil {
		return "", err
	}

	s.sendMail(resetMail(u, token))
	if s.opts.ExposeResetToken {
		return token, nil
	}
	return "", nil
}

func (s *AuthService) ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error {
	u, err := s.users.GetUserByResetToken(ctx, req.Token, s.now().UTC())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	hash, err := s.hash(req.NewPassword)
	if err != nil {
		return err
	}
	_, err = s.users.UpdateUser(ctx, u.ID, models.UserUpdate{
		PasswordHash:    &hash,
		ClearResetToken: true,
	})
	return err
}
