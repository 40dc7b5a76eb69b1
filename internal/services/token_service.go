package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/eventhub/backend/internal/models"
)

// userIDClaim is the only application claim carried by either token.
const userIDClaim = "userId"

type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (s *TokenService) sign(userID string, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		userIDClaim: userID,
		"iat":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
		"jti":       uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// IssuePair signs a fresh access/refresh pair for userID.
func (s *TokenService) IssuePair(userID string) (models.TokenPair, error) {
	access, err := s.sign(userID, s.accessSecret, s.accessTTL)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.sign(userID, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *TokenService) parse(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, ok := claims[userIDClaim].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// ParseAccess returns the user id of a valid access token.
func (s *TokenService) ParseAccess(token string) (string, error) {
	return s.parse(token, s.accessSecret)
}

// ParseRefresh returns the user id of a valid refresh token.
func (s *TokenService) ParseRefresh(token string) (string, error) {
	return s.parse(token, s.refreshSecret)
}
