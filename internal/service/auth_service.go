package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"movie-mood-service/internal/config"
	"movie-mood-service/internal/models"
)

var (
	// ErrInvalidCredentials is returned by Login for a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned when a bearer token cannot be verified.
	ErrInvalidToken = errors.New("invalid token")
)

// AuthService issues and verifies admin tokens.
type AuthService struct {
	cfg    config.AuthConfig
	secret []byte
	now    func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg config.AuthConfig) *AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &AuthService{cfg: cfg, secret: []byte(cfg.JWTSecret), now: time.Now}
}

// Login checks the admin credential pair and returns a signed token.
func (s *AuthService) Login(username, password string) (models.LoginResponse, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.AdminPassword)) == 1
	if !userOK || !passOK {
		return models.LoginResponse{}, ErrInvalidCredentials
	}

	expiresAt := s.now().Add(s.cfg.TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  s.cfg.AdminUsername,
		"role": s.cfg.AdminRole,
		"exp":  expiresAt.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return models.LoginResponse{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return models.LoginResponse{
		Token:     signed,
		ExpiresAt: expiresAt.Unix(),
		User:      models.User{Username: s.cfg.AdminUsername, Role: s.cfg.AdminRole},
	}, nil
}

// Verify parses a bearer token and returns the user it was issued to.
func (s *AuthService) Verify(tokenStr string) (models.User, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return models.User{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.User{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return models.User{}, ErrInvalidToken
	}
	return models.User{Username: sub, Role: role}, nil
}
