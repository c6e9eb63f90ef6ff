package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/classmarket/wallet/internal/models"
)

var (
	ErrNoToken      = errors.New("no bearer token in request")
	ErrInvalidToken = errors.New("invalid token")
)

type Config struct {
	// Symmetric key shared with the platform's auth service
	SecretKey string
}

// Service validates access tokens minted by the marketplace auth
// service. It only checks the signature and expiry and trusts the
// identity inside; registration and login live elsewhere.
type Service struct {
	secretKey []byte
}

func NewService(c Config) (*Service, error) {
	if c.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	return &Service{secretKey: []byte(c.SecretKey)}, nil
}

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// ParseToken validates the token string and returns the identity it carries
func (s *Service) ParseToken(tokenString string) (models.User, error) {
	var user models.User

	parsed, err := jwt.ParseWithClaims(tokenString, &claims{},
		func(t *jwt.Token) (any, error) { return s.secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return user, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok {
		return user, ErrInvalidToken
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return user, fmt.Errorf("%w: bad subject: %w", ErrInvalidToken, err)
	}

	role := c.Role
	if role == "" {
		role = models.RoleTeacher
	}

	return models.User{ID: userID, Role: role}, nil
}

// GetUserFromRequest extracts and validates the bearer token
func (s *Service) GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error) {
	header := r.Header.Get("Authorization")

	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found || tokenString == "" {
		return models.User{}, ErrNoToken
	}

	return s.ParseToken(tokenString)
}
