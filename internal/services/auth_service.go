package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pulseesg/backend/internal/logger"
	"github.com/pulseesg/backend/internal/models"
	"github.com/pulseesg/backend/internal/repository"
	"github.com/rotisserie/eris"
	"golang.org/x/crypto/bcrypt"
)

const (
	devJWTSecret      = "pulseesg-development-secret"
	minPasswordLength = 6
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid token")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrAnalystNotFound    = errors.New("analyst not found")
)

// AnalystStore is the persistence the auth flow needs.
type AnalystStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Analyst, error)
	FindByID(ctx context.Context, id uint) (*models.Analyst, error)
	Create(ctx context.Context, analyst *models.Analyst) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
	List(ctx context.Context, limit, offset int) ([]models.Analyst, int64, error)
}

// Claims carried by access tokens. Subject is the analyst email.
type Claims struct {
	AnalystID uint               `json:"analyst_id"`
	Role      models.AnalystRole `json:"role"`
	jwt.RegisteredClaims
}

type AuthResult struct {
	Token     string             `json:"token"`
	Role      models.AnalystRole `json:"role"`
	ExpiresAt time.Time          `json:"expiresAt"`
}

type AuthService struct {
	analysts AnalystStore
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewAuthService signs tokens with secret. An empty secret falls back to a
// fixed development key.
func NewAuthService(analysts AnalystStore, secret string, ttl time.Duration) *AuthService {
	if secret == "" {
		logger.Warn("JWT_SECRET not set, using development signing key", nil)
		secret = devJWTSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		analysts: analysts,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Register creates an ANALYST account and signs a token for it.
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	return s.CreateAnalyst(ctx, email, password, models.RoleAnalyst)
}

// CreateAnalyst is used by Register and by the seed command for admins.
func (s *AuthService) CreateAnalyst(ctx context.Context, email, password string, role models.AnalystRole) (*AuthResult, error) {
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	if !role.Valid() {
		return nil, eris.Errorf("unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, eris.Wrap(err, "hash password")
	}

	analyst := &models.Analyst{
		Email:    strings.TrimSpace(email),
		Password: string(hash),
		Role:     role,
	}
	if err := s.analysts.Create(ctx, analyst); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	logger.WithUser(analyst.ID, analyst.Email).WithField("role", analyst.Role).Info("Analyst registered")
	return s.issue(analyst)
}

// Login checks the password and signs a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	analyst, err := s.analysts.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(analyst.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(analyst)
}

// ChangePassword requires the current password.
func (s *AuthService) ChangePassword(ctx context.Context, analystID uint, current, next string) error {
	analyst, err := s.Profile(ctx, analystID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(analyst.Password), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if len(next) < minPasswordLength {
		return ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return eris.Wrap(err, "hash password")
	}
	return s.analysts.UpdatePassword(ctx, analystID, string(hash))
}

func (s *AuthService) Profile(ctx context.Context, analystID uint) (*models.Analyst, error) {
	analyst, err := s.analysts.FindByID(ctx, analystID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAnalystNotFound
	}
	return analyst, err
}

func (s *AuthService) ListAnalysts(ctx context.Context, limit, offset int) ([]models.Analyst, int64, error) {
	return s.analysts.List(ctx, limit, offset)
}

// ParseToken verifies signature, algorithm and expiry.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) issue(analyst *models.Analyst) (*AuthResult, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		AnalystID: analyst.ID,
		Role:      analyst.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   analyst.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, eris.Wrap(err, "sign token")
	}
	return &AuthResult{Token: signed, Role: analyst.Role, ExpiresAt: expiresAt}, nil
}
