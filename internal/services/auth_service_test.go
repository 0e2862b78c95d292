package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pulseesg/backend/internal/models"
	"github.com/pulseesg/backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	db := openSQLite(t)
	require.NoError(t, db.AutoMigrate(&models.Analyst{}))
	return NewAuthService(repository.NewAnalystRepository(db), "test-secret", time.Hour)
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "Analyst@Example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAnalyst, reg.Role)
	assert.NotEmpty(t, reg.Token)

	claims, err := svc.ParseToken(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, "analyst@example.com", claims.Subject)
	assert.Equal(t, models.RoleAnalyst, claims.Role)
	assert.NotZero(t, claims.AnalystID)

	login, err := svc.Login(ctx, "analyst@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAnalyst, login.Role)

	_, err = svc.Login(ctx, "analyst@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuth_RegisterValidation(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@example.com", "123")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.Register(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "A@example.com", "secret2")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.CreateAnalyst(ctx, "b@example.com", "secret1", models.AnalystRole("ROOT"))
	assert.Error(t, err)
}

func TestAuth_ParseTokenRejects(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	res, err := svc.CreateAnalyst(ctx, "admin@example.com", "secret1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, res.Role)

	other := NewAuthService(nil, "another-secret", time.Hour)
	_, err = other.ParseToken(res.Token)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong signing key")

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ParseToken(res.Token)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"role": "ADMIN"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = other.ParseToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken, "alg none")

	_, err = other.ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuth_ChangePassword(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "c@example.com", "secret1")
	require.NoError(t, err)
	analyst, err := repositoryFind(svc, ctx, "c@example.com")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, analyst.ID, "wrong", "secret2"), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.ChangePassword(ctx, analyst.ID, "secret1", "x"), ErrWeakPassword)
	require.NoError(t, svc.ChangePassword(ctx, analyst.ID, "secret1", "secret2"))

	_, err = svc.Login(ctx, "c@example.com", "secret2")
	assert.NoError(t, err)

	_, err = svc.Profile(ctx, 9999)
	assert.ErrorIs(t, err, ErrAnalystNotFound)
}

func repositoryFind(svc *AuthService, ctx context.Context, email string) (*models.Analyst, error) {
	return svc.analysts.FindByEmail(ctx, email)
}

func TestCompanyService(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.AutoMigrate(&models.Company{}, &models.ESGAnalysis{}))
	svc := NewCompanyService(repository.NewCompanyRepository(db))
	ctx := context.Background()

	_, err := svc.Create(ctx, "   ", "Energy", "NO")
	assert.ErrorIs(t, err, ErrCompanyNameRequired)

	c, err := svc.Create(ctx, " Equinor ", " Energy ", "NO")
	require.NoError(t, err)
	assert.Equal(t, "Equinor", c.Name)
	assert.Equal(t, "Energy", c.Sector)
	assert.False(t, c.CreatedAt.IsZero())

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, c.ID))
	assert.ErrorIs(t, svc.Delete(ctx, c.ID), ErrCompanyNotFound)
}
