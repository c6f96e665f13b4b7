package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/config"
	"github.com/Wikid82/warden/internal/models"
)

const testJWTSecret = "test-secret"

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:     testJWTSecret,
		JWTIssuer:     "warden",
		AdminEmail:    "admin@example.com",
		AdminPassword: "changeme123",
	}
}

func createUser(t *testing.T, db *gorm.DB, email, role string, enabled bool) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: "Test", Role: role}
	require.NoError(t, user.SetPassword("password123"))
	require.NoError(t, db.Create(user).Error)
	if !enabled {
		// Enabled has a column default, so false must be written explicitly.
		require.NoError(t, db.Model(user).Update("enabled", false).Error)
		user.Enabled = false
	}
	return user
}

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func claimsFor(user *models.User, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "warden",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func TestAuthService_AuthenticateToken(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testAuthConfig())
	ctx := context.Background()
	user := createUser(t, db, "admin@example.com", models.RoleAdmin, true)

	got, err := svc.AuthenticateToken(ctx, signToken(t, testJWTSecret, claimsFor(user, time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.True(t, got.IsAdmin())
}

func TestAuthService_AuthenticateToken_Rejections(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testAuthConfig())
	ctx := context.Background()
	user := createUser(t, db, "admin@example.com", models.RoleAdmin, true)
	disabled := createUser(t, db, "old@example.com", models.RoleAdmin, false)

	_, err := svc.AuthenticateToken(ctx, signToken(t, testJWTSecret, claimsFor(user, -time.Minute)))
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = svc.AuthenticateToken(ctx, signToken(t, "other-secret", claimsFor(user, time.Hour)))
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := claimsFor(user, time.Hour)
	wrongIssuer.Issuer = "someone-else"
	_, err = svc.AuthenticateToken(ctx, signToken(t, testJWTSecret, wrongIssuer))
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExpiry := claimsFor(user, time.Hour)
	noExpiry.ExpiresAt = nil
	_, err = svc.AuthenticateToken(ctx, signToken(t, testJWTSecret, noExpiry))
	assert.ErrorIs(t, err, ErrInvalidToken)

	unknown := claimsFor(user, time.Hour)
	unknown.UserID = 4242
	_, err = svc.AuthenticateToken(ctx, signToken(t, testJWTSecret, unknown))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.AuthenticateToken(ctx, signToken(t, testJWTSecret, claimsFor(disabled, time.Hour)))
	assert.ErrorIs(t, err, ErrAccountDisabled)

	_, err = svc.AuthenticateToken(ctx, "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claimsFor(user, time.Hour)).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.AuthenticateToken(ctx, none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_AuthenticateToken_NoSecret(t *testing.T) {
	db := setupTestDB(t)
	cfg := testAuthConfig()
	cfg.JWTSecret = ""
	svc := NewAuthService(db, cfg)
	user := createUser(t, db, "admin@example.com", models.RoleAdmin, true)

	_, err := svc.AuthenticateToken(context.Background(), signToken(t, "unused-secret", claimsFor(user, time.Hour)))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_AuthenticateBasic(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testAuthConfig())
	ctx := context.Background()
	createUser(t, db, "mod@example.com", models.RoleAdmin, true)
	createUser(t, db, "gone@example.com", models.RoleAdmin, false)

	user, err := svc.AuthenticateBasic(ctx, "mod@example.com", "password123")
	require.NoError(t, err)
	require.NotNil(t, user.LastLogin)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.NotNil(t, stored.LastLogin)

	_, err = svc.AuthenticateBasic(ctx, "mod@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.AuthenticateBasic(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.AuthenticateBasic(ctx, "gone@example.com", "password123")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testAuthConfig())
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx)
	require.NoError(t, err)
	assert.False(t, created)

	user, err := svc.AuthenticateBasic(ctx, "admin@example.com", "changeme123")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
	assert.NotEmpty(t, user.UUID)
}

func TestAuthService_EnsureAdmin_NotConfigured(t *testing.T) {
	svc := NewAuthService(setupTestDB(t), config.AuthConfig{AdminEmail: "admin@example.com"})
	_, err := svc.EnsureAdmin(context.Background())
	assert.ErrorIs(t, err, ErrAdminNotConfigured)
}
