package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/config"
	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrAdminNotConfigured = errors.New("WARDEN_ADMIN_EMAIL and WARDEN_ADMIN_PASSWORD must be set")
)

// Claims are the bearer token claims accepted by the API. Tokens are minted
// by the identity provider that shares the signing secret.
type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService identifies callers from bearer tokens or basic credentials.
type AuthService struct {
	db     *gorm.DB
	config config.AuthConfig
}

func NewAuthService(db *gorm.DB, cfg config.AuthConfig) *AuthService {
	return &AuthService{db: db, config: cfg}
}

// AuthenticateToken validates an HS256 token and loads the user it names.
func (s *AuthService) AuthenticateToken(ctx context.Context, tokenString string) (*models.User, error) {
	if s.config.JWTSecret == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithIssuer(s.config.JWTIssuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	user, err := s.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !user.Enabled {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

// AuthenticateBasic checks an email/password pair.
func (s *AuthService) AuthenticateBasic(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	if !user.Enabled {
		return nil, ErrAccountDisabled
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		logger.Log().WithError(err).Warn("Failed to record last login")
	}
	user.LastLogin = &now
	return &user, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureAdmin creates the administrator named in the configuration if no
// user with that email exists. It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context) (bool, error) {
	if s.config.AdminEmail == "" || s.config.AdminPassword == "" {
		return false, ErrAdminNotConfigured
	}

	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", s.config.AdminEmail).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("look up admin: %w", err)
	}

	admin := models.User{
		Email:   s.config.AdminEmail,
		Name:    "Administrator",
		Role:    models.RoleAdmin,
		Enabled: true,
	}
	if err := admin.SetPassword(s.config.AdminPassword); err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}

	logger.Log().WithField("email", admin.Email).Info("Administrator account created")
	return true, nil
}
