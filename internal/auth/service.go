package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sipas/persuratan/internal/config"
	"github.com/sipas/persuratan/internal/database"
	"github.com/sipas/persuratan/internal/logging"
	"github.com/sipas/persuratan/internal/models"
)

// UserStore is the subset of the user table the auth service needs
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByNIP(ctx context.Context, nip string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

// Claims are the access token claims
type Claims struct {
	NIP  string      `json:"nip"`
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the token subject
func (c *Claims) UserID() string {
	return c.Subject
}

// Service handles authentication operations
type Service struct {
	config    config.AuthConfig
	userStore UserStore
	logger    *logging.Logger
	now       func() time.Time
}

// NewService creates a new auth service
func NewService(userStore UserStore, cfg config.AuthConfig, logger *logging.Logger) *Service {
	return &Service{
		config:    cfg,
		userStore: userStore,
		logger:    logger,
		now:       time.Now,
	}
}

// Login authenticates a user with NIP/password
func (s *Service) Login(ctx context.Context, params models.LoginParams) (*models.AuthResponse, error) {
	nip := models.NormalizeNIP(params.NIP)

	if nip == "" || params.Password == "" {
		return nil, &AuthError{Code: "invalid_input", Message: "NIP and password are required"}
	}

	user, err := s.userStore.GetByNIP(ctx, nip)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &AuthError{Code: "invalid_credentials", Message: "invalid NIP or password"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(params.Password)); err != nil {
		return nil, &AuthError{Code: "invalid_credentials", Message: "invalid NIP or password"}
	}

	// checked after the password so disabled accounts cannot be probed
	if !user.IsActive() {
		return nil, &AuthError{Code: "account_disabled", Message: "account is disabled"}
	}

	if err := s.userStore.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("Failed to update last login", logging.WithField("error", err.Error()))
	}

	tokens, err := s.generateTokens(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.logger.Info("User logged in", logging.WithFields(map[string]interface{}{
		"userId": user.ID,
		"nip":    user.NIP,
		"role":   user.Role,
	}))

	return &models.AuthResponse{
		User:   user,
		Tokens: tokens,
	}, nil
}

// ValidateAccessToken validates a JWT access token and returns its claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithIssuer(s.config.JWTIssuer),
		jwt.WithAudience(s.config.JWTAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, &AuthError{Code: "invalid_token", Message: "invalid or expired token"}
	}

	if claims.Subject == "" {
		return nil, &AuthError{Code: "invalid_token", Message: "invalid token subject"}
	}
	if !models.IsValidRole(claims.Role) {
		return nil, &AuthError{Code: "invalid_token", Message: "invalid token role"}
	}

	return claims, nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.userStore.GetByID(ctx, userID)
}

// HashPassword hashes a password with the configured bcrypt cost
func (s *Service) HashPassword(password string) (string, error) {
	return HashPassword(password, s.config.BcryptCost)
}

// HashPassword hashes a password with bcrypt; cost 0 means bcrypt.DefaultCost
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) generateTokens(user *models.User) (*models.AuthTokens, error) {
	now := s.now()

	claims := &Claims{
		NIP:  user.NIP,
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.config.JWTIssuer,
			Audience:  jwt.ClaimStrings{s.config.JWTAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenTTL)),
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessTokenString, err := accessToken.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken: accessTokenString,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.config.AccessTokenTTL.Seconds()),
	}, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *AuthError) Error() string {
	return e.Message
}
