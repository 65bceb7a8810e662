package handler

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/verustcode/materiality/internal/api/middleware"
	"github.com/verustcode/materiality/internal/config"
	"github.com/verustcode/materiality/pkg/errors"
	"github.com/verustcode/materiality/pkg/idgen"
	"github.com/verustcode/materiality/pkg/logger"
)

const (
	// RememberMeExpirationHours is the token lifetime when "remember me" is set (7 days)
	RememberMeExpirationHours = 168

	tokenIssuer         = "materiality"
	defaultExpiryHours  = 24
	generatedSecretSize = 32
)

// AuthHandler handles admin authentication
type AuthHandler struct {
	mu         sync.RWMutex
	admin      *config.AdminConfig
	configPath string
}

// NewAuthHandler creates a new auth handler. configPath is where a password
// set through the setup endpoint is persisted.
func NewAuthHandler(cfg *config.Config, configPath string) *AuthHandler {
	if configPath == "" {
		configPath = config.ConfigPath
	}
	return &AuthHandler{admin: cfg.Admin, configPath: configPath}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// Claims represents JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (h *AuthHandler) adminConfig() *config.AdminConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.admin
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.New(errors.ErrCodeValidation, "invalid request body"))
		return
	}

	admin := h.adminConfig()
	if admin == nil || !admin.Enabled {
		abortWithError(c, errors.New(errors.ErrCodeUnauthorized, "admin endpoints are not enabled"))
		return
	}

	invalid := errors.New(errors.ErrCodeUnauthorized, "invalid username or password")
	if req.Username != admin.Username || admin.PasswordHash == "" {
		logger.Warn("Invalid login attempt", zap.String("username", req.Username))
		abortWithError(c, invalid)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		logger.Warn("Invalid login attempt", zap.String("username", req.Username))
		abortWithError(c, invalid)
		return
	}

	hours := admin.TokenExpiration
	if req.RememberMe {
		hours = RememberMeExpirationHours
	}
	if hours <= 0 {
		hours = defaultExpiryHours
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)

	claims := &Claims{
		Username: req.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(admin.JWTSecret))
	if err != nil {
		abortWithError(c, errors.ErrInternal("failed to sign token", err))
		return
	}

	logger.Info("Admin logged in", zap.String("username", req.Username))
	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	username := c.GetString(middleware.ContextUsername)
	if username == "" {
		abortWithError(c, errors.New(errors.ErrCodeUnauthorized, "not authenticated"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": username})
}

// ValidateToken implements middleware.TokenValidator
func (h *AuthHandler) ValidateToken(tokenString string) (string, error) {
	admin := h.adminConfig()
	if admin == nil || !admin.Enabled {
		return "", fmt.Errorf("admin endpoints are not enabled")
	}
	if admin.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(admin.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return "", err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims.Username, nil
	}
	return "", jwt.ErrSignatureInvalid
}

// SetupStatusResponse represents the setup status response
type SetupStatusResponse struct {
	NeedsSetup bool `json:"needs_setup"`
}

// SetupPasswordRequest represents the setup password request body
type SetupPasswordRequest struct {
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

func (h *AuthHandler) passwordSet() bool {
	admin := h.adminConfig()
	return admin != nil && admin.PasswordHash != ""
}

// GetSetupStatus handles GET /api/v1/auth/setup/status.
// Once a password exists the endpoint answers 404.
func (h *AuthHandler) GetSetupStatus(c *gin.Context) {
	if h.passwordSet() {
		abortWithError(c, errors.New(errors.ErrCodeNotFound, "not found"))
		return
	}
	c.JSON(http.StatusOK, SetupStatusResponse{NeedsSetup: true})
}

// SetupPassword handles POST /api/v1/auth/setup: the first admin password is
// set without authentication and written back to the bootstrap file.
func (h *AuthHandler) SetupPassword(c *gin.Context) {
	if h.passwordSet() {
		logger.Warn("Setup called with a password already set", zap.String("client_ip", c.ClientIP()))
		abortWithError(c, errors.New(errors.ErrCodeNotFound, "not found"))
		return
	}

	var req SetupPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.New(errors.ErrCodeValidation, "invalid request body"))
		return
	}
	if req.Password != req.ConfirmPassword {
		abortWithError(c, errors.New(errors.ErrCodeValidation, "passwords do not match"))
		return
	}
	if err := config.ValidatePassword(req.Password, config.DefaultPasswordRequirements()); err != nil {
		abortWithError(c, errors.New(errors.ErrCodePasswordComplexity, err.Error()))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		abortWithError(c, errors.ErrInternal("failed to hash password", err))
		return
	}
	secret := idgen.NewSecureSecret(generatedSecretSize)
	if err := config.UpdatePasswordHashInConfig(h.configPath, string(hash), secret); err != nil {
		abortWithError(c, errors.Wrap(errors.ErrCodeConfigInvalid, "failed to save password", err))
		return
	}

	cfg, err := config.Load(h.configPath)
	if err != nil {
		abortWithError(c, errors.Wrap(errors.ErrCodeConfigInvalid, "failed to reload configuration", err))
		return
	}
	h.mu.Lock()
	h.admin = cfg.Admin
	h.mu.Unlock()

	logger.Info("Admin password set through setup endpoint")
	c.JSON(http.StatusOK, gin.H{"message": "password set"})
}
