package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/course-management-api/internal/models"
	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string, revokedAt time.Time) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type tokenBlocklist interface {
	Block(ctx context.Context, jti string, ttl time.Duration) error
	IsBlocked(ctx context.Context, jti string) (bool, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	SingleSession      bool
}

// AuthService registers users and issues, rotates and revokes tokens.
type AuthService struct {
	repo      authUserRepository
	blocklist tokenBlocklist
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance. blocklist may be nil.
func NewAuthService(repo authUserRepository, blocklist tokenBlocklist, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &AuthService{repo: repo, blocklist: blocklist, validator: validate, logger: logger, config: config, now: func() time.Time { return time.Now().UTC() }}
}

// Register creates a new account and signs it in.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid registration payload")
	}
	if req.Role == "" {
		req.Role = models.RoleStudent
	}
	if req.Role == models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admin accounts cannot be self-registered")
	}

	exists, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, internalError(err, "failed to check email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "Email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         req.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if isDuplicate(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "Email is already registered")
		}
		return nil, internalError(err, "failed to create user")
	}

	recordAudit(ctx, s.repo, s.logger, auditEntry{
		actorID: user.ID, action: models.AuditActionRegister, resource: "auth", resourceID: user.ID,
		newValues: map[string]interface{}{"email": user.Email, "role": user.Role},
		ip:        req.IP, userAgent: req.UserAgent,
	})

	return s.issue(ctx, user, req.IP, req.UserAgent)
}

// Login authenticates a user and returns issued tokens.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, internalError(err, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if s.config.SingleSession {
		if err := s.repo.RevokeUserRefreshTokens(ctx, user.ID, s.now()); err != nil {
			s.logger.Warn("failed to revoke previous refresh tokens", zap.Error(err))
		}
	}

	resp, err := s.issue(ctx, user, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	recordAudit(ctx, s.repo, s.logger, auditEntry{
		actorID: user.ID, action: models.AuditActionLogin, resource: "auth", resourceID: user.ID,
		newValues: map[string]string{"status": "success"}, ip: req.IP, userAgent: req.UserAgent,
	})

	return resp, nil
}

// Refresh exchanges a refresh token for a new token pair, revoking the used one.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshTokenRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidator(err, "invalid refresh payload")
	}

	storedToken, err := s.repo.FindRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
		}
		return nil, internalError(err, "failed to fetch refresh token")
	}

	if !storedToken.Usable(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
	}

	user, err := s.repo.FindByID(ctx, storedToken.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "associated user no longer exists")
		}
		return nil, internalError(err, "failed to load user")
	}

	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if err := s.repo.RevokeRefreshToken(ctx, storedToken.ID, s.now()); err != nil {
		s.logger.Warn("failed to revoke used refresh token", zap.Error(err))
	}

	resp, err := s.issue(ctx, user, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.repo, s.logger, auditEntry{
		actorID: user.ID, action: models.AuditActionTokenRefresh, resource: "auth", resourceID: user.ID,
		newValues: map[string]string{"refresh": "rotated"}, ip: req.IP, userAgent: req.UserAgent,
	})

	return resp, nil
}

// Logout revokes the caller's access token and, when given, their refresh token.
func (s *AuthService) Logout(ctx context.Context, actor *models.JWTClaims, req models.LogoutRequest) error {
	if err := authorize(actor, anyRole...); err != nil {
		return err
	}

	if req.RefreshToken != "" {
		storedToken, err := s.repo.FindRefreshToken(ctx, req.RefreshToken)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
			}
			return internalError(err, "failed to load refresh token")
		}
		if storedToken.UserID != actor.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "token does not belong to user")
		}
		if err := s.repo.RevokeRefreshToken(ctx, storedToken.ID, s.now()); err != nil {
			return internalError(err, "failed to revoke refresh token")
		}
	}

	if s.blocklist != nil && actor.ExpiresAt != nil {
		ttl := actor.ExpiresAt.Time.Sub(s.now())
		if err := s.blocklist.Block(ctx, actor.ID, ttl); err != nil {
			s.logger.Warn("failed to blocklist access token", zap.Error(err))
		}
	}

	recordAudit(ctx, s.repo, s.logger, auditEntry{
		actorID: actor.UserID, action: models.AuditActionLogout, resource: "auth", resourceID: actor.UserID,
		newValues: map[string]string{"status": "logout"}, ip: req.IP, userAgent: req.UserAgent,
	})
	return nil
}

// ChangePassword replaces the caller's password and revokes their refresh tokens.
func (s *AuthService) ChangePassword(ctx context.Context, actor *models.JWTClaims, req models.ChangePasswordRequest) error {
	if err := authorize(actor, anyRole...); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.FromValidator(err, "invalid change password payload")
	}

	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		return lookupError(err, "User not found", "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return internalError(err, "failed to hash password")
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, string(newHash), s.now()); err != nil {
		return internalError(err, "failed to update password")
	}

	if err := s.repo.RevokeUserRefreshTokens(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("failed to revoke refresh tokens after password change", zap.Error(err))
	}

	recordAudit(ctx, s.repo, s.logger, auditEntry{
		actorID: user.ID, action: models.AuditActionPasswordChange, resource: "auth", resourceID: user.ID,
		newValues: map[string]string{"status": "changed"},
	})
	return nil
}

// Me returns the caller's stored profile.
func (s *AuthService) Me(ctx context.Context, actor *models.JWTClaims) (*models.User, error) {
	if err := authorize(actor, anyRole...); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, lookupError(err, "User not found", "failed to load user")
	}
	return user, nil
}

// ValidateToken parses an access token and rejects revoked ones as well as tokens of deleted or deactivated accounts.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	if s.blocklist != nil {
		blocked, err := s.blocklist.IsBlocked(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("token blocklist lookup failed", zap.Error(err))
		} else if blocked {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token has been revoked")
		}
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, internalError(err, "failed to load account")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	return claims, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User, ip, userAgent string) (*models.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, internalError(err, "failed to create access token")
	}

	refreshTokenValue, err := s.generateRefreshTokenString()
	if err != nil {
		return nil, internalError(err, "failed to create refresh token")
	}

	now := s.now()
	refreshToken := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     refreshTokenValue,
		ExpiresAt: now.Add(s.config.RefreshTokenExpiry),
		CreatedAt: now,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.repo.CreateRefreshToken(ctx, refreshToken); err != nil {
		return nil, internalError(err, "failed to persist refresh token")
	}

	return &models.AuthResponse{
		Token:        accessToken,
		Type:         models.TokenTypeBearer,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		RefreshToken: refreshToken.Token,
		UserID:       user.ID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Role:         user.Role,
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	issuedAt := s.now()
	claims := &models.JWTClaims{
		UserID:    user.ID,
		Role:      user.Role,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

func (s *AuthService) generateRefreshTokenString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
