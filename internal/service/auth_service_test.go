package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/course-management-api/internal/dto"
	"github.com/noah-isme/course-management-api/internal/models"
	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
)

type memBlocklist struct {
	blocked map[string]time.Duration
}

func (b *memBlocklist) Block(ctx context.Context, jti string, ttl time.Duration) error {
	if b.blocked == nil {
		b.blocked = map[string]time.Duration{}
	}
	b.blocked[jti] = ttl
	return nil
}

func (b *memBlocklist) IsBlocked(ctx context.Context, jti string) (bool, error) {
	_, ok := b.blocked[jti]
	return ok, nil
}

var testAuthConfig = AuthConfig{
	AccessTokenSecret:  "secret",
	AccessTokenExpiry:  time.Hour,
	RefreshTokenExpiry: 24 * time.Hour,
	Issuer:             "course-management-api",
}

func newAuthFixture(t *testing.T) (*AuthService, *memStore, *memBlocklist) {
	t.Helper()
	store := newMemStore()
	blocklist := &memBlocklist{}
	return NewAuthService(userStore{store}, blocklist, nil, zap.NewNop(), testAuthConfig), store, blocklist
}

func seedPassword(t *testing.T, u *models.User, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u.PasswordHash = string(hash)
}

func TestAuthServiceRegister(t *testing.T) {
	svc, store, _ := newAuthFixture(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, models.RegisterRequest{Email: " New@Example.com ", Password: "secret1", FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", res.Email)
	assert.Equal(t, models.RoleStudent, res.Role)
	assert.Equal(t, models.TokenTypeBearer, res.Type)
	assert.NotEmpty(t, res.Token)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Contains(t, store.auditActions(), models.AuditActionRegister)

	stored := store.users[res.UserID]
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))

	_, err = svc.Register(ctx, models.RegisterRequest{Email: "new@example.com", Password: "secret1", FirstName: "A", LastName: "B"})
	requireAppError(t, err, appErrors.ErrConflict, "Email is already registered")
}

func TestAuthServiceRegisterRejectsAdminAndInvalidPayload(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{Email: "root@example.com", Password: "secret1", FirstName: "R", LastName: "T", Role: models.RoleAdmin})
	requireAppError(t, err, appErrors.ErrForbidden, "")

	_, err = svc.Register(ctx, models.RegisterRequest{Email: "not-an-email", Password: "123", FirstName: "R", LastName: "T"})
	requireAppError(t, err, appErrors.ErrValidation, "")
	details := appErrors.FromError(err).Details
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
}

func TestAuthServiceLogin(t *testing.T) {
	svc, store, _ := newAuthFixture(t)
	ctx := context.Background()
	user := store.addUser(models.RoleInstructor, "teach@example.com")
	seedPassword(t, user, "password")

	res, err := svc.Login(ctx, models.LoginRequest{Email: "teach@example.com", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.UserID)
	assert.NotNil(t, store.users[user.ID].LastLogin)
	assert.Contains(t, store.auditActions(), models.AuditActionLogin)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "teach@example.com", Password: "wrong"})
	requireAppError(t, err, appErrors.ErrInvalidCredentials, "")

	_, err = svc.Login(ctx, models.LoginRequest{Email: "ghost@example.com", Password: "password"})
	requireAppError(t, err, appErrors.ErrInvalidCredentials, "")

	user.Active = false
	_, err = svc.Login(ctx, models.LoginRequest{Email: "teach@example.com", Password: "password"})
	requireAppError(t, err, appErrors.ErrInactiveAccount, "")
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	svc, store, _ := newAuthFixture(t)
	ctx := context.Background()
	user := store.addUser(models.RoleStudent, "s@example.com")
	store.refreshTokens["old"] = &models.RefreshToken{ID: "rt-1", UserID: user.ID, Token: "old", ExpiresAt: time.Now().Add(time.Hour)}

	res, err := svc.Refresh(ctx, models.RefreshTokenRequest{RefreshToken: "old"})
	require.NoError(t, err)
	assert.NotEqual(t, "old", res.RefreshToken)
	assert.True(t, store.refreshTokens["old"].Revoked)
	require.Contains(t, store.refreshTokens, res.RefreshToken)

	_, err = svc.Refresh(ctx, models.RefreshTokenRequest{RefreshToken: "old"})
	requireAppError(t, err, appErrors.ErrUnauthorized, "")

	_, err = svc.Refresh(ctx, models.RefreshTokenRequest{RefreshToken: "unknown"})
	requireAppError(t, err, appErrors.ErrUnauthorized, "")
}

func TestAuthServiceLogoutRevokesAccessToken(t *testing.T) {
	svc, store, blocklist := newAuthFixture(t)
	ctx := context.Background()
	user := store.addUser(models.RoleStudent, "s@example.com")
	seedPassword(t, user, "password")

	res, err := svc.Login(ctx, models.LoginRequest{Email: user.Email, Password: "password"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)

	require.NoError(t, svc.Logout(ctx, claims, models.LogoutRequest{RefreshToken: res.RefreshToken}))
	assert.True(t, store.refreshTokens[res.RefreshToken].Revoked)
	assert.Contains(t, blocklist.blocked, claims.ID)

	_, err = svc.ValidateToken(ctx, res.Token)
	requireAppError(t, err, appErrors.ErrUnauthorized, "token has been revoked")

	err = svc.Logout(ctx, nil, models.LogoutRequest{})
	requireAppError(t, err, appErrors.ErrUnauthorized, "")
}

func TestAuthServiceLogoutRejectsForeignRefreshToken(t *testing.T) {
	svc, store, _ := newAuthFixture(t)
	owner := store.addUser(models.RoleStudent, "owner@example.com")
	other := store.addUser(models.RoleStudent, "other@example.com")
	store.refreshTokens["tok"] = &models.RefreshToken{ID: "rt-1", UserID: owner.ID, Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}

	err := svc.Logout(context.Background(), claimsFor(other), models.LogoutRequest{RefreshToken: "tok"})
	requireAppError(t, err, appErrors.ErrForbidden, "")
	assert.False(t, store.refreshTokens["tok"].Revoked)
}

func TestAuthServiceChangePassword(t *testing.T) {
	svc, store, _ := newAuthFixture(t)
	ctx := context.Background()
	user := store.addUser(models.RoleStudent, "s@example.com")
	seedPassword(t, user, "old-password")
	store.refreshTokens["tok"] = &models.RefreshToken{ID: "rt-1", UserID: user.ID, Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}

	err := svc.ChangePassword(ctx, claimsFor(user), models.ChangePasswordRequest{OldPassword: "nope", NewPassword: "new-password"})
	requireAppError(t, err, appErrors.ErrForbidden, "")

	require.NoError(t, svc.ChangePassword(ctx, claimsFor(user), models.ChangePasswordRequest{OldPassword: "old-password", NewPassword: "new-password"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(store.users[user.ID].PasswordHash), []byte("new-password")))
	assert.True(t, store.refreshTokens["tok"].Revoked)
}

func TestAuthServiceValidateTokenExpiry(t *testing.T) {
	svc, store, _ := newAuthFixture(t)
	user := store.addUser(models.RoleAdmin, "a@example.com")
	issued := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	svc.now = fixedClock(issued)

	token, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "course-management-api", claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	svc.now = fixedClock(issued.Add(2 * time.Hour))
	_, err = svc.ValidateToken(context.Background(), token)
	requireAppError(t, err, appErrors.ErrUnauthorized, "")

	_, err = svc.ValidateToken(context.Background(), "garbage")
	requireAppError(t, err, appErrors.ErrUnauthorized, "")
}

func TestAuthServiceMe(t *testing.T) {
	svc, store, _ := newAuthFixture(t)
	user := store.addUser(models.RoleStudent, "s@example.com")

	me, err := svc.Me(context.Background(), claimsFor(user))
	require.NoError(t, err)
	assert.Equal(t, user.Email, me.Email)

	_, err = svc.Me(context.Background(), &models.JWTClaims{UserID: "missing", Role: models.RoleStudent})
	requireAppError(t, err, appErrors.ErrNotFound, "User not found")
}

func TestAuthServiceValidateTokenChecksAccountState(t *testing.T) {
	svc, store, _ := newAuthFixture(t)
	admin := store.addUser(models.RoleAdmin, "admin@example.com")
	student := store.addUser(models.RoleStudent, "s@example.com")
	ctx := context.Background()

	token, err := svc.generateAccessToken(student)
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, token)
	require.NoError(t, err)

	users := NewUserService(userStore{store}, nil, zap.NewNop())
	inactive := false
	_, err = users.SetActive(ctx, claimsFor(admin), student.ID, dto.UpdateStatusRequest{Active: &inactive})
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, token)
	requireAppError(t, err, appErrors.ErrInactiveAccount, "account is inactive")

	delete(store.users, student.ID)
	_, err = svc.ValidateToken(ctx, token)
	requireAppError(t, err, appErrors.ErrUnauthorized, "account no longer exists")
}
