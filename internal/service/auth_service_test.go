package service

import (
	"context"
	"testing"
	"time"

	"cityevents/internal/cache"
	"cityevents/internal/config"
	"cityevents/internal/middleware"
	"cityevents/internal/models"
	"cityevents/internal/repository"
	"cityevents/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func testAuthConfig() *config.Config {
	return &config.Config{
		JWTSecret:   "test-secret-with-enough-length-0123456789",
		JWTIssuer:   "cityevents-api",
		JWTAudience: "cityevents-client",
	}
}

func newAuthService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	return NewAuthService(repository.NewUserRepository(db), testAuthConfig()), db
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	svc, db := newAuthService(t)

	user, err := svc.Register(ctx, RegisterInput{Email: "  Ona@Example.com ", Password: "longenough", Name: " Ona "})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "ona@example.com", user.Email)
	assert.Equal(t, "Ona", user.Name)
	assert.Equal(t, models.RoleUser, user.Role)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.NotEqual(t, "longenough", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("longenough")))

	tests := []struct {
		name string
		in   RegisterInput
		code string
	}{
		{"blank email", RegisterInput{Email: " ", Password: "longenough", Name: "A"}, models.CodeValidation},
		{"blank name", RegisterInput{Email: "a@example.com", Password: "longenough", Name: "  "}, models.CodeValidation},
		{"blank password", RegisterInput{Email: "a@example.com", Password: "        ", Name: "A"}, models.CodeValidation},
		{"malformed email", RegisterInput{Email: "not-an-email", Password: "longenough", Name: "A"}, models.CodeValidation},
		{"short password", RegisterInput{Email: "a@example.com", Password: "short", Name: "A"}, models.CodeValidation},
		{"duplicate email", RegisterInput{Email: "ONA@example.com", Password: "longenough", Name: "B"}, models.CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assertAppError(t, err, tt.code)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)
	fixed := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	registered, err := svc.Register(ctx, RegisterInput{Email: "jonas@example.com", Password: "password123", Name: "Jonas"})
	require.NoError(t, err)

	session, err := svc.Login(ctx, "Jonas@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, session.User.ID)
	assert.Equal(t, fixed.Add(8*time.Hour), session.ExpiresAt)

	_, err = svc.Login(ctx, "jonas@example.com", "wrong-password")
	assertAppError(t, err, models.CodeUnauthorized)
	wrongPassword := err.Error()

	_, err = svc.Login(ctx, "nobody@example.com", "password123")
	assertAppError(t, err, models.CodeUnauthorized)
	assert.Equal(t, wrongPassword, err.Error())

	_, err = svc.Login(ctx, "", "password123")
	assertAppError(t, err, models.CodeValidation)
}

func TestAuthService_AuthenticateUsesStoredRole(t *testing.T) {
	ctx := context.Background()
	svc, db := newAuthService(t)
	users := repository.NewUserRepository(db)

	_, err := svc.Register(ctx, RegisterInput{Email: "rima@example.com", Password: "password123", Name: "Rima"})
	require.NoError(t, err)
	session, err := svc.Login(ctx, "rima@example.com", "password123")
	require.NoError(t, err)

	identity, _, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, identity.Role)
	assert.Equal(t, "Rima", identity.Name)

	_, err = users.UpdateRole(ctx, identity.ID, models.RoleAdmin)
	require.NoError(t, err)

	identity, claims, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, identity.Role)
	assert.Equal(t, models.RoleUser, claims.Role)

	require.NoError(t, db.Delete(&models.User{}, identity.ID).Error)
	_, _, err = svc.Authenticate(ctx, session.Token)
	assertAppError(t, err, models.CodeUnauthorized)

	_, _, err = svc.Authenticate(ctx, "garbage")
	assertAppError(t, err, models.CodeUnauthorized)
}

func TestAuthService_LogoutRevokesToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(client)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = client.Close()
	})

	ctx := context.Background()
	svc, _ := newAuthService(t)
	_, err := svc.Register(ctx, RegisterInput{Email: "egle@example.com", Password: "password123", Name: "Eglė"})
	require.NoError(t, err)
	session, err := svc.Login(ctx, "egle@example.com", "password123")
	require.NoError(t, err)

	_, claims, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, claims.JTI, claims.ExpiresAt))
	assert.True(t, mr.Exists(cache.BlacklistKey(claims.JTI)))

	_, _, err = svc.Authenticate(ctx, session.Token)
	assertAppError(t, err, models.CodeUnauthorized)
}

func TestAuthService_TokenOptionsMatchIssued(t *testing.T) {
	svc, _ := newAuthService(t)
	token, _, err := middleware.IssueToken(svc.TokenOptions(), 3, models.RoleUser, time.Hour, time.Now())
	require.NoError(t, err)
	claims, err := middleware.ParseToken(svc.TokenOptions(), token)
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.UserID)
}
