package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"cityevents/internal/cache"
	"cityevents/internal/config"
	"cityevents/internal/middleware"
	"cityevents/internal/models"
	"cityevents/internal/observability"
	"cityevents/internal/repository"
	"cityevents/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "Invalid email or password"

type AuthService struct {
	users  repository.UserRepository
	tokens middleware.TokenOptions
	ttl    time.Duration
	now    func() time.Time
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

func NewAuthService(users repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		users: users,
		tokens: middleware.TokenOptions{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
		ttl: cfg.TokenTTL(),
		now: time.Now,
	}
}

// TokenOptions exposes the verification parameters for the authentication middleware.
func (s *AuthService) TokenOptions() middleware.TokenOptions {
	return s.tokens
}

// Register creates a USER account.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := validation.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" || strings.TrimSpace(in.Password) == "" {
		return nil, models.NewValidationError("Email, password and name are required")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if len(name) > validation.MaxNameLength {
		return nil, models.NewValidationError("Name must not exceed 100 characters")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		observability.AuthAttempts.WithLabelValues("register_conflict").Inc()
		return nil, models.NewConflictError("Email is already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hashed),
		Name:     name,
		Role:     models.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.AuthAttempts.WithLabelValues("register_success").Inc()
	return user, nil
}

// Login checks credentials and issues a token. Unknown email and wrong
// password fail with the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = validation.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		observability.AuthAttempts.WithLabelValues("login_failure").Inc()
		return nil, models.NewUnauthorizedError(invalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		observability.AuthAttempts.WithLabelValues("login_failure").Inc()
		return nil, models.NewUnauthorizedError(invalidCredentials)
	}

	token, claims, err := middleware.IssueToken(s.tokens, user.ID, user.Role, s.ttl, s.now())
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	observability.AuthAttempts.WithLabelValues("login_success").Inc()
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt, User: user}, nil
}

// Logout revokes the token identified by jti until it expires.
func (s *AuthService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if err := cache.RevokeToken(ctx, jti, expiresAt); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Authenticate verifies a bearer token and resolves the caller from the stored user,
// so the role on the identity is the current one rather than the one in the token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Identity, *middleware.TokenClaims, error) {
	claims, err := middleware.ParseToken(s.tokens, token)
	if err != nil {
		return nil, nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	revoked, err := cache.IsTokenRevoked(ctx, claims.JTI)
	if err != nil {
		observability.RedisErrorRate.WithLabelValues("blacklist").Inc()
	} else if revoked {
		return nil, nil, models.NewUnauthorizedError("Token has been revoked")
	}

	identity, err := s.users.GetIdentity(ctx, claims.UserID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return nil, nil, models.NewUnauthorizedError("User no longer exists")
		}
		return nil, nil, err
	}
	return identity, claims, nil
}
