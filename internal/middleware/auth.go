// Package middleware provides authentication and authorization middleware for the application.
package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cityevents/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Fiber locals keys set by authentication.
const (
	LocalsUserID   = "userID"
	LocalsIdentity = "user"
	LocalsTokenJTI = "tokenJTI"
	LocalsTokenExp = "tokenExp"
)

var (
	ErrMissingAuthHeader = errors.New("authorization header required")
	ErrMalformedHeader   = errors.New("invalid authorization header format")
	ErrInvalidToken      = errors.New("invalid or expired token")
)

// TokenOptions carries the signing parameters shared by issuing and verifying tokens.
type TokenOptions struct {
	Secret   string
	Issuer   string
	Audience string
}

// TokenClaims is the verified content of an access token.
type TokenClaims struct {
	UserID    uint
	Role      models.Role
	JTI       string
	ExpiresAt time.Time
}

// IssueToken signs an HS256 token for the user that expires ttl after now.
func IssueToken(opts TokenOptions, userID uint, role models.Role, ttl time.Duration, now time.Time) (string, *TokenClaims, error) {
	jti := uuid.NewString()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(userID), 10),
		"role": string(role),
		"iss":  opts.Issuer,
		"aud":  opts.Audience,
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  exp.Unix(),
		"jti":  jti,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(opts.Secret))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, &TokenClaims{UserID: userID, Role: role, JTI: jti, ExpiresAt: time.Unix(exp.Unix(), 0)}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingAuthHeader
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrMalformedHeader
	}
	return parts[1], nil
}

// ParseToken verifies signature, algorithm, issuer, audience and expiry.
func ParseToken(opts TokenOptions, tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(opts.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(opts.Issuer),
		jwt.WithAudience(opts.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidToken
	}

	out := &TokenClaims{UserID: uint(userID)}
	if role, ok := claims["role"].(string); ok {
		out.Role = models.Role(role)
	}
	if jti, ok := claims["jti"].(string); ok {
		out.JTI = jti
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// CurrentIdentity returns the identity attached by authentication, or nil.
func CurrentIdentity(c *fiber.Ctx) *models.Identity {
	identity, _ := c.Locals(LocalsIdentity).(*models.Identity)
	return identity
}

// SetIdentity attaches the resolved caller to the request.
func SetIdentity(c *fiber.Ctx, identity *models.Identity) {
	c.Locals(LocalsIdentity, identity)
	c.Locals(LocalsUserID, identity.ID)
	c.SetUserContext(WithUserID(c.UserContext(), identity.ID))
}

// RequireRole allows only callers whose role equals role exactly.
func RequireRole(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := CurrentIdentity(c)
		if identity == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authentication required"))
		}
		if identity.Role != role {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Insufficient permissions"))
		}
		return c.Next()
	}
}

// RequireCapability allows only callers whose role grants capability.
func RequireCapability(capability models.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := CurrentIdentity(c)
		if identity == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authentication required"))
		}
		if !models.HasCapability(identity, capability) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Insufficient permissions"))
		}
		return c.Next()
	}
}
