// Package bootstrap prepares the shared runtime used by the server and the CLI tools.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cityevents/internal/cache"
	"cityevents/internal/config"
	"cityevents/internal/database"
	"cityevents/internal/middleware"
	"cityevents/internal/models"
	"cityevents/internal/seed"
	"cityevents/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedFixtures bool
}

// InitRuntime connects to DB and Redis, ensures the bootstrap admin and optionally seeds fixtures.
// The Redis client is nil when Redis is not configured or unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap admin account: %w", err)
	}

	if opts.SeedFixtures {
		report, err := seed.Seed(db, seed.Options{})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to seed fixtures: %w", err)
		}
		middleware.Logger.Info("fixtures seeded", slog.String("inserted", report.String()))
	}

	return db, r, nil
}

// EnsureAdmin creates the BOOTSTRAP_ADMIN_* account when it is missing and
// promotes it when it exists with another role. The stored password of an
// existing account is never replaced. It is a no-op unless email and password are set.
func EnsureAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	email := validation.NormalizeEmail(cfg.BootstrapAdminEmail)
	if email == "" || cfg.BootstrapAdminPassword == "" {
		return nil
	}
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("BOOTSTRAP_ADMIN_EMAIL: %w", err)
	}
	if err := validation.ValidatePassword(cfg.BootstrapAdminPassword); err != nil {
		return fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD: %w", err)
	}
	name := strings.TrimSpace(cfg.BootstrapAdminName)
	if name == "" {
		name = "Administrator"
	}

	action := "unchanged"
	var userID uint
	err := db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		findErr := tx.Where("email = ?", email).First(&user).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapAdminPassword), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash admin password: %w", err)
			}
			action = "created"
			return tx.Create(&models.User{
				Email:    email,
				Password: string(hashed),
				Name:     name,
				Role:     models.RoleAdmin,
			}).Error
		case findErr != nil:
			return findErr
		case user.Role != models.RoleAdmin:
			action = "promoted"
			userID = user.ID
			return tx.Model(&models.User{}).Where("id = ?", user.ID).Update("role", models.RoleAdmin).Error
		default:
			return nil
		}
	})
	if err != nil {
		return err
	}
	if userID != 0 {
		cache.InvalidateIdentity(context.Background(), userID)
	}

	middleware.Logger.Info("bootstrap admin ensured", slog.String("email", email), slog.String("action", action))
	return nil
}
