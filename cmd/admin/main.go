// Package main provides admin management utilities for City Events.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"cityevents/internal/cache"
	"cityevents/internal/config"
	"cityevents/internal/database"
	"cityevents/internal/models"
	"cityevents/internal/repository"
	"cityevents/internal/validation"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin promote <email>   - Promote user to admin")
		fmt.Println("  go run ./cmd/admin demote <email>    - Demote admin to user")
		fmt.Println("  go run ./cmd/admin list-admins       - List all admins")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	cache.InitRedis(cfg.RedisURL)

	users := repository.NewUserRepository(db)
	ctx := context.Background()

	switch command := os.Args[1]; command {
	case "promote", "demote":
		if len(os.Args) < 3 {
			fmt.Printf("Usage: go run ./cmd/admin %s <email>\n", command)
			os.Exit(1)
		}
		role := models.RoleAdmin
		if command == "demote" {
			role = models.RoleUser
		}
		if err := setRole(ctx, users, os.Args[2], role); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

	case "list-admins":
		if err := listAdmins(ctx, users); err != nil {
			log.Fatalf("Failed to fetch admins: %v", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func setRole(ctx context.Context, users repository.UserRepository, rawEmail string, role models.Role) error {
	email := validation.NormalizeEmail(rawEmail)
	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user with email %s not found", email)
	}
	if user.Role == role {
		fmt.Printf("%s (ID: %d) already has role %s\n", user.Email, user.ID, role)
		return nil
	}

	if _, err := users.UpdateRole(ctx, user.ID, role); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return fmt.Errorf("failed to update role: %w", err)
	}

	fmt.Printf("Set role of %s (ID: %d) to %s\n", user.Email, user.ID, role)
	return nil
}

func listAdmins(ctx context.Context, users repository.UserRepository) error {
	admins, err := users.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}

	if len(admins) == 0 {
		fmt.Println("No admins found in the system")
		return nil
	}

	fmt.Println("Current admins:")
	for _, admin := range admins {
		fmt.Printf("ID: %d | Name: %s | Email: %s\n", admin.ID, admin.Name, admin.Email)
	}
	return nil
}
