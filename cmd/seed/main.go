// Command main loads the demo fixtures, and optionally generated data, into the database.
package main

import (
	"flag"
	"log"

	"cityevents/internal/config"
	"cityevents/internal/database"
	"cityevents/internal/seed"
)

func main() {
	fake := flag.Int("fake", 0, "Number of generated users, each with events and ratings")
	shouldClean := flag.Bool("clean", false, "Delete all users, categories, events and ratings first")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	report, err := seed.Seed(db, seed.Options{FakeUsers: *fake, ShouldClean: *shouldClean})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeding complete: %s", report)
	log.Println("Fixture logins: admin@example.com / AdminPassword123, user@example.com / UserPassword123")
	if *fake > 0 {
		log.Println("Generated users share the password FakePassword123")
	}
}
