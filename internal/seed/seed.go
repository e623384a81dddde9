// Package seed loads demo data into the application database.
// It is intended for development and testing only.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"cityevents/internal/cache"
	"cityevents/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

// Options configuration for the seeder
type Options struct {
	// FakeUsers adds that many generated users, each with events and ratings.
	FakeUsers int
	// ShouldClean removes all ratings, events, categories and users first.
	ShouldClean bool
}

// Fixtures is the fixed demo data set.
type Fixtures struct {
	Users      []UserFixture  `yaml:"users"`
	Categories []string       `yaml:"categories"`
	Events     []EventFixture `yaml:"events"`
}

type UserFixture struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
}

type EventFixture struct {
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	Location      string `yaml:"location"`
	StartInDays   int    `yaml:"start_in_days"`
	DurationHours int    `yaml:"duration_hours"`
	Category      string `yaml:"category"`
	Author        string `yaml:"author"`
	Status        string `yaml:"status"`
}

// Report counts the rows a run inserted. Rows that already existed are not counted.
type Report struct {
	Users      int
	Categories int
	Events     int
	Ratings    int
}

func (r Report) String() string {
	return fmt.Sprintf("users=%d categories=%d events=%d ratings=%d", r.Users, r.Categories, r.Events, r.Ratings)
}

// LoadFixtures parses the embedded fixture file.
func LoadFixtures() (*Fixtures, error) {
	return parseFixtures(fixturesYAML)
}

func parseFixtures(raw []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for i, u := range f.Users {
		if _, ok := models.ParseRole(u.Role); !ok {
			return nil, fmt.Errorf("fixture user %d: unknown role %q", i, u.Role)
		}
	}
	for i, e := range f.Events {
		if _, ok := models.ParseEventStatus(e.Status); !ok {
			return nil, fmt.Errorf("fixture event %d: unknown status %q", i, e.Status)
		}
	}
	return &f, nil
}

// Seed applies the fixtures and then any generated data. Running it twice
// leaves the fixture rows unchanged.
func Seed(db *gorm.DB, opts Options) (Report, error) {
	var report Report

	fixtures, err := LoadFixtures()
	if err != nil {
		return report, err
	}

	if opts.ShouldClean {
		if err := Clean(db); err != nil {
			return report, err
		}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return applyFixtures(tx, fixtures, &report)
	})
	if err != nil {
		return report, err
	}

	if opts.FakeUsers > 0 {
		f := NewFactory(db)
		if err := f.Generate(opts.FakeUsers, &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// Clean deletes every row the seeder can create, children first, then drops
// cached identities and the category list so deleted users stop authenticating.
func Clean(db *gorm.DB) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Rating{}, &models.Event{}, &models.Category{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clean %T: %w", model, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	ctx := context.Background()
	cache.InvalidateCategories(ctx)
	if err := cache.InvalidateAllIdentities(ctx); err != nil {
		return fmt.Errorf("clear cached identities: %w", err)
	}
	return nil
}

func applyFixtures(tx *gorm.DB, f *Fixtures, report *Report) error {
	users := make(map[string]*models.User, len(f.Users))
	for _, u := range f.Users {
		user, created, err := ensureUser(tx, u)
		if err != nil {
			return err
		}
		if created {
			report.Users++
		}
		users[user.Email] = user
	}

	categories := make(map[string]*models.Category, len(f.Categories))
	for _, name := range f.Categories {
		category, created, err := ensureCategory(tx, name)
		if err != nil {
			return err
		}
		if created {
			report.Categories++
		}
		categories[name] = category
	}

	for _, e := range f.Events {
		author, ok := users[strings.ToLower(e.Author)]
		if !ok {
			return fmt.Errorf("event %q: unknown author %q", e.Title, e.Author)
		}
		category, ok := categories[e.Category]
		if !ok {
			return fmt.Errorf("event %q: unknown category %q", e.Title, e.Category)
		}
		created, err := ensureEvent(tx, e, author, category)
		if err != nil {
			return err
		}
		if created {
			report.Events++
		}
	}
	return nil
}

func ensureUser(tx *gorm.DB, u UserFixture) (*models.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	var user models.User
	err := tx.Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("hash password for %s: %w", email, err)
	}
	role, _ := models.ParseRole(u.Role)
	user = models.User{Email: email, Password: string(hashed), Name: u.Name, Role: role}
	if err := tx.Create(&user).Error; err != nil {
		return nil, false, err
	}
	return &user, true, nil
}

func ensureCategory(tx *gorm.DB, name string) (*models.Category, bool, error) {
	var category models.Category
	err := tx.Where("name = ?", name).First(&category).Error
	if err == nil {
		return &category, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	category = models.Category{Name: name}
	if err := tx.Create(&category).Error; err != nil {
		return nil, false, err
	}
	return &category, true, nil
}

func ensureEvent(tx *gorm.DB, e EventFixture, author *models.User, category *models.Category) (bool, error) {
	var count int64
	if err := tx.Model(&models.Event{}).
		Where("title = ? AND author_id = ?", e.Title, author.ID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	status, _ := models.ParseEventStatus(e.Status)
	start := time.Now().UTC().Truncate(time.Hour).Add(time.Duration(e.StartInDays) * 24 * time.Hour)
	event := models.Event{
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		StartTime:   start,
		Status:      status,
		CategoryID:  category.ID,
		AuthorID:    author.ID,
	}
	if e.DurationHours > 0 {
		end := start.Add(time.Duration(e.DurationHours) * time.Hour)
		event.EndTime = &end
	}
	if err := tx.Create(&event).Error; err != nil {
		return false, err
	}
	return true, nil
}
