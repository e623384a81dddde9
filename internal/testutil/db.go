// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"time"

	"cityevents/internal/database"
	"cityevents/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Fatalf(string, ...any)
	Cleanup(func())
}

// OpenTestDB returns an in-memory SQLite database with every persistent model migrated.
// The pool is pinned to one connection so all queries see the same memory database.
func OpenTestDB(t TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// CreateUser inserts a user with a fake name and a unique email.
// The stored password is not a valid bcrypt hash.
func CreateUser(t TB, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	user := &models.User{
		Email:    strings.ToLower(gofakeit.Username()) + "." + gofakeit.LetterN(6) + "@example.com",
		Password: "not-a-hash",
		Name:     gofakeit.Name(),
		Role:     role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// CreateCategory inserts a category with the given name.
func CreateCategory(t TB, db *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return category
}

// CreateEvent inserts an event in the given status.
func CreateEvent(t TB, db *gorm.DB, author *models.User, category *models.Category, status models.EventStatus) *models.Event {
	t.Helper()
	event := &models.Event{
		Title:       gofakeit.Sentence(3),
		Description: gofakeit.Paragraph(1, 2, 8, " "),
		Location:    gofakeit.City(),
		StartTime:   time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second),
		Status:      status,
		CategoryID:  category.ID,
		AuthorID:    author.ID,
	}
	if err := db.Create(event).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

// CreateRating inserts a rating without a comment.
func CreateRating(t TB, db *gorm.DB, event *models.Event, user *models.User, score int) *models.Rating {
	t.Helper()
	rating := &models.Rating{EventID: event.ID, UserID: user.ID, Score: score}
	if err := db.Create(rating).Error; err != nil {
		t.Fatalf("create rating: %v", err)
	}
	return rating
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
