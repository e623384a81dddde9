package seed

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"cityevents/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// fakePassword is shared by every generated account.
const fakePassword = "FakePassword123"

// Factory builds generated users, events and ratings and persists them.
type Factory struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	rng   *rand.Rand
	// fakePassword hashed on first use
	passwordHash string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	seed := time.Now().UnixNano()
	return &Factory{
		db:    db,
		faker: gofakeit.New(seed),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// NewFactoryWithSeed makes generated data reproducible.
func NewFactoryWithSeed(db *gorm.DB, seed int64) *Factory {
	return &Factory{
		db:    db,
		faker: gofakeit.New(seed),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Generate adds n users. Each gets up to three events in a random moderation
// state, and every approved event is rated by some of the other new users.
func (f *Factory) Generate(n int, report *Report) error {
	var categories []models.Category
	if err := f.db.Order("id ASC").Find(&categories).Error; err != nil {
		return err
	}
	if len(categories) == 0 {
		return errors.New("no categories to attach events to")
	}

	return f.db.Transaction(func(tx *gorm.DB) error {
		users := make([]*models.User, 0, n)
		for i := 0; i < n; i++ {
			user, err := f.CreateUser(tx)
			if err != nil {
				return err
			}
			users = append(users, user)
			report.Users++
		}

		var approved []*models.Event
		for _, user := range users {
			for j := f.rng.Intn(4); j > 0; j-- {
				category := &categories[f.rng.Intn(len(categories))]
				event, err := f.CreateEvent(tx, user, category, f.randomStatus())
				if err != nil {
					return err
				}
				report.Events++
				if event.IsApproved() {
					approved = append(approved, event)
				}
			}
		}

		for _, event := range approved {
			for _, user := range users {
				if user.ID == event.AuthorID || f.rng.Intn(2) == 0 {
					continue
				}
				if _, err := f.CreateRating(tx, event, user); err != nil {
					return err
				}
				report.Ratings++
			}
		}
		return nil
	})
}

// CreateUser persists a USER with a generated name and a unique email.
func (f *Factory) CreateUser(tx *gorm.DB) (*models.User, error) {
	if f.passwordHash == "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(fakePassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		f.passwordHash = string(hashed)
	}

	first, last := f.faker.FirstName(), f.faker.LastName()
	user := &models.User{
		Email: fmt.Sprintf("%s.%s.%s@example.com",
			strings.ToLower(first), strings.ToLower(last), strings.ToLower(f.faker.LetterN(5))),
		Password: f.passwordHash,
		Name:     first + " " + last,
		Role:     models.RoleUser,
	}
	if err := tx.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// CreateEvent persists an event starting one to sixty days from now.
func (f *Factory) CreateEvent(tx *gorm.DB, author *models.User, category *models.Category, status models.EventStatus) (*models.Event, error) {
	start := time.Now().UTC().Truncate(time.Hour).
		Add(time.Duration(1+f.rng.Intn(60)) * 24 * time.Hour).
		Add(time.Duration(10+f.rng.Intn(10)) * time.Hour)

	title := strings.TrimSuffix(f.faker.Sentence(4), ".")
	if len(title) > 200 {
		title = title[:200]
	}
	event := &models.Event{
		Title:       title,
		Description: f.faker.Paragraph(1, 3, 12, " "),
		Location:    f.faker.City(),
		StartTime:   start,
		Status:      status,
		CategoryID:  category.ID,
		AuthorID:    author.ID,
	}
	if f.rng.Intn(2) == 0 {
		end := start.Add(time.Duration(1+f.rng.Intn(4)) * time.Hour)
		event.EndTime = &end
	}
	if err := tx.Create(event).Error; err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// CreateRating persists a score from user, with a comment about half the time.
func (f *Factory) CreateRating(tx *gorm.DB, event *models.Event, user *models.User) (*models.Rating, error) {
	rating := &models.Rating{
		EventID: event.ID,
		UserID:  user.ID,
		Score:   models.MinScore + f.rng.Intn(models.MaxScore-models.MinScore+1),
	}
	if f.rng.Intn(2) == 0 {
		comment := f.faker.Sentence(8)
		rating.Comment = &comment
	}
	if err := tx.Create(rating).Error; err != nil {
		return nil, fmt.Errorf("create rating: %w", err)
	}
	return rating, nil
}

func (f *Factory) randomStatus() models.EventStatus {
	switch n := f.rng.Intn(10); {
	case n < 6:
		return models.EventStatusApproved
	case n < 9:
		return models.EventStatusPending
	default:
		return models.EventStatusRejected
	}
}
