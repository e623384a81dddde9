package seed

import (
	"context"
	"testing"
	"time"

	"cityevents/internal/cache"
	"cityevents/internal/models"
	"cityevents/internal/repository"
	"cityevents/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLoadFixtures(t *testing.T) {
	f, err := LoadFixtures()
	require.NoError(t, err)

	require.Len(t, f.Users, 2)
	assert.Equal(t, "admin@example.com", f.Users[0].Email)
	assert.Equal(t, "ADMIN", f.Users[0].Role)
	assert.Equal(t, []string{"Muzika", "Menas", "Teatras", "Sportas", "Maistas"}, f.Categories)
	require.Len(t, f.Events, 1)
	assert.Equal(t, "Jazz Vakaras", f.Events[0].Title)
	assert.Equal(t, "APPROVED", f.Events[0].Status)
}

func TestParseFixtures_Rejects(t *testing.T) {
	_, err := parseFixtures([]byte("users:\n  - email: a@example.com\n    role: ROOT\n"))
	assert.ErrorContains(t, err, "unknown role")

	_, err = parseFixtures([]byte("events:\n  - title: x\n    status: DRAFT\n"))
	assert.ErrorContains(t, err, "unknown status")

	_, err = parseFixtures([]byte("users: [unterminated"))
	assert.Error(t, err)
}

func TestSeed_Idempotent(t *testing.T) {
	db := testutil.OpenTestDB(t)

	first, err := Seed(db, Options{})
	require.NoError(t, err)
	assert.Equal(t, Report{Users: 2, Categories: 5, Events: 1}, first)

	second, err := Seed(db, Options{})
	require.NoError(t, err)
	assert.Equal(t, Report{}, second)

	var admin models.User
	require.NoError(t, db.Where("email = ?", "admin@example.com").First(&admin).Error)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("AdminPassword123")))

	var event models.Event
	require.NoError(t, db.Preload("Category").Where("title = ?", "Jazz Vakaras").First(&event).Error)
	assert.Equal(t, models.EventStatusApproved, event.Status)
	assert.Equal(t, "Muzika", event.Category.Name)
	require.NotNil(t, event.EndTime)
	assert.True(t, event.EndTime.After(event.StartTime))
}

func TestSeed_CleanAndFake(t *testing.T) {
	db := testutil.OpenTestDB(t)
	stray := testutil.CreateUser(t, db, models.RoleUser)

	report, err := Seed(db, Options{ShouldClean: true, FakeUsers: 4})
	require.NoError(t, err)
	assert.Equal(t, 6, report.Users)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", stray.ID).Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(6), count)
	require.NoError(t, db.Model(&models.Event{}).Count(&count).Error)
	assert.Equal(t, int64(1+report.Events), count)
	require.NoError(t, db.Model(&models.Rating{}).Count(&count).Error)
	assert.Equal(t, int64(report.Ratings), count)
}

func TestClean_DropsCachedIdentities(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	ctx := context.Background()
	db := testutil.OpenTestDB(t)
	users := repository.NewUserRepository(db)
	user := testutil.CreateUser(t, db, models.RoleUser)

	identity, err := users.GetIdentity(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, identity.Email)
	require.True(t, mr.Exists(cache.IdentityKey(user.ID)))
	require.NoError(t, cache.SetJSON(ctx, cache.CategoryListKey, []models.Category{{Name: "Muzika"}}, time.Minute))

	require.NoError(t, Clean(db))

	assert.False(t, mr.Exists(cache.IdentityKey(user.ID)))
	assert.False(t, mr.Exists(cache.CategoryListKey))
	_, err = users.GetIdentity(ctx, user.ID)
	assert.Equal(t, 404, models.StatusForError(err))
}

func TestFactory_RatingsSkipAuthors(t *testing.T) {
	db := testutil.OpenTestDB(t)
	testutil.CreateCategory(t, db, "Muzika")

	var report Report
	require.NoError(t, NewFactoryWithSeed(db, 42).Generate(10, &report))
	assert.Equal(t, 10, report.Users)

	var self int64
	require.NoError(t, db.Table("ratings").
		Joins("JOIN events ON events.id = ratings.event_id").
		Where("events.author_id = ratings.user_id").
		Count(&self).Error)
	assert.Zero(t, self)

	var unapproved int64
	require.NoError(t, db.Table("ratings").
		Joins("JOIN events ON events.id = ratings.event_id").
		Where("events.status <> ?", models.EventStatusApproved).
		Count(&unapproved).Error)
	assert.Zero(t, unapproved)
}
