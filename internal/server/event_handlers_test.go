package server

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"cityevents/internal/models"
	"cityevents/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEvent(t *testing.T) {
	ts := newTestServer(t)
	author := testutil.CreateUser(t, ts.db, models.RoleUser)
	category := testutil.CreateCategory(t, ts.db, "Muzika")
	token := ts.tokenFor(t, author)
	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	t.Run("requires auth", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/events", map[string]any{}, "")
		assertError(t, resp, http.StatusUnauthorized, models.CodeUnauthorized)
	})

	t.Run("starts pending", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/events", map[string]any{
			"title":       "  Jazz Vakaras ",
			"description": "Live jazz by the river",
			"location":    "Vilnius",
			"startTime":   start,
			"categoryId":  category.ID,
		}, token)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		event := decode[EventDetailResponse](t, resp)
		assert.Equal(t, "Jazz Vakaras", event.Title)
		assert.Equal(t, models.EventStatusPending, event.Status)
		assert.False(t, event.Approved)
		assert.False(t, event.Rejected)
		assert.Equal(t, author.ID, event.AuthorID)
		require.NotNil(t, event.Category)
		assert.Equal(t, "Muzika", event.Category.Name)
		assert.Nil(t, event.EndTime)
		assert.NotNil(t, event.Ratings)
		assert.Zero(t, event.RatingCount)
	})

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing title", map[string]any{"description": "d", "startTime": start, "categoryId": category.ID}},
		{"blank description", map[string]any{"title": "t", "description": "  ", "startTime": start, "categoryId": category.ID}},
		{"missing start", map[string]any{"title": "t", "description": "d", "categoryId": category.ID}},
		{"missing category", map[string]any{"title": "t", "description": "d", "startTime": start}},
		{"unknown category", map[string]any{"title": "t", "description": "d", "startTime": start, "categoryId": 9999}},
		{"end before start", map[string]any{
			"title": "t", "description": "d", "startTime": start,
			"endTime": start.Add(-time.Hour), "categoryId": category.ID,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/api/events", tc.body, token)
			assertError(t, resp, http.StatusBadRequest, models.CodeValidation)
		})
	}
}

func TestGetEvents_Filters(t *testing.T) {
	ts := newTestServer(t)
	author := testutil.CreateUser(t, ts.db, models.RoleUser)
	music := testutil.CreateCategory(t, ts.db, "Muzika")
	sport := testutil.CreateCategory(t, ts.db, "Sportas")

	approved := testutil.CreateEvent(t, ts.db, author, music, models.EventStatusApproved)
	pending := testutil.CreateEvent(t, ts.db, author, music, models.EventStatusPending)
	rejected := testutil.CreateEvent(t, ts.db, author, sport, models.EventStatusRejected)

	ids := func(events []EventResponse) []uint {
		out := make([]uint, 0, len(events))
		for _, e := range events {
			out = append(out, e.ID)
		}
		return out
	}

	resp := ts.do(t, http.MethodGet, "/api/events", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.ElementsMatch(t, []uint{approved.ID, pending.ID, rejected.ID}, ids(decode[[]EventResponse](t, resp)))

	resp = ts.do(t, http.MethodGet, "/api/events?approved=true", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []uint{approved.ID}, ids(decode[[]EventResponse](t, resp)))

	resp = ts.do(t, http.MethodGet, "/api/events?approved=false", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.ElementsMatch(t, []uint{pending.ID, rejected.ID}, ids(decode[[]EventResponse](t, resp)))

	resp = ts.do(t, http.MethodGet, "/api/events?status=rejected", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []uint{rejected.ID}, ids(decode[[]EventResponse](t, resp)))

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/api/events?category=%d", music.ID), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.ElementsMatch(t, []uint{approved.ID, pending.ID}, ids(decode[[]EventResponse](t, resp)))

	for _, bad := range []string{"approved=yes", "status=DRAFT", "category=abc", "category=0"} {
		resp = ts.do(t, http.MethodGet, "/api/events?"+bad, nil, "")
		assertError(t, resp, http.StatusBadRequest, models.CodeValidation)
	}
}

func TestGetEvent(t *testing.T) {
	ts := newTestServer(t)
	author := testutil.CreateUser(t, ts.db, models.RoleUser)
	rater := testutil.CreateUser(t, ts.db, models.RoleUser)
	other := testutil.CreateUser(t, ts.db, models.RoleUser)
	category := testutil.CreateCategory(t, ts.db, "Teatras")
	event := testutil.CreateEvent(t, ts.db, author, category, models.EventStatusApproved)
	testutil.CreateRating(t, ts.db, event, rater, 5)
	testutil.CreateRating(t, ts.db, event, other, 2)

	resp := ts.do(t, http.MethodGet, fmt.Sprintf("/api/events/%d", event.ID), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := decode[EventDetailResponse](t, resp)
	assert.Equal(t, event.ID, detail.ID)
	assert.Equal(t, int64(2), detail.RatingCount)
	assert.InDelta(t, 3.5, detail.AverageRating, 0.001)
	assert.Len(t, detail.Ratings, 2)
	require.NotNil(t, detail.Author)
	assert.Equal(t, author.Email, detail.Author.Email)

	resp = ts.do(t, http.MethodGet, "/api/events/424242", nil, "")
	assertError(t, resp, http.StatusNotFound, models.CodeNotFound)
}

func TestUpdateEvent(t *testing.T) {
	ts := newTestServer(t)
	author := testutil.CreateUser(t, ts.db, models.RoleUser)
	stranger := testutil.CreateUser(t, ts.db, models.RoleUser)
	admin := testutil.CreateUser(t, ts.db, models.RoleAdmin)
	category := testutil.CreateCategory(t, ts.db, "Menas")
	event := testutil.CreateEvent(t, ts.db, author, category, models.EventStatusPending)
	path := fmt.Sprintf("/api/events/%d", event.ID)

	end := event.StartTime.Add(2 * time.Hour)
	resp := ts.do(t, http.MethodPut, path, map[string]any{
		"title":   "Renamed",
		"endTime": end,
		"image":   "https://cdn.example.com/a.webp",
	}, ts.tokenFor(t, author))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[EventDetailResponse](t, resp)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, event.Description, updated.Description)
	require.NotNil(t, updated.EndTime)
	require.NotNil(t, updated.Image)

	resp = ts.do(t, http.MethodPut, path, `{"endTime": null, "image": null}`, ts.tokenFor(t, admin))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cleared := decode[EventDetailResponse](t, resp)
	assert.Equal(t, "Renamed", cleared.Title)
	assert.Nil(t, cleared.EndTime)
	assert.Nil(t, cleared.Image)

	resp = ts.do(t, http.MethodPut, path, map[string]any{"title": "Hijacked"}, ts.tokenFor(t, stranger))
	assertError(t, resp, http.StatusForbidden, models.CodeForbidden)

	resp = ts.do(t, http.MethodPut, path, map[string]any{"categoryId": 9999}, ts.tokenFor(t, author))
	assertError(t, resp, http.StatusBadRequest, models.CodeValidation)

	resp = ts.do(t, http.MethodPut, "/api/events/99999", map[string]any{"title": "x"}, ts.tokenFor(t, author))
	assertError(t, resp, http.StatusNotFound, models.CodeNotFound)
}

func TestDeleteEvent(t *testing.T) {
	ts := newTestServer(t)
	author := testutil.CreateUser(t, ts.db, models.RoleUser)
	stranger := testutil.CreateUser(t, ts.db, models.RoleUser)
	admin := testutil.CreateUser(t, ts.db, models.RoleAdmin)
	category := testutil.CreateCategory(t, ts.db, "Maistas")
	mine := testutil.CreateEvent(t, ts.db, author, category, models.EventStatusApproved)
	testutil.CreateRating(t, ts.db, mine, stranger, 4)
	pending := testutil.CreateEvent(t, ts.db, author, category, models.EventStatusPending)

	resp := ts.do(t, http.MethodDelete, fmt.Sprintf("/api/events/%d", mine.ID), nil, ts.tokenFor(t, stranger))
	assertError(t, resp, http.StatusForbidden, models.CodeForbidden)

	resp = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/events/%d", mine.ID), nil, ts.tokenFor(t, author))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Event deleted successfully", decode[MessageResponse](t, resp).Message)

	var ratings int64
	require.NoError(t, ts.db.Model(&models.Rating{}).Where("event_id = ?", mine.ID).Count(&ratings).Error)
	assert.Zero(t, ratings)

	resp = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/events/%d", pending.ID), nil, ts.tokenFor(t, admin))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/api/events/%d", pending.ID), nil, "")
	assertError(t, resp, http.StatusNotFound, models.CodeNotFound)
}

func TestRateEvent(t *testing.T) {
	ts := newTestServer(t)
	author := testutil.CreateUser(t, ts.db, models.RoleUser)
	rater := testutil.CreateUser(t, ts.db, models.RoleUser)
	category := testutil.CreateCategory(t, ts.db, "Sportas")
	event := testutil.CreateEvent(t, ts.db, author, category, models.EventStatusApproved)
	path := fmt.Sprintf("/api/events/%d/rate", event.ID)
	token := ts.tokenFor(t, rater)

	resp := ts.do(t, http.MethodPost, path, map[string]any{"score": 4, "comment": "Puiku"}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decode[RatingResponse](t, resp)
	assert.Equal(t, 4, first.Score)
	require.NotNil(t, first.Comment)
	assert.Equal(t, "Puiku", *first.Comment)

	resp = ts.do(t, http.MethodPost, path, map[string]any{"score": 2}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[RatingResponse](t, resp)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Score)
	assert.Nil(t, second.Comment)

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/api/events/%d", event.ID), nil, "")
	detail := decode[EventDetailResponse](t, resp)
	assert.Equal(t, int64(1), detail.RatingCount)
	assert.InDelta(t, 2.0, detail.AverageRating, 0.001)

	for _, body := range []map[string]any{{"score": 0}, {"score": 6}, {"comment": "no score"}} {
		resp = ts.do(t, http.MethodPost, path, body, token)
		assertError(t, resp, http.StatusBadRequest, models.CodeValidation)
	}

	resp = ts.do(t, http.MethodPost, "/api/events/99999/rate", map[string]any{"score": 3}, token)
	assertError(t, resp, http.StatusNotFound, models.CodeNotFound)
}
