package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-mood-service/internal/blobstore"
	"movie-mood-service/internal/config"
	"movie-mood-service/internal/middleware"
	"movie-mood-service/internal/models"
	"movie-mood-service/internal/service"
	"movie-mood-service/internal/storage"
	"movie-mood-service/internal/validation"
)

type testServer struct {
	app   *fiber.App
	token string
}

func setupTestServer(t *testing.T, durable blobstore.ObjectStore) *testServer {
	t.Helper()

	store := storage.New(context.Background(), durable, storage.Options{Timeout: time.Second})
	svc := service.NewMovieService(store)
	auth := service.NewAuthService(config.AuthConfig{
		AdminUsername: "admin",
		AdminPassword: "moviemood123",
		AdminRole:     "developer",
		JWTSecret:     "test-secret",
		TokenTTL:      time.Hour,
	})
	v := validation.New()

	app := NewApp()
	RegisterRoutes(app, Routes{
		Movies:    NewMovieHandler(svc, v),
		Status:    NewStatusHandler(svc),
		Auth:      NewAuthHandler(auth, v),
		AdminAuth: middleware.AdminAuth(auth),
	})

	login, err := auth.Login("admin", "moviemood123")
	require.NoError(t, err)
	return &testServer{app: app, token: login.Token}
}

func (s *testServer) do(t *testing.T, method, path string, body any, admin bool) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.app.Test(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func dramaMovie() models.Movie {
	return models.Movie{
		ID:          "1",
		Title:       "X",
		Description: "A sad drama",
		ImageURL:    "https://img.example/x.jpg",
		TrailerURL:  "https://www.youtube.com/embed/x",
		Categories:  []string{"Drama"},
		Moods:       []string{"Sad"},
	}
}

func TestVoteScenario(t *testing.T) {
	s := setupTestServer(t, blobstore.NewMemoryStore())

	resp, _ := s.do(t, http.MethodPost, "/api/movies", dramaMovie(), true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "durable", resp.Header.Get("X-Storage-Mode"))

	resp, body := s.do(t, http.MethodGet, "/api/movies-data", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var data DataResponse
	require.NoError(t, json.Unmarshal(body, &data))
	require.Len(t, data.Movies, 1)
	assert.Equal(t, dramaMovie(), data.Movies[0])
	assert.Equal(t, "durable", data.Storage)

	vote := func(user string, liked bool) (int, models.VoteResponse) {
		resp, body := s.do(t, http.MethodPost, "/api/interactions",
			map[string]any{"movieId": "1", "userId": user, "liked": liked}, false)
		var out models.VoteResponse
		require.NoError(t, json.Unmarshal(body, &out))
		return resp.StatusCode, out
	}

	code, out := vote("u1", true)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, out.Success)
	assert.Equal(t, 1, out.Movie.Likes)

	code, out = vote("u1", true)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, out.Success)
	assert.Equal(t, "User has already interacted with this movie", out.Message)

	code, out = vote("u2", false)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, out.Success)
	assert.Equal(t, 1, out.Movie.Likes)
	assert.Equal(t, 1, out.Movie.Dislikes)
}

func TestVoteErrors(t *testing.T) {
	s := setupTestServer(t, blobstore.NewMemoryStore())

	resp, body := s.do(t, http.MethodPost, "/api/interactions", map[string]any{"movieId": "1"}, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "is required", errResp.Details["userId"])
	assert.Equal(t, "is required", errResp.Details["liked"])

	resp, _ = s.do(t, http.MethodPost, "/api/interactions",
		map[string]any{"movieId": "404", "userId": "u1", "liked": true}, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := setupTestServer(t, blobstore.NewMemoryStore())

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, "/api/movies", dramaMovie()},
		{http.MethodPut, "/api/movies/1", map[string]any{"title": "Y"}},
		{http.MethodDelete, "/api/movies/1", nil},
		{http.MethodPost, "/api/recommendations", map[string]any{"categoryName": "Drama", "movieId": "1"}},
		{http.MethodPost, "/api/movies-data", map[string]any{"movies": []any{}}},
	} {
		resp, _ := s.do(t, tc.method, tc.path, tc.body, false)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", tc.method, tc.path)
	}
}

func TestMovieCRUD(t *testing.T) {
	s := setupTestServer(t, blobstore.NewMemoryStore())

	resp, _ := s.do(t, http.MethodGet, "/api/movies/1", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/api/movies", map[string]any{"title": "No fields"}, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "description")

	resp, _ = s.do(t, http.MethodPost, "/api/movies", dramaMovie(), true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = s.do(t, http.MethodPut, "/api/movies/1", map[string]any{"id": "other", "title": "Y"}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Movie
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "1", updated.ID)
	assert.Equal(t, "Y", updated.Title)

	resp, _ = s.do(t, http.MethodPut, "/api/movies/2", map[string]any{"title": "Y"}, true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(t, http.MethodDelete, "/api/movies/1", nil, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodDelete, "/api/movies/1", nil, true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVoteCountersAreNotWritable(t *testing.T) {
	s := setupTestServer(t, blobstore.NewMemoryStore())

	m := dramaMovie()
	m.Likes, m.Dislikes = 9, 4
	resp, body := s.do(t, http.MethodPost, "/api/movies", m, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Movie
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Zero(t, created.Likes)
	assert.Zero(t, created.Dislikes)

	resp, _ = s.do(t, http.MethodPost, "/api/interactions",
		map[string]any{"movieId": "1", "userId": "u1", "liked": true}, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = s.do(t, http.MethodPost, "/api/movies", dramaMovie(), true)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "movie already exists")

	resp, body = s.do(t, http.MethodPut, "/api/movies/1", map[string]any{"title": "Y", "likes": 0, "dislikes": 5}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Movie
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "Y", updated.Title)
	assert.Equal(t, 1, updated.Likes)
	assert.Zero(t, updated.Dislikes)
}

func TestGetVote(t *testing.T) {
	s := setupTestServer(t, blobstore.NewMemoryStore())

	resp, _ := s.do(t, http.MethodPost, "/api/movies", dramaMovie(), true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	voted := func(user string) bool {
		resp, body := s.do(t, http.MethodGet, "/api/interactions/1/"+user, nil, false)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out models.VoteStatusResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, "1", out.MovieID)
		assert.Equal(t, user, out.UserID)
		assert.Equal(t, "durable", out.Storage)
		return out.Voted
	}

	assert.False(t, voted("u1"))
	resp, _ = s.do(t, http.MethodPost, "/api/interactions",
		map[string]any{"movieId": "1", "userId": "u1", "liked": false}, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, voted("u1"))
	assert.False(t, voted("u2"))
}

func TestListMoviesFilter(t *testing.T) {
	s := setupTestServer(t, blobstore.NewMemoryStore())

	for _, m := range []models.Movie{
		{ID: "a", Title: "A", Description: "d", ImageURL: "i", TrailerURL: "t", Categories: []string{"Rocky"}, Moods: []string{"Happy"}},
		{ID: "b", Title: "B", Description: "d", ImageURL: "i", TrailerURL: "t", Categories: []string{"B The Great"}, Moods: []string{"Sad"}},
		{ID: "c", Title: "C", Description: "d", ImageURL: "i", TrailerURL: "t", Categories: []string{"Dylan"}, Moods: []string{"Happy"}},
	} {
		resp, _ := s.do(t, http.MethodPost, "/api/movies", m, true)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	ids := func(path string) []string {
		resp, body := s.do(t, http.MethodGet, path, nil, false)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var movies []models.Movie
		require.NoError(t, json.Unmarshal(body, &movies))
		out := []string{}
		for _, m := range movies {
			out = append(out, m.ID)
		}
		return out
	}

	assert.Equal(t, []string{"a", "b", "c"}, ids("/api/movies"))
	assert.Equal(t, []string{"a", "b"}, ids("/api/movies?category=Rocky&category=B%20The%20Great"))
	assert.Equal(t, []string{"a", "c"}, ids("/api/movies?category=Rocky,Dylan"))
	assert.Equal(t, []string{"a", "c"}, ids("/api/movies?category=Rocky,Dylan&mood=Happy"))
	assert.Equal(t, []string{"b"}, ids("/api/movies?category=B%20The%20Great&mood=Sad"))
	assert.Equal(t, []string{}, ids("/api/movies?mood=Calm"))
}

func TestRecommendationClearedOnDelete(t *testing.T) {
	s := setupTestServer(t, blobstore.NewMemoryStore())

	resp, _ := s.do(t, http.MethodPost, "/api/movies", dramaMovie(), true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = s.do(t, http.MethodPost, "/api/recommendations",
		map[string]any{"categoryName": "Drama", "movieId": "1"}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := s.do(t, http.MethodGet, "/api/recommendations/Drama", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec RecommendedMovieResponse
	require.NoError(t, json.Unmarshal(body, &rec))
	require.NotNil(t, rec.Movie)
	assert.Equal(t, "1", rec.Movie.ID)

	resp, _ = s.do(t, http.MethodDelete, "/api/movies/1", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = s.do(t, http.MethodGet, "/api/recommendations/Drama", nil, false)
	rec = RecommendedMovieResponse{}
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, "Drama", rec.CategoryName)
	assert.Nil(t, rec.Movie)
	assert.Contains(t, string(body), `"movie":null`)

	_, body = s.do(t, http.MethodGet, "/api/recommendations", nil, false)
	var recs []models.CategoryRecommendation
	require.NoError(t, json.Unmarshal(body, &recs))
	assert.Equal(t, []models.CategoryRecommendation{{CategoryName: "Drama", MovieID: ""}}, recs)
}

func TestDegradedModeIsSurfaced(t *testing.T) {
	s := setupTestServer(t, nil)

	resp, body := s.do(t, http.MethodPost, "/api/movies", dramaMovie(), true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "degraded", resp.Header.Get("X-Storage-Mode"))
	assert.NotEmpty(t, resp.Header.Get("X-Storage-Reason"))
	assert.Contains(t, string(body), `"id":"1"`)

	resp, body = s.do(t, http.MethodPost, "/api/interactions",
		map[string]any{"movieId": "1", "userId": "u1", "liked": true}, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out models.VoteResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Success)
	assert.Equal(t, "degraded", out.Storage)

	_, body = s.do(t, http.MethodGet, "/api/status", nil, false)
	var st models.StatusResponse
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, "degraded", st.Storage)
	assert.Equal(t, "memory", st.Backend)
	assert.False(t, st.DurableAvailable)
	assert.Equal(t, 1, st.MovieCount)

	_, body = s.do(t, http.MethodGet, "/api/debug/storage", nil, false)
	assert.Contains(t, string(body), `"status":"error"`)
}

func TestImportData(t *testing.T) {
	s := setupTestServer(t, blobstore.NewMemoryStore())

	resp, _ := s.do(t, http.MethodPost, "/api/movies-data", map[string]any{"categoryRecommendations": []any{}}, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/api/movies-data", models.Dataset{
		Movies:                  []models.Movie{dramaMovie()},
		CategoryRecommendations: []models.CategoryRecommendation{{CategoryName: "Drama", MovieID: "1"}},
		UserInteractions:        []models.UserInteraction{{MovieID: "1", UserID: "u1", Liked: true}},
	}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true,"storage":"durable"}`, string(body))

	_, body = s.do(t, http.MethodGet, "/api/movies-data", nil, false)
	var data DataResponse
	require.NoError(t, json.Unmarshal(body, &data))
	assert.Len(t, data.Movies, 1)
	assert.Len(t, data.CategoryRecommendations, 1)
	assert.Len(t, data.UserInteractions, 1)
}

func TestImportRequiresMovieIDs(t *testing.T) {
	s := setupTestServer(t, blobstore.NewMemoryStore())

	noID := dramaMovie()
	noID.ID = ""
	resp, body := s.do(t, http.MethodPost, "/api/movies-data", models.Dataset{
		Movies: []models.Movie{dramaMovie(), noID},
	}, true)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, map[string]string{"movies[1].id": "is required"}, errResp.Details)

	_, body = s.do(t, http.MethodGet, "/api/movies-data", nil, false)
	var data DataResponse
	require.NoError(t, json.Unmarshal(body, &data))
	assert.Empty(t, data.Movies)
}

func TestHeaderValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "durable store redis unreachable: dial tcp: i/o timeout", "durable store redis unreachable: dial tcp: i/o timeout"},
		{"multi line", "failed to run migration: syntax error\nSQL: CREATE TABLE x", "failed to run migration: syntax error"},
		{"control characters", "bad\tvalue\r", "badvalue"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, headerValue(tt.in))
		})
	}

	long := headerValue(string(bytes.Repeat([]byte("x"), 500)))
	assert.Len(t, long, maxReasonLen)
}

func TestLogin(t *testing.T) {
	s := setupTestServer(t, blobstore.NewMemoryStore())

	resp, _ := s.do(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "admin", "password": "x"}, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "admin"}, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/api/auth/login",
		map[string]any{"username": "admin", "password": "moviemood123"}, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login models.LoginResponse
	require.NoError(t, json.Unmarshal(body, &login))
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, "developer", login.User.Role)
}

func TestVocabulariesAndHealth(t *testing.T) {
	s := setupTestServer(t, blobstore.NewMemoryStore())

	_, body := s.do(t, http.MethodGet, "/api/categories", nil, false)
	var cats []string
	require.NoError(t, json.Unmarshal(body, &cats))
	assert.Equal(t, models.Categories, cats)

	_, body = s.do(t, http.MethodGet, "/api/moods", nil, false)
	var moods []string
	require.NoError(t, json.Unmarshal(body, &moods))
	assert.Len(t, moods, 20)

	resp, _ := s.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/metrics", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "moviemood_circuit_breaker_state")
}
