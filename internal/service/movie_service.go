package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"movie-mood-service/internal/blobstore"
	"movie-mood-service/internal/metrics"
	"movie-mood-service/internal/models"
	"movie-mood-service/internal/storage"
)

// MovieService handles business logic for the movie catalog.
type MovieService struct {
	store *storage.Storage
}

// NewMovieService creates a new MovieService.
func NewMovieService(store *storage.Storage) *MovieService {
	return &MovieService{store: store}
}

// ListMovies returns the movies matching filter.
func (s *MovieService) ListMovies(ctx context.Context, filter models.MovieFilter) ([]models.Movie, storage.Result, error) {
	movies, res, err := s.store.Movies(ctx)
	if err != nil {
		return nil, res, fmt.Errorf("failed to list movies: %w", err)
	}

	out := make([]models.Movie, 0, len(movies))
	for _, m := range movies {
		if filter.Match(m) {
			out = append(out, m)
		}
	}
	return out, res, nil
}

// GetMovie returns a single movie.
func (s *MovieService) GetMovie(ctx context.Context, id string) (models.Movie, storage.Result, error) {
	return s.store.Movie(ctx, id)
}

// CreateMovie stores a new movie, generating an id when none is given.
// Counters always start at zero; a taken id yields storage.ErrMovieExists.
func (s *MovieService) CreateMovie(ctx context.Context, m models.Movie) (models.Movie, storage.Result, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Likes, m.Dislikes = 0, 0
	res, err := s.store.CreateMovie(ctx, m)
	if errors.Is(err, storage.ErrMovieExists) {
		return models.Movie{}, res, err
	}
	if err != nil {
		return models.Movie{}, res, fmt.Errorf("failed to add movie: %w", err)
	}
	slog.Info("movie added", "movie_id", m.ID, "storage", res.Mode)
	return m, res, nil
}

// UpdateMovie applies a partial update.
func (s *MovieService) UpdateMovie(ctx context.Context, id string, patch models.MoviePatch) (models.Movie, storage.Result, error) {
	return s.store.UpdateMovie(ctx, id, patch)
}

// DeleteMovie removes a movie, its votes and any recommendation pointing at it.
func (s *MovieService) DeleteMovie(ctx context.Context, id string) (storage.Result, error) {
	res, err := s.store.RemoveMovie(ctx, id)
	if err == nil {
		slog.Info("movie removed", "movie_id", id, "storage", res.Mode)
	}
	return res, err
}

// Vote records a one-time like or dislike.
// A repeated vote returns storage.ErrAlreadyVoted together with the unchanged movie.
func (s *MovieService) Vote(ctx context.Context, movieID, userID string, liked bool) (models.Movie, storage.Result, error) {
	m, res, err := s.store.RecordVote(ctx, movieID, userID, liked)
	switch {
	case errors.Is(err, storage.ErrAlreadyVoted):
		metrics.Votes.WithLabelValues("duplicate").Inc()
	case err == nil && liked:
		metrics.Votes.WithLabelValues("like").Inc()
	case err == nil:
		metrics.Votes.WithLabelValues("dislike").Inc()
	}
	return m, res, err
}

// HasVoted reports whether userID already voted on movieID.
func (s *MovieService) HasVoted(ctx context.Context, movieID, userID string) (bool, storage.Result, error) {
	return s.store.HasVoted(ctx, movieID, userID)
}

// Recommendations returns every category recommendation.
func (s *MovieService) Recommendations(ctx context.Context) ([]models.CategoryRecommendation, storage.Result, error) {
	return s.store.Recommendations(ctx)
}

// SetRecommendation points category at movieID.
func (s *MovieService) SetRecommendation(ctx context.Context, category, movieID string) (storage.Result, error) {
	return s.store.SetRecommendation(ctx, category, movieID)
}

// RecommendedMovie resolves the recommendation for category. It returns nil
// when the category has none, the pointer was cleared, or the movie is gone.
func (s *MovieService) RecommendedMovie(ctx context.Context, category string) (*models.Movie, storage.Result, error) {
	recs, res, err := s.store.Recommendations(ctx)
	if err != nil {
		return nil, res, err
	}

	var movieID string
	for _, rec := range recs {
		if rec.CategoryName == category {
			movieID = rec.MovieID
			break
		}
	}
	if movieID == "" {
		return nil, res, nil
	}

	m, movieRes, err := s.store.Movie(ctx, movieID)
	res = res.Merge(movieRes)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, res, nil
	}
	if err != nil {
		return nil, res, err
	}
	return &m, res, nil
}

// Categories returns the browse categories.
func (s *MovieService) Categories() []string { return append([]string(nil), models.Categories...) }

// Moods returns the browse moods.
func (s *MovieService) Moods() []string { return append([]string(nil), models.Moods...) }

// AllData returns the full dataset.
func (s *MovieService) AllData(ctx context.Context) (models.Dataset, storage.Result, error) {
	ds, res, err := s.store.AllData(ctx)
	if err != nil {
		return models.Dataset{}, res, fmt.Errorf("failed to load data: %w", err)
	}
	return ds, res, nil
}

// Import bulk-upserts a dataset.
func (s *MovieService) Import(ctx context.Context, req models.ImportRequest) (storage.Result, error) {
	res, err := s.store.Import(ctx, models.Dataset{
		Movies:                  req.Movies,
		CategoryRecommendations: req.CategoryRecommendations,
		UserInteractions:        req.UserInteractions,
	})
	if err != nil {
		return res, err
	}
	slog.Info("dataset imported",
		"movies", len(req.Movies),
		"recommendations", len(req.CategoryRecommendations),
		"interactions", len(req.UserInteractions),
		"storage", res.Mode)
	return res, nil
}

// Status reports storage availability and the current movie count.
func (s *MovieService) Status(ctx context.Context) (models.StatusResponse, error) {
	movies, res, err := s.store.Movies(ctx)
	if err != nil {
		return models.StatusResponse{}, fmt.Errorf("error checking status: %w", err)
	}

	st := s.store.Status()
	return models.StatusResponse{
		Status:           "ok",
		Storage:          string(res.Mode),
		Backend:          st.Backend,
		DurableAvailable: st.DurableAvailable,
		Breaker:          st.Breaker,
		MovieCount:       len(movies),
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// DebugReport is returned by GET /debug/storage.
type DebugReport struct {
	storage.ProbeResult
	Status  storage.Status         `json:"status"`
	Reports []blobstore.ListReport `json:"listReports"`
}

// DebugStorage writes a probe object and reports the latest collection reads.
func (s *MovieService) DebugStorage(ctx context.Context) DebugReport {
	return DebugReport{
		ProbeResult: s.store.Probe(ctx),
		Status:      s.store.Status(),
		Reports:     s.store.ListReports(),
	}
}
