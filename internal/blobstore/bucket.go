package blobstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"movie-mood-service/internal/models"
)

// ListReport describes how a collection read went. Skipped counts objects
// that were listed but could not be fetched or decoded.
type ListReport struct {
	Prefix  string `json:"prefix"`
	Listed  int    `json:"listed"`
	Loaded  int    `json:"loaded"`
	Skipped int    `json:"skipped"`
}

// Partial reports whether some listed objects were dropped.
func (r ListReport) Partial() bool { return r.Skipped > 0 }

// Bucket reads and writes catalog records as JSON objects in an ObjectStore.
type Bucket struct {
	store       ObjectStore
	concurrency int
}

// NewBucket creates a Bucket fetching at most concurrency objects at once.
func NewBucket(store ObjectStore, concurrency int) *Bucket {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Bucket{store: store, concurrency: concurrency}
}

// Name returns the backend name.
func (b *Bucket) Name() string { return b.store.Name() }

// Ping checks backend connectivity.
func (b *Bucket) Ping(ctx context.Context) error { return b.store.Ping(ctx) }

// ---- Movies ----

// Movies returns every movie in key order.
func (b *Bucket) Movies(ctx context.Context) ([]models.Movie, ListReport, error) {
	return listJSON[models.Movie](ctx, b, PrefixMovies)
}

// Movie returns a single movie or ErrNotFound.
func (b *Bucket) Movie(ctx context.Context, id string) (models.Movie, error) {
	var m models.Movie
	err := b.getJSON(ctx, MovieKey(id), &m)
	return m, err
}

// PutMovie writes m, replacing any movie with the same id.
func (b *Bucket) PutMovie(ctx context.Context, m models.Movie) error {
	return b.putJSON(ctx, MovieKey(m.ID), m)
}

// InsertMovie writes m unless a movie with the same id exists.
func (b *Bucket) InsertMovie(ctx context.Context, m models.Movie) (bool, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return false, fmt.Errorf("encode movie: %w", err)
	}
	return b.store.PutIfAbsent(ctx, MovieKey(m.ID), body)
}

// DeleteMovie removes the movie and every vote recorded for it.
// It returns ErrNotFound when the movie does not exist.
func (b *Bucket) DeleteMovie(ctx context.Context, id string) error {
	key := MovieKey(id)
	if _, err := b.store.Get(ctx, key); err != nil {
		return err
	}
	if err := b.store.Delete(ctx, key); err != nil {
		return err
	}

	keys, err := b.store.List(ctx, MovieInteractionsPrefix(id))
	if err != nil {
		slog.Error("failed to list interactions of removed movie", "movie_id", id, "error", err)
		return nil
	}
	for _, k := range keys {
		if err := b.store.Delete(ctx, k); err != nil {
			slog.Error("failed to remove interaction", "key", k, "error", err)
		}
	}
	slog.Debug("removed movie", "movie_id", id, "interactions", len(keys), "backend", b.Name())
	return nil
}

// ---- Recommendations ----

// Recommendations returns every category recommendation.
func (b *Bucket) Recommendations(ctx context.Context) ([]models.CategoryRecommendation, ListReport, error) {
	return listJSON[models.CategoryRecommendation](ctx, b, PrefixRecommendations)
}

// PutRecommendation upserts the recommendation for rec.CategoryName.
func (b *Bucket) PutRecommendation(ctx context.Context, rec models.CategoryRecommendation) error {
	return b.putJSON(ctx, RecommendationKey(rec.CategoryName), rec)
}

// ---- Interactions ----

// Interactions returns every recorded vote.
func (b *Bucket) Interactions(ctx context.Context) ([]models.UserInteraction, ListReport, error) {
	return listJSON[models.UserInteraction](ctx, b, PrefixInteractions)
}

// Interaction returns one user's vote on a movie or ErrNotFound.
func (b *Bucket) Interaction(ctx context.Context, movieID, userID string) (models.UserInteraction, error) {
	var in models.UserInteraction
	err := b.getJSON(ctx, InteractionKey(movieID, userID), &in)
	return in, err
}

// InsertInteraction records a vote unless one already exists for the pair.
func (b *Bucket) InsertInteraction(ctx context.Context, in models.UserInteraction) (bool, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return false, fmt.Errorf("encode interaction: %w", err)
	}
	return b.store.PutIfAbsent(ctx, InteractionKey(in.MovieID, in.UserID), body)
}

// DeleteInteraction removes one vote.
func (b *Bucket) DeleteInteraction(ctx context.Context, movieID, userID string) error {
	return b.store.Delete(ctx, InteractionKey(movieID, userID))
}

// ---- Diagnostics ----

// WriteProbe writes a timestamped test object and returns its key.
func (b *Bucket) WriteProbe(ctx context.Context) (string, error) {
	probe := struct {
		Test      bool   `json:"test"`
		Timestamp string `json:"timestamp"`
	}{true, time.Now().UTC().Format(time.RFC3339)}
	if err := b.putJSON(ctx, ProbeKey, probe); err != nil {
		return "", err
	}
	return ProbeKey, nil
}

// ---- helpers ----

func (b *Bucket) putJSON(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return b.store.Put(ctx, key, body)
}

func (b *Bucket) getJSON(ctx context.Context, key string, v any) error {
	body, err := b.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// listJSON lists prefix and fetches every object concurrently. Objects that
// fail to fetch or decode are skipped and counted; a listing failure or a
// cancelled context fails the whole read.
func listJSON[T any](ctx context.Context, b *Bucket, prefix string) ([]T, ListReport, error) {
	report := ListReport{Prefix: prefix}

	keys, err := b.store.List(ctx, prefix)
	if err != nil {
		return nil, report, err
	}
	report.Listed = len(keys)

	items := make([]*T, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			body, err := b.store.Get(gctx, key)
			if err != nil {
				// Deleted between list and fetch.
				if !errors.Is(err, ErrNotFound) {
					slog.Warn("failed to fetch object", "key", key, "backend", b.Name(), "error", err)
				}
				return nil
			}
			var item T
			if err := json.Unmarshal(body, &item); err != nil {
				slog.Warn("failed to decode object", "key", key, "backend", b.Name(), "error", err)
				return nil
			}
			items[i] = &item
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	report.Loaded = len(out)
	report.Skipped = report.Listed - report.Loaded
	if report.Partial() {
		slog.Warn("partial collection read", "prefix", prefix, "listed", report.Listed,
			"loaded", report.Loaded, "backend", b.Name())
	}
	return out, report, nil
}
