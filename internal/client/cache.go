package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"movie-mood-service/internal/models"
)

var (
	// ErrNotReady is returned by mutations before the first successful Load.
	ErrNotReady = errors.New("cache not loaded")
	// ErrAlreadyVoted is returned when the cached interactions already hold a vote.
	ErrAlreadyVoted = errors.New("user has already interacted with this movie")
	// ErrUnknownMovie is returned when the movie is not in the cache.
	ErrUnknownMovie = errors.New("movie not found")
	// ErrMovieExists is returned when adding a movie whose id is already cached.
	ErrMovieExists = errors.New("movie already exists")
)

// State is the lifecycle of the cached dataset.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	// StateStale means a mutation failed and the data awaits a re-fetch.
	StateStale State = "ready-stale"
)

// MutationStatus tracks one optimistic change.
type MutationStatus string

const (
	MutationPending    MutationStatus = "pending"
	MutationConfirmed  MutationStatus = "confirmed"
	MutationRolledBack MutationStatus = "rolled-back"
)

// Mutation is an optimistic change applied locally and sent to the API.
type Mutation struct {
	Kind string

	mu     sync.Mutex
	status MutationStatus
	err    error
	done   chan struct{}
}

func newMutation(kind string) *Mutation {
	return &Mutation{Kind: kind, status: MutationPending, done: make(chan struct{})}
}

// Status returns the current status.
func (m *Mutation) Status() MutationStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Err returns why the mutation was rolled back.
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Done is closed once the mutation is confirmed or rolled back.
func (m *Mutation) Done() <-chan struct{} { return m.done }

// Wait blocks until the mutation settles or ctx ends.
func (m *Mutation) Wait(ctx context.Context) (MutationStatus, error) {
	select {
	case <-m.done:
		return m.Status(), m.Err()
	case <-ctx.Done():
		return m.Status(), ctx.Err()
	}
}

func (m *Mutation) settle(status MutationStatus, err error) {
	m.mu.Lock()
	m.status = status
	m.err = err
	m.mu.Unlock()
	close(m.done)
}

// Cache holds a local copy of the dataset, mutated optimistically ahead of
// the server and re-fetched in full when a request fails.
type Cache struct {
	client *Client
	userID string

	mu       sync.RWMutex
	state    State
	data     models.Dataset
	err      error
	lastMode string

	inflight sync.WaitGroup
}

// NewCache creates an idle cache. An empty userID generates one.
func NewCache(client *Client, userID string) *Cache {
	if userID == "" {
		userID = "user_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
	}
	return &Cache{client: client, userID: userID, state: StateIdle}
}

// UserID is the identifier votes are cast with.
func (c *Cache) UserID() string { return c.userID }

// State returns the cache state.
func (c *Cache) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Err returns the last load or mutation error, cleared by a successful Load.
func (c *Cache) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Degraded reports whether the last server response was served from volatile storage.
func (c *Cache) Degraded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastMode == "degraded"
}

// Load fetches the full dataset and replaces the local copy.
func (c *Cache) Load(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateLoading
	c.mu.Unlock()

	resp, err := c.client.AllData(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.err = fmt.Errorf("failed to load data: %w", err)
		if c.data.Movies == nil {
			c.state = StateIdle
		} else {
			c.state = StateStale
		}
		return c.err
	}
	c.data = resp.Dataset
	c.lastMode = resp.Storage
	c.err = nil
	c.state = StateReady
	return nil
}

// Wait blocks until every in-flight mutation has settled.
func (c *Cache) Wait() { c.inflight.Wait() }

// ---- reads ----

// Movies returns a copy of the cached movies.
func (c *Cache) Movies() []models.Movie {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneMovies(c.data.Movies)
}

// Filter returns cached movies in any of categories with the given mood.
func (c *Cache) Filter(categories []string, mood string) []models.Movie {
	f := models.MovieFilter{Categories: categories, Mood: mood}

	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.Movie
	for _, m := range c.data.Movies {
		if f.Match(m) {
			out = append(out, cloneMovie(m))
		}
	}
	return out
}

// RecommendedMovie resolves the cached recommendation for category.
func (c *Cache) RecommendedMovie(category string) (models.Movie, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rec := range c.data.CategoryRecommendations {
		if rec.CategoryName != category || rec.MovieID == "" {
			continue
		}
		if i := c.movieIndex(rec.MovieID); i >= 0 {
			return cloneMovie(c.data.Movies[i]), true
		}
	}
	return models.Movie{}, false
}

// Interaction returns this user's cached vote on movieID.
func (c *Cache) Interaction(movieID string) (models.UserInteraction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.interaction(movieID)
}

// ---- mutations ----

// AddMovie adds a movie locally and on the server. An id is generated when
// empty, and the vote counters always start at zero.
func (c *Cache) AddMovie(ctx context.Context, m models.Movie) (*Mutation, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m = cloneMovie(m)
	m.Likes, m.Dislikes = 0, 0

	err := c.apply(func() error {
		if c.movieIndex(m.ID) >= 0 {
			return ErrMovieExists
		}
		c.data.Movies = append(c.data.Movies, m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c.send(ctx, "add-movie", func(ctx context.Context) (string, error) {
		_, mode, err := c.client.AddMovie(ctx, m)
		return mode, err
	}), nil
}

// UpdateMovie patches a cached movie and sends the patch.
func (c *Cache) UpdateMovie(ctx context.Context, id string, patch models.MoviePatch) (*Mutation, error) {
	err := c.apply(func() error {
		i := c.movieIndex(id)
		if i < 0 {
			return ErrUnknownMovie
		}
		c.data.Movies[i] = patch.Apply(c.data.Movies[i])
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c.send(ctx, "update-movie", func(ctx context.Context) (string, error) {
		_, mode, err := c.client.UpdateMovie(ctx, id, patch)
		return mode, err
	}), nil
}

// RemoveMovie drops a movie with its votes and clears recommendations to it.
func (c *Cache) RemoveMovie(ctx context.Context, id string) (*Mutation, error) {
	err := c.apply(func() error {
		i := c.movieIndex(id)
		if i < 0 {
			return ErrUnknownMovie
		}
		c.data.Movies = slices.Delete(c.data.Movies, i, i+1)
		c.data.UserInteractions = slices.DeleteFunc(c.data.UserInteractions, func(in models.UserInteraction) bool {
			return in.MovieID == id
		})
		for j := range c.data.CategoryRecommendations {
			if c.data.CategoryRecommendations[j].MovieID == id {
				c.data.CategoryRecommendations[j].MovieID = ""
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c.send(ctx, "remove-movie", func(ctx context.Context) (string, error) {
		return c.client.DeleteMovie(ctx, id)
	}), nil
}

// SetRecommendation points category at movieID.
func (c *Cache) SetRecommendation(ctx context.Context, category, movieID string) (*Mutation, error) {
	err := c.apply(func() error {
		for j := range c.data.CategoryRecommendations {
			if c.data.CategoryRecommendations[j].CategoryName == category {
				c.data.CategoryRecommendations[j].MovieID = movieID
				return nil
			}
		}
		c.data.CategoryRecommendations = append(c.data.CategoryRecommendations,
			models.CategoryRecommendation{CategoryName: category, MovieID: movieID})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c.send(ctx, "set-recommendation", func(ctx context.Context) (string, error) {
		return c.client.SetRecommendation(ctx, category, movieID)
	}), nil
}

// Like votes for movieID.
func (c *Cache) Like(ctx context.Context, movieID string) (*Mutation, error) {
	return c.vote(ctx, movieID, true)
}

// Dislike votes against movieID.
func (c *Cache) Dislike(ctx context.Context, movieID string) (*Mutation, error) {
	return c.vote(ctx, movieID, false)
}

func (c *Cache) vote(ctx context.Context, movieID string, liked bool) (*Mutation, error) {
	err := c.apply(func() error {
		if _, ok := c.interaction(movieID); ok {
			return ErrAlreadyVoted
		}
		i := c.movieIndex(movieID)
		if i < 0 {
			return ErrUnknownMovie
		}
		if liked {
			c.data.Movies[i].Likes++
		} else {
			c.data.Movies[i].Dislikes++
		}
		c.data.UserInteractions = append(c.data.UserInteractions,
			models.UserInteraction{MovieID: movieID, UserID: c.userID, Liked: liked})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c.send(ctx, "vote", func(ctx context.Context) (string, error) {
		resp, err := c.client.Vote(ctx, movieID, c.userID, liked)
		if err != nil {
			return resp.Storage, err
		}
		if !resp.Success {
			return resp.Storage, fmt.Errorf("vote rejected: %s", resp.Message)
		}
		if resp.Movie != nil {
			c.mu.Lock()
			if i := c.movieIndex(movieID); i >= 0 {
				c.data.Movies[i] = *resp.Movie
			}
			c.mu.Unlock()
		}
		return resp.Storage, nil
	}), nil
}

// apply runs fn under the write lock once the cache is loaded.
func (c *Cache) apply(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady && c.state != StateStale {
		return ErrNotReady
	}
	return fn()
}

// send issues the request in the background. A failure rolls the cache
// back by re-fetching everything; there is no retry.
func (c *Cache) send(ctx context.Context, kind string, req func(context.Context) (string, error)) *Mutation {
	m := newMutation(kind)
	c.inflight.Add(1)

	go func() {
		defer c.inflight.Done()

		mode, err := req(ctx)
		if err == nil {
			c.mu.Lock()
			if mode != "" {
				c.lastMode = mode
			}
			c.mu.Unlock()
			m.settle(MutationConfirmed, nil)
			return
		}

		slog.Warn("mutation failed, reloading data", "kind", kind, "error", err)
		c.mu.Lock()
		c.state = StateStale
		c.err = err
		c.mu.Unlock()

		if loadErr := c.Load(ctx); loadErr != nil {
			slog.Error("failed to reload data after mutation failure", "kind", kind, "error", loadErr)
		}
		m.settle(MutationRolledBack, err)
	}()

	return m
}

// ---- helpers (callers hold c.mu) ----

func (c *Cache) movieIndex(id string) int {
	return slices.IndexFunc(c.data.Movies, func(m models.Movie) bool { return m.ID == id })
}

func (c *Cache) interaction(movieID string) (models.UserInteraction, bool) {
	for _, in := range c.data.UserInteractions {
		if in.MovieID == movieID && in.UserID == c.userID {
			return in, true
		}
	}
	return models.UserInteraction{}, false
}

func cloneMovie(m models.Movie) models.Movie {
	m.Categories = slices.Clone(m.Categories)
	m.Moods = slices.Clone(m.Moods)
	return m
}

func cloneMovies(movies []models.Movie) []models.Movie {
	out := make([]models.Movie, len(movies))
	for i, m := range movies {
		out[i] = cloneMovie(m)
	}
	return out
}
