// Package storage is the single entry point for catalog persistence. It runs
// every call against the durable object store and answers from an in-memory
// store when the durable one is missing or failing, tagging the outcome.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"movie-mood-service/internal/blobstore"
	"movie-mood-service/internal/metrics"
	"movie-mood-service/internal/models"
)

const breakerName = "blob-store"

// Options tunes the durable path.
type Options struct {
	Timeout          time.Duration
	FetchConcurrency int
	BreakerFailures  uint32
	BreakerCooldown  time.Duration
	// UnavailableReason explains a nil durable store.
	UnavailableReason string
}

func (o *Options) setDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.FetchConcurrency < 1 {
		o.FetchConcurrency = 8
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = 5
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 30 * time.Second
	}
}

// Storage is the storage facade.
type Storage struct {
	durable           *blobstore.Bucket
	memory            *blobstore.Bucket
	unavailableReason string

	breaker *gobreaker.CircuitBreaker[any]
	timeout time.Duration
	locks   *keyLock

	reportsMu sync.Mutex
	reports   map[string]blobstore.ListReport
}

// New creates the facade. durableStore may be nil; otherwise it is pinged
// once and dropped for the process lifetime if it does not answer.
func New(ctx context.Context, durableStore blobstore.ObjectStore, opts Options) *Storage {
	opts.setDefaults()

	s := &Storage{
		memory:  blobstore.NewBucket(blobstore.NewMemoryStore(), opts.FetchConcurrency),
		timeout: opts.Timeout,
		locks:   newKeyLock(),
		reports: make(map[string]blobstore.ListReport),
	}

	switch {
	case durableStore == nil:
		s.unavailableReason = opts.UnavailableReason
		if s.unavailableReason == "" {
			s.unavailableReason = "durable store not configured"
		}
	default:
		pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		err := durableStore.Ping(pingCtx)
		cancel()
		if err != nil {
			slog.Warn("durable store unreachable, using in-memory storage",
				"backend", durableStore.Name(), "error", err)
			s.unavailableReason = fmt.Sprintf("durable store %s unreachable: %v", durableStore.Name(), err)
		} else {
			s.durable = blobstore.NewBucket(durableStore, opts.FetchConcurrency)
		}
	}

	s.breaker = newBreaker(opts)

	if s.durable != nil {
		slog.Info("storage mode", "mode", ModeDurable, "backend", s.durable.Name())
	} else {
		slog.Warn("storage mode", "mode", ModeDegraded, "reason", s.unavailableReason)
	}
	return s
}

func newBreaker(opts Options) *gobreaker.CircuitBreaker[any] {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		// Domain outcomes and callers going away say nothing about backend health.
		IsSuccessful: func(err error) bool {
			return err == nil || isDomainError(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// run executes fn against the durable bucket and falls back to memory on
// infrastructure failure. Domain errors are returned as they are.
func run[T any](ctx context.Context, s *Storage, op string, fn func(context.Context, *blobstore.Bucket) (T, error)) (T, Result, error) {
	if s.durable == nil {
		v, err := fn(ctx, s.memory)
		return v, s.observe(op, degradedResult(s.unavailableReason), err), err
	}

	raw, err := s.breaker.Execute(func() (any, error) {
		dctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return fn(dctx, s.durable)
	})
	v, _ := raw.(T)
	if err == nil || isDomainError(err) {
		return v, s.observe(op, durableResult(), err), err
	}
	if ctx.Err() != nil {
		return v, s.observe(op, durableResult(), ctx.Err()), ctx.Err()
	}

	slog.Warn("durable store failed, falling back to in-memory storage", "operation", op, "error", err)
	metrics.StorageFallbacks.WithLabelValues(op).Inc()

	v, memErr := fn(ctx, s.memory)
	return v, s.observe(op, degradedResult(err.Error()), memErr), memErr
}

func (s *Storage) observe(op string, res Result, err error) Result {
	mode := string(res.Mode)
	if err != nil && !isDomainError(err) {
		mode = "error"
	}
	metrics.StorageOperations.WithLabelValues(op, mode).Inc()
	return res
}

func (s *Storage) recordReport(r blobstore.ListReport) {
	if r.Skipped > 0 {
		metrics.BlobSkipped.WithLabelValues(r.Prefix).Add(float64(r.Skipped))
	}
	s.reportsMu.Lock()
	s.reports[r.Prefix] = r
	s.reportsMu.Unlock()
}

// mirror copies movies the durable store just confirmed into the fallback
// store, so a call that falls back later still finds them. Listed movies only
// seed ids the fallback does not hold yet.
func (s *Storage) mirror(b *blobstore.Bucket, movies ...models.Movie) {
	if b != s.durable {
		return
	}
	for _, m := range movies {
		if err := s.memory.PutMovie(context.Background(), m); err != nil {
			slog.Warn("failed to mirror movie", "movie_id", m.ID, "error", err)
		}
	}
}

func (s *Storage) seed(b *blobstore.Bucket, movies []models.Movie) {
	if b != s.durable {
		return
	}
	for _, m := range movies {
		if _, err := s.memory.InsertMovie(context.Background(), m); err != nil {
			slog.Warn("failed to mirror movie", "movie_id", m.ID, "error", err)
		}
	}
}

func (s *Storage) mirrorVote(b *blobstore.Bucket, in models.UserInteraction) {
	if b != s.durable {
		return
	}
	if _, err := s.memory.InsertInteraction(context.Background(), in); err != nil {
		slog.Warn("failed to mirror vote", "movie_id", in.MovieID, "user_id", in.UserID, "error", err)
	}
}

func (s *Storage) unmirror(b *blobstore.Bucket, id string) {
	if b != s.durable {
		return
	}
	if err := s.memory.DeleteMovie(context.Background(), id); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		slog.Warn("failed to drop mirrored movie", "movie_id", id, "error", err)
	}
}

func notFound(err error) error {
	if errors.Is(err, blobstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// ---- Movies ----

// Movies returns every movie.
func (s *Storage) Movies(ctx context.Context) ([]models.Movie, Result, error) {
	return run(ctx, s, "movies.list", func(ctx context.Context, b *blobstore.Bucket) ([]models.Movie, error) {
		movies, report, err := b.Movies(ctx)
		if err == nil {
			s.recordReport(report)
			s.seed(b, movies)
		}
		return movies, err
	})
}

// Movie returns one movie or ErrNotFound.
func (s *Storage) Movie(ctx context.Context, id string) (models.Movie, Result, error) {
	return run(ctx, s, "movies.get", func(ctx context.Context, b *blobstore.Bucket) (models.Movie, error) {
		m, err := b.Movie(ctx, id)
		if err != nil {
			return m, notFound(err)
		}
		s.mirror(b, m)
		return m, nil
	})
}

// AddMovie writes a movie, replacing one with the same id.
func (s *Storage) AddMovie(ctx context.Context, m models.Movie) (Result, error) {
	_, res, err := run(ctx, s, "movies.add", func(ctx context.Context, b *blobstore.Bucket) (struct{}, error) {
		if err := b.PutMovie(ctx, m); err != nil {
			return struct{}{}, err
		}
		s.mirror(b, m)
		return struct{}{}, nil
	})
	return res, err
}

// CreateMovie stores a new movie. It returns ErrMovieExists when the id is
// already taken.
func (s *Storage) CreateMovie(ctx context.Context, m models.Movie) (Result, error) {
	unlock := s.locks.Lock(m.ID)
	defer unlock()

	_, res, err := run(ctx, s, "movies.create", func(ctx context.Context, b *blobstore.Bucket) (struct{}, error) {
		inserted, err := b.InsertMovie(ctx, m)
		if err != nil {
			return struct{}{}, err
		}
		if !inserted {
			return struct{}{}, ErrMovieExists
		}
		s.mirror(b, m)
		return struct{}{}, nil
	})
	return res, err
}

// UpdateMovie applies patch to the stored movie and returns the new version.
func (s *Storage) UpdateMovie(ctx context.Context, id string, patch models.MoviePatch) (models.Movie, Result, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	return run(ctx, s, "movies.update", func(ctx context.Context, b *blobstore.Bucket) (models.Movie, error) {
		m, err := b.Movie(ctx, id)
		if err != nil {
			return models.Movie{}, notFound(err)
		}
		s.mirror(b, m)
		updated := patch.Apply(m)
		if err := b.PutMovie(ctx, updated); err != nil {
			return models.Movie{}, err
		}
		s.mirror(b, updated)
		return updated, nil
	})
}

// RemoveMovie deletes a movie with its votes and clears every category
// recommendation that pointed at it.
func (s *Storage) RemoveMovie(ctx context.Context, id string) (Result, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	_, res, err := run(ctx, s, "movies.remove", func(ctx context.Context, b *blobstore.Bucket) (struct{}, error) {
		if err := b.DeleteMovie(ctx, id); err != nil {
			return struct{}{}, notFound(err)
		}
		s.unmirror(b, id)
		clearRecommendations(ctx, b, id)
		return struct{}{}, nil
	})
	return res, err
}

func clearRecommendations(ctx context.Context, b *blobstore.Bucket, movieID string) {
	recs, _, err := b.Recommendations(ctx)
	if err != nil {
		slog.Error("failed to load recommendations after movie removal", "movie_id", movieID, "error", err)
		return
	}
	for _, rec := range recs {
		if rec.MovieID != movieID {
			continue
		}
		rec.MovieID = ""
		if err := b.PutRecommendation(ctx, rec); err != nil {
			slog.Error("failed to clear recommendation", "category", rec.CategoryName, "error", err)
		}
	}
}

// ---- Recommendations ----

// Recommendations returns every category recommendation.
func (s *Storage) Recommendations(ctx context.Context) ([]models.CategoryRecommendation, Result, error) {
	return run(ctx, s, "recommendations.list", func(ctx context.Context, b *blobstore.Bucket) ([]models.CategoryRecommendation, error) {
		recs, report, err := b.Recommendations(ctx)
		if err == nil {
			s.recordReport(report)
		}
		return recs, err
	})
}

// SetRecommendation points category at movieID.
func (s *Storage) SetRecommendation(ctx context.Context, category, movieID string) (Result, error) {
	rec := models.CategoryRecommendation{CategoryName: category, MovieID: movieID}
	_, res, err := run(ctx, s, "recommendations.set", func(ctx context.Context, b *blobstore.Bucket) (struct{}, error) {
		return struct{}{}, b.PutRecommendation(ctx, rec)
	})
	return res, err
}

// ---- Interactions ----

// Interactions returns every recorded vote.
func (s *Storage) Interactions(ctx context.Context) ([]models.UserInteraction, Result, error) {
	return run(ctx, s, "interactions.list", func(ctx context.Context, b *blobstore.Bucket) ([]models.UserInteraction, error) {
		ins, report, err := b.Interactions(ctx)
		if err == nil {
			s.recordReport(report)
		}
		return ins, err
	})
}

// HasVoted reports whether userID already voted on movieID.
func (s *Storage) HasVoted(ctx context.Context, movieID, userID string) (bool, Result, error) {
	return run(ctx, s, "interactions.get", func(ctx context.Context, b *blobstore.Bucket) (bool, error) {
		_, err := b.Interaction(ctx, movieID, userID)
		if errors.Is(err, blobstore.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	})
}

// AddInteraction records a vote without touching the movie counters.
// It reports false when the pair already has a vote.
func (s *Storage) AddInteraction(ctx context.Context, in models.UserInteraction) (bool, Result, error) {
	return run(ctx, s, "interactions.add", func(ctx context.Context, b *blobstore.Bucket) (bool, error) {
		inserted, err := b.InsertInteraction(ctx, in)
		if err == nil {
			s.mirrorVote(b, in)
		}
		return inserted, err
	})
}

// RecordVote stores a one-time vote and bumps the matching counter by one.
// Votes on the same movie are serialised; the vote itself is written with
// an atomic insert-if-absent so a pair can never hold two votes. A vote that
// falls back is applied to the mirrored copy of the movie.
func (s *Storage) RecordVote(ctx context.Context, movieID, userID string, liked bool) (models.Movie, Result, error) {
	unlock := s.locks.Lock(movieID)
	defer unlock()

	in := models.UserInteraction{MovieID: movieID, UserID: userID, Liked: liked}
	return run(ctx, s, "interactions.vote", func(ctx context.Context, b *blobstore.Bucket) (models.Movie, error) {
		m, err := b.Movie(ctx, movieID)
		if err != nil {
			return models.Movie{}, notFound(err)
		}
		s.mirror(b, m)

		inserted, err := b.InsertInteraction(ctx, in)
		if err != nil {
			return models.Movie{}, err
		}
		if !inserted {
			s.mirrorVote(b, in)
			return m, ErrAlreadyVoted
		}

		if liked {
			m.Likes++
		} else {
			m.Dislikes++
		}
		if err := b.PutMovie(ctx, m); err != nil {
			s.undoVote(ctx, b, in)
			return models.Movie{}, err
		}
		s.mirror(b, m)
		s.mirrorVote(b, in)
		return m, nil
	})
}

// undoVote removes a vote whose counter update failed.
func (s *Storage) undoVote(ctx context.Context, b *blobstore.Bucket, in models.UserInteraction) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := b.DeleteInteraction(cctx, in.MovieID, in.UserID); err != nil {
		slog.Error("failed to roll back vote", "movie_id", in.MovieID, "user_id", in.UserID, "error", err)
	}
}

// ---- Aggregate ----

// AllData returns movies, recommendations and votes read from one store.
func (s *Storage) AllData(ctx context.Context) (models.Dataset, Result, error) {
	return run(ctx, s, "data.all", func(ctx context.Context, b *blobstore.Bucket) (models.Dataset, error) {
		var ds models.Dataset
		var report blobstore.ListReport
		var err error

		if ds.Movies, report, err = b.Movies(ctx); err != nil {
			return models.Dataset{}, err
		}
		s.recordReport(report)
		s.seed(b, ds.Movies)
		if ds.CategoryRecommendations, report, err = b.Recommendations(ctx); err != nil {
			return models.Dataset{}, err
		}
		s.recordReport(report)
		if ds.UserInteractions, report, err = b.Interactions(ctx); err != nil {
			return models.Dataset{}, err
		}
		s.recordReport(report)
		return ds, nil
	})
}

// Import upserts every record of ds. Votes that already exist are kept as
// they are. The returned result is degraded if any record was.
func (s *Storage) Import(ctx context.Context, ds models.Dataset) (Result, error) {
	var res Result
	for _, m := range ds.Movies {
		r, err := s.AddMovie(ctx, m)
		if err != nil {
			return res, fmt.Errorf("import movie %s: %w", m.ID, err)
		}
		res = res.Merge(r)
	}
	for _, rec := range ds.CategoryRecommendations {
		r, err := s.SetRecommendation(ctx, rec.CategoryName, rec.MovieID)
		if err != nil {
			return res, fmt.Errorf("import recommendation %s: %w", rec.CategoryName, err)
		}
		res = res.Merge(r)
	}
	for _, in := range ds.UserInteractions {
		_, r, err := s.AddInteraction(ctx, in)
		if err != nil {
			return res, fmt.Errorf("import interaction %s/%s: %w", in.MovieID, in.UserID, err)
		}
		res = res.Merge(r)
	}
	if res.Mode == "" {
		res = s.CurrentMode()
	}
	return res, nil
}

// ---- Diagnostics ----

// Status describes backend availability.
type Status struct {
	Backend          string `json:"backend"`
	DurableAvailable bool   `json:"durableAvailable"`
	Breaker          string `json:"breaker"`
	Result
}

// Available reports whether a durable store was reachable at startup.
func (s *Storage) Available() bool { return s.durable != nil }

// CurrentMode is the mode new calls will most likely complete in.
func (s *Storage) CurrentMode() Result {
	if s.durable == nil {
		return degradedResult(s.unavailableReason)
	}
	if s.breaker.State() == gobreaker.StateOpen {
		return degradedResult("circuit breaker open")
	}
	return durableResult()
}

// Status returns backend availability without touching the store.
func (s *Storage) Status() Status {
	st := Status{
		Backend:          "memory",
		DurableAvailable: s.durable != nil,
		Breaker:          s.breaker.State().String(),
		Result:           s.CurrentMode(),
	}
	if s.durable != nil {
		st.Backend = s.durable.Name()
	}
	return st
}

// ProbeResult is the outcome of a durable write probe.
type ProbeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Backend string `json:"backend,omitempty"`
	Key     string `json:"key,omitempty"`
}

// Probe writes a test object to the durable store. It never falls back.
func (s *Storage) Probe(ctx context.Context) ProbeResult {
	if s.durable == nil {
		return ProbeResult{Success: false, Message: "durable store is not available: " + s.unavailableReason}
	}

	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	key, err := s.durable.WriteProbe(pctx)
	if err != nil {
		slog.Error("durable store probe failed", "backend", s.durable.Name(), "error", err)
		return ProbeResult{
			Success: false,
			Message: fmt.Sprintf("error testing %s storage: %v", s.durable.Name(), err),
			Backend: s.durable.Name(),
		}
	}
	return ProbeResult{
		Success: true,
		Message: fmt.Sprintf("successfully created test object in %s storage", s.durable.Name()),
		Backend: s.durable.Name(),
		Key:     key,
	}
}

// ListReports returns the latest collection read report per prefix.
func (s *Storage) ListReports() []blobstore.ListReport {
	s.reportsMu.Lock()
	defer s.reportsMu.Unlock()
	out := make([]blobstore.ListReport, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix < out[j].Prefix })
	return out
}
