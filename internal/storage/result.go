package storage

import "errors"

var (
	// ErrNotFound is returned when the requested movie does not exist.
	ErrNotFound = errors.New("movie not found")
	// ErrAlreadyVoted is returned when the user already voted on the movie.
	ErrAlreadyVoted = errors.New("user has already interacted with this movie")
	// ErrMovieExists is returned when creating a movie whose id is taken.
	ErrMovieExists = errors.New("movie already exists")
)

// Mode tells whether an operation reached the durable store.
type Mode string

const (
	// ModeDurable means the durable object store served the call.
	ModeDurable Mode = "durable"
	// ModeDegraded means the call was served by the volatile in-memory store.
	ModeDegraded Mode = "degraded"
)

// Result tags every facade call with the store that served it.
type Result struct {
	Mode   Mode   `json:"mode"`
	Reason string `json:"reason,omitempty"`
}

// Degraded reports whether the call only reached the in-memory store.
func (r Result) Degraded() bool { return r.Mode == ModeDegraded }

// Merge combines results of a multi-step call. Degraded wins.
func (r Result) Merge(other Result) Result {
	if r.Mode == "" {
		return other
	}
	if !r.Degraded() && other.Degraded() {
		return other
	}
	return r
}

func durableResult() Result { return Result{Mode: ModeDurable} }

func degradedResult(reason string) Result {
	return Result{Mode: ModeDegraded, Reason: reason}
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyVoted) || errors.Is(err, ErrMovieExists)
}
