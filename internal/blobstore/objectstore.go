// Package blobstore maps catalog records onto individually addressed JSON
// objects in a key/blob store.
package blobstore

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("object not found")

// Key prefixes. Every record lives under exactly one of them.
const (
	PrefixMovies          = "movies/"
	PrefixRecommendations = "recommendations/"
	PrefixInteractions    = "interactions/"
	PrefixMetadata        = "metadata/"

	objectExt = ".json"
)

// ObjectStore is the minimal key/blob contract a durable backend must offer.
type ObjectStore interface {
	// Put stores body under key, overwriting any existing object.
	Put(ctx context.Context, key string, body []byte) error
	// PutIfAbsent stores body only when key is free and reports whether it did.
	// Implementations must make the check and the write atomic.
	PutIfAbsent(ctx context.Context, key string, body []byte) (bool, error)
	// Get returns the object under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns every key starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Name() string
}

// MovieKey is the object key of a movie.
func MovieKey(id string) string {
	return PrefixMovies + url.PathEscape(id) + objectExt
}

// RecommendationKey is the object key of a category recommendation.
func RecommendationKey(category string) string {
	return PrefixRecommendations + url.PathEscape(category) + objectExt
}

// InteractionKey is the object key of one user's vote on one movie.
// Keys are grouped by movie so a movie's votes share a listable prefix.
func InteractionKey(movieID, userID string) string {
	return MovieInteractionsPrefix(movieID) + url.PathEscape(userID) + objectExt
}

// MovieInteractionsPrefix is the prefix shared by every vote on movieID.
func MovieInteractionsPrefix(movieID string) string {
	return PrefixInteractions + url.PathEscape(movieID) + "/"
}

// ProbeKey is written by connectivity probes.
const ProbeKey = PrefixMetadata + "test" + objectExt

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// globPrefix turns a literal prefix into a glob pattern matching it.
func globPrefix(prefix string) string {
	return globEscaper.Replace(prefix) + "*"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix turns a literal prefix into a LIKE pattern (escape char '\').
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
