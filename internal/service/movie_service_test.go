package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-mood-service/internal/blobstore"
	"movie-mood-service/internal/models"
	"movie-mood-service/internal/storage"
)

func setupTestService(t *testing.T) *MovieService {
	t.Helper()
	store := storage.New(context.Background(), blobstore.NewMemoryStore(), storage.Options{Timeout: time.Second})
	return NewMovieService(store)
}

func movie(id string, categories, moods []string) models.Movie {
	return models.Movie{
		ID:          id,
		Title:       "Movie " + id,
		Description: "d",
		ImageURL:    "https://img.example/" + id,
		TrailerURL:  "https://www.youtube.com/embed/" + id,
		Categories:  categories,
		Moods:       moods,
	}
}

func TestMovieService_ListMoviesFilters(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	for _, m := range []models.Movie{
		movie("1", []string{"Rocky"}, []string{"Happy"}),
		movie("2", []string{"Gaheza"}, []string{"Sad"}),
		movie("3", []string{"Rocky", "Senior"}, []string{"Sad"}),
	} {
		_, _, err := svc.CreateMovie(ctx, m)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter models.MovieFilter
		want   []string
	}{
		{"no filter", models.MovieFilter{}, []string{"1", "2", "3"}},
		{"single category", models.MovieFilter{Categories: []string{"Rocky"}}, []string{"1", "3"}},
		{"any of categories", models.MovieFilter{Categories: []string{"Gaheza", "Senior"}}, []string{"2", "3"}},
		{"mood only", models.MovieFilter{Mood: "Sad"}, []string{"2", "3"}},
		{"category and mood", models.MovieFilter{Categories: []string{"Rocky"}, Mood: "Sad"}, []string{"3"}},
		{"no match", models.MovieFilter{Mood: "Calm"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			movies, res, err := svc.ListMovies(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, storage.ModeDurable, res.Mode)

			ids := make([]string, 0, len(movies))
			for _, m := range movies {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMovieService_CreateMovieGeneratesID(t *testing.T) {
	svc := setupTestService(t)

	m, _, err := svc.CreateMovie(context.Background(), movie("", []string{"Dylan"}, []string{"Calm"}))
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)

	got, _, err := svc.GetMovie(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestMovieService_CreateMovieStartsWithoutVotes(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	in := movie("1", []string{"Drama"}, []string{"Sad"})
	in.Likes, in.Dislikes = 40, 3
	m, _, err := svc.CreateMovie(ctx, in)
	require.NoError(t, err)
	assert.Zero(t, m.Likes)
	assert.Zero(t, m.Dislikes)

	_, _, err = svc.Vote(ctx, "1", "u1", true)
	require.NoError(t, err)

	// re-adding the same id must not reset the counters
	_, _, err = svc.CreateMovie(ctx, movie("1", []string{"Drama"}, []string{"Sad"}))
	assert.ErrorIs(t, err, storage.ErrMovieExists)

	got, _, err := svc.GetMovie(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Likes)
	assert.Equal(t, "Movie 1", got.Title)
}

func TestMovieService_HasVoted(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	_, _, err := svc.CreateMovie(ctx, movie("1", []string{"Drama"}, []string{"Sad"}))
	require.NoError(t, err)

	voted, _, err := svc.HasVoted(ctx, "1", "u1")
	require.NoError(t, err)
	assert.False(t, voted)

	_, _, err = svc.Vote(ctx, "1", "u1", false)
	require.NoError(t, err)

	voted, res, err := svc.HasVoted(ctx, "1", "u1")
	require.NoError(t, err)
	assert.True(t, voted)
	assert.Equal(t, storage.ModeDurable, res.Mode)
}

func TestMovieService_VoteAndDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	_, _, err := svc.CreateMovie(ctx, movie("1", []string{"Drama"}, []string{"Sad"}))
	require.NoError(t, err)

	m, _, err := svc.Vote(ctx, "1", "u1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Likes)

	m, _, err = svc.Vote(ctx, "1", "u1", false)
	assert.ErrorIs(t, err, storage.ErrAlreadyVoted)
	assert.Equal(t, 1, m.Likes)
	assert.Equal(t, 0, m.Dislikes)

	_, _, err = svc.Vote(ctx, "404", "u1", true)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMovieService_RecommendedMovie(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	_, _, err := svc.CreateMovie(ctx, movie("1", []string{"Drama"}, []string{"Sad"}))
	require.NoError(t, err)

	got, _, err := svc.RecommendedMovie(ctx, "Drama")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = svc.SetRecommendation(ctx, "Drama", "1")
	require.NoError(t, err)

	got, _, err = svc.RecommendedMovie(ctx, "Drama")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "1", got.ID)

	_, err = svc.DeleteMovie(ctx, "1")
	require.NoError(t, err)

	got, _, err = svc.RecommendedMovie(ctx, "Drama")
	require.NoError(t, err)
	assert.Nil(t, got)

	// a pointer to a movie that was never stored resolves to nothing
	_, err = svc.SetRecommendation(ctx, "Comedy", "ghost")
	require.NoError(t, err)
	got, _, err = svc.RecommendedMovie(ctx, "Comedy")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMovieService_ImportThenStatus(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	res, err := svc.Import(ctx, models.ImportRequest{
		Movies: []models.Movie{
			movie("1", []string{"Rocky"}, []string{"Happy"}),
			movie("2", []string{"Rocky"}, []string{"Sad"}),
		},
		UserInteractions: []models.UserInteraction{{MovieID: "1", UserID: "u1", Liked: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, storage.ModeDurable, res.Mode)

	st, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", st.Status)
	assert.Equal(t, 2, st.MovieCount)
	assert.Equal(t, "memory", st.Backend)
	assert.Equal(t, "durable", st.Storage)

	ds, _, err := svc.AllData(ctx)
	require.NoError(t, err)
	assert.Len(t, ds.Movies, 2)
	assert.Len(t, ds.UserInteractions, 1)
}

func TestMovieService_DebugStorage(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	_, _, err := svc.ListMovies(ctx, models.MovieFilter{})
	require.NoError(t, err)

	report := svc.DebugStorage(ctx)
	assert.True(t, report.Success)
	assert.Equal(t, blobstore.ProbeKey, report.Key)
	require.Len(t, report.Reports, 1)
	assert.Equal(t, blobstore.PrefixMovies, report.Reports[0].Prefix)
}

func TestMovieService_Vocabularies(t *testing.T) {
	svc := setupTestService(t)

	cats := svc.Categories()
	assert.Len(t, cats, 8)
	cats[0] = "changed"
	assert.Equal(t, "Rocky", svc.Categories()[0])
	assert.Len(t, svc.Moods(), 20)
}
