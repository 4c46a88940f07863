package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-mood-service/internal/models"
)

func TestValidate_VoteRequest(t *testing.T) {
	v := New()
	liked := false

	assert.NoError(t, v.Validate(models.VoteRequest{MovieID: "1", UserID: "u1", Liked: &liked}))

	err := v.Validate(models.VoteRequest{MovieID: "1"})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"userId": "is required",
		"liked":  "is required",
	}, verr.Fields)
	assert.Equal(t, "validation failed: liked is required; userId is required", verr.Error())
}

func TestValidate_MovieNestedFields(t *testing.T) {
	v := New()

	err := v.Validate(models.Movie{
		Title:       "X",
		Description: "d",
		ImageURL:    "i",
		TrailerURL:  "t",
		Categories:  []string{},
		Moods:       []string{""},
		Likes:       -1,
	})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must have at least 1 item(s)", verr.Fields["categories"])
	assert.Equal(t, "is required", verr.Fields["moods[0]"])
	assert.Equal(t, "must be greater than or equal to 0", verr.Fields["likes"])
}

func TestValidate_ImportRequestNeedsMovies(t *testing.T) {
	v := New()

	err := v.Validate(models.ImportRequest{})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "movies")

	assert.NoError(t, v.Validate(models.ImportRequest{Movies: []models.Movie{}}))
}
