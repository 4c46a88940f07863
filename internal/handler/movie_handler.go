package handler

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v3"

	"movie-mood-service/internal/models"
	"movie-mood-service/internal/service"
	"movie-mood-service/internal/storage"
	"movie-mood-service/internal/validation"
)

// MovieHandler handles HTTP requests for movies, votes and recommendations.
type MovieHandler struct {
	svc       *service.MovieService
	validator *validation.Validator
}

// NewMovieHandler creates a new MovieHandler.
func NewMovieHandler(svc *service.MovieService, v *validation.Validator) *MovieHandler {
	return &MovieHandler{svc: svc, validator: v}
}

// DataResponse is the full dataset with the mode it was read in.
type DataResponse struct {
	models.Dataset
	Storage string `json:"storage"`
}

// RecommendedMovieResponse resolves one category recommendation.
type RecommendedMovieResponse struct {
	CategoryName string        `json:"categoryName"`
	Movie        *models.Movie `json:"movie"`
	Storage      string        `json:"storage"`
}

// GetAllData returns movies, recommendations and interactions.
// @Summary Full dataset
// @Tags data
// @Produce json
// @Success 200 {object} DataResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/movies-data [get]
func (h *MovieHandler) GetAllData(c fiber.Ctx) error {
	ds, res, err := h.svc.AllData(c.Context())
	if err != nil {
		slog.Error("failed to fetch data", "error", err)
		return internalError(c, "failed to fetch data")
	}
	return c.JSON(DataResponse{Dataset: ds, Storage: setStorage(c, res)})
}

// ImportData bulk-upserts movies, recommendations and interactions.
// @Summary Bulk import
// @Tags data
// @Accept json
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/movies-data [post]
func (h *MovieHandler) ImportData(c fiber.Ctx) error {
	var req models.ImportRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}
	if err := requireMovieIDs(req.Movies); err != nil {
		return badRequest(c, err)
	}

	res, err := h.svc.Import(c.Context(), req)
	if err != nil {
		slog.Error("failed to import data", "error", err)
		return internalError(c, "failed to update data")
	}
	return c.JSON(SuccessResponse{Success: true, Storage: setStorage(c, res)})
}

// ListMovies returns movies filtered by category and mood.
// @Summary List movies
// @Tags movies
// @Produce json
// @Param category query []string false "Any of these categories"
// @Param mood query string false "Mood"
// @Success 200 {array} models.Movie
// @Router /api/movies [get]
func (h *MovieHandler) ListMovies(c fiber.Ctx) error {
	filter := models.MovieFilter{
		Categories: queryValues(c, "category"),
		Mood:       c.Query("mood"),
	}

	movies, res, err := h.svc.ListMovies(c.Context(), filter)
	if err != nil {
		slog.Error("failed to list movies", "error", err)
		return internalError(c, "failed to retrieve movies")
	}
	setStorage(c, res)
	return c.JSON(movies)
}

// queryValues accepts both repeated and comma separated parameters.
func queryValues(c fiber.Ctx, key string) []string {
	var out []string
	for _, raw := range c.RequestCtx().QueryArgs().PeekMulti(key) {
		for _, v := range strings.Split(string(raw), ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// CreateMovie adds a movie.
// @Summary Add movie
// @Tags movies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} models.Movie
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/movies [post]
func (h *MovieHandler) CreateMovie(c fiber.Ctx) error {
	var m models.Movie
	if err := bindJSON(c, h.validator, &m); err != nil {
		return badRequest(c, err)
	}

	created, res, err := h.svc.CreateMovie(c.Context(), m)
	if errors.Is(err, storage.ErrMovieExists) {
		return conflict(c, res, err)
	}
	if err != nil {
		slog.Error("failed to add movie", "error", err)
		return internalError(c, "failed to add movie")
	}
	setStorage(c, res)
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetMovie returns a single movie.
// @Summary Get movie
// @Tags movies
// @Produce json
// @Param id path string true "Movie ID"
// @Success 200 {object} models.Movie
// @Failure 404 {object} ErrorResponse
// @Router /api/movies/{id} [get]
func (h *MovieHandler) GetMovie(c fiber.Ctx) error {
	id := pathParam(c, "id")

	m, res, err := h.svc.GetMovie(c.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return notFound(c, res)
	}
	if err != nil {
		slog.Error("failed to fetch movie", "movie_id", id, "error", err)
		return internalError(c, "failed to fetch movie")
	}
	setStorage(c, res)
	return c.JSON(m)
}

// UpdateMovie applies a partial update.
// @Summary Update movie
// @Tags movies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Movie ID"
// @Success 200 {object} models.Movie
// @Failure 404 {object} ErrorResponse
// @Router /api/movies/{id} [put]
func (h *MovieHandler) UpdateMovie(c fiber.Ctx) error {
	id := pathParam(c, "id")

	var patch models.MoviePatch
	if err := bindJSON(c, h.validator, &patch); err != nil {
		return badRequest(c, err)
	}

	m, res, err := h.svc.UpdateMovie(c.Context(), id, patch)
	if errors.Is(err, storage.ErrNotFound) {
		return notFound(c, res)
	}
	if err != nil {
		slog.Error("failed to update movie", "movie_id", id, "error", err)
		return internalError(c, "failed to update movie")
	}
	setStorage(c, res)
	return c.JSON(m)
}

// DeleteMovie removes a movie.
// @Summary Delete movie
// @Tags movies
// @Produce json
// @Security BearerAuth
// @Param id path string true "Movie ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/movies/{id} [delete]
func (h *MovieHandler) DeleteMovie(c fiber.Ctx) error {
	id := pathParam(c, "id")

	res, err := h.svc.DeleteMovie(c.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return notFound(c, res)
	}
	if err != nil {
		slog.Error("failed to delete movie", "movie_id", id, "error", err)
		return internalError(c, "failed to delete movie")
	}
	return c.JSON(SuccessResponse{Success: true, Storage: setStorage(c, res)})
}

// Vote records a like or dislike.
// @Summary Like or dislike a movie
// @Tags interactions
// @Accept json
// @Produce json
// @Success 200 {object} models.VoteResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/interactions [post]
func (h *MovieHandler) Vote(c fiber.Ctx) error {
	var req models.VoteRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	m, res, err := h.svc.Vote(c.Context(), req.MovieID, req.UserID, *req.Liked)
	switch {
	case errors.Is(err, storage.ErrAlreadyVoted):
		return c.JSON(models.VoteResponse{
			Success: false,
			Message: "User has already interacted with this movie",
			Storage: setStorage(c, res),
		})
	case errors.Is(err, storage.ErrNotFound):
		return notFound(c, res)
	case err != nil:
		slog.Error("failed to record vote", "movie_id", req.MovieID, "error", err)
		return internalError(c, "failed to update interaction")
	}

	return c.JSON(models.VoteResponse{Success: true, Movie: &m, Storage: setStorage(c, res)})
}

// GetVote reports whether a user already voted on a movie.
// @Summary Vote status
// @Tags interactions
// @Produce json
// @Param movieId path string true "Movie ID"
// @Param userId path string true "User ID"
// @Success 200 {object} models.VoteStatusResponse
// @Router /api/interactions/{movieId}/{userId} [get]
func (h *MovieHandler) GetVote(c fiber.Ctx) error {
	movieID, userID := pathParam(c, "movieId"), pathParam(c, "userId")

	voted, res, err := h.svc.HasVoted(c.Context(), movieID, userID)
	if err != nil {
		slog.Error("failed to check vote", "movie_id", movieID, "user_id", userID, "error", err)
		return internalError(c, "failed to check interaction")
	}
	return c.JSON(models.VoteStatusResponse{
		MovieID: movieID,
		UserID:  userID,
		Voted:   voted,
		Storage: setStorage(c, res),
	})
}

// ListRecommendations returns every category recommendation.
// @Summary List recommendations
// @Tags recommendations
// @Produce json
// @Success 200 {array} models.CategoryRecommendation
// @Router /api/recommendations [get]
func (h *MovieHandler) ListRecommendations(c fiber.Ctx) error {
	recs, res, err := h.svc.Recommendations(c.Context())
	if err != nil {
		slog.Error("failed to fetch recommendations", "error", err)
		return internalError(c, "failed to fetch recommendations")
	}
	setStorage(c, res)
	return c.JSON(recs)
}

// SetRecommendation points a category at a movie.
// @Summary Set recommendation
// @Tags recommendations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/recommendations [post]
func (h *MovieHandler) SetRecommendation(c fiber.Ctx) error {
	var req models.RecommendationRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	res, err := h.svc.SetRecommendation(c.Context(), req.CategoryName, req.MovieID)
	if err != nil {
		slog.Error("failed to update recommendation", "category", req.CategoryName, "error", err)
		return internalError(c, "failed to update recommendation")
	}
	return c.JSON(SuccessResponse{Success: true, Storage: setStorage(c, res)})
}

// GetRecommendedMovie resolves the recommended movie of a category.
// @Summary Recommended movie
// @Tags recommendations
// @Produce json
// @Param category path string true "Category name"
// @Success 200 {object} RecommendedMovieResponse
// @Router /api/recommendations/{category} [get]
func (h *MovieHandler) GetRecommendedMovie(c fiber.Ctx) error {
	category := pathParam(c, "category")

	m, res, err := h.svc.RecommendedMovie(c.Context(), category)
	if err != nil {
		slog.Error("failed to resolve recommendation", "category", category, "error", err)
		return internalError(c, "failed to fetch recommendation")
	}
	return c.JSON(RecommendedMovieResponse{CategoryName: category, Movie: m, Storage: setStorage(c, res)})
}

// Categories returns the browse categories.
// @Summary Categories
// @Tags vocabulary
// @Produce json
// @Success 200 {array} string
// @Router /api/categories [get]
func (h *MovieHandler) Categories(c fiber.Ctx) error {
	return c.JSON(h.svc.Categories())
}

// Moods returns the browse moods.
// @Summary Moods
// @Tags vocabulary
// @Produce json
// @Success 200 {array} string
// @Router /api/moods [get]
func (h *MovieHandler) Moods(c fiber.Ctx) error {
	return c.JSON(h.svc.Moods())
}
