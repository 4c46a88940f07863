package handler

import (
	"errors"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewApp creates the Fiber app with the shared error handler.
func NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Movie Mood Service",
		ServerHeader: "Movie-Mood",
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			slog.Error("unhandled error", "error", err, "status", code, "path", c.Path())
			msg := "internal server error"
			if code < fiber.StatusInternalServerError {
				msg = err.Error()
			}
			return c.Status(code).JSON(ErrorResponse{Error: msg})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New())
	return app
}

// Routes groups what RegisterRoutes mounts.
type Routes struct {
	Movies    *MovieHandler
	Status    *StatusHandler
	Auth      *AuthHandler
	AdminAuth fiber.Handler
	VoteLimit fiber.Handler
}

// RegisterRoutes mounts the API under /api plus health and metrics.
func RegisterRoutes(app *fiber.App, r Routes) {
	app.Get("/health", r.Status.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Get("/movies-data", r.Movies.GetAllData)
	api.Post("/movies-data", r.AdminAuth, r.Movies.ImportData)

	api.Get("/movies", r.Movies.ListMovies)
	api.Post("/movies", r.AdminAuth, r.Movies.CreateMovie)
	api.Get("/movies/:id", r.Movies.GetMovie)
	api.Put("/movies/:id", r.AdminAuth, r.Movies.UpdateMovie)
	api.Delete("/movies/:id", r.AdminAuth, r.Movies.DeleteMovie)

	if r.VoteLimit != nil {
		api.Post("/interactions", r.VoteLimit, r.Movies.Vote)
	} else {
		api.Post("/interactions", r.Movies.Vote)
	}

	api.Get("/interactions/:movieId/:userId", r.Movies.GetVote)

	api.Get("/recommendations", r.Movies.ListRecommendations)
	api.Post("/recommendations", r.AdminAuth, r.Movies.SetRecommendation)
	api.Get("/recommendations/:category", r.Movies.GetRecommendedMovie)

	api.Get("/categories", r.Movies.Categories)
	api.Get("/moods", r.Movies.Moods)

	api.Post("/auth/login", r.Auth.Login)
	api.Get("/status", r.Status.Status)
	api.Get("/debug/storage", r.Status.DebugStorage)
}
