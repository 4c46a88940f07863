package handler

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/gofiber/fiber/v3"

	"movie-mood-service/internal/models"
	"movie-mood-service/internal/storage"
	"movie-mood-service/internal/validation"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// SuccessResponse acknowledges a write.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Storage string `json:"storage"`
}

const (
	headerStorageMode   = "X-Storage-Mode"
	headerStorageReason = "X-Storage-Reason"
)

// setStorage exposes the storage mode of a call on the response.
func setStorage(c fiber.Ctx, res storage.Result) string {
	if res.Mode == "" {
		return ""
	}
	c.Set(headerStorageMode, string(res.Mode))
	if reason := headerValue(res.Reason); reason != "" {
		c.Set(headerStorageReason, reason)
	}
	return string(res.Mode)
}

const maxReasonLen = 200

// headerValue keeps the first line of s, drops control characters and caps
// the length so backend error text is safe to send as a header.
func headerValue(s string) string {
	s, _, _ = strings.Cut(s, "\n")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if len(s) > maxReasonLen {
		s = s[:maxReasonLen]
	}
	return s
}

func bindJSON(c fiber.Ctx, v *validation.Validator, out any) error {
	if err := c.Bind().JSON(out); err != nil {
		return err
	}
	return v.Validate(out)
}

func badRequest(c fiber.Ctx, err error) error {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "missing or invalid fields",
			Details: verr.Fields,
		})
	}
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
}

func notFound(c fiber.Ctx, res storage.Result) error {
	setStorage(c, res)
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: storage.ErrNotFound.Error()})
}

func conflict(c fiber.Ctx, res storage.Result, err error) error {
	setStorage(c, res)
	return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: err.Error()})
}

// requireMovieIDs rejects imported movies without an id, since they could
// never be addressed afterwards.
func requireMovieIDs(movies []models.Movie) error {
	fields := make(map[string]string)
	for i, m := range movies {
		if strings.TrimSpace(m.ID) == "" {
			fields[fmt.Sprintf("movies[%d].id", i)] = "is required"
		}
	}
	if len(fields) > 0 {
		return &validation.Error{Fields: fields}
	}
	return nil
}

func internalError(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: msg})
}

// pathParam returns an unescaped route parameter.
func pathParam(c fiber.Ctx, name string) string {
	raw := c.Params(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
