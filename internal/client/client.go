// Package client is a Go client for the movie mood API with an optimistic
// local cache of the full dataset.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"movie-mood-service/internal/models"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Message)
}

// Client is the movie mood API client.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a new API client. baseURL includes the /api prefix.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// DataResponse is the GET /movies-data payload.
type DataResponse struct {
	models.Dataset
	Storage string `json:"storage"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Storage string `json:"storage"`
}

// Login authenticates as admin and keeps the returned token.
func (c *Client) Login(ctx context.Context, username, password string) (models.LoginResponse, error) {
	var out models.LoginResponse
	if _, err := c.do(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Username: username, Password: password}, &out); err != nil {
		return models.LoginResponse{}, err
	}
	c.token = out.Token
	return out, nil
}

// AllData fetches the full dataset.
func (c *Client) AllData(ctx context.Context) (DataResponse, error) {
	var out DataResponse
	_, err := c.do(ctx, http.MethodGet, "/movies-data", nil, &out)
	return out, err
}

// ImportData bulk-upserts a dataset. It returns the storage mode.
func (c *Client) ImportData(ctx context.Context, ds models.Dataset) (string, error) {
	var out successResponse
	return c.do(ctx, http.MethodPost, "/movies-data", ds, &out)
}

// AddMovie creates a movie and returns it with the storage mode.
func (c *Client) AddMovie(ctx context.Context, m models.Movie) (models.Movie, string, error) {
	var out models.Movie
	mode, err := c.do(ctx, http.MethodPost, "/movies", m, &out)
	return out, mode, err
}

// UpdateMovie applies a partial update.
func (c *Client) UpdateMovie(ctx context.Context, id string, patch models.MoviePatch) (models.Movie, string, error) {
	var out models.Movie
	mode, err := c.do(ctx, http.MethodPut, "/movies/"+url.PathEscape(id), patch, &out)
	return out, mode, err
}

// DeleteMovie removes a movie.
func (c *Client) DeleteMovie(ctx context.Context, id string) (string, error) {
	var out successResponse
	return c.do(ctx, http.MethodDelete, "/movies/"+url.PathEscape(id), nil, &out)
}

// Vote sends a like or dislike. A duplicate vote is not an error: it comes
// back with Success false.
func (c *Client) Vote(ctx context.Context, movieID, userID string, liked bool) (models.VoteResponse, error) {
	var out models.VoteResponse
	mode, err := c.do(ctx, http.MethodPost, "/interactions",
		models.VoteRequest{MovieID: movieID, UserID: userID, Liked: &liked}, &out)
	if out.Storage == "" {
		out.Storage = mode
	}
	return out, err
}

// SetRecommendation points a category at a movie.
func (c *Client) SetRecommendation(ctx context.Context, category, movieID string) (string, error) {
	var out successResponse
	return c.do(ctx, http.MethodPost, "/recommendations",
		models.RecommendationRequest{CategoryName: category, MovieID: movieID}, &out)
}

// Status fetches storage status.
func (c *Client) Status(ctx context.Context) (models.StatusResponse, error) {
	var out models.StatusResponse
	_, err := c.do(ctx, http.MethodGet, "/status", nil, &out)
	return out, err
}

// do sends a JSON request and decodes a JSON response into out. It returns
// the X-Storage-Mode header of the response.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (string, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	mode := resp.Header.Get("X-Storage-Mode")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return mode, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return mode, fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		}
	}
	return mode, nil
}
