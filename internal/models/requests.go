package models

// VoteRequest is the body of POST /interactions.
type VoteRequest struct {
	MovieID string `json:"movieId" validate:"required"`
	UserID  string `json:"userId" validate:"required"`
	Liked   *bool  `json:"liked" validate:"required"`
}

// VoteResponse is returned by POST /interactions.
type VoteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Movie   *Movie `json:"movie,omitempty"`
	Storage string `json:"storage,omitempty"`
}

// VoteStatusResponse is returned by GET /interactions/{movieId}/{userId}.
type VoteStatusResponse struct {
	MovieID string `json:"movieId"`
	UserID  string `json:"userId"`
	Voted   bool   `json:"voted"`
	Storage string `json:"storage,omitempty"`
}

// RecommendationRequest is the body of POST /recommendations.
type RecommendationRequest struct {
	CategoryName string `json:"categoryName" validate:"required"`
	MovieID      string `json:"movieId" validate:"required"`
}

// ImportRequest is the body of POST /movies-data.
type ImportRequest struct {
	Movies                  []Movie                  `json:"movies" validate:"required,dive"`
	CategoryRecommendations []CategoryRecommendation `json:"categoryRecommendations" validate:"dive"`
	UserInteractions        []UserInteraction        `json:"userInteractions" validate:"dive"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the admin bearer token.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
	User      User   `json:"user"`
}

// User is the authenticated admin identity.
type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Status           string `json:"status"`
	Storage          string `json:"storage"`
	Backend          string `json:"backend"`
	DurableAvailable bool   `json:"durableAvailable"`
	Breaker          string `json:"breaker"`
	MovieCount       int    `json:"movieCount"`
	Timestamp        string `json:"timestamp"`
}
