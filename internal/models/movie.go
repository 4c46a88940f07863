package models

// Movie is a catalog entry as stored in the object store and served by the API.
type Movie struct {
	ID          string   `json:"id"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	ImageURL    string   `json:"imageUrl" validate:"required"`
	TrailerURL  string   `json:"trailerUrl" validate:"required"`
	Categories  []string `json:"categories" validate:"required,min=1,dive,required"`
	Moods       []string `json:"moods" validate:"required,min=1,dive,required"`
	Likes       int      `json:"likes" validate:"gte=0"`
	Dislikes    int      `json:"dislikes" validate:"gte=0"`
}

// MoviePatch is a partial movie update. Nil fields are left untouched.
type MoviePatch struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,min=1"`
	Description *string   `json:"description,omitempty"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	TrailerURL  *string   `json:"trailerUrl,omitempty"`
	Categories  *[]string `json:"categories,omitempty"`
	Moods       *[]string `json:"moods,omitempty"`
}

// Apply returns a copy of m with the patch applied. The id and the vote
// counters never change.
func (p MoviePatch) Apply(m Movie) Movie {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.ImageURL != nil {
		m.ImageURL = *p.ImageURL
	}
	if p.TrailerURL != nil {
		m.TrailerURL = *p.TrailerURL
	}
	if p.Categories != nil {
		m.Categories = append([]string(nil), (*p.Categories)...)
	}
	if p.Moods != nil {
		m.Moods = append([]string(nil), (*p.Moods)...)
	}
	return m
}

// HasCategory reports whether the movie is tagged with category.
func (m Movie) HasCategory(category string) bool {
	for _, c := range m.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// HasMood reports whether the movie is tagged with mood.
func (m Movie) HasMood(mood string) bool {
	for _, md := range m.Moods {
		if md == mood {
			return true
		}
	}
	return false
}

// CategoryRecommendation points a category at its recommended movie.
// An empty MovieID means the pointer was cleared.
type CategoryRecommendation struct {
	CategoryName string `json:"categoryName" validate:"required"`
	MovieID      string `json:"movieId"`
}

// UserInteraction is a single like or dislike vote.
type UserInteraction struct {
	MovieID string `json:"movieId" validate:"required"`
	UserID  string `json:"userId" validate:"required"`
	Liked   bool   `json:"liked"`
}

// Dataset is the full catalog served by GET /movies-data.
type Dataset struct {
	Movies                  []Movie                  `json:"movies"`
	CategoryRecommendations []CategoryRecommendation `json:"categoryRecommendations"`
	UserInteractions        []UserInteraction        `json:"userInteractions"`
}

// MovieFilter selects movies by any-of categories and a single mood.
type MovieFilter struct {
	Categories []string
	Mood       string
}

// Match reports whether m passes the filter. Empty criteria match everything.
func (f MovieFilter) Match(m Movie) bool {
	if len(f.Categories) > 0 {
		found := false
		for _, c := range f.Categories {
			if m.HasCategory(c) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return f.Mood == "" || m.HasMood(f.Mood)
}

// Categories are the translator categories offered by the browse filter.
var Categories = []string{
	"Rocky",
	"Gaheza",
	"Savimbi",
	"Sankara",
	"B The Great",
	"Junior Giti",
	"Senior",
	"Dylan",
}

// Moods offered by the browse filter.
var Moods = []string{
	"Happy", "Sad", "Excited", "Relaxed", "Thoughtful",
	"Inspired", "Nostalgic", "Adventurous", "Romantic", "Mysterious",
	"Tense", "Hopeful", "Melancholic", "Uplifting", "Calm",
	"Energetic", "Reflective", "Suspenseful", "Whimsical", "Emotional",
}
