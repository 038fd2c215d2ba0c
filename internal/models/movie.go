package models

import "time"

// Genre enumerates the catalog genres.
type Genre string

const (
	GenreAction  Genre = "action"
	GenreHorror  Genre = "horror"
	GenreComedy  Genre = "comedy"
	GenreRomance Genre = "romance"
	GenreSciFi   Genre = "sci-fi"
)

// Genres lists every valid genre value.
var Genres = []Genre{GenreAction, GenreHorror, GenreComedy, GenreRomance, GenreSciFi}

// ValidGenre reports whether the genre is one of the known values.
func ValidGenre(g Genre) bool {
	for _, known := range Genres {
		if g == known {
			return true
		}
	}
	return false
}

// StreamingPlatform enumerates where a title is available.
type StreamingPlatform string

const (
	PlatformNetflix StreamingPlatform = "netflix"
	PlatformPrime   StreamingPlatform = "prime"
	PlatformDisney  StreamingPlatform = "disney"
	PlatformHulu    StreamingPlatform = "hulu"
	PlatformOther   StreamingPlatform = "other"
)

// ValidPlatform reports whether the platform is one of the known values.
func ValidPlatform(p StreamingPlatform) bool {
	switch p {
	case PlatformNetflix, PlatformPrime, PlatformDisney, PlatformHulu, PlatformOther:
		return true
	}
	return false
}

// Catalog bounds enforced on every create/update.
const (
	MinReleaseYear     = 1900
	MinRating          = 0.0
	MaxRating          = 10.0
	MinDurationMinutes = 30
	MaxDescriptionLen  = 1000
)

// Movie represents a catalog entry stored in the movies table.
type Movie struct {
	ID                string            `db:"id" json:"id"`
	Title             string            `db:"title" json:"title"`
	Genre             Genre             `db:"genre" json:"genre"`
	ReleaseYear       int               `db:"release_year" json:"release_year"`
	Rating            float64           `db:"rating" json:"rating"`
	Director          string            `db:"director" json:"director"`
	Duration          int               `db:"duration" json:"duration"`
	MainLead          string            `db:"main_lead" json:"main_lead"`
	StreamingPlatform StreamingPlatform `db:"streaming_platform" json:"streaming_platform"`
	Description       string            `db:"description" json:"description"`
	Premium           bool              `db:"premium" json:"premium"`
	PosterPath        *string           `db:"poster_path" json:"-"`
	BannerPath        *string           `db:"banner_path" json:"-"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// MovieFilter captures listing criteria for the catalog.
type MovieFilter struct {
	Title       string
	Genre       *Genre
	ReleaseYear *int
	MinRating   *float64
	Premium     *bool
	Page        int
	PageSize    int
}

// MovieSummary is the compact listing representation.
type MovieSummary struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Genre       Genre   `json:"genre"`
	ReleaseYear int     `json:"release_year"`
	Rating      float64 `json:"rating"`
	Premium     bool    `json:"premium"`
	PosterURL   *string `json:"poster_url"`
	BannerURL   *string `json:"banner_url"`
}

// MovieDetail is the full single-movie representation.
type MovieDetail struct {
	MovieSummary
	Director          string            `json:"director"`
	Duration          int               `json:"duration"`
	MainLead          string            `json:"main_lead"`
	StreamingPlatform StreamingPlatform `json:"streaming_platform"`
	Description       string            `json:"description"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Summary maps a Movie to its listing shape, resolving attachment URLs.
func (m *Movie) Summary(urlFor func(string) string) MovieSummary {
	s := MovieSummary{
		ID:          m.ID,
		Title:       m.Title,
		Genre:       m.Genre,
		ReleaseYear: m.ReleaseYear,
		Rating:      m.Rating,
		Premium:     m.Premium,
	}
	if m.PosterPath != nil {
		u := urlFor(*m.PosterPath)
		s.PosterURL = &u
	}
	if m.BannerPath != nil {
		u := urlFor(*m.BannerPath)
		s.BannerURL = &u
	}
	return s
}

// Detail maps a Movie to its full shape.
func (m *Movie) Detail(urlFor func(string) string) MovieDetail {
	return MovieDetail{
		MovieSummary:      m.Summary(urlFor),
		Director:          m.Director,
		Duration:          m.Duration,
		MainLead:          m.MainLead,
		StreamingPlatform: m.StreamingPlatform,
		Description:       m.Description,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// ImageUpload carries an attachment received as a multipart file.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ImageSource selects between a direct upload and a remote URL fetch.
// Exactly one of the fields is set.
type ImageSource struct {
	Upload *ImageUpload
	URL    string
}

// CreateMovieRequest is the payload for adding a catalog entry.
type CreateMovieRequest struct {
	Title             string            `json:"title" form:"title"`
	Genre             Genre             `json:"genre" form:"genre"`
	ReleaseYear       int               `json:"release_year" form:"release_year"`
	Rating            float64           `json:"rating" form:"rating"`
	Director          string            `json:"director" form:"director"`
	Duration          int               `json:"duration" form:"duration"`
	MainLead          string            `json:"main_lead" form:"main_lead"`
	StreamingPlatform StreamingPlatform `json:"streaming_platform" form:"streaming_platform"`
	Description       string            `json:"description" form:"description"`
	Premium           bool              `json:"premium" form:"premium"`
	Poster            *ImageSource      `json:"-" form:"-"`
	Banner            *ImageSource      `json:"-" form:"-"`
}

// UpdateMovieRequest is the partial-update payload. Nil fields are untouched.
type UpdateMovieRequest struct {
	Title             *string            `json:"title" form:"title"`
	Genre             *Genre             `json:"genre" form:"genre"`
	ReleaseYear       *int               `json:"release_year" form:"release_year"`
	Rating            *float64           `json:"rating" form:"rating"`
	Director          *string            `json:"director" form:"director"`
	Duration          *int               `json:"duration" form:"duration"`
	MainLead          *string            `json:"main_lead" form:"main_lead"`
	StreamingPlatform *StreamingPlatform `json:"streaming_platform" form:"streaming_platform"`
	Description       *string            `json:"description" form:"description"`
	Premium           *bool              `json:"premium" form:"premium"`
	Poster            *ImageSource       `json:"-" form:"-"`
	Banner            *ImageSource       `json:"-" form:"-"`
	RemovePoster      bool               `json:"remove_poster" form:"remove_poster"`
	RemoveBanner      bool               `json:"remove_banner" form:"remove_banner"`
}
