package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/cinevault/cinevault-api/internal/models"
	appErrors "github.com/cinevault/cinevault-api/pkg/errors"
	"github.com/cinevault/cinevault-api/pkg/export"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ValidExportFormat reports whether the format is supported.
func ValidExportFormat(f ExportFormat) bool {
	return f == ExportCSV || f == ExportPDF
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type exportMovieSource interface {
	List(ctx context.Context, filter models.MovieFilter) ([]models.Movie, int, error)
}

type exportUserSource interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

// ExportResult is a rendered report ready for download.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders admin reports over the catalog and user base.
type ExportService struct {
	movies exportMovieSource
	users  exportUserSource
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(movies exportMovieSource, users exportUserSource, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{movies: movies, users: users, csv: csv, pdf: pdf, logger: logger}
}

// Movies renders the full catalog in the requested format.
func (s *ExportService) Movies(ctx context.Context, filter models.MovieFilter, format ExportFormat) (*ExportResult, error) {
	if !ValidExportFormat(format) {
		return nil, appErrors.Validation([]string{"format must be csv or pdf"})
	}

	filter.Page = 1
	filter.PageSize = 10000
	movies, _, err := s.movies.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load movies for export")
	}

	data := export.Dataset{
		Headers: []string{"ID", "Title", "Genre", "Release Year", "Rating", "Director", "Duration", "Platform", "Premium"},
	}
	for i := range movies {
		m := &movies[i]
		data.Rows = append(data.Rows, map[string]string{
			"ID":           m.ID,
			"Title":        m.Title,
			"Genre":        string(m.Genre),
			"Release Year": strconv.Itoa(m.ReleaseYear),
			"Rating":       strconv.FormatFloat(m.Rating, 'f', 1, 64),
			"Director":     m.Director,
			"Duration":     strconv.Itoa(m.Duration),
			"Platform":     string(m.StreamingPlatform),
			"Premium":      strconv.FormatBool(m.Premium),
		})
	}

	return s.render(data, "Movie Catalog", "movies", format)
}

// Users renders the user base in the requested format.
func (s *ExportService) Users(ctx context.Context, filter models.UserFilter, format ExportFormat) (*ExportResult, error) {
	if !ValidExportFormat(format) {
		return nil, appErrors.Validation([]string{"format must be csv or pdf"})
	}

	filter.Page = 1
	filter.PageSize = 10000
	users, _, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load users for export")
	}

	data := export.Dataset{
		Headers: []string{"ID", "Email", "First Name", "Last Name", "Mobile", "Role", "Joined"},
	}
	for i := range users {
		u := &users[i]
		data.Rows = append(data.Rows, map[string]string{
			"ID":         u.ID,
			"Email":      u.Email,
			"First Name": u.FirstName,
			"Last Name":  u.LastName,
			"Mobile":     u.MobileNumber,
			"Role":       string(u.Role),
			"Joined":     u.CreatedAt.Format("2006-01-02"),
		})
	}

	return s.render(data, "Registered Users", "users", format)
}

func (s *ExportService) render(data export.Dataset, title, name string, format ExportFormat) (*ExportResult, error) {
	timestamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case ExportCSV:
		buf, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("%s-%s.csv", name, timestamp),
			ContentType: "text/csv",
			Data:        buf,
		}, nil
	case ExportPDF:
		buf, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("%s-%s.pdf", name, timestamp),
			ContentType: "application/pdf",
			Data:        buf,
		}, nil
	}
	return nil, appErrors.Validation([]string{"format must be csv or pdf"})
}
