package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cinevault/cinevault-api/internal/models"
)

const movieColumns = `id, title, genre, release_year, rating, director, duration, main_lead, streaming_platform, description, premium, poster_path, banner_path, created_at, updated_at`

// MovieRepository provides database access for the catalog.
type MovieRepository struct {
	db *sqlx.DB
}

// NewMovieRepository creates a new instance of MovieRepository.
func NewMovieRepository(db *sqlx.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// FindByID returns a movie by identifier.
func (r *MovieRepository) FindByID(ctx context.Context, id string) (*models.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1 LIMIT 1`, movieColumns)
	var movie models.Movie
	if err := r.db.GetContext(ctx, &movie, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find movie by id: %w", err)
	}
	return &movie, nil
}

// Create inserts a new movie.
func (r *MovieRepository) Create(ctx context.Context, movie *models.Movie) error {
	if movie.ID == "" {
		movie.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	movie.CreatedAt = now
	movie.UpdatedAt = now

	const query = `INSERT INTO movies (id, title, genre, release_year, rating, director, duration, main_lead, streaming_platform, description, premium, poster_path, banner_path, created_at, updated_at)
		VALUES (:id, :title, :genre, :release_year, :rating, :director, :duration, :main_lead, :streaming_platform, :description, :premium, :poster_path, :banner_path, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, movie); err != nil {
		return fmt.Errorf("create movie: %w", err)
	}
	return nil
}

// Update persists every mutable column of a movie.
func (r *MovieRepository) Update(ctx context.Context, movie *models.Movie) error {
	movie.UpdatedAt = time.Now().UTC()
	const query = `UPDATE movies SET title = :title, genre = :genre, release_year = :release_year, rating = :rating, director = :director,
		duration = :duration, main_lead = :main_lead, streaming_platform = :streaming_platform, description = :description,
		premium = :premium, poster_path = :poster_path, banner_path = :banner_path, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, movie); err != nil {
		return fmt.Errorf("update movie: %w", err)
	}
	return nil
}

// Delete hard-deletes a movie; reviews and orders cascade via foreign keys.
func (r *MovieRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM movies WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete movie: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns movies matching the filter plus the total count.
func (r *MovieRepository) List(ctx context.Context, filter models.MovieFilter) ([]models.Movie, int, error) {
	baseQuery := `FROM movies WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Title != "" {
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Title+"%")
	}
	if filter.Genre != nil {
		conditions = append(conditions, fmt.Sprintf("genre = $%d", len(args)+1))
		args = append(args, *filter.Genre)
	}
	if filter.ReleaseYear != nil {
		conditions = append(conditions, fmt.Sprintf("release_year = $%d", len(args)+1))
		args = append(args, *filter.ReleaseYear)
	}
	if filter.MinRating != nil {
		conditions = append(conditions, fmt.Sprintf("rating >= $%d", len(args)+1))
		args = append(args, *filter.MinRating)
	}
	if filter.Premium != nil {
		conditions = append(conditions, fmt.Sprintf("premium = $%d", len(args)+1))
		args = append(args, *filter.Premium)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", movieColumns, baseQuery, pageSize, offset)

	var movies []models.Movie
	if err := r.db.SelectContext(ctx, &movies, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list movies: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count movies: %w", err)
	}

	return movies, total, nil
}
