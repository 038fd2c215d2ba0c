package models

import "time"

// Review is a user's rating and comment on a movie.
type Review struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	MovieID   string    `db:"movie_id" json:"movie_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   string    `db:"comment" json:"comment"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Review bounds.
const (
	MinReviewRating  = 1
	MaxReviewRating  = 10
	MaxReviewComment = 500
)

// CreateReviewRequest is the payload for posting a review.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required"`
	Comment string `json:"comment"`
}
