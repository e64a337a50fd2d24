package models

import "time"

// ReviewableType names the kind of entity a review is attached to
type ReviewableType string

const (
	ReviewableCourse  ReviewableType = "Course"
	ReviewableProduct ReviewableType = "Product"
)

// Review represents a user's rating of a course or product
type Review struct {
	ID             int            `json:"id"`
	UserID         int            `json:"userId"`
	UserName       string         `json:"userName,omitempty"`
	Rating         int            `json:"rating"`
	Comment        string         `json:"comment"`
	ReviewableType ReviewableType `json:"reviewableType"`
	ReviewableID   int            `json:"reviewableId"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// CreateReviewRequest represents a new review
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// UpdateReviewRequest represents a partial review update
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

// RatingSummary is the aggregate of all reviews of one reviewable
type RatingSummary struct {
	Rating  float64 `json:"rating"`
	Reviews int     `json:"reviews"`
}
