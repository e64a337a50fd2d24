package models

import "time"

// Ad is a promotional banner shown in the client
type Ad struct {
	ID        int       `json:"id"`
	Image     string    `json:"image"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateAdRequest represents a request to create an ad
type CreateAdRequest struct {
	Image    string `json:"image" validate:"required,max=1024"`
	Title    string `json:"title" validate:"required,max=255"`
	Subtitle string `json:"subtitle" validate:"max=255"`
}

// UpdateAdRequest represents a partial ad update
type UpdateAdRequest struct {
	Image    *string `json:"image,omitempty" validate:"omitempty,min=1,max=1024"`
	Title    *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Subtitle *string `json:"subtitle,omitempty" validate:"omitempty,max=255"`
}
