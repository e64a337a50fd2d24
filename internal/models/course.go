package models

import "time"

// Video is a lesson video attached to a course, ordered by Priority
type Video struct {
	ID         int    `json:"id"`
	CourseID   int    `json:"-"`
	Title      string `json:"title" validate:"required,max=255"`
	URL        string `json:"url" validate:"required,max=1024"`
	CoverImage string `json:"coverImage" validate:"max=1024"`
	Duration   int    `json:"duration" validate:"gte=0,lte=2147483647"` // seconds
	Priority   int    `json:"priority" validate:"gte=-2147483648,lte=2147483647"`
}

// Course represents a course sold on the marketplace
type Course struct {
	ID              int       `json:"id"`
	Slug            string    `json:"slug"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DescriptionHTML string    `json:"descriptionHtml"`
	Instructor      string    `json:"instructor"`
	Price           float64   `json:"price"`
	Image           string    `json:"image"`
	Videos          []Video   `json:"videos"`
	Rating          float64   `json:"rating"`
	Reviews         int       `json:"reviews"`
	IsFeatured      bool      `json:"isFeatured"`
	ShortVideoLink  string    `json:"shortVideoLink"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// IsFree reports whether the course can be enrolled in without payment
func (c *Course) IsFree() bool {
	return c.Price == 0
}

// CourseListItem represents a course in list responses
type CourseListItem struct {
	ID             int     `json:"id"`
	Slug           string  `json:"slug"`
	Title          string  `json:"title"`
	Instructor     string  `json:"instructor"`
	Price          float64 `json:"price"`
	Image          string  `json:"image"`
	Rating         float64 `json:"rating"`
	Reviews        int     `json:"reviews"`
	IsFeatured     bool    `json:"isFeatured"`
	ShortVideoLink string  `json:"shortVideoLink,omitempty"`
}

// FeaturedReel is a featured course with a short preview video
type FeaturedReel struct {
	ID             int    `json:"id"`
	Title          string `json:"title"`
	Instructor     string `json:"instructor"`
	Image          string `json:"image"`
	ShortVideoLink string `json:"shortVideoLink"`
}

// CourseFilter holds list query options
type CourseFilter struct {
	Page     int
	Count    int
	Search   string
	Featured *bool
}

// CourseListResponse is a page of courses
type CourseListResponse struct {
	Courses []CourseListItem `json:"courses"`
	Page    int              `json:"page"`
	Count   int              `json:"count"`
	Total   int              `json:"total"`
}

// CreateCourseRequest represents a request to create a course
type CreateCourseRequest struct {
	Title          string   `json:"title" validate:"required,max=255"`
	Description    string   `json:"description" validate:"required"`
	Instructor     string   `json:"instructor" validate:"required,max=255"`
	Price          *float64 `json:"price" validate:"required,gte=0,lte=99999999.99"`
	Image          string   `json:"image" validate:"max=1024"`
	Videos         []Video  `json:"videos" validate:"dive"`
	IsFeatured     bool     `json:"isFeatured"`
	ShortVideoLink string   `json:"shortVideoLink" validate:"max=1024"`
}

// UpdateCourseRequest represents a request to update a course (partial update).
// Videos, when present, replaces the whole list.
type UpdateCourseRequest struct {
	Title          *string  `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description    *string  `json:"description,omitempty" validate:"omitempty,min=1"`
	Instructor     *string  `json:"instructor,omitempty" validate:"omitempty,min=1,max=255"`
	Price          *float64 `json:"price,omitempty" validate:"omitempty,gte=0,lte=99999999.99"`
	Image          *string  `json:"image,omitempty" validate:"omitempty,max=1024"`
	Videos         *[]Video `json:"videos,omitempty"`
	IsFeatured     *bool    `json:"isFeatured,omitempty"`
	ShortVideoLink *string  `json:"shortVideoLink,omitempty" validate:"omitempty,max=1024"`
}

// IsEmpty reports whether the request changes nothing
func (r *UpdateCourseRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && r.Instructor == nil && r.Price == nil &&
		r.Image == nil && r.Videos == nil && r.IsFeatured == nil && r.ShortVideoLink == nil
}
