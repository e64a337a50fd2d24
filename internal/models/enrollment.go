package models

import "time"

// PaymentStatus describes how an enrollment was paid for
type PaymentStatus string

const (
	PaymentStatusFree     PaymentStatus = "free"
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// EnrollmentStatus is the lifecycle state of an enrollment
type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusCancelled EnrollmentStatus = "cancelled"
	EnrollmentStatusPaused    EnrollmentStatus = "paused"
)

// LessonProgress tracks how much of one course video a user has watched
type LessonProgress struct {
	LessonID        int  `json:"lessonId" validate:"required,gt=0"`
	WatchedDuration int  `json:"watchedDuration" validate:"gte=0"`
	Completed       bool `json:"completed"`
}

// Enrollment links a user to a course they may watch
type Enrollment struct {
	ID              int              `json:"id"`
	UserID          int              `json:"userId"`
	CourseID        int              `json:"courseId"`
	PaymentStatus   PaymentStatus    `json:"paymentStatus"`
	PaymentIntentID string           `json:"paymentIntentId,omitempty"`
	Progress        int              `json:"progress"`
	Status          EnrollmentStatus `json:"status"`
	EnrolledAt      time.Time        `json:"enrolledAt"`
	LastAccessed    time.Time        `json:"lastAccessed"`
	CertificateURL  string           `json:"certificateUrl"`
	Notes           string           `json:"notes"`
	LessonsProgress []LessonProgress `json:"lessonsProgress"`
	Course          *CourseListItem  `json:"course,omitempty"`
}

// EnrollRequest carries the optional PaymentIntent of a paid enrollment
type EnrollRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

// UpdateEnrollmentRequest represents a partial enrollment update.
// LessonsProgress, when present, replaces the whole list.
type UpdateEnrollmentRequest struct {
	Progress        *int              `json:"progress,omitempty" validate:"omitempty,gte=0,lte=100"`
	Status          *EnrollmentStatus `json:"status,omitempty" validate:"omitempty,oneof=active completed cancelled paused"`
	LastAccessed    *time.Time        `json:"lastAccessed,omitempty"`
	CertificateURL  *string           `json:"certificateUrl,omitempty" validate:"omitempty,max=1024"`
	Notes           *string           `json:"notes,omitempty" validate:"omitempty,max=5000"`
	LessonsProgress *[]LessonProgress `json:"lessonsProgress,omitempty"`
}

// IsEmpty reports whether the request changes nothing
func (r *UpdateEnrollmentRequest) IsEmpty() bool {
	return r.Progress == nil && r.Status == nil && r.LastAccessed == nil &&
		r.CertificateURL == nil && r.Notes == nil && r.LessonsProgress == nil
}
