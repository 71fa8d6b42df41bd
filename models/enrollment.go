package models

import (
	"time"

	"gorm.io/datatypes"
)

// Enrollment tracks a user's progress through a course. CompletedSections
// holds positional section keys (see SectionKey) and behaves as a set:
// appending an already-present key is a no-op.
type Enrollment struct {
	ID       string `json:"id" gorm:"primaryKey"`
	UserID   string `json:"user_id" gorm:"index;uniqueIndex:idx_enroll_user_course;not null"`
	CourseID string `json:"course_id" gorm:"uniqueIndex:idx_enroll_user_course;not null"`

	StartedAt         time.Time                   `json:"started_at"`
	CompletedSections datatypes.JSONSlice[string] `json:"completed_sections"`

	// Set once the completed count first reaches the course's total section
	// count; never unset afterwards.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}

// HasCompleted reports whether the given section key is already recorded.
func (e *Enrollment) HasCompleted(sectionKey string) bool {
	for _, s := range e.CompletedSections {
		if s == sectionKey {
			return true
		}
	}
	return false
}
