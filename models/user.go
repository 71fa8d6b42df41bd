package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Belt is one rank entry on a user's profile, at most one per discipline.
type Belt struct {
	Discipline string `json:"discipline"`
	Belt       string `json:"belt"`
	Stripe     *int   `json:"stripe,omitempty"`
	Dan        *int   `json:"dan,omitempty"`
}

type User struct {
	ID string `json:"id" gorm:"primaryKey"`

	// ClerkID links to the external identity provider; one local row per identity.
	ClerkID  string `json:"clerk_id" gorm:"uniqueIndex;not null"`
	Name     string `json:"name" gorm:"not null"`
	Username string `json:"username" gorm:"uniqueIndex;not null"`
	ImageURL string `json:"image_url,omitempty"`

	DateOfBirth time.Time `json:"date_of_birth"`
	Country     string    `json:"country"`

	Disciplines       datatypes.JSONSlice[string] `json:"disciplines"`
	YearsOfExperience int                         `json:"years_of_experience"`
	Goals             datatypes.JSONSlice[string] `json:"goals"`
	Belts             datatypes.JSONSlice[Belt]   `json:"belts,omitempty"`

	OnboardingComplete bool `json:"onboarding_complete"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
