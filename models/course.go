package models

import (
	"fmt"

	"gorm.io/datatypes"
)

const (
	DifficultyBeginner     = "Beginner"
	DifficultyIntermediate = "Intermediate"
	DifficultyAdvanced     = "Advanced"
)

const (
	MartialArtBJJ    = "BJJ"
	MartialArtBoxing = "Boxing"
	MartialArtMMA    = "MMA"
)

// Section is a single video lesson. MuxPlaybackID is empty until the video
// platform has finished processing the upload (see workers.VideoSyncWorker).
type Section struct {
	Title           string `json:"title"`
	DurationMinutes int    `json:"duration_minutes"`
	MuxPlaybackID   string `json:"mux_playback_id,omitempty"`
}

// Volume is a named group of sections inside a course.
type Volume struct {
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	Sections        []Section `json:"sections"`
}

type Course struct {
	ID   string `json:"id" gorm:"primaryKey"`
	Slug string `json:"slug" gorm:"uniqueIndex"`

	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`

	Difficulty string `json:"difficulty"` // Beginner | Intermediate | Advanced
	MartialArt string `json:"martial_art"` // BJJ | Boxing | MMA

	InstructorID string `json:"instructor_id" gorm:"index;not null"`

	// Human-facing duration label, e.g. "4h 20m".
	Duration string `json:"duration"`

	// nil or 0 means the course is free.
	Price *float64 `json:"price,omitempty"`

	Volumes datatypes.JSONSlice[Volume] `json:"volumes"`

	Timestamps
}

// TotalSections counts sections across all volumes at the current layout.
func (c *Course) TotalSections() int {
	total := 0
	for _, vol := range c.Volumes {
		total += len(vol.Sections)
	}
	return total
}

// IsFree reports whether the course carries no price (absent or zero).
func (c *Course) IsFree() bool {
	return c.Price == nil || *c.Price == 0
}

// SectionKey builds the positional completion identifier for a section.
// Completion history is keyed by position, not by a stored id, so reordering
// volumes or sections silently invalidates existing completion records.
func SectionKey(volumeIndex, sectionIndex int) string {
	return fmt.Sprintf("%d-%d", volumeIndex, sectionIndex)
}
