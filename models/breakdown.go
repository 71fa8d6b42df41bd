package models

const (
	BreakdownTypeDiscussion = "Discussion"
	BreakdownTypeSpar       = "Spar"
	BreakdownTypeTechnique  = "Technique"
	BreakdownTypeBreakdown  = "Breakdown"
)

// Breakdown is a standalone instructional/analysis video. Breakdowns carry no
// price; access is subscription-gated only.
type Breakdown struct {
	ID   string `json:"id" gorm:"primaryKey"`
	Slug string `json:"slug" gorm:"uniqueIndex"`

	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`

	Type       string `json:"type"`        // Discussion | Spar | Technique | Breakdown
	MartialArt string `json:"martial_art"` // BJJ | Boxing | MMA

	InstructorID string `json:"instructor_id" gorm:"index;not null"`

	Duration      string `json:"duration"`
	MuxPlaybackID string `json:"mux_playback_id,omitempty"`

	Timestamps
}

// BreakdownWatch marks a breakdown as watched by a user. Insert is idempotent,
// unmark deletes the row.
type BreakdownWatch struct {
	ID          string `json:"id" gorm:"primaryKey"`
	UserID      string `json:"user_id" gorm:"index;uniqueIndex:idx_watch_user_breakdown;not null"`
	BreakdownID string `json:"breakdown_id" gorm:"uniqueIndex:idx_watch_user_breakdown;not null"`

	Timestamps
}
