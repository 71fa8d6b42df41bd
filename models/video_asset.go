package models

import "time"

const (
	VideoAssetStatusPending = "pending" // uploaded, waiting for the video platform
	VideoAssetStatusReady   = "ready"   // playback id written into the target document
	VideoAssetStatusErrored = "errored"
)

// VideoAsset records an upload handed to the video platform and the document
// slot its playback id must land in once processing finishes. Exactly one of
// the course slot (CourseID + VolumeIndex + SectionIndex) or BreakdownID is
// set. The sync worker polls the platform and resolves pending rows.
type VideoAsset struct {
	ID       string `json:"id" gorm:"primaryKey"`
	UploadID string `json:"upload_id" gorm:"uniqueIndex;not null"`
	AssetID  string `json:"asset_id,omitempty"`

	PlaybackID string `json:"playback_id,omitempty"`
	Status     string `json:"status" gorm:"default:'pending';index"`

	CourseID     *string `json:"course_id,omitempty" gorm:"index"`
	VolumeIndex  *int    `json:"volume_index,omitempty"`
	SectionIndex *int    `json:"section_index,omitempty"`

	BreakdownID *string `json:"breakdown_id,omitempty" gorm:"index"`

	SyncedAt *time.Time `json:"synced_at,omitempty"`

	Timestamps
}
