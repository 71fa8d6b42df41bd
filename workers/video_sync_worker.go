package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"dojo-academy-system/models"
	"dojo-academy-system/utils"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// VideoSyncClient polls the video platform for asset readiness and writes the
// resulting playback ids into course/breakdown documents. The runtime core
// never talks to the video platform directly; it only sees the opaque
// playback id this worker records.
type VideoSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewVideoSyncClient(db *gorm.DB) *VideoSyncClient {
	baseURL := os.Getenv("VIDEO_API_URL")
	if baseURL == "" {
		log.Fatal("VIDEO_API_URL environment variable is required")
	}
	token := os.Getenv("VIDEO_API_TOKEN")
	if token == "" {
		log.Fatal("VIDEO_API_TOKEN environment variable is required for video sync")
	}

	return &VideoSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

// StartScheduler polls the video platform once a minute for pending assets.
func (c *VideoSyncClient) StartScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
			defer cancel()
			c.SyncPending(ctx)
		}),
	)
}

type uploadStatus struct {
	Status  string `json:"status"`
	AssetID string `json:"asset_id"`
}

type assetStatus struct {
	Status      string `json:"status"`
	PlaybackIDs []struct {
		ID string `json:"id"`
	} `json:"playback_ids"`
}

func (c *VideoSyncClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call video platform: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("video platform returned status %d: %s", resp.StatusCode, string(body))
	}

	// Mux-style envelope: payload under "data"
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode video platform response: %w", err)
	}
	return json.Unmarshal(envelope.Data, out)
}

// SyncPending advances every pending VideoAsset row: upload → asset id →
// playback id → write into the target document.
func (c *VideoSyncClient) SyncPending(ctx context.Context) {
	var assets []models.VideoAsset
	if err := c.DB.Where("status = ?", models.VideoAssetStatusPending).Find(&assets).Error; err != nil {
		log.Printf("video sync: failed to list pending assets: %v", err)
		return
	}
	if len(assets) == 0 {
		return
	}

	log.Printf("video sync: checking %d pending asset(s)", len(assets))
	for i := range assets {
		if err := c.syncOne(ctx, &assets[i]); err != nil {
			log.Printf("video sync: asset %s: %v", assets[i].ID, err)
		}
	}
}

func (c *VideoSyncClient) syncOne(ctx context.Context, asset *models.VideoAsset) error {
	if asset.AssetID == "" {
		var upload uploadStatus
		if err := c.getJSON(ctx, "/video/v1/uploads/"+asset.UploadID, &upload); err != nil {
			return err
		}
		if upload.Status == "errored" {
			return c.markErrored(asset)
		}
		if upload.AssetID == "" {
			return nil // still processing, try next tick
		}
		asset.AssetID = upload.AssetID
		if err := c.DB.Model(asset).Update("asset_id", upload.AssetID).Error; err != nil {
			return err
		}
	}

	var st assetStatus
	if err := c.getJSON(ctx, "/video/v1/assets/"+asset.AssetID, &st); err != nil {
		return err
	}
	switch st.Status {
	case "errored":
		return c.markErrored(asset)
	case "ready":
	default:
		return nil // still preparing
	}
	if len(st.PlaybackIDs) == 0 {
		return fmt.Errorf("asset ready but no playback ids")
	}

	playbackID := st.PlaybackIDs[0].ID
	if err := c.writePlaybackID(asset, playbackID); err != nil {
		return err
	}

	now := time.Now()
	return c.DB.Model(asset).Updates(map[string]interface{}{
		"playback_id": playbackID,
		"status":      models.VideoAssetStatusReady,
		"synced_at":   now,
	}).Error
}

func (c *VideoSyncClient) markErrored(asset *models.VideoAsset) error {
	return c.DB.Model(asset).Update("status", models.VideoAssetStatusErrored).Error
}

// writePlaybackID lands the playback id in the slot the asset was registered
// for: a course's (volume, section) position or a breakdown.
func (c *VideoSyncClient) writePlaybackID(asset *models.VideoAsset, playbackID string) error {
	if asset.BreakdownID != nil {
		return c.DB.Model(&models.Breakdown{}).
			Where("id = ?", *asset.BreakdownID).
			Update("mux_playback_id", playbackID).Error
	}

	if asset.CourseID == nil || asset.VolumeIndex == nil || asset.SectionIndex == nil {
		return errors.New("asset has no target slot")
	}

	return c.DB.Transaction(func(tx *gorm.DB) error {
		var course models.Course
		if err := tx.First(&course, "id = ?", *asset.CourseID).Error; err != nil {
			return err
		}

		vi, si := *asset.VolumeIndex, *asset.SectionIndex
		if vi < 0 || vi >= len(course.Volumes) || si < 0 || si >= len(course.Volumes[vi].Sections) {
			return fmt.Errorf("slot %d-%d out of range for course %s", vi, si, course.ID)
		}

		course.Volumes[vi].Sections[si].MuxPlaybackID = playbackID
		return tx.Model(&course).Update("volumes", course.Volumes).Error
	})
}
