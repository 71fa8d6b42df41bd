package services

import (
	"dojo-academy-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VideoService registers uploads handed to the video platform so the sync
// worker knows which document slot each playback id belongs to.
type VideoService struct {
	DB *gorm.DB
}

func NewVideoService(db *gorm.DB) *VideoService {
	return &VideoService{DB: db}
}

type RegisterVideoAssetRequest struct {
	UploadID     string  `json:"upload_id"`
	CourseID     *string `json:"course_id,omitempty"`
	VolumeIndex  *int    `json:"volume_index,omitempty"`
	SectionIndex *int    `json:"section_index,omitempty"`
	BreakdownID  *string `json:"breakdown_id,omitempty"`
}

func (r *RegisterVideoAssetRequest) valid() bool {
	if r.UploadID == "" {
		return false
	}
	courseSlot := r.CourseID != nil && r.VolumeIndex != nil && r.SectionIndex != nil
	breakdownSlot := r.BreakdownID != nil
	return courseSlot != breakdownSlot // exactly one target
}

func (s *VideoService) RegisterAsset(req RegisterVideoAssetRequest) (*models.VideoAsset, error) {
	asset := &models.VideoAsset{
		ID:           uuid.NewString(),
		UploadID:     req.UploadID,
		Status:       models.VideoAssetStatusPending,
		CourseID:     req.CourseID,
		VolumeIndex:  req.VolumeIndex,
		SectionIndex: req.SectionIndex,
		BreakdownID:  req.BreakdownID,
	}
	if err := s.DB.Create(asset).Error; err != nil {
		return nil, err
	}
	return asset, nil
}

func (s *VideoService) HandleRegisterAsset(c *fiber.Ctx) error {
	var req RegisterVideoAssetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if !req.valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "upload_id and exactly one of course slot or breakdown_id are required",
		})
	}

	asset, err := s.RegisterAsset(req)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(asset)
}

func (s *VideoService) HandleListAssets(c *fiber.Ctx) error {
	var assets []models.VideoAsset
	query := s.DB
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&assets).Error; err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(assets)
}
