package services

import (
	"errors"

	"dojo-academy-system/middleware"
	"dojo-academy-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BreakdownService struct {
	DB *gorm.DB
}

func NewBreakdownService(db *gorm.DB) *BreakdownService {
	return &BreakdownService{DB: db}
}

type BreakdownWithTeacher struct {
	models.Breakdown
	Teacher string `json:"teacher"`
}

func (s *BreakdownService) withTeachers(breakdowns []models.Breakdown) ([]BreakdownWithTeacher, error) {
	ids := make([]string, 0, len(breakdowns))
	for _, b := range breakdowns {
		ids = append(ids, b.InstructorID)
	}

	names := make(map[string]string, len(ids))
	if len(ids) > 0 {
		var instructors []models.Instructor
		if err := s.DB.Where("id IN ?", ids).Find(&instructors).Error; err != nil {
			return nil, err
		}
		for _, inst := range instructors {
			names[inst.ID] = inst.Name
		}
	}

	out := make([]BreakdownWithTeacher, 0, len(breakdowns))
	for _, b := range breakdowns {
		teacher := names[b.InstructorID]
		if teacher == "" {
			teacher = "Unknown"
		}
		out = append(out, BreakdownWithTeacher{Breakdown: b, Teacher: teacher})
	}
	return out, nil
}

func (s *BreakdownService) LatestBreakdowns() ([]BreakdownWithTeacher, error) {
	var breakdowns []models.Breakdown
	if err := s.DB.Order("created_at DESC").Limit(latestLimit).Find(&breakdowns).Error; err != nil {
		return nil, err
	}
	return s.withTeachers(breakdowns)
}

func (s *BreakdownService) AllBreakdowns() ([]BreakdownWithTeacher, error) {
	var breakdowns []models.Breakdown
	if err := s.DB.Find(&breakdowns).Error; err != nil {
		return nil, err
	}
	return s.withTeachers(breakdowns)
}

func (s *BreakdownService) BreakdownsByInstructor(instructorID string) ([]BreakdownWithTeacher, error) {
	var breakdowns []models.Breakdown
	if err := s.DB.Where("instructor_id = ?", instructorID).Find(&breakdowns).Error; err != nil {
		return nil, err
	}
	return s.withTeachers(breakdowns)
}

func (s *BreakdownService) BreakdownByID(breakdownID string) (*BreakdownWithTeacher, error) {
	var breakdown models.Breakdown
	err := s.DB.First(&breakdown, "id = ?", breakdownID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Breakdown not found")
	}
	if err != nil {
		return nil, err
	}

	withTeacher, err := s.withTeachers([]models.Breakdown{breakdown})
	if err != nil {
		return nil, err
	}
	return &withTeacher[0], nil
}

// HasAccessToBreakdown: breakdowns are never free and never individually
// purchasable. Access derives solely from an active subscription to the
// breakdown's instructor.
func (s *BreakdownService) HasAccessToBreakdown(clerkID, breakdownID string) (bool, error) {
	user, err := userByClerkID(s.DB, clerkID)
	if anonymousOK(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var breakdown models.Breakdown
	err = s.DB.First(&breakdown, "id = ?", breakdownID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var sub models.Subscription
	err = s.DB.Where("user_id = ? AND instructor_id = ?", user.ID, breakdown.InstructorID).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sub.Active, nil
}

// MarkWatched records the watch, returning the existing row id when the pair
// is already marked.
func (s *BreakdownService) MarkWatched(clerkID, breakdownID string) (string, error) {
	user, err := userByClerkID(s.DB, clerkID)
	if err != nil {
		return "", err
	}

	var existing models.BreakdownWatch
	err = s.DB.Where("user_id = ? AND breakdown_id = ?", user.ID, breakdownID).
		First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	watch := models.BreakdownWatch{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		BreakdownID: breakdownID,
	}
	if err := s.DB.Create(&watch).Error; err != nil {
		return "", err
	}
	return watch.ID, nil
}

func (s *BreakdownService) UnmarkWatched(clerkID, breakdownID string) error {
	user, err := userByClerkID(s.DB, clerkID)
	if err != nil {
		return err
	}
	return s.DB.Where("user_id = ? AND breakdown_id = ?", user.ID, breakdownID).
		Delete(&models.BreakdownWatch{}).Error
}

func (s *BreakdownService) HasWatched(clerkID, breakdownID string) (bool, error) {
	user, err := userByClerkID(s.DB, clerkID)
	if anonymousOK(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var count int64
	if err := s.DB.Model(&models.BreakdownWatch{}).
		Where("user_id = ? AND breakdown_id = ?", user.ID, breakdownID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// WatchedBreakdownIDs lists the ids of breakdowns the user has marked.
func (s *BreakdownService) WatchedBreakdownIDs(clerkID string) ([]string, error) {
	user, err := userByClerkID(s.DB, clerkID)
	if anonymousOK(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var watches []models.BreakdownWatch
	if err := s.DB.Where("user_id = ?", user.ID).Find(&watches).Error; err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(watches))
	for _, w := range watches {
		ids = append(ids, w.BreakdownID)
	}
	return ids, nil
}

type CreateBreakdownRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Type         string `json:"type"`
	MartialArt   string `json:"martial_art"`
	InstructorID string `json:"instructor_id"`
	Duration     string `json:"duration"`
}

func (s *BreakdownService) CreateBreakdown(req CreateBreakdownRequest) (*models.Breakdown, error) {
	var count int64
	if err := s.DB.Model(&models.Instructor{}).
		Where("id = ?", req.InstructorID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, notFound("Instructor not found")
	}

	breakdown := &models.Breakdown{
		ID:           uuid.NewString(),
		Slug:         uniqueSlug(s.DB, &models.Breakdown{}, req.Title),
		Title:        req.Title,
		Description:  req.Description,
		Type:         req.Type,
		MartialArt:   req.MartialArt,
		InstructorID: req.InstructorID,
		Duration:     req.Duration,
	}
	if err := s.DB.Create(breakdown).Error; err != nil {
		return nil, err
	}
	return breakdown, nil
}

// ---- HTTP handlers ----

func (s *BreakdownService) HandleLatestBreakdowns(c *fiber.Ctx) error {
	breakdowns, err := s.LatestBreakdowns()
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(breakdowns)
}

func (s *BreakdownService) HandleAllBreakdowns(c *fiber.Ctx) error {
	breakdowns, err := s.AllBreakdowns()
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(breakdowns)
}

func (s *BreakdownService) HandleBreakdownsByInstructor(c *fiber.Ctx) error {
	breakdowns, err := s.BreakdownsByInstructor(c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(breakdowns)
}

func (s *BreakdownService) HandleBreakdownByID(c *fiber.Ctx) error {
	breakdown, err := s.BreakdownByID(c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(breakdown)
}

func (s *BreakdownService) HandleHasAccess(c *fiber.Ctx) error {
	hasAccess, err := s.HasAccessToBreakdown(middleware.ClerkID(c), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"has_access": hasAccess})
}

func (s *BreakdownService) HandleMarkWatched(c *fiber.Ctx) error {
	id, err := s.MarkWatched(middleware.ClerkID(c), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"id": id})
}

func (s *BreakdownService) HandleUnmarkWatched(c *fiber.Ctx) error {
	if err := s.UnmarkWatched(middleware.ClerkID(c), c.Params("id")); err != nil {
		return errorJSON(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *BreakdownService) HandleHasWatched(c *fiber.Ctx) error {
	watched, err := s.HasWatched(middleware.ClerkID(c), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"watched": watched})
}

func (s *BreakdownService) HandleWatchedBreakdowns(c *fiber.Ctx) error {
	ids, err := s.WatchedBreakdownIDs(middleware.ClerkID(c))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(ids)
}

func (s *BreakdownService) HandleCreateBreakdown(c *fiber.Ctx) error {
	var req CreateBreakdownRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Title == "" || req.InstructorID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title and instructor_id are required"})
	}

	breakdown, err := s.CreateBreakdown(req)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(breakdown)
}
