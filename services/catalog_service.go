package services

import (
	"errors"
	"fmt"
	"path/filepath"

	"dojo-academy-system/models"
	"dojo-academy-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// latestLimit caps the "latest" catalog queries.
const latestLimit = 8

type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

// CourseWithTeacher is a course with the instructor's display name joined on
// read. The name is never stored on the course row, so instructor renames
// show up on the next read.
type CourseWithTeacher struct {
	models.Course
	Teacher string `json:"teacher"`
}

// teacherNames resolves instructor display names for a set of instructor ids.
// Dangling references resolve to "Unknown".
func (s *CatalogService) teacherNames(instructorIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(instructorIDs))
	if len(instructorIDs) == 0 {
		return names, nil
	}

	var instructors []models.Instructor
	if err := s.DB.Where("id IN ?", instructorIDs).Find(&instructors).Error; err != nil {
		return nil, err
	}
	for _, inst := range instructors {
		names[inst.ID] = inst.Name
	}
	return names, nil
}

func (s *CatalogService) withTeachers(courses []models.Course) ([]CourseWithTeacher, error) {
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.InstructorID)
	}
	names, err := s.teacherNames(ids)
	if err != nil {
		return nil, err
	}

	out := make([]CourseWithTeacher, 0, len(courses))
	for _, c := range courses {
		teacher := names[c.InstructorID]
		if teacher == "" {
			teacher = "Unknown"
		}
		out = append(out, CourseWithTeacher{Course: c, Teacher: teacher})
	}
	return out, nil
}

// LatestCourses returns the newest courses, capped at 8.
func (s *CatalogService) LatestCourses() ([]CourseWithTeacher, error) {
	var courses []models.Course
	if err := s.DB.Order("created_at DESC").Limit(latestLimit).Find(&courses).Error; err != nil {
		return nil, err
	}
	return s.withTeachers(courses)
}

func (s *CatalogService) AllCourses() ([]CourseWithTeacher, error) {
	var courses []models.Course
	if err := s.DB.Find(&courses).Error; err != nil {
		return nil, err
	}
	return s.withTeachers(courses)
}

// FreeCourses treats an absent price and a zero price identically.
func (s *CatalogService) FreeCourses() ([]CourseWithTeacher, error) {
	var courses []models.Course
	if err := s.DB.Where("price IS NULL OR price = 0").Find(&courses).Error; err != nil {
		return nil, err
	}
	return s.withTeachers(courses)
}

func (s *CatalogService) CoursesByInstructor(instructorID string) ([]CourseWithTeacher, error) {
	var courses []models.Course
	if err := s.DB.Where("instructor_id = ?", instructorID).Find(&courses).Error; err != nil {
		return nil, err
	}
	return s.withTeachers(courses)
}

func (s *CatalogService) CourseByID(courseID string) (*CourseWithTeacher, error) {
	var course models.Course
	err := s.DB.First(&course, "id = ?", courseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Course not found")
	}
	if err != nil {
		return nil, err
	}

	withTeacher, err := s.withTeachers([]models.Course{course})
	if err != nil {
		return nil, err
	}
	return &withTeacher[0], nil
}

func (s *CatalogService) Instructors() ([]models.Instructor, error) {
	var instructors []models.Instructor
	if err := s.DB.Find(&instructors).Error; err != nil {
		return nil, err
	}
	return instructors, nil
}

func (s *CatalogService) InstructorByID(instructorID string) (*models.Instructor, error) {
	var instructor models.Instructor
	err := s.DB.First(&instructor, "id = ?", instructorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Instructor not found")
	}
	if err != nil {
		return nil, err
	}
	return &instructor, nil
}

// ---- admin creation (content ingestion) ----

type CreateInstructorRequest struct {
	Name                     string   `json:"name"`
	Bio                      string   `json:"bio"`
	SubscriptionPrice        float64  `json:"subscription_price"`
	Disciplines              []string `json:"disciplines"`
	StripeConnectedAccountID string   `json:"stripe_connected_account_id"`
}

func (s *CatalogService) CreateInstructor(req CreateInstructorRequest) (*models.Instructor, error) {
	instructor := &models.Instructor{
		ID:                       uuid.NewString(),
		Name:                     req.Name,
		Slug:                     uniqueSlug(s.DB, &models.Instructor{}, req.Name),
		Bio:                      req.Bio,
		SubscriptionPrice:        req.SubscriptionPrice,
		Disciplines:              req.Disciplines,
		StripeConnectedAccountID: req.StripeConnectedAccountID,
	}
	if err := s.DB.Create(instructor).Error; err != nil {
		return nil, err
	}
	return instructor, nil
}

type CreateCourseRequest struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Difficulty   string          `json:"difficulty"`
	MartialArt   string          `json:"martial_art"`
	InstructorID string          `json:"instructor_id"`
	Duration     string          `json:"duration"`
	Price        *float64        `json:"price,omitempty"`
	Volumes      []models.Volume `json:"volumes"`
}

func (s *CatalogService) CreateCourse(req CreateCourseRequest) (*models.Course, error) {
	if _, err := s.InstructorByID(req.InstructorID); err != nil {
		return nil, err
	}

	course := &models.Course{
		ID:           uuid.NewString(),
		Slug:         uniqueSlug(s.DB, &models.Course{}, req.Title),
		Title:        req.Title,
		Description:  req.Description,
		Difficulty:   req.Difficulty,
		MartialArt:   req.MartialArt,
		InstructorID: req.InstructorID,
		Duration:     req.Duration,
		Price:        req.Price,
		Volumes:      req.Volumes,
	}
	if err := s.DB.Create(course).Error; err != nil {
		return nil, err
	}
	return course, nil
}

// uniqueSlug derives a URL slug from the title, suffixing on collision.
func uniqueSlug(db *gorm.DB, model interface{}, title string) string {
	base := slug.Make(title)
	var count int64
	if err := db.Model(model).Where("slug = ?", base).Count(&count).Error; err == nil && count == 0 {
		return base
	}
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
}

// ---- HTTP handlers ----

func (s *CatalogService) HandleLatestCourses(c *fiber.Ctx) error {
	courses, err := s.LatestCourses()
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(courses)
}

func (s *CatalogService) HandleAllCourses(c *fiber.Ctx) error {
	courses, err := s.AllCourses()
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(courses)
}

func (s *CatalogService) HandleFreeCourses(c *fiber.Ctx) error {
	courses, err := s.FreeCourses()
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(courses)
}

func (s *CatalogService) HandleCoursesByInstructor(c *fiber.Ctx) error {
	courses, err := s.CoursesByInstructor(c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(courses)
}

func (s *CatalogService) HandleCourseByID(c *fiber.Ctx) error {
	course, err := s.CourseByID(c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(course)
}

func (s *CatalogService) HandleInstructors(c *fiber.Ctx) error {
	instructors, err := s.Instructors()
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(instructors)
}

func (s *CatalogService) HandleInstructorByID(c *fiber.Ctx) error {
	instructor, err := s.InstructorByID(c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(instructor)
}

func (s *CatalogService) HandleCreateInstructor(c *fiber.Ctx) error {
	var req CreateInstructorRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	instructor, err := s.CreateInstructor(req)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(instructor)
}

func (s *CatalogService) HandleCreateCourse(c *fiber.Ctx) error {
	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Title == "" || req.InstructorID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title and instructor_id are required"})
	}

	course, err := s.CreateCourse(req)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(course)
}

// HandleUploadCourseImage stores course artwork on R2 and records the URL.
func (s *CatalogService) HandleUploadCourseImage(c *fiber.Ctx) error {
	return s.uploadImage(c, &models.Course{}, "courses")
}

func (s *CatalogService) HandleUploadInstructorImage(c *fiber.Ctx) error {
	return s.uploadImage(c, &models.Instructor{}, "instructors")
}

func (s *CatalogService) uploadImage(c *fiber.Ctx, model interface{}, prefix string) error {
	imageFile, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image is required"})
	}
	if imageFile.Size > 10*1024*1024 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image too large (max 10MB)"})
	}

	id := c.Params("id")
	var count int64
	if err := s.DB.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return errorJSON(c, err)
	}
	if count == 0 {
		return errorJSON(c, notFound("record not found"))
	}

	ext := filepath.Ext(imageFile.Filename)
	if ext == "" {
		ext = ".png"
	}
	key := prefix + "/" + uuid.NewString() + ext
	url, err := utils.UploadImageToR2(imageFile, key)
	if err != nil {
		return errorJSON(c, external("failed to upload image"))
	}

	if err := s.DB.Model(model).Where("id = ?", id).Update("image_url", url).Error; err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"image_url": url})
}
