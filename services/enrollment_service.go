package services

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"dojo-academy-system/middleware"
	"dojo-academy-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EnrollmentService struct {
	DB  *gorm.DB
	Bus EventBus
}

func NewEnrollmentService(db *gorm.DB, bus EventBus) *EnrollmentService {
	return &EnrollmentService{DB: db, Bus: bus}
}

// EnrollmentProgress is an enrollment with its computed completion state.
// TotalSections reflects the course's layout at read time.
type EnrollmentProgress struct {
	models.Enrollment
	Progress      int `json:"progress"`
	TotalSections int `json:"total_sections"`
}

// EnrollmentView additionally carries the joined course for dashboards.
type EnrollmentView struct {
	EnrollmentProgress
	Course CourseWithTeacher `json:"course"`
}

func progressPercent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// Enroll starts a course for the user. Enrollment is deliberately strict:
// a second call for the same (user, course) fails rather than upserting.
func (s *EnrollmentService) Enroll(clerkID, courseID string) (*models.Enrollment, error) {
	user, err := userByClerkID(s.DB, clerkID)
	if err != nil {
		return nil, err
	}

	enrollment := &models.Enrollment{
		ID:                uuid.NewString(),
		UserID:            user.ID,
		CourseID:          courseID,
		StartedAt:         time.Now(),
		CompletedSections: []string{},
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Course{}).
			Where("id = ?", courseID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return notFound("Course not found")
		}

		if err := tx.Model(&models.Enrollment{}).
			Where("user_id = ? AND course_id = ?", user.ID, courseID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return conflict("Already enrolled")
		}

		return tx.Create(enrollment).Error
	})
	if err != nil {
		return nil, err
	}

	s.publish(ChangeEvent{Type: EventEnrollment, UserID: user.ID, SubjectID: courseID})
	return enrollment, nil
}

// MarkSectionComplete records a positional section key. Repeat keys no-op
// silently. CompletedAt is set the first time the completed count reaches the
// course's current total section count and is never unset afterwards.
func (s *EnrollmentService) MarkSectionComplete(clerkID, courseID, sectionID string) error {
	user, err := userByClerkID(s.DB, clerkID)
	if err != nil {
		return err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var enrollment models.Enrollment
		err := tx.Where("user_id = ? AND course_id = ?", user.ID, courseID).
			First(&enrollment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("Not enrolled in this course")
		}
		if err != nil {
			return err
		}

		if enrollment.HasCompleted(sectionID) {
			return nil
		}

		enrollment.CompletedSections = append(enrollment.CompletedSections, sectionID)

		var course models.Course
		totalSections := 0
		if err := tx.First(&course, "id = ?", courseID).Error; err == nil {
			totalSections = course.TotalSections()
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		updates := map[string]interface{}{
			"completed_sections": enrollment.CompletedSections,
		}
		if totalSections > 0 && len(enrollment.CompletedSections) >= totalSections &&
			enrollment.CompletedAt == nil {
			updates["completed_at"] = time.Now()
		}

		return tx.Model(&enrollment).Updates(updates).Error
	})
	if err != nil {
		return err
	}

	s.publish(ChangeEvent{Type: EventProgress, UserID: user.ID, SubjectID: courseID})
	return nil
}

// UserEnrollments lists the user's enrollments with joined course and
// progress. Enrollments whose course has since been deleted are skipped, not
// errored.
func (s *EnrollmentService) UserEnrollments(clerkID string) ([]EnrollmentView, error) {
	user, err := userByClerkID(s.DB, clerkID)
	if anonymousOK(err) {
		return []EnrollmentView{}, nil
	}
	if err != nil {
		return nil, err
	}

	var enrollments []models.Enrollment
	if err := s.DB.Where("user_id = ?", user.ID).Find(&enrollments).Error; err != nil {
		return nil, err
	}

	views := make([]EnrollmentView, 0, len(enrollments))
	for _, enrollment := range enrollments {
		var course models.Course
		err := s.DB.First(&course, "id = ?", enrollment.CourseID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue // course deleted since enrollment
		}
		if err != nil {
			return nil, err
		}

		teacher := "Unknown"
		var instructor models.Instructor
		if err := s.DB.First(&instructor, "id = ?", course.InstructorID).Error; err == nil {
			teacher = instructor.Name
		}

		total := course.TotalSections()
		views = append(views, EnrollmentView{
			EnrollmentProgress: EnrollmentProgress{
				Enrollment:    enrollment,
				Progress:      progressPercent(len(enrollment.CompletedSections), total),
				TotalSections: total,
			},
			Course: CourseWithTeacher{Course: course, Teacher: teacher},
		})
	}
	return views, nil
}

// Enrollment returns the user's enrollment for one course with progress, or
// nil when anonymous / not enrolled.
func (s *EnrollmentService) Enrollment(clerkID, courseID string) (*EnrollmentProgress, error) {
	user, err := userByClerkID(s.DB, clerkID)
	if anonymousOK(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var enrollment models.Enrollment
	err = s.DB.Where("user_id = ? AND course_id = ?", user.ID, courseID).
		First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	total := 0
	var course models.Course
	if err := s.DB.First(&course, "id = ?", courseID).Error; err == nil {
		total = course.TotalSections()
	}

	return &EnrollmentProgress{
		Enrollment:    enrollment,
		Progress:      progressPercent(len(enrollment.CompletedSections), total),
		TotalSections: total,
	}, nil
}

func (s *EnrollmentService) publish(ev ChangeEvent) {
	if s.Bus == nil {
		return
	}
	if err := s.Bus.Publish(context.Background(), ev); err != nil {
		log.Printf("enrollment: event publish failed: %v", err)
	}
}

// ---- HTTP handlers ----

func (s *EnrollmentService) HandleEnroll(c *fiber.Ctx) error {
	enrollment, err := s.Enroll(middleware.ClerkID(c), c.Params("courseId"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(enrollment)
}

func (s *EnrollmentService) HandleMarkSectionComplete(c *fiber.Ctx) error {
	var req struct {
		SectionID string `json:"section_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.SectionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "section_id is required"})
	}

	if err := s.MarkSectionComplete(middleware.ClerkID(c), c.Params("courseId"), req.SectionID); err != nil {
		return errorJSON(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *EnrollmentService) HandleUserEnrollments(c *fiber.Ctx) error {
	views, err := s.UserEnrollments(middleware.ClerkID(c))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(views)
}

func (s *EnrollmentService) HandleEnrollment(c *fiber.Ctx) error {
	enrollment, err := s.Enrollment(middleware.ClerkID(c), c.Params("courseId"))
	if err != nil {
		return errorJSON(c, err)
	}
	if enrollment == nil {
		return c.JSON(nil)
	}
	return c.JSON(enrollment)
}
