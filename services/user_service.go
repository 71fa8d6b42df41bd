package services

import (
	"errors"
	"strings"
	"time"

	"dojo-academy-system/middleware"
	"dojo-academy-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// NormalizeUsername folds the handle to a canonical form before any
// uniqueness check so visually-identical handles collide.
func NormalizeUsername(username string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(username)))
}

// GetUserByClerkID resolves the local user for an external identity.
// Returns ErrNotAuthenticated for an empty id and ErrUserNotFound when no
// local row exists.
func (s *UserService) GetUserByClerkID(clerkID string) (*models.User, error) {
	return userByClerkID(s.DB, clerkID)
}

// CheckUsername is the advisory availability query. Blank or whitespace-only
// input is always reported available; creation re-checks authoritatively.
func (s *UserService) CheckUsername(username string) (bool, error) {
	normalized := NormalizeUsername(username)
	if normalized == "" {
		return true, nil
	}

	var count int64
	if err := s.DB.Model(&models.User{}).
		Where("username = ?", normalized).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

type CreateUserRequest struct {
	Name              string        `json:"name"`
	Username          string        `json:"username"`
	ImageURL          string        `json:"image_url"`
	DateOfBirth       time.Time     `json:"date_of_birth"`
	Country           string        `json:"country"`
	Disciplines       []string      `json:"disciplines"`
	YearsOfExperience int           `json:"years_of_experience"`
	Goals             []string      `json:"goals"`
	Belts             []models.Belt `json:"belts,omitempty"`
}

// CreateUser registers the local row for an external identity, first-write
// wins. The username uniqueness check runs again inside the transaction to
// close the race with the advisory CheckUsername query.
func (s *UserService) CreateUser(clerkID string, req CreateUserRequest) (*models.User, error) {
	if clerkID == "" {
		return nil, ErrNotAuthenticated
	}

	user := &models.User{
		ID:                 uuid.NewString(),
		ClerkID:            clerkID,
		Name:               req.Name,
		Username:           NormalizeUsername(req.Username),
		ImageURL:           req.ImageURL,
		DateOfBirth:        req.DateOfBirth,
		Country:            req.Country,
		Disciplines:        req.Disciplines,
		YearsOfExperience:  req.YearsOfExperience,
		Goals:              req.Goals,
		Belts:              req.Belts,
		OnboardingComplete: true,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).
			Where("clerk_id = ?", clerkID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return conflict("User already exists")
		}

		if err := tx.Model(&models.User{}).
			Where("username = ?", user.Username).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return conflict("Username already taken")
		}

		return tx.Create(user).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUserBelt replaces the belt entry for the given discipline, leaving
// other disciplines' entries untouched. A discipline without an existing
// entry gets one appended.
func (s *UserService) UpdateUserBelt(clerkID string, belt models.Belt) (*models.User, error) {
	user, err := s.GetUserByClerkID(clerkID)
	if err != nil {
		return nil, err
	}

	updated := false
	belts := []models.Belt(user.Belts)
	for i := range belts {
		if belts[i].Discipline == belt.Discipline {
			belts[i] = belt
			updated = true
			break
		}
	}
	if !updated {
		belts = append(belts, belt)
	}

	user.Belts = belts
	if err := s.DB.Model(user).Update("belts", user.Belts).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// ---- HTTP handlers ----

// GetCurrentUser returns the signed-in user's row, or null for anonymous
// callers and identities without a local row.
func (s *UserService) GetCurrentUser(c *fiber.Ctx) error {
	user, err := s.GetUserByClerkID(middleware.ClerkID(c))
	if errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrUserNotFound) {
		return c.JSON(nil)
	}
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(user)
}

func (s *UserService) HandleCheckUsername(c *fiber.Ctx) error {
	available, err := s.CheckUsername(c.Query("username"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"available": available})
}

func (s *UserService) HandleCreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	user, err := s.CreateUser(middleware.ClerkID(c), req)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (s *UserService) HandleUpdateBelt(c *fiber.Ctx) error {
	var belt models.Belt
	if err := c.BodyParser(&belt); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if belt.Discipline == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "discipline is required"})
	}

	user, err := s.UpdateUserBelt(middleware.ClerkID(c), belt)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(user)
}
