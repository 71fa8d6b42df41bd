package services

import (
	"context"
	"errors"
	"log"

	"dojo-academy-system/middleware"
	"dojo-academy-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PurchaseService struct {
	DB  *gorm.DB
	Bus EventBus
}

func NewPurchaseService(db *gorm.DB, bus EventBus) *PurchaseService {
	return &PurchaseService{DB: db, Bus: bus}
}

// HasAccessToCourse is the entitlement evaluator. Pure read, safe to call
// concurrently with writes. Rule order: anonymous → false, missing course →
// false, free course → true, purchase → true, active subscription → true,
// otherwise false.
func (s *PurchaseService) HasAccessToCourse(clerkID, courseID string) (bool, error) {
	user, err := userByClerkID(s.DB, clerkID)
	if anonymousOK(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var course models.Course
	err = s.DB.First(&course, "id = ?", courseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if course.IsFree() {
		return true, nil
	}

	var count int64
	if err := s.DB.Model(&models.Purchase{}).
		Where("user_id = ? AND course_id = ?", user.ID, courseID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	var sub models.Subscription
	err = s.DB.Where("user_id = ? AND instructor_id = ?", user.ID, course.InstructorID).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sub.Active, nil
}

// PurchaseCourse is the user-facing mutation. Unlike the webhook path it is
// strict: a duplicate purchase is a Conflict, since the channel is a single
// UI action rather than at-least-once delivery.
func (s *PurchaseService) PurchaseCourse(clerkID, courseID string) (*models.Purchase, error) {
	user, err := userByClerkID(s.DB, clerkID)
	if err != nil {
		return nil, err
	}

	purchase := &models.Purchase{
		ID:       uuid.NewString(),
		UserID:   user.ID,
		CourseID: courseID,
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

		if err := tx.Model(&models.Purchase{}).
			Where("user_id = ? AND course_id = ?", user.ID, courseID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return conflict("Already purchased")
		}

		return tx.Create(purchase).Error
	})
	if err != nil {
		return nil, err
	}

	s.publish(ChangeEvent{Type: EventPurchase, UserID: user.ID, SubjectID: courseID})
	return purchase, nil
}

// SubscribeToInstructor upserts the (user, instructor) row: resubscribing
// reactivates the existing row instead of creating a duplicate.
func (s *PurchaseService) SubscribeToInstructor(clerkID, instructorID string) (string, error) {
	user, err := userByClerkID(s.DB, clerkID)
	if err != nil {
		return "", err
	}

	var subID string
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Instructor{}).
			Where("id = ?", instructorID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return notFound("Instructor not found")
		}

		var existing models.Subscription
		err := tx.Where("user_id = ? AND instructor_id = ?", user.ID, instructorID).
			First(&existing).Error
		if err == nil {
			subID = existing.ID
			return tx.Model(&existing).Update("active", true).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		sub := models.Subscription{
			ID:           uuid.NewString(),
			UserID:       user.ID,
			InstructorID: instructorID,
			Active:       true,
		}
		subID = sub.ID
		return tx.Create(&sub).Error
	})
	if err != nil {
		return "", err
	}

	s.publish(ChangeEvent{Type: EventSubscription, UserID: user.ID, SubjectID: instructorID})
	return subID, nil
}

func (s *PurchaseService) UserPurchases(clerkID string) ([]models.Purchase, error) {
	user, err := userByClerkID(s.DB, clerkID)
	if anonymousOK(err) {
		return []models.Purchase{}, nil
	}
	if err != nil {
		return nil, err
	}

	var purchases []models.Purchase
	if err := s.DB.Where("user_id = ?", user.ID).Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

func (s *PurchaseService) UserSubscriptions(clerkID string) ([]models.Subscription, error) {
	user, err := userByClerkID(s.DB, clerkID)
	if anonymousOK(err) {
		return []models.Subscription{}, nil
	}
	if err != nil {
		return nil, err
	}

	var subs []models.Subscription
	if err := s.DB.Where("user_id = ?", user.ID).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// ---- webhook reconciliation mutations ----
//
// These run on an at-least-once delivery channel, so unlike the user-facing
// mutations above they are idempotent: replays converge instead of erroring.

// RecordCoursePurchase inserts the purchase if absent and returns the
// existing row's id otherwise.
func (s *PurchaseService) RecordCoursePurchase(clerkID, courseID string) (string, error) {
	user, err := userByClerkID(s.DB, clerkID)
	if err != nil {
		return "", err
	}

	var purchaseID string
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.Purchase
		err := tx.Where("user_id = ? AND course_id = ?", user.ID, courseID).
			First(&existing).Error
		if err == nil {
			purchaseID = existing.ID
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		purchase := models.Purchase{
			ID:       uuid.NewString(),
			UserID:   user.ID,
			CourseID: courseID,
		}
		purchaseID = purchase.ID
		return tx.Create(&purchase).Error
	})
	if err != nil {
		return "", err
	}

	s.publish(ChangeEvent{Type: EventPurchase, UserID: user.ID, SubjectID: courseID})
	return purchaseID, nil
}

// ActivateSubscription upserts the subscription row with the processor
// references from a completed checkout.
func (s *PurchaseService) ActivateSubscription(clerkID, instructorID, stripeSubscriptionID, stripeCustomerID string) (string, error) {
	user, err := userByClerkID(s.DB, clerkID)
	if err != nil {
		return "", err
	}

	var subID string
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.Subscription
		err := tx.Where("user_id = ? AND instructor_id = ?", user.ID, instructorID).
			First(&existing).Error
		if err == nil {
			subID = existing.ID
			return tx.Model(&existing).Updates(map[string]interface{}{
				"active":                 true,
				"stripe_subscription_id": stripeSubscriptionID,
				"stripe_customer_id":     stripeCustomerID,
			}).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		sub := models.Subscription{
			ID:                   uuid.NewString(),
			UserID:               user.ID,
			InstructorID:         instructorID,
			Active:               true,
			StripeSubscriptionID: stripeSubscriptionID,
			StripeCustomerID:     stripeCustomerID,
		}
		subID = sub.ID
		return tx.Create(&sub).Error
	})
	if err != nil {
		return "", err
	}

	s.publish(ChangeEvent{Type: EventSubscription, UserID: user.ID, SubjectID: instructorID})
	return subID, nil
}

// DeactivateSubscriptionByStripeID flips Active off for the row holding the
// processor subscription reference. No-op when no row matches (already
// deactivated or never recorded).
func (s *PurchaseService) DeactivateSubscriptionByStripeID(stripeSubscriptionID string) error {
	if stripeSubscriptionID == "" {
		return nil
	}

	var sub models.Subscription
	err := s.DB.Where("stripe_subscription_id = ?", stripeSubscriptionID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.DB.Model(&sub).Update("active", false).Error; err != nil {
		return err
	}

	s.publish(ChangeEvent{Type: EventSubscription, UserID: sub.UserID, SubjectID: sub.InstructorID})
	return nil
}

func (s *PurchaseService) publish(ev ChangeEvent) {
	if s.Bus == nil {
		return
	}
	if err := s.Bus.Publish(context.Background(), ev); err != nil {
		log.Printf("purchase: event publish failed: %v", err)
	}
}

// ---- HTTP handlers ----

func (s *PurchaseService) HandleHasAccessToCourse(c *fiber.Ctx) error {
	hasAccess, err := s.HasAccessToCourse(middleware.ClerkID(c), c.Params("courseId"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"has_access": hasAccess})
}

func (s *PurchaseService) HandlePurchaseCourse(c *fiber.Ctx) error {
	purchase, err := s.PurchaseCourse(middleware.ClerkID(c), c.Params("courseId"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(purchase)
}

func (s *PurchaseService) HandleSubscribe(c *fiber.Ctx) error {
	subID, err := s.SubscribeToInstructor(middleware.ClerkID(c), c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"id": subID})
}

func (s *PurchaseService) HandleUserPurchases(c *fiber.Ctx) error {
	purchases, err := s.UserPurchases(middleware.ClerkID(c))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(purchases)
}

func (s *PurchaseService) HandleUserSubscriptions(c *fiber.Ctx) error {
	subs, err := s.UserSubscriptions(middleware.ClerkID(c))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(subs)
}
