package services

import (
	"errors"
	"testing"

	"dojo-academy-system/models"
)

func TestHasAccessToCourse(t *testing.T) {
	db := testDB(t)
	svc := NewPurchaseService(db, nil)

	user := seedUser(t, db, "clerk_access", "access-user")
	instructor := seedInstructor(t, db, "Prof Silva")
	freeCourse := seedCourse(t, db, instructor.ID, nil, twoByTwo())
	zeroCourse := seedCourse(t, db, instructor.ID, floatPtr(0), twoByTwo())
	paidCourse := seedCourse(t, db, instructor.ID, floatPtr(49), twoByTwo())

	// Anonymous callers never have access, even to free courses.
	if got, err := svc.HasAccessToCourse("", freeCourse.ID); err != nil || got {
		t.Fatalf("anonymous access = %v, %v; want false, nil", got, err)
	}

	// Unknown course resolves to no access rather than an error.
	if got, err := svc.HasAccessToCourse(user.ClerkID, "missing"); err != nil || got {
		t.Fatalf("missing course access = %v, %v; want false, nil", got, err)
	}

	// Free means price absent or zero.
	for _, course := range []*models.Course{freeCourse, zeroCourse} {
		if got, err := svc.HasAccessToCourse(user.ClerkID, course.ID); err != nil || !got {
			t.Fatalf("free course access = %v, %v; want true, nil", got, err)
		}
	}

	// Paid course without purchase or subscription.
	if got, err := svc.HasAccessToCourse(user.ClerkID, paidCourse.ID); err != nil || got {
		t.Fatalf("paid course access = %v, %v; want false, nil", got, err)
	}

	if _, err := svc.PurchaseCourse(user.ClerkID, paidCourse.ID); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if got, err := svc.HasAccessToCourse(user.ClerkID, paidCourse.ID); err != nil || !got {
		t.Fatalf("purchased course access = %v, %v; want true, nil", got, err)
	}
}

func TestHasAccessToCourse_Subscription(t *testing.T) {
	db := testDB(t)
	svc := NewPurchaseService(db, nil)

	user := seedUser(t, db, "clerk_sub", "sub-user")
	instructor := seedInstructor(t, db, "Prof Garcia")
	course := seedCourse(t, db, instructor.ID, floatPtr(89), twoByTwo())

	subID, err := svc.SubscribeToInstructor(user.ClerkID, instructor.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if got, _ := svc.HasAccessToCourse(user.ClerkID, course.ID); !got {
		t.Fatal("active subscription should grant access to the instructor's paid course")
	}

	// A cancelled subscription row stays behind but grants nothing.
	var sub models.Subscription
	if err := db.First(&sub, "id = ?", subID).Error; err != nil {
		t.Fatalf("load subscription: %v", err)
	}
	if err := db.Model(&sub).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if got, _ := svc.HasAccessToCourse(user.ClerkID, course.ID); got {
		t.Fatal("inactive subscription should not grant access")
	}
}

func TestPurchaseCourse_Duplicate(t *testing.T) {
	db := testDB(t)
	svc := NewPurchaseService(db, nil)

	user := seedUser(t, db, "clerk_dup", "dup-user")
	instructor := seedInstructor(t, db, "Prof Ruas")
	course := seedCourse(t, db, instructor.ID, floatPtr(30), twoByTwo())

	if _, err := svc.PurchaseCourse(user.ClerkID, course.ID); err != nil {
		t.Fatalf("first purchase: %v", err)
	}

	_, err := svc.PurchaseCourse(user.ClerkID, course.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second purchase err = %v; want conflict", err)
	}
	if err.Error() != "Already purchased" {
		t.Fatalf("conflict message = %q", err.Error())
	}

	var count int64
	db.Model(&models.Purchase{}).Count(&count)
	if count != 1 {
		t.Fatalf("purchase rows = %d; want 1", count)
	}
}

func TestPurchaseCourse_MissingCourse(t *testing.T) {
	db := testDB(t)
	svc := NewPurchaseService(db, nil)
	user := seedUser(t, db, "clerk_miss", "miss-user")

	_, err := svc.PurchaseCourse(user.ClerkID, "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v; want not found", err)
	}
}

func TestSubscribeToInstructor_Reactivates(t *testing.T) {
	db := testDB(t)
	svc := NewPurchaseService(db, nil)

	user := seedUser(t, db, "clerk_resub", "resub-user")
	instructor := seedInstructor(t, db, "Prof Machado")

	firstID, err := svc.SubscribeToInstructor(user.ClerkID, instructor.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := db.Model(&models.Subscription{}).
		Where("id = ?", firstID).
		Update("active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	secondID, err := svc.SubscribeToInstructor(user.ClerkID, instructor.ID)
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	if secondID != firstID {
		t.Fatalf("resubscribe created new row %s; want reuse of %s", secondID, firstID)
	}

	var sub models.Subscription
	db.First(&sub, "id = ?", firstID)
	if !sub.Active {
		t.Fatal("resubscribe should reactivate the row")
	}

	var count int64
	db.Model(&models.Subscription{}).Count(&count)
	if count != 1 {
		t.Fatalf("subscription rows = %d; want 1", count)
	}
}

func TestRecordCoursePurchase_Replay(t *testing.T) {
	db := testDB(t)
	svc := NewPurchaseService(db, nil)

	user := seedUser(t, db, "clerk_hook", "hook-user")
	instructor := seedInstructor(t, db, "Prof Gracie")
	course := seedCourse(t, db, instructor.ID, floatPtr(75), twoByTwo())

	firstID, err := svc.RecordCoursePurchase(user.ClerkID, course.ID)
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	secondID, err := svc.RecordCoursePurchase(user.ClerkID, course.ID)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if secondID != firstID {
		t.Fatalf("replay returned %s; want existing id %s", secondID, firstID)
	}

	var count int64
	db.Model(&models.Purchase{}).Count(&count)
	if count != 1 {
		t.Fatalf("purchase rows after replay = %d; want 1", count)
	}
}

func TestActivateSubscription_Upsert(t *testing.T) {
	db := testDB(t)
	svc := NewPurchaseService(db, nil)

	user := seedUser(t, db, "clerk_act", "act-user")
	instructor := seedInstructor(t, db, "Prof Couture")

	firstID, err := svc.ActivateSubscription(user.ClerkID, instructor.ID, "sub_123", "cus_456")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	secondID, err := svc.ActivateSubscription(user.ClerkID, instructor.ID, "sub_123", "cus_456")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if secondID != firstID {
		t.Fatalf("replay returned %s; want %s", secondID, firstID)
	}

	var sub models.Subscription
	db.First(&sub, "id = ?", firstID)
	if !sub.Active || sub.StripeSubscriptionID != "sub_123" || sub.StripeCustomerID != "cus_456" {
		t.Fatalf("unexpected row after activate: %+v", sub)
	}
}

func TestDeactivateSubscriptionByStripeID(t *testing.T) {
	db := testDB(t)
	svc := NewPurchaseService(db, nil)

	user := seedUser(t, db, "clerk_deact", "deact-user")
	instructor := seedInstructor(t, db, "Prof Penn")

	subID, err := svc.ActivateSubscription(user.ClerkID, instructor.ID, "sub_live", "cus_live")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}

	// Unknown reference is a silent no-op, not an error.
	if err := svc.DeactivateSubscriptionByStripeID("sub_unknown"); err != nil {
		t.Fatalf("unknown ref: %v", err)
	}
	if err := svc.DeactivateSubscriptionByStripeID(""); err != nil {
		t.Fatalf("empty ref: %v", err)
	}

	var sub models.Subscription
	db.First(&sub, "id = ?", subID)
	if !sub.Active {
		t.Fatal("no-op deactivations should not touch other rows")
	}

	if err := svc.DeactivateSubscriptionByStripeID("sub_live"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	db.First(&sub, "id = ?", subID)
	if sub.Active {
		t.Fatal("subscription should be inactive after deactivation")
	}
}

func TestUserPurchases_Anonymous(t *testing.T) {
	db := testDB(t)
	svc := NewPurchaseService(db, nil)

	purchases, err := svc.UserPurchases("")
	if err != nil {
		t.Fatalf("anonymous purchases: %v", err)
	}
	if len(purchases) != 0 {
		t.Fatalf("anonymous purchases = %d rows; want 0", len(purchases))
	}

	subs, err := svc.UserSubscriptions("clerk_nobody")
	if err != nil {
		t.Fatalf("unknown identity subscriptions: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("unknown identity subscriptions = %d rows; want 0", len(subs))
	}
}
