package services

import (
	"testing"

	"dojo-academy-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func seedBreakdown(t *testing.T, db *gorm.DB, instructorID string) *models.Breakdown {
	t.Helper()
	breakdown := &models.Breakdown{
		ID:           uuid.NewString(),
		Slug:         uuid.NewString(),
		Title:        "Fight Breakdown",
		Type:         models.BreakdownTypeTechnique,
		MartialArt:   models.MartialArtMMA,
		InstructorID: instructorID,
	}
	if err := db.Create(breakdown).Error; err != nil {
		t.Fatalf("seed breakdown: %v", err)
	}
	return breakdown
}

func TestHasAccessToBreakdown_SubscriptionOnly(t *testing.T) {
	db := testDB(t)
	svc := NewBreakdownService(db)
	purchases := NewPurchaseService(db, nil)

	user := seedUser(t, db, "clerk_bd", "bd-user")
	instructor := seedInstructor(t, db, "Prof Cerrone")
	breakdown := seedBreakdown(t, db, instructor.ID)

	if got, err := svc.HasAccessToBreakdown("", breakdown.ID); err != nil || got {
		t.Fatalf("anonymous access = %v, %v; want false, nil", got, err)
	}
	if got, err := svc.HasAccessToBreakdown(user.ClerkID, breakdown.ID); err != nil || got {
		t.Fatalf("unsubscribed access = %v, %v; want false, nil", got, err)
	}
	if got, err := svc.HasAccessToBreakdown(user.ClerkID, "missing"); err != nil || got {
		t.Fatalf("missing breakdown access = %v, %v; want false, nil", got, err)
	}

	if _, err := purchases.SubscribeToInstructor(user.ClerkID, instructor.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if got, _ := svc.HasAccessToBreakdown(user.ClerkID, breakdown.ID); !got {
		t.Fatal("active subscriber should have breakdown access")
	}
}

func TestWatchLifecycle(t *testing.T) {
	db := testDB(t)
	svc := NewBreakdownService(db)

	user := seedUser(t, db, "clerk_watch", "watch-user")
	instructor := seedInstructor(t, db, "Prof Edgar")
	breakdown := seedBreakdown(t, db, instructor.ID)

	if watched, _ := svc.HasWatched(user.ClerkID, breakdown.ID); watched {
		t.Fatal("fresh breakdown should be unwatched")
	}

	firstID, err := svc.MarkWatched(user.ClerkID, breakdown.ID)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	secondID, err := svc.MarkWatched(user.ClerkID, breakdown.ID)
	if err != nil {
		t.Fatalf("re-mark: %v", err)
	}
	if secondID != firstID {
		t.Fatalf("re-mark returned %s; want existing id %s", secondID, firstID)
	}

	ids, err := svc.WatchedBreakdownIDs(user.ClerkID)
	if err != nil {
		t.Fatalf("list watched: %v", err)
	}
	if len(ids) != 1 || ids[0] != breakdown.ID {
		t.Fatalf("watched ids = %v; want [%s]", ids, breakdown.ID)
	}

	if err := svc.UnmarkWatched(user.ClerkID, breakdown.ID); err != nil {
		t.Fatalf("unmark: %v", err)
	}
	if watched, _ := svc.HasWatched(user.ClerkID, breakdown.ID); watched {
		t.Fatal("breakdown should be unwatched after unmark")
	}

	// Unmarking again stays a no-op.
	if err := svc.UnmarkWatched(user.ClerkID, breakdown.ID); err != nil {
		t.Fatalf("double unmark: %v", err)
	}
}

func TestBreakdownReads(t *testing.T) {
	db := testDB(t)
	svc := NewBreakdownService(db)

	instructor := seedInstructor(t, db, "Prof Aldo")
	other := seedInstructor(t, db, "Prof Holloway")
	seedBreakdown(t, db, instructor.ID)
	seedBreakdown(t, db, instructor.ID)
	orphan := seedBreakdown(t, db, "inst_gone")
	_ = seedBreakdown(t, db, other.ID)

	all, err := svc.AllBreakdowns()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("all = %d rows; want 4", len(all))
	}
	for _, b := range all {
		if b.ID == orphan.ID && b.Teacher != "Unknown" {
			t.Fatalf("orphan teacher = %q; want Unknown", b.Teacher)
		}
		if b.InstructorID == instructor.ID && b.Teacher != instructor.Name {
			t.Fatalf("teacher = %q; want %q", b.Teacher, instructor.Name)
		}
	}

	mine, err := svc.BreakdownsByInstructor(instructor.ID)
	if err != nil {
		t.Fatalf("by instructor: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("instructor breakdowns = %d; want 2", len(mine))
	}

	if _, err := svc.BreakdownByID("missing"); err == nil {
		t.Fatal("missing breakdown should error")
	}
}

func TestCreateBreakdown(t *testing.T) {
	db := testDB(t)
	svc := NewBreakdownService(db)

	instructor := seedInstructor(t, db, "Prof Volkanovski")

	breakdown, err := svc.CreateBreakdown(CreateBreakdownRequest{
		Title:        "Calf Kick Study",
		Type:         models.BreakdownTypeTechnique,
		MartialArt:   models.MartialArtMMA,
		InstructorID: instructor.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if breakdown.Slug == "" {
		t.Fatal("create should derive a slug from the title")
	}

	// Same title gets a distinct slug.
	second, err := svc.CreateBreakdown(CreateBreakdownRequest{
		Title:        "Calf Kick Study",
		Type:         models.BreakdownTypeTechnique,
		MartialArt:   models.MartialArtMMA,
		InstructorID: instructor.ID,
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.Slug == breakdown.Slug {
		t.Fatalf("slug collision: %q", second.Slug)
	}

	if _, err := svc.CreateBreakdown(CreateBreakdownRequest{
		Title:        "No Instructor",
		InstructorID: "missing",
	}); err == nil {
		t.Fatal("create with unknown instructor should error")
	}
}
