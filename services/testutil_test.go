package services

import (
	"fmt"
	"testing"

	"dojo-academy-system/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB opens a per-test in-memory database. cache=shared keeps the schema
// visible across the pool's connections within one test.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Instructor{},
		&models.Course{},
		&models.Breakdown{},
		&models.BreakdownWatch{},
		&models.Purchase{},
		&models.Subscription{},
		&models.Enrollment{},
		&models.VideoAsset{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, clerkID, username string) *models.User {
	t.Helper()
	user := &models.User{
		ID:       uuid.NewString(),
		ClerkID:  clerkID,
		Name:     "Test User",
		Username: username,
		Country:  "SG",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedInstructor(t *testing.T, db *gorm.DB, name string) *models.Instructor {
	t.Helper()
	instructor := &models.Instructor{
		ID:                uuid.NewString(),
		Name:              name,
		Slug:              uuid.NewString(),
		SubscriptionPrice: 29,
	}
	if err := db.Create(instructor).Error; err != nil {
		t.Fatalf("seed instructor: %v", err)
	}
	return instructor
}

func seedCourse(t *testing.T, db *gorm.DB, instructorID string, price *float64, volumes []models.Volume) *models.Course {
	t.Helper()
	course := &models.Course{
		ID:           uuid.NewString(),
		Slug:         uuid.NewString(),
		Title:        "Test Course",
		Difficulty:   models.DifficultyBeginner,
		MartialArt:   models.MartialArtBJJ,
		InstructorID: instructorID,
		Price:        price,
		Volumes:      volumes,
	}
	if err := db.Create(course).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return course
}

func floatPtr(v float64) *float64 { return &v }

// twoByTwo is a course layout with 2 volumes of 2 sections each.
func twoByTwo() []models.Volume {
	return []models.Volume{
		{Name: "Vol 1", Sections: []models.Section{{Title: "a"}, {Title: "b"}}},
		{Name: "Vol 2", Sections: []models.Section{{Title: "c"}, {Title: "d"}}},
	}
}
