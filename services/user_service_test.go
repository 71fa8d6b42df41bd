package services

import (
	"errors"
	"testing"

	"dojo-academy-system/models"
)

func TestNormalizeUsername(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  Fighter99  ", "fighter99"},
		{"OSS", "oss"},
		{"ﬁghter", "fighter"}, // NFKC folds the ligature
		{"", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		if got := NormalizeUsername(c.in); got != c.want {
			t.Fatalf("NormalizeUsername(%q) = %q; want %q", c.in, got, c.want)
		}
	}
}

func TestCheckUsername(t *testing.T) {
	db := testDB(t)
	svc := NewUserService(db)

	seedUser(t, db, "clerk_check", "taken")

	// Blank and whitespace-only are always reported available.
	for _, in := range []string{"", "   "} {
		available, err := svc.CheckUsername(in)
		if err != nil || !available {
			t.Fatalf("CheckUsername(%q) = %v, %v; want true, nil", in, available, err)
		}
	}

	available, err := svc.CheckUsername("TAKEN")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if available {
		t.Fatal("case variants of a taken handle should collide")
	}

	available, err = svc.CheckUsername("open-handle")
	if err != nil || !available {
		t.Fatalf("open handle = %v, %v; want true, nil", available, err)
	}
}

func TestCreateUser(t *testing.T) {
	db := testDB(t)
	svc := NewUserService(db)

	req := CreateUserRequest{
		Name:        "Ana Souza",
		Username:    "  AnaS  ",
		Country:     "BR",
		Disciplines: []string{"BJJ"},
		Goals:       []string{"compete"},
	}

	user, err := svc.CreateUser("clerk_create", req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.Username != "anas" {
		t.Fatalf("stored username = %q; want normalized %q", user.Username, "anas")
	}
	if !user.OnboardingComplete {
		t.Fatal("creation should mark onboarding complete")
	}

	// Same identity again is first-write-wins.
	_, err = svc.CreateUser("clerk_create", CreateUserRequest{Name: "Other", Username: "other"})
	if !errors.Is(err, ErrConflict) || err.Error() != "User already exists" {
		t.Fatalf("duplicate identity err = %v; want 'User already exists' conflict", err)
	}

	// A different identity cannot take the same handle.
	_, err = svc.CreateUser("clerk_other", CreateUserRequest{Name: "Other", Username: "ANAS"})
	if !errors.Is(err, ErrConflict) || err.Error() != "Username already taken" {
		t.Fatalf("duplicate handle err = %v; want 'Username already taken' conflict", err)
	}

	_, err = svc.CreateUser("", CreateUserRequest{Name: "Nobody", Username: "nobody"})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("anonymous create err = %v; want not authenticated", err)
	}
}

func TestUpdateUserBelt(t *testing.T) {
	db := testDB(t)
	svc := NewUserService(db)

	stripes := 2
	user := seedUser(t, db, "clerk_belt", "belt-user")
	user.Belts = []models.Belt{
		{Discipline: "BJJ", Belt: "Blue", Stripe: &stripes},
		{Discipline: "Judo", Belt: "Brown"},
	}
	if err := db.Model(user).Update("belts", user.Belts).Error; err != nil {
		t.Fatalf("seed belts: %v", err)
	}

	updated, err := svc.UpdateUserBelt("clerk_belt", models.Belt{Discipline: "BJJ", Belt: "Purple"})
	if err != nil {
		t.Fatalf("update belt: %v", err)
	}

	if len(updated.Belts) != 2 {
		t.Fatalf("belts = %d entries; want 2", len(updated.Belts))
	}
	byDiscipline := map[string]models.Belt{}
	for _, b := range updated.Belts {
		byDiscipline[b.Discipline] = b
	}
	if byDiscipline["BJJ"].Belt != "Purple" {
		t.Fatalf("BJJ belt = %q; want Purple", byDiscipline["BJJ"].Belt)
	}
	if byDiscipline["Judo"].Belt != "Brown" {
		t.Fatalf("Judo belt = %q; updating BJJ must not touch it", byDiscipline["Judo"].Belt)
	}

	// A new discipline appends.
	updated, err = svc.UpdateUserBelt("clerk_belt", models.Belt{Discipline: "Karate", Belt: "White"})
	if err != nil {
		t.Fatalf("append belt: %v", err)
	}
	if len(updated.Belts) != 3 {
		t.Fatalf("belts = %d entries; want 3 after append", len(updated.Belts))
	}
}

func TestGetUserByClerkID(t *testing.T) {
	db := testDB(t)
	svc := NewUserService(db)

	seedUser(t, db, "clerk_get", "get-user")

	if _, err := svc.GetUserByClerkID(""); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("empty id err = %v; want not authenticated", err)
	}
	if _, err := svc.GetUserByClerkID("clerk_missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown id err = %v; want user not found", err)
	}
	user, err := svc.GetUserByClerkID("clerk_get")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if user.Username != "get-user" {
		t.Fatalf("resolved wrong user: %+v", user)
	}
}
