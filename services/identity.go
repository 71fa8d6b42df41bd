package services

import (
	"errors"

	"dojo-academy-system/models"

	"gorm.io/gorm"
)

// userByClerkID is the shared identity-resolution step: every authenticated
// operation maps the external subject id to the local user row first.
func userByClerkID(db *gorm.DB, clerkID string) (*models.User, error) {
	if clerkID == "" {
		return nil, ErrNotAuthenticated
	}

	var user models.User
	err := db.Where("clerk_id = ?", clerkID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// anonymousOK reports whether err is the kind of identity failure that
// queries degrade on (anonymous caller or identity without a local row).
func anonymousOK(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrUserNotFound)
}
