package models

// Purchase grants permanent one-time access to a course. At most one row per
// (user, course).
type Purchase struct {
	ID       string `json:"id" gorm:"primaryKey"`
	UserID   string `json:"user_id" gorm:"index;uniqueIndex:idx_purchase_user_course;not null"`
	CourseID string `json:"course_id" gorm:"uniqueIndex:idx_purchase_user_course;not null"`

	Timestamps
}

// Subscription is the (user, instructor) relation. Cancellation flips Active
// to false; rows are reactivated on resubscribe, never deleted.
type Subscription struct {
	ID           string `json:"id" gorm:"primaryKey"`
	UserID       string `json:"user_id" gorm:"index;uniqueIndex:idx_sub_user_instructor;not null"`
	InstructorID string `json:"instructor_id" gorm:"uniqueIndex:idx_sub_user_instructor;not null"`

	Active bool `json:"active"`

	// Processor references, set by webhook reconciliation. Deactivation events
	// are keyed by StripeSubscriptionID, hence the index.
	StripeSubscriptionID string `json:"stripe_subscription_id,omitempty" gorm:"index"`
	StripeCustomerID     string `json:"stripe_customer_id,omitempty"`

	Timestamps
}
