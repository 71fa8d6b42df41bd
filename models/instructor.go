package models

import "gorm.io/datatypes"

type Instructor struct {
	ID   string `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"index;not null"`
	Slug string `json:"slug" gorm:"uniqueIndex"`

	Bio      string `json:"bio,omitempty"`
	ImageURL string `json:"image_url,omitempty"`

	// Monthly subscription price in dollars.
	SubscriptionPrice float64                     `json:"subscription_price"`
	Disciplines       datatypes.JSONSlice[string] `json:"disciplines"`

	// Stripe connected account that receives payouts; empty until the
	// instructor finishes payment onboarding.
	StripeConnectedAccountID string `json:"stripe_connected_account_id,omitempty"`

	Timestamps
}
