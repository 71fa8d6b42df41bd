package handlers

import (
	"dojo-academy-system/middleware"
	"dojo-academy-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPaymentRoutes(app *fiber.App, purchaseService *services.PurchaseService, stripeService *services.StripeService) {
	app.Get("/courses/:courseId/access", middleware.OptionalAuth(), purchaseService.HandleHasAccessToCourse)
	app.Get("/me/purchases", middleware.OptionalAuth(), purchaseService.HandleUserPurchases)
	app.Get("/me/subscriptions", middleware.OptionalAuth(), purchaseService.HandleUserSubscriptions)

	app.Post("/courses/:courseId/purchase", middleware.RequireAuth(), purchaseService.HandlePurchaseCourse)
	app.Post("/instructors/:id/subscribe", middleware.RequireAuth(), purchaseService.HandleSubscribe)

	// Checkout session creation talks to the payment processor outside any
	// transactional boundary; the webhook later commits the result.
	app.Post("/checkout/courses/:courseId", middleware.RequireAuth(), stripeService.HandleCourseCheckout)
	app.Post("/checkout/instructors/:id", middleware.RequireAuth(), stripeService.HandleSubscriptionCheckout)

	// Signature verification runs before dispatch; unverified payloads never
	// reach reconciliation.
	app.Post("/stripe/webhook", middleware.StripeWebhookVerifier(), stripeService.HandleWebhook)
}
