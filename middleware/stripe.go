package middleware

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeEventKey is the locals key holding the verified stripe.Event.
const StripeEventKey = "stripe_event"

// StripeWebhookVerifier checks the payload signature against the shared
// webhook secret before any processing runs. Unverifiable requests are
// rejected with 400 and never reach the reconciliation handler.
func StripeWebhookVerifier() fiber.Handler {
	return func(c *fiber.Ctx) error {
		event, err := webhook.ConstructEvent(
			c.Body(),
			c.Get("Stripe-Signature"),
			os.Getenv("STRIPE_WEBHOOK_SECRET"),
		)
		if err != nil {
			log.Printf("stripe webhook: signature verification failed: %v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		c.Locals(StripeEventKey, event)
		return c.Next()
	}
}
