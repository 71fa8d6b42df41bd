package services

import (
	"encoding/json"
	"log"
	"math"
	"os"

	"dojo-academy-system/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// platformFeePercent is the platform's cut on instructor revenue: flat amount
// for one-time course charges, percentage for recurring subscriptions.
const platformFeePercent = 10

type StripeService struct {
	Catalog   *CatalogService
	Purchases *PurchaseService
}

func NewStripeService(catalog *CatalogService, purchases *PurchaseService) *StripeService {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	return &StripeService{Catalog: catalog, Purchases: purchases}
}

// CreateCourseCheckout builds a one-time payment session on the instructor's
// connected account with a flat platform fee. The course id and external
// identity travel in the session metadata so the webhook can resolve them.
func (s *StripeService) CreateCourseCheckout(clerkID, courseID, successURL, cancelURL string) (string, error) {
	if clerkID == "" {
		return "", ErrNotAuthenticated
	}

	course, err := s.Catalog.CourseByID(courseID)
	if err != nil {
		return "", err
	}
	if course.IsFree() {
		return "", external("Course is free — no checkout needed")
	}

	instructor, err := s.Catalog.InstructorByID(course.InstructorID)
	if err != nil {
		return "", err
	}
	if instructor.StripeConnectedAccountID == "" {
		return "", external("Instructor has not set up payments")
	}

	priceInCents := int64(math.Round(*course.Price * 100))
	applicationFee := int64(math.Round(float64(priceInCents) * platformFeePercent / 100))

	metadata := map[string]string{
		"type":     "course_purchase",
		"courseId": courseID,
		"clerkId":  clerkID,
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card", "paynow"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String("usd"),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(course.Title),
						Description: stripe.String(course.Description),
					},
					UnitAmount: stripe.Int64(priceInCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(applicationFee),
			Metadata:             metadata,
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.Metadata = metadata
	params.SetStripeAccount(instructor.StripeConnectedAccountID)

	sess, err := session.New(params)
	if err != nil {
		log.Printf("stripe: course checkout creation failed: %v", err)
		return "", external("Failed to create checkout session")
	}
	if sess.URL == "" {
		return "", external("Failed to create checkout session")
	}
	return sess.URL, nil
}

// CreateSubscriptionCheckout builds a recurring monthly session for the
// instructor subscription, with a percentage platform fee.
func (s *StripeService) CreateSubscriptionCheckout(clerkID, instructorID, successURL, cancelURL string) (string, error) {
	if clerkID == "" {
		return "", ErrNotAuthenticated
	}

	instructor, err := s.Catalog.InstructorByID(instructorID)
	if err != nil {
		return "", err
	}
	if instructor.StripeConnectedAccountID == "" {
		return "", external("Instructor has not set up payments")
	}

	priceInCents := int64(math.Round(instructor.SubscriptionPrice * 100))

	metadata := map[string]string{
		"type":         "instructor_subscription",
		"instructorId": instructorID,
		"clerkId":      clerkID,
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card", "paynow"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String("usd"),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(instructor.Name + " — Monthly Subscription"),
					},
					UnitAmount: stripe.Int64(priceInCents),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String("month"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			ApplicationFeePercent: stripe.Float64(platformFeePercent),
			Metadata:              metadata,
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.Metadata = metadata
	params.SetStripeAccount(instructor.StripeConnectedAccountID)

	sess, err := session.New(params)
	if err != nil {
		log.Printf("stripe: subscription checkout creation failed: %v", err)
		return "", external("Failed to create checkout session")
	}
	if sess.URL == "" {
		return "", external("Failed to create checkout session")
	}
	return sess.URL, nil
}

// ---- webhook dispatch ----

// processorRef normalizes an expandable Stripe reference: either a bare id
// string or an expanded object carrying an "id" field.
func processorRef(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}

// DispatchWebhookEvent maps a verified processor event onto purchase and
// subscription rows. Unrecognized event types are a successful no-op. All
// mutations it reaches are idempotent, so webhook retries converge.
func (s *StripeService) DispatchWebhookEvent(event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var sess struct {
			Metadata     map[string]string `json:"metadata"`
			Subscription json.RawMessage   `json:"subscription"`
			Customer     json.RawMessage   `json:"customer"`
		}
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return err
		}
		if sess.Metadata == nil {
			return nil
		}

		switch sess.Metadata["type"] {
		case "course_purchase":
			_, err := s.Purchases.RecordCoursePurchase(
				sess.Metadata["clerkId"], sess.Metadata["courseId"])
			return err

		case "instructor_subscription":
			subscriptionID := processorRef(sess.Subscription)
			customerID := processorRef(sess.Customer)
			if subscriptionID == "" || customerID == "" {
				return nil
			}
			_, err := s.Purchases.ActivateSubscription(
				sess.Metadata["clerkId"], sess.Metadata["instructorId"],
				subscriptionID, customerID)
			return err
		}
		return nil

	case "customer.subscription.deleted":
		var sub struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		return s.Purchases.DeactivateSubscriptionByStripeID(sub.ID)

	case "invoice.payment_failed":
		var invoice struct {
			Subscription json.RawMessage `json:"subscription"`
		}
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return err
		}
		return s.Purchases.DeactivateSubscriptionByStripeID(processorRef(invoice.Subscription))

	default:
		log.Printf("stripe webhook: unhandled event type: %s", event.Type)
		return nil
	}
}

// ---- HTTP handlers ----

type checkoutRequest struct {
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

func (s *StripeService) HandleCourseCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	url, err := s.CreateCourseCheckout(
		middleware.ClerkID(c), c.Params("courseId"), req.SuccessURL, req.CancelURL)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

func (s *StripeService) HandleSubscriptionCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	url, err := s.CreateSubscriptionCheckout(
		middleware.ClerkID(c), c.Params("id"), req.SuccessURL, req.CancelURL)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

// HandleWebhook processes the event verified by the signature middleware.
// Dispatch failures surface as 500 so the processor retries; already-applied
// partial writes are safe to replay.
func (s *StripeService) HandleWebhook(c *fiber.Ctx) error {
	event, ok := c.Locals(middleware.StripeEventKey).(stripe.Event)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing verified event"})
	}

	if err := s.DispatchWebhookEvent(event); err != nil {
		log.Printf("stripe webhook: processing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook processing failed"})
	}
	return c.SendStatus(fiber.StatusOK)
}
