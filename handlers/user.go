package handlers

import (
	"dojo-academy-system/middleware"
	"dojo-academy-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, userService *services.UserService, sseService *services.SSEService) {
	// Availability check is public, it backs the onboarding form.
	app.Get("/users/username-check", userService.HandleCheckUsername)

	// Queries degrade for anonymous callers instead of rejecting.
	app.Get("/users/me", middleware.OptionalAuth(), userService.GetCurrentUser)

	// Mutations require a verified identity.
	app.Post("/users", middleware.RequireAuth(), userService.HandleCreateUser)
	app.Patch("/users/me/belt", middleware.RequireAuth(), userService.HandleUpdateBelt)

	// Live change feed: purchase/subscription/enrollment/progress events.
	app.Get("/me/events", middleware.RequireAuth(), sseService.StreamUserEvents)
}
