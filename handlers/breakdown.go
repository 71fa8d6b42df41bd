package handlers

import (
	"dojo-academy-system/middleware"
	"dojo-academy-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBreakdownRoutes(app *fiber.App, breakdownService *services.BreakdownService) {
	app.Get("/breakdowns/latest", breakdownService.HandleLatestBreakdowns)
	app.Get("/breakdowns", breakdownService.HandleAllBreakdowns)
	app.Get("/breakdowns/:id", breakdownService.HandleBreakdownByID)
	app.Get("/instructors/:id/breakdowns", breakdownService.HandleBreakdownsByInstructor)

	app.Get("/breakdowns/:id/access", middleware.OptionalAuth(), breakdownService.HandleHasAccess)
	app.Get("/breakdowns/:id/watched", middleware.OptionalAuth(), breakdownService.HandleHasWatched)
	app.Get("/me/watched-breakdowns", middleware.OptionalAuth(), breakdownService.HandleWatchedBreakdowns)

	app.Post("/breakdowns/:id/watch", middleware.RequireAuth(), breakdownService.HandleMarkWatched)
	app.Delete("/breakdowns/:id/watch", middleware.RequireAuth(), breakdownService.HandleUnmarkWatched)

	admin := app.Group("/admin", middleware.AdminAuth())
	admin.Post("/breakdowns", breakdownService.HandleCreateBreakdown)
}
