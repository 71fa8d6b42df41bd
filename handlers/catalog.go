package handlers

import (
	"dojo-academy-system/middleware"
	"dojo-academy-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCatalogRoutes(app *fiber.App, catalogService *services.CatalogService) {
	// Public catalog reads
	app.Get("/courses/latest", catalogService.HandleLatestCourses)
	app.Get("/courses/free", catalogService.HandleFreeCourses)
	app.Get("/courses", catalogService.HandleAllCourses)
	app.Get("/courses/:id", catalogService.HandleCourseByID)

	app.Get("/instructors", catalogService.HandleInstructors)
	app.Get("/instructors/:id", catalogService.HandleInstructorByID)
	app.Get("/instructors/:id/courses", catalogService.HandleCoursesByInstructor)

	// Content ingestion: shared-token admin surface
	admin := app.Group("/admin", middleware.AdminAuth())
	admin.Post("/instructors", catalogService.HandleCreateInstructor)
	admin.Post("/instructors/:id/image", catalogService.HandleUploadInstructorImage)
	admin.Post("/courses", catalogService.HandleCreateCourse)
	admin.Post("/courses/:id/image", catalogService.HandleUploadCourseImage)
}
