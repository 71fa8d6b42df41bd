package handlers

import (
	"dojo-academy-system/middleware"
	"dojo-academy-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupEnrollmentRoutes(app *fiber.App, enrollmentService *services.EnrollmentService) {
	app.Get("/me/enrollments", middleware.OptionalAuth(), enrollmentService.HandleUserEnrollments)
	app.Get("/courses/:courseId/enrollment", middleware.OptionalAuth(), enrollmentService.HandleEnrollment)

	app.Post("/courses/:courseId/enroll", middleware.RequireAuth(), enrollmentService.HandleEnroll)
	app.Post("/courses/:courseId/sections/complete", middleware.RequireAuth(), enrollmentService.HandleMarkSectionComplete)
}
