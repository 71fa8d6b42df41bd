package handlers

import (
	"dojo-academy-system/middleware"
	"dojo-academy-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupVideoRoutes(app *fiber.App, videoService *services.VideoService) {
	admin := app.Group("/admin", middleware.AdminAuth())
	admin.Post("/video-assets", videoService.HandleRegisterAsset)
	admin.Get("/video-assets", videoService.HandleListAssets)
}
