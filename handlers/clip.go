// handlers/clip.go
package handlers

import (
	"sk8-backend/middleware"
	"sk8-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupClipRoutes(app *fiber.App, clipService *services.ClipService) {
	clips := app.Group("/clips", middleware.UserContextMiddleware())

	clips.Post("/upload/init", clipService.InitUpload)
	clips.Post("/upload/complete/:id", clipService.CompleteUpload)
	clips.Post("/judge", clipService.JudgeClip)
	clips.Get("/match/:match_id", clipService.GetMatchClips)
}
