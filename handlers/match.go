// handlers/match.go
package handlers

import (
	"sk8-backend/middleware"
	"sk8-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMatchRoutes(app *fiber.App, matchService *services.MatchService) {
	// 🔐 All match routes need user context — every operation acts as a player
	matches := app.Group("/matches", middleware.UserContextMiddleware())

	matches.Post("/", matchService.CreateMatch)
	matches.Post("/challenge/create", matchService.CreateChallenge)
	matches.Post("/challenge/accept/:code", matchService.AcceptChallenge)

	matches.Get("/active", matchService.GetActiveMatches)
	matches.Get("/history", matchService.GetMatchHistory)
	matches.Get("/:id", matchService.GetMatch)

	matches.Post("/:id/forfeit", matchService.Forfeit)
}
