package handlers

import (
	"github.com/creativetemmy/pair2pass-sub000/middleware"
	"github.com/creativetemmy/pair2pass-sub000/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProfileRoutes(app *fiber.App, profileService *services.ProfileService, ledger *services.LedgerService) {
	// 🔓 Public routes
	app.Get("/leaderboard", profileService.GetLeaderboard)
	app.Get("/discover/subjects", profileService.DiscoverSubjects)
	app.Get("/tiers", func(c *fiber.Ctx) error {
		return c.JSON(services.Tiers)
	})

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/users/me/profile", profileService.GetMyProfile)
	secured.Put("/users/me/profile", profileService.UpdateMyProfile)
	secured.Post("/users/me/wallet", profileService.LinkWallet)
	secured.Post("/users/me/avatar", profileService.UploadAvatar)
	secured.Get("/users/me/badges", profileService.GetMyBadges)

	// 🔒 Admin endpoints
	admin := secured.Group("/admin", func(c *fiber.Ctx) error {
		roles, _ := c.Locals("user_roles").([]string)
		for _, r := range roles {
			if r == "admin" {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
	})
	admin.Post("/points/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
			Kind   string `json:"kind"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.UserID == "" || req.Kind == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and kind are required"})
		}

		prof, err := ledger.AwardPoints(req.UserID, services.AwardKind(req.Kind))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "points award failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message":     "Points granted successfully",
			"user_id":     req.UserID,
			"pass_points": prof.PassPoints,
			"level":       prof.Level,
		})
	})
}
