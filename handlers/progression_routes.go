// handlers/progression_routes.go
package handlers

import (
	"errors"
	"strconv"

	"school-progression-service/middleware"
	"school-progression-service/models"
	"school-progression-service/repository"
	"school-progression-service/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupProgressionRoutes(
	app *fiber.App,
	progressionService *services.ProgressionService,
	statsService *services.StatsService,
	badgeService *services.BadgeService,
) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Secured routes require user context (userID, roles) from the Gateway.
	// The gateway forwards paths like /api/v1/progression/s/tasks/complete -> /tasks/complete
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Post("/tasks/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			TaskType string `json:"task_type"`
			Metadata string `json:"metadata"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.TaskType == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "task_type is required",
			})
		}

		result, err := progressionService.CompleteTask(c.Context(), userID, req.TaskType, req.Metadata)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "user not found",
					"cause": err.Error(),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to record task",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	securedGroup.Get("/user/stats", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		role := c.Locals("user_role").(string)
		scopeID := c.Query("scope_id")
		if scopeID == "" {
			scopeID, _ = c.Locals("school_id").(string)
		}

		stats, err := statsService.Stats(c.Context(), userID, role, scopeID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build stats",
				"cause": err.Error(),
			})
		}
		return c.JSON(stats)
	})

	securedGroup.Get("/user/progress/recent", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "10"))
		if limit < 1 || limit > 100 {
			limit = 10
		}

		recent, err := statsService.RecentActivity(c.Context(), userID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get recent activity",
				"cause": err.Error(),
			})
		}
		streak, err := statsService.Streak(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to compute streak",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"activity": recent,
			"streak":   streak,
		})
	})

	securedGroup.Get("/user/progress/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		badges, err := badgeService.ListUserBadges(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get badges",
				"cause": err.Error(),
			})
		}
		return c.JSON(badges)
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin",
		middleware.UserContextMiddleware(),
		middleware.RequireRole(services.RoleSchoolAdmin))

	adminGroup.Post("/points/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID   string `json:"user_id"`
			TaskType string `json:"task_type"`
			Metadata string `json:"metadata"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.UserID == "" || req.TaskType == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user_id and task_type are required",
			})
		}

		result, err := progressionService.CompleteTask(c.Context(), req.UserID, req.TaskType, req.Metadata)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "user not found",
					"cause": err.Error(),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to grant points",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	adminGroup.Post("/badges", func(c *fiber.Ctx) error {
		badgeType := &models.BadgeType{
			Code:        c.FormValue("code"),
			Name:        c.FormValue("name"),
			Description: c.FormValue("description"),
			Rarity:      c.FormValue("rarity", "common"),
		}
		if badgeType.Code == "" || badgeType.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "code and name are required",
			})
		}

		icon, _ := c.FormFile("icon") // optional
		created, err := badgeService.CreateType(c.Context(), badgeType, icon)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create badge type",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	adminGroup.Post("/badges/award", func(c *fiber.Ctx) error {
		type Req struct {
			UserID   string `json:"user_id"`
			Code     string `json:"code"`
			Metadata string `json:"metadata"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.UserID == "" || req.Code == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user_id and code are required",
			})
		}

		badge, err := badgeService.Award(c.Context(), req.UserID, req.Code, req.Metadata)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "unknown badge code",
					"cause": err.Error(),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to award badge",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(badge)
	})
}
