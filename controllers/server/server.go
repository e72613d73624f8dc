package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"po-tracking/config"
	"po-tracking/types"
)

var startedAt = time.Now()

// Health reports process liveness plus database reachability.
func Health(db *gorm.DB, settings *config.Settings) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbStatus := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
			dbStatus = "unreachable"
		}

		return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
			Message: "Service healthy",
			Status:  fiber.StatusOK,
			Data: fiber.Map{
				"app":      settings.AppName,
				"version":  settings.AppVersion,
				"database": dbStatus,
				"uptime":   time.Since(startedAt).Round(time.Second).String(),
			},
		})
	}
}
