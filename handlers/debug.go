// handlers/debug.go - Debug endpoints for troubleshooting live games
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// GetActiveRooms returns every live websocket room and its connection count.
func GetActiveRooms(c *fiber.Ctx) error {
	stats := gameHub.Stats()

	return c.JSON(fiber.Map{
		"success":     true,
		"total_rooms": len(stats),
		"rooms":       stats,
		"timestamp":   time.Now(),
	})
}
