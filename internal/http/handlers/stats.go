package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// HandleRenderStats exposes basic observability for the render pool
// (capacity / idle / in_use).
func (svc *RenderService) HandleRenderStats(c *fiber.Ctx) error {
	pool, err := svc.getRenderPool()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Render pool init failed: "+err.Error())
	}

	// Pool disabled.
	if pool == nil {
		return c.JSON(fiber.Map{
			"enabled":        false,
			"capacity":       0,
			"idle":           0,
			"in_use":         0,
			"pool_size_conf": svc.Config.Render.PoolSize,
			"timeout_secs":   svc.Config.Render.TimeoutSecs,
			"restarts":       0,
		})
	}

	s := pool.Stats()
	return c.JSON(fiber.Map{
		"enabled":        s.Enabled,
		"capacity":       s.Capacity,
		"idle":           s.Idle,
		"in_use":         s.InUse,
		"pool_size_conf": s.PoolSizeConf,
		"timeout_secs":   svc.Config.Render.TimeoutSecs,
		"restarts":       s.Restarts,
		"last_restart":   s.LastRestart,
	})
}
