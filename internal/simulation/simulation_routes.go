package simulation

import (
	"go-twk/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the simulation endpoints. trigger middlewares run
// before the trigger handler, after authorization.
func RegisterRoutes(
	r *gin.RouterGroup,
	h *Handler,
	rbacService middleware.RBACService,
	trigger ...gin.HandlerFunc,
) {
	chain := append([]gin.HandlerFunc{middleware.RBACAuthorize(rbacService, "simulation", "create")}, trigger...)
	chain = append(chain, h.Trigger)
	r.POST("/scenarios/:id/simulations", chain...)

	simulations := r.Group("/simulations")
	{
		simulations.GET("/:id", middleware.RBACAuthorize(rbacService, "simulation", "read"), h.GetSummary)
		simulations.GET("/:id/results", middleware.RBACAuthorize(rbacService, "simulation", "read"), h.ListResults)
	}
}
