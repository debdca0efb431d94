package execution

import (
	"go-twk/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	h *Handler,
	rbacService middleware.RBACService,
	trigger ...gin.HandlerFunc,
) {
	chain := append([]gin.HandlerFunc{middleware.RBACAuthorize(rbacService, "execution", "create")}, trigger...)
	chain = append(chain, h.Trigger)
	r.POST("/scenarios/:id/executions", chain...)
}
