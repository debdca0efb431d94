package scenario

import (
	"go-twk/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	h *Handler,
	rbacService middleware.RBACService,
) {
	scenarios := r.Group("/scenarios")
	{
		scenarios.GET("", middleware.RBACAuthorize(rbacService, "scenario", "read"), h.GetAll)
		scenarios.POST("", middleware.RBACAuthorize(rbacService, "scenario", "create"), h.Create)
		scenarios.GET("/:id", middleware.RBACAuthorize(rbacService, "scenario", "read"), h.GetByID)
		scenarios.PUT("/:id", middleware.RBACAuthorize(rbacService, "scenario", "update"), h.Update)
		scenarios.DELETE("/:id", middleware.RBACAuthorize(rbacService, "scenario", "delete"), h.Delete)

		scenarios.POST("/:id/component-rules", middleware.RBACAuthorize(rbacService, "scenario", "update"), h.AddComponentRule)
		scenarios.DELETE("/:id/component-rules/:ruleId", middleware.RBACAuthorize(rbacService, "scenario", "update"), h.RemoveComponentRule)
		scenarios.POST("/:id/formula-rules", middleware.RBACAuthorize(rbacService, "formula", "create"), h.AddFormulaRule)
		scenarios.DELETE("/:id/formula-rules/:ruleId", middleware.RBACAuthorize(rbacService, "formula", "delete"), h.RemoveFormulaRule)

		scenarios.POST("/:id/submit", middleware.RBACAuthorize(rbacService, "scenario", "submit"), h.Submit)
		scenarios.POST("/:id/approve", middleware.RBACAuthorize(rbacService, "scenario", "approve"), h.Approve)
		scenarios.POST("/:id/cancel", middleware.RBACAuthorize(rbacService, "scenario", "cancel"), h.Cancel)
	}

	r.POST("/formulas/validate", middleware.RBACAuthorize(rbacService, "formula", "validate"), h.ValidateFormula)
}
