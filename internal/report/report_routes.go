package report

import (
	"go-twk/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, rbacService middleware.RBACService) {
	reports := r.Group("/reports", middleware.RBACAuthorize(rbacService, "report", "read"))
	{
		reports.GET("/liability-by-scenario", h.LiabilityByScenario)
		reports.GET("/liability-by-status", h.LiabilityByStatus)
		reports.GET("/employees/:employeeId/payments", h.EmployeePayments)
	}
}
