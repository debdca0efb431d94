package audit

import (
	"net/http"
	"strconv"

	"go-twk/internal/middleware"
	"go-twk/internal/shared/apperror"
	"go-twk/internal/shared/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListByScenario(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	items, meta, err := h.service.List(c.Request.Context(), c.GetString("company_id"), c.Param("id"), page, pageSize)
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}

	response.Success(c, http.StatusOK, items, &meta)
}

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, rbacService middleware.RBACService) {
	r.GET("/scenarios/:id/audit", middleware.RBACAuthorize(rbacService, "audit", "read"), handler.ListByScenario)
}
