package rbac

import (
	"net/http"
	"strings"

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

// Enforce answers whether the caller's role may perform an action.
func (h *Handler) Enforce(c *gin.Context) {
	var req EnforceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpErr := apperror.ToHTTP(apperror.MapValidationError(err))
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}

	allowed, err := h.service.Enforce(middleware.EnforceRequest{
		Role:      c.GetString(middleware.ContextRole),
		CompanyID: c.GetString(middleware.ContextCompanyID),
		Resource:  strings.TrimSpace(req.Resource),
		Action:    strings.TrimSpace(req.Action),
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "authorization check failed", nil)
		return
	}

	response.Success(c, http.StatusOK, EnforceResponse{Allowed: allowed}, nil)
}

func (h *Handler) Permissions(c *gin.Context) {
	role := c.GetString(middleware.ContextRole)
	perms, err := h.service.Permissions(role)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "authorization check failed", nil)
		return
	}
	response.Success(c, http.StatusOK, PermissionsResponse{Role: role, Permissions: perms}, nil)
}
