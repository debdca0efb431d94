package middleware

import (
	"net/http"

	"go-twk/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EnforceRequest asks whether a role may perform action on resource.
type EnforceRequest struct {
	Role      string
	CompanyID string
	Resource  string
	Action    string
}

// RBACService is satisfied by any policy engine with an Enforce method.
type RBACService interface {
	Enforce(req EnforceRequest) (bool, error)
}

func RBACAuthorize(service RBACService, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		companyID := c.GetString(ContextCompanyID)
		if role == "" || companyID == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
			c.Abort()
			return
		}

		allowed, err := service.Enforce(EnforceRequest{
			Role:      role,
			CompanyID: companyID,
			Resource:  resource,
			Action:    action,
		})
		if err != nil {
			zap.L().Named("middleware.rbac").Error("enforce failed", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "authorization check failed", nil)
			c.Abort()
			return
		}

		if !allowed {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "You do not have permission to access this resource", gin.H{
				"required": resource + ":" + action,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
