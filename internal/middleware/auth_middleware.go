package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go-twk/internal/shared/contextutil"
	"go-twk/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Keys set on the gin context by Auth.
const (
	ContextEmployeeID = "employee_id"
	ContextCompanyID  = "company_id"
	ContextRole       = "role"
)

// Auth validates an HS256 bearer token (or the access_token cookie) and
// exposes its employee, company and role claims to later handlers.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found {
			tokenString = ""
		}
		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}
		if tokenString == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token not found", nil)
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Error(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token expired", nil)
			} else {
				response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token", nil)
			}
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token claims", nil)
			c.Abort()
			return
		}

		values := make(map[string]string, 3)
		for _, key := range []string{ContextEmployeeID, ContextCompanyID, ContextRole} {
			v, _ := claims[key].(string)
			if v == "" {
				response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", key+" not found in token", nil)
				c.Abort()
				return
			}
			values[key] = v
			c.Set(key, v)
		}

		ctx := contextutil.WithActorID(c.Request.Context(), values[ContextEmployeeID])
		ctx = contextutil.WithCompanyID(ctx, values[ContextCompanyID])
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
