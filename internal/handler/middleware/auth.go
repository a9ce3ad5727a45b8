package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chefslot/internal/pkg/jwt"
)

// Caller roles. Customers act on their own holds; ops tokens drive the
// assignment and booking lifecycle endpoints.
const (
	RoleCustomer = "customer"
	RoleOps      = "ops"
)

const (
	ctxCallerIDKey   = "caller_id"
	ctxCallerRoleKey = "caller_role"
)

type AuthMiddleware struct {
	tokens *jwt.Service
}

func NewAuthMiddleware(tokens *jwt.Service) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Access token required",
			})
			c.Abort()
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			slog.Warn("token validation failed", "error", err.Error())
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(ctxCallerIDKey, claims.CallerID)
		c.Set(ctxCallerRoleKey, claims.Role)
		c.Set("jwt_claims", map[string]any{
			"caller_id": claims.CallerID.String(),
			"role":      claims.Role,
		})
		c.Next()
	}
}

// RequireRole gates an endpoint to one role. Must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, ok := GetCallerRole(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
			c.Abort()
			return
		}
		if got != role {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[len("Bearer "):])
}

func GetCallerID(c *gin.Context) (uuid.UUID, bool) {
	callerID, exists := c.Get(ctxCallerIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := callerID.(uuid.UUID)
	return id, ok
}

func GetCallerRole(c *gin.Context) (string, bool) {
	callerRole, exists := c.Get(ctxCallerRoleKey)
	if !exists {
		return "", false
	}
	role, ok := callerRole.(string)
	return role, ok
}
