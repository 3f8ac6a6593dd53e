package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/luct-edu/lecture-reporting-service/internal/models"
	"github.com/luct-edu/lecture-reporting-service/internal/services"
)

// AuthMiddleware authenticates bearer tokens issued by the auth service
type AuthMiddleware struct {
	auth services.AuthService
}

func NewAuthMiddleware(auth services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Authenticate returns a Gin middleware that requires a valid bearer token
func (am *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Authorization header missing",
			})
			return
		}

		// Extract token from "Bearer <token>" format
		tokenParts := strings.Fields(authHeader)
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid authorization header format",
			})
			return
		}

		user, err := am.auth.Authenticate(c.Request.Context(), tokenParts[1])
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, services.ErrForbidden) {
				status = http.StatusForbidden
			} else if !errors.Is(err, services.ErrUnauthorized) {
				status = http.StatusInternalServerError
			}
			c.AbortWithStatusJSON(status, ErrorResponse{Message: capitalize(err.Error())})
			return
		}

		setUser(c, user)
		c.Next()
	}
}

func setUser(c *gin.Context, user *models.User) {
	c.Set("user_id", user.ID)
	c.Set("user", user)
	c.Set("user_role", user.Role)
	c.Set("user_email", user.Email)
	if user.FacultyID != nil {
		c.Set("faculty_id", *user.FacultyID)
	}
}

// RequireRoleMiddleware checks if user has required role; admin passes every check
func (am *AuthMiddleware) RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetUserRoleFromContext(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "User role not found in context",
			})
			return
		}

		if role == models.RoleAdmin {
			c.Next()
			return
		}
		for _, requiredRole := range requiredRoles {
			if role == requiredRole {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Message: "Insufficient permissions",
			Details: map[string]interface{}{"required_roles": requiredRoles, "role": role},
		})
	}
}

// GetUserFromContext extracts user from Gin context
func GetUserFromContext(c *gin.Context) (*models.User, error) {
	user, exists := c.Get("user")
	if !exists {
		return nil, fmt.Errorf("user not found in context")
	}

	userModel, ok := user.(*models.User)
	if !ok {
		return nil, fmt.Errorf("invalid user type in context")
	}

	return userModel, nil
}

// GetUserIDFromContext extracts user ID from Gin context
func GetUserIDFromContext(c *gin.Context) (uint, error) {
	userID, exists := c.Get("user_id")
	if !exists {
		return 0, fmt.Errorf("user ID not found in context")
	}

	id, ok := userID.(uint)
	if !ok {
		return 0, fmt.Errorf("invalid user ID type in context")
	}

	return id, nil
}

// GetUserRoleFromContext extracts user role from Gin context
func GetUserRoleFromContext(c *gin.Context) (models.UserRole, error) {
	userRole, exists := c.Get("user_role")
	if !exists {
		return "", fmt.Errorf("user role not found in context")
	}

	role, ok := userRole.(models.UserRole)
	if !ok {
		return "", fmt.Errorf("invalid user role type in context")
	}

	return role, nil
}

// ActorFromContext builds the service-layer actor from the authenticated user
func ActorFromContext(c *gin.Context) (services.Actor, error) {
	user, err := GetUserFromContext(c)
	if err != nil {
		return services.Actor{}, err
	}
	return services.ActorFromUser(user), nil
}
