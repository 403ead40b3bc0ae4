package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shubhmrj/Sellium/internal/model"
	"github.com/shubhmrj/Sellium/pkg/database"
	"github.com/shubhmrj/Sellium/pkg/jwtutil"
	"github.com/shubhmrj/Sellium/pkg/logger"
	"github.com/shubhmrj/Sellium/prometheus"
)

// AuthMiddleware validates the bearer credential and loads the calling user.
// The token is taken from the Authorization header or the token cookie.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		tokenString := extractToken(c)
		if tokenString == "" {
			log.Warn("Missing authorization token")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No token, authorization denied"})
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			log.Warn("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Token is not valid"})
		}

		// Load the user so role and active flag reflect the current state,
		// not the state at token issue time
		var user model.User
		result := database.GetDB().First(&user, claims.UserID)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				log.Warn("Token references unknown user", zap.Uint("user_id", claims.UserID))
				prometheus.RecordAuthError("user_not_found")
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Token is not valid"})
			}
			log.Error("Failed to load user for auth", zap.Error(result.Error))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error during authentication"})
		}

		if !user.IsActive {
			log.Warn("Deactivated account attempted access", zap.Uint("user_id", user.ID))
			prometheus.RecordAuthError("account_deactivated")
			return c.JSON(http.StatusForbidden, echo.Map{"message": "Account is deactivated"})
		}

		// Store user info in context for later use
		c.Set("user", &user)
		c.Set("user_id", user.ID)
		c.Set("user_role", user.Role)

		return next(c)
	}
}

// Authorize restricts a route to the given roles. Must run after AuthMiddleware.
func Authorize(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("user_role").(string)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No token, authorization denied"})
			}
			for _, allowed := range roles {
				if role == allowed {
					return next(c)
				}
			}
			logger.FromContext(c).Warn("Role not permitted for route",
				zap.String("role", role),
				zap.Strings("required", roles))
			return c.JSON(http.StatusForbidden, echo.Map{
				"message": "Access denied. Required role: " + strings.Join(roles, " or "),
			})
		}
	}
}

// UserFromContext retrieves the authenticated user set by AuthMiddleware
func UserFromContext(c echo.Context) (*model.User, bool) {
	user, ok := c.Get("user").(*model.User)
	return user, ok
}

func extractToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	if cookie, err := c.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}
