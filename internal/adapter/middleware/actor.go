package middleware

import (
	"net/http"
	"strings"

	"loanledger-backend/internal/domain/actor"

	"github.com/labstack/echo/v4"
)

const actorContextKey = "actor"

// ActorContext extracts the caller identity established by the upstream
// auth layer (X-Actor-Id + X-Actor-Role). Authentication itself is outside
// this service; requests without a usable identity are rejected here so
// handlers and usecases can rely on it.
func ActorContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := strings.TrimSpace(c.Request().Header.Get("X-Actor-Id"))
			if !reHex32.MatchString(userID) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing or invalid X-Actor-Id"})
			}
			role := actor.Role(strings.TrimSpace(c.Request().Header.Get("X-Actor-Role")))
			switch role {
			case actor.RoleAdmin, actor.RoleUser:
			case "":
				role = actor.RoleUser
			default:
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid X-Actor-Role"})
			}
			c.Set(actorContextKey, actor.Actor{UserID: userID, Role: role})
			return next(c)
		}
	}
}

// ActorFrom returns the actor stashed by ActorContext.
func ActorFrom(c echo.Context) (actor.Actor, bool) {
	a, ok := c.Get(actorContextKey).(actor.Actor)
	return a, ok
}
