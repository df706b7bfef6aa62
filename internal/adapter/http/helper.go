package http

import (
	"strings"
	"time"

	"loanledger-backend/internal/adapter/middleware"
	"loanledger-backend/internal/domain/actor"
	"loanledger-backend/pkg/apperrors"

	"github.com/labstack/echo/v4"
)

// ---- helpers ----

// actorOrErr pulls the caller identity stashed by the actor middleware.
func actorOrErr(c echo.Context) (actor.Actor, error) {
	act, ok := middleware.ActorFrom(c)
	if !ok {
		return actor.Actor{}, apperrors.AccessDenied("missing actor identity")
	}
	return act, nil
}

// parseDate accepts a bare date or a full RFC3339 timestamp.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}
