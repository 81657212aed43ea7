package auth

import (
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ErrNoOrganization indicates that no organization identity could be
// resolved for the request.
var ErrNoOrganization = errors.New("no organization in request context")

// OrganizationID resolves the acting organization for a request. The JWT
// claim wins; the X-Organization-ID header is a development fallback.
func OrganizationID(c echo.Context) (uuid.UUID, error) {
	raw := OrgIDFromContext(c.Request().Context())
	if raw == "" {
		raw = c.Request().Header.Get("X-Organization-ID")
	}
	if raw == "" {
		return uuid.Nil, ErrNoOrganization
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrNoOrganization
	}
	return id, nil
}
