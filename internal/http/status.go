package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/atelierdevis/devis-gateway/internal/auth"
)

// getStatusHandler reports whether the order form is open. Public, and
// cacheable for a minute by the CDN in front.
func getStatusHandler(gate *auth.Gate) echo.HandlerFunc {
	return func(c echo.Context) error {
		isOpen, err := gate.Status(c.Request().Context())
		if err != nil {
			// closed is the safe answer when the store is unreachable
			log.Errorf("read status failed: %v", err)
			isOpen = false
		}

		c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=60")
		return c.JSON(http.StatusOK, map[string]bool{"isOpen": isOpen})
	}
}
