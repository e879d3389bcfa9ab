package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/atelierdevis/devis-gateway/internal/auth"
	"github.com/atelierdevis/devis-gateway/internal/metrics"
	"github.com/atelierdevis/devis-gateway/internal/token"
)

// User-facing strings stay French: the site front end displays them as-is.
const (
	msgWrongPassword = "Mot de passe incorrect"
	msgRateLimited   = "Trop de tentatives. Réessayez dans 15 minutes."
	msgMissingToken  = "Token manquant"
	msgExpiredToken  = "Token expiré"
	msgInvalidToken  = "Token invalide"
)

type loginReq struct {
	Password string `json:"password"`
}

type toggleReq struct {
	IsOpen bool `json:"isOpen"`
}

// clientIdentifier keys the rate limiter: first X-Forwarded-For hop, or
// "unknown" when the header is absent.
func clientIdentifier(c echo.Context) string {
	xff := c.Request().Header.Get("X-Forwarded-For")
	if xff == "" {
		return "unknown"
	}
	if i := strings.IndexByte(xff, ','); i >= 0 {
		xff = xff[:i]
	}
	return strings.TrimSpace(xff)
}

// jwtLoginHandler authenticates the admin password and issues a bearer token.
func jwtLoginHandler(gate *auth.Gate) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		tok, err := gate.Authenticate(c.Request().Context(), req.Password, clientIdentifier(c))
		if err != nil {
			return authFailure(c, err)
		}

		metrics.AuthTotal.WithLabelValues("ok").Inc()
		return c.JSON(http.StatusOK, map[string]any{
			"success":   true,
			"token":     tok,
			"expiresIn": gate.TokenTTLSeconds(),
		})
	}
}

// adminAuthHandler is the legacy password check kept for the old admin page.
// It runs through the same rate-limited gate but never returns a token and
// guards nothing.
func adminAuthHandler(gate *auth.Gate) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		if _, err := gate.Authenticate(c.Request().Context(), req.Password, clientIdentifier(c)); err != nil {
			return authFailure(c, err)
		}

		metrics.AuthTotal.WithLabelValues("ok").Inc()
		return c.JSON(http.StatusOK, map[string]any{"success": true})
	}
}

func authFailure(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrRateLimited):
		metrics.AuthTotal.WithLabelValues("rate_limited").Inc()
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": msgRateLimited})
	case errors.Is(err, auth.ErrInvalidCredentials):
		metrics.AuthTotal.WithLabelValues("invalid").Inc()
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": msgWrongPassword})
	default:
		log.Errorf("authenticate failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
	}
}

// toggleStatusHandler flips the orders-open flag; bearer token only.
func toggleStatusHandler(gate *auth.Gate) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req toggleReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		isOpen, err := gate.Toggle(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization), req.IsOpen)
		if err != nil {
			switch {
			case errors.Is(err, token.ErrMissingToken):
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": msgMissingToken})
			case errors.Is(err, token.ErrExpiredToken):
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": msgExpiredToken})
			case errors.Is(err, token.ErrInvalidToken):
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": msgInvalidToken})
			default:
				log.Errorf("toggle failed: %v", err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "flag store error"})
			}
		}

		return c.JSON(http.StatusOK, map[string]any{"success": true, "isOpen": isOpen})
	}
}
