// Package rest exposes the session over a JSON HTTP API plus an SSE
// event stream for the game UI.
package rest

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/clubhundred/club100/internal/app/session"
	"github.com/clubhundred/club100/internal/infra/config"
)

// Handler bundles the session manager behind the HTTP routes.
type Handler struct {
	cfg     *config.Config
	session *session.Manager
}

// New builds the echo instance with all routes registered.
func New(cfg *config.Config, mgr *session.Manager) *echo.Echo {
	h := &Handler{cfg: cfg, session: mgr}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, headerAdminToken},
	}))

	e.GET("/health", h.health)

	api := e.Group("/api")
	api.GET("/search/artists", h.searchArtists)
	api.GET("/devices", h.devices)
	api.GET("/session/artists", h.listArtists)
	api.GET("/session/program", h.getProgram)
	api.GET("/game/status", h.status)
	api.GET("/game/events", h.events)

	guarded := api.Group("", h.adminGuard)
	guarded.POST("/session/artists", h.selectArtist)
	guarded.DELETE("/session/artists/:id", h.removeArtist)
	guarded.POST("/session/program", h.buildProgram)
	guarded.POST("/game/start", h.startGame)
	guarded.POST("/game/pause", h.pause)
	guarded.POST("/game/resume", h.resume)
	guarded.POST("/game/reset", h.reset)

	return e
}

const headerAdminToken = "X-Admin-Token"

// adminGuard rejects mutating requests without the configured admin
// token. An empty configured token leaves the endpoints open.
func (h *Handler) adminGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.cfg.Admin.Token == "" {
			return next(c)
		}
		if c.Request().Header.Get(headerAdminToken) != h.cfg.Admin.Token {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid admin token"})
		}
		return next(c)
	}
}
