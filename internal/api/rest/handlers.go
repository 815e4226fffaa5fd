package rest

import (
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"

	"github.com/clubhundred/club100/internal/app/game"
	"github.com/clubhundred/club100/internal/app/notification"
	"github.com/clubhundred/club100/internal/app/session"
	"github.com/clubhundred/club100/internal/domain/artist"
	"github.com/clubhundred/club100/internal/domain/program"
	"github.com/clubhundred/club100/internal/infra/config"
	"github.com/clubhundred/club100/internal/infra/spotify"
)

// artistView is the wire form of an artist.
type artistView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

func toArtistViews(artists []artist.Artist) []artistView {
	views := make([]artistView, len(artists))
	for i, a := range artists {
		views[i] = artistView{ID: a.ID, Name: a.Name, ImageURL: a.ImageURL}
	}
	return views
}

func (h *Handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status": "ok",
		"market": h.session.Market(),
	})
}

func (h *Handler) searchArtists(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "missing query parameter q"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	artists, err := h.session.SearchArtists(c.Request().Context(), query, limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"artists": toArtistViews(artists)})
}

func (h *Handler) devices(c echo.Context) error {
	devices, err := h.session.Devices(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"devices": devices})
}

func (h *Handler) listArtists(c echo.Context) error {
	artists := h.session.Artists()
	return c.JSON(http.StatusOK, echo.Map{
		"artists":  toArtistViews(artists),
		"required": artist.Required,
	})
}

func (h *Handler) selectArtist(c echo.Context) error {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.Bind(&req); err != nil || req.ID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "missing artist id"})
	}

	a, err := h.session.SelectArtist(c.Request().Context(), req.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, artistView{ID: a.ID, Name: a.Name, ImageURL: a.ImageURL})
}

func (h *Handler) removeArtist(c echo.Context) error {
	if err := h.session.RemoveArtist(c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) buildProgram(c echo.Context) error {
	prog, err := h.session.BuildProgram(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, programView(prog))
}

func (h *Handler) getProgram(c echo.Context) error {
	prog := h.session.Program()
	if prog == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "program not built"})
	}
	return c.JSON(http.StatusOK, programView(prog))
}

// programView renders the artist-by-rank grid. Absent slots are null.
func programView(prog *program.Program) echo.Map {
	grid := make([][]*notification.TrackInfo, program.Artists)
	for ai := 0; ai < program.Artists; ai++ {
		row := make([]*notification.TrackInfo, program.TracksPerArtist)
		for rank := 0; rank < program.TracksPerArtist; rank++ {
			if t := prog.TrackAt(ai, rank); t != nil {
				row[rank] = &notification.TrackInfo{
					URI:         t.URI,
					Name:        t.Name,
					ArtistName:  t.ArtistName,
					AlbumArtURL: t.AlbumArtURL,
					DurationMs:  t.Duration.Milliseconds(),
					OffsetMs:    game.StartOffset(t.Duration).Milliseconds(),
					Popularity:  t.Popularity,
				}
			}
		}
		grid[ai] = row
	}
	return echo.Map{
		"artists":     toArtistViews(prog.Artists()),
		"tracks":      grid,
		"rounds":      program.Rounds,
		"track_count": prog.TrackCount(),
	}
}

func (h *Handler) startGame(c echo.Context) error {
	var req struct {
		Mode   string `json:"mode"`
		Device string `json:"device"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}

	if err := h.session.StartGame(c.Request().Context(), req.Mode, req.Device); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, h.session.Status())
}

func (h *Handler) pause(c echo.Context) error {
	if err := h.session.Pause(); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, h.session.Status())
}

func (h *Handler) resume(c echo.Context) error {
	if err := h.session.Resume(); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, h.session.Status())
}

func (h *Handler) reset(c echo.Context) error {
	if err := h.session.ResetGame(); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, h.session.Status())
}

func (h *Handler) status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.session.Status())
}

// fail maps domain errors to HTTP status codes.
func (h *Handler) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, artist.ErrNotSelected),
		errors.Is(err, spotify.ErrDeviceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, artist.ErrSelectionFull),
		errors.Is(err, artist.ErrAlreadySelected),
		errors.Is(err, artist.ErrIncomplete),
		errors.Is(err, session.ErrGameActive),
		errors.Is(err, session.ErrProgramNotBuilt),
		errors.Is(err, game.ErrAlreadyStarted),
		errors.Is(err, game.ErrNotRunning),
		errors.Is(err, game.ErrNotPaused):
		status = http.StatusConflict
	case errors.Is(err, game.ErrInvalidConfig),
		errors.Is(err, config.ErrUnknownMode):
		status = http.StatusBadRequest
	}
	return c.JSON(status, echo.Map{"message": err.Error()})
}
