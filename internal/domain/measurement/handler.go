package measurement

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/FabFari/recipex-app-engine/pkg/apperror"
	"github.com/FabFari/recipex-app-engine/pkg/pagination"
)

// Handler provides HTTP handlers for the measurement domain.
type Handler struct {
	svc *Service
}

// NewHandler creates a new measurement domain handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers all measurement domain routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/users/:uid/measurements", h.Create)
	api.GET("/users/:uid/measurements", h.List)
	api.GET("/users/:uid/measurements/:mid", h.Get)
	api.PUT("/users/:uid/measurements/:mid", h.Update)
	api.DELETE("/users/:uid/measurements/:mid", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	uid, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	var m Measurement
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.UserID = uid
	if err := h.svc.Create(c.Request().Context(), &m); err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) List(c echo.Context) error {
	uid, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	var f ListFilter
	if kind := c.QueryParam("kind"); kind != "" {
		f.Kind = Kind(kind)
	}
	if since := c.QueryParam("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "since must be RFC 3339 formatted")
		}
		f.Since = t
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), uid, f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	uid, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	mid, err := uuid.Parse(c.Param("mid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid measurement id")
	}
	m, err := h.svc.Get(c.Request().Context(), uid, mid)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) Update(c echo.Context) error {
	uid, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	mid, err := uuid.Parse(c.Param("mid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid measurement id")
	}
	var m Measurement
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.ID = mid
	m.UserID = uid
	updated, err := h.svc.Update(c.Request().Context(), &m)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) Delete(c echo.Context) error {
	uid, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	mid, err := uuid.Parse(c.Param("mid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid measurement id")
	}
	if err := h.svc.Delete(c.Request().Context(), uid, mid); err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
