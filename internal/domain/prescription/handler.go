package prescription

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/FabFari/recipex-app-engine/pkg/apperror"
	"github.com/FabFari/recipex-app-engine/pkg/pagination"
)

// Handler provides HTTP handlers for the prescription domain.
type Handler struct {
	svc *Service
}

// NewHandler creates a new prescription domain handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers all prescription domain routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/active-ingredients", h.AddIngredient)
	api.GET("/active-ingredients", h.ListIngredients)
	api.GET("/active-ingredients/:id", h.GetIngredient)
	api.DELETE("/active-ingredients/:id", h.DeleteIngredient)

	api.POST("/users/:uid/prescriptions", h.Create)
	api.GET("/users/:uid/prescriptions", h.List)
	api.GET("/users/:uid/prescriptions/:pid", h.Get)
	api.PUT("/users/:uid/prescriptions/:pid", h.Update)
	api.DELETE("/users/:uid/prescriptions/:pid", h.Delete)
}

func (h *Handler) AddIngredient(c echo.Context) error {
	var ai ActiveIngredient
	if err := c.Bind(&ai); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AddIngredient(c.Request().Context(), &ai); err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, ai)
}

func (h *Handler) ListIngredients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListIngredients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetIngredient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ai, err := h.svc.GetIngredient(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, ai)
}

func (h *Handler) DeleteIngredient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteIngredient(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Create(c echo.Context) error {
	uid, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.UserID = uid
	if err := h.svc.Create(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) List(c echo.Context) error {
	uid, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), uid, pg.Limit, pg.Offset)
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
	pid, err := uuid.Parse(c.Param("pid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid prescription id")
	}
	v, err := h.svc.Get(c.Request().Context(), uid, pid)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Update(c echo.Context) error {
	uid, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	pid, err := uuid.Parse(c.Param("pid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid prescription id")
	}
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = pid
	p.UserID = uid
	updated, err := h.svc.Update(c.Request().Context(), &p)
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
	pid, err := uuid.Parse(c.Param("pid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid prescription id")
	}
	if err := h.svc.Delete(c.Request().Context(), uid, pid); err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
