package user

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/FabFari/recipex-app-engine/pkg/apperror"
	"github.com/FabFari/recipex-app-engine/pkg/pagination"
)

// Handler provides HTTP handlers for the user domain.
type Handler struct {
	svc *Service
}

// NewHandler creates a new user domain handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers all user domain routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/users", h.Register)
	api.GET("/users", h.List)
	api.GET("/users/:id", h.GetProfile)
	api.PUT("/users/:id", h.Update)
	api.DELETE("/users/:id", h.Delete)
	api.GET("/users/:id/unseen", h.Unseen)
	api.POST("/users/:id/calendar-removals/drain", h.DrainCalendarRemovals)
}

// upsertRequest is the wire shape for registration and profile updates.
// The caregiver fields are honored only when field (the specialization)
// is present.
type upsertRequest struct {
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	Surname     string  `json:"surname"`
	Birth       string  `json:"birth"`
	Sex         string  `json:"sex"`
	Pic         string  `json:"pic"`
	City        *string `json:"city"`
	Address     *string `json:"address"`
	PersonalNum *string `json:"personal_num"`
	CalendarID  *string `json:"calendar_id"`

	Field       *string `json:"field"`
	YearsExp    *int    `json:"years_exp"`
	Place       *string `json:"place"`
	BusinessNum *string `json:"business_num"`
	Bio         *string `json:"bio"`
	Available   *string `json:"available"`
}

func (r *upsertRequest) toModels() (*User, *Caregiver, error) {
	birth, err := time.Parse("2006-01-02", r.Birth)
	if err != nil {
		return nil, nil, apperror.BadRequest("birth must be formatted as YYYY-MM-DD")
	}
	u := &User{
		Email: r.Email, Name: r.Name, Surname: r.Surname, Birth: birth,
		Sex: r.Sex, Pic: r.Pic, City: r.City, Address: r.Address,
		PersonalNum: r.PersonalNum, CalendarID: r.CalendarID,
	}
	var cg *Caregiver
	if r.Field != nil && *r.Field != "" {
		cg = &Caregiver{
			Field: *r.Field, YearsExp: r.YearsExp, Place: r.Place,
			BusinessNum: r.BusinessNum, Bio: r.Bio, Available: r.Available,
		}
	}
	return u, cg, nil
}

func (h *Handler) Register(c echo.Context) error {
	var req upsertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, cg, err := req.toModels()
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	created, err := h.svc.Register(c.Request().Context(), u, cg)
	if err != nil {
		if errors.Is(err, apperror.ErrPreconditionFailed) && created != nil {
			// Existing account: hand the id back so the client can recover it.
			return c.JSON(http.StatusPreconditionFailed, echo.Map{
				"message": err.Error(),
				"id":      created.ID,
			})
		}
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetProfile(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Profile(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req upsertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, cg, err := req.toModels()
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	u.ID = id
	updated, err := h.svc.UpdateProfile(c.Request().Context(), u, cg)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Unseen(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	info, err := h.svc.Unseen(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, info)
}

func (h *Handler) DrainCalendarRemovals(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	emails, err := h.svc.DrainToRemove(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"emails": emails})
}
