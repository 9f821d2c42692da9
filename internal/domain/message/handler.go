package message

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/FabFari/recipex-app-engine/pkg/apperror"
	"github.com/FabFari/recipex-app-engine/pkg/pagination"
)

// Handler provides HTTP handlers for the message domain.
type Handler struct {
	svc *Service
}

// NewHandler creates a new message domain handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers all message domain routes. Messages hang off the
// receiver's user resource.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/users/:id/messages", h.Send)
	api.GET("/users/:id/messages", h.Inbox)
	api.GET("/users/:id/messages/:mid", h.Get)
	api.POST("/users/:id/messages/:mid/read", h.MarkRead)
	api.DELETE("/users/:id/messages/:mid", h.Delete)
}

type sendMessageBody struct {
	SenderID      uuid.UUID  `json:"sender_id"`
	Body          string     `json:"body"`
	MeasurementID *uuid.UUID `json:"measurement_id"`
}

func (h *Handler) Send(c echo.Context) error {
	receiverID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body sendMessageBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m := &Message{
		SenderID:      body.SenderID,
		ReceiverID:    receiverID,
		Body:          body.Body,
		MeasurementID: body.MeasurementID,
	}
	if err := h.svc.Send(c.Request().Context(), m); err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) Inbox(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	unreadOnly := c.QueryParam("unread") == "true"
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Inbox(c.Request().Context(), id, unreadOnly, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	mid, err := uuid.Parse(c.Param("mid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message id")
	}
	m, err := h.svc.Get(c.Request().Context(), id, mid)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) MarkRead(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	mid, err := uuid.Parse(c.Param("mid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message id")
	}
	if err := h.svc.MarkRead(c.Request().Context(), id, mid); err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	mid, err := uuid.Parse(c.Param("mid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message id")
	}
	if err := h.svc.Delete(c.Request().Context(), id, mid); err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
