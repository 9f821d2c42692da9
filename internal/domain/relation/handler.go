package relation

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/FabFari/recipex-app-engine/pkg/apperror"
)

// Handler provides HTTP handlers for the relation domain.
type Handler struct {
	svc *Service
}

// NewHandler creates a new relation domain handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers all relation domain routes. Request routes hang
// off the receiver's user resource.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/users/:id/requests", h.SendRequest)
	api.GET("/users/:id/requests", h.ListReceived)
	api.GET("/users/:id/requests/sent", h.ListSent)
	api.GET("/users/:id/requests/:rid", h.GetRequest)
	api.PUT("/users/:id/requests/:rid", h.AnswerRequest)
	api.DELETE("/users/:id/requests/:rid", h.DeleteRequest)
	api.GET("/users/:id/relations/:peerID", h.RelationStatus)
	api.PATCH("/users/:id/relations", h.SeverRelation)
}

type sendRequestBody struct {
	SenderID    uuid.UUID `json:"sender_id"`
	Kind        Kind      `json:"kind"`
	Role        *Role     `json:"role"`
	Message     *string   `json:"message"`
	CalendarRef *string   `json:"calendar_ref"`
}

func (h *Handler) SendRequest(c echo.Context) error {
	receiverID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body sendRequestBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req, err := h.svc.SendRequest(c.Request().Context(), SendInput{
		SenderID:    body.SenderID,
		ReceiverID:  receiverID,
		Kind:        body.Kind,
		Role:        body.Role,
		Message:     body.Message,
		CalendarRef: body.CalendarRef,
	})
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) ListReceived(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.Received(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	if items == nil {
		items = []*Request{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListSent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.Sent(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	if items == nil {
		items = []*Request{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetRequest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rid, err := uuid.Parse(c.Param("rid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	req, err := h.svc.Get(c.Request().Context(), id, rid)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, req)
}

type answerRequestBody struct {
	Accept bool `json:"accept"`
}

func (h *Handler) AnswerRequest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rid, err := uuid.Parse(c.Param("rid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	var body answerRequestBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	calendarRef, err := h.svc.AnswerRequest(c.Request().Context(), id, rid, body.Accept)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"accepted": body.Accept, "calendar_ref": calendarRef})
}

func (h *Handler) DeleteRequest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rid, err := uuid.Parse(c.Param("rid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	sender, err := uuid.Parse(c.QueryParam("sender"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "a sender query parameter is required")
	}
	if err := h.svc.DeleteRequest(c.Request().Context(), id, rid, sender); err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RelationStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	peerID, err := uuid.Parse(c.Param("peerID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid peer id")
	}
	st, err := h.svc.RelationStatus(c.Request().Context(), id, peerID)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, st)
}

type severRelationBody struct {
	PeerID uuid.UUID `json:"peer_id"`
	Kind   Kind      `json:"kind"`
	Role   *Role     `json:"role"`
}

func (h *Handler) SeverRelation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body severRelationBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	affected, err := h.svc.SeverRelation(c.Request().Context(), id, body.PeerID, body.Kind, body.Role)
	if err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"severed_peer_id": affected})
}
