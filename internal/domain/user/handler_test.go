package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo, *Service) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	return h, e, svc
}

func authed(req *http.Request, email string) *http.Request {
	return req.WithContext(ctxAs(email))
}

const registerBody = `{"email":"ada@recipex.test","name":"Ada","surname":"Lovelace","birth":"1990-03-14","sex":"F"}`

func TestHandler_Register(t *testing.T) {
	h, e, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(registerBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_Register_DuplicateReturnsExistingID(t *testing.T) {
	h, e, svc := newTestHandler()
	existing, _ := svc.Register(ctxAs("ada@recipex.test"), validUser("ada@recipex.test"), nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(registerBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d", rec.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["id"] != existing.ID.String() {
		t.Errorf("expected existing id in response, got %v", body["id"])
	}
}

func TestHandler_Register_BadBirth(t *testing.T) {
	h, e, _ := newTestHandler()
	body := `{"email":"ada@recipex.test","name":"Ada","surname":"Lovelace","birth":"14/03/1990","sex":"F"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Register(c); err == nil {
		t.Error("expected error for malformed birth date")
	}
}

func TestHandler_GetProfile(t *testing.T) {
	h, e, svc := newTestHandler()
	u, _ := svc.Register(ctxAs("ada@recipex.test"), validUser("ada@recipex.test"), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(u.ID.String())
	if err := h.GetProfile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetProfile_InvalidID(t *testing.T) {
	h, e, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	if err := h.GetProfile(c); err == nil {
		t.Error("expected error for invalid id")
	}
}

func TestHandler_Delete(t *testing.T) {
	h, e, svc := newTestHandler()
	u, _ := svc.Register(ctxAs("ada@recipex.test"), validUser("ada@recipex.test"), nil)

	req := authed(httptest.NewRequest(http.MethodDelete, "/", nil), u.Email)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(u.ID.String())
	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_Delete_Unauthorized(t *testing.T) {
	h, e, svc := newTestHandler()
	u, _ := svc.Register(ctxAs("ada@recipex.test"), validUser("ada@recipex.test"), nil)

	req := authed(httptest.NewRequest(http.MethodDelete, "/", nil), "intruder@recipex.test")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(u.ID.String())
	err := h.Delete(c)
	if err == nil {
		t.Fatal("expected error for foreign account")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestHandler_Unseen(t *testing.T) {
	h, e, svc := newTestHandler()
	u, _ := svc.Register(ctxAs("ada@recipex.test"), validUser("ada@recipex.test"), nil)
	svc.SetUnseenSources(staticUnseen(2), staticUnseen(1), staticUnseen(0))

	req := authed(httptest.NewRequest(http.MethodGet, "/", nil), u.Email)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(u.ID.String())
	if err := h.Unseen(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var info UnseenInfo
	json.Unmarshal(rec.Body.Bytes(), &info)
	if info.Messages != 2 || info.Requests != 1 {
		t.Errorf("unexpected counts: %+v", info)
	}
}

func TestHandler_DrainCalendarRemovals(t *testing.T) {
	h, e, svc := newTestHandler()
	u, _ := svc.Register(ctxAs("ada@recipex.test"), validUser("ada@recipex.test"), nil)
	u.ToRemove = []string{"gone@recipex.test"}

	req := authed(httptest.NewRequest(http.MethodPost, "/", nil), u.Email)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(u.ID.String())
	if err := h.DrainCalendarRemovals(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Emails []string `json:"emails"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Emails) != 1 || body.Emails[0] != "gone@recipex.test" {
		t.Errorf("unexpected drained emails: %v", body.Emails)
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, e, _ := newTestHandler()
	h.RegisterRoutes(e.Group("/api/v1"))

	routePaths := make(map[string]bool)
	for _, r := range e.Routes() {
		routePaths[r.Method+":"+r.Path] = true
	}
	expected := []string{
		"POST:/api/v1/users",
		"GET:/api/v1/users",
		"GET:/api/v1/users/:id",
		"PUT:/api/v1/users/:id",
		"DELETE:/api/v1/users/:id",
		"GET:/api/v1/users/:id/unseen",
		"POST:/api/v1/users/:id/calendar-removals/drain",
	}
	for _, path := range expected {
		if !routePaths[path] {
			t.Errorf("missing expected route: %s", path)
		}
	}
}
