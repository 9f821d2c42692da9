package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Logger(logger)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"path":"/users"`) {
		t.Errorf("expected path in log output, got %s", out)
	}
	if !strings.Contains(out, `"method":"GET"`) {
		t.Errorf("expected method in log output, got %s", out)
	}
}

func TestRecovery_ConvertsPanicToError(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Recovery(logger)(func(c echo.Context) error {
		panic("boom")
	})
	err := h(c)
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 HTTPError, got %v", err)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Error("expected panic to be logged")
	}
}

func TestRateLimit_ExhaustsBurst(t *testing.T) {
	e := echo.New()
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 2})
	h := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	var lastErr error
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		lastErr = h(c)
	}

	he, ok := lastErr.(*echo.HTTPError)
	if !ok || he.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 on third request, got %v", lastErr)
	}
}

func TestRateLimit_SeparateClients(t *testing.T) {
	e := echo.New()
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})
	h := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	for _, ip := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if err := h(c); err != nil {
			t.Errorf("expected first request from %s to pass, got %v", ip, err)
		}
	}
}
