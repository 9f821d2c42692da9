package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIs_MatchesByKind(t *testing.T) {
	err := NotFound("user %s not existent", "abc")
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is to match ErrNotFound")
	}
	if errors.Is(err, ErrPreconditionFailed) {
		t.Error("did not expect match against ErrPreconditionFailed")
	}
}

func TestIs_MatchesThroughWrapping(t *testing.T) {
	inner := PreconditionFailed("already a relative")
	err := fmt.Errorf("send request: %w", inner)
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Error("expected wrapped error to match ErrPreconditionFailed")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{PreconditionFailed("x"), http.StatusPreconditionFailed},
		{Unauthorized("x"), http.StatusUnauthorized},
		{BadRequest("x"), http.StatusBadRequest},
		{Conflict("x"), http.StatusConflict},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound("x")), http.StatusNotFound},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindConflict, cause, "update user")
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
	if !errors.Is(err, ErrConflict) {
		t.Error("expected kind to survive wrapping")
	}
}
