package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	appErr := TooManyRequestsError("rate limited")
	if err := AppErrorResponse(c, appErr); err != nil {
		t.Fatalf("response: %v", err)
	}

	var res APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.Status != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429", res.Status)
	}
	if !strings.Contains(rec.Body.String(), "ERR_RATE_LIMITED") {
		t.Fatalf("code missing from body: %s", rec.Body.String())
	}
}

func TestAppErrorResponseFallsBackToInternal(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := AppErrorResponse(c, errors.New("plain failure")); err != nil {
		t.Fatalf("response: %v", err)
	}

	var res APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.Status != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", res.Status)
	}
}

func TestAppErrorWrapping(t *testing.T) {
	cause := errors.New("db down")
	appErr := InternalError("lookup failed").WithError(cause)

	if !errors.Is(appErr, cause) {
		t.Fatalf("wrapped cause not reachable via errors.Is")
	}
	want := fmt.Sprintf("lookup failed: %v", cause)
	if appErr.Error() != want {
		t.Fatalf("error %q, want %q", appErr.Error(), want)
	}
	if UnauthorizedError("nope").Status != http.StatusUnauthorized {
		t.Fatalf("unauthorized status mismatch")
	}
}
