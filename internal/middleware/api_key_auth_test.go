package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runAuth(t *testing.T, keys []string, authHeader string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()

	handlerCalled := false
	handler := func(c echo.Context) error {
		handlerCalled = true
		return c.String(http.StatusOK, "OK")
	}

	mw := NewAPIKeyAuthMiddleware(keys)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := mw.Authenticate()(handler)(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return rec, handlerCalled
}

func TestAPIKeyAuth_ValidKey(t *testing.T) {
	rec, called := runAuth(t, []string{"secret-key"}, "Bearer secret-key")

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if !called {
		t.Error("Expected handler to be called")
	}
}

func TestAPIKeyAuth_InvalidKey(t *testing.T) {
	rec, called := runAuth(t, []string{"secret-key"}, "Bearer wrong-key")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
	if called {
		t.Error("Handler must not run with a bad key")
	}
}

func TestAPIKeyAuth_MissingHeader(t *testing.T) {
	rec, called := runAuth(t, []string{"secret-key"}, "")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
	if called {
		t.Error("Handler must not run without a key")
	}
}

func TestAPIKeyAuth_BadScheme(t *testing.T) {
	rec, _ := runAuth(t, []string{"secret-key"}, "Basic secret-key")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestAPIKeyAuth_DisabledWithoutKeys(t *testing.T) {
	rec, called := runAuth(t, nil, "")

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if !called {
		t.Error("Expected handler to be called when auth is disabled")
	}
}
