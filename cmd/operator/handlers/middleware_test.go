package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opst/datahub-operator/cmd/operator/handlers"
	"github.com/opst/datahub-operator/pkg/auth"
	"github.com/opst/datahub-operator/pkg/utils/try"
)

func TestBearerAuth(t *testing.T) {
	key := []byte("test-sign-key-test-sign-key-0123")

	serve := func(t *testing.T, authorization string) *httptest.ResponseRecorder {
		t.Helper()

		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/api/reconcile", nil)
		if authorization != "" {
			req.Header.Set(echo.HeaderAuthorization, authorization)
		}
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		guarded := handlers.BearerAuth(key)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		if err := guarded(c); err != nil {
			e.HTTPErrorHandler(err, c)
		}
		return rec
	}

	t.Run("a valid token passes through", func(t *testing.T) {
		token := try.To(auth.IssueFor(key, "relation-provider", time.Hour)).OrFatal(t)
		if rec := serve(t, "Bearer "+token); rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("a missing header is unauthorized", func(t *testing.T) {
		if rec := serve(t, ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("a token signed with another key is unauthorized", func(t *testing.T) {
		token := try.To(auth.IssueFor(
			[]byte("another-key-another-key-another!"), "relation-provider", time.Hour,
		)).OrFatal(t)
		if rec := serve(t, "Bearer "+token); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("a non-bearer scheme is unauthorized", func(t *testing.T) {
		if rec := serve(t, "Basic dXNlcjpwYXNz"); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}
