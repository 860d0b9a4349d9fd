package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/anisong/internal/shared"
)

func TestBasicRouter(t *testing.T) {
	t.Run("Handle matches method", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Body.String() != "pong" {
			t.Errorf("expected pong, got %q", rec.Body.String())
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("Middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("first"), mark("second"))
		r.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("Logging records status", func(t *testing.T) {
		var buf bytes.Buffer
		logger := shared.NewLogger(&buf)
		shared.SetLogLevel(logger, shared.ParseLogLevel("debug"))

		r := NewBasicRouter()
		r.Use(Logging(logger))
		r.Handle(http.MethodGet, "/teapot", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teapot", nil))
		if out := buf.String(); !strings.Contains(out, "status=418") || !strings.Contains(out, "path=/teapot") {
			t.Errorf("expected request log, got %q", out)
		}
	})

	t.Run("Recover returns 500", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewBasicRouter()
		r.Use(Recover(shared.NewLogger(&buf)))
		r.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(buf.String(), "handler panic") {
			t.Errorf("expected panic to be logged, got %q", buf.String())
		}
	})
}
