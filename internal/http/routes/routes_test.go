package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
)

func newTestRouter() chi.Router {
	router := chi.NewRouter()
	Register(humachi.New(router, huma.DefaultConfig("RoutesTest", "test")))
	return router
}

func TestRegisterRoutes(t *testing.T) {
	router := newTestRouter()

	for _, path := range []string{"/", "/api", "/health"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, resp.Code)
		}
	}
}

func TestUnregisteredPathIsNotFound(t *testing.T) {
	router := newTestRouter()

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/nonexistent", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestRegisterRoutesUsesDistinctSchemas(t *testing.T) {
	api := humachi.New(chi.NewRouter(), huma.DefaultConfig("RoutesTest", "test"))
	Register(api)

	schemas := api.OpenAPI().Components.Schemas.Map()
	for _, name := range []string{"Data", "Response"} {
		if _, ok := schemas[name]; !ok {
			t.Errorf("expected schema %q to be registered, got %d schemas", name, len(schemas))
		}
	}
}
