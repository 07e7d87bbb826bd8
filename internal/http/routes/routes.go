package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/soluciones-gbh/demo-api/internal/http/health"
	"github.com/soluciones-gbh/demo-api/internal/http/root"
)

// MountPrefixes lists every prefix the application descriptor is served under.
var MountPrefixes = []string{"", "/api"}

// Register wires all HTTP routes into the provided API router.
func Register(api huma.API) {
	health.Register(api)
	for _, prefix := range MountPrefixes {
		root.Register(api, prefix)
	}
}
