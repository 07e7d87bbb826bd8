// Package root serves the application descriptor.
package root

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// Register mounts the descriptor at prefix. An empty prefix or "/" mounts it
// at the site root. Each mount gets its own operation ID.
func Register(api huma.API, prefix string) {
	path := mountPath(prefix)
	huma.Register(api, huma.Operation{
		OperationID: operationID(path),
		Method:      http.MethodGet,
		Path:        path,
		Summary:     "Get application info",
		Tags:        []string{"Root"},
	}, getInfo)
}

func getInfo(context.Context, *struct{}) (*GetOutput, error) {
	return &GetOutput{Body: Info}, nil
}

func mountPath(prefix string) string {
	return "/" + strings.Trim(prefix, "/")
}

func operationID(path string) string {
	if path == "/" {
		return "get-info"
	}
	return "get-info-" + strings.ReplaceAll(strings.Trim(path, "/"), "/", "-")
}
