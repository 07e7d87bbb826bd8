package health

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Response is the payload for the health endpoint.
type Response struct {
	Status string `json:"status" doc:"Liveness status" example:"healthy"`
}

// Output is the response wrapper for the health endpoint.
type Output struct {
	Body Response
}

// Register mounts the liveness probe at /health. It is not logged per call;
// the access logger already records each probe.
func Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Liveness probe",
		Tags:        []string{"Health"},
	}, func(context.Context, *struct{}) (*Output, error) {
		return &Output{Body: Response{Status: "healthy"}}, nil
	})
}
