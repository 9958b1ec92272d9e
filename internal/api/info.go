package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DB       bool     `json:"db" doc:"Whether database is available"`
	Pages    int      `json:"pages" doc:"Pages connected to the script stream"`
	Features []string `json:"features" doc:"Available features"`
}

// RegisterInfo registers the service info route.
func (h *APIHandler) RegisterInfo(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

func (h *APIHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:     "plat-map",
		Version:  "0.1.0",
		DB:       h.svc.DB != nil,
		Features: []string{"geojson", "pmtiles"},
	}
	if h.svc.DB != nil {
		body.Features = append(body.Features, "duckdb")
	}
	if h.svc.Runtime != nil {
		body.Pages = h.svc.Runtime.Pages()
		body.Features = append(body.Features, "bridge")
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
