package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-map/internal/browser"
	"github.com/joeblew999/plat-map/internal/humastar"
)

// StreamPath is where pages subscribe to renderer scripts.
const StreamPath = "/api/v1/bridge/stream"

type PayloadInput struct {
	Body map[string]any `required:"false" doc:"Camera reported by the renderer"`
}

type ReplyInput struct {
	Body browser.Reply
}

type ReplyBody struct {
	Delivered bool `json:"delivered" doc:"Whether an evaluation was waiting for this reply"`
}

// RegisterBridge registers the page-facing bridge routes: inbound renderer
// events, evaluation replies and the script stream.
func (h *APIHandler) RegisterBridge(api huma.API) {
	noContent := func(o *huma.Operation) { o.DefaultStatus = 204 }
	tags := huma.OperationTags("bridge")

	huma.Post(api, "/api/v1/bridge/page-loaded", h.PageLoaded, tags, noContent)
	huma.Post(api, "/api/v1/bridge/map-loaded", h.MapLoaded, tags, noContent)
	huma.Post(api, "/api/v1/bridge/view-changed", h.ViewChanged, tags, noContent)
	huma.Post(api, "/api/v1/bridge/reply", h.Reply, tags)
	huma.Get(api, StreamPath, h.Stream, tags)
}

func (h *APIHandler) PageLoaded(ctx context.Context, input *struct{}) (*struct{}, error) {
	if h.svc.Map == nil || !h.svc.Map.PageLoaded() {
		return nil, huma.Error503ServiceUnavailable("map not available")
	}
	return &struct{}{}, nil
}

func (h *APIHandler) MapLoaded(ctx context.Context, input *PayloadInput) (*struct{}, error) {
	if h.svc.Map == nil || !h.svc.Map.MapLoaded(input.Body) {
		return nil, huma.Error503ServiceUnavailable("map not available")
	}
	return &struct{}{}, nil
}

func (h *APIHandler) ViewChanged(ctx context.Context, input *PayloadInput) (*struct{}, error) {
	if h.svc.Map == nil || !h.svc.Map.ViewChanged(input.Body) {
		return nil, huma.Error503ServiceUnavailable("map not available")
	}
	return &struct{}{}, nil
}

func (h *APIHandler) Reply(ctx context.Context, input *ReplyInput) (*struct{ Body ReplyBody }, error) {
	if h.svc.Runtime == nil {
		return nil, huma.Error503ServiceUnavailable("runtime not available")
	}
	return &struct{ Body ReplyBody }{Body: ReplyBody{Delivered: h.svc.Runtime.Deliver(input.Body)}}, nil
}

// Stream connects a page to the runtime and forwards every script as a
// Datastar execute-script event. A new connection starts a new renderer
// session, so it counts as page-loaded.
func (h *APIHandler) Stream(ctx context.Context, input *struct{}) (*huma.StreamResponse, error) {
	if h.svc.Runtime == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("runtime not available")
	}
	scripts, disconnect, err := h.svc.Runtime.Connect()
	if err != nil {
		return nil, huma.Error503ServiceUnavailable(err.Error())
	}
	log := h.svc.Log.WithValues("stream", StreamPath)

	return humastar.Stream(func(sse humastar.SSE) {
		defer disconnect()
		if err := sse.Signals(map[string]any{"connected": true}); err != nil {
			return
		}
		h.svc.Map.PageLoaded()
		done := sse.Done()
		for {
			select {
			case <-done:
				log.V(1).Info("page disconnected")
				return
			case script, ok := <-scripts:
				if !ok {
					return
				}
				if err := sse.Script(script); err != nil {
					log.V(1).Info("script not delivered", "error", err.Error())
					return
				}
			}
		}
	}), nil
}
