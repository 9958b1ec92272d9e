// Package humastar bridges Huma streaming responses with the Datastar SSE
// protocol.
//
// Usage:
//
//	func (h *Handler) Events(ctx context.Context, input *struct{}) (*huma.StreamResponse, error) {
//	    return humastar.Stream(func(sse humastar.SSE) {
//	        sse.Script("console.log('hello')")
//	    }), nil
//	}
package humastar

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"
)

// SSE wraps a Datastar SSE generator.
type SSE struct {
	*datastar.ServerSentEventGenerator
	ctx context.Context
}

// NewSSE creates a Datastar SSE helper from a Huma streaming context. The
// context must come from the humago adapter.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r), r.Context()}
}

// Done is closed when the client goes away.
func (s SSE) Done() <-chan struct{} { return s.ctx.Done() }

// Stream returns a Huma StreamResponse that calls fn with a ready SSE helper.
func Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(NewSSE(humaCtx))
		},
	}
}

// Script runs script on the page. The injected element removes itself once
// executed.
func (s SSE) Script(script string) error {
	return s.ExecuteScript(script)
}

// Signals sends arbitrary signals to the UI.
func (s SSE) Signals(signals map[string]any) error {
	return s.MarshalAndPatchSignals(signals)
}
