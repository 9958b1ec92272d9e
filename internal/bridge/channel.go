// Package bridge is the command channel between host code and the script
// runtime hosting the map renderer.
//
// Two command shapes exist. Exec is fire-and-forget: it never blocks on the
// runtime and never reports failure to the caller. Eval is request/response:
// it waits for the runtime and degrades to a caller supplied default instead
// of returning an error.
package bridge

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-viper/mapstructure/v2"
)

// Response is the outcome of a script evaluation as reported by the runtime.
type Response struct {
	Success bool
	Result  any
	Message string
}

// Runtime is the embedded script environment.
type Runtime interface {
	// Ready reports whether scripts can currently be submitted.
	Ready() bool
	// ExecuteScript submits script without waiting for it to run.
	ExecuteScript(script string) error
	// EvaluateScript runs script and waits for its completion.
	EvaluateScript(ctx context.Context, script string) (Response, error)
}

// Observer receives one call per command outcome. It is used for metrics.
type Observer interface {
	Executed(skipped bool)
	Evaluated(outcome string)
}

// Eval outcomes passed to Observer.Evaluated.
const (
	OutcomeOK          = "ok"
	OutcomeFault       = "fault"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Channel submits commands to a Runtime.
type Channel struct {
	rt       Runtime
	log      logr.Logger
	observer Observer
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the logger used for swallowed failures.
func WithLogger(logger logr.Logger) Option {
	return func(c *Channel) {
		c.log = logger
	}
}

// WithObserver sets an observer notified of every command outcome.
func WithObserver(o Observer) Option {
	return func(c *Channel) {
		c.observer = o
	}
}

// NewChannel creates a channel over rt.
func NewChannel(rt Runtime, opts ...Option) *Channel {
	c := &Channel{rt: rt, log: logr.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Exec submits script and returns immediately. When the runtime is not ready
// the command is dropped, not queued.
func (c *Channel) Exec(script string) {
	if c.rt == nil || !c.rt.Ready() {
		c.log.V(1).Info("runtime not ready, command skipped", "script", script)
		c.executed(true)
		return
	}
	if err := c.rt.ExecuteScript(script); err != nil {
		c.log.Error(err, "execute script", "script", script)
	}
	c.executed(false)
}

// Eval runs script and returns its result. It returns def when the runtime is
// unavailable or the evaluation itself fails, and the fault message when the
// script ran but reported failure. A successful evaluation yielding nothing
// returns the string "null".
func (c *Channel) Eval(ctx context.Context, script string, def any) any {
	if c.rt == nil || !c.rt.Ready() {
		c.log.V(1).Info("runtime not ready, returning default", "script", script)
		c.evaluated(OutcomeUnavailable)
		return def
	}
	resp, err := c.rt.EvaluateScript(ctx, script)
	if err != nil {
		c.log.Error(err, "evaluate script", "script", script)
		c.evaluated(OutcomeError)
		return def
	}
	if !resp.Success {
		c.log.Info("script fault", "script", script, "message", resp.Message)
		c.evaluated(OutcomeFault)
		return resp.Message
	}
	c.evaluated(OutcomeOK)
	if resp.Result == nil {
		return "null"
	}
	return resp.Result
}

// Decode copies a map-shaped evaluation result into out, matching keys to
// `mapstructure` tags. Results that are not maps, or that leave a field of
// out unset, fail to decode.
func Decode(result any, out any) error {
	if _, ok := result.(map[string]any); !ok {
		return fmt.Errorf("decode result: expected an object, got %T", result)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnset:       true,
	})
	if err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	if err := dec.Decode(result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

func (c *Channel) executed(skipped bool) {
	if c.observer != nil {
		c.observer.Executed(skipped)
	}
}

func (c *Channel) evaluated(outcome string) {
	if c.observer != nil {
		c.observer.Evaluated(outcome)
	}
}
