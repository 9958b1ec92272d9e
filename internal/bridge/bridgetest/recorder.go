// Package bridgetest provides an in-memory bridge.Runtime for tests.
package bridgetest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/joeblew999/plat-map/internal/bridge"
)

// ErrEvaluate is returned by EvaluateScript when FailEvaluate is set.
var ErrEvaluate = errors.New("bridgetest: evaluation failed")

// Recorder records every executed script and answers evaluations from a
// programmable reply function. The zero value is not ready; use New.
type Recorder struct {
	mu           sync.Mutex
	ready        bool
	scripts      []string
	evaluated    []string
	reply        func(script string) bridge.Response
	failEvaluate bool
}

// New returns a ready recorder whose evaluations succeed with a nil result.
func New() *Recorder {
	return &Recorder{ready: true}
}

// SetReady toggles runtime availability.
func (r *Recorder) SetReady(ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = ready
}

// Reply sets the function answering evaluations.
func (r *Recorder) Reply(fn func(script string) bridge.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reply = fn
}

// FailEvaluate makes EvaluateScript return ErrEvaluate.
func (r *Recorder) FailEvaluate(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failEvaluate = fail
}

func (r *Recorder) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

func (r *Recorder) ExecuteScript(script string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts = append(r.scripts, script)
	return nil
}

func (r *Recorder) EvaluateScript(ctx context.Context, script string) (bridge.Response, error) {
	r.mu.Lock()
	r.evaluated = append(r.evaluated, script)
	reply, fail := r.reply, r.failEvaluate
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return bridge.Response{}, err
	}
	if fail {
		return bridge.Response{}, ErrEvaluate
	}
	if reply == nil {
		return bridge.Response{Success: true}, nil
	}
	return reply(script), nil
}

// Scripts returns the executed scripts in submission order.
func (r *Recorder) Scripts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.scripts...)
}

// Evaluated returns the evaluated scripts in submission order.
func (r *Recorder) Evaluated() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.evaluated...)
}

// Count returns the number of executed scripts.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scripts)
}

// Matching returns the executed scripts containing substr.
func (r *Recorder) Matching(substr string) []string {
	var out []string
	for _, s := range r.Scripts() {
		if strings.Contains(s, substr) {
			out = append(out, s)
		}
	}
	return out
}

// Index returns the position of the first executed script containing
// substr, or -1.
func (r *Recorder) Index(substr string) int {
	for i, s := range r.Scripts() {
		if strings.Contains(s, substr) {
			return i
		}
	}
	return -1
}

// Reset forgets recorded scripts.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts = nil
	r.evaluated = nil
}
