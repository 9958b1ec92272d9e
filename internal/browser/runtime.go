// Package browser is a bridge.Runtime backed by real browser pages. Scripts
// are pushed to every connected page over a server-sent event stream; pages
// answer evaluations by posting a reply carrying the evaluation id.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/joeblew999/plat-map/internal/bridge"
	"github.com/joeblew999/plat-map/internal/style"
)

var (
	// ErrNotConnected is returned when no page is connected.
	ErrNotConnected = errors.New("browser: no page connected")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("browser: runtime closed")
)

// ReplyFunction is the page-side function evaluation wrappers report to.
const ReplyFunction = "window.hostBridge.reply"

// Reply is an evaluation result posted back by a page.
type Reply struct {
	ID      string `json:"id" doc:"Evaluation id the page was given"`
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Message string `json:"message,omitempty" doc:"Error text when success is false"`
}

// Runtime implements bridge.Runtime.
type Runtime struct {
	bus    *bus
	log    logr.Logger
	buffer int
	onPage func(delta int)

	mu      sync.Mutex
	pending map[string]chan bridge.Response
	closed  bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger.
func WithLogger(logger logr.Logger) Option {
	return func(r *Runtime) {
		r.log = logger
	}
}

// WithBuffer sets how many scripts may queue per page before the page
// starts missing them.
func WithBuffer(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.buffer = n
		}
	}
}

// WithPageObserver registers fn to run with +1 and -1 as pages connect and
// disconnect.
func WithPageObserver(fn func(delta int)) Option {
	return func(r *Runtime) {
		r.onPage = fn
	}
}

// New creates a runtime with no connected pages.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		bus:     newBus(),
		log:     logr.Discard(),
		buffer:  64,
		pending: make(map[string]chan bridge.Response),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ready reports whether at least one page is connected.
func (r *Runtime) Ready() bool {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	return !closed && r.bus.len() > 0
}

// Pages returns the number of connected pages.
func (r *Runtime) Pages() int { return r.bus.len() }

// ExecuteScript pushes script to every connected page.
func (r *Runtime) ExecuteScript(script string) error {
	if r.isClosed() {
		return ErrClosed
	}
	if r.bus.publish(script) == 0 {
		return ErrNotConnected
	}
	return nil
}

// EvaluateScript pushes script wrapped so the page reports its value, then
// waits for the first reply or for ctx to end.
func (r *Runtime) EvaluateScript(ctx context.Context, script string) (bridge.Response, error) {
	id := uuid.NewString()
	ch := make(chan bridge.Response, 1)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return bridge.Response{}, ErrClosed
	}
	r.pending[id] = ch
	r.mu.Unlock()
	defer r.forget(id)

	if r.bus.publish(evaluationScript(id, script)) == 0 {
		return bridge.Response{}, ErrNotConnected
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return bridge.Response{}, ErrClosed
		}
		return resp, nil
	case <-ctx.Done():
		return bridge.Response{}, fmt.Errorf("evaluation %s: %w", id, ctx.Err())
	}
}

// Deliver hands a page reply to the waiting evaluation. It reports false
// for unknown or already answered ids.
func (r *Runtime) Deliver(reply Reply) bool {
	r.mu.Lock()
	ch, ok := r.pending[reply.ID]
	if ok {
		delete(r.pending, reply.ID)
	}
	r.mu.Unlock()
	if !ok {
		r.log.V(1).Info("reply for unknown evaluation", "id", reply.ID)
		return false
	}
	ch <- bridge.Response{Success: reply.Success, Result: reply.Result, Message: reply.Message}
	return true
}

// Connect registers a page. Scripts for the page arrive on the returned
// channel until disconnect is called or the runtime closes.
func (r *Runtime) Connect() (scripts <-chan string, disconnect func(), err error) {
	if r.isClosed() {
		return nil, nil, ErrClosed
	}
	ch := r.bus.subscribe(r.buffer)
	r.pageChanged(1)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.bus.unsubscribe(ch)
			r.pageChanged(-1)
		})
	}, nil
}

// Close disconnects every page and fails pending evaluations.
func (r *Runtime) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for id, ch := range r.pending {
		delete(r.pending, id)
		close(ch)
	}
	r.mu.Unlock()
	r.bus.closeAll()
}

func (r *Runtime) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Runtime) forget(id string) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

func (r *Runtime) pageChanged(delta int) {
	r.log.V(1).Info("page connection changed", "delta", delta, "pages", r.bus.len())
	if r.onPage != nil {
		r.onPage(delta)
	}
}

// evaluationScript wraps script so the page posts its value, or the error it
// threw, back under id.
func evaluationScript(id, script string) string {
	q := style.Quote(id)
	return "(function(){var r;try{r={id:" + q + ",success:true,result:(" + script + ")}}" +
		"catch(e){r={id:" + q + ",success:false,message:String(e)}}" + ReplyFunction + "(r)})()"
}
