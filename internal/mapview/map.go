// Package mapview mirrors a tree of host objects (sources, layers and the
// camera) onto a live map renderer.
//
// A Map and everything attached to it belong to one goroutine: the one
// draining the Map's dispatch queue through Run or RunPending. Other
// goroutines reach the Map through Do and Invoke, and the inbound page
// events are posted the same way.
package mapview

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/joeblew999/plat-map/internal/bridge"
	"github.com/joeblew999/plat-map/internal/dispatch"
	"github.com/joeblew999/plat-map/internal/geo"
	"github.com/joeblew999/plat-map/internal/observe"
)

// Map is the controller for one hosted map.
type Map struct {
	ch    *bridge.Channel
	log   logr.Logger
	queue *dispatch.Queue

	ownQueue bool

	accessKey string
	camera    CameraOptions

	sources Collection[Source]
	layers  Collection[Layer]

	sourceUnsubs map[Source]func()
	ids          map[string]int

	pageLoaded bool
	mapReady   bool
	disposed   bool

	readyObs observe.Signal
	viewObs  observe.List[ViewChange]
}

// Option configures a Map.
type Option func(*Map)

// WithLogger sets the logger.
func WithLogger(logger logr.Logger) Option {
	return func(m *Map) {
		m.log = logger
	}
}

// WithAccessKey sets the renderer access key used to initialize the map.
func WithAccessKey(key string) Option {
	return func(m *Map) {
		m.accessKey = key
	}
}

// WithCamera sets the initial camera. Unset fields keep their defaults.
func WithCamera(c CameraOptions) Option {
	return func(m *Map) {
		m.camera.Merge(c)
	}
}

// WithQueue makes the Map share q instead of creating its own. A shared
// queue is not closed by Map.Close.
func WithQueue(q *dispatch.Queue) Option {
	return func(m *Map) {
		m.queue = q
	}
}

// New creates a controller sending commands through ch.
func New(ch *bridge.Channel, opts ...Option) *Map {
	m := &Map{
		ch:           ch,
		log:          logr.Discard(),
		camera:       DefaultCamera(),
		sourceUnsubs: make(map[Source]func()),
		ids:          make(map[string]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.queue == nil {
		m.queue = dispatch.New()
		m.ownQueue = true
	}

	m.sources.canAdd = m.canAddSource
	m.sources.onAdd = m.sourceAdded
	m.sources.onRemove = m.sourceRemoved
	m.layers.canAdd = m.canAddLayer
	m.layers.onAdd = m.layerAdded
	m.layers.onRemove = m.layerRemoved
	return m
}

// Sources returns the source collection.
func (m *Map) Sources() *Collection[Source] { return &m.sources }

// Layers returns the layer collection.
func (m *Map) Layers() *Collection[Layer] { return &m.layers }

// Source finds an attached source by id.
func (m *Map) Source(id string) (Source, bool) {
	for _, s := range m.sources.items {
		if s.ID() == id {
			return s, true
		}
	}
	return nil, false
}

// Layer finds an attached layer by id.
func (m *Map) Layer(id string) (Layer, bool) {
	for _, l := range m.layers.items {
		if l.ID() == id {
			return l, true
		}
	}
	return nil, false
}

// Clear removes every layer, then every source.
func (m *Map) Clear() {
	m.layers.Clear()
	m.sources.Clear()
}

// NextID returns a fresh identifier for an object of the given kind.
func (m *Map) NextID(kind string) string {
	for {
		m.ids[kind]++
		id := fmt.Sprintf("%s_%d", kind, m.ids[kind])
		if _, taken := m.Source(id); taken {
			continue
		}
		if _, taken := m.Layer(id); taken {
			continue
		}
		return id
	}
}

// Loaded reports whether the hosted page has announced itself in the
// current session.
func (m *Map) Loaded() bool { return m.pageLoaded }

// Ready reports whether the renderer finished loading in the current
// session.
func (m *Map) Ready() bool { return m.mapReady }

// AccessKey returns the renderer access key.
func (m *Map) AccessKey() string { return m.accessKey }

// SetAccessKey sets the renderer access key. If the page is already loaded
// and the map is not, the map is initialized now.
func (m *Map) SetAccessKey(key string) {
	if m.accessKey == key {
		return
	}
	m.accessKey = key
	if m.pageLoaded && !m.mapReady {
		m.initialize()
	}
}

// Camera returns a copy of the mirrored camera.
func (m *Map) Camera() CameraOptions { return m.camera.Clone() }

// SetCamera moves the renderer camera. The command is sent whether or not
// the map is ready.
func (m *Map) SetCamera(c CameraOptions, anim *AnimationOptions) {
	m.camera.Merge(c)
	m.exec(setCameraScript(c.ToJSON(anim)))
}

// Center returns the mirrored camera center.
func (m *Map) Center() geo.Position {
	if m.camera.Center == nil {
		return geo.Position{}
	}
	return *m.camera.Center
}

// SetCenter updates the mirrored center and, once the map is ready, the
// renderer's.
func (m *Map) SetCenter(p geo.Position) {
	m.camera.Center = &p
	if m.mapReady {
		m.exec(setCenterScript(p.ToJSON()))
	}
}

// Zoom returns the mirrored zoom level.
func (m *Map) Zoom() float64 {
	if m.camera.Zoom == nil {
		return 0
	}
	return *m.camera.Zoom
}

// MaxZoomLevel bounds SetZoom: valid levels are in [0, MaxZoomLevel).
const MaxZoomLevel = 25

// SetZoom updates the mirrored zoom and, once the map is ready, the
// renderer's. Levels outside [0, MaxZoomLevel) are ignored.
func (m *Map) SetZoom(z float64) {
	if z < 0 || z >= MaxZoomLevel {
		return
	}
	m.camera.Zoom = Float(z)
	if m.mapReady {
		m.exec(setZoomScript(z))
	}
}

// Do posts fn to run on the owning goroutine. It returns false once the
// Map is closed.
func (m *Map) Do(fn func(*Map)) bool {
	return m.queue.Post(func() { fn(m) })
}

// Invoke runs fn on the owning goroutine and waits for it.
func (m *Map) Invoke(ctx context.Context, fn func(*Map)) error {
	return m.queue.Invoke(ctx, func() { fn(m) })
}

// Run makes the calling goroutine the owner and processes posted work until
// ctx is done or the Map is closed.
func (m *Map) Run(ctx context.Context) error { return m.queue.Run(ctx) }

// RunPending processes the work posted so far on the calling goroutine.
func (m *Map) RunPending() int { return m.queue.RunPending() }

// Close disposes the controller. Later commands and inbound events are
// dropped.
func (m *Map) Close() {
	if m.disposed {
		return
	}
	m.disposed = true
	for s, unsub := range m.sourceUnsubs {
		unsub()
		delete(m.sourceUnsubs, s)
	}
	if m.ownQueue {
		m.queue.Close()
	}
}

func (m *Map) exec(script string) {
	if m.disposed {
		return
	}
	m.ch.Exec(script)
}

func (m *Map) initialize() {
	if m.accessKey == "" {
		return
	}
	m.exec(initMapScript(m.accessKey, m.camera.ToJSON(nil)))
}

func (m *Map) canAddSource(s Source) bool {
	if owner := s.Map(); owner != nil && owner != m {
		m.log.Info("source belongs to another map, not added", "source", s.ID())
		return false
	}
	return true
}

func (m *Map) sourceAdded(s Source) {
	s.source().attach(m)
	if g, ok := s.(*GeoJSONSource); ok {
		m.sourceUnsubs[s] = g.Subscribe(func() { m.geoJSONChanged(g) })
	}
	m.createSource(s)
}

func (m *Map) createSource(s Source) {
	def, err := s.Definition()
	if err != nil {
		m.log.Error(err, "render source", "source", s.ID())
		return
	}
	m.exec(addSourceScript(s.ID(), def))
}

func (m *Map) geoJSONChanged(g *GeoJSONSource) {
	script, err := g.dataScript()
	if err != nil {
		m.log.Error(err, "render source data", "source", g.ID())
		return
	}
	m.exec(script)
}

func (m *Map) sourceRemoved(s Source) {
	if unsub, ok := m.sourceUnsubs[s]; ok {
		unsub()
		delete(m.sourceUnsubs, s)
	}
	m.exec(removeSourceScript(s.ID()))
	s.source().detach()
}

func (m *Map) canAddLayer(l Layer) bool {
	if owner := l.Map(); owner != nil && owner != m {
		m.log.Info("layer belongs to another map, not added", "layer", l.ID())
		return false
	}
	if src := l.Source(); src != nil {
		if owner := src.Map(); owner != nil && owner != m {
			m.log.Info("layer source belongs to another map, not added", "layer", l.ID(), "source", src.ID())
			return false
		}
	}
	return true
}

func (m *Map) layerAdded(l Layer) {
	if src := l.Source(); src != nil {
		m.sources.Add(src)
	}
	l.layer().attach(m)
	m.exec(addLayerScript(l.ID(), l.Definition()))
}

func (m *Map) layerRemoved(l Layer) {
	m.exec(removeLayerScript(l.ID()))
	if img, ok := l.(*ImageLayer); ok {
		m.exec(removeSourceScript(img.inlineSourceID()))
	}
	l.layer().detach()
}
