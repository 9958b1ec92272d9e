package mapview

// ViewChange is delivered to OnViewChange subscribers after the page reports
// a camera movement.
type ViewChange struct {
	Camera CameraOptions
	// Raw is the payload as the page sent it.
	Raw map[string]any
}

// PageLoaded records that the hosted page finished loading. It may be
// called from any goroutine. Each call starts a new renderer session.
func (m *Map) PageLoaded() bool {
	return m.queue.Post(m.handlePageLoaded)
}

// MapLoaded records that the renderer finished loading. payload is the
// initial renderer camera and may be nil. It may be called from any
// goroutine.
func (m *Map) MapLoaded(payload map[string]any) bool {
	return m.queue.Post(func() { m.handleMapLoaded(payload) })
}

// ViewChanged records a camera movement reported by the page. It may be
// called from any goroutine.
func (m *Map) ViewChanged(payload map[string]any) bool {
	return m.queue.Post(func() { m.handleViewChanged(payload) })
}

// OnMapReady registers fn to run each time the renderer becomes ready.
func (m *Map) OnMapReady(fn func()) (unsubscribe func()) {
	return m.readyObs.Subscribe(fn)
}

// OnViewChange registers fn to run after each reported camera movement.
func (m *Map) OnViewChange(fn func(ViewChange)) (unsubscribe func()) {
	return m.viewObs.Subscribe(fn)
}

func (m *Map) handlePageLoaded() {
	if m.disposed {
		return
	}
	m.pageLoaded = true
	m.mapReady = false
	m.log.V(1).Info("page loaded")
	m.initialize()
}

func (m *Map) handleMapLoaded(payload map[string]any) {
	if m.disposed || m.mapReady {
		return
	}
	m.mapReady = true
	if len(payload) > 0 {
		if c, err := ParseCamera(payload); err != nil {
			m.log.Error(err, "initial camera")
		} else {
			m.camera.Merge(c)
		}
	}
	m.log.V(1).Info("map ready", "sources", m.sources.Len(), "layers", m.layers.Len())

	m.exec(cameraListenerScript())
	for _, s := range m.sources.items {
		m.createSource(s)
	}
	for _, l := range m.layers.items {
		m.exec(addLayerScript(l.ID(), l.Definition()))
	}
	m.readyObs.Notify()
}

func (m *Map) handleViewChanged(payload map[string]any) {
	if m.disposed {
		return
	}
	c, err := ParseCamera(payload)
	if err != nil {
		m.log.Error(err, "view changed")
		return
	}
	m.camera = c
	m.viewObs.Notify(ViewChange{Camera: c.Clone(), Raw: payload})
}
