package mapview

import (
	"context"
	"testing"
	"time"

	"github.com/joeblew999/plat-map/internal/bridge"
	"github.com/joeblew999/plat-map/internal/bridge/bridgetest"
	"github.com/joeblew999/plat-map/internal/geo"
	"github.com/joeblew999/plat-map/internal/style"
	"github.com/stretchr/testify/require"
)

func newTestMap(t *testing.T, opts ...Option) (*Map, *bridgetest.Recorder) {
	t.Helper()
	rec := bridgetest.New()
	m := New(bridge.NewChannel(rec), opts...)
	t.Cleanup(m.Close)
	return m, rec
}

// readyMap returns a map that has gone through page and map load.
func readyMap(t *testing.T, opts ...Option) (*Map, *bridgetest.Recorder) {
	t.Helper()
	m, rec := newTestMap(t, opts...)
	m.PageLoaded()
	m.MapLoaded(nil)
	m.RunPending()
	require.True(t, m.Ready())
	rec.Reset()
	return m, rec
}

func TestAddSourceEmitsGuardedCreate(t *testing.T) {
	m, rec := newTestMap(t)
	src := NewGeoJSONSource("s")

	require.Equal(t, 1, m.Sources().Add(src))
	require.Equal(t, []string{
		`if(!map.map.getSource("s")){map.map.addSource("s",{"type":"geojson","data":{"type":"FeatureCollection","features":[]}})}`,
	}, rec.Scripts())
	require.Same(t, m, src.Map())

	// adding again is a no-op
	require.Equal(t, 0, m.Sources().Add(src))
	require.Equal(t, 1, rec.Count())
	require.Equal(t, 1, m.Sources().Len())
}

func TestRemoveSource(t *testing.T) {
	m, rec := newTestMap(t)
	src := NewGeoJSONSource("s")

	require.Equal(t, 0, m.Sources().Remove(src))
	require.Zero(t, rec.Count())

	m.Sources().Add(src)
	rec.Reset()
	require.Equal(t, 1, m.Sources().Remove(src))
	require.Equal(t, 0, m.Sources().Remove(src))
	require.Equal(t, []string{
		`if(map.map.getSource("s")){map.map.removeSource("s")}`,
	}, rec.Scripts())
	require.Nil(t, src.Map())

	// a detached source no longer reaches the renderer
	src.Add(geo.NewPoint(geo.NewPosition(1, 2)))
	require.Equal(t, 1, rec.Count())
}

func TestBulkAddEmitsOneSetData(t *testing.T) {
	m, rec := newTestMap(t)
	src := NewGeoJSONSource("pins")
	m.Sources().Add(src)
	rec.Reset()

	a := geo.NewPoint(geo.NewPosition(1, 1))
	b := geo.NewPoint(geo.NewPosition(2, 2))
	c := geo.NewPoint(geo.NewPosition(3, 3))
	src.Add(a, b, c)

	scripts := rec.Matching(".setData(")
	require.Len(t, scripts, 1)
	require.Equal(t, 1, rec.Count())
	require.Contains(t, scripts[0], `map.map.getSource("pins").setData({"type":"FeatureCollection","features":[`)
	require.Equal(t, 3, src.Len())

	// a duplicate-only add changes nothing
	src.Add(a)
	require.Equal(t, 1, rec.Count())

	src.Remove(a, b)
	require.Equal(t, 2, rec.Count())

	src.Clear()
	require.Equal(t, 3, rec.Count())
	src.Clear()
	require.Equal(t, 3, rec.Count())
}

func TestFeatureChangeResendsData(t *testing.T) {
	m, rec := newTestMap(t)
	p := geo.NewPoint(geo.NewPosition(1, 1))
	src := NewGeoJSONSource("s", p)
	m.Sources().Add(src)
	rec.Reset()

	p.SetPosition(geo.NewPosition(5, 6))
	require.NoError(t, p.SetProperty("name", "pin"))
	require.Len(t, rec.Matching(".setData("), 2)
	require.Contains(t, rec.Scripts()[1], `"coordinates":[5,6]`)

	// removed features are no longer observed
	src.Remove(p)
	rec.Reset()
	p.SetPosition(geo.NewPosition(7, 8))
	require.Zero(t, rec.Count())
}

func TestLayerAddsItsSourceFirst(t *testing.T) {
	m, rec := newTestMap(t)
	src := NewGeoJSONSource("s")
	layer := NewLineLayer("l", src)

	require.Equal(t, 1, m.Layers().Add(layer))
	require.True(t, m.Sources().Contains(src))
	require.Equal(t, 2, rec.Count())
	require.Equal(t, 0, rec.Index(`map.map.addSource("s"`))
	require.Equal(t, 1, rec.Index(`map.map.addLayer({"id":"l","type":"line","source":"s"`))

	// a second layer on the same source does not re-add it
	m.Layers().Add(NewSymbolLayer("sym", src))
	require.Len(t, rec.Matching("addSource"), 1)
	require.Equal(t, 1, m.Sources().Len())
}

func TestGeneratedIDs(t *testing.T) {
	m, _ := newTestMap(t)
	src := NewGeoJSONSource("")
	layer := NewBubbleLayer("", src)
	other := NewFillLayer("", src)
	require.Empty(t, src.ID())

	m.Layers().Add(layer, other)
	require.Equal(t, "source_1", src.ID())
	require.Equal(t, "layer_1", layer.ID())
	require.Equal(t, "layer_2", other.ID())

	// a supplied id colliding with the counter is skipped
	m.Sources().Add(NewGeoJSONSource("source_2"))
	fresh := NewGeoJSONSource("")
	m.Sources().Add(fresh)
	require.Equal(t, "source_3", fresh.ID())
}

func TestObjectsBelongToOneMap(t *testing.T) {
	m1, _ := newTestMap(t)
	m2, rec2 := newTestMap(t)
	src := NewGeoJSONSource("s")
	m1.Sources().Add(src)

	require.Equal(t, 0, m2.Sources().Add(src))
	require.Equal(t, 0, m2.Layers().Add(NewLineLayer("l", src)))
	require.Zero(t, rec2.Count())
	require.Same(t, m1, src.Map())
}

func TestClearRemovesLayersThenSources(t *testing.T) {
	m, rec := newTestMap(t)
	src := NewGeoJSONSource("s")
	m.Layers().Add(NewLineLayer("a", src), NewFillLayer("b", src))
	rec.Reset()

	m.Clear()
	require.Equal(t, []string{
		`if(map.map.getLayer("b")){map.map.removeLayer("b")}`,
		`if(map.map.getLayer("a")){map.map.removeLayer("a")}`,
		`if(map.map.getSource("s")){map.map.removeSource("s")}`,
	}, rec.Scripts())
	require.Zero(t, m.Layers().Len())
	require.Zero(t, m.Sources().Len())
}

func TestSetCamera(t *testing.T) {
	m, rec := newTestMap(t)
	center := geo.NewPosition(10, 20)

	// sent even before the map is ready
	m.SetCamera(CameraOptions{Center: &center, Zoom: Float(5)}, &AnimationOptions{Type: style.Fly, Duration: 2000 * time.Millisecond})
	require.Equal(t, []string{
		"map.setCamera({'type':'fly','duration':2000,'center':[10,20],'zoom':5});",
	}, rec.Scripts())
	require.Equal(t, center, m.Center())
	require.Equal(t, 5.0, m.Zoom())
	require.Equal(t, 22.0, *m.Camera().MaxZoom)
}

func TestCenterAndZoomMirrorBeforeReady(t *testing.T) {
	m, rec := newTestMap(t)

	m.SetCenter(geo.NewPosition(1, 2))
	m.SetZoom(3)
	require.Zero(t, rec.Count())
	require.Equal(t, geo.NewPosition(1, 2), m.Center())
	require.Equal(t, 3.0, m.Zoom())

	m.PageLoaded()
	m.MapLoaded(nil)
	m.RunPending()
	rec.Reset()

	m.SetCenter(geo.NewPosition(-122.11, 47.7))
	m.SetZoom(8)
	require.Equal(t, []string{
		"map.map.setCenter([-122.11,47.7]);",
		"map.map.setZoom(8);",
	}, rec.Scripts())
}

func TestSetZoomIgnoresOutOfRange(t *testing.T) {
	m, rec := readyMap(t)
	m.SetZoom(4)
	rec.Reset()

	for _, z := range []float64{-0.5, 25, 30} {
		m.SetZoom(z)
	}
	require.Zero(t, rec.Count())
	require.Equal(t, 4.0, m.Zoom())

	m.SetZoom(0)
	m.SetZoom(24.9)
	require.Equal(t, 2, rec.Count())
}

func TestPageLoadedInitializesWithKey(t *testing.T) {
	m, rec := newTestMap(t, WithAccessKey("k1"))

	require.True(t, m.PageLoaded())
	require.False(t, m.Loaded(), "state changes only when the queue drains")
	require.Zero(t, rec.Count())

	m.RunPending()
	require.True(t, m.Loaded())
	require.Equal(t, []string{
		`GetMap("k1",{'center':[0,0],'zoom':1,'minZoom':0,'maxZoom':22,'pitch':0,'bearing':0})`,
	}, rec.Scripts())
}

func TestAccessKeyAfterPageLoad(t *testing.T) {
	m, rec := newTestMap(t)
	m.PageLoaded()
	m.RunPending()
	require.Zero(t, rec.Count())

	m.SetAccessKey("k2")
	require.Len(t, rec.Matching(`GetMap("k2"`), 1)

	m.SetAccessKey("k2")
	require.Equal(t, 1, rec.Count())

	m.MapLoaded(nil)
	m.RunPending()
	rec.Reset()
	m.SetAccessKey("k3")
	require.Zero(t, rec.Count())
}

func TestMapLoadedReplaysSourcesThenLayers(t *testing.T) {
	m, rec := newTestMap(t)
	src := NewGeoJSONSource("s")
	layer := NewSymbolLayer("sym", src)
	vec := NewVectorSource("v", "https://tiles.example/v.json")
	m.Layers().Add(layer)
	m.Sources().Add(vec)

	ready := 0
	m.OnMapReady(func() { ready++ })

	m.PageLoaded()
	m.RunPending()
	rec.Reset()

	m.MapLoaded(map[string]any{"center": []any{5.0, 6.0}, "zoom": 2.0})
	m.MapLoaded(nil)
	m.RunPending()

	scripts := rec.Scripts()
	require.Len(t, scripts, 4)
	require.Contains(t, scripts[0], "map.map.on('move'")
	require.Contains(t, scripts[0], "window.hostBridge.viewChanged(map.getCamera())")
	require.Contains(t, scripts[1], `map.map.addSource("s"`)
	require.Contains(t, scripts[2], `map.map.addSource("v"`)
	require.Contains(t, scripts[3], `map.map.addLayer({"id":"sym"`)
	require.Equal(t, 1, ready)
	require.Equal(t, geo.NewPosition(5, 6), m.Center())
	require.Equal(t, 2.0, m.Zoom())

	// a reloaded page is a new session
	m.PageLoaded()
	m.RunPending()
	require.False(t, m.Ready())
	m.MapLoaded(nil)
	m.RunPending()
	require.True(t, m.Ready())
	require.Equal(t, 2, ready)
}

func TestCameraListenerGuardedAcrossSessions(t *testing.T) {
	m, rec := newTestMap(t)
	const listener = `if(!map.map.__hostMove){map.map.__hostMove=function(){window.hostBridge.viewChanged(map.getCamera())};` +
		`map.map.on('move',map.map.__hostMove)}window.hostBridge.viewChanged(map.getCamera());`

	for range 3 {
		m.PageLoaded()
		m.MapLoaded(nil)
		m.RunPending()
	}

	// every session re-sends the listener, but only behind the guard, so a
	// page that answers several sessions keeps a single move handler
	sent := rec.Matching(".on('move'")
	require.Len(t, sent, 3)
	for _, s := range sent {
		require.Equal(t, listener, s)
	}
}

func TestViewChanged(t *testing.T) {
	m, _ := readyMap(t)

	var got []ViewChange
	unsub := m.OnViewChange(func(v ViewChange) { got = append(got, v) })

	payload := map[string]any{
		"center":  []any{-122.33, 47.61},
		"zoom":    11.0,
		"minZoom": 1.0,
		"maxZoom": 20.0,
		"pitch":   0.0,
		"bearing": 45.0,
	}
	m.ViewChanged(payload)
	require.Empty(t, got)
	m.RunPending()

	require.Len(t, got, 1)
	require.Equal(t, payload, got[0].Raw)
	require.Equal(t, -122.33, m.Center().Lon)
	require.Equal(t, 47.61, m.Center().Lat)
	require.Equal(t, 11.0, m.Zoom())
	require.Equal(t, 45.0, *m.Camera().Bearing)

	// malformed payloads leave the camera alone
	m.ViewChanged(map[string]any{"center": "nowhere"})
	m.RunPending()
	require.Len(t, got, 1)
	require.Equal(t, 11.0, m.Zoom())

	unsub()
	m.ViewChanged(payload)
	m.RunPending()
	require.Len(t, got, 1)
}

func TestInboundFromOtherGoroutines(t *testing.T) {
	m, rec := newTestMap(t, WithAccessKey("k"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.True(t, m.PageLoaded())
	require.True(t, m.MapLoaded(nil))

	var ready bool
	require.NoError(t, m.Invoke(ctx, func(m *Map) { ready = m.Ready() }))
	require.True(t, ready)
	require.Len(t, rec.Matching("GetMap("), 1)

	cancel()
	<-done
}

func TestCloseDropsCommandsAndEvents(t *testing.T) {
	m, rec := readyMap(t)
	src := NewGeoJSONSource("s")
	m.Sources().Add(src)
	rec.Reset()

	m.Close()
	src.Add(geo.NewPoint(geo.NewPosition(1, 1)))
	m.SetCamera(CameraOptions{Zoom: Float(3)}, nil)
	require.Zero(t, rec.Count())
	require.False(t, m.PageLoaded())
	require.False(t, m.Do(func(*Map) {}))

	_, ok := m.PositionToPixel(context.Background(), geo.NewPosition(0, 0))
	require.False(t, ok)
}

func TestRuntimeNotReady(t *testing.T) {
	m, rec := newTestMap(t)
	rec.SetReady(false)

	m.Sources().Add(NewGeoJSONSource("s"))
	require.Zero(t, rec.Count())
	require.Equal(t, 1, m.Sources().Len())

	_, ok := m.PositionToPixel(context.Background(), geo.NewPosition(1, 2))
	require.False(t, ok)
	require.Empty(t, rec.Evaluated())
}

func TestPositionToPixel(t *testing.T) {
	m, rec := readyMap(t)
	rec.Reply(func(script string) bridge.Response {
		return bridge.Response{Success: true, Result: map[string]any{"x": 120.5, "y": 64}}
	})

	px, ok := m.PositionToPixel(context.Background(), geo.NewPosition(-122.11, 47.7))
	require.True(t, ok)
	require.Equal(t, Pixel{X: 120.5, Y: 64}, px)
	require.Equal(t, []string{"map.map.project([-122.11,47.7])"}, rec.Evaluated())

	rec.Reply(func(string) bridge.Response {
		return bridge.Response{Success: false, Message: "TypeError: map.map is undefined"}
	})
	_, ok = m.PositionToPixel(context.Background(), geo.NewPosition(0, 0))
	require.False(t, ok)

	rec.Reply(func(string) bridge.Response {
		return bridge.Response{Success: true, Result: map[string]any{"x": 1}}
	})
	_, ok = m.PositionToPixel(context.Background(), geo.NewPosition(0, 0))
	require.False(t, ok)

	rec.FailEvaluate(true)
	_, ok = m.PositionToPixel(context.Background(), geo.NewPosition(0, 0))
	require.False(t, ok)
}

func TestPixelToPosition(t *testing.T) {
	m, rec := readyMap(t)
	rec.Reply(func(script string) bridge.Response {
		return bridge.Response{Success: true, Result: map[string]any{"lng": 13.4, "lat": 52.52}}
	})

	pos, ok := m.PixelToPosition(context.Background(), Pixel{X: 10, Y: 20.5})
	require.True(t, ok)
	require.Equal(t, geo.NewPosition(13.4, 52.52), pos)
	require.Equal(t, []string{"map.map.unproject([10,20.5])"}, rec.Evaluated())

	rec.Reply(nil)
	_, ok = m.PixelToPosition(context.Background(), Pixel{})
	require.False(t, ok)
}

func TestProjectLeavesOwnerFree(t *testing.T) {
	m, rec := readyMap(t)
	release := make(chan struct{})
	rec.Reply(func(string) bridge.Response {
		<-release
		return bridge.Response{Success: true, Result: map[string]any{"x": 3, "y": 4}}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	type result struct {
		px  Pixel
		ok  bool
		err error
	}
	done := make(chan result, 1)
	go func() {
		px, ok, err := m.Project(ctx, geo.NewPosition(1, 2))
		done <- result{px, ok, err}
	}()
	require.Eventually(t, func() bool { return len(rec.Evaluated()) == 1 }, time.Second, time.Millisecond)

	// the owner keeps serving while the evaluation is outstanding
	require.NoError(t, m.Invoke(ctx, func(m *Map) { m.SetZoom(7) }))
	require.Contains(t, rec.Scripts(), "map.map.setZoom(7);")

	close(release)
	r := <-done
	require.NoError(t, r.err)
	require.True(t, r.ok)
	require.Equal(t, Pixel{X: 3, Y: 4}, r.px)
}

func TestProjectAfterClose(t *testing.T) {
	m, _ := readyMap(t)
	m.Close()
	_, ok, err := m.Project(context.Background(), geo.NewPosition(0, 0))
	require.Error(t, err)
	require.False(t, ok)
	_, ok, err = m.Unproject(context.Background(), Pixel{})
	require.Error(t, err)
	require.False(t, ok)
}
