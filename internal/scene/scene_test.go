package scene

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-map/internal/bridge"
	"github.com/joeblew999/plat-map/internal/bridge/bridgetest"
	"github.com/joeblew999/plat-map/internal/geo"
	"github.com/joeblew999/plat-map/internal/mapview"
	"github.com/joeblew999/plat-map/internal/service"
)

const sceneYAML = `
camera:
  center: {lon: -122.33, lat: 47.6}
  zoom: 11
sources:
  - id: stations
    type: geojson
    file: stations.geojson
  - id: roads
    type: vector
    url: https://tiles.example/roads.json
    maxZoom: 12
layers:
  - id: roads
    source: roads
    sourceLayer: roads
    type: line
    stroke: "#333333"
    width: 2
  - id: stations
    source: stations
    type: point
    fill: "#e4572e"
    radius: 6
  - id: overlay
    type: image
    image: https://example.com/radar.png
    opacity: 0.6
    corners:
      - {lon: 0, lat: 1}
      - {lon: 1, lat: 1}
      - {lon: 1, lat: 0}
      - {lon: 0, lat: 0}
`

const stations = `{"type":"FeatureCollection","features":[
  {"type":"Feature","geometry":{"type":"Point","coordinates":[-122.33,47.6]},"properties":{"name":"Westlake"}},
  {"type":"Feature","geometry":{"type":"Point","coordinates":[-122.32,47.61]},"properties":{"name":"Capitol Hill"}}
]}`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sceneYAML))
	require.NoError(t, err)
	require.Equal(t, geo.NewPosition(-122.33, 47.6), *s.Camera.Center)
	require.Equal(t, 11.0, *s.Camera.Zoom)
	require.Len(t, s.Sources, 2)
	require.Len(t, s.Layers, 3)
	require.Len(t, s.Layers[2].Corners, 4)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"unknown field":  "camera:\n  zoomz: 3\n",
		"bad type":       "sources:\n  - id: a\n    type: raster\n",
		"missing id":     "sources:\n  - type: geojson\n    file: a.geojson\n",
		"bad color":      "sources:\n  - id: a\n    type: geojson\n    file: a.geojson\nlayers:\n  - id: l\n    source: a\n    type: point\n    fill: red\n",
		"unknown source": "layers:\n  - id: l\n    source: nowhere\n    type: line\n",
		"file and query": "sources:\n  - id: a\n    type: geojson\n    file: a.geojson\n    query: select 1\n",
		"path in file":   "sources:\n  - id: a\n    type: geojson\n    file: ../a.geojson\n",
		"duplicate":      "sources:\n  - id: a\n    type: vector\n    url: https://x.example/a\n  - id: a\n    type: vector\n    url: https://x.example/b\n",
		"opacity":        "sources:\n  - id: a\n    type: vector\n    url: https://x.example/a\nlayers:\n  - id: l\n    source: a\n    type: line\n    opacity: 2\n",
		"image corners":  "layers:\n  - id: l\n    type: image\n    image: https://x.example/a.png\n",
		"image source under fill": "sources:\n  - id: ov\n    type: image\n    image: https://x.example/a.png\n    corners:\n" +
			"      - {lon: 0, lat: 1}\n      - {lon: 1, lat: 1}\n      - {lon: 1, lat: 0}\n      - {lon: 0, lat: 0}\n" +
			"layers:\n  - id: l\n    source: ov\n    type: polygon\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	s, err := Parse(nil)
	require.NoError(t, err)
	require.Empty(t, s.Sources)
}

func TestBuildAndApply(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sources"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sources", "stations.geojson"), []byte(stations), 0644))

	s, err := Parse([]byte(sceneYAML))
	require.NoError(t, err)
	plan, err := s.Build(context.Background(), Loader{
		Sources: service.NewSourceService(dir, logr.Discard()),
		Tiles:   service.NewTileService(dir),
	})
	require.NoError(t, err)
	require.Len(t, plan.Sources, 2)
	require.Len(t, plan.Layers, 3)
	require.Equal(t, 2, plan.Sources[0].(*mapview.GeoJSONSource).Len())
	require.Equal(t, 12, plan.Sources[1].(*mapview.VectorSource).MaxZoom)

	rec := bridgetest.New()
	m := mapview.New(bridge.NewChannel(rec), mapview.WithCamera(plan.Camera))
	defer m.Close()
	plan.Apply(m)

	require.Equal(t, 2, m.Sources().Len())
	require.Equal(t, 3, m.Layers().Len())
	require.Equal(t, 11.0, m.Zoom())
	require.Equal(t, 0, rec.Index(`addSource("stations"`))
	require.Less(t, rec.Index(`addSource("roads"`), rec.Index(`"id":"roads"`))
}

func TestBuildMissingFile(t *testing.T) {
	s, err := Parse([]byte("sources:\n  - id: a\n    type: geojson\n    file: a.geojson\n"))
	require.NoError(t, err)
	_, err = s.Build(context.Background(), Loader{Sources: service.NewSourceService(t.TempDir(), logr.Discard())})
	require.Error(t, err)
}
