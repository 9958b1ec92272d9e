package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-map/internal/geo"
	"github.com/joeblew999/plat-map/internal/mapview"
	"github.com/joeblew999/plat-map/internal/pmtiles"
	"github.com/joeblew999/plat-map/internal/style"
)

func TestLayerServiceCRUD(t *testing.T) {
	dir := t.TempDir()
	s := NewLayerService(dir, logr.Discard())

	created, err := s.Create(LayerConfig{Name: "Bus Stops!", Source: "stops.geojson", GeomType: GeomPoint})
	require.NoError(t, err)
	require.Equal(t, "bus_stops", created.ID)

	_, err = s.Create(LayerConfig{Name: "Bus Stops"})
	require.ErrorIs(t, err, ErrLayerExists)

	_, err = s.Update("missing", LayerConfig{})
	require.ErrorIs(t, err, ErrLayerNotFound)

	updated, err := s.Update("bus_stops", LayerConfig{Name: "Stops", Source: "stops.geojson", GeomType: GeomSymbol})
	require.NoError(t, err)
	require.Equal(t, "bus_stops", updated.ID)

	// a fresh service reads what the first one wrote
	reloaded := NewLayerService(dir, logr.Discard())
	got, ok := reloaded.Get("bus_stops")
	require.True(t, ok)
	require.Equal(t, GeomSymbol, got.GeomType)
	require.Equal(t, []string{"bus_stops"}, reloaded.IDs())

	require.NoError(t, s.Delete("bus_stops"))
	require.ErrorIs(t, s.Delete("bus_stops"), ErrLayerNotFound)
	require.Empty(t, s.List())
}

func TestLayerServiceCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "layers.json"), []byte("{not json"), 0644))
	s := NewLayerService(dir, logr.Discard())
	require.Empty(t, s.List())
}

func TestBuildLayers(t *testing.T) {
	src := mapview.NewGeoJSONSource("parcels")

	layers, err := BuildLayers(LayerConfig{
		ID:       "parcels",
		GeomType: GeomPolygon,
		Visible:  true,
		Fill:     "#ff0000",
		Stroke:   "#00f",
		Opacity:  0.5,
		RenderRules: []RenderRule{
			{FilterProp: "zone", FilterValue: "park", Fill: "#00ff00"},
		},
	}, src)
	require.NoError(t, err)
	require.Len(t, layers, 2)

	base, ok := layers[0].(*mapview.FillLayer)
	require.True(t, ok)
	require.Equal(t, "parcels", base.ID())
	require.Same(t, src, base.Source().(*mapview.GeoJSONSource))
	require.Equal(t, 0.5, base.Opacity())
	def := base.Definition()
	require.Contains(t, def, `"fill-color":"rgba(255,0,0,1)"`)
	require.Contains(t, def, `"fill-outline-color":"rgba(0,0,255,1)"`)
	require.NotContains(t, def, `"filter"`)

	rule := layers[1].(*mapview.FillLayer)
	require.Equal(t, "parcels-rule-1", rule.ID())
	require.Equal(t, `["==",["get","zone"],"park"]`, rule.Filter())
	require.Contains(t, rule.Definition(), `"fill-color":"rgba(0,255,0,1)"`)
}

func TestBuildLayersKinds(t *testing.T) {
	src := mapview.NewVectorSource("roads", "pmtiles://x")

	tests := []struct {
		geomType string
		check    func(t *testing.T, l mapview.Layer)
	}{
		{GeomLine, func(t *testing.T, l mapview.Layer) {
			line := l.(*mapview.LineLayer)
			require.Equal(t, 3.0, line.Width())
			require.Equal(t, "roads", line.SourceLayer())
		}},
		{GeomPoint, func(t *testing.T, l mapview.Layer) {
			require.Equal(t, 6.0, l.(*mapview.BubbleLayer).Radius())
		}},
		{GeomSymbol, func(t *testing.T, l mapview.Layer) {
			require.Equal(t, "['get','name']", l.(*mapview.SymbolLayer).Text())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.geomType, func(t *testing.T) {
			layers, err := BuildLayers(LayerConfig{
				ID: "x", GeomType: tt.geomType, SourceLayer: "roads",
				Width: 3, Radius: 6, Label: "['get','name']", Stroke: "#123456",
			}, src)
			require.NoError(t, err)
			require.Len(t, layers, 1)
			require.Equal(t, style.Hidden, layers[0].Visibility())
			tt.check(t, layers[0])
		})
	}

	_, err := BuildLayers(LayerConfig{ID: "x", GeomType: "raster"}, src)
	require.Error(t, err)
	_, err = BuildLayers(LayerConfig{ID: "x", GeomType: GeomLine, Stroke: "blue"}, src)
	require.Error(t, err)
}

const stations = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.33, 47.6]}, "properties": {"name": "Westlake"}},
    {"type": "Feature", "geometry": {"type": "MultiPoint", "coordinates": [[1, 2], [3, 4]]}, "properties": {}},
    {"type": "Feature", "geometry": {"type": "GeometryCollection", "geometries": []}, "properties": {}}
  ]
}`

func TestSourceServiceLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sources"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sources", "stations.geojson"), []byte(stations), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sources", "notes.txt"), []byte("x"), 0644))

	s := NewSourceService(dir, logr.Discard())
	files, err := s.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "stations.geojson", files[0].Name)

	features, err := s.Load("stations.geojson")
	require.NoError(t, err)
	require.Len(t, features, 3)
	require.Equal(t, "Westlake", features[0].Properties()["name"])
	require.Equal(t, geo.NewPosition(3, 4), features[2].(*geo.Point).Position())

	src, err := s.GeoJSONSource("stations", "stations.geojson")
	require.NoError(t, err)
	require.Equal(t, 3, src.Len())

	_, err = s.Load("../layers.json")
	require.ErrorIs(t, err, ErrBadFileName)
	_, err = s.Load("notes.txt")
	require.ErrorIs(t, err, ErrBadFileName)
}

func TestSourceServiceParse(t *testing.T) {
	s := NewSourceService(t.TempDir(), logr.Discard())

	gs, err := s.Parse([]byte(`{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":null}`))
	require.NoError(t, err)
	require.Len(t, gs, 1)
	require.Equal(t, geo.KindLineString, gs[0].Kind())

	gs, err = s.Parse([]byte(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`))
	require.NoError(t, err)
	require.Len(t, gs, 1)
	require.Equal(t, geo.KindPolygon, gs[0].Kind())

	_, err = s.Parse([]byte(`[1,2,3]`))
	require.Error(t, err)
}

func TestTileServiceVectorSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tiles"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiles", "roads.pmtiles"), []byte("PMTiles"), 0644))

	s := NewTileService(dir)
	files, err := s.List()
	require.NoError(t, err)
	require.Equal(t, []TileFile{{Name: "roads.pmtiles", Size: "7 B"}}, files)

	src, err := s.VectorSource("roads", "roads.pmtiles", "http://localhost:8086/")
	require.NoError(t, err)
	require.Equal(t, "pmtiles://http://localhost:8086/tiles/roads.pmtiles", src.URL)

	require.Equal(t, 14, src.MaxZoom)

	_, err = s.VectorSource("x", "missing.pmtiles", "http://h")
	require.Error(t, err)
	_, err = s.VectorSource("x", "roads.geojson", "http://h")
	require.ErrorIs(t, err, ErrBadFileName)
}

func TestTileServiceReadsHeaderZooms(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tiles"), 0755))
	header := pmtiles.SerializeHeader(pmtiles.HeaderV3{TileType: pmtiles.Mvt, MinZoom: 3, MaxZoom: 11})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiles", "parcels.pmtiles"), header, 0644))

	s := NewTileService(dir)
	files, err := s.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, 3, files[0].MinZoom)
	require.Equal(t, 11, files[0].MaxZoom)

	src, err := s.VectorSource("parcels", "parcels.pmtiles", "http://h")
	require.NoError(t, err)
	require.Equal(t, 3, src.MinZoom)
	require.Equal(t, 11, src.MaxZoom)
}

func TestTileServiceRefusesRasterArchives(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tiles"), 0755))
	header := pmtiles.SerializeHeader(pmtiles.HeaderV3{TileType: pmtiles.Png, MinZoom: 2, MaxZoom: 12})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiles", "ortho.pmtiles"), header, 0644))

	s := NewTileService(dir)
	_, err := s.VectorSource("ortho", "ortho.pmtiles", "http://h")
	require.ErrorIs(t, err, ErrRasterTiles)
	require.ErrorContains(t, err, "png")

	files, err := s.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "png", files[0].TileType)
}

func TestTileServiceUsesHeaderBounds(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tiles"), 0755))
	header := pmtiles.SerializeHeader(pmtiles.HeaderV3{
		TileType: pmtiles.Mvt, MinZoom: 0, MaxZoom: 14,
		MinLonE7: 130_000_000, MinLatE7: 520_000_000,
		MaxLonE7: 140_000_000, MaxLatE7: 530_000_000,
		CenterLonE7: 134_000_000, CenterLatE7: 525_000_000,
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiles", "berlin.pmtiles"), header, 0644))

	s := NewTileService(dir)
	src, err := s.VectorSource("berlin", "berlin.pmtiles", "http://h/")
	require.NoError(t, err)
	def, err := src.Definition()
	require.NoError(t, err)
	require.Equal(t, `{"type":"vector","url":"pmtiles://http://h/tiles/berlin.pmtiles","minzoom":0,"maxzoom":14,"bounds":[13,52,14,53]}`, def)

	files, err := s.List()
	require.NoError(t, err)
	require.Equal(t, "mvt", files[0].TileType)
	require.NotNil(t, files[0].Center)
	require.Equal(t, geo.NewPosition(13.4, 52.5), *files[0].Center)
}

func TestBuildLayersRefusesImageSource(t *testing.T) {
	corners := geo.NewPath(geo.NewPosition(0, 1), geo.NewPosition(1, 1), geo.NewPosition(1, 0), geo.NewPosition(0, 0))
	src := mapview.NewImageSource("overlay", "https://x.example/a.png", corners)
	_, err := BuildLayers(LayerConfig{ID: "l", GeomType: GeomPolygon}, src)
	require.ErrorIs(t, err, ErrNotDrawable)
}

func TestSourceID(t *testing.T) {
	require.Equal(t, "bus_stops", SourceID("Bus Stops.geojson"))
	require.Equal(t, "roads", SourceID("roads.pmtiles"))
}

func TestFormatSize(t *testing.T) {
	require.Equal(t, "512 B", formatSize(512))
	require.Equal(t, "1.5 KB", formatSize(1536))
	require.Equal(t, "2.0 MB", formatSize(2<<20))
}
