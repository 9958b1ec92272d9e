package mapview

import (
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/joeblew999/plat-map/internal/geo"
	"github.com/joeblew999/plat-map/internal/style"
	"github.com/stretchr/testify/require"
)

func TestLayerDefinitions(t *testing.T) {
	src := NewGeoJSONSource("s")

	tests := []struct {
		name  string
		layer Layer
		want  string
	}{
		{
			name:  "symbol",
			layer: NewSymbolLayer("sym", src),
			want: `{"id":"sym","type":"symbol","source":"s",` +
				`"layout":{"visibility":"visible","icon-image":"pin-darkblue","icon-anchor":"bottom"},"paint":{}}`,
		},
		{
			name:  "line",
			layer: NewLineLayer("ln", src),
			want: `{"id":"ln","type":"line","source":"s",` +
				`"layout":{"visibility":"visible","line-cap":"butt","line-join":"miter"},` +
				`"paint":{"line-color":"rgba(255,0,0,1)","line-width":5,"line-opacity":1}}`,
		},
		{
			name:  "fill",
			layer: NewFillLayer("fl", src),
			want: `{"id":"fl","type":"fill","source":"s",` +
				`"layout":{"visibility":"visible"},"paint":{"fill-color":"rgba(51,136,255,1)","fill-opacity":1}}`,
		},
		{
			name:  "bubble",
			layer: NewBubbleLayer("bb", src),
			want: `{"id":"bb","type":"circle","source":"s","layout":{"visibility":"visible"},` +
				`"paint":{"circle-color":"rgba(26,115,170,1)","circle-radius":8,"circle-opacity":1,` +
				`"circle-stroke-color":"rgba(255,255,255,1)","circle-stroke-width":2}}`,
		},
		{
			name: "image",
			layer: NewImageLayer("img", "https://example.com/overlay.png", geo.NewPath(
				geo.NewPosition(0, 1), geo.NewPosition(1, 1), geo.NewPosition(1, 0), geo.NewPosition(0, 0),
			)),
			want: `{"id":"img","type":"raster",` +
				`"source":{"type":"image","url":"https://example.com/overlay.png","coordinates":[[0,1],[1,1],[1,0],[0,0]]},` +
				`"layout":{"visibility":"visible"},"paint":{"raster-fade-duration":300,"raster-opacity":1}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.layer.Definition())
		})
	}
}

func TestSymbolOptionalProperties(t *testing.T) {
	l := NewSymbolLayer("sym", nil)
	l.SetText("['get','name']")
	l.SetTextSize(14)
	l.SetTextColor(color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	l.SetIconSize(1.5)
	l.SetFilter("['==',['get','kind'],'cafe']")
	l.SetSourceLayer("pois")

	def := l.Definition()
	require.NotContains(t, def, `"source"`)
	require.Contains(t, def, `"source-layer":"pois"`)
	require.Contains(t, def, `"icon-size":1.5`)
	require.Contains(t, def, `"text-field":['get','name']`)
	require.Contains(t, def, `"text-size":14`)
	require.Contains(t, def, `"text-anchor":"center"`)
	require.Contains(t, def, `"paint":{"text-color":"rgba(10,20,30,1)"}`)
	require.True(t, strings.HasSuffix(def, `"filter":['==',['get','kind'],'cafe']}`))

	v, ok := l.PropertyValue("text-field")
	require.True(t, ok)
	require.Equal(t, "['get','name']", v)
	_, ok = l.PropertyValue("no-such-property")
	require.False(t, ok)
}

func TestSetterSendsOnlyChanges(t *testing.T) {
	m, rec := newTestMap(t)
	l := NewLineLayer("ln", NewGeoJSONSource("s"))
	m.Layers().Add(l)
	rec.Reset()

	l.SetWidth(5)
	l.SetColor(color.NRGBA{R: 255, A: 255})
	l.SetVisibility(style.Visible)
	require.Zero(t, rec.Count())

	l.SetWidth(7)
	l.SetWidth(7)
	l.SetCap(style.CapRound)
	l.SetVisibility(style.Hidden)
	l.SetFilter("['==','kind','road']")
	l.SetFilter("")
	require.Equal(t, []string{
		`map.map.setPaintProperty("ln","line-width",7)`,
		`map.map.setLayoutProperty("ln","line-cap","round")`,
		`map.map.setLayoutProperty("ln","visibility","none")`,
		`map.map.setFilter("ln",['==','kind','road'])`,
		`map.map.setFilter("ln",null)`,
	}, rec.Scripts())
	require.Equal(t, 7.0, l.Width())
}

func TestDetachedSetterOnlyCaches(t *testing.T) {
	m, rec := newTestMap(t)
	l := NewBubbleLayer("bb", NewGeoJSONSource("s"))
	l.SetRadius(12)
	require.Zero(t, rec.Count())

	m.Layers().Add(l)
	require.Contains(t, rec.Scripts()[1], `"circle-radius":12`)

	m.Layers().Remove(l)
	rec.Reset()
	l.SetRadius(4)
	require.Zero(t, rec.Count())
	require.Equal(t, 4.0, l.Radius())
}

func TestOpacityClamped(t *testing.T) {
	m, rec := newTestMap(t)
	fill := NewFillLayer("fl", NewGeoJSONSource("s"))
	m.Layers().Add(fill)
	rec.Reset()

	fill.SetOpacity(3)
	require.Equal(t, 1.0, fill.Opacity())
	require.Zero(t, rec.Count(), "clamped value equals the current one")

	fill.SetOpacity(-1)
	require.Equal(t, []string{`map.map.setPaintProperty("fl","fill-opacity",0)`}, rec.Scripts())
}

func TestImageLayer(t *testing.T) {
	m, rec := newTestMap(t)
	corners := geo.NewPath(
		geo.NewPosition(0, 1), geo.NewPosition(1, 1), geo.NewPosition(1, 0), geo.NewPosition(0, 0),
	)
	l := NewImageLayer("", `<svg xmlns="http://www.w3.org/2000/svg"></svg>`, corners)
	require.True(t, strings.HasPrefix(l.URL(), "data:image/svg+xml;base64,"))
	require.Nil(t, l.Source())

	m.Layers().Add(l)
	require.Equal(t, "layer_1", l.ID())
	require.Zero(t, m.Sources().Len())
	require.Equal(t, 1, rec.Count())
	rec.Reset()

	corners.Set(0, geo.NewPosition(-1, 2))
	require.Equal(t, []string{
		`map.map.getSource("layer_1").setCoordinates([[-1,2],[1,1],[1,0],[0,0]])`,
	}, rec.Scripts())

	l.SetFadeDuration(300 * time.Millisecond)
	l.SetOpacity(0.5)
	require.Equal(t, `map.map.setPaintProperty("layer_1","raster-opacity",0.5)`, rec.Scripts()[1])
	rec.Reset()

	m.Layers().Remove(l)
	require.Equal(t, []string{
		`if(map.map.getLayer("layer_1")){map.map.removeLayer("layer_1")}`,
		`if(map.map.getSource("layer_1")){map.map.removeSource("layer_1")}`,
	}, rec.Scripts())
}

func TestImageSourceCorners(t *testing.T) {
	m, rec := newTestMap(t)
	src := NewImageSource("radar", "https://example.com/radar.gif", geo.NewPath(
		geo.NewPosition(0, 1), geo.NewPosition(1, 1), geo.NewPosition(1, 0), geo.NewPosition(0, 0),
	))
	m.Sources().Add(src)
	require.Contains(t, rec.Scripts()[0], `{"type":"image","url":"https://example.com/radar.gif","coordinates":[[0,1],[1,1],[1,0],[0,0]]}`)
	rec.Reset()

	next := geo.NewPath(
		geo.NewPosition(0, 2), geo.NewPosition(2, 2), geo.NewPosition(2, 0), geo.NewPosition(0, 0),
	)
	src.SetCorners(next)
	require.Equal(t, []string{
		`map.map.getSource("radar").setCoordinates([[0,2],[2,2],[2,0],[0,0]])`,
	}, rec.Scripts())
}

func TestVectorSourceDefinition(t *testing.T) {
	src := NewVectorSource("roads", "pmtiles://https://tiles.example/roads.pmtiles")
	def, err := src.Definition()
	require.NoError(t, err)
	require.Equal(t, `{"type":"vector","url":"pmtiles://https://tiles.example/roads.pmtiles","minzoom":0,"maxzoom":14}`, def)

	src.URL = ""
	src.Tiles = []string{"https://tiles.example/{z}/{x}/{y}.pbf"}
	def, err = src.Definition()
	require.NoError(t, err)
	require.Equal(t, `{"type":"vector","tiles":["https://tiles.example/{z}/{x}/{y}.pbf"],"minzoom":0,"maxzoom":14}`, def)
}
