package mapview

import (
	"strings"

	"github.com/joeblew999/plat-map/internal/style"
)

// VectorSource references vector tiles, either through a TileJSON or
// PMTiles URL or through explicit tile URL templates.
type VectorSource struct {
	sourceBase
	URL     string
	Tiles   []string
	MinZoom int
	MaxZoom int
	// Bounds is [west, south, east, north]; tiles outside are not requested.
	Bounds []float64
}

// NewVectorSource creates a vector tile source from a URL such as
// "pmtiles://https://host/tiles/roads.pmtiles".
func NewVectorSource(id, url string) *VectorSource {
	return &VectorSource{sourceBase: sourceBase{id: id}, URL: url, MaxZoom: 14}
}

func (s *VectorSource) Definition() (string, error) {
	var sb strings.Builder
	sb.WriteString(`{"type":"vector"`)
	if s.URL != "" {
		sb.WriteString(`,"url":` + style.Quote(s.URL))
	}
	if len(s.Tiles) > 0 {
		sb.WriteString(`,"tiles":[`)
		for i, t := range s.Tiles {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(style.Quote(t))
		}
		sb.WriteByte(']')
	}
	sb.WriteString(`,"minzoom":` + style.Int(s.MinZoom))
	if s.MaxZoom > 0 {
		sb.WriteString(`,"maxzoom":` + style.Int(s.MaxZoom))
	}
	if len(s.Bounds) == 4 {
		sb.WriteString(`,"bounds":[`)
		for i, v := range s.Bounds {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(style.Number(v))
		}
		sb.WriteByte(']')
	}
	sb.WriteByte('}')
	return sb.String(), nil
}
