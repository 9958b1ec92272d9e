// Package geo holds the coordinate and geometry value types that sources and
// layers serialize into renderer commands.
package geo

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Position is a longitude/latitude pair.
type Position struct {
	Lon float64 `json:"lon" yaml:"lon"`
	Lat float64 `json:"lat" yaml:"lat"`
}

// NewPosition creates a position. Longitude comes first, as on the wire.
func NewPosition(lon, lat float64) Position {
	return Position{Lon: lon, Lat: lat}
}

// FromPoint converts an orb point ([lon, lat]).
func FromPoint(p orb.Point) Position {
	return Position{Lon: p.Lon(), Lat: p.Lat()}
}

// Point returns the position as an orb point.
func (p Position) Point() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// ToJSON renders the position as [lon,lat].
func (p Position) ToJSON() string {
	var sb strings.Builder
	p.writeJSON(&sb)
	return sb.String()
}

func (p Position) writeJSON(sb *strings.Builder) {
	sb.WriteByte('[')
	sb.WriteString(formatCoord(p.Lon))
	sb.WriteByte(',')
	sb.WriteString(formatCoord(p.Lat))
	sb.WriteByte(']')
}

// formatCoord uses the shortest representation that round-trips.
func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
