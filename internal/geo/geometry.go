package geo

import (
	"encoding/json"
	"fmt"

	"github.com/joeblew999/plat-map/internal/observe"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Kind names a geometry variant using its GeoJSON type.
type Kind string

const (
	KindPoint      Kind = "Point"
	KindLineString Kind = "LineString"
	KindPolygon    Kind = "Polygon"
)

// Geometry is a feature: coordinates of one kind plus attribute properties.
// The set of implementations is closed to this package.
type Geometry interface {
	Kind() Kind
	// Properties returns a copy of the feature attributes.
	Properties() geojson.Properties
	// SetProperty stores a string, number or boolean attribute.
	SetProperty(key string, value any) error
	// Subscribe registers fn to run after any coordinate or property change.
	Subscribe(fn func()) (unsubscribe func())
	// Feature converts the geometry to an orb GeoJSON feature.
	Feature(closeRing bool) *geojson.Feature

	orbGeometry(closeRing bool) orb.Geometry
}

// base carries the parts every variant shares.
type base struct {
	props   geojson.Properties
	changes observe.Signal
}

func (b *base) Properties() geojson.Properties {
	return b.props.Clone()
}

func (b *base) SetProperty(key string, value any) error {
	switch v := value.(type) {
	case string, bool, float64:
	case float32:
		value = float64(v)
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	default:
		return fmt.Errorf("property %q: unsupported value type %T", key, value)
	}
	if b.props == nil {
		b.props = geojson.Properties{}
	}
	if old, ok := b.props[key]; ok && old == value {
		return nil
	}
	b.props[key] = value
	b.changes.Notify()
	return nil
}

func (b *base) Subscribe(fn func()) func() {
	return b.changes.Subscribe(fn)
}

func feature(g Geometry, props geojson.Properties, closeRing bool) *geojson.Feature {
	f := geojson.NewFeature(g.orbGeometry(closeRing))
	if props != nil {
		f.Properties = props.Clone()
	}
	return f
}

// featureDoc mirrors orb's feature encoding except that properties are
// always an object. orb writes null for an empty property map.
type featureDoc struct {
	Type       string             `json:"type"`
	Geometry   *geojson.Geometry  `json:"geometry"`
	Properties geojson.Properties `json:"properties"`
}

// FeatureJSON renders g as {"type":"Feature","geometry":{...},"properties":{...}}.
// A geometry without properties gets an empty object.
func FeatureJSON(g Geometry, closeRing bool) (string, error) {
	f := g.Feature(closeRing)
	doc := featureDoc{
		Type:       "Feature",
		Geometry:   geojson.NewGeometry(f.Geometry),
		Properties: f.Properties,
	}
	if doc.Properties == nil {
		doc.Properties = geojson.Properties{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal %s feature: %w", g.Kind(), err)
	}
	return string(b), nil
}

// Point is a single-position feature.
type Point struct {
	base
	pos Position
}

// NewPoint creates a point feature.
func NewPoint(pos Position) *Point {
	return &Point{pos: pos}
}

func (p *Point) Kind() Kind { return KindPoint }

// Position returns the point's coordinates.
func (p *Point) Position() Position { return p.pos }

// SetPosition moves the point.
func (p *Point) SetPosition(pos Position) {
	if p.pos == pos {
		return
	}
	p.pos = pos
	p.changes.Notify()
}

func (p *Point) Feature(closeRing bool) *geojson.Feature { return feature(p, p.props, closeRing) }

func (p *Point) orbGeometry(bool) orb.Geometry { return p.pos.Point() }

// LineString is an open path feature. It never closes its ring.
type LineString struct {
	base
	path   *Path
	unsubs func()
}

// NewLineString creates a line feature over path. A nil path starts empty.
func NewLineString(path *Path) *LineString {
	ls := &LineString{}
	ls.SetCoordinates(path)
	return ls
}

func (l *LineString) Kind() Kind { return KindLineString }

// Coordinates returns the underlying path. Mutating it notifies the line's
// subscribers.
func (l *LineString) Coordinates() *Path { return l.path }

// SetCoordinates swaps the underlying path.
func (l *LineString) SetCoordinates(path *Path) {
	if path == nil {
		path = NewPath()
	}
	if l.unsubs != nil {
		l.unsubs()
	}
	l.path = path
	l.unsubs = path.Subscribe(l.changes.Notify)
	l.changes.Notify()
}

func (l *LineString) Feature(closeRing bool) *geojson.Feature { return feature(l, l.props, closeRing) }

func (l *LineString) orbGeometry(bool) orb.Geometry { return l.path.LineString() }

// Polygon is a feature made of an outer ring followed by optional holes.
type Polygon struct {
	base
	rings  []*Path
	unsubs []func()
}

// NewPolygon creates a polygon feature.
func NewPolygon(rings ...*Path) *Polygon {
	p := &Polygon{}
	p.SetRings(rings...)
	return p
}

func (p *Polygon) Kind() Kind { return KindPolygon }

// Rings returns the polygon's rings, outer ring first.
func (p *Polygon) Rings() []*Path { return append([]*Path(nil), p.rings...) }

// SetRings replaces all rings.
func (p *Polygon) SetRings(rings ...*Path) {
	for _, u := range p.unsubs {
		u()
	}
	p.rings = append([]*Path(nil), rings...)
	p.unsubs = make([]func(), len(rings))
	for i, r := range rings {
		p.unsubs[i] = r.Subscribe(p.changes.Notify)
	}
	p.changes.Notify()
}

func (p *Polygon) Feature(closeRing bool) *geojson.Feature { return feature(p, p.props, closeRing) }

func (p *Polygon) orbGeometry(closeRing bool) orb.Geometry {
	poly := make(orb.Polygon, len(p.rings))
	for i, r := range p.rings {
		poly[i] = r.Ring(closeRing)
	}
	return poly
}

// FromFeature converts a decoded GeoJSON feature. Multi-points are exploded
// into one point per position, each carrying the feature's properties.
func FromFeature(f *geojson.Feature) ([]Geometry, error) {
	var out []Geometry
	switch g := f.Geometry.(type) {
	case orb.Point:
		out = append(out, NewPoint(FromPoint(g)))
	case orb.MultiPoint:
		for _, pt := range g {
			out = append(out, NewPoint(FromPoint(pt)))
		}
	case orb.LineString:
		out = append(out, NewLineString(PathFromLineString(g)))
	case orb.Polygon:
		rings := make([]*Path, len(g))
		for i, r := range g {
			rings[i] = PathFromLineString(r)
		}
		out = append(out, NewPolygon(rings...))
	default:
		return nil, fmt.Errorf("unsupported geometry type %T", f.Geometry)
	}
	for _, g := range out {
		for k, v := range f.Properties {
			// Nested values have no place in renderer properties; skip them.
			_ = g.SetProperty(k, v)
		}
	}
	return out, nil
}
