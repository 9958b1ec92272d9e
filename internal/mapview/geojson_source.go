package mapview

import (
	"fmt"
	"slices"
	"strings"

	"github.com/joeblew999/plat-map/internal/geo"
	"github.com/joeblew999/plat-map/internal/observe"
)

// GeoJSONSource is an observable collection of features. The renderer only
// supports replacing the whole data set, so every mutating call, however many
// features it touches, produces a single change notification and therefore
// a single setData command.
type GeoJSONSource struct {
	sourceBase
	features []geo.Geometry
	unsubs   []func()
	changes  observe.Signal
}

// NewGeoJSONSource creates a source. An empty id is generated when the
// source is first attached to a map.
func NewGeoJSONSource(id string, features ...geo.Geometry) *GeoJSONSource {
	s := &GeoJSONSource{sourceBase: sourceBase{id: id}}
	s.insert(features)
	return s
}

// Features returns the features in order.
func (s *GeoJSONSource) Features() []geo.Geometry { return slices.Clone(s.features) }

// Len returns the number of features.
func (s *GeoJSONSource) Len() int { return len(s.features) }

// Add appends features not already in the source.
func (s *GeoJSONSource) Add(features ...geo.Geometry) {
	if s.insert(features) > 0 {
		s.changes.Notify()
	}
}

// Remove deletes features.
func (s *GeoJSONSource) Remove(features ...geo.Geometry) {
	removed := 0
	for _, f := range features {
		i := slices.Index(s.features, f)
		if i < 0 {
			continue
		}
		s.unsubs[i]()
		s.features = slices.Delete(s.features, i, i+1)
		s.unsubs = slices.Delete(s.unsubs, i, i+1)
		removed++
	}
	if removed > 0 {
		s.changes.Notify()
	}
}

// Set replaces every feature.
func (s *GeoJSONSource) Set(features ...geo.Geometry) {
	s.release()
	s.insert(features)
	s.changes.Notify()
}

// Clear removes every feature.
func (s *GeoJSONSource) Clear() {
	if len(s.features) == 0 {
		return
	}
	s.release()
	s.changes.Notify()
}

// SetData resends the current features to the renderer.
func (s *GeoJSONSource) SetData() { s.changes.Notify() }

// Subscribe registers fn to run after every change to the feature set or
// to any feature in it.
func (s *GeoJSONSource) Subscribe(fn func()) (unsubscribe func()) {
	return s.changes.Subscribe(fn)
}

// ToJSON renders the features as a FeatureCollection.
func (s *GeoJSONSource) ToJSON(closeRing bool) (string, error) {
	var sb strings.Builder
	sb.WriteString(`{"type":"FeatureCollection","features":[`)
	for i, f := range s.features {
		if i > 0 {
			sb.WriteByte(',')
		}
		fj, err := geo.FeatureJSON(f, closeRing)
		if err != nil {
			return "", fmt.Errorf("source %q feature %d: %w", s.id, i, err)
		}
		sb.WriteString(fj)
	}
	sb.WriteString(`]}`)
	return sb.String(), nil
}

func (s *GeoJSONSource) Definition() (string, error) {
	data, err := s.ToJSON(true)
	if err != nil {
		return "", err
	}
	return `{"type":"geojson","data":` + data + `}`, nil
}

func (s *GeoJSONSource) dataScript() (string, error) {
	data, err := s.ToJSON(true)
	if err != nil {
		return "", err
	}
	return setDataScript(s.id, data), nil
}

func (s *GeoJSONSource) insert(features []geo.Geometry) int {
	n := 0
	for _, f := range features {
		if f == nil || slices.Contains(s.features, f) {
			continue
		}
		s.features = append(s.features, f)
		s.unsubs = append(s.unsubs, f.Subscribe(s.changes.Notify))
		n++
	}
	return n
}

func (s *GeoJSONSource) release() {
	for _, u := range s.unsubs {
		u()
	}
	s.features = nil
	s.unsubs = nil
}
