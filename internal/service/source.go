package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-map/internal/geo"
	"github.com/joeblew999/plat-map/internal/mapview"
)

// ErrBadFileName is returned for names that are not a plain file name.
var ErrBadFileName = errors.New("invalid file name")

// SourceService reads GeoJSON files from dataDir/sources.
type SourceService struct {
	sourcesDir string
	log        logr.Logger
}

// NewSourceService creates a new source service.
func NewSourceService(dataDir string, log logr.Logger) *SourceService {
	return &SourceService{
		sourcesDir: filepath.Join(dataDir, "sources"),
		log:        log,
	}
}

// List returns the GeoJSON files available.
func (s *SourceService) List() ([]SourceFile, error) {
	entries, err := os.ReadDir(s.sourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SourceFile{}, nil
		}
		return nil, err
	}

	files := []SourceFile{}
	for _, entry := range entries {
		if entry.IsDir() || !isGeoJSON(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, SourceFile{
			Name: entry.Name(),
			Size: formatSize(info.Size()),
		})
	}
	return files, nil
}

// Load parses a GeoJSON file into features. MultiPoints are split into
// points; features of other unsupported types are skipped.
func (s *SourceService) Load(name string) ([]geo.Geometry, error) {
	path, err := safeJoin(s.sourcesDir, name)
	if err != nil {
		return nil, err
	}
	if !isGeoJSON(name) {
		return nil, fmt.Errorf("%w: %q is not a GeoJSON file", ErrBadFileName, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source %q: %w", name, err)
	}
	return s.Parse(data)
}

// Parse decodes a FeatureCollection, a single Feature or a bare geometry.
func (s *SourceService) Parse(data []byte) ([]geo.Geometry, error) {
	var features []*geojson.Feature
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && fc.Type == "FeatureCollection" {
		features = fc.Features
	} else if f, err := geojson.UnmarshalFeature(data); err == nil && f.Type == "Feature" {
		features = []*geojson.Feature{f}
	} else if g, err := geojson.UnmarshalGeometry(data); err == nil && g.Coordinates != nil {
		features = []*geojson.Feature{geojson.NewFeature(g.Geometry())}
	} else {
		return nil, errors.New("not a GeoJSON feature collection, feature or geometry")
	}

	var out []geo.Geometry
	for i, f := range features {
		gs, err := geo.FromFeature(f)
		if err != nil {
			s.log.V(1).Info("skipping feature", "index", i, "reason", err.Error())
			continue
		}
		out = append(out, gs...)
	}
	return out, nil
}

// GeoJSONSource loads a file into a new source holding every feature.
func (s *SourceService) GeoJSONSource(id, name string) (*mapview.GeoJSONSource, error) {
	features, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	src := mapview.NewGeoJSONSource(id)
	src.Add(features...)
	return src, nil
}

// SourcesDir returns the path to the sources directory.
func (s *SourceService) SourcesDir() string {
	return s.sourcesDir
}

// SourceID derives a source id from a data file name.
func SourceID(name string) string {
	return generateID(strings.TrimSuffix(name, filepath.Ext(name)))
}

func isGeoJSON(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".geojson", ".json":
		return true
	}
	return false
}

func safeJoin(dir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrBadFileName, name)
	}
	return filepath.Join(dir, name), nil
}
