// Package scene loads the YAML file describing a map's initial camera,
// sources and layers.
package scene

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-map/internal/db"
	"github.com/joeblew999/plat-map/internal/geo"
	"github.com/joeblew999/plat-map/internal/mapview"
	"github.com/joeblew999/plat-map/internal/service"
	"github.com/joeblew999/plat-map/internal/style"
)

// Scene is the file format.
//
//	camera:
//	  center: {lon: -122.33, lat: 47.6}
//	  zoom: 11
//	sources:
//	  - id: stations
//	    type: geojson
//	    file: stations.geojson
//	layers:
//	  - id: stations
//	    source: stations
//	    type: point
//	    fill: "#e4572e"
type Scene struct {
	Camera  mapview.CameraOptions `yaml:"camera"`
	Sources []Source              `yaml:"sources" validate:"dive"`
	Layers  []Layer               `yaml:"layers" validate:"dive"`
}

// Source declares one map source.
type Source struct {
	ID   string `yaml:"id" validate:"required"`
	Type string `yaml:"type" validate:"required,oneof=geojson vector image"`
	// File names a GeoJSON file under sources/ or a PMTiles file under tiles/.
	File string `yaml:"file" validate:"omitempty,excludesall=/\\"`
	// Query fills a geojson source from DuckDB instead of a file.
	Query          string         `yaml:"query"`
	GeometryColumn string         `yaml:"geometryColumn"`
	URL            string         `yaml:"url" validate:"omitempty,url"`
	Tiles          []string       `yaml:"tiles"`
	MaxZoom        int            `yaml:"maxZoom" validate:"gte=0,lte=24"`
	Image          string         `yaml:"image"`
	Corners        []geo.Position `yaml:"corners" validate:"omitempty,len=4"`
}

// Layer declares one map layer.
type Layer struct {
	ID          string  `yaml:"id" validate:"required"`
	Source      string  `yaml:"source" validate:"required_unless=Type image"`
	SourceLayer string  `yaml:"sourceLayer"`
	Type        string  `yaml:"type" validate:"required,oneof=polygon line point symbol image"`
	Hidden      bool    `yaml:"hidden"`
	Fill        string  `yaml:"fill" validate:"omitempty,hexcolor"`
	Stroke      string  `yaml:"stroke" validate:"omitempty,hexcolor"`
	Opacity     float64 `yaml:"opacity" validate:"gte=0,lte=1"`
	Width       float64 `yaml:"width" validate:"gte=0"`
	Radius      float64 `yaml:"radius" validate:"gte=0"`
	Label       string  `yaml:"label"`
	Filter      string  `yaml:"filter"`
	// Image and Corners describe an image layer.
	Image   string         `yaml:"image" validate:"required_if=Type image"`
	Corners []geo.Position `yaml:"corners" validate:"omitempty,len=4"`
}

// Load reads and validates a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates scene YAML.
func Parse(data []byte) (*Scene, error) {
	var s Scene
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks field constraints and cross references.
func (s *Scene) Validate() error {
	if err := newValidator().Struct(s); err != nil {
		return fmt.Errorf("invalid scene: %w", err)
	}

	ids := make(map[string]string, len(s.Sources))
	for _, src := range s.Sources {
		if _, dup := ids[src.ID]; dup {
			return fmt.Errorf("invalid scene: duplicate source %q", src.ID)
		}
		ids[src.ID] = src.Type
		switch src.Type {
		case "geojson":
			if (src.File == "") == (src.Query == "") {
				return fmt.Errorf("invalid scene: geojson source %q needs exactly one of file or query", src.ID)
			}
		case "vector":
			if src.File == "" && src.URL == "" && len(src.Tiles) == 0 {
				return fmt.Errorf("invalid scene: vector source %q needs file, url or tiles", src.ID)
			}
		case "image":
			if src.Image == "" || len(src.Corners) != 4 {
				return fmt.Errorf("invalid scene: image source %q needs image and four corners", src.ID)
			}
		}
	}

	layerIDs := make(map[string]bool, len(s.Layers))
	for _, l := range s.Layers {
		if layerIDs[l.ID] {
			return fmt.Errorf("invalid scene: duplicate layer %q", l.ID)
		}
		layerIDs[l.ID] = true
		if l.Type == "image" && len(l.Corners) != 4 {
			return fmt.Errorf("invalid scene: image layer %q needs four corners", l.ID)
		}
		if l.Type == "image" {
			continue
		}
		switch ids[l.Source] {
		case "":
			return fmt.Errorf("invalid scene: layer %q uses unknown source %q", l.ID, l.Source)
		case "image":
			return fmt.Errorf("invalid scene: %s layer %q cannot draw image source %q", l.Type, l.ID, l.Source)
		}
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		return name
	})
	return v
}

// Loader resolves data files and queries for Build.
type Loader struct {
	Sources *service.SourceService
	Tiles   *service.TileService
	DB      *sql.DB
	// BaseURL is where the page reaches this server, for tile URLs.
	BaseURL string
}

// Plan is a scene with its data loaded, ready to attach to a map.
type Plan struct {
	Camera  mapview.CameraOptions
	Sources []mapview.Source
	Layers  []mapview.Layer
}

// Build loads every source's data and creates the layers.
func (s *Scene) Build(ctx context.Context, l Loader) (*Plan, error) {
	p := &Plan{Camera: s.Camera.Clone()}
	byID := make(map[string]mapview.Source, len(s.Sources))

	for _, spec := range s.Sources {
		src, err := l.source(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", spec.ID, err)
		}
		byID[spec.ID] = src
		p.Sources = append(p.Sources, src)
	}

	for _, spec := range s.Layers {
		if spec.Type == "image" {
			layer := mapview.NewImageLayer(spec.ID, spec.Image, geo.NewPath(spec.Corners...))
			if spec.Opacity > 0 {
				layer.SetOpacity(spec.Opacity)
			}
			if spec.Hidden {
				layer.SetVisibility(style.Hidden)
			}
			p.Layers = append(p.Layers, layer)
			continue
		}
		layers, err := service.BuildLayers(service.LayerConfig{
			ID:          spec.ID,
			Source:      spec.Source,
			SourceLayer: spec.SourceLayer,
			GeomType:    spec.Type,
			Visible:     !spec.Hidden,
			Fill:        spec.Fill,
			Stroke:      spec.Stroke,
			Opacity:     spec.Opacity,
			Width:       spec.Width,
			Radius:      spec.Radius,
			Label:       spec.Label,
			Filter:      spec.Filter,
		}, byID[spec.Source])
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", spec.ID, err)
		}
		p.Layers = append(p.Layers, layers...)
	}
	return p, nil
}

// Apply adds the plan's sources and layers to m. It must run on m's owning
// goroutine.
func (p *Plan) Apply(m *mapview.Map) {
	m.Sources().Add(p.Sources...)
	m.Layers().Add(p.Layers...)
}

func (l Loader) source(ctx context.Context, spec Source) (mapview.Source, error) {
	switch spec.Type {
	case "geojson":
		if spec.Query != "" {
			if l.DB == nil {
				return nil, errors.New("query source needs a database")
			}
			features, err := db.QueryFeatures(ctx, l.DB, spec.Query, spec.GeometryColumn)
			if err != nil {
				return nil, err
			}
			src := mapview.NewGeoJSONSource(spec.ID)
			src.Add(features...)
			return src, nil
		}
		if l.Sources == nil {
			return nil, errors.New("no source directory configured")
		}
		return l.Sources.GeoJSONSource(spec.ID, spec.File)
	case "vector":
		var src *mapview.VectorSource
		if spec.File != "" {
			if l.Tiles == nil {
				return nil, errors.New("no tile directory configured")
			}
			var err error
			if src, err = l.Tiles.VectorSource(spec.ID, spec.File, l.BaseURL); err != nil {
				return nil, err
			}
		} else {
			src = mapview.NewVectorSource(spec.ID, spec.URL)
		}
		src.Tiles = spec.Tiles
		if spec.MaxZoom > 0 {
			src.MaxZoom = spec.MaxZoom
		}
		return src, nil
	case "image":
		image := spec.Image
		if strings.HasSuffix(strings.ToLower(image), ".svg") && !strings.Contains(image, "://") && l.Sources != nil {
			// Local SVG files are inlined.
			data, err := os.ReadFile(filepath.Join(l.Sources.SourcesDir(), filepath.Base(image)))
			if err != nil {
				return nil, err
			}
			image = string(data)
		}
		return mapview.NewImageSource(spec.ID, image, geo.NewPath(spec.Corners...)), nil
	}
	return nil, fmt.Errorf("unknown source type %q", spec.Type)
}
