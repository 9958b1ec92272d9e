// Package service holds the stored layer configurations and the data files
// that feed map sources.
package service

import "github.com/joeblew999/plat-map/internal/geo"

// LayerConfig is a stored description of a map layer. Huma reads the tags
// for OpenAPI and request validation.
type LayerConfig struct {
	ID          string       `json:"id,omitempty" doc:"Unique layer identifier" example:"buildings"`
	Name        string       `json:"name" required:"true" minLength:"1" maxLength:"100" doc:"Display name" example:"Buildings"`
	Source      string       `json:"source" required:"true" doc:"Data file: GeoJSON under sources/ or PMTiles under tiles/" example:"buildings.pmtiles"`
	SourceLayer string       `json:"sourceLayer,omitempty" doc:"Layer name within vector tiles" example:"buildings"`
	GeomType    string       `json:"geomType" required:"true" enum:"polygon,line,point,symbol" doc:"Geometry type" example:"polygon" default:"polygon"`
	Visible     bool         `json:"visible" default:"true" doc:"Whether the layer is drawn" example:"true"`
	Fill        string       `json:"fill,omitempty" doc:"Fill color (CSS hex)" example:"#3388ff" default:"#3388ff"`
	Stroke      string       `json:"stroke,omitempty" doc:"Stroke color (CSS hex)" example:"#2266cc" default:"#2266cc"`
	Opacity     float64      `json:"opacity,omitempty" minimum:"0" maximum:"1" default:"0.7" doc:"Layer opacity (0-1)" example:"0.7"`
	Width       float64      `json:"width,omitempty" minimum:"0" doc:"Line width in pixels" example:"2"`
	Radius      float64      `json:"radius,omitempty" minimum:"0" doc:"Point radius in pixels" example:"6"`
	Label       string       `json:"label,omitempty" doc:"Text field for symbol layers" example:"['get','name']"`
	Filter      string       `json:"filter,omitempty" doc:"Renderer filter expression" example:"['==',['get','kind'],'school']"`
	RenderRules []RenderRule `json:"renderRules,omitempty" doc:"Conditional styling rules, each drawn as an extra filtered layer"`
}

// RenderRule restyles the features whose property matches a value.
type RenderRule struct {
	FilterProp  string  `json:"filterProp" required:"true" doc:"Property name to filter on"`
	FilterValue string  `json:"filterValue" required:"true" doc:"Value to match"`
	Fill        string  `json:"fill,omitempty" doc:"Fill color (CSS hex)"`
	Stroke      string  `json:"stroke,omitempty" doc:"Stroke color (CSS hex)"`
	Opacity     float64 `json:"opacity,omitempty" minimum:"0" maximum:"1" doc:"Opacity (0-1)"`
	Width       float64 `json:"width,omitempty" minimum:"0" doc:"Line width"`
	Radius      float64 `json:"radius,omitempty" minimum:"0" doc:"Point radius"`
}

// SourceFile is a GeoJSON data file.
type SourceFile struct {
	Name string `json:"name" doc:"File name" example:"stations.geojson"`
	Size string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
}

// TileFile is a PMTiles file.
type TileFile struct {
	Name string `json:"name" doc:"PMTiles file name" example:"buildings.pmtiles"`
	Size string `json:"size" doc:"Human-readable file size" example:"5.4 MB"`
	// Zoom range from the archive header; zero when the header is unreadable.
	MinZoom int `json:"minZoom,omitempty" doc:"Minimum zoom in the archive"`
	MaxZoom int `json:"maxZoom,omitempty" doc:"Maximum zoom in the archive"`
	// TileType is the tile format; only mvt archives can back a layer.
	TileType string        `json:"tileType,omitempty" doc:"Tile format" enum:"mvt,png,jpeg,webp,avif,unknown"`
	Center   *geo.Position `json:"center,omitempty" doc:"Suggested initial view position"`
}
