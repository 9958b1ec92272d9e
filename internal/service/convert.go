package service

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"

	"github.com/joeblew999/plat-map/internal/mapview"
	"github.com/joeblew999/plat-map/internal/style"
)

// Geometry types accepted in LayerConfig.GeomType.
const (
	GeomPolygon = "polygon"
	GeomLine    = "line"
	GeomPoint   = "point"
	GeomSymbol  = "symbol"
)

// ErrNotDrawable is returned by BuildLayers for sources no feature layer can
// draw.
var ErrNotDrawable = errors.New("source cannot back a feature layer")

// BuildLayers turns a stored configuration into layers drawing from src:
// the base layer first, then one filtered layer per render rule.
func BuildLayers(cfg LayerConfig, src mapview.Source) ([]mapview.Layer, error) {
	if _, ok := src.(*mapview.ImageSource); ok {
		return nil, fmt.Errorf("%w: %q is an image source", ErrNotDrawable, src.ID())
	}
	base, err := buildLayer(cfg.ID, cfg.GeomType, src, paint{
		fill:    cfg.Fill,
		stroke:  cfg.Stroke,
		opacity: cfg.Opacity,
		width:   cfg.Width,
		radius:  cfg.Radius,
		label:   cfg.Label,
		filter:  cfg.Filter,
	}, cfg)
	if err != nil {
		return nil, err
	}
	layers := []mapview.Layer{base}

	for i, r := range cfg.RenderRules {
		p := paint{
			fill:    firstNonEmpty(r.Fill, cfg.Fill),
			stroke:  firstNonEmpty(r.Stroke, cfg.Stroke),
			opacity: firstNonZero(r.Opacity, cfg.Opacity),
			width:   firstNonZero(r.Width, cfg.Width),
			radius:  firstNonZero(r.Radius, cfg.Radius),
			label:   cfg.Label,
			filter:  ruleFilter(r),
		}
		l, err := buildLayer(cfg.ID+"-rule-"+strconv.Itoa(i+1), cfg.GeomType, src, p, cfg)
		if err != nil {
			return nil, fmt.Errorf("render rule %d: %w", i+1, err)
		}
		layers = append(layers, l)
	}
	return layers, nil
}

type paint struct {
	fill, stroke  string
	opacity       float64
	width, radius float64
	label, filter string
}

func buildLayer(id, geomType string, src mapview.Source, p paint, cfg LayerConfig) (mapview.Layer, error) {
	fill, err := optionalColor(p.fill)
	if err != nil {
		return nil, fmt.Errorf("fill: %w", err)
	}
	stroke, err := optionalColor(p.stroke)
	if err != nil {
		return nil, fmt.Errorf("stroke: %w", err)
	}

	var layer mapview.Layer
	switch geomType {
	case GeomPolygon, "":
		l := mapview.NewFillLayer(id, src)
		if fill != nil {
			l.SetColor(fill)
		}
		if stroke != nil {
			l.SetOutlineColor(stroke)
		}
		if p.opacity > 0 {
			l.SetOpacity(p.opacity)
		}
		l.SetFilter(p.filter)
		l.SetSourceLayer(cfg.SourceLayer)
		layer = l
	case GeomLine:
		l := mapview.NewLineLayer(id, src)
		if c := firstColor(stroke, fill); c != nil {
			l.SetColor(c)
		}
		if p.width > 0 {
			l.SetWidth(p.width)
		}
		if p.opacity > 0 {
			l.SetOpacity(p.opacity)
		}
		l.SetFilter(p.filter)
		l.SetSourceLayer(cfg.SourceLayer)
		layer = l
	case GeomPoint:
		l := mapview.NewBubbleLayer(id, src)
		if fill != nil {
			l.SetColor(fill)
		}
		if stroke != nil {
			l.SetStrokeColor(stroke)
		}
		if p.radius > 0 {
			l.SetRadius(p.radius)
		}
		if p.opacity > 0 {
			l.SetOpacity(p.opacity)
		}
		l.SetFilter(p.filter)
		l.SetSourceLayer(cfg.SourceLayer)
		layer = l
	case GeomSymbol:
		l := mapview.NewSymbolLayer(id, src)
		l.SetText(p.label)
		if c := firstColor(stroke, fill); c != nil {
			l.SetTextColor(c)
		}
		l.SetFilter(p.filter)
		l.SetSourceLayer(cfg.SourceLayer)
		layer = l
	default:
		return nil, fmt.Errorf("unknown geometry type %q", geomType)
	}

	if !cfg.Visible {
		layer.SetVisibility(style.Hidden)
	}
	return layer, nil
}

// ruleFilter matches features whose property equals the rule value.
func ruleFilter(r RenderRule) string {
	return `["==",["get",` + style.Quote(r.FilterProp) + `],` + style.Quote(r.FilterValue) + `]`
}

func optionalColor(s string) (color.Color, error) {
	if s == "" {
		return nil, nil
	}
	c, err := style.ParseColor(s)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func firstColor(cs ...color.Color) color.Color {
	for _, c := range cs {
		if c != nil {
			return c
		}
	}
	return nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstNonZero(a, b float64) float64 {
	if a != 0 {
		return a
	}
	return b
}
