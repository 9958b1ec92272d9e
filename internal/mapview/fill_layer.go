package mapview

import (
	"image/color"

	"github.com/joeblew999/plat-map/internal/style"
)

// FillLayer paints the interior of polygons.
type FillLayer struct {
	layerBase
	sourced
	color        color.NRGBA
	outlineColor color.NRGBA
	opacity      float64
	filter       string
}

// NewFillLayer creates a fill layer drawing from src.
func NewFillLayer(id string, src Source) *FillLayer {
	return &FillLayer{
		layerBase: layerBase{id: id},
		sourced:   sourced{src: src},
		color:     color.NRGBA{R: 0x33, G: 0x88, B: 0xff, A: 0xff},
		opacity:   1,
	}
}

var fillProperties = properties[*FillLayer]{
	visibilityProperty[*FillLayer](),
	{name: "fill-color", kind: paintProp, value: func(l *FillLayer) string { return style.Color(l.color) }},
	{name: "fill-outline-color", kind: paintProp,
		value: func(l *FillLayer) string { return style.Color(l.outlineColor) },
		omit:  func(l *FillLayer) bool { return l.outlineColor == (color.NRGBA{}) }},
	{name: "fill-opacity", kind: paintProp, value: func(l *FillLayer) string { return style.Number(l.opacity) }},
	filterProperty(func(l *FillLayer) string { return l.filter }),
}

func (l *FillLayer) Definition() string {
	return fillProperties.definition(l, l.id, "fill", l.sourceRef(), l.sourceLayer)
}

func (l *FillLayer) PropertyValue(name string) (string, bool) {
	return fillProperties.value(l, name)
}

func (l *FillLayer) Color() color.NRGBA { return l.color }

func (l *FillLayer) SetColor(c color.Color) {
	v := toNRGBA(c)
	if l.color == v {
		return
	}
	l.color = v
	emit(l, fillProperties, "fill-color")
}

func (l *FillLayer) OutlineColor() color.NRGBA { return l.outlineColor }

func (l *FillLayer) SetOutlineColor(c color.Color) {
	v := toNRGBA(c)
	if l.outlineColor == v {
		return
	}
	l.outlineColor = v
	emit(l, fillProperties, "fill-outline-color")
}

func (l *FillLayer) Opacity() float64 { return l.opacity }

// SetOpacity sets the fill opacity, clamped to [0,1].
func (l *FillLayer) SetOpacity(v float64) {
	v = clamp01(v)
	if l.opacity == v {
		return
	}
	l.opacity = v
	emit(l, fillProperties, "fill-opacity")
}

func (l *FillLayer) Filter() string { return l.filter }

func (l *FillLayer) SetFilter(v string) {
	if l.filter == v {
		return
	}
	l.filter = v
	emit(l, fillProperties, "filter")
}
