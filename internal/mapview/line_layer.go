package mapview

import (
	"image/color"

	"github.com/joeblew999/plat-map/internal/style"
)

// LineLayer strokes line and polygon outlines.
type LineLayer struct {
	layerBase
	sourced
	color   color.NRGBA
	width   float64
	opacity float64
	cap     style.LineCap
	join    style.LineJoin
	filter  string
}

// NewLineLayer creates a line layer drawing from src: red, five pixels wide.
func NewLineLayer(id string, src Source) *LineLayer {
	return &LineLayer{
		layerBase: layerBase{id: id},
		sourced:   sourced{src: src},
		color:     color.NRGBA{R: 255, A: 255},
		width:     5,
		opacity:   1,
	}
}

var lineProperties = properties[*LineLayer]{
	visibilityProperty[*LineLayer](),
	{name: "line-cap", kind: layoutProp, value: func(l *LineLayer) string { return l.cap.JSON() }},
	{name: "line-join", kind: layoutProp, value: func(l *LineLayer) string { return l.join.JSON() }},
	{name: "line-color", kind: paintProp, value: func(l *LineLayer) string { return style.Color(l.color) }},
	{name: "line-width", kind: paintProp, value: func(l *LineLayer) string { return style.Number(l.width) }},
	{name: "line-opacity", kind: paintProp, value: func(l *LineLayer) string { return style.Number(l.opacity) }},
	filterProperty(func(l *LineLayer) string { return l.filter }),
}

func (l *LineLayer) Definition() string {
	return lineProperties.definition(l, l.id, "line", l.sourceRef(), l.sourceLayer)
}

func (l *LineLayer) PropertyValue(name string) (string, bool) {
	return lineProperties.value(l, name)
}

func (l *LineLayer) Color() color.NRGBA { return l.color }

func (l *LineLayer) SetColor(c color.Color) {
	v := toNRGBA(c)
	if l.color == v {
		return
	}
	l.color = v
	emit(l, lineProperties, "line-color")
}

func (l *LineLayer) Width() float64 { return l.width }

func (l *LineLayer) SetWidth(v float64) {
	if l.width == v {
		return
	}
	l.width = v
	emit(l, lineProperties, "line-width")
}

func (l *LineLayer) Opacity() float64 { return l.opacity }

// SetOpacity sets the stroke opacity, clamped to [0,1].
func (l *LineLayer) SetOpacity(v float64) {
	v = clamp01(v)
	if l.opacity == v {
		return
	}
	l.opacity = v
	emit(l, lineProperties, "line-opacity")
}

func (l *LineLayer) Cap() style.LineCap { return l.cap }

func (l *LineLayer) SetCap(v style.LineCap) {
	if l.cap == v {
		return
	}
	l.cap = v
	emit(l, lineProperties, "line-cap")
}

func (l *LineLayer) Join() style.LineJoin { return l.join }

func (l *LineLayer) SetJoin(v style.LineJoin) {
	if l.join == v {
		return
	}
	l.join = v
	emit(l, lineProperties, "line-join")
}

func (l *LineLayer) Filter() string { return l.filter }

func (l *LineLayer) SetFilter(v string) {
	if l.filter == v {
		return
	}
	l.filter = v
	emit(l, lineProperties, "filter")
}
