package mapview

import (
	"image/color"

	"github.com/joeblew999/plat-map/internal/style"
)

// BubbleLayer draws a scaled circle at each point.
type BubbleLayer struct {
	layerBase
	sourced
	color       color.NRGBA
	radius      float64
	opacity     float64
	strokeColor color.NRGBA
	strokeWidth float64
	filter      string
}

// NewBubbleLayer creates a bubble layer drawing from src.
func NewBubbleLayer(id string, src Source) *BubbleLayer {
	return &BubbleLayer{
		layerBase:   layerBase{id: id},
		sourced:     sourced{src: src},
		color:       color.NRGBA{R: 0x1a, G: 0x73, B: 0xaa, A: 0xff},
		radius:      8,
		opacity:     1,
		strokeColor: color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		strokeWidth: 2,
	}
}

var bubbleProperties = properties[*BubbleLayer]{
	visibilityProperty[*BubbleLayer](),
	{name: "circle-color", kind: paintProp, value: func(l *BubbleLayer) string { return style.Color(l.color) }},
	{name: "circle-radius", kind: paintProp, value: func(l *BubbleLayer) string { return style.Number(l.radius) }},
	{name: "circle-opacity", kind: paintProp, value: func(l *BubbleLayer) string { return style.Number(l.opacity) }},
	{name: "circle-stroke-color", kind: paintProp, value: func(l *BubbleLayer) string { return style.Color(l.strokeColor) }},
	{name: "circle-stroke-width", kind: paintProp, value: func(l *BubbleLayer) string { return style.Number(l.strokeWidth) }},
	filterProperty(func(l *BubbleLayer) string { return l.filter }),
}

func (l *BubbleLayer) Definition() string {
	return bubbleProperties.definition(l, l.id, "circle", l.sourceRef(), l.sourceLayer)
}

func (l *BubbleLayer) PropertyValue(name string) (string, bool) {
	return bubbleProperties.value(l, name)
}

func (l *BubbleLayer) Color() color.NRGBA { return l.color }

func (l *BubbleLayer) SetColor(c color.Color) {
	v := toNRGBA(c)
	if l.color == v {
		return
	}
	l.color = v
	emit(l, bubbleProperties, "circle-color")
}

func (l *BubbleLayer) Radius() float64 { return l.radius }

func (l *BubbleLayer) SetRadius(v float64) {
	if l.radius == v {
		return
	}
	l.radius = v
	emit(l, bubbleProperties, "circle-radius")
}

func (l *BubbleLayer) Opacity() float64 { return l.opacity }

// SetOpacity sets the circle opacity, clamped to [0,1].
func (l *BubbleLayer) SetOpacity(v float64) {
	v = clamp01(v)
	if l.opacity == v {
		return
	}
	l.opacity = v
	emit(l, bubbleProperties, "circle-opacity")
}

func (l *BubbleLayer) StrokeColor() color.NRGBA { return l.strokeColor }

func (l *BubbleLayer) SetStrokeColor(c color.Color) {
	v := toNRGBA(c)
	if l.strokeColor == v {
		return
	}
	l.strokeColor = v
	emit(l, bubbleProperties, "circle-stroke-color")
}

func (l *BubbleLayer) StrokeWidth() float64 { return l.strokeWidth }

func (l *BubbleLayer) SetStrokeWidth(v float64) {
	if l.strokeWidth == v {
		return
	}
	l.strokeWidth = v
	emit(l, bubbleProperties, "circle-stroke-width")
}

func (l *BubbleLayer) Filter() string { return l.filter }

func (l *BubbleLayer) SetFilter(v string) {
	if l.filter == v {
		return
	}
	l.filter = v
	emit(l, bubbleProperties, "filter")
}
