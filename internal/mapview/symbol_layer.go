package mapview

import (
	"image/color"

	"github.com/joeblew999/plat-map/internal/style"
)

// DefaultIconImage is drawn when a symbol layer has no icon image.
const DefaultIconImage = "pin-darkblue"

// SymbolLayer draws an icon and optional text label at each point.
type SymbolLayer struct {
	layerBase
	sourced
	iconImage  string
	iconSize   float64
	iconAnchor style.Anchor
	text       string
	textSize   float64
	textAnchor style.Anchor
	textColor  color.NRGBA
	filter     string
}

// NewSymbolLayer creates a symbol layer drawing from src.
func NewSymbolLayer(id string, src Source) *SymbolLayer {
	return &SymbolLayer{
		layerBase:  layerBase{id: id},
		sourced:    sourced{src: src},
		iconAnchor: style.AnchorBottom,
		textAnchor: style.AnchorCenter,
	}
}

var symbolProperties = properties[*SymbolLayer]{
	visibilityProperty[*SymbolLayer](),
	{name: "icon-image", kind: layoutProp, value: func(l *SymbolLayer) string {
		if l.iconImage == "" {
			return style.Quote(DefaultIconImage)
		}
		return style.String(l.iconImage)
	}},
	{name: "icon-size", kind: layoutProp,
		value: func(l *SymbolLayer) string { return style.Number(l.iconSize) },
		omit:  func(l *SymbolLayer) bool { return l.iconSize <= 0 }},
	{name: "icon-anchor", kind: layoutProp, value: func(l *SymbolLayer) string { return l.iconAnchor.JSON() }},
	{name: "text-field", kind: layoutProp,
		value: func(l *SymbolLayer) string { return style.String(l.text) },
		omit:  func(l *SymbolLayer) bool { return l.text == "" }},
	{name: "text-size", kind: layoutProp,
		value: func(l *SymbolLayer) string { return style.Number(l.textSize) },
		omit:  func(l *SymbolLayer) bool { return l.text == "" || l.textSize <= 0 }},
	{name: "text-anchor", kind: layoutProp,
		value: func(l *SymbolLayer) string { return l.textAnchor.JSON() },
		omit:  func(l *SymbolLayer) bool { return l.text == "" }},
	{name: "text-color", kind: paintProp,
		value: func(l *SymbolLayer) string { return style.Color(l.textColor) },
		omit:  func(l *SymbolLayer) bool { return l.text == "" || l.textColor == (color.NRGBA{}) }},
	filterProperty(func(l *SymbolLayer) string { return l.filter }),
}

func (l *SymbolLayer) Definition() string {
	return symbolProperties.definition(l, l.id, "symbol", l.sourceRef(), l.sourceLayer)
}

func (l *SymbolLayer) PropertyValue(name string) (string, bool) {
	return symbolProperties.value(l, name)
}

func (l *SymbolLayer) IconImage() string { return l.iconImage }

// SetIconImage sets the sprite name or an expression selecting one.
func (l *SymbolLayer) SetIconImage(v string) {
	if l.iconImage == v {
		return
	}
	l.iconImage = v
	emit(l, symbolProperties, "icon-image")
}

func (l *SymbolLayer) IconSize() float64 { return l.iconSize }

func (l *SymbolLayer) SetIconSize(v float64) {
	if l.iconSize == v {
		return
	}
	l.iconSize = v
	emit(l, symbolProperties, "icon-size")
}

func (l *SymbolLayer) IconAnchor() style.Anchor { return l.iconAnchor }

func (l *SymbolLayer) SetIconAnchor(v style.Anchor) {
	if l.iconAnchor == v {
		return
	}
	l.iconAnchor = v
	emit(l, symbolProperties, "icon-anchor")
}

func (l *SymbolLayer) Text() string { return l.text }

// SetText sets the label text or an expression such as ["get","name"].
func (l *SymbolLayer) SetText(v string) {
	if l.text == v {
		return
	}
	l.text = v
	emit(l, symbolProperties, "text-field")
}

func (l *SymbolLayer) TextSize() float64 { return l.textSize }

func (l *SymbolLayer) SetTextSize(v float64) {
	if l.textSize == v {
		return
	}
	l.textSize = v
	emit(l, symbolProperties, "text-size")
}

func (l *SymbolLayer) TextAnchor() style.Anchor { return l.textAnchor }

func (l *SymbolLayer) SetTextAnchor(v style.Anchor) {
	if l.textAnchor == v {
		return
	}
	l.textAnchor = v
	emit(l, symbolProperties, "text-anchor")
}

func (l *SymbolLayer) TextColor() color.NRGBA { return l.textColor }

func (l *SymbolLayer) SetTextColor(c color.Color) {
	v := toNRGBA(c)
	if l.textColor == v {
		return
	}
	l.textColor = v
	emit(l, symbolProperties, "text-color")
}

func (l *SymbolLayer) Filter() string { return l.filter }

// SetFilter sets a filter expression. An empty filter clears it.
func (l *SymbolLayer) SetFilter(v string) {
	if l.filter == v {
		return
	}
	l.filter = v
	emit(l, symbolProperties, "filter")
}

func toNRGBA(c color.Color) color.NRGBA {
	if c == nil {
		return color.NRGBA{}
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
