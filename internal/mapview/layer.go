package mapview

import (
	"strings"

	"github.com/joeblew999/plat-map/internal/style"
)

// Layer is a drawing rule registered with the renderer. The implementations
// are SymbolLayer, LineLayer, FillLayer, BubbleLayer and ImageLayer.
type Layer interface {
	// ID returns the renderer identifier, generated on first attach when
	// none was supplied.
	ID() string
	// Map returns the controller the layer is attached to, or nil.
	Map() *Map
	Visibility() style.Visibility
	SetVisibility(v style.Visibility)
	// Source returns the source the layer draws from, or nil when the layer
	// carries its own inline source.
	Source() Source
	// Definition renders the full addLayer payload.
	Definition() string
	// PropertyValue renders a single named property as command argument
	// text.
	PropertyValue(name string) (string, bool)

	layer() *layerBase
}

type propKind int

const (
	layoutProp propKind = iota
	paintProp
	filterProp
)

// property is one entry in a layer kind's dispatch table.
type property[L any] struct {
	name  string
	kind  propKind
	value func(L) string
	// omit leaves the property out of the creation payload.
	omit func(L) bool
}

type properties[L any] []property[L]

func (ps properties[L]) lookup(name string) (property[L], bool) {
	for _, p := range ps {
		if p.name == name {
			return p, true
		}
	}
	return property[L]{}, false
}

func (ps properties[L]) value(l L, name string) (string, bool) {
	p, ok := ps.lookup(name)
	if !ok {
		return "", false
	}
	return p.value(l), true
}

// definition renders {"id","type","source","source-layer","layout","paint","filter"}.
// source is already serialized: a quoted id or an inline object.
func (ps properties[L]) definition(l L, id, kind, source, sourceLayer string) string {
	var layout, paint []string
	filter := ""
	for _, p := range ps {
		if p.omit != nil && p.omit(l) {
			continue
		}
		switch p.kind {
		case layoutProp:
			layout = append(layout, style.Quote(p.name)+":"+p.value(l))
		case paintProp:
			paint = append(paint, style.Quote(p.name)+":"+p.value(l))
		case filterProp:
			filter = p.value(l)
		}
	}

	var sb strings.Builder
	sb.WriteString(`{"id":` + style.Quote(id) + `,"type":` + style.Quote(kind))
	if source != "" {
		sb.WriteString(`,"source":` + source)
	}
	if sourceLayer != "" {
		sb.WriteString(`,"source-layer":` + style.Quote(sourceLayer))
	}
	sb.WriteString(`,"layout":{` + strings.Join(layout, ",") + `}`)
	sb.WriteString(`,"paint":{` + strings.Join(paint, ",") + `}`)
	if filter != "" {
		sb.WriteString(`,"filter":` + filter)
	}
	sb.WriteByte('}')
	return sb.String()
}

// emit sends the update command for one property of an attached layer.
func emit[L Layer](l L, ps properties[L], name string) {
	b := l.layer()
	if b.m == nil {
		return
	}
	p, ok := ps.lookup(name)
	if !ok {
		return
	}
	b.m.exec(propertyScript(p.kind, b.id, name, p.value(l)))
}

type layerBase struct {
	id         string
	m          *Map
	visibility style.Visibility
}

func (b *layerBase) ID() string                   { return b.id }
func (b *layerBase) Map() *Map                    { return b.m }
func (b *layerBase) Visibility() style.Visibility { return b.visibility }
func (b *layerBase) layer() *layerBase            { return b }

func (b *layerBase) SetVisibility(v style.Visibility) {
	if b.visibility == v {
		return
	}
	b.visibility = v
	if b.m != nil {
		b.m.exec(propertyScript(layoutProp, b.id, "visibility", v.JSON()))
	}
}

func (b *layerBase) attach(m *Map) {
	if b.id == "" {
		b.id = m.NextID("layer")
	}
	b.m = m
}

func (b *layerBase) detach() { b.m = nil }

func visibilityProperty[L Layer]() property[L] {
	return property[L]{
		name:  "visibility",
		kind:  layoutProp,
		value: func(l L) string { return l.Visibility().JSON() },
	}
}

func filterProperty[L any](filter func(L) string) property[L] {
	return property[L]{
		name: "filter",
		kind: filterProp,
		value: func(l L) string {
			if f := filter(l); f != "" {
				return style.String(f)
			}
			return "null"
		},
		omit: func(l L) bool { return filter(l) == "" },
	}
}

// sourced is embedded by layers drawing from a registered source.
type sourced struct {
	src         Source
	sourceLayer string
}

// Source returns the source the layer draws from.
func (s *sourced) Source() Source { return s.src }

// SourceLayer returns the layer name inside a vector tile source.
func (s *sourced) SourceLayer() string { return s.sourceLayer }

// SetSourceLayer names the layer to draw inside a vector tile source. It
// only takes effect when the layer is next created.
func (s *sourced) SetSourceLayer(name string) { s.sourceLayer = name }

func (s *sourced) sourceRef() string {
	if s.src == nil {
		return ""
	}
	return style.Quote(s.src.ID())
}
