package mapview

import (
	"time"

	"github.com/joeblew999/plat-map/internal/geo"
	"github.com/joeblew999/plat-map/internal/style"
)

// ImageLayer renders an image stretched over four corner positions. It
// carries its own inline image source, which the renderer registers under
// the layer's id.
type ImageLayer struct {
	layerBase
	url          string
	corners      *geo.Path
	unsub        func()
	fadeDuration time.Duration
	opacity      float64
}

// NewImageLayer creates an image layer. image may be a URL, a data URI or
// raw SVG markup; corners run top-left, top-right, bottom-right, bottom-left.
func NewImageLayer(id, image string, corners *geo.Path) *ImageLayer {
	l := &ImageLayer{
		layerBase:    layerBase{id: id},
		url:          imageURL(image),
		fadeDuration: 300 * time.Millisecond,
		opacity:      1,
	}
	l.SetCorners(corners)
	return l
}

var imageProperties = properties[*ImageLayer]{
	visibilityProperty[*ImageLayer](),
	{name: "raster-fade-duration", kind: paintProp, value: func(l *ImageLayer) string { return style.Millis(l.fadeDuration) }},
	{name: "raster-opacity", kind: paintProp, value: func(l *ImageLayer) string { return style.Number(l.opacity) }},
}

// Source returns nil: the image source is inline.
func (l *ImageLayer) Source() Source { return nil }

func (l *ImageLayer) Definition() string {
	return imageProperties.definition(l, l.id, "raster", imageSourceJSON(l.url, l.corners), "")
}

func (l *ImageLayer) PropertyValue(name string) (string, bool) {
	return imageProperties.value(l, name)
}

// URL returns the image URL as sent to the renderer.
func (l *ImageLayer) URL() string { return l.url }

// Corners returns the corner path. Mutating it repositions the image.
func (l *ImageLayer) Corners() *geo.Path { return l.corners }

// SetCorners replaces the corner path.
func (l *ImageLayer) SetCorners(corners *geo.Path) {
	if corners == nil {
		corners = geo.NewPath()
	}
	if l.unsub != nil {
		l.unsub()
	}
	l.corners = corners
	l.unsub = corners.Subscribe(l.cornersChanged)
	l.cornersChanged()
}

func (l *ImageLayer) cornersChanged() {
	if l.m != nil {
		l.m.exec(setCoordinatesScript(l.id, l.corners.ToJSON(false)))
	}
}

func (l *ImageLayer) FadeDuration() time.Duration { return l.fadeDuration }

func (l *ImageLayer) SetFadeDuration(d time.Duration) {
	if l.fadeDuration == d {
		return
	}
	l.fadeDuration = d
	emit(l, imageProperties, "raster-fade-duration")
}

func (l *ImageLayer) Opacity() float64 { return l.opacity }

// SetOpacity sets the image opacity, clamped to [0,1].
func (l *ImageLayer) SetOpacity(v float64) {
	v = clamp01(v)
	if l.opacity == v {
		return
	}
	l.opacity = v
	emit(l, imageProperties, "raster-opacity")
}

// inlineSourceID names the source the renderer created for this layer.
func (l *ImageLayer) inlineSourceID() string { return l.id }
