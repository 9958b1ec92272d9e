package mapview

import (
	"encoding/base64"
	"strings"

	"github.com/joeblew999/plat-map/internal/geo"
	"github.com/joeblew999/plat-map/internal/style"
)

// ImageSource drapes an image over four corner positions: top-left,
// top-right, bottom-right, bottom-left.
type ImageSource struct {
	sourceBase
	url     string
	corners *geo.Path
	unsub   func()
}

// NewImageSource creates an image source. image may be a URL, a data URI or
// raw SVG markup.
func NewImageSource(id, image string, corners *geo.Path) *ImageSource {
	s := &ImageSource{sourceBase: sourceBase{id: id}, url: imageURL(image)}
	s.SetCorners(corners)
	return s
}

// URL returns the image URL as sent to the renderer.
func (s *ImageSource) URL() string { return s.url }

// Corners returns the corner path. Mutating it repositions the image.
func (s *ImageSource) Corners() *geo.Path { return s.corners }

// SetCorners replaces the corner path.
func (s *ImageSource) SetCorners(corners *geo.Path) {
	if corners == nil {
		corners = geo.NewPath()
	}
	if s.unsub != nil {
		s.unsub()
	}
	s.corners = corners
	s.unsub = corners.Subscribe(s.cornersChanged)
	s.cornersChanged()
}

func (s *ImageSource) cornersChanged() {
	if s.m != nil {
		s.exec(setCoordinatesScript(s.id, s.corners.ToJSON(false)))
	}
}

func (s *ImageSource) Definition() (string, error) {
	return imageSourceJSON(s.url, s.corners), nil
}

func imageSourceJSON(url string, corners *geo.Path) string {
	return `{"type":"image","url":` + style.Quote(url) + `,"coordinates":` + corners.ToJSON(false) + `}`
}

// imageURL turns inline SVG markup into a base64 data URI and leaves every
// other reference untouched.
func imageURL(image string) string {
	if strings.Contains(image, "<svg") && !strings.HasPrefix(image, "data:") {
		return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(image))
	}
	return image
}
