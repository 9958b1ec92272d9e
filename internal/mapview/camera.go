package mapview

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joeblew999/plat-map/internal/geo"
	"github.com/joeblew999/plat-map/internal/style"
)

// CameraOptions is a viewport description. Nil fields are unset and left
// out of the serialized form rather than sent as zero.
type CameraOptions struct {
	Center  *geo.Position `json:"center,omitempty" yaml:"center,omitempty"`
	Zoom    *float64      `json:"zoom,omitempty" yaml:"zoom,omitempty"`
	MinZoom *float64      `json:"minZoom,omitempty" yaml:"minZoom,omitempty"`
	MaxZoom *float64      `json:"maxZoom,omitempty" yaml:"maxZoom,omitempty"`
	Pitch   *float64      `json:"pitch,omitempty" yaml:"pitch,omitempty"`
	Bearing *float64      `json:"bearing,omitempty" yaml:"bearing,omitempty"`
}

// AnimationOptions controls how the renderer moves to a new camera.
type AnimationOptions struct {
	Type     style.AnimationType
	Duration time.Duration
}

// Float returns a pointer to v, for filling CameraOptions.
func Float(v float64) *float64 { return &v }

// DefaultCamera is the camera a new controller starts with.
func DefaultCamera() CameraOptions {
	return CameraOptions{
		Center:  &geo.Position{},
		Zoom:    Float(1),
		MinZoom: Float(0),
		MaxZoom: Float(22),
		Pitch:   Float(0),
		Bearing: Float(0),
	}
}

// Clone returns a deep copy.
func (c CameraOptions) Clone() CameraOptions {
	out := CameraOptions{
		Zoom:    cloneFloat(c.Zoom),
		MinZoom: cloneFloat(c.MinZoom),
		MaxZoom: cloneFloat(c.MaxZoom),
		Pitch:   cloneFloat(c.Pitch),
		Bearing: cloneFloat(c.Bearing),
	}
	if c.Center != nil {
		p := *c.Center
		out.Center = &p
	}
	return out
}

// Merge overwrites the fields set in o.
func (c *CameraOptions) Merge(o CameraOptions) {
	o = o.Clone()
	if o.Center != nil {
		c.Center = o.Center
	}
	if o.Zoom != nil {
		c.Zoom = o.Zoom
	}
	if o.MinZoom != nil {
		c.MinZoom = o.MinZoom
	}
	if o.MaxZoom != nil {
		c.MaxZoom = o.MaxZoom
	}
	if o.Pitch != nil {
		c.Pitch = o.Pitch
	}
	if o.Bearing != nil {
		c.Bearing = o.Bearing
	}
}

// ToJSON renders the camera as a script object literal. anim, when not nil,
// contributes the type and duration keys first.
func (c CameraOptions) ToJSON(anim *AnimationOptions) string {
	var fields []string
	add := func(key, value string) {
		fields = append(fields, "'"+key+"':"+value)
	}
	if anim != nil {
		add("type", "'"+anim.Type.Token()+"'")
		add("duration", style.Millis(anim.Duration))
	}
	if c.Center != nil {
		add("center", c.Center.ToJSON())
	}
	for _, f := range []struct {
		key string
		v   *float64
	}{
		{"zoom", c.Zoom},
		{"minZoom", c.MinZoom},
		{"maxZoom", c.MaxZoom},
		{"pitch", c.Pitch},
		{"bearing", c.Bearing},
	} {
		if f.v != nil {
			add(f.key, style.Number(*f.v))
		}
	}
	return "{" + strings.Join(fields, ",") + "}"
}

// cameraPayload is the shape the page reports for the renderer camera.
type cameraPayload struct {
	Center  []float64 `mapstructure:"center"`
	Zoom    *float64  `mapstructure:"zoom"`
	MinZoom *float64  `mapstructure:"minZoom"`
	MaxZoom *float64  `mapstructure:"maxZoom"`
	Pitch   *float64  `mapstructure:"pitch"`
	Bearing *float64  `mapstructure:"bearing"`
}

// ParseCamera reads a camera reported by the page. center is [lon, lat].
func ParseCamera(payload map[string]any) (CameraOptions, error) {
	var p cameraPayload
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &p,
	})
	if err != nil {
		return CameraOptions{}, err
	}
	if err := dec.Decode(payload); err != nil {
		return CameraOptions{}, fmt.Errorf("decode camera: %w", err)
	}

	c := CameraOptions{
		Zoom:    p.Zoom,
		MinZoom: p.MinZoom,
		MaxZoom: p.MaxZoom,
		Pitch:   p.Pitch,
		Bearing: p.Bearing,
	}
	switch len(p.Center) {
	case 0:
	case 2:
		pos := geo.NewPosition(p.Center[0], p.Center[1])
		c.Center = &pos
	default:
		return CameraOptions{}, fmt.Errorf("camera center: want [lon,lat], got %d values", len(p.Center))
	}
	return c, nil
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Float(*v)
}
