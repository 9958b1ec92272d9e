package mapview

import (
	"context"
	"errors"

	"github.com/joeblew999/plat-map/internal/bridge"
	"github.com/joeblew999/plat-map/internal/geo"
)

// Pixel is a point in screen coordinates relative to the map container.
type Pixel struct {
	X float64 `json:"x" mapstructure:"x"`
	Y float64 `json:"y" mapstructure:"y"`
}

type lngLat struct {
	Lng float64 `mapstructure:"lng"`
	Lat float64 `mapstructure:"lat"`
}

// PositionToPixel asks the renderer where pos is drawn. ok is false when
// the renderer gives no usable answer. It must run on the owning goroutine
// and holds it until the renderer answers; use Project from elsewhere.
func (m *Map) PositionToPixel(ctx context.Context, pos geo.Position) (px Pixel, ok bool) {
	if m.disposed {
		return Pixel{}, false
	}
	return m.positionToPixel(ctx, pos)
}

// PixelToPosition asks the renderer which position is drawn at px. ok is
// false when the renderer gives no usable answer. It must run on the owning
// goroutine; use Unproject from elsewhere.
func (m *Map) PixelToPosition(ctx context.Context, px Pixel) (pos geo.Position, ok bool) {
	if m.disposed {
		return geo.Position{}, false
	}
	return m.pixelToPosition(ctx, px)
}

// Project is PositionToPixel for callers on any goroutine. Only the
// disposal check runs on the owner; the evaluation does not hold the queue,
// so several queries may be outstanding at once. The error is non-nil when
// the owner could not be reached.
func (m *Map) Project(ctx context.Context, pos geo.Position) (Pixel, bool, error) {
	if err := m.checkOpen(ctx); err != nil {
		return Pixel{}, false, err
	}
	px, ok := m.positionToPixel(ctx, pos)
	return px, ok, nil
}

// Unproject is PixelToPosition for callers on any goroutine.
func (m *Map) Unproject(ctx context.Context, px Pixel) (geo.Position, bool, error) {
	if err := m.checkOpen(ctx); err != nil {
		return geo.Position{}, false, err
	}
	pos, ok := m.pixelToPosition(ctx, px)
	return pos, ok, nil
}

// ErrDisposed is returned by Project and Unproject after Close.
var ErrDisposed = errors.New("map disposed")

func (m *Map) checkOpen(ctx context.Context) error {
	var disposed bool
	if err := m.Invoke(ctx, func(m *Map) { disposed = m.disposed }); err != nil {
		return err
	}
	if disposed {
		return ErrDisposed
	}
	return nil
}

// m.ch and m.log are fixed at construction, so these may run off the owner.
func (m *Map) positionToPixel(ctx context.Context, pos geo.Position) (px Pixel, ok bool) {
	res := m.ch.Eval(ctx, projectScript(pos.ToJSON()), nil)
	if res == nil {
		return Pixel{}, false
	}
	if err := bridge.Decode(res, &px); err != nil {
		m.log.V(1).Info("project: unusable result", "error", err.Error())
		return Pixel{}, false
	}
	return px, true
}

func (m *Map) pixelToPosition(ctx context.Context, px Pixel) (pos geo.Position, ok bool) {
	res := m.ch.Eval(ctx, unprojectScript(px.X, px.Y), nil)
	if res == nil {
		return geo.Position{}, false
	}
	var ll lngLat
	if err := bridge.Decode(res, &ll); err != nil {
		m.log.V(1).Info("unproject: unusable result", "error", err.Error())
		return geo.Position{}, false
	}
	return geo.NewPosition(ll.Lng, ll.Lat), true
}
