package api

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-map/internal/db"
	"github.com/joeblew999/plat-map/internal/geo"
	"github.com/joeblew999/plat-map/internal/mapview"
	"github.com/joeblew999/plat-map/internal/service"
	"github.com/joeblew999/plat-map/internal/style"
)

// SourceInfo describes a source registered with the map.
type SourceInfo struct {
	ID       string `json:"id" doc:"Renderer source ID"`
	Type     string `json:"type" doc:"Source kind" enum:"geojson,vector,image"`
	Features int    `json:"features,omitempty" doc:"Feature count for geojson sources"`
}

// LayerInfo describes a layer registered with the map.
type LayerInfo struct {
	ID      string `json:"id" doc:"Renderer layer ID"`
	Type    string `json:"type" doc:"Layer kind" enum:"symbol,line,fill,circle,raster"`
	Source  string `json:"source,omitempty" doc:"Source ID, empty for inline sources"`
	Visible bool   `json:"visible" doc:"Layout visibility"`
}

// MapStateBody is a snapshot of the map controller.
type MapStateBody struct {
	Loaded  bool                  `json:"loaded" doc:"A page has loaded in the runtime"`
	Ready   bool                  `json:"ready" doc:"The renderer has reported map-loaded"`
	Pages   int                   `json:"pages" doc:"Connected pages"`
	Camera  mapview.CameraOptions `json:"camera" doc:"Mirrored camera"`
	Sources []SourceInfo          `json:"sources"`
	Layers  []LayerInfo           `json:"layers"`
}

type CameraInput struct {
	Body struct {
		Camera    mapview.CameraOptions `json:"camera" doc:"Fields to change; omitted fields keep their value"`
		Animation string                `json:"animation,omitempty" enum:"jump,ease,fly" doc:"Animation type"`
		Duration  int                   `json:"duration,omitempty" minimum:"0" doc:"Animation duration in milliseconds"`
	}
}

type CameraOutput struct {
	Body mapview.CameraOptions
}

type CenterInput struct {
	Body geo.Position
}

type ZoomInput struct {
	Body struct {
		Zoom float64 `json:"zoom" minimum:"0" exclusiveMaximum:"25" doc:"Zoom level"`
	}
}

type PixelOutput struct {
	Body mapview.Pixel
}

type PositionOutput struct {
	Body geo.Position
}

type MapSourceID struct {
	ID string `path:"id" doc:"Renderer source ID" example:"parcels"`
}

type MapLayerID struct {
	ID string `path:"id" doc:"Renderer layer ID" example:"parcels-fill"`
}

type AddSourceInput struct {
	Body struct {
		ID   string `json:"id,omitempty" doc:"Source ID, derived from the file name when empty"`
		File string `json:"file" minLength:"1" doc:"GeoJSON file under sources/ or PMTiles file under tiles/"`
	}
}

type QuerySourceInput struct {
	Body struct {
		ID             string `json:"id" minLength:"1" doc:"Source ID; an existing geojson source is replaced in place"`
		Query          string `json:"query" minLength:"1" doc:"SQL returning a geometry column"`
		GeometryColumn string `json:"geometryColumn,omitempty" doc:"Geometry column name" default:"geometry"`
	}
}

type VisibilityInput struct {
	MapLayerID
	Body struct {
		Visible bool `json:"visible"`
	}
}

type AppliedBody struct {
	Layers []LayerInfo `json:"layers" doc:"Layers added to the map"`
}

// RegisterMap registers the live map controller routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	tags := huma.OperationTags("map")
	huma.Get(api, "/api/v1/map", h.GetMap, tags)
	huma.Get(api, "/api/v1/map/camera", h.GetCamera, tags)
	huma.Put(api, "/api/v1/map/camera", h.PutCamera, tags)
	huma.Put(api, "/api/v1/map/center", h.PutCenter, tags)
	huma.Put(api, "/api/v1/map/zoom", h.PutZoom, tags)
	huma.Post(api, "/api/v1/map/project", h.Project, tags)
	huma.Post(api, "/api/v1/map/unproject", h.Unproject, tags)
	huma.Post(api, "/api/v1/map/clear", h.ClearMap, tags)

	huma.Get(api, "/api/v1/map/sources", h.GetMapSources, tags)
	huma.Post(api, "/api/v1/map/sources", h.AddMapSource, tags)
	huma.Post(api, "/api/v1/map/sources/query", h.QueryMapSource, huma.OperationTags("map", "db"))
	huma.Delete(api, "/api/v1/map/sources/{id}", h.RemoveMapSource, tags)

	huma.Get(api, "/api/v1/map/layers", h.GetMapLayers, tags)
	huma.Put(api, "/api/v1/map/layers/{id}/visibility", h.PutLayerVisibility, tags)
	huma.Delete(api, "/api/v1/map/layers/{id}", h.RemoveMapLayer, tags)
}

func (h *APIHandler) GetMap(ctx context.Context, input *struct{}) (*struct{ Body MapStateBody }, error) {
	var body MapStateBody
	err := h.withMap(ctx, func(m *mapview.Map) {
		body = MapStateBody{
			Loaded:  m.Loaded(),
			Ready:   m.Ready(),
			Camera:  m.Camera(),
			Sources: sourceInfos(m),
			Layers:  layerInfos(m),
		}
	})
	if err != nil {
		return nil, err
	}
	if h.svc.Runtime != nil {
		body.Pages = h.svc.Runtime.Pages()
	}
	return &struct{ Body MapStateBody }{Body: body}, nil
}

func (h *APIHandler) GetCamera(ctx context.Context, input *struct{}) (*CameraOutput, error) {
	var out CameraOutput
	if err := h.withMap(ctx, func(m *mapview.Map) { out.Body = m.Camera() }); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *APIHandler) PutCamera(ctx context.Context, input *CameraInput) (*CameraOutput, error) {
	var anim *mapview.AnimationOptions
	if input.Body.Animation != "" {
		t, ok := style.ParseAnimationType(input.Body.Animation)
		if !ok {
			return nil, huma.Error422UnprocessableEntity("unknown animation " + input.Body.Animation)
		}
		anim = &mapview.AnimationOptions{
			Type:     t,
			Duration: time.Duration(input.Body.Duration) * time.Millisecond,
		}
	}
	var out CameraOutput
	err := h.withMap(ctx, func(m *mapview.Map) {
		m.SetCamera(input.Body.Camera, anim)
		out.Body = m.Camera()
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *APIHandler) PutCenter(ctx context.Context, input *CenterInput) (*CameraOutput, error) {
	var out CameraOutput
	err := h.withMap(ctx, func(m *mapview.Map) {
		m.SetCenter(input.Body)
		out.Body = m.Camera()
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *APIHandler) PutZoom(ctx context.Context, input *ZoomInput) (*CameraOutput, error) {
	var out CameraOutput
	err := h.withMap(ctx, func(m *mapview.Map) {
		m.SetZoom(input.Body.Zoom)
		out.Body = m.Camera()
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *APIHandler) Project(ctx context.Context, input *CenterInput) (*PixelOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, h.svc.EvalTimeout)
	defer cancel()

	if h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("map not available")
	}
	px, ok, err := h.svc.Map.Project(ctx, input.Body)
	if err != nil {
		return nil, huma.NewError(http.StatusServiceUnavailable, "map unavailable", err)
	}
	if !ok {
		return nil, huma.Error503ServiceUnavailable("renderer did not answer")
	}
	return &PixelOutput{Body: px}, nil
}

func (h *APIHandler) Unproject(ctx context.Context, input *struct{ Body mapview.Pixel }) (*PositionOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, h.svc.EvalTimeout)
	defer cancel()

	if h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("map not available")
	}
	pos, ok, err := h.svc.Map.Unproject(ctx, input.Body)
	if err != nil {
		return nil, huma.NewError(http.StatusServiceUnavailable, "map unavailable", err)
	}
	if !ok {
		return nil, huma.Error503ServiceUnavailable("renderer did not answer")
	}
	return &PositionOutput{Body: pos}, nil
}

func (h *APIHandler) ClearMap(ctx context.Context, input *struct{}) (*struct{ Body MessageBody }, error) {
	if err := h.withMap(ctx, func(m *mapview.Map) { m.Clear() }); err != nil {
		return nil, err
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Map cleared"}}, nil
}

func (h *APIHandler) GetMapSources(ctx context.Context, input *struct{}) (*struct{ Body []SourceInfo }, error) {
	var out []SourceInfo
	if err := h.withMap(ctx, func(m *mapview.Map) { out = sourceInfos(m) }); err != nil {
		return nil, err
	}
	return &struct{ Body []SourceInfo }{Body: out}, nil
}

func (h *APIHandler) AddMapSource(ctx context.Context, input *AddSourceInput) (*struct{ Body SourceInfo }, error) {
	file := input.Body.File
	id := input.Body.ID
	if id == "" {
		id = service.SourceID(file)
	}

	var src mapview.Source
	switch {
	case service.IsTileFile(file):
		if h.svc.Tile == nil {
			return nil, huma.Error503ServiceUnavailable("tile store not available")
		}
		vs, err := h.svc.Tile.VectorSource(id, file, h.svc.BaseURL)
		if err != nil {
			return nil, sourceError(err)
		}
		src = vs
	default:
		if h.svc.Source == nil {
			return nil, huma.Error503ServiceUnavailable("source store not available")
		}
		gs, err := h.svc.Source.GeoJSONSource(id, file)
		if err != nil {
			return nil, sourceError(err)
		}
		src = gs
	}

	var (
		info  SourceInfo
		taken bool
	)
	err := h.withMap(ctx, func(m *mapview.Map) {
		if _, ok := m.Source(id); ok {
			taken = true
			return
		}
		m.Sources().Add(src)
		info = sourceInfo(src)
	})
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, huma.Error409Conflict("source " + id + " already on the map")
	}
	return &struct{ Body SourceInfo }{Body: info}, nil
}

func (h *APIHandler) QueryMapSource(ctx context.Context, input *QuerySourceInput) (*struct{ Body SourceInfo }, error) {
	if h.svc.DB == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	features, err := db.QueryFeatures(ctx, h.svc.DB, input.Body.Query, input.Body.GeometryColumn)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}

	var (
		info     SourceInfo
		conflict bool
	)
	err = h.withMap(ctx, func(m *mapview.Map) {
		existing, ok := m.Source(input.Body.ID)
		if !ok {
			src := mapview.NewGeoJSONSource(input.Body.ID, features...)
			m.Sources().Add(src)
			info = sourceInfo(src)
			return
		}
		gs, isGeoJSON := existing.(*mapview.GeoJSONSource)
		if !isGeoJSON {
			conflict = true
			return
		}
		gs.Set(features...)
		info = sourceInfo(gs)
	})
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, huma.Error409Conflict("source " + input.Body.ID + " is not a geojson source")
	}
	return &struct{ Body SourceInfo }{Body: info}, nil
}

func (h *APIHandler) RemoveMapSource(ctx context.Context, input *MapSourceID) (*struct{ Body MessageBody }, error) {
	var found bool
	err := h.withMap(ctx, func(m *mapview.Map) {
		src, ok := m.Source(input.ID)
		if !ok {
			return
		}
		found = true
		// layers drawing from the source go first
		for _, l := range m.Layers().Items() {
			if l.Source() == src {
				m.Layers().Remove(l)
			}
		}
		m.Sources().Remove(src)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, huma.Error404NotFound("source not on the map")
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Source removed"}}, nil
}

func (h *APIHandler) GetMapLayers(ctx context.Context, input *struct{}) (*struct{ Body []LayerInfo }, error) {
	var out []LayerInfo
	if err := h.withMap(ctx, func(m *mapview.Map) { out = layerInfos(m) }); err != nil {
		return nil, err
	}
	return &struct{ Body []LayerInfo }{Body: out}, nil
}

func (h *APIHandler) PutLayerVisibility(ctx context.Context, input *VisibilityInput) (*struct{ Body LayerInfo }, error) {
	var (
		info  LayerInfo
		found bool
	)
	err := h.withMap(ctx, func(m *mapview.Map) {
		l, ok := m.Layer(input.ID)
		if !ok {
			return
		}
		found = true
		v := style.Hidden
		if input.Body.Visible {
			v = style.Visible
		}
		l.SetVisibility(v)
		info = layerInfo(l)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, huma.Error404NotFound("layer not on the map")
	}
	return &struct{ Body LayerInfo }{Body: info}, nil
}

func (h *APIHandler) RemoveMapLayer(ctx context.Context, input *MapLayerID) (*struct{ Body MessageBody }, error) {
	var found bool
	err := h.withMap(ctx, func(m *mapview.Map) {
		if l, ok := m.Layer(input.ID); ok {
			found = m.Layers().Remove(l) == 1
		}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, huma.Error404NotFound("layer not on the map")
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Layer removed"}}, nil
}

// ApplyLayer renders a stored layer config onto the live map. The config's
// source names a GeoJSON file under sources/ or a PMTiles file under tiles/;
// the matching map source is reused when already present.
func (h *APIHandler) ApplyLayer(ctx context.Context, input *IDInput) (*struct{ Body AppliedBody }, error) {
	if h.svc.Layer == nil {
		return nil, huma.Error503ServiceUnavailable("layer store not available")
	}
	cfg, ok := h.svc.Layer.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("layer not found")
	}

	srcID := service.SourceID(cfg.Source)
	var present mapview.Source
	if err := h.withMap(ctx, func(m *mapview.Map) { present, _ = m.Source(srcID) }); err != nil {
		return nil, err
	}

	src := present
	if src == nil {
		var err error
		switch {
		case service.IsTileFile(cfg.Source) && h.svc.Tile != nil:
			src, err = h.svc.Tile.VectorSource(srcID, cfg.Source, h.svc.BaseURL)
		case h.svc.Source != nil:
			src, err = h.svc.Source.GeoJSONSource(srcID, cfg.Source)
		default:
			err = errors.New("no store for source " + cfg.Source)
		}
		if err != nil {
			return nil, sourceError(err)
		}
	}

	layers, err := service.BuildLayers(cfg, src)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	var (
		body     AppliedBody
		buildErr error
	)
	err = h.withMap(ctx, func(m *mapview.Map) {
		body.Layers, buildErr = attachLayers(m, cfg, src, layers)
	})
	if err != nil {
		return nil, err
	}
	if buildErr != nil {
		return nil, huma.Error422UnprocessableEntity(buildErr.Error())
	}
	return &struct{ Body AppliedBody }{Body: body}, nil
}

// attachLayers replaces the map's layers of the same ids with layers. When
// a source with src's id was attached since layers were built, for example
// by a concurrent apply, the layers are rebuilt over that source instead so
// the map never holds two sources with one id. Runs on the owner goroutine.
func attachLayers(m *mapview.Map, cfg service.LayerConfig, src mapview.Source, layers []mapview.Layer) ([]LayerInfo, error) {
	if cur, ok := m.Source(src.ID()); ok && cur != src {
		var err error
		if layers, err = service.BuildLayers(cfg, cur); err != nil {
			return nil, err
		}
	}
	var out []LayerInfo
	for _, l := range layers {
		if old, ok := m.Layer(l.ID()); ok {
			m.Layers().Remove(old)
		}
		m.Layers().Add(l)
		out = append(out, layerInfo(l))
	}
	return out, nil
}

func sourceError(err error) error {
	switch {
	case errors.Is(err, service.ErrBadFileName):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, fs.ErrNotExist):
		return huma.Error404NotFound(err.Error())
	}
	return huma.Error422UnprocessableEntity(err.Error())
}

func sourceInfos(m *mapview.Map) []SourceInfo {
	out := []SourceInfo{}
	for _, s := range m.Sources().Items() {
		out = append(out, sourceInfo(s))
	}
	return out
}

func sourceInfo(s mapview.Source) SourceInfo {
	info := SourceInfo{ID: s.ID()}
	switch s := s.(type) {
	case *mapview.GeoJSONSource:
		info.Type = "geojson"
		info.Features = s.Len()
	case *mapview.VectorSource:
		info.Type = "vector"
	case *mapview.ImageSource:
		info.Type = "image"
	}
	return info
}

func layerInfos(m *mapview.Map) []LayerInfo {
	out := []LayerInfo{}
	for _, l := range m.Layers().Items() {
		out = append(out, layerInfo(l))
	}
	return out
}

func layerInfo(l mapview.Layer) LayerInfo {
	info := LayerInfo{ID: l.ID(), Visible: l.Visibility() == style.Visible}
	if src := l.Source(); src != nil {
		info.Source = src.ID()
	}
	switch l.(type) {
	case *mapview.SymbolLayer:
		info.Type = "symbol"
	case *mapview.LineLayer:
		info.Type = "line"
	case *mapview.FillLayer:
		info.Type = "fill"
	case *mapview.BubbleLayer:
		info.Type = "circle"
	case *mapview.ImageLayer:
		info.Type = "raster"
	}
	return info
}
