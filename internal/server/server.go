// Package server assembles the HTTP surface: the Huma REST API, the page
// hosting the renderer, tile files and metrics.
package server

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/joeblew999/plat-map/internal/api"
	"github.com/joeblew999/plat-map/internal/bridge"
	"github.com/joeblew999/plat-map/internal/browser"
	"github.com/joeblew999/plat-map/internal/mapview"
	"github.com/joeblew999/plat-map/internal/metrics"
	"github.com/joeblew999/plat-map/internal/scene"
	"github.com/joeblew999/plat-map/internal/service"
)

//go:embed web/index.html
var indexHTML []byte

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	// AccessKey is handed to the page's GetMap; for MapLibre it is the
	// style URL.
	AccessKey string
	// Scene, when set, seeds the map's camera, sources and layers.
	Scene *scene.Scene
	// DB is optional; query-backed sources and /api/v1/query need it.
	DB          *sql.DB
	Registry    *prometheus.Registry
	EvalTimeout time.Duration
	Log         logr.Logger
}

// Server is the map HTTP server.
type Server struct {
	config   Config
	log      logr.Logger
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	services *api.Services
	runtime  *browser.Runtime
	mapView  *mapview.Map
	metrics  *metrics.Metrics
}

// New creates a new map server. It fails only when the scene cannot be
// built.
func New(cfg Config) (*Server, error) {
	log := cfg.Log
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-map API", "1.0.0")
	humaConfig.Info.Description = "Drive a hosted web map: camera, sources and layers, with the page bridge and script stream."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())
	humaAPI := humago.New(mux, humaConfig)

	met := metrics.New(cfg.Registry)
	rt := browser.New(
		browser.WithLogger(log.WithName("browser")),
		browser.WithPageObserver(met.PageConnected),
	)
	ch := bridge.NewChannel(rt, bridge.WithLogger(log.WithName("bridge")), bridge.WithObserver(met))

	s := &Server{
		config:  cfg,
		log:     log,
		mux:     mux,
		humaAPI: humaAPI,
		runtime: rt,
		metrics: met,
	}
	s.services = &api.Services{
		Layer:       service.NewLayerService(cfg.DataDir, log.WithName("layers")),
		Tile:        service.NewTileService(cfg.DataDir),
		Source:      service.NewSourceService(cfg.DataDir, log.WithName("sources")),
		DB:          cfg.DB,
		Runtime:     rt,
		BaseURL:     s.BaseURL(),
		EvalTimeout: cfg.EvalTimeout,
		Log:         log.WithName("api"),
	}

	opts := []mapview.Option{
		mapview.WithLogger(log.WithName("map")),
		mapview.WithAccessKey(cfg.AccessKey),
	}
	var plan *scene.Plan
	if cfg.Scene != nil {
		var err error
		plan, err = cfg.Scene.Build(context.Background(), scene.Loader{
			Sources: s.services.Source,
			Tiles:   s.services.Tile,
			DB:      cfg.DB,
			BaseURL: s.BaseURL(),
		})
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("build scene: %w", err)
		}
		opts = append(opts, mapview.WithCamera(plan.Camera))
	}
	s.mapView = mapview.New(ch, opts...)
	if plan != nil {
		// nothing runs the map yet, so this goroutine owns it
		plan.Apply(s.mapView)
		log.Info("scene applied", "sources", len(plan.Sources), "layers", len(plan.Layers))
	}
	s.services.Map = s.mapView

	s.routes()
	s.handler = met.Middleware(mux)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Map returns the map controller. Touch it only through Map.Invoke or
// Map.Do once Run has started.
func (s *Server) Map() *mapview.Map { return s.mapView }

// Runtime returns the browser runtime pages connect to.
func (s *Server) Runtime() *browser.Runtime { return s.runtime }

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI { return s.humaAPI.OpenAPI() }

// Addr is the listen address.
func (s *Server) Addr() string { return s.config.Host + ":" + s.config.Port }

// BaseURL is where pages reach the server.
func (s *Server) BaseURL() string {
	host := s.config.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%s", host, s.config.Port)
}

// Run serves HTTP and runs the map's owning goroutine until ctx is done or
// either fails.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.Addr(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.mapView.Run(ctx)
	})
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		// streams never finish on their own; closing the runtime ends them
		s.runtime.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases the runtime and the map. Call it after Run returns.
func (s *Server) Close() {
	s.runtime.Close()
	s.mapView.Close()
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)

	s.mux.Handle("/metrics", s.metrics.Handler())

	tilesDir := filepath.Join(s.config.DataDir, "tiles")
	s.mux.Handle("/tiles/", http.StripPrefix("/tiles/", s.handleTiles(tilesDir)))

	s.mux.HandleFunc("/", s.handleRoot)
}

// handleRoot serves the page hosting the renderer.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleTiles(tilesDir string) http.Handler {
	files := http.FileServer(http.Dir(tilesDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
