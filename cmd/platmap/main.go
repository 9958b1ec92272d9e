package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-map/internal/db"
	"github.com/joeblew999/plat-map/internal/scene"
	"github.com/joeblew999/plat-map/internal/server"
)

// Options defines all CLI flags and env vars for the map server.
// Flags: --host, --port, --data-dir, --access-key, --scene, --verbose
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_ACCESS_KEY, ...
type Options struct {
	Host      string `doc:"Host to bind to" default:"0.0.0.0"`
	Port      int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir   string `doc:"Directory holding sources/, tiles/ and layers.json" default:".data"`
	AccessKey string `doc:"Renderer access key; for MapLibre the style URL"`
	Scene     string `doc:"YAML scene file seeding the camera, sources and layers"`
	NoDB      bool   `doc:"Run without DuckDB"`
	Verbose   int    `doc:"Log verbosity" default:"0"`
}

func newLogger(opts *Options) logr.Logger {
	stdr.SetVerbosity(opts.Verbose)
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName("platmap")
}

// newServer builds the server. The returned connection is nil without a
// database.
func newServer(opts *Options, logger logr.Logger, withState bool) (*server.Server, *sql.DB, error) {
	cfg := server.Config{
		Host:      opts.Host,
		Port:      strconv.Itoa(opts.Port),
		DataDir:   opts.DataDir,
		AccessKey: opts.AccessKey,
		Log:       logger,
	}
	if !withState {
		srv, err := server.New(cfg)
		return srv, nil, err
	}

	if !opts.NoDB {
		conn, err := db.Get(db.Config{DataDir: opts.DataDir, DBName: "map", Log: logger.WithName("db")})
		if err != nil {
			logger.Error(err, "duckdb unavailable, continuing without it")
		} else {
			cfg.DB = conn
		}
	}
	if opts.Scene != "" {
		sc, err := scene.Load(opts.Scene)
		if err != nil {
			return nil, cfg.DB, err
		}
		cfg.Scene = sc
	}
	srv, err := server.New(cfg)
	return srv, cfg.DB, err
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		hooks.OnStart(func() {
			logger := newLogger(opts)
			srv, conn, err := newServer(opts, logger, true)
			if conn != nil {
				defer db.Close()
			}
			if err != nil {
				logger.Error(err, "startup failed")
				os.Exit(1)
			}
			defer srv.Close()

			baseURL := srv.BaseURL()
			fmt.Println()
			fmt.Printf("plat-map server starting...\n")
			fmt.Printf("  Map:     %s/\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.Run(ctx); err != nil {
				logger.Error(err, "server stopped")
				os.Exit(1)
			}
		})
	})

	cli.Root().Use = "platmap"
	cli.Root().Short = "Host-driven web map: camera, sources and layers over a script bridge"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, _, err := newServer(opts, logr.Discard(), false)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error building server: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// check subcommand: validate a scene file without serving
	checkCmd := &cobra.Command{
		Use:   "check <scene.yaml>",
		Short: "Validate a scene file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			sc, err := scene.Load(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}
			fmt.Printf("%s: %d sources, %d layers\n", args[0], len(sc.Sources), len(sc.Layers))
		},
	}
	cli.Root().AddCommand(checkCmd)

	cli.Run()
}
