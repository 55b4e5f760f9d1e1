// Command unwrapctl unwraps mesh files against a persistent unwrap cache and
// inspects or deletes stored cache blobs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meigma/unwrap"
	"github.com/meigma/unwrap/core/cache"
	"github.com/meigma/unwrap/core/cache/badger"
	"github.com/meigma/unwrap/core/cache/disk"
	unwraphttp "github.com/meigma/unwrap/core/cache/http"
)

const defaultConfigPath = "unwrapctl.yaml"

// statStore is implemented by the disk, badger and http stores.
type statStore interface {
	cache.Store
	Stat(key string) (cache.Info, bool, error)
}

type flags struct {
	configPath string
	backend    string
	path       string
	key        string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Printf("unwrapctl: %v", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop is called above
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("unwrapctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f flags
	fs.StringVar(&f.configPath, "config", defaultConfigPath, "YAML config file")
	fs.StringVar(&f.backend, "backend", "", "store backend: disk, badger or http (overrides config)")
	fs.StringVar(&f.path, "path", "", "store directory, or base URL for http (overrides config)")
	fs.StringVar(&f.key, "key", "", "store key for unwrap (defaults to the mesh path)")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: unwrapctl [flags] unwrap <mesh.json> | inspect <key> | delete <key>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return errors.New("expected a command and one argument")
	}
	cmd, arg := fs.Arg(0), fs.Arg(1)

	explicit := false
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "config" {
			explicit = true
		}
	})
	cfg, err := loadConfig(f.configPath, explicit)
	if err != nil {
		return err
	}
	applyFlags(&cfg, f)
	if err := cfg.validate(); err != nil {
		return err
	}

	level, _ := cfg.level() //nolint:errcheck // checked by validate
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()

	switch cmd {
	case "unwrap":
		key := f.key
		if key == "" {
			key = filepath.Clean(arg)
		}
		return runUnwrap(ctx, cfg, logger, store, key, arg, stdout)
	case "inspect":
		return runInspect(store, arg, stdout)
	case "delete":
		if err := store.Delete(arg); err != nil {
			return err
		}
		logger.Info("deleted cache blob", "key", arg)
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func applyFlags(cfg *config, f flags) {
	if f.backend != "" {
		cfg.Store.Backend = f.backend
	}
	if f.path != "" {
		cfg.Store.Path = f.path
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
}

func openStore(cfg config, logger *slog.Logger) (statStore, func() error, error) {
	compression, err := cfg.compression()
	if err != nil {
		return nil, nil, err
	}
	switch cfg.Store.Backend {
	case backendBadger:
		s, err := badger.Open(cfg.Store.Path,
			badger.WithCompression(compression),
			badger.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case backendHTTP:
		s, err := unwraphttp.New(cfg.Store.Path,
			unwraphttp.WithCompression(compression),
			unwraphttp.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	default:
		s, err := disk.New(cfg.Store.Path,
			disk.WithMaxBytes(cfg.Store.MaxBytes),
			disk.WithCompression(compression),
			disk.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	}
}

func runUnwrap(ctx context.Context, cfg config, logger *slog.Logger, store cache.Store, key, meshPath string, stdout io.Writer) error {
	opts := []unwrap.Option{
		unwrap.WithLogger(logger),
		unwrap.WithStore(store),
	}
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, unwrap.WithMetrics(reg))
		shutdown := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer shutdown()
	}
	c, err := unwrap.NewClient(opts...)
	if err != nil {
		return err
	}
	defer c.Close() //nolint:errcheck // store is closed by the caller

	mesh, err := readMesh(meshPath)
	if err != nil {
		return err
	}
	start := time.Now()
	res, err := c.Unwrap(ctx, key, mesh)
	if err != nil {
		return err
	}
	logger.Info("unwrapped mesh",
		"key", key,
		"fingerprint", mesh.Fingerprint().String(),
		"width", res.Width,
		"height", res.Height,
		"vertices", res.VertexCount(),
		"duration", time.Since(start),
	)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resultFile{
		Fingerprint: mesh.Fingerprint().String(),
		Width:       res.Width,
		Height:      res.Height,
		Vertices:    res.Vertices,
		UVs:         res.UVs,
		Indices:     res.Indices,
	})
}

func runInspect(store statStore, key string, stdout io.Writer) error {
	info, ok, err := store.Stat(key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no cache blob stored for %q", key)
	}
	fmt.Fprintf(stdout, "key:         %s\n", key)
	fmt.Fprintf(stdout, "version:     %d\n", info.Version)
	fmt.Fprintf(stdout, "entries:     %d\n", info.Entries)
	fmt.Fprintf(stdout, "compression: %s\n", info.Compression)
	fmt.Fprintf(stdout, "raw size:    %d\n", info.RawSize)
	fmt.Fprintf(stdout, "stored size: %d\n", info.StoredSize)
	fmt.Fprintf(stdout, "digest:      %s\n", info.Digest)
	return nil
}

// serveMetrics exposes reg on addr until the returned func is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx) //nolint:errcheck // best-effort on exit
	}
}
