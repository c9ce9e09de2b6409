package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	assetfs "assetserve/internal/asset/fs"
	"assetserve/internal/config"
	"assetserve/internal/engine"
	"assetserve/internal/fallback"
	"assetserve/internal/handler"
	"assetserve/internal/hub"
	"assetserve/internal/logging"
	"assetserve/internal/metrics"
	"assetserve/internal/repository/sqlite"
	"assetserve/internal/server"
	"assetserve/internal/service"
	"assetserve/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	configPath string
	root       string
	entry      string
	addr       string
	adminAddr  string
	fallback   string
	spa        string
	logLevel   string
	journal    string
	noWatch    bool
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Start the dev server",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "config file (default: search $"+config.EnvConfigPath+", ./"+config.ConfigFileName+", XDG)")
	f.StringVarP(&opts.root, "root", "r", "", "document root directory")
	f.StringVarP(&opts.entry, "entry", "e", "", "entry asset relative to the root (default: the root directory)")
	f.StringVarP(&opts.addr, "addr", "a", "", "listen address (default "+server.DefaultAddr+")")
	f.StringVar(&opts.adminAddr, "admin-addr", "", "admin listen address, - to disable (default "+config.DefaultAdminAddr+")")
	f.StringVar(&opts.fallback, "fallback", "", "file served for every unmatched path")
	f.StringVar(&opts.spa, "spa", "", "file served for unmatched extension-less paths")
	f.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn, error or none")
	f.StringVar(&opts.journal, "journal", "", "request journal database")
	f.BoolVar(&opts.noWatch, "no-watch", false, "do not watch the root for changes")
	return cmd
}

// load reads the config file and applies the flags that were set
func (o *serveOptions) load(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("root", &cfg.Root, o.root)
	set("entry", &cfg.Entry, o.entry)
	set("addr", &cfg.Addr, o.addr)
	set("admin-addr", &cfg.AdminAddr, o.adminAddr)
	set("log-level", &cfg.LogLevel, o.logLevel)
	set("journal", &cfg.Journal, o.journal)
	if flags.Changed("fallback") {
		cfg.Fallback = config.FallbackConfig{Mode: config.FallbackStatic, File: o.fallback}
	}
	if flags.Changed("spa") {
		cfg.Fallback = config.FallbackConfig{Mode: config.FallbackSPA, File: o.spa}
	}
	if o.noWatch {
		disabled := false
		cfg.Watch.Enabled = &disabled
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg *config.Config) (err error) {
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info("starting", zap.String("config", cfg.Summary()))

	m := metrics.New()
	e := engine.New(
		engine.WithLogger(logger),
		engine.WithMetrics(m),
		engine.WithMaxConcurrency(cfg.Engine.MaxConcurrency),
	)
	defer e.Close()

	fsys, err := assetfs.New(cfg.Root)
	if err != nil {
		return err
	}

	fb, err := loadFallback(fsys.Dir(), cfg.Fallback)
	if err != nil {
		return err
	}

	opts := []server.Option{server.WithLogger(logger), server.WithMetrics(m)}
	var history handler.History
	if cfg.Journal != "" {
		journal, openErr := sqlite.New(cfg.Journal, logger)
		if openErr != nil {
			return fmt.Errorf("open journal: %w", openErr)
		}
		defer func() {
			err = multierr.Append(err, journal.Close())
		}()
		opts = append(opts, server.WithJournal(journal))
		history = journal
	}

	srv := server.New(server.Config{
		RootPath: fsys.Root(),
		Root:     fsys.Entry(cfg.Entry),
		Fallback: fb,
		Addr:     cfg.Addr,
	}, e, opts...)

	listening, err := srv.Listen()
	if err != nil {
		return err
	}

	var adminLn net.Listener
	if cfg.AdminEnabled() {
		adminLn, err = net.Listen("tcp", cfg.AdminAddr)
		if err != nil {
			return multierr.Append(
				fmt.Errorf("%w: admin %s: %w", server.ErrListenerBind, cfg.AdminAddr, err),
				listening.Shutdown(context.Background()),
			)
		}
	}

	bus := service.NewEventBus()
	sse := hub.New(logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sse.Run(gctx)
		return nil
	})
	g.Go(func() error {
		forward(gctx, bus, sse)
		return nil
	})
	g.Go(listening.Wait)

	if cfg.Watch.IsEnabled() {
		changes := service.NewChangeService(fsys, e, bus, logger)
		w := watcher.New(fsys.Dir(), changes.FileChanged, logger).WithDebounce(cfg.Watch.Debounce.Duration())
		g.Go(func() error {
			if err := w.Watch(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("watch %s: %w", fsys.Dir(), err)
			}
			return nil
		})
	}

	var admin *http.Server
	if adminLn != nil {
		admin = &http.Server{
			Handler:           handler.NewAdminHandler(srv, sse, history, m, logger).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		logger.Info("admin listening", zap.String("addr", adminLn.Addr().String()))
		g.Go(func() error {
			if err := admin.Serve(adminLn); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := listening.Shutdown(shutdownCtx)
		if admin != nil {
			err = multierr.Append(err, admin.Shutdown(shutdownCtx))
		}
		return err
	})

	return g.Wait()
}

// forward relays bus events to the SSE hub until ctx is done
func forward(ctx context.Context, bus *service.EventBus, sse *hub.Hub) {
	events := make(chan service.Event, 100)
	bus.Subscribe(events)
	defer bus.Unsubscribe(events)
	for {
		select {
		case ev := <-events:
			sse.Broadcast(ev)
		case <-ctx.Done():
			return
		}
	}
}

func loadFallback(root string, cfg config.FallbackConfig) (fallback.Handler, error) {
	if cfg.Mode == config.FallbackNone {
		return fallback.None(), nil
	}
	file := cfg.File
	if !filepath.IsAbs(file) {
		file = filepath.Join(root, file)
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read fallback: %w", err)
	}
	return fallback.ForMode(fallback.Mode(cfg.Mode), content), nil
}
