// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notearchiver/internal/api"
	"github.com/starford/notearchiver/internal/archive"
	"github.com/starford/notearchiver/internal/archiveservice"
	"github.com/starford/notearchiver/internal/index"
	"github.com/starford/notearchiver/internal/mcpserver"
	"github.com/starford/notearchiver/internal/settings"
	"github.com/starford/notearchiver/internal/sse"
	"github.com/starford/notearchiver/internal/storage"
)

// NewLogger returns the structured JSON logger used by every mode.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Runtime holds the opened vault, index and settings behind one service.
type Runtime struct {
	Service      *archiveservice.Service
	Settings     *settings.Manager
	SettingsPath string

	store storage.Provider
	db    *index.DB
}

// Open prepares the vault, note index and persisted settings described by
// cfg. notifier may be nil.
func Open(cfg *Config, logger *slog.Logger, notifier archiveservice.Notifier) (*Runtime, error) {
	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	settingsPath := cfg.Settings.File(cfg.Vault.Path)
	mgr, err := settings.NewManager(settings.NewFileStore(settingsPath))
	if err != nil {
		db.Close()
		return nil, err
	}

	opts := []archiveservice.Option{
		archiveservice.WithLogger(logger),
		archiveservice.WithReserved(reservedPaths(cfg.Vault.Path, settingsPath, cfg.SQLite.Path)...),
	}
	if notifier != nil {
		opts = append(opts, archiveservice.WithNotifier(notifier))
	}

	return &Runtime{
		Service:      archiveservice.NewService(store, db, mgr, opts...),
		Settings:     mgr,
		SettingsPath: settingsPath,
		store:        store,
		db:           db,
	}, nil
}

// reservedPaths returns the vault-relative form of every file the tool keeps
// inside the vault itself. Files outside the vault are skipped.
func reservedPaths(vault, settingsPath, dbPath string) []string {
	root, err := filepath.Abs(vault)
	if err != nil {
		return nil
	}
	var out []string
	for _, p := range []string{settingsPath, dbPath, dbPath + "-wal", dbPath + "-shm", dbPath + "-journal"} {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

// Close releases the note index.
func (rt *Runtime) Close() error {
	return rt.db.Close()
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := NewLogger(app.logOutput, cfg.App.LogLevel)
	slog.SetDefault(logger)

	broker := sse.NewBroker(cfg.Settings.EventHistory)
	defer broker.Close()

	rt, err := Open(cfg, logger, broker)
	if err != nil {
		return err
	}
	defer rt.Close()

	current := rt.Settings.Snapshot()
	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("settings_path", rt.SettingsPath),
		slog.String("archive_folder", current.ArchiveFolderName),
		slog.String("grouping", string(current.Grouping)),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Run initial sync.
	if err := index.Sync(rt.db, rt.store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(rt.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		st, err := rt.Service.FolderStatus(req.Context())
		if err != nil || st.State == archiveservice.FolderIsFile {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"archive folder unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Follow external edits of the settings file.
	if cfg.Settings.Watch {
		if err := os.MkdirAll(filepath.Dir(rt.SettingsPath), 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
		g.Go(func() error {
			return settings.Watch(gCtx, rt.Settings, rt.SettingsPath, logger, func(s archive.Settings) {
				rt.Service.SettingsChanged(s)
			})
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the settings watcher stops with the server.
var errShutdown = errors.New("shutdown")

// ServeMCP runs the MCP server over stdio. Logs go to stderr unless
// WithLogOutput says otherwise.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	cfg := app.config
	logger := NewLogger(app.logOutput, cfg.App.LogLevel)
	slog.SetDefault(logger)

	rt, err := Open(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := index.Sync(rt.db, rt.store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting on stdio", slog.String("vault_path", cfg.Vault.Path))
	return mcpserver.New(rt.Service, app.version).Listen(ctx, os.Stdin, os.Stdout)
}
