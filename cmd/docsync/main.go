package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/alexjbarnes/docsync/internal/api"
	"github.com/alexjbarnes/docsync/internal/config"
	"github.com/alexjbarnes/docsync/internal/document"
	"github.com/alexjbarnes/docsync/internal/events"
	"github.com/alexjbarnes/docsync/internal/journal"
	"github.com/alexjbarnes/docsync/internal/logging"
	"github.com/alexjbarnes/docsync/internal/mcpserver"
	"github.com/alexjbarnes/docsync/internal/store"
	docsync "github.com/alexjbarnes/docsync/internal/sync"
)

var Version = "dev"

func main() {
	// Handle gen-key subcommand before config loading.
	if len(os.Args) > 1 && os.Args[1] == "gen-key" {
		genKey()
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// genKey prints a fresh API key suitable for the API_KEYS env var.
func genKey() {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ds_" + hex.EncodeToString(buf))
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment)
	logger.Info("docsync starting",
		slog.String("version", Version),
		slog.Bool("api", cfg.EnableAPI),
		slog.Bool("mcp", cfg.EnableMCP),
		slog.Bool("watch", cfg.EnableWatch),
		slog.String("data_dir", cfg.DataDir),
	)

	if cfg.DocFilenamesFile != "" {
		if err := document.LoadFilenameOverrides(cfg.DocFilenamesFile); err != nil {
			return fmt.Errorf("loading filename overrides: %w", err)
		}

		logger.Info("loaded filename overrides", slog.String("file", cfg.DocFilenamesFile))
	}

	st, err := store.Open(cfg.StorePath())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	jnl, err := journal.Open(cfg.JournalPath())
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer jnl.Close()

	hub := events.NewHub()
	engine := docsync.NewEngine(st, jnl, hub, logging.ForComponent(logger, "sync"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.EnableAPI || cfg.EnableMCP {
		keys, err := cfg.ParseAPIKeys()
		if err != nil {
			return fmt.Errorf("parsing API keys: %w", err)
		}

		srv := api.NewServer(st, jnl, engine, hub, logging.ForComponent(logger, "api"), keys)

		if cfg.EnableMCP {
			mcpServer := mcp.NewServer(
				&mcp.Implementation{Name: "docsync", Version: Version},
				nil,
			)
			mcpserver.RegisterTools(mcpServer, engine)

			srv.MountMCP(mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
				return mcpServer
			}, nil))
		}

		httpServer := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           srv,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
			// No global read/write timeouts: /api/events holds a
			// websocket open for the lifetime of the client.
		}

		g.Go(func() error {
			logger.Info("http server listening",
				slog.String("addr", cfg.ListenAddr),
				slog.Bool("auth", len(keys) > 0),
			)

			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down http server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			return httpServer.Shutdown(shutdownCtx)
		})
	}

	if cfg.EnableWatch {
		g.Go(func() error {
			watcher := docsync.NewWatcher(engine, st, logging.ForComponent(logger, "watch"))

			if err := watcher.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}

			return nil
		})
	}

	err = g.Wait()
	logger.Info("docsync stopped")

	return err
}
