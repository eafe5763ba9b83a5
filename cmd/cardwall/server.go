package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/cardwall/internal/card"
	"github.com/tinytelemetry/cardwall/internal/cards"
	"github.com/tinytelemetry/cardwall/internal/dashboard"
	"github.com/tinytelemetry/cardwall/internal/duckdb"
	"github.com/tinytelemetry/cardwall/internal/httpserver"
	"github.com/tinytelemetry/cardwall/internal/metrics"
	"github.com/tinytelemetry/cardwall/internal/model"
	"github.com/tinytelemetry/cardwall/internal/socketrpc"
	"github.com/tinytelemetry/cardwall/internal/surface"
)

// runServer starts the card registry with its HTTP API and socket RPC.
func runServer(cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	logger := newCardLogger(cfg.LogLevel)

	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize DuckDB: %w", err)
	}
	defer store.Close()

	// Outcomes are batched off the update path.
	outcomes := duckdb.NewOutcomeBuffer(store, duckdb.OutcomeBufferConfig{
		BatchSize:      cfg.OutcomeBatchSize,
		FlushInterval:  cfg.OutcomeFlushEvery,
		FlushQueueSize: cfg.OutcomeFlushQueue,
	})
	defer outcomes.Stop()

	pruner := duckdb.NewOutcomePruner(store, duckdb.PruneConfig{
		MaxAge:      time.Duration(cfg.OutcomeRetention) * 24 * time.Hour,
		KeepPerCard: cfg.OutcomeKeep,
	})

	regOpts := []card.Option{card.WithLogger(logger), card.WithRecorder(outcomes)}
	var dashOpts []dashboard.Option
	httpOpts := []httpserver.Option{httpserver.WithRefreshLimit(cfg.RefreshRate, cfg.RefreshBurst)}
	if cfg.MetricsEnabled {
		m := metrics.NewRecorder()
		regOpts = append(regOpts, card.WithRecorder(m))
		dashOpts = append(dashOpts, dashboard.OnRemove(m.Forget))
		httpOpts = append(httpOpts, httpserver.WithMetrics(m.Handler()))
	}

	registry := card.NewRegistry(regOpts...)
	// Closed before the buffer and the store: tick updates must return
	// before their outcomes stop being accepted.
	defer registry.Close()

	board := surface.NewBoard()
	defs, err := buildCards(board, store, cfg.Cards)
	if err != nil {
		return err
	}
	if err := cards.Register(registry, defs...); err != nil {
		return fmt.Errorf("failed to register cards: %w", err)
	}

	dash := dashboard.New(registry, board, store, dashOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := dash.Start(ctx); err != nil {
		log.Printf("dashboard: startup render: %v", err)
	}

	var apiServer *httpserver.Server
	if cfg.APIEnabled {
		apiServer = httpserver.NewServer(cfg.APIAddr, dash, httpOpts...)
		if err := apiServer.Listen(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
	}

	// Socket RPC serves the TUI client.
	sockServer := socketrpc.NewServer(cfg.SocketPath, dash)
	if err := sockServer.Start(); err != nil {
		log.Printf("Warning: failed to start socket server: %v", err)
	} else {
		defer sockServer.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// The shutdown deadline starts at the first signal.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		cleanupSocket(cfg.SocketPath)
		os.Exit(1)
	}()

	printStartupBanner(cfg, registry.Len())

	// Use errgroup for concurrent goroutine lifecycle management.
	g, gctx := errgroup.WithContext(ctx)

	// A serve failure cancels gctx and takes the rest down with it.
	if apiServer != nil {
		g.Go(func() error {
			if err := apiServer.Serve(); err != nil {
				return fmt.Errorf("api server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			if err := apiServer.Stop(); err != nil {
				log.Printf("server: api shutdown: %v", err)
			}
			return nil
		})
	}

	if pruner != nil {
		g.Go(func() error {
			return pruner.Run(gctx)
		})
	}

	// Wait for context cancellation (from signal handler) in the errgroup
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err = g.Wait()
	cancel()
	signal.Stop(sigCh)
	if err != nil {
		log.Printf("server: errgroup exited with error: %v", err)
		return err
	}
	return nil
}

func buildCards(board *surface.Board, reader model.OutcomeReader, specs []cards.Spec) ([]cards.Definition, error) {
	defs := make([]cards.Definition, 0, len(specs))
	for _, s := range specs {
		def, err := cards.Build(board, reader, s)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func cleanupSocket(path string) {
	if path != "" {
		os.Remove(path)
	}
}

// newCardLogger returns the logrus logger for card update diagnostics. It
// writes wherever the stdlib logger was pointed.
func newCardLogger(level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(log.Writer())
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	}
	return l
}

func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "cardwall")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logPath := filepath.Join(logDir, "cardwall.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}

func printStartupBanner(cfg appConfig, cardCount int) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╔═╗╔═╗╦═╗╔╦╗╦ ╦╔═╗╦  ╦
    ║  ╠═╣╠╦╝ ║║║║║╠═╣║  ║
    ╚═╝╩ ╩╩╚══╩╝╚╩╝╩ ╩╩═╝╩═╝`)

	ver := dim.Render("v" + version)

	var lines []string
	lines = append(lines, "")
	lines = append(lines, logo)
	lines = append(lines, "    "+ver)
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator)
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Gateway"))
	lines = append(lines, "")

	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, fmt.Sprintf("    %s  Unix Socket    %s", check, cyan.Render(shortenPath(cfg.SocketPath))))
	if cfg.APIEnabled && cfg.MetricsEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Metrics        %s", check, cyan.Render(cfg.APIAddr+"/metrics")))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Metrics        %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Cards"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  Registered     %s", check, dim.Render(fmt.Sprintf("%d", cardCount))))
	for _, s := range cfg.Cards {
		kind := s.Kind
		if kind == "" {
			kind = cards.KindBulletin
		}
		every := "manual"
		if s.Interval > 0 {
			every = "every " + s.Interval.String()
		}
		lines = append(lines, fmt.Sprintf("       %-16s %s", s.ID, dim.Render(kind+", "+every)))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Storage"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  Outcomes       %s", check, dim.Render(shortenPath(cfg.DBPath))))
	if cfg.OutcomeRetention > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Retention      %s", check, dim.Render(fmt.Sprintf("%d days", cfg.OutcomeRetention))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Retention      %s", dot, dim.Render("disabled")))
	}
	if cfg.OutcomeKeep > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Per Card       %s", check, dim.Render(fmt.Sprintf("newest %d", cfg.OutcomeKeep))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Per Card       %s", dot, dim.Render("unlimited")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"))
	lines = append(lines, "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "")
	lines = append(lines, separator)
	lines = append(lines, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"))
	lines = append(lines, "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
