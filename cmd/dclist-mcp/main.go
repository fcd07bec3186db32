// Package main is the entry point for the dclist-mcp server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	dclist "github.com/jamesprial/dclist-go"
	"github.com/jamesprial/dclist-go/internal/auth"
	"github.com/jamesprial/dclist-go/internal/config"
	"github.com/jamesprial/dclist-go/internal/tools"
	"github.com/jamesprial/dclist-go/transport"
)

const (
	defaultConfigPath = "dclist-mcp.yaml"
	version           = "1.0.0"
	updateRetryDelay  = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dclist-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadEnvFile(".env"); err != nil {
		return err
	}
	cfg := loadConfig()
	if err := config.ApplyEnvOverrides(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// stdout carries the stdio protocol, so logs always go to stderr.
	logger, err := buildLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	var audit *tools.AuditLogger
	if cfg.Audit.Enabled {
		a, closer, err := tools.OpenAuditLog(cfg.Audit.LogPath)
		if err != nil {
			logger.Warn("audit logging disabled", slog.Any("error", err))
		} else {
			audit = a
			defer closer.Close()
		}
	}

	host, err := buildHost(cfg)
	if err != nil {
		return err
	}

	httpT := transport.NewHTTP(
		transport.WithHTTPURL(cfg.DCList.GraphQLURL),
		transport.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.DCList.Timeout) * time.Second}),
		transport.WithHTTPAuth(dclist.HTTPAuthScheme, cfg.DCList.Token),
	)
	wsT := transport.NewWebSocket(
		transport.WithWebSocketURL(cfg.DCList.SubscribeURL),
		transport.WithWebSocketAuth(dclist.WebSocketAuthScheme, cfg.DCList.Token),
	)

	registry := prometheus.NewRegistry()
	client, err := dclist.New(host,
		dclist.WithToken(cfg.DCList.Token),
		dclist.WithHTTPTransport(httpT),
		dclist.WithWebSocketTransport(wsT),
		dclist.WithForceWebSocket(cfg.DCList.ForceWebSocket),
		dclist.WithLogger(logger),
		dclist.WithMetrics(registry),
	)
	if err != nil {
		return err
	}

	mcpServer := server.NewMCPServer("dclist-mcp", version, server.WithToolCapabilities(false))
	registrations := append(tools.DCListTools(client, audit), tools.GraphQLQueryTool(queryExecutor(cfg, httpT, wsT), audit))
	filter := tools.NewFilter(cfg.Tools.Allow, cfg.Tools.Deny)
	names := tools.RegisterAll(mcpServer, filter.Select(registrations))
	logger.Info("registered tools", slog.Any("tools", names))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if client.TokenProvided() {
		if cfg.Stats.IntervalMinutes > 0 {
			interval := time.Duration(cfg.Stats.IntervalMinutes) * time.Minute
			go postStatsLoop(ctx, client, interval, cfg.Stats.Shards, logger)
		}
		go watchUpdates(ctx, client, updateRetryDelay, logger)
	}

	switch cfg.Server.Mode {
	case config.ModeHTTP:
		return serveHTTP(ctx, cfg, mcpServer, registry, logger)
	default:
		logger.Info("serving MCP on stdio")
		err := server.NewStdioServer(mcpServer).Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

// serveHTTP exposes the MCP endpoint at /mcp behind bearer auth and the
// client's metrics at /metrics until ctx is done.
func serveHTTP(ctx context.Context, cfg *config.Config, mcpServer *server.MCPServer, registry *prometheus.Registry, logger *slog.Logger) error {
	token, generated := config.EnsureAuthToken(cfg)
	if generated {
		logger.Warn("generated MCP auth token; set "+config.EnvServerToken+" to persist it",
			slog.String("token", token))
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", auth.NewAuthMiddleware(token, logger)(server.NewStreamableHTTPServer(mcpServer)))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dclist-mcp listening", slog.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// buildLogger returns a text logger writing to w at the configured level.
func buildLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// buildHost answers identity and count questions from the bot section.
func buildHost(cfg *config.Config) (dclist.StaticHost, error) {
	botID, ownerID, err := cfg.Bot.IDs()
	if err != nil {
		return dclist.StaticHost{}, fmt.Errorf("invalid config: %w", err)
	}
	return dclist.StaticHost{
		BotID:   botID,
		Owner:   ownerID,
		Guilds:  cfg.Bot.Guilds,
		Members: cfg.Bot.Members,
	}, nil
}

// queryExecutor picks the binding for raw queries the same way the client
// does for typed ones.
func queryExecutor(cfg *config.Config, httpT, wsT tools.Executor) tools.Executor {
	if cfg.DCList.ForceWebSocket {
		return wsT
	}
	return httpT
}

// loadConfig reads the file named by DCLIST_MCP_CONFIG, or dclist-mcp.yaml.
// If the file cannot be read, DefaultConfig is returned.
func loadConfig() *config.Config {
	path := os.Getenv("DCLIST_MCP_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		slog.Info("using default config", slog.String("path", path), slog.Any("error", err))
		return config.DefaultConfig()
	}
	slog.Info("loaded config", slog.String("path", path))
	return cfg
}
