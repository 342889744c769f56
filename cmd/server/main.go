package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/volcengine/veadk-go/apps"
	"github.com/volcengine/veadk-go/apps/a2a_app"
	"google.golang.org/adk/agent"

	"github.com/zhengjr9/gradio-agent/internal/a2a"
	"github.com/zhengjr9/gradio-agent/internal/adapter"
	"github.com/zhengjr9/gradio-agent/internal/config"
	"github.com/zhengjr9/gradio-agent/internal/gradio"
	"github.com/zhengjr9/gradio-agent/internal/logging"
	"github.com/zhengjr9/gradio-agent/internal/proxy"
)

func main() {
	cfg := config.Load()
	if _, err := logging.Init(cfg); err != nil {
		slog.Warn("log file unavailable, logging to stderr", "error", err)
	}

	transport, err := gradio.ParseTransport(cfg.Transport)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	client := gradio.NewClient(gradio.Options{
		Transport: transport,
		APIName:   cfg.APIName,
		FnIndex:   cfg.FnIndex,
		ProxyURL:  cfg.BackendProxyURL,
	})
	sessions := adapter.SessionFactoryFunc(func(model string, historySize int) (adapter.Session, error) {
		return client.NewChatbot(model, historySize)
	})

	slog.Info("starting gradio-agent",
		"listen", cfg.ListenAddr(),
		"default_model", cfg.DefaultModel,
		"transport", transport,
		"a2a_enabled", cfg.A2AEnabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Always start the adapter server.
	srv := proxy.New(cfg, sessions)
	proxyErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			proxyErr <- err
		}
	}()
	slog.Info("server started", "link", "http://localhost:"+strconv.Itoa(cfg.Port)+"/api/conversation?text=hello")

	// Optionally start the A2A server.
	a2aErr := make(chan error, 1)
	if cfg.A2AEnabled {
		gradioAgent, err := a2a.New(a2a.AgentConfig{
			Name:        cfg.AgentName,
			Description: cfg.AgentDesc,
			Sessions:    sessions,
			Model:       cfg.A2AModel,
			HistorySize: cfg.HistorySize,
		})
		if err != nil {
			slog.Error("failed to create A2A agent", "error", err)
			os.Exit(1)
		}

		slog.Info("starting A2A server", "port", cfg.A2APort, "agent_name", cfg.AgentName, "model", cfg.A2AModel)

		// Wrap the standard A2A app so its router logs requests the same way
		// the adapter server does.
		inner := a2a_app.NewAgentkitA2AServerApp(
			apps.DefaultApiConfig().SetPort(cfg.A2APort),
		)
		wrapped := &loggingApp{BasicApp: inner}

		go func() {
			if err := wrapped.Run(ctx, &apps.RunConfig{
				AgentLoader: agent.NewSingleLoader(gradioAgent),
			}); err != nil {
				a2aErr <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	case err := <-proxyErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	case err := <-a2aErr:
		slog.Error("A2A server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// loggingApp wraps a BasicApp and installs the request logging middleware on
// the Gorilla mux router the A2A app builds.
type loggingApp struct {
	apps.BasicApp
}

// Run overrides the embedded Run so that apps.Run receives the wrapper as the
// app argument; otherwise SetupRouters below would never be called.
func (w *loggingApp) Run(ctx context.Context, config *apps.RunConfig) error {
	return apps.Run(ctx, config, w)
}

func (w *loggingApp) SetupRouters(router *mux.Router, config *apps.RunConfig) error {
	if err := w.BasicApp.SetupRouters(router, config); err != nil {
		return err
	}
	router.Use(proxy.LoggingMiddleware)
	return nil
}
