package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mjpeg-relay/internal/platform/config"
	"mjpeg-relay/internal/platform/discovery"
	"mjpeg-relay/internal/platform/logger"
	"mjpeg-relay/internal/platform/metrics"
	"mjpeg-relay/internal/relay"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/urfave/cli/v2"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	// Loaded before app.Run so flag EnvVars see the file's values.
	_ = config.Load(config.GetEnv("ENV_FILE", ".env"))

	app := &cli.App{
		Name:  "mjpeg-relay",
		Usage: "relay robot JPEG uploads to browser MJPEG streams",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, EnvVars: []string{"PORT"}, Value: 8000, Usage: "HTTP listen port"},
			&cli.StringFlag{Name: "log-level", EnvVars: []string{"LOG_LEVEL"}, Value: "info", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", EnvVars: []string{"LOG_FORMAT"}, Value: "json", Usage: "json or text"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	port := c.Int("port")
	tick := config.GetEnvDuration("STREAM_TICK", relay.DefaultTick)
	origins := config.GetEnvList("CORS_ALLOWED_ORIGINS", []string{"*"})

	log := logger.New(c.String("log-level"), c.String("log-format"))

	repo := relay.NewInMemoryRepository()
	svc := relay.NewService(repo, tick)
	met := metrics.New()
	h := relay.NewHandler(svc, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetKnownRobots(repo.RobotCount()) }).ServeHTTP(w, r)
	})
	h.Routes(r)

	handler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(r)

	// Cancelling baseCtx ends every open stream so Shutdown can drain.
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()

	addr := fmt.Sprintf(":%d", port)
	// No WriteTimeout: MJPEG streams stay open until the viewer leaves.
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	log.Info("server starting",
		"port", port,
		"stream_tick", tick.String(),
		"log_level", c.String("log-level"),
	)

	registrar := registerService(log, port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, draining connections")
	case serveErr = <-errCh:
		log.Error("server error", "error", serveErr)
	}

	if registrar != nil {
		if err := registrar.Deregister(); err != nil {
			log.Warn("consul deregistration failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	cancelRequests()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		srv.Close()
	}

	log.Info("server stopped")
	return serveErr
}

// registerService announces the relay to Consul when CONSUL_ADDR is set.
// Failure is logged and the relay keeps serving.
func registerService(log *slog.Logger, port int) *discovery.Registrar {
	agentAddr := config.GetEnv("CONSUL_ADDR", "")
	if agentAddr == "" {
		return nil
	}

	registrar, err := discovery.NewRegistrar(discovery.Config{
		AgentAddr:     agentAddr,
		ServiceName:   config.GetEnv("SERVICE_NAME", discovery.DefaultServiceName),
		ServiceID:     config.GetEnv("SERVICE_ID", ""),
		Address:       config.GetEnv("SERVICE_ADDRESS", "127.0.0.1"),
		Port:          port,
		CheckInterval: config.GetEnvDuration("HEALTH_CHECK_INTERVAL", 10*time.Second),
	}, log)
	if err != nil {
		log.Warn("consul registrar unavailable", "error", err)
		return nil
	}
	if err := registrar.Register(); err != nil {
		log.Warn("consul registration failed", "error", err)
		return nil
	}
	return registrar
}
