package valetservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"smart-valet/internal/general/config"
	"smart-valet/internal/general/jwt"
	"smart-valet/internal/general/logger"
	"smart-valet/internal/general/postgres"
	"smart-valet/internal/general/rabbitmq"
	"smart-valet/internal/general/shortcode"
	"smart-valet/internal/general/websocket"
	"smart-valet/internal/notify"
	"smart-valet/internal/software/valet/handler"
	"smart-valet/internal/software/valet/service"
)

const producerName = "valet-service"

// Run wires the valet service and blocks until ctx is cancelled.
func Run(ctx context.Context, maxConcurrent int) error {
	// set up a new logger and context for valet service with a static request ID for startup logs
	logger := logger.New(producerName)
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load a config from file
	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	// set up a Postgres connection pool
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	// set up the observer registry and the fan-out over it
	registry := notify.NewRegistry()
	fanout := notify.NewFanout(registry, logger)

	// connect to RabbitMQ; the relay transport is optional by design, so
	// a broker outage degrades to board/stream-only notification instead
	// of keeping the whole service down
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed",
			"Failed to connect to RabbitMQ; starting without the relay transport", err, nil)
	} else {
		defer rmq.Close()
		pub := rabbitmq.NewMQPublisher(rmq)
		relayID := registry.Register(notify.TransportRelay, notify.NewRelayObserver(pub, producerName))
		logger.Info(ctx, "relay_registered", "RabbitMQ relay observer registered",
			map[string]any{"observer_id": relayID})
	}

	// set up the JWT manager for the staff API
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	// set up the persistence layer
	uow := postgres.NewUnitOfWork(pool)
	vehicleRepo := postgres.NewVehicleRepo()

	// set up the access-code issuer
	issuer := shortcode.NewIssuer(cfg.Valet.TokenLength, cfg.Valet.TokenMaxAttempts)

	// set up the valet service
	svc := service.NewValetService(logger, uow, vehicleRepo, issuer, fanout, cfg.Valet.BaseURL)

	// set up the staff board WebSocket handler
	board := websocket.NewBoard(logger, jwtManager, registry, producerName)

	// set up the HTTP handler and its routes
	mux := http.NewServeMux()
	httpHandler := handler.NewValetHTTPHandler(svc, logger, jwtManager, board, registry, "public")
	httpHandler.RegisterRoutes(mux)

	// concurrency limiter (global) — blocks when capacity is full
	limitedHandler := withConcurrencyLimit(maxConcurrent, mux)

	// set up the server configurations
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.ValetServicePort), // listen on the specified port
		Handler:           limitedHandler,                                    // apply the concurrency limiter to the HTTP handler
		ReadHeaderTimeout: 5 * time.Second,                                   // time to read headers
		ReadTimeout:       10 * time.Second,                                  // time to read full request body
		IdleTimeout:       60 * time.Second,                                  // keep-alive window
		BaseContext:       func(net.Listener) context.Context { return ctx }, // pass base ctx to all handlers
	}
	// note: no WriteTimeout — the SSE and WebSocket endpoints hold their
	// responses open indefinitely

	// log service start
	logger.Info(ctx, "service_started",
		fmt.Sprintf("Valet Service started on port %d", cfg.Services.ValetServicePort),
		map[string]any{"port": cfg.Services.ValetServicePort, "max_concurrent": maxConcurrent},
	)

	// start the server in a background goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// wait for context cancellation or server error
	select {
	case <-ctx.Done():
		// graceful HTTP shutdown on context cancel
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(ctx, "shutdown_started", "Valet Service shutting down", nil)
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		// server returned a terminal error at startup or during run
		if err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Services.ValetServicePort})
			return err
		}
		return nil
	}

	return nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
