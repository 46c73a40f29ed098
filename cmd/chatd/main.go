package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"traceforge/ai"
	"traceforge/auth"
	grpcserver "traceforge/infrastructure/grpc/server"
	httpserver "traceforge/infrastructure/http/server"
	"traceforge/internal"
	"traceforge/moderation"
	"traceforge/observability"
	"traceforge/repositories"
	"traceforge/runtime"
	"traceforge/runtime/workers"
	"traceforge/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/rs/cors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run owns every resource so deferred cleanup happens before the process exits.
func run() error {
	// 1. Configuration & Logger
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	config, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	messageRepository, err := repositories.NewMessageRepository(db, log)
	if err != nil {
		return err
	}
	defer func() { _ = messageRepository.Close() }()

	index, err := repositories.OpenSearchIndex(config.BlugeFilepath)
	if err != nil {
		return err
	}
	defer func() { _ = index.Close() }()

	// 3. Domain services
	moderator, err := moderation.NewModerator(config.CensoredWordList(), config.CensorPlaceholder)
	if err != nil {
		return fmt.Errorf("content filter: %w", err)
	}
	issuer := auth.NewTokenIssuer(config.AuthTokenSecret, config.AuthTokenDuration)
	hub := runtime.NewHub(config.ConnectionBufferSize, log)
	registry := runtime.NewRegistry()

	authService := services.NewAuthService(repositories.NewUserRepository(db, log), issuer, log)
	chatService := services.NewChatService(messageRepository, moderator, index, hub, config.HistoryWindow, log)

	// 4. Supervised workers
	monitoring := observability.NewMonitoringManager(log, config.MetricInterval, registry.Len)
	healthServer := grpcserver.NewHealthServer(log, storageProbe(db), config.MetricInterval)
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewFanoutWorker(log, registry, hub.Events(), config.SinkTimeout),
		monitoring,
		healthServer,
	)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supCtx, supCancel := context.WithCancel(ctx)
	defer supCancel()
	supDone := make(chan struct{})
	go func() {
		sup.Run(supCtx)
		close(supDone)
	}()

	// 6. HTTP & WebSocket
	deps := httpserver.Dependencies{
		AuthService: authService,
		ChatService: chatService,
		Issuer:      issuer,
		Registry:    registry,
		Monitoring:  monitoring,
	}
	if config.AIEnabled() {
		client := ai.NewClient(ai.ClientConfig{
			BaseURL:            config.LLMBaseURL,
			APIKey:             config.LLMAPIKey,
			Model:              config.LLMModel,
			TranscriptionModel: config.TranscriptionModel,
			Timeout:            config.LLMTimeout,
		}, log)
		deps.Globalizer = ai.NewGlobalizer(client)
		deps.Transcriber = ai.NewAudioGuard(client)
	} else {
		log.Info("LLM_API_KEY not set, AI routes disabled")
	}

	router := httpserver.NewServer(deps, httpserver.Options{
		AllowedOrigins:       config.AllowedOriginList(),
		ConnectionBufferSize: config.ConnectionBufferSize,
		AIRatePerMinute:      config.LLMRatePerMinute,
	}, log).Router()

	c := cors.New(cors.Options{
		AllowedOrigins:   config.AllowedOriginList(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Length"},
		MaxAge:           300,
		AllowCredentials: true,
	})

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpSrv := &http.Server{
		Addr:              address,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 7. gRPC health
	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GrpcPort)
	grpcListener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}

	errChan := make(chan error, 2)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpSrv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	go func() {
		if err := healthServer.Serve(grpcListener); err != nil {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		log.Error("Server failed", "error", runErr)
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	healthServer.Stop()
	supCancel()
	<-supDone
	log.Info("Program stopped cleanly")

	return runErr
}

func storageProbe(db *badger.DB) grpcserver.Probe {
	return func(context.Context) error {
		if db.IsClosed() {
			return fmt.Errorf("badger is closed")
		}
		return db.View(func(*badger.Txn) error { return nil })
	}
}
