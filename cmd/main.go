package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weiawesome/wes-io-live/live-relay/internal/chat"
	"github.com/weiawesome/wes-io-live/live-relay/internal/config"
	relaygrpc "github.com/weiawesome/wes-io-live/live-relay/internal/grpc"
	"github.com/weiawesome/wes-io-live/live-relay/internal/handler"
	"github.com/weiawesome/wes-io-live/live-relay/internal/hub"
	"github.com/weiawesome/wes-io-live/live-relay/internal/kafka"
	"github.com/weiawesome/wes-io-live/live-relay/internal/live"
	"github.com/weiawesome/wes-io-live/live-relay/internal/ratelimit"
	"github.com/weiawesome/wes-io-live/live-relay/internal/room"
	"github.com/weiawesome/wes-io-live/live-relay/internal/signaling"
	"github.com/weiawesome/wes-io-live/live-relay/internal/topic"
	"github.com/weiawesome/wes-io-live/live-relay/pkg/jwt"
	pkglog "github.com/weiawesome/wes-io-live/live-relay/pkg/log"
	"github.com/weiawesome/wes-io-live/live-relay/pkg/middleware"
	"github.com/weiawesome/wes-io-live/live-relay/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting live-relay")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize topic exporter
	exporter, err := pubsub.NewExporter(cfg.Export)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Export.Driver).Msg("failed to initialize topic exporter")
	}

	// Initialize connection registry and topic bus
	reg := hub.NewRegistry(cfg.WebSocket)

	var busOpts []topic.Option
	if exporter != nil {
		defer exporter.Close()
		busOpts = append(busOpts, topic.WithExporter(exporter, cfg.Export.Source, 1024))
		logger.Info().Str("driver", cfg.Export.Driver).Msg("topic export enabled")
	}
	bus := topic.NewBus(reg, busOpts...)
	go bus.Run(ctx)

	// Initialize Kafka producer for broadcast events
	var machineOpts []live.Option
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka producer, broadcast events disabled")
		} else {
			defer producer.Close()
			machineOpts = append(machineOpts, live.WithProducer(producer))
			logger.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("connected to kafka")
		}
	}

	// Initialize core services
	machine := live.NewMachine(cfg.Live, bus, machineOpts...)
	chatSvc := chat.NewBroadcaster(cfg.Chat.HistorySize, chat.NewSanitizer(cfg.Chat.MaxContent, cfg.Chat.MaxDisplayName), bus)
	dir := room.NewDirectory()
	router := signaling.NewRouter(dir, reg)

	limiter := ratelimit.New(cfg.Chat.RatePerSecond, cfg.Chat.Burst)
	go limiter.Run(ctx)

	// Initialize auth
	var verifier *jwt.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier = jwt.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	} else {
		logger.Warn().Msg("auth.jwt_secret not set, admin endpoints are open")
	}

	// Initialize handlers
	wsHandler := handler.NewWSHandler(reg, router, bus, chatSvc, live.NewTracker(machine), limiter)
	httpHandler := handler.NewHTTPHandler(handler.HTTPDeps{
		Machine:        machine,
		Chat:           chatSvc,
		Registry:       reg,
		Directory:      dir,
		Bus:            bus,
		Limiter:        limiter,
		AuthMiddleware: middleware.NewAuthMiddleware(verifier),
		AdminRole:      cfg.Auth.AdminRole,
		ICEServers:     cfg.WebRTC.BrowserICEServers(),
	})

	// Setup HTTP server
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), pkglog.GinMiddleware(logger))
	wsHandler.RegisterRoutes(r)
	httpHandler.RegisterRoutes(r)

	// Start gRPC health server
	if cfg.GRPC.Enabled {
		grpcAddr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
		grpcServer, err := relaygrpc.StartGRPCServer(grpcAddr, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to start grpc server")
		}
		defer grpcServer.Stop()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("live-relay listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down live-relay")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("live-relay stopped")
}
