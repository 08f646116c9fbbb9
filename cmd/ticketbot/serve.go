package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/api/bot"
	httptransport "github.com/spec-kit/ticket-bot/internal/api/http"
	"github.com/spec-kit/ticket-bot/internal/api/http/handlers"
	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/persistence"
	"github.com/spec-kit/ticket-bot/internal/platform/discord"
	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/internal/service"
	"github.com/spec-kit/ticket-bot/internal/transcript"
	"github.com/spec-kit/ticket-bot/internal/worker"
)

const (
	promptSweepInterval = time.Minute
	shutdownTimeout     = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to Discord and serve ticket interactions",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Discord.Token == "" {
		return errors.New("config: DISCORD_TOKEN is required")
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	readiness := map[string]handlers.Pinger{}

	store, closeStore, err := openStore(ctx, cfg, logger, readiness)
	if err != nil {
		return err
	}
	defer closeStore()

	prompts, sweeper, closePrompts, err := openPrompts(ctx, cfg, logger, readiness)
	if err != nil {
		return err
	}
	defer closePrompts()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	sink := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	defer sink.Close() //nolint:errcheck
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, sink, metrics))
	if sweeper != nil {
		go worker.NewPromptSweeper(sweeper, promptSweepInterval, logger).Run(ctx)
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	chat := discord.New(session, cfg.Guild.GuildID, logger.Named("discord"))

	archive := service.NewArchiveService(service.ArchiveDependencies{
		Platform:     chat,
		Exporter:     transcript.NewHTMLExporter(cfg.Guild.Location()),
		Prompts:      prompts,
		Logger:       logger,
		LogChannelID: cfg.Guild.LogChannelID,
		Categories:   cfg.Guild.Categories,
		PromptTTL:    cfg.Rating.PromptTTL(),
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Prompts:    prompts,
		Platform:   chat,
		Archive:    archive,
		Policy:     auth.NewStaffPolicy(cfg.Guild.Categories),
		Guild:      cfg.Guild,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	router := bot.NewRouter(logger.Named("bot"), metrics, cfg.App.InteractionTimeout())
	bot.NewHandlers(tickets).Register(router)
	gateway := bot.NewGateway(session, router, cfg.Guild.GuildID, logger.Named("gateway"))
	if err := gateway.Start(); err != nil {
		return err
	}
	defer func() {
		if err := gateway.Stop(); err != nil {
			logger.Warn("close discord session", zap.Error(err))
		}
	}()

	var app *fiber.App
	if cfg.Ops.Enabled {
		app = newOpsServer(cfg, logger, metrics, tickets, readiness)
		go func() {
			if err := app.Listen(cfg.Ops.Addr()); err != nil {
				logger.Error("ops server stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("ticket bot running",
		zap.String("guild_id", cfg.Guild.GuildID),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("rating_store", cfg.Rating.Store),
		zap.Bool("kafka", sink.Enabled()))

	<-ctx.Done()
	logger.Info("shutting down")

	if app != nil {
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Warn("ops server shutdown", zap.Error(err))
		}
	}
	return nil
}

func openStore(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	readiness map[string]handlers.Pinger,
) (repository.TicketStore, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		logger.Warn("memory storage selected, tickets are lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	case config.StoragePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		readiness["postgres"] = pg
		return repository.NewPostgresStore(pg.PoolHandle()), pg.Close, nil
	default:
		return repository.NewJSONStore(cfg.Storage.JSONPath), func() {}, nil
	}
}

func openPrompts(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	readiness map[string]handlers.Pinger,
) (repository.PromptRepository, worker.Sweeper, func(), error) {
	if cfg.Rating.Store != config.RatingStoreRedis {
		mem := repository.NewMemoryPromptRepository(nil)
		return mem, mem, func() {}, nil
	}
	rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("redis: %w", err)
	}
	readiness["redis"] = rdb
	// redis expires prompts on its own
	return repository.NewRedisPromptRepository(rdb.Client, nil), nil, rdb.Close, nil
}

func newOpsServer(
	cfg *config.Config,
	logger *zap.Logger,
	metrics *observability.Metrics,
	tickets *service.TicketService,
	readiness map[string]handlers.Pinger,
) *fiber.App {
	tokens := auth.NewTokenManager(cfg.Ops.JWTSecret, cfg.Ops.AccessTokenTTLMinutes)
	if cfg.Ops.APIKeyHash == "" {
		logger.Warn("OPS_API_KEY_HASH not set, ops ticket endpoints are unreachable")
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger.Named("ops"), metrics, cfg.App.InteractionTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Auth:           handlers.NewAuthHandler(cfg.Ops.APIKeyHash, tokens),
		Tickets:        handlers.NewTicketsHandler(tickets),
		Metrics:        handlers.NewMetricsHandler(metrics),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})
	return app
}
