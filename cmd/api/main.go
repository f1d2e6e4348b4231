package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/template-studio/internal/api/http"
	"github.com/spec-kit/template-studio/internal/api/http/handlers"
	"github.com/spec-kit/template-studio/internal/auth"
	"github.com/spec-kit/template-studio/internal/catalog"
	"github.com/spec-kit/template-studio/internal/config"
	"github.com/spec-kit/template-studio/internal/events"
	"github.com/spec-kit/template-studio/internal/observability"
	"github.com/spec-kit/template-studio/internal/persistence"
	"github.com/spec-kit/template-studio/internal/repository"
	"github.com/spec-kit/template-studio/internal/service"
	"github.com/spec-kit/template-studio/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	actorRepo := repository.NewActorRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	artifactRepo := repository.NewArtifactRepository(pool)
	blockerRepo := repository.NewBlockerRepository(pool)
	discussionRepo := repository.NewDiscussionRepository(pool)
	suggestionRepo := repository.NewSuggestionRepository(pool)
	historyRepo := repository.NewTemplateHistoryRepository(pool)
	ledgerRepo := repository.NewLedgerRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	bus := events.NewRedisBus(redis.Client, logger)

	publisher := catalog.NewHTTPPublisher(catalog.Config{
		BaseURL:        cfg.Catalog.BaseURL,
		APIKey:         cfg.Catalog.APIKey,
		TimeoutSeconds: cfg.Catalog.TimeoutSeconds,
	})

	ledgerService := service.NewLedgerService(ledgerRepo, actorRepo)
	syncService := service.NewSyncService(publisher, templateRepo, historyRepo, dispatcher, logger)
	templateService := service.NewTemplateService(service.TemplateDependencies{
		TemplateRepo:   templateRepo,
		ArtifactRepo:   artifactRepo,
		DepartmentRepo: departmentRepo,
		HistoryRepo:    historyRepo,
		Ledger:         ledgerService,
		Syncer:         syncService,
		Dispatcher:     dispatcher,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TemplateRepo: templateRepo,
		ActorRepo:    actorRepo,
		HistoryRepo:  historyRepo,
		Dispatcher:   dispatcher,
	})
	blockerService := service.NewBlockerService(service.BlockerDependencies{
		BlockerRepo:    blockerRepo,
		DiscussionRepo: discussionRepo,
		TemplateRepo:   templateRepo,
		Dispatcher:     dispatcher,
	})
	suggestionService := service.NewSuggestionService(suggestionRepo, templateRepo, dispatcher)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	worker.StartEventWorker(dispatcher, bus, notificationService, metrics)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, actorRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Templates:      handlers.NewTemplatesHandler(templateService, assignmentService, syncService),
		Blockers:       handlers.NewBlockersHandler(blockerService),
		Suggestions:    handlers.NewSuggestionsHandler(suggestionService),
		Ledger:         handlers.NewLedgerHandler(ledgerService),
		Stream:         httptransport.NewStreamHandler(bus, tokenManager, actorRepo, logger),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
