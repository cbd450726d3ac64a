package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"questmart/internal/api"
	"questmart/internal/repository"
	"questmart/internal/service"
	"questmart/pkg/auth"
	"questmart/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type store interface {
	service.LedgerRepository
	service.ProgressRepository
}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openStore(ctx, cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer closeRepo()

	quests, err := repository.LoadQuestCatalog(cfg.Catalog.Path)
	if err != nil {
		zapLogger.Fatal("Failed to load quest catalog", zap.Error(err))
	}
	catalog, err := service.NewQuestCatalog(quests)
	if err != nil {
		zapLogger.Fatal("Invalid quest catalog", zap.Error(err))
	}
	zapLogger.Info("Quest catalog loaded", zap.Int("quests", catalog.Len()))

	policy := service.LevelPolicy{
		QuestsPerLevel: cfg.Level.QuestsPerLevel,
		CoinsPerLevel:  cfg.Level.CoinsPerLevel,
	}
	ledger := service.NewUserLedger(repo, policy, service.LedgerConfig{
		StartingBalance: cfg.Ledger.StartingBalance,
		StartingLevel:   cfg.Ledger.StartingLevel,
	})
	tracker := service.NewProgressTracker(repo, catalog)
	hub := api.NewHub()
	rewards := service.NewRewardEngine(repo, ledger, tracker, catalog, hub, zapLogger)
	ranker := service.NewLeaderboardRanker(ledger)
	svc := service.NewService(ledger, catalog, tracker, rewards, ranker)

	telegramAuth := auth.NewTelegramAuth(cfg.TelegramAuth.TelegramBotToken, cfg.TelegramAuth.DebugMode)
	if cfg.TelegramAuth.DebugMode {
		zapLogger.Warn("Telegram init data signature checks are disabled")
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newRouter(svc, hub, telegramAuth),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLogger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Error("Server stopped with error", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *Config) (store, func(), error) {
	if cfg.Storage.Driver == storagePostgres {
		repo, err := repository.New(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	}

	logger.Logger().Info("Using in-memory storage")
	return repository.NewMemoryStore(), func() {}, nil
}

func newRouter(svc *service.Service, hub *api.Hub, telegramAuth *auth.TelegramAuth) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	a := router.Group("/api/v1")
	api.NewUserRoutes(a, svc, telegramAuth)
	api.NewQuestRoutes(a, svc.Rewards, svc.Catalog, svc.Projector, telegramAuth)
	api.NewLeaderboardRoutes(a, svc.Leaderboard)
	api.NewNotificationRoutes(a, hub, telegramAuth)

	return router
}
