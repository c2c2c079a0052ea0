package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/auth"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/cache"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/changefeed"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/config"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/engine"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/handler"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/httpserver"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/outbox"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/remotestore"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/snapshot"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/circuitbreaker"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/db"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/logger"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/mq"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/rbac"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/redis"
	"github.com/google/uuid"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting syncd...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.String("objective_id", cfg.Sync.ObjectiveID),
	)

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established successfully")

	outboxRepo := outbox.NewRepository(dbConn)
	store := remotestore.NewPostgresStore(dbConn, outboxRepo, log)

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	log.Info("Ensuring database schema...")
	if err := store.InitSchema(initCtx); err != nil {
		log.Fatal("Failed to init schema", zap.Error(err))
	}

	// Redis. The daemon runs without it, on an in-process cache, so a
	// cache outage never blocks startup.
	log.Info("Initializing Redis connection...")
	var aggCache cache.Cache
	rdb, err := redis.NewClient(cfg.Redis, log)
	if err != nil {
		log.Warn("Redis unavailable, falling back to in-memory cache", zap.Error(err))
		aggCache = cache.NewMemoryCache()
	} else {
		defer rdb.Close()
		aggCache = cache.NewRedisCache(rdb, log)
		log.Info("Redis connection established successfully")
	}

	// MQ publisher feeds the outbox dispatcher and the feed DLQ.
	log.Info("Initializing MQ publisher...")
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()
	log.Info("MQ publisher initialized successfully")

	dispatcherCtx, dispatcherCancel := context.WithCancel(context.Background())
	defer dispatcherCancel()

	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log)
	go dispatcher.Start(dispatcherCtx)
	log.Info("Outbox dispatcher started")

	// Change feed
	deduper := changefeed.NewDeduper(rdb, 24*time.Hour, log)
	feed := changefeed.NewRabbitSubscriber(cfg.MQ.URL, deduper, publisher, log)

	// Emergency snapshot
	snaps, err := snapshot.NewFileManager(cfg.Sync.DataDir, log)
	if err != nil {
		log.Fatal("Failed to init snapshot manager", zap.Error(err))
	}

	session := resolveSession(cfg, log)

	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig())

	eng := engine.New(engine.Deps{
		Store:    store,
		Cache:    aggCache,
		Feed:     feed,
		Snapshot: snaps,
		Logger:   log,
	}, engine.Options{
		Ref:              objectiveRef(cfg, log),
		Session:          session,
		Seed:             seedSpec(cfg),
		RetryBaseDelay:   cfg.Sync.RetryBaseDelay,
		MaxWriteAttempts: cfg.Sync.MaxWriteAttempts,
		AutoSaveInterval: cfg.Sync.AutoSaveInterval,
		Breaker:          breaker,
	})

	log.Info("Booting sync engine...")
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := eng.Boot(bootCtx); err != nil {
		bootCancel()
		log.Fatal("Engine boot failed", zap.Error(err))
	}
	bootCancel()
	log.Info("Engine booted", zap.String("sync_status", string(eng.State().SyncStatus)))

	// HTTP Server
	log.Info("Initializing HTTP server...", zap.String("port", cfg.Server.Port))
	objectiveHandler := handler.NewObjectiveHandler(eng, log)
	router := httpserver.NewRouter(objectiveHandler, eng, log, dbConn, cfg.JWT.Secret)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("syncd is fully initialized and running",
		zap.String("http_port", cfg.Server.Port),
		zap.String("data_dir", cfg.Sync.DataDir),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down syncd gracefully...")

	// Engine first: it unsubscribes the feed and snapshots unsaved work.
	eng.Close()

	log.Info("Stopping outbox dispatcher...")
	dispatcherCancel()

	log.Info("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("Closing database connection...")
	dbConn.Close()

	log.Info("syncd shutdown complete")
}

// resolveSession establishes the identity the engine acts under. A
// configured service token is verified like any client token; without
// one the daemon runs as a local admin session so first-boot seeding
// still works out of the box.
func resolveSession(cfg *config.Config, log *zap.Logger) auth.Session {
	if cfg.JWT.ServiceToken != "" {
		session, err := auth.ParseToken(cfg.JWT.ServiceToken, cfg.JWT.Secret)
		if err != nil {
			log.Fatal("Invalid service token", zap.Error(err))
		}
		log.Info("Resolved service session",
			zap.String("user_id", session.UserID),
			zap.String("role", session.Role),
		)
		return session
	}

	log.Info("No service token configured, using local admin session")
	return auth.Session{UserID: "syncd", Role: rbac.RoleAdmin}
}

func objectiveRef(cfg *config.Config, log *zap.Logger) model.ObjectiveRef {
	ref := model.ObjectiveRef{Title: cfg.Sync.ObjectiveTitle}
	if cfg.Sync.ObjectiveID != "" {
		id, err := uuid.Parse(cfg.Sync.ObjectiveID)
		if err != nil {
			log.Fatal("Invalid sync.objective_id", zap.Error(err))
		}
		ref.ID = id
	}
	return ref
}

func seedSpec(cfg *config.Config) *engine.SeedSpec {
	if !cfg.Sync.Seed.Enabled {
		return nil
	}

	seed := cfg.Sync.Seed
	out := &engine.SeedSpec{
		Objective: remotestore.ObjectiveDraft{
			Title:               cfg.Sync.ObjectiveTitle,
			Description:         seed.Description,
			TargetDate:          seed.TargetDate,
			Location:            seed.Location,
			BudgetPlanned:       seed.BudgetPlanned,
			StrategicImportance: seed.StrategicImportance,
			Tags:                seed.Tags,
			Currency:            seed.Currency,
		},
	}
	for _, kr := range seed.KeyResults {
		out.KeyResults = append(out.KeyResults, remotestore.KeyResultDraft{
			Title:        kr.Title,
			Description:  kr.Description,
			TargetValue:  kr.TargetValue,
			CurrentValue: kr.CurrentValue,
			Unit:         kr.Unit,
		})
	}
	return out
}
