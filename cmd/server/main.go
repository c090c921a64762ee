package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ifcoins/quizroom/internal/config"
	"ifcoins/quizroom/internal/events"
	"ifcoins/quizroom/internal/jobs"
	"ifcoins/quizroom/internal/ledger"
	"ifcoins/quizroom/internal/metrics"
	"ifcoins/quizroom/internal/models"
	"ifcoins/quizroom/internal/repositories"
	rooms "ifcoins/quizroom/internal/room_management"
	"ifcoins/quizroom/internal/routers"
	"ifcoins/quizroom/internal/session"
	"ifcoins/quizroom/internal/utils"
)

var (
	gormOpen = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.Open(dsn), &gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		})
	}
	dbConnectTimeout = 30 * time.Second
)

// connectWithRetry keeps dialing until the database answers a ping or timeout passes.
func connectWithRetry(dsn string, timeout time.Duration, logger *zap.Logger) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	backoff := 100 * time.Millisecond
	var lastErr error

	for {
		db, err := gormOpen(dsn)
		if err == nil {
			sqlDB, dbErr := db.DB()
			if dbErr == nil {
				if dbErr = sqlDB.Ping(); dbErr == nil {
					return db, nil
				}
				sqlDB.Close()
			}
			err = dbErr
		}
		lastErr = err

		if time.Now().Add(backoff).After(deadline) {
			return nil, fmt.Errorf("database not reachable after %s: %w", timeout, lastErr)
		}
		logger.Warn("database not ready, retrying", zap.Duration("backoff", backoff), zap.Error(err))
		time.Sleep(backoff)
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Room{},
		&models.Player{},
		&models.MatchHistory{},
		&models.Wallet{},
		&models.CoinTransaction{},
		&models.Card{},
		&models.UserCard{},
	)
}

// app holds everything main starts and must stop again.
type app struct {
	router    *chi.Mux
	refresher *jobs.SnapshotRefresherJob
	closers   []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	db, err := connectWithRetry(cfg.Postgres.DSN(), dbConnectTimeout, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := migrate(db); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	a.closers = append(a.closers, func() { rdb.Close() })

	bus := events.NewRedisBus(rdb, logger)
	hub := session.NewHub(logger)

	// live updates degrade to polling when redis is down; room operations keep working
	subCtx, cancelSub := context.WithCancel(ctx)
	a.closers = append(a.closers, cancelSub)
	if sub, err := bus.SubscribeAll(subCtx); err != nil {
		logger.Error("failed to subscribe to room events, websocket updates disabled", zap.Error(err))
	} else {
		a.closers = append(a.closers, func() { sub.Close() })
		go hub.Run(subCtx, sub.C)
	}

	rm := rooms.NewRoomManager(rooms.Deps{
		Rooms:        &repositories.RoomRepository{DB: db},
		Players:      &repositories.PlayerRepository{DB: db},
		History:      &repositories.HistoryRepository{DB: db},
		Ledger:       &ledger.CoinLedger{DB: db},
		Cards:        &ledger.CardInventory{DB: db},
		Publisher:    bus,
		Hub:          hub,
		Logger:       logger,
		CodeAttempts: cfg.JoinCodeAttempts,
	})

	a.refresher = jobs.NewSnapshotRefresherJob(rm, cfg.SnapshotRefreshSchedule, logger)

	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	router.Use(chimw.RequestID, chimw.RealIP, chimw.Logger, chimw.Recoverer, metrics.Middleware("quizroom"))

	routers.HealthRoutes(router, map[string]routers.HealthCheck{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})
	// websocket routes must not be cut off by the request timeout
	router.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if websocketRequest(req) {
					next.ServeHTTP(w, req)
					return
				}
				chimw.Timeout(60*time.Second)(next).ServeHTTP(w, req)
			})
		})
		routers.RoomRoutes(r, rm, cfg.JWTSecret)
	})
	a.router = router

	return a, nil
}

func websocketRequest(r *http.Request) bool {
	return r.Header.Get("Upgrade") == "websocket"
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.refresher.Start(); err != nil {
		return fmt.Errorf("failed to start snapshot refresher: %w", err)
	}
	defer a.refresher.Stop()

	serverAddr := ":" + cfg.Port
	// no WriteTimeout: websocket connections stay open for a whole quiz
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           a.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("quiz room service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("quiz room service shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("quiz room service exited")
	return nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("quiz room service failed", zap.Error(err))
	}
}
