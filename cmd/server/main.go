package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"attendance_gate/internal/clock"
	"attendance_gate/internal/config"
	"attendance_gate/internal/controllers"
	"attendance_gate/internal/gate"
	"attendance_gate/internal/liveness"
	"attendance_gate/internal/lock"
	"attendance_gate/internal/logger"
	"attendance_gate/internal/middleware"
	"attendance_gate/internal/revocation"
	"attendance_gate/internal/routes"
	"attendance_gate/internal/seed"
	"attendance_gate/internal/store"
)

// seedWriter is a store that can also take reference data.
type seedWriter interface {
	store.Store
	seed.Writer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration.")
	}
	logger.Setup(cfg.LogPath, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		st   seedWriter
		feed store.Feed
	)
	if cfg.Database.Enabled() {
		db, err := config.InitDB(cfg.Database)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to connect to database.")
		}
		st = store.NewPostgres(db)

		pgFeed, err := store.NewPostgresFeed(cfg.Database.DSN())
		if err != nil {
			logrus.WithError(err).Fatal("Failed to start change feed.")
		}
		defer pgFeed.Close()
		go pgFeed.Run(ctx)
		feed = pgFeed
	} else {
		logrus.Warn("DB_HOST is not set, keeping attendance in memory.")
		mem := store.NewMemory()
		st, feed = mem, mem
	}

	if cfg.SeedFile != "" {
		f, err := seed.Load(cfg.SeedFile)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to load seed file.")
		}
		if err := f.Apply(ctx, st); err != nil {
			logrus.WithError(err).Fatal("Failed to apply seed file.")
		}
	}

	var (
		locker  lock.Locker     = lock.NewMemory(clock.Real())
		revoked revocation.List = revocation.NewMemory(clock.Real())
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logrus.WithError(err).Fatal("Failed to connect to Redis.")
		}
		locker = lock.NewRedis(rdb)
		revoked = revocation.NewRedis(rdb)
		logrus.WithField("addr", cfg.RedisAddr).Info("Using Redis for clock-in locks and token revocation.")
	}

	gates := gate.NewRegistry(gate.Deps{
		Store:    st,
		Feed:     feed,
		Locker:   locker,
		Machine:  liveness.NewMachine(cfg.Liveness, nil, nil),
		Clock:    clock.Real(),
		Location: cfg.Location,
		Zone:     cfg.Timezone,
		LockTTL:  cfg.LockTTL,
	})
	defer gates.CloseAll()

	tokens := middleware.NewTokens(cfg.JWTSecret, cfg.TokenTTL, revoked)
	ctl := controllers.New(gates, st, tokens, clock.Real())
	r := routes.SetupRouter(ctl, tokens, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.WithField("addr", cfg.Addr).Info("Server running.")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Server stopped unexpectedly.")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Graceful shutdown failed.")
	}
}
