package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/iliyamo/crowlee-bookings/internal/config"
	"github.com/iliyamo/crowlee-bookings/internal/database"
	"github.com/iliyamo/crowlee-bookings/internal/handler"
	"github.com/iliyamo/crowlee-bookings/internal/logger"
	"github.com/iliyamo/crowlee-bookings/internal/middleware"
	"github.com/iliyamo/crowlee-bookings/internal/queue"
	"github.com/iliyamo/crowlee-bookings/internal/repository"
	"github.com/iliyamo/crowlee-bookings/internal/router"
	"github.com/iliyamo/crowlee-bookings/internal/service"
	"github.com/iliyamo/crowlee-bookings/internal/session"
	"github.com/iliyamo/crowlee-bookings/internal/tracing"
)

const serviceName = "crowlee-bookings"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.InsecureSecret {
		log.Warn("JWT_SECRET not set; using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, log, cfg.OTLPEndpoint, serviceName, cfg.Env)
	if err != nil {
		log.WithError(err).Fatal("init tracing")
	}

	if cfg.MigrateOnBoot {
		user, pass, host, port, name := cfg.DSNParts()
		v, err := database.Migrate(database.DSN(user, pass, host, port, name, "multiStatements=true"))
		if err != nil {
			log.WithError(err).Fatal("migrate")
		}
		log.WithField("version", v).Info("schema up to date")
	}

	db, err := database.Open(cfg.DSNParts())
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	rdb := config.NewRedisClient(config.LoadRedisConfig(), log)
	revoker := session.NewRevoker(rdb, "bookings:sess", cfg.SessionTTL)

	// Events go to RabbitMQ off the request path; without a broker they are dropped.
	var events queue.Publisher = queue.NopPublisher{}
	var async *queue.AsyncPublisher
	if cfg.AMQPURL != "" {
		async = queue.NewAsyncPublisher(queue.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsQueue, log), 5*time.Second)
		events = async
		consumer := &queue.ActivityConsumer{URL: cfg.AMQPURL, Queue: cfg.EventsQueue, LogDir: cfg.ActivityLog, Log: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("activity consumer stopped")
			}
		}()
	} else {
		log.Info("RABBITMQ_URL not set; activity events disabled")
	}

	users := repository.NewUserRepo(db)
	invitations := repository.NewInvitationRepo(db)
	timeLogs := repository.NewTimeLogRepo(db)

	authSvc := service.NewAuthService(service.AuthConfig{
		Secret:     cfg.JWTSecret,
		SessionTTL: cfg.SessionTTL,
		BcryptCost: cfg.BcryptCost,
	}, users, invitations, events, log)
	timeLogSvc := service.NewTimeLogService(timeLogs, events, log)
	invitationSvc := service.NewInvitationService(invitations, cfg.BaseURL, events, log)
	userSvc := service.NewUserService(users, revoker, cfg.BcryptCost, log)

	ready := map[string]func(context.Context) error{"database": handler.PingCheck(db)}
	if rdb != nil {
		defer rdb.Close()
		ready["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	e := router.New(router.Deps{
		Auth:          handler.NewAuthHandler(authSvc, revoker, cfg.JWTSecret, cfg.Production(), log),
		TimeLogs:      handler.NewTimeLogHandler(timeLogSvc, log),
		AdminTimeLogs: handler.NewAdminTimeLogHandler(timeLogSvc, log),
		Invitations:   handler.NewInvitationHandler(invitationSvc, log),
		Users:         handler.NewUserHandler(userSvc, log),
		Secret:        cfg.JWTSecret,
		Revocations:   revoker,
		AuthLimiter:   middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		Ready:         handler.Ready(ready),
		Log:           log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(e, serviceName),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"addr": srv.Addr, "env": cfg.Env}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	if async != nil {
		async.Wait()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.WithError(err).Warn("tracing shutdown")
	}
}
