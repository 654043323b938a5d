package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"booking-engine/internal/app"
	"booking-engine/internal/booking"
	"booking-engine/internal/cache"
	"booking-engine/internal/events"
	"booking-engine/internal/gcal"
	"booking-engine/internal/logging"
	"booking-engine/internal/repository"
	"booking-engine/internal/server"
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the booking HTTP service",
		Long: `Run the booking HTTP service until interrupted.

Environment Variables Required:
  DATABASE_URL    - PostgreSQL connection string

Optional:
  REDIS_URL, RABBITMQ_URL         - event fan-out
  GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, GOOGLE_REDIRECT_URL
                                  - Google Calendar mirror`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *options) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}
	if cfg.AutoMigrate {
		if err := repository.Migrate(ctx, pool, logger); err != nil {
			return err
		}
	}

	pg := repository.New(pool, cfg.Booking.LockTimeout)
	var reads booking.CalendarSource = pg
	if cfg.Cache.Enabled {
		reads = cache.NewCalendars(pg, cfg.Cache.Size, cfg.Cache.TTL, logger)
	} else {
		logger.Info("cache.disabled")
	}

	sinks := events.Fanout{events.LogSink{Logger: logger}}
	if cfg.Redis.URL != "" {
		client, err := events.ConnectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Warn("redis.connect.failed", "error", err)
		} else {
			defer client.Close()
			sinks = append(sinks, events.NewRedisPublisher(client, cfg.Redis.Channel))
			logger.Info("redis.connected", "channel", cfg.Redis.Channel)
		}
	}
	if cfg.RabbitMQ.URL != "" {
		pub, err := events.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			logger.Warn("rabbitmq.connect.failed", "error", err)
		} else {
			defer pub.Close()
			sinks = append(sinks, pub)
			logger.Info("rabbitmq.connected", "exchange", cfg.RabbitMQ.Exchange)
		}
	}

	var oauthCfg *oauth2.Config
	if cfg.Google.Enabled() {
		oauthCfg = gcal.NewOAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	} else {
		logger.Info("gcal.disabled")
	}
	mirror := &events.Holder{}
	startMirror := func(ctx context.Context, tok *oauth2.Token) {
		m, err := gcal.NewMirror(ctx, oauthCfg, tok, cfg.Google.CalendarID, logger)
		if err != nil {
			logger.Warn("gcal.mirror.failed", "error", err)
			return
		}
		mirror.Set(m)
		logger.Info("gcal.mirror.started", "calendar_id", cfg.Google.CalendarID)
	}
	if oauthCfg != nil {
		sinks = append(sinks, mirror)
		if tok, err := gcal.LoadToken(cfg.Google.TokenFile); err == nil {
			startMirror(ctx, tok)
		} else {
			logger.Info("gcal.token.missing", "path", cfg.Google.TokenFile)
		}
	}

	dispatcher := events.NewDispatcher(sinks, cfg.Events.Buffer, cfg.Events.Timeout, logger)
	go dispatcher.Run(context.WithoutCancel(ctx))

	svc := booking.NewService(pg, pg, booking.Options{
		Logger:        logger,
		Events:        dispatcher,
		Contacts:      repository.NewContacts(pg),
		Reads:         reads,
		TokenStatuses: cfg.Booking.Statuses(),
		MaxAttempts:   cfg.Booking.MaxAttempts,
	})

	appInstance := &app.App{Bookings: svc, Logger: logger}
	if g := app.NewGoogleOAuth(oauthCfg, cfg.Google.TokenFile); g != nil {
		g.OnToken = startMirror
		appInstance.Google = g
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := app.NewRouter(appInstance, app.AuthConfig{
		JWTSecret:    cfg.Auth.JWTSecret,
		StaticTokens: cfg.Auth.StaticTokens,
	})

	serveErr := server.Run(ctx, router, cfg.Port, cfg.ShutdownTimeout, logger)

	dispatcher.Close()
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := dispatcher.Wait(drainCtx); err != nil {
		logger.Warn("events.drain.incomplete", "error", err)
	}
	logger.Info("server.stopped")
	return serveErr
}
