package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/graylake-systems/graylake/internal/config"
	"github.com/graylake-systems/graylake/internal/detection"
	"github.com/graylake-systems/graylake/internal/handlers"
	"github.com/graylake-systems/graylake/internal/notifier"
	"github.com/graylake-systems/graylake/internal/ratelimit"
	"github.com/graylake-systems/graylake/internal/repository"
	"github.com/graylake-systems/graylake/internal/server"
	"github.com/graylake-systems/graylake/internal/service"
	"github.com/graylake-systems/graylake/pkg/logging"
	"github.com/graylake-systems/graylake/pkg/tokens"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	log := logging.New(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	logging.SetDefault(log)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewPostgresRepository(ctx, cfg.Database.Postgres.ConnString())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer repo.Close()
	log.Info("connected to postgres", "host", cfg.Database.Postgres.Host)

	var limiter ratelimit.RateLimiter = ratelimit.NoOpRateLimiter{}
	if cfg.Redis.Enabled {
		limiter, err = ratelimit.NewRedisRateLimiter(cfg.Redis.URL, cfg.RateLimit.Limit, cfg.RateLimit.Window)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		log.Info("rate limiting enabled", "limit", cfg.RateLimit.Limit, "window", cfg.RateLimit.Window)
	}
	defer limiter.Close()

	var pub *notifier.Publisher
	if cfg.NATS.Enabled {
		pub, err = notifier.New(cfg.NATS.URL, log)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer pub.Close()
		log.Info("alert publishing enabled", "url", cfg.NATS.URL)
	}

	gen := tokens.NewGenerator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	rule := detection.NewBruteForceRule(repo,
		detection.WithWindow(cfg.Detection.Window),
		detection.WithThreshold(cfg.Detection.Threshold),
		detection.WithMaxMatches(cfg.Detection.MaxMatchedLogs),
	)
	engineOpts := []detection.EngineOption{
		detection.WithQueueSize(cfg.Detection.QueueSize),
		detection.WithWorkers(cfg.Detection.Workers),
	}
	if pub != nil {
		engineOpts = append(engineOpts, detection.WithNotifier(pub))
	}
	engine := detection.NewEngine(repo, []detection.Rule{rule}, log, engineOpts...)
	engine.Start(ctx)
	defer engine.Wait()

	ingestSvc := service.NewIngestService(repo, engine, log)
	keySvc := service.NewAPIKeyService(repo, log)
	authSvc := service.NewAuthService(repo, gen, log)
	var statusNotifier service.StatusNotifier
	if pub != nil {
		statusNotifier = pub
	}
	alertSvc := service.NewAlertService(repo, statusNotifier, log)
	logSvc := service.NewLogService(repo)
	statsSvc := service.NewStatsService(repo)
	userSvc := service.NewUserService(repo)

	h := &server.Handlers{
		Ingest:  handlers.NewIngestHandler(ingestSvc, log),
		Alerts:  handlers.NewAlertHandler(alertSvc, log),
		Logs:    handlers.NewLogHandler(logSvc, log),
		Stats:   handlers.NewStatsHandler(statsSvc, log),
		Auth:    handlers.NewAuthHandler(authSvc, log),
		Users:   handlers.NewUserHandler(userSvc, log),
		APIKeys: handlers.NewAPIKeyHandler(keySvc, log),
		Health:  handlers.NewHealthHandler(repo),
	}

	router := server.NewRouter(h, keySvc, gen, limiter, cfg.Server.CORSOrigin)
	srv := server.New(cfg.Server, router, log)
	return srv.Run(ctx)
}
