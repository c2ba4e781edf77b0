package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/creatorhub/pkg/creatorhub/auth"
	"github.com/mikepea/creatorhub/pkg/creatorhub/config"
	"github.com/mikepea/creatorhub/pkg/creatorhub/database"
	"github.com/mikepea/creatorhub/pkg/creatorhub/events"
	"github.com/mikepea/creatorhub/pkg/creatorhub/logger"
	"github.com/mikepea/creatorhub/pkg/creatorhub/models"
	"github.com/mikepea/creatorhub/pkg/creatorhub/onboarding"
	"github.com/mikepea/creatorhub/pkg/creatorhub/server"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RootOptions holds global flags for all commands
type RootOptions struct {
	EnvFile string
}

// NewRootCommand creates the root command. Running it without a subcommand
// starts the server.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "creatorhub-server",
		Short:         "Creatorhub API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "read configuration from this env file instead of .env")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))

	return cmd
}

func newServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func newMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(opts)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return migrate(cfg)
		},
	}
}

func newSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the platform admin from ADMIN_EMAIL and ADMIN_PASSWORD if no admin exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(opts)
			if err != nil {
				return err
			}
			defer logger.Sync()
			if err := migrate(cfg); err != nil {
				return err
			}
			return ensureAdminExists(database.GetDB(), cfg.Admin)
		},
	}
}

// setup loads configuration and initialises logging and auth
func setup(opts *RootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.EnvFile != "" {
		cfg, err = config.LoadWithPath(opts.EnvFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Development: cfg.Log.Development,
		OutputPath:  "stdout",
	}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	auth.Configure(cfg.JWT)
	return cfg, nil
}

func migrate(cfg *config.Config) error {
	if err := database.Connect(cfg.Database.Driver, cfg.Database.DSN); err != nil {
		return err
	}
	if err := models.AutoMigrate(database.GetDB()); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.L().Info("database migrations completed", zap.String("driver", cfg.Database.Driver))
	return nil
}

func runServe(ctx context.Context, opts *RootOptions) error {
	cfg, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.L()

	if err := migrate(cfg); err != nil {
		return err
	}
	if err := ensureAdminExists(database.GetDB(), cfg.Admin); err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}

	guard, closeGuard := sessionGuard(cfg)
	defer closeGuard()

	publisher, err := eventPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(server.Deps{
		DB:            database.GetDB(),
		ServiceName:   cfg.App.Name,
		BaseDomain:    cfg.Tenant.BaseDomain,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		WebDistPath:   cfg.Server.WebDistPath,
		Guard:         guard,
		Publisher:     publisher,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr), zap.String("environment", cfg.App.Environment))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sessionGuard uses redis when configured so that every instance shares
// claims; otherwise claims are per process
func sessionGuard(cfg *config.Config) (onboarding.SessionGuard, func()) {
	ttl := cfg.JWT.TTL
	if cfg.Redis.Addr == "" {
		return onboarding.NewMemoryGuard(ttl), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.L().Info("session guard using redis", zap.String("addr", cfg.Redis.Addr))
	return onboarding.NewRedisGuard(client, cfg.App.Name+":", ttl), func() { client.Close() }
}

func eventPublisher(cfg *config.Config) (events.Publisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.NewLogPublisher(nil), nil
	}
	p, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ClientID)
	if err != nil {
		return nil, err
	}
	logger.L().Info("publishing events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	return p, nil
}

// ensureAdminExists creates the platform admin if no admin exists in the database
func ensureAdminExists(db *gorm.DB, admin config.AdminConfig) error {
	var count int64
	if err := db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashedPassword, err := auth.HashPassword(admin.Password)
	if err != nil {
		return err
	}
	adminUser := models.User{
		Email:        admin.Email,
		Name:         "Admin",
		PasswordHash: hashedPassword,
		SystemRole:   models.SystemRoleAdmin,
	}
	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	logger.L().Info("created platform admin", zap.String("email", admin.Email))
	return nil
}
