package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/okanehara/travel-approval/internal"
	"github.com/okanehara/travel-approval/internal/application"
	applicationpg "github.com/okanehara/travel-approval/internal/application/postgres"
	"github.com/okanehara/travel-approval/internal/auth"
	authpg "github.com/okanehara/travel-approval/internal/auth/postgres"
	"github.com/okanehara/travel-approval/internal/core/events"
	"github.com/okanehara/travel-approval/internal/department"
	departmentpg "github.com/okanehara/travel-approval/internal/department/postgres"
	"github.com/okanehara/travel-approval/internal/document"
	documentpg "github.com/okanehara/travel-approval/internal/document/postgres"
	"github.com/okanehara/travel-approval/internal/notification"
	notificationpg "github.com/okanehara/travel-approval/internal/notification/postgres"
	"github.com/okanehara/travel-approval/internal/settings"
	settingspg "github.com/okanehara/travel-approval/internal/settings/postgres"
	"github.com/okanehara/travel-approval/internal/transport/rest"
	"github.com/okanehara/travel-approval/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Session  *redis.Client
	Router   *chi.Mux
	Handlers rest.Handlers
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.Session, deps.Handlers,
		deps.Config.Server.AllowedOrigins, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
		if err := deps.Session.Close(); err != nil {
			slog.Error("Session store close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	session := redis.NewClient(&redis.Options{
		Addr:     config.Session.Addr,
		Password: config.Session.Password,
		DB:       config.Session.DB,
	})

	bus := events.NewEventBus(log)

	tokens := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration)
	sessions := auth.NewRedisSessionStore(session)
	authService := auth.NewService(
		authpg.NewProfileRepository(gormDB),
		sessions,
		tokens,
		config.Security.RefreshTokenDuration,
		config.Security.BCryptCost,
		log)

	applicationService := application.NewService(
		applicationpg.NewApplicationRepository(gormDB),
		applicationpg.NewApprovalLogRepository(gormDB),
		bus,
		log)

	notificationService := notification.NewService(
		notificationpg.NewNotificationRepository(gormDB), log)
	notification.NewEventHandler(notificationService, log).Register(bus)

	documentService := document.NewService(
		documentpg.NewDocumentRepository(gormDB), log)

	departmentService := department.NewService(
		departmentpg.NewDepartmentRepository(gormDB),
		departmentpg.NewInvitationRepository(gormDB),
		departmentpg.NewMembershipRepository(gormDB),
		log)

	settingsService := settings.NewService(
		settingspg.NewSettingsRepository(gormDB), log)

	return &Dependencies{
		Config:  config,
		Logger:  log,
		DB:      db,
		Session: session,
		Router:  chi.NewRouter(),
		Handlers: rest.Handlers{
			Auth:         auth.NewHandler(authService),
			Application:  application.NewHandler(applicationService),
			Notification: notification.NewHandler(notificationService),
			Document:     document.NewHandler(documentService),
			Department:   department.NewHandler(departmentService),
			Settings:     settings.NewHandler(settingsService),
		},
	}, nil
}

// initDB opens the pgx-backed connection pool used by both the health
// check and the ORM layer.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
