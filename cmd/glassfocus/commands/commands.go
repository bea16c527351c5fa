package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/glassfocus/core/internal/adapters/repository"
	"github.com/glassfocus/core/internal/adapters/repository/migrations"
	"github.com/glassfocus/core/internal/application/services"
	"github.com/glassfocus/core/internal/domain/entities"
	"github.com/glassfocus/core/internal/infrastructure/config"
	"github.com/glassfocus/core/internal/infrastructure/database"
	"github.com/glassfocus/core/internal/infrastructure/logger"
	"github.com/glassfocus/core/internal/infrastructure/server"
	"github.com/glassfocus/core/internal/worker"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the GlassFocus server",
		Long:  "Start the GlassFocus server with the state engine, background workers and the shell cache manager",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("up")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("down")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Run: func(cmd *cobra.Command, args []string) {
			showMigrationVersion()
		},
	})

	return migrateCmd
}

// NewRolloverCommand creates the rollover command
func NewRolloverCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rollover",
		Short: "Run the daily rollover once and exit",
		Long:  "Archive the previous day's tasks and update the streak, without starting the server",
		Run: func(cmd *cobra.Command, args []string) {
			runRollover()
		},
	}
}

// NewStatsCommand creates the stats command
func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the analytics summary",
		Run: func(cmd *cobra.Command, args []string) {
			runStats()
		},
	}
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print GlassFocus version",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				log.Fatalf("Failed to load configuration: %v", err)
			}
			fmt.Printf("GlassFocus %s\n", cfg.App.Version)
			fmt.Printf("Shell cache: %s\n", cfg.Shell.CacheName())
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	loc, err := cfg.App.Location()
	if err != nil {
		appLogger.Fatalw("Invalid timezone", "timezone", cfg.App.Timezone, "error", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		appLogger.Fatalw("Failed to open database", "error", err)
	}
	defer db.Close()

	if err := migrateUp(db); err != nil {
		appLogger.Fatalw("Failed to run migrations", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositories and services
	documentRepo := repository.NewDocumentRepository(db)
	shellRepo := repository.NewShellCacheRepository(db)

	stateService := services.NewStateService(documentRepo, loc, appLogger)
	stateService.Load(ctx)
	if err := stateService.RunDailyRollover(ctx); err != nil {
		appLogger.Errorw("Day rollover failed", "error", err)
	}
	stateService.RefreshDailyStats(ctx)

	analyticsService := services.NewAnalyticsService(stateService, loc)

	registry := prometheus.NewRegistry()
	shellService := services.NewShellService(shellRepo, cfg.Shell, appLogger, registry)

	// Background workers
	refreshWorker := worker.NewRefreshWorker(stateService, cfg.Workers.RefreshInterval, appLogger)
	go refreshWorker.Start(ctx)

	notifier := worker.NewLogNotifier(appLogger)
	reminderWorker := worker.NewReminderWorker(stateService, notifier, cfg.Workers.ReminderLead, loc, appLogger)
	stateService.OnSettingsChange(func(entities.Settings) {
		reminderWorker.Reschedule()
	})
	go reminderWorker.Start(ctx)

	// Shell lifecycle
	go func() {
		if err := shellService.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Errorw("Shell lifecycle failed", "error", err)
		}
	}()

	srv, err := server.New(cfg, db, appLogger, registry, stateService, analyticsService, shellService)
	if err != nil {
		appLogger.Fatalw("Failed to initialize server", "error", err)
	}

	appLogger.Infow("Starting GlassFocus server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
	)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := srv.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalw("Server failed to start", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorw("Server shutdown failed", "error", err)
	}
	shellService.Close()
}

func newMigrator(db *database.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to load migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(db.DB.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	return migrate.NewWithInstance("iofs", source, "sqlite", driver)
}

func migrateUp(db *database.DB) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func runMigration(direction string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	m, err := newMigrator(db)
	if err != nil {
		log.Fatalf("Failed to create migration instance: %v", err)
	}

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Migration failed: %v", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("No migrations to run")
	} else {
		fmt.Printf("Migration %s completed successfully\n", direction)
	}
}

func showMigrationVersion() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	m, err := newMigrator(db)
	if err != nil {
		log.Fatalf("Failed to create migration instance: %v", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		log.Fatalf("Failed to get migration version: %v", err)
	}

	fmt.Printf("Current migration version: %d\n", version)
	fmt.Printf("Dirty: %t\n", dirty)
}

func runRollover() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	loc, err := cfg.App.Location()
	if err != nil {
		log.Fatalf("Invalid timezone: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := migrateUp(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()
	stateService := services.NewStateService(repository.NewDocumentRepository(db), loc, appLogger)
	stateService.Load(ctx)

	if err := stateService.RunDailyRollover(ctx); err != nil {
		log.Fatalf("Rollover failed: %v", err)
	}
	stateService.RefreshDailyStats(ctx)

	state := stateService.State()
	fmt.Printf("Rollover complete: %d active tasks, %d archive entries\n", len(state.Todos), len(state.Archive))
}

func runStats() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	loc, err := cfg.App.Location()
	if err != nil {
		log.Fatalf("Invalid timezone: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := migrateUp(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()
	stateService := services.NewStateService(repository.NewDocumentRepository(db), loc, appLogger)
	stateService.Load(ctx)

	report := services.NewAnalyticsService(stateService, loc).Report(ctx)

	fmt.Printf("Tasks completed (all time): %d\n", report.TotalTasksCompleted)
	fmt.Printf("Productive days:            %d\n", report.ProductiveDays)
	fmt.Printf("Current streak:             %d\n", report.CurrentStreak)
	fmt.Printf("Best streak:                %d\n", report.BestStreak)
	fmt.Printf("Books reading:              %d\n", report.BooksReading)
	fmt.Printf("Books completed:            %d\n", report.BooksCompleted)
	fmt.Printf("Books completed this year:  %d\n", report.BooksCompletedThisYear)
	fmt.Printf("Today: %d/%d (%.0f%%)\n", report.Today.Completed, report.Today.Total, report.Today.Percent)
}
