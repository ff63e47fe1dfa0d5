// Package migrate implements the database migration and seeding
// commands.
package migrate

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"keel/internal/infrastructure/auth"
	"keel/internal/infrastructure/config"
	"keel/internal/infrastructure/database"
	"keel/internal/infrastructure/migration"
	"keel/internal/infrastructure/persistence/seeds"
	"keel/internal/shared/id"
	"keel/internal/shared/logger"
)

var (
	env           string
	name          string
	steps         int
	adminPassword string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Run migrations, inspect their status, create new migration files and seed baseline data.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")

	cmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newStatusCommand(),
		newCreateCommand(),
		newSeedCommand(),
	)

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		RunE:  runUp,
	}
}

func newDownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE:  runDown,
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE:  runStatus,
	}
}

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new migration",
		RunE:  runCreate,
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the migration (required)")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the admin account, role and permission catalog",
		RunE:  runSeed,
	}
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "Initial admin password (required on first seed)")
	return cmd
}

func initEnv() (*gorm.DB, string, logger.Interface, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger); err != nil {
		return nil, "", nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	if err := id.Init(cfg.ID.ServerID, cfg.ID.DatacenterID); err != nil {
		return nil, "", nil, fmt.Errorf("failed to initialize id generator: %w", err)
	}

	db, err := database.Connect(&cfg.Database)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to connect database: %w", err)
	}

	scriptsPath, err := filepath.Abs("./internal/infrastructure/migration/scripts")
	if err != nil {
		database.Close(db)
		return nil, "", nil, fmt.Errorf("failed to get scripts path: %w", err)
	}
	return db, scriptsPath, log, nil
}

func runUp(cmd *cobra.Command, args []string) error {
	db, scriptsPath, log, err := initEnv()
	if err != nil {
		return err
	}
	defer database.Close(db)

	log.Infow("running up migrations", "environment", env)
	if err := migration.NewGooseStrategy(scriptsPath).Migrate(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Infow("migrations completed successfully")
	return nil
}

func runDown(cmd *cobra.Command, args []string) error {
	db, scriptsPath, log, err := initEnv()
	if err != nil {
		return err
	}
	defer database.Close(db)

	log.Infow("running down migrations", "environment", env, "steps", steps)
	if err := migration.NewGooseStrategy(scriptsPath).MigrateDown(db, steps); err != nil {
		return fmt.Errorf("down migration failed: %w", err)
	}
	log.Infow("down migration completed successfully")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	db, scriptsPath, log, err := initEnv()
	if err != nil {
		return err
	}
	defer database.Close(db)

	strategy := migration.NewGooseStrategy(scriptsPath)
	version, err := strategy.GetVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	fmt.Printf("\nMigration Status:\n")
	fmt.Printf("  Environment:     %s\n", env)
	fmt.Printf("  Current Version: %d\n", version)

	if err := strategy.Status(db); err != nil {
		return fmt.Errorf("failed to get detailed status: %w", err)
	}
	log.Infow("status check completed")
	return nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	db, scriptsPath, _, err := initEnv()
	if err != nil {
		return err
	}
	defer database.Close(db)

	return migration.NewGooseStrategy(scriptsPath).Create(name)
}

func runSeed(cmd *cobra.Command, args []string) error {
	if adminPassword == "" {
		return fmt.Errorf("--admin-password is required")
	}

	db, _, log, err := initEnv()
	if err != nil {
		return err
	}
	defer database.Close(db)

	cfg := config.Get()
	hasher := auth.NewBcryptPasswordHasher(cfg.Auth.BcryptCost)
	if err := seeds.Seed(db, hasher, adminPassword, log); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	log.Infow("seeding completed")
	return nil
}
