package main

import (
	"fmt"
	"strconv"

	"sherise/internal/bootstrap"
	"sherise/internal/cache"
	"sherise/internal/config"
	"sherise/internal/database"
	"sherise/internal/fixtures"
	"sherise/internal/seed"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// bootDB loads config and opens the database without touching the schema.
func bootDB() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, db, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Inspect and apply schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending SQL migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, db, err := bootDB()
		if err != nil {
			return err
		}
		if err := database.RunMigrations(cmd.Context(), db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "sql migrations applied")
		return nil
	},
}

var migrateAutoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Run gorm automigrations for the persistent models",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, db, err := bootDB()
		if err != nil {
			return err
		}
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(cmd.Context(), db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "automigrations applied")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema mode and pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, db, err := bootDB()
		if err != nil {
			return err
		}
		status, err := database.GetSchemaStatus(cmd.Context(), db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
			status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
			len(status.AppliedVersions), len(status.PendingMigrations))
		for _, m := range status.PendingMigrations {
			fmt.Fprintf(out, "pending: %06d_%s\n", m.Version, m.Name)
		}
		for _, table := range status.MissingTables {
			fmt.Fprintf(out, "missing table: %s\n", table)
		}
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down <version>",
	Short: "Roll back one applied migration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		_, db, err := bootDB()
		if err != nil {
			return err
		}
		if err := database.RollbackMigration(cmd.Context(), db, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rolled back migration %d\n", version)
		return nil
	},
}

var seedOpts = seed.DefaultOptions()

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with demo members, posts and hiring requests",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ctx := cmd.Context()
		db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
		if err != nil {
			return err
		}
		defer func() { _ = cache.Close() }()

		src, err := fixtures.NewSource(ctx, cfg)
		if err != nil {
			return err
		}
		res, err := seed.NewSeeder(db, rdb, fixtures.NewCatalog(src, rdb), cfg.JWTSecret, seedOpts).Run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d members, %d posts, %d hiring requests, %d follows\n",
			len(res.Members), res.Posts, res.Hirings, res.Follows)
		fmt.Fprintf(cmd.OutOrStdout(), "all demo members use the password %q\n", seedOpts.Password)
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateAutoCmd, migrateStatusCmd, migrateDownCmd)

	f := seedCmd.Flags()
	f.IntVar(&seedOpts.NumUsers, "users", seedOpts.NumUsers, "number of members to create")
	f.IntVar(&seedOpts.NumPosts, "posts", seedOpts.NumPosts, "number of posts to create")
	f.IntVar(&seedOpts.NumHirings, "hirings", seedOpts.NumHirings, "number of hiring requests to create")
	f.IntVar(&seedOpts.MaxFollows, "max-follows", seedOpts.MaxFollows, "maximum follows per member")
	f.BoolVar(&seedOpts.ShouldClean, "clean", seedOpts.ShouldClean, "delete all accounts and slices first")
	f.StringVar(&seedOpts.Password, "password", seedOpts.Password, "password for every demo member")
	f.Int64Var(&seedOpts.RandSeed, "rand-seed", 0, "fixed random seed for reproducible data")
}
