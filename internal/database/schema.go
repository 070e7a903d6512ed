package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sherise/internal/config"
	"sherise/internal/middleware"

	"gorm.io/gorm"
)

// DB_SCHEMA_MODE values.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus is the plan for the configured mode plus what the database holds now.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
	MissingTables      []string
}

// Only reviewed SQL touches the account and slice tables in these environments.
var sqlOnlyEnvs = map[string]bool{
	"production": true,
	"prod":       true,
	"staging":    true,
	"stage":      true,
}

func schemaMode(cfg *config.Config) string {
	if mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)); mode != "" {
		return mode
	}
	return SchemaModeHybrid
}

func schemaPolicy(cfg *config.Config) (runSQL, runAuto bool, err error) {
	sqlOnly := sqlOnlyEnvs[strings.ToLower(strings.TrimSpace(cfg.Env))]

	switch mode := schemaMode(cfg); mode {
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeHybrid:
		return true, !sqlOnly, nil
	case SchemaModeAuto:
		if sqlOnly {
			return false, false, fmt.Errorf("DB_SCHEMA_MODE=auto is not allowed in %q; use sql or hybrid", cfg.Env)
		}
		return false, true, nil
	default:
		return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

// missingTables lists the tables of PersistentModels that the database lacks.
func missingTables(db *gorm.DB) []string {
	var missing []string
	for _, m := range PersistentModels() {
		if db.Migrator().HasTable(m) {
			continue
		}
		name := fmt.Sprintf("%T", m)
		if t, ok := m.(interface{ TableName() string }); ok {
			name = t.TableName()
		}
		missing = append(missing, name)
	}
	return missing
}

// ApplySchema brings the database up to date for DB_SCHEMA_MODE, then checks that the
// accounts and slices tables exist. The slice store has no fallback for a missing table.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}
	mode := schemaMode(cfg)

	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if runAuto {
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	if missing := missingTables(db.WithContext(ctx)); len(missing) > 0 {
		return fmt.Errorf("schema incomplete after %s apply, missing tables: %s", mode, strings.Join(missing, ", "))
	}

	middleware.Logger.Info("Schema ready",
		slog.String("mode", mode),
		slog.String("env", cfg.Env),
		slog.Bool("sql", runSQL),
		slog.Bool("auto_migrate", runAuto),
	)
	return nil
}

// GetSchemaStatus reports the plan, the migration history and any missing tables without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               schemaMode(cfg),
		Environment:        cfg.Env,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
		MissingTables:      missingTables(db.WithContext(ctx)),
	}
	if !runSQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied

	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}
	for _, m := range GetMigrations() {
		if !done[m.Version] {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}
	return status, nil
}
