package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"campus/internal/config"
	"campus/internal/middleware"

	"gorm.io/gorm"
)

const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

var prodLikeEnvs = []string{"production", "prod", "staging", "stage"}

// schemaPlan is what ApplySchema will do for a config.
type schemaPlan struct {
	Mode    string
	RunSQL  bool
	RunAuto bool
}

// SchemaStatus describes what ApplySchema would do for a config.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// planSchema maps DB_SCHEMA_MODE to migration steps.
//   - sql runs the embedded SQL only.
//   - auto runs AutoMigrate only; prod-like envs must opt in.
//   - hybrid runs the SQL everywhere and AutoMigrate outside prod-like envs.
//
// The embedded SQL targets PostgreSQL, so SQLite always uses AutoMigrate.
func planSchema(cfg *config.Config) (schemaPlan, error) {
	plan := schemaPlan{Mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}
	if !slices.Contains([]string{SchemaModeHybrid, SchemaModeSQL, SchemaModeAuto}, plan.Mode) {
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}

	if cfg.DBDriver == DriverSQLite {
		plan.RunAuto = true
		return plan, nil
	}

	prodLike := slices.Contains(prodLikeEnvs, strings.ToLower(strings.TrimSpace(cfg.Env)))
	switch plan.Mode {
	case SchemaModeSQL:
		plan.RunSQL = true
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.RunAuto = true
	case SchemaModeHybrid:
		plan.RunSQL = true
		plan.RunAuto = !prodLike
	}
	return plan, nil
}

// ApplySchema runs SQL migrations and/or AutoMigrate according to DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.RunSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !plan.RunAuto {
		return nil
	}

	if plan.Mode == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
		middleware.Logger.Warn("AutoMigrate allowed in a prod-like environment; review schema diffs before deploying")
	}
	middleware.Logger.Info("Running GORM AutoMigrate", slog.String("mode", plan.Mode), slog.String("env", cfg.Env))
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the schema plan and, when SQL migrations apply, which are pending.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.Mode,
		Environment:        cfg.Env,
		WillRunSQL:         plan.RunSQL,
		WillRunAutoMigrate: plan.RunAuto,
	}
	if !plan.RunSQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).Applied(ctx)
	if err != nil {
		return nil, err
	}
	done := appliedVersions(applied)
	for _, row := range applied {
		status.AppliedVersions = append(status.AppliedVersions, row.Version)
	}
	for _, m := range GetMigrations() {
		if !done[m.Version] {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}
	return status, nil
}
