package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cityevents/internal/config"
	"cityevents/internal/middleware"

	"gorm.io/gorm"
)

const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaPlan is what ApplySchema does for a given mode and environment.
// Applied, Pending and MissingTables are only filled by PlanSchema.
type SchemaPlan struct {
	Mode           string
	Environment    string
	RunSQL         bool
	RunAutoMigrate bool
	Applied        []int
	Pending        []Migration
	MissingTables  []string
}

// Ready reports whether the database needs no further schema work.
func (p *SchemaPlan) Ready() bool {
	return len(p.Pending) == 0 && len(p.MissingTables) == 0
}

var stagesByMode = map[string]struct{ sql, auto bool }{
	SchemaModeSQL:    {sql: true},
	SchemaModeAuto:   {auto: true},
	SchemaModeHybrid: {sql: true, auto: true},
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// resolvePlan picks the schema stages for cfg. AutoMigrate never runs against
// production-like environments: hybrid silently drops it, auto is refused.
func resolvePlan(cfg *config.Config) (*SchemaPlan, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	stages, ok := stagesByMode[mode]
	if !ok {
		return nil, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
	if isProdLikeEnv(cfg.Env) {
		if mode == SchemaModeAuto {
			return nil, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q", cfg.Env)
		}
		stages.auto = false
	}
	return &SchemaPlan{
		Mode:           mode,
		Environment:    cfg.Env,
		RunSQL:         stages.sql,
		RunAutoMigrate: stages.auto,
	}, nil
}

// AutoMigrate creates or updates the users, categories, events and ratings tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// missingTables lists domain tables that do not exist yet.
func missingTables(db *gorm.DB) ([]string, error) {
	var missing []string
	for _, model := range PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse %T: %w", model, err)
		}
		if !db.Migrator().HasTable(stmt.Schema.Table) {
			missing = append(missing, stmt.Schema.Table)
		}
	}
	return missing, nil
}

// ApplySchema brings the database schema up to date according to
// DB_SCHEMA_MODE and fails if any domain table is still missing afterwards.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := resolvePlan(cfg)
	if err != nil {
		return err
	}

	if plan.RunSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if plan.RunAutoMigrate {
		middleware.Logger.Info("Running GORM AutoMigrate",
			slog.String("mode", plan.Mode),
			slog.String("env", plan.Environment),
		)
		if err := AutoMigrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	missing, err := missingTables(db.WithContext(ctx))
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema incomplete after %s: missing tables %s", plan.Mode, strings.Join(missing, ", "))
	}
	return nil
}

// PlanSchema reports what ApplySchema would do without changing anything.
func PlanSchema(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaPlan, error) {
	plan, err := resolvePlan(cfg)
	if err != nil {
		return nil, err
	}

	if plan.MissingTables, err = missingTables(db.WithContext(ctx)); err != nil {
		return nil, err
	}
	if !plan.RunSQL {
		return plan, nil
	}

	if plan.Applied, err = NewMigrationStore(db).GetAppliedMigrations(ctx); err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(plan.Applied))
	for _, version := range plan.Applied {
		done[version] = true
	}
	for _, m := range GetMigrations() {
		if !done[m.Version] {
			plan.Pending = append(plan.Pending, m)
		}
	}
	return plan, nil
}
