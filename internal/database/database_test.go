package database

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"cityevents/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestConfigurePool_Defaults(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, configurePool(db, &config.Config{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)
}

func TestEmbeddedMigrationsLoaded(t *testing.T) {
	all := GetMigrations()
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "init", all[0].Name)
	assert.Contains(t, all[0].UpScript, "CREATE TABLE IF NOT EXISTS ratings")
	assert.Contains(t, all[0].UpScript, "idx_ratings_event_user")
	assert.Contains(t, all[0].DownScript, "DROP TABLE IF EXISTS users")
	assert.Equal(t, "000001_init", all[0].String())
	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestLoadMigrations(t *testing.T) {
	t.Run("sorted pairs", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/000002_second.up.sql":   {Data: []byte("B")},
			"m/000002_second.down.sql": {Data: []byte("b")},
			"m/000001_first.up.sql":    {Data: []byte("A")},
			"m/000001_first.down.sql":  {Data: []byte("a")},
			"m/README.md":              {Data: []byte("ignored")},
		}
		got, err := LoadMigrations(fsys, "m")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[0].Version)
		assert.Equal(t, "first", got[0].Name)
		assert.Equal(t, "a", got[0].DownScript)
		assert.Equal(t, 2, got[1].Version)
	})

	t.Run("missing down script", func(t *testing.T) {
		fsys := fstest.MapFS{"m/000001_first.up.sql": {Data: []byte("A")}}
		_, err := LoadMigrations(fsys, "m")
		assert.Error(t, err)
	})

	t.Run("bad version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/abc_first.up.sql":   {Data: []byte("A")},
			"m/abc_first.down.sql": {Data: []byte("a")},
		}
		_, err := LoadMigrations(fsys, "m")
		assert.Error(t, err)
	})

	t.Run("duplicate version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/000001_a.up.sql":   {Data: []byte("A")},
			"m/000001_a.down.sql": {Data: []byte("a")},
			"m/000001_b.up.sql":   {Data: []byte("B")},
			"m/000001_b.down.sql": {Data: []byte("b")},
		}
		_, err := LoadMigrations(fsys, "m")
		assert.Error(t, err)
	})
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))

	err := validateAppliedVersions([]int{1, 7, 3}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000003, 000007")
}

func TestResolvePlan(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		env     string
		runSQL  bool
		runAuto bool
		wantErr bool
	}{
		{"hybrid dev", "hybrid", "development", true, true, false},
		{"hybrid default mode", "", "development", true, true, false},
		{"hybrid prod", "hybrid", "production", true, false, false},
		{"sql only", "sql", "development", true, false, false},
		{"auto dev", "auto", "development", false, true, false},
		{"auto prod refused", "auto", "prod", false, false, true},
		{"auto staging refused", "auto", "staging", false, false, true},
		{"unknown", "magic", "development", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := resolvePlan(&config.Config{DBSchemaMode: tt.mode, Env: tt.env})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.runSQL, plan.RunSQL)
			assert.Equal(t, tt.runAuto, plan.RunAutoMigrate)
		})
	}
}

func TestMigrationStore_ApplyAndRevert(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, db.AutoMigrate(&MigrationLog{}))

	store := NewMigrationStore(db)
	m := Migration{
		Version:    42,
		Name:       "widgets",
		UpScript:   "CREATE TABLE widgets (id INTEGER PRIMARY KEY)",
		DownScript: "DROP TABLE widgets",
	}

	require.NoError(t, store.ApplyMigration(ctx, m))
	applied, err := store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{42}, applied)
	assert.True(t, db.Migrator().HasTable("widgets"))

	require.NoError(t, store.RevertMigration(ctx, m))
	applied, err = store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.False(t, db.Migrator().HasTable("widgets"))
}

func TestMigrationStore_FailedApplyLeavesNoRecord(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, db.AutoMigrate(&MigrationLog{}))

	store := NewMigrationStore(db)
	err := store.ApplyMigration(ctx, Migration{Version: 5, Name: "broken", UpScript: "CREATE TABLE ("})
	require.Error(t, err)

	applied, err := store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestGetAppliedMigrations_MissingTable(t *testing.T) {
	db := openSQLite(t)
	applied, err := NewMigrationStore(db).GetAppliedMigrations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestAutoMigrateCreatesDomainTables(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, AutoMigrate(db))
	for _, table := range []string{"users", "categories", "events", "ratings"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("ratings", "idx_ratings_event_user"))
}

func TestPlanSchema_ReportsMissingTables(t *testing.T) {
	db := openSQLite(t)
	cfg := &config.Config{DBSchemaMode: SchemaModeAuto, Env: "test"}
	ctx := context.Background()

	plan, err := PlanSchema(ctx, db, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "categories", "events", "ratings"}, plan.MissingTables)
	assert.False(t, plan.Ready())

	require.NoError(t, ApplySchema(ctx, db, cfg))

	plan, err = PlanSchema(ctx, db, cfg)
	require.NoError(t, err)
	assert.Empty(t, plan.MissingTables)
	assert.True(t, plan.Ready())
}

func TestGormLoggerLogMode(t *testing.T) {
	l := NewGormLogger(logger.Warn)
	quiet := l.LogMode(logger.Silent).(*CustomGormLogger)
	assert.Equal(t, logger.Silent, quiet.Config.LogLevel)
	assert.Equal(t, logger.Warn, l.Config.LogLevel)
	assert.Equal(t, 200*time.Millisecond, l.Config.SlowThreshold)
}

func TestGetReadDBFallsBackToPrimary(t *testing.T) {
	primary := openSQLite(t)
	prevDB, prevRead := DB, readDB
	t.Cleanup(func() { DB, readDB = prevDB, prevRead })

	DB, readDB = primary, nil
	assert.Same(t, primary, GetReadDB())
	assert.NoError(t, Ping(context.Background(), primary))
}
