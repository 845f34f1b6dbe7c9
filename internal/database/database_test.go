package database

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"campus/internal/config"
	"campus/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
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

func TestDialector(t *testing.T) {
	d, err := Dialector(&config.Config{DBDriver: DriverSQLite, DBSQLitePath: "x.db"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = Dialector(&config.Config{DBDriver: DriverPostgres, DBHost: "localhost", DBPort: "5432"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = Dialector(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantSQL bool
		wantAut bool
		wantErr bool
	}{
		{name: "hybrid dev", cfg: config.Config{Env: "development"}, wantSQL: true, wantAut: true},
		{name: "hybrid prod", cfg: config.Config{Env: "production"}, wantSQL: true},
		{name: "sql", cfg: config.Config{DBSchemaMode: "sql", Env: "development"}, wantSQL: true},
		{name: "auto dev", cfg: config.Config{DBSchemaMode: "auto", Env: "development"}, wantAut: true},
		{name: "auto prod refused", cfg: config.Config{DBSchemaMode: "auto", Env: "production"}, wantErr: true},
		{name: "auto prod allowed", cfg: config.Config{DBSchemaMode: "auto", Env: "production", DBAutoMigrateAllowDestructive: true}, wantAut: true},
		{name: "sqlite forces auto", cfg: config.Config{DBDriver: DriverSQLite, DBSchemaMode: "sql"}, wantAut: true},
		{name: "unknown mode", cfg: config.Config{DBSchemaMode: "magic"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planSchema(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, plan.RunSQL)
			assert.Equal(t, tt.wantAut, plan.RunAuto)
		})
	}
}

func TestEmbeddedMigrationsRegistered(t *testing.T) {
	all := GetMigrations()
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "init", all[0].Name)
	assert.Contains(t, all[0].UpScript, "idx_user_variants_user_variant")
	assert.Contains(t, all[0].DownScript, "DROP TABLE IF EXISTS user_variants")
	assert.Equal(t, "000001_init", all[0].String())
	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000002_second.up.sql":   {Data: []byte("SELECT 2;")},
		"migrations/000002_second.down.sql": {Data: []byte("SELECT -2;")},
		"migrations/000001_first.up.sql":    {Data: []byte("SELECT 1;")},
		"migrations/000001_first.down.sql":  {Data: []byte("SELECT -1;")},
		"migrations/README.md":              {Data: []byte("ignored")},
	}

	loaded, err := loadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 1, loaded[0].Version)
	assert.Equal(t, "second", loaded[1].Name)

	missingDown := fstest.MapFS{
		"migrations/000001_first.up.sql": {Data: []byte("SELECT 1;")},
	}
	_, err = loadMigrations(missingDown)
	assert.Error(t, err)
}

func TestVerifyLedger(t *testing.T) {
	registered := []Migration{{Version: 1, Name: "one", UpScript: "SELECT 1;"}, {Version: 2, Name: "two"}}
	row := func(version int, checksum string) AppliedMigration {
		return AppliedMigration{Version: version, Checksum: checksum}
	}

	assert.NoError(t, verifyLedger(nil, registered))
	assert.NoError(t, verifyLedger([]AppliedMigration{row(1, registered[0].Checksum()), row(2, "")}, registered))

	err := verifyLedger([]AppliedMigration{row(1, ""), row(7, ""), row(3, "")}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000003, 000007")

	err = verifyLedger([]AppliedMigration{row(1, "stale")}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000001_one")
}

func TestRunMigrationsAndRollback(t *testing.T) {
	saved := migrations
	t.Cleanup(func() { migrations = saved })

	fsys := fstest.MapFS{
		"migrations/000001_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT);")},
		"migrations/000001_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
	}
	require.NoError(t, RegisterMigrations(fsys))

	db := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, RunMigrations(ctx, db))
	// Second run is a no-op.
	require.NoError(t, RunMigrations(ctx, db))

	applied, err := NewMigrationStore(db).Applied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, 1, applied[0].Version)
	assert.Equal(t, GetMigrations()[0].Checksum(), applied[0].Checksum)
	assert.True(t, db.Migrator().HasTable("widgets"))

	require.NoError(t, RollbackMigration(ctx, db, 1))
	assert.False(t, db.Migrator().HasTable("widgets"))
	assert.Error(t, RollbackMigration(ctx, db, 1))
}

func TestApplySchema_SQLiteAutoMigrates(t *testing.T) {
	db := openSQLite(t)
	cfg := &config.Config{DBDriver: DriverSQLite, Env: "test"}

	require.NoError(t, ApplySchema(context.Background(), db, cfg))
	for _, table := range []string{"users", "subjects", "variants", "user_variants", "subscriptions", "resources", "evaluations"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	status, err := GetSchemaStatus(context.Background(), db, cfg)
	require.NoError(t, err)
	assert.False(t, status.WillRunSQL)
	assert.True(t, status.WillRunAutoMigrate)
}

func TestIsUniqueViolation(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.AutoMigrate(PersistentModels()...))

	require.NoError(t, db.Create(&models.Membership{UserID: 1, VariantID: 1, Role: models.RoleSubscriber}).Error)
	err := db.Create(&models.Membership{UserID: 1, VariantID: 1, Role: models.RoleAdmin}).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	assert.True(t, IsUniqueViolation(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(gorm.ErrRecordNotFound))
	assert.False(t, IsUniqueViolation(nil))
}
