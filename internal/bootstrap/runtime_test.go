package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"campus/internal/config"
	"campus/internal/models"
	"campus/internal/seed"
	"campus/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestInitRuntime_SQLiteLocalWithoutRedis(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Env:             "test",
		DBDriver:        "sqlite",
		DBSQLitePath:    filepath.Join(dir, "campus.db"),
		StorageProvider: "local",
		UploadDir:       filepath.Join(dir, "uploads"),
	}

	rt, err := InitRuntime(context.Background(), cfg, Options{SeedCatalog: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	assert.Nil(t, rt.Redis)
	assert.Equal(t, "local", rt.Blobs.Backend())

	var variants int64
	require.NoError(t, rt.DB.Model(&models.Variant{}).Count(&variants).Error)
	assert.NotZero(t, variants)
}

func TestInitRuntime_UnknownStorage(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		DBDriver:        "sqlite",
		DBSQLitePath:    filepath.Join(dir, "campus.db"),
		StorageProvider: "ftp",
	}
	_, err := InitRuntime(context.Background(), cfg, Options{})
	assert.Error(t, err)
}

func TestEnsureDevRoot(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	_, err := seed.Catalog(ctx, db)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:              "development",
		DevBootstrapRoot: true,
		DevRootUsername:  "root",
		DevRootEmail:     "ROOT@Campus.Local",
		DevRootPassword:  "s3cret-root",
	}
	require.NoError(t, ensureDevRoot(ctx, cfg, db))
	// Rerunning refreshes the account without duplicating memberships.
	require.NoError(t, ensureDevRoot(ctx, cfg, db))

	var root models.User
	require.NoError(t, db.Where("username = ?", "root").First(&root).Error)
	assert.Equal(t, "root@campus.local", root.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(root.Password), []byte("s3cret-root")))

	var variants, admins int64
	require.NoError(t, db.Model(&models.Variant{}).Count(&variants).Error)
	require.NoError(t, db.Model(&models.Membership{}).
		Where("user_id = ? AND role = ?", root.ID, models.RoleAdmin).Count(&admins).Error)
	assert.Equal(t, variants, admins)
}

func TestEnsureDevRoot_Guards(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	// Outside development nothing happens.
	require.NoError(t, ensureDevRoot(ctx, &config.Config{Env: "production", DevBootstrapRoot: true}, db))
	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)

	err := ensureDevRoot(ctx, &config.Config{Env: "development", DevBootstrapRoot: true}, db)
	assert.Error(t, err)
}
