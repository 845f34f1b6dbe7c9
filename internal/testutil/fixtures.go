// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"campus/internal/database"
	"campus/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory SQLite database with the full schema.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// SQLite allows one writer; a single connection serializes concurrent tests.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// NewRedis starts a miniredis server and returns it with a connected client.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// CreateUser inserts a user with a placeholder password hash.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "$2a$10$placeholderplaceholderplaceholderplaceholderplacehol",
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateVariant inserts a subject (if new) and a variant of it.
func CreateVariant(t testing.TB, db *gorm.DB, subject, variant string) *models.Variant {
	t.Helper()
	s := models.Subject{Name: subject}
	if err := db.Where(models.Subject{Name: subject}).FirstOrCreate(&s).Error; err != nil {
		t.Fatalf("create subject %s: %v", subject, err)
	}
	v := &models.Variant{SubjectID: s.ID, Name: variant}
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create variant %s: %v", variant, err)
	}
	return v
}

// Grant writes a membership row directly, bypassing the authority's policy.
func Grant(t testing.TB, db *gorm.DB, userID, variantID uint, role models.Role) {
	t.Helper()
	m := &models.Membership{UserID: userID, VariantID: variantID, Role: role}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("grant %s: %v", role, err)
	}
}
