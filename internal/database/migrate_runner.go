package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"campus/internal/middleware"

	"gorm.io/gorm"
)

// AppliedMigration is a row of the schema_migrations ledger.
type AppliedMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:64;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the database table name for AppliedMigration.
func (AppliedMigration) TableName() string {
	return "schema_migrations"
}

// Checksum is the hex SHA-256 of the up script. It detects edits to applied migrations.
func (m Migration) Checksum() string {
	sum := sha256.Sum256([]byte(m.UpScript))
	return hex.EncodeToString(sum[:])
}

// MigrationStore reads and changes the schema_migrations ledger. Apply and
// Revert run the script and the ledger write in one transaction.
type MigrationStore interface {
	Applied(ctx context.Context) ([]AppliedMigration, error)
	Apply(ctx context.Context, m Migration) error
	Revert(ctx context.Context, m Migration) error
}

type migrationStore struct {
	db *gorm.DB
}

// NewMigrationStore returns a MigrationStore backed by db.
func NewMigrationStore(db *gorm.DB) MigrationStore {
	return &migrationStore{db: db}
}

const createLedgerSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	checksum VARCHAR(64) NOT NULL,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Applied lists ledger rows by version. A missing ledger reads as empty.
func (s *migrationStore) Applied(ctx context.Context) ([]AppliedMigration, error) {
	if !s.db.Migrator().HasTable(&AppliedMigration{}) {
		return []AppliedMigration{}, nil
	}
	var rows []AppliedMigration
	if err := s.db.WithContext(ctx).Order("version").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	return rows, nil
}

func (s *migrationStore) Apply(ctx context.Context, m Migration) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("apply %s: %w", m.String(), err)
		}
		row := AppliedMigration{Version: m.Version, Name: m.Name, Checksum: m.Checksum()}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("record %s: %w", m.String(), err)
		}
		return nil
	})
}

func (s *migrationStore) Revert(ctx context.Context, m Migration) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("revert %s: %w", m.String(), err)
		}
		if err := tx.Where("version = ?", m.Version).Delete(&AppliedMigration{}).Error; err != nil {
			return fmt.Errorf("unrecord %s: %w", m.String(), err)
		}
		return nil
	})
}

// verifyLedger fails when the ledger names versions the binary does not ship,
// or when a shipped script changed after it was applied.
func verifyLedger(applied []AppliedMigration, registered []Migration) error {
	byVersion := make(map[int]Migration, len(registered))
	for _, m := range registered {
		byVersion[m.Version] = m
	}

	var unknown, edited []string
	for _, row := range applied {
		m, ok := byVersion[row.Version]
		switch {
		case !ok:
			unknown = append(unknown, fmt.Sprintf("%06d", row.Version))
		case row.Checksum != "" && row.Checksum != m.Checksum():
			edited = append(edited, m.String())
		}
	}
	slices.Sort(unknown)

	if len(unknown) > 0 {
		return fmt.Errorf("schema_migrations has versions unknown to this build: %s", strings.Join(unknown, ", "))
	}
	if len(edited) > 0 {
		return fmt.Errorf("applied migrations were modified afterwards: %s", strings.Join(edited, ", "))
	}
	return nil
}

func appliedVersions(applied []AppliedMigration) map[int]bool {
	set := make(map[int]bool, len(applied))
	for _, row := range applied {
		set[row.Version] = true
	}
	return set
}

// RunMigrations creates the ledger if needed and applies pending migrations in version order.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(createLedgerSQL).Error; err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	store := NewMigrationStore(db)
	applied, err := store.Applied(ctx)
	if err != nil {
		return err
	}
	if err := verifyLedger(applied, migrations); err != nil {
		return err
	}

	done := appliedVersions(applied)
	for _, m := range migrations {
		if done[m.Version] {
			continue
		}
		if err := store.Apply(ctx, m); err != nil {
			return err
		}
		middleware.Logger.Info("Migration applied", slog.String("migration", m.String()))
	}
	return nil
}

// RollbackMigration runs the down script of an applied migration.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	store := NewMigrationStore(db)
	applied, err := store.Applied(ctx)
	if err != nil {
		return err
	}
	if !appliedVersions(applied)[version] {
		return fmt.Errorf("migration %s has not been applied", m.String())
	}

	if err := store.Revert(ctx, *m); err != nil {
		return err
	}
	middleware.Logger.Info("Migration rolled back", slog.String("migration", m.String()))
	return nil
}
