// Package seed loads the built-in catalog and generates demo data for
// development databases.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"campus/internal/cache"
	"campus/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed catalog.yaml
var builtInCatalog []byte

// CatalogFile is the YAML shape of a catalog definition.
type CatalogFile struct {
	Subjects []CatalogSubject `yaml:"subjects"`
}

// CatalogSubject is one subject and the names of its variants.
type CatalogSubject struct {
	Name     string   `yaml:"name"`
	Variants []string `yaml:"variants"`
}

// CatalogReport counts rows touched by a catalog seed.
type CatalogReport struct {
	Subjects int
	Variants int
}

// ParseCatalog decodes and checks a catalog definition.
func ParseCatalog(data []byte) (*CatalogFile, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]bool, len(file.Subjects))
	for i := range file.Subjects {
		s := &file.Subjects[i]
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, fmt.Errorf("subject %d has no name", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate subject %q", s.Name)
		}
		seen[s.Name] = true

		variants := make(map[string]bool, len(s.Variants))
		for j, v := range s.Variants {
			v = strings.TrimSpace(v)
			if v == "" {
				return nil, fmt.Errorf("subject %q: variant %d has no name", s.Name, j)
			}
			if variants[v] {
				return nil, fmt.Errorf("subject %q: duplicate variant %q", s.Name, v)
			}
			variants[v] = true
			s.Variants[j] = v
		}
	}
	return &file, nil
}

// BuiltInCatalog returns the embedded catalog definition.
func BuiltInCatalog() (*CatalogFile, error) {
	return ParseCatalog(builtInCatalog)
}

// Catalog upserts the embedded catalog. Running it twice leaves the same rows.
func Catalog(ctx context.Context, db *gorm.DB) (*CatalogReport, error) {
	file, err := BuiltInCatalog()
	if err != nil {
		return nil, err
	}
	return ApplyCatalog(ctx, db, file)
}

// ApplyCatalog upserts every subject and variant of file and drops cached catalog lists.
func ApplyCatalog(ctx context.Context, db *gorm.DB, file *CatalogFile) (*CatalogReport, error) {
	report := &CatalogReport{}
	for _, item := range file.Subjects {
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			subject := models.Subject{Name: item.Name}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
			}).Create(&subject).Error; err != nil {
				return err
			}
			if subject.ID == 0 {
				if err := tx.Where("name = ?", item.Name).First(&subject).Error; err != nil {
					return err
				}
			}
			report.Subjects++

			for _, name := range item.Variants {
				variant := models.Variant{SubjectID: subject.ID, Name: name}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&variant).Error; err != nil {
					return err
				}
				report.Variants++
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("seed subject %q: %w", item.Name, err)
		}
	}

	cache.InvalidateCatalog(ctx)
	return report, nil
}

// Variants returns every variant, loading the built-in catalog first when none exist.
func Variants(ctx context.Context, db *gorm.DB) ([]models.Variant, error) {
	var variants []models.Variant
	if err := db.WithContext(ctx).Order("id").Find(&variants).Error; err != nil {
		return nil, err
	}
	if len(variants) > 0 {
		return variants, nil
	}
	if _, err := Catalog(ctx, db); err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Order("id").Find(&variants).Error; err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, errors.New("catalog has no variants")
	}
	return variants, nil
}
