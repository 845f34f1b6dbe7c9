package models

import (
	"strings"
	"time"
)

// UploadsPrefix is the storage-relative directory recorded in Resource.FilePath.
const UploadsPrefix = "uploads/"

// Resource is a PDF asset scoped to one Variant. FilePath points at its payload.
type Resource struct {
	ID           uint      `gorm:"primaryKey" json:"idRecurso"`
	VariantID    uint      `gorm:"not null;index" json:"idVariante"`
	Type         string    `gorm:"size:50;not null" json:"tipo"`
	Title        string    `gorm:"size:255;not null" json:"titulo"`
	Description  string    `gorm:"type:text;not null" json:"descripcion"`
	FilePath     string    `gorm:"size:512;not null;uniqueIndex" json:"file_path"`
	CreatedBy    uint      `gorm:"not null;index" json:"creado_por"`
	OriginalName string    `gorm:"size:255" json:"nombre_original,omitempty"`
	ContentType  string    `gorm:"size:100" json:"content_type,omitempty"`
	SizeBytes    int64     `json:"size_bytes"`
	PageCount    int       `json:"paginas"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StorageKey returns the blob key of the payload, without the uploads prefix.
func (r *Resource) StorageKey() string {
	return strings.TrimPrefix(r.FilePath, UploadsPrefix)
}

// FilePathForKey builds the FilePath recorded for a blob key.
func FilePathForKey(key string) string {
	return UploadsPrefix + key
}
