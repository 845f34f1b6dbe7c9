package models

import "time"

// Subject is a named category of variants. The core only reads it.
type Subject struct {
	ID        uint      `gorm:"primaryKey" json:"idAsignatura"`
	Name      string    `gorm:"size:150;uniqueIndex;not null" json:"nombre"`
	Variants  []Variant `gorm:"foreignKey:SubjectID" json:"variantes,omitempty"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Variant is a concrete offering of a Subject.
type Variant struct {
	ID        uint      `gorm:"primaryKey" json:"idVariante"`
	SubjectID uint      `gorm:"not null;uniqueIndex:idx_variants_subject_name" json:"idAsignatura"`
	Name      string    `gorm:"size:150;not null;uniqueIndex:idx_variants_subject_name" json:"nombre"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
