package models

import "time"

// Evaluation is a scheduled assessment tied to one Resource.
type Evaluation struct {
	ID           uint      `gorm:"primaryKey" json:"idEvaluacion"`
	ResourceID   uint      `gorm:"not null;index" json:"idRecurso"`
	StartsAt     time.Time `gorm:"not null" json:"fecha_inicio"`
	EndsAt       time.Time `gorm:"not null" json:"fecha_fin"`
	Instructions string    `gorm:"type:text" json:"instrucciones"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
