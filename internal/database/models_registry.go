package database

import "campus/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Subject{},
		&models.Variant{},
		&models.Membership{},
		&models.Subscription{},
		&models.Resource{},
		&models.Evaluation{},
	}
}
