package database

import "sherise/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Account{},
		&models.Slice{},
	}
}
