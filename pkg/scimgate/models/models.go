package models

import "gorm.io/gorm"

// AllModels returns all models for migration
// Note: Users and Groups must be migrated before GroupMember so the
// foreign keys can be created
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Group{},
		&GroupMember{},
		&ProvisioningToken{},
	}
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
