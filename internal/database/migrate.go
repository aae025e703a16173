package database

import (
	"fmt"

	"riverfeed/internal/models"

	"gorm.io/gorm"
)

// migratedModels is the ordered registry of models AutoMigrate applies.
// Referenced tables come before their referencers.
var migratedModels = []interface{}{
	&models.Account{},
	&models.Timeline{},
	&models.Post{},
	&models.Comment{},
	&models.Like{},
	&models.Subscription{},
	&models.Ban{},
	&models.GroupAdmin{},
	&models.GroupBlock{},
	&models.PostRemoval{},
	&models.Hide{},
	&models.Save{},
}

// Migrate runs schema auto-migration for all registered models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(migratedModels...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
