package db

import (
	"gorm.io/gorm"

	domain "github.com/yungbote/coursegraph-backend/internal/domain/integrity"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.CourseIntegrityReport{},
	)
}
