package integrity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CourseIntegrityReport records the latest data-integrity fault found for a course by the
// catalog audit. One row per course; it is removed once the course resolves cleanly again.
type CourseIntegrityReport struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseSlug string         `gorm:"column:course_slug;not null;uniqueIndex" json:"course_slug"`
	Kind       string         `gorm:"column:kind;not null" json:"kind"`
	Lessons    datatypes.JSON `gorm:"column:lessons" json:"lessons"`
	DetectedAt time.Time      `gorm:"column:detected_at;not null" json:"detected_at"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (CourseIntegrityReport) TableName() string { return "course_integrity_report" }

func (r *CourseIntegrityReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	if r.DetectedAt.IsZero() {
		r.DetectedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	return nil
}
