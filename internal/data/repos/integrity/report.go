package integrity

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/yungbote/coursegraph-backend/internal/domain/integrity"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
)

type ReportRepo interface {
	// Upsert inserts or refreshes one report per course slug; DetectedAt keeps the first
	// detection time.
	Upsert(ctx context.Context, tx *gorm.DB, reports []*domain.CourseIntegrityReport) error
	// DeleteExcept removes reports for every course not in faulty.
	DeleteExcept(ctx context.Context, tx *gorm.DB, faulty []string) (int64, error)
	List(ctx context.Context, tx *gorm.DB) ([]*domain.CourseIntegrityReport, error)
}

type reportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	return &reportRepo{db: db, log: baseLog.With("repo", "IntegrityReportRepo")}
}

func (r *reportRepo) Upsert(ctx context.Context, tx *gorm.DB, reports []*domain.CourseIntegrityReport) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(reports) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, rep := range reports {
		rep.UpdatedAt = now
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "lessons", "updated_at"}),
		}).
		Create(&reports).Error
}

func (r *reportRepo) DeleteExcept(ctx context.Context, tx *gorm.DB, faulty []string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx)
	if len(faulty) > 0 {
		q = q.Where("course_slug NOT IN ?", faulty)
	} else {
		q = q.Where("1 = 1")
	}
	res := q.Delete(&domain.CourseIntegrityReport{})
	return res.RowsAffected, res.Error
}

func (r *reportRepo) List(ctx context.Context, tx *gorm.DB) ([]*domain.CourseIntegrityReport, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*domain.CourseIntegrityReport
	if err := transaction.WithContext(ctx).
		Order("course_slug ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
