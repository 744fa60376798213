package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/coursegraph-backend/internal/data/db"
	domain "github.com/yungbote/coursegraph-backend/internal/domain/integrity"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
)

var dbSeq atomic.Int64

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.Nop()
}

// DB opens a migrated in-memory sqlite database private to one test.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	cfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	}

	name := fmt.Sprintf("file:coursegraph_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(name), cfg)
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		tb.Cleanup(func() { _ = sqlDB.Close() })
	}
	if err := db.AutoMigrateAll(gdb); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

func SeedReport(tb testing.TB, ctx context.Context, tx *gorm.DB, courseSlug, kind string, lessons ...string) *domain.CourseIntegrityReport {
	tb.Helper()
	raw, err := json.Marshal(lessons)
	if err != nil {
		tb.Fatalf("marshal lessons: %v", err)
	}
	r := &domain.CourseIntegrityReport{
		CourseSlug: courseSlug,
		Kind:       kind,
		Lessons:    datatypes.JSON(raw),
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed integrity report: %v", err)
	}
	return r
}
