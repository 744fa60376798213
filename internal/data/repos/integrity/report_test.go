package integrity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yungbote/coursegraph-backend/internal/data/repos/testutil"
	domain "github.com/yungbote/coursegraph-backend/internal/domain/integrity"
)

func TestReportRepoUpsertKeepsOneRowPerCourse(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewReportRepo(db, testutil.Logger(t))

	first := testutil.SeedReport(t, ctx, db, "broken-course", "chain_cycle", "intro/a", "intro/b")
	detected := first.DetectedAt

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.Upsert(ctx, nil, []*domain.CourseIntegrityReport{
		{CourseSlug: "broken-course", Kind: "chain_branch", Lessons: datatypes.JSON(`["intro/c"]`)},
		{CourseSlug: "other-course", Kind: "chain_cycle", Lessons: datatypes.JSON(`[]`)},
	}))

	got, err := repo.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "broken-course", got[0].CourseSlug)
	assert.Equal(t, "chain_branch", got[0].Kind)
	assert.JSONEq(t, `["intro/c"]`, string(got[0].Lessons))
	assert.Equal(t, first.ID, got[0].ID)
	assert.WithinDuration(t, detected, got[0].DetectedAt, time.Millisecond)
	assert.True(t, got[0].UpdatedAt.After(detected))

	assert.Equal(t, "other-course", got[1].CourseSlug)
	assert.Equal(t, "chain_cycle", got[1].Kind)
}

func TestReportRepoUpsertEmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewReportRepo(db, testutil.Logger(t))

	require.NoError(t, repo.Upsert(ctx, nil, nil))
	got, err := repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReportRepoDeleteExcept(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewReportRepo(db, testutil.Logger(t))

	testutil.SeedReport(t, ctx, db, "a", "chain_cycle")
	testutil.SeedReport(t, ctx, db, "b", "dangling_link")
	testutil.SeedReport(t, ctx, db, "c", "missing_module")

	n, err := repo.DeleteExcept(ctx, nil, []string{"b"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, err := repo.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].CourseSlug)

	n, err = repo.DeleteExcept(ctx, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestReportRepoRollsBackWithTx(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewReportRepo(db, testutil.Logger(t))

	tx := db.Begin()
	require.NoError(t, tx.Error)
	require.NoError(t, repo.Upsert(ctx, tx, []*domain.CourseIntegrityReport{
		{CourseSlug: "x", Kind: "chain_cycle", Lessons: datatypes.JSON(`[]`)},
	}))
	require.NoError(t, tx.Rollback().Error)

	got, err := repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
