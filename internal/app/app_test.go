package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursegraph-backend/internal/data/catalogfile"
	"github.com/yungbote/coursegraph-backend/internal/domain/catalog"
	"github.com/yungbote/coursegraph-backend/internal/jobs/pipeline/catalog_audit"
	"github.com/yungbote/coursegraph-backend/internal/jobs/pipeline/content_reindex"
	jobrt "github.com/yungbote/coursegraph-backend/internal/jobs/runtime"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
)

func fileConfig(path string) Config {
	return Config{
		Port:               "0",
		LogMode:            "test",
		ServiceName:        "coursegraph-test",
		CatalogFile:        path,
		RedisChannel:       "coursegraph.events",
		ResolveConcurrency: 4,
		MetricsEnabled:     true,
		StartupJobs:        true,
		ShutdownTimeout:    time.Second,
	}
}

func fixturePath() string {
	return filepath.Join("..", "data", "catalogfile", "testdata", "catalog.yaml")
}

func TestAppServesFromCatalogFile(t *testing.T) {
	ctx := context.Background()
	a, err := NewWithConfig(ctx, logger.Nop(), fileConfig(fixturePath()))
	require.NoError(t, err)
	defer a.Close(ctx)

	require.NoError(t, a.Start(ctx))

	require.Eventually(t, func() bool {
		_, audit := a.Jobs.Worker.Last(catalog_audit.JobType)
		_, reindex := a.Jobs.Worker.Last(content_reindex.JobType)
		return audit && reindex
	}, 5*time.Second, 10*time.Millisecond)
	run, _ := a.Jobs.Worker.Last(catalog_audit.JobType)
	assert.Equal(t, jobrt.StatusSucceeded, run.Status, run.Error)

	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/u-grace/enrolments", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available"`)

	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalog/integrity", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `coursegraph_test_progress_builds_total{outcome="ok"} 1`), rec.Body.String())
}

func TestAppFailsOnMissingCatalogFile(t *testing.T) {
	_, err := NewWithConfig(context.Background(), logger.Nop(), fileConfig(filepath.Join(t.TempDir(), "missing.yaml")))
	require.Error(t, err)
}

func TestAppReloadsWatchedCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	write := func(body string) {
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	write(`
users:
  - {id: u-1, name: Learner One, givenName: One}
courses:
  - slug: first
    modules:
      - slug: m
        lessons: [{slug: a}]
`)

	cfg := fileConfig(path)
	cfg.CatalogWatch = true
	cfg.StartupJobs = false
	ctx := context.Background()
	a, err := NewWithConfig(ctx, logger.Nop(), cfg)
	require.NoError(t, err)
	defer a.Close(ctx)
	require.NoError(t, a.Start(ctx))

	write(`
users:
  - {id: u-1, name: Learner One, givenName: One}
courses:
  - slug: first
    modules:
      - slug: m
        lessons: [{slug: a}]
  - slug: second
    modules:
      - slug: m
        lessons: [{slug: a}]
`)

	require.Eventually(t, func() bool {
		res, err := a.Engine.Build(ctx, "u-1")
		return err == nil && len(res.Enrolments[catalog.Available]) == 2
	}, 5*time.Second, 25*time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := a.Jobs.Worker.Last(catalog_audit.JobType)
		return ok
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCatalogReloadIgnoredAfterShutdown(t *testing.T) {
	cfg := fileConfig(fixturePath())
	cfg.StartupJobs = false
	ctx := context.Background()
	a, err := NewWithConfig(ctx, logger.Nop(), cfg)
	require.NoError(t, err)
	defer a.Close(ctx)

	before, err := a.Clients.Source.CatalogCourses(ctx)
	require.NoError(t, err)

	stopped, cancel := context.WithCancel(ctx)
	cancel()
	a.onCatalogReload(stopped, &catalogfile.File{Courses: []catalogfile.CourseSpec{{Slug: "late"}}})

	after, err := a.Clients.Source.CatalogCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
	_, ran := a.Jobs.Worker.Last(catalog_audit.JobType)
	assert.False(t, ran, "no job may run for a reload that lands after shutdown")
}

func TestCloseWaitsForCatalogWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	raw, err := os.ReadFile(fixturePath())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	cfg := fileConfig(path)
	cfg.CatalogWatch = true
	cfg.StartupJobs = false
	ctx := context.Background()
	a, err := NewWithConfig(ctx, logger.Nop(), cfg)
	require.NoError(t, err)
	require.NoError(t, a.Start(ctx))

	require.NoError(t, os.WriteFile(path, raw, 0o644))
	a.Close(ctx)

	_, ranAtClose := a.Jobs.Worker.Last(catalog_audit.JobType)
	time.Sleep(700 * time.Millisecond)
	_, ranLater := a.Jobs.Worker.Last(catalog_audit.JobType)
	assert.Equal(t, ranAtClose, ranLater, "reload finished after Close returned")
}
