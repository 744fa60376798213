package catalogfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
)

func TestLoadCatalog(t *testing.T) {
	f, err := Load(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)

	require.Len(t, f.Users, 2)
	require.Len(t, f.Courses, 3)
	require.Len(t, f.Enrolments, 2)

	edges := f.Courses[0].Edges()
	require.Len(t, edges, 3)
	assert.Equal(t, Edge{From: "graph-thinking/property-graph", To: "cypher-basics/reading-data"}, edges[1])

	require.NotNil(t, f.Enrolments[1].CompletedAt)
	assert.Equal(t, time.Date(2024, 2, 2, 18, 30, 0, 0, time.UTC), f.Enrolments[1].CompletedAt.UTC())
}

func TestParseRejectsBadReferences(t *testing.T) {
	cases := map[string]string{
		"unknown chain lesson": `
courses:
  - slug: c
    modules:
      - slug: m
        lessons: [{slug: a}]
    chain: [m/a, m/b]
`,
		"unknown enrolment user": `
courses: [{slug: c}]
enrolments: [{user: nobody, course: c}]
`,
		"duplicate lesson": `
courses:
  - slug: c
    modules:
      - slug: m
        lessons: [{slug: a}, {slug: a}]
`,
		"unknown field": `
courses: [{slug: c, sluggish: true}]
`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(strings.TrimSpace(raw)))
			require.Error(t, err)
		})
	}
}

func TestParseRejectsBadEnrolments(t *testing.T) {
	const base = `
users: [{id: u1}]
courses:
  - slug: c
    modules:
      - slug: m
        lessons: [{slug: a}]
`
	cases := map[string]struct {
		enrolments string
		want       string
	}{
		"duplicate pair": {
			enrolments: `enrolments: [{user: u1, course: c}, {user: u1, course: c, completed: true}]`,
			want:       `duplicate enrolment u1/c`,
		},
		"unknown completed module": {
			enrolments: `enrolments: [{user: u1, course: c, completedModules: [nope]}]`,
			want:       `unknown module "nope"`,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(strings.TrimSpace(base) + "\n" + tc.enrolments))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	f, err := Parse([]byte(strings.TrimSpace(base) + "\n" + `enrolments: [{user: u1, course: c, completedModules: [m], completedLessons: [m/a]}]`))
	require.NoError(t, err)
	assert.Len(t, f.Enrolments, 1)
}

func TestStoreUnknownUser(t *testing.T) {
	f, err := Load(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)

	uc, err := NewStore(f).UserCourses(context.Background(), "u-nobody")
	require.NoError(t, err)
	assert.Nil(t, uc.User)
	assert.Empty(t, uc.Courses)
}

func TestStoreRowsCarryNeighboursAcrossModules(t *testing.T) {
	f, err := Load(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)

	uc, err := NewStore(f).UserCourses(context.Background(), "u-ada")
	require.NoError(t, err)
	require.NotNil(t, uc.User)
	require.Len(t, uc.Courses, 3)

	row := uc.Courses[0]
	require.NotNil(t, row.Enrolment)
	assert.False(t, row.Enrolment.Completed)

	// slug order: appendix, cypher-basics, graph-thinking
	require.Len(t, row.Modules, 3)
	assert.Equal(t, "appendix", row.Modules[0].Slug())
	gt := row.Modules[2]
	assert.True(t, gt.Completed)
	require.Len(t, gt.Lessons, 2)

	propertyGraph := gt.Lessons[0]
	assert.Equal(t, "property-graph", propertyGraph.Slug())
	require.NotNil(t, propertyGraph.Next)
	assert.Equal(t, "cypher-basics", propertyGraph.Next.ModuleSlug)
	assert.Equal(t, "reading-data", propertyGraph.Next.Slug)
	assert.Equal(t, "Reading Data", propertyGraph.Next.Title)
	assert.True(t, propertyGraph.Completed)

	assert.Nil(t, uc.Courses[2].Enrolment)
}

func TestStoreHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStore(nil).UserCourses(ctx, "u-ada")
	require.ErrorIs(t, err, context.Canceled)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("courses: [{slug: one}]\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := NewWatcher(path, logger.Nop())
	require.NoError(t, err)
	loaded := make(chan *File, 4)
	go w.Run(ctx, func(f *File) { loaded <- f })

	require.NoError(t, os.WriteFile(path, []byte("courses: [{slug: one}, {slug: two}]\n"), 0o644))

	select {
	case f := <-loaded:
		assert.Len(t, f.Courses, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("catalog was not reloaded")
	}
}

func TestWatcherRunReturnsAfterCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("courses: [{slug: one}]\n"), 0o644))

	w, err := NewWatcher(path, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx, func(*File) { calls.Add(1) })
	}()

	require.NoError(t, os.WriteFile(path, []byte("courses: [{slug: two}]\n"), 0o644))
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	after := calls.Load()
	time.Sleep(2 * reloadDebounce)
	assert.Equal(t, after, calls.Load(), "no reload may run once Run has returned")
}

func TestNewWatcherMissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope", "catalog.yaml"), logger.Nop())
	require.Error(t, err)
}
