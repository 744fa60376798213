// Package progress builds a learner's course-progress tree: every catalog course with its
// modules and lessons in canonical chain order, annotated with completion state and grouped
// by enrolment status.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/coursegraph-backend/internal/domain/catalog"
	"github.com/yungbote/coursegraph-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
)

// Store is the graph store read the engine depends on. It must return a row for every catalog
// course whether or not the learner is enrolled, and a nil User for an unknown learner.
type Store interface {
	UserCourses(ctx context.Context, userID string) (*catalog.UserCourses, error)
}

// Recorder receives build telemetry. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveBuild(outcome string, dur time.Duration)
	IncIntegrityFault(kind string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveBuild(string, time.Duration) {}
func (nopRecorder) IncIntegrityFault(string)           {}

// Result is the per-learner response. A zero Result (no User) is the empty result returned
// for unknown learners and serializes as {}.
type Result struct {
	User       *catalog.User
	Enrolments map[catalog.Status][]*catalog.Course
	// Faults lists courses left out because their lesson data is inconsistent.
	Faults []*IntegrityError
}

func (r *Result) Empty() bool { return r == nil || r.User == nil }

func (r *Result) MarshalJSON() ([]byte, error) {
	if r.Empty() {
		return []byte("{}"), nil
	}
	enrolments := r.Enrolments
	if enrolments == nil {
		enrolments = map[catalog.Status][]*catalog.Course{}
	}
	return json.Marshal(struct {
		User       *catalog.User                        `json:"user"`
		Enrolments map[catalog.Status][]*catalog.Course `json:"enrolments"`
	}{r.User, enrolments})
}

type Engine struct {
	store       Store
	log         *logger.Logger
	rec         Recorder
	tracer      trace.Tracer
	concurrency int
}

type Option func(*Engine)

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.rec = r
		}
	}
}

// WithConcurrency bounds how many courses are resolved at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func NewEngine(store Store, log *logger.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	e := &Engine{
		store:       store,
		log:         log.With("component", "ProgressEngine"),
		rec:         nopRecorder{},
		tracer:      otel.Tracer("coursegraph/progress"),
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type courseSlot struct {
	status catalog.Status
	course *catalog.Course
	fault  *IntegrityError
}

// Build loads every catalog course for userID in one store call and returns them grouped by
// status. Store errors are returned wrapped, never retried. A course with inconsistent lesson
// data is dropped and reported in Result.Faults; the other courses are still returned.
func (e *Engine) Build(ctx context.Context, userID string) (*Result, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "progress.Build")
	defer span.End()

	uc, err := e.store.UserCourses(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store read failed")
		e.rec.ObserveBuild("store_error", time.Since(start))
		return nil, fmt.Errorf("progress: load courses: %w", err)
	}
	if uc == nil || uc.User == nil {
		e.rec.ObserveBuild("unknown_user", time.Since(start))
		return &Result{}, nil
	}

	slots, err := e.resolveAll(ctx, uc.Courses)
	if err != nil {
		span.RecordError(err)
		e.rec.ObserveBuild("canceled", time.Since(start))
		return nil, err
	}

	res := &Result{User: uc.User}
	labeled := make([]Labeled, 0, len(slots))
	for _, s := range slots {
		if s.fault != nil {
			res.Faults = append(res.Faults, s.fault)
			e.rec.IncIntegrityFault(string(s.fault.Kind))
			e.log.Warn("course dropped from progress tree",
				append(ctxutil.LogFields(ctx), "course", s.fault.CourseSlug, "kind", string(s.fault.Kind), "lessons", s.fault.Lessons)...)
			continue
		}
		if s.course != nil {
			labeled = append(labeled, Labeled{Status: s.status, Course: s.course})
		}
	}
	res.Enrolments = Group(labeled)

	span.SetAttributes(
		attribute.Int("progress.courses", len(labeled)),
		attribute.Int("progress.faults", len(res.Faults)),
	)
	outcome := "ok"
	if len(res.Faults) > 0 {
		outcome = "partial"
	}
	e.rec.ObserveBuild(outcome, time.Since(start))
	return res, nil
}

// resolveAll builds and sorts each course independently; slot i always belongs to row i so
// the store's course order survives the fan-out.
func (e *Engine) resolveAll(ctx context.Context, rows []*catalog.CourseRow) ([]courseSlot, error) {
	slots := make([]courseSlot, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, row := range rows {
		if row == nil {
			continue
		}
		i, row := i, row
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			course, err := ResolveRow(row)
			if err != nil {
				ie, ok := AsIntegrity(err)
				if !ok {
					return err
				}
				slots[i] = courseSlot{fault: ie}
				return nil
			}
			slots[i] = courseSlot{status: Classify(row.Enrolment), course: course}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slots, nil
}
