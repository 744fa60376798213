package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/coursegraph-backend/internal/domain/catalog"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
	"github.com/yungbote/coursegraph-backend/internal/platform/neo4jdb"
)

// QueryRecorder receives store latency per query name and outcome.
type QueryRecorder interface {
	ObserveStoreQuery(query, outcome string, dur time.Duration)
}

// courseTree expects c (course, may be null) and e (enrolment, may be null) in scope and
// yields `modules`. Lesson neighbours only count when they hang off a module of the same course.
const courseTree = `
CALL {
  WITH c, e
  OPTIONAL MATCH (c)-[:HAS_MODULE]->(m:Module)
  CALL {
    WITH c, m, e
    OPTIONAL MATCH (m)-[:HAS_LESSON]->(l:Lesson)
    OPTIONAL MATCH (c)-[:HAS_MODULE]->(pm:Module)-[:HAS_LESSON]->(prev:Lesson)-[:NEXT]->(l)
    OPTIONAL MATCH (l)-[:NEXT]->(nxt:Lesson)<-[:HAS_LESSON]-(nm:Module)<-[:HAS_MODULE]-(c)
    CALL {
      WITH l
      OPTIONAL MATCH (l)-[:HAS_QUESTION]->(q:Question)
      RETURN [x IN collect(q) | {id: x.id, slug: x.slug}] AS questions
    }
    RETURN collect(CASE WHEN l IS NULL THEN null ELSE l {
      .*,
      completed: e IS NOT NULL AND EXISTS { (e)-[:COMPLETED_LESSON]->(l) },
      previous: CASE WHEN prev IS NULL THEN null ELSE {moduleSlug: pm.slug, slug: prev.slug, title: prev.title} END,
      next: CASE WHEN nxt IS NULL THEN null ELSE {moduleSlug: nm.slug, slug: nxt.slug, title: nxt.title} END,
      questions: questions
    } END) AS lessons
  }
  RETURN collect(CASE WHEN m IS NULL THEN null ELSE m {
    .*,
    completed: e IS NOT NULL AND EXISTS { (e)-[:COMPLETED_MODULE]->(m) },
    lessons: lessons
  } END) AS modules
}
`

const userCoursesCypher = `
MATCH (u:User {id: $userId})
OPTIONAL MATCH (c:Course)
OPTIONAL MATCH (u)-[:HAS_ENROLMENT]->(e:Enrolment)-[:FOR_COURSE]->(c)
` + courseTree + `
RETURN u {.id, .name, .givenName} AS user,
       CASE WHEN c IS NULL THEN null ELSE c {.*} END AS course,
       CASE WHEN e IS NULL THEN null ELSE {
         completed: e:CompletedEnrolment,
         createdAt: e.createdAt,
         completedAt: e.completedAt
       } END AS enrolment,
       modules
ORDER BY c.slug
`

const catalogCoursesCypher = `
MATCH (c:Course)
WITH c, null AS e
` + courseTree + `
RETURN c {.*} AS course, null AS enrolment, modules
ORDER BY c.slug
`

// CourseProgressStore reads learner course trees from Neo4j.
type CourseProgressStore struct {
	client *neo4jdb.Client
	log    *logger.Logger
	rec    QueryRecorder
}

func NewCourseProgressStore(client *neo4jdb.Client, log *logger.Logger, rec QueryRecorder) *CourseProgressStore {
	if log == nil {
		log = logger.Nop()
	}
	return &CourseProgressStore{
		client: client,
		log:    log.With("store", "CourseProgressStore"),
		rec:    rec,
	}
}

// UserCourses runs the single per-learner read. The learner's row set is empty (nil User)
// when no User node has the id; a known learner with an empty catalog yields one row whose
// course is null.
func (s *CourseProgressStore) UserCourses(ctx context.Context, userID string) (*catalog.UserCourses, error) {
	records, err := s.read(ctx, "user_courses", userCoursesCypher, map[string]any{"userId": userID})
	if err != nil {
		return nil, err
	}
	out := &catalog.UserCourses{}
	for _, rec := range records {
		if out.User == nil {
			v, _ := rec.Get("user")
			out.User = decodeUser(v)
		}
		row, err := rowFromRecord(rec)
		if err != nil {
			return nil, err
		}
		if row != nil {
			out.Courses = append(out.Courses, row)
		}
	}
	return out, nil
}

// CatalogCourses returns every course with no learner facts attached.
func (s *CourseProgressStore) CatalogCourses(ctx context.Context) ([]*catalog.CourseRow, error) {
	records, err := s.read(ctx, "catalog_courses", catalogCoursesCypher, nil)
	if err != nil {
		return nil, err
	}
	rows := make([]*catalog.CourseRow, 0, len(records))
	for _, rec := range records {
		row, err := rowFromRecord(rec)
		if err != nil {
			return nil, err
		}
		if row != nil {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (s *CourseProgressStore) read(ctx context.Context, name, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	ctx, span := otel.Tracer("coursegraph/graph").Start(ctx, "neo4j."+name)
	defer span.End()

	start := time.Now()
	records, err := s.client.Read(ctx, cypher, params)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "neo4j read failed")
		s.log.Error("neo4j read failed", "query", name, "error", err)
	}
	if s.rec != nil {
		s.rec.ObserveStoreQuery(name, outcome, time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("graph: %s: %w", name, err)
	}
	return records, nil
}

func rowFromRecord(rec *neo4j.Record) (*catalog.CourseRow, error) {
	course, _ := rec.Get("course")
	enrolment, _ := rec.Get("enrolment")
	modules, _ := rec.Get("modules")
	return decodeCourseRow(course, enrolment, modules)
}
