package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/coursegraph-backend/internal/data/catalogfile"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
	"github.com/yungbote/coursegraph-backend/internal/platform/neo4jdb"
)

var seedConstraints = []string{
	`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
	`CREATE CONSTRAINT course_slug_unique IF NOT EXISTS FOR (c:Course) REQUIRE c.slug IS UNIQUE`,
	`CREATE CONSTRAINT question_id_unique IF NOT EXISTS FOR (q:Question) REQUIRE q.id IS UNIQUE`,
}

// SeedCatalog writes a catalog file into Neo4j. Modules and lessons are keyed by their path
// inside the course, so re-seeding the same file is a no-op. The NEXT chain of every seeded
// course is rebuilt from the file.
func SeedCatalog(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, f *catalogfile.File) error {
	if client == nil || client.Driver == nil {
		return fmt.Errorf("graph: neo4j client required")
	}
	if f == nil {
		return nil
	}
	if log == nil {
		log = logger.Nop()
	}

	// Best-effort schema init.
	for _, stmt := range seedConstraints {
		if err := client.Exec(ctx, stmt, nil); err != nil {
			log.Warn("neo4j schema init failed (continuing)", "error", err)
		}
	}

	return client.Write(ctx, func(tx neo4j.ManagedTransaction) error {
		if err := run(ctx, tx, `
UNWIND $users AS u
MERGE (n:User {id: u.id})
SET n.name = u.name, n.givenName = u.givenName
`, map[string]any{"users": userParams(f)}); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}

		for i := range f.Courses {
			if err := seedCourse(ctx, tx, &f.Courses[i]); err != nil {
				return fmt.Errorf("seed course %q: %w", f.Courses[i].Slug, err)
			}
		}

		if err := run(ctx, tx, `
UNWIND $enrolments AS r
MATCH (u:User {id: r.user})
MATCH (c:Course {slug: r.course})
MERGE (u)-[:HAS_ENROLMENT]->(e:Enrolment {id: r.id})-[:FOR_COURSE]->(c)
SET e.createdAt = CASE WHEN r.createdAt = '' THEN null ELSE datetime(r.createdAt) END,
    e.completedAt = CASE WHEN r.completedAt = '' THEN null ELSE datetime(r.completedAt) END
WITH e, r
CALL {
  WITH e, r
  WITH e, r WHERE r.completed
  SET e:CompletedEnrolment
}
CALL {
  WITH e, r
  WITH e, r WHERE NOT r.completed
  REMOVE e:CompletedEnrolment
}
WITH e, r
OPTIONAL MATCH (e)-[old:COMPLETED_MODULE|COMPLETED_LESSON]->()
DELETE old
WITH DISTINCT e, r
CALL {
  WITH e, r
  UNWIND r.modules AS mk
  MATCH (m:Module {key: mk})
  MERGE (e)-[:COMPLETED_MODULE]->(m)
}
CALL {
  WITH e, r
  UNWIND r.lessons AS lk
  MATCH (l:Lesson {key: lk})
  MERGE (e)-[:COMPLETED_LESSON]->(l)
}
`, map[string]any{"enrolments": enrolmentParams(f)}); err != nil {
			return fmt.Errorf("seed enrolments: %w", err)
		}
		log.Info("catalog seeded", "users", len(f.Users), "courses", len(f.Courses), "enrolments", len(f.Enrolments))
		return nil
	})
}

func seedCourse(ctx context.Context, tx neo4j.ManagedTransaction, c *catalogfile.CourseSpec) error {
	modules := make([]map[string]any, 0, len(c.Modules))
	var lessons, questions []map[string]any
	for _, m := range c.Modules {
		modules = append(modules, map[string]any{
			seedKeyProp: moduleKey(c.Slug, m.Slug),
			"props":     withSlugTitle(m.Properties, m.Slug, m.Title),
		})
		for _, l := range m.Lessons {
			lk := lessonKey(c.Slug, catalogfile.LessonKey(m.Slug, l.Slug))
			lessons = append(lessons, map[string]any{
				seedKeyProp: lk,
				"module":    moduleKey(c.Slug, m.Slug),
				"props":     withSlugTitle(l.Properties, l.Slug, l.Title),
			})
			for _, q := range l.Questions {
				questions = append(questions, map[string]any{"lesson": lk, "id": q.ID, "slug": q.Slug})
			}
		}
	}
	edges := make([]map[string]any, 0, len(c.Chain))
	for _, e := range c.Edges() {
		edges = append(edges, map[string]any{"from": lessonKey(c.Slug, e.From), "to": lessonKey(c.Slug, e.To)})
	}

	return run(ctx, tx, `
MERGE (c:Course {slug: $slug})
SET c += $props
WITH c
CALL {
  WITH c
  UNWIND $modules AS mr
  MERGE (m:Module {key: mr.key})
  SET m += mr.props
  MERGE (c)-[:HAS_MODULE]->(m)
}
CALL {
  UNWIND $lessons AS lr
  MATCH (m:Module {key: lr.module})
  MERGE (l:Lesson {key: lr.key})
  SET l += lr.props
  MERGE (m)-[:HAS_LESSON]->(l)
}
CALL {
  UNWIND $questions AS qr
  MATCH (l:Lesson {key: qr.lesson})
  MERGE (q:Question {id: qr.id})
  SET q.slug = qr.slug
  MERGE (l)-[:HAS_QUESTION]->(q)
}
CALL {
  WITH c
  OPTIONAL MATCH (c)-[:HAS_MODULE]->(:Module)-[:HAS_LESSON]->(:Lesson)-[n:NEXT]->()
  DELETE n
}
CALL {
  UNWIND $edges AS er
  MATCH (a:Lesson {key: er.from})
  MATCH (b:Lesson {key: er.to})
  MERGE (a)-[:NEXT]->(b)
}
`, map[string]any{
		"slug":      c.Slug,
		"props":     withSlugTitle(c.Properties, c.Slug, c.Title),
		"modules":   modules,
		"lessons":   lessons,
		"questions": questions,
		"edges":     edges,
	})
}

func run(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]any) error {
	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func userParams(f *catalogfile.File) []map[string]any {
	out := make([]map[string]any, 0, len(f.Users))
	for _, u := range f.Users {
		out = append(out, map[string]any{"id": u.ID, "name": u.Name, "givenName": u.GivenName})
	}
	return out
}

func enrolmentParams(f *catalogfile.File) []map[string]any {
	out := make([]map[string]any, 0, len(f.Enrolments))
	for _, e := range f.Enrolments {
		modules := make([]string, 0, len(e.CompletedModules))
		for _, m := range e.CompletedModules {
			modules = append(modules, moduleKey(e.Course, m))
		}
		lessons := make([]string, 0, len(e.CompletedLessons))
		for _, l := range e.CompletedLessons {
			lessons = append(lessons, lessonKey(e.Course, l))
		}
		out = append(out, map[string]any{
			"id":          e.User + ":" + e.Course,
			"user":        e.User,
			"course":      e.Course,
			"completed":   e.Completed,
			"createdAt":   rfc3339(e.CreatedAt),
			"completedAt": rfc3339(e.CompletedAt),
			"modules":     modules,
			"lessons":     lessons,
		})
	}
	return out
}

func moduleKey(course, module string) string { return course + "/" + module }
func lessonKey(course, key string) string    { return course + "/" + key }

// withSlugTitle keeps only values Neo4j can store as properties.
func withSlugTitle(in map[string]any, slug, title string) map[string]any {
	out := make(map[string]any, len(in)+2)
	for k, v := range in {
		switch v.(type) {
		case string, bool, int, int64, float64, []any:
			out[k] = v
		}
	}
	out["slug"] = slug
	out["title"] = title
	return out
}

func rfc3339(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
