package graph

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/yungbote/coursegraph-backend/internal/domain/catalog"
)

// seedKeyProp is the path key SeedCatalog stores on modules and lessons for MERGE. It is not
// content and never reaches learners.
const seedKeyProp = "key"

// The progress query returns map projections only, so decoding works on plain Go values and
// never sees driver node types.

func decodeUser(v any) *catalog.User {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return &catalog.User{
		ID:        str(m["id"]),
		Name:      str(m["name"]),
		GivenName: str(m["givenName"]),
	}
}

func decodeCourseRow(course, enrolment, modules any) (*catalog.CourseRow, error) {
	props, ok := course.(map[string]any)
	if !ok {
		return nil, nil
	}
	row := &catalog.CourseRow{Properties: scalarProps(props)}

	if em, ok := enrolment.(map[string]any); ok {
		e := &catalog.Enrolment{Completed: boolean(em["completed"])}
		var err error
		if e.CreatedAt, err = timestamp(em["createdAt"]); err != nil {
			return nil, fmt.Errorf("course %q: enrolment createdAt: %w", row.Slug(), err)
		}
		if e.CompletedAt, err = timestamp(em["completedAt"]); err != nil {
			return nil, fmt.Errorf("course %q: enrolment completedAt: %w", row.Slug(), err)
		}
		row.Enrolment = e
	}

	for _, mv := range list(modules) {
		mm, ok := mv.(map[string]any)
		if !ok {
			continue
		}
		mr := &catalog.ModuleRow{
			Properties: scalarProps(mm, "completed", "lessons", seedKeyProp),
			Completed:  boolean(mm["completed"]),
		}
		for _, lv := range list(mm["lessons"]) {
			lm, ok := lv.(map[string]any)
			if !ok {
				continue
			}
			lr := &catalog.LessonRow{
				Properties: scalarProps(lm, "completed", "previous", "next", "questions", seedKeyProp),
				Completed:  boolean(lm["completed"]),
				Previous:   decodeStub(lm["previous"]),
				Next:       decodeStub(lm["next"]),
			}
			for _, qv := range list(lm["questions"]) {
				if qm, ok := qv.(map[string]any); ok {
					lr.Questions = append(lr.Questions, catalog.QuestionRef{ID: str(qm["id"]), Slug: str(qm["slug"])})
				}
			}
			mr.Lessons = append(mr.Lessons, lr)
		}
		row.Modules = append(row.Modules, mr)
	}
	return row, nil
}

func decodeStub(v any) *catalog.LessonStub {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return &catalog.LessonStub{
		ModuleSlug: str(m["moduleSlug"]),
		Slug:       str(m["slug"]),
		Title:      str(m["title"]),
	}
}

// scalarProps keeps node properties, converting temporal values to time.Time and dropping the
// derived keys the query adds next to them.
func scalarProps(m map[string]any, derived ...string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	for _, k := range derived {
		delete(out, k)
	}
	return out
}

func normalize(v any) any {
	switch t := v.(type) {
	case dbtype.LocalDateTime:
		return t.Time()
	case dbtype.Date:
		return t.Time()
	case dbtype.Duration:
		return t.String()
	default:
		return v
	}
}

func timestamp(v any) (*time.Time, error) {
	var t time.Time
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		t = x
	case dbtype.LocalDateTime:
		t = x.Time()
	case dbtype.Date:
		t = x.Time()
	case string:
		if x == "" {
			return nil, nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, x)
		if err != nil {
			return nil, err
		}
		t = parsed
	default:
		return nil, fmt.Errorf("unsupported temporal value %T", v)
	}
	t = t.UTC()
	return &t, nil
}

func list(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return nil
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func boolean(v any) bool {
	b, _ := v.(bool)
	return b
}
