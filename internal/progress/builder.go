package progress

import (
	"github.com/yungbote/coursegraph-backend/internal/domain/catalog"
)

// buildCourse shapes one store row into the learner's course tree. Module and lesson order
// is whatever the store returned; SortCourse fixes it afterwards.
func buildCourse(row *catalog.CourseRow) *catalog.Course {
	slug := row.Slug()
	c := &catalog.Course{
		Slug:       slug,
		Title:      row.Title(),
		Properties: catalog.ScalarProps(row.Properties, "slug", "title"),
		Modules:    make([]*catalog.Module, 0, len(row.Modules)),
	}
	if e := row.Enrolment; e != nil {
		c.CreatedAt = e.CreatedAt
		c.Completed = e.Completed
		if e.Completed {
			c.CompletedAt = e.CompletedAt
		}
	}

	for _, mr := range row.Modules {
		if mr == nil {
			continue
		}
		mslug := mr.Slug()
		m := &catalog.Module{
			Slug:       mslug,
			Title:      catalog.StringProp(mr.Properties, "title"),
			Properties: catalog.ScalarProps(mr.Properties, "slug", "title"),
			Link:       catalog.ModuleLink(slug, mslug),
			Completed:  row.Enrolment != nil && mr.Completed,
			Lessons:    make([]*catalog.Lesson, 0, len(mr.Lessons)),
		}
		for _, lr := range mr.Lessons {
			if lr == nil {
				continue
			}
			lslug := lr.Slug()
			m.Lessons = append(m.Lessons, &catalog.Lesson{
				Slug:       lslug,
				Title:      catalog.StringProp(lr.Properties, "title"),
				Properties: catalog.ScalarProps(lr.Properties, "slug", "title"),
				Link:       catalog.LessonPath(slug, mslug, lslug),
				Completed:  row.Enrolment != nil && lr.Completed,
				Previous:   neighbourLink(slug, lr.Previous),
				Next:       neighbourLink(slug, lr.Next),
				Questions:  append([]catalog.QuestionRef(nil), lr.Questions...),
			})
		}
		c.Modules = append(c.Modules, m)
	}
	return c
}

// ResolveRow builds the course tree for one store row and puts it in chain order. The error
// is an *IntegrityError when the row's lesson data is inconsistent.
func ResolveRow(row *catalog.CourseRow) (*catalog.Course, error) {
	course := buildCourse(row)
	if err := SortCourse(course); err != nil {
		return nil, err
	}
	return course, nil
}

func neighbourLink(courseSlug string, s *catalog.LessonStub) *catalog.LessonLink {
	if s == nil {
		return nil
	}
	return &catalog.LessonLink{
		Slug:  s.Slug,
		Title: s.Title,
		Link:  catalog.LessonPath(courseSlug, s.ModuleSlug, s.Slug),
	}
}
