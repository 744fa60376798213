package catalogfile

import (
	"context"
	"sort"
	"sync"

	"github.com/yungbote/coursegraph-backend/internal/domain/catalog"
)

// Store serves learner rows straight from a loaded catalog file. Modules and lessons come back
// sorted by slug, which is not the learning order.
type Store struct {
	mu   sync.RWMutex
	file *File
}

func NewStore(f *File) *Store {
	if f == nil {
		f = &File{}
	}
	return &Store{file: f}
}

// Replace swaps the served catalog; in-flight reads keep the previous one.
func (s *Store) Replace(f *File) {
	if f == nil {
		return
	}
	s.mu.Lock()
	s.file = f
	s.mu.Unlock()
}

func (s *Store) current() *File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file
}

func (s *Store) UserCourses(ctx context.Context, userID string) (*catalog.UserCourses, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := s.current()

	var user *catalog.User
	for _, u := range f.Users {
		if u.ID == userID {
			user = &catalog.User{ID: u.ID, Name: u.Name, GivenName: u.GivenName}
			break
		}
	}
	if user == nil {
		return &catalog.UserCourses{}, nil
	}

	enrolments := make(map[string]*EnrolmentSpec)
	for i := range f.Enrolments {
		if f.Enrolments[i].User == userID {
			enrolments[f.Enrolments[i].Course] = &f.Enrolments[i]
		}
	}

	rows := make([]*catalog.CourseRow, 0, len(f.Courses))
	for i := range f.Courses {
		c := &f.Courses[i]
		rows = append(rows, courseRow(c, enrolments[c.Slug]))
	}
	return &catalog.UserCourses{User: user, Courses: rows}, nil
}

// CatalogCourses returns every course without learner facts.
func (s *Store) CatalogCourses(ctx context.Context) ([]*catalog.CourseRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := s.current()
	rows := make([]*catalog.CourseRow, 0, len(f.Courses))
	for i := range f.Courses {
		rows = append(rows, courseRow(&f.Courses[i], nil))
	}
	return rows, nil
}

func courseRow(c *CourseSpec, e *EnrolmentSpec) *catalog.CourseRow {
	titles := make(map[string]string)
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			titles[LessonKey(m.Slug, l.Slug)] = l.Title
		}
	}
	prev := make(map[string]string)
	next := make(map[string]string)
	for _, edge := range c.Edges() {
		next[edge.From] = edge.To
		prev[edge.To] = edge.From
	}

	doneModules := make(map[string]bool)
	doneLessons := make(map[string]bool)
	row := &catalog.CourseRow{Properties: props(c.Properties, c.Slug, c.Title)}
	if e != nil {
		row.Enrolment = &catalog.Enrolment{
			Completed:   e.Completed,
			CreatedAt:   e.CreatedAt,
			CompletedAt: e.CompletedAt,
		}
		for _, m := range e.CompletedModules {
			doneModules[m] = true
		}
		for _, l := range e.CompletedLessons {
			doneLessons[l] = true
		}
	}

	for _, m := range sortedModules(c.Modules) {
		mr := &catalog.ModuleRow{
			Properties: props(m.Properties, m.Slug, m.Title),
			Completed:  doneModules[m.Slug],
		}
		for _, l := range sortedLessons(m.Lessons) {
			key := LessonKey(m.Slug, l.Slug)
			lr := &catalog.LessonRow{
				Properties: props(l.Properties, l.Slug, l.Title),
				Completed:  doneLessons[key],
				Previous:   stub(prev[key], titles),
				Next:       stub(next[key], titles),
			}
			for _, q := range l.Questions {
				lr.Questions = append(lr.Questions, catalog.QuestionRef{ID: q.ID, Slug: q.Slug})
			}
			mr.Lessons = append(mr.Lessons, lr)
		}
		row.Modules = append(row.Modules, mr)
	}
	return row
}

func stub(key string, titles map[string]string) *catalog.LessonStub {
	if key == "" {
		return nil
	}
	module, lesson := SplitLessonKey(key)
	return &catalog.LessonStub{ModuleSlug: module, Slug: lesson, Title: titles[key]}
}

func props(in map[string]any, slug, title string) map[string]any {
	out := make(map[string]any, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	out["slug"] = slug
	out["title"] = title
	return out
}

func sortedModules(in []ModuleSpec) []ModuleSpec {
	out := append([]ModuleSpec(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

func sortedLessons(in []LessonSpec) []LessonSpec {
	out := append([]LessonSpec(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
