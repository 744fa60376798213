package catalog

import "time"

// UserCourses is what a graph store returns for one learner: the learner (nil when unknown)
// and one row per catalog course, in store order.
type UserCourses struct {
	User    *User
	Courses []*CourseRow
}

type CourseRow struct {
	Properties map[string]any
	// Enrolment is nil when the learner never enrolled.
	Enrolment *Enrolment
	Modules   []*ModuleRow
}

type Enrolment struct {
	Completed   bool
	CreatedAt   *time.Time
	CompletedAt *time.Time
}

type ModuleRow struct {
	Properties map[string]any
	Completed  bool
	Lessons    []*LessonRow
}

type LessonRow struct {
	Properties map[string]any
	Completed  bool
	Previous   *LessonStub
	Next       *LessonStub
	Questions  []QuestionRef
}

// LessonStub references a chain neighbour by its owning module and its own slug.
type LessonStub struct {
	ModuleSlug string
	Slug       string
	Title      string
}

func (r *CourseRow) Slug() string  { return StringProp(r.Properties, "slug") }
func (r *CourseRow) Title() string { return StringProp(r.Properties, "title") }
func (r *ModuleRow) Slug() string  { return StringProp(r.Properties, "slug") }
func (r *LessonRow) Slug() string  { return StringProp(r.Properties, "slug") }

func StringProp(props map[string]any, key string) string {
	if props == nil {
		return ""
	}
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}

// OrderProp reads the numeric authoring-order property, if any.
func OrderProp(props map[string]any) (float64, bool) {
	if props == nil {
		return 0, false
	}
	switch v := props["order"].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// ScalarProps copies props without the keys the tree derives itself.
func ScalarProps(props map[string]any, skip ...string) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	for _, k := range skip {
		delete(out, k)
	}
	return out
}
