package progress

import "github.com/yungbote/coursegraph-backend/internal/domain/catalog"

type Labeled struct {
	Status catalog.Status
	Course *catalog.Course
}

// Group folds labelled courses into a map keyed by status. Courses keep their relative order
// and a status with no course has no key.
func Group(items []Labeled) map[catalog.Status][]*catalog.Course {
	out := make(map[catalog.Status][]*catalog.Course)
	for _, it := range items {
		if it.Course == nil {
			continue
		}
		out[it.Status] = append(out[it.Status], it.Course)
	}
	return out
}

// Only returns a copy of r holding just the given status groups. With no statuses it returns r.
func (r *Result) Only(keep ...catalog.Status) *Result {
	if r.Empty() || len(keep) == 0 {
		return r
	}
	out := &Result{User: r.User, Enrolments: make(map[catalog.Status][]*catalog.Course, len(keep)), Faults: r.Faults}
	for _, s := range keep {
		if courses, ok := r.Enrolments[s]; ok {
			out.Enrolments[s] = courses
		}
	}
	return out
}
