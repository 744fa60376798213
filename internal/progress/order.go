package progress

import (
	"sort"
	"strings"

	"github.com/yungbote/coursegraph-backend/internal/domain/catalog"
)

type chainEntry struct {
	lesson *catalog.Lesson
	module int
}

// SortCourse puts the course's modules and each module's lessons into the order given by the
// course-wide NEXT chain. Lessons are walked from the single lesson without a predecessor; a
// module sits at the position of its first visited lesson and modules without lessons keep
// their relative order after the rest. The course is modified in place. SortCourse is
// idempotent and never touches previous/next links.
func SortCourse(c *catalog.Course) error {
	if c == nil {
		return nil
	}

	var entries []*chainEntry
	byLink := make(map[string]*chainEntry)
	moduleSlugs := make(map[string]bool, len(c.Modules))
	for mi, m := range c.Modules {
		moduleSlugs[m.Slug] = true
		for _, l := range m.Lessons {
			if _, dup := byLink[l.Link]; dup {
				return integrityErr(c.Slug, KindDuplicateLesson, l.Link)
			}
			e := &chainEntry{lesson: l, module: mi}
			byLink[l.Link] = e
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return nil
	}

	chained := false
	var heads []*chainEntry
	for _, e := range entries {
		for _, ref := range []*catalog.LessonLink{e.lesson.Previous, e.lesson.Next} {
			if ref == nil {
				continue
			}
			chained = true
			if _, ok := byLink[ref.Link]; !ok {
				return danglingErr(c, moduleSlugs, e.lesson, ref)
			}
		}
		if e.lesson.Previous == nil {
			heads = append(heads, e)
		}
	}

	if !chained && len(entries) > 1 {
		sortByAuthoringOrder(c)
		return nil
	}

	switch {
	case len(heads) == 0:
		// Every lesson has a predecessor, so following them must loop.
		return integrityErr(c.Slug, KindCycle, linksOf(entries)...)
	case len(heads) > 1:
		return integrityErr(c.Slug, KindMultipleHeads, linksOf(heads)...)
	}

	order := make([]*chainEntry, 0, len(entries))
	visited := make(map[string]bool, len(entries))
	for cur := heads[0]; cur != nil; {
		if visited[cur.lesson.Link] {
			return integrityErr(c.Slug, KindCycle, cur.lesson.Link)
		}
		visited[cur.lesson.Link] = true
		order = append(order, cur)

		if cur.lesson.Next == nil {
			break
		}
		next := byLink[cur.lesson.Next.Link]
		if next.lesson.Previous == nil || next.lesson.Previous.Link != cur.lesson.Link {
			return integrityErr(c.Slug, KindBranch, cur.lesson.Link, next.lesson.Link)
		}
		cur = next
	}

	if len(order) != len(entries) {
		var missing []string
		for _, e := range entries {
			if !visited[e.lesson.Link] {
				missing = append(missing, e.lesson.Link)
			}
		}
		return integrityErr(c.Slug, KindUnreachable, missing...)
	}

	applyOrder(c, order)
	return nil
}

func applyOrder(c *catalog.Course, order []*chainEntry) {
	lessons := make([][]*catalog.Lesson, len(c.Modules))
	var moduleOrder []int
	for _, e := range order {
		if lessons[e.module] == nil {
			moduleOrder = append(moduleOrder, e.module)
		}
		lessons[e.module] = append(lessons[e.module], e.lesson)
	}
	for mi, m := range c.Modules {
		if lessons[mi] == nil {
			moduleOrder = append(moduleOrder, mi)
			continue
		}
		m.Lessons = lessons[mi]
	}

	modules := make([]*catalog.Module, 0, len(c.Modules))
	for _, mi := range moduleOrder {
		modules = append(modules, c.Modules[mi])
	}
	c.Modules = modules
}

// sortByAuthoringOrder orders a course that has no chain at all: by the numeric `order`
// property (items carrying one first), then by slug.
func sortByAuthoringOrder(c *catalog.Course) {
	sort.SliceStable(c.Modules, func(i, j int) bool {
		return authoringLess(c.Modules[i].Properties, c.Modules[j].Properties, c.Modules[i].Slug, c.Modules[j].Slug)
	})
	for _, m := range c.Modules {
		sort.SliceStable(m.Lessons, func(i, j int) bool {
			return authoringLess(m.Lessons[i].Properties, m.Lessons[j].Properties, m.Lessons[i].Slug, m.Lessons[j].Slug)
		})
	}
}

func authoringLess(a, b map[string]any, slugA, slugB string) bool {
	oa, okA := catalog.OrderProp(a)
	ob, okB := catalog.OrderProp(b)
	switch {
	case okA && !okB:
		return true
	case !okA && okB:
		return false
	case okA && okB && oa != ob:
		return oa < ob
	}
	return slugA < slugB
}

func danglingErr(c *catalog.Course, modules map[string]bool, from *catalog.Lesson, ref *catalog.LessonLink) *IntegrityError {
	// Links are /courses/{course}/{module}/{lesson}.
	parts := strings.Split(strings.TrimPrefix(ref.Link, "/"), "/")
	if len(parts) >= 3 && !modules[parts[2]] {
		return integrityErr(c.Slug, KindMissingModule, from.Link, ref.Link)
	}
	return integrityErr(c.Slug, KindDanglingLink, from.Link, ref.Link)
}

func linksOf(entries []*chainEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.lesson.Link)
	}
	return out
}
