package content_reindex

import (
	"fmt"
	"strings"

	"github.com/yungbote/coursegraph-backend/internal/domain/catalog"
	jobrt "github.com/yungbote/coursegraph-backend/internal/jobs/runtime"
	"github.com/yungbote/coursegraph-backend/internal/progress"
	"github.com/yungbote/coursegraph-backend/internal/realtime/bus"
)

// Document is what downstream indexers receive for one course: its lessons in learning order.
type Document struct {
	Course  string          `json:"course"`
	Title   string          `json:"title"`
	Link    string          `json:"link"`
	Modules []string        `json:"modules"`
	Lessons []DocumentEntry `json:"lessons"`
}

type DocumentEntry struct {
	Module    string   `json:"module"`
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	Link      string   `json:"link"`
	Position  int      `json:"position"`
	// Questions holds question ids in authoring order.
	Questions []string `json:"questions"`
}

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil {
		return nil
	}
	if p.source == nil {
		jc.Fail("deps", fmt.Errorf("missing catalog source"))
		return nil
	}
	only := strings.TrimSpace(jc.PayloadString("course"))

	jc.Progress("load", 10, "Loading catalog courses")
	rows, err := p.source.CatalogCourses(jc.Ctx)
	if err != nil {
		jc.Fail("load", err)
		return nil
	}

	published, skipped := 0, 0
	for i, row := range rows {
		if row == nil || (only != "" && row.Slug() != only) {
			continue
		}
		course, err := progress.ResolveRow(row)
		if err != nil {
			if _, ok := progress.AsIntegrity(err); !ok {
				jc.Fail("resolve", err)
				return nil
			}
			skipped++
			jc.Log.Warn("course skipped by reindex", "course", row.Slug(), "error", err)
			continue
		}
		ev, err := bus.NewEvent(bus.EventCatalogReindexed, documentOf(course))
		if err != nil {
			jc.Fail("encode", err)
			return nil
		}
		if err := p.bus.Publish(jc.Ctx, ev); err != nil {
			jc.Fail("publish", err)
			return nil
		}
		published++
		if len(rows) > 0 {
			jc.Progress("publish", 10+80*(i+1)/len(rows), course.Slug)
		}
	}

	jc.Succeed("done", map[string]any{
		"published": published,
		"skipped":   skipped,
	})
	return nil
}

func documentOf(c *catalog.Course) *Document {
	doc := &Document{
		Course:  c.Slug,
		Title:   c.Title,
		Link:    catalog.CourseLink(c.Slug),
		Modules: make([]string, 0, len(c.Modules)),
		Lessons: []DocumentEntry{},
	}
	pos := 0
	for _, m := range c.Modules {
		doc.Modules = append(doc.Modules, m.Slug)
		for _, l := range m.Lessons {
			qs := make([]string, 0, len(l.Questions))
			for _, q := range l.Questions {
				qs = append(qs, q.ID)
			}
			pos++
			doc.Lessons = append(doc.Lessons, DocumentEntry{
				Module:    m.Slug,
				Slug:      l.Slug,
				Title:     l.Title,
				Link:      l.Link,
				Position:  pos,
				Questions: qs,
			})
		}
	}
	return doc
}
