// Package catalog holds the learner-facing content tree (courses, modules, lessons) and the raw
// per-course rows a graph store hands back for a learner.
package catalog

import (
	"encoding/json"
	"fmt"
	"time"
)

type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	GivenName string `json:"givenName"`
}

// Course is one catalog course projected for a single learner.
type Course struct {
	Slug        string
	Title       string
	Properties  map[string]any
	CreatedAt   *time.Time
	Completed   bool
	CompletedAt *time.Time
	Modules     []*Module
}

type Module struct {
	Slug       string
	Title      string
	Properties map[string]any
	Link       string
	Completed  bool
	Lessons    []*Lesson
}

type Lesson struct {
	Slug       string
	Title      string
	Properties map[string]any
	Link       string
	Completed  bool
	Previous   *LessonLink
	Next       *LessonLink
	Questions  []QuestionRef
}

// LessonLink is the navigation stub attached to a lesson for its chain neighbours.
type LessonLink struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Link  string `json:"link"`
}

type QuestionRef struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

func CourseLink(courseSlug string) string {
	return fmt.Sprintf("/courses/%s", courseSlug)
}

func ModuleLink(courseSlug, moduleSlug string) string {
	return fmt.Sprintf("/courses/%s/%s", courseSlug, moduleSlug)
}

func LessonPath(courseSlug, moduleSlug, lessonSlug string) string {
	return fmt.Sprintf("/courses/%s/%s/%s", courseSlug, moduleSlug, lessonSlug)
}

// MarshalJSON flattens the scalar properties next to the derived fields; derived fields win
// on key collisions.
func (c *Course) MarshalJSON() ([]byte, error) {
	out := flatten(c.Properties)
	out["slug"] = c.Slug
	out["title"] = c.Title
	out["link"] = CourseLink(c.Slug)
	out["createdAt"] = c.CreatedAt
	out["completed"] = c.Completed
	out["completedAt"] = c.CompletedAt
	modules := c.Modules
	if modules == nil {
		modules = []*Module{}
	}
	out["modules"] = modules
	return json.Marshal(out)
}

func (m *Module) MarshalJSON() ([]byte, error) {
	out := flatten(m.Properties)
	out["slug"] = m.Slug
	out["title"] = m.Title
	out["link"] = m.Link
	out["completed"] = m.Completed
	lessons := m.Lessons
	if lessons == nil {
		lessons = []*Lesson{}
	}
	out["lessons"] = lessons
	return json.Marshal(out)
}

func (l *Lesson) MarshalJSON() ([]byte, error) {
	out := flatten(l.Properties)
	out["slug"] = l.Slug
	out["title"] = l.Title
	out["link"] = l.Link
	out["completed"] = l.Completed
	out["previous"] = l.Previous
	out["next"] = l.Next
	questions := l.Questions
	if questions == nil {
		questions = []QuestionRef{}
	}
	out["questions"] = questions
	return json.Marshal(out)
}

func flatten(props map[string]any) map[string]any {
	out := make(map[string]any, len(props)+8)
	for k, v := range props {
		out[k] = v
	}
	return out
}
