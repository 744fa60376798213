// Package catalogfile reads a course catalog (users, courses, chains, enrolments) from YAML.
// It backs local development, tests and the Neo4j seed command.
package catalogfile

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type File struct {
	Users      []UserSpec      `yaml:"users"`
	Courses    []CourseSpec    `yaml:"courses"`
	Enrolments []EnrolmentSpec `yaml:"enrolments"`
}

type UserSpec struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	GivenName string `yaml:"givenName"`
}

type CourseSpec struct {
	Slug       string         `yaml:"slug"`
	Title      string         `yaml:"title"`
	Properties map[string]any `yaml:"properties"`
	Modules    []ModuleSpec   `yaml:"modules"`
	// Chain lists "module/lesson" keys in NEXT order. Consecutive entries become one edge.
	Chain []string `yaml:"chain"`
}

type ModuleSpec struct {
	Slug       string         `yaml:"slug"`
	Title      string         `yaml:"title"`
	Properties map[string]any `yaml:"properties"`
	Lessons    []LessonSpec   `yaml:"lessons"`
}

type LessonSpec struct {
	Slug       string         `yaml:"slug"`
	Title      string         `yaml:"title"`
	Properties map[string]any `yaml:"properties"`
	Questions  []QuestionSpec `yaml:"questions"`
}

type QuestionSpec struct {
	ID   string `yaml:"id"`
	Slug string `yaml:"slug"`
}

type EnrolmentSpec struct {
	User             string     `yaml:"user"`
	Course           string     `yaml:"course"`
	Completed        bool       `yaml:"completed"`
	CreatedAt        *time.Time `yaml:"createdAt"`
	CompletedAt      *time.Time `yaml:"completedAt"`
	CompletedModules []string   `yaml:"completedModules"`
	CompletedLessons []string   `yaml:"completedLessons"`
}

// Edge is one NEXT relation between two "module/lesson" keys of the same course.
type Edge struct {
	From string
	To   string
}

func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalogfile: read %s: %w", path, err)
	}
	f, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("catalogfile: %s: %w", path, err)
	}
	return f, nil
}

func Parse(raw []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks references only; chain shape (cycles, gaps) is left for the engine to judge.
func (f *File) Validate() error {
	users := make(map[string]bool, len(f.Users))
	for _, u := range f.Users {
		if strings.TrimSpace(u.ID) == "" {
			return fmt.Errorf("user with empty id")
		}
		if users[u.ID] {
			return fmt.Errorf("duplicate user %q", u.ID)
		}
		users[u.ID] = true
	}

	courses := make(map[string]*CourseSpec, len(f.Courses))
	for i := range f.Courses {
		c := &f.Courses[i]
		if c.Slug == "" {
			return fmt.Errorf("course #%d has no slug", i)
		}
		if courses[c.Slug] != nil {
			return fmt.Errorf("duplicate course %q", c.Slug)
		}
		courses[c.Slug] = c

		lessons := c.LessonKeys()
		modules := make(map[string]bool, len(c.Modules))
		for _, m := range c.Modules {
			if m.Slug == "" {
				return fmt.Errorf("course %q: module with empty slug", c.Slug)
			}
			if modules[m.Slug] {
				return fmt.Errorf("course %q: duplicate module %q", c.Slug, m.Slug)
			}
			modules[m.Slug] = true
			seen := make(map[string]bool, len(m.Lessons))
			for _, l := range m.Lessons {
				if l.Slug == "" || seen[l.Slug] {
					return fmt.Errorf("course %q: module %q: empty or duplicate lesson slug %q", c.Slug, m.Slug, l.Slug)
				}
				seen[l.Slug] = true
			}
		}
		for _, key := range c.Chain {
			if !lessons[key] {
				return fmt.Errorf("course %q: chain references unknown lesson %q", c.Slug, key)
			}
		}
	}

	enrolled := make(map[string]bool, len(f.Enrolments))
	for _, e := range f.Enrolments {
		if !users[e.User] {
			return fmt.Errorf("enrolment references unknown user %q", e.User)
		}
		c := courses[e.Course]
		if c == nil {
			return fmt.Errorf("enrolment references unknown course %q", e.Course)
		}
		// At most one enrolment per (user, course).
		pair := e.User + "\x00" + e.Course
		if enrolled[pair] {
			return fmt.Errorf("duplicate enrolment %s/%s", e.User, e.Course)
		}
		enrolled[pair] = true

		modules := make(map[string]bool, len(c.Modules))
		for _, m := range c.Modules {
			modules[m.Slug] = true
		}
		for _, slug := range e.CompletedModules {
			if !modules[slug] {
				return fmt.Errorf("enrolment %s/%s: unknown module %q", e.User, e.Course, slug)
			}
		}
		lessons := c.LessonKeys()
		for _, key := range e.CompletedLessons {
			if !lessons[key] {
				return fmt.Errorf("enrolment %s/%s: unknown lesson %q", e.User, e.Course, key)
			}
		}
	}
	return nil
}

func LessonKey(moduleSlug, lessonSlug string) string { return moduleSlug + "/" + lessonSlug }

func SplitLessonKey(key string) (module, lesson string) {
	module, lesson, _ = strings.Cut(key, "/")
	return module, lesson
}

func (c *CourseSpec) LessonKeys() map[string]bool {
	out := make(map[string]bool)
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			out[LessonKey(m.Slug, l.Slug)] = true
		}
	}
	return out
}

func (c *CourseSpec) Edges() []Edge {
	if len(c.Chain) < 2 {
		return nil
	}
	out := make([]Edge, 0, len(c.Chain)-1)
	for i := 1; i < len(c.Chain); i++ {
		out = append(out, Edge{From: c.Chain[i-1], To: c.Chain[i]})
	}
	return out
}
