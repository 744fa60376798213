package progress

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIntegrity matches every *IntegrityError via errors.Is.
var ErrIntegrity = errors.New("course integrity violation")

type IntegrityKind string

const (
	KindMultipleHeads   IntegrityKind = "multiple_chain_heads"
	KindCycle           IntegrityKind = "chain_cycle"
	KindBranch          IntegrityKind = "chain_branch"
	KindDanglingLink    IntegrityKind = "dangling_link"
	KindMissingModule   IntegrityKind = "missing_module"
	KindUnreachable     IntegrityKind = "unreachable_lessons"
	KindDuplicateLesson IntegrityKind = "duplicate_lesson"
)

// IntegrityError reports a course whose lesson data cannot be put into one canonical order.
// Lessons holds the links of the lessons involved.
type IntegrityError struct {
	CourseSlug string
	Kind       IntegrityKind
	Lessons    []string
}

func (e *IntegrityError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("course %q: %s", e.CourseSlug, e.Kind)
	if len(e.Lessons) > 0 {
		msg += " [" + strings.Join(e.Lessons, ", ") + "]"
	}
	return msg
}

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

func integrityErr(course string, kind IntegrityKind, lessons ...string) *IntegrityError {
	return &IntegrityError{CourseSlug: course, Kind: kind, Lessons: lessons}
}

// AsIntegrity returns the *IntegrityError in err's chain, if any.
func AsIntegrity(err error) (*IntegrityError, bool) {
	var ie *IntegrityError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
