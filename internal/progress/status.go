package progress

import "github.com/yungbote/coursegraph-backend/internal/domain/catalog"

// Classify derives a course's status from the learner's enrolment record alone. Module and
// lesson completion flags play no part.
func Classify(e *catalog.Enrolment) catalog.Status {
	switch {
	case e == nil:
		return catalog.Available
	case e.Completed:
		return catalog.Completed
	default:
		return catalog.Enrolled
	}
}
