package catalog

import "fmt"

// Status is the enrolment state of a learner for one course.
type Status uint8

const (
	Available Status = iota
	Enrolled
	Completed
)

var statusNames = [...]string{
	Available: "available",
	Enrolled:  "enrolled",
	Completed: "completed",
}

func Statuses() []Status { return []Status{Available, Enrolled, Completed} }

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

func (s Status) MarshalText() ([]byte, error) {
	if int(s) >= len(statusNames) {
		return nil, fmt.Errorf("catalog: unknown status %d", uint8(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseStatus(raw string) (Status, error) {
	for i, name := range statusNames {
		if name == raw {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("catalog: unknown status %q", raw)
}
