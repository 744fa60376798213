package runtime

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Handler is one background job. Run reports its outcome through jc; a returned error
// fails the run when jc has not already been finished.
type Handler interface {
	Type() string
	Run(jc *Context) error
}

// Registry maps job types to handlers. Job types are unique.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("register job: nil handler")
	}
	jobType := strings.TrimSpace(h.Type())
	if jobType == "" {
		return fmt.Errorf("register job: empty job type")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.handlers[jobType]; dup {
		return fmt.Errorf("register job: %q already registered", jobType)
	}
	r.handlers[jobType] = h
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Types lists registered job types in name order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
