package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursegraph-backend/internal/jobs/runtime"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
)

type funcHandler struct {
	name string
	run  func(jc *runtime.Context) error
}

func (h funcHandler) Type() string                 { return h.name }
func (h funcHandler) Run(jc *runtime.Context) error { return h.run(jc) }

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) add(kind string, run runtime.Run) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, kind+":"+run.JobType+":"+run.Stage)
}

func (n *recordingNotifier) JobProgress(_ context.Context, run runtime.Run) { n.add("progress", run) }
func (n *recordingNotifier) JobFailed(_ context.Context, run runtime.Run)   { n.add("failed", run) }
func (n *recordingNotifier) JobDone(_ context.Context, run runtime.Run)     { n.add("done", run) }

func newWorker(t *testing.T, n runtime.Notifier, handlers ...runtime.Handler) *Worker {
	t.Helper()
	reg := runtime.NewRegistry()
	for _, h := range handlers {
		require.NoError(t, reg.Register(h))
	}
	return NewWorker(logger.Nop(), reg, n)
}

func TestRunOnceSucceeds(t *testing.T) {
	n := &recordingNotifier{}
	w := newWorker(t, n, funcHandler{name: "ok", run: func(jc *runtime.Context) error {
		jc.Progress("work", 50, "halfway")
		jc.Succeed("done", map[string]int{"n": 2})
		return nil
	}})

	run := w.RunOnce(context.Background(), "ok", nil)
	assert.Equal(t, runtime.StatusSucceeded, run.Status)
	assert.Equal(t, 100, run.Progress)
	assert.JSONEq(t, `{"n":2}`, string(run.Result))
	assert.NotNil(t, run.FinishedAt)
	assert.Equal(t, []string{"progress:ok:work", "done:ok:done"}, n.events)

	last, ok := w.Last("ok")
	require.True(t, ok)
	assert.Equal(t, run.ID, last.ID)
}

func TestRunOnceMissingHandler(t *testing.T) {
	w := newWorker(t, nil)
	run := w.RunOnce(context.Background(), "nope", nil)
	assert.Equal(t, runtime.StatusFailed, run.Status)
	assert.Equal(t, "dispatch", run.Stage)
	assert.Contains(t, run.Error, "nope")
}

func TestRunOnceRecoversPanics(t *testing.T) {
	w := newWorker(t, nil, funcHandler{name: "boom", run: func(*runtime.Context) error {
		panic("kaboom")
	}})
	run := w.RunOnce(context.Background(), "boom", nil)
	assert.Equal(t, runtime.StatusFailed, run.Status)
	assert.Equal(t, "panic", run.Stage)
	assert.Contains(t, run.Error, "kaboom")
}

func TestRunOnceReturnedErrorFailsRun(t *testing.T) {
	w := newWorker(t, nil, funcHandler{name: "err", run: func(*runtime.Context) error {
		return errors.New("bad input")
	}})
	run := w.RunOnce(context.Background(), "err", nil)
	assert.Equal(t, runtime.StatusFailed, run.Status)
	assert.Equal(t, "bad input", run.Error)
}

func TestRunOnceUnfinishedRunFails(t *testing.T) {
	w := newWorker(t, nil, funcHandler{name: "lazy", run: func(jc *runtime.Context) error {
		jc.Progress("started", 1, "")
		return nil
	}})
	run := w.RunOnce(context.Background(), "lazy", nil)
	assert.Equal(t, runtime.StatusFailed, run.Status)
	assert.Equal(t, "started", run.Stage)
}

func TestTerminalStateIsFinal(t *testing.T) {
	n := &recordingNotifier{}
	w := newWorker(t, n, funcHandler{name: "twice", run: func(jc *runtime.Context) error {
		jc.Fail("first", errors.New("x"))
		jc.Succeed("second", nil)
		jc.Progress("third", 10, "")
		return nil
	}})
	run := w.RunOnce(context.Background(), "twice", nil)
	assert.Equal(t, runtime.StatusFailed, run.Status)
	assert.Equal(t, "first", run.Stage)
	assert.Equal(t, []string{"failed:twice:first"}, n.events)
}

func TestRunAllInNameOrder(t *testing.T) {
	var order []string
	mk := func(name string) runtime.Handler {
		return funcHandler{name: name, run: func(jc *runtime.Context) error {
			order = append(order, name)
			jc.Succeed("done", nil)
			return nil
		}}
	}
	w := newWorker(t, nil, mk("b"), mk("a"), mk("c"))
	runs := w.RunAll(context.Background())
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestPayloadAccessors(t *testing.T) {
	var gotBool bool
	var gotStr string
	w := newWorker(t, nil, funcHandler{name: "p", run: func(jc *runtime.Context) error {
		gotBool = jc.PayloadBool("dry_run", false)
		gotStr = jc.PayloadString("course")
		jc.Succeed("done", nil)
		return nil
	}})
	w.RunOnce(context.Background(), "p", map[string]any{"dry_run": "true", "course": "c1"})
	assert.True(t, gotBool)
	assert.Equal(t, "c1", gotStr)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := runtime.NewRegistry()
	h := funcHandler{name: "x", run: func(*runtime.Context) error { return nil }}
	require.NoError(t, reg.Register(h))
	assert.Error(t, reg.Register(h))
	assert.Error(t, reg.Register(nil))
	assert.Error(t, reg.Register(funcHandler{}))
}
