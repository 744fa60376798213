package realtime

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
	"github.com/yungbote/coursegraph-backend/internal/realtime/bus"
)

func TestChannel(t *testing.T) {
	assert.Equal(t, "catalog", Channel(bus.EventCatalogReloaded))
	assert.Equal(t, "job", Channel(bus.EventJobDone))
	assert.Equal(t, "plain", Channel("plain"))
	assert.Equal(t, ".x", Channel(".x"))
}

func TestBroadcastFiltersByChannel(t *testing.T) {
	h := NewHub(logger.Nop())
	all := h.Register()
	jobs := h.Register("job")
	defer h.Unregister(all)
	defer h.Unregister(jobs)

	h.Broadcast(bus.Event{Type: bus.EventCatalogReloaded})
	h.Broadcast(bus.Event{Type: bus.EventJobDone})

	require.Len(t, all.outbound, 2)
	require.Len(t, jobs.outbound, 1)
	assert.Equal(t, bus.EventJobDone, (<-jobs.outbound).Type)
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	h := NewHub(logger.Nop())
	c := h.Register()
	for i := 0; i < cap(c.outbound)+5; i++ {
		h.Broadcast(bus.Event{Type: "catalog.x"})
	}
	assert.Len(t, c.outbound, cap(c.outbound))
	h.Unregister(c)
	h.Unregister(c)
	assert.Equal(t, 0, h.Clients())
}

func TestServeHTTPStreamsEvents(t *testing.T) {
	h := NewHub(logger.Nop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := h.Register("catalog")
		defer h.Unregister(c)
		h.ServeHTTP(w, r, c)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 5*time.Millisecond)
	h.Broadcast(bus.Event{Type: bus.EventCatalogReloaded})

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: catalog.reloaded", strings.TrimSpace(line))
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "data: {"), line)
}

func TestCloseAllEndsStreams(t *testing.T) {
	h := NewHub(logger.Nop())
	c := h.Register()
	h.CloseAll()
	assert.Equal(t, 0, h.Clients())
	select {
	case <-c.done:
	default:
		t.Fatal("client not closed")
	}
	h.Unregister(c)
}
