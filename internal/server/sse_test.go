package server

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsilva7456/commlink/internal/feed"
	"github.com/fsilva7456/commlink/internal/types"
)

// streamFirstChange opens an SSE connection, keeps publishing ev until
// the subscription is live, and returns the first change event seen.
func streamFirstChange(t *testing.T, s *Server, url string, ev feed.Event) feed.Event {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The subscription registers when the handler runs, some time
	// after the request is sent. Republishing until the reader sees a
	// change avoids the race; the feed drops extras on the floor.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.feed.Publish(ev)
			}
		}
	}()

	scanner := bufio.NewScanner(resp.Body)
	inChange := false
	for scanner.Scan() {
		line := scanner.Text()
		if line == "event: change" {
			inChange = true
			continue
		}
		if inChange && strings.HasPrefix(line, "data: ") {
			var got feed.Event
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &got))
			return got
		}
	}
	t.Fatalf("stream ended without a change event: %v", scanner.Err())
	return feed.Event{}
}

func TestEventsStream(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	runID := uuid.New()
	got := streamFirstChange(t, s, srv.URL+"/events", feed.Event{
		Type:     feed.Updated,
		Table:    feed.TableRuns,
		EntityID: runID,
	})

	assert.Equal(t, feed.Updated, got.Type)
	assert.Equal(t, feed.TableRuns, got.Table)
	assert.Equal(t, runID, got.EntityID)
}

func TestEventsStreamTableFilter(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	runID := uuid.New()

	// Noise on another table must not reach a filtered subscriber.
	noise := make(chan struct{})
	defer close(noise)
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-noise:
				return
			case <-ticker.C:
				s.feed.Publish(feed.Event{Type: feed.Inserted, Table: feed.TableModels, EntityID: runID})
			}
		}
	}()

	got := streamFirstChange(t, s, srv.URL+"/events?table=metrics", feed.Event{
		Type:     feed.Inserted,
		Table:    feed.TableMetrics,
		EntityID: runID,
	})

	assert.Equal(t, feed.TableMetrics, got.Table)
}

func TestRunEventsStream(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	training := fixtureRun(t, s, types.StatusTraining)
	other := uuid.New()

	noise := make(chan struct{})
	defer close(noise)
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-noise:
				return
			case <-ticker.C:
				s.feed.Publish(feed.Event{Type: feed.Updated, Table: feed.TableRuns, EntityID: other})
			}
		}
	}()

	got := streamFirstChange(t, s, srv.URL+"/runs/"+training.ID.String()+"/events", feed.Event{
		Type:     feed.Inserted,
		Table:    feed.TableMetrics,
		EntityID: training.ID,
	})

	assert.Equal(t, training.ID, got.EntityID, "run-scoped stream only carries the run's events")
}

func TestRunEventsUnknownRun(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/runs/"+uuid.NewString()+"/events", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
