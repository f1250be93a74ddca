package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObservePoll(t *testing.T) {
	m := New()

	m.ObservePoll("emails", ResultOK, 20*time.Millisecond)
	m.ObservePoll("emails", ResultOK, 30*time.Millisecond)
	m.ObservePoll("emails", ResultStale, 0)

	if got := testutil.ToFloat64(m.polls.WithLabelValues("emails", ResultOK)); got != 2 {
		t.Errorf("Expected 2 ok polls, got %v", got)
	}
	if got := testutil.ToFloat64(m.polls.WithLabelValues("emails", ResultStale)); got != 1 {
		t.Errorf("Expected 1 stale poll, got %v", got)
	}
}

func TestObserveAction(t *testing.T) {
	m := New()

	m.ObserveAction("block", ResultOK)
	m.ObserveAction("unblock", ResultError)

	if got := testutil.ToFloat64(m.actions.WithLabelValues("unblock", ResultError)); got != 1 {
		t.Errorf("Expected 1 failed unblock, got %v", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	// Must not panic
	m.ObservePoll("emails", ResultOK, time.Second)
	m.ObserveAction("block", ResultOK)
	m.WSConnected(1)
}

func TestHandler(t *testing.T) {
	m := New()
	m.WSConnected(2)
	m.WSConnected(-1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "aegisdash_ws_clients 1") {
		t.Errorf("Expected ws gauge in output, got:\n%s", body)
	}
}
