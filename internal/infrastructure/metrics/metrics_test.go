package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	m.RoomCreated()
	m.RelayFrame("offer", OutcomeForwarded)
	m.ObserveRequest(http.MethodGet, "/rooms", http.StatusOK, time.Millisecond)
}

func TestHandlerExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RoomCreated()
	m.RoomCreated()
	m.RelayFrame("offer", OutcomeNoPeer)
	m.SocketOpened()
	m.ObserveRequest(http.MethodPost, "/room", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"duet_rooms_created_total 2",
		`duet_relay_frames_total{outcome="no_peer",type="offer"} 1`,
		"duet_relay_active_sockets 1",
		`duet_http_request_duration_seconds_count{method="POST",route="/room",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
