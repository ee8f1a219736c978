package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/hilthontt/duet/docs"
	"github.com/hilthontt/duet/internal/application/usecases/connection"
	"github.com/hilthontt/duet/internal/application/usecases/entry"
	"github.com/hilthontt/duet/internal/application/usecases/room"
	"github.com/hilthontt/duet/internal/domain"
	"github.com/hilthontt/duet/internal/infrastructure/configs"
	"github.com/hilthontt/duet/internal/infrastructure/logging"
	"github.com/hilthontt/duet/internal/infrastructure/metrics"
	"github.com/hilthontt/duet/internal/infrastructure/password"
	"github.com/hilthontt/duet/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/duet/internal/infrastructure/repository"
	healthHandler "github.com/hilthontt/duet/internal/presentation/handler/health"
	roomHandler "github.com/hilthontt/duet/internal/presentation/handler/rooms"
	"github.com/prometheus/client_golang/prometheus"
)

type nopPublisher struct{}

func (nopPublisher) PublishRoomCreated(ctx context.Context, room domain.Room) error {
	return nil
}

func (nopPublisher) PublishRoomDeleted(ctx context.Context, roomID string) error {
	return nil
}

func newTestApp(t *testing.T, burst int) http.Handler {
	t.Helper()
	return newTestAppWithProxy(t, burst, false)
}

func newTestAppWithProxy(t *testing.T, burst int, trustProxy bool) http.Handler {
	t.Helper()

	logger := logging.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	repo := repository.NewRoomRepository()

	roomUseCase := room.NewRoomUseCase(repo, password.NewHasher(), nopPublisher{}, nil, m, logger, room.Options{})
	gate, err := entry.NewGate(entry.Options{Secret: "api-secret"})
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	machine := connection.NewMachine(repo, m, logger, connection.Options{})
	attempts := ratelimiter.NewAttemptLimiter(10, time.Minute)
	t.Cleanup(attempts.Close)

	frozen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond:  1,
		MaxBurst:          burst,
		TrustSourceHeader: true,
		Now:               func() time.Time { return frozen },
	})

	cfg := configs.Config{
		HTTP: configs.HTTPConfig{
			AllowedOrigins:    []string{"https://duet.example"},
			TrustProxyHeaders: trustProxy,
		},
	}

	relay := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}

	app := NewApplication(
		cfg,
		roomHandler.NewHandler(roomUseCase, gate, machine, attempts, logger),
		healthHandler.NewHandler(nil),
		relay,
		metrics.Handler(reg),
		m,
		logger,
		rl,
	)

	return app.Mount()
}

func request(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMountServesRoomRoutes(t *testing.T) {
	h := newTestApp(t, 100)

	rec := request(t, h, http.MethodPost, "/room", map[string]string{
		"password": "abcd1234",
		"uid":      "host-1",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /room = %d: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Okay   bool   `json:"okay"`
		RoomID string `json:"room_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !created.Okay || created.RoomID == "" {
		t.Fatalf("unexpected create response: %+v", created)
	}

	rec = request(t, h, http.MethodGet, "/room/"+created.RoomID, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /room/{id} = %d", rec.Code)
	}

	rec = request(t, h, http.MethodPost, "/room/check", map[string]string{
		"room_id":  created.RoomID,
		"password": "wrong",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d, want 401", rec.Code)
	}

	rec = request(t, h, http.MethodGet, "/metrics", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
	want := `duet_http_request_duration_seconds_count{method="POST",route="/room",status="200"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("metrics output missing %q", want)
	}
	if !strings.Contains(rec.Body.String(), "duet_rooms_created_total 1") {
		t.Error("metrics output missing the room counter")
	}
}

func TestWebsocketRouteReachesRelay(t *testing.T) {
	h := newTestApp(t, 100)

	rec := request(t, h, http.MethodGet, "/ws", nil, nil)
	if rec.Code != http.StatusTeapot {
		t.Fatalf("GET /ws = %d, want relay response", rec.Code)
	}
}

func TestRateLimiterRejectsOverBurst(t *testing.T) {
	h := newTestApp(t, 1)
	headers := map[string]string{"X-RateLimit-Key": "client-a"}

	rec := request(t, h, http.MethodGet, "/rooms", nil, headers)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request = %d", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "1" {
		t.Errorf("X-RateLimit-Limit = %q", got)
	}

	rec = request(t, h, http.MethodGet, "/rooms", nil, headers)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q", got)
	}
	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q", got)
	}

	// Other sources keep their own bucket.
	rec = request(t, h, http.MethodGet, "/rooms", nil, map[string]string{"X-RateLimit-Key": "client-b"})
	if rec.Code != http.StatusOK {
		t.Fatalf("other source = %d", rec.Code)
	}

	// Health probes are not limited.
	rec = request(t, h, http.MethodGet, "/healthz", nil, headers)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d", rec.Code)
	}
}

func TestCors(t *testing.T) {
	h := newTestApp(t, 100)

	rec := request(t, h, http.MethodOptions, "/room", nil, map[string]string{"Origin": "https://duet.example"})
	if rec.Code != http.StatusOK {
		t.Fatalf("preflight = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://duet.example" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	rec = request(t, h, http.MethodOptions, "/room", nil, map[string]string{"Origin": "https://evil.example"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func TestOperationalRoutes(t *testing.T) {
	h := newTestApp(t, 100)

	for _, path := range []string{"/health", "/healthz", "/live", "/ready", "/debug/vars"} {
		rec := request(t, h, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}

	rec := request(t, h, http.MethodGet, "/swagger/doc.json", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /swagger/doc.json = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Duet API") {
		t.Error("swagger document missing title")
	}

	rec = request(t, h, http.MethodGet, "/nowhere", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /nowhere = %d", rec.Code)
	}
}

func createRoom(t *testing.T, h http.Handler) string {
	t.Helper()

	rec := request(t, h, http.MethodPost, "/room", map[string]string{
		"password": "abcd1234",
		"uid":      "host-1",
	}, nil)
	var created struct {
		RoomID string `json:"room_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil || created.RoomID == "" {
		t.Fatalf("create room: %d %s", rec.Code, rec.Body.String())
	}
	return created.RoomID
}

func TestForwardedForDoesNotResetPasswordAttempts(t *testing.T) {
	h := newTestApp(t, 100)
	roomID := createRoom(t, h)
	body := map[string]string{"room_id": roomID, "password": "wrong"}

	for i := range 10 {
		forged := map[string]string{"X-Forwarded-For": fmt.Sprintf("198.51.100.%d", i)}
		if rec := request(t, h, http.MethodPost, "/room/check", body, forged); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d = %d, want 401", i, rec.Code)
		}
	}

	forged := map[string]string{"X-Forwarded-For": "198.51.100.200"}
	if rec := request(t, h, http.MethodPost, "/room/check", body, forged); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("attempt past the limit = %d, want 429", rec.Code)
	}
}

func TestTrustedProxyHeaderSeparatesClients(t *testing.T) {
	h := newTestAppWithProxy(t, 100, true)
	roomID := createRoom(t, h)
	body := map[string]string{"room_id": roomID, "password": "wrong"}

	for i := range 10 {
		rec := request(t, h, http.MethodPost, "/room/check", body, map[string]string{"X-Forwarded-For": "198.51.100.1"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d = %d, want 401", i, rec.Code)
		}
	}

	rec := request(t, h, http.MethodPost, "/room/check", body, map[string]string{"X-Forwarded-For": "198.51.100.2"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("other client behind the proxy = %d, want 401", rec.Code)
	}
}
