package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/avialabs/flightstatus/pkg/flightstats"
	"github.com/avialabs/flightstatus/pkg/normalize"
	"github.com/avialabs/flightstatus/pkg/poller"
	"github.com/avialabs/flightstatus/pkg/rendezvous"
)

// stubDispatcher hands out a fixed key and records what it was asked for.
type stubDispatcher struct {
	key       string
	iata      string
	direction flightstats.Direction
	airline   string
}

func (s *stubDispatcher) Dispatch(iata string, direction flightstats.Direction, airline string) string {
	s.iata = iata
	s.direction = direction
	s.airline = airline
	return s.key
}

func setupRouter(t *testing.T) (http.Handler, *stubDispatcher, *rendezvous.Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := rendezvous.NewStore(client, time.Minute)
	dispatcher := &stubDispatcher{key: rendezvous.NewKey(2)}

	return NewRouter(dispatcher, poller.New(store)), dispatcher, store
}

func get(t *testing.T, handler http.Handler, target string) (int, string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return rec.Code, string(body)
}

func TestHandleRequest_ReturnsKey(t *testing.T) {
	handler, dispatcher, _ := setupRouter(t)

	status, body := get(t, handler, "/request?iata=JFK&type=dep&airline=DL")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body != dispatcher.key {
		t.Errorf("body = %q, want the rendezvous key %q", body, dispatcher.key)
	}

	if dispatcher.iata != "JFK" || dispatcher.direction != flightstats.Departure || dispatcher.airline != "DL" {
		t.Errorf("dispatched (%q, %q, %q), want (JFK, dep, DL)",
			dispatcher.iata, dispatcher.direction, dispatcher.airline)
	}
}

func TestHandleRequest_OptionalAirline(t *testing.T) {
	handler, dispatcher, _ := setupRouter(t)

	status, _ := get(t, handler, "/request?iata=LAX&type=arr")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if dispatcher.airline != "" {
		t.Errorf("airline = %q, want empty", dispatcher.airline)
	}
}

func TestHandleRequest_InvalidParams(t *testing.T) {
	handler, dispatcher, _ := setupRouter(t)

	for _, target := range []string{
		"/request",
		"/request?iata=jfk&type=dep",
		"/request?iata=JFK&type=sideways",
		"/request?iata=JFK&type=dep&airline=TOOLONG",
	} {
		status, _ := get(t, handler, target)
		if status != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", target, status)
		}
	}

	if dispatcher.iata != "" {
		t.Error("invalid request must not reach the dispatcher")
	}
}

func TestHandleResponse_Pending(t *testing.T) {
	handler, dispatcher, store := setupRouter(t)

	if err := store.Append(context.Background(), dispatcher.key, "[]"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	status, body := get(t, handler, "/response?key="+dispatcher.key)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body != "null" {
		t.Errorf("body = %q, want null while partials are outstanding", body)
	}
}

func TestHandleResponse_Ready(t *testing.T) {
	handler, dispatcher, store := setupRouter(t)

	ctx := context.Background()
	for _, partial := range []string{`[{"flight":"DL 2390"}]`, "[]"} {
		if err := store.Append(ctx, dispatcher.key, partial); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	status, body := get(t, handler, "/response?key="+dispatcher.key)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}

	want := `[{"flight":"DL 2390"}]`
	if body != want {
		t.Errorf("body = %q, want %q", body, want)
	}
}

func TestHandleResponse_BadAirport(t *testing.T) {
	handler, dispatcher, store := setupRouter(t)

	ctx := context.Background()
	for _, partial := range []string{normalize.SentinelBadAirport, "[]"} {
		if err := store.Append(ctx, dispatcher.key, partial); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	status, body := get(t, handler, "/response?key="+dispatcher.key)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body != `"bad-airport"` {
		t.Errorf("body = %q, want %q", body, `"bad-airport"`)
	}
}

func TestHandleResponse_ErrorPartial(t *testing.T) {
	handler, dispatcher, store := setupRouter(t)

	ctx := context.Background()
	for _, partial := range []string{"[]", normalize.SentinelError} {
		if err := store.Append(ctx, dispatcher.key, partial); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	status, _ := get(t, handler, "/response?key="+dispatcher.key)
	if status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
}

func TestHandleResponse_InvalidKey(t *testing.T) {
	handler, _, _ := setupRouter(t)

	for _, target := range []string{
		"/response",
		"/response?key=garbage",
		"/response?key=fs:x:00000000-0000-0000-0000-000000000000",
	} {
		status, _ := get(t, handler, target)
		if status != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", target, status)
		}
	}
}

func TestHandleResponse_ConsumedKey(t *testing.T) {
	handler, dispatcher, store := setupRouter(t)

	ctx := context.Background()
	for _, partial := range []string{"[]", "[]"} {
		if err := store.Append(ctx, dispatcher.key, partial); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	if status, _ := get(t, handler, "/response?key="+dispatcher.key); status != http.StatusOK {
		t.Fatalf("first poll status = %d, want 200", status)
	}

	// The first completed poll consumed the list; retrying the key is a
	// client error, not an endless pending.
	status, _ := get(t, handler, "/response?key="+dispatcher.key)
	if status != http.StatusBadRequest {
		t.Errorf("second poll status = %d, want 400", status)
	}
}

func TestHandleHealth(t *testing.T) {
	handler, _, _ := setupRouter(t)

	status, body := get(t, handler, "/health")
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if body != "OK" {
		t.Errorf("body = %q, want OK", body)
	}
}

func TestUnknownPath(t *testing.T) {
	handler, _, _ := setupRouter(t)

	status, _ := get(t, handler, "/nope")
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler, _, _ := setupRouter(t)

	status, _ := get(t, handler, "/metrics")
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
}
