package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// recorder collects pushes and optionally fails them.
type recorder struct {
	mu     sync.Mutex
	pushes []Push
	err    error
}

func (r *recorder) Send(_ context.Context, p Push) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, p)
	return r.err
}

func TestDispatcher_DeliversInBackground(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, nil, time.Second)

	d.Signal(context.Background(), Push{DeviceToken: "tok", Title: "hi"})
	d.Wait()

	if len(rec.pushes) != 1 || rec.pushes[0].Title != "hi" {
		t.Errorf("pushes: %+v", rec.pushes)
	}
}

func TestDispatcher_SkipsWithoutToken(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, nil, time.Second)
	d.Signal(context.Background(), Push{Title: "no token"})
	d.Wait()
	if len(rec.pushes) != 0 {
		t.Errorf("expected no push, got %d", len(rec.pushes))
	}
}

func TestDispatcher_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rec := &recorder{err: errors.New("gateway down")}
	d := NewDispatcher(rec, logger, time.Second)

	d.Signal(context.Background(), Push{DeviceToken: "tok", Title: "x"})
	d.Wait()

	if !strings.Contains(buf.String(), "push delivery failed") || !strings.Contains(buf.String(), "gateway down") {
		t.Errorf("expected failure log, got %q", buf.String())
	}
}

func TestDispatcher_IgnoresCallerCancellation(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, nil, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Signal(ctx, Push{DeviceToken: "tok"})
	d.Wait()
	if len(rec.pushes) != 1 {
		t.Error("push should be sent even after the request context ended")
	}
}

func TestNilDispatcher(t *testing.T) {
	var d *Dispatcher
	d.Signal(context.Background(), Push{DeviceToken: "tok"})
	d.Wait()
}

func TestHTTPNotifier_Send(t *testing.T) {
	var got Push
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL, "secret", time.Second)
	err := n.Send(context.Background(), Push{DeviceToken: "tok", Title: "Join request", Body: "b",
		Data: map[string]string{"event_id": "ev1"}})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.DeviceToken != "tok" || got.Data["event_id"] != "ev1" {
		t.Errorf("payload: %+v", got)
	}
	if auth != "key=secret" {
		t.Errorf("Authorization: got %q", auth)
	}
}

func TestHTTPNotifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL, "", time.Second)
	if err := n.Send(context.Background(), Push{DeviceToken: "tok"}); err == nil {
		t.Error("expected error for 502")
	}
}
