package health

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kline_trader/internal/modules/health/service"
)

func get(t *testing.T, srv *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestMux(t *testing.T) {
	state := service.NewState()
	srv := httptest.NewServer(NewMux(state))
	defer srv.Close()

	if code, _ := get(t, srv, "/livez"); code != http.StatusOK {
		t.Fatalf("livez = %d", code)
	}
	if code, _ := get(t, srv, "/readyz"); code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before start = %d", code)
	}

	state.SetReady(true)
	state.SetWSConnected(true)
	state.TouchTick(time.Unix(1700000000, 0))

	if code, _ := get(t, srv, "/readyz"); code != http.StatusOK {
		t.Fatalf("readyz = %d", code)
	}
	_, body := get(t, srv, "/healthz")
	for _, want := range []string{`"wsConnected":true`, `"lastTickUnix":1700000000`, `"ticks":1`} {
		if !strings.Contains(body, want) {
			t.Fatalf("healthz %s lacks %s", body, want)
		}
	}
	if code, body := get(t, srv, "/metrics"); code != http.StatusOK || !strings.Contains(body, "go_goroutines") {
		t.Fatalf("metrics = %d", code)
	}
}

func TestTouchTickMonotonic(t *testing.T) {
	s := service.NewState()
	s.TouchTick(time.UnixMilli(2000))
	s.TouchTick(time.UnixMilli(1000))
	if got := s.LastTick().UnixMilli(); got != 2000 {
		t.Fatalf("last tick = %d", got)
	}
	if s.Ticks() != 2 {
		t.Fatalf("ticks = %d", s.Ticks())
	}
}
