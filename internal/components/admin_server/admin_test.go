package admin_server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/grand-thief-cash/humble/internal/consts"
	"github.com/grand-thief-cash/humble/internal/core"
	"github.com/grand-thief-cash/humble/internal/listener"
	"github.com/grand-thief-cash/humble/internal/workerpool"
)

type fakeListener struct {
	*core.BaseComponent
	stats listener.Stats
}

func (f *fakeListener) Stats() listener.Stats { return f.stats }

type brokenComponent struct{ *core.BaseComponent }

func (b *brokenComponent) HealthCheck() error { return errors.New("disk on fire") }

func startAdmin(t *testing.T, c *core.Container) *AdminServerComponent {
	t.Helper()
	comp, err := NewFactory(c).Create(&Config{Enabled: true, Address: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ac := comp.(*AdminServerComponent)
	if err := ac.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = ac.Stop(context.Background()) })
	return ac
}

func TestStatusReportsListenerStats(t *testing.T) {
	c := core.NewContainer()
	fl := &fakeListener{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_LISTENER),
		stats: listener.Stats{
			Address:  "127.0.0.1:443",
			Accepted: 7,
			Pool:     workerpool.Stats{Workers: 3, Running: 1},
		},
	}
	if err := c.Register(consts.COMPONENT_LISTENER, fl); err != nil {
		t.Fatalf("register: %v", err)
	}
	ac := startAdmin(t, c)

	rec := httptest.NewRecorder()
	ac.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code %d", rec.Code)
	}
	var got listener.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Accepted != 7 || got.Pool.Workers != 3 || got.Address != "127.0.0.1:443" {
		t.Fatalf("stats %+v", got)
	}
}

func TestStatusWithoutListener(t *testing.T) {
	ac := startAdmin(t, core.NewContainer())
	rec := httptest.NewRecorder()
	ac.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status code %d", rec.Code)
	}
}

func TestHealthzAggregatesComponents(t *testing.T) {
	c := core.NewContainer()
	healthy := core.NewBaseComponent("healthy")
	_ = healthy.Start(context.Background())
	_ = c.Register("healthy", healthy)
	ac := startAdmin(t, c)

	rec := httptest.NewRecorder()
	ac.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthy code %d body %s", rec.Code, rec.Body.String())
	}

	_ = c.Register("broken", &brokenComponent{core.NewBaseComponent("broken")})
	rec = httptest.NewRecorder()
	ac.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("broken code %d", rec.Code)
	}
	var body struct {
		Components []componentHealth `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Components) != 2 || body.Components[0].Name != "broken" || body.Components[0].Error != "disk on fire" {
		t.Fatalf("report %+v", body.Components)
	}
}

func TestServesOverTCPAndStops(t *testing.T) {
	c := core.NewContainer()
	comp, err := NewFactory(c).Create(&Config{Enabled: true, Address: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ac := comp.(*AdminServerComponent)
	if err := ac.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	url := "http://" + ac.Addr().String() + "/healthz"

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("response %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	if err := ac.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if ac.IsActive() {
		t.Fatalf("still active after stop")
	}
	if _, err := client.Get(url); err == nil {
		t.Fatalf("server still reachable after stop")
	}
}

func TestFactoryRejectsDisabled(t *testing.T) {
	if _, err := NewFactory(core.NewContainer()).Create(&Config{}); err == nil {
		t.Fatalf("expected disabled error")
	}
	if _, err := NewFactory(core.NewContainer()).Create("nope"); err == nil {
		t.Fatalf("expected type error")
	}
}
