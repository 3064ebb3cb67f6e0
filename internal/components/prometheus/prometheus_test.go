package prometheus

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func startComponent(t *testing.T) *Component {
	t.Helper()
	no := false
	comp, err := NewFactory().Create(&Config{Enabled: true, CollectGoMetrics: &no, CollectProcess: &no})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	c := comp.(*Component)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = c.Stop(context.Background()) })
	return c
}

func TestServerMetricsRecordAndExpose(t *testing.T) {
	c := startComponent(t)

	Server().ConnectionDispatched(true)
	Server().ConnectionDispatched(false)
	Server().RequestServed("GET", 200, 10*time.Millisecond)
	Server().RequestServed("BREW", 0, time.Millisecond)

	if got := testutil.ToFloat64(c.server.requests.WithLabelValues("GET", "200")); got != 1 {
		t.Fatalf("GET 200 counter %v", got)
	}
	if got := testutil.ToFloat64(c.server.requests.WithLabelValues("other", "0")); got != 1 {
		t.Fatalf("other method counter %v", got)
	}

	c.NewGaugeFunc("pool_workers", "workers", func() float64 { return 3 })
	c.NewGaugeFunc("pool_workers", "workers", func() float64 { return 4 })

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`humble_connections_total{result="rejected"} 1`,
		`humble_pool_workers 4`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestNilServerMetricsAreNoops(t *testing.T) {
	var m *ServerMetrics
	m.ConnectionDispatched(true)
	m.AcceptError("operational")
	m.RequestServed("GET", 404, time.Second)
	m.LogRotated("x")
}
