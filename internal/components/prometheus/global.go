package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMu      sync.RWMutex
	globalMetrics *Component
)

func registerGlobal(c *Component) {
	globalMu.Lock()
	globalMetrics = c
	globalMu.Unlock()
}

// C returns the running component, or nil when metrics are disabled.
func C() *Component {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

func Registry() *prometheus.Registry {
	if c := C(); c != nil {
		return c.registry
	}
	return nil
}

// Server returns the server metric set. The result is nil when metrics are
// disabled; every method on a nil *ServerMetrics is a no-op.
func Server() *ServerMetrics {
	if c := C(); c != nil {
		return c.server
	}
	return nil
}
