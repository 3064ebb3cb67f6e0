package prometheus

import (
	"fmt"

	"github.com/grand-thief-cash/humble/internal/core"
)

type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) Create(cfg interface{}) (core.Component, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type for prometheus component (*Config required)")
	}
	if c == nil || !c.Enabled {
		return nil, fmt.Errorf("prometheus component disabled")
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if c.Namespace == "" {
		c.Namespace = "humble"
	}
	yes := true
	if c.CollectGoMetrics == nil {
		c.CollectGoMetrics = &yes
	}
	if c.CollectProcess == nil {
		c.CollectProcess = &yes
	}
	return NewComponent(c), nil
}
