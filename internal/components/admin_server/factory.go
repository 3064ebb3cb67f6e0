package admin_server

import (
	"fmt"

	"github.com/grand-thief-cash/humble/internal/core"
)

type Factory struct {
	container *core.Container
}

func NewFactory(c *core.Container) *Factory { return &Factory{container: c} }

func (f *Factory) Create(cfg interface{}) (core.Component, error) {
	adminCfg, ok := cfg.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type for admin_server component (need *Config)")
	}
	if !adminCfg.Enabled {
		return nil, fmt.Errorf("admin_server component disabled")
	}
	adminCfg.applyDefaults()
	return NewAdminServerComponent(adminCfg, f.container), nil
}
