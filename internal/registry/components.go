package registry

import (
	"fmt"

	"github.com/grand-thief-cash/humble/internal/components/admin_server"
	"github.com/grand-thief-cash/humble/internal/components/logging"
	"github.com/grand-thief-cash/humble/internal/components/prometheus"
	"github.com/grand-thief-cash/humble/internal/components/telemetry"
	"github.com/grand-thief-cash/humble/internal/config"
	"github.com/grand-thief-cash/humble/internal/consts"
	"github.com/grand-thief-cash/humble/internal/core"
	"github.com/grand-thief-cash/humble/internal/listener"
)

func init() {
	Register(consts.COMPONENT_LOGGING, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.Logging == nil || !cfg.Logging.Enabled {
			return false, nil, nil
		}
		comp, err := logging.NewFactory().Create(cfg.Logging)
		if err != nil {
			return true, nil, err
		}
		return true, comp, nil
	})

	Register(consts.COMPONENT_PROMETHEUS, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.Prometheus == nil || !cfg.Prometheus.Enabled {
			return false, nil, nil
		}
		comp, err := prometheus.NewFactory().Create(cfg.Prometheus)
		if err != nil {
			return true, nil, err
		}
		return true, comp, nil
	})

	Register(consts.COMPONENT_TELEMETRY, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.Telemetry == nil || !cfg.Telemetry.Enabled {
			return false, nil, nil
		}
		if cfg.Telemetry.ServiceName == "" && cfg.APPInfo != nil {
			cfg.Telemetry.ServiceName = cfg.APPInfo.APPName
		}
		if cfg.Telemetry.ServiceName == "" {
			return false, nil, fmt.Errorf("telemetry.service_name empty and app_info.app_name not provided")
		}
		return true, telemetry.NewTelemetryComponent(cfg.Telemetry), nil
	})

	Register(consts.COMPONENT_LISTENER, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.Server == nil {
			return false, nil, nil
		}
		comp, err := listener.New(cfg.Server, logging.DestinationPaths(cfg.Logging), nil)
		if err != nil {
			return true, nil, err
		}
		return true, comp, nil
	})

	Register(consts.COMPONENT_ADMIN_SERVER, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.AdminServer == nil || !cfg.AdminServer.Enabled {
			return false, nil, nil
		}
		comp, err := admin_server.NewFactory(c).Create(cfg.AdminServer)
		if err != nil {
			return true, nil, err
		}
		return true, comp, nil
	})
}
