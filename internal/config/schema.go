// config/schema.go
package config

import (
	"github.com/grand-thief-cash/humble/internal/components/admin_server"
	"github.com/grand-thief-cash/humble/internal/components/logging"
	"github.com/grand-thief-cash/humble/internal/components/prometheus"
	"github.com/grand-thief-cash/humble/internal/components/telemetry"
	"github.com/grand-thief-cash/humble/internal/listener"
)

// AppConfig 应用程序配置结构
type AppConfig struct {
	APPInfo     *APPInfo               `yaml:"app_info" json:"app_info"`
	Logging     *logging.LoggingConfig `yaml:"logging" json:"logging"`
	Server      *listener.Config       `yaml:"server" json:"server"`
	Prometheus  *prometheus.Config     `yaml:"prometheus" json:"prometheus"`
	AdminServer *admin_server.Config   `yaml:"admin_server" json:"admin_server"`
	Telemetry   *telemetry.Config      `yaml:"telemetry" json:"telemetry"`
}

type APPInfo struct {
	APPName string `yaml:"app_name" json:"app_name"`
	ENV     string `yaml:"env" json:"env"`
}
