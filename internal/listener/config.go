package listener

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/grand-thief-cash/humble/internal/httpd"
	"github.com/grand-thief-cash/humble/internal/logrotate"
	"github.com/grand-thief-cash/humble/internal/workerpool"
)

// Config is the "server" section of the application config.
type Config struct {
	Host string `yaml:"host" json:"host"`
	// Port defaults to 443 when host is also unset; port 0 with a host asks
	// the OS for a free port.
	Port            int           `yaml:"port" json:"port"`
	CertFile        string        `yaml:"cert_file" json:"cert_file"`
	KeyFile         string        `yaml:"key_file" json:"key_file"`
	RootDir         string        `yaml:"root_dir" json:"root_dir"`
	DefaultDocument string        `yaml:"default_document" json:"default_document"`
	ServerName      string        `yaml:"server_name" json:"server_name"`
	AcceptWait      time.Duration `yaml:"accept_wait" json:"accept_wait"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" json:"max_header_bytes"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	RotateThreshold int           `yaml:"rotate_threshold" json:"rotate_threshold"`

	Pool   workerpool.Config `yaml:"pool" json:"pool"`
	Script ScriptConfig      `yaml:"script" json:"script"`
}

type ScriptConfig struct {
	Interpreter string        `yaml:"interpreter" json:"interpreter"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 && c.Host == "" {
		c.Port = 443
	}
	if c.RootDir == "" {
		c.RootDir = "RootDir"
	}
	if c.DefaultDocument == "" {
		c.DefaultDocument = "index.html"
	}
	if c.ServerName == "" {
		c.ServerName = httpd.DefaultServerName
	}
	if c.AcceptWait <= 0 {
		c.AcceptWait = 2 * time.Second
	}
	if c.MaxHeaderBytes <= 0 {
		c.MaxHeaderBytes = httpd.DefaultMaxHeaderBytes
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = httpd.DefaultMaxBodyBytes
	}
	if c.RotateThreshold <= 0 {
		c.RotateThreshold = logrotate.DefaultThreshold
	}
	if c.Pool.MaxWorkers <= 0 {
		c.Pool.MaxWorkers = workerpool.DefaultMaxWorkers
	}
	if c.Pool.IdleTimeout <= 0 {
		c.Pool.IdleTimeout = workerpool.DefaultIdleTimeout
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be within 0..65535, got %d", c.Port)
	}
	if c.CertFile == "" || c.KeyFile == "" {
		return fmt.Errorf("server.cert_file and server.key_file are required")
	}
	if c.Pool.MinIdle < 0 || c.Pool.MinIdle > c.Pool.MaxWorkers {
		return fmt.Errorf("server.pool.min_idle must be within 0..max_workers")
	}
	if c.Script.Timeout < 0 {
		return fmt.Errorf("server.script.timeout must be >= 0")
	}
	return nil
}

// Address is host:port as passed to net.Listen.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
