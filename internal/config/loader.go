// config/loader.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/grand-thief-cash/humble/internal/consts"
)

// Environment variables that override single values after the file is parsed.
const (
	envServerHost = "HUMBLE_SERVER_HOST"
	envServerPort = "HUMBLE_SERVER_PORT"
	envServerRoot = "HUMBLE_SERVER_ROOT_DIR"
	envLogLevel   = "HUMBLE_LOG_LEVEL"
)

// Loader 配置加载器
type Loader struct {
	env        string
	configPath string
	lookupEnv  func(string) (string, bool)
}

// NewLoader 创建配置加载器
func NewLoader(env string, configPath string) *Loader {
	if env == "" {
		env = consts.ENV_DEVELOPMENT
	}
	if configPath == "" {
		configPath = consts.DEFAULT_CONFIG_PATH
	}
	return &Loader{env: env, configPath: configPath, lookupEnv: os.LookupEnv}
}

// LoadConfig 读取 yaml/json 文件并合并环境变量
func (l *Loader) LoadConfig() (*AppConfig, error) {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	ext := strings.ToLower(filepath.Ext(l.configPath))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err := l.mergeEnvVars(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeEnvVars 合并环境变量到配置中
func (l *Loader) mergeEnvVars(cfg *AppConfig) error {
	if cfg.APPInfo == nil {
		cfg.APPInfo = &APPInfo{}
	}
	if cfg.APPInfo.ENV == "" {
		cfg.APPInfo.ENV = l.env
	}

	if v, ok := l.lookupEnv(envLogLevel); ok && cfg.Logging != nil {
		cfg.Logging.Level = v
	}

	host, hostSet := l.lookupEnv(envServerHost)
	port, portSet := l.lookupEnv(envServerPort)
	root, rootSet := l.lookupEnv(envServerRoot)
	if !hostSet && !portSet && !rootSet {
		return nil
	}
	if cfg.Server == nil {
		return fmt.Errorf("server overrides given but config has no server section")
	}
	if hostSet {
		cfg.Server.Host = host
	}
	if portSet {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("%s: %w", envServerPort, err)
		}
		cfg.Server.Port = n
	}
	if rootSet {
		cfg.Server.RootDir = root
	}
	return nil
}

// fileExists 检查文件是否存在
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
