// config/validator.go
package config

import (
	"fmt"

	"github.com/grand-thief-cash/humble/internal/consts"
)

// Validator 配置验证器
type Validator struct{}

// NewValidator 创建配置验证器
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAppConfig 验证配置; 组件级别的默认值和校验在各自的 factory 中完成
func (v *Validator) ValidateAppConfig(config *AppConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if config.Server == nil {
		return fmt.Errorf("server section is required")
	}
	if config.Logging == nil || !config.Logging.Enabled {
		return fmt.Errorf("logging must be enabled: the listener depends on it")
	}
	if config.APPInfo != nil {
		if err := v.validateEnv(config.APPInfo.ENV); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateConfigFilePath(env string, path string) error {
	if path == "" {
		return fmt.Errorf("config file path cannot be empty")
	}
	if len(path) > 255 {
		return fmt.Errorf("config file path is too long")
	}
	if !fileExists(path) {
		return fmt.Errorf("config file does not exist: %s", path)
	}
	return v.validateEnv(env)
}

func (v *Validator) validateEnv(env string) error {
	switch env {
	case "", consts.ENV_DEVELOPMENT, consts.ENV_PRODUCTION:
		return nil
	}
	return fmt.Errorf("running environment is not valid: %s", env)
}
