// components/logging/config.go
package logging

import "path/filepath"

// LoggingConfig 日志配置
type LoggingConfig struct {
	Enabled      bool                `yaml:"enabled" json:"enabled"`
	Level        string              `yaml:"level" json:"level"`
	Format       string              `yaml:"format" json:"format"`
	Output       string              `yaml:"output" json:"output"`
	FileConfig   *FileConfig         `yaml:"file_config,omitempty" json:"file_config,omitempty"`
	Destinations *DestinationsConfig `yaml:"destinations,omitempty" json:"destinations,omitempty"`
}

// FileConfig 文件输出配置 (output=file)
type FileConfig struct {
	Dir        string `yaml:"dir" json:"dir"`
	Filename   string `yaml:"filename" json:"filename"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// DestinationsConfig 三个固定的文本日志：用户交互、异常、连接关闭
// 这些文件只由 logrotate 按行数截断，不做归档。
type DestinationsConfig struct {
	Dir         string `yaml:"dir" json:"dir"`
	Interaction string `yaml:"interaction" json:"interaction"`
	Exception   string `yaml:"exception" json:"exception"`
	Closed      string `yaml:"closed" json:"closed"`
}

// SetDestinationDefaults fills unset destination fields in place.
func SetDestinationDefaults(d *DestinationsConfig) {
	if d.Dir == "" {
		d.Dir = "Logs"
	}
	if d.Interaction == "" {
		d.Interaction = "interaction.txt"
	}
	if d.Exception == "" {
		d.Exception = "exceptions.txt"
	}
	if d.Closed == "" {
		d.Closed = "close_socket.txt"
	}
}

// Paths 返回 destination 名称到文件路径的映射
func (d *DestinationsConfig) Paths() map[string]string {
	return map[string]string{
		destInteraction: filepath.Join(d.Dir, d.Interaction),
		destException:   filepath.Join(d.Dir, d.Exception),
		destClosed:      filepath.Join(d.Dir, d.Closed),
	}
}

// DestinationPaths returns the file path of every destination, in a fixed order,
// after applying defaults. A nil config yields the default layout.
func DestinationPaths(cfg *LoggingConfig) []string {
	d := &DestinationsConfig{}
	if cfg != nil && cfg.Destinations != nil {
		cp := *cfg.Destinations
		d = &cp
	}
	SetDestinationDefaults(d)
	paths := d.Paths()
	return []string{paths[destInteraction], paths[destException], paths[destClosed]}
}
