package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// 默认配置值
const (
	DefaultTickInterval     = 10
	DefaultTalkSpeed        = 50
	DefaultEndingWait       = 5000
	DefaultAutoTalkInterval = 600000
	DefaultGhostDir         = "Ghosts"
	DefaultAppName          = "kikka"
	DefaultScreenWidth      = 1280
	DefaultScreenHeight     = 720
	DefaultFontSize         = 12
)

// AppConfig 应用配置
//
// 时间单位均为毫秒。
type AppConfig struct {
	TickInterval     int    `yaml:"tick_interval"`      // 驱动动画和对话的时钟间隔
	TalkSpeed        int    `yaml:"talk_speed"`         // 每输出一个文字单位的间隔
	EndingWait       int    `yaml:"ending_wait"`        // \e 之后保持对话框的时间
	AutoTalkInterval int    `yaml:"auto_talk_interval"` // 沉默多久后自动说话
	GhostDir         string `yaml:"ghost_dir"`          // ghost 所在目录
	AppName          string `yaml:"app_name"`           // 存档命名空间
	ScreenWidth      int    `yaml:"screen_width"`       // 获取不到屏幕大小时使用
	ScreenHeight     int    `yaml:"screen_height"`
	Debug            bool   `yaml:"debug"` // 显示调试信息

	// Font 对话框字体文件（TTF/OTF），为空时使用内置的 Go Regular
	Font     string  `yaml:"font"`
	FontSize float64 `yaml:"font_size"`
}

// DefaultAppConfig 返回全部使用默认值的配置
func DefaultAppConfig() *AppConfig {
	c := &AppConfig{}
	applyAppDefaults(c)
	return c
}

// LoadAppConfig 从 YAML 文件加载应用配置
// 参数：
//
//	filepath - 配置文件路径，文件不存在时返回默认配置
//
// 返回：
//
//	*AppConfig - 解析后的配置，缺失的字段使用默认值
//	error - 如果文件读取或解析失败，返回错误信息
func LoadAppConfig(filepath string) (*AppConfig, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultAppConfig(), nil
		}
		return nil, fmt.Errorf("failed to read app config file %s: %w", filepath, err)
	}

	var config AppConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse app config YAML from %s: %w", filepath, err)
	}

	applyAppDefaults(&config)

	if err := validateAppConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid app config in %s: %w", filepath, err)
	}

	return &config, nil
}

// applyAppDefaults 为未配置（零值）的字段设置默认值
func applyAppDefaults(config *AppConfig) {
	if config.TickInterval == 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.TalkSpeed == 0 {
		config.TalkSpeed = DefaultTalkSpeed
	}
	if config.EndingWait == 0 {
		config.EndingWait = DefaultEndingWait
	}
	if config.AutoTalkInterval == 0 {
		config.AutoTalkInterval = DefaultAutoTalkInterval
	}
	if config.GhostDir == "" {
		config.GhostDir = DefaultGhostDir
	}
	if config.AppName == "" {
		config.AppName = DefaultAppName
	}
	if config.ScreenWidth == 0 {
		config.ScreenWidth = DefaultScreenWidth
	}
	if config.ScreenHeight == 0 {
		config.ScreenHeight = DefaultScreenHeight
	}
	if config.FontSize == 0 {
		config.FontSize = DefaultFontSize
	}
	// Debug 默认为 false（bool 零值），无需处理
}

// validateAppConfig 验证配置的合法性
func validateAppConfig(config *AppConfig) error {
	if config.TickInterval < 0 {
		return fmt.Errorf("tick_interval cannot be negative, got %d", config.TickInterval)
	}
	if config.TalkSpeed < 0 {
		return fmt.Errorf("talk_speed cannot be negative, got %d", config.TalkSpeed)
	}
	if config.EndingWait < 0 {
		return fmt.Errorf("ending_wait cannot be negative, got %d", config.EndingWait)
	}
	if config.AutoTalkInterval < 0 {
		return fmt.Errorf("auto_talk_interval cannot be negative, got %d", config.AutoTalkInterval)
	}
	if config.ScreenWidth < 0 || config.ScreenHeight < 0 {
		return fmt.Errorf("screen size cannot be negative, got %dx%d", config.ScreenWidth, config.ScreenHeight)
	}
	if config.FontSize < 0 {
		return fmt.Errorf("font_size cannot be negative, got %v", config.FontSize)
	}
	return nil
}
