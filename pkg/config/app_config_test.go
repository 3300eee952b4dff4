package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadAppConfig 测试应用配置加载
func TestLoadAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    AppConfig
		wantErr bool
	}{
		{
			name: "空文件使用默认值",
			yaml: "",
			want: *DefaultAppConfig(),
		},
		{
			name: "部分字段",
			yaml: "talk_speed: 20\nghost_dir: \"/opt/ghosts\"\ndebug: true\n",
			want: AppConfig{
				TickInterval:     DefaultTickInterval,
				TalkSpeed:        20,
				EndingWait:       DefaultEndingWait,
				AutoTalkInterval: DefaultAutoTalkInterval,
				GhostDir:         "/opt/ghosts",
				AppName:          DefaultAppName,
				ScreenWidth:      DefaultScreenWidth,
				ScreenHeight:     DefaultScreenHeight,
				Debug:            true,
				FontSize:         DefaultFontSize,
			},
		},
		{
			name: "全部字段",
			yaml: `tick_interval: 16
talk_speed: 30
ending_wait: 1000
auto_talk_interval: 60000
ghost_dir: g
app_name: test
screen_width: 1920
screen_height: 1080
font: fonts/wqy.ttf
font_size: 14.5
`,
			want: AppConfig{16, 30, 1000, 60000, "g", "test", 1920, 1080, false, "fonts/wqy.ttf", 14.5},
		},
		{
			name:    "负数",
			yaml:    "tick_interval: -1\n",
			wantErr: true,
		},
		{
			name:    "非法YAML",
			yaml:    "talk_speed: [1, 2\n",
			wantErr: true,
		},
		{
			name:    "类型错误",
			yaml:    "talk_speed: fast\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatalf("Failed to create test file: %v", err)
			}

			got, err := LoadAppConfig(path)
			if tt.wantErr {
				if err == nil {
					t.Errorf("LoadAppConfig() expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadAppConfig() failed: %v", err)
			}
			if *got != tt.want {
				t.Errorf("LoadAppConfig(): got %+v, want %+v", *got, tt.want)
			}
		})
	}
}

// TestLoadAppConfigMissingFile 测试配置文件不存在时返回默认配置
func TestLoadAppConfigMissingFile(t *testing.T) {
	got, err := LoadAppConfig(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("LoadAppConfig() failed: %v", err)
	}
	if got.TickInterval != 10 || got.TalkSpeed != 50 || got.EndingWait != 5000 || got.AutoTalkInterval != 600000 {
		t.Errorf("timing defaults: got %+v", *got)
	}
	if got.GhostDir != "Ghosts" || got.AppName != "kikka" {
		t.Errorf("path defaults: got %q %q", got.GhostDir, got.AppName)
	}
	if got.ScreenWidth != 1280 || got.ScreenHeight != 720 || got.Debug {
		t.Errorf("screen defaults: got %+v", *got)
	}
}

// TestLoadAppConfigDirectory 测试路径为目录时报错
func TestLoadAppConfigDirectory(t *testing.T) {
	if _, err := LoadAppConfig(t.TempDir()); err == nil {
		t.Error("LoadAppConfig(dir): expected error")
	}
}
