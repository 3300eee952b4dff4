// Package app 是桌面端的 ebiten 前端
//
// 所有 soul 和对话框画在同一个覆盖整个屏幕的透明、无边框、置顶窗口中。
// App 按配置的间隔驱动 core.Core，并把鼠标输入转换为 ghost 事件。
package app

import (
	"fmt"
	"image"
	"io"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/gonewx/kikka/pkg/config"
	"github.com/gonewx/kikka/pkg/core"
	"github.com/gonewx/kikka/pkg/ghost"
	"github.com/gonewx/kikka/pkg/memory"
)

// Config 定义应用启动配置
type Config struct {
	// Verbose 启用详细日志输出
	Verbose bool
	// ConfigPath 应用配置文件，不存在时使用默认配置
	ConfigPath string
	// Ghost 只加载这个名字的 ghost，为空则加载全部
	Ghost string
}

// App 实现 ebiten.Game 接口
type App struct {
	cfg     *config.AppConfig
	core    *core.Core
	windows *windowHost
	verbose bool
	debug   bool

	screen image.Point
	cursor image.Point
	clicks clickTracker
	drag   *dragState
	runes  []rune
	now    func() time.Time
}

// NewApp 创建并初始化应用：读取配置、打开存档、加载 ghost
func NewApp(cfg Config) (*App, error) {
	// 配置日志输出
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
		log.SetFlags(0)
	}

	appCfg, err := config.LoadAppConfig(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("配置加载失败: %w", err)
	}

	store, err := memory.Open(appCfg.AppName)
	if err != nil {
		// 降级模式：仅内存
		log.Printf("[App] Warning: failed to open storage, running without persistence: %v", err)
		store = memory.New(nil)
	}

	font, err := loadFont(appCfg.Font, appCfg.FontSize)
	if err != nil {
		return nil, fmt.Errorf("字体加载失败: %w", err)
	}

	a := &App{
		cfg:     appCfg,
		windows: newWindowHost(font),
		verbose: cfg.Verbose,
		debug:   appCfg.Debug,
		now:     time.Now,
	}
	a.core = core.New(core.Options{
		Config:  appCfg,
		Store:   store,
		Windows: a.windows,
	})

	a.screen = image.Pt(appCfg.ScreenWidth, appCfg.ScreenHeight)
	if w, h := ebiten.Monitor().Size(); w > 0 && h > 0 {
		a.screen = image.Pt(w, h)
	}
	a.core.SetScreen(a.screen, image.Rectangle{Max: a.screen})

	n, err := a.loadGhosts(cfg.Ghost)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("no ghost found in %s", appCfg.GhostDir)
	}
	log.Printf("[App] %d ghost(s) loaded", n)

	a.core.Show()
	a.core.Boot()
	return a, nil
}

func (a *App) loadGhosts(name string) (int, error) {
	if name == "" {
		n, err := a.core.LoadGhosts(a.cfg.GhostDir)
		if err != nil {
			return 0, fmt.Errorf("ghost 加载失败: %w", err)
		}
		return n, nil
	}

	entries, err := ghost.Scan(a.cfg.GhostDir)
	if err != nil {
		return 0, fmt.Errorf("ghost 加载失败: %w", err)
	}
	for _, e := range entries {
		if e.Manifest.Name != name {
			continue
		}
		if _, err := a.core.AddGhost(e); err != nil {
			return 0, err
		}
		return 1, nil
	}
	return 0, fmt.Errorf("ghost %q not found in %s", name, a.cfg.GhostDir)
}

// Run 打开窗口并运行主循环，直到窗口关闭
func (a *App) Run() error {
	ebiten.SetWindowTitle(a.cfg.AppName)
	ebiten.SetWindowDecorated(false)
	ebiten.SetWindowFloating(true)
	ebiten.SetWindowSize(a.screen.X, a.screen.Y)
	ebiten.SetWindowPosition(0, 0)
	if a.cfg.TickInterval > 0 {
		ebiten.SetTPS(1000 / a.cfg.TickInterval)
	}
	defer a.core.Close()

	return ebiten.RunGameWithOptions(a, &ebiten.RunGameOptions{
		ScreenTransparent: true,
	})
}

// Update 处理输入并推进所有 ghost
func (a *App) Update() error {
	// F12 切换调试信息
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		a.debug = !a.debug
	}
	a.handleInput()
	a.core.Update()
	return nil
}

// Draw 画出所有可见的 soul 和对话框
func (a *App) Draw(screen *ebiten.Image) {
	for _, w := range a.windows.shells {
		if !w.visible {
			continue
		}
		img := w.image()
		if img == nil {
			continue
		}
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(w.pos.X), float64(w.pos.Y))
		screen.DrawImage(img, op)
	}
	for _, d := range a.windows.dialogs {
		if d.visible {
			d.draw(screen)
		}
	}

	if a.debug {
		a.drawDebug(screen)
	}
}

func (a *App) drawDebug(screen *ebiten.Image) {
	msg := fmt.Sprintf("TPS: %0.1f\nstate: %v\ncursor: %v", ebiten.ActualTPS(), a.core.State(), a.cursor)
	for _, g := range a.core.Ghosts() {
		msg += fmt.Sprintf("\n%s talking=%v", g.Name(), g.IsTalking())
		for _, s := range g.Souls() {
			tag := ghost.NoneTag
			if box, ok := s.HitTest(a.cursor.Sub(s.Window().Position())); ok {
				tag = box.Tag
			}
			msg += fmt.Sprintf("\n  soul %d surface=%d pos=%v tag=%s", s.ID, s.SurfaceID(), s.Window().Position(), tag)
		}
	}
	ebitenutil.DebugPrint(screen, msg)
}

// Layout 逻辑屏幕尺寸与窗口一致，窗口大小变化时重新摆放 soul
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	size := image.Pt(outsideWidth, outsideHeight)
	if size != a.screen && size.X > 0 && size.Y > 0 {
		a.screen = size
		a.core.ScreenClientSizeChange(size, image.Rectangle{Max: size})
	}
	return outsideWidth, outsideHeight
}

// Core 返回应用核心
func (a *App) Core() *core.Core {
	return a.core
}

// IsVerbose 返回是否启用了详细日志
func (a *App) IsVerbose() bool {
	return a.verbose
}
