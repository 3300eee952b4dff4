// Package core 是应用的运行环境
//
// Core 持有所有运行中的 ghost，按固定间隔驱动它们的动画和对话，
// 管理应用的显示状态，并向 ghost 提供属性查询和屏幕信息（实现 ghost.Env）。
package core

import (
	"fmt"
	"image"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gonewx/kikka/pkg/config"
	"github.com/gonewx/kikka/pkg/ghost"
	"github.com/gonewx/kikka/pkg/memory"
)

// AppState 应用状态
type AppState int

const (
	StateHide AppState = iota
	StateShow
	// StateFullScreen 有其他程序全屏，ghost 隐藏且不说话
	StateFullScreen
)

func (s AppState) String() string {
	switch s {
	case StateHide:
		return "hide"
	case StateShow:
		return "show"
	case StateFullScreen:
		return "fullscreen"
	}
	return fmt.Sprintf("AppState(%d)", int(s))
}

// Options Core 的依赖，零值字段使用默认值
type Options struct {
	Config  *config.AppConfig
	Store   *memory.Store
	Windows ghost.WindowFactory

	Rand func() float64
	Intn func(n int) int
	Now  func() time.Time
}

// Core 应用运行环境
//
// Run 运行期间，其他 goroutine 只能通过 Do 访问 Core 和 ghost。
type Core struct {
	mu sync.Mutex

	cfg     *config.AppConfig
	store   *memory.Store
	windows ghost.WindowFactory
	rand    func() float64
	intn    func(n int) int
	now     func() time.Time

	state     AppState
	running   bool
	lastClock time.Time

	ghosts map[int]*ghost.Ghost
	nextID int

	screen image.Point
	client image.Rectangle
}

var _ ghost.Env = (*Core)(nil)

// New 创建 Core
func New(opts Options) *Core {
	c := &Core{
		cfg:     opts.Config,
		store:   opts.Store,
		windows: opts.Windows,
		rand:    opts.Rand,
		intn:    opts.Intn,
		now:     opts.Now,
		state:   StateShow,
		ghosts:  make(map[int]*ghost.Ghost),
	}
	if c.cfg == nil {
		c.cfg = config.DefaultAppConfig()
	}
	if c.store == nil {
		c.store = memory.New(nil)
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.screen = image.Pt(c.cfg.ScreenWidth, c.cfg.ScreenHeight)
	c.client = image.Rectangle{Max: c.screen}
	c.lastClock = c.now()
	return c
}

// Config 返回应用配置
func (c *Core) Config() *config.AppConfig {
	return c.cfg
}

// Store 返回持久化存储
func (c *Core) Store() *memory.Store {
	return c.store
}

// ghost ##################################################################

// LoadGhosts 扫描目录并加载其中所有 ghost
//
// 单个 ghost 加载失败只记录日志。
//
// 返回：
//   - int: 成功加载的 ghost 数
//   - error: 目录无法读取时返回错误
func (c *Core) LoadGhosts(dir string) (int, error) {
	entries, err := ghost.Scan(dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if _, err := c.AddGhost(e); err != nil {
			log.Printf("[Core] Warning: %v", err)
			continue
		}
		n++
	}
	log.Printf("[Core] ghost count: %d", n)
	return n, nil
}

// AddGhost 加载一个 ghost 并加入运行列表
func (c *Core) AddGhost(e *ghost.Entry) (*ghost.Ghost, error) {
	g, err := ghost.Load(e, c.nextID, ghost.Options{
		Store:            c.store,
		Env:              c,
		Windows:          c.windows,
		TalkSpeed:        c.cfg.TalkSpeed,
		EndingWait:       c.cfg.EndingWait,
		AutoTalkInterval: c.cfg.AutoTalkInterval,
		Rand:             c.rand,
		Intn:             c.intn,
		Now:              c.now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load ghost %s: %w", e.Manifest.Name, err)
	}
	c.ghosts[g.ID] = g
	c.nextID++
	if c.state != StateShow {
		g.Hide()
	}
	return g, nil
}

// Ghost 返回编号为 id 的 ghost
func (c *Core) Ghost(id int) (*ghost.Ghost, bool) {
	g, ok := c.ghosts[id]
	if !ok {
		log.Printf("[Core] Warning: ghost %d NOT in ghost list", id)
	}
	return g, ok
}

// Ghosts 返回按编号排序的 ghost
func (c *Core) Ghosts() []*ghost.Ghost {
	ids := make([]int, 0, len(c.ghosts))
	for id := range c.ghosts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*ghost.Ghost, len(ids))
	for i, id := range ids {
		out[i] = c.ghosts[id]
	}
	return out
}

// SetGhostSurface 切换 ghost 某个 soul 的 surface
func (c *Core) SetGhostSurface(ghostID, soul, surface int) error {
	g, ok := c.ghosts[ghostID]
	if !ok {
		return fmt.Errorf("ghost %d not found", ghostID)
	}
	return g.SetSurface(soul, surface)
}

// SetGhostShell 切换 ghost 的 shell
func (c *Core) SetGhostShell(ghostID int, name string) error {
	g, ok := c.ghosts[ghostID]
	if !ok {
		return fmt.Errorf("ghost %d not found", ghostID)
	}
	return g.ChangeShell(name)
}

// Boot 让所有 ghost 说启动对话
func (c *Core) Boot() {
	for _, g := range c.Ghosts() {
		g.Boot()
	}
}

// RepaintAll 重绘所有 soul
func (c *Core) RepaintAll() {
	for _, g := range c.Ghosts() {
		for _, s := range g.Souls() {
			s.Repaint()
		}
	}
}

// Close 关闭所有 ghost
func (c *Core) Close() {
	for _, g := range c.Ghosts() {
		g.Close()
	}
	c.ghosts = make(map[int]*ghost.Ghost)
}

// state ##################################################################

// State 返回应用状态
func (c *Core) State() AppState {
	return c.state
}

// SetState 设置应用状态
//
// 隐藏和全屏都会隐藏 ghost 并停止计时。
func (c *Core) SetState(state AppState) error {
	switch state {
	case StateHide, StateFullScreen:
		c.Hide()
	case StateShow:
		c.Show()
	default:
		return fmt.Errorf("unknown app state: %d", int(state))
	}
	c.state = state
	return nil
}

// Show 显示所有 ghost 并开始计时
func (c *Core) Show() {
	c.state = StateShow
	for _, g := range c.Ghosts() {
		g.Show()
	}
	c.Start()
}

// Hide 停止计时并隐藏所有 ghost
func (c *Core) Hide() {
	c.state = StateHide
	c.Stop()
	for _, g := range c.Ghosts() {
		g.Hide()
	}
}

// ScreenClientSizeChange 屏幕或任务栏变化后重新摆放窗口
func (c *Core) ScreenClientSizeChange(screen image.Point, client image.Rectangle) {
	c.screen = screen
	c.client = client
	c.state = StateShow
	for _, g := range c.Ghosts() {
		g.ResetWindowsPosition(false, false)
	}
	c.Start()
}

// TalkSuppressed 应用不在显示状态时 ghost 不说话
func (c *Core) TalkSuppressed() bool {
	return c.state != StateShow
}

// ScreenSize 返回屏幕分辨率
func (c *Core) ScreenSize() image.Point {
	return c.screen
}

// ClientRect 返回屏幕可用区域
func (c *Core) ClientRect() image.Rectangle {
	return c.client
}

// SetScreen 设置屏幕信息，不重新摆放窗口
func (c *Core) SetScreen(screen image.Point, client image.Rectangle) {
	c.screen = screen
	c.client = client
}
