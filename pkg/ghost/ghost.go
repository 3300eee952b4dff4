package ghost

import (
	"fmt"
	"image"
	"log"
	"math/rand"
	"path/filepath"
	"sort"
	"time"

	"github.com/gonewx/kikka/internal/surfaces"
	"github.com/gonewx/kikka/pkg/balloon"
	"github.com/gonewx/kikka/pkg/compositor"
	"github.com/gonewx/kikka/pkg/memory"
	"github.com/gonewx/kikka/pkg/sakura"
	"github.com/gonewx/kikka/pkg/shell"
)

// 默认值
const (
	DefaultAutoTalkInterval = 10 * 60 * 1000
	DefaultUserName         = "A.A君"
)

// Env ghost 所在应用提供的环境
type Env interface {
	// Property 返回属性值（system.year、ghostlist.count 等）
	Property(key string) (string, bool)
	// ScreenSize 返回屏幕分辨率
	ScreenSize() image.Point
	// ClientRect 返回屏幕可用区域（不含任务栏）
	ClientRect() image.Rectangle
	// TalkSuppressed 应用隐藏或有全屏程序时返回 true，此时不开始对话
	TalkSuppressed() bool
}

// StaticEnv 固定屏幕大小、没有属性的环境
type StaticEnv struct {
	Screen image.Point
}

func (e StaticEnv) Property(string) (string, bool) { return "", false }
func (e StaticEnv) ScreenSize() image.Point        { return e.Screen }
func (e StaticEnv) ClientRect() image.Rectangle    { return image.Rectangle{Max: e.Screen} }
func (e StaticEnv) TalkSuppressed() bool           { return false }

// Options ghost 的依赖和参数，零值字段使用默认值
type Options struct {
	// Store 持久化存储，默认仅内存
	Store *memory.Store
	Env   Env
	// Windows 窗口工厂，默认 Headless
	Windows WindowFactory

	TalkSpeed        int
	EndingWait       int
	AutoTalkInterval int

	Rand func() float64
	Intn func(n int) int
	Now  func() time.Time
}

// Ghost 一个运行中的 ghost
//
// 非并发安全，所有方法都在 tick goroutine 中调用。
type Ghost struct {
	ID       int
	Manifest *Manifest
	Dir      string

	env     Env
	windows WindowFactory
	memory  *memory.Table
	interp  *sakura.Interpreter
	script  *Script

	shells   []*shell.Shell
	shell    *shell.Shell
	images   compositor.Images
	balloons []*balloon.Balloon
	balloon  *balloon.Balloon

	souls map[int]*Soul
	order []int

	variables  map[string]string
	touchTalk  map[TouchKey][][]string
	touchCount map[touchCountKey]int
	phase      int

	lockOnTaskBar    bool
	autoTalkInterval int
	lastAutoTalk     time.Time
	lastMinute       time.Time

	rand func() float64
	intn func(n int) int
	now  func() time.Time
}

// Load 初始化扫描到的 ghost
//
// 依次：扫描 Resource 下的 shell 和 balloon，更新启动时间，
// 恢复上次使用的 shell 和 balloon，执行主脚本的 on_init（创建 soul），
// 最后摆放各个 soul 的窗口。
//
// 参数：
//   - e: Scan 得到的 ghost
//   - id: ghost 编号
//   - opts: 依赖和参数
//
// 返回：
//   - *Ghost: 初始化完成的 ghost
//   - error: 没有可用的 shell/balloon、主角色没有默认 surface、或主脚本执行失败时返回错误
func Load(e *Entry, id int, opts Options) (*Ghost, error) {
	g := newGhost(e, id, opts)

	g.shells = scanShells(filepath.Join(e.Dir, "Resource", "Shell"))
	g.balloons = scanBalloons(filepath.Join(e.Dir, "Resource", "Balloon"))

	bootThis := g.memory.ReadInt("BootThis", int(g.now().Unix()), 0)
	g.memoryWrite("BootLast", bootThis, 0)
	g.memoryWrite("BootThis", int(g.now().Unix()), 0)

	if err := g.SetShell(g.memory.Read("CurrentShellName", "", 0)); err != nil {
		return nil, err
	}
	if err := g.SetBalloon(g.memory.Read("CurrentBalloonName", "", 0)); err != nil {
		return nil, err
	}
	g.lockOnTaskBar = g.memory.ReadBool("isLockOnTaskBar", true, 0)

	g.variables["selfname"] = g.Manifest.Name
	g.variables["selfname2"] = ""
	g.variables["keroname"] = ""
	g.variables["username"] = g.memory.Read("UserName", "", 0)
	if g.variables["username"] == "" {
		g.variables["username"] = DefaultUserName
	}

	src, err := e.Loader.ReadFile(e.Manifest.MainPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read ghost main script %s: %w", e.Manifest.MainPath(), err)
	}
	g.script, err = newScript(g, e.Manifest.MainPath(), string(src))
	if err != nil {
		return nil, err
	}
	g.script.onInit()
	if len(g.souls) == 0 {
		if _, err := g.AddSoul(0, 0); err != nil {
			return nil, err
		}
	}

	for _, s := range g.Souls() {
		s.initialed()
	}
	g.lastMinute = g.now()
	return g, nil
}

func newGhost(e *Entry, id int, opts Options) *Ghost {
	g := &Ghost{
		ID:               id,
		Manifest:         e.Manifest,
		Dir:              e.Dir,
		env:              opts.Env,
		windows:          opts.Windows,
		souls:            make(map[int]*Soul),
		variables:        make(map[string]string),
		touchTalk:        make(map[TouchKey][][]string),
		touchCount:       make(map[touchCountKey]int),
		lockOnTaskBar:    true,
		autoTalkInterval: opts.AutoTalkInterval,
		rand:             opts.Rand,
		intn:             opts.Intn,
		now:              opts.Now,
	}
	if g.env == nil {
		g.env = StaticEnv{Screen: image.Pt(1280, 720)}
	}
	if g.windows == nil {
		g.windows = Headless{}
	}
	if g.autoTalkInterval <= 0 {
		g.autoTalkInterval = DefaultAutoTalkInterval
	}
	if g.rand == nil {
		g.rand = rand.Float64
	}
	if g.intn == nil {
		g.intn = rand.Intn
	}
	if g.now == nil {
		g.now = time.Now
	}

	store := opts.Store
	if store == nil {
		store = memory.New(nil)
	}
	g.memory = store.Table("ghost_" + e.Manifest.Name)
	g.interp = sakura.NewInterpreter(&host{g}, sakura.Options{
		TalkSpeed:  opts.TalkSpeed,
		EndingWait: opts.EndingWait,
		Now:        g.now,
	})
	g.lastAutoTalk = g.now()
	return g
}

func scanShells(dir string) []*shell.Shell {
	shells, err := shell.Scan(dir)
	if err != nil {
		log.Printf("[Ghost] Warning: shell dir is NOT exist: %v", err)
	}
	log.Printf("[Ghost] shell scan finish: count %d", len(shells))
	return shells
}

func scanBalloons(dir string) []*balloon.Balloon {
	balloons, err := balloon.Scan(dir)
	if err != nil {
		log.Printf("[Ghost] Warning: balloon dir is NOT exist: %v", err)
	}
	log.Printf("[Ghost] balloon count: %d", len(balloons))
	return balloons
}

// Close 释放主脚本和资源文件
func (g *Ghost) Close() {
	if g.script != nil {
		g.script.close()
	}
	for _, sh := range g.shells {
		sh.Loader.Close()
	}
	for _, b := range g.balloons {
		b.Loader.Close()
	}
}

// Name 返回 ghost 名
func (g *Ghost) Name() string {
	return g.Manifest.Name
}

// Memory 返回 ghost 的存储表
func (g *Ghost) Memory() *memory.Table {
	return g.memory
}

func (g *Ghost) memoryWrite(key string, value any, soul int) {
	if err := g.memory.Write(key, value, soul); err != nil {
		log.Printf("[Ghost] Warning: Failed to save %s: %v", key, err)
	}
}

// soul ###################################################################

// AddSoul 创建 soul
//
// 参数：
//   - id: soul 编号，0 为主角色，1 为搭档
//   - surface: 默认 surface
//
// 返回：
//   - *Soul: 新建的 soul
//   - error: 编号已存在、或当前 shell 没有默认 surface 时返回错误
func (g *Ghost) AddSoul(id, surface int) (*Soul, error) {
	if _, ok := g.souls[id]; ok {
		return nil, fmt.Errorf("failed to add soul: the soul ID %d exists", id)
	}
	if g.shell == nil {
		return nil, fmt.Errorf("failed to add soul %d: %w: no shell", id, ErrNoSurface)
	}
	if _, ok := g.shell.ResolveSurface(surface, nil); !ok {
		return nil, fmt.Errorf("failed to add soul %d: default surface %d: %w", id, surface, ErrNoSurface)
	}
	s := newSoul(g, id, surface)
	g.souls[id] = s
	g.order = append(g.order, id)
	sort.Ints(g.order)
	return s, nil
}

// Soul 返回编号为 id 的 soul
func (g *Ghost) Soul(id int) (*Soul, bool) {
	s, ok := g.souls[id]
	return s, ok
}

// Souls 按编号顺序返回所有 soul
func (g *Ghost) Souls() []*Soul {
	out := make([]*Soul, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.souls[id])
	}
	return out
}

// SetSurface 切换 soul 的表情
func (g *Ghost) SetSurface(soul, surface int) error {
	s, ok := g.souls[soul]
	if !ok {
		return fmt.Errorf("soul %d not found", soul)
	}
	return s.SetSurface(surface)
}

// shell ##################################################################

// Shells 返回扫描到的 shell
func (g *Ghost) Shells() []*shell.Shell {
	return g.shells
}

// Shell 返回当前 shell
func (g *Ghost) Shell() *shell.Shell {
	return g.shell
}

// ShellByName 按内部名查找 shell
func (g *Ghost) ShellByName(name string) (*shell.Shell, bool) {
	for _, sh := range g.shells {
		if sh.ID == name {
			return sh, true
		}
	}
	return nil, false
}

// SetShell 切换到名为 name 的 shell 并记住选择
//
// 找不到时使用第一个 shell。已是当前 shell 时什么都不做。
//
// 返回：
//   - error: 一个 shell 都没有（ErrNoDefaultShell）或加载失败时返回错误
func (g *Ghost) SetShell(name string) error {
	if g.shell != nil && g.shell.ID == name {
		return nil
	}
	if err := g.ReloadShell(name); err != nil {
		return err
	}
	g.memoryWrite("CurrentShellName", g.shell.ID, 0)
	return nil
}

// ReloadShell 重新加载 shell，name 为空时重新加载当前 shell
//
// 每个 soul 会重新解析当前 surface、重建动画并重新应用换装。
func (g *Ghost) ReloadShell(name string) error {
	if name == "" && g.shell != nil {
		name = g.shell.ID
	}
	sh, ok := g.ShellByName(name)
	if !ok {
		if name != "" {
			log.Printf("[Ghost] Warning: shell '%s' NOT in shell list", name)
		}
		if len(g.shells) == 0 {
			return fmt.Errorf("ghost %s: %w", g.Name(), ErrNoDefaultShell)
		}
		sh = g.shells[0]
	}
	if err := sh.Load(); err != nil {
		return fmt.Errorf("failed to load shell %s: %w", sh.ID, err)
	}

	g.shell = sh
	g.images = compositor.ShellImages(sh)
	for _, s := range g.Souls() {
		s.applyClothes()
		if err := s.SetSurface(-1); err != nil {
			log.Printf("[Ghost] Warning: soul %d: %v", s.ID, err)
		}
	}
	return nil
}

// ChangeShell 隐藏窗口、切换 shell 后再显示
func (g *Ghost) ChangeShell(name string) error {
	g.Hide()
	err := g.SetShell(name)
	g.Show()
	return err
}

// balloon ################################################################

// Balloons 返回扫描到的 balloon
func (g *Ghost) Balloons() []*balloon.Balloon {
	return g.balloons
}

// Balloon 返回当前 balloon
func (g *Ghost) Balloon() *balloon.Balloon {
	return g.balloon
}

// SetBalloon 切换到名为 name 的 balloon 并记住选择，找不到时使用第一个
func (g *Ghost) SetBalloon(name string) error {
	var b *balloon.Balloon
	for _, it := range g.balloons {
		if it.ID == name {
			b = it
			break
		}
	}
	if b == nil {
		if name != "" {
			log.Printf("[Ghost] Warning: balloon '%s' NOT in balloon list", name)
		}
		if len(g.balloons) == 0 {
			return fmt.Errorf("ghost %s: %w", g.Name(), ErrNoDefaultBalloon)
		}
		b = g.balloons[0]
	}
	if err := b.Load(); err != nil {
		return fmt.Errorf("failed to load balloon %s: %w", b.ID, err)
	}

	g.balloon = b
	for _, s := range g.Souls() {
		s.dialog.SetBalloon(b)
	}
	g.memoryWrite("CurrentBalloonName", b.ID, 0)
	return nil
}

// BalloonImage 合成对话框背景
//
// 参数：
//   - size: 对话框大小
//   - flip: 对话框在角色另一侧时为 true
func (g *Ghost) BalloonImage(size image.Point, flip bool) *image.RGBA {
	if g.balloon == nil {
		log.Printf("[Ghost] Warning: BalloonImage: balloon is None")
		return compositor.DefaultImage()
	}
	return compositor.BalloonImage(g.balloon, size, flip)
}

// talk ###################################################################

// Talk 开始说一段脚本
//
// 应用隐藏或全屏时不说话。
//
// 返回：
//   - bool: 是否开始了对话
func (g *Ghost) Talk(script string) bool {
	if script == "" || g.env.TalkSuppressed() {
		return false
	}
	if !g.interp.Talk(script) {
		return false
	}
	g.trigger(surfaces.IntervalTalk)
	return true
}

// trigger 在所有 soul 上启动 interval 为 iv 的动画
func (g *Ghost) trigger(iv surfaces.Interval) {
	for _, s := range g.Souls() {
		if s.anims.Trigger(iv) {
			s.Repaint()
		}
	}
}

// IsTalking 是否正在对话
func (g *Ghost) IsTalking() bool {
	return g.interp.IsTalking() && !g.env.TalkSuppressed()
}

// Interpreter 返回脚本解释器
func (g *Ghost) Interpreter() *sakura.Interpreter {
	return g.interp
}

// Variable 返回会话变量
func (g *Ghost) Variable(name string) (string, bool) {
	v, ok := g.variables[name]
	return v, ok
}

// SetVariable 设置会话变量
func (g *Ghost) SetVariable(name, value string) {
	if name == "" {
		return
	}
	g.variables[name] = value
}

// SetUserName 设置并记住对用户的称呼
func (g *Ghost) SetUserName(name string) {
	if name == "" {
		return
	}
	g.variables["username"] = name
	g.memoryWrite("UserName", name, 0)
}

// Boot 启动时调用一次，说主脚本 on_boot 返回的话
func (g *Ghost) Boot() {
	if g.script != nil {
		g.Talk(g.script.onBoot())
	}
}

// Tick 推进 dt 毫秒
//
// 依次：推进每个 soul 的动画；沉默超过自动对话间隔时说 on_auto_talk 的话；
// 分钟变化时说 on_minute 的话；推进脚本解释器。
//
// 返回：
//   - bool: 是否有 soul 的画面发生变化
func (g *Ghost) Tick(dt int) bool {
	changed := false
	for _, s := range g.Souls() {
		if s.Tick(dt) {
			changed = true
		}
	}

	now := g.now()
	if !g.IsTalking() {
		last := g.interp.LastTalk()
		if g.lastAutoTalk.After(last) {
			last = g.lastAutoTalk
		}
		if now.Sub(last) > time.Duration(g.autoTalkInterval)*time.Millisecond {
			g.lastAutoTalk = now
			if g.script != nil {
				g.Talk(g.script.onAutoTalk())
			}
		}
	}
	if !g.IsTalking() && !now.Truncate(time.Minute).Equal(g.lastMinute.Truncate(time.Minute)) {
		g.lastMinute = now
		if g.script != nil {
			g.Talk(g.script.onMinute(now))
		}
	}

	g.interp.Tick(dt)
	return changed
}

// window #################################################################

// Show 显示所有 soul
func (g *Ghost) Show() {
	for _, s := range g.Souls() {
		s.Show()
	}
}

// Hide 隐藏所有 soul 和对话框
func (g *Ghost) Hide() {
	for _, s := range g.Souls() {
		s.Hide()
	}
}

// IsLockOnTaskBar 窗口是否贴在任务栏上
func (g *Ghost) IsLockOnTaskBar() bool {
	return g.lockOnTaskBar
}

// SetLockOnTaskBar 设置并记住是否贴在任务栏上
func (g *Ghost) SetLockOnTaskBar(lock bool) {
	g.lockOnTaskBar = lock
	g.memoryWrite("isLockOnTaskBar", lock, 0)
}

// ResetWindowsPosition 重新摆放所有 soul 的窗口
//
// soul 依次从右向左排列，每个 soul 的右偏移是前面 soul 的宽度之和。
//
// 参数：
//   - useDefault: 使用 shell 的默认位置，否则保持当前位置
//   - lock: 贴到任务栏上（与 IsLockOnTaskBar 取或）
func (g *Ghost) ResetWindowsPosition(useDefault, lock bool) {
	right := 0
	for _, s := range g.Souls() {
		s.ResetPosition(useDefault, lock || g.lockOnTaskBar, right)
		right += s.Size().X
	}
}

// host 把解释器事件转到 ghost 的 soul 上
type host struct {
	g *Ghost
}

var (
	_ sakura.Host       = (*host)(nil)
	_ sakura.ChoiceHost = (*host)(nil)
	_ sakura.EndingHost = (*host)(nil)
)

func (h *host) soul(id int) (*Soul, bool) {
	s, ok := h.g.souls[id]
	if !ok {
		log.Printf("[Ghost] Warning: soul %d not found", id)
	}
	return s, ok
}

func (h *host) Talk(soul int, text string) {
	if s, ok := h.soul(soul); ok {
		s.dialog.Show(PageTalk)
		s.dialog.Talk(text, h.g.interp.TalkSpeed())
	}
}

func (h *host) ClearTalk() {
	for _, s := range h.g.Souls() {
		s.dialog.ClearTalk()
	}
}

func (h *host) SetSurface(soul, surface int) {
	if s, ok := h.soul(soul); ok {
		if err := s.SetSurface(surface); err != nil {
			log.Printf("[Ghost] Warning: soul %d: %v", soul, err)
		}
	}
}

func (h *host) TalkComplete() {
	for _, s := range h.g.Souls() {
		s.SetDefaultSurface()
		s.dialog.Hide()
	}
}

func (h *host) TalkEnding() {
	h.g.trigger(surfaces.IntervalYenE)
}

func (h *host) Choice(soul int, label, id string, index int) {
	if s, ok := h.soul(soul); ok {
		s.dialog.Choice(label, id, index)
	}
}

func (h *host) Variable(name string) (string, bool) {
	return h.g.Variable(name)
}

func (h *host) Property(key string) (string, bool) {
	return h.g.env.Property(key)
}

func (h *host) ScreenSize() image.Point {
	return h.g.env.ScreenSize()
}
