package core

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gonewx/kikka/pkg/config"
	"github.com/gonewx/kikka/pkg/ghost"
)

const testMainScript = `
function on_boot()
  return "Hi\\e"
end
`

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func writeFile(t *testing.T, p, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func writePNG(t *testing.T, p string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{0, 120, 200, 255})
		}
	}
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
}

// makeGhost 在 root 下生成名为 name 的 ghost，只有一个 soul
func makeGhost(t *testing.T, root, name string) {
	t.Helper()
	dir := filepath.Join(root, name)
	writeFile(t, filepath.Join(dir, ghost.ManifestFile), `{"config": {"name": "`+name+`", "main": "main.lua"}}`)
	writeFile(t, filepath.Join(dir, "Ghost", "main.lua"), testMainScript)

	sd := filepath.Join(dir, "Resource", "Shell", "master")
	writeFile(t, filepath.Join(sd, "descript.txt"), "charset,UTF-8\nname,master\n")
	writeFile(t, filepath.Join(sd, "surfaces.txt"), "surface0\n{\nelement0,base,body.png,0,0\n}\n")
	writePNG(t, filepath.Join(sd, "body.png"), 20, 30)

	bd := filepath.Join(dir, "Resource", "Balloon", "simple")
	writeFile(t, filepath.Join(bd, "descript.txt"), "charset,UTF-8\nname,simple\n")
	writePNG(t, filepath.Join(bd, "background.png"), 30, 30)
}

func newTestCore(t *testing.T, ghosts ...string) (*Core, *fakeClock) {
	t.Helper()
	root := t.TempDir()
	for _, name := range ghosts {
		makeGhost(t, root, name)
	}

	cfg := config.DefaultAppConfig()
	cfg.TalkSpeed = 10
	cfg.EndingWait = 100
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 2, 3, 456000000, time.Local)}
	c := New(Options{
		Config: cfg,
		Now:    clock.now,
		Intn:   func(int) int { return 0 },
	})
	t.Cleanup(c.Close)

	n, err := c.LoadGhosts(root)
	if err != nil {
		t.Fatalf("LoadGhosts: %v", err)
	}
	if n != len(ghosts) {
		t.Fatalf("LoadGhosts: got %d ghosts, want %d", n, len(ghosts))
	}
	return c, clock
}

func firstSoul(t *testing.T, c *Core) *ghost.Soul {
	t.Helper()
	g, ok := c.Ghost(0)
	if !ok {
		t.Fatal("ghost 0 not found")
	}
	s, ok := g.Soul(0)
	if !ok {
		t.Fatal("soul 0 not found")
	}
	return s
}

// TestProperty 测试属性查询
func TestProperty(t *testing.T) {
	c, _ := newTestCore(t, "a", "b")

	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{"system.year", "2024", true},
		{"system.month", "5", true},
		{"system.day", "1", true},
		{"system.hour", "10", true},
		{"system.minute", "2", true},
		{"system.second", "3", true},
		{"system.millisecond", "456", true},
		{"system.dayofweek", "2", true}, // 2024-05-01 星期三
		{"ghostlist.count", "2", true},
		{"system.nope", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := c.Property(tt.key)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Property(%q): got %q, %v, want %q, %v", tt.key, got, ok, tt.want, tt.ok)
			}
		})
	}
}

// TestLoadGhosts 测试 ghost 注册表
func TestLoadGhosts(t *testing.T) {
	c, _ := newTestCore(t, "a", "b")

	gs := c.Ghosts()
	if len(gs) != 2 {
		t.Fatalf("Ghosts: got %d, want 2", len(gs))
	}
	for i, g := range gs {
		if g.ID != i {
			t.Errorf("Ghosts[%d].ID: got %d", i, g.ID)
		}
	}
	if gs[0].Name() != "a" || gs[1].Name() != "b" {
		t.Errorf("names: got %q %q", gs[0].Name(), gs[1].Name())
	}
	if _, ok := c.Ghost(5); ok {
		t.Error("Ghost(5): got ok")
	}

	if err := c.SetGhostSurface(0, 0, 0); err != nil {
		t.Errorf("SetGhostSurface: %v", err)
	}
	if err := c.SetGhostSurface(9, 0, 0); err == nil {
		t.Error("SetGhostSurface unknown ghost: expected error")
	}
	if err := c.SetGhostShell(0, "master"); err != nil {
		t.Errorf("SetGhostShell: %v", err)
	}

	if _, err := c.LoadGhosts(filepath.Join(t.TempDir(), "none")); err == nil {
		t.Error("LoadGhosts missing dir: expected error")
	}
}

// TestSetState 测试显示、隐藏和全屏状态
func TestSetState(t *testing.T) {
	c, _ := newTestCore(t, "a")
	c.Start()
	g, _ := c.Ghost(0)
	w := firstSoul(t, c).Window()

	tests := []struct {
		name       string
		state      AppState
		visible    bool
		running    bool
		suppressed bool
	}{
		{"隐藏", StateHide, false, false, true},
		{"显示", StateShow, true, true, false},
		{"全屏", StateFullScreen, false, false, true},
		{"恢复显示", StateShow, true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.SetState(tt.state); err != nil {
				t.Fatalf("SetState: %v", err)
			}
			if c.State() != tt.state {
				t.Errorf("State: got %v, want %v", c.State(), tt.state)
			}
			if w.IsVisible() != tt.visible {
				t.Errorf("window visible: got %v, want %v", w.IsVisible(), tt.visible)
			}
			if c.IsRunning() != tt.running {
				t.Errorf("IsRunning: got %v, want %v", c.IsRunning(), tt.running)
			}
			if c.TalkSuppressed() != tt.suppressed {
				t.Errorf("TalkSuppressed: got %v, want %v", c.TalkSuppressed(), tt.suppressed)
			}
			if got := g.Talk("x\\e"); got == tt.suppressed {
				t.Errorf("Talk: got %v", got)
			}
			g.Interpreter().Cancel()
		})
	}

	if err := c.SetState(AppState(7)); err == nil {
		t.Error("SetState(7): expected error")
	}
	if c.State() != StateShow {
		t.Errorf("State after invalid: got %v", c.State())
	}
}

// TestUpdate 测试按实际经过时间推进
func TestUpdate(t *testing.T) {
	c, clock := newTestCore(t, "a")
	s := firstSoul(t, c)
	d := s.Dialog().(*ghost.HeadlessDialog)

	c.Boot()
	clock.advance(15 * time.Millisecond)
	c.Update()
	if d.Text.Len() != 0 {
		t.Errorf("stopped Update: got text %q", d.Text.String())
	}

	c.Start()
	start := c.lastClock
	clock.advance(15 * time.Millisecond)
	c.Update()
	if d.Text.String() != "H" {
		t.Errorf("text after first Update: got %q, want H", d.Text.String())
	}
	if got := c.lastClock.Sub(start); got != 15*time.Millisecond {
		t.Errorf("lastClock advanced: got %v", got)
	}

	clock.advance(500 * time.Microsecond)
	c.Update()
	if got := c.lastClock.Sub(start); got != 15*time.Millisecond {
		t.Errorf("sub-millisecond Update: lastClock advanced %v", got)
	}

	for i := 0; i < 40; i++ {
		clock.advance(10 * time.Millisecond)
		c.Update()
	}
	g, _ := c.Ghost(0)
	if g.IsTalking() {
		t.Error("IsTalking: got true after the session ended")
	}
	if d.Text.String() != "Hi" {
		t.Errorf("text: got %q, want Hi", d.Text.String())
	}
}

// TestScreenClientSizeChange 测试屏幕变化后窗口贴底
func TestScreenClientSizeChange(t *testing.T) {
	c, _ := newTestCore(t, "a")
	w := firstSoul(t, c).Window()
	if got := w.Position(); got != image.Pt(1260, 690) {
		t.Fatalf("initial position: got %v", got)
	}

	c.Hide()
	c.ScreenClientSizeChange(image.Pt(800, 600), image.Rect(0, 0, 800, 560))
	if c.State() != StateShow || !c.IsRunning() {
		t.Errorf("state: got %v running %v", c.State(), c.IsRunning())
	}
	if c.ScreenSize() != image.Pt(800, 600) || c.ClientRect() != image.Rect(0, 0, 800, 560) {
		t.Errorf("screen: got %v %v", c.ScreenSize(), c.ClientRect())
	}
	if got := w.Position(); got != image.Pt(1260, 530) {
		t.Errorf("position: got %v, want (1260,530)", got)
	}
}

// TestRun 测试 Run 在 ctx 结束时返回
func TestRun(t *testing.T) {
	cfg := config.DefaultAppConfig()
	cfg.TickInterval = 1
	c := New(Options{Config: cfg})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run: got %v, want DeadlineExceeded", err)
	}
	if !c.IsRunning() {
		t.Error("IsRunning: got false after Run")
	}
}
