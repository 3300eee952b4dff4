package app

import (
	"image"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/gonewx/kikka/pkg/ghost"
)

// 双击判定
const (
	doubleClickInterval = 500 * time.Millisecond
	doubleClickDistance = 4
)

// clickTracker 把两次相近的按下识别为双击
type clickTracker struct {
	last    time.Time
	lastPos image.Point
	armed   bool
}

// press 记录一次按下，返回是否构成双击
func (c *clickTracker) press(now time.Time, p image.Point) bool {
	d := p.Sub(c.lastPos)
	double := c.armed &&
		now.Sub(c.last) <= doubleClickInterval &&
		d.X*d.X+d.Y*d.Y <= doubleClickDistance*doubleClickDistance
	// 双击之后的下一次按下重新计数
	c.armed = !double
	c.last = now
	c.lastPos = p
	return double
}

// dragState 正在拖动的 shell 窗口
type dragState struct {
	window *shellWindow
	grab   image.Point
	moved  bool
}

// handleInput 把鼠标和键盘输入转换为 ghost 事件
func (a *App) handleInput() {
	x, y := ebiten.CursorPosition()
	p := image.Pt(x, y)
	moved := p != a.cursor
	a.cursor = p

	if a.handleDialogInput(p) {
		return
	}

	if a.drag != nil {
		a.updateDrag(p, moved)
		return
	}

	w := a.windows.shellAt(p)
	if w == nil {
		return
	}
	local := p.Sub(w.pos)

	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		ev := ghost.EventMouseDown
		if a.clicks.press(a.now(), p) {
			ev = ghost.EventMouseDoubleClick
		}
		w.soul.Mouse(ev, local)
		a.drag = &dragState{window: w, grab: local}
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight):
		w.soul.Dialog().Show(ghost.PageMain)
		w.soul.Ghost().HandleEvent(ghost.Event{Soul: w.soul.ID, Type: ghost.EventDialogShow, Tag: ghost.NoneTag})
	case moved:
		w.soul.Mouse(ghost.EventMouseMove, local)
	}

	if _, wy := ebiten.Wheel(); wy != 0 {
		w.soul.Mouse(ghost.EventWheel, local)
	}
}

// updateDrag 拖动 shell 窗口，松开时记录位置
func (a *App) updateDrag(p image.Point, moved bool) {
	d := a.drag
	s := d.window.soul
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		a.drag = nil
		if d.moved {
			s.ResetPosition(false, s.Ghost().IsLockOnTaskBar(), 0)
		}
		s.Mouse(ghost.EventMouseUp, p.Sub(d.window.pos))
		return
	}
	if moved {
		d.window.Move(p.Sub(d.grab))
		d.moved = true
	}
}

// handleDialogInput 处理对话框上的点击和输入页的键盘输入
//
// 返回：
//   - bool: 输入已被对话框处理
func (a *App) handleDialogInput(p image.Point) bool {
	for _, d := range a.windows.dialogs {
		if !d.visible || d.page != ghost.PageInput {
			continue
		}
		a.runes = ebiten.AppendInputChars(a.runes[:0])
		d.typeRunes(a.runes)
		if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
			d.backspace()
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyNumpadEnter) {
			d.submit()
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
			d.Hide()
		}
		break
	}

	if a.drag != nil || !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return false
	}
	d := a.windows.dialogAt(p)
	if d == nil {
		return false
	}
	d.click(p)
	return true
}
