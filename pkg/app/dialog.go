package app

import (
	"image"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/gonewx/kikka/pkg/balloon"
	"github.com/gonewx/kikka/pkg/ghost"
)

var (
	textColor   = color.RGBA{0x20, 0x20, 0x20, 0xff}
	choiceColor = color.RGBA{0x20, 0x40, 0xc0, 0xff}
)

type choice struct {
	label string
	id    string
}

// dialogWindow 一个 soul 的对话框
type dialogWindow struct {
	soul    *ghost.Soul
	font    *fontFace
	visible bool
	page    ghost.Page
	balloon *balloon.Balloon

	text    strings.Builder
	choices []choice
	input   []rune

	pos  image.Point
	size image.Point
	flip bool

	// 背景缓存
	bgBalloon *balloon.Balloon
	bgSize    image.Point
	bgFlip    bool
	bg        *ebiten.Image
}

var _ ghost.DialogWindow = (*dialogWindow)(nil)

func (d *dialogWindow) Show(page ghost.Page) {
	if page != d.page {
		d.input = d.input[:0]
	}
	d.page = page
	d.visible = true
}

func (d *dialogWindow) Hide()                         { d.visible = false }
func (d *dialogWindow) IsVisible() bool               { return d.visible }
func (d *dialogWindow) SetBalloon(b *balloon.Balloon) { d.balloon = b }
func (d *dialogWindow) Talk(text string, _ int)       { d.text.WriteString(text) }

func (d *dialogWindow) ClearTalk() {
	d.text.Reset()
	d.choices = nil
}

func (d *dialogWindow) Choice(label, id string, _ int) {
	d.choices = append(d.choices, choice{label: label, id: id})
}

func (d *dialogWindow) rect() image.Rectangle {
	return image.Rectangle{Min: d.pos, Max: d.pos.Add(d.size)}
}

// dialogLine 对话框中的一行，action 非空时可以点击
type dialogLine struct {
	text   string
	action func()
}

func (d *dialogWindow) margin() [4]int {
	if b := d.currentBalloon(); b != nil {
		return b.Margin
	}
	return balloon.DefaultMargin
}

func (d *dialogWindow) minimumSize() image.Point {
	if b := d.currentBalloon(); b != nil {
		return b.MinimumSize
	}
	return balloon.DefaultMinimumSize
}

func (d *dialogWindow) currentBalloon() *balloon.Balloon {
	if d.balloon != nil {
		return d.balloon
	}
	return d.soul.Ghost().Balloon()
}

// lines 返回当前页面的内容
func (d *dialogWindow) lines() []dialogLine {
	m := d.margin()
	cols := d.font.columns(d.minimumSize().X - m[0] - m[2])

	var out []dialogLine
	switch d.page {
	case ghost.PageTalk:
		for _, l := range wrapText(d.text.String(), cols) {
			out = append(out, dialogLine{text: l})
		}
		for _, c := range d.choices {
			c := c
			out = append(out, dialogLine{text: "> " + c.label, action: func() { d.choose(c) }})
		}
	case ghost.PageMain:
		for _, item := range mainMenu(d.soul, d) {
			out = append(out, dialogLine{text: item.label, action: item.action})
		}
	case ghost.PageInput:
		out = append(out, dialogLine{text: "Your name:"})
		out = append(out, dialogLine{text: string(d.input) + "_"})
	}
	return out
}

// choose 选择项被点击，以自定义事件通知 ghost
func (d *dialogWindow) choose(c choice) {
	g := d.soul.Ghost()
	d.choices = nil
	g.HandleEvent(ghost.Event{Soul: d.soul.ID, Type: ghost.EventCustom, Tag: c.id})
}

// layout 根据内容和 soul 窗口位置计算对话框位置和大小
func (d *dialogWindow) layout(bounds image.Rectangle, lines int) {
	m := d.margin()
	size := d.minimumSize()
	if h := int(float64(lines)*d.font.line) + m[1] + m[3]; h > size.Y {
		size.Y = h
	}

	shellRect := image.Rectangle{Min: d.soul.Window().Position()}
	shellRect.Max = shellRect.Min.Add(d.soul.Window().Size())
	var offset image.Point
	if sh := d.soul.Ghost().Shell(); sh != nil {
		offset = sh.Setting(d.soul.ID).BalloonOffset
	}
	r, flip := dialogRect(shellRect, size, offset, bounds)
	d.pos, d.size, d.flip = r.Min, size, flip
}

// dialogRect 把大小为 size 的对话框放在 shell 窗口左侧，放不下时放右侧并翻转
//
// 参数：
//   - shell: soul 窗口区域
//   - size: 对话框大小
//   - offset: shell 的 balloon.offsetx/y
//   - bounds: 屏幕可用区域
//
// 返回：
//   - image.Rectangle: 对话框区域
//   - bool: 是否翻转到右侧
func dialogRect(shell image.Rectangle, size, offset image.Point, bounds image.Rectangle) (image.Rectangle, bool) {
	flip := false
	x := shell.Min.X - size.X + offset.X
	if x < bounds.Min.X {
		x = shell.Max.X - offset.X
		flip = true
	}
	y := shell.Min.Y + offset.Y
	if y+size.Y > bounds.Max.Y {
		y = bounds.Max.Y - size.Y
	}
	if y < bounds.Min.Y {
		y = bounds.Min.Y
	}
	return image.Rect(x, y, x+size.X, y+size.Y), flip
}

// background 返回拉伸好的气泡背景
func (d *dialogWindow) background() *ebiten.Image {
	b := d.currentBalloon()
	if b == nil {
		return nil
	}
	if d.bg != nil && d.bgBalloon == b && d.bgSize == d.size && d.bgFlip == d.flip {
		return d.bg
	}
	src := d.soul.Ghost().BalloonImage(d.size, d.flip)
	if src == nil {
		return nil
	}
	d.bg, _ = upload(d.bg, src, true)
	d.bgBalloon, d.bgSize, d.bgFlip = b, d.size, d.flip
	return d.bg
}

// draw 画出对话框
func (d *dialogWindow) draw(screen *ebiten.Image) {
	lines := d.lines()
	d.layout(screen.Bounds(), len(lines))

	if bg := d.background(); bg != nil {
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(d.pos.X), float64(d.pos.Y))
		screen.DrawImage(bg, op)
	}

	m := d.margin()
	for i, l := range lines {
		x := float64(d.pos.X + m[0])
		y := float64(d.pos.Y+m[1]) + float64(i)*d.font.line
		c := textColor
		if l.action != nil {
			c = choiceColor
		}
		d.font.draw(screen, l.text, x, y, c)
	}
}

// click 处理对话框内的点击
func (d *dialogWindow) click(p image.Point) {
	lines := d.lines()
	m := d.margin()
	y := p.Y - d.pos.Y - m[1]
	if y < 0 || d.font.line <= 0 {
		return
	}
	i := int(float64(y) / d.font.line)
	if i < len(lines) && lines[i].action != nil {
		lines[i].action()
	}
}

// typeRunes 输入页接收文字
func (d *dialogWindow) typeRunes(rs []rune) {
	d.input = append(d.input, rs...)
}

func (d *dialogWindow) backspace() {
	if len(d.input) > 0 {
		d.input = d.input[:len(d.input)-1]
	}
}

// submit 输入页确认，设置用户名并关闭对话框
func (d *dialogWindow) submit() {
	name := strings.TrimSpace(string(d.input))
	d.input = d.input[:0]
	d.Hide()
	if name != "" {
		d.soul.Ghost().SetUserName(name)
	}
}
