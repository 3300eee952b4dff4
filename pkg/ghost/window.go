package ghost

import (
	"image"
	"strings"

	"github.com/gonewx/kikka/pkg/balloon"
)

// Page 对话框页面
type Page int

const (
	// PageTalk 显示对话文本
	PageTalk Page = iota
	// PageMain 主菜单页（双击角色打开）
	PageMain
	// PageInput 输入框
	PageInput
)

// ShellWindow 显示一个 soul 的窗口需要提供的能力
//
// 实现方在窗口系统中绘制 SetImage 给出的图像，并把鼠标事件转给 Soul.Mouse。
type ShellWindow interface {
	Show()
	Hide()
	IsVisible() bool
	Move(p image.Point)
	Position() image.Point
	Size() image.Point
	// SetImage 替换窗口内容，窗口大小随图像改变
	SetImage(img *image.RGBA)
}

// DialogWindow 对话框窗口需要提供的能力
type DialogWindow interface {
	Show(page Page)
	Hide()
	IsVisible() bool
	SetBalloon(b *balloon.Balloon)
	// Talk 在说话页追加文本，speed 为每个字的间隔（毫秒）
	Talk(text string, speed int)
	ClearTalk()
	// Choice 在说话页追加一个选项
	Choice(label, id string, index int)
}

// WindowFactory 为 soul 创建窗口
type WindowFactory interface {
	NewShellWindow(s *Soul) ShellWindow
	NewDialogWindow(s *Soul) DialogWindow
}

// Headless 不显示任何东西的窗口工厂，窗口只记录状态
//
// 用于测试和终端工具。
type Headless struct{}

// NewShellWindow 实现 WindowFactory
func (Headless) NewShellWindow(*Soul) ShellWindow { return &HeadlessShell{} }

// NewDialogWindow 实现 WindowFactory
func (Headless) NewDialogWindow(*Soul) DialogWindow { return &HeadlessDialog{} }

// HeadlessShell 记录状态的 ShellWindow
type HeadlessShell struct {
	Visible bool
	Pos     image.Point
	Image   *image.RGBA
}

func (w *HeadlessShell) Show()                 { w.Visible = true }
func (w *HeadlessShell) Hide()                 { w.Visible = false }
func (w *HeadlessShell) IsVisible() bool       { return w.Visible }
func (w *HeadlessShell) Move(p image.Point)    { w.Pos = p }
func (w *HeadlessShell) Position() image.Point { return w.Pos }
func (w *HeadlessShell) SetImage(img *image.RGBA) {
	w.Image = img
}

// Size 返回当前图像大小
func (w *HeadlessShell) Size() image.Point {
	if w.Image == nil {
		return image.Point{}
	}
	return w.Image.Bounds().Size()
}

// HeadlessDialog 记录状态的 DialogWindow
type HeadlessDialog struct {
	Visible bool
	Page    Page
	Balloon *balloon.Balloon
	Text    strings.Builder
	Choices []string
}

func (d *HeadlessDialog) Show(page Page) {
	d.Visible = true
	d.Page = page
}

func (d *HeadlessDialog) Hide()                         { d.Visible = false }
func (d *HeadlessDialog) IsVisible() bool               { return d.Visible }
func (d *HeadlessDialog) SetBalloon(b *balloon.Balloon) { d.Balloon = b }
func (d *HeadlessDialog) Talk(text string, _ int)       { d.Text.WriteString(text) }

func (d *HeadlessDialog) ClearTalk() {
	d.Text.Reset()
	d.Choices = nil
}

func (d *HeadlessDialog) Choice(label, _ string, _ int) {
	d.Choices = append(d.Choices, label)
}
