package app

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/gonewx/kikka/pkg/ghost"
)

// windowHost 创建并记录所有 soul 的窗口
//
// 所有窗口都画在同一个透明、无边框、置顶的 ebiten 窗口里，
// 每个 shellWindow / dialogWindow 是其中的一块区域。
type windowHost struct {
	shells  []*shellWindow
	dialogs []*dialogWindow
	font    *fontFace
}

var _ ghost.WindowFactory = (*windowHost)(nil)

func newWindowHost(font *fontFace) *windowHost {
	return &windowHost{font: font}
}

// NewShellWindow 实现 ghost.WindowFactory
func (h *windowHost) NewShellWindow(s *ghost.Soul) ghost.ShellWindow {
	w := &shellWindow{soul: s}
	h.shells = append(h.shells, w)
	return w
}

// NewDialogWindow 实现 ghost.WindowFactory
func (h *windowHost) NewDialogWindow(s *ghost.Soul) ghost.DialogWindow {
	d := &dialogWindow{soul: s, font: h.font}
	h.dialogs = append(h.dialogs, d)
	return d
}

// shellAt 返回 p 处最上层的可见 shell 窗口
func (h *windowHost) shellAt(p image.Point) *shellWindow {
	for i := len(h.shells) - 1; i >= 0; i-- {
		w := h.shells[i]
		if w.visible && p.In(w.rect()) {
			return w
		}
	}
	return nil
}

// dialogAt 返回 p 处最上层的可见对话框
func (h *windowHost) dialogAt(p image.Point) *dialogWindow {
	for i := len(h.dialogs) - 1; i >= 0; i-- {
		d := h.dialogs[i]
		if d.visible && p.In(d.rect()) {
			return d
		}
	}
	return nil
}

// shellWindow 显示一个 soul 的画面
type shellWindow struct {
	soul    *ghost.Soul
	visible bool
	pos     image.Point
	size    image.Point

	// pixels 是最近一次合成的画面，在 Draw 时才上传到 img
	pixels *image.RGBA
	dirty  bool
	img    *ebiten.Image
}

var _ ghost.ShellWindow = (*shellWindow)(nil)

func (w *shellWindow) Show()                 { w.visible = true }
func (w *shellWindow) Hide()                 { w.visible = false }
func (w *shellWindow) IsVisible() bool       { return w.visible }
func (w *shellWindow) Move(p image.Point)    { w.pos = p }
func (w *shellWindow) Position() image.Point { return w.pos }
func (w *shellWindow) Size() image.Point     { return w.size }

// SetImage 记录新画面，窗口大小跟随画面大小
func (w *shellWindow) SetImage(img *image.RGBA) {
	if img == nil {
		return
	}
	w.pixels = img
	w.size = img.Bounds().Size()
	w.dirty = true
}

func (w *shellWindow) rect() image.Rectangle {
	return image.Rectangle{Min: w.pos, Max: w.pos.Add(w.size)}
}

// image 返回上传好的 ebiten 图像
func (w *shellWindow) image() *ebiten.Image {
	if w.pixels == nil || w.size.X <= 0 || w.size.Y <= 0 {
		return nil
	}
	w.img, w.dirty = upload(w.img, w.pixels, w.dirty)
	return w.img
}

// upload 把 src 写入 img，大小不同时重新创建 img
func upload(img *ebiten.Image, src *image.RGBA, dirty bool) (*ebiten.Image, bool) {
	size := src.Bounds().Size()
	if img == nil || img.Bounds().Size() != size {
		if img != nil {
			img.Deallocate()
		}
		img = ebiten.NewImage(size.X, size.Y)
		dirty = true
	}
	if dirty {
		img.WritePixels(tightPix(src))
	}
	return img, false
}

// tightPix 返回没有行间填充、从原点开始的像素
func tightPix(src *image.RGBA) []byte {
	b := src.Bounds()
	if b.Min == (image.Point{}) && src.Stride == 4*b.Dx() {
		return src.Pix[:4*b.Dx()*b.Dy()]
	}
	out := make([]byte, 0, 4*b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := src.PixOffset(b.Min.X, y)
		out = append(out, src.Pix[i:i+4*b.Dx()]...)
	}
	return out
}
