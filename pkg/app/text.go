package app

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/mattn/go-runewidth"
	"golang.org/x/image/font/gofont/goregular"
)

// fontFace 对话框使用的字体
type fontFace struct {
	face *text.GoTextFace
	// column 一个半角字符的宽度
	column float64
	line   float64
}

// loadFont 加载字体文件，path 为空时使用内置的 Go Regular
func loadFont(path string, size float64) (*fontFace, error) {
	data := goregular.TTF
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file %s: %w", path, err)
		}
	}

	source, err := text.NewGoTextFaceSource(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create font source for %q: %w", path, err)
	}
	face := &text.GoTextFace{
		Source:    source,
		Size:      size,
		Direction: text.DirectionLeftToRight,
	}
	w, _ := text.Measure("0", face, 0)
	return &fontFace{
		face:   face,
		column: w,
		line:   size * 1.4,
	}, nil
}

// columns 返回宽度 width 像素能放下的半角字符数
func (f *fontFace) columns(width int) int {
	if f.column <= 0 {
		return width
	}
	return int(float64(width) / f.column)
}

// draw 在 (x, y) 画一行文字
func (f *fontFace) draw(dst *ebiten.Image, s string, x, y float64, c color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	text.Draw(dst, s, f.face, op)
}

// wrapText 按显示宽度折行，全角字符占两列
//
// 参数：
//   - s: 文本，\n 强制换行
//   - cols: 每行列数，小于 1 时不折行
//
// 返回：
//   - []string: 各行文本
func wrapText(s string, cols int) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		if cols < 1 {
			lines = append(lines, para)
			continue
		}
		var b strings.Builder
		width := 0
		for _, r := range para {
			rw := runewidth.RuneWidth(r)
			if width+rw > cols && width > 0 {
				lines = append(lines, b.String())
				b.Reset()
				width = 0
			}
			b.WriteRune(r)
			width += rw
		}
		lines = append(lines, b.String())
	}
	return lines
}
