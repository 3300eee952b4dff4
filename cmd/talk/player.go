package main

import (
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/gonewx/kikka/pkg/sakura"
)

// player 在终端里播放一段脚本，每个 soul 一块文字区域
type player struct {
	screen tcell.Screen
	interp *sakura.Interpreter
	props  func(key string) (string, bool)

	vars     map[string]string
	texts    map[int]*strings.Builder
	surfaces map[int]int
	choices  []playerChoice
	selected string
	done     bool
}

type playerChoice struct {
	label string
	id    string
}

var (
	_ sakura.Host       = (*player)(nil)
	_ sakura.ChoiceHost = (*player)(nil)
)

func newPlayer(screen tcell.Screen, opts sakura.Options, props func(string) (string, bool)) *player {
	p := &player{
		screen:   screen,
		props:    props,
		vars:     map[string]string{"username": "A.A君", "selfname": "kikka"},
		texts:    make(map[int]*strings.Builder),
		surfaces: make(map[int]int),
	}
	p.interp = sakura.NewInterpreter(p, opts)
	return p
}

func (p *player) text(soul int) *strings.Builder {
	b, ok := p.texts[soul]
	if !ok {
		b = &strings.Builder{}
		p.texts[soul] = b
	}
	return b
}

func (p *player) Talk(soul int, text string) { p.text(soul).WriteString(text) }

func (p *player) ClearTalk() {
	for _, b := range p.texts {
		b.Reset()
	}
	p.choices = nil
}

func (p *player) SetSurface(soul, surface int) {
	p.text(soul)
	p.surfaces[soul] = surface
}

func (p *player) TalkComplete() { p.done = true }

func (p *player) Variable(name string) (string, bool) {
	v, ok := p.vars[name]
	return v, ok
}

func (p *player) Property(key string) (string, bool) {
	if p.props == nil {
		return "", false
	}
	return p.props(key)
}

func (p *player) ScreenSize() image.Point {
	w, h := p.screen.Size()
	return image.Pt(w, h)
}

func (p *player) Choice(_ int, label, id string, _ int) {
	p.choices = append(p.choices, playerChoice{label: label, id: id})
}

// choose 选择第 i 个选项，结束会话
func (p *player) choose(i int) bool {
	if i < 0 || i >= len(p.choices) {
		return false
	}
	p.selected = p.choices[i].id
	p.interp.Cancel()
	return true
}

// draw 画出所有 soul 的文字和选项
func (p *player) draw() {
	s := p.screen
	s.Clear()
	w, h := s.Size()
	bold := tcell.StyleDefault.Bold(true)
	dim := tcell.StyleDefault.Dim(true)

	souls := make([]int, 0, len(p.texts))
	for id := range p.texts {
		souls = append(souls, id)
	}
	sort.Ints(souls)

	y := 0
	for _, id := range souls {
		header := fmt.Sprintf("[soul %d]", id)
		if sid, ok := p.surfaces[id]; ok {
			header = fmt.Sprintf("[soul %d surface %d]", id, sid)
		}
		putText(s, 0, y, header, bold)
		y++
		for _, line := range wrap(p.texts[id].String(), w-2) {
			putText(s, 2, y, line, tcell.StyleDefault)
			y++
		}
		y++
	}
	for i, c := range p.choices {
		putText(s, 2, y, fmt.Sprintf("%d) %s", i+1, c.label), tcell.StyleDefault.Underline(true))
		y++
	}

	status := "q: quit"
	if p.done {
		status = "done. q: quit"
	}
	putText(s, 0, h-1, status, dim)
}

// putText 从 (x, y) 开始写字符串，全角字符占两列，超出右边界的部分丢弃
func putText(scr tcell.Screen, x, y int, s string, st tcell.Style) {
	sw, _ := scr.Size()
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if x+rw > sw {
			break
		}
		scr.SetContent(x, y, r, nil, st)
		x += rw
	}
}

// wrap 按显示宽度折行
func wrap(s string, cols int) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		for cols > 0 && runewidth.StringWidth(para) > cols {
			head := runewidth.Truncate(para, cols, "")
			if head == "" {
				break
			}
			lines = append(lines, head)
			para = para[len(head):]
		}
		lines = append(lines, para)
	}
	return lines
}
