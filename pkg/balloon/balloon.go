// Package balloon 加载对话气泡（balloon）皮肤
//
// 气泡皮肤由 descript.txt 和 background.png 组成。
// descript.txt 中的 clip.width / clip.height 把背景图切成 3x3（九宫格）
// 或 5x5 的网格，绘制时边角保持原尺寸，中间格子拉伸到目标大小。
package balloon

import (
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/gonewx/kikka/internal/descript"
	"github.com/gonewx/kikka/pkg/resource"
	"github.com/gonewx/kikka/pkg/shell"
)

// ErrNoDescript 气泡目录缺少 descript.txt
var ErrNoDescript = errors.New("descript.txt not found")

// BackgroundImage 气泡背景图文件名
const BackgroundImage = "background.png"

// 默认值
var (
	DefaultMinimumSize = image.Pt(200, 80)
	DefaultMargin      = [4]int{10, 10, 10, 10}
)

// Balloon 气泡皮肤
type Balloon struct {
	Loader *resource.Loader

	ID     string // 内部名（name 键，缺省为目录名）
	Name   string // 显示名（unicode_name 键）
	Type   string
	Author shell.Author

	// ClipWidth / ClipHeight 长度为 3 或 5，其余长度视为未设置
	ClipWidth  []int
	ClipHeight []int

	MinimumSize    image.Point
	Margin         [4]int // 左、上、右、下
	FlipBackground bool   // 气泡翻转到另一侧时是否水平镜像背景
	NoFlipCenter   bool   // 镜像时中心格子保持原样（仅 5x5 网格）

	background image.Image
	source     [][]image.Rectangle
	loaded     bool
}

// New 读取 descript.txt 创建气泡（不加载图片）
//
// 参数：
//   - l: 气泡资源（目录或 zip）
//
// 返回：
//   - *Balloon: 气泡实例
//   - error: 缺少 descript.txt 或整数字段格式错误时返回错误
func New(l *resource.Loader) (*Balloon, error) {
	b := &Balloon{
		Loader:      l,
		MinimumSize: DefaultMinimumSize,
		Margin:      DefaultMargin,
	}

	data, err := l.ReadFile("descript.txt")
	if err != nil {
		if resource.IsNotExist(err) {
			return nil, fmt.Errorf("balloon %s: %w", l.Root(), ErrNoDescript)
		}
		return nil, fmt.Errorf("failed to read balloon descript %s: %w", l.Root(), err)
	}
	if err := b.applyDescript(descript.ParseBytes(data)); err != nil {
		return nil, fmt.Errorf("balloon %s: %w", l.Root(), err)
	}

	if b.ID == "" {
		b.ID = l.Name()
	}
	if b.Name == "" {
		b.Name = b.ID
	}
	return b, nil
}

func (b *Balloon) applyDescript(d *descript.Descript) error {
	for _, e := range d.Entries() {
		key := descript.SplitKey(e.Key)
		value := descript.SplitValue(e.Value)

		switch key[0] {
		case "clip":
			clip, err := parseClip(e.Key, value)
			if err != nil {
				return err
			}
			switch descript.Field(key, 1) {
			case "width":
				b.ClipWidth = clip
			case "height":
				b.ClipHeight = clip
			default:
				ignoreKey(e.Key, e.Value)
			}
		case "minimumsize":
			n, err := descript.Ints(e.Key, value)
			if err != nil {
				return err
			}
			if len(n) >= 2 {
				b.MinimumSize = image.Pt(n[0], n[1])
			}
		case "flipbackground":
			n, err := descript.Atoi(e.Key, value[0])
			if err != nil {
				return err
			}
			b.FlipBackground = n == 1
		case "noflipcenter":
			n, err := descript.Atoi(e.Key, value[0])
			if err != nil {
				return err
			}
			b.NoFlipCenter = n == 1
		case "margin":
			n, err := descript.Ints(e.Key, value)
			if err != nil {
				return err
			}
			if len(n) >= 4 {
				copy(b.Margin[:], n[:4])
			}
		case "name":
			b.ID = value[0]
		case "unicode_name":
			b.Name = value[0]
		case "type":
			b.Type = value[0]
		case "craftman", "craftmanw":
			b.Author.Name = value[0]
		case "craftmanurl", "crafmanurl":
			b.Author.Website = value[0]
		case "homeurl":
			b.Author.UpdateURL = value[0]
		case "readme":
			b.Author.Readme = value[0]
		case "charset":
		default:
			ignoreKey(e.Key, e.Value)
		}
	}
	return nil
}

// parseClip 解析 "3,a,b,c" 或 "5,a,b,c,d,e"，数量不符时返回 nil
func parseClip(key string, value []string) ([]int, error) {
	n, err := descript.Ints(key, value)
	if err != nil {
		return nil, err
	}
	if len(n) == 0 || (n[0] != 3 && n[0] != 5) || len(n) != n[0]+1 {
		log.Printf("[Balloon] Warning: invalid %s: %v", key, value)
		return nil, nil
	}
	return n[1:], nil
}

func ignoreKey(key, value string) {
	log.Printf("[Balloon] unknown descript key: %s,%s", key, value)
}

// Load 加载背景图并计算源网格，重复调用无副作用
func (b *Balloon) Load() error {
	if b.loaded {
		return nil
	}
	log.Printf("[Balloon] Loading balloon: %s", b.Name)

	img, err := b.Loader.ReadImage(BackgroundImage)
	if err != nil {
		return fmt.Errorf("failed to load balloon background %s: %w", b.ID, err)
	}
	b.background = img
	size := img.Bounds().Size()
	b.source = Grid(sourceCuts(b.ClipWidth, size.X), sourceCuts(b.ClipHeight, size.Y))
	b.loaded = true
	return nil
}

// Background 返回背景图，未加载时为 nil
func (b *Balloon) Background() image.Image {
	return b.background
}

// SourceGrid 返回背景图上的切片矩形 [行][列]
func (b *Balloon) SourceGrid() [][]image.Rectangle {
	return b.source
}

// DestGrid 计算目标尺寸下的目标矩形 [行][列]
func (b *Balloon) DestGrid(size image.Point) [][]image.Rectangle {
	return Grid(Split(b.ClipWidth, size.X), Split(b.ClipHeight, size.Y))
}

// Split 按切片宽度分配 total 像素
//
// 3 段：两端保持原宽，中间得到剩余部分。
// 5 段：第 0、2、4 段保持原宽，剩余部分由第 1、3 段平分，奇数时多出的 1 像素给第 1 段。
// 其他长度：平均分为 3 段，余数给中间段。
// total 小于固定段之和时中间段为 0。
func Split(clip []int, total int) []int {
	switch len(clip) {
	case 3:
		return []int{clip[0], max(total-clip[0]-clip[2], 0), clip[2]}
	case 5:
		rest := max(total-clip[0]-clip[2]-clip[4], 0)
		second := rest / 2
		return []int{clip[0], rest - second, clip[2], second, clip[4]}
	}
	third := total / 3
	return []int{third, total - third*2, third}
}

// sourceCuts 返回背景图上的切片宽度：有效的 3 段或 5 段按声明的宽度切，
// 否则把 total 平均分为 3 段
func sourceCuts(clip []int, total int) []int {
	if len(clip) == 3 || len(clip) == 5 {
		return append([]int(nil), clip...)
	}
	return Split(clip, total)
}

// Grid 由列宽和行高生成矩形网格 [行][列]
func Grid(cols, rows []int) [][]image.Rectangle {
	out := make([][]image.Rectangle, len(rows))
	y := 0
	for r, h := range rows {
		out[r] = make([]image.Rectangle, len(cols))
		x := 0
		for c, w := range cols {
			out[r][c] = image.Rect(x, y, x+w, y+h)
			x += w
		}
		y += h
	}
	return out
}

// Scan 扫描目录下的所有气泡（子目录和 zip 文件），同名气泡只保留第一个
func Scan(dir string) ([]*Balloon, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read balloon directory %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []*Balloon
	seen := make(map[string]bool)
	for _, e := range entries {
		if !e.IsDir() && !resource.IsZip(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		l, err := resource.Open(p)
		if err != nil {
			log.Printf("[Balloon] Warning: skip %s: %v", p, err)
			continue
		}
		b, err := New(l)
		if err != nil {
			log.Printf("[Balloon] Warning: skip %s: %v", p, err)
			l.Close()
			continue
		}
		if seen[b.ID] {
			log.Printf("[Balloon] Warning: duplicate balloon %s in %s skipped", b.ID, p)
			l.Close()
			continue
		}
		seen[b.ID] = true
		out = append(out, b)
	}
	return out, nil
}
