package balloon

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"reflect"
	"testing"
	"testing/fstest"

	"github.com/gonewx/kikka/pkg/resource"
)

func newTestBalloon(t *testing.T, desc string, bg image.Point) *Balloon {
	t.Helper()
	fsys := fstest.MapFS{"descript.txt": {Data: []byte(desc)}}
	if bg != (image.Point{}) {
		var buf bytes.Buffer
		png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, bg.X, bg.Y)))
		fsys[BackgroundImage] = &fstest.MapFile{Data: buf.Bytes()}
	}
	l, err := resource.NewFS("balloon/default", fsys)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	b, err := New(l)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

// TestSplit 测试 3 段、5 段及回退切分
func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		clip  []int
		total int
		want  []int
	}{
		{"three", []int{10, 5, 20}, 100, []int{10, 70, 20}},
		{"five even", []int{10, 0, 30, 0, 10}, 100, []int{10, 25, 30, 25, 10}},
		{"five odd", []int{10, 0, 30, 0, 11}, 100, []int{10, 25, 30, 24, 11}},
		{"fallback", []int{1, 2}, 100, []int{33, 34, 33}},
		{"fallback nil", nil, 10, []int{3, 4, 3}},
		{"three too small", []int{10, 5, 20}, 25, []int{10, 0, 20}},
		{"five too small", []int{10, 0, 30, 0, 10}, 40, []int{10, 0, 30, 0, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.clip, tt.total)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%v, %d): got %v, want %v", tt.clip, tt.total, got, tt.want)
			}
			for _, v := range got {
				if v < 0 {
					t.Errorf("Split(%v, %d): negative width in %v", tt.clip, tt.total, got)
				}
			}
			fixed := 0
			for i, v := range tt.clip {
				if len(tt.clip) == 3 && i != 1 || len(tt.clip) == 5 && i%2 == 0 {
					fixed += v
				}
			}
			if fixed > tt.total {
				return
			}
			sum := 0
			for _, v := range got {
				sum += v
			}
			if sum != tt.total {
				t.Errorf("Split(%v, %d): sum %d", tt.clip, tt.total, sum)
			}
		})
	}
}

// TestGrid 测试网格矩形相邻且覆盖整个区域
func TestGrid(t *testing.T) {
	g := Grid([]int{2, 3, 4}, []int{5, 6})
	if len(g) != 2 || len(g[0]) != 3 {
		t.Fatalf("Grid shape: got %dx%d", len(g), len(g[0]))
	}
	if g[0][1] != image.Rect(2, 0, 5, 5) {
		t.Errorf("g[0][1]: got %v", g[0][1])
	}
	if g[1][2] != image.Rect(5, 5, 9, 11) {
		t.Errorf("g[1][2]: got %v", g[1][2])
	}
}

// TestSourceGrid 测试源网格按声明的切片宽度切分背景图
func TestSourceGrid(t *testing.T) {
	tests := []struct {
		name    string
		desc    string
		bg      image.Point
		wantRow []image.Rectangle
	}{
		{
			name: "声明宽度小于图像",
			desc: "clip.width,3,10,30,10\nclip.height,3,2,6,2\n",
			bg:   image.Pt(100, 10),
			wantRow: []image.Rectangle{
				image.Rect(0, 0, 10, 2), image.Rect(10, 0, 40, 2), image.Rect(40, 0, 50, 2),
			},
		},
		{
			name: "5 段",
			desc: "clip.width,5,4,6,4,6,4\nclip.height,3,2,6,2\n",
			bg:   image.Pt(100, 10),
			wantRow: []image.Rectangle{
				image.Rect(0, 0, 4, 2), image.Rect(4, 0, 10, 2), image.Rect(10, 0, 14, 2),
				image.Rect(14, 0, 20, 2), image.Rect(20, 0, 24, 2),
			},
		},
		{
			name: "未声明时平均切分",
			desc: "name,x\n",
			bg:   image.Pt(30, 9),
			wantRow: []image.Rectangle{
				image.Rect(0, 0, 10, 3), image.Rect(10, 0, 20, 3), image.Rect(20, 0, 30, 3),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBalloon(t, tt.desc, tt.bg)
			if err := b.Load(); err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := b.SourceGrid()[0]; !reflect.DeepEqual(got, tt.wantRow) {
				t.Errorf("source row: got %v, want %v", got, tt.wantRow)
			}
		})
	}
}

// TestNewDescript 测试 descript.txt 解析
func TestNewDescript(t *testing.T) {
	b := newTestBalloon(t, `charset,UTF-8
name,kikka_balloon
unicode_name,Kikka Balloon
clip.width,5,20,0,40,0,20
clip.height,3,10,0,10
clip.depth,3,1,1,1
minimumsize,120,60
flipbackground,1
noflipcenter,1
margin,1,2,3,4
`, image.Point{})

	if b.ID != "kikka_balloon" || b.Name != "Kikka Balloon" {
		t.Errorf("names: got %q/%q", b.ID, b.Name)
	}
	if !reflect.DeepEqual(b.ClipWidth, []int{20, 0, 40, 0, 20}) {
		t.Errorf("ClipWidth: got %v", b.ClipWidth)
	}
	if !reflect.DeepEqual(b.ClipHeight, []int{10, 0, 10}) {
		t.Errorf("ClipHeight: got %v", b.ClipHeight)
	}
	if b.MinimumSize != image.Pt(120, 60) || b.Margin != [4]int{1, 2, 3, 4} {
		t.Errorf("size/margin: got %v %v", b.MinimumSize, b.Margin)
	}
	if !b.FlipBackground || !b.NoFlipCenter {
		t.Error("flip flags not set")
	}
}

// TestNewInvalidClipFallsBack 测试切片数量错误时回退
func TestNewInvalidClipFallsBack(t *testing.T) {
	b := newTestBalloon(t, "clip.width,4,1,2,3,4\nclip.height,3,1,2\n", image.Point{})
	if b.ClipWidth != nil || b.ClipHeight != nil {
		t.Errorf("invalid clips should be unset: %v %v", b.ClipWidth, b.ClipHeight)
	}
	if b.ID != "default" {
		t.Errorf("ID should default to directory name, got %q", b.ID)
	}
}

// TestNewErrors 测试缺少 descript.txt 和整数格式错误
func TestNewErrors(t *testing.T) {
	l, _ := resource.NewFS("balloon/empty", fstest.MapFS{"x.txt": {}})
	if _, err := New(l); !errors.Is(err, ErrNoDescript) {
		t.Errorf("got %v, want ErrNoDescript", err)
	}

	l, _ = resource.NewFS("balloon/bad", fstest.MapFS{"descript.txt": {Data: []byte("clip.width,3,a,b,c\n")}})
	if _, err := New(l); err == nil {
		t.Error("malformed clip: expected error")
	}
}

// TestLoad 测试加载背景图后生成源网格
func TestLoad(t *testing.T) {
	b := newTestBalloon(t, "clip.width,3,10,5,10\nclip.height,3,4,2,4\n", image.Pt(30, 12))
	if err := b.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	src := b.SourceGrid()
	if src[1][1] != image.Rect(10, 4, 15, 6) {
		t.Errorf("source center: got %v", src[1][1])
	}
	if b.Background() == nil {
		t.Error("Background: got nil")
	}

	dst := b.DestGrid(image.Pt(100, 50))
	if dst[2][2] != image.Rect(90, 46, 100, 50) {
		t.Errorf("dest corner: got %v", dst[2][2])
	}

	missing := newTestBalloon(t, "name,x\n", image.Point{})
	if err := missing.Load(); err == nil {
		t.Error("Load without background: expected error")
	}
}
