package compositor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gonewx/kikka/internal/surfaces"
	"github.com/gonewx/kikka/pkg/animation"
	"github.com/gonewx/kikka/pkg/balloon"
	"github.com/gonewx/kikka/pkg/resource"
)

var (
	red         = color.RGBA{255, 0, 0, 255}
	blue        = color.RGBA{0, 0, 255, 255}
	green       = color.RGBA{0, 255, 0, 255}
	transparent = color.RGBA{}
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func rgba(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

// fakeImages 内存中的图像源
type fakeImages struct {
	elements map[string]image.Image
	surfaces map[int]image.Image
}

func (f *fakeImages) Element(name string) (image.Image, bool) {
	img, ok := f.elements[name]
	return img, ok
}

func (f *fakeImages) Surface(id int) image.Image {
	if img, ok := f.surfaces[id]; ok {
		return img
	}
	return DefaultImage()
}

// TestModeFor 测试 paint type 到合成模式的映射表
func TestModeFor(t *testing.T) {
	tests := []struct {
		method surfaces.Method
		want   Mode
	}{
		{surfaces.MethodBase, SourceOver},
		{surfaces.MethodOverlay, SourceOver},
		{surfaces.MethodOverlayFast, SourceAtop},
		{surfaces.MethodReplace, Source},
		{surfaces.MethodInterpolate, DestinationOver},
		{surfaces.MethodAsis, DestinationAtop},
		{surfaces.MethodMove, SourceOver},
		{surfaces.Method("unknown"), SourceOver},
	}
	for _, tt := range tests {
		if got := ModeFor(tt.method); got != tt.want {
			t.Errorf("ModeFor(%q): got %v, want %v", tt.method, got, tt.want)
		}
	}
}

// TestBlitModes 测试各合成模式在不透明/透明目标上的结果
func TestBlitModes(t *testing.T) {
	tests := []struct {
		name string
		dst  color.RGBA
		src  color.RGBA
		mode Mode
		want color.RGBA
	}{
		{"over opaque", red, blue, SourceOver, blue},
		{"over transparent source", red, transparent, SourceOver, red},
		{"source overwrites", red, transparent, Source, transparent},
		{"atop on opaque", red, blue, SourceAtop, blue},
		{"atop on transparent", transparent, blue, SourceAtop, transparent},
		{"dest-over on opaque", red, blue, DestinationOver, red},
		{"dest-over on transparent", transparent, blue, DestinationOver, blue},
		{"dest-atop opaque both", red, blue, DestinationAtop, red},
		{"dest-atop on transparent", transparent, blue, DestinationAtop, blue},
		{"dest-atop transparent source", red, transparent, DestinationAtop, transparent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := solid(2, 2, tt.dst)
			Blit(dst, solid(2, 2, tt.src), image.Point{}, tt.mode)
			if got := rgba(dst, 1, 1); got != tt.want {
				t.Errorf("%v: got %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}

// TestBlitClipping 测试源图部分超出画布时只绘制重叠区域
func TestBlitClipping(t *testing.T) {
	dst := solid(4, 4, transparent)
	src := solid(3, 3, blue)
	Blit(dst, src, image.Pt(2, -1), DestinationOver)

	if got := rgba(dst, 3, 0); got != blue {
		t.Errorf("(3,0): got %v, want blue", got)
	}
	if got := rgba(dst, 3, 1); got != blue {
		t.Errorf("(3,1): got %v, want blue", got)
	}
	if got := rgba(dst, 1, 0); got != transparent {
		t.Errorf("(1,0): got %v, want untouched", got)
	}
	if got := rgba(dst, 2, 2); got != transparent {
		t.Errorf("(2,2): got %v, want untouched", got)
	}

	Blit(nil, src, image.Point{}, SourceOver)
	Blit(dst, nil, image.Point{}, SourceOver)
	Blit(dst, src, image.Pt(10, 10), SourceAtop)
}

// TestComputeLayout 测试绘制偏移、画布尺寸和中心点
func TestComputeLayout(t *testing.T) {
	imgs := &fakeImages{elements: map[string]image.Image{
		"body.png": solid(10, 20, red),
		"face.png": solid(10, 10, blue),
	}}
	s := &surfaces.Surface{
		ID: 0,
		Elements: []surfaces.Element{
			{ID: 0, PaintType: surfaces.MethodBase, Filename: "body.png"},
			{ID: 1, PaintType: surfaces.MethodOverlay, Filename: "face.png", Offset: image.Pt(5, 5)},
			{ID: 2, PaintType: surfaces.MethodOverlay, Filename: "missing.png", Offset: image.Pt(100, 100)},
		},
	}

	l := ComputeLayout(s, imgs, image.Pt(3, 0), image.Rect(-2, 0, 5, 5))
	if l.Base != image.Rect(0, 0, 15, 20) {
		t.Errorf("Base: got %v", l.Base)
	}
	if l.DrawOffset != image.Pt(2, 0) {
		t.Errorf("DrawOffset: got %v, want (2,0)", l.DrawOffset)
	}
	if l.Size != image.Pt(17, 20) {
		t.Errorf("Size: got %v, want (17,20)", l.Size)
	}
	if l.Center != image.Pt(8, 20) {
		t.Errorf("Center: got %v, want (8,20)", l.Center)
	}

	x, y := 7, 9
	s.BasePos = surfaces.Anchor{X: &x, Y: &y}
	if l := ComputeLayout(s, imgs, image.Point{}, image.Rectangle{}); l.Center != image.Pt(7, 9) {
		t.Errorf("Center with base pos: got %v", l.Center)
	}

	noElements := &surfaces.Surface{ID: 4}
	imgs.surfaces = map[int]image.Image{4: solid(30, 40, red)}
	if l := ComputeLayout(noElements, imgs, image.Point{}, image.Rectangle{}); l.Size != image.Pt(30, 40) || l.DrawOffset != (image.Point{}) {
		t.Errorf("surface image layout: got %+v", l)
	}

	empty := ComputeLayout(nil, imgs, image.Pt(1, 2), image.Rectangle{})
	if empty.Size != DefaultWindowSize || empty.Center != DefaultWindowCenter || empty.DrawOffset != image.Pt(1, 2) {
		t.Errorf("nil surface layout: got %+v", empty)
	}
}

// TestComputeLayoutFrame 测试元素偏移、shell 偏移与动画范围在同一坐标系下合并
func TestComputeLayoutFrame(t *testing.T) {
	imgs := &fakeImages{
		elements: map[string]image.Image{"body.png": solid(50, 10, red)},
		surfaces: map[int]image.Image{9: solid(20, 10, blue)},
	}

	tests := []struct {
		name        string
		offset      image.Point
		shellOffset image.Point
		animRect    image.Rectangle
		frame       *surfaces.Pattern
		wantOffset  image.Point
		wantSize    image.Point
		checks      []image.Point
	}{
		{
			name:       "元素带偏移",
			offset:     image.Pt(20, 0),
			wantOffset: image.Pt(-20, 0),
			wantSize:   image.Pt(50, 10),
			checks:     []image.Point{{0, 0}, {49, 9}},
		},
		{
			name:        "shell 偏移加动画",
			shellOffset: image.Pt(10, 0),
			animRect:    image.Rect(100, 0, 120, 10),
			frame:       &surfaces.Pattern{Method: surfaces.MethodOverlay, SurfaceID: 9, Offset: image.Pt(100, 0)},
			wantOffset:  image.Point{},
			wantSize:    image.Pt(120, 10),
			checks:      []image.Point{{0, 0}, {49, 9}, {100, 0}, {119, 9}},
		},
		{
			name:        "动画在左侧",
			shellOffset: image.Pt(10, 5),
			animRect:    image.Rect(-20, 0, 0, 10),
			frame:       &surfaces.Pattern{Method: surfaces.MethodOverlay, SurfaceID: 9, Offset: image.Pt(-20, 0)},
			wantOffset:  image.Pt(20, 0),
			wantSize:    image.Pt(70, 10),
			checks:      []image.Point{{0, 0}, {19, 9}, {20, 0}, {69, 9}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &surfaces.Surface{
				ID:       0,
				Elements: []surfaces.Element{{ID: 0, PaintType: surfaces.MethodBase, Filename: "body.png", Offset: tt.offset}},
			}
			var set *animation.Set
			if tt.frame != nil {
				s.Animations = []*surfaces.AnimationData{{
					ID:       1,
					Interval: surfaces.IntervalNever,
					Patterns: []surfaces.Pattern{*tt.frame, {ID: 1, Method: surfaces.MethodOverlay, SurfaceID: 9, Offset: tt.frame.Offset, Time: 100000}},
				}}
				set = animation.NewSet(s, animation.Options{
					Rand: func() float64 { return 1 },
					Now:  func() time.Time { return time.Unix(0, 0) },
				})
				set.Start(1)
				set.Tick(10)
			}

			l := ComputeLayout(s, imgs, tt.shellOffset, tt.animRect)
			if l.DrawOffset != tt.wantOffset {
				t.Errorf("DrawOffset: got %v, want %v", l.DrawOffset, tt.wantOffset)
			}
			if l.Size != tt.wantSize {
				t.Errorf("Size: got %v, want %v", l.Size, tt.wantSize)
			}

			img := ComposeSoul(s, imgs, l, set, nil)
			for _, p := range tt.checks {
				if got := rgba(img, p.X, p.Y); got.A == 0 {
					t.Errorf("pixel %v: got transparent, want opaque", p)
				}
			}
		})
	}
}

// TestComposeSoul 测试基础层、播放帧和已穿戴衣服的绘制
func TestComposeSoul(t *testing.T) {
	imgs := &fakeImages{
		elements: map[string]image.Image{"base.png": solid(4, 4, red)},
		surfaces: map[int]image.Image{
			2: solid(2, 2, blue),
			4: solid(1, 1, green),
		},
	}
	s := &surfaces.Surface{
		ID:       0,
		Elements: []surfaces.Element{{ID: 0, PaintType: surfaces.MethodBase, Filename: "base.png"}},
		Animations: []*surfaces.AnimationData{
			{
				ID:       1,
				Interval: surfaces.IntervalNever,
				Patterns: []surfaces.Pattern{
					{ID: 0, Method: surfaces.MethodOverlay, SurfaceID: 2, Offset: image.Pt(1, 1)},
					{ID: 1, Method: surfaces.MethodOverlay, SurfaceID: 2, Time: 100000},
				},
			},
			{
				ID:       3,
				Interval: surfaces.IntervalBind,
				Patterns: []surfaces.Pattern{
					{ID: 0, Method: surfaces.MethodOverlay, SurfaceID: 4, Offset: image.Pt(3, 3)},
					{ID: 1, Method: surfaces.MethodStart, SurfaceID: -1, AnimationIDs: []int{1}},
				},
			},
		},
	}

	set := animation.NewSet(s, animation.Options{
		Rand: func() float64 { return 1 },
		Now:  func() time.Time { return time.Unix(0, 0) },
	})
	set.Start(1)
	set.Tick(10)

	l := ComputeLayout(s, imgs, image.Point{}, set.Rect())
	img := ComposeSoul(s, imgs, l, set, func(aid int) bool { return aid == 3 })

	checks := []struct {
		x, y int
		want color.RGBA
	}{
		{0, 0, red},
		{1, 1, blue},
		{2, 2, blue},
		{3, 3, green},
		{3, 0, red},
	}
	for _, c := range checks {
		if got := rgba(img, c.x, c.y); got != c.want {
			t.Errorf("pixel (%d,%d): got %v, want %v", c.x, c.y, got, c.want)
		}
	}

	plain := ComposeSoul(s, imgs, l, set, nil)
	if got := rgba(plain, 3, 3); got != red {
		t.Errorf("unbound clothing drawn: got %v", got)
	}

	set.Stop(1)
	stopped := ComposeSoul(s, imgs, l, set, nil)
	if got := rgba(stopped, 1, 1); got != red {
		t.Errorf("stopped animation drawn: got %v", got)
	}
}

// TestHitTest 测试碰撞框命中顺序及绘制偏移
func TestHitTest(t *testing.T) {
	boxes := []surfaces.CollisionBox{
		{ID: 1, Rect: image.Rect(0, 0, 10, 10), Tag: "Head"},
		{ID: 0, Rect: image.Rect(0, 0, 20, 20), Tag: "Bust"},
	}
	l := Layout{DrawOffset: image.Pt(5, 5)}

	if b, ok := HitTest(boxes, l, image.Pt(6, 6)); !ok || b.Tag != "Head" {
		t.Errorf("HitTest(6,6): got %+v, %v", b, ok)
	}
	if b, ok := HitTest(boxes, l, image.Pt(20, 20)); !ok || b.Tag != "Bust" {
		t.Errorf("HitTest(20,20): got %+v, %v", b, ok)
	}
	if _, ok := HitTest(boxes, l, image.Pt(2, 2)); ok {
		t.Error("HitTest(2,2): expected miss")
	}
}

func newTestBalloon(t *testing.T, desc string, bg image.Image) *balloon.Balloon {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, bg); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	l, err := resource.NewFS("balloon/test", fstest.MapFS{
		"descript.txt":          {Data: []byte(desc)},
		balloon.BackgroundImage: {Data: buf.Bytes()},
	})
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	b, err := balloon.New(l)
	if err != nil {
		t.Fatalf("balloon.New: %v", err)
	}
	if err := b.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return b
}

// halves 左半红、右半蓝的背景
func halves(w, h int) *image.RGBA {
	img := solid(w, h, red)
	for y := 0; y < h; y++ {
		for x := w / 2; x < w; x++ {
			img.Set(x, y, blue)
		}
	}
	return img
}

// TestBalloonImage 测试九宫格拉伸
func TestBalloonImage(t *testing.T) {
	b := newTestBalloon(t, "clip.width,3,10,10,10\nclip.height,3,4,4,4\n", halves(30, 12))

	img := BalloonImage(b, image.Pt(100, 20), false)
	if img.Bounds().Size() != image.Pt(100, 20) {
		t.Fatalf("size: got %v", img.Bounds().Size())
	}
	if got := rgba(img, 0, 0); got != red {
		t.Errorf("top-left: got %v, want red", got)
	}
	if got := rgba(img, 99, 19); got != blue {
		t.Errorf("bottom-right: got %v, want blue", got)
	}

	flipped := BalloonImage(b, image.Pt(100, 20), true)
	if got := rgba(flipped, 0, 0); got != red {
		t.Errorf("flip without flipbackground: got %v, want red", got)
	}

	if got := BalloonImage(nil, image.Pt(10, 10), false).Bounds().Size(); got != image.Pt(1, 1) {
		t.Errorf("nil balloon: got size %v, want 1x1", got)
	}
}

// TestBalloonFlip 测试镜像与 noflipcenter
func TestBalloonFlip(t *testing.T) {
	desc := "clip.width,5,2,2,2,2,2\nclip.height,5,2,2,2,2,2\nflipbackground,1\n"
	b := newTestBalloon(t, desc, halves(10, 10))

	img := BalloonImage(b, image.Pt(10, 10), true)
	if got := rgba(img, 0, 0); got != blue {
		t.Errorf("mirrored left edge: got %v, want blue", got)
	}
	if got := rgba(img, 4, 4); got != blue {
		t.Errorf("mirrored center: got %v, want blue", got)
	}

	b = newTestBalloon(t, desc+"noflipcenter,1\n", halves(10, 10))
	img = BalloonImage(b, image.Pt(10, 10), true)
	if got := rgba(img, 0, 0); got != blue {
		t.Errorf("mirrored left edge: got %v, want blue", got)
	}
	if got := rgba(img, 4, 4); got != red {
		t.Errorf("unflipped center (4,4): got %v, want red", got)
	}
	if got := rgba(img, 5, 4); got != blue {
		t.Errorf("unflipped center (5,4): got %v, want blue", got)
	}
}

// TestMirror 测试水平镜像
func TestMirror(t *testing.T) {
	img := halves(4, 1)
	m := Mirror(img)
	if rgba(m, 0, 0) != blue || rgba(m, 3, 0) != red {
		t.Errorf("Mirror: got %v..%v", rgba(m, 0, 0), rgba(m, 3, 0))
	}
}
