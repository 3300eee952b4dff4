package animation

import (
	"image"
	"math/rand"
	"time"

	"github.com/gonewx/kikka/internal/surfaces"
)

// Options 运行时依赖，测试中可注入确定性的随机数和时钟
type Options struct {
	// Rand 返回 [0,1) 的随机数，默认 math/rand
	Rand func() float64
	// Intn 返回 [0,n) 的随机整数，默认 math/rand
	Intn func(n int) int
	// Now 返回当前时间，默认 time.Now
	Now func() time.Time
	// ImageSize 返回 surface 图像尺寸，用于计算动画包围矩形，可为 nil
	ImageSize func(surfaceID int) image.Point
}

// Set 一个 soul 当前 surface 的全部动画运行时
//
// Runtime 按 surface 的动画排序保存，并按 id 建立索引。
// 控制 pattern 通过 Set 启停兄弟动画。
type Set struct {
	list []*Runtime
	byID map[int]*Runtime

	rand func() float64
	intn func(n int) int
	now  func() time.Time
}

// NewSet 为 surface 的每个动画创建运行时
// runonce 动画在创建时立即启动
//
// 参数：
//   - surface: 当前 surface，可为 nil（得到空集合）
//   - opts: 随机数、时钟和图像尺寸回调
//
// 返回：
//   - *Set: 动画集合
func NewSet(surface *surfaces.Surface, opts Options) *Set {
	s := &Set{
		byID: make(map[int]*Runtime),
		rand: opts.Rand,
		intn: opts.Intn,
		now:  opts.Now,
	}
	if s.rand == nil {
		s.rand = rand.Float64
	}
	if s.intn == nil {
		s.intn = rand.Intn
	}
	if s.now == nil {
		s.now = time.Now
	}
	if surface == nil {
		return s
	}

	for _, data := range surface.Animations {
		r := newRuntime(s, data)
		r.updateRect(opts.ImageSize)
		s.list = append(s.list, r)
		s.byID[data.ID] = r
	}
	for _, r := range s.list {
		if r.Data.Interval == surfaces.IntervalRunOnce {
			r.Start()
		}
	}
	return s
}

// Len 返回动画数量
func (s *Set) Len() int {
	return len(s.list)
}

// All 按绘制顺序返回全部运行时
func (s *Set) All() []*Runtime {
	return s.list
}

// Get 按 id 查找运行时
func (s *Set) Get(id int) (*Runtime, bool) {
	r, ok := s.byID[id]
	return r, ok
}

// Start 启动动画 id，不存在时记录警告并返回 false
func (s *Set) Start(id int) bool {
	r, ok := s.byID[id]
	if !ok {
		logMissing("start", id)
		return false
	}
	r.Start()
	return true
}

// Stop 停止动画 id，不存在时记录警告并返回 false
func (s *Set) Stop(id int) bool {
	r, ok := s.byID[id]
	if !ok {
		logMissing("stop", id)
		return false
	}
	r.Stop()
	return true
}

// StopAll 停止全部动画
func (s *Set) StopAll() {
	for _, r := range s.list {
		r.Stop()
	}
}

// Trigger 启动所有 interval 为 iv 的动画（talk、yen-e 等由外部事件驱动的动画）
// 返回是否启动了任何动画
func (s *Set) Trigger(iv surfaces.Interval) bool {
	started := false
	for _, r := range s.list {
		if r.Data.Interval == iv && !r.IsRunning() {
			r.Start()
			started = true
		}
	}
	return started
}

// Running 返回正在运行的动画 id
func (s *Set) Running() []int {
	var ids []int
	for _, r := range s.list {
		if r.IsRunning() {
			ids = append(ids, r.ID())
		}
	}
	return ids
}

// Tick 推进所有动画 dt 毫秒
//
// 返回：
//   - bool: 任一动画的显示状态发生变化时为 true，调用方应重新合成图像
func (s *Set) Tick(dt int) bool {
	changed := false
	for _, r := range s.list {
		if r.tick(dt) {
			changed = true
		}
	}
	return changed
}

// Rect 返回所有动画包围矩形的并集
func (s *Set) Rect() image.Rectangle {
	var rect image.Rectangle
	for _, r := range s.list {
		rect = rect.Union(r.rect)
	}
	return rect
}
