// Package animation 驱动 surface 动画的运行时状态机
//
// 每个 soul 在切换 surface 时为该 surface 的每个 AnimationData 创建一个
// Runtime，集中保存在 Set 中（按动画 id 索引）。Set.Tick 以固定步长推进
// 所有 Runtime；surface 切换时整个 Set 被替换，旧状态不会泄漏到新 surface。
package animation

import (
	"image"
	"log"
	"time"

	"github.com/gonewx/kikka/internal/surfaces"
)

// State 动画运行状态
type State int

const (
	// Idle 未运行，不显示任何图像
	Idle State = iota
	// Running 正在推进时间轴
	Running
	// Finished 时间轴已走完，保留最后一帧，可被再次启动
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Finished:
		return "Finished"
	}
	return "Unknown"
}

// Frame 当前显示的帧
type Frame struct {
	SurfaceID int
	Offset    image.Point
	Method    surfaces.Method
}

// Runtime 单个动画的运行时状态
type Runtime struct {
	Data *surfaces.AnimationData

	set *Set

	state   State
	elapsed int // 毫秒累加器
	cursor  int // 当前 pattern 下标，-1 表示尚未执行任何 pattern

	frame    Frame
	hasFrame bool

	// bindings[i] 为第 i 个 pattern（控制 pattern）启动的子动画 id，-1 表示无
	bindings  []int
	lastStart time.Time

	rect image.Rectangle
}

func newRuntime(set *Set, data *surfaces.AnimationData) *Runtime {
	r := &Runtime{
		Data:      data,
		set:       set,
		state:     Idle,
		cursor:    -1,
		bindings:  make([]int, len(data.Patterns)),
		lastStart: set.now(),
	}
	for i := range r.bindings {
		r.bindings[i] = -1
	}
	return r
}

// ID 返回动画 id
func (r *Runtime) ID() int {
	return r.Data.ID
}

// State 返回当前状态
func (r *Runtime) State() State {
	return r.state
}

// IsRunning 报告动画是否处于 Running 状态
func (r *Runtime) IsRunning() bool {
	return r.state == Running
}

// IsFinished 报告动画是否未在运行（Idle 或 Finished）
func (r *Runtime) IsFinished() bool {
	return r.state != Running
}

// Elapsed 返回累加器的毫秒数
func (r *Runtime) Elapsed() int {
	return r.elapsed
}

// Cursor 返回当前 pattern 下标
func (r *Runtime) Cursor() int {
	return r.cursor
}

// Frame 返回当前帧；没有帧时第二个返回值为 false
func (r *Runtime) Frame() (Frame, bool) {
	return r.frame, r.hasFrame
}

// Rect 返回所有可显示 pattern 图像的并集（相对 surface 原点）
func (r *Runtime) Rect() image.Rectangle {
	return r.rect
}

// Binding 返回第 i 个 pattern 当前绑定的子动画 id，-1 表示无
func (r *Runtime) Binding(i int) int {
	if i < 0 || i >= len(r.bindings) {
		return -1
	}
	return r.bindings[i]
}

// Start 从头开始播放；正在运行时为空操作
func (r *Runtime) Start() {
	if r.state == Running {
		return
	}
	r.state = Running
	r.elapsed = 0
	r.cursor = -1
	r.lastStart = r.set.now()
}

// Stop 立即停止并清除当前帧，可重复调用
func (r *Runtime) Stop() {
	r.state = Idle
	r.elapsed = 0
	r.cursor = -1
	r.frame = Frame{}
	r.hasFrame = false
	for i := range r.bindings {
		r.bindings[i] = -1
	}
}

// shouldAutoStart 按 interval 策略判断本 tick 是否自动启动
func (r *Runtime) shouldAutoStart(dt int) bool {
	if r.state == Running {
		return false
	}
	switch r.Data.Interval {
	case surfaces.IntervalSometimes:
		return r.set.rand() < 0.0002*float64(dt)
	case surfaces.IntervalRarely:
		return r.set.rand() < 0.0001*float64(dt)
	case surfaces.IntervalRandom:
		return r.set.rand() < r.Data.IntervalValue/100000*float64(dt)
	case surfaces.IntervalPeriodic:
		period := time.Duration(r.Data.IntervalValue * float64(time.Second))
		return r.set.now().Sub(r.lastStart) >= period
	case surfaces.IntervalAlways:
		return true
	}
	// never, talk, bind, yen-e, runonce
	return false
}

// tick 推进 dt 毫秒，返回是否需要重绘
func (r *Runtime) tick(dt int) bool {
	changed := false
	if r.shouldAutoStart(dt) {
		r.Start()
		changed = true
	}
	// 时间轴先于子动画走完时，仍需在子动画结束后停止
	if r.state == Finished && r.allBindingsFinished() {
		r.Stop()
		return true
	}
	if r.state != Running {
		return changed
	}

	patterns := r.Data.Patterns
	r.elapsed += dt
	for r.cursor+1 < len(patterns) && r.elapsed > patterns[r.cursor+1].Time {
		changed = true
		r.cursor++
		p := &patterns[r.cursor]

		if p.IsTerminator() {
			r.Stop()
			return true
		}

		r.elapsed -= p.Time
		r.execute(r.cursor, p)
	}

	if r.cursor+1 >= len(patterns) {
		r.state = Finished
	}

	if r.allBindingsFinished() {
		r.Stop()
		changed = true
	}
	return changed
}

// execute 执行一个 pattern
func (r *Runtime) execute(i int, p *surfaces.Pattern) {
	switch {
	case p.Method.IsStart():
		if len(p.AnimationIDs) == 0 {
			return
		}
		child := p.AnimationIDs[r.set.intn(len(p.AnimationIDs))]
		if r.set.Start(child) {
			r.bindings[i] = child
		}
	case p.Method.IsStop():
		for _, id := range p.AnimationIDs {
			r.set.Stop(id)
		}
		r.bindings[i] = -1
	default:
		r.frame = Frame{SurfaceID: p.SurfaceID, Offset: p.Offset, Method: p.Method}
		r.hasFrame = true
	}
}

// allBindingsFinished 报告是否存在绑定的子动画且全部已结束
// 每个控制 pattern 的绑定独立跟踪；已结束的绑定被清除
func (r *Runtime) allBindingsFinished() bool {
	has := false
	all := true
	for i, child := range r.bindings {
		if child < 0 {
			continue
		}
		has = true
		if c, ok := r.set.Get(child); ok && !c.IsFinished() {
			all = false
			continue
		}
		r.bindings[i] = -1
	}
	return has && all
}

// updateRect 由可显示 pattern 的图像尺寸计算包围矩形
func (r *Runtime) updateRect(size func(surfaceID int) image.Point) {
	r.rect = image.Rectangle{}
	if size == nil {
		return
	}
	for _, p := range r.Data.Patterns {
		if p.IsControl() || p.IsTerminator() {
			continue
		}
		sz := size(p.SurfaceID)
		rc := image.Rectangle{Min: p.Offset, Max: p.Offset.Add(sz)}
		if r.rect.Empty() {
			r.rect = rc
		} else {
			r.rect = r.rect.Union(rc)
		}
	}
}

func logMissing(op string, id int) {
	log.Printf("[Animation] Warning: %s: animation %d not exist", op, id)
}
