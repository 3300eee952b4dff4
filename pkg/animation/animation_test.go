package animation

import (
	"image"
	"testing"
	"time"

	"github.com/gonewx/kikka/internal/surfaces"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Set(ms int) { c.t = time.Unix(0, 0).Add(time.Duration(ms) * time.Millisecond) }

func paint(id, surface, ms int) surfaces.Pattern {
	return surfaces.Pattern{ID: id, Method: surfaces.MethodOverlay, SurfaceID: surface, Time: ms}
}

func control(id int, m surfaces.Method, ms int, ids ...int) surfaces.Pattern {
	return surfaces.Pattern{ID: id, Method: m, SurfaceID: -1, Time: ms, AnimationIDs: ids}
}

func surfaceWith(anims ...*surfaces.AnimationData) *surfaces.Surface {
	return &surfaces.Surface{ID: 0, Animations: anims}
}

func newTestSet(s *surfaces.Surface, clock *fakeClock, r float64, pick int) *Set {
	if clock == nil {
		clock = &fakeClock{}
		clock.Set(0)
	}
	return NewSet(s, Options{
		Rand: func() float64 { return r },
		Intn: func(n int) int { return pick % n },
		Now:  clock.Now,
	})
}

// TestTimeline 测试 pattern 按顺序各执行一次，并在累计超过终止时间时停止
func TestTimeline(t *testing.T) {
	data := &surfaces.AnimationData{
		ID:       0,
		Interval: surfaces.IntervalNever,
		Patterns: []surfaces.Pattern{
			paint(0, 100, 0),
			paint(1, 101, 100),
			paint(2, 102, 250),
			paint(3, surfaces.TerminatorSurface, 400),
		},
	}
	set := newTestSet(surfaceWith(data), nil, 1, 0)
	set.Start(0)
	r, _ := set.Get(0)

	type visit struct{ tick, surface int }
	var visits []visit
	last := -1
	stoppedAt := 0
	for tick := 1; tick <= 30; tick++ {
		set.Tick(50)
		if f, ok := r.Frame(); ok && f.SurfaceID != last {
			visits = append(visits, visit{tick, f.SurfaceID})
			last = f.SurfaceID
		}
		if r.State() == Idle {
			stoppedAt = tick
			break
		}
	}

	want := []visit{{1, 100}, {3, 101}, {8, 102}}
	if len(visits) != len(want) {
		t.Fatalf("visits: got %v, want %v", visits, want)
	}
	for i := range want {
		if visits[i] != want[i] {
			t.Errorf("visit %d: got %+v, want %+v", i, visits[i], want[i])
		}
	}
	if stoppedAt != 16 {
		t.Errorf("stopped at tick %d, want 16", stoppedAt)
	}
	if r.Elapsed() != 0 {
		t.Errorf("elapsed after terminator: got %d, want 0", r.Elapsed())
	}
}

// TestStopIdempotent 测试重复 Stop 的状态一致
func TestStopIdempotent(t *testing.T) {
	data := &surfaces.AnimationData{
		ID:       3,
		Interval: surfaces.IntervalNever,
		Patterns: []surfaces.Pattern{paint(0, 10, 0), paint(1, 11, 1000)},
	}
	set := newTestSet(surfaceWith(data), nil, 1, 0)
	set.Start(3)
	set.Tick(10)
	r, _ := set.Get(3)
	if _, ok := r.Frame(); !ok {
		t.Fatal("expected a frame after first tick")
	}

	r.Stop()
	first := *r
	r.Stop()

	if r.State() != Idle || r.Elapsed() != 0 || r.Cursor() != -1 {
		t.Errorf("after Stop: state=%v elapsed=%d cursor=%d", r.State(), r.Elapsed(), r.Cursor())
	}
	if _, ok := r.Frame(); ok {
		t.Error("after Stop: frame should be cleared")
	}
	if r.state != first.state || r.elapsed != first.elapsed || r.cursor != first.cursor || r.hasFrame != first.hasFrame {
		t.Error("second Stop changed state")
	}
}

// TestFinishedKeepsLastFrame 测试无终止 pattern 的动画保留最后一帧
func TestFinishedKeepsLastFrame(t *testing.T) {
	data := &surfaces.AnimationData{
		ID:       1,
		Interval: surfaces.IntervalNever,
		Patterns: []surfaces.Pattern{paint(0, 10, 0), paint(1, 11, 20)},
	}
	set := newTestSet(surfaceWith(data), nil, 1, 0)
	set.Start(1)
	for i := 0; i < 5; i++ {
		set.Tick(10)
	}
	r, _ := set.Get(1)
	if r.State() != Finished {
		t.Fatalf("state: got %v, want Finished", r.State())
	}
	if f, ok := r.Frame(); !ok || f.SurfaceID != 11 {
		t.Errorf("frame: got %+v,%v want surface 11", f, ok)
	}

	set.Start(1)
	if r.State() != Running || r.Cursor() != -1 {
		t.Errorf("restart from Finished: state=%v cursor=%d", r.State(), r.Cursor())
	}
}

// TestAutoStartPolicies 测试各 interval 的自动启动策略
func TestAutoStartPolicies(t *testing.T) {
	long := []surfaces.Pattern{paint(0, 1, 0), paint(1, 2, 100000)}

	tests := []struct {
		interval surfaces.Interval
		value    float64
		rand     float64
		want     bool
	}{
		{surfaces.IntervalSometimes, 0, 0.0019, true},
		{surfaces.IntervalSometimes, 0, 0.0021, false},
		{surfaces.IntervalRarely, 0, 0.0009, true},
		{surfaces.IntervalRarely, 0, 0.0011, false},
		{surfaces.IntervalRandom, 50, 0.0049, true},
		{surfaces.IntervalRandom, 50, 0.0051, false},
		{surfaces.IntervalAlways, 0, 0.99, true},
		{surfaces.IntervalNever, 0, 0, false},
		{surfaces.IntervalTalk, 0, 0, false},
		{surfaces.IntervalBind, 0, 0, false},
		{surfaces.IntervalYenE, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.interval), func(t *testing.T) {
			data := &surfaces.AnimationData{ID: 0, Interval: tt.interval, IntervalValue: tt.value, Patterns: long}
			set := newTestSet(surfaceWith(data), nil, tt.rand, 0)
			set.Tick(10)
			r, _ := set.Get(0)
			if r.IsRunning() != tt.want {
				t.Errorf("%s rand=%v: running=%v, want %v", tt.interval, tt.rand, r.IsRunning(), tt.want)
			}
		})
	}
}

// TestRunOnceStartsAtConstruction 测试 runonce 在创建时启动
func TestRunOnceStartsAtConstruction(t *testing.T) {
	data := &surfaces.AnimationData{
		ID:       0,
		Interval: surfaces.IntervalRunOnce,
		Patterns: []surfaces.Pattern{paint(0, 1, 0), paint(1, surfaces.TerminatorSurface, 10)},
	}
	set := newTestSet(surfaceWith(data), nil, 0, 0)
	r, _ := set.Get(0)
	if !r.IsRunning() {
		t.Fatal("runonce should be running after construction")
	}
	set.Tick(10)
	set.Tick(10)
	if r.State() != Idle {
		t.Errorf("runonce after terminator: got %v, want Idle", r.State())
	}
	for i := 0; i < 10; i++ {
		set.Tick(10)
	}
	if r.IsRunning() {
		t.Error("runonce must not restart")
	}
}

// TestPeriodic 测试 periodic,2.0 在 1900ms 不重启、2000ms 重启
func TestPeriodic(t *testing.T) {
	clock := &fakeClock{}
	clock.Set(0)
	data := &surfaces.AnimationData{
		ID:            0,
		Interval:      surfaces.IntervalPeriodic,
		IntervalValue: 2.0,
		Patterns:      []surfaces.Pattern{paint(0, 1, 0), paint(1, 2, 100000)},
	}
	set := newTestSet(surfaceWith(data), clock, 1, 0)
	r, _ := set.Get(0)

	set.Start(0)
	clock.Set(500)
	r.Stop()

	clock.Set(1900)
	set.Tick(10)
	if r.IsRunning() {
		t.Fatal("periodic restarted at 1900ms")
	}

	clock.Set(2000)
	set.Tick(10)
	if !r.IsRunning() {
		t.Fatal("periodic did not restart at 2000ms")
	}
}

// TestWrapperStopsWithChildren 测试控制动画在子动画结束后被强制停止
func TestWrapperStopsWithChildren(t *testing.T) {
	wrapper := &surfaces.AnimationData{
		ID:       0,
		Interval: surfaces.IntervalNever,
		Patterns: []surfaces.Pattern{
			control(0, surfaces.MethodStart, 0, 1),
			paint(1, 5, 10000),
		},
	}
	child := &surfaces.AnimationData{
		ID:       1,
		Interval: surfaces.IntervalNever,
		Patterns: []surfaces.Pattern{paint(0, 7, 0), paint(1, surfaces.TerminatorSurface, 50)},
	}
	set := newTestSet(surfaceWith(wrapper, child), nil, 1, 0)
	set.Start(0)
	w, _ := set.Get(0)
	c, _ := set.Get(1)

	set.Tick(10)
	if !c.IsRunning() || w.Binding(0) != 1 {
		t.Fatalf("after first tick: child running=%v binding=%d", c.IsRunning(), w.Binding(0))
	}
	if _, ok := w.Frame(); ok {
		t.Error("control pattern must not display a frame")
	}

	for i := 0; i < 5; i++ {
		set.Tick(10)
	}
	if c.IsRunning() {
		t.Fatal("child should have terminated")
	}
	if !w.IsRunning() {
		t.Fatal("wrapper stops on the tick after the child ends")
	}

	set.Tick(10)
	if w.State() != Idle {
		t.Errorf("wrapper: got %v, want Idle", w.State())
	}
	if w.Binding(0) != -1 {
		t.Errorf("binding: got %d, want -1", w.Binding(0))
	}
}

// TestFinishedWrapperStopsWithChildren 测试时间轴已走完的包装动画在子动画结束后停止
func TestFinishedWrapperStopsWithChildren(t *testing.T) {
	wrapper := &surfaces.AnimationData{
		ID:       0,
		Interval: surfaces.IntervalNever,
		Patterns: []surfaces.Pattern{control(0, surfaces.MethodStart, 0, 1)},
	}
	child := &surfaces.AnimationData{
		ID:       1,
		Interval: surfaces.IntervalNever,
		Patterns: []surfaces.Pattern{paint(0, 7, 0), paint(1, surfaces.TerminatorSurface, 50)},
	}
	set := newTestSet(surfaceWith(wrapper, child), nil, 1, 0)
	set.Start(0)
	w, _ := set.Get(0)
	c, _ := set.Get(1)

	set.Tick(10)
	if w.State() != Finished || w.Binding(0) != 1 {
		t.Fatalf("after first tick: got %v binding %d, want Finished binding 1", w.State(), w.Binding(0))
	}

	for i := 0; i < 5; i++ {
		set.Tick(10)
	}
	if c.IsRunning() {
		t.Fatal("child should have terminated")
	}

	if !set.Tick(10) {
		t.Error("stopping the wrapper must report a change")
	}
	if w.State() != Idle {
		t.Errorf("wrapper: got %v, want Idle", w.State())
	}
	if w.Binding(0) != -1 {
		t.Errorf("binding: got %d, want -1", w.Binding(0))
	}
}

// TestStopPattern 测试 stop 控制 pattern 停止绑定的动画
func TestStopPattern(t *testing.T) {
	wrapper := &surfaces.AnimationData{
		ID:       0,
		Interval: surfaces.IntervalNever,
		Patterns: []surfaces.Pattern{
			control(0, surfaces.MethodAlternativeStart, 0, 1, 2),
			control(1, surfaces.MethodAlternativeStop, 20, 1, 2),
			paint(2, 9, 10000),
		},
	}
	long := []surfaces.Pattern{paint(0, 3, 0), paint(1, 4, 100000)}
	c1 := &surfaces.AnimationData{ID: 1, Interval: surfaces.IntervalNever, Patterns: long}
	c2 := &surfaces.AnimationData{ID: 2, Interval: surfaces.IntervalNever, Patterns: long}

	set := newTestSet(surfaceWith(wrapper, c1, c2), nil, 1, 1)
	set.Start(0)
	set.Tick(10)

	w, _ := set.Get(0)
	second, _ := set.Get(2)
	if w.Binding(0) != 2 || !second.IsRunning() {
		t.Fatalf("alternativestart should pick id 2: binding=%d running=%v", w.Binding(0), second.IsRunning())
	}

	set.Tick(30)
	if second.IsRunning() {
		t.Error("alternativestop should stop child 2")
	}
	if w.Binding(0) != -1 || w.Binding(1) != -1 {
		t.Errorf("bindings: got %d,%d", w.Binding(0), w.Binding(1))
	}
}

// TestRectAndTrigger 测试包围矩形和外部触发
func TestRectAndTrigger(t *testing.T) {
	data := &surfaces.AnimationData{
		ID:       4,
		Interval: surfaces.IntervalTalk,
		Patterns: []surfaces.Pattern{
			{ID: 0, Method: surfaces.MethodOverlay, SurfaceID: 1, Offset: image.Pt(10, 10)},
			{ID: 1, Method: surfaces.MethodOverlay, SurfaceID: 2, Offset: image.Pt(-5, 0), Time: 10},
			{ID: 2, Method: surfaces.MethodOverlay, SurfaceID: -1, Time: 10},
		},
	}
	set := NewSet(surfaceWith(data), Options{
		ImageSize: func(id int) image.Point { return image.Pt(20, 30) },
	})

	want := image.Rect(-5, 0, 30, 40)
	if got := set.Rect(); got != want {
		t.Errorf("Rect: got %v, want %v", got, want)
	}

	if !set.Trigger(surfaces.IntervalTalk) {
		t.Error("Trigger(talk) should start animation 4")
	}
	if got := set.Running(); len(got) != 1 || got[0] != 4 {
		t.Errorf("Running: got %v", got)
	}
	if set.Trigger(surfaces.IntervalYenE) {
		t.Error("Trigger(yen-e) should start nothing")
	}
	if set.Start(99) || set.Stop(99) {
		t.Error("Start/Stop of missing animation should report false")
	}
}
