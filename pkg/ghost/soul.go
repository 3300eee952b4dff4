package ghost

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sort"

	"github.com/gonewx/kikka/internal/surfaces"
	"github.com/gonewx/kikka/pkg/animation"
	"github.com/gonewx/kikka/pkg/compositor"
	"github.com/gonewx/kikka/pkg/shell"
)

// Soul ghost 中的一个角色
//
// Soul 持有当前 surface、该 surface 的动画集合、布局和窗口。
// 当前 shell 总是通过所属 Ghost 获取。
type Soul struct {
	ID int

	ghost          *Ghost
	defaultSurface int

	surface *surfaces.Surface
	anims   *animation.Set
	layout  compositor.Layout

	// clothes 按类别记录已选择的换装动画
	clothes map[string][]int

	window ShellWindow
	dialog DialogWindow
	touch  touchTracker
}

func newSoul(g *Ghost, id, surface int) *Soul {
	s := &Soul{
		ID:             id,
		ghost:          g,
		defaultSurface: surface,
		anims:          animation.NewSet(nil, animation.Options{}),
		clothes:        make(map[string][]int),
	}
	s.window = g.windows.NewShellWindow(s)
	s.dialog = g.windows.NewDialogWindow(s)
	if g.balloon != nil {
		s.dialog.SetBalloon(g.balloon)
	}

	s.loadClothBind()
	s.applyClothes()
	if err := s.SetSurface(surface); err != nil {
		log.Printf("[Ghost] Warning: soul %d: %v", id, err)
	}
	return s
}

// initialed 恢复窗口位置，没有记录时使用默认位置
func (s *Soul) initialed() {
	if rect, ok := s.ghost.memory.ReadInts("ShellRect", s.ID); ok && len(rect) == 4 {
		s.window.Move(image.Pt(rect[0], rect[1]))
		return
	}
	right := 0
	if prev, ok := s.ghost.souls[s.ID-1]; ok {
		right = prev.Size().X
	}
	s.ResetPosition(true, true, right)
}

// Ghost 返回所属 ghost
func (s *Soul) Ghost() *Ghost {
	return s.ghost
}

// Window 返回角色窗口
func (s *Soul) Window() ShellWindow {
	return s.window
}

// Dialog 返回对话框窗口
func (s *Soul) Dialog() DialogWindow {
	return s.dialog
}

// Show 显示角色窗口
func (s *Soul) Show() {
	s.window.Show()
}

// Hide 隐藏角色窗口和对话框
func (s *Soul) Hide() {
	s.window.Hide()
	s.dialog.Hide()
}

// Surface 返回当前 surface，可能为 nil
func (s *Soul) Surface() *surfaces.Surface {
	return s.surface
}

// SurfaceID 返回当前 surface id，没有时为 -1
func (s *Soul) SurfaceID() int {
	if s.surface == nil {
		return -1
	}
	return s.surface.ID
}

// DefaultSurface 返回默认 surface id
func (s *Soul) DefaultSurface() int {
	return s.defaultSurface
}

// Animations 返回当前 surface 的动画集合
func (s *Soul) Animations() *animation.Set {
	return s.anims
}

// Layout 返回当前布局
func (s *Soul) Layout() compositor.Layout {
	return s.layout
}

// Size 返回窗口大小
func (s *Soul) Size() image.Point {
	if sz := s.window.Size(); sz != (image.Point{}) {
		return sz
	}
	return s.layout.Size
}

// SetSurface 切换 surface
//
// id 为 -1 时重新加载当前 surface（还没有时使用默认 surface）；
// 与当前 surface 相同时什么都不做。id 是别名时随机选择一个候选；
// 找不到时退回默认 surface。切换后重建动画、布局并重绘。
//
// 返回：
//   - error: 默认 surface 也不存在时返回 ErrNoSurface，此时 soul 没有 surface
func (s *Soul) SetSurface(id int) error {
	switch {
	case s.surface == nil:
		if id == -1 {
			id = s.defaultSurface
		}
	case id == -1:
		id = s.surface.ID
	case id == s.surface.ID:
		return nil
	}

	g := s.ghost
	sh := g.shell
	if sh == nil {
		return fmt.Errorf("soul %d: %w: no shell", s.ID, ErrNoSurface)
	}

	sf, ok := s.resolve(sh, id)
	if !ok && id != s.defaultSurface {
		log.Printf("[Ghost] get default surface %d", s.defaultSurface)
		sf, ok = sh.Surface(s.defaultSurface)
	}

	var err error
	if !ok {
		log.Printf("[Ghost] Error: setSurface FAIL: %d", id)
		s.surface = nil
		err = fmt.Errorf("soul %d surface %d: %w", s.ID, id, ErrNoSurface)
	} else {
		log.Printf("[Ghost] setSurface: %s", sf)
		s.surface = sf
	}

	s.anims = animation.NewSet(s.surface, animation.Options{
		Rand: g.rand,
		Intn: g.intn,
		Now:  g.now,
		ImageSize: func(sid int) image.Point {
			return g.images.Surface(sid).Bounds().Size()
		},
	})
	s.layout = compositor.ComputeLayout(s.surface, g.images, sh.Offset(s.ID), s.anims.Rect())
	s.Repaint()
	return err
}

func (s *Soul) resolve(sh *shell.Shell, id int) (*surfaces.Surface, bool) {
	rid, ok := sh.ResolveSurface(id, s.ghost.intn)
	if !ok {
		return nil, false
	}
	return sh.Surface(rid)
}

// SetDefaultSurface 切换到默认 surface
func (s *Soul) SetDefaultSurface() {
	if err := s.SetSurface(s.defaultSurface); err != nil {
		log.Printf("[Ghost] Warning: soul %d: %v", s.ID, err)
	}
}

// Tick 推进动画，画面变化时重绘
func (s *Soul) Tick(dt int) bool {
	if !s.anims.Tick(dt) {
		return false
	}
	s.Repaint()
	return true
}

// Image 合成当前画面
func (s *Soul) Image() *image.RGBA {
	sh := s.ghost.shell
	return compositor.ComposeSoul(s.surface, s.ghost.images, s.layout, s.anims, func(aid int) bool {
		return sh != nil && sh.IsBound(s.ID, aid)
	})
}

// Repaint 把当前画面交给窗口
func (s *Soul) Repaint() {
	s.window.SetImage(s.Image())
}

// HitTest 返回窗口坐标 p 处的碰撞区域
func (s *Soul) HitTest(p image.Point) (surfaces.CollisionBox, bool) {
	if s.surface == nil {
		return surfaces.CollisionBox{}, false
	}
	return compositor.HitTest(s.surface.CollisionBoxes, s.layout, p)
}

// Mouse 处理窗口坐标 p 处的鼠标事件
//
// 事件带上碰撞区域名交给 Ghost.HandleEvent；同一区域内连续的同类事件
// 超过一定次数时额外产生 EventMouseTouch。
//
// 返回：
//   - string: 碰撞区域名，不在任何区域内时为 NoneTag
func (s *Soul) Mouse(ev EventType, p image.Point) string {
	box, ok := s.HitTest(p)
	if !ok {
		s.ghost.HandleEvent(Event{Soul: s.ID, Type: ev, Tag: NoneTag})
		return NoneTag
	}

	s.ghost.HandleEvent(Event{Soul: s.ID, Type: ev, Tag: box.Tag})
	if s.touch.track(ev, box.Tag, box.Rect.Dx()*box.Rect.Dy()) {
		s.ghost.HandleEvent(Event{Soul: s.ID, Type: EventMouseTouch, Tag: box.Tag})
	}
	return box.Tag
}

// ResetPosition 摆放窗口
//
// 参数：
//   - useDefault: 使用 shell 的 defaultleft/defaulttop；未设置 left 时靠右，
//     并向左让出 rightOffset
//   - lock: 窗口底部贴在可用区域底部
//   - rightOffset: 右侧已被其他 soul 占用的宽度
func (s *Soul) ResetPosition(useDefault, lock bool, rightOffset int) {
	client := s.ghost.env.ClientRect()
	size := s.Size()

	pos := s.window.Position()
	unsetY := false
	if useDefault {
		st := s.ghost.shell.Setting(s.ID)
		if st.PositionX != nil {
			pos.X = *st.PositionX
		} else {
			pos.X = client.Max.X - size.X - rightOffset
		}
		if st.PositionY != nil {
			pos.Y = *st.PositionY
		} else {
			unsetY = true
		}
	}
	if lock || unsetY {
		pos.Y = client.Max.Y - size.Y
	}

	s.window.Move(pos)
	s.saveRect()
}

func (s *Soul) saveRect() {
	p := s.window.Position()
	sz := s.Size()
	s.ghost.memoryWrite("ShellRect", []int{p.X, p.Y, sz.X, sz.Y}, s.ID)
}

// clothes ################################################################

// Clothes 返回每个类别已选择的换装动画
func (s *Soul) Clothes() map[string][]int {
	out := make(map[string][]int, len(s.clothes))
	for t, ids := range s.clothes {
		out[t] = append([]int(nil), ids...)
	}
	return out
}

// ToggleClothes 选择或取消换装 aid
//
// 已选择时取消（类别为 mustselect 时不能取消）；未选择时选择，
// 类别不是 multiple 时同类别的其他换装被取消。之后重建当前 surface 并保存选择。
//
// 返回：
//   - bool: 选择后的状态
//   - error: 当前 shell 中没有该换装
func (s *Soul) ToggleClothes(aid int) (bool, error) {
	sh := s.ghost.shell
	if sh == nil {
		return false, errors.New("no shell")
	}
	st := sh.Setting(s.ID)
	bg, ok := st.BindGroups[aid]
	if !ok {
		return false, fmt.Errorf("bind group %d not found in shell %s", aid, sh.ID)
	}

	if contains(s.clothes[bg.Type], aid) {
		if st.BindOptions[bg.Type] != shell.BindOptionMustSelect {
			s.takeOff(sh, bg.Type, aid)
		}
	} else {
		s.wear(sh, st, bg)
	}

	if err := s.SetSurface(-1); err != nil {
		log.Printf("[Ghost] Warning: soul %d: %v", s.ID, err)
	}
	s.saveClothBind()
	worn := sh.IsBound(s.ID, aid)
	log.Printf("[Ghost] toggle clothes: %s - %s %v", bg.Type, bg.Title, worn)
	return worn, nil
}

// applyClothes 按当前 shell 的记录（没有记录时按默认值）选择换装
func (s *Soul) applyClothes() {
	sh := s.ghost.shell
	if sh == nil {
		return
	}
	st := sh.Setting(s.ID)
	bound := append([]int(nil), sh.Bind(s.ID)...)
	sh.ClearClothes(s.ID)
	s.clothes = make(map[string][]int)

	var ids []int
	for _, slot := range st.MenuSlots() {
		if aid := st.ClothesMenu[slot]; aid != -1 {
			ids = append(ids, aid)
		}
	}
	if len(ids) == 0 {
		ids = st.GroupIDs()
	}

	for _, aid := range ids {
		bg, ok := st.BindGroups[aid]
		if !ok {
			continue
		}
		if _, ok := s.clothes[bg.Type]; !ok {
			s.clothes[bg.Type] = nil
		}
		if (len(bound) == 0 && bg.Default) || contains(bound, aid) {
			s.wear(sh, st, bg)
		}
	}
}

func (s *Soul) wear(sh *shell.Shell, st *shell.Setting, bg *shell.BindGroup) {
	if st.BindOptions[bg.Type] != shell.BindOptionMultiple {
		for _, other := range s.clothes[bg.Type] {
			sh.SetClothes(s.ID, other, false)
		}
		s.clothes[bg.Type] = nil
	}
	s.clothes[bg.Type] = append(s.clothes[bg.Type], bg.AnimationID)
	sort.Ints(s.clothes[bg.Type])
	sh.SetClothes(s.ID, bg.AnimationID, true)
}

func (s *Soul) takeOff(sh *shell.Shell, typ string, aid int) {
	ids := s.clothes[typ]
	for i, id := range ids {
		if id == aid {
			s.clothes[typ] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	sh.SetClothes(s.ID, aid, false)
}

// saveClothBind 保存所有 shell 上的换装选择
func (s *Soul) saveClothBind() {
	data := make(map[string][]int)
	for _, sh := range s.ghost.shells {
		if ids := sh.Bind(s.ID); len(ids) > 0 {
			data[sh.ID] = ids
		}
	}
	s.ghost.memoryWrite("ClothBind", data, s.ID)
}

// loadClothBind 恢复保存的换装选择
func (s *Soul) loadClothBind() {
	r, ok := s.ghost.memory.Get("ClothBind", s.ID)
	if !ok || !r.IsObject() {
		return
	}
	for name, ids := range r.Map() {
		sh, ok := s.ghost.ShellByName(name)
		if !ok {
			continue
		}
		sh.ClearClothes(s.ID)
		for _, v := range ids.Array() {
			sh.SetClothes(s.ID, int(v.Int()), true)
		}
	}
}

func contains(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
