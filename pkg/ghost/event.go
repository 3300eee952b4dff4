package ghost

import (
	"log"
	"math"
)

// EventType ghost 事件类型
type EventType int

const (
	EventMouseDown EventType = iota
	EventMouseMove
	EventMouseUp
	EventMouseDoubleClick
	EventWheel
	// EventMouseTouch 鼠标在同一个碰撞区域内持续移动（抚摸）
	EventMouseTouch
	EventDialogShow
	EventCustom
)

var eventNames = map[EventType]string{
	EventMouseDown:        "MouseDown",
	EventMouseMove:        "MouseMove",
	EventMouseUp:          "MouseUp",
	EventMouseDoubleClick: "MouseDoubleClick",
	EventWheel:            "Wheel",
	EventMouseTouch:       "MouseTouch",
	EventDialogShow:       "DialogShow",
	EventCustom:           "Custom",
}

// String 返回事件名，Lua 脚本中使用同样的名字
func (e EventType) String() string {
	if n, ok := eventNames[e]; ok {
		return n
	}
	return "Unknown"
}

// ParseEventType 由事件名得到事件类型
func ParseEventType(name string) (EventType, bool) {
	for t, n := range eventNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// NoneTag 鼠标不在任何碰撞区域内时事件的 Tag
const NoneTag = "None"

// Event 一个 ghost 事件
type Event struct {
	Soul int
	Type EventType
	// Tag 碰撞区域名，或自定义事件名
	Tag string
}

// TouchKey 抚摸对话表的键
type TouchKey struct {
	Soul  int
	Event EventType
	Tag   string
	Phase int
}

// touchTracker 把同一区域内连续的鼠标移动转换为 EventMouseTouch
type touchTracker struct {
	event EventType
	tag   string
	ticks int
}

// minTouchTicks 触发抚摸所需的最少连续事件数
const minTouchTicks = 30

// track 记录一次落在区域 tag（面积 area）内的事件，返回是否触发抚摸
func (t *touchTracker) track(event EventType, tag string, area int) bool {
	if t.event == event && t.tag == tag {
		t.ticks++
	} else {
		t.event = event
		t.tag = tag
		t.ticks = 1
	}

	need := math.Max(minTouchTicks, math.Sqrt(float64(area)))
	if float64(t.ticks) > need {
		t.ticks = 0
		return true
	}
	return false
}

// SetTouchTalk 设置抚摸对话
//
// 参数：
//   - key: (soul, 事件, 区域, 阶段)
//   - count: 抚摸次数序号，从 0 开始；实际次数对条目数取模
//   - scripts: 候选脚本，触发时随机选一个
func (g *Ghost) SetTouchTalk(key TouchKey, count int, scripts []string) {
	if count < 0 {
		log.Printf("[Ghost] Warning: invalid touch talk count %d", count)
		return
	}
	entries := g.touchTalk[key]
	for len(entries) <= count {
		entries = append(entries, nil)
	}
	entries[count] = append([]string(nil), scripts...)
	g.touchTalk[key] = entries
}

// SetPhase 设置抚摸对话使用的阶段
func (g *Ghost) SetPhase(phase int) {
	g.phase = phase
}

// Phase 返回当前阶段
func (g *Ghost) Phase() int {
	return g.phase
}

// TouchCount 返回 soul 的区域 tag 被触发抚摸对话的次数
func (g *Ghost) TouchCount(soul int, tag string) int {
	return g.touchCount[touchCountKey{soul, tag}]
}

type touchCountKey struct {
	soul int
	tag  string
}

// touchTalkFor 按事件查找抚摸对话并开始说话，正在进行的对话会被打断
//
// 当前阶段没有条目时退回阶段 0。
//
// 返回：
//   - bool: 是否开始了对话
func (g *Ghost) touchTalkFor(ev Event) bool {
	key := TouchKey{Soul: ev.Soul, Event: ev.Type, Tag: ev.Tag, Phase: g.phase}
	entries, ok := g.touchTalk[key]
	if !ok {
		key.Phase = 0
		if entries, ok = g.touchTalk[key]; !ok {
			return false
		}
	}
	if len(entries) == 0 {
		return false
	}

	ck := touchCountKey{ev.Soul, ev.Tag}
	alts := entries[g.touchCount[ck]%len(entries)]
	if len(alts) == 0 {
		return false
	}
	script := alts[g.intn(len(alts))]
	g.touchCount[ck]++
	return g.Talk(script)
}

// HandleEvent 处理 ghost 事件
//
// 先交给主脚本的 on_event，再查找抚摸对话。
// 双击没有对应的抚摸对话时打开 soul 的主菜单页。
func (g *Ghost) HandleEvent(ev Event) {
	if g.script != nil {
		g.script.onEvent(ev)
	}

	if !g.touchTalkFor(ev) && ev.Type == EventMouseDoubleClick {
		if s, ok := g.Soul(ev.Soul); ok {
			s.dialog.Show(PageMain)
			g.HandleEvent(Event{Soul: ev.Soul, Type: EventDialogShow, Tag: NoneTag})
		}
	}
}
