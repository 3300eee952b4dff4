package ghost

import (
	"fmt"
	"log"
	"time"

	"github.com/tidwall/gjson"
	lua "github.com/yuin/gopher-lua"
)

// Script ghost 的 Lua 主脚本
//
// 脚本可以定义以下回调，均为可选：
//
//	on_init()                       创建 soul、设置抚摸对话
//	on_boot() -> script             启动时说的话
//	on_auto_talk() -> script        长时间沉默后说的话
//	on_minute(hour, minute) -> script
//	on_event(soul, event, tag)
//
// 并可以调用 add_soul、talk、set_surface、set_shell、touch_talk 等函数，
// 见 register。
type Script struct {
	name string
	l    *lua.LState
	g    *Ghost
}

func newScript(g *Ghost, name, src string) (*Script, error) {
	l := lua.NewState()
	l.OpenLibs()
	s := &Script{name: name, l: l, g: g}
	s.register()
	if err := l.DoString(src); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to run ghost main script %s: %w", name, err)
	}
	return s, nil
}

func (s *Script) close() {
	s.l.Close()
}

// Data handlers
func strArg(l *lua.LState, argi int) string {
	if !lua.LVCanConvToString(l.Get(argi)) {
		l.RaiseError("\nArgument %v is not a string: %v\n", argi, l.Get(argi))
	}
	return l.ToString(argi)
}

func numArg(l *lua.LState, argi int) int {
	num, ok := l.Get(argi).(lua.LNumber)
	if !ok {
		l.RaiseError("\nArgument %v is not a number: %v\n", argi, l.Get(argi))
	}
	return int(num)
}

func (s *Script) register() {
	g := s.g
	l := s.l

	l.Register("add_soul", func(l *lua.LState) int {
		surface := 0
		if l.GetTop() >= 2 {
			surface = numArg(l, 2)
		}
		if _, err := g.AddSoul(numArg(l, 1), surface); err != nil {
			l.RaiseError("%v", err)
		}
		return 0
	})
	l.Register("talk", func(l *lua.LState) int {
		l.Push(lua.LBool(g.Talk(strArg(l, 1))))
		return 1
	})
	l.Register("is_talking", func(l *lua.LState) int {
		l.Push(lua.LBool(g.IsTalking()))
		return 1
	})
	l.Register("set_surface", func(l *lua.LState) int {
		if err := g.SetSurface(numArg(l, 1), numArg(l, 2)); err != nil {
			log.Printf("[Script] Warning: set_surface: %v", err)
		}
		return 0
	})
	l.Register("set_shell", func(l *lua.LState) int {
		if err := g.ChangeShell(strArg(l, 1)); err != nil {
			log.Printf("[Script] Warning: set_shell: %v", err)
		}
		return 0
	})
	l.Register("shell_name", func(l *lua.LState) int {
		if g.shell == nil {
			l.Push(lua.LString(""))
		} else {
			l.Push(lua.LString(g.shell.ID))
		}
		return 1
	})
	l.Register("shell_names", func(l *lua.LState) int {
		tbl := l.NewTable()
		for _, sh := range g.shells {
			tbl.Append(lua.LString(sh.ID))
		}
		l.Push(tbl)
		return 1
	})
	l.Register("variable", func(l *lua.LState) int {
		if v, ok := g.Variable(strArg(l, 1)); ok {
			l.Push(lua.LString(v))
		} else {
			l.Push(lua.LNil)
		}
		return 1
	})
	l.Register("set_variable", func(l *lua.LState) int {
		g.SetVariable(strArg(l, 1), strArg(l, 2))
		return 0
	})
	l.Register("set_user_name", func(l *lua.LState) int {
		g.SetUserName(strArg(l, 1))
		return 0
	})
	l.Register("property", func(l *lua.LState) int {
		if v, ok := g.env.Property(strArg(l, 1)); ok {
			l.Push(lua.LString(v))
		} else {
			l.Push(lua.LNil)
		}
		return 1
	})
	l.Register("memory_read", func(l *lua.LState) int {
		r, ok := g.memory.Get(strArg(l, 1), 0)
		if !ok {
			l.Push(l.Get(2))
			return 1
		}
		l.Push(fromJSON(r))
		return 1
	})
	l.Register("memory_write", func(l *lua.LState) int {
		var v any
		switch lv := l.Get(2).(type) {
		case lua.LNumber:
			v = float64(lv)
		case lua.LString:
			v = string(lv)
		case lua.LBool:
			v = bool(lv)
		default:
			l.RaiseError("\nArgument 2 cannot be saved: %v\n", lv)
		}
		g.memoryWrite(strArg(l, 1), v, 0)
		return 0
	})
	l.Register("touch_talk", func(l *lua.LState) int {
		ev, ok := ParseEventType(strArg(l, 2))
		if !ok {
			l.RaiseError("\nunknown event: %v\n", l.Get(2))
		}
		key := TouchKey{Soul: numArg(l, 1), Event: ev, Tag: strArg(l, 3), Phase: numArg(l, 4)}
		var scripts []string
		l.CheckTable(6).ForEach(func(_, v lua.LValue) {
			scripts = append(scripts, lua.LVAsString(v))
		})
		g.SetTouchTalk(key, numArg(l, 5), scripts)
		return 0
	})
	l.Register("set_phase", func(l *lua.LState) int {
		g.SetPhase(numArg(l, 1))
		return 0
	})
	l.Register("boot_last", func(l *lua.LState) int {
		l.Push(lua.LNumber(g.memory.ReadInt("BootLast", 0, 0)))
		return 1
	})
}

func fromJSON(r gjson.Result) lua.LValue {
	switch r.Type {
	case gjson.Number:
		return lua.LNumber(r.Float())
	case gjson.True, gjson.False:
		return lua.LBool(r.Bool())
	case gjson.Null:
		return lua.LNil
	}
	return lua.LString(r.String())
}

// call 调用全局函数 name，函数不存在时 ok 为 false
func (s *Script) call(name string, args ...lua.LValue) (ret lua.LValue, ok bool) {
	fn, ok := s.l.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return lua.LNil, false
	}
	top := s.l.GetTop()
	defer s.l.SetTop(top)
	if err := s.l.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		log.Printf("[Script] Warning: %s: %s failed: %v", s.name, name, err)
		return lua.LNil, false
	}
	return s.l.Get(-1), true
}

// callString 调用返回脚本文本的回调
func (s *Script) callString(name string, args ...lua.LValue) string {
	ret, ok := s.call(name, args...)
	if !ok {
		return ""
	}
	if str, ok := ret.(lua.LString); ok {
		return string(str)
	}
	return ""
}

func (s *Script) onInit() {
	s.call("on_init")
}

func (s *Script) onBoot() string {
	return s.callString("on_boot")
}

func (s *Script) onAutoTalk() string {
	return s.callString("on_auto_talk")
}

func (s *Script) onMinute(now time.Time) string {
	return s.callString("on_minute", lua.LNumber(now.Hour()), lua.LNumber(now.Minute()))
}

func (s *Script) onEvent(ev Event) {
	s.call("on_event", lua.LNumber(ev.Soul), lua.LString(ev.Type.String()), lua.LString(ev.Tag))
}
