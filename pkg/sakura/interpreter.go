package sakura

import (
	"image"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/rivo/uniseg"
)

// 默认节奏（毫秒）
const (
	DefaultTalkSpeed  = 50
	DefaultEndingWait = 5000
)

// Host 接收解释器产生的事件
//
// 所有方法在 Tick 所在的 goroutine 中同步调用。
type Host interface {
	// Talk 在说话人对话框的说话页追加文本
	Talk(soul int, text string)
	// ClearTalk 清空所有对话框的文本，新脚本开始前调用
	ClearTalk()
	// SetSurface 切换说话人的表情
	SetSurface(soul, surface int)
	// TalkComplete 对话结束时调用一次：恢复默认表情并隐藏对话框
	TalkComplete()
	// Variable 返回会话变量
	Variable(name string) (string, bool)
	// Property 返回属性值（%property）
	Property(key string) (string, bool)
	// ScreenSize 返回屏幕尺寸
	ScreenSize() image.Point
}

// ChoiceHost 可选接口：Host 实现后 \q 选项会交给它显示
type ChoiceHost interface {
	Choice(soul int, label, id string, index int)
}

// EndingHost 可选接口：执行 \e 时调用，用于启动 yen-e 动画
type EndingHost interface {
	TalkEnding()
}

// Options 解释器参数
type Options struct {
	// TalkSpeed 每输出一个字的等待时间（毫秒）
	TalkSpeed int
	// EndingWait \e 之后到对话结束的等待时间（毫秒）
	EndingWait int
	// Now 返回当前时间，默认 time.Now
	Now func() time.Time
}

// Interpreter 按 tick 执行脚本的状态机
//
// 状态：空闲 → Talk 开始会话 → 逐 Token 执行（受等待时间节奏控制）→
// Token 耗尽后下一次 Tick 结束会话（TalkComplete 恰好调用一次）→ 空闲。
type Interpreter struct {
	host       Host
	talkSpeed  int
	endingWait int
	now        func() time.Time

	script   *Script
	tokens   []Token
	wait     int
	talking  bool
	speaker  int
	lastTalk time.Time
}

// NewInterpreter 创建解释器
//
// 参数：
//   - host: 事件接收者
//   - opts: 节奏参数，零值使用默认值
//
// 返回：
//   - *Interpreter: 空闲状态的解释器
func NewInterpreter(host Host, opts Options) *Interpreter {
	in := &Interpreter{
		host:       host,
		talkSpeed:  opts.TalkSpeed,
		endingWait: opts.EndingWait,
		now:        opts.Now,
	}
	if in.talkSpeed <= 0 {
		in.talkSpeed = DefaultTalkSpeed
	}
	if in.endingWait <= 0 {
		in.endingWait = DefaultEndingWait
	}
	if in.now == nil {
		in.now = time.Now
	}
	in.lastTalk = in.now()
	return in
}

// TalkSpeed 返回每个字的等待时间
func (in *Interpreter) TalkSpeed() int {
	return in.talkSpeed
}

// SetTalkSpeed 设置每个字的等待时间
func (in *Interpreter) SetTalkSpeed(ms int) {
	if ms > 0 {
		in.talkSpeed = ms
	}
}

// IsTalking 是否处于对话会话中
func (in *Interpreter) IsTalking() bool {
	return in.talking
}

// Speaker 返回当前说话人
func (in *Interpreter) Speaker() int {
	return in.speaker
}

// LastTalk 返回最近一次对话开始或结束的时间
func (in *Interpreter) LastTalk() time.Time {
	return in.lastTalk
}

// Script 返回当前脚本的解析结果，没有时为 nil
func (in *Interpreter) Script() *Script {
	return in.script
}

// Pending 返回尚未执行的 Token 数
func (in *Interpreter) Pending() int {
	return len(in.tokens)
}

// Talk 开始执行一段脚本
//
// 先清空对话框，再解析脚本。脚本没有内容时不开始会话；
// 若已有会话在进行，其剩余 Token 被丢弃，会话在下一次 Tick 结束。
// 脚本末尾没有 \e 时自动补上。
//
// 返回：
//   - bool: 是否开始了新的会话
func (in *Interpreter) Talk(script string) bool {
	if script == "" {
		return false
	}
	in.host.ClearTalk()

	in.script = Tokenize(script)
	in.tokens = append([]Token(nil), in.script.Tokens...)
	if len(in.tokens) == 0 {
		return false
	}
	if last := in.tokens[len(in.tokens)-1]; last.Opcode() != `\e` {
		in.tokens = append(in.tokens, Token{Lead: '\\', Name: "e", Raw: `\e`})
	}

	in.lastTalk = in.now()
	in.talking = true
	in.wait = 0
	in.speaker = 0
	return true
}

// Cancel 丢弃剩余 Token，会话在下一次 Tick 结束
func (in *Interpreter) Cancel() {
	in.tokens = nil
	in.wait = 0
}

// Tick 推进 dt 毫秒
//
// 等待时间未耗尽时只扣减等待时间；否则连续执行 Token，
// 直到遇到需要等待的 Token 或 Token 耗尽。
func (in *Interpreter) Tick(dt int) {
	if in.wait > 0 {
		in.wait -= dt
		return
	}

	if in.talking && len(in.tokens) == 0 {
		in.talking = false
		in.lastTalk = in.now()
		in.host.TalkComplete()
		return
	}

	for len(in.tokens) > 0 {
		tok := in.tokens[0]
		in.tokens = in.tokens[1:]
		if in.exec(tok) {
			break
		}
	}
}

// exec 执行一个 Token，返回 true 表示本次 Tick 应停止
func (in *Interpreter) exec(tok Token) bool {
	if tok.IsText() {
		if tok.Text == "" {
			return false
		}
		unit, rest := nextUnit(tok.Text)
		in.host.Talk(in.speaker, unit)
		if rest != "" {
			in.push(Token{Text: rest})
		}
		in.wait = in.talkSpeed
		return true
	}

	if tok.Lead == '%' {
		if text, ok := in.substitute(tok); ok && text != "" {
			in.push(Token{Text: text})
		}
		return false
	}

	switch name := tok.Name; {
	case name == "n":
		in.host.Talk(in.speaker, "\n")
	case name == "0" || name == "h":
		in.speaker = 0
	case name == "1" || name == "u":
		in.speaker = 1
	case name == "p" && isInt(tok.Option):
		in.speaker, _ = strconv.Atoi(tok.Option)
	case isWait(name):
		n, _ := strconv.Atoi(name[1:])
		in.wait = n * in.talkSpeed
		return true
	case name == "_w":
		n, err := strconv.Atoi(strings.TrimSpace(tok.Option))
		if err != nil {
			log.Printf("[Sakura] Warning: invalid wait %s", tok.Raw)
			return false
		}
		in.wait = n
		return true
	case name == "e":
		in.tokens = nil
		in.wait = in.endingWait
		if eh, ok := in.host.(EndingHost); ok {
			eh.TalkEnding()
		}
		return true
	case name == "q":
		return in.choice(tok)
	default:
		if id, ok := SurfaceArg(tok); ok {
			in.host.SetSurface(in.speaker, id)
			return true
		}
		log.Printf("[Sakura] Warning: unknown sakura script command: %s", tok.Raw)
	}
	return false
}

// choice 把 \q 选项交给 ChoiceHost
func (in *Interpreter) choice(tok Token) bool {
	ch, ok := in.host.(ChoiceHost)
	if !ok {
		log.Printf("[Sakura] Warning: unknown sakura script command: %s", tok.Raw)
		return false
	}
	if label, id, index, ok := DecodeQuestion(tok.Option); ok {
		ch.Choice(in.speaker, label, id, index)
		return false
	}
	// 子脚本选项没有改写，label 和 id 原样传递
	fields := strings.SplitN(tok.Option, ",", 3)
	if len(fields) < 2 {
		log.Printf("[Sakura] Warning: invalid question %s", tok.Raw)
		return false
	}
	ch.Choice(in.speaker, fields[0], fields[1], -1)
	return false
}

// substitute 计算 % 命令的替换文本
func (in *Interpreter) substitute(tok Token) (string, bool) {
	now := in.now()
	switch tok.Name {
	case "month":
		return strconv.Itoa(int(now.Month())), true
	case "day":
		return strconv.Itoa(now.Day()), true
	case "hour":
		return strconv.Itoa(now.Hour()), true
	case "hour12":
		return strconv.Itoa(now.Hour() % 12), true
	case "minute":
		return strconv.Itoa(now.Minute()), true
	case "second":
		return strconv.Itoa(now.Second()), true
	case "screenwidth":
		return strconv.Itoa(in.host.ScreenSize().X), true
	case "screenheight":
		return strconv.Itoa(in.host.ScreenSize().Y), true
	}

	if v, ok := in.host.Variable(tok.Name); ok {
		return v, true
	}
	if tok.Name == "property" {
		key := tok.Option
		if tok.HasArgs {
			key = tok.Args
		}
		if v, ok := in.host.Property(key); ok {
			return v, true
		}
	}
	log.Printf("[Sakura] Warning: unknown sakura script command: %s", tok.Raw)
	return "", false
}

func (in *Interpreter) push(tok Token) {
	in.tokens = append([]Token{tok}, in.tokens...)
}

// nextUnit 取出文本的第一个字（字素簇），\\ 和 %% 输出为单个字符
func nextUnit(text string) (unit, rest string) {
	if len(text) >= 2 && (text[:2] == `\\` || text[:2] == "%%") {
		return text[:1], text[2:]
	}
	unit, rest, _, _ = uniseg.FirstGraphemeClusterInString(text, -1)
	return unit, rest
}
