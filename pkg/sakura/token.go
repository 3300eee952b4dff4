// Package sakura 解析并执行 Sakura Script 对话脚本
//
// 脚本由普通文本和以 \ 或 % 开头的命令组成，例如：
//
//	\0\s[0]你好\w9\1\s[10]……\e
//
// Tokenize 把脚本拆成 Token 序列；Interpreter 按固定节奏逐个执行 Token，
// 通过 Host 接口驱动对话框和角色表情。
package sakura

import (
	"strconv"
	"strings"
)

// QuestionDelimiter 分隔选项标识中的各字段（标签、原始 id、序号）
const QuestionDelimiter = "\x01\x00"

// Token 脚本中的一个单元：一段文本或一条命令
type Token struct {
	// Lead 命令前缀 '\\' 或 '%'，文本为 0
	Lead byte
	// Name 命令名，如 "s"、"w9"、"_w"、"month"
	Name string
	// Args %name(args) 形式中括号内的原文
	Args    string
	HasArgs bool
	// Option [...] 中的原文（\q 选项会被改写）
	Option string
	// Text 文本内容，仅文本 Token 有效
	Text string
	// Raw 命令在源脚本中的原文
	Raw string
}

// IsText 是否为文本 Token
func (t Token) IsText() bool {
	return t.Lead == 0
}

// Opcode 返回带前缀的命令名，如 `\s`，文本返回空字符串
func (t Token) Opcode() string {
	if t.IsText() {
		return ""
	}
	return string(t.Lead) + t.Name
}

// String 返回 Token 的源文本
func (t Token) String() string {
	if t.IsText() {
		return t.Text
	}
	return t.Raw
}

// Question 一个 \q 选项的记录
type Question struct {
	Index int
	Label string
}

// Script 一段脚本的解析结果
type Script struct {
	// Tokens 脚本内容为空（只有说话人切换、等待和结束命令）时为 nil
	Tokens []Token
	// Questions 按选项 id 记录 \q 选项
	Questions map[string]Question
	// LastSurface 每个说话人最后切换到的 surface
	LastSurface map[int]int
	// HasContent 是否包含可显示的内容
	HasContent bool
}

// nonContent 不算作脚本内容的命令
var nonContent = map[string]bool{
	"0": true, "1": true, "h": true, "u": true, "p": true,
	"n": true, "w": true, "_w": true, "e": true,
}

// Tokenize 解析脚本
//
// 命令名是紧跟前缀的最长一段字母、数字或 !*&?_ 字符；
// %name(...) 会把括号内容作为参数；随后的 [...] 为选项。
// 括号和方括号内可以用 \) 和 \] 转义。\\ 和 %% 作为普通文本保留。
//
// 参数：
//   - src: 脚本源文本
//
// 返回：
//   - *Script: 解析结果，不会为 nil
func Tokenize(src string) *Script {
	s := &Script{
		Questions:   make(map[string]Question),
		LastSurface: make(map[int]int),
	}
	rs := []rune(src)

	var tokens []Token
	var acc strings.Builder
	content := false
	speaker := 0

	flush := func() {
		if acc.Len() > 0 {
			tokens = append(tokens, Token{Text: acc.String()})
			acc.Reset()
		}
	}

	for p := 0; p < len(rs); {
		c := rs[p]
		p++
		if c != '\\' && c != '%' {
			content = true
			acc.WriteRune(c)
			continue
		}
		if p < len(rs) && (rs[p] == '\\' || rs[p] == '%') {
			content = true
			acc.WriteRune(c)
			acc.WriteRune(rs[p])
			p++
			continue
		}

		start := p - 1
		nameStart := p
		for p < len(rs) && isCommandRune(rs[p]) {
			p++
		}
		tok := Token{Lead: byte(c), Name: string(rs[nameStart:p])}

		if c == '%' && p < len(rs) && rs[p] == '(' {
			p++
			argStart := p
			p = scanUntil(rs, p, ')')
			tok.Args = string(rs[argStart:p])
			tok.HasArgs = true
			if p < len(rs) {
				p++
			}
		}
		if p < len(rs) && rs[p] == '[' {
			p++
			optStart := p
			p = scanUntil(rs, p, ']')
			tok.Option = string(rs[optStart:p])
			if p < len(rs) {
				p++
			}
		}
		tok.Raw = string(rs[start:p])

		if tok.Lead == '\\' {
			switch {
			case tok.Name == "q" && strings.Contains(tok.Option, ","):
				tok.Option = s.recordQuestion(tok.Option)
			case tok.Name == "0" || tok.Name == "h":
				speaker = 0
			case tok.Name == "1" || tok.Name == "u":
				speaker = 1
			case tok.Name == "p" && isInt(tok.Option):
				speaker, _ = strconv.Atoi(tok.Option)
				if speaker <= 1 {
					if tok.Option == "0" {
						tok.Name = "0"
					} else {
						tok.Name = "1"
					}
					tok.Option = ""
				}
			default:
				if id, ok := SurfaceArg(tok); ok {
					s.LastSurface[speaker] = id
				}
			}
		}

		flush()
		tokens = append(tokens, tok)
		if tok.Lead != '\\' || (!nonContent[tok.Name] && !isWait(tok.Name)) {
			content = true
		}
	}
	flush()

	s.HasContent = content
	if content {
		s.Tokens = tokens
	}
	return s
}

// Serialize 把 Token 序列还原为脚本文本
func Serialize(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.String())
	}
	return b.String()
}

// recordQuestion 记录 \q[label,id,...] 并返回改写后的选项
// 以 on、http://、https://、script: 开头的 id 是子脚本，不记录
func (s *Script) recordQuestion(option string) string {
	fields := strings.Split(option, ",")
	label, id := fields[0], fields[1]
	for _, prefix := range []string{"on", "On", "http://", "https://", "script:", `"script:`} {
		if strings.HasPrefix(id, prefix) {
			return option
		}
	}

	index := len(s.Questions)
	s.Questions[id] = Question{Index: index, Label: label}

	first := strings.Split(id, `\1`)[0]
	var b strings.Builder
	b.WriteString(label + "," + first + QuestionDelimiter + label + QuestionDelimiter + strconv.Itoa(index))
	for _, f := range fields[2:] {
		b.WriteString("," + f)
	}
	return b.String()
}

// DecodeQuestion 解析改写后的 \q 选项
//
// 返回：
//   - label: 显示的标签
//   - id: 原始选项 id
//   - index: 选项序号
//   - ok: 选项不是改写后的格式时为 false
func DecodeQuestion(option string) (label, id string, index int, ok bool) {
	comma := strings.Index(option, ",")
	if comma < 0 {
		return "", "", 0, false
	}
	parts := strings.Split(option[comma+1:], QuestionDelimiter)
	if len(parts) != 3 {
		return "", "", 0, false
	}
	tail := parts[2]
	if i := strings.Index(tail, ","); i >= 0 {
		tail = tail[:i]
	}
	n, err := strconv.Atoi(tail)
	if err != nil {
		return "", "", 0, false
	}
	return option[:comma], parts[0], n, true
}

// SurfaceArg 返回 \s[N] 或 \sN 命令的 surface id
func SurfaceArg(t Token) (int, bool) {
	if t.Lead != '\\' || len(t.Name) == 0 || t.Name[0] != 's' {
		return 0, false
	}
	if t.Name == "s" {
		n, err := strconv.Atoi(strings.TrimSpace(t.Option))
		return n, err == nil
	}
	if !isDigits(t.Name[1:]) {
		return 0, false
	}
	n, err := strconv.Atoi(t.Name[1:])
	return n, err == nil
}

// isWait 判断 wN 形式的等待命令
func isWait(name string) bool {
	return len(name) > 1 && name[0] == 'w' && isDigits(name[1:])
}

func isCommandRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '!', r == '*', r == '&', r == '?', r == '_':
		return true
	}
	return false
}

func scanUntil(rs []rune, p int, closing rune) int {
	for p < len(rs) && rs[p] != closing {
		if rs[p] == '\\' && p+1 < len(rs) && rs[p+1] == closing {
			p++
		}
		p++
	}
	return p
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isInt(s string) bool {
	return isDigits(strings.TrimPrefix(s, "-"))
}
