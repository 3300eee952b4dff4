// check_shell 检查 shell 描述文件中未被解析的键和 surface 行
//
// 用法：
//
//	check_shell [Shell 目录...]
//
// 不带参数时检查 Ghosts/*/Shell。
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gonewx/kikka/pkg/shell"
)

// Usage 记录一个未支持条目的出现情况
type Usage struct {
	Entry  string
	Shells []string
	Count  int
}

// report 汇总所有 shell 的检查结果
type report struct {
	keys  map[string]*Usage
	lines map[string]*Usage
	// failed 记录无法加载的 shell
	failed []string
}

func newReport() *report {
	return &report{
		keys:  make(map[string]*Usage),
		lines: make(map[string]*Usage),
	}
}

func (r *report) add(m map[string]*Usage, entry, where string) {
	if u, ok := m[entry]; ok {
		u.Count++
		if u.Shells[len(u.Shells)-1] != where {
			u.Shells = append(u.Shells, where)
		}
		return
	}
	m[entry] = &Usage{Entry: entry, Shells: []string{where}, Count: 1}
}

// check 扫描一个 Shell 目录，把每个 shell 的未知键和未匹配行记入报告
func (r *report) check(dir string) error {
	shells, err := shell.Scan(dir)
	if err != nil {
		return err
	}
	for _, s := range shells {
		where := filepath.Join(dir, s.ID)
		if err := s.Load(); err != nil {
			r.failed = append(r.failed, fmt.Sprintf("%s: %v", where, err))
			s.Loader.Close()
			continue
		}
		for _, kv := range s.UnknownKeys {
			key, _, _ := strings.Cut(kv, ",")
			r.add(r.keys, key, where)
		}
		for _, sf := range s.Surfaces() {
			for _, line := range sf.Unmatched {
				r.add(r.lines, strings.TrimSpace(line), fmt.Sprintf("%s surface%d", where, sf.ID))
			}
		}
		s.Loader.Close()
	}
	return nil
}

// sorted 按出现次数从多到少排列，次数相同时按名字排列
func sorted(m map[string]*Usage) []*Usage {
	out := make([]*Usage, 0, len(m))
	for _, u := range m {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Entry < out[j].Entry
	})
	return out
}

// write 输出报告，返回是否发现问题
func (r *report) write(w io.Writer) bool {
	for _, f := range r.failed {
		fmt.Fprintf(w, "❌ 加载失败: %s\n", f)
	}
	if len(r.keys) == 0 && len(r.lines) == 0 {
		if len(r.failed) == 0 {
			fmt.Fprintln(w, "✅ 所有 shell 的描述都已支持！")
		}
		return len(r.failed) > 0
	}

	section := func(title string, usages []*Usage) {
		if len(usages) == 0 {
			return
		}
		fmt.Fprintf(w, "❌ 发现 %d 个%s:\n\n", len(usages), title)
		for _, u := range usages {
			fmt.Fprintf(w, "%s\n", u.Entry)
			fmt.Fprintf(w, "  出现次数: %d\n", u.Count)
			for _, s := range u.Shells {
				fmt.Fprintf(w, "    - %s\n", s)
			}
			fmt.Fprintln(w)
		}
	}
	keys, lines := sorted(r.keys), sorted(r.lines)
	section("未支持的描述键", keys)
	section("无法解析的 surface 行", lines)

	fmt.Fprintln(w, "=== 汇总 ===")
	for i, u := range keys {
		fmt.Fprintf(w, "%d. %s (使用 %d 次)\n", i+1, u.Entry, u.Count)
	}
	fmt.Fprintf(w, "无法解析的 surface 行: %d\n", len(lines))
	return true
}

func main() {
	log.SetOutput(io.Discard)

	dirs := os.Args[1:]
	if len(dirs) == 0 {
		dirs, _ = filepath.Glob(filepath.Join("Ghosts", "*", "Shell"))
	}
	if len(dirs) == 0 {
		fmt.Println("错误: 没有找到 Shell 目录")
		os.Exit(1)
	}

	r := newReport()
	for _, dir := range dirs {
		if err := r.check(dir); err != nil {
			fmt.Printf("错误: %v\n", err)
			os.Exit(1)
		}
	}
	if r.write(os.Stdout) {
		os.Exit(1)
	}
}
