// talk 在终端里播放一段对话脚本，用来调试脚本和解释器
//
// 用法：
//
//	talk [-speed 50] [-wait 1000] [-hold] '\0\s[0]你好\w9\1\s[10]哦\e'
//	talk -f script.txt
//	echo '...' | talk -f -
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/gonewx/kikka/pkg/core"
	"github.com/gonewx/kikka/pkg/sakura"
)

var (
	// 命令行参数
	scriptFile = flag.String("f", "", "从文件读取脚本，- 表示标准输入")
	speed      = flag.Int("speed", 50, "每个文字的间隔（毫秒）")
	wait       = flag.Int("wait", 1000, "\\e 之后的等待时间（毫秒）")
	tick       = flag.Int("tick", 10, "时钟间隔（毫秒）")
	hold       = flag.Bool("hold", false, "播放结束后不退出")
)

func main() {
	flag.Parse()
	log.SetOutput(io.Discard)

	script, err := readScript()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if script == "" {
		flag.Usage()
		os.Exit(2)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init screen: %v\n", err)
		os.Exit(1)
	}

	c := core.New(core.Options{})
	p := newPlayer(screen, sakura.Options{TalkSpeed: *speed, EndingWait: *wait}, c.Property)
	p.interp.Talk(script)
	run(p, time.Duration(*tick)*time.Millisecond, *hold)
	screen.Fini()

	if p.selected != "" {
		fmt.Println(p.selected)
	}
}

func readScript() (string, error) {
	switch *scriptFile {
	case "":
		return strings.Join(flag.Args(), " "), nil
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read script from stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	data, err := os.ReadFile(*scriptFile)
	if err != nil {
		return "", fmt.Errorf("failed to read script file %s: %w", *scriptFile, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// run 驱动解释器并处理按键，直到按下 q 或播放结束
func run(p *player, interval time.Duration, hold bool) {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go p.screen.ChannelEvents(events, quit)
	defer close(quit)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	dt := int(interval / time.Millisecond)
	for {
		select {
		case ev := <-events:
			if !handleEvent(p, ev) {
				return
			}
		case <-ticker.C:
			p.interp.Tick(dt)
			if p.done && !hold {
				return
			}
		}
		p.draw()
		p.screen.Show()
	}
}

// handleEvent 处理一个终端事件，返回 false 表示退出
func handleEvent(p *player, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		p.screen.Sync()
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC:
			return false
		case ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
			return false
		case ev.Key() == tcell.KeyRune && ev.Rune() >= '1' && ev.Rune() <= '9':
			p.choose(int(ev.Rune() - '1'))
		}
	}
	return true
}
