package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/sqweek/dialog"

	"github.com/gonewx/kikka/pkg/app"
)

var (
	// 命令行参数
	configPath = flag.String("config", "kikka.yaml", "应用配置文件路径")
	verbose    = flag.Bool("verbose", false, "显示详细日志")
	ghostName  = flag.String("ghost", "", "只加载指定名字的 ghost")
)

// showErrorDialog 用系统消息框显示致命错误
func showErrorDialog(message string) {
	dialog.Message("%s", message).Title("kikka Error").Error()
}

func main() {
	flag.Parse()

	a, err := app.NewApp(app.Config{
		Verbose:    *verbose,
		ConfigPath: *configPath,
		Ghost:      *ghostName,
	})
	if err != nil {
		msg := fmt.Sprintf("初始化失败: %v", err)
		showErrorDialog(msg)
		log.Fatal(msg)
	}

	if err := a.Run(); err != nil {
		showErrorDialog(err.Error())
		log.Fatal(err)
	}
}
