package core

import (
	"log"
	"strconv"
)

// Property 返回属性值
//
// 支持的键：
//
//	system.year / month / day / hour / minute / second / millisecond
//	system.dayofweek  星期一为 0
//	ghostlist.count   运行中的 ghost 数
//
// 未知的键记录警告并返回 false。
func (c *Core) Property(key string) (string, bool) {
	now := c.now()
	var v int
	switch key {
	case "":
		return "", false
	case "system.year":
		v = now.Year()
	case "system.month":
		v = int(now.Month())
	case "system.day":
		v = now.Day()
	case "system.hour":
		v = now.Hour()
	case "system.minute":
		v = now.Minute()
	case "system.second":
		v = now.Second()
	case "system.millisecond":
		v = now.Nanosecond() / 1e6
	case "system.dayofweek":
		v = (int(now.Weekday()) + 6) % 7
	case "ghostlist.count":
		v = len(c.ghosts)
	default:
		log.Printf("[Core] Warning: getProperty: Unknown Key %q", key)
		return "", false
	}
	return strconv.Itoa(v), true
}
