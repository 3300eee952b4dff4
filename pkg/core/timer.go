package core

import (
	"context"
	"time"
)

// Start 开始计时，下一次 Update 从现在起算
func (c *Core) Start() {
	c.lastClock = c.now()
	c.running = true
}

// Stop 停止计时
func (c *Core) Stop() {
	c.running = false
}

// IsRunning 是否正在计时
func (c *Core) IsRunning() bool {
	return c.running
}

// TickInterval 返回驱动间隔
func (c *Core) TickInterval() time.Duration {
	return time.Duration(c.cfg.TickInterval) * time.Millisecond
}

// Update 按距离上次 Update 经过的时间推进所有 ghost
//
// 停止计时时什么也不做。
//
// 返回：
//   - bool: 是否有画面发生变化
func (c *Core) Update() bool {
	if !c.running {
		return false
	}
	now := c.now()
	dt := int(now.Sub(c.lastClock) / time.Millisecond)
	if dt <= 0 {
		return false
	}
	// 不足 1ms 的部分留到下一次
	c.lastClock = c.lastClock.Add(time.Duration(dt) * time.Millisecond)
	return c.Tick(dt)
}

// Tick 把所有 ghost 推进 dt 毫秒
func (c *Core) Tick(dt int) bool {
	changed := false
	for _, g := range c.Ghosts() {
		if g.Tick(dt) {
			changed = true
		}
	}
	return changed
}

// Do 在持有 Core 锁的情况下执行 fn
func (c *Core) Do(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

// Run 按 TickInterval 驱动 Update，直到 ctx 结束
//
// 返回：
//   - error: ctx.Err()
func (c *Core) Run(ctx context.Context) error {
	c.Do(c.Start)

	ticker := time.NewTicker(c.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Do(func() { c.Update() })
		}
	}
}
