package app

import (
	"fmt"
	"log"

	"github.com/gonewx/kikka/pkg/ghost"
)

// menuItem 主菜单中的一项，action 为空时是分隔线或标题
type menuItem struct {
	label  string
	action func()
}

func mark(on bool) string {
	if on {
		return "[x] "
	}
	return "[ ] "
}

// mainMenu 返回 soul 的主菜单：切换 shell、换装、贴靠任务栏、设置称呼、关闭
func mainMenu(s *ghost.Soul, d ghost.DialogWindow) []menuItem {
	g := s.Ghost()
	cur := g.Shell()

	var items []menuItem
	items = append(items, menuItem{label: "Shell"})
	for _, sh := range g.Shells() {
		sh := sh
		label := sh.Name
		if label == "" {
			label = sh.ID
		}
		items = append(items, menuItem{
			label: mark(sh == cur) + label,
			action: func() {
				if err := g.ChangeShell(sh.ID); err != nil {
					log.Printf("[App] Warning: change shell: %v", err)
				}
			},
		})
	}

	if cur != nil {
		st := cur.Setting(s.ID)
		slots := st.MenuSlots()
		ids := make([]int, 0, len(slots))
		for _, slot := range slots {
			ids = append(ids, st.ClothesMenu[slot])
		}
		if len(ids) == 0 {
			ids = st.GroupIDs()
		}
		if len(ids) > 0 {
			items = append(items, menuItem{label: "Clothes"})
		}
		for _, aid := range ids {
			bg, ok := st.BindGroups[aid]
			if aid < 0 || !ok {
				items = append(items, menuItem{label: "-"})
				continue
			}
			aid := aid
			items = append(items, menuItem{
				label: fmt.Sprintf("%s%s: %s", mark(cur.IsBound(s.ID, aid)), bg.Type, bg.Title),
				action: func() {
					if _, err := s.ToggleClothes(aid); err != nil {
						log.Printf("[App] Warning: toggle clothes %d: %v", aid, err)
					}
				},
			})
		}
	}

	items = append(items,
		menuItem{label: "-"},
		menuItem{
			label:  mark(g.IsLockOnTaskBar()) + "Lock on task bar",
			action: func() { lockOnTaskBar(g, !g.IsLockOnTaskBar()) },
		},
		menuItem{
			label:  "Call me...",
			action: func() { d.Show(ghost.PageInput) },
		},
		menuItem{
			label:  "Close",
			action: d.Hide,
		},
	)
	return items
}

func lockOnTaskBar(g *ghost.Ghost, lock bool) {
	g.SetLockOnTaskBar(lock)
	if lock {
		g.ResetWindowsPosition(false, true)
	}
}
