package shell

import (
	"image"
	"sort"
)

// Author holds the credits found in descript.txt.
type Author struct {
	Name      string
	Website   string
	UpdateURL string
	Readme    string
}

// Color is an RGB triple; -1 marks an unset channel.
type Color [3]int

func unsetColor() Color {
	return Color{-1, -1, -1}
}

// MenuStyle describes the right-click menu skin of a shell.
type MenuStyle struct {
	Hidden bool

	FontFamily string
	FontSize   int

	BackgroundImage     string
	BackgroundFontColor Color
	BackgroundAlignment string

	ForegroundImage     string
	ForegroundFontColor Color
	ForegroundAlignment string

	DisableFontColor Color
	SeparatorColor   Color

	SidebarImage     string
	SidebarAlignment string
}

func defaultMenuStyle() MenuStyle {
	return MenuStyle{
		FontSize:            -1,
		BackgroundFontColor: unsetColor(),
		BackgroundAlignment: "lefttop",
		ForegroundFontColor: unsetColor(),
		ForegroundAlignment: "lefttop",
		DisableFontColor:    unsetColor(),
		SeparatorColor:      unsetColor(),
		SidebarAlignment:    "lefttop",
	}
}

// BindGroup is one wearable item: an animation toggled on top of every
// surface of a soul.
type BindGroup struct {
	AnimationID int
	// Type is the clothing category ("Hat", "Ribbon", ...).
	Type    string
	Title   string
	Image   string
	Default bool
}

// Bind option values of a clothing category.
const (
	BindOptionMultiple   = "multiple"
	BindOptionMustSelect = "mustselect"
)

// Setting holds the per-soul values of a shell ("sakura.*", "kero.*",
// "charN.*" keys).
type Setting struct {
	Name string
	// Offset is added to every surface of the soul when it is composed.
	Offset image.Point
	// Position is the default window position; nil coordinates are unset.
	PositionX *int
	PositionY *int

	BalloonOffset    image.Point
	BalloonAlignment string

	// BindOptions maps a clothing category to "multiple" or "mustselect".
	BindOptions map[string]string
	BindGroups  map[int]*BindGroup
	// ClothesMenu maps a menu slot to a bind group id; -1 is a separator.
	ClothesMenu map[int]int
}

func newSetting() *Setting {
	return &Setting{
		BalloonAlignment: "lefttop",
		BindOptions:      make(map[string]string),
		BindGroups:       make(map[int]*BindGroup),
		ClothesMenu:      make(map[int]int),
	}
}

func (s *Setting) group(aid int) *BindGroup {
	g, ok := s.BindGroups[aid]
	if !ok {
		g = &BindGroup{AnimationID: aid}
		s.BindGroups[aid] = g
	}
	return g
}

// GroupIDs returns the bind group ids in ascending order.
func (s *Setting) GroupIDs() []int {
	ids := make([]int, 0, len(s.BindGroups))
	for id := range s.BindGroups {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// MenuSlots returns the clothes menu slots in ascending order.
func (s *Setting) MenuSlots() []int {
	ids := make([]int, 0, len(s.ClothesMenu))
	for id := range s.ClothesMenu {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
