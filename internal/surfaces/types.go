// Package surfaces provides the data model and parser for shell surface
// definitions (surfaces.txt, surfaces2.txt, ...).
//
// A surface is one pose of a character: a list of static elements, a set of
// animations made of timed patterns, named collision boxes and optional
// anchor points. Surfaces are built once per shell load and are read-only
// afterwards.
package surfaces

import (
	"fmt"
	"image"
)

// Method is the verb of an element or a pattern: either a compositing verb
// ("base", "overlay", ...) or a control verb ("start", "stop", ...).
type Method string

// Compositing verbs.
const (
	MethodBase        Method = "base"
	MethodOverlay     Method = "overlay"
	MethodOverlayFast Method = "overlayfast"
	MethodReplace     Method = "replace"
	MethodInterpolate Method = "interpolate"
	MethodAsis        Method = "asis"
	MethodMove        Method = "move"
	MethodBind        Method = "bind"
	MethodAdd         Method = "add"
	MethodReduce      Method = "reduce"
)

// Control verbs.
const (
	MethodInsert           Method = "insert"
	MethodStart            Method = "start"
	MethodStop             Method = "stop"
	MethodAlternativeStart Method = "alternativestart"
	MethodAlternativeStop  Method = "alternativestop"
)

// IsControl reports whether m starts or stops other animations instead of
// displaying an image.
func (m Method) IsControl() bool {
	switch m {
	case MethodInsert, MethodStart, MethodStop, MethodAlternativeStart, MethodAlternativeStop:
		return true
	}
	return false
}

// IsStart reports whether m starts one of its bound animations.
func (m Method) IsStart() bool {
	return m == MethodInsert || m == MethodStart || m == MethodAlternativeStart
}

// IsStop reports whether m stops its bound animations.
func (m Method) IsStop() bool {
	return m == MethodStop || m == MethodAlternativeStop
}

// Interval is the auto-start policy of an animation.
type Interval string

const (
	IntervalSometimes Interval = "sometimes"
	IntervalRarely    Interval = "rarely"
	IntervalRandom    Interval = "random"
	IntervalPeriodic  Interval = "periodic"
	IntervalAlways    Interval = "always"
	IntervalRunOnce   Interval = "runonce"
	IntervalNever     Interval = "never"
	IntervalYenE      Interval = "yen-e"
	IntervalTalk      Interval = "talk"
	IntervalBind      Interval = "bind"
)

// SortPolicy orders elements, animations and collision boxes of a surface.
type SortPolicy string

const (
	SortNone    SortPolicy = "none"
	SortAscend  SortPolicy = "ascend"
	SortDescend SortPolicy = "descend"
)

// ParseSortPolicy returns the policy named s.
func ParseSortPolicy(s string) (SortPolicy, bool) {
	switch SortPolicy(s) {
	case SortNone, SortAscend, SortDescend:
		return SortPolicy(s), true
	}
	return "", false
}

// TerminatorSurface is the pattern surface id that ends an animation.
const TerminatorSurface = -1

// Element is a static image layer of a surface.
type Element struct {
	ID        int
	PaintType Method
	Filename  string
	Offset    image.Point
}

// Pattern is one timeline entry of an animation.
type Pattern struct {
	ID        int
	Method    Method
	SurfaceID int
	// Time is the delay in milliseconds after the previous pattern.
	Time   int
	Offset image.Point
	// AnimationIDs lists the animations a control pattern starts or stops.
	AnimationIDs []int
}

// IsControl reports whether the pattern controls other animations.
func (p *Pattern) IsControl() bool {
	return p.Method.IsControl()
}

// IsTerminator reports whether the pattern ends its animation. Control
// patterns are never terminators, whatever their surface id.
func (p *Pattern) IsTerminator() bool {
	return p.SurfaceID == TerminatorSurface && !p.IsControl()
}

// AnimationData describes one animation of a surface.
type AnimationData struct {
	ID            int
	Interval      Interval
	IntervalValue float64
	Exclusive     bool
	// Patterns is ordered by pattern id.
	Patterns []Pattern
}

// CollisionBox is a named hit rectangle.
type CollisionBox struct {
	ID   int
	Rect image.Rectangle
	Tag  string
}

// Anchor is an optional point. Each coordinate is nil until set.
type Anchor struct {
	X *int
	Y *int
}

// IsSet reports whether both coordinates are set.
func (a Anchor) IsSet() bool {
	return a.X != nil && a.Y != nil
}

// Point returns the anchor as a point; unset coordinates are 0.
func (a Anchor) Point() image.Point {
	var p image.Point
	if a.X != nil {
		p.X = *a.X
	}
	if a.Y != nil {
		p.Y = *a.Y
	}
	return p
}

// Surface is one pose of a character.
type Surface struct {
	ID int
	// Name is the internal name ("Surface12").
	Name string
	// DisplayName comes from surfacetable.txt and may be empty.
	DisplayName string

	Elements       []Element
	Animations     []*AnimationData
	CollisionBoxes []CollisionBox

	Center       Anchor
	KinokoCenter Anchor
	BasePos      Anchor

	// Unmatched holds the body lines no grammar rule accepted.
	Unmatched []string
}

// Animation returns the animation with the given id.
func (s *Surface) Animation(id int) (*AnimationData, bool) {
	for _, a := range s.Animations {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// String implements fmt.Stringer.
func (s *Surface) String() string {
	if s.DisplayName != "" {
		return fmt.Sprintf("%3d - %s(%s)", s.ID, s.Name, s.DisplayName)
	}
	return fmt.Sprintf("%3d - %s", s.ID, s.Name)
}
