package surfaces

import (
	"fmt"
	"log"
	"sort"
)

// Policy holds the shell-level sort policies applied after a surface is built.
// Elements are always sorted ascending by id.
type Policy struct {
	Animation SortPolicy
	Collision SortPolicy
}

// DefaultPolicy is used when the shell descriptor names no sort policy.
var DefaultPolicy = Policy{Animation: SortAscend, Collision: SortNone}

// Build turns the body lines of one surface into a Surface.
// Unknown lines are logged and kept in Surface.Unmatched.
//
// Parameters:
//   - id: the surface id
//   - lines: the accumulated body lines
//   - policy: animation and collision sort policies
//
// Returns:
//   - *Surface: the built surface, never nil
func Build(id int, lines []string, policy Policy) *Surface {
	s := &Surface{ID: id, Name: fmt.Sprintf("Surface%d", id)}

	elements := make(map[int]int)
	animations := make(map[int]*AnimationData)
	patterns := make(map[*AnimationData]map[int]int)
	collisions := make(map[int]int)

	animation := func(aid int) *AnimationData {
		if a, ok := animations[aid]; ok {
			return a
		}
		a := &AnimationData{ID: aid, Interval: IntervalNever}
		animations[aid] = a
		patterns[a] = make(map[int]int)
		s.Animations = append(s.Animations, a)
		return a
	}

	for _, raw := range lines {
		l, ok := MatchLine(raw)
		if !ok {
			log.Printf("[Surfaces] Warning: surface %d: unknown line %q", id, raw)
			s.Unmatched = append(s.Unmatched, raw)
			continue
		}

		switch l.Kind {
		case LineElement:
			if i, ok := elements[l.ID]; ok {
				s.Elements[i] = l.Element
				continue
			}
			elements[l.ID] = len(s.Elements)
			s.Elements = append(s.Elements, l.Element)

		case LineInterval:
			a := animation(l.ID)
			a.Interval = l.Interval
			a.IntervalValue = l.IntervalValue

		case LinePattern, LinePatternNew, LinePatternAlternative:
			a := animation(l.ID)
			if i, ok := patterns[a][l.Pattern.ID]; ok {
				a.Patterns[i] = l.Pattern
				continue
			}
			patterns[a][l.Pattern.ID] = len(a.Patterns)
			a.Patterns = append(a.Patterns, l.Pattern)

		case LineExclusive:
			animation(l.ID).Exclusive = true

		case LineCollision:
			if i, ok := collisions[l.ID]; ok {
				s.CollisionBoxes[i] = l.Collision
				continue
			}
			collisions[l.ID] = len(s.CollisionBoxes)
			s.CollisionBoxes = append(s.CollisionBoxes, l.Collision)

		case LineCenterX:
			s.Center.X = intPtr(l.Value)
		case LineCenterY:
			s.Center.Y = intPtr(l.Value)
		case LineKinokoCenterX:
			s.KinokoCenter.X = intPtr(l.Value)
		case LineKinokoCenterY:
			s.KinokoCenter.Y = intPtr(l.Value)
		case LineBasePosX:
			s.BasePos.X = intPtr(l.Value)
		case LineBasePosY:
			s.BasePos.Y = intPtr(l.Value)
		}
	}

	for _, a := range s.Animations {
		sort.SliceStable(a.Patterns, func(i, j int) bool {
			return a.Patterns[i].ID < a.Patterns[j].ID
		})
	}
	s.Sort(policy)
	return s
}

// Sort reorders elements ascending and animations and collision boxes by the
// given policies. SortNone keeps insertion order.
func (s *Surface) Sort(policy Policy) {
	sort.SliceStable(s.Elements, func(i, j int) bool {
		return s.Elements[i].ID < s.Elements[j].ID
	})

	switch policy.Animation {
	case SortAscend:
		sort.SliceStable(s.Animations, func(i, j int) bool { return s.Animations[i].ID < s.Animations[j].ID })
	case SortDescend:
		sort.SliceStable(s.Animations, func(i, j int) bool { return s.Animations[i].ID > s.Animations[j].ID })
	}

	switch policy.Collision {
	case SortAscend:
		sort.SliceStable(s.CollisionBoxes, func(i, j int) bool { return s.CollisionBoxes[i].ID < s.CollisionBoxes[j].ID })
	case SortDescend:
		sort.SliceStable(s.CollisionBoxes, func(i, j int) bool { return s.CollisionBoxes[i].ID > s.CollisionBoxes[j].ID })
	}
}

// BuildAll builds every surface accumulated in b and returns them ordered by
// ascending id.
func BuildAll(b *Blocks, policy Policy) []*Surface {
	ids := b.IDs()
	sort.Ints(ids)
	out := make([]*Surface, 0, len(ids))
	for _, id := range ids {
		out = append(out, Build(id, b.Body(id), policy))
	}
	return out
}

func intPtr(v int) *int {
	return &v
}
