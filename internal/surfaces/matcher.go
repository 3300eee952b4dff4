package surfaces

import (
	"image"
	"regexp"
	"strconv"
	"strings"
)

// LineKind tags the grammar row a surface body line matched.
type LineKind int

const (
	LineUnknown LineKind = iota
	LineElement
	LineInterval
	LinePattern
	LinePatternNew
	LinePatternAlternative
	LineExclusive
	LineCollision
	LineCenterX
	LineCenterY
	LineKinokoCenterX
	LineKinokoCenterY
	LineBasePosX
	LineBasePosY
)

var lineKindNames = [...]string{
	LineUnknown:            "unknown",
	LineElement:            "element",
	LineInterval:           "interval",
	LinePattern:            "pattern",
	LinePatternNew:         "pattern-new",
	LinePatternAlternative: "pattern-alternative",
	LineExclusive:          "exclusive",
	LineCollision:          "collision",
	LineCenterX:            "point.centerx",
	LineCenterY:            "point.centery",
	LineKinokoCenterX:      "point.kinoko.centerx",
	LineKinokoCenterY:      "point.kinoko.centery",
	LineBasePosX:           "point.base_pos.centerx",
	LineBasePosY:           "point.base_pos.centery",
}

func (k LineKind) String() string {
	if int(k) < len(lineKindNames) {
		return lineKindNames[k]
	}
	return "LineKind(" + strconv.Itoa(int(k)) + ")"
}

// Line is a matched surface body line. Only the fields belonging to Kind are
// meaningful.
type Line struct {
	Kind LineKind
	// ID is the element, animation or collision id.
	ID int

	Element   Element
	Pattern   Pattern
	Collision CollisionBox

	Interval      Interval
	IntervalValue float64

	// Value is the coordinate of a point line.
	Value int
}

const (
	paintVerbs   = `base|overlay|overlayfast|replace|interpolate|asis|move|bind|add|reduce`
	controlVerbs = `insert|start|stop|alternativestart|alternativestop`
)

// lineMatcher is one grammar row. Rows are tried in order; the alternative
// pattern shape is listed before the legacy pattern shape so that control
// verbs are not mistaken for paint verbs.
type lineMatcher struct {
	kind  LineKind
	re    *regexp.Regexp
	build func(m []string) (Line, bool)
}

var lineMatchers = []lineMatcher{
	{
		kind: LineElement,
		re:   regexp.MustCompile(`^element(\d+),(` + paintVerbs + `),([^,]+),(-?\d+),(-?\d+)$`),
		build: func(m []string) (Line, bool) {
			n, ok := atoiAll(m[1], m[4], m[5])
			if !ok {
				return Line{}, false
			}
			return Line{ID: n[0], Element: Element{
				ID:        n[0],
				PaintType: Method(m[2]),
				Filename:  strings.TrimSpace(m[3]),
				Offset:    image.Pt(n[1], n[2]),
			}}, true
		},
	},
	{
		kind: LineInterval,
		re:   regexp.MustCompile(`^(?:animation)?(\d+)\.?interval,(sometimes|rarely|always|runonce|never|yen-e|bind|talk|random|periodic)(?:,(\d+(?:\.\d*)?))?$`),
		build: func(m []string) (Line, bool) {
			id, err := strconv.Atoi(m[1])
			if err != nil {
				return Line{}, false
			}
			l := Line{ID: id, Interval: Interval(m[2])}
			switch l.Interval {
			case IntervalRandom, IntervalPeriodic:
				if m[3] == "" {
					return Line{}, false
				}
			}
			if m[3] != "" {
				v, err := strconv.ParseFloat(m[3], 64)
				if err != nil {
					return Line{}, false
				}
				l.IntervalValue = v
			}
			return l, true
		},
	},
	{
		kind: LinePatternAlternative,
		re:   regexp.MustCompile(`^(\d+)pattern(\d+),(-?\d+),(\d+),(` + controlVerbs + `),[\[(]?((?:\d+[.,])*\d+)[\])]?$`),
		build: func(m []string) (Line, bool) {
			n, ok := atoiAll(m[1], m[2], m[3], m[4])
			if !ok {
				return Line{}, false
			}
			ids, ok := splitIDs(m[6])
			if !ok {
				return Line{}, false
			}
			return Line{ID: n[0], Pattern: Pattern{
				ID:           n[1],
				SurfaceID:    n[2],
				Time:         n[3],
				Method:       Method(m[5]),
				AnimationIDs: ids,
			}}, true
		},
	},
	{
		kind: LinePattern,
		re:   regexp.MustCompile(`^(\d+)pattern(\d+),(-?\d+),(\d+),(` + paintVerbs + `),(-?\d+),(-?\d+)$`),
		build: func(m []string) (Line, bool) {
			n, ok := atoiAll(m[1], m[2], m[3], m[4], m[6], m[7])
			if !ok {
				return Line{}, false
			}
			return Line{ID: n[0], Pattern: Pattern{
				ID:        n[1],
				SurfaceID: n[2],
				Time:      n[3] * 10,
				Method:    Method(m[5]),
				Offset:    image.Pt(n[4], n[5]),
			}}, true
		},
	},
	{
		kind: LinePatternNew,
		re:   regexp.MustCompile(`^animation(\d+)\.pattern(\d+),(` + paintVerbs + `),(-?\d+),(\d+),(-?\d+),(-?\d+)$`),
		build: func(m []string) (Line, bool) {
			n, ok := atoiAll(m[1], m[2], m[4], m[5], m[6], m[7])
			if !ok {
				return Line{}, false
			}
			return Line{ID: n[0], Pattern: Pattern{
				ID:        n[1],
				Method:    Method(m[3]),
				SurfaceID: n[2],
				Time:      n[3],
				Offset:    image.Pt(n[4], n[5]),
			}}, true
		},
	},
	{
		kind: LineExclusive,
		re:   regexp.MustCompile(`^(?:animation)?(\d+)\.?option,exclusive$`),
		build: func(m []string) (Line, bool) {
			id, err := strconv.Atoi(m[1])
			return Line{ID: id}, err == nil
		},
	},
	{
		kind: LineCollision,
		re:   regexp.MustCompile(`^collision(\d+),(-?\d+),(-?\d+),(-?\d+),(-?\d+),(\w+)$`),
		build: func(m []string) (Line, bool) {
			n, ok := atoiAll(m[1], m[2], m[3], m[4], m[5])
			if !ok {
				return Line{}, false
			}
			return Line{ID: n[0], Collision: CollisionBox{
				ID:   n[0],
				Rect: image.Rect(n[1], n[2], n[3], n[4]).Canon(),
				Tag:  m[6],
			}}, true
		},
	},
	pointMatcher(LineCenterX, `point\.centerx`),
	pointMatcher(LineCenterY, `point\.centery`),
	pointMatcher(LineKinokoCenterX, `point\.kinoko\.centerx`),
	pointMatcher(LineKinokoCenterY, `point\.kinoko\.centery`),
	pointMatcher(LineBasePosX, `point\.base_?pos\.(?:center)?x`),
	pointMatcher(LineBasePosY, `point\.base_?pos\.(?:center)?y`),
}

func pointMatcher(kind LineKind, key string) lineMatcher {
	return lineMatcher{
		kind: kind,
		re:   regexp.MustCompile(`^` + key + `,(-?\d+)$`),
		build: func(m []string) (Line, bool) {
			v, err := strconv.Atoi(m[1])
			return Line{Value: v}, err == nil
		},
	}
}

// MatchLine classifies a surface body line.
// Legacy pattern times are given in units of 10 ms and are normalized to
// milliseconds; the "animationN.patternM" shape is already in milliseconds.
//
// Returns:
//   - Line: the matched line with Kind set
//   - bool: false when no grammar row matches; the caller skips the line
func MatchLine(s string) (Line, bool) {
	s = strings.TrimSpace(s)
	for _, lm := range lineMatchers {
		m := lm.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		l, ok := lm.build(m)
		if !ok {
			return Line{}, false
		}
		l.Kind = lm.kind
		return l, true
	}
	return Line{}, false
}

func atoiAll(ss ...string) ([]int, bool) {
	out := make([]int, len(ss))
	for i, s := range ss {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

// splitIDs parses an id list separated by '.' or ','.
func splitIDs(s string) ([]int, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == ',' })
	return atoiAll(fields...)
}
