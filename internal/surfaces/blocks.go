package surfaces

import (
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/gonewx/kikka/internal/descript"
)

type section int

const (
	sectionNone section = iota
	sectionSurface
	sectionDescript
	sectionAlias
)

// Blocks accumulates the brace-delimited sections of one or more surface
// files. Several files (surfaces.txt, surfaces2.txt, ...) may be read into the
// same Blocks; later bodies append to earlier ones.
type Blocks struct {
	// Descript holds the "descript" section (version, sort policies, ...).
	Descript *descript.Descript
	// Alias maps a surface id to alternative surface ids.
	Alias map[int][]int

	bodies map[int][]string
	order  []int

	section section
	inBody  bool
	active  []int
}

// NewBlocks returns an empty accumulator.
func NewBlocks() *Blocks {
	return &Blocks{
		Descript: descript.ParseLines(nil),
		Alias:    make(map[int][]int),
		bodies:   make(map[int][]string),
	}
}

// Read decodes a surface file and feeds its lines.
func (b *Blocks) Read(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.ReadLines(descript.SplitLines(descript.Decode(data)))
	return nil
}

// ReadLines feeds already decoded lines.
func (b *Blocks) ReadLines(lines []string) {
	for _, raw := range lines {
		line := descript.CleanLine(raw)
		if descript.IsComment(line) {
			continue
		}

		if !b.inBody {
			if line == "{" {
				b.inBody = true
				continue
			}
			header := line
			if strings.HasSuffix(header, "{") {
				header = strings.TrimSpace(strings.TrimSuffix(header, "{"))
				b.inBody = true
			}
			b.header(header)
			continue
		}

		if line == "}" {
			b.inBody = false
			b.section = sectionNone
			b.active = nil
			continue
		}
		b.body(line)
	}
}

func (b *Blocks) header(line string) {
	b.active = nil
	switch {
	case strings.HasPrefix(line, "descript"):
		b.section = sectionDescript
	case strings.Contains(line, "alias"):
		b.section = sectionAlias
	case strings.HasPrefix(line, "surface"):
		b.section = sectionSurface
		b.surfaceHeader(line)
	default:
		log.Printf("[Surfaces] Warning: unknown section %q skipped", line)
		b.section = sectionNone
	}
}

// surfaceHeader builds the active id set of a "surfaceN[,M][-R],!X" header.
func (b *Blocks) surfaceHeader(line string) {
	line = strings.ReplaceAll(line, "surface", "")
	for _, tok := range strings.Split(line, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		apply := b.add
		if strings.HasPrefix(tok, "!") {
			apply = b.remove
			tok = strings.TrimSpace(tok[1:])
		}

		from, to, ok := parseIDRange(tok)
		if !ok {
			log.Printf("[Surfaces] Warning: bad surface id %q in header", tok)
			continue
		}
		for id := from; id <= to; id++ {
			apply(id)
		}
	}
}

// parseIDRange parses "N" or the inclusive range "A-B".
func parseIDRange(tok string) (from, to int, ok bool) {
	lo, hi, isRange := strings.Cut(tok, "-")
	from, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, false
	}
	if !isRange {
		return from, from, true
	}
	to, err = strconv.Atoi(strings.TrimSpace(hi))
	if err != nil || to < from {
		return 0, 0, false
	}
	return from, to, true
}

func (b *Blocks) add(id int) {
	for _, a := range b.active {
		if a == id {
			return
		}
	}
	b.active = append(b.active, id)
	if _, ok := b.bodies[id]; !ok {
		b.bodies[id] = []string{}
		b.order = append(b.order, id)
	}
}

func (b *Blocks) remove(id int) {
	for i, a := range b.active {
		if a == id {
			b.active = append(b.active[:i], b.active[i+1:]...)
			break
		}
	}
	if _, ok := b.bodies[id]; !ok {
		return
	}
	delete(b.bodies, id)
	for i, o := range b.order {
		if o == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

func (b *Blocks) body(line string) {
	switch b.section {
	case sectionSurface:
		for _, id := range b.active {
			b.bodies[id] = append(b.bodies[id], line)
		}
	case sectionDescript:
		key, value, ok := strings.Cut(line, ",")
		if !ok {
			log.Printf("[Surfaces] Warning: descript line without comma: %q", line)
			return
		}
		b.Descript.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	case sectionAlias:
		b.alias(line)
	}
}

// alias parses "id,[a,b,c]".
func (b *Blocks) alias(line string) {
	key, value, ok := strings.Cut(line, ",")
	if !ok {
		log.Printf("[Surfaces] Warning: alias line without comma: %q", line)
		return
	}
	id, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil {
		log.Printf("[Surfaces] Warning: bad alias id %q", key)
		return
	}
	value = strings.Trim(strings.TrimSpace(value), "[]")
	var ids []int
	for _, f := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			log.Printf("[Surfaces] Warning: bad alias target %q for surface %d", f, id)
			continue
		}
		ids = append(ids, n)
	}
	if len(ids) > 0 {
		b.Alias[id] = ids
	}
}

// IDs returns the accumulated surface ids in first-appearance order.
func (b *Blocks) IDs() []int {
	return append([]int(nil), b.order...)
}

// Body returns the accumulated body lines of surface id.
func (b *Blocks) Body(id int) []string {
	return b.bodies[id]
}
