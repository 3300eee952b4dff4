// Package shell loads shells: named skins made of surfaces for one or more
// characters (souls).
//
// A shell lives in its own directory or zip archive and consists of
// descript.txt, surfaces.txt (plus optional surfaces2.txt, surfaces3.txt, ...),
// an optional surfacetable.txt and the images the surfaces reference.
package shell

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sort"

	"github.com/gonewx/kikka/internal/descript"
	"github.com/gonewx/kikka/internal/surfaces"
	"github.com/gonewx/kikka/pkg/resource"
)

// ErrNoDescript is returned when a shell directory has no descript.txt.
var ErrNoDescript = errors.New("descript.txt not found")

// Shell is a loaded shell.
//
// Descriptor values are read by New; the surfaces themselves are parsed
// lazily by Load because a ghost usually has many shells but shows only one.
//
// Thread Safety Note:
// Shell is not safe for concurrent use. It is driven from the single tick
// goroutine like the rest of the core.
type Shell struct {
	Loader *resource.Loader

	// ID is the internal name ("id" key, or the directory name).
	ID string
	// Name is the display name ("name" key).
	Name        string
	Type        string
	Catalog     string
	Description string
	Version     int
	MaxWidth    int
	Author      Author

	CollisionSort surfaces.SortPolicy
	AnimationSort surfaces.SortPolicy

	Menu     MenuStyle
	Settings map[int]*Setting
	// Alias maps a surface id to candidate surface ids.
	Alias map[int][]int
	// UnknownKeys lists the descriptor entries ("key,value") that were ignored.
	UnknownKeys []string

	surfaces []*surfaces.Surface
	byID     map[int]*surfaces.Surface
	bind     map[int][]int
	images   map[string]image.Image
	loaded   bool
}

// New reads descript.txt from l and returns an unloaded shell.
//
// Parameters:
//   - l: the shell resource (directory or zip)
//
// Returns:
//   - *Shell: the shell with descriptor values applied
//   - error: ErrNoDescript when descript.txt is missing, or a parse error for
//     a malformed integer field
func New(l *resource.Loader) (*Shell, error) {
	s := &Shell{
		Loader:        l,
		Type:          "shell",
		Catalog:       "Normal",
		CollisionSort: surfaces.SortNone,
		AnimationSort: surfaces.SortAscend,
		Menu:          defaultMenuStyle(),
		Settings:      make(map[int]*Setting),
		Alias:         make(map[int][]int),
		byID:          make(map[int]*surfaces.Surface),
		bind:          make(map[int][]int),
		images:        make(map[string]image.Image),
	}

	data, err := l.ReadFile("descript.txt")
	if err != nil {
		if resource.IsNotExist(err) {
			return nil, fmt.Errorf("shell %s: %w", l.Root(), ErrNoDescript)
		}
		return nil, fmt.Errorf("failed to read shell descript %s: %w", l.Root(), err)
	}
	if err := s.applyDescript(descript.ParseBytes(data)); err != nil {
		return nil, errorf(l.Root(), "%w", err)
	}

	if s.ID == "" {
		s.ID = l.Name()
	}
	if s.Name == "" {
		s.Name = s.ID
	}
	return s, nil
}

// Load parses the surface files. It is a no-op when already loaded.
func (s *Shell) Load() error {
	if s.loaded {
		return nil
	}
	log.Printf("[Shell] Loading shell: %s", s.Name)

	blocks := surfaces.NewBlocks()
	if !s.Loader.Exists("surfaces.txt") {
		log.Printf("[Shell] Warning: %s has no surfaces.txt", s.Name)
	}
	for i := 1; ; i++ {
		name := "surfaces.txt"
		if i > 1 {
			name = fmt.Sprintf("surfaces%d.txt", i)
		}
		data, err := s.Loader.ReadFile(name)
		if err != nil {
			if i == 1 && resource.IsNotExist(err) {
				continue
			}
			break
		}
		blocks.ReadLines(descript.SplitLines(descript.Decode(data)))
	}

	if err := s.applySurfacesDescript(blocks.Descript); err != nil {
		return errorf(s.ID, "%w", err)
	}
	for id, ids := range blocks.Alias {
		s.Alias[id] = ids
	}

	s.surfaces = surfaces.BuildAll(blocks, surfaces.Policy{
		Animation: s.AnimationSort,
		Collision: s.CollisionSort,
	})
	s.byID = make(map[int]*surfaces.Surface, len(s.surfaces))
	for _, sf := range s.surfaces {
		s.byID[sf.ID] = sf
	}

	if data, err := s.Loader.ReadFile("surfacetable.txt"); err == nil {
		s.parseSurfaceTable(data)
	}

	s.loaded = true
	return nil
}

// Reload drops the parsed surfaces and the image cache and loads them again.
func (s *Shell) Reload() error {
	s.loaded = false
	s.images = make(map[string]image.Image)
	return s.Load()
}

// IsLoaded reports whether the surfaces have been parsed.
func (s *Shell) IsLoaded() bool {
	return s.loaded
}

// Surface returns the surface with the given id.
func (s *Shell) Surface(id int) (*surfaces.Surface, bool) {
	sf, ok := s.byID[id]
	return sf, ok
}

// Surfaces returns every surface ordered by id.
func (s *Shell) Surfaces() []*surfaces.Surface {
	return s.surfaces
}

// ResolveSurface maps a requested surface id to an existing one.
// An alias entry wins over a direct match; pick chooses among alias
// candidates and receives the number of candidates.
//
// Returns:
//   - int: the resolved surface id
//   - bool: false when neither an alias nor a surface matches
func (s *Shell) ResolveSurface(id int, pick func(n int) int) (int, bool) {
	if ids, ok := s.Alias[id]; ok && len(ids) > 0 {
		i := 0
		if pick != nil && len(ids) > 1 {
			i = pick(len(ids))
		}
		if _, ok := s.byID[ids[i]]; ok {
			return ids[i], true
		}
	}
	if _, ok := s.byID[id]; ok {
		return id, true
	}
	return 0, false
}

// CollisionBoxes returns the hit boxes of surface id.
func (s *Shell) CollisionBoxes(id int) []surfaces.CollisionBox {
	if sf, ok := s.byID[id]; ok {
		return sf.CollisionBoxes
	}
	return nil
}

// Setting returns the per-soul setting, creating a default one if needed.
func (s *Shell) Setting(soul int) *Setting {
	st, ok := s.Settings[soul]
	if !ok {
		st = newSetting()
		s.Settings[soul] = st
	}
	return st
}

// Offset returns the composition offset of a soul.
func (s *Shell) Offset(soul int) image.Point {
	if st, ok := s.Settings[soul]; ok {
		return st.Offset
	}
	return image.Point{}
}

// Bind returns the worn bind group ids of a soul in ascending order.
func (s *Shell) Bind(soul int) []int {
	return s.bind[soul]
}

// IsBound reports whether animation aid is worn by soul.
func (s *Shell) IsBound(soul, aid int) bool {
	for _, id := range s.bind[soul] {
		if id == aid {
			return true
		}
	}
	return false
}

// SetClothes wears or removes bind group aid on soul.
func (s *Shell) SetClothes(soul, aid int, enable bool) {
	ids := s.bind[soul]
	if enable {
		if s.IsBound(soul, aid) {
			return
		}
		ids = append(ids, aid)
		sort.Ints(ids)
		s.bind[soul] = ids
		return
	}
	for i, id := range ids {
		if id == aid {
			s.bind[soul] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// ClearClothes removes every worn item of soul.
func (s *Shell) ClearClothes(soul int) {
	delete(s.bind, soul)
}

// Image returns the decoded image name, caching it for later calls.
func (s *Shell) Image(name string) (image.Image, error) {
	if img, ok := s.images[name]; ok {
		return img, nil
	}
	img, err := s.Loader.ReadImage(name)
	if err != nil {
		return nil, err
	}
	s.images[name] = img
	return img, nil
}

// SurfaceImageName returns the image file drawn for a surface without
// elements: surface%04d.png, then surface%d.png. It returns "" when neither
// exists.
func (s *Shell) SurfaceImageName(id int) string {
	for _, name := range []string{fmt.Sprintf("surface%04d.png", id), fmt.Sprintf("surface%d.png", id)} {
		if s.Loader.Exists(name) {
			return name
		}
	}
	return ""
}

// String implements fmt.Stringer.
func (s *Shell) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.ID)
}

func parseSort(v string) (surfaces.SortPolicy, bool) {
	return surfaces.ParseSortPolicy(v)
}
