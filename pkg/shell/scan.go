package shell

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/gonewx/kikka/pkg/resource"
)

// Scan opens every shell found in dir (subdirectories and zip files).
// Entries without a usable descript.txt are logged and skipped, as are
// shells whose ID was already seen. The result is ordered by entry name.
//
// Parameters:
//   - dir: the directory holding shells, e.g. "Ghosts/kikka/Shell"
//
// Returns:
//   - []*Shell: the shells that could be opened
//   - error: only when dir itself cannot be read
func Scan(dir string) ([]*Shell, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read shell directory %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []*Shell
	seen := make(map[string]bool)
	for _, e := range entries {
		if !e.IsDir() && !resource.IsZip(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())

		l, err := resource.Open(p)
		if err != nil {
			log.Printf("[Shell] Warning: skip %s: %v", p, err)
			continue
		}
		s, err := New(l)
		if err != nil {
			log.Printf("[Shell] Warning: skip %s: %v", p, err)
			l.Close()
			continue
		}
		if seen[s.ID] {
			log.Printf("[Shell] Warning: duplicate shell %s in %s skipped", s.ID, p)
			l.Close()
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out, nil
}
