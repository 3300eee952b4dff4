package ghost

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/gonewx/kikka/pkg/resource"
)

// Entry 扫描到的一个 ghost，尚未初始化
type Entry struct {
	Dir      string
	Loader   *resource.Loader
	Manifest *Manifest
}

// Scan 扫描 dir 下的 ghost 目录
//
// 清单缺失或不合法的目录被跳过；与已扫描到的 ghost 同名的也被跳过。
// ghost 的 Resource 目录需要在文件系统中扫描，所以只接受目录，不接受 zip。
//
// 参数：
//   - dir: ghost 根目录，如 "Ghosts"
//
// 返回：
//   - []*Entry: 按目录名排序的 ghost
//   - error: dir 本身无法读取时返回错误
func Scan(dir string) ([]*Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read ghost directory %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []*Entry
	seen := make(map[string]bool)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		l, err := resource.Open(p)
		if err != nil {
			log.Printf("[Ghost] Warning: skip %s: %v", p, err)
			continue
		}
		m, err := LoadManifest(l)
		if err != nil {
			log.Printf("[Ghost] Warning: skip %s: %v", p, err)
			l.Close()
			continue
		}
		if seen[m.Name] {
			log.Printf("[Ghost] Warning: %s(%s) load FAIL. name has been exist", m.Name, p)
			l.Close()
			continue
		}
		seen[m.Name] = true
		log.Printf("[Ghost] add ghost: %s", m.Name)
		out = append(out, &Entry{Dir: p, Loader: l, Manifest: m})
	}
	log.Printf("[Ghost] ghost scan finish: count %d", len(out))
	return out, nil
}
