// Package ghost 管理 ghost：一个或多个角色（soul）、它们共用的 shell 和 balloon、
// 对话会话以及 ghost 自带的 Lua 主脚本
//
// 目录结构：
//
//	Ghosts/kikka/
//	  descript.json          清单，见 Manifest
//	  Ghost/main.lua         主脚本（config.main）
//	  Resource/Shell/...     shell 目录或 zip
//	  Resource/Balloon/...   balloon 目录或 zip
//
// 所有者关系：Ghost 拥有 Soul，Soul 拥有自己的动画集合和窗口；
// Soul 通过 Ghost 访问当前 shell，不持有反向引用以外的共享状态。
package ghost

import (
	"errors"
	"fmt"
	"path"

	"github.com/tidwall/gjson"

	"github.com/gonewx/kikka/pkg/resource"
)

// ManifestFile ghost 清单文件名
const ManifestFile = "descript.json"

// 哨兵错误
var (
	ErrInvalidManifest  = errors.New("invalid ghost manifest")
	ErrNoDefaultShell   = errors.New("no default shell")
	ErrNoDefaultBalloon = errors.New("no default balloon")
	ErrNoSurface        = errors.New("no surface")
)

// Manifest descript.json 的内容
//
//	{"config": {"name": "kikka", "main": "main.lua", "requirements": []}}
type Manifest struct {
	Name         string
	Main         string
	Requirements []string
	// Raw 完整的清单文档，主脚本可以读取自定义字段
	Raw gjson.Result
}

// ParseManifest 解析并校验清单
//
// 参数：
//   - data: descript.json 的内容
//
// 返回：
//   - *Manifest: 清单
//   - error: 格式不合法时返回包装了 ErrInvalidManifest 的错误
func ParseManifest(data []byte) (*Manifest, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidManifest)
	}
	doc := gjson.ParseBytes(data)

	config := doc.Get("config")
	if !config.Exists() {
		return nil, fmt.Errorf("%w: lost key config", ErrInvalidManifest)
	}
	if !config.IsObject() {
		return nil, fmt.Errorf("%w: config must be an object", ErrInvalidManifest)
	}

	name := config.Get("name")
	if !name.Exists() || name.String() == "" {
		return nil, fmt.Errorf("%w: lost key config.name", ErrInvalidManifest)
	}
	main := config.Get("main")
	if !main.Exists() || main.String() == "" {
		return nil, fmt.Errorf("%w: lost key config.main", ErrInvalidManifest)
	}

	m := &Manifest{
		Name: name.String(),
		Main: main.String(),
		Raw:  doc,
	}
	if req := config.Get("requirements"); req.Exists() && req.Type != gjson.Null {
		if !req.IsArray() {
			return nil, fmt.Errorf("%w: config.requirements must be a list", ErrInvalidManifest)
		}
		for _, r := range req.Array() {
			m.Requirements = append(m.Requirements, r.String())
		}
	}
	return m, nil
}

// MainPath 返回主脚本在 ghost 目录中的路径
func (m *Manifest) MainPath() string {
	return path.Join("Ghost", m.Main)
}

// LoadManifest 从 ghost 资源中读取清单，并检查主脚本存在
func LoadManifest(l *resource.Loader) (*Manifest, error) {
	data, err := l.ReadFile(ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s in %s: %w", ManifestFile, l.Root(), err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("ghost %s: %w", l.Root(), err)
	}
	if !l.Exists(m.MainPath()) {
		return nil, fmt.Errorf("ghost %s: %w: lost file %s", l.Root(), ErrInvalidManifest, m.MainPath())
	}
	return m, nil
}
