// Package resource 提供 shell/balloon/ghost 资源的统一读取接口
//
// 资源可以是普通目录，也可以是 zip 压缩包。
// 两种来源对调用方完全透明：Exists/ReadFile/Open 的行为一致。
package resource

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
)

// Loader 资源读取器
// 路径统一使用正斜杠，大小写不敏感（兼容 Windows 制作的资源包）
type Loader struct {
	root   string            // 目录路径或 zip 文件路径
	fsys   fs.FS             // 实际的文件系统
	zip    *zip.ReadCloser   // zip 来源时非 nil，Close 后置空
	isZip  bool              // 是否来自 zip 文件
	lookup map[string]string // 小写路径 -> 实际路径
}

// Open 打开目录或 zip 文件作为资源来源
//
// 参数：
//   - root: 资源目录或 .zip 文件路径
//
// 返回：
//   - *Loader: 资源读取器
//   - error: 路径不存在或 zip 损坏时返回错误
func Open(root string) (*Loader, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat resource %s: %w", root, err)
	}

	if info.IsDir() {
		return NewFS(root, os.DirFS(root))
	}

	if !IsZip(root) {
		return nil, fmt.Errorf("resource %s is neither a directory nor a zip file", root)
	}

	zr, err := zip.OpenReader(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip %s: %w", root, err)
	}

	// 压缩包内只有一个顶层目录时，以该目录为根
	var fsys fs.FS = zr
	if top := singleTopDir(zr.File); top != "" {
		sub, err := fs.Sub(zr, top)
		if err == nil {
			fsys = sub
		}
	}

	l, err := NewFS(root, fsys)
	if err != nil {
		zr.Close()
		return nil, err
	}
	l.zip = zr
	l.isZip = true
	return l, nil
}

// NewFS 以任意 fs.FS 创建读取器（测试中可传入 fstest.MapFS）
func NewFS(root string, fsys fs.FS) (*Loader, error) {
	l := &Loader{
		root:   root,
		fsys:   fsys,
		lookup: make(map[string]string),
	}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		l.lookup[strings.ToLower(p)] = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index resource %s: %w", root, err)
	}
	return l, nil
}

// IsZip 判断路径是否为 zip 文件（仅检查扩展名）
func IsZip(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".zip")
}

func singleTopDir(files []*zip.File) string {
	top := ""
	for _, f := range files {
		name := strings.TrimPrefix(f.Name, "/")
		first, _, nested := strings.Cut(name, "/")
		if !nested && !f.FileInfo().IsDir() {
			// 根目录下存在文件
			return ""
		}
		if top == "" {
			top = first
		} else if top != first {
			return ""
		}
	}
	return top
}

// Root 返回资源的原始路径
func (l *Loader) Root() string {
	return l.root
}

// Name 返回资源名（目录名或去掉扩展名的 zip 文件名）
func (l *Loader) Name() string {
	base := filepath.Base(l.root)
	if l.IsZip() {
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return base
}

// IsZip 报告资源是否来自 zip 文件
func (l *Loader) IsZip() bool {
	return l.isZip
}

func (l *Loader) resolve(name string) (string, bool) {
	name = path.Clean(filepath.ToSlash(strings.TrimPrefix(name, "./")))
	p, ok := l.lookup[strings.ToLower(name)]
	return p, ok
}

// Exists 检查文件是否存在
func (l *Loader) Exists(name string) bool {
	_, ok := l.resolve(name)
	return ok
}

// ReadFile 读取文件内容
func (l *Loader) ReadFile(name string) ([]byte, error) {
	p, ok := l.resolve(name)
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", name, fs.ErrNotExist)
	}
	return fs.ReadFile(l.fsys, p)
}

// OpenFile 打开文件
func (l *Loader) OpenFile(name string) (fs.File, error) {
	p, ok := l.resolve(name)
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", name, fs.ErrNotExist)
	}
	return l.fsys.Open(p)
}

// Files 返回所有文件路径（已排序，不含目录）
func (l *Loader) Files() []string {
	var out []string
	for _, p := range l.lookup {
		if info, err := fs.Stat(l.fsys, p); err == nil && !info.IsDir() {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Glob 返回匹配模式的文件路径（大小写不敏感）
func (l *Loader) Glob(pattern string) []string {
	pattern = strings.ToLower(pattern)
	var out []string
	for lower, p := range l.lookup {
		if ok, _ := path.Match(pattern, lower); ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// ReadImage 读取并解码图片
func (l *Loader) ReadImage(name string) (image.Image, error) {
	data, err := l.ReadFile(name)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", name, err)
	}
	return img, nil
}

// Close 释放 zip 句柄，目录来源时为空操作
func (l *Loader) Close() error {
	if l.zip == nil {
		return nil
	}
	err := l.zip.Close()
	l.zip = nil
	return err
}

// IsNotExist 判断错误是否为文件不存在
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

var _ io.Closer = (*Loader)(nil)
