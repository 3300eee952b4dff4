// Package memory 持久化的键值存储
//
// 数据按表（table）组织，每张表是一个 JSON 文档，键按 soul 分组：
//
//	{"soul0": {"CurrentShellName": "kikka", "ClothBind.kikka": [1, 3]}}
//
// 文档通过 gdata 保存到平台数据目录。gdata Manager 为 nil 时进入降级模式，
// 数据只保存在内存中。
package memory

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/quasilyte/gdata/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// gdata 中保存所有表的对象名
const storeObject = "memory"

// Store 键值存储
//
// 非并发安全，与核心其他部分一样只在 tick goroutine 中使用。
type Store struct {
	manager *gdata.Manager      // gdata 存储管理器，可为 nil（降级模式）
	tables  map[string]string   // 表名 -> JSON 文档
	loaded  map[string]struct{} // 已从 gdata 读取过的表
}

// Open 打开应用 appName 的存储
//
// 参数：
//   - appName: gdata 应用名，决定数据目录
//
// 返回：
//   - *Store: 存储实例
//   - error: gdata 初始化失败时返回错误
func Open(appName string) (*Store, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("failed to open data storage %s: %w", appName, err)
	}
	return New(m), nil
}

// New 使用已有的 gdata Manager 创建存储
//
// 参数：
//   - m: gdata 存储管理器，可为 nil（降级模式，仅内存）
func New(m *gdata.Manager) *Store {
	return &Store{
		manager: m,
		tables:  make(map[string]string),
		loaded:  make(map[string]struct{}),
	}
}

// IsPersistent 是否会把数据写入磁盘
func (s *Store) IsPersistent() bool {
	return s.manager != nil
}

// Get 读取 soul 在 table 中的键 key
//
// 返回：
//   - gjson.Result: 值
//   - bool: 键不存在时为 false
func (s *Store) Get(table, key string, soul int) (gjson.Result, bool) {
	r := gjson.Get(s.doc(table), path(key, soul))
	return r, r.Exists()
}

// Read 读取字符串，不存在时返回 def
func (s *Store) Read(table, key, def string, soul int) string {
	if r, ok := s.Get(table, key, soul); ok {
		return r.String()
	}
	return def
}

// ReadInt 读取整数，不存在时返回 def
func (s *Store) ReadInt(table, key string, def, soul int) int {
	if r, ok := s.Get(table, key, soul); ok {
		return int(r.Int())
	}
	return def
}

// ReadBool 读取布尔值，不存在时返回 def
func (s *Store) ReadBool(table, key string, def bool, soul int) bool {
	if r, ok := s.Get(table, key, soul); ok {
		return r.Bool()
	}
	return def
}

// ReadInts 读取整数数组
func (s *Store) ReadInts(table, key string, soul int) ([]int, bool) {
	r, ok := s.Get(table, key, soul)
	if !ok || !r.IsArray() {
		return nil, false
	}
	var out []int
	for _, v := range r.Array() {
		out = append(out, int(v.Int()))
	}
	return out, true
}

// Write 写入值并立即保存
//
// 参数：
//   - table: 表名
//   - key: 键名，可以包含 '.'
//   - value: 任意可 JSON 序列化的值
//   - soul: soul 编号
//
// 返回：
//   - error: 序列化或保存失败时返回错误（降级模式下只会有序列化错误）
func (s *Store) Write(table, key string, value any, soul int) error {
	doc, err := sjson.Set(s.doc(table), path(key, soul), value)
	if err != nil {
		return fmt.Errorf("failed to write memory %s/%s: %w", table, key, err)
	}
	s.tables[table] = doc
	return s.save(table)
}

// Delete 删除键并立即保存
func (s *Store) Delete(table, key string, soul int) error {
	doc, err := sjson.Delete(s.doc(table), path(key, soul))
	if err != nil {
		return fmt.Errorf("failed to delete memory %s/%s: %w", table, key, err)
	}
	s.tables[table] = doc
	return s.save(table)
}

// doc 返回表的 JSON 文档，首次访问时从 gdata 读取
func (s *Store) doc(table string) string {
	if _, ok := s.loaded[table]; ok || s.manager == nil {
		if d, ok := s.tables[table]; ok {
			return d
		}
		return "{}"
	}
	s.loaded[table] = struct{}{}

	doc := "{}"
	prop := propKey(table)
	if s.manager.ObjectPropExists(storeObject, prop) {
		data, err := s.manager.LoadObjectProp(storeObject, prop)
		switch {
		case err != nil:
			log.Printf("[Memory] Warning: Failed to load table %s: %v", table, err)
		case !gjson.ValidBytes(data):
			log.Printf("[Memory] Warning: table %s is not valid JSON, starting empty", table)
		default:
			doc = string(data)
		}
	}
	s.tables[table] = doc
	return doc
}

func (s *Store) save(table string) error {
	if s.manager == nil {
		return nil
	}
	if err := s.manager.SaveObjectProp(storeObject, propKey(table), []byte(s.tables[table])); err != nil {
		return fmt.Errorf("failed to save memory table %s: %w", table, err)
	}
	return nil
}

// Table 绑定表名的便捷视图
type Table struct {
	store *Store
	name  string
}

// Table 返回表 name 的视图
func (s *Store) Table(name string) *Table {
	return &Table{store: s, name: name}
}

// Name 返回表名
func (t *Table) Name() string { return t.name }

// Get 见 Store.Get
func (t *Table) Get(key string, soul int) (gjson.Result, bool) {
	return t.store.Get(t.name, key, soul)
}

// Read 见 Store.Read
func (t *Table) Read(key, def string, soul int) string {
	return t.store.Read(t.name, key, def, soul)
}

// ReadInt 见 Store.ReadInt
func (t *Table) ReadInt(key string, def, soul int) int {
	return t.store.ReadInt(t.name, key, def, soul)
}

// ReadBool 见 Store.ReadBool
func (t *Table) ReadBool(key string, def bool, soul int) bool {
	return t.store.ReadBool(t.name, key, def, soul)
}

// ReadInts 见 Store.ReadInts
func (t *Table) ReadInts(key string, soul int) ([]int, bool) {
	return t.store.ReadInts(t.name, key, soul)
}

// Write 见 Store.Write
func (t *Table) Write(key string, value any, soul int) error {
	return t.store.Write(t.name, key, value, soul)
}

// Delete 见 Store.Delete
func (t *Table) Delete(key string, soul int) error {
	return t.store.Delete(t.name, key, soul)
}

// path 生成 gjson/sjson 路径 soulN.key，转义键中的路径特殊字符
func path(key string, soul int) string {
	var b strings.Builder
	b.WriteString("soul")
	b.WriteString(strconv.Itoa(soul))
	b.WriteByte('.')
	for _, r := range key {
		switch r {
		case '.', '*', '?':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// propKey 把表名编码为 gdata 可用的属性名
//
// ASCII 字母、数字和 '-' 原样保留，其余每个字节编码为 "_" 加两位十六进制，
// 因此不同的表名总是得到不同的属性名。空表名编码为 "_"。
func propKey(table string) string {
	if table == "" {
		return "_"
	}
	const hexDigits = "0123456789abcdef"
	var b strings.Builder
	for i := 0; i < len(table); i++ {
		c := table[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		}
	}
	return b.String()
}
