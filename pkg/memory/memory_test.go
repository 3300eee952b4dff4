package memory

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/quasilyte/gdata/v2"
)

// newTestManager 在临时 HOME 下创建 gdata Manager
func newTestManager(t *testing.T) *gdata.Manager {
	t.Helper()
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_DATA_HOME", tempDir)

	m, err := gdata.Open(gdata.Config{
		AppName: fmt.Sprintf("kikka_memory_test_%d", time.Now().UnixNano()),
	})
	if err != nil {
		t.Fatalf("Failed to create gdata manager: %v", err)
	}
	return m
}

// TestDegradedMode 测试 nil Manager 时只在内存中读写
func TestDegradedMode(t *testing.T) {
	s := New(nil)
	if s.IsPersistent() {
		t.Error("IsPersistent: got true for nil manager")
	}

	if got := s.Read("ghost_kikka", "CurrentShellName", "default", 0); got != "default" {
		t.Errorf("Read missing: got %q, want default", got)
	}

	if err := s.Write("ghost_kikka", "CurrentShellName", "kikka2", 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := s.Read("ghost_kikka", "CurrentShellName", "default", 0); got != "kikka2" {
		t.Errorf("Read: got %q, want kikka2", got)
	}
}

// TestTypedValues 测试各类型读写和 soul 隔离
func TestTypedValues(t *testing.T) {
	s := New(nil)
	tb := s.Table("ghost_kikka")

	tb.Write("BootThis", 1700000000, 0)
	tb.Write("isLockOnTaskBar", true, 0)
	tb.Write("ClothBind.kikka.zip", []int{3, 1}, 1)
	tb.Write("ShellRect", map[string]int{"x": 10, "y": 20, "w": 100, "h": 200}, 1)

	if got := tb.ReadInt("BootThis", 0, 0); got != 1700000000 {
		t.Errorf("ReadInt: got %d", got)
	}
	if !tb.ReadBool("isLockOnTaskBar", false, 0) {
		t.Error("ReadBool: got false")
	}
	if tb.ReadBool("isLockOnTaskBar", false, 1) {
		t.Error("soul 1 should not see soul 0 values")
	}

	ids, ok := tb.ReadInts("ClothBind.kikka.zip", 1)
	if !ok || !reflect.DeepEqual(ids, []int{3, 1}) {
		t.Errorf("ReadInts: got %v, %v", ids, ok)
	}
	if _, ok := tb.ReadInts("ClothBind", 1); ok {
		t.Error("dotted key should not create nested objects")
	}

	r, ok := tb.Get("ShellRect", 1)
	if !ok || r.Get("w").Int() != 100 {
		t.Errorf("Get object: got %v, %v", r, ok)
	}

	if err := tb.Delete("BootThis", 0); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := tb.Get("BootThis", 0); ok {
		t.Error("key still present after Delete")
	}
}

// TestPersistence 测试写入后新的 Store 能读回数据
func TestPersistence(t *testing.T) {
	m := newTestManager(t)

	s1 := New(m)
	if !s1.IsPersistent() {
		t.Fatal("IsPersistent: got false")
	}
	if err := s1.Write("ghost_kikka", "CurrentBalloonName", "kikka_balloon", 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s1.Write("ghost kikka/2", "UserName", "Bob", 0); err != nil {
		t.Fatalf("Write with odd table name: %v", err)
	}

	s2 := New(m)
	if got := s2.Read("ghost_kikka", "CurrentBalloonName", "", 0); got != "kikka_balloon" {
		t.Errorf("persisted value: got %q", got)
	}
	if got := s2.Read("ghost kikka/2", "UserName", "", 0); got != "Bob" {
		t.Errorf("persisted odd table: got %q", got)
	}
}

// TestPropKey 测试表名编码
func TestPropKey(t *testing.T) {
	tests := []struct {
		name  string
		table string
		want  string
	}{
		{"字母数字", "kikka-2", "kikka-2"},
		{"下划线", "ghost_kikka", "ghost_5fkikka"},
		{"空格和斜杠", "a b/c", "a_20b_2fc"},
		{"非 ASCII", "あ", "_e3_81_82"},
		{"空表名", "", "_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := propKey(tt.table); got != tt.want {
				t.Errorf("propKey(%q): got %q, want %q", tt.table, got, tt.want)
			}
		})
	}
}

// TestPropKeyDistinct 测试只有非 ASCII 字符不同的表名不会互相覆盖
func TestPropKeyDistinct(t *testing.T) {
	tables := []string{"ghost_あい", "ghost_かき", "ghost___", "ghost_5f", "ghost 5f", ""}
	seen := make(map[string]string)
	for _, tb := range tables {
		k := propKey(tb)
		if prev, ok := seen[k]; ok {
			t.Errorf("propKey(%q) == propKey(%q) == %q", tb, prev, k)
		}
		seen[k] = tb
	}

	m := newTestManager(t)
	s1 := New(m)
	if err := s1.Write("ghost_あい", "CurrentShellName", "A", 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s1.Write("ghost_かき", "CurrentShellName", "B", 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	s2 := New(m)
	if got := s2.Read("ghost_あい", "CurrentShellName", "", 0); got != "A" {
		t.Errorf("ghost_あい: got %q, want A", got)
	}
	if got := s2.Read("ghost_かき", "CurrentShellName", "", 0); got != "B" {
		t.Errorf("ghost_かき: got %q, want B", got)
	}
}
