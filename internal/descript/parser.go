// Package descript parses the comma separated key/value descriptor files
// (descript.txt, surfacetable.txt) shipped with shells and balloons.
//
// A descriptor is a sequence of lines of the form "key,value". Blank lines and
// lines starting with "\", "//" or "#" are comments. Everything before the
// first comma is the key; the remainder is the raw value, which consumers
// split again on commas.
package descript

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
)

// Entry is a single key/value pair of a descriptor file.
type Entry struct {
	Key   string
	Value string
}

// Descript is the parsed content of a descriptor file.
// Keys keep the position of their first appearance; a repeated key overwrites
// the earlier value.
type Descript struct {
	entries []Entry
	index   map[string]int
}

// Parse reads a descriptor from r. The content is decoded with Decode before
// it is split into lines.
//
// Parameters:
//   - r: the raw descriptor bytes (UTF-8 with optional BOM, or a legacy encoding)
//
// Returns:
//   - *Descript: the parsed key/value map
//   - error: only when r cannot be read
func Parse(r io.Reader) (*Descript, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	return ParseBytes(data), nil
}

// ParseBytes decodes data and parses it as a descriptor.
func ParseBytes(data []byte) *Descript {
	return ParseLines(SplitLines(Decode(data)))
}

// ParseLines parses already decoded lines.
// Comment lines are skipped. A retained line without a comma is logged and
// skipped; it never aborts parsing.
func ParseLines(lines []string) *Descript {
	d := &Descript{index: make(map[string]int)}
	for _, raw := range lines {
		line := CleanLine(raw)
		if IsComment(line) {
			continue
		}

		i := strings.IndexByte(line, ',')
		if i < 0 {
			log.Printf("[Descript] Warning: line without comma skipped: %q", line)
			continue
		}
		d.Set(line[:i], line[i+1:])
	}
	return d
}

// SplitLines splits decoded text into lines, accepting \n, \r\n and \r.
func SplitLines(text string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLines)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// scanLines is bufio.ScanLines extended with lone '\r' line endings.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if !atEOF {
				// need one more byte to know whether "\r\n" follows
				return 0, nil, nil
			}
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// CleanLine strips line terminators and surrounding spaces.
func CleanLine(line string) string {
	line = strings.TrimRight(line, "\r\n")
	return strings.Trim(line, " \t")
}

// IsComment reports whether a cleaned line carries no data.
func IsComment(line string) bool {
	return line == "" ||
		strings.HasPrefix(line, `\`) ||
		strings.HasPrefix(line, "//") ||
		strings.HasPrefix(line, "#")
}

// Set stores value under key.
func (d *Descript) Set(key, value string) {
	if i, ok := d.index[key]; ok {
		d.entries[i].Value = value
		return
	}
	d.index[key] = len(d.entries)
	d.entries = append(d.entries, Entry{Key: key, Value: value})
}

// Get returns the raw value stored under key.
func (d *Descript) Get(key string) (string, bool) {
	i, ok := d.index[key]
	if !ok {
		return "", false
	}
	return d.entries[i].Value, true
}

// Entries returns the entries in first-appearance order.
func (d *Descript) Entries() []Entry {
	return d.entries
}

// Len returns the number of distinct keys.
func (d *Descript) Len() int {
	return len(d.entries)
}

// SplitKey splits a dotted key ("menu.font.name") into its parts.
func SplitKey(key string) []string {
	return strings.Split(key, ".")
}

// SplitValue splits a raw value on commas.
func SplitValue(value string) []string {
	return strings.Split(value, ",")
}

// Atoi parses a base-10 integer field of key.
func Atoi(key, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q for key %s: %w", s, key, err)
	}
	return n, nil
}

// Ints parses every element of values as a base-10 integer.
func Ints(key string, values []string) ([]int, error) {
	out := make([]int, len(values))
	for i, v := range values {
		n, err := Atoi(key, v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// Field returns values[i], or "" when the value list is too short.
func Field(values []string, i int) string {
	if i < 0 || i >= len(values) {
		return ""
	}
	return values[i]
}
