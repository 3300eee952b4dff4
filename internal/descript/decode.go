package descript

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// fallbackEncodings are tried in order when the data is not valid UTF-8.
var fallbackEncodings = []encoding.Encoding{
	simplifiedchinese.GBK,
	japanese.ShiftJIS,
	simplifiedchinese.GB18030,
	traditionalchinese.Big5,
	unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
}

// Decode converts raw resource bytes to a Go string.
// A UTF-8 or UTF-16 BOM selects the encoding and is removed. Without BOM,
// valid UTF-8 is used as is; otherwise the first legacy encoding that decodes
// without replacement characters wins. Undecodable data is returned unchanged.
func Decode(data []byte) string {
	if bytes.HasPrefix(data, bomUTF8) || bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err == nil {
			return string(out)
		}
	}

	if utf8.Valid(data) {
		return string(data)
	}

	for _, enc := range fallbackEncodings {
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil || !utf8.Valid(out) || bytes.ContainsRune(out, utf8.RuneError) {
			continue
		}
		return string(out)
	}
	return string(data)
}
