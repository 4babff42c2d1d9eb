package pdf

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// String formats text as a PDF text string: a literal string for ASCII,
// UTF-16BE with byte order mark (hex encoded) otherwise.
func String(text string) string {
	if !isASCII(text) {
		enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
		res, _, err := transform.String(enc, text)
		if err == nil {
			return "<" + hex.EncodeToString([]byte(res)) + ">"
		}
	}

	r := strings.NewReplacer(`\`, `\\`, `)`, `\)`, `(`, `\(`, "\r", `\r`)
	return "(" + r.Replace(text) + ")"
}

// Date formats t as a PDF date string, e.g. (D:20240102150405+01'00').
func Date(t time.Time) string {
	_, offset := t.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return String(fmt.Sprintf("D:%s%s%02d'%02d'", t.Format("20060102150405"), sign, offset/3600, (offset%3600)/60))
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > '\u007F' {
			return false
		}
	}
	return true
}
