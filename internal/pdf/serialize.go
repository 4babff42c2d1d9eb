package pdf

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	pdflib "github.com/digitorus/pdf"
)

// Entry is a dictionary entry whose value is already serialized.
type Entry struct {
	Key   string
	Value string
}

// Ref formats an indirect reference.
func Ref(id uint32, gen uint16) string {
	return fmt.Sprintf("%d %d R", id, gen)
}

// RefOf formats a reference to the object v was loaded from.
func RefOf(v pdflib.Value) string {
	ptr := v.GetPtr()
	return Ref(uint32(ptr.GetID()), uint16(ptr.GetGen()))
}

// indirect reports whether v was reached through a reference from
// container rather than being stored inline in it. The reader hands direct
// values the pointer of the object that contains them.
func indirect(v, container pdflib.Value) bool {
	vp, cp := v.GetPtr(), container.GetPtr()
	return vp.GetID() != cp.GetID() || vp.GetGen() != cp.GetGen()
}

// Serialize writes v as it has to appear inside container: a reference
// when it is a separate object, its literal value otherwise.
func Serialize(buf *bytes.Buffer, v, container pdflib.Value) {
	if v.Kind() == pdflib.Null {
		buf.WriteString("null")
		return
	}
	if v.Kind() == pdflib.Stream || indirect(v, container) {
		buf.WriteString(RefOf(v))
		return
	}
	writeDirect(buf, v)
}

func writeDirect(buf *bytes.Buffer, v pdflib.Value) {
	switch v.Kind() {
	case pdflib.Bool:
		buf.WriteString(strconv.FormatBool(v.Bool()))
	case pdflib.Integer:
		buf.WriteString(strconv.FormatInt(v.Int64(), 10))
	case pdflib.Real:
		buf.WriteString(strconv.FormatFloat(v.Float64(), 'f', -1, 64))
	case pdflib.String:
		buf.WriteString("<" + hex.EncodeToString([]byte(v.RawString())) + ">")
	case pdflib.Name:
		buf.WriteString(Name(v.Name()))
	case pdflib.Array:
		buf.WriteString("[")
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				buf.WriteString(" ")
			}
			Serialize(buf, v.Index(i), v)
		}
		buf.WriteString("]")
	case pdflib.Dict:
		WriteDict(buf, v, nil)
	default:
		buf.WriteString("null")
	}
}

// WriteDict writes the entries of v, minus those for which skip returns
// true, followed by extra, as a dictionary.
func WriteDict(buf *bytes.Buffer, v pdflib.Value, skip func(key string) bool, extra ...Entry) {
	buf.WriteString("<<")
	if v.Kind() == pdflib.Dict || v.Kind() == pdflib.Stream {
		keys := v.Keys()
		sort.Strings(keys)
		for _, k := range keys {
			if skip != nil && skip(k) {
				continue
			}
			buf.WriteString(" " + Name(k) + " ")
			Serialize(buf, v.Key(k), v)
		}
	}
	for _, e := range extra {
		buf.WriteString(" " + Name(e.Key) + " " + e.Value)
	}
	buf.WriteString(" >>")
}

// MergeResources writes a resource dictionary holding everything in res
// plus the entries in add, keyed by category (XObject, Font, ...).
func MergeResources(buf *bytes.Buffer, res pdflib.Value, add map[string][]Entry) {
	categories := make([]string, 0, len(add))
	for c := range add {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var extra []Entry
	for _, c := range categories {
		if res.Kind() == pdflib.Dict && !res.Key(c).IsNull() {
			continue
		}
		var sub bytes.Buffer
		WriteDict(&sub, pdflib.Value{}, nil, add[c]...)
		extra = append(extra, Entry{Key: c, Value: sub.String()})
	}

	buf.WriteString("<<")
	if res.Kind() == pdflib.Dict {
		keys := res.Keys()
		sort.Strings(keys)
		for _, k := range keys {
			buf.WriteString(" " + Name(k) + " ")
			if entries, ok := add[k]; ok {
				WriteDict(buf, res.Key(k), nil, entries...)
				continue
			}
			Serialize(buf, res.Key(k), res)
		}
	}
	for _, e := range extra {
		buf.WriteString(" " + Name(e.Key) + " " + e.Value)
	}
	buf.WriteString(" >>")
}

// Name formats a PDF name object, escaping delimiters and non-regular
// characters as #xx.
func Name(s string) string {
	var b bytes.Buffer
	b.WriteByte('/')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x21 || c > 0x7e || bytes.IndexByte([]byte("()<>[]{}/%#"), c) >= 0 {
			fmt.Fprintf(&b, "#%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// HasName reports whether the resource category of res (e.g. XObject)
// already defines name.
func HasName(res pdflib.Value, category, name string) bool {
	if res.IsNull() {
		return false
	}
	return !res.Key(category).Key(name).IsNull()
}
