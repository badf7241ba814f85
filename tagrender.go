package mp4tag

import (
	"fmt"
	"sort"
	"strings"
)

func renderText(values []Value) ([]byte, error) {
	var out []byte
	for _, v := range values {
		t, ok := v.(TextValue)
		if !ok {
			return nil, &InvalidValueError{Reason: "expected a text value"}
		}
		out = append(out, buildDataAtom(flagsUTF8, []byte(t))...)
	}
	return out, nil
}

func renderBytes(values []Value) ([]byte, error) {
	var out []byte
	for _, v := range values {
		b, ok := v.(ByteValue)
		if !ok {
			return nil, &InvalidValueError{Reason: "expected a byte value"}
		}
		out = append(out, buildDataAtom(flagsBinary, b)...)
	}
	return out, nil
}

func renderBool(values []Value) ([]byte, error) {
	var out []byte
	for _, v := range values {
		b, ok := v.(Bool)
		if !ok {
			return nil, &InvalidValueError{Reason: "expected a bool value"}
		}
		val := byte(0)
		if b {
			val = 1
		}
		out = append(out, buildDataAtom(flagsBoolTempo, []byte{val})...)
	}
	return out, nil
}

func renderIntPair(values []Value) ([]byte, error) {
	var out []byte
	for _, v := range values {
		p, ok := v.(IntPair)
		if !ok {
			return nil, &InvalidValueError{Reason: "expected an int pair value"}
		}
		buf := make([]byte, 8)
		be.PutUint16(buf[2:4], uint16(p.Index))
		be.PutUint16(buf[4:6], uint16(p.Total))
		out = append(out, buildDataAtom(flagsBinary, buf)...)
	}
	return out, nil
}

func renderIntPairShort(values []Value) ([]byte, error) {
	var out []byte
	for _, v := range values {
		p, ok := v.(IntPair)
		if !ok {
			return nil, &InvalidValueError{Reason: "expected an int pair value"}
		}
		buf := make([]byte, 6)
		be.PutUint16(buf[2:4], uint16(p.Index))
		be.PutUint16(buf[4:6], uint16(p.Total))
		out = append(out, buildDataAtom(flagsBinary, buf)...)
	}
	return out, nil
}

func renderTempo(values []Value) ([]byte, error) {
	var out []byte
	for _, v := range values {
		t, ok := v.(Tempo)
		if !ok {
			return nil, &InvalidValueError{Reason: "expected a tempo value"}
		}
		buf := make([]byte, 2)
		be.PutUint16(buf, uint16(t))
		out = append(out, buildDataAtom(flagsBoolTempo, buf)...)
	}
	return out, nil
}

func renderCover(values []Value) ([]byte, error) {
	var out []byte
	for _, v := range values {
		c, ok := v.(Cover)
		if !ok {
			return nil, &InvalidValueError{Reason: "expected a cover value"}
		}
		flags := uint32(flagsJPEG)
		if c.Format == CoverFormatPNG {
			flags = flagsPNG
		}
		out = append(out, buildDataAtom(flags, c.Data)...)
	}
	return out, nil
}

func renderFreeform(ff Freeform) ([]byte, error) {
	mean := append(EncodeHeader(typeMean, int64(4+len(ff.Mean))), buildFreeformChild(ff.Mean)...)
	name := append(EncodeHeader(typeName, int64(4+len(ff.Name))), buildFreeformChild(ff.Name)...)
	flags := ff.Flags
	if flags == 0 {
		flags = flagsUTF8
	}
	data := buildDataAtom(flags, ff.Data)

	body := append(mean, name...)
	body = append(body, data...)
	return append(EncodeHeader(typeFreeform, int64(len(body))), body...), nil
}

// buildFreeformChild encodes a mean/name sub-atom body: a 4-byte
// version+flags field (flags=1, UTF-8) followed by the literal string.
func buildFreeformChild(s string) []byte {
	buf := make([]byte, 4+len(s))
	be.PutUint32(buf[0:4], flagsUTF8)
	copy(buf[4:], s)
	return buf
}

func isFreeformKey(key string) bool {
	return strings.HasPrefix(key, "----:")
}

// tagOrder is iTunes' own fixed tag-relevance order. Anything not on
// this list sorts after everything that is.
var tagOrder = []string{
	"\xa9nam", "\xa9ART", "\xa9wrt", "\xa9alb",
	"\xa9gen", "gnre", "trkn", "disk",
	"\xa9day", "cpil", "pgap", "pcst", "tmpo",
	"\xa9too", "----", "covr", "\xa9lyr",
}

var tagPriority = func() map[string]int {
	m := make(map[string]int, len(tagOrder))
	for i, k := range tagOrder {
		m[k] = i
	}
	return m
}()

// tagRank reports key's position in tagOrder, matched on its first four
// bytes (so a freeform "----:mean:name" key matches "----"), or
// len(tagOrder) if it isn't on the list at all.
func tagRank(key string) int {
	prefix := key
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	if p, ok := tagPriority[prefix]; ok {
		return p
	}
	return len(tagOrder)
}

// sortedTagKeys orders tags for rendering the way iTunes does: by fixed
// relevance order first, then by how many values the tag carries, then
// by the values themselves, so ties are at least deterministic.
func sortedTagKeys(tags TagMap) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if ra, rb := tagRank(a), tagRank(b); ra != rb {
			return ra < rb
		}
		if la, lb := len(tags[a]), len(tags[b]); la != lb {
			return la < lb
		}
		return fmt.Sprint(tags[a]) < fmt.Sprint(tags[b])
	})
	return keys
}
