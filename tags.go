package mp4tag

import "github.com/pkg/errors"

// tagCodec is one entry in the tag dispatch table: how to turn a tag
// atom's raw data-atom payloads into Values, and how to turn Values back
// into a tag atom payload.
type tagCodec struct {
	parse  func(atoms []dataAtom) ([]Value, error)
	render func(values []Value) ([]byte, error)
}

// textKeys are tag atoms holding plain UTF-8 text, one value per data
// atom (multiple data atoms under one key are kept as separate values,
// matching repeated-tag usage in the wild).
var textKeys = []string{
	"\xa9nam", "\xa9ART", "\xa9wrt", "\xa9alb", "\xa9gen", "\xa9lyr", "catg", "keyw",
	"\xa9too", "cprt", "soal", "soaa", "soar", "sonm", "soco", "sosn",
	"tvsh", "aART", "\xa9cmt", "desc", "purd", "\xa9grp", "\xa9day",
}

// byteKeys hold opaque bytes rather than UTF-8 text.
var byteKeys = []string{"purl", "egid"}

// boolKeys are single-byte boolean tags.
var boolKeys = []string{"cpil", "pgap", "pcst"}

var tagCodecs = map[BoxType]*tagCodec{}

func init() {
	for _, k := range textKeys {
		tagCodecs[newBoxType(k)] = &tagCodec{parse: parseText, render: renderText}
	}
	for _, k := range byteKeys {
		tagCodecs[newBoxType(k)] = &tagCodec{parse: parseBytes, render: renderBytes}
	}
	for _, k := range boolKeys {
		tagCodecs[newBoxType(k)] = &tagCodec{parse: parseBool, render: renderBool}
	}
	tagCodecs[typeTrkn] = &tagCodec{parse: parseIntPair, render: renderIntPair}
	tagCodecs[typeDisk] = &tagCodec{parse: parseIntPairShort, render: renderIntPairShort}
	tagCodecs[typeTmpo] = &tagCodec{parse: parseTempo, render: renderTempo}
	tagCodecs[typeCovr] = &tagCodec{parse: parseCover, render: renderCover}
	tagCodecs[typeGnre] = &tagCodec{parse: parseGnre, render: nil} // read-only fallback, never re-written
}

// ParseTags locates moov.udta.meta.ilst and decodes every child tag
// atom into a TagMap. Returns ErrNoTags if the file has no tag list.
func ParseTags(c *Cursor, tree *BoxTree) (TagMap, error) {
	ilst, err := tree.Path("moov", "udta", "meta", "ilst")
	if err != nil {
		return nil, ErrNoTags
	}
	size, err := c.Size()
	if err != nil {
		return nil, err
	}

	tags := make(TagMap)
	var legacyGenre []Value
	for _, child := range ilst.Children {
		payload := make([]byte, child.PayloadLength(size))
		if err := c.ReadAt(payload, child.PayloadOffset()); err != nil {
			return nil, err
		}

		if child.Type == typeFreeform {
			key, val, err := parseFreeform(payload)
			if err != nil {
				return nil, errors.Wrapf(err, "mp4tag: freeform atom at offset %d", child.Offset)
			}
			tags[key] = append(tags[key], val)
			continue
		}

		codec, ok := tagCodecs[child.Type]
		if !ok {
			continue // unknown atom: ignored, not an error, per tolerant-reader design
		}
		atoms, err := parseDataAtoms(payload, child.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "mp4tag: tag atom %q at offset %d", child.Type, child.Offset)
		}
		if codec.parse == nil {
			continue
		}
		values, err := codec.parse(atoms)
		if err != nil {
			return nil, errors.Wrapf(err, "mp4tag: tag atom %q at offset %d", child.Type, child.Offset)
		}
		if child.Type == typeGnre {
			legacyGenre = append(legacyGenre, values...)
			continue
		}
		tags[child.Type.String()] = append(tags[child.Type.String()], values...)
	}
	// gnre only stands in for ©gen when the file carries no ©gen of its own.
	if _, ok := tags[typeGen.String()]; !ok && len(legacyGenre) > 0 {
		tags[typeGen.String()] = legacyGenre
	}
	return tags, nil
}

// RenderTags encodes a TagMap back into the bytes of an ilst box's
// payload (its children, concatenated in the fixed preference order
// of tagOrder, as arranged by sortedTagKeys).
func RenderTags(tags TagMap) ([]byte, error) {
	var out []byte
	for _, key := range sortedTagKeys(tags) {
		values := tags[key]
		if len(values) == 0 {
			continue
		}
		if isFreeformKey(key) {
			for _, v := range values {
				ff, ok := v.(Freeform)
				if !ok {
					return nil, &InvalidValueError{Reason: "freeform key holds a non-Freeform value"}
				}
				b, err := renderFreeform(ff)
				if err != nil {
					return nil, err
				}
				out = append(out, b...)
			}
			continue
		}

		t := newBoxType(key)
		codec, ok := tagCodecs[t]
		if !ok || codec.render == nil {
			continue // gnre and unknown keys are never written
		}
		body, err := codec.render(values)
		if err != nil {
			return nil, errors.Wrapf(err, "mp4tag: rendering tag %q", key)
		}
		out = append(out, EncodeHeader(t, int64(len(body)))...)
		out = append(out, body...)
	}
	return out, nil
}
