package mp4tag

// dataAtomFlags, the value of the 3-byte flags field inside a data
// atom's version+flags header. These mirror iTunes' own usage; they are
// not a generic "MIME type" registry, just enough to tell text/binary/
// integer payloads apart.
const (
	flagsBinary    = 0  // opaque bytes: purl/egid, trkn/disk payload
	flagsUTF8      = 1  // text tags and freeform mean/name/data
	flagsJPEG      = 13
	flagsPNG       = 14
	flagsBoolTempo = 0x15 // cpil/pgap/pcst and tmpo, per iTunes' own usage
)

// dataAtom is one decoded "data" child atom of a tag atom.
type dataAtom struct {
	flags uint32
	value []byte
}

// parseDataAtoms walks payload (the contents of a tag atom, e.g. the
// bytes inside ©nam) as a sequence of child boxes, and returns every
// "data" atom found, in order. A data atom's own payload begins with a
// 4-byte version+flags field (version in the high byte, must be 0) and
// a 4-byte reserved field, followed by the value. Any child that isn't
// a data atom is unexpected under a tag atom and fails the parse.
func parseDataAtoms(payload []byte, parent BoxType) ([]dataAtom, error) {
	var atoms []dataAtom
	off := 0
	for off+8 <= len(payload) {
		size := int(be.Uint32(payload[off : off+4]))
		if size < 8 || off+size > len(payload) {
			return nil, &MalformedBoxError{Reason: "data atom size out of range"}
		}
		var t BoxType
		copy(t[:], payload[off+4:off+8])
		if t != typeData {
			return nil, &UnexpectedAtomError{Parent: parent, Child: t}
		}
		body := payload[off+8 : off+size]
		if len(body) < 8 {
			return nil, &MalformedBoxError{Reason: "data atom too short"}
		}
		version := body[0]
		if version != 0 {
			return nil, &UnsupportedVersionError{Version: version}
		}
		flags := be.Uint32(body[0:4]) &^ 0xFF000000
		atoms = append(atoms, dataAtom{flags: flags, value: body[8:]})
		off += size
	}
	return atoms, nil
}

// buildDataAtom encodes one "data" child atom with the given flags and
// value.
func buildDataAtom(flags uint32, value []byte) []byte {
	body := make([]byte, 8+len(value))
	be.PutUint32(body[0:4], flags&0x00FFFFFF) // version byte stays 0
	// reserved stays zero
	copy(body[8:], value)
	return append(EncodeHeader(typeData, int64(len(body))), body...)
}

// parseSubBoxes splits payload into a sequence of raw (type, body)
// pairs, used for freeform atoms' mean/name/data children. Anything
// other than mean/name/data under a freeform atom is unexpected.
func parseSubBoxes(payload []byte, parent BoxType) (map[BoxType][]byte, error) {
	out := make(map[BoxType][]byte)
	off := 0
	for off+8 <= len(payload) {
		size := int(be.Uint32(payload[off : off+4]))
		if size < 8 || off+size > len(payload) {
			return nil, &MalformedBoxError{Reason: "sub-box size out of range"}
		}
		var t BoxType
		copy(t[:], payload[off+4:off+8])
		if t != typeMean && t != typeName && t != typeData {
			return nil, &UnexpectedAtomError{Parent: parent, Child: t}
		}
		out[t] = payload[off+8 : off+size]
		off += size
	}
	return out, nil
}
