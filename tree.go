package mp4tag

import (
	"encoding/binary"
)

var be = binary.BigEndian

// Box is one parsed ISO BMFF box. Offset/HeaderLen/Length describe its
// position in the file; Children is populated for container box types.
type Box struct {
	Offset    int64
	HeaderLen int64
	Length    int64 // total length including header; 0 means "extends to EOF"
	Type      BoxType
	Children  []*Box
}

// PayloadOffset returns the absolute offset of this box's payload.
func (b *Box) PayloadOffset() int64 {
	return b.Offset + b.HeaderLen
}

// PayloadLength returns the length of this box's payload in bytes, given
// the total file size (needed when Length is 0, meaning "to EOF").
func (b *Box) PayloadLength(fileSize int64) int64 {
	if b.Length == 0 {
		return fileSize - b.PayloadOffset()
	}
	return b.Length - b.HeaderLen
}

// End returns the absolute offset just past this box, given the file
// size (needed for an EOF-extending top-level box).
func (b *Box) End(fileSize int64) int64 {
	if b.Length == 0 {
		return fileSize
	}
	return b.Offset + b.Length
}

// BoxTree is the parsed structure of one file: a flat sequence of
// top-level boxes (ftyp, moov, mdat, ...), recursively expanded wherever
// the box type is a known container.
type BoxTree struct {
	Boxes []*Box
	size  int64
}

// Parse reads box headers from c, recursing into container box types,
// and returns the top-level box sequence. Only headers are read; leaf
// payloads are read on demand by callers via the Cursor.
func Parse(c *Cursor) (*BoxTree, error) {
	size, err := c.Size()
	if err != nil {
		return nil, err
	}
	boxes, err := parseSequence(c, 0, size, true)
	if err != nil {
		return nil, err
	}
	return &BoxTree{Boxes: boxes, size: size}, nil
}

// parseSequence parses sibling boxes in [start, end). top indicates
// whether a zero-length final box may extend to EOF (only legal for a
// top-level box, per the format).
func parseSequence(c *Cursor, start, end int64, top bool) ([]*Box, error) {
	var boxes []*Box
	off := start
	for off < end {
		box, next, err := parseOne(c, off, end, top)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, box)
		off = next
	}
	return boxes, nil
}

func parseOne(c *Cursor, off, seqEnd int64, top bool) (*Box, int64, error) {
	hdr := make([]byte, 8)
	if err := c.ReadAt(hdr, off); err != nil {
		return nil, 0, err
	}
	size32 := be.Uint32(hdr[0:4])
	var boxType BoxType
	copy(boxType[:], hdr[4:8])

	headerLen := int64(8)
	var length int64

	switch {
	case size32 == 1:
		ext := make([]byte, 8)
		if err := c.ReadAt(ext, off+8); err != nil {
			return nil, 0, err
		}
		length = int64(be.Uint64(ext))
		headerLen = 16
	case size32 == 0:
		if !top {
			return nil, 0, &MalformedBoxError{Offset: off, Reason: "zero-size box in a non-top-level container"}
		}
		length = 0 // extends to EOF
	case size32 < 8:
		return nil, 0, &MalformedBoxError{Offset: off, Reason: "box size smaller than header"}
	default:
		length = int64(size32)
	}

	box := &Box{Offset: off, HeaderLen: headerLen, Length: length, Type: boxType}

	childStart := box.PayloadOffset() + int64(versionPrefixLen(boxType))
	boxEnd := box.End(seqEnd)
	if length != 0 && length < headerLen {
		return nil, 0, &MalformedBoxError{Offset: off, Reason: "box shorter than its own header"}
	}

	if isContainer(boxType) {
		children, err := parseSequence(c, childStart, boxEnd, false)
		if err != nil {
			return nil, 0, err
		}
		box.Children = children
	}

	return box, boxEnd, nil
}

// Path walks the tree by a sequence of FourCCs, one argument per level
// (e.g. Path("moov", "udta", "meta", "ilst")), and returns the first
// matching box, or a *NotFoundError.
func (t *BoxTree) Path(path ...string) (*Box, error) {
	boxes := t.Boxes
	var found *Box
	for _, name := range path {
		found = findChild(boxes, newBoxType(name))
		if found == nil {
			return nil, &NotFoundError{Path: joinPath(path)}
		}
		boxes = found.Children
	}
	return found, nil
}

func findChild(boxes []*Box, t BoxType) *Box {
	for _, b := range boxes {
		if b.Type == t {
			return b
		}
	}
	return nil
}

// FindAll returns every box of the given type anywhere in the tree,
// depth-first.
func (t *BoxTree) FindAll(boxType string) []*Box {
	want := newBoxType(boxType)
	var out []*Box
	var walk func([]*Box)
	walk = func(boxes []*Box) {
		for _, b := range boxes {
			if b.Type == want {
				out = append(out, b)
			}
			if b.Children != nil {
				walk(b.Children)
			}
		}
	}
	walk(t.Boxes)
	return out
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

// EncodeHeader writes a box header (size + FourCC, plus an 8-byte
// extension when length requires a 64-bit size field) for a payload of
// the given length.
func EncodeHeader(t BoxType, payloadLen int64) []byte {
	total := payloadLen + 8
	if total > 0xFFFFFFFF {
		hdr := make([]byte, 16)
		be.PutUint32(hdr[0:4], 1)
		copy(hdr[4:8], t[:])
		be.PutUint64(hdr[8:16], uint64(total+8))
		return hdr
	}
	hdr := make([]byte, 8)
	be.PutUint32(hdr[0:4], uint32(total))
	copy(hdr[4:8], t[:])
	return hdr
}
