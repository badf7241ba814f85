package mp4tag

import (
	"github.com/pkg/errors"
)

// Save splices a freshly rendered ilst payload (as produced by
// RenderTags) back into the file tracked by tree, via c.
//
// When moov.udta.meta.ilst already exists, the old ilst box — plus any
// free box immediately before or after it — is replaced: an exact fit,
// or a fit with 8 or more bytes to spare, is written in place with the
// leftover folded into (or left as) a padding free box, no file size
// change. Anything else grows the file, first padding the new ilst
// payload out to the next 1024-byte boundary the way iTunes itself
// does, so small tag edits don't force a resize on every save.
//
// When no ilst exists at all — even no udta or meta — a brand new meta
// box (version + hdlr + ilst + padding), wrapped in a fresh udta if
// necessary, is inserted as the first child of moov (or of the existing
// udta).
//
// Whenever the file's size actually changes, every ancestor box's size
// field and every absolute offset recorded in stco/co64/tfhd boxes past
// the splice point are corrected to match.
func Save(c *Cursor, tree *BoxTree, newIlstPayload []byte) error {
	if metaPath, err := tree.pathWithAncestors("moov", "udta", "meta"); err == nil {
		meta := metaPath[len(metaPath)-1]
		if ilst := findChild(meta.Children, typeIlst); ilst != nil {
			return saveExisting(c, tree, metaPath, meta, ilst, newIlstPayload)
		}
	}
	return saveNew(c, tree, newIlstPayload)
}

// saveExisting replaces an existing ilst box in place, absorbing any
// free box immediately before or after it into the replaced region.
func saveExisting(c *Cursor, tree *BoxTree, metaPath []*Box, meta *Box, ilst *Box, newIlstPayload []byte) error {
	offset := ilst.Offset
	length := ilst.Length

	idx := siblingIndex(meta.Children, ilst)
	if idx > 0 {
		if prev := meta.Children[idx-1]; prev.Type == typeFree {
			offset = prev.Offset
			length += prev.Length
		}
	}
	if idx >= 0 && idx+1 < len(meta.Children) {
		if next := meta.Children[idx+1]; next.Type == typeFree {
			length += next.Length
		}
	}

	data := append(EncodeHeader(typeIlst, int64(len(newIlstPayload))), newIlstPayload...)
	delta := int64(len(data)) - length

	switch {
	case delta > 0 || (delta < 0 && delta > -8):
		// Not enough room, or only a sliver left over (<8 bytes, too
		// small for its own free box): pad the new ilst out to the next
		// 1024-byte boundary and grow the file to fit.
		data = append(data, padIlstAuto(data)...)
		delta = int64(len(data)) - length
		if err := c.Insert(offset, delta); err != nil {
			return err
		}
	case delta < 0:
		// Room to spare (>= 8 bytes): fill the remainder with a free box
		// instead of resizing the file at all.
		data = append(data, padIlstExact(-delta-8)...)
		delta = 0
	}

	if err := c.WriteAt(data, offset); err != nil {
		return err
	}
	if delta == 0 {
		return nil
	}
	return fixupAfterResize(c, tree, metaPath, offset, delta)
}

// saveNew synthesizes a brand new meta box (version + hdlr + ilst +
// padding) — wrapped in a fresh udta if moov has none — and inserts it
// as the first child of the deepest existing ancestor (udta if present,
// otherwise moov).
func saveNew(c *Cursor, tree *BoxTree, newIlstPayload []byte) error {
	path, err := tree.pathWithAncestors("moov", "udta")
	needUdta := false
	if err != nil {
		path, err = tree.pathWithAncestors("moov")
		if err != nil {
			return err
		}
		needUdta = true
	}

	ilstBytes := append(EncodeHeader(typeIlst, int64(len(newIlstPayload))), newIlstPayload...)

	// The constant handler atom iTunes itself writes for metadata
	// tracks: [version+flags:4][predefined:4]"mdirappl"[reserved:9].
	hdlrBody := make([]byte, 25)
	copy(hdlrBody[8:16], "mdirappl")
	hdlrBytes := append(EncodeHeader(typeHdlr, int64(len(hdlrBody))), hdlrBody...)

	metaBody := make([]byte, 4) // version+flags, zero
	metaBody = append(metaBody, hdlrBytes...)
	metaBody = append(metaBody, ilstBytes...)
	metaBody = append(metaBody, padIlstAuto(ilstBytes)...)
	inserted := append(EncodeHeader(typeMeta, int64(len(metaBody))), metaBody...)

	if needUdta {
		inserted = append(EncodeHeader(typeUdta, int64(len(inserted))), inserted...)
	}

	last := path[len(path)-1]
	offset := last.Offset + last.HeaderLen
	grow := int64(len(inserted))

	if err := c.Insert(offset, grow); err != nil {
		return err
	}
	if err := c.WriteAt(inserted, offset); err != nil {
		return err
	}
	return fixupAfterResize(c, tree, path, offset, grow)
}

// padIlstAuto pads data out to the next 1024-byte boundary with a free
// box, the way iTunes avoids resizing the file on every small edit.
func padIlstAuto(data []byte) []byte {
	rounded := (len(data) + 1023) &^ 1023
	return padIlstExact(int64(rounded - len(data)))
}

// padIlstExact returns a free box with the given payload length.
func padIlstExact(payloadLen int64) []byte {
	return append(EncodeHeader(typeFree, payloadLen), make([]byte, payloadLen)...)
}

// pathWithAncestors is like Path but returns every box along the path,
// innermost last, so callers can patch every ancestor's size field.
func (t *BoxTree) pathWithAncestors(path ...string) ([]*Box, error) {
	boxes := t.Boxes
	var chain []*Box
	for _, name := range path {
		found := findChild(boxes, newBoxType(name))
		if found == nil {
			return nil, &NotFoundError{Path: joinPath(path)}
		}
		chain = append(chain, found)
		boxes = found.Children
	}
	return chain, nil
}

func siblingIndex(siblings []*Box, b *Box) int {
	for i, s := range siblings {
		if s == b {
			return i
		}
	}
	return -1
}

// nextSibling returns the sibling immediately following b, or nil if b
// is last (or not found).
func nextSibling(siblings []*Box, b *Box) *Box {
	i := siblingIndex(siblings, b)
	if i < 0 || i+1 >= len(siblings) {
		return nil
	}
	return siblings[i+1]
}

// fixupAfterResize corrects every ancestor box's size field along
// ancestors (whichever boxes physically contain the resized region) and
// every absolute offset in stco/co64/tfhd boxes that points past
// threshold, after the file grew by delta bytes at threshold.
func fixupAfterResize(c *Cursor, tree *BoxTree, ancestors []*Box, threshold, delta int64) error {
	for _, b := range ancestors {
		if err := growBoxSize(c, b, delta); err != nil {
			return errors.Wrap(err, "mp4tag: updating ancestor size")
		}
	}
	if err := fixupOffsetTables(c, tree, threshold, delta); err != nil {
		return errors.Wrap(err, "mp4tag: updating chunk offset tables")
	}
	return nil
}

// growBoxSize rewrites b's on-disk size field to reflect a change of
// delta bytes in its payload.
func growBoxSize(c *Cursor, b *Box, delta int64) error {
	if b.Length == 0 {
		return nil // EOF-extending box needs no size field update
	}
	newLen := b.Length + delta
	if b.HeaderLen == 16 {
		buf := make([]byte, 8)
		be.PutUint64(buf, uint64(newLen))
		return c.WriteAt(buf, b.Offset+8)
	}
	if newLen > 0xFFFFFFFF {
		return errors.New("mp4tag: box grew past the 32-bit size limit; 64-bit size rewrite is not supported")
	}
	buf := make([]byte, 4)
	be.PutUint32(buf, uint32(newLen))
	return c.WriteAt(buf, b.Offset)
}

// fixupOffsetTables walks every stco/co64/tfhd box in the tree and
// rewrites any absolute offset entry greater than threshold by delta.
func fixupOffsetTables(c *Cursor, tree *BoxTree, threshold, delta int64) error {
	size, err := c.Size()
	if err != nil {
		return err
	}
	for _, b := range tree.FindAll("stco") {
		if err := fixupStco(c, b, threshold, delta, 4); err != nil {
			return err
		}
	}
	for _, b := range tree.FindAll("co64") {
		if err := fixupStco(c, b, threshold, delta, 8); err != nil {
			return err
		}
	}
	for _, b := range tree.FindAll("tfhd") {
		if err := fixupTfhd(c, b, threshold, delta, size); err != nil {
			return err
		}
	}
	return nil
}

// adjustedOffset translates a pre-splice absolute file offset into its
// current, post-splice location: anything past threshold shifted by
// delta when the file was resized.
func adjustedOffset(off, threshold, delta int64) int64 {
	if off > threshold {
		return off + delta
	}
	return off
}

// fixupStco rewrites a stco (width=4) or co64 (width=8) box's entry
// table in place: [version+flags:4][count:4][entry...]. b's own
// Offset/Length reflect the pre-splice tree, so its payload is first
// relocated to where the splice actually left it.
func fixupStco(c *Cursor, b *Box, threshold, delta int64, width int) error {
	payloadOff := adjustedOffset(b.Offset, threshold, delta) + b.HeaderLen
	hdr := make([]byte, 8)
	if err := c.ReadAt(hdr, payloadOff); err != nil {
		return err
	}
	count := int(be.Uint32(hdr[4:8]))
	entries := make([]byte, count*width)
	if err := c.ReadAt(entries, payloadOff+8); err != nil {
		return err
	}
	changed := false
	for i := 0; i < count; i++ {
		off := i * width
		var val int64
		if width == 4 {
			val = int64(be.Uint32(entries[off : off+4]))
		} else {
			val = int64(be.Uint64(entries[off : off+8]))
		}
		if val > threshold {
			val += delta
			changed = true
			if width == 4 {
				be.PutUint32(entries[off:off+4], uint32(val))
			} else {
				be.PutUint64(entries[off:off+8], uint64(val))
			}
		}
	}
	if !changed {
		return nil
	}
	return c.WriteAt(entries, payloadOff+8)
}

// fixupTfhd adjusts a tfhd box's base-data-offset field, present when
// flag bit 0x000001 is set.
func fixupTfhd(c *Cursor, b *Box, threshold, delta, fileSize int64) error {
	payloadLen := b.PayloadLength(fileSize)
	if payloadLen < 8 {
		return nil
	}
	payloadOff := adjustedOffset(b.Offset, threshold, delta) + b.HeaderLen
	hdr := make([]byte, 8)
	if err := c.ReadAt(hdr, payloadOff); err != nil {
		return err
	}
	flags := be.Uint32(hdr[0:4]) &^ 0xFF000000
	const baseDataOffsetPresent = 0x000001
	if flags&baseDataOffsetPresent == 0 {
		return nil
	}
	if payloadLen < 16 {
		return nil
	}
	buf := make([]byte, 8)
	if err := c.ReadAt(buf, payloadOff+8); err != nil {
		return err
	}
	val := int64(be.Uint64(buf))
	if val <= threshold {
		return nil
	}
	be.PutUint64(buf, uint64(val+delta))
	return c.WriteAt(buf, payloadOff+8)
}
