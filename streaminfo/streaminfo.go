// Package streaminfo reads read-only audio stream properties (duration,
// sample rate, channel count, bitrate) from an already-parsed box tree,
// independent of whether the file carries any tags at all.
package streaminfo

import (
	"github.com/jiuerd/mp4tag"
	"github.com/pkg/errors"
)

// Info describes the first audio (soun) track found in a file.
type Info struct {
	Duration     float64 // seconds
	SampleRate   int
	Channels     int
	BitsPerSample int
	Bitrate      int // average bits per second; 0 if not recoverable
}

// Decode locates the first soun track in tree and decodes its stream
// properties via c. Returns mp4tag.ErrNoAudioTrack if no soun track
// exists.
func Decode(c *mp4tag.Cursor, tree *mp4tag.BoxTree) (*Info, error) {
	size, err := c.Size()
	if err != nil {
		return nil, err
	}

	for _, trak := range tree.FindAll("trak") {
		mdia := findChild(trak.Children, "mdia")
		if mdia == nil {
			continue
		}
		hdlr := findChild(mdia.Children, "hdlr")
		if hdlr == nil || !isSoundHandler(c, hdlr, size) {
			continue
		}

		info := &Info{}

		mdhd := findChild(mdia.Children, "mdhd")
		if mdhd != nil {
			if err := decodeMdhd(c, mdhd, size, info); err != nil {
				return nil, errors.Wrap(err, "streaminfo: mdhd")
			}
		}

		if stsd := findStsd(mdia); stsd != nil {
			if mp4a := findChild(stsd.Children, "mp4a"); mp4a != nil {
				if err := decodeMp4a(c, mp4a, size, info); err != nil {
					return nil, errors.Wrap(err, "streaminfo: mp4a")
				}
			}
		}

		return info, nil
	}

	return nil, mp4tag.ErrNoAudioTrack
}

func findStsd(mdia *mp4tag.Box) *mp4tag.Box {
	minf := findChild(mdia.Children, "minf")
	if minf == nil {
		return nil
	}
	stbl := findChild(minf.Children, "stbl")
	if stbl == nil {
		return nil
	}
	return findChild(stbl.Children, "stsd")
}

func findChild(boxes []*mp4tag.Box, fourCC string) *mp4tag.Box {
	for _, b := range boxes {
		if b.Type.String() == fourCC {
			return b
		}
	}
	return nil
}

// isSoundHandler reads an hdlr box's handler_type field and checks for
// "soun". hdlr payload: [version+flags:4][predefined:4][handler_type:4]...
func isSoundHandler(c *mp4tag.Cursor, hdlr *mp4tag.Box, size int64) bool {
	payloadLen := hdlr.PayloadLength(size)
	if payloadLen < 12 {
		return false
	}
	buf := make([]byte, 12)
	if err := c.ReadAt(buf, hdlr.PayloadOffset()); err != nil {
		return false
	}
	return string(buf[8:12]) == "soun"
}

// decodeMdhd reads duration and timescale from an mdhd box, handling
// both the 32-bit (version 0) and 64-bit (version 1) field widths.
func decodeMdhd(c *mp4tag.Cursor, mdhd *mp4tag.Box, size int64, info *Info) error {
	payloadLen := mdhd.PayloadLength(size)
	if payloadLen < 4 {
		return errors.New("mdhd too short")
	}
	vf := make([]byte, 4)
	if err := c.ReadAt(vf, mdhd.PayloadOffset()); err != nil {
		return err
	}
	version := vf[0]

	var timescale uint32
	var duration uint64
	if version == 1 {
		if payloadLen < 4+8+8+4+8 {
			return errors.New("mdhd v1 too short")
		}
		buf := make([]byte, 28)
		if err := c.ReadAt(buf, mdhd.PayloadOffset()+4); err != nil {
			return err
		}
		timescale = be32(buf[16:20])
		duration = be64(buf[20:28])
	} else {
		if payloadLen < 4+4+4+4 {
			return errors.New("mdhd v0 too short")
		}
		buf := make([]byte, 16)
		if err := c.ReadAt(buf, mdhd.PayloadOffset()+4); err != nil {
			return err
		}
		timescale = be32(buf[8:12])
		duration = uint64(be32(buf[12:16]))
	}
	if timescale > 0 {
		info.Duration = float64(duration) / float64(timescale)
	}
	return nil
}

// decodeMp4a reads channel count and sample rate from the audio sample
// entry, then walks into its esds child (if present) for bitrate.
func decodeMp4a(c *mp4tag.Cursor, mp4a *mp4tag.Box, size int64, info *Info) error {
	payloadLen := mp4a.PayloadLength(size)
	if payloadLen < 28 {
		return errors.New("mp4a sample entry too short")
	}
	buf := make([]byte, 28)
	if err := c.ReadAt(buf, mp4a.PayloadOffset()); err != nil {
		return err
	}
	// [reserved:6][data_reference_index:2][reserved:8][channel_count:2]
	// [sample_size:2][reserved:4][sample_rate:4 (16.16 fixed)]
	info.Channels = int(be16(buf[16:18]))
	info.BitsPerSample = int(be16(buf[18:20]))
	info.SampleRate = int(be32(buf[24:28]) >> 16)

	esds := findChild(mp4a.Children, "esds")
	if esds == nil {
		return nil
	}
	payload := make([]byte, esds.PayloadLength(size))
	if err := c.ReadAt(payload, esds.PayloadOffset()); err != nil {
		return err
	}
	if len(payload) < 4 {
		return nil
	}
	bitrate, ok := averageBitrate(payload[4:]) // skip version+flags
	if ok {
		info.Bitrate = bitrate
	}
	return nil
}

func be16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
func be64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}
