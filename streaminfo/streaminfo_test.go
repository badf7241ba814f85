package streaminfo

import (
	"os"
	"testing"

	"github.com/jiuerd/mp4tag"
)

func buildBox(t string, payload []byte) []byte {
	hdr := make([]byte, 8)
	total := uint32(len(payload) + 8)
	hdr[0] = byte(total >> 24)
	hdr[1] = byte(total >> 16)
	hdr[2] = byte(total >> 8)
	hdr[3] = byte(total)
	copy(hdr[4:8], t)
	return append(hdr, payload...)
}

func be32bytes(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func tempFile(t *testing.T, data []byte) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "streaminfo-*.m4a")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

// buildSoundTrak assembles a minimal trak{mdia{hdlr(soun),mdhd,minf{stbl{stsd{mp4a}}}}}.
func buildSoundTrak(timescale, duration uint32, sampleRate uint32) []byte {
	hdlrPayload := append([]byte{0, 0, 0, 0}, make([]byte, 4)...) // version+flags, predefined
	hdlrPayload = append(hdlrPayload, []byte("soun")...)
	hdlrPayload = append(hdlrPayload, make([]byte, 12)...) // reserved
	hdlr := buildBox("hdlr", hdlrPayload)

	mdhdPayload := []byte{0, 0, 0, 0} // version 0, flags 0
	mdhdPayload = append(mdhdPayload, 0, 0, 0, 0)
	mdhdPayload = append(mdhdPayload, 0, 0, 0, 0)
	mdhdPayload = append(mdhdPayload, be32bytes(timescale)...)
	mdhdPayload = append(mdhdPayload, be32bytes(duration)...)
	mdhdPayload = append(mdhdPayload, 0, 0, 0, 0)
	mdhd := buildBox("mdhd", mdhdPayload)

	mp4aPayload := make([]byte, 28)
	mp4aPayload[7] = 1      // data_reference_index
	mp4aPayload[17] = 2     // channel_count = 2
	mp4aPayload[19] = 16    // sample_size = 16
	copy(mp4aPayload[24:28], be32bytes(sampleRate<<16))
	mp4a := buildBox("mp4a", mp4aPayload)

	stsdPayload := append([]byte{0, 0, 0, 0}, be32bytes(1)...)
	stsdPayload = append(stsdPayload, mp4a...)
	stsd := buildBox("stsd", stsdPayload)
	stbl := buildBox("stbl", stsd)
	minf := buildBox("minf", stbl)
	mdia := buildBox("mdia", append(append(hdlr, mdhd...), minf...))
	return buildBox("trak", mdia)
}

func TestDecodeFindsSoundTrack(t *testing.T) {
	trak := buildSoundTrak(1000, 5000, 44100)
	moov := buildBox("moov", trak)
	path := tempFile(t, moov)

	c, err := mp4tag.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	tree, err := mp4tag.Parse(c)
	if err != nil {
		t.Fatal(err)
	}

	info, err := Decode(c, tree)
	if err != nil {
		t.Fatal(err)
	}
	if info.Duration != 5.0 {
		t.Fatalf("expected duration 5s, got %f", info.Duration)
	}
	if info.Channels != 2 {
		t.Fatalf("expected 2 channels, got %d", info.Channels)
	}
	if info.SampleRate != 44100 {
		t.Fatalf("expected 44100Hz, got %d", info.SampleRate)
	}
}

func TestDecodeNoAudioTrack(t *testing.T) {
	moov := buildBox("moov", nil)
	path := tempFile(t, moov)

	c, err := mp4tag.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	tree, err := mp4tag.Parse(c)
	if err != nil {
		t.Fatal(err)
	}

	_, err = Decode(c, tree)
	if err != mp4tag.ErrNoAudioTrack {
		t.Fatalf("expected ErrNoAudioTrack, got %v", err)
	}
}
