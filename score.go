package mp4tag

import "bytes"

// Score reports how confident this package is that header (the first
// bytes of a file) is an MP4/QuickTime container this engine can handle.
// Higher is more confident; 0 means "not recognized". It is a cheap
// substring heuristic over the ftyp box, not a full parse.
func Score(header []byte) int {
	score := 0
	if bytes.Contains(header, []byte("ftyp")) {
		score++
	}
	if bytes.Contains(header, []byte("mp4")) {
		score++
	}
	return score
}
