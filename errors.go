package mp4tag

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoTags is returned when a file has no ilst tag list atom.
var ErrNoTags = errors.New("mp4tag: no ilst tag list present")

// ErrNoAudioTrack is returned by streaminfo when no soun track is found.
var ErrNoAudioTrack = errors.New("mp4tag: no audio track found")

// MalformedBoxError reports a box whose header violates the format
// (a size field in [2,7], or an inner box with size 0).
type MalformedBoxError struct {
	Offset int64
	Reason string
}

func (e *MalformedBoxError) Error() string {
	return fmt.Sprintf("mp4tag: malformed box at offset %d: %s", e.Offset, e.Reason)
}

// NotFoundError reports a required box path that does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("mp4tag: box not found: %s", e.Path)
}

// UnexpectedAtomError reports a child atom under a parent that does not
// belong there (a non-data child of a tag atom, or a child other than
// mean/name/data under a freeform atom).
type UnexpectedAtomError struct {
	Parent BoxType
	Child  BoxType
}

func (e *UnexpectedAtomError) Error() string {
	return fmt.Sprintf("mp4tag: unexpected atom %q under %q", e.Child, e.Parent)
}

// UnsupportedVersionError reports a data-atom version byte other than 0.
type UnsupportedVersionError struct {
	Version byte
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("mp4tag: unsupported data atom version %d", e.Version)
}

// InvalidValueError reports a tag value that cannot be parsed or
// rendered (wrong length, wrong type for the target key).
type InvalidValueError struct {
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("mp4tag: invalid tag value: %s", e.Reason)
}
