package mp4tag

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// Cursor is a file handle that additionally knows how to splice bytes
// in and out of the middle of the file, shifting everything after the
// splice point. It is the only component that touches the filesystem.
type Cursor struct {
	f        *os.File
	writable bool
}

// Open opens path read-only.
func Open(path string) (*Cursor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "mp4tag: open")
	}
	return &Cursor{f: f}, nil
}

// OpenWrite opens path for reading and writing in place.
func OpenWrite(path string) (*Cursor, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrap(err, "mp4tag: open")
	}
	return &Cursor{f: f, writable: true}, nil
}

// Close closes the underlying file.
func (c *Cursor) Close() error {
	return c.f.Close()
}

// Size returns the current file size.
func (c *Cursor) Size() (int64, error) {
	fi, err := c.f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "mp4tag: stat")
	}
	return fi.Size(), nil
}

// ReadAt fills buf starting at absolute offset off.
func (c *Cursor) ReadAt(buf []byte, off int64) error {
	_, err := c.f.ReadAt(buf, off)
	if err != nil {
		return errors.Wrap(err, "mp4tag: read")
	}
	return nil
}

// WriteAt writes buf starting at absolute offset off. The cursor must
// have been opened with OpenWrite.
func (c *Cursor) WriteAt(buf []byte, off int64) error {
	if !c.writable {
		return errors.New("mp4tag: cursor opened read-only")
	}
	_, err := c.f.WriteAt(buf, off)
	if err != nil {
		return errors.Wrap(err, "mp4tag: write")
	}
	return nil
}

// Insert grows the file by n bytes at offset at, shifting the existing
// suffix [at, EOF) forward by n. The new gap is left with zero bytes;
// callers overwrite it with WriteAt immediately afterward.
func (c *Cursor) Insert(at int64, n int64) error {
	if !c.writable {
		return errors.New("mp4tag: cursor opened read-only")
	}
	if n == 0 {
		return nil
	}
	size, err := c.Size()
	if err != nil {
		return err
	}
	suffix := make([]byte, size-at)
	if _, err := c.f.ReadAt(suffix, at); err != nil && err != io.EOF {
		return errors.Wrap(err, "mp4tag: read suffix")
	}
	if err := c.f.Truncate(size + n); err != nil {
		return errors.Wrap(err, "mp4tag: truncate")
	}
	if _, err := c.f.WriteAt(suffix, at+n); err != nil {
		return errors.Wrap(err, "mp4tag: write suffix")
	}
	zero := make([]byte, n)
	if _, err := c.f.WriteAt(zero, at); err != nil {
		return errors.Wrap(err, "mp4tag: clear gap")
	}
	return nil
}

// Remove shrinks the file by n bytes at offset at, pulling the suffix
// [at+n, EOF) back to start at at.
func (c *Cursor) Remove(at int64, n int64) error {
	if !c.writable {
		return errors.New("mp4tag: cursor opened read-only")
	}
	if n == 0 {
		return nil
	}
	size, err := c.Size()
	if err != nil {
		return err
	}
	suffix := make([]byte, size-at-n)
	if _, err := c.f.ReadAt(suffix, at+n); err != nil && err != io.EOF {
		return errors.Wrap(err, "mp4tag: read suffix")
	}
	if _, err := c.f.WriteAt(suffix, at); err != nil {
		return errors.Wrap(err, "mp4tag: write suffix")
	}
	if err := c.f.Truncate(size - n); err != nil {
		return errors.Wrap(err, "mp4tag: truncate")
	}
	return nil
}
