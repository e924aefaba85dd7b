package disk

import (
	"errors"
	"fmt"
	"os"
)

// ErrLocked is returned by Open when another process holds the image.
var ErrLocked = errors.New("disk image is in use by another process")

// File is a Device backed by a disk image file. The image is locked
// exclusively for as long as the File is open.
type File struct {
	f      *os.File
	blocks int
}

// Open opens the disk image at path. If the image does not exist, it is
// created with MaxBlocks zeroed blocks.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	if err := lock(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := st.Size()
	if size == 0 {
		size = MaxBlocks * BlockSize
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, err
		}
	}
	if size%BlockSize != 0 {
		f.Close()
		return nil, fmt.Errorf("%s: size %d is not a multiple of the block size %d", path, size, BlockSize)
	}
	blocks := int(size / BlockSize)
	if err := validBlocks(blocks); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return &File{f: f, blocks: blocks}, nil
}

func (d *File) NumBlocks() int { return d.blocks }

func (d *File) ReadBlock(idx uint16, buf []byte) error {
	if err := checkAccess(d, idx, buf); err != nil {
		return err
	}
	_, err := d.f.ReadAt(buf, int64(idx)*BlockSize)
	return err
}

func (d *File) WriteBlock(idx uint16, buf []byte) error {
	if err := checkAccess(d, idx, buf); err != nil {
		return err
	}
	_, err := d.f.WriteAt(buf, int64(idx)*BlockSize)
	return err
}

// Sync flushes the image to stable storage.
func (d *File) Sync() error { return d.f.Sync() }

// Close releases the lock and closes the image.
func (d *File) Close() error {
	unlock(d.f)
	return d.f.Close()
}
