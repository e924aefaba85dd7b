package disk

import (
	"fmt"

	"golang.org/x/exp/mmap"
)

// Mapped is a read-only Device backed by a memory-mapped disk image. It is
// used for commands which never modify the store (cat, ls, df, fsck, export).
type Mapped struct {
	r *mmap.ReaderAt
}

// OpenReadOnly maps the disk image at path.
func OpenReadOnly(path string) (*Mapped, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	if r.Len()%BlockSize != 0 {
		r.Close()
		return nil, fmt.Errorf("%s: size %d is not a multiple of the block size %d", path, r.Len(), BlockSize)
	}
	if err := validBlocks(r.Len() / BlockSize); err != nil {
		r.Close()
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return &Mapped{r: r}, nil
}

func (m *Mapped) NumBlocks() int { return m.r.Len() / BlockSize }

func (m *Mapped) ReadBlock(idx uint16, buf []byte) error {
	if err := checkAccess(m, idx, buf); err != nil {
		return err
	}
	_, err := m.r.ReadAt(buf, int64(idx)*BlockSize)
	return err
}

func (m *Mapped) WriteBlock(idx uint16, buf []byte) error {
	if err := checkAccess(m, idx, buf); err != nil {
		return err
	}
	return fmt.Errorf("block %d: %w", idx, ErrReadOnly)
}

func (m *Mapped) Close() error { return m.r.Close() }
