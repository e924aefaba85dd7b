// Package disk provides the block devices a blockfs file store lives on: a
// fixed number of fixed-size blocks, addressed by a 16-bit index.
package disk

import (
	"errors"
	"fmt"
)

const (
	// BlockSize is the size in bytes of every block on a device.
	BlockSize = 4096

	// MaxBlocks is the number of blocks a FAT of one block can address: each
	// FAT entry is 2 bytes wide.
	MaxBlocks = BlockSize / 2
)

var (
	ErrOutOfRange = errors.New("block index out of range")
	ErrReadOnly   = errors.New("device is read-only")
)

// Device is a synchronous block device. ReadBlock and WriteBlock transfer
// exactly BlockSize bytes and fail only for indices outside [0, NumBlocks()).
type Device interface {
	ReadBlock(idx uint16, buf []byte) error
	WriteBlock(idx uint16, buf []byte) error
	NumBlocks() int
}

func checkAccess(d Device, idx uint16, buf []byte) error {
	if int(idx) >= d.NumBlocks() {
		return fmt.Errorf("block %d of %d: %w", idx, d.NumBlocks(), ErrOutOfRange)
	}
	if len(buf) != BlockSize {
		return fmt.Errorf("block %d: buffer is %d bytes, want %d", idx, len(buf), BlockSize)
	}
	return nil
}

func validBlocks(n int) error {
	if n <= 2 || n > MaxBlocks {
		return fmt.Errorf("invalid block count %d: must be in (2, %d]", n, MaxBlocks)
	}
	return nil
}
