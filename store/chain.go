package store

import (
	"fmt"
	"io"
	"math"

	"github.com/gokrazy/blockfs/disk"
	"github.com/gokrazy/blockfs/fat"
)

// fullBlocks returns the number of blocks needed to hold size bytes.
func fullBlocks(size int) int {
	blocks := size / disk.BlockSize
	if size%disk.BlockSize > 0 {
		blocks++
	}
	return blocks
}

// allocChain allocates n blocks and links them into a chain terminated by
// EOF. If the device runs out of space, all blocks allocated by this call are
// freed again before ErrNoSpace is returned.
func (t *tx) allocChain(n int) ([]uint16, error) {
	chain := make([]uint16, 0, n)
	for len(chain) < n {
		idx, err := t.fat.Allocate()
		if err != nil {
			t.release(chain)
			return nil, fmt.Errorf("allocating block %d of %d: %w", len(chain)+1, n, err)
		}
		t.fat.Set(idx, fat.EOF)
		if len(chain) > 0 {
			t.fat.Set(chain[len(chain)-1], idx)
		}
		chain = append(chain, idx)
	}
	return chain, nil
}

func (t *tx) release(chain []uint16) {
	for _, idx := range chain {
		t.fat.Set(idx, fat.Free)
	}
}

// writeBlock writes p, zero-padded to a full block, to block idx.
func (t *tx) writeBlock(idx uint16, p []byte) error {
	n := copy(t.buf, p)
	clear(t.buf[n:])
	return t.dev.WriteBlock(idx, t.buf)
}

// sourceChain returns the chain of a size-byte file starting at first,
// verifying it holds enough blocks for size.
func (t *tx) sourceChain(first uint16, size uint32) ([]uint16, error) {
	chain, err := t.fat.Chain(first)
	if err != nil {
		return nil, err
	}
	if got, want := len(chain), fullBlocks(int(size)); got < want {
		return nil, fmt.Errorf("chain at block %d has %d blocks, %d bytes need %d: %w",
			first, got, size, want, ErrCorruptChain)
	}
	return chain, nil
}

// writeStream stores data in a new chain and returns its first block, or
// fat.EOF if data is empty.
func (t *tx) writeStream(data []byte) (uint16, error) {
	if len(data) == 0 {
		return fat.EOF, nil
	}
	chain, err := t.allocChain(fullBlocks(len(data)))
	if err != nil {
		return fat.EOF, err
	}
	for i, idx := range chain {
		chunk := data[i*disk.BlockSize : min((i+1)*disk.BlockSize, len(data))]
		if err := t.writeBlock(idx, chunk); err != nil {
			t.release(chain)
			return fat.EOF, err
		}
	}
	return chain[0], nil
}

// readStream copies exactly size bytes of the chain starting at first to w.
func (t *tx) readStream(first uint16, size uint32, w io.Writer) error {
	chain, err := t.sourceChain(first, size)
	if err != nil {
		return err
	}
	remaining := int(size)
	for _, idx := range chain {
		if remaining == 0 {
			break
		}
		if err := t.dev.ReadBlock(idx, t.buf); err != nil {
			return err
		}
		n := min(disk.BlockSize, remaining)
		if _, err := w.Write(t.buf[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}

// copyStream duplicates the first size bytes of the chain starting at first
// into a newly allocated chain and returns its first block.
func (t *tx) copyStream(first uint16, size uint32) (uint16, error) {
	if size == 0 {
		return fat.EOF, nil
	}
	src, err := t.sourceChain(first, size)
	if err != nil {
		return fat.EOF, err
	}
	dst, err := t.allocChain(fullBlocks(int(size)))
	if err != nil {
		return fat.EOF, err
	}
	remaining := int(size)
	for i, idx := range dst {
		if err := t.dev.ReadBlock(src[i], t.buf); err != nil {
			t.release(dst)
			return fat.EOF, err
		}
		n := min(disk.BlockSize, remaining)
		if err := t.writeBlock(idx, t.buf[:n]); err != nil {
			t.release(dst)
			return fat.EOF, err
		}
		remaining -= n
	}
	return dst[0], nil
}

// appendStream appends data to the file in directory slot. The unused part
// of the file's last block is filled first; the rest goes into new blocks
// linked after the current tail. All blocks are allocated before any existing
// block is rewritten.
func (t *tx) appendStream(slot int, data []byte) error {
	e := t.dir.Entry(slot)
	if len(data) == 0 {
		return nil
	}
	newSize := uint64(e.Size) + uint64(len(data))
	if newSize > math.MaxUint32 {
		return fmt.Errorf("%d bytes exceed the maximum file size: %w", newSize, ErrNoSpace)
	}

	tail := fat.EOF
	if e.FirstBlock != fat.EOF || e.Size > 0 {
		chain, err := t.fat.Chain(e.FirstBlock)
		if err != nil {
			return err
		}
		if got, want := len(chain), fullBlocks(int(e.Size)); got != want {
			return fmt.Errorf("%q has %d blocks for %d bytes, want %d: %w", e.Name, got, e.Size, want, ErrCorruptChain)
		}
		tail = chain[len(chain)-1]
	}

	var fill int
	used := int(e.Size % disk.BlockSize)
	if tail != fat.EOF && used > 0 {
		fill = min(disk.BlockSize-used, len(data))
	}
	rest := data[fill:]

	var fresh []uint16
	if len(rest) > 0 {
		var err error
		fresh, err = t.allocChain(fullBlocks(len(rest)))
		if err != nil {
			return err
		}
	}

	if fill > 0 {
		if err := t.dev.ReadBlock(tail, t.buf); err != nil {
			t.release(fresh)
			return err
		}
		copy(t.buf[used:], data[:fill])
		if err := t.dev.WriteBlock(tail, t.buf); err != nil {
			t.release(fresh)
			return err
		}
	}
	for i, idx := range fresh {
		chunk := rest[i*disk.BlockSize : min((i+1)*disk.BlockSize, len(rest))]
		if err := t.writeBlock(idx, chunk); err != nil {
			t.release(fresh)
			return err
		}
	}

	if len(fresh) > 0 {
		if tail == fat.EOF {
			t.dir.SetFirstBlock(slot, fresh[0])
		} else {
			t.fat.Set(tail, fresh[0])
		}
	}
	t.dir.SetSize(slot, uint32(newSize))
	return nil
}
