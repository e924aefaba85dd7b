package fat

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gokrazy/blockfs/disk"
)

const (
	// RootBlock holds the directory table.
	RootBlock = uint16(0)

	// FATBlock holds the file allocation table.
	FATBlock = uint16(1)

	// firstDataBlock is the first allocatable block: all blocks before it are
	// reserved for file system metadata.
	firstDataBlock = uint16(2)

	// Free marks an unallocated block.
	Free = uint16(0x0000)

	// EOF marks the end of a block chain. Read as a signed 16-bit entry, it
	// is -1.
	EOF = uint16(0xFFFF)

	// Entries is the number of entries in the table, one per addressable
	// block.
	Entries = disk.MaxBlocks

	entrySize = 2
)

var (
	ErrNoSpace      = errors.New("no free blocks left")
	ErrCorruptChain = errors.New("corrupt block chain")
	ErrNotFormatted = errors.New("file allocation table not formatted")
	ErrShortBuffer  = errors.New("short file allocation table")
)

// Table is an in-memory copy of the file allocation table.
type Table struct {
	entries [Entries]uint16

	// usable is the number of blocks present on the device. Entries at or
	// beyond usable are never allocated.
	usable int
}

// New returns a formatted Table for a device with the specified number of
// blocks.
func New(blocks int) *Table {
	t := &Table{usable: clampBlocks(blocks)}
	t.Format()
	return t
}

func clampBlocks(blocks int) int {
	if blocks > Entries {
		return Entries
	}
	return blocks
}

// Format marks all blocks free, except for the reserved blocks.
func (t *Table) Format() {
	for i := range t.entries {
		t.entries[i] = Free
	}
	t.entries[RootBlock] = EOF
	t.entries[FATBlock] = EOF
}

// Usable returns the number of blocks the table allocates from.
func (t *Table) Usable() int { return t.usable }

// Next returns the entry of block idx.
func (t *Table) Next(idx uint16) uint16 { return t.entries[idx] }

// Set sets the entry of block idx, e.g. to link it to the next block of a
// chain or to EOF.
func (t *Table) Set(idx, next uint16) { t.entries[idx] = next }

// Allocate returns the lowest-numbered free block. The block is not marked:
// callers must link it into a chain (or set it to EOF) before allocating
// again. If no block is free, ErrNoSpace is returned and the table is left
// unmodified.
func (t *Table) Allocate() (uint16, error) {
	for i := int(firstDataBlock); i < t.usable; i++ {
		if t.entries[i] == Free {
			return uint16(i), nil
		}
	}
	return EOF, ErrNoSpace
}

// FreeBlocks returns the number of blocks Allocate can still hand out.
func (t *Table) FreeBlocks() int {
	var n int
	for i := int(firstDataBlock); i < t.usable; i++ {
		if t.entries[i] == Free {
			n++
		}
	}
	return n
}

// DataBlocks returns the number of allocatable blocks, free or not.
func (t *Table) DataBlocks() int {
	return t.usable - int(firstDataBlock)
}

// Reserved reports whether idx is a metadata block.
func Reserved(idx uint16) bool {
	return idx < firstDataBlock
}

// Chain returns the blocks of the chain starting at head, in order. An empty
// file (head == EOF) has no blocks. Links to free, reserved or non-existing
// blocks and cycles result in ErrCorruptChain.
func (t *Table) Chain(head uint16) ([]uint16, error) {
	var chain []uint16
	for cur := head; cur != EOF; cur = t.entries[cur] {
		if err := t.checkLink(cur); err != nil {
			return nil, err
		}
		if len(chain) == t.usable {
			return nil, fmt.Errorf("chain starting at block %d: cycle: %w", head, ErrCorruptChain)
		}
		chain = append(chain, cur)
	}
	return chain, nil
}

func (t *Table) checkLink(idx uint16) error {
	switch {
	case int(idx) >= t.usable:
		return fmt.Errorf("block %d beyond device (%d blocks): %w", idx, t.usable, ErrCorruptChain)
	case Reserved(idx):
		return fmt.Errorf("reserved block %d linked into chain: %w", idx, ErrCorruptChain)
	case t.entries[idx] == Free:
		return fmt.Errorf("free block %d linked into chain: %w", idx, ErrCorruptChain)
	}
	return nil
}

// Tail returns the last block of the chain starting at head, or EOF for an
// empty chain.
func (t *Table) Tail(head uint16) (uint16, error) {
	chain, err := t.Chain(head)
	if err != nil {
		return EOF, err
	}
	if len(chain) == 0 {
		return EOF, nil
	}
	return chain[len(chain)-1], nil
}

// FreeChain marks all blocks of the chain starting at head as free. Freeing
// an empty chain (head == EOF) is a no-op. A corrupt chain is not modified.
func (t *Table) FreeChain(head uint16) error {
	chain, err := t.Chain(head)
	if err != nil {
		return err
	}
	for _, idx := range chain {
		t.entries[idx] = Free
	}
	return nil
}

// MarshalBinary encodes the table as little-endian 16-bit entries, filling
// exactly one block.
func (t *Table) MarshalBinary() ([]byte, error) {
	b := make([]byte, Entries*entrySize)
	for i, e := range t.entries {
		binary.LittleEndian.PutUint16(b[i*entrySize:], e)
	}
	return b, nil
}

// UnmarshalBinary decodes a table written by MarshalBinary. The reserved
// entries must be marked as end of chain.
func (t *Table) UnmarshalBinary(b []byte) error {
	if len(b) < Entries*entrySize {
		return fmt.Errorf("%d bytes, want %d: %w", len(b), Entries*entrySize, ErrShortBuffer)
	}
	var entries [Entries]uint16
	for i := range entries {
		entries[i] = binary.LittleEndian.Uint16(b[i*entrySize:])
	}
	if entries[RootBlock] != EOF || entries[FATBlock] != EOF {
		return ErrNotFormatted
	}
	t.entries = entries
	if t.usable == 0 {
		t.usable = Entries
	}
	return nil
}

// Load reads the table from its reserved block on dev.
func Load(dev disk.Device) (*Table, error) {
	buf := make([]byte, disk.BlockSize)
	if err := dev.ReadBlock(FATBlock, buf); err != nil {
		return nil, fmt.Errorf("reading FAT: %w", err)
	}
	t := &Table{usable: clampBlocks(dev.NumBlocks())}
	if err := t.UnmarshalBinary(buf); err != nil {
		return nil, fmt.Errorf("reading FAT: %w", err)
	}
	return t, nil
}

// Save writes the table to its reserved block on dev.
func (t *Table) Save(dev disk.Device) error {
	b, err := t.MarshalBinary()
	if err != nil {
		return err
	}
	if err := dev.WriteBlock(FATBlock, b); err != nil {
		return fmt.Errorf("writing FAT: %w", err)
	}
	return nil
}
