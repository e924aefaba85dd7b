// Package directory implements the flat root directory of a blockfs store: a
// fixed number of fixed-size entries stored in one reserved block.
//
// Each entry is 64 bytes, little endian:
//
//	offset  size  field
//	     0    56  name, NUL-padded (an empty name marks a free slot)
//	    56     4  size in bytes
//	    60     2  first block of the FAT chain (fat.EOF for empty files)
//	    62     1  type (0 = file, 1 = directory)
//	    63     1  access rights (read 0x04, write 0x02, execute 0x01)
package directory

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/gokrazy/blockfs/disk"
	"github.com/gokrazy/blockfs/fat"
)

const (
	nameSize = 56

	// MaxNameLen is the longest name an entry can hold: the name field
	// keeps a terminating NUL byte.
	MaxNameLen = nameSize - 1

	// EntrySize is the size of an encoded entry in bytes.
	EntrySize = 64

	// Capacity is the number of entries in a directory table.
	Capacity = disk.BlockSize / EntrySize
)

var (
	ErrInvalidName = errors.New("invalid file name")
	ErrNotFound    = errors.New("no such file")
	ErrExist       = errors.New("file already exists")
	ErrFull        = errors.New("directory full")
	ErrShortBuffer = errors.New("short directory table")
)

type Type uint8

const (
	File Type = iota
	Dir
)

func (t Type) String() string {
	switch t {
	case File:
		return "file"
	case Dir:
		return "dir"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Rights is a bitmask of access rights.
type Rights uint8

const (
	Execute Rights = 1 << iota
	Write
	Read
)

// String formats r like ls(1) does, e.g. "rw-".
func (r Rights) String() string {
	b := []byte("---")
	if r&Read != 0 {
		b[0] = 'r'
	}
	if r&Write != 0 {
		b[1] = 'w'
	}
	if r&Execute != 0 {
		b[2] = 'x'
	}
	return string(b)
}

// ParseRights parses an octal digit ("6") or a symbolic string ("rw-").
func ParseRights(s string) (Rights, error) {
	if len(s) == 1 && s[0] >= '0' && s[0] <= '7' {
		return Rights(s[0] - '0'), nil
	}
	if len(s) != 3 {
		return 0, fmt.Errorf("invalid access rights %q", s)
	}
	var r Rights
	for i, want := range []struct {
		c   byte
		bit Rights
	}{{'r', Read}, {'w', Write}, {'x', Execute}} {
		switch s[i] {
		case want.c:
			r |= want.bit
		case '-':
		default:
			return 0, fmt.Errorf("invalid access rights %q", s)
		}
	}
	return r, nil
}

// Entry is a decoded directory entry.
type Entry struct {
	Name       string
	Size       uint32
	FirstBlock uint16
	Type       Type
	Rights     Rights
}

func (e *Entry) free() bool { return e.Name == "" }

// ValidName returns ErrInvalidName unless name can be stored in a flat
// directory.
func ValidName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty name: %w", ErrInvalidName)
	case len(name) > MaxNameLen:
		return fmt.Errorf("%q longer than %d bytes: %w", name, MaxNameLen, ErrInvalidName)
	case strings.ContainsRune(name, '/'):
		return fmt.Errorf("%q contains a path separator: %w", name, ErrInvalidName)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%q contains a NUL byte: %w", name, ErrInvalidName)
	}
	return nil
}

// Table is an in-memory copy of a directory table.
type Table struct {
	entries [Capacity]Entry
}

// Entry returns the entry in slot i.
func (t *Table) Entry(i int) Entry { return t.entries[i] }

// SetSize updates the size of the entry in slot i.
func (t *Table) SetSize(i int, size uint32) { t.entries[i].Size = size }

// SetFirstBlock updates the chain head of the entry in slot i.
func (t *Table) SetFirstBlock(i int, block uint16) { t.entries[i].FirstBlock = block }

// SetRights updates the access rights of the entry in slot i.
func (t *Table) SetRights(i int, r Rights) { t.entries[i].Rights = r }

// Entries returns all used entries in slot order.
func (t *Table) Entries() []Entry {
	var result []Entry
	for _, e := range t.entries {
		if e.free() {
			continue
		}
		result = append(result, e)
	}
	return result
}

// Find returns the slot of the entry called name.
func (t *Table) Find(name string) (int, error) {
	if name == "" {
		return -1, ErrNotFound
	}
	for i := range t.entries {
		if t.entries[i].Name == name {
			return i, nil
		}
	}
	return -1, ErrNotFound
}

// FreeSlot returns the first unused slot.
func (t *Table) FreeSlot() (int, error) {
	for i := range t.entries {
		if t.entries[i].free() {
			return i, nil
		}
	}
	return -1, ErrFull
}

// Insert stores e in the first unused slot and returns the slot.
func (t *Table) Insert(e Entry) (int, error) {
	if err := ValidName(e.Name); err != nil {
		return -1, err
	}
	if _, err := t.Find(e.Name); err == nil {
		return -1, ErrExist
	}
	i, err := t.FreeSlot()
	if err != nil {
		return -1, err
	}
	t.entries[i] = e
	return i, nil
}

// Remove clears slot i. The entry's chain is not touched: callers free it
// first.
func (t *Table) Remove(i int) {
	t.entries[i] = Entry{}
}

// Rename changes the name of the entry in slot i.
func (t *Table) Rename(i int, name string) error {
	if err := ValidName(name); err != nil {
		return err
	}
	if j, err := t.Find(name); err == nil && j != i {
		return ErrExist
	}
	t.entries[i].Name = name
	return nil
}

// MarshalBinary encodes the table into exactly one block.
func (t *Table) MarshalBinary() ([]byte, error) {
	b := make([]byte, disk.BlockSize)
	for i, e := range t.entries {
		if e.free() {
			continue
		}
		if len(e.Name) > MaxNameLen {
			return nil, fmt.Errorf("slot %d: %q: %w", i, e.Name, ErrInvalidName)
		}
		rec := b[i*EntrySize : (i+1)*EntrySize]
		copy(rec[:nameSize], e.Name)
		binary.LittleEndian.PutUint32(rec[56:60], e.Size)
		binary.LittleEndian.PutUint16(rec[60:62], e.FirstBlock)
		rec[62] = uint8(e.Type)
		rec[63] = uint8(e.Rights)
	}
	return b, nil
}

// UnmarshalBinary decodes a table written by MarshalBinary.
func (t *Table) UnmarshalBinary(b []byte) error {
	if len(b) < Capacity*EntrySize {
		return fmt.Errorf("%d bytes, want %d: %w", len(b), Capacity*EntrySize, ErrShortBuffer)
	}
	var entries [Capacity]Entry
	for i := range entries {
		rec := b[i*EntrySize : (i+1)*EntrySize]
		name := rec[:nameSize]
		if idx := bytes.IndexByte(name, 0); idx > -1 {
			name = name[:idx]
		} else {
			return fmt.Errorf("slot %d: name not NUL-terminated", i)
		}
		if len(name) == 0 {
			continue
		}
		entries[i] = Entry{
			Name:       string(name),
			Size:       binary.LittleEndian.Uint32(rec[56:60]),
			FirstBlock: binary.LittleEndian.Uint16(rec[60:62]),
			Type:       Type(rec[62]),
			Rights:     Rights(rec[63]),
		}
	}
	t.entries = entries
	return nil
}

// Load reads the root directory table from dev.
func Load(dev disk.Device) (*Table, error) {
	buf := make([]byte, disk.BlockSize)
	if err := dev.ReadBlock(fat.RootBlock, buf); err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	var t Table
	if err := t.UnmarshalBinary(buf); err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	return &t, nil
}

// Save writes the table to the root directory block on dev.
func (t *Table) Save(dev disk.Device) error {
	b, err := t.MarshalBinary()
	if err != nil {
		return err
	}
	if err := dev.WriteBlock(fat.RootBlock, b); err != nil {
		return fmt.Errorf("writing directory: %w", err)
	}
	return nil
}
