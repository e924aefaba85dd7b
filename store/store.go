// Package store implements the file operations of a blockfs store on top of a
// disk.Device.
//
// Every operation loads the file allocation table and the directory table
// from their reserved blocks, works on the in-memory copies and, only if it
// succeeded, writes the FAT and then the directory back. A failed operation
// therefore leaves the persisted store unchanged.
//
// A Store is not safe for concurrent use.
package store

import (
	"errors"
	"io/fs"
	"log"

	"github.com/gokrazy/blockfs/directory"
	"github.com/gokrazy/blockfs/disk"
	"github.com/gokrazy/blockfs/fat"
)

var (
	ErrInvalidName   = directory.ErrInvalidName
	ErrNotFound      = directory.ErrNotFound
	ErrNotAFile      = errors.New("not a regular file")
	ErrDuplicateName = directory.ErrExist
	ErrDirectoryFull = directory.ErrFull
	ErrNoSpace       = fat.ErrNoSpace
	ErrCorruptChain  = fat.ErrCorruptChain
	ErrNotFormatted  = fat.ErrNotFormatted
)

// DefaultRights are the access rights of newly created files.
const DefaultRights = directory.Read | directory.Write

// Store is a flat file store on a block device.
type Store struct {
	dev disk.Device

	// Log, if non-nil, receives a line for every successful mutation.
	Log *log.Logger
}

// New returns a Store operating on dev. dev must be formatted (see Format)
// before any other operation succeeds.
func New(dev disk.Device) *Store {
	return &Store{dev: dev}
}

func (s *Store) logf(format string, v ...interface{}) {
	if s.Log == nil {
		return
	}
	s.Log.Printf(format, v...)
}

// tx holds the in-memory tables of one operation.
type tx struct {
	dev disk.Device
	fat *fat.Table
	dir *directory.Table

	// buf is the block buffer for all content I/O of the operation.
	buf []byte
}

func (s *Store) load() (*tx, error) {
	ft, err := fat.Load(s.dev)
	if err != nil {
		return nil, err
	}
	dt, err := directory.Load(s.dev)
	if err != nil {
		return nil, err
	}
	return &tx{
		dev: s.dev,
		fat: ft,
		dir: dt,
		buf: make([]byte, disk.BlockSize),
	}, nil
}

func (t *tx) commit() error {
	if err := t.fat.Save(t.dev); err != nil {
		return err
	}
	return t.dir.Save(t.dev)
}

// update runs fn on freshly loaded tables and persists them if fn succeeds.
func (s *Store) update(op, name string, fn func(*tx) error) error {
	t, err := s.load()
	if err != nil {
		return &fs.PathError{Op: op, Path: name, Err: err}
	}
	if err := fn(t); err != nil {
		return pathError(op, name, err)
	}
	if err := t.commit(); err != nil {
		return &fs.PathError{Op: op, Path: name, Err: err}
	}
	return nil
}

// view runs fn on freshly loaded tables without persisting anything.
func (s *Store) view(op, name string, fn func(*tx) error) error {
	t, err := s.load()
	if err != nil {
		return &fs.PathError{Op: op, Path: name, Err: err}
	}
	if err := fn(t); err != nil {
		return pathError(op, name, err)
	}
	return nil
}

// pathError wraps err with op and name unless err already names another
// path, e.g. the destination of a copy.
func pathError(op, name string, err error) error {
	if pe, ok := err.(*fs.PathError); ok {
		return pe
	}
	return &fs.PathError{Op: op, Path: name, Err: err}
}

// lookupFile returns the slot and entry of the regular file called name.
func (t *tx) lookupFile(name string) (int, directory.Entry, error) {
	i, err := t.dir.Find(name)
	if err != nil {
		return -1, directory.Entry{}, err
	}
	e := t.dir.Entry(i)
	if e.Type != directory.File {
		return -1, directory.Entry{}, ErrNotAFile
	}
	return i, e, nil
}

// reserveName verifies that an entry called name can be inserted.
func (t *tx) reserveName(name string) error {
	if err := directory.ValidName(name); err != nil {
		return err
	}
	if _, err := t.dir.Find(name); err == nil {
		return ErrDuplicateName
	}
	_, err := t.dir.FreeSlot()
	return err
}
