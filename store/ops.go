package store

import (
	"bytes"
	"io"
	"io/fs"

	"github.com/gokrazy/blockfs/directory"
	"github.com/gokrazy/blockfs/fat"
)

// Format creates an empty store: all data blocks are freed and the directory
// is cleared. Formatting an already formatted store yields the same state.
func (s *Store) Format() error {
	ft := fat.New(s.dev.NumBlocks())
	var dt directory.Table
	if err := ft.Save(s.dev); err != nil {
		return &fs.PathError{Op: "format", Path: "/", Err: err}
	}
	if err := dt.Save(s.dev); err != nil {
		return &fs.PathError{Op: "format", Path: "/", Err: err}
	}
	s.logf("format: %d data blocks", ft.DataBlocks())
	return nil
}

// Create creates the file name holding content. On error, no blocks stay
// allocated and no directory entry is created.
func (s *Store) Create(name string, content []byte) error {
	return s.update("create", name, func(t *tx) error {
		if err := t.reserveName(name); err != nil {
			return err
		}
		first, err := t.writeStream(content)
		if err != nil {
			return err
		}
		if _, err := t.dir.Insert(directory.Entry{
			Name:       name,
			Size:       uint32(len(content)),
			FirstBlock: first,
			Type:       directory.File,
			Rights:     DefaultRights,
		}); err != nil {
			return err
		}
		s.logf("create %q: %d bytes, first block %d", name, len(content), first)
		return nil
	})
}

// Cat writes the contents of the file name to w.
func (s *Store) Cat(name string, w io.Writer) error {
	return s.view("cat", name, func(t *tx) error {
		_, e, err := t.lookupFile(name)
		if err != nil {
			return err
		}
		return t.readStream(e.FirstBlock, e.Size, w)
	})
}

// ReadFile returns the contents of the file name.
func (s *Store) ReadFile(name string) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.Cat(name, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// List returns all directory entries in slot order.
func (s *Store) List() ([]directory.Entry, error) {
	var entries []directory.Entry
	err := s.view("ls", "/", func(t *tx) error {
		entries = t.dir.Entries()
		return nil
	})
	return entries, err
}

// Stat returns the directory entry of name.
func (s *Store) Stat(name string) (directory.Entry, error) {
	var e directory.Entry
	err := s.view("stat", name, func(t *tx) error {
		i, err := t.dir.Find(name)
		if err != nil {
			return err
		}
		e = t.dir.Entry(i)
		return nil
	})
	return e, err
}

// Copy creates dst as a physical copy of src: the two files share no blocks.
func (s *Store) Copy(src, dst string) error {
	return s.update("cp", src, func(t *tx) error {
		_, e, err := t.lookupFile(src)
		if err != nil {
			return err
		}
		if err := t.reserveName(dst); err != nil {
			return &fs.PathError{Op: "cp", Path: dst, Err: err}
		}
		first, err := t.copyStream(e.FirstBlock, e.Size)
		if err != nil {
			return err
		}
		if _, err := t.dir.Insert(directory.Entry{
			Name:       dst,
			Size:       e.Size,
			FirstBlock: first,
			Type:       e.Type,
			Rights:     e.Rights,
		}); err != nil {
			return err
		}
		s.logf("cp %q %q: %d bytes, first block %d", src, dst, e.Size, first)
		return nil
	})
}

// Rename changes the name of src to dst. File contents are not touched.
func (s *Store) Rename(src, dst string) error {
	return s.update("mv", src, func(t *tx) error {
		i, err := t.dir.Find(src)
		if err != nil {
			return err
		}
		if err := t.dir.Rename(i, dst); err != nil {
			return &fs.PathError{Op: "mv", Path: dst, Err: err}
		}
		s.logf("mv %q %q", src, dst)
		return nil
	})
}

// Remove deletes name and frees all of its blocks.
func (s *Store) Remove(name string) error {
	return s.update("rm", name, func(t *tx) error {
		i, err := t.dir.Find(name)
		if err != nil {
			return err
		}
		e := t.dir.Entry(i)
		if err := t.fat.FreeChain(e.FirstBlock); err != nil {
			return err
		}
		t.dir.Remove(i)
		s.logf("rm %q: freed %d bytes", name, e.Size)
		return nil
	})
}

// Append appends the contents of src to the end of dst. src is unchanged;
// appending a file to itself doubles it.
func (s *Store) Append(src, dst string) error {
	return s.update("append", src, func(t *tx) error {
		_, se, err := t.lookupFile(src)
		if err != nil {
			return err
		}
		di, _, err := t.lookupFile(dst)
		if err != nil {
			return &fs.PathError{Op: "append", Path: dst, Err: err}
		}
		var content bytes.Buffer
		if err := t.readStream(se.FirstBlock, se.Size, &content); err != nil {
			return err
		}
		if err := t.appendStream(di, content.Bytes()); err != nil {
			return err
		}
		s.logf("append %q %q: %d bytes", src, dst, content.Len())
		return nil
	})
}

// Chmod sets the access rights recorded for name. Rights are not enforced.
func (s *Store) Chmod(rights directory.Rights, name string) error {
	return s.update("chmod", name, func(t *tx) error {
		i, err := t.dir.Find(name)
		if err != nil {
			return err
		}
		t.dir.SetRights(i, rights)
		s.logf("chmod %s %q", rights, name)
		return nil
	})
}

// Usage describes the space consumption of a store.
type Usage struct {
	BlockSize   int
	DataBlocks  int
	FreeBlocks  int
	Files       int
	MaxFiles    int
	ContentSize uint64
}

// UsedBlocks returns the number of allocated data blocks.
func (u Usage) UsedBlocks() int { return u.DataBlocks - u.FreeBlocks }

// Usage returns the current space consumption.
func (s *Store) Usage() (Usage, error) {
	var u Usage
	err := s.view("df", "/", func(t *tx) error {
		entries := t.dir.Entries()
		u = Usage{
			BlockSize:  len(t.buf),
			DataBlocks: t.fat.DataBlocks(),
			FreeBlocks: t.fat.FreeBlocks(),
			Files:      len(entries),
			MaxFiles:   directory.Capacity,
		}
		for _, e := range entries {
			u.ContentSize += uint64(e.Size)
		}
		return nil
	})
	return u, err
}
