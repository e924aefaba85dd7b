package store

import (
	"fmt"
	"strings"

	"github.com/gokrazy/blockfs/directory"
	"github.com/gokrazy/blockfs/fat"
)

// CheckError lists the inconsistencies found by Check.
type CheckError struct {
	Problems []string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%d problem(s) found:\n\t%s", len(e.Problems), strings.Join(e.Problems, "\n\t"))
}

// Unwrap makes errors.Is(err, ErrCorruptChain) hold for all check failures.
func (e *CheckError) Unwrap() error { return ErrCorruptChain }

// Check verifies the consistency of the store without modifying it: every
// file's chain must be intact and hold exactly as many blocks as its size
// needs, no block may belong to two files, and every allocated block must
// belong to a file.
func (s *Store) Check() error {
	return s.view("fsck", "/", func(t *tx) error {
		var problems []string
		problemf := func(format string, v ...interface{}) {
			problems = append(problems, fmt.Sprintf(format, v...))
		}

		owner := make(map[uint16]string)
		names := make(map[string]bool)
		for _, e := range t.dir.Entries() {
			if names[e.Name] {
				problemf("%q: duplicate directory entry", e.Name)
			}
			names[e.Name] = true
			if err := directory.ValidName(e.Name); err != nil {
				problemf("%q: %v", e.Name, err)
			}
			if e.Type != directory.File {
				problemf("%q: unsupported entry type %v", e.Name, e.Type)
				continue
			}
			chain, err := t.fat.Chain(e.FirstBlock)
			if err != nil {
				problemf("%q: %v", e.Name, err)
				continue
			}
			if got, want := len(chain), fullBlocks(int(e.Size)); got != want {
				problemf("%q: %d blocks in chain, %d bytes need %d", e.Name, got, e.Size, want)
			}
			for _, idx := range chain {
				if other, ok := owner[idx]; ok {
					problemf("block %d shared by %q and %q", idx, other, e.Name)
					continue
				}
				owner[idx] = e.Name
			}
		}

		for i := 0; i < fat.Entries; i++ {
			idx := uint16(i)
			if fat.Reserved(idx) || t.fat.Next(idx) == fat.Free {
				continue
			}
			if i >= t.fat.Usable() {
				problemf("block %d beyond the device is allocated", idx)
				continue
			}
			if _, ok := owner[idx]; !ok {
				problemf("block %d allocated but not part of any file", idx)
			}
		}

		if len(problems) > 0 {
			return &CheckError{Problems: problems}
		}
		return nil
	})
}
