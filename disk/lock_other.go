//go:build !(linux || darwin || freebsd || openbsd || netbsd || dragonfly)

package disk

import "os"

// Advisory locking is only implemented where flock(2) exists.
func lock(f *os.File) error { return nil }

func unlock(f *os.File) {}
