// Package diskflag registers the flags selecting the disk image a blockfs
// command operates on.
package diskflag

import (
	"io"
	"os"

	"github.com/gokrazy/blockfs/config"
	"github.com/gokrazy/blockfs/disk"
	"github.com/spf13/pflag"
)

var (
	path = os.Getenv("BLOCKFS_DISK")

	readOnly bool
)

func RegisterPflags(fs *pflag.FlagSet) {
	fs.StringVarP(&path,
		"disk",
		"d",
		path,
		`disk image (default: $BLOCKFS_DISK, else the image configured in the config directory)`)

	fs.BoolVar(&readOnly,
		"readonly",
		readOnly,
		`open the disk image read-only, even for commands which modify it`)
}

func SetPath(p string) {
	path = p
}

func SetReadOnly(ro bool) {
	readOnly = ro
}

// Path returns the disk image path, falling back to the configured default.
func Path() string {
	if path == "" {
		return config.DiskImage()
	}
	return path
}

func ReadOnly() bool {
	return readOnly
}

// Open opens the selected disk image. Read-only images are memory-mapped and
// must exist; writable images are created if missing and locked exclusively.
func Open(ro bool) (disk.Device, io.Closer, error) {
	if ro || readOnly {
		dev, err := disk.OpenReadOnly(Path())
		if err != nil {
			return nil, nil, err
		}
		return dev, dev, nil
	}
	dev, err := disk.Open(Path())
	if err != nil {
		return nil, nil, err
	}
	return dev, dev, nil
}
