package diskflag_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/gokrazy/blockfs/disk"
	"github.com/gokrazy/blockfs/diskflag"
	"github.com/spf13/pflag"
)

func TestOpen(t *testing.T) {
	img := filepath.Join(t.TempDir(), "flag.img")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	diskflag.RegisterPflags(fs)
	if err := fs.Parse([]string{"--disk", img}); err != nil {
		t.Fatal(err)
	}
	if got, want := diskflag.Path(), img; got != want {
		t.Fatalf("Path() = %q, want %q", got, want)
	}

	dev, closer, err := diskflag.Open(false)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := dev.NumBlocks(), disk.MaxBlocks; got != want {
		t.Errorf("NumBlocks() = %d, want %d", got, want)
	}
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	dev, closer, err = diskflag.Open(true)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()
	buf := make([]byte, disk.BlockSize)
	if err := dev.WriteBlock(0, buf); !errors.Is(err, disk.ErrReadOnly) {
		t.Errorf("WriteBlock on read-only image = %v, want %v", err, disk.ErrReadOnly)
	}
}
