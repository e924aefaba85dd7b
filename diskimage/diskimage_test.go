package diskimage_test

import (
	"bytes"
	"testing"

	"github.com/gokrazy/blockfs/disk"
	"github.com/gokrazy/blockfs/diskimage"
	"github.com/gokrazy/blockfs/store"
	"github.com/google/go-cmp/cmp"
)

func populated(t *testing.T) *disk.Memory {
	t.Helper()
	dev, err := disk.NewMemory(32)
	if err != nil {
		t.Fatal(err)
	}
	st := store.New(dev)
	if err := st.Format(); err != nil {
		t.Fatal(err)
	}
	if err := st.Create("resolv.conf", []byte("nameserver 8.8.8.8\n")); err != nil {
		t.Fatal(err)
	}
	if err := st.Create("zeroes", make([]byte, 3*disk.BlockSize)); err != nil {
		t.Fatal(err)
	}
	return dev
}

func TestExportImport(t *testing.T) {
	t.Parallel()

	for _, compress := range []bool{false, true} {
		compress := compress // copy
		t.Run(map[bool]string{false: "raw", true: "zstd"}[compress], func(t *testing.T) {
			t.Parallel()

			src := populated(t)
			var img, progress bytes.Buffer
			if err := diskimage.Export(&img, src, diskimage.Options{
				Compress: compress,
				Progress: &progress,
			}); err != nil {
				t.Fatal(err)
			}
			if got, want := progress.Len(), 32*disk.BlockSize; got != want {
				t.Errorf("progress saw %d bytes, want %d", got, want)
			}
			if !compress && img.Len() != 32*disk.BlockSize {
				t.Errorf("raw image has %d bytes, want %d", img.Len(), 32*disk.BlockSize)
			}
			if compress && img.Len() >= 32*disk.BlockSize {
				t.Errorf("compressed image has %d bytes, want fewer than %d", img.Len(), 32*disk.BlockSize)
			}

			dst, err := disk.NewMemory(32)
			if err != nil {
				t.Fatal(err)
			}
			if err := diskimage.Import(&img, dst, diskimage.Options{}); err != nil {
				t.Fatal(err)
			}
			st := store.New(dst)
			got, err := st.ReadFile("resolv.conf")
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff("nameserver 8.8.8.8\n", string(got)); diff != "" {
				t.Fatalf("unexpected resolv.conf contents: diff (-want +got):\n%s", diff)
			}
			if err := st.Check(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestImportSizeMismatch(t *testing.T) {
	t.Parallel()

	src := populated(t)
	var img bytes.Buffer
	if err := diskimage.Export(&img, src, diskimage.Options{}); err != nil {
		t.Fatal(err)
	}

	for _, blocks := range []int{16, 64} {
		dst, err := disk.NewMemory(blocks)
		if err != nil {
			t.Fatal(err)
		}
		if err := diskimage.Import(bytes.NewReader(img.Bytes()), dst, diskimage.Options{}); err == nil {
			t.Errorf("Import of a 32-block image into %d blocks unexpectedly succeeded", blocks)
		}
		if _, err := store.New(dst).List(); err == nil {
			t.Errorf("failed Import left a formatted store on a %d-block device", blocks)
		}
	}
}
