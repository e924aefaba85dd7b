// Package diskimage copies whole blockfs disk images between a disk.Device
// and a stream, optionally zstd-compressed.
package diskimage

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/gokrazy/blockfs/disk"
	"github.com/klauspost/compress/zstd"
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

type Options struct {
	// Compress selects zstd compression for Export. Import detects
	// compressed images automatically.
	Compress bool

	// Progress, if non-nil, receives every uncompressed block transferred.
	Progress io.Writer
}

// Export writes all blocks of dev to w.
func Export(w io.Writer, dev disk.Device, opts Options) error {
	if !opts.Compress {
		return writeBlocks(w, dev, opts.Progress)
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if err := writeBlocks(enc, dev, opts.Progress); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func writeBlocks(w io.Writer, dev disk.Device, progress io.Writer) error {
	if progress != nil {
		w = io.MultiWriter(w, progress)
	}
	buf := make([]byte, disk.BlockSize)
	for i := 0; i < dev.NumBlocks(); i++ {
		if err := dev.ReadBlock(uint16(i), buf); err != nil {
			return err
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// Import replaces the contents of dev with the image read from r. The image
// must hold exactly dev.NumBlocks() blocks; it is read completely before the
// first block is written, so a truncated image leaves dev untouched.
func Import(r io.Reader, dev disk.Device, opts Options) error {
	br := bufio.NewReader(r)
	var in io.Reader = br
	if magic, err := br.Peek(len(zstdMagic)); err == nil && bytes.Equal(magic, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return err
		}
		defer dec.Close()
		in = dec
	}
	if opts.Progress != nil {
		in = io.TeeReader(in, opts.Progress)
	}

	want := dev.NumBlocks() * disk.BlockSize
	img, err := io.ReadAll(io.LimitReader(in, int64(want)+1))
	if err != nil {
		return err
	}
	if len(img) != want {
		return fmt.Errorf("image has %d bytes, device needs exactly %d (%d blocks)", len(img), want, dev.NumBlocks())
	}
	for i := 0; i < dev.NumBlocks(); i++ {
		if err := dev.WriteBlock(uint16(i), img[i*disk.BlockSize:(i+1)*disk.BlockSize]); err != nil {
			return err
		}
	}
	return nil
}
