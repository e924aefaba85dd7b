package store_test

import (
	"bytes"
	"testing"

	"github.com/gokrazy/blockfs/disk"
)

func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte(""), []byte("hello\n"))
	f.Add([]byte("x"), bytes.Repeat([]byte("y"), disk.BlockSize+1))
	f.Fuzz(func(t *testing.T, first, second []byte) {
		if len(first)+len(second) > 6*disk.BlockSize {
			return // first plus the appended second must fit into 14 data blocks
		}

		st, _ := newStore(t, 16)
		if err := st.Create("first", first); err != nil {
			t.Fatal(err)
		}
		if err := st.Create("second", second); err != nil {
			t.Fatal(err)
		}
		if err := st.Append("first", "second"); err != nil {
			t.Fatal(err)
		}
		got, err := st.ReadFile("second")
		if err != nil {
			t.Fatal(err)
		}
		if want := append(append([]byte(nil), second...), first...); !bytes.Equal(got, want) {
			t.Fatalf("second has %d bytes after append, want %d (content mismatch)", len(got), len(want))
		}
		if err := st.Remove("first"); err != nil {
			t.Fatal(err)
		}
		mustCheck(t, st)
	})
}
