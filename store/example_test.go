package store_test

import (
	"fmt"
	"log"
	"os"

	"github.com/gokrazy/blockfs/disk"
	"github.com/gokrazy/blockfs/store"
)

func Example() {
	dev, err := disk.NewMemory(disk.MaxBlocks)
	if err != nil {
		log.Fatal(err)
	}

	st := store.New(dev)
	if err := st.Format(); err != nil {
		log.Fatal(err)
	}
	if err := st.Create("a", []byte("foo\n")); err != nil {
		log.Fatal(err)
	}
	if err := st.Create("b", []byte("bar\n")); err != nil {
		log.Fatal(err)
	}
	if err := st.Append("a", "b"); err != nil {
		log.Fatal(err)
	}

	entries, err := st.List()
	if err != nil {
		log.Fatal(err)
	}
	for _, e := range entries {
		fmt.Println(e.Name, e.Size)
	}
	if err := st.Cat("b", os.Stdout); err != nil {
		log.Fatal(err)
	}
	// Output:
	// a 4
	// b 8
	// bar
	// foo
}
