// blockfs manages files on a FAT-based disk image.
//
// Without a command, blockfs starts an interactive shell:
//
//	blockfs --disk /tmp/disk.img
//	$ format
//	$ create hello
//	hello, world
//
//	$ ls
//	name size
//	hello 13
//
// Each command can also be run directly, e.g. blockfs cat hello. The exit
// status distinguishes the failure kinds (see command.ExitCode).
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"

	"github.com/gokrazy/blockfs/command"
	"github.com/gokrazy/blockfs/diskflag"
	"github.com/gokrazy/blockfs/store"
	"github.com/spf13/pflag"
)

func run(args []string, debug bool) error {
	if len(args) == 0 {
		args = []string{"shell"}
	}
	dev, closer, err := diskflag.Open(command.ReadOnly(args[0]))
	if err != nil {
		return err
	}
	defer closer.Close()

	st := store.New(dev)
	if debug {
		st.Log = log.New(os.Stderr, "blockfs: ", log.Lmicroseconds)
	}
	env := &command.Env{
		Store:  st,
		Dev:    dev,
		Stdin:  bufio.NewReader(os.Stdin),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if args[0] == "shell" {
		return command.Shell(env)
	}
	return command.Run(env, args)
}

func main() {
	log.SetFlags(0)
	diskflag.RegisterPflags(pflag.CommandLine)
	debug := pflag.Bool("debug", false, "log every modification of the store to stderr")
	pflag.CommandLine.SetInterspersed(false)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] [command [args]]\n\nflags:\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\ncommands (without a command, an interactive shell is started):\n")
		command.Usage(os.Stderr)
	}
	pflag.Parse()

	args := pflag.Args()
	if err := run(args, *debug); err != nil {
		// The shell reports failing commands as they happen.
		if len(args) > 0 && args[0] != "shell" {
			log.Print(err)
		}
		os.Exit(command.ExitCode(err))
	}
}
