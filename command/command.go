// Package command implements the blockfs command surface shared by the
// blockfs binary and its interactive shell.
package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gokrazy/blockfs/disk"
	"github.com/gokrazy/blockfs/store"
	"github.com/spf13/pflag"
)

// ErrUsage is returned for unknown commands and wrong arguments.
var ErrUsage = errors.New("usage error")

// errUnsupported is returned by the hierarchical directory commands.
var errUnsupported = errors.New("subdirectories are not supported")

// Env is what commands operate on.
type Env struct {
	Store *store.Store
	Dev   disk.Device

	// Stdin provides file contents for create.
	Stdin  *bufio.Reader
	Stdout io.Writer
	Stderr io.Writer
}

type command struct {
	name  string
	usage string
	help  string

	// args is the number of positional arguments.
	args int

	// readOnly commands never write to the device.
	readOnly bool

	// flags, if non-nil, registers command-specific flags.
	flags func(fs *pflag.FlagSet)

	run func(env *Env, args []string, flags *pflag.FlagSet) error
}

var commands = make(map[string]*command)

func register(c *command) {
	commands[c.name] = c
}

// ReadOnly reports whether the command name never modifies the store, so the
// caller can open the disk image read-only.
func ReadOnly(name string) bool {
	c, ok := commands[name]
	return ok && c.readOnly
}

// Run runs the command described by args, e.g. []string{"cp", "a", "b"}.
func Run(env *Env, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given: %w", ErrUsage)
	}
	c, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q (try help): %w", args[0], ErrUsage)
	}
	fs := pflag.NewFlagSet(c.name, pflag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	if c.flags != nil {
		c.flags(fs)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%s: %v: %w", c.name, err, ErrUsage)
	}
	if fs.NArg() != c.args {
		return fmt.Errorf("usage: %s: %w", c.usage, ErrUsage)
	}
	return c.run(env, fs.Args(), fs)
}

// Usage writes the list of commands to w.
func Usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands[name]
		fmt.Fprintf(w, "  %-28s %s\n", c.usage, c.help)
	}
}

// ExitCode maps err to the process exit status of the blockfs binary.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, store.ErrInvalidName):
		return 2
	case errors.Is(err, store.ErrNotFound):
		return 3
	case errors.Is(err, store.ErrNotAFile):
		return 4
	case errors.Is(err, store.ErrDuplicateName):
		return 5
	case errors.Is(err, store.ErrDirectoryFull):
		return 6
	case errors.Is(err, store.ErrNoSpace):
		return 7
	case errors.Is(err, store.ErrCorruptChain):
		return 8
	default:
		return 1
	}
}

// ReadContent reads lines from r until an empty line (or end of input) and
// returns them, each terminated by a newline.
func ReadContent(r *bufio.Reader) ([]byte, error) {
	var content []byte
	for {
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return content, nil
		}
		content = append(content, line...)
		content = append(content, '\n')
		if err == io.EOF {
			return content, nil
		}
	}
}
