package command

import (
	"fmt"
	"io"
	"strings"
)

// Shell reads commands from env.Stdin, one per line, until "quit", "exit"
// or the end of input. Failing commands are reported on env.Stderr and do
// not end the shell. Shell returns the error of the last command, if any.
func Shell(env *Env) error {
	var last error
	for {
		fmt.Fprint(env.Stdout, "$ ")
		line, err := env.Stdin.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			if err == io.EOF {
				fmt.Fprintln(env.Stdout)
				return last
			}
			continue
		}
		switch args[0] {
		case "quit", "exit":
			return last
		case "shell":
			last = fmt.Errorf("already in a shell: %w", ErrUsage)
		default:
			last = Run(env, args)
		}
		if last != nil {
			fmt.Fprintf(env.Stderr, "%v\n", last)
		}
		if err == io.EOF {
			return last
		}
	}
}
