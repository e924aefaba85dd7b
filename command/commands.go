package command

import (
	"context"
	"fmt"
	"os"

	"github.com/gokrazy/blockfs/directory"
	"github.com/gokrazy/blockfs/disk"
	"github.com/gokrazy/blockfs/diskimage"
	"github.com/gokrazy/blockfs/humanize"
	"github.com/gokrazy/blockfs/progress"
	"github.com/gokrazy/blockfs/store"
	"github.com/spf13/pflag"
)

func init() {
	register(&command{
		name:  "format",
		usage: "format",
		help:  "create an empty file system",
		run: func(env *Env, args []string, flags *pflag.FlagSet) error {
			return env.Store.Format()
		},
	})

	register(&command{
		name:  "create",
		usage: "create <name>",
		help:  "create a file from the following lines, ended by an empty line",
		args:  1,
		run: func(env *Env, args []string, flags *pflag.FlagSet) error {
			return create(env, args[0])
		},
	})

	register(&command{
		name:     "cat",
		usage:    "cat <name>",
		help:     "print the contents of a file",
		args:     1,
		readOnly: true,
		run: func(env *Env, args []string, flags *pflag.FlagSet) error {
			return env.Store.Cat(args[0], env.Stdout)
		},
	})

	register(&command{
		name:     "ls",
		usage:    "ls [-l]",
		help:     "list files",
		readOnly: true,
		flags: func(fs *pflag.FlagSet) {
			fs.BoolP("long", "l", false, "also print type and access rights")
		},
		run: func(env *Env, args []string, flags *pflag.FlagSet) error {
			return list(env, boolFlag(flags, "long"))
		},
	})

	register(&command{
		name:  "cp",
		usage: "cp <src> <dst>",
		help:  "copy a file",
		args:  2,
		run: func(env *Env, args []string, flags *pflag.FlagSet) error {
			return env.Store.Copy(args[0], args[1])
		},
	})

	register(&command{
		name:  "mv",
		usage: "mv <src> <dst>",
		help:  "rename a file",
		args:  2,
		run: func(env *Env, args []string, flags *pflag.FlagSet) error {
			return env.Store.Rename(args[0], args[1])
		},
	})

	register(&command{
		name:  "rm",
		usage: "rm <name>",
		help:  "remove a file",
		args:  1,
		run: func(env *Env, args []string, flags *pflag.FlagSet) error {
			return env.Store.Remove(args[0])
		},
	})

	register(&command{
		name:  "append",
		usage: "append <src> <dst>",
		help:  "append the contents of src to dst",
		args:  2,
		run: func(env *Env, args []string, flags *pflag.FlagSet) error {
			return env.Store.Append(args[0], args[1])
		},
	})

	register(&command{
		name:  "chmod",
		usage: "chmod <rights> <name>",
		help:  "set access rights, e.g. 6 or rw-",
		args:  2,
		run: func(env *Env, args []string, flags *pflag.FlagSet) error {
			rights, err := directory.ParseRights(args[0])
			if err != nil {
				return fmt.Errorf("%v: %w", err, ErrUsage)
			}
			return env.Store.Chmod(rights, args[1])
		},
	})

	register(&command{
		name:  "mkdir",
		usage: "mkdir <dir>",
		help:  "create a directory (unsupported)",
		args:  1,
		run: func(env *Env, args []string, flags *pflag.FlagSet) error {
			return fmt.Errorf("mkdir %s: %w", args[0], errUnsupported)
		},
	})

	register(&command{
		name:     "cd",
		usage:    "cd <dir>",
		help:     "change directory (only / exists)",
		args:     1,
		readOnly: true,
		run: func(env *Env, args []string, flags *pflag.FlagSet) error {
			switch args[0] {
			case "/", ".", "..":
				return nil
			}
			return fmt.Errorf("cd %s: %w", args[0], errUnsupported)
		},
	})

	register(&command{
		name:     "pwd",
		usage:    "pwd",
		help:     "print the current directory",
		readOnly: true,
		run: func(env *Env, args []string, flags *pflag.FlagSet) error {
			_, err := fmt.Fprintln(env.Stdout, "/")
			return err
		},
	})

	register(&command{
		name:     "df",
		usage:    "df [-h]",
		help:     "print space usage",
		readOnly: true,
		flags: func(fs *pflag.FlagSet) {
			fs.BoolP("human-readable", "h", false, "print sizes in powers of 1024")
		},
		run: func(env *Env, args []string, flags *pflag.FlagSet) error {
			return df(env, boolFlag(flags, "human-readable"))
		},
	})

	register(&command{
		name:     "fsck",
		usage:    "fsck",
		help:     "check file system consistency",
		readOnly: true,
		run: func(env *Env, args []string, flags *pflag.FlagSet) error {
			if err := env.Store.Check(); err != nil {
				return err
			}
			_, err := fmt.Fprintln(env.Stdout, "ok")
			return err
		},
	})

	register(&command{
		name:     "export",
		usage:    "export [--zstd] [-p] <file>",
		help:     "write the disk image to a file",
		args:     1,
		readOnly: true,
		flags: func(fs *pflag.FlagSet) {
			fs.Bool("zstd", false, "compress the image with zstd")
			fs.BoolP("progress", "p", false, "report progress on stderr")
		},
		run: func(env *Env, args []string, flags *pflag.FlagSet) error {
			return export(env, args[0], boolFlag(flags, "zstd"), boolFlag(flags, "progress"))
		},
	})

	register(&command{
		name:  "import",
		usage: "import [-p] <file>",
		help:  "replace the disk image with a (possibly zstd-compressed) file",
		args:  1,
		flags: func(fs *pflag.FlagSet) {
			fs.BoolP("progress", "p", false, "report progress on stderr")
		},
		run: func(env *Env, args []string, flags *pflag.FlagSet) error {
			return importImage(env, args[0], boolFlag(flags, "progress"))
		},
	})

	register(&command{
		name:     "help",
		usage:    "help",
		help:     "print this list",
		readOnly: true,
		run: func(env *Env, args []string, flags *pflag.FlagSet) error {
			Usage(env.Stdout)
			return nil
		},
	})
}

func boolFlag(fs *pflag.FlagSet, name string) bool {
	v, _ := fs.GetBool(name)
	return v
}

func create(env *Env, name string) error {
	// Fail before consuming any input, so that the shell does not swallow
	// the following lines as file content.
	if err := directory.ValidName(name); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := env.Store.Stat(name); err == nil {
		return fmt.Errorf("create %s: %w", name, store.ErrDuplicateName)
	}
	content, err := ReadContent(env.Stdin)
	if err != nil {
		return err
	}
	return env.Store.Create(name, content)
}

func list(env *Env, long bool) error {
	entries, err := env.Store.List()
	if err != nil {
		return err
	}
	if long {
		fmt.Fprintln(env.Stdout, "name type accessrights size")
	} else {
		fmt.Fprintln(env.Stdout, "name size")
	}
	for _, e := range entries {
		if long {
			fmt.Fprintf(env.Stdout, "%s %s %s %d\n", e.Name, e.Type, e.Rights, e.Size)
			continue
		}
		fmt.Fprintf(env.Stdout, "%s %d\n", e.Name, e.Size)
	}
	return nil
}

func df(env *Env, human bool) error {
	u, err := env.Store.Usage()
	if err != nil {
		return err
	}
	size := func(blocks int) string {
		b := uint64(blocks) * uint64(u.BlockSize)
		if human {
			return humanize.Bytes(b)
		}
		return fmt.Sprint(b)
	}
	fmt.Fprintf(env.Stdout, "blocks: %d total, %d used, %d free (%d bytes each)\n",
		u.DataBlocks, u.UsedBlocks(), u.FreeBlocks, u.BlockSize)
	fmt.Fprintf(env.Stdout, "space:  %s total, %s used, %s free\n",
		size(u.DataBlocks), size(u.UsedBlocks()), size(u.FreeBlocks))
	fmt.Fprintf(env.Stdout, "files:  %d of %d\n", u.Files, u.MaxFiles)
	return nil
}

func withProgress(env *Env, status string, total uint64, enabled bool, fn func(p *progress.Reporter) error) error {
	if !enabled {
		return fn(nil)
	}
	p := &progress.Reporter{}
	p.SetStatus(status)
	p.SetTotal(total)
	ctx, canc := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Report(ctx, env.Stderr)
	}()
	err := fn(p)
	canc()
	<-done
	return err
}

func imageSize(env *Env) uint64 {
	return uint64(env.Dev.NumBlocks()) * disk.BlockSize
}

func export(env *Env, path string, compress, showProgress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	err = withProgress(env, "export", imageSize(env), showProgress, func(p *progress.Reporter) error {
		opts := diskimage.Options{Compress: compress}
		if p != nil {
			opts.Progress = p
		}
		return diskimage.Export(f, env.Dev, opts)
	})
	if err != nil {
		return err
	}
	return f.Close()
}

func importImage(env *Env, path string, showProgress bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return withProgress(env, "import", imageSize(env), showProgress, func(p *progress.Reporter) error {
		var opts diskimage.Options
		if p != nil {
			opts.Progress = p
		}
		return diskimage.Import(f, env.Dev, opts)
	})
}
