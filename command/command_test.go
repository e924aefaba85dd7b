package command

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gokrazy/blockfs/disk"
	"github.com/gokrazy/blockfs/store"
	"github.com/google/go-cmp/cmp"
)

type testEnv struct {
	*Env
	stdout, stderr *bytes.Buffer
}

func newEnv(t *testing.T, stdin string) *testEnv {
	t.Helper()
	dev, err := disk.NewMemory(32)
	if err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	return &testEnv{
		Env: &Env{
			Store:  store.New(dev),
			Dev:    dev,
			Stdin:  bufio.NewReader(strings.NewReader(stdin)),
			Stdout: &stdout,
			Stderr: &stderr,
		},
		stdout: &stdout,
		stderr: &stderr,
	}
}

func (e *testEnv) run(t *testing.T, args ...string) {
	t.Helper()
	if err := Run(e.Env, args); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
}

func TestReadContent(t *testing.T) {
	for _, tt := range []struct {
		in, want, rest string
	}{
		{"hello\n\nls\n", "hello\n", "ls\n"},
		{"a\nb\n\n", "a\nb\n", ""},
		{"\n", "", ""},
		{"", "", ""},
		{"unterminated", "unterminated\n", ""},
		{"dos\r\n\r\n", "dos\n", ""},
	} {
		r := bufio.NewReader(strings.NewReader(tt.in))
		got, err := ReadContent(r)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != tt.want {
			t.Errorf("ReadContent(%q) = %q, want %q", tt.in, got, tt.want)
		}
		rest := new(strings.Builder)
		if _, err := r.WriteTo(rest); err != nil {
			t.Fatal(err)
		}
		if rest.String() != tt.rest {
			t.Errorf("ReadContent(%q) left %q unread, want %q", tt.in, rest, tt.rest)
		}
	}
}

func TestCommands(t *testing.T) {
	env := newEnv(t, "hello\n\nfoo\n\n")
	env.run(t, "format")
	env.run(t, "create", "x")
	env.run(t, "create", "y")
	env.run(t, "cp", "x", "z")
	env.run(t, "append", "y", "z")
	env.run(t, "mv", "z", "w")
	env.run(t, "rm", "x")
	env.run(t, "chmod", "r--", "w")
	env.stdout.Reset()

	env.run(t, "ls")
	env.run(t, "cat", "w")
	env.run(t, "ls", "-l")
	env.run(t, "pwd")
	want := `name size
y 4
w 10
hello
foo
name type accessrights size
y file rw- 4
w file r-- 10
/
`
	if diff := cmp.Diff(want, env.stdout.String()); diff != "" {
		t.Fatalf("unexpected output: diff (-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	env := newEnv(t, "")
	env.run(t, "format")
	for _, tt := range []struct {
		args []string
		want error
		code int
	}{
		{[]string{"frobnicate"}, ErrUsage, 1},
		{[]string{"cp", "a"}, ErrUsage, 1},
		{[]string{"ls", "--bogus"}, ErrUsage, 1},
		{[]string{"chmod", "rwz", "a"}, ErrUsage, 1},
		{[]string{"cat", "missing"}, store.ErrNotFound, 3},
		{[]string{"create", "a/b"}, store.ErrInvalidName, 2},
		{[]string{"mkdir", "sub"}, errUnsupported, 1},
		{[]string{"cd", "sub"}, errUnsupported, 1},
	} {
		err := Run(env.Env, tt.args)
		if !errors.Is(err, tt.want) {
			t.Errorf("%v: got %v, want %v", tt.args, err, tt.want)
		}
		if got := ExitCode(err); got != tt.code {
			t.Errorf("%v: exit code %d, want %d", tt.args, got, tt.code)
		}
	}
	if err := Run(env.Env, []string{"cd", "/"}); err != nil {
		t.Errorf("cd /: %v", err)
	}
}

func TestExitCode(t *testing.T) {
	for _, tt := range []struct {
		err  error
		want int
	}{
		{nil, 0},
		{store.ErrInvalidName, 2},
		{store.ErrNotFound, 3},
		{store.ErrNotAFile, 4},
		{fmt.Errorf("create x: %w", store.ErrDuplicateName), 5},
		{store.ErrDirectoryFull, 6},
		{store.ErrNoSpace, 7},
		{&store.CheckError{Problems: []string{"x"}}, 8},
		{errors.New("disk on fire"), 1},
	} {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestShell(t *testing.T) {
	script := strings.Join([]string{
		"format",
		"create dup",
		"x",
		"",
		"create dup", // fails without consuming the next line
		"cat dup",
		"",
		"ls",
		"quit",
		"ls", // never run
	}, "\n") + "\n"
	env := newEnv(t, script)
	if err := Shell(env.Env); err != nil {
		t.Fatalf("Shell: %v", err)
	}
	want := "$ $ $ $ x\n$ $ name size\ndup 2\n$ "
	if diff := cmp.Diff(want, env.stdout.String()); diff != "" {
		t.Fatalf("unexpected shell output: diff (-want +got):\n%s", diff)
	}
	if got := env.stderr.String(); !strings.Contains(got, store.ErrDuplicateName.Error()) {
		t.Errorf("stderr = %q, want it to mention %q", got, store.ErrDuplicateName)
	}
}

func TestDfFsck(t *testing.T) {
	env := newEnv(t, "")
	env.run(t, "format")
	env.stdout.Reset()
	env.run(t, "df", "-h")
	env.run(t, "fsck")
	want := `blocks: 30 total, 0 used, 30 free (4096 bytes each)
space:  120.0 KiB total, 0 B used, 120.0 KiB free
files:  0 of 64
ok
`
	if diff := cmp.Diff(want, env.stdout.String()); diff != "" {
		t.Fatalf("unexpected output: diff (-want +got):\n%s", diff)
	}
}

func TestExportImport(t *testing.T) {
	img := filepath.Join(t.TempDir(), "disk.img.zst")

	src := newEnv(t, "nameserver 8.8.8.8\n\n")
	src.run(t, "format")
	src.run(t, "create", "resolv.conf")
	src.run(t, "export", "--zstd", img)
	if _, err := os.Stat(img); err != nil {
		t.Fatal(err)
	}

	dst := newEnv(t, "")
	dst.run(t, "import", img)
	dst.run(t, "cat", "resolv.conf")
	if got, want := dst.stdout.String(), "nameserver 8.8.8.8\n"; got != want {
		t.Fatalf("cat resolv.conf = %q, want %q", got, want)
	}
}

func TestReadOnly(t *testing.T) {
	for name, want := range map[string]bool{
		"cat":    true,
		"ls":     true,
		"export": true,
		"create": false,
		"import": false,
		"bogus":  false,
	} {
		if got := ReadOnly(name); got != want {
			t.Errorf("ReadOnly(%q) = %v, want %v", name, got, want)
		}
	}
}
