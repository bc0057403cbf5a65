// Package main provides the Luma CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/luma-ml/luma/internal/blobs"
	"github.com/luma-ml/luma/internal/interp"
	"github.com/peterh/liner"
	"k8s.io/klog/v2"
)

const (
	appName     = "luma"
	version     = "v0.1.0"
	historyFile = ".luma_history"
	promptMain  = "luma> "
	promptCont  = "  ... "
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch cmd := os.Args[1]; cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "version":
		fmt.Printf("Luma %s\n", version)
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `Usage:
  %[1]s run [flags] FILE     run a script (FILE may be - or a gs:// URI)
  %[1]s repl [flags]         start an interactive session
  %[1]s fmt [-w] FILE...     print scripts in canonical form (comments are dropped)
  %[1]s version              print the version

Run "%[1]s run -h" for the session flags.
`, appName)
}

// sessionFlags holds the flags shared by run and repl.
type sessionFlags struct {
	seed    int64
	workers int
	blobDir string
}

func newSessionFlags(name string) (*flag.FlagSet, *sessionFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	klog.InitFlags(fs)

	sf := &sessionFlags{}
	seed := int64(42)
	if v := os.Getenv("LUMA_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			seed = n
		} else {
			fmt.Fprintf(os.Stderr, "%s: ignoring LUMA_SEED=%q: not an integer\n", appName, v)
		}
	}
	fs.Int64Var(&sf.seed, "seed", seed, "session seed for shuffling, splits and weight initialization (env LUMA_SEED)")
	fs.IntVar(&sf.workers, "workers", 1, "data-parallel shards used by train")
	fs.StringVar(&sf.blobDir, "blob-dir", "", "serve gs:// paths from this local directory instead of Google Cloud Storage")
	return fs, sf
}

func (sf *sessionFlags) config(out io.Writer) interp.Config {
	cfg := interp.DefaultConfig()
	cfg.Out = out
	cfg.Seed = sf.seed
	cfg.Workers = sf.workers
	if sf.blobDir != "" {
		cfg.Store = &blobs.DirStore{Root: sf.blobDir}
	} else {
		cfg.Store = &blobs.GCSStore{}
	}
	return cfg
}

// -----------------------------------------------------------------------------
// run
// -----------------------------------------------------------------------------

func cmdRun(args []string) int {
	fs, sf := newSessionFlags("run")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "%s run: want exactly one script, got %d\n", appName, fs.NArg())
		return 2
	}
	defer klog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := sf.config(os.Stdout)
	src, err := readScript(ctx, fs.Arg(0), cfg.Store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return 1
	}

	klog.FromContext(ctx).V(1).Info("running script", "path", fs.Arg(0), "seed", cfg.Seed, "workers", cfg.Workers)
	if err := interp.NewSession(cfg).RunScript(ctx, src); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func readScript(ctx context.Context, path string, store blobs.Store) (string, error) {
	switch {
	case path == "-":
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	case blobs.IsRemote(path):
		tmp, err := blobs.Fetch(ctx, store, path)
		if err != nil {
			return "", err
		}
		defer os.Remove(tmp)
		path = tmp
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// -----------------------------------------------------------------------------
// repl
// -----------------------------------------------------------------------------

func cmdRepl(args []string) int {
	fs, sf := newSessionFlags("repl")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	defer klog.Flush()

	fmt.Printf("Luma %s. Type help for commands, exit to quit.\n", version)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	session := interp.NewSession(sf.config(os.Stdout))
	for {
		src, ok := readStatement(ln)
		if !ok {
			fmt.Println()
			return 0
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		// Ctrl+C during a long command cancels it, not the session.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		done, err := session.ExecLine(ctx, src)
		stop()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if done {
			return 0
		}
	}
}

// readStatement reads lines until brackets balance. ok is false at end of
// input.
func readStatement(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl+C discards the pending statement.
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if !interp.Incomplete(b.String()) {
			return b.String(), true
		}
	}
}

// -----------------------------------------------------------------------------
// fmt
// -----------------------------------------------------------------------------

func cmdFmt(args []string) int {
	fs := flag.NewFlagSet("fmt", flag.ContinueOnError)
	write := fs.Bool("w", false, "write result to the source file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "%s fmt: no files\n", appName)
		return 2
	}

	status := 0
	for _, path := range fs.Args() {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
			status = 1
			continue
		}
		out, err := interp.Format(string(src))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			status = 1
			continue
		}
		if !*write {
			fmt.Print(out)
			continue
		}
		if out == string(src) {
			continue
		}
		if strings.Contains(string(src), "#") {
			// The canonical form drops comments.
			fmt.Fprintf(os.Stderr, "%s: has comments, not rewritten\n", path)
			status = 1
			continue
		}
		if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
			status = 1
		}
	}
	return status
}
