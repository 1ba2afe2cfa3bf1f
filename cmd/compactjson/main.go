// compactjson - compact, human-readable JSON formatter
//
// Usage:
//
//	compactjson fmt [flags] [file]     Re-format JSON (or Python literal data) compactly
//	compactjson minify [flags] [file]  Write minified JSON with sorted keys
//	compactjson version                Print version info
//
// Files ending in .xz, .bz2, .zst or .gz are decompressed transparently.
// If no file is given, reads from stdin.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/amterp/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	slogjson "github.com/veqryn/slog-json"

	"github.com/amterp/compactjson"
	"github.com/amterp/compactjson/files"
	"github.com/amterp/compactjson/pydata"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type settings struct {
	indent    int
	width     int
	threshold int
	fallback  string
	color     string
	output    string
	config    string
	backup    bool
	verbose   bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	cmd := args[0]
	switch cmd {
	case "version", "-version", "--version":
		fmt.Fprintf(stdout, "compactjson %s\n", version)
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	case "fmt", "minify":
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", cmd)
		printUsage(stderr)
		return 2
	}

	s, file, err := parseFlags(cmd, args[1:], stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "compactjson %s: %v\n", cmd, err)
		return 2
	}

	logger := newLogger(stderr, s.verbose)
	if err := execute(cmd, s, file, stdin, stdout, logger); err != nil {
		fmt.Fprintf(stderr, "compactjson %s: %v\n", cmd, err)
		return 1
	}
	return 0
}

func parseFlags(cmd string, args []string, stderr io.Writer) (*settings, string, error) {
	s := &settings{}
	fs := flag.NewFlagSet("compactjson "+cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&s.indent, "indent", compactjson.DefaultIndent, "indent increment in spaces (fmt only)")
	fs.IntVar(&s.width, "width", compactjson.DefaultOneLineMaxWidth, "collapse blocks shorter than this many characters; negative disables")
	fs.IntVar(&s.threshold, "threshold", compactjson.DefaultSimpleThreshold, "key count at which objects stop being written inline")
	fs.StringVar(&s.fallback, "fallback", "error", "handling of values without a JSON form: error|debug")
	fs.StringVar(&s.color, "color", "auto", "colorize output: auto|always|never")
	fs.StringVar(&s.output, "o", "", "write to `file` instead of stdout, compressed by suffix")
	fs.StringVar(&s.config, "config", "", "read flag defaults from a YAML `file`")
	fs.BoolVar(&s.backup, "backup", true, "back up an existing -o file before overwriting it")
	fs.BoolVar(&s.verbose, "v", false, "log debug diagnostics to stderr")
	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}

	if s.config != "" {
		c, err := loadConfig(s.config)
		if err != nil {
			return nil, "", err
		}
		if err := c.apply(fs); err != nil {
			return nil, "", err
		}
	}

	if fs.NArg() > 1 {
		return nil, "", fmt.Errorf("too many arguments: %s", strings.Join(fs.Args(), " "))
	}
	file := fs.Arg(0)
	if file == "-" {
		file = ""
	}
	return s, file, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slogjson.NewHandler(w, &slogjson.HandlerOptions{Level: level}))
}

func execute(cmd string, s *settings, file string, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	opts, err := options(cmd, s, logger)
	if err != nil {
		return err
	}

	v, err := readInput(file, stdin, logger)
	if err != nil {
		return err
	}
	if cmd == "fmt" {
		v = compactjson.StripIndentHint(v)
	}

	if s.output != "" {
		saved, err := files.WriteJSON(s.output, v, opts, s.backup)
		if saved != "" {
			logger.Debug("backup created", "path", saved)
		}
		return err
	}

	enc := compactjson.NewEncoder(stdout)
	enc.SetOptions(opts)
	useColor, err := colorEnabled(s.color, stdout)
	if err != nil {
		return err
	}
	if useColor {
		color.NoColor = false
		if f, ok := stdout.(*os.File); ok {
			enc = compactjson.NewEncoder(colorable.NewColorable(f))
			enc.SetOptions(opts)
		}
		enc.SetFormatter(compactjson.NewFormatter())
	}
	return enc.Encode(v)
}

func options(cmd string, s *settings, logger *slog.Logger) (compactjson.Options, error) {
	opts := compactjson.DefaultOptions()
	if cmd == "fmt" {
		opts.Indent = s.indent
	}
	opts.OneLineMaxWidth = s.width
	opts.SimpleThreshold = s.threshold
	fallback, err := compactjson.ParseFallbackPolicy(s.fallback)
	if err != nil {
		return opts, err
	}
	opts.Fallback = fallback
	opts.Logger = logger
	return opts, nil
}

// readInput decodes JSON, or Python literal data when the file name (minus
// any compression suffix) ends in .py.
func readInput(file string, stdin io.Reader, logger *slog.Logger) (any, error) {
	r := stdin
	name := "<stdin>"
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open file: %w", err)
		}
		defer f.Close()
		r, name = f, file
	}

	text, kind, err := files.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	logger.Debug("input read", "source", name, "compression", kind.String())

	if strings.HasSuffix(files.TrimCompressionSuffix(file), ".py") {
		return pydata.Parse(text)
	}
	return compactjson.Loads([]byte(text))
}

func colorEnabled(mode string, w io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		if os.Getenv("NO_COLOR") != "" {
			return false, nil
		}
		f, ok := w.(*os.File)
		if !ok {
			return false, nil
		}
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()), nil
	}
	return false, fmt.Errorf("unknown color mode %q", mode)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `compactjson - compact, human-readable JSON formatter

Usage:
  compactjson fmt [flags] [file]      Re-format JSON (or .py literal data) compactly
  compactjson minify [flags] [file]   Write minified JSON with sorted keys
  compactjson version                 Print version info

Flags:
  -indent N           Indent increment (default 2, fmt only)
  -width W            Collapse blocks shorter than W characters (default 200, <0 disables)
  -threshold T        Objects with T or more keys are never inline (default 16)
  -fallback MODE      error|debug handling of values without a JSON form (default error)
  -color MODE         auto|always|never (default auto)
  -o FILE             Write to FILE, compressed by suffix (.xz .bz2 .zst .gz)
  -backup             Back up an existing -o FILE to .backup/ first (default true)
  -config FILE        Read flag defaults from a YAML file
  -v                  Log debug diagnostics to stderr

If no file is given, reads from stdin.

Examples:
  echo '{"b":1,"a":[[1,2]]}' | compactjson fmt
  # Output: {"a":[[1,2]],"b":1}

  compactjson fmt -indent 4 -o table.json.xz table.py
`)
}
