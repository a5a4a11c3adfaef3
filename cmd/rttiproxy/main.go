package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	lua "github.com/yuin/gopher-lua"
	"golang.org/x/sync/errgroup"

	"github.com/daimatz/rttiproxy/pkg/bridge"
	"github.com/daimatz/rttiproxy/pkg/native"
	"github.com/daimatz/rttiproxy/pkg/rtti"
)

const catalogEnv = "RTTIPROXY_CATALOG"

func main() {
	if err := runCLI(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCLI(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	switch args[1] {
	case "run":
		return runCommand(args[2:])
	case "dump":
		return dumpCommand(args[2:])
	case "repl":
		return replCommand(args[2:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError()
	}
}

// catalogFlags are the flags shared by every subcommand.
type catalogFlags struct {
	dir     string
	name    string
	verbose bool
}

func (c *catalogFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.dir, "catalog", "", "directory of catalog files (default $"+catalogEnv+")")
	fs.StringVar(&c.name, "name", native.DefaultCatalog, "catalog to load")
	fs.BoolVar(&c.verbose, "v", false, "log lookups and call errors at debug level")
}

// catalogDir returns the catalog directory from the flag, then the
// environment. Empty means the embedded catalogs only.
func (c *catalogFlags) catalogDir() string {
	if c.dir != "" {
		return c.dir
	}
	return os.Getenv(catalogEnv)
}

// load builds a catalog. Directory catalogs delegate to the embedded ones
// first so they can import them.
func (c *catalogFlags) load(stdout io.Writer) (*rtti.System, error) {
	var loader rtti.Loader = native.NewLoader(nil)
	if dir := c.catalogDir(); dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("access catalog directory %q: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("catalog %q is not a directory", dir)
		}
		loader = rtti.NewDirLoader(dir, loader)
	}
	sys := rtti.NewSystem()
	if err := native.LoadFrom(sys, loader, c.name, stdout); err != nil {
		return nil, err
	}
	return sys, nil
}

func (c *catalogFlags) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	var cf catalogFlags
	cf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	scripts := fs.Args()
	if len(scripts) == 0 {
		return errors.New("rttiproxy run: script path required")
	}

	stdout := &lockedWriter{w: os.Stdout}
	logger := cf.logger(&lockedWriter{w: os.Stderr})

	g, ctx := errgroup.WithContext(context.Background())
	for _, path := range scripts {
		path := path
		g.Go(func() error {
			return runScript(ctx, &cf, path, stdout, logger)
		})
	}
	return g.Wait()
}

// runScript runs one script in its own Lua state against its own catalog,
// so scripts running side by side never share native instances.
func runScript(ctx context.Context, cf *catalogFlags, path string, stdout io.Writer, logger *slog.Logger) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	sys, err := cf.load(stdout)
	if err != nil {
		return err
	}

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)
	b := bridge.New(L, sys, bridge.WithLogger(logger.With(slog.String("script", filepath.Base(path)))))
	b.Register()

	if err := L.DoString(string(source)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

var (
	classStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true)
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	memberStyle  = lipgloss.NewStyle().PaddingLeft(4)
	emptyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).PaddingLeft(4)
)

func dumpCommand(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	var cf catalogFlags
	cf.register(fs)
	hashes := fs.Bool("hashes", false, "append name hashes to functions")
	plain := fs.Bool("plain", false, "print the descriptor block without styling")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sys, err := cf.load(io.Discard)
	if err != nil {
		return err
	}
	var classes []*rtti.Class
	if fs.NArg() == 0 {
		for _, c := range sys.Classes() {
			if c.Kind == rtti.KindClass {
				classes = append(classes, c)
			}
		}
	}
	for _, name := range fs.Args() {
		c := sys.Class(name)
		if c == nil {
			return fmt.Errorf("rttiproxy dump: %w %q", rtti.ErrUnknownClass, name)
		}
		classes = append(classes, c)
	}

	for _, c := range classes {
		d := bridge.Dump(c, *hashes)
		if *plain {
			fmt.Println(d.String())
			continue
		}
		fmt.Println(renderDescriptor(d))
	}
	return nil
}

func renderDescriptor(d bridge.Descriptor) string {
	var b strings.Builder
	b.WriteString(classStyle.Render(d.Name) + "\n")
	for _, section := range []struct {
		title   string
		members []string
	}{
		{"functions", d.Functions},
		{"static functions", d.StaticFunctions},
		{"properties", d.Properties},
	} {
		b.WriteString("  " + sectionStyle.Render(section.title) + "\n")
		if len(section.members) == 0 {
			b.WriteString(emptyStyle.Render("none") + "\n")
		}
		for _, m := range section.members {
			b.WriteString(memberStyle.Render(m) + "\n")
		}
	}
	return b.String()
}

func replCommand(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	var cf catalogFlags
	cf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return runREPL(&cf)
}

func usageError() error {
	printUsage()
	return errors.New("invalid command")
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  %s run [flags] <script.lua>...\n", prog)
	fmt.Fprintf(os.Stderr, "  %s dump [flags] [-hashes] [-plain] [class...]\n", prog)
	fmt.Fprintf(os.Stderr, "  %s repl [flags]\n", prog)
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprintln(os.Stderr, "  -catalog <dir>")
	fmt.Fprintf(os.Stderr, "    directory of catalog files (default $%s, else the embedded catalogs)\n", catalogEnv)
	fmt.Fprintln(os.Stderr, "  -name string")
	fmt.Fprintf(os.Stderr, "    catalog to load (default %q)\n", native.DefaultCatalog)
	fmt.Fprintln(os.Stderr, "  -v")
	fmt.Fprintln(os.Stderr, "    log lookups and call errors at debug level")
}

type flagErrorSink struct{}

func (flagErrorSink) Write(p []byte) (int, error) {
	return len(p), nil
}

// lockedWriter serializes writes from scripts running side by side.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
