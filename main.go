// rs2zig translates Rust FFI binding declarations into Zig.
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
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/phobologic/rs2zig/internal/discover"
	"github.com/phobologic/rs2zig/internal/graph"
	"github.com/phobologic/rs2zig/internal/lang"
	"github.com/phobologic/rs2zig/internal/model"
	"github.com/phobologic/rs2zig/internal/parse"
	"github.com/phobologic/rs2zig/internal/toon"
	"github.com/phobologic/rs2zig/internal/translate"
)

var version = "dev"

const defaultMaxFileSize = 1_000_000 // 1 MB

// linkStampFile records, inside a directory run's output tree, the link name
// its outputs were written with.
const linkStampFile = ".rs2zig-link"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type config struct {
	linkName string
	output   string
	force    bool
	report   bool
	maxSize  int
	log      *slog.Logger
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("rs2zig", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		cfg         config
		verbose     bool
		showVersion bool
	)

	fs.StringVar(&cfg.linkName, "link", translate.DefaultLinkName, "library name attached to every extern declaration")
	fs.StringVar(&cfg.output, "o", "", "output file (file input) or directory (directory input)")
	fs.BoolVar(&cfg.force, "force", false, "retranslate files whose output is up to date")
	fs.BoolVar(&cfg.report, "report", false, "print a TOON summary of a directory run")
	fs.IntVar(&cfg.maxSize, "max-file-size", defaultMaxFileSize, "skip directory inputs larger than this many bytes")
	fs.BoolVar(&verbose, "v", false, "log each skipped or dumped item")
	fs.BoolVar(&showVersion, "V", false, "show version and exit")
	fs.BoolVar(&showVersion, "version", false, "show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: rs2zig [flags] <file.rs | dir>\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}

	if showVersion {
		_, _ = fmt.Fprintf(stdout, "rs2zig %s\n", version)
		return nil
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("expected exactly one input path")
	}
	if cfg.linkName == "" {
		return errors.New("-link must not be empty")
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	cfg.log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	input := fs.Arg(0)
	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("input path: %w", err)
	}

	if info.IsDir() {
		return runDir(input, cfg, stdout, stderr)
	}
	if cfg.report {
		return errors.New("-report requires a directory input")
	}
	return runFile(input, cfg, stdout)
}

// runFile translates a single source file to -o or stdout. A hard failure
// leaves the output written so far in place.
func runFile(path string, cfg config, stdout io.Writer) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	p := parse.New()
	prog, err := p.Parse(context.Background(), source)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	emit := func(w io.Writer) error {
		_, err := translate.Translate(w, prog, translate.Options{
			LinkName:    cfg.linkName,
			ParseRecord: p.ParseRecord,
			Logger:      cfg.log.With("file", path),
		})
		return err
	}
	if cfg.output == "" {
		err = emit(stdout)
	} else {
		err = writeOutput(cfg.output, emit)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// runDir translates every source file under root into a mirror tree under
// -o. Each file is its own translation run.
func runDir(root string, cfg config, stdout, stderr io.Writer) error {
	if cfg.output == "" {
		return errors.New("-o is required for a directory input")
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}

	// Discover files
	files, err := discover.Files(root)
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no translatable files found")
	}

	files = filterBySize(root, files, cfg.maxSize, stderr)
	if len(files) == 0 {
		return fmt.Errorf("no translatable files found (all exceeded size limit)")
	}

	// Outputs written for another link name are stale whatever their age.
	if !cfg.force && !linkMatches(cfg.output, cfg.linkName) {
		cfg.log.Debug("link name changed, retranslating", "link", cfg.linkName)
		cfg.force = true
	}

	reports := translateConcurrent(root, files, cfg, stderr)

	if err := writeLinkStamp(cfg.output, cfg.linkName); err != nil {
		return err
	}

	failed := 0
	for i := range reports {
		if reports[i].Status == model.Failed {
			failed++
		}
	}

	if cfg.report {
		r := &model.Report{
			Root:         filepath.Base(root),
			LinkName:     cfg.linkName,
			Files:        reports,
			Dependencies: graph.BuildGraph(reports),
		}
		_, _ = fmt.Fprintln(stdout, toon.Encode(r))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

// outputPath maps a root-relative source path to its translated location.
func outputPath(outDir string, f discover.FileEntry) string {
	rel := strings.TrimSuffix(f.Path, filepath.Ext(f.Path)) + lang.Languages[f.Language].Target
	return filepath.Join(outDir, rel)
}

// linkMatches reports whether the outputs under outDir were written for
// linkName. A missing stamp never matches.
func linkMatches(outDir, linkName string) bool {
	data, err := os.ReadFile(filepath.Join(outDir, linkStampFile))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == linkName
}

func writeLinkStamp(outDir, linkName string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, linkStampFile), []byte(linkName+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing link stamp: %w", err)
	}
	return nil
}

func filterBySize(root string, files []discover.FileEntry, maxSize int, stderr io.Writer) []discover.FileEntry {
	var kept []discover.FileEntry
	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			kept = append(kept, f) // keep if can't stat
			continue
		}
		if fi.Size() > int64(maxSize) {
			_, _ = fmt.Fprintf(stderr, "Warning: %s: skipped (>%d bytes)\n", f.Path, maxSize)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// isFresh reports whether dst exists and is newer than src.
func isFresh(src, dst string) bool {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return false
	}
	return srcInfo.ModTime().Before(dstInfo.ModTime())
}

func translateConcurrent(root string, files []discover.FileEntry, cfg config, stderr io.Writer) []model.FileReport {
	type result struct {
		index  int
		report model.FileReport
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup
	var stderrMu sync.Mutex

	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Each goroutine gets its own parser, created on first use
			var p *parse.Parser
			parser := func() *parse.Parser {
				if p == nil {
					p = parse.New()
				}
				return p
			}

			for idx := range work {
				f := files[idx]
				src := filepath.Join(root, f.Path)
				fr := model.FileReport{Path: f.Path, Output: outputPath(cfg.output, f)}

				var err error
				if !cfg.force && isFresh(src, fr.Output) {
					fr.Status = model.Fresh
					if cfg.report {
						err = collectStats(parser(), src, &fr, cfg)
					}
				} else {
					fr.Status = model.Translated
					err = translateFile(parser(), src, &fr, cfg)
				}

				if err != nil {
					fr.Status = model.Failed
					fr.Err = err.Error()
					stderrMu.Lock()
					_, _ = fmt.Fprintf(stderr, "Warning: %s: %v\n", f.Path, err)
					stderrMu.Unlock()
				}
				results <- result{index: idx, report: fr}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	reports := make([]model.FileReport, len(files))
	for r := range results {
		reports[r.index] = r.report
	}
	return reports
}

func parseFile(p *parse.Parser, src string) (*model.Program, error) {
	source, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	return p.Parse(context.Background(), source)
}

// translateProgram runs one translation of prog into w and records its
// statistics in fr.
func translateProgram(w io.Writer, p *parse.Parser, prog *model.Program, fr *model.FileReport, cfg config, log *slog.Logger) error {
	stats, err := translate.Translate(w, prog, translate.Options{
		LinkName:    cfg.linkName,
		ParseRecord: p.ParseRecord,
		Logger:      log,
	})
	fr.Items = stats.Items
	fr.Skipped = stats.Skipped
	fr.Imports = stats.Imports
	return err
}

func translateFile(p *parse.Parser, src string, fr *model.FileReport, cfg config) error {
	prog, err := parseFile(p, src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fr.Output), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	err = writeOutput(fr.Output, func(w io.Writer) error {
		return translateProgram(w, p, prog, fr, cfg, cfg.log.With("file", fr.Path))
	})
	if err != nil {
		// Keep the partial output but make sure the next run retries it.
		_ = os.Chtimes(fr.Output, time.Time{}, time.Unix(0, 0))
	}
	return err
}

// collectStats translates an up-to-date file into io.Discard so the report
// still carries its counts and imports.
func collectStats(p *parse.Parser, src string, fr *model.FileReport, cfg config) error {
	prog, err := parseFile(p, src)
	if err != nil {
		return err
	}
	return translateProgram(io.Discard, p, prog, fr, cfg, nil)
}

// writeOutput creates path and hands it to write. The file is kept when
// write fails; a failed close is reported like a failed write.
func writeOutput(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing output: %w", cerr)
		}
	}()
	return write(f)
}

// flagsWithValue lists flags that take a value argument.
var flagsWithValue = map[string]bool{
	"-link": true, "--link": true,
	"-o": true, "--o": true,
	"-max-file-size": true, "--max-file-size": true,
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 0 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if flagsWithValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
