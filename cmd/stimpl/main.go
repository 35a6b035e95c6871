package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/shindesc/stimpl/pkg/driver"
	"github.com/shindesc/stimpl/pkg/fixtures"
	"github.com/shindesc/stimpl/pkg/interpreter"
	"github.com/shindesc/stimpl/pkg/parser"
)

const cliToolVersion = "stimpl-cli 0.1.0-dev"

const (
	exitOK       = 0
	exitUsage    = 1
	exitEvaluate = 2
)

const defaultFixtureRoot = "fixtures"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	debug := false
	for len(args) > 0 && args[0] == "--debug" {
		debug = true
		args = args[1:]
	}
	if len(args) == 0 {
		printUsage()
		return exitUsage
	}

	switch args[0] {
	case "--help", "-h":
		printUsage()
		return exitOK
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return exitOK
	case "run":
		return runEntry(args[1:], debug)
	case "ast":
		return runAST(args[1:])
	case "test":
		return runTests(args[1:])
	case "fetch":
		return runFetch(args[1:])
	default:
		if strings.HasPrefix(args[0], "-") {
			fmt.Fprintf(os.Stderr, "unknown flag %s\n", args[0])
			printUsage()
			return exitUsage
		}
		return runEntry(args, debug)
	}
}

func runEntry(args []string, debug bool) int {
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(args[1:], " "))
		return exitUsage
	}

	start := "."
	if len(args) == 1 {
		start = filepath.Dir(args[0])
	}
	manifest, err := loadManifestFrom(start)
	if err != nil {
		switch {
		case errors.Is(err, driver.ErrManifestNotFound):
			manifest = nil
		case len(args) == 1:
			fmt.Fprintf(os.Stderr, "warning: unable to load manifest (%v); falling back to direct file execution\n", err)
			manifest = nil
		default:
			fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", err)
			return exitUsage
		}
	}

	entry := ""
	if len(args) == 1 {
		entry = args[0]
	} else {
		if manifest == nil {
			fmt.Fprintf(os.Stderr, "stimpl run requires a program file (%s not found)\n", driver.ManifestFileName)
			return exitUsage
		}
		entry = manifest.EntryPath()
		if entry == "" {
			fmt.Fprintf(os.Stderr, "%s does not name an entry program\n", manifest.Path)
			return exitUsage
		}
	}
	if manifest != nil && manifest.Debug {
		debug = true
	}
	return executeEntry(entry, manifest, debug)
}

func executeEntry(entry string, manifest *driver.Manifest, debug bool) int {
	program, err := driver.LoadProgram(entry)
	if err != nil {
		var synErr *parser.SyntaxError
		if errors.As(err, &synErr) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", interpreter.KindSyntax, synErr)
		} else {
			fmt.Fprintf(os.Stderr, "failed to load program: %v\n", err)
		}
		return exitUsage
	}

	out, closeOut, err := manifest.OpenOutput()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitUsage
	}
	defer closeOut()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := interpreter.New(out).RunContext(ctx, program)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted")
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return exitEvaluate
	}
	if debug {
		if err := interpreter.WriteReport(out, program, result); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			return exitUsage
		}
	}
	return exitOK
}

func runAST(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "stimpl ast requires exactly one program file")
		return exitUsage
	}
	program, err := driver.LoadProgram(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load program: %v\n", err)
		return exitUsage
	}
	encoded, err := json.MarshalIndent(program, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode program: %v\n", err)
		return exitUsage
	}
	fmt.Fprintln(os.Stdout, program.String())
	fmt.Fprintln(os.Stdout, string(encoded))
	return exitOK
}

func runTests(args []string) int {
	roots := args
	if len(roots) == 0 {
		resolved, err := defaultFixtureRoots()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return exitUsage
		}
		roots = resolved
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outcomes, err := fixtures.RunAll(ctx, roots...)
	for _, outcome := range outcomes {
		if outcome.Passed {
			fmt.Fprintf(os.Stdout, "PASS %s\n", outcome.Dir)
			continue
		}
		fmt.Fprintf(os.Stdout, "FAIL %s: %s\n", outcome.Dir, outcome.Failure)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitUsage
	}
	if len(outcomes) == 0 {
		fmt.Fprintf(os.Stderr, "no fixtures found in %s\n", strings.Join(roots, ", "))
		return exitUsage
	}
	failed := fixtures.Failed(outcomes)
	fmt.Fprintf(os.Stdout, "%d passed, %d failed\n", len(outcomes)-failed, failed)
	if failed > 0 {
		return exitEvaluate
	}
	return exitOK
}

// defaultFixtureRoots prefers the corpora configured in a nearby manifest and
// falls back to ./fixtures.
func defaultFixtureRoots() ([]string, error) {
	manifest, err := loadManifestFrom(".")
	if err != nil && !errors.Is(err, driver.ErrManifestNotFound) {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	if manifest == nil || len(manifest.Fixtures) == 0 {
		return []string{defaultFixtureRoot}, nil
	}
	cacheDir, err := driver.CacheDir()
	if err != nil {
		return nil, err
	}
	roots := make([]string, 0, len(manifest.Fixtures))
	for _, name := range manifest.FixtureNames() {
		dir, err := manifest.ResolveFixtureDir(cacheDir, name)
		if err != nil {
			return nil, err
		}
		roots = append(roots, dir)
	}
	return roots, nil
}

func runFetch(args []string) int {
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "stimpl fetch does not take arguments (received %s)\n", strings.Join(args, " "))
		return exitUsage
	}
	manifest, err := loadManifestFrom(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", err)
		return exitUsage
	}
	cacheDir, err := driver.CacheDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitUsage
	}

	fetched := 0
	for _, name := range manifest.FixtureNames() {
		source := manifest.Fixtures[name]
		if !source.IsGit() {
			continue
		}
		result, err := driver.FetchFixtures(cacheDir, name, source)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return exitUsage
		}
		fmt.Fprintf(os.Stdout, "fetched %s %s -> %s\n", result.Name, result.Version, result.Dir)
		fetched++
	}
	if fetched == 0 {
		fmt.Fprintln(os.Stdout, "no git fixture corpora to fetch")
	}
	return exitOK
}

func loadManifestFrom(start string) (*driver.Manifest, error) {
	path, err := driver.FindManifest(start)
	if err != nil {
		return nil, err
	}
	return driver.LoadManifest(path)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  stimpl [--debug] run [file]")
	fmt.Fprintln(os.Stderr, "  stimpl [--debug] <file>")
	fmt.Fprintln(os.Stderr, "  stimpl ast <file>")
	fmt.Fprintln(os.Stderr, "  stimpl test [fixture-dir ...]")
	fmt.Fprintln(os.Stderr, "  stimpl fetch")
	fmt.Fprintln(os.Stderr, "  stimpl version")
}
