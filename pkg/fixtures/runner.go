package fixtures

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shindesc/stimpl/pkg/driver"
	"github.com/shindesc/stimpl/pkg/interpreter"
	"github.com/shindesc/stimpl/pkg/parser"
	"github.com/shindesc/stimpl/pkg/runtime"
)

// Outcome is the result of replaying one fixture.
type Outcome struct {
	Dir         string
	Description string
	Passed      bool
	// Failure explains the first unmet expectation.
	Failure string
	Stdout  []string
	Result  *interpreter.Result
	Err     error
}

// Discover returns every fixture directory under root, sorted.
func Discover(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if IsFixtureDir(path) {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover fixtures in %s: %w", root, err)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Run replays the fixture in dir.
func Run(dir string) Outcome {
	return RunContext(context.Background(), dir)
}

// RunContext replays the fixture in dir, aborting loops once ctx is done.
func RunContext(ctx context.Context, dir string) Outcome {
	outcome := Outcome{Dir: dir}
	manifest, err := ReadManifest(dir)
	if err != nil {
		return outcome.fail(err.Error())
	}
	outcome.Description = manifest.Description
	expect := manifest.Expect

	entry, err := manifest.EntryPath(dir)
	if err != nil {
		return outcome.fail(err.Error())
	}
	program, err := driver.LoadProgram(entry)
	if err != nil {
		outcome.Err = err
		var synErr *parser.SyntaxError
		if errors.As(err, &synErr) && expect.Error != nil && expect.Error.Kind == string(interpreter.KindSyntax) {
			return outcome.checkMessage(expect.Error, synErr.Message)
		}
		return outcome.fail(fmt.Sprintf("load program: %v", err))
	}

	var stdout bytes.Buffer
	result, err := interpreter.New(&stdout).RunContext(ctx, program)
	outcome.Stdout = splitLines(stdout.String())
	outcome.Err = err

	if expect.Stdout != nil && !equalLines(expect.Stdout, outcome.Stdout) {
		return outcome.fail(fmt.Sprintf("stdout mismatch: expected %q, got %q", expect.Stdout, outcome.Stdout))
	}

	if expect.Error != nil {
		if err == nil {
			return outcome.fail(fmt.Sprintf("expected %s, run succeeded with (%s, %s)", expect.Error.Kind, result.Value, result.Type))
		}
		var evalErr *interpreter.Error
		if !errors.As(err, &evalErr) {
			return outcome.fail(fmt.Sprintf("expected %s, got %v", expect.Error.Kind, err))
		}
		if string(evalErr.Kind) != expect.Error.Kind {
			return outcome.fail(fmt.Sprintf("expected %s, got %s: %s", expect.Error.Kind, evalErr.Kind, evalErr.Message))
		}
		return outcome.checkMessage(expect.Error, evalErr.Message)
	}
	if err != nil {
		return outcome.fail(fmt.Sprintf("evaluation error: %v", err))
	}
	outcome.Result = &result

	if want := expect.Result; want != nil {
		if want.Type != "" {
			// ReadManifest has already rejected unknown names.
			typ, _ := runtime.ParseType(want.Type)
			if typ != result.Type {
				return outcome.fail(fmt.Sprintf("expected result type %s, got %s", typ, result.Type))
			}
		}
		if want.Value != nil && want.Value.Text != result.Value.String() {
			return outcome.fail(fmt.Sprintf("expected result value %q, got %q", want.Value.Text, result.Value.String()))
		}
	}
	if failure := checkState(expect.State, result.Env); failure != "" {
		return outcome.fail(failure)
	}
	outcome.Passed = true
	return outcome
}

// checkState compares the visible bindings of env against want, by name.
func checkState(want map[string]*Scalar, env *runtime.Environment) string {
	if want == nil {
		return ""
	}
	visible := env.Snapshot()
	for _, name := range env.Names() {
		if _, ok := want[name]; !ok {
			return fmt.Sprintf("unexpected binding %s", name)
		}
	}
	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		binding, ok := visible[name]
		if !ok {
			return fmt.Sprintf("expected binding %s, none found", name)
		}
		if expected := want[name]; expected != nil && expected.Text != binding.Value.String() {
			return fmt.Sprintf("expected %s = %q, got %q", name, expected.Text, binding.Value.String())
		}
	}
	return ""
}

func (o Outcome) fail(reason string) Outcome {
	o.Passed = false
	o.Failure = reason
	return o
}

func (o Outcome) checkMessage(want *ExpectedError, got string) Outcome {
	if want.Message != "" && want.Message != got {
		return o.fail(fmt.Sprintf("expected %s message %q, got %q", want.Kind, want.Message, got))
	}
	o.Passed = true
	return o
}

// RunAll replays every fixture under the given roots.
func RunAll(ctx context.Context, roots ...string) ([]Outcome, error) {
	var outcomes []Outcome
	for _, root := range roots {
		dirs, err := Discover(root)
		if err != nil {
			return outcomes, err
		}
		for _, dir := range dirs {
			if err := ctx.Err(); err != nil {
				return outcomes, err
			}
			outcomes = append(outcomes, RunContext(ctx, dir))
		}
	}
	return outcomes, nil
}

// Failed counts outcomes that did not pass.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, outcome := range outcomes {
		if !outcome.Passed {
			n++
		}
	}
	return n
}

func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func equalLines(want, got []string) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}
