package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFileName is the project manifest looked up by FindManifest.
const ManifestFileName = "stimpl.yml"

// Manifest represents the parsed contents of stimpl.yml.
type Manifest struct {
	Path     string
	Name     string
	Entry    string
	Debug    bool
	Output   string
	Fixtures map[string]*FixtureSource
}

// FixtureSource describes where a fixture corpus lives: a local path, or a git
// repository pinned by exactly one of rev, tag or branch.
type FixtureSource struct {
	Path   string `yaml:"path"`
	Git    string `yaml:"git"`
	Rev    string `yaml:"rev"`
	Tag    string `yaml:"tag"`
	Branch string `yaml:"branch"`
}

// Output destinations other than a file path.
const (
	OutputStdout = "stdout"
	OutputStderr = "stderr"
)

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

var ErrManifestNotFound = errors.New("manifest: stimpl.yml not found")

// LoadManifest parses stimpl.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	manifest := raw.toManifest(absPath)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// FindManifest walks up from dir looking for stimpl.yml.
func FindManifest(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("manifest: resolve %s: %w", dir, err)
	}
	for {
		candidate := filepath.Join(current, ManifestFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", ErrManifestNotFound
		}
		current = parent
	}
}

// Dir returns the directory holding the manifest.
func (m *Manifest) Dir() string {
	if m == nil || m.Path == "" {
		return ""
	}
	return filepath.Dir(m.Path)
}

// ResolvePath interprets rel relative to the manifest directory.
func (m *Manifest) ResolvePath(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(m.Dir(), rel)
}

// EntryPath returns the absolute path of the entry program, if any.
func (m *Manifest) EntryPath() string {
	if m == nil || m.Entry == "" {
		return ""
	}
	return m.ResolvePath(m.Entry)
}

// FixtureNames lists fixture corpora in sorted order.
func (m *Manifest) FixtureNames() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.Fixtures))
	for name := range m.Fixtures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	if m.Entry != "" && !IsProgramFile(m.Entry) {
		errs.Issues = append(errs.Issues, fmt.Sprintf("entry %q has an unsupported extension", m.Entry))
	}
	if m.Output == "" {
		errs.Issues = append(errs.Issues, "output must not be empty")
	}
	for _, name := range m.FixtureNames() {
		source := m.Fixtures[name]
		if sanitizePathSegment(name) != name {
			errs.Issues = append(errs.Issues, fmt.Sprintf("fixtures.%s: name may only contain letters, digits, '.', '-' and '_'", name))
		}
		if source == nil {
			errs.Issues = append(errs.Issues, fmt.Sprintf("fixtures.%s: must specify path or git", name))
			continue
		}
		for _, issue := range source.validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("fixtures.%s: %s", name, issue))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func (s *FixtureSource) normalize() {
	s.Path = strings.TrimSpace(s.Path)
	s.Git = strings.TrimSpace(s.Git)
	s.Rev = strings.TrimSpace(s.Rev)
	s.Tag = strings.TrimSpace(s.Tag)
	s.Branch = strings.TrimSpace(s.Branch)
}

func (s *FixtureSource) validate() []string {
	var errs []string
	pins := 0
	for _, pin := range []string{s.Rev, s.Tag, s.Branch} {
		if pin != "" {
			pins++
		}
	}
	switch {
	case s.Path != "" && s.Git != "":
		errs = append(errs, "path and git are mutually exclusive")
	case s.Path == "" && s.Git == "":
		errs = append(errs, "must specify path or git")
	}
	if s.Path != "" && pins > 0 {
		errs = append(errs, "rev, tag and branch apply only to git sources")
	}
	if s.Git != "" && pins != 1 {
		errs = append(errs, "git sources require exactly one of rev, tag or branch")
	}
	return errs
}

// IsGit reports whether the corpus must be fetched.
func (s *FixtureSource) IsGit() bool {
	return s != nil && s.Git != ""
}

type manifestFile struct {
	Name     string                    `yaml:"name"`
	Entry    string                    `yaml:"entry"`
	Debug    bool                      `yaml:"debug"`
	Output   *string                   `yaml:"output"`
	Fixtures map[string]*FixtureSource `yaml:"fixtures"`
}

func (mf manifestFile) toManifest(path string) *Manifest {
	output := OutputStdout
	if mf.Output != nil {
		output = strings.TrimSpace(*mf.Output)
	}
	fixtures := make(map[string]*FixtureSource, len(mf.Fixtures))
	for name, source := range mf.Fixtures {
		if source != nil {
			clone := *source
			clone.normalize()
			source = &clone
		}
		fixtures[strings.TrimSpace(name)] = source
	}
	return &Manifest{
		Path:     path,
		Name:     strings.TrimSpace(mf.Name),
		Entry:    strings.TrimSpace(mf.Entry),
		Debug:    mf.Debug,
		Output:   output,
		Fixtures: fixtures,
	}
}

// OpenOutput returns the writer for the manifest's output setting. The close
// function is a no-op for the standard streams.
func (m *Manifest) OpenOutput() (io.Writer, func() error, error) {
	target := OutputStdout
	if m != nil && m.Output != "" {
		target = m.Output
	}
	switch target {
	case OutputStdout:
		return os.Stdout, func() error { return nil }, nil
	case OutputStderr:
		return os.Stderr, func() error { return nil }, nil
	default:
		path := m.ResolvePath(target)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("manifest: output %s: %w", path, err)
		}
		file, err := os.Create(path)
		if err != nil {
			return nil, nil, fmt.Errorf("manifest: output %s: %w", path, err)
		}
		return file, file.Close, nil
	}
}
