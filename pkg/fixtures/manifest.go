package fixtures

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/shindesc/stimpl/pkg/runtime"
)

// Manifest files recognised in a fixture directory, in lookup order.
var manifestNames = []string{"manifest.json", "manifest.yml", "manifest.yaml"}

// Program files tried when the manifest names no entry.
var defaultEntries = []string{"source.stimpl", "module.json", "module.yml", "module.yaml"}

// Manifest describes one fixture.
type Manifest struct {
	Description string      `json:"description" yaml:"description"`
	Entry       string      `json:"entry" yaml:"entry"`
	Expect      Expectation `json:"expect" yaml:"expect"`
}

// Expectation lists what a run must produce. Nil fields are not checked.
type Expectation struct {
	Result *ExpectedResult `json:"result" yaml:"result"`
	Stdout []string        `json:"stdout" yaml:"stdout"`
	Error  *ExpectedError  `json:"error" yaml:"error"`
	// State lists every visible binding of the final environment.
	State map[string]*Scalar `json:"state" yaml:"state"`
}

type ExpectedResult struct {
	Type  string  `json:"type" yaml:"type"`
	Value *Scalar `json:"value" yaml:"value"`
}

type ExpectedError struct {
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
}

// Scalar keeps the literal text of a JSON or YAML scalar so values compare by
// rendering ("2.0" stays "2.0").
type Scalar struct {
	Text string
}

func (s *Scalar) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.Text = str
		return nil
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return fmt.Errorf("expected scalar value, got %s", trimmed)
	}
	s.Text = string(trimmed)
	return nil
}

func (s *Scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected scalar value", node.Line)
	}
	s.Text = node.Value
	return nil
}

// IsFixtureDir reports whether dir holds a fixture manifest.
func IsFixtureDir(dir string) bool {
	_, err := manifestPath(dir)
	return err == nil
}

func manifestPath(dir string) (string, error) {
	for _, name := range manifestNames {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("fixture %s: no manifest", dir)
}

// ReadManifest loads and checks the manifest in dir.
func ReadManifest(dir string) (*Manifest, error) {
	path, err := manifestPath(dir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var manifest Manifest
	if filepath.Ext(path) == ".json" {
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		err = decoder.Decode(&manifest)
	} else {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		err = decoder.Decode(&manifest)
	}
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if manifest.Expect.Result != nil && manifest.Expect.Error != nil {
		return nil, fmt.Errorf("manifest %s: expect.result and expect.error are mutually exclusive", path)
	}
	if manifest.Expect.Error != nil && manifest.Expect.Error.Kind == "" {
		return nil, fmt.Errorf("manifest %s: expect.error.kind is required", path)
	}
	if manifest.Expect.State != nil && manifest.Expect.Error != nil {
		return nil, fmt.Errorf("manifest %s: expect.state and expect.error are mutually exclusive", path)
	}
	if result := manifest.Expect.Result; result != nil && result.Type != "" {
		if _, ok := runtime.ParseType(result.Type); !ok {
			return nil, fmt.Errorf("manifest %s: unknown result type %q", path, result.Type)
		}
	}
	return &manifest, nil
}

// EntryPath resolves the program file of the fixture in dir.
func (m *Manifest) EntryPath(dir string) (string, error) {
	if m.Entry != "" {
		return filepath.Join(dir, m.Entry), nil
	}
	for _, name := range defaultEntries {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("fixture %s: no program file (tried %v)", dir, defaultEntries)
}
