package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a resolution scenario: a registry, a catalogue of
// detectives to run against it, and what the run must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description says what the scenario checks.
	Description string `yaml:"description"`

	// Snapshot is the path of a registry snapshot file, relative to the
	// scenario file. Exactly one of Snapshot and Registry is set.
	Snapshot string `yaml:"snapshot,omitempty"`

	// Registry is an inline snapshot document (a mapping with `modules`).
	Registry yaml.Node `yaml:"registry,omitempty"`

	// Catalogue is inline CUE source. Exactly one of Catalogue and
	// CataloguePath is set.
	Catalogue string `yaml:"catalogue,omitempty"`

	// CataloguePath is a .cue file or a directory of them, relative to
	// the scenario file.
	CataloguePath string `yaml:"catalogue_path,omitempty"`

	// Define lists aliases defined by hand before the run.
	Define []Definition `yaml:"define,omitempty"`

	// Exclude overrides the namespaces left out of the unknown list.
	// Nil keeps the engine default.
	Exclude []string `yaml:"exclude,omitempty"`

	// Expect holds the assertions on the run.
	Expect Expectations `yaml:"expect"`
}

// Definition is one hand-defined alias.
type Definition struct {
	Alias  string `yaml:"alias"`
	Target string `yaml:"target"`
}

// Expectations validate the report of a run. Nil fields are not checked;
// an empty list asserts that nothing is in that category.
type Expectations struct {
	// Resolved maps alias to registry key. Subset match: aliases not
	// listed may resolve too.
	Resolved map[string]string `yaml:"resolved,omitempty"`

	// NotFound, Deferred and Unknown are compared exactly, ignoring order.
	NotFound []string `yaml:"not_found,omitempty"`
	Deferred []string `yaml:"deferred,omitempty"`
	Unknown  []string `yaml:"unknown,omitempty"`

	// Order lists aliases that must have resolved in this relative order.
	// Other aliases may resolve in between.
	Order []string `yaml:"order,omitempty"`

	// Errors lists substrings that must each appear in some error.
	Errors []string `yaml:"errors,omitempty"`

	// NoErrors asserts that the run recorded no errors.
	NoErrors bool `yaml:"no_errors,omitempty"`
}

// LoadScenario reads the scenario at path. Relative snapshot and
// catalogue paths are taken relative to the scenario file, and must exist.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	for _, p := range []*string{&s.Snapshot, &s.CataloguePath} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	if err := s.checkFiles(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return s, nil
}

// ParseScenario decodes a scenario document strictly: unknown fields are
// errors. Paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	s := &Scenario{}
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return s, nil
}

func (s *Scenario) hasRegistry() bool {
	return s.Registry.Kind != 0
}

func (s *Scenario) validate() error {
	switch {
	case s.Name == "":
		return errors.New("name is required")
	case s.Description == "":
		return errors.New("description is required")
	}

	switch {
	case s.Snapshot == "" && !s.hasRegistry():
		return errors.New("one of snapshot or registry is required")
	case s.Snapshot != "" && s.hasRegistry():
		return errors.New("snapshot and registry are mutually exclusive")
	case s.hasRegistry() && s.Registry.Kind != yaml.MappingNode:
		return errors.New("registry must be a mapping")
	}

	switch {
	case s.Catalogue == "" && s.CataloguePath == "":
		return errors.New("one of catalogue or catalogue_path is required")
	case s.Catalogue != "" && s.CataloguePath != "":
		return errors.New("catalogue and catalogue_path are mutually exclusive")
	}

	for i, d := range s.Define {
		if d.Alias == "" || d.Target == "" {
			return fmt.Errorf("define[%d]: alias and target are required", i)
		}
	}

	// Order is positional, so an alias may appear once.
	if i, alias, dup := firstDuplicate(s.Expect.Order); dup {
		return fmt.Errorf("expect.order[%d]: %q listed twice", i, alias)
	}
	return nil
}

func firstDuplicate(list []string) (int, string, bool) {
	seen := make(map[string]struct{}, len(list))
	for i, v := range list {
		if _, ok := seen[v]; ok {
			return i, v, true
		}
		seen[v] = struct{}{}
	}
	return 0, "", false
}

func (s *Scenario) checkFiles() error {
	if s.Snapshot != "" {
		if _, err := os.Stat(s.Snapshot); err != nil {
			return fmt.Errorf("snapshot file not found: %s", s.Snapshot)
		}
	}
	if s.CataloguePath != "" {
		if _, err := os.Stat(s.CataloguePath); err != nil {
			return fmt.Errorf("catalogue not found: %s", s.CataloguePath)
		}
	}
	return nil
}
