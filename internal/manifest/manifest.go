// Package manifest loads YAML job files that describe one conversion: the
// inputs with their per-file skip counts plus the options that would
// otherwise be given as flags.
//
// A job file looks like:
//
//	target: experiment
//	meta: true
//	sep: ","
//	inputs:
//	  - path: sweeps/density.csv
//	    skip: 1
//	  - sweeps/speed.csv.gz
//
// Relative input paths are resolved against the manifest's directory, and
// ${VAR} references are expanded from the environment.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/nlexport/internal/core"
	"github.com/JonMunkholm/nlexport/internal/dump"
)

// Manifest is a parsed job file. Zero-valued options mean "not set", so
// flags and environment defaults still apply.
type Manifest struct {
	Target   string  `yaml:"target"`
	Meta     *bool   `yaml:"meta"`
	Sep      string  `yaml:"sep"`
	NA       string  `yaml:"na"`
	Encoding string  `yaml:"encoding"`
	Format   string  `yaml:"format"`
	Out      string  `yaml:"out"`
	PGTable  string  `yaml:"pg_table"`
	Inputs   []Input `yaml:"inputs"`

	dir string
}

// Input is one export file. In YAML it is either a bare path or a mapping
// with path and skip.
type Input struct {
	Path string `yaml:"path"`
	Skip int    `yaml:"skip"`

	// HasSkip is set when the mapping form names skip, even as zero.
	HasSkip bool `yaml:"-"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (in *Input) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*in = Input{Path: node.Value}
		return nil
	}
	type plain Input
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*in = Input(p)
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == "skip" {
				in.HasSkip = true
			}
		}
	}
	return nil
}

// Load reads and validates a job file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// Parse decodes and validates a job file body. Input paths stay relative.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	m.expand()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) expand() {
	m.Out = os.ExpandEnv(m.Out)
	for i := range m.Inputs {
		m.Inputs[i].Path = os.ExpandEnv(m.Inputs[i].Path)
	}
}

// Validate reports every problem at once.
func (m *Manifest) Validate() error {
	var errs []error
	if len(m.Inputs) == 0 {
		errs = append(errs, errors.New("inputs: at least one input is required"))
	}
	for i, in := range m.Inputs {
		if in.Path == "" {
			errs = append(errs, fmt.Errorf("inputs[%d]: path is required", i))
		}
		if in.Skip < 0 {
			errs = append(errs, fmt.Errorf("inputs[%d]: skip must be non-negative, got %d", i, in.Skip))
		}
	}
	if _, err := dump.ParseTarget(m.Target); err != nil {
		errs = append(errs, fmt.Errorf("target: %w", err))
	}
	if m.Encoding != "" {
		if _, err := core.Charset(m.Encoding); err != nil {
			errs = append(errs, fmt.Errorf("encoding: %w", err))
		}
	}
	return errors.Join(errs...)
}

// CoreInputs returns the inputs with relative paths resolved against the
// manifest's directory. Stdin ("-") is left alone.
func (m *Manifest) CoreInputs() []core.Input {
	out := make([]core.Input, len(m.Inputs))
	for i, in := range m.Inputs {
		path := in.Path
		if path != core.Stdin && !filepath.IsAbs(path) && m.dir != "" {
			path = filepath.Join(m.dir, path)
		}
		out[i] = core.Input{Path: path, Skip: in.Skip, HasSkip: in.HasSkip}
	}
	return out
}
