// Package config loads YAML configuration files with environment variable
// expansion. `${VAR}` references in the file are substituted from the process
// environment before parsing.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator lets a config type reject bad values at load time.
type Validator interface {
	Validate() error
}

// Load reads filename, expands environment references, and decodes the YAML
// into target. Unknown keys are rejected to catch typos. If target implements
// Validator its Validate method runs after decoding.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", filename, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("config: parse %s: %w", filename, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config: validate %s: %w", filename, err)
		}
	}
	return nil
}
