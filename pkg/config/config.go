// Package config loads YAML configuration files with ${VAR} expansion from
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by LoadWithDefaults when neither file exists.
var ErrNotFound = errors.New("config: file not found")

// Validator is implemented by configuration types that check themselves.
type Validator interface {
	Validate() error
}

// Load decodes filename into target, expanding environment variables first.
// Keys absent from the file keep the values already set on target, so callers
// seed it with defaults. Validate runs when target implements Validator.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", filename, err)
	}
	if err := decode(data, target); err != nil {
		return fmt.Errorf("config: parse %s: %w", filename, err)
	}
	return validate(target)
}

// LoadOptional behaves like Load but leaves target untouched when filename
// does not exist. Validation still runs so defaults are checked too.
func LoadOptional[T any](filename string, target *T) (bool, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return false, validate(target)
	}
	if err := Load(filename, target); err != nil {
		return true, err
	}
	return true, nil
}

// LoadWithDefaults loads filename, falling back to defaultFile when it is
// missing.
func LoadWithDefaults[T any](filename, defaultFile string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if defaultFile != "" {
			return Load(defaultFile, target)
		}
		return fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	return Load(filename, target)
}

// MustLoad loads configuration and panics on failure.
func MustLoad[T any](filename string, target *T) {
	if err := Load(filename, target); err != nil {
		panic(err.Error())
	}
}

func decode(data []byte, target any) error {
	expanded := os.ExpandEnv(string(data))
	return yaml.Unmarshal([]byte(expanded), target)
}

func validate(target any) error {
	if v, ok := target.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config: validation failed: %w", err)
		}
	}
	return nil
}
