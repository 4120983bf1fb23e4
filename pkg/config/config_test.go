package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sample struct {
	Name  string        `yaml:"name"`
	Delay time.Duration `yaml:"delay"`
	Port  int           `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("CFG_TEST_NAME", "alpha")
	p := writeFile(t, "name: ${CFG_TEST_NAME}\ndelay: 250ms\n")
	s := sample{Port: 80}
	if err := Load(p, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "alpha" || s.Delay != 250*time.Millisecond || s.Port != 80 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_Validates(t *testing.T) {
	p := writeFile(t, "name: x\n")
	var s sample
	if err := Load(p, &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	p := writeFile(t, "name: [unterminated\n")
	s := sample{Port: 1}
	if err := Load(p, &s); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadOptional_Missing(t *testing.T) {
	s := sample{Port: 9}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "none.yaml"), &s)
	if err != nil || found {
		t.Fatalf("found %v err %v", found, err)
	}
	if s.Port != 9 {
		t.Errorf("defaults changed: %+v", s)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	def := writeFile(t, "port: 7\n")
	var s sample
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "none.yaml"), def, &s); err != nil {
		t.Fatal(err)
	}
	if s.Port != 7 {
		t.Errorf("port = %d", s.Port)
	}
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "none.yaml"), "", &s); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
