package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Descriptor file names, resolved relative to the project's .mobctl directory.
const (
	EnvironmentsFile = "environments.yml"
	ManifestFile     = "app.yml"
	CredentialsFile  = "credentials.yml"
)

// ConfigDir is the per-project directory holding the descriptors.
const ConfigDir = ".mobctl"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the descriptors under projectDir/.mobctl and returns a Store.
// The credentials descriptor is optional at load time; prod builds check
// HasCredentials before constructing a signing step.
func Load(projectDir string) (*Store, error) {
	dir := filepath.Join(projectDir, ConfigDir)

	s := &Store{ProjectDir: projectDir}

	if err := readYAML(filepath.Join(dir, EnvironmentsFile), &s.Environments); err != nil {
		return nil, fmt.Errorf("load environments: %w", err)
	}
	if err := validate.Struct(&s.Environments); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvironmentsFile, err)
	}

	if err := readYAML(filepath.Join(dir, ManifestFile), &s.Manifest); err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	if err := validate.Struct(&s.Manifest); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ManifestFile, err)
	}

	credPath := filepath.Join(dir, CredentialsFile)
	if _, err := os.Stat(credPath); err == nil {
		if err := readYAML(credPath, &s.Credentials); err != nil {
			return nil, fmt.Errorf("load credentials: %w", err)
		}
		s.hasCredentials = true
	}

	if errs := ValidateStore(s); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", errs[0].Error())
	}

	return s, nil
}

// FindProjectDir walks upward from start looking for a .mobctl directory,
// so mobctl can be invoked from anywhere inside the project tree.
func FindProjectDir(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", start, err)
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, ConfigDir)); err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s directory found (searched from %s upward)", ConfigDir, start)
		}
		dir = parent
	}
}

func readYAML(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}
