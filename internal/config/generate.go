package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// EnvFileName is the generated constants file the JS bundle reads at build
// time. It is regenerated whenever an environment is selected, so the app
// code never hardcodes a backend target.
const EnvFileName = "env.json"

// EnvConstants is the shape of the generated env.json.
type EnvConstants struct {
	Environment string `json:"ENVIRONMENT"`
	Protocol    string `json:"PROTOCOL"`
	Domain      string `json:"DOMAIN"`
	Port        int    `json:"PORT"`
	BaseURL     string `json:"BASE_URL"`
}

// WriteEnvFile generates env.json in the project root for the named
// environment and returns its path.
func (s *Store) WriteEnvFile(name string) (string, error) {
	env, ok := s.Environment(name)
	if !ok {
		return "", fmt.Errorf("environment %q not defined", name)
	}

	constants := EnvConstants{
		Environment: name,
		Protocol:    env.Protocol,
		Domain:      env.Domain,
		Port:        env.Port,
		BaseURL:     fmt.Sprintf("%s://%s:%d", env.Protocol, env.Domain, env.Port),
	}

	data, err := json.MarshalIndent(constants, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal env constants: %w", err)
	}
	data = append(data, '\n')

	path := filepath.Join(s.ProjectDir, EnvFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", EnvFileName, err)
	}
	return path, nil
}
