package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shipmobile/mobctl/internal/cleanup"
	"github.com/shipmobile/mobctl/internal/config"
)

// DistDir is where exported artifacts land, relative to the project root.
const DistDir = "dist"

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(dst), err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	return out.Close()
}

// exportArtifact copies the compiled artifact into dist/ under its
// deterministic name. A missing source is a terminal build failure: the
// compile step claimed success but left nothing to ship.
func exportArtifact(src, projectDir, name string) (string, error) {
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("expected compiled artifact not found at %s", src)
	}
	dst := filepath.Join(projectDir, DistDir, name)
	if err := copyFile(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// injectEnvConstants generates env.json for the selected environment and
// registers a compensation restoring whatever was there before (or removing
// the file if nothing was).
func injectEnvConstants(store *config.Store, environment string, registry *cleanup.Registry) error {
	path := filepath.Join(store.ProjectDir, config.EnvFileName)
	orig, readErr := os.ReadFile(path)
	existed := readErr == nil

	if _, err := store.WriteEnvFile(environment); err != nil {
		return err
	}

	registry.Register("restore env constants", func() error {
		if existed {
			return os.WriteFile(path, orig, 0o644)
		}
		return os.Remove(path)
	})
	return nil
}
