package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shipmobile/mobctl/internal/cleanup"
	"github.com/shipmobile/mobctl/internal/config"
	"github.com/shipmobile/mobctl/internal/toolchain"
)

// Android drives the Android build: gradle for compilation, the JS bundler
// for application code, plain file mutation for signing and versioning.
type Android struct {
	build    BuildContext
	store    *config.Store
	runner   toolchain.Runner
	registry *cleanup.Registry
	progress io.Writer // step log
	toolOut  io.Writer // streamed toolchain output
	observer StepObserver
}

// NewAndroid creates the Android pipeline. The registry handle is appended
// to by steps and owned by the orchestrator.
func NewAndroid(build BuildContext, store *config.Store, runner toolchain.Runner, registry *cleanup.Registry, progress, toolOut io.Writer) *Android {
	return &Android{
		build:    build,
		store:    store,
		runner:   runner,
		registry: registry,
		progress: progress,
		toolOut:  toolOut,
	}
}

// WithObserver sets the step lifecycle observer and returns the pipeline.
func (a *Android) WithObserver(observe StepObserver) *Android {
	a.observer = observe
	return a
}

// Run executes the full Android step sequence.
func (a *Android) Run(ctx context.Context) error {
	return RunSteps(ctx, PlatformAndroid, a.Steps(), a.progress, a.observer)
}

// Steps returns the ordered step list. Signing steps only exist for prod
// builds; debug builds never touch credentials and never register the
// credential compensations.
func (a *Android) Steps() []Step {
	steps := []Step{
		{Name: "clean build output", Run: a.clean},
	}
	if a.build.BuildType == BuildProd {
		steps = append(steps,
			Step{Name: "set up signing material", Run: a.setupSigning},
			Step{Name: "inject signing properties", Run: a.injectSigningProperties},
		)
	}
	steps = append(steps,
		Step{Name: "configure push notifications", BestEffort: true, Run: a.configurePush},
		Step{Name: "inject environment config", Run: a.injectEnv},
		Step{Name: "stamp version", Run: a.stampVersion},
		Step{Name: "bundle application code", Run: a.bundle},
		Step{Name: "compile", Run: a.compile},
		Step{Name: "export artifact", Run: a.export},
		Step{Name: "remove temporary files", BestEffort: true, Run: a.tidy},
	)
	return steps
}

func (a *Android) androidDir() string {
	return filepath.Join(a.build.ProjectDir, "android")
}

func (a *Android) appDir() string {
	return filepath.Join(a.androidDir(), "app")
}

func (a *Android) clean(ctx context.Context) error {
	for _, dir := range []string{
		filepath.Join(a.appDir(), "build"),
		filepath.Join(a.androidDir(), "build"),
	} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
	}
	return nil
}

// setupSigning copies the keystore from the config directory into the
// android project where gradle expects it, and registers its removal so the
// keystore copy never survives the build.
func (a *Android) setupSigning(ctx context.Context) error {
	creds := a.store.Credentials.Android
	src := filepath.Join(a.build.ProjectDir, config.ConfigDir, creds.StoreFile)
	dst := filepath.Join(a.appDir(), creds.StoreFile)

	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("copy keystore: %w", err)
	}

	a.registry.Register("remove keystore copy", func() error {
		return os.Remove(dst)
	})
	return nil
}

// injectSigningProperties writes the real credential values into
// gradle.properties, backing up the original first. The compensation
// restores the original content with secret values redacted, never the
// live secrets, and deletes the backup.
func (a *Android) injectSigningProperties(ctx context.Context) error {
	path := filepath.Join(a.androidDir(), "gradle.properties")
	orig, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read gradle.properties: %w", err)
	}

	backup := path + ".bak"
	if err := os.WriteFile(backup, orig, 0o600); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}

	injected := InjectSigningProperties(string(orig), a.store.Credentials.Android)
	if err := os.WriteFile(path, []byte(injected), 0o600); err != nil {
		return fmt.Errorf("write gradle.properties: %w", err)
	}

	a.registry.Register("restore gradle.properties", func() error {
		restored := RedactSigningProperties(string(orig))
		if err := os.WriteFile(path, []byte(restored), 0o644); err != nil {
			return err
		}
		return os.Remove(backup)
	})
	return nil
}

// configurePush copies the per-environment google-services.json into the
// app module. A missing descriptor is a skip, not an error: not every
// environment has push configured.
func (a *Android) configurePush(ctx context.Context) error {
	src := filepath.Join(a.build.ProjectDir, config.ConfigDir, "push", a.build.Environment, "google-services.json")
	if _, err := os.Stat(src); err != nil {
		logf(a.progress, "no push configuration for %s, skipping", a.build.Environment)
		return nil
	}
	return copyFile(src, filepath.Join(a.appDir(), "google-services.json"))
}

func (a *Android) injectEnv(ctx context.Context) error {
	return injectEnvConstants(a.store, a.build.Environment, a.registry)
}

func (a *Android) stampVersion(ctx context.Context) error {
	path := filepath.Join(a.appDir(), "build.gradle")
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read build.gradle: %w", err)
	}
	stamped, err := StampGradleVersion(string(content), a.build.Version, a.build.BuildNumber)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(stamped), 0o644)
}

func (a *Android) bundle(ctx context.Context) error {
	assetsDir := filepath.Join(a.appDir(), "src", "main", "assets")
	if err := os.MkdirAll(assetsDir, 0o755); err != nil {
		return fmt.Errorf("mkdir assets: %w", err)
	}

	dev := "false"
	if a.build.BuildType == BuildDebug {
		dev = "true"
	}
	code, err := a.runner.Stream(ctx, a.build.ProjectDir, a.toolOut, a.toolOut,
		"npx", "react-native", "bundle",
		"--platform", "android",
		"--dev", dev,
		"--entry-file", "index.js",
		"--bundle-output", filepath.Join(assetsDir, "index.android.bundle"),
		"--assets-dest", filepath.Join(a.appDir(), "src", "main", "res"),
	)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("bundler exited with status %d", code)
	}
	return nil
}

func (a *Android) compile(ctx context.Context) error {
	task := "assembleDebug"
	if a.build.BuildType == BuildProd {
		task = "bundleRelease"
	}
	code, err := a.runner.Stream(ctx, a.androidDir(), a.toolOut, a.toolOut, "./gradlew", task)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("gradle %s exited with status %d", task, code)
	}
	return nil
}

func (a *Android) export(ctx context.Context) error {
	src := filepath.Join(a.appDir(), "build", "outputs", "apk", "debug", "app-debug.apk")
	if a.build.BuildType == BuildProd {
		src = filepath.Join(a.appDir(), "build", "outputs", "bundle", "release", "app-release.aab")
	}
	dst, err := exportArtifact(src, a.build.ProjectDir, a.build.ArtifactName())
	if err != nil {
		return err
	}
	logf(a.progress, "exported %s", dst)
	return nil
}

func (a *Android) tidy(ctx context.Context) error {
	for _, dir := range []string{
		filepath.Join(a.appDir(), "build", "intermediates"),
		filepath.Join(a.appDir(), "build", "tmp"),
		filepath.Join(a.androidDir(), ".gradle"),
	} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
	}
	return nil
}
