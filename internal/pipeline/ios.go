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

// IOS drives the iOS build: xcodebuild for archive/export, cocoapods for
// native dependencies, the JS bundler for application code.
type IOS struct {
	build    BuildContext
	store    *config.Store
	runner   toolchain.Runner
	registry *cleanup.Registry
	progress io.Writer
	toolOut  io.Writer
	observer StepObserver
}

// NewIOS creates the iOS pipeline.
func NewIOS(build BuildContext, store *config.Store, runner toolchain.Runner, registry *cleanup.Registry, progress, toolOut io.Writer) *IOS {
	return &IOS{
		build:    build,
		store:    store,
		runner:   runner,
		registry: registry,
		progress: progress,
		toolOut:  toolOut,
	}
}

// WithObserver sets the step lifecycle observer and returns the pipeline.
func (p *IOS) WithObserver(observe StepObserver) *IOS {
	p.observer = observe
	return p
}

// Run executes the full iOS step sequence.
func (p *IOS) Run(ctx context.Context) error {
	return RunSteps(ctx, PlatformIOS, p.Steps(), p.progress, p.observer)
}

// Steps returns the ordered step list.
func (p *IOS) Steps() []Step {
	return []Step{
		{Name: "clean build output", Run: p.clean},
		{Name: "set scheme configuration", Run: p.setSchemeConfiguration},
		{Name: "configure push notifications", BestEffort: true, Run: p.configurePush},
		{Name: "install native dependencies", Run: p.podInstall},
		{Name: "inject environment config", Run: p.injectEnv},
		{Name: "stamp version", Run: p.stampVersion},
		{Name: "bundle application code", Run: p.bundle},
		{Name: "archive", Run: p.archive},
		{Name: "export artifact", Run: p.export},
		{Name: "remove temporary files", BestEffort: true, Run: p.tidy},
	}
}

func (p *IOS) iosDir() string {
	return filepath.Join(p.build.ProjectDir, "ios")
}

func (p *IOS) buildDir() string {
	return filepath.Join(p.iosDir(), "build")
}

func (p *IOS) archivePath() string {
	return filepath.Join(p.buildDir(), p.build.AppName+".xcarchive")
}

func (p *IOS) configuration() string {
	if p.build.BuildType == BuildProd {
		return "Release"
	}
	return "Debug"
}

func (p *IOS) clean(ctx context.Context) error {
	if err := os.RemoveAll(p.buildDir()); err != nil {
		return fmt.Errorf("remove %s: %w", p.buildDir(), err)
	}
	return nil
}

// setSchemeConfiguration switches the shared scheme to Debug or Release and
// registers a compensation restoring the original scheme file.
func (p *IOS) setSchemeConfiguration(ctx context.Context) error {
	path := filepath.Join(p.iosDir(), p.build.AppName+".xcodeproj", "xcshareddata", "xcschemes", p.build.AppName+".xcscheme")
	orig, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read scheme: %w", err)
	}

	updated, err := SetSchemeConfiguration(string(orig), p.configuration())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("write scheme: %w", err)
	}

	p.registry.Register("restore scheme configuration", func() error {
		return os.WriteFile(path, orig, 0o644)
	})
	return nil
}

func (p *IOS) configurePush(ctx context.Context) error {
	src := filepath.Join(p.build.ProjectDir, config.ConfigDir, "push", p.build.Environment, "apns.p8")
	if _, err := os.Stat(src); err != nil {
		logf(p.progress, "no push certificate for %s, skipping", p.build.Environment)
		return nil
	}
	return copyFile(src, filepath.Join(p.iosDir(), "apns.p8"))
}

func (p *IOS) podInstall(ctx context.Context) error {
	code, err := p.runner.Stream(ctx, p.iosDir(), p.toolOut, p.toolOut, "pod", "install")
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("pod install exited with status %d", code)
	}
	return nil
}

func (p *IOS) injectEnv(ctx context.Context) error {
	return injectEnvConstants(p.store, p.build.Environment, p.registry)
}

func (p *IOS) stampVersion(ctx context.Context) error {
	path := filepath.Join(p.iosDir(), p.build.AppName+".xcodeproj", "project.pbxproj")
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read project.pbxproj: %w", err)
	}
	stamped, err := StampPbxprojVersion(string(content), p.build.Version, p.build.BuildNumber)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(stamped), 0o644)
}

func (p *IOS) bundle(ctx context.Context) error {
	dev := "false"
	if p.build.BuildType == BuildDebug {
		dev = "true"
	}
	code, err := p.runner.Stream(ctx, p.build.ProjectDir, p.toolOut, p.toolOut,
		"npx", "react-native", "bundle",
		"--platform", "ios",
		"--dev", dev,
		"--entry-file", "index.js",
		"--bundle-output", filepath.Join(p.iosDir(), "main.jsbundle"),
		"--assets-dest", p.iosDir(),
	)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("bundler exited with status %d", code)
	}
	return nil
}

// archive invokes xcodebuild in archive mode. The produced .xcarchive is
// always registered for deletion: it contains the signed app and has no
// business outliving the build once the ipa is exported.
func (p *IOS) archive(ctx context.Context) error {
	args := []string{
		"-workspace", p.build.AppName + ".xcworkspace",
		"-scheme", p.build.AppName,
		"-configuration", p.configuration(),
		"-archivePath", p.archivePath(),
		"archive",
	}
	if p.store.HasCredentials() {
		creds := p.store.Credentials.IOS
		args = append(args,
			"CODE_SIGN_IDENTITY="+creds.CodeSignIdentity,
			"PROVISIONING_PROFILE_SPECIFIER="+creds.ProvisioningProfile,
		)
		if creds.TeamID != "" {
			args = append(args, "DEVELOPMENT_TEAM="+creds.TeamID)
		}
	}

	p.registry.Register("remove xcarchive", func() error {
		return os.RemoveAll(p.archivePath())
	})

	code, err := p.runner.Stream(ctx, p.iosDir(), p.toolOut, p.toolOut, "xcodebuild", args...)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("xcodebuild archive exited with status %d", code)
	}
	return nil
}

func (p *IOS) export(ctx context.Context) error {
	exportDir := filepath.Join(p.buildDir(), "export")
	optionsPath := filepath.Join(p.buildDir(), "export-options.plist")
	if err := os.MkdirAll(p.buildDir(), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", p.buildDir(), err)
	}
	if err := os.WriteFile(optionsPath, []byte(p.exportOptions()), 0o644); err != nil {
		return fmt.Errorf("write export options: %w", err)
	}

	code, err := p.runner.Stream(ctx, p.iosDir(), p.toolOut, p.toolOut,
		"xcodebuild",
		"-exportArchive",
		"-archivePath", p.archivePath(),
		"-exportPath", exportDir,
		"-exportOptionsPlist", optionsPath,
	)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("xcodebuild -exportArchive exited with status %d", code)
	}

	src := filepath.Join(exportDir, p.build.AppName+".ipa")
	dst, err := exportArtifact(src, p.build.ProjectDir, p.build.ArtifactName())
	if err != nil {
		return err
	}
	logf(p.progress, "exported %s", dst)

	// The export directory is transient; only dist/ keeps the ipa.
	if err := os.RemoveAll(exportDir); err != nil {
		return fmt.Errorf("remove export dir: %w", err)
	}
	return nil
}

func (p *IOS) exportOptions() string {
	method := "development"
	if p.build.BuildType == BuildProd {
		method = "app-store"
	}
	teamLine := ""
	if team := p.store.Credentials.IOS.TeamID; team != "" {
		teamLine = fmt.Sprintf("\t<key>teamID</key>\n\t<string>%s</string>\n", team)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>method</key>
	<string>%s</string>
%s</dict>
</plist>
`, method, teamLine)
}

func (p *IOS) tidy(ctx context.Context) error {
	if err := os.RemoveAll(p.buildDir()); err != nil {
		return fmt.Errorf("remove %s: %w", p.buildDir(), err)
	}
	return nil
}
