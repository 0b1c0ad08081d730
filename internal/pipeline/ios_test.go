package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shipmobile/mobctl/internal/cleanup"
	"github.com/shipmobile/mobctl/internal/config"
)

// xcodeFake simulates xcodebuild leaving an ipa in the export directory.
func xcodeFake(t *testing.T) *fakeRunner {
	t.Helper()
	return &fakeRunner{onStream: func(dir, name string, args []string) int {
		if name != "xcodebuild" || len(args) == 0 || args[0] != "-exportArchive" {
			return 0
		}
		exportPath := ""
		for i, a := range args {
			if a == "-exportPath" && i+1 < len(args) {
				exportPath = args[i+1]
			}
		}
		if exportPath == "" {
			return 1
		}
		if err := os.MkdirAll(exportPath, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(exportPath, "DemoApp.ipa"), []byte("ipa"), 0o644); err != nil {
			t.Fatal(err)
		}
		return 0
	}}
}

func iosContext(store *config.Store, dir string, buildType BuildType, env string) BuildContext {
	return NewBuildContext(store.Manifest.Name, dir, PlatformIOS, env, buildType,
		store.Manifest.IOS.Version, store.Manifest.IOS.Build)
}

func TestIOSDebugBuild(t *testing.T) {
	dir, store := writeTestProject(t, true)
	fake := xcodeFake(t)
	reg := cleanup.New(io.Discard)

	p := NewIOS(iosContext(store, dir, BuildDebug, "staging"), store, fake, reg, io.Discard, io.Discard)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	artifact := filepath.Join(dir, DistDir, "v2.3.1_7_staging.ipa")
	if _, err := os.Stat(artifact); err != nil {
		t.Errorf("exported ipa missing: %v", err)
	}

	// The transient export directory is gone even before compensation.
	if _, err := os.Stat(filepath.Join(dir, "ios", "build", "export")); err == nil {
		t.Error("export directory survives the export step")
	}

	reg.Execute()

	// Scheme restored to its original content after the pass.
	scheme, err := os.ReadFile(filepath.Join(dir, "ios", "DemoApp.xcodeproj", "xcshareddata", "xcschemes", "DemoApp.xcscheme"))
	if err != nil {
		t.Fatal(err)
	}
	if string(scheme) != xcscheme {
		t.Error("scheme not restored by compensation")
	}
	if _, err := os.Stat(filepath.Join(dir, "ios", "build", "DemoApp.xcarchive")); err == nil {
		t.Error("xcarchive survives compensation")
	}
	if _, err := os.Stat(artifact); err != nil {
		t.Errorf("artifact removed by compensation: %v", err)
	}
}

func TestIOSProdUsesReleaseConfigurationAndSigning(t *testing.T) {
	dir, store := writeTestProject(t, true)
	fake := xcodeFake(t)

	p := NewIOS(iosContext(store, dir, BuildProd, "qa"), store, fake, cleanup.New(io.Discard), io.Discard, io.Discard)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	var archiveCall []string
	for _, c := range fake.calls {
		if c[0] == "xcodebuild" && contains(c, "archive") {
			archiveCall = c
		}
	}
	if archiveCall == nil {
		t.Fatal("xcodebuild archive never invoked")
	}
	if !contains(archiveCall, "Release") {
		t.Errorf("archive call missing Release configuration: %v", archiveCall)
	}
	if !contains(archiveCall, "CODE_SIGN_IDENTITY=Apple Distribution: Example Corp") {
		t.Errorf("archive call missing signing identity: %v", archiveCall)
	}
	if !contains(archiveCall, "PROVISIONING_PROFILE_SPECIFIER=DemoApp AppStore") {
		t.Errorf("archive call missing provisioning profile: %v", archiveCall)
	}

	if _, err := os.Stat(filepath.Join(dir, DistDir, "v2.3.1_7_qa.ipa")); err != nil {
		t.Errorf("prod ipa missing: %v", err)
	}
}

func TestIOSStampsPbxproj(t *testing.T) {
	dir, store := writeTestProject(t, true)
	fake := xcodeFake(t)

	p := NewIOS(iosContext(store, dir, BuildDebug, "qa"), store, fake, cleanup.New(io.Discard), io.Discard, io.Discard)
	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "ios", "DemoApp.xcodeproj", "project.pbxproj"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "MARKETING_VERSION = 2.3.1;") {
		t.Errorf("pbxproj not stamped:\n%s", content)
	}
}

func TestIOSMissingIpaIsTerminal(t *testing.T) {
	dir, store := writeTestProject(t, true)
	// Export "succeeds" but leaves no ipa behind.
	fake := &fakeRunner{}
	reg := cleanup.New(io.Discard)

	p := NewIOS(iosContext(store, dir, BuildProd, "qa"), store, fake, reg, io.Discard, io.Discard)
	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("Run() succeeded without an exported ipa")
	}
	stepErr, ok := err.(*StepError)
	if !ok {
		t.Fatalf("error type = %T, want *StepError", err)
	}
	if stepErr.Step != "export artifact" {
		t.Errorf("failed step = %q, want export artifact", stepErr.Step)
	}
}

func TestIOSArchiveCompensationRegisteredEvenOnArchiveFailure(t *testing.T) {
	dir, store := writeTestProject(t, true)
	fake := &fakeRunner{onStream: func(dir, name string, args []string) int {
		if name == "xcodebuild" {
			return 65
		}
		return 0
	}}
	reg := cleanup.New(io.Discard)

	p := NewIOS(iosContext(store, dir, BuildProd, "qa"), store, fake, reg, io.Discard, io.Discard)
	if err := p.Run(context.Background()); err == nil {
		t.Fatal("Run() succeeded with failing xcodebuild")
	}

	// The archive deletion is registered regardless of the archive
	// step's outcome.
	if reg.Len() == 0 {
		t.Fatal("no compensations registered")
	}
	reg.Execute()
	if _, err := os.Stat(filepath.Join(dir, "ios", "build", "DemoApp.xcarchive")); err == nil {
		t.Error("xcarchive survives compensation")
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
