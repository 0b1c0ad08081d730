package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validEnvironments = `
environments:
  dev:
    protocol: http
    domain: localhost
    port: 3000
  qa:
    protocol: https
    domain: qa.api.example.com
    port: 443
  staging:
    protocol: https
    domain: staging.api.example.com
    port: 443
`

const validManifest = `
NAME: DemoApp
ANDROID:
  VERSION: "2.3.1"
  BUILD: 7
IOS:
  VERSION: "2.3.1"
  BUILD: 7
`

const validCredentials = `
android:
  store_file: release.keystore
  key_alias: upload
  store_password: s3cret-store
  key_password: s3cret-key
ios:
  provisioning_profile: "DemoApp AppStore"
  code_sign_identity: "Apple Distribution: Example Corp"
  team_id: ABCDE12345
`

// writeProject lays out a project dir with the given descriptor contents.
// Empty strings skip the file.
func writeProject(t *testing.T, environments, manifest, credentials string) string {
	t.Helper()
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, ConfigDir)
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		EnvironmentsFile: environments,
		ManifestFile:     manifest,
		CredentialsFile:  credentials,
	}
	for name, content := range files {
		if content == "" {
			continue
		}
		if err := os.WriteFile(filepath.Join(cfgDir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadValidProject(t *testing.T) {
	dir := writeProject(t, validEnvironments, validManifest, validCredentials)

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if len(s.Environments.Environments) != 3 {
		t.Errorf("loaded %d environments, want 3", len(s.Environments.Environments))
	}
	qa, ok := s.Environment("qa")
	if !ok {
		t.Fatal("environment qa not found")
	}
	if qa.Domain != "qa.api.example.com" || qa.Port != 443 {
		t.Errorf("qa = %+v, want qa.api.example.com:443", qa)
	}

	if s.Manifest.Android.Version != "2.3.1" {
		t.Errorf("ANDROID.VERSION = %q, want 2.3.1", s.Manifest.Android.Version)
	}
	if s.Manifest.IOS.Build != 7 {
		t.Errorf("IOS.BUILD = %d, want 7", s.Manifest.IOS.Build)
	}

	if !s.HasCredentials() {
		t.Error("HasCredentials() = false with credentials.yml present")
	}
	if s.Credentials.Android.KeyAlias != "upload" {
		t.Errorf("KeyAlias = %q, want upload", s.Credentials.Android.KeyAlias)
	}
}

func TestLoadWithoutCredentials(t *testing.T) {
	dir := writeProject(t, validEnvironments, validManifest, "")

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if s.HasCredentials() {
		t.Error("HasCredentials() = true without credentials.yml")
	}
}

func TestLoadMissingEnvironments(t *testing.T) {
	dir := writeProject(t, "", validManifest, "")

	_, err := Load(dir)
	if err == nil {
		t.Fatal("Load() succeeded without environments.yml")
	}
	if !strings.Contains(err.Error(), "environments") {
		t.Errorf("error = %v, want mention of environments", err)
	}
}

func TestLoadRejectsBadProtocol(t *testing.T) {
	bad := `
environments:
  dev:
    protocol: gopher
    domain: localhost
    port: 3000
`
	dir := writeProject(t, bad, validManifest, "")

	if _, err := Load(dir); err == nil {
		t.Fatal("Load() accepted protocol gopher")
	}
}

func TestLoadRejectsMissingVersion(t *testing.T) {
	bad := `
NAME: DemoApp
ANDROID:
  BUILD: 7
IOS:
  VERSION: "1.0.0"
  BUILD: 1
`
	dir := writeProject(t, validEnvironments, bad, "")

	if _, err := Load(dir); err == nil {
		t.Fatal("Load() accepted manifest without ANDROID.VERSION")
	}
}

func TestFindProjectDir(t *testing.T) {
	dir := writeProject(t, validEnvironments, validManifest, "")
	nested := filepath.Join(dir, "android", "app")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	found, err := FindProjectDir(nested)
	if err != nil {
		t.Fatalf("FindProjectDir() error: %v", err)
	}
	if found != dir {
		t.Errorf("FindProjectDir() = %q, want %q", found, dir)
	}
}

func TestFindProjectDirNotFound(t *testing.T) {
	if _, err := FindProjectDir(t.TempDir()); err == nil {
		t.Fatal("FindProjectDir() succeeded outside a project")
	}
}

func TestValidateStoreHTTPSPortMismatch(t *testing.T) {
	s := &Store{
		Environments: Environments{Environments: map[string]Environment{
			"qa": {Protocol: "https", Domain: "qa.example.com", Port: 80},
		}},
		Manifest: Manifest{
			Name:    "DemoApp",
			Android: PlatformManifest{Version: "1.0.0", Build: 1},
			IOS:     PlatformManifest{Version: "1.0.0", Build: 1},
		},
	}

	errs := ValidateStore(s)
	if len(errs) != 1 {
		t.Fatalf("ValidateStore() = %v, want exactly one error", errs)
	}
	if errs[0].Field != "environments.qa.port" {
		t.Errorf("Field = %q, want environments.qa.port", errs[0].Field)
	}
}

func TestWriteEnvFile(t *testing.T) {
	dir := writeProject(t, validEnvironments, validManifest, "")
	s, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	path, err := s.WriteEnvFile("qa")
	if err != nil {
		t.Fatalf("WriteEnvFile() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var constants EnvConstants
	if err := json.Unmarshal(data, &constants); err != nil {
		t.Fatalf("generated env.json is not valid JSON: %v", err)
	}
	if constants.Environment != "qa" {
		t.Errorf("ENVIRONMENT = %q, want qa", constants.Environment)
	}
	if constants.BaseURL != "https://qa.api.example.com:443" {
		t.Errorf("BASE_URL = %q, want https://qa.api.example.com:443", constants.BaseURL)
	}
}

func TestWriteEnvFileUnknownEnvironment(t *testing.T) {
	dir := writeProject(t, validEnvironments, validManifest, "")
	s, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.WriteEnvFile("production"); err == nil {
		t.Fatal("WriteEnvFile() accepted undefined environment")
	}
}
