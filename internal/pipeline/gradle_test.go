package pipeline

import (
	"strings"
	"testing"

	"github.com/shipmobile/mobctl/internal/config"
)

var testCreds = config.AndroidCredentials{
	StoreFile:     "release.keystore",
	KeyAlias:      "upload",
	StorePassword: "real-store-pass",
	KeyPassword:   "real-key-pass",
}

const gradleProps = `org.gradle.jvmargs=-Xmx2048m
android.useAndroidX=true
MOBCTL_UPLOAD_STORE_FILE=debug.keystore
MOBCTL_UPLOAD_KEY_ALIAS=androiddebugkey
MOBCTL_UPLOAD_STORE_PASSWORD=*****
MOBCTL_UPLOAD_KEY_PASSWORD=*****
`

func TestInjectSigningProperties(t *testing.T) {
	out := InjectSigningProperties(gradleProps, testCreds)

	for _, want := range []string{
		"MOBCTL_UPLOAD_STORE_FILE=release.keystore",
		"MOBCTL_UPLOAD_KEY_ALIAS=upload",
		"MOBCTL_UPLOAD_STORE_PASSWORD=real-store-pass",
		"MOBCTL_UPLOAD_KEY_PASSWORD=real-key-pass",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("injected content missing %q:\n%s", want, out)
		}
	}

	// Unrelated lines stay put.
	if !strings.Contains(out, "org.gradle.jvmargs=-Xmx2048m") {
		t.Error("unrelated property was disturbed")
	}
	// No duplicate key lines.
	if strings.Count(out, "MOBCTL_UPLOAD_STORE_PASSWORD=") != 1 {
		t.Errorf("store password key duplicated:\n%s", out)
	}
}

func TestInjectSigningPropertiesAppendsMissingKeys(t *testing.T) {
	out := InjectSigningProperties("android.useAndroidX=true", testCreds)

	if !strings.Contains(out, "MOBCTL_UPLOAD_KEY_ALIAS=upload") {
		t.Errorf("missing key was not appended:\n%s", out)
	}
}

func TestInjectOnlyFirstMatchingLine(t *testing.T) {
	content := "MOBCTL_UPLOAD_KEY_ALIAS=first\nMOBCTL_UPLOAD_KEY_ALIAS=second\n"
	out := InjectSigningProperties(content, testCreds)

	if !strings.Contains(out, "MOBCTL_UPLOAD_KEY_ALIAS=upload\nMOBCTL_UPLOAD_KEY_ALIAS=second\n") {
		t.Errorf("second occurrence should be untouched:\n%s", out)
	}
}

func TestRedactRoundTrip(t *testing.T) {
	// Inject, then apply the restore transform to the ORIGINAL content,
	// which is the compensation's contract. No secret value may appear afterwards,
	// neither the injected ones nor any that were in the original.
	original := strings.ReplaceAll(gradleProps, "*****", "old-leaked-secret")
	_ = InjectSigningProperties(original, testCreds)

	restored := RedactSigningProperties(original)

	for _, secret := range []string{"real-store-pass", "real-key-pass", "old-leaked-secret"} {
		if strings.Contains(restored, secret) {
			t.Errorf("restored content leaks secret %q:\n%s", secret, restored)
		}
	}
	if !strings.Contains(restored, "MOBCTL_UPLOAD_STORE_PASSWORD="+RedactedPlaceholder) {
		t.Errorf("store password not redacted to placeholder:\n%s", restored)
	}
	if !strings.Contains(restored, "MOBCTL_UPLOAD_KEY_PASSWORD="+RedactedPlaceholder) {
		t.Errorf("key password not redacted to placeholder:\n%s", restored)
	}
	// Non-secret keys keep their original values.
	if !strings.Contains(restored, "MOBCTL_UPLOAD_STORE_FILE=debug.keystore") {
		t.Errorf("non-secret key was altered:\n%s", restored)
	}
}

const appBuildGradle = `apply plugin: "com.android.application"

android {
    defaultConfig {
        applicationId "com.example.demo"
        versionCode 1
        versionName "1.0.0"
    }
}

dependencies {
    // a library that happens to declare its own versionName downstream
}
`

func TestStampGradleVersion(t *testing.T) {
	out, err := StampGradleVersion(appBuildGradle, "2.3.1", 7)
	if err != nil {
		t.Fatalf("StampGradleVersion() error: %v", err)
	}
	if !strings.Contains(out, `versionName "2.3.1"`) {
		t.Errorf("versionName not stamped:\n%s", out)
	}
	if !strings.Contains(out, "versionCode 7") {
		t.Errorf("versionCode not stamped:\n%s", out)
	}
	if strings.Contains(out, `versionName "1.0.0"`) || strings.Contains(out, "versionCode 1\n") {
		t.Errorf("old version survives:\n%s", out)
	}
}

func TestStampGradleVersionFirstOccurrenceOnly(t *testing.T) {
	content := appBuildGradle + `
project(":library") {
    versionCode 99
    versionName "9.9.9"
}
`
	out, err := StampGradleVersion(content, "2.3.1", 7)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `versionName "9.9.9"`) || !strings.Contains(out, "versionCode 99") {
		t.Errorf("subproject version entries must be untouched:\n%s", out)
	}
}

func TestStampGradleVersionMissingKey(t *testing.T) {
	if _, err := StampGradleVersion("android {}", "1.0.0", 1); err == nil {
		t.Fatal("StampGradleVersion() accepted content without version entries")
	}
}
