package cli

import (
	"bytes"
	"strings"
	"testing"
)

func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	SetVersion("test-version")
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "test-version") {
		t.Errorf("expected version output to contain 'test-version', got: %s", out)
	}
}

func TestRootHelp(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedSubcommands := []string{
		"build", "start", "install", "devices", "open",
		"clean", "builds", "config", "db", "version",
	}
	for _, sub := range expectedSubcommands {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestBuildsSubcommands(t *testing.T) {
	subcmds := []string{"list", "show", "delete"}
	for _, sub := range subcmds {
		out, err := executeCommand("builds", sub, "--help")
		if err != nil {
			t.Errorf("builds %s --help failed: %v", sub, err)
		}
		if out == "" {
			t.Errorf("builds %s --help produced no output", sub)
		}
	}
}

func TestDBSubcommands(t *testing.T) {
	subcmds := []string{"migrate", "reset", "path", "recent"}
	for _, sub := range subcmds {
		out, err := executeCommand("db", sub, "--help")
		if err != nil {
			t.Errorf("db %s --help failed: %v", sub, err)
		}
		if out == "" {
			t.Errorf("db %s --help produced no output", sub)
		}
	}
}

func TestBuildRequiresThreeArgs(t *testing.T) {
	if _, err := executeCommand("build", "android"); err == nil {
		t.Error("expected arg validation error")
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, err := executeCommand("nonexistent"); err == nil {
		t.Error("expected error for unknown command, got nil")
	}
}
