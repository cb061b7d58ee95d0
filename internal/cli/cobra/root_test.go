package cobra

import (
	"bytes"
	"strings"
	"testing"
)

// executeCmd runs the root command with the given args and returns stdout, stderr, and error.
func executeCmd(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	rootCmd := NewRootCmd()
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRoot_Help(t *testing.T) {
	tests := []string{"--help", "-h"}
	for _, arg := range tests {
		t.Run(arg, func(t *testing.T) {
			stdout, _, err := executeCmd(arg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !strings.Contains(stdout, "qbdtest") {
				t.Error("expected 'qbdtest' in help output")
			}
			if !strings.Contains(stdout, "Available Commands") {
				t.Error("expected 'Available Commands' in help output")
			}
			for _, cmd := range []string{"broker", "create", "monitor", "ls", "show", "verify", "delete", "archive", "save", "load"} {
				if !strings.Contains(stdout, cmd) {
					t.Errorf("expected '%s' command in help output", cmd)
				}
			}
		})
	}
}

func TestRoot_Version(t *testing.T) {
	tests := []string{"--version", "version"}
	for _, arg := range tests {
		t.Run(arg, func(t *testing.T) {
			stdout, _, err := executeCmd(arg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(stdout, "dev") {
				t.Errorf("expected version string in output, got %q", stdout)
			}
		})
	}
}

func TestRoot_UnknownCommand(t *testing.T) {
	_, _, err := executeCmd("frobnicate")
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestShow_RequiresArg(t *testing.T) {
	_, _, err := executeCmd("show")
	if err == nil {
		t.Fatal("expected error when ref number is missing")
	}
}

func TestCompletion_UnsupportedShell(t *testing.T) {
	_, _, err := executeCmd("completion", "fish")
	if err == nil {
		t.Fatal("expected error for unsupported shell")
	}
}

func TestCompletion_Bash(t *testing.T) {
	stdout, _, err := executeCmd("completion", "bash")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "qbdtest") {
		t.Error("expected generated script to mention qbdtest")
	}
}
