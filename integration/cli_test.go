package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestCLIBuild tests that the CLI binary can be built
func TestCLIBuild(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping CLI build test in short mode")
	}

	tmpDir := t.TempDir()
	binaryPath := filepath.Join(tmpDir, "docsift-test")

	cmd := exec.Command("go", "build", "-o", binaryPath, "../cmd/docsift")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Failed to build CLI: %v\nOutput: %s", err, output)
	}

	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Error("Binary should exist after build")
	}

	// Smoke-test the binary: help and version must run without config
	helpOut, err := exec.Command(binaryPath, "--help").CombinedOutput()
	if err != nil {
		t.Fatalf("--help failed: %v\nOutput: %s", err, helpOut)
	}
	if !strings.Contains(string(helpOut), "docsift") {
		t.Errorf("--help output should mention docsift, got: %s", helpOut)
	}

	versionOut, err := exec.Command(binaryPath, "version").CombinedOutput()
	if err != nil {
		t.Fatalf("version failed: %v\nOutput: %s", err, versionOut)
	}
	if !strings.Contains(string(versionOut), "docsift") {
		t.Errorf("version output should mention docsift, got: %s", versionOut)
	}
}
