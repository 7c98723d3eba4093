package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitConfigAppliesLogSettings(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "echoctl.log")
	path := filepath.Join(dir, "config.toml")
	content := "[log]\nverbose = true\nfile = \"" + logFile + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		cfgFile = ""
		verbose = false
		logOutput = os.Stderr
		cfg = nil
	})
	cfgFile = path

	if err := initConfig(); err != nil {
		t.Fatalf("initConfig failed: %v", err)
	}
	if !Verbose() {
		t.Error("expected config log.verbose to enable verbose output")
	}

	logf("renewing session for %s", "Kitchen")
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if !strings.Contains(string(data), "renewing session for Kitchen") {
		t.Errorf("log line not written, got %q", data)
	}
}
