package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadHostConfigMissingIsEmpty(t *testing.T) {
	hc, err := readHostConfig(filepath.Join(t.TempDir(), "host.json"))
	if err != nil {
		t.Fatalf("readHostConfig: %v", err)
	}
	if len(hc.Plugins) != 0 {
		t.Errorf("expected no plugins, got %v", hc.Plugins)
	}
}

func TestReadHostConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.json")
	content := `{"plugins":[{"name":"DefinePlugin","options":{}}]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	hc, err := readHostConfig(path)
	if err != nil {
		t.Fatalf("readHostConfig: %v", err)
	}
	if len(hc.Plugins) != 1 || hc.Plugins[0].Name != "DefinePlugin" {
		t.Errorf("unexpected plugins: %+v", hc.Plugins)
	}
}

func TestReadHostConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := readHostConfig(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "parsing host config") {
		t.Errorf("unexpected error: %v", err)
	}
}
