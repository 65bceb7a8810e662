package configfiles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestGetBootstrapExample tests the GetBootstrapExample function
func TestGetBootstrapExample(t *testing.T) {
	content, err := GetBootstrapExample()
	if err != nil {
		t.Fatalf("GetBootstrapExample failed: %v", err)
	}
	if !strings.Contains(string(content), "join_mode: tolerant") {
		t.Error("bootstrap example should document report.join_mode")
	}
}

func TestLoadStylesheet(t *testing.T) {
	css, err := LoadStylesheet("")
	if err != nil {
		t.Fatalf("LoadStylesheet(\"\") failed: %v", err)
	}
	if !strings.Contains(css, ".sector-block") {
		t.Error("default stylesheet should style sector blocks")
	}

	custom := filepath.Join(t.TempDir(), "custom.css")
	if err := os.WriteFile(custom, []byte("body { color: red; }"), 0644); err != nil {
		t.Fatal(err)
	}
	css, err = LoadStylesheet(custom)
	if err != nil {
		t.Fatalf("LoadStylesheet(custom) failed: %v", err)
	}
	if css != "body { color: red; }" {
		t.Errorf("LoadStylesheet(custom) = %q", css)
	}

	if _, err := LoadStylesheet(filepath.Join(t.TempDir(), "missing.css")); err == nil {
		t.Error("LoadStylesheet() should fail for a missing file")
	}
}

func TestInitFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config", "bootstrap.yaml")

	written, err := InitFile("bootstrap.example.yaml", target)
	if err != nil || !written {
		t.Fatalf("InitFile() = %v, %v; want true, nil", written, err)
	}

	written, err = InitFile("bootstrap.example.yaml", target)
	if err != nil || written {
		t.Errorf("InitFile() on existing file = %v, %v; want false, nil", written, err)
	}

	if _, err := InitFile("nope.yaml", filepath.Join(t.TempDir(), "x.yaml")); err == nil {
		t.Error("InitFile() should fail for an unknown template")
	}
}
