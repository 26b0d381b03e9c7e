package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/cctag-identify/internal/marker"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestNilConfigUsesDefaults(t *testing.T) {
	var cfg *TuningConfig
	if got := cfg.Params(); got != marker.DefaultParams() {
		t.Errorf("Params() = %+v, want defaults", got)
	}
	if cfg.GetBlurSigma() != DefaultBlurSigma {
		t.Errorf("GetBlurSigma() = %v, want %v", cfg.GetBlurSigma(), DefaultBlurSigma)
	}
}

func TestLoadTuningConfig(t *testing.T) {
	path := writeConfig(t, "tuning.json", `{
  "crowns": 4,
  "trials": 100,
  "solver": "nelder-mead",
  "matching": "pooled",
  "blur_sigma": 0.5
}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig failed: %v", err)
	}

	p := cfg.Params()
	want := marker.DefaultParams()
	want.Crowns = 4
	want.Trials = 100
	want.Solver = "nelder-mead"
	want.Matching = "pooled"
	if p != want {
		t.Errorf("Params() = %+v, want %+v", p, want)
	}
	if cfg.GetBlurSigma() != 0.5 {
		t.Errorf("GetBlurSigma() = %v, want 0.5", cfg.GetBlurSigma())
	}
}

func TestLoadTuningConfig_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		contains string
	}{
		{"wrong extension", "tuning.yaml", `{}`, ".json extension"},
		{"bad json", "bad.json", `{"crowns":`, "parse"},
		{"unsupported crowns", "crowns.json", `{"crowns": 5}`, "unsupported crown count"},
		{"unknown solver", "solver.json", `{"solver": "newton"}`, "unknown solver"},
		{"unknown matching", "matching.json", `{"matching": "vote"}`, "unknown matching strategy"},
		{"negative blur", "blur.json", `{"blur_sigma": -1}`, "blur_sigma"},
		{"offset past length", "len.json", `{"crowns": 4, "sample_length": 20}`, "start offset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuningConfig(writeConfig(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not mention %q", err, tt.contains)
			}
		})
	}
}

func TestLoadTuningConfig_Missing(t *testing.T) {
	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadTuningConfig_TooLarge(t *testing.T) {
	big := `{"alpha": 0.1` + strings.Repeat(" ", 1024*1024) + `}`
	if _, err := LoadTuningConfig(writeConfig(t, "big.json", big)); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("Expected size error, got %v", err)
	}
}
