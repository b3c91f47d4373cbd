package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"FriendlyNames", cfg.FriendlyNames, true},
		{"ImageLoadsDivergent", cfg.ImageLoadsDivergent, false},
		{"OutputFormat", cfg.OutputFormat, OutputText},
		{"Verbose", cfg.Verbose, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("DefaultConfig().%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *Config
		wantErr     bool
		errContains string
	}{
		{
			name: "valid text output",
			cfg:  &Config{OutputFormat: OutputText},
		},
		{
			name: "valid json output",
			cfg:  &Config{OutputFormat: OutputJSON},
		},
		{
			name: "valid msgpack output",
			cfg:  &Config{OutputFormat: OutputMsgpack},
		},
		{
			name:        "invalid output format",
			cfg:         &Config{OutputFormat: "xml"},
			wantErr:     true,
			errContains: "invalid output_format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate() = nil, want error containing %q", tt.errContains)
				}
				if !contains(err.Error(), tt.errContains) {
					t.Errorf("Validate() = %q, want it to contain %q", err.Error(), tt.errContains)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dlint.yaml")
	yamlContent := `
friendly_names: false
image_loads_divergent: true
output_format: json
verbose: true
`
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() = %v, want nil", err)
	}

	if cfg.FriendlyNames != false {
		t.Errorf("FriendlyNames = %v, want false", cfg.FriendlyNames)
	}
	if cfg.ImageLoadsDivergent != true {
		t.Errorf("ImageLoadsDivergent = %v, want true", cfg.ImageLoadsDivergent)
	}
	if cfg.OutputFormat != OutputJSON {
		t.Errorf("OutputFormat = %v, want json", cfg.OutputFormat)
	}
	if cfg.Verbose != true {
		t.Errorf("Verbose = %v, want true", cfg.Verbose)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("LoadFromFile() = nil, want error for missing file")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DLINT_FRIENDLY_NAMES", "false")
	t.Setenv("DLINT_IMAGE_LOADS_DIVERGENT", "true")
	t.Setenv("DLINT_OUTPUT_FORMAT", "msgpack")
	t.Setenv("DLINT_VERBOSE", "1")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.FriendlyNames != false {
		t.Errorf("FriendlyNames = %v, want false", cfg.FriendlyNames)
	}
	if cfg.ImageLoadsDivergent != true {
		t.Errorf("ImageLoadsDivergent = %v, want true", cfg.ImageLoadsDivergent)
	}
	if cfg.OutputFormat != OutputMsgpack {
		t.Errorf("OutputFormat = %v, want msgpack", cfg.OutputFormat)
	}
	if cfg.Verbose != true {
		t.Errorf("Verbose = %v, want true", cfg.Verbose)
	}
}

func TestConfigSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dlint.yaml")

	cfg := DefaultConfig()
	cfg.ImageLoadsDivergent = true
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() = %v, want nil", err)
	}

	roundTripped, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() after Save = %v, want nil", err)
	}
	if roundTripped.ImageLoadsDivergent != true {
		t.Errorf("round-tripped ImageLoadsDivergent = %v, want true", roundTripped.ImageLoadsDivergent)
	}
}

func TestConfigSaveCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "dir", "dlint.yaml")

	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save() = %v, want nil", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to exist at %s: %v", path, err)
	}
}

func contains(s, substr string) bool {
	if substr == "" {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
