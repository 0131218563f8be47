package config

import (
	"os"
	"strings"
	"testing"
)

// writeFile is a small test helper shared with config_test.go.
func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}

func validConfig() Config {
	var cfg Config
	cfg.SetDefaults()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestValidate_MissingStateDir(t *testing.T) {
	cfg := validConfig()
	cfg.StateDir = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for empty state_dir")
	}
	if !strings.Contains(err.Error(), "StateDir") {
		t.Errorf("error should name the failing field, got: %v", err)
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "verbose"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for unrecognized log level")
	}
	if !strings.Contains(err.Error(), "must be one of") {
		t.Errorf("expected an oneof message, got: %v", err)
	}
}

func TestValidate_VerifyTimeoutBounds(t *testing.T) {
	cfg := validConfig()
	cfg.VerifyTimeoutSeconds = 0

	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero verify timeout")
	}

	cfg.VerifyTimeoutSeconds = 601
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for verify timeout above cap")
	}
}

func TestValidate_IndexInsideStateDir(t *testing.T) {
	cfg := validConfig()
	cfg.Audit.IndexPath = cfg.StateDir + "/audit-index.db"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error when index lives in state_dir")
	}
	if !strings.Contains(err.Error(), "state_dir") {
		t.Errorf("error should explain the state_dir conflict, got: %v", err)
	}
}
