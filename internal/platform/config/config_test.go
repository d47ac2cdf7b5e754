package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("COACH_TEST_STR", "  value ")
	if got := GetEnv("COACH_TEST_STR", "x"); got != "value" {
		t.Errorf("GetEnv: got %q", got)
	}
	if got := GetEnv("COACH_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("GetEnv unset: got %q", got)
	}
}

func TestGetEnv_typed_values(t *testing.T) {
	t.Setenv("COACH_TEST_INT", "7")
	t.Setenv("COACH_TEST_INT64", "104857600")
	t.Setenv("COACH_TEST_FLOAT", "0.5")
	t.Setenv("COACH_TEST_BOOL", "true")
	t.Setenv("COACH_TEST_DUR", "45s")

	if got := GetEnvInt("COACH_TEST_INT", 1); got != 7 {
		t.Errorf("GetEnvInt: got %d", got)
	}
	if got := GetEnvInt64("COACH_TEST_INT64", 1); got != 104857600 {
		t.Errorf("GetEnvInt64: got %d", got)
	}
	if got := GetEnvFloat("COACH_TEST_FLOAT", 1); got != 0.5 {
		t.Errorf("GetEnvFloat: got %v", got)
	}
	if got := GetEnvBool("COACH_TEST_BOOL", false); !got {
		t.Error("GetEnvBool: expected true")
	}
	if got := GetEnvDuration("COACH_TEST_DUR", time.Second); got != 45*time.Second {
		t.Errorf("GetEnvDuration: got %v", got)
	}
}

func TestGetEnv_invalid_values_use_fallback(t *testing.T) {
	t.Setenv("COACH_TEST_BAD", "not-a-number")

	if got := GetEnvInt("COACH_TEST_BAD", 3); got != 3 {
		t.Errorf("GetEnvInt: got %d", got)
	}
	if got := GetEnvFloat("COACH_TEST_BAD", 1.5); got != 1.5 {
		t.Errorf("GetEnvFloat: got %v", got)
	}
	if got := GetEnvBool("COACH_TEST_BAD", true); !got {
		t.Error("GetEnvBool: expected fallback true")
	}
	if got := GetEnvDuration("COACH_TEST_BAD", time.Minute); got != time.Minute {
		t.Errorf("GetEnvDuration: got %v", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("COACH_TEST_FROM_FILE=loaded\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("COACH_TEST_FROM_FILE") })

	if err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := GetEnv("COACH_TEST_FROM_FILE", ""); got != "loaded" {
		t.Errorf("expected value from env file, got %q", got)
	}

	if err := Load(filepath.Join(dir, "missing.env")); err == nil {
		t.Error("expected error for missing file")
	}
}
