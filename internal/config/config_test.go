package config

import (
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Schedule.Policy != PolicyMonths || cfg.Schedule.Months != 24 {
		t.Fatalf("unexpected default schedule: %+v", cfg.Schedule)
	}
	if cfg.Care.RetryAttempts != 3 {
		t.Fatalf("unexpected default retries: %d", cfg.Care.RetryAttempts)
	}
}

func TestValidatePolicy(t *testing.T) {
	cfg := Default()
	cfg.Schedule.Policy = "weekly"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "policy") {
		t.Fatalf("expected policy error, got %v", err)
	}

	cfg = Default()
	cfg.Schedule.Policy = PolicyFixedDays
	cfg.Schedule.FixedDayOffsets = []int{20, 10}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "ascending") {
		t.Fatalf("expected ascending error, got %v", err)
	}
}

func TestFromYAML(t *testing.T) {
	cfg, err := FromYAML([]byte(GenerateDefault()))
	if err != nil {
		t.Fatalf("parse default template: %v", err)
	}
	if _, err := cfg.Location(); err != nil {
		t.Fatalf("resolve timezone: %v", err)
	}

	if _, err := FromYAML([]byte("schedule: [")); err == nil {
		t.Fatal("expected yaml error")
	}
}
