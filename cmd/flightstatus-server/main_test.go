package main

import (
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("FLIGHTSTATUS_TEST_VAR", "set")
	if got := getEnv("FLIGHTSTATUS_TEST_VAR", "fallback"); got != "set" {
		t.Errorf("getEnv = %q, want set", got)
	}

	if got := getEnv("FLIGHTSTATUS_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("getEnv = %q, want fallback", got)
	}

	t.Setenv("FLIGHTSTATUS_TEST_EMPTY", "")
	if got := getEnv("FLIGHTSTATUS_TEST_EMPTY", "fallback"); got != "fallback" {
		t.Errorf("getEnv on empty value = %q, want fallback", got)
	}
}

func TestGetDuration(t *testing.T) {
	t.Setenv("FLIGHTSTATUS_TEST_TTL", "90s")
	if got := getDuration("FLIGHTSTATUS_TEST_TTL", time.Minute); got != 90*time.Second {
		t.Errorf("getDuration = %v, want 90s", got)
	}

	if got := getDuration("FLIGHTSTATUS_TEST_TTL_UNSET", time.Minute); got != time.Minute {
		t.Errorf("getDuration = %v, want default 1m", got)
	}

	t.Setenv("FLIGHTSTATUS_TEST_TTL_BAD", "ninety seconds")
	if got := getDuration("FLIGHTSTATUS_TEST_TTL_BAD", time.Minute); got != time.Minute {
		t.Errorf("getDuration on invalid value = %v, want default 1m", got)
	}
}
