package instance

import "testing"

func TestGetIDPrefersEnv(t *testing.T) {
	t.Setenv(envWorkerID, "cron-7")
	if got := GetID(); got != "cron-7" {
		t.Fatalf("expected cron-7, got %s", got)
	}
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv(envWorkerID, "")
	if got := GetID(); got == "" {
		t.Fatal("expected a non-empty id")
	}
}
