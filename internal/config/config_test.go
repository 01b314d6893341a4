package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadFallsBackOnBadTTL(t *testing.T) {
	t.Setenv("DASHBOARD_STATS_TTL_SECONDS", "not-a-number")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "-5")

	cfg := Load()
	if cfg.StatsTTLSeconds != 30 {
		t.Fatalf("expected stats TTL fallback 30, got %d", cfg.StatsTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected token TTL fallback 480, got %d", cfg.AccessTokenTTLMinutes)
	}
}

func TestAddress(t *testing.T) {
	t.Setenv("PORT", "9090")

	if got := Load().Address(); got != ":9090" {
		t.Fatalf("expected :9090, got %q", got)
	}
}
