package env

import "testing"

func TestGetPrefersNamespacedValue(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("ESCROW_LOG_FORMAT", "console")
	if got := Get("LOG_FORMAT", "x"); got != "console" {
		t.Fatalf("expected namespaced value, got %q", got)
	}
	if got := Get("ESCROW_LOG_FORMAT", "x"); got != "console" {
		t.Fatalf("expected prefixed key to resolve the same, got %q", got)
	}
}

func TestGetFallsBack(t *testing.T) {
	t.Setenv("ESCROW_PORT", "  ")
	t.Setenv("PORT", "9090")
	if got := Get("PORT", "8080"); got != "9090" {
		t.Fatalf("expected bare value, got %q", got)
	}
	t.Setenv("PORT", "")
	if got := Get("PORT", "8080"); got != "8080" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
