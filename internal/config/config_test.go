package config

import (
	"strings"
	"testing"
)

func TestApplyEnvOverride(t *testing.T) {
	cfg := Default()
	if err := applyEnv(&cfg, []string{"ZALLET_NETWORK=test"}); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Network != NetworkTest {
		t.Fatalf("expected network override to apply, got %q", cfg.Network)
	}
}

func TestApplyEnvRejectsSensitiveSuffixes(t *testing.T) {
	cases := []string{
		"ZALLET_INDEXER__VALIDATOR_PASSWORD=hunter2",
		"ZALLET_RPC__PASSWORD=hunter2",
		"ZALLET_SOME__API_SECRET=hunter2",
	}
	for _, kv := range cases {
		cfg := Default()
		err := applyEnv(&cfg, []string{kv})
		if err == nil {
			t.Errorf("expected %q to be rejected", kv)
			continue
		}
		name := strings.SplitN(kv, "=", 2)[0]
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error for %q should name the forbidden key, got %q", kv, err)
		}
	}
}
