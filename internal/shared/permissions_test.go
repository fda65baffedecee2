package shared

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPermissionKeysAreSeeded(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "platform", "db", "migrations", "00002_seed_rbac.sql"))
	if err != nil {
		t.Fatalf("read seed migration: %v", err)
	}
	seed := string(data)
	seen := map[string]bool{}
	for _, key := range append(CoreScopes(), ParishScopes()...) {
		if seen[key] {
			t.Fatalf("permission %q declared twice", key)
		}
		seen[key] = true
		if !strings.Contains(seed, "'"+key+"'") {
			t.Errorf("permission %q missing from seed migration", key)
		}
	}
}
