package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ouroagent/ouro/pkg/models"
)

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roles.yaml")
	content := `
roles:
  manager:
    system_prompt: "plan the work"
    temperature: 0.5
  developer:
    system_prompt: "write the code"
    timeout: 90s
    allowed_tools: [read_file, write_file]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write roles file: %v", err)
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}

	spec, ok := catalog.Get(models.RoleManager)
	if !ok {
		t.Fatal("expected manager role in catalog")
	}
	if spec.SystemPrompt != "plan the work" {
		t.Errorf("unexpected manager prompt: %q", spec.SystemPrompt)
	}

	dev, ok := catalog.Get(models.RoleDeveloper)
	if !ok {
		t.Fatal("expected developer role in catalog")
	}
	if dev.Timeout != 90*time.Second {
		t.Errorf("expected developer timeout 90s, got %v", dev.Timeout)
	}
	if len(dev.AllowedTools) != 2 {
		t.Errorf("expected 2 allowed tools, got %d", len(dev.AllowedTools))
	}

	if catalog.Has(models.RoleAuditor) {
		t.Error("auditor was not configured, Has should be false")
	}
}

func TestLoadCatalogUnknownRole(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roles.yaml")
	content := "roles:\n  tester:\n    system_prompt: nope\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write roles file: %v", err)
	}

	if _, err := LoadCatalog(path); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestDefaultCatalogCoversAllRoles(t *testing.T) {
	catalog := DefaultCatalog()

	for _, role := range []models.Role{models.RoleManager, models.RoleDeveloper, models.RoleAuditor} {
		if !catalog.Has(role) {
			t.Errorf("default catalog missing role %q", role)
		}
	}

	roles := catalog.Roles()
	if len(roles) != 3 {
		t.Errorf("expected 3 roles, got %d", len(roles))
	}
}
