package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ouroagent/ouro/pkg/models"
)

// RoleSpec describes one agent role from the catalog file.
type RoleSpec struct {
	// SystemPrompt is the base system prompt for agents of this role.
	SystemPrompt string `yaml:"system_prompt"`
	// Model overrides the default model for this role, if set.
	Model string `yaml:"model,omitempty"`
	// Temperature is the sampling temperature for this role.
	Temperature float64 `yaml:"temperature,omitempty"`
	// MaxTokens bounds the response length, 0 for the provider default.
	MaxTokens int `yaml:"max_tokens,omitempty"`
	// Timeout overrides the base per-attempt timeout for this role, if set.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// AllowedTools names the tools agents of this role may invoke.
	// A nil list means the role's default tool set.
	AllowedTools []string `yaml:"allowed_tools,omitempty"`
	// MaxIterations bounds the tool loop for this role.
	MaxIterations int `yaml:"max_iterations,omitempty"`
}

// Catalog is the set of configured agent roles.
type Catalog struct {
	roles map[models.Role]RoleSpec
}

// catalogFile is the YAML shape of the roles file.
type catalogFile struct {
	Roles map[string]RoleSpec `yaml:"roles"`
}

// LoadCatalog reads the role catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roles file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse roles file: %w", err)
	}
	if len(file.Roles) == 0 {
		return nil, fmt.Errorf("roles file %s defines no roles", path)
	}

	roles := make(map[models.Role]RoleSpec, len(file.Roles))
	for name, spec := range file.Roles {
		role := models.Role(name)
		if !role.Valid() {
			return nil, fmt.Errorf("roles file %s names unknown role %q", path, name)
		}
		roles[role] = spec
	}

	return &Catalog{roles: roles}, nil
}

// DefaultCatalog returns the built-in role catalog used when no roles file
// is configured.
func DefaultCatalog() *Catalog {
	return &Catalog{roles: map[models.Role]RoleSpec{
		models.RoleManager: {
			SystemPrompt:  defaultManagerPrompt,
			Temperature:   0.7,
			MaxIterations: 3,
		},
		models.RoleDeveloper: {
			SystemPrompt:  defaultDeveloperPrompt,
			Temperature:   0.7,
			MaxIterations: 6,
		},
		models.RoleAuditor: {
			SystemPrompt:  defaultAuditorPrompt,
			Temperature:   0.3,
			MaxIterations: 5,
		},
	}}
}

// Get returns the spec for a role.
func (c *Catalog) Get(role models.Role) (RoleSpec, bool) {
	spec, ok := c.roles[role]
	return spec, ok
}

// Has returns true if the catalog defines the role.
func (c *Catalog) Has(role models.Role) bool {
	_, ok := c.roles[role]
	return ok
}

// Roles returns the configured role names in sorted order.
func (c *Catalog) Roles() []models.Role {
	roles := make([]models.Role, 0, len(c.roles))
	for role := range c.roles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

const defaultManagerPrompt = `You are a project manager coordinating a team of developer and auditor agents.
Break the user's request into concrete tasks and assign each one with the task
assignment tools. Give every task a wave number: tasks in the same wave run in
parallel, later waves see the output of earlier waves. Always assign at least
one auditor task in the final wave to review the developers' work.`

const defaultDeveloperPrompt = `You are a software developer. Complete the assigned task by creating and
editing files in the workspace with the provided tools. Work incrementally and
report a blocker callback if the task cannot be completed as described.`

const defaultAuditorPrompt = `You are a code auditor. Review the files named in your task using the provided
tools, then record every file you reviewed with audit_files. Report problems
that prevent acceptance as blocker callbacks. Conclude with an explicit PASS
or FAIL verdict.`
