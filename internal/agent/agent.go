// Package agent provides agent instances, their tool loop, and the retrying
// task runner that drives one task through an instance.
package agent

import (
	"github.com/ouroagent/ouro/internal/config"
	"github.com/ouroagent/ouro/pkg/models"
)

// Instance is one named agent of a role, e.g. "developer02".
type Instance struct {
	// Name is the unique instance name, role plus a zero-padded counter.
	Name string
	// Role is the instance's role.
	Role models.Role
	// Spec is the role configuration the instance runs under.
	Spec config.RoleSpec
}

// NewInstance creates an agent instance for a role.
func NewInstance(name string, role models.Role, spec config.RoleSpec) *Instance {
	return &Instance{Name: name, Role: role, Spec: spec}
}

// Tools returns the tool names this instance may invoke.
func (a *Instance) Tools() []string {
	if len(a.Spec.AllowedTools) > 0 {
		return a.Spec.AllowedTools
	}
	return DefaultToolsForRole(a.Role)
}

// SystemPrompt assembles the full system prompt: the role's base prompt plus
// the tool catalog, and for managers the assignment call forms.
func (a *Instance) SystemPrompt() string {
	prompt := a.Spec.SystemPrompt
	if a.Role == models.RoleManager {
		prompt += ManagerAssignmentInstructions
	}
	prompt += toolInstructions(a.Tools())
	return prompt
}
