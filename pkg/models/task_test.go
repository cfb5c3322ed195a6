package models

import "testing"

func TestRoleValid(t *testing.T) {
	valid := []Role{RoleManager, RoleDeveloper, RoleAuditor}
	for _, r := range valid {
		if !r.Valid() {
			t.Errorf("expected role %q to be valid", r)
		}
	}

	invalid := []Role{"tester", "", "Manager"}
	for _, r := range invalid {
		if r.Valid() {
			t.Errorf("expected role %q to be invalid", r)
		}
	}
}

func TestCallbackKindValid(t *testing.T) {
	valid := []CallbackKind{CallbackQuery, CallbackBlocker, CallbackClarification, CallbackError}
	for _, k := range valid {
		if !k.Valid() {
			t.Errorf("expected kind %q to be valid", k)
		}
	}

	if CallbackKind("warning").Valid() {
		t.Error("expected unknown kind to be invalid")
	}
}

func TestTaskResultFailed(t *testing.T) {
	r := TaskResult{Status: TaskStatusCompleted}
	if r.Failed() {
		t.Error("completed result should not report failed")
	}

	r.Status = TaskStatusFailed
	if !r.Failed() {
		t.Error("failed result should report failed")
	}
}
