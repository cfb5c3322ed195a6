// Package auditlog tracks which workspace files were edited and which were
// reviewed. The unit of work is complete only when every edited file carries
// an audit with a strictly later timestamp.
package auditlog

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// TimestampLayout is the fixed-width, zero-padded UTC format used for log
// entries. All tokens share this layout so that lexicographic comparison
// matches chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// Timestamp formats an instant in the fixed-width audit log layout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Manager tracks the edit log and audit log for one coordinator run.
// Both logs map a file path to the timestamp of the most recent action and
// are persisted as JSON beside the session data.
type Manager struct {
	editPath  string
	auditPath string

	mu     sync.Mutex
	edits  map[string]string
	audits map[string]string

	now func() time.Time
}

// NewManager creates a manager persisting its logs under dir, loading any
// logs a previous run left behind.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}

	m := &Manager{
		editPath:  filepath.Join(dir, "edit_log.json"),
		auditPath: filepath.Join(dir, "audit_log.json"),
		edits:     make(map[string]string),
		audits:    make(map[string]string),
		now:       time.Now,
	}

	if err := loadLog(m.editPath, m.edits); err != nil {
		log.Printf("[auditlog] failed to load edit log: %v", err)
	}
	if err := loadLog(m.auditPath, m.audits); err != nil {
		log.Printf("[auditlog] failed to load audit log: %v", err)
	}

	return m, nil
}

// RecordEdit records that a file was written, edited, or deleted.
// Editing a file after it was audited reopens the audit requirement.
func (m *Manager) RecordEdit(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := Timestamp(m.now())
	m.edits[path] = ts
	m.saveLocked(m.editPath, m.edits)
	log.Printf("[auditlog] recorded edit for %s at %s", path, ts)
}

// RecordAudit records that the named files were reviewed.
func (m *Manager) RecordAudit(paths []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := Timestamp(m.now())
	for _, path := range paths {
		m.audits[path] = ts
		log.Printf("[auditlog] recorded audit for %s at %s", path, ts)
	}
	m.saveLocked(m.auditPath, m.audits)
}

// IsComplete reports whether every edited file has an audit with a strictly
// later timestamp, along with the paths that are missing or stale.
func (m *Manager) IsComplete() (bool, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pending []string
	for path, editTime := range m.edits {
		auditTime, ok := m.audits[path]
		if !ok || auditTime <= editTime {
			pending = append(pending, path)
		}
	}
	sort.Strings(pending)
	return len(pending) == 0, pending
}

// HasEdit reports whether a path has an edit record.
func (m *Manager) HasEdit(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.edits[path]
	return ok
}

// EditedPaths returns the sorted paths in the edit log.
func (m *Manager) EditedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths := make([]string, 0, len(m.edits))
	for path := range m.edits {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// EditCount returns the number of files in the edit log.
func (m *Manager) EditCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.edits)
}

// AuditCount returns the number of files in the audit log.
func (m *Manager) AuditCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.audits)
}

// saveLocked persists one log. Caller must hold m.mu. Save failures are
// logged, not propagated: losing persistence must not fail the task that
// triggered the record.
func (m *Manager) saveLocked(path string, entries map[string]string) {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		log.Printf("[auditlog] failed to marshal %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("[auditlog] failed to save %s: %v", path, err)
	}
}

// loadLog reads a persisted log into entries if the file exists.
func loadLog(path string, entries map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &entries)
}
