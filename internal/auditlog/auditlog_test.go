package auditlog

import (
	"testing"
	"time"
)

// testClock returns a clock advancing by one second per call.
func testClock() func() time.Time {
	t := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	m.now = testClock()
	return m
}

func TestEmptyLogIsComplete(t *testing.T) {
	m := newTestManager(t)

	complete, pending := m.IsComplete()
	if !complete {
		t.Error("empty log should be complete")
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending paths, got %v", pending)
	}
}

func TestCompletionInvariantRoundTrip(t *testing.T) {
	m := newTestManager(t)

	m.RecordEdit("a.go")
	if complete, _ := m.IsComplete(); complete {
		t.Error("edited but unaudited file should be incomplete")
	}

	m.RecordAudit([]string{"a.go"})
	if complete, pending := m.IsComplete(); !complete {
		t.Errorf("audit after edit should complete, pending: %v", pending)
	}

	// A later edit reopens the requirement.
	m.RecordEdit("a.go")
	complete, pending := m.IsComplete()
	if complete {
		t.Error("re-edit after audit should reopen")
	}
	if len(pending) != 1 || pending[0] != "a.go" {
		t.Errorf("expected pending [a.go], got %v", pending)
	}
}

func TestAuditAtSameInstantIsStale(t *testing.T) {
	m := newTestManager(t)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m.RecordEdit("b.go")
	m.RecordAudit([]string{"b.go"})

	if complete, _ := m.IsComplete(); complete {
		t.Error("audit timestamp equal to edit timestamp must not count as complete")
	}
}

func TestIsCompleteIdempotent(t *testing.T) {
	m := newTestManager(t)
	m.RecordEdit("a.go")
	m.RecordEdit("b.go")
	m.RecordAudit([]string{"a.go"})

	c1, p1 := m.IsComplete()
	c2, p2 := m.IsComplete()

	if c1 != c2 {
		t.Errorf("IsComplete not idempotent: %v vs %v", c1, c2)
	}
	if len(p1) != len(p2) {
		t.Fatalf("pending lists differ: %v vs %v", p1, p2)
	}
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Errorf("pending lists differ at %d: %q vs %q", i, p1[i], p2[i])
		}
	}
}

func TestLogsPersistAcrossManagers(t *testing.T) {
	dir := t.TempDir()

	m1, err := NewManager(dir)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	m1.now = testClock()
	m1.RecordEdit("x.go")

	m2, err := NewManager(dir)
	if err != nil {
		t.Fatalf("reopen manager: %v", err)
	}
	if m2.EditCount() != 1 {
		t.Errorf("expected persisted edit to load, got %d entries", m2.EditCount())
	}
	if complete, _ := m2.IsComplete(); complete {
		t.Error("reloaded unaudited edit should keep run incomplete")
	}
}

func TestTimestampLexicographicOrder(t *testing.T) {
	earlier := Timestamp(time.Date(2025, 6, 1, 9, 59, 59, 999999999, time.UTC))
	later := Timestamp(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	if !(earlier < later) {
		t.Errorf("timestamps must sort lexicographically: %q vs %q", earlier, later)
	}
	if len(earlier) != len(later) {
		t.Errorf("timestamps must be fixed width: %d vs %d", len(earlier), len(later))
	}
}
