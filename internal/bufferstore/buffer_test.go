package bufferstore

import "testing"

func makeBuffer(t *testing.T, maxSize uint32) *Buffer {
	t.Helper()
	b, err := Open(":memory:", maxSize)
	if err != nil {
		t.Fatalf("failed to create in-memory buffer: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestPushAndPendingCount(t *testing.T) {
	buf := makeBuffer(t, 10)

	count, err := buf.PendingCount()
	if err != nil {
		t.Fatalf("PendingCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 pending, got %d", count)
	}

	if _, err := buf.Push("TAG001", "terminal-1"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, err := buf.Push("TAG002", "terminal-1"); err != nil {
		t.Fatalf("Push: %v", err)
	}

	count, err = buf.PendingCount()
	if err != nil {
		t.Fatalf("PendingCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 pending, got %d", count)
	}
}

func TestGetPendingReturnsUnsyncedEventsInOrder(t *testing.T) {
	buf := makeBuffer(t, 10)
	buf.Push("TAG001", "terminal-1")
	buf.Push("TAG002", "terminal-2")

	pending, err := buf.GetPending()
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending events, got %d", len(pending))
	}
	if pending[0].Tag != "TAG001" {
		t.Errorf("expected first event TAG001, got %s", pending[0].Tag)
	}
	if pending[1].Tag != "TAG002" {
		t.Errorf("expected second event TAG002, got %s", pending[1].Tag)
	}
	if pending[0].Synced {
		t.Error("expected pending event to be unsynced")
	}
}

func TestMarkSyncedRemovesFromPending(t *testing.T) {
	buf := makeBuffer(t, 10)
	id, err := buf.Push("TAG001", "terminal-1")
	if err != nil {
		t.Fatalf("Push: %v", err)
	}

	count, _ := buf.PendingCount()
	if count != 1 {
		t.Fatalf("expected 1 pending, got %d", count)
	}

	if err := buf.MarkSynced(id); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	count, _ = buf.PendingCount()
	if count != 0 {
		t.Fatalf("expected 0 pending after sync, got %d", count)
	}

	pending, _ := buf.GetPending()
	if len(pending) != 0 {
		t.Fatalf("expected no pending events, got %d", len(pending))
	}
}

func TestMarkSyncedIsIdempotent(t *testing.T) {
	buf := makeBuffer(t, 10)
	id, _ := buf.Push("TAG001", "terminal-1")

	if err := buf.MarkSynced(id); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if err := buf.MarkSynced(id); err != nil {
		t.Fatalf("second MarkSynced should not error: %v", err)
	}
}

func TestMaxSizeEnforcement(t *testing.T) {
	buf := makeBuffer(t, 3)

	buf.Push("TAG001", "terminal-1")
	buf.Push("TAG002", "terminal-1")
	buf.Push("TAG003", "terminal-1")
	// This should drop TAG001 (oldest).
	buf.Push("TAG004", "terminal-1")

	count, _ := buf.PendingCount()
	if count != 3 {
		t.Fatalf("expected 3 pending after overflow, got %d", count)
	}

	pending, _ := buf.GetPending()
	tags := make(map[string]bool)
	for _, e := range pending {
		tags[e.Tag] = true
	}
	if tags["TAG001"] {
		t.Error("oldest event TAG001 should have been dropped")
	}
	if !tags["TAG004"] {
		t.Error("newest event TAG004 should be retained")
	}

	expected := []string{"TAG002", "TAG003", "TAG004"}
	for i, tag := range expected {
		if pending[i].Tag != tag {
			t.Errorf("pending[%d] = %s, want %s", i, pending[i].Tag, tag)
		}
	}
}

func TestPushReturnsMonotonicRowID(t *testing.T) {
	buf := makeBuffer(t, 10)
	id1, err := buf.Push("TAG001", "terminal-1")
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	id2, err := buf.Push("TAG002", "terminal-1")
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if id2 <= id1 {
		t.Errorf("expected id2 (%d) > id1 (%d)", id2, id1)
	}
}
