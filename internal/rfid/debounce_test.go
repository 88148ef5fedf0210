package rfid

import (
	"testing"
	"time"
)

func TestDebounceSuppressesSameTagWithinWindow(t *testing.T) {
	d := newDebouncer(500 * time.Millisecond)
	base := time.Now()

	if !d.accept("TAGX", base) {
		t.Fatal("first scan should be accepted")
	}
	if d.accept("TAGX", base.Add(200*time.Millisecond)) {
		t.Fatal("duplicate scan within debounce window should be suppressed")
	}
}

func TestDebounceAllowsSameTagAfterWindow(t *testing.T) {
	d := newDebouncer(500 * time.Millisecond)
	base := time.Now()

	d.accept("TAGX", base)
	if !d.accept("TAGX", base.Add(600*time.Millisecond)) {
		t.Fatal("scan after debounce window should be accepted")
	}
}

func TestDebounceNeverSuppressesDifferentTags(t *testing.T) {
	d := newDebouncer(500 * time.Millisecond)
	base := time.Now()

	if !d.accept("TAGA", base) {
		t.Fatal("first tag should be accepted")
	}
	if !d.accept("TAGB", base.Add(10*time.Millisecond)) {
		t.Fatal("a different tag should never be debounced against the last one")
	}
}
