package state

import (
	"errors"
	"testing"
	"time"

	"github.com/gagarinlg/zeiterfassung-terminal/internal/apiclient"
)

type fakeBuffer struct {
	pushed  []string
	pending uint32
	pushErr error
}

func (b *fakeBuffer) Push(tag, terminal string) (int64, error) {
	if b.pushErr != nil {
		return 0, b.pushErr
	}
	b.pushed = append(b.pushed, tag)
	b.pending++
	return int64(len(b.pushed)), nil
}

func (b *fakeBuffer) PendingCount() (uint32, error) { return b.pending, nil }

type fakeCue struct {
	successes int
	errors    int
}

func (c *fakeCue) PlaySuccess() { c.successes++ }
func (c *fakeCue) PlayError()   { c.errors++ }

func newTestMachine(buffer *fakeBuffer, cue *fakeCue, now time.Time) *Machine {
	cfg := Config{
		TerminalID:          "terminal-01",
		IdleTimeoutSeconds:  8,
		ErrorTimeoutSeconds: 5,
	}
	clock := func() time.Time { return now }
	return New(cfg, nil, buffer, cue, clock, nil)
}

func TestRfidScannedWhileIdleEntersLoading(t *testing.T) {
	buf := &fakeBuffer{}
	cue := &fakeCue{}
	m := newTestMachine(buf, cue, time.Now())

	m.Handle(NewRfidScanned("TAG001"))

	if m.Current().Kind() != KindLoading {
		t.Fatalf("expected Loading, got %v", m.Current().Kind())
	}
	if m.Current().LoadingTag() != "TAG001" {
		t.Errorf("unexpected loading tag: %s", m.Current().LoadingTag())
	}
}

func TestRfidScannedWhileNotIdleIsDropped(t *testing.T) {
	buf := &fakeBuffer{}
	cue := &fakeCue{}
	m := newTestMachine(buf, cue, time.Now())
	m.Handle(NewRfidScanned("TAG001"))

	m.Handle(NewRfidScanned("TAG002"))

	if m.Current().LoadingTag() != "TAG001" {
		t.Fatalf("second scan should have been dropped, loading tag is %s", m.Current().LoadingTag())
	}
}

func TestScanResultSuccessClockIn(t *testing.T) {
	buf := &fakeBuffer{}
	cue := &fakeCue{}
	m := newTestMachine(buf, cue, time.Now())
	m.Handle(NewRfidScanned("TAG001"))

	resp := &apiclient.ClockResponse{
		Employee:  apiclient.EmployeeInfo{FirstName: "Ana", LastName: "Muster"},
		EntryType: apiclient.EntryClockIn,
		Timestamp: time.Now(),
	}
	m.Handle(NewScanResultOK(resp))

	if m.Current().Kind() != KindClockInConfirm {
		t.Fatalf("expected ClockInConfirm, got %v", m.Current().Kind())
	}
	if m.Current().EmployeeName() != "Ana Muster" {
		t.Errorf("unexpected employee name: %s", m.Current().EmployeeName())
	}
	if cue.successes != 1 {
		t.Errorf("expected success cue to play once, got %d", cue.successes)
	}
}

func TestScanResultSuccessCarriesPhotoURL(t *testing.T) {
	buf := &fakeBuffer{}
	cue := &fakeCue{}
	m := newTestMachine(buf, cue, time.Now())
	m.Handle(NewRfidScanned("TAG001"))

	photo := "https://example.com/ana.jpg"
	resp := &apiclient.ClockResponse{
		Employee:  apiclient.EmployeeInfo{FirstName: "Ana", LastName: "Muster", PhotoURL: &photo},
		EntryType: apiclient.EntryClockIn,
		Timestamp: time.Now(),
	}
	m.Handle(NewScanResultOK(resp))

	if m.Current().PhotoURL() != photo {
		t.Errorf("expected photo URL %q, got %q", photo, m.Current().PhotoURL())
	}
}

func TestScanResultSuccessWithoutPhotoURLIsEmpty(t *testing.T) {
	buf := &fakeBuffer{}
	cue := &fakeCue{}
	m := newTestMachine(buf, cue, time.Now())
	m.Handle(NewRfidScanned("TAG001"))

	resp := &apiclient.ClockResponse{
		Employee:  apiclient.EmployeeInfo{FirstName: "Ana", LastName: "Muster"},
		EntryType: apiclient.EntryClockOut,
		Timestamp: time.Now(),
	}
	m.Handle(NewScanResultOK(resp))

	if m.Current().PhotoURL() != "" {
		t.Errorf("expected empty photo URL when server omits it, got %q", m.Current().PhotoURL())
	}
}

func TestScanResultSuccessClockOut(t *testing.T) {
	buf := &fakeBuffer{}
	cue := &fakeCue{}
	m := newTestMachine(buf, cue, time.Now())
	m.Handle(NewRfidScanned("TAG001"))

	resp := &apiclient.ClockResponse{
		Employee:              apiclient.EmployeeInfo{FirstName: "Ana", LastName: "Muster"},
		EntryType:             apiclient.EntryClockOut,
		Timestamp:             time.Now(),
		TodayWorkMinutes:      480,
		TodayBreakMinutes:     30,
		OvertimeMinutes:       15,
		RemainingVacationDays: 12.5,
	}
	m.Handle(NewScanResultOK(resp))

	if m.Current().Kind() != KindClockOutConfirm {
		t.Fatalf("expected ClockOutConfirm, got %v", m.Current().Kind())
	}
	if m.Current().WorkedHours() != 8.0 {
		t.Errorf("expected 8 worked hours, got %v", m.Current().WorkedHours())
	}
}

func TestScanResultNotFoundShowsBadgeError(t *testing.T) {
	buf := &fakeBuffer{}
	cue := &fakeCue{}
	m := newTestMachine(buf, cue, time.Now())
	m.Handle(NewRfidScanned("UNKNOWN"))

	m.Handle(NewScanResultErr(apiclient.NotFoundError{Message: "not registered"}))

	if m.Current().Kind() != KindError {
		t.Fatalf("expected Error, got %v", m.Current().Kind())
	}
	if m.Current().ErrorCategory() != ErrorBadgeNotRecognized {
		t.Errorf("expected ErrorBadgeNotRecognized, got %v", m.Current().ErrorCategory())
	}
	if cue.errors != 1 {
		t.Errorf("expected error cue to play once, got %d", cue.errors)
	}
}

func TestScanResultConflictShowsOtherError(t *testing.T) {
	buf := &fakeBuffer{}
	cue := &fakeCue{}
	m := newTestMachine(buf, cue, time.Now())
	m.Handle(NewRfidScanned("TAG001"))

	m.Handle(NewScanResultErr(apiclient.Conflict{}))

	if m.Current().Kind() != KindError || m.Current().ErrorCategory() != ErrorOther {
		t.Fatalf("expected Error/Other, got %v/%v", m.Current().Kind(), m.Current().ErrorCategory())
	}
}

func TestScanResultNetworkErrorAcceptsOffline(t *testing.T) {
	buf := &fakeBuffer{}
	cue := &fakeCue{}
	m := newTestMachine(buf, cue, time.Now())
	m.Handle(NewRfidScanned("TAG001"))

	m.Handle(NewScanResultErr(apiclient.NetworkError{Message: "dial tcp: connection refused"}))

	if m.Current().Kind() != KindOfflineConfirm {
		t.Fatalf("expected OfflineConfirm, got %v", m.Current().Kind())
	}
	if len(buf.pushed) != 1 || buf.pushed[0] != "TAG001" {
		t.Errorf("expected tag to be pushed to buffer, got %v", buf.pushed)
	}
	if cue.successes != 1 {
		t.Errorf("expected optimistic success cue, got %d", cue.successes)
	}
	if m.IsOnline() {
		t.Error("expected machine to mark itself offline")
	}
}

func TestScanResultTimeoutAcceptsOffline(t *testing.T) {
	buf := &fakeBuffer{}
	cue := &fakeCue{}
	m := newTestMachine(buf, cue, time.Now())
	m.Handle(NewRfidScanned("TAG001"))

	m.Handle(NewScanResultErr(apiclient.Timeout{}))

	if m.Current().Kind() != KindOfflineConfirm {
		t.Fatalf("expected OfflineConfirm, got %v", m.Current().Kind())
	}
}

func TestScanResultOtherErrorShowsServerUnavailable(t *testing.T) {
	buf := &fakeBuffer{}
	cue := &fakeCue{}
	m := newTestMachine(buf, cue, time.Now())
	m.Handle(NewRfidScanned("TAG001"))

	m.Handle(NewScanResultErr(apiclient.Unauthorized{}))

	if m.Current().Kind() != KindError || m.Current().ErrorCategory() != ErrorServerUnavailable {
		t.Fatalf("expected Error/ServerUnavailable, got %v/%v", m.Current().Kind(), m.Current().ErrorCategory())
	}
}

func TestLateScanResultIsDiscarded(t *testing.T) {
	buf := &fakeBuffer{}
	cue := &fakeCue{}
	m := newTestMachine(buf, cue, time.Now())
	// No scan in flight: machine is Idle.

	m.Handle(NewScanResultOK(&apiclient.ClockResponse{EntryType: apiclient.EntryClockIn}))

	if m.Current().Kind() != KindIdle {
		t.Fatalf("expected Idle to be unaffected by a late ScanResult, got %v", m.Current().Kind())
	}
	if cue.successes != 0 {
		t.Errorf("expected no cue for a discarded late result, got %d", cue.successes)
	}
}

func TestTickCountsDownAndReturnsToIdle(t *testing.T) {
	buf := &fakeBuffer{}
	cue := &fakeCue{}
	now := time.Now()
	m := newTestMachine(buf, cue, now)
	m.current = NewClockInConfirm("Ana Muster", "", "08:00:00", 2)

	m.Handle(NewTick())
	if m.Current().Kind() != KindClockInConfirm || m.Current().SecondsRemaining() != 1 {
		t.Fatalf("expected countdown to 1, got kind=%v remaining=%d", m.Current().Kind(), m.Current().SecondsRemaining())
	}

	m.Handle(NewTick())
	if m.Current().Kind() != KindIdle {
		t.Fatalf("expected Idle after countdown reaches zero, got %v", m.Current().Kind())
	}
}

func TestTickDoesNotAdvanceLoading(t *testing.T) {
	buf := &fakeBuffer{}
	cue := &fakeCue{}
	m := newTestMachine(buf, cue, time.Now())
	m.Handle(NewRfidScanned("TAG001"))

	m.Handle(NewTick())

	if m.Current().Kind() != KindLoading {
		t.Fatalf("expected Loading to be unaffected by Tick, got %v", m.Current().Kind())
	}
}

func TestRepeatScanWhileErrorIsDropped(t *testing.T) {
	buf := &fakeBuffer{}
	cue := &fakeCue{}
	now := time.Now()
	m := newTestMachine(buf, cue, now)

	m.Handle(NewRfidScanned("TAG001"))
	m.Handle(NewScanResultErr(apiclient.NotFoundError{Message: "x"}))
	if m.Current().Kind() != KindError {
		t.Fatalf("setup: expected Error state, got %v", m.Current().Kind())
	}

	// Error state isn't Idle, so a repeat scan is dropped outright — this is
	// the invariant that makes a second debounce layer here unnecessary
	// (debouncing is handled once, in rfid.Source).
	m.Handle(NewRfidScanned("TAG001"))
	if m.Current().Kind() != KindError {
		t.Fatalf("expected scan while Error to be dropped, got %v", m.Current().Kind())
	}
}

func TestSyncCompleteRefreshesPendingCountWithoutChangingScreen(t *testing.T) {
	buf := &fakeBuffer{}
	cue := &fakeCue{}
	m := newTestMachine(buf, cue, time.Now())
	m.Handle(NewRfidScanned("TAG001"))
	m.current = NewIdle(time.Now())
	buf.pending = 3

	m.Handle(NewSyncComplete(2))

	if m.Current().Kind() != KindIdle {
		t.Fatalf("SyncComplete must not change the screen, got %v", m.Current().Kind())
	}
	if m.PendingCount() != 3 {
		t.Errorf("expected pending count to refresh to 3, got %d", m.PendingCount())
	}
}

func TestSyncCompleteMarksOnlineWhenBufferDrained(t *testing.T) {
	buf := &fakeBuffer{pending: 0}
	cue := &fakeCue{}
	m := newTestMachine(buf, cue, time.Now())
	m.isOnline = false

	m.Handle(NewSyncComplete(1))

	if !m.IsOnline() {
		t.Error("expected machine to mark itself online once the buffer is drained")
	}
}

func TestHandleScanResultWrapsUnknownErrorMessage(t *testing.T) {
	buf := &fakeBuffer{}
	cue := &fakeCue{}
	m := newTestMachine(buf, cue, time.Now())
	m.Handle(NewRfidScanned("TAG001"))

	m.Handle(NewScanResultErr(errors.New("boom")))

	if m.Current().Kind() != KindError || m.Current().ErrorCategory() != ErrorServerUnavailable {
		t.Fatalf("expected generic errors to classify as ServerUnavailable, got %v/%v", m.Current().Kind(), m.Current().ErrorCategory())
	}
	if m.Current().ErrorMessage() == "" {
		t.Error("expected a non-empty error message")
	}
}
