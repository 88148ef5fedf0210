package state

import (
	"fmt"
	"log"
	"time"

	"github.com/gagarinlg/zeiterfassung-terminal/internal/apiclient"
)

// EventBuffer is the subset of bufferstore.Buffer the Terminal State Machine
// needs: persisting a scan accepted while offline.
type EventBuffer interface {
	Push(tag, terminal string) (int64, error)
	PendingCount() (uint32, error)
}

// Scanner is the subset of apiclient.Client the machine dispatches against.
type Scanner interface {
	Scan(tag, terminal string) (*apiclient.ClockResponse, error)
}

// CuePlayer is the audio feedback layer (out of scope beyond this
// interface, §1): fire-and-forget success/error cues.
type CuePlayer interface {
	PlaySuccess()
	PlayError()
}

// Config configures timeouts and identity for the Machine. Debouncing is
// handled entirely by the rfid.Source implementation (§9 Design Notes:
// single debounce layer) — the machine itself only ever sees already
// debounced RfidScanned messages, so it carries no debounce window of
// its own.
type Config struct {
	TerminalID          string
	IdleTimeoutSeconds  int
	ErrorTimeoutSeconds int
}

// Machine is the central coordinator (component C5). It exclusively owns
// the current State and the pending-count integer (§3 Ownership); every
// other component either produces Msg values into it or is invoked by it.
// Machine is not safe for concurrent use — it is driven by a single
// event-loop goroutine that owns Dispatch (§5).
type Machine struct {
	cfg      Config
	scanner  Scanner
	buffer   EventBuffer
	audio    CuePlayer
	clock    Clock
	dispatch func(tag string) // issues an asynchronous scan; production wiring posts a ScanResult back

	current      State
	pendingCount int
	isOnline     bool
}

// New constructs a Machine in the Idle state.
func New(cfg Config, scanner Scanner, buffer EventBuffer, audio CuePlayer, clock Clock, dispatch func(tag string)) *Machine {
	if clock == nil {
		clock = time.Now
	}
	return &Machine{
		cfg:      cfg,
		scanner:  scanner,
		buffer:   buffer,
		audio:    audio,
		clock:    clock,
		dispatch: dispatch,
		current:  NewIdle(clock()),
		isOnline: true,
	}
}

// Current returns the currently displayed state.
func (m *Machine) Current() State { return m.current }

// PendingCount returns the last-known count of unsynced buffered events.
func (m *Machine) PendingCount() int { return m.pendingCount }

// IsOnline reports whether the terminal believes the server is reachable.
func (m *Machine) IsOnline() bool { return m.isOnline }

// Handle applies one message to the machine, per the transition table in
// §4.5. It is the single mutator of Machine.current.
func (m *Machine) Handle(msg Msg) {
	switch msg.kind {
	case msgTick:
		m.handleTick()
	case msgSyncTick:
		// The Sync Worker dispatch itself lives in the syncworker package;
		// the machine only needs to know a pass completed (SyncComplete).
		// SyncTick is a no-op here beyond being a documented message kind —
		// kept so callers can route it through the same Handle entrypoint.
	case msgRfidScanned:
		m.handleRfidScanned(msg.tag)
	case msgScanResult:
		m.handleScanResult(msg.outcome)
	case msgSyncComplete:
		m.handleSyncComplete(msg.syncedCount)
	}
}

func (m *Machine) handleTick() {
	now := m.clock()
	switch m.current.kind {
	case KindIdle:
		m.current = NewIdle(now)
	case KindLoading:
		// No countdown while a scan is in flight.
	default:
		remaining := m.current.secondsRemaining - 1
		if remaining <= 0 {
			m.current = NewIdle(now)
			return
		}
		m.current.secondsRemaining = remaining
	}
}

func (m *Machine) handleRfidScanned(tag string) {
	if m.current.kind != KindIdle {
		// An in-progress transaction or confirmation is showing: drop the scan.
		return
	}

	m.current = NewLoading(tag)
	if m.dispatch != nil {
		go m.dispatch(tag)
	}
}

func (m *Machine) handleScanResult(outcome scanOutcome) {
	if m.current.kind != KindLoading {
		// Late response: the confirmation/error already expired, or a new
		// scan was never accepted for this outcome. Discard (invariant 3).
		log.Println("discarding late ScanResult: machine is not in Loading")
		return
	}
	tag := m.current.loadingTag

	if outcome.err == nil {
		m.handleScanSuccess(outcome.response)
		return
	}

	switch err := outcome.err.(type) {
	case apiclient.NetworkError, apiclient.Timeout:
		m.handleOfflineAccept(tag)
	case apiclient.NotFoundError:
		m.current = NewError(ErrorBadgeNotRecognized, "Ausweis nicht registriert", m.cfg.ErrorTimeoutSeconds)
		m.audio.PlayError()
	case apiclient.Conflict:
		m.current = NewError(ErrorOther, "Bitte erneut scannen", m.cfg.ErrorTimeoutSeconds)
		m.audio.PlayError()
	default:
		m.current = NewError(ErrorServerUnavailable, fmt.Sprintf("%v", err), m.cfg.ErrorTimeoutSeconds)
		m.audio.PlayError()
	}
}

func (m *Machine) handleScanSuccess(resp *apiclient.ClockResponse) {
	formattedTS := resp.Timestamp.Format("15:04:05")

	switch resp.EntryType {
	case apiclient.EntryClockIn:
		m.current = NewClockInConfirm(employeeDisplayName(resp.Employee), employeePhotoURL(resp.Employee), formattedTS, m.cfg.IdleTimeoutSeconds)
	default: // apiclient.EntryClockOut
		m.current = NewClockOutConfirm(ClockOutDetails{
			EmployeeName:          employeeDisplayName(resp.Employee),
			PhotoURL:              employeePhotoURL(resp.Employee),
			FormattedTimestamp:    formattedTS,
			WorkedHours:           float32(resp.TodayWorkMinutes) / 60.0,
			BreakMinutes:          resp.TodayBreakMinutes,
			OvertimeMinutes:       resp.OvertimeMinutes,
			RemainingVacationDays: resp.RemainingVacationDays,
			SecondsRemaining:      m.cfg.IdleTimeoutSeconds,
		})
	}
	m.audio.PlaySuccess()
}

// handleOfflineAccept persists the scan and shows OfflineConfirm. The
// success cue plays even though the scan was only buffered, not confirmed
// — this optimistic feedback is intentional (§9 Design Notes) and must be
// preserved.
func (m *Machine) handleOfflineAccept(tag string) {
	now := m.clock()
	if _, err := m.buffer.Push(tag, m.cfg.TerminalID); err != nil {
		log.Printf("failed to persist offline scan for tag %s: %v", tag, err)
	}
	if count, err := m.buffer.PendingCount(); err == nil {
		m.pendingCount = int(count)
	}
	m.isOnline = false

	m.audio.PlaySuccess()
	m.current = NewOfflineConfirm(now.Format("15:04:05"), m.cfg.IdleTimeoutSeconds)
}

func (m *Machine) handleSyncComplete(count int) {
	if pc, err := m.buffer.PendingCount(); err == nil {
		m.pendingCount = int(pc)
		if m.pendingCount == 0 {
			m.isOnline = true
		}
	}
	_ = count // informational only; the screen never changes here (§4.5 rule 3)
}

func employeeDisplayName(e apiclient.EmployeeInfo) string {
	return e.FirstName + " " + e.LastName
}

// employeePhotoURL returns the employee's photo URL, or "" when the server
// didn't supply one (§3 Clock Response: "optional photo URL").
func employeePhotoURL(e apiclient.EmployeeInfo) string {
	if e.PhotoURL == nil {
		return ""
	}
	return *e.PhotoURL
}
