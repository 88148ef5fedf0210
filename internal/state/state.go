// Package state implements the Terminal State Machine (component C5): the
// central coordinator that consumes scans, ticks, and sync results, and
// drives the screen state.
package state

import "time"

// Kind discriminates the State tagged union (§3). Exactly one variant is
// active at any moment (invariant 1).
type Kind int

const (
	KindIdle Kind = iota
	KindLoading
	KindClockInConfirm
	KindClockOutConfirm
	KindOfflineConfirm
	KindError
)

// String renders a Kind as a stable identifier, used for logging and for
// the monitor feed rather than for end-user display.
func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "Idle"
	case KindLoading:
		return "Loading"
	case KindClockInConfirm:
		return "ClockInConfirm"
	case KindClockOutConfirm:
		return "ClockOutConfirm"
	case KindOfflineConfirm:
		return "OfflineConfirm"
	case KindError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ErrorCategory classifies an Error state for display purposes.
type ErrorCategory int

const (
	ErrorBadgeNotRecognized ErrorCategory = iota
	ErrorServerUnavailable
	ErrorNetwork
	ErrorOther
)

// State is a closed tagged union; construct it only via the New* functions
// below so an invalid Kind/payload combination can never be built.
type State struct {
	kind Kind

	// Idle
	now time.Time

	// Loading
	loadingTag string

	// ClockInConfirm / ClockOutConfirm / OfflineConfirm / Error share a
	// countdown; only the fields relevant to kind are populated.
	secondsRemaining int

	employeeName          string
	photoURL              string
	formattedTimestamp    string
	workedHours           float32
	breakMinutes          uint32
	overtimeMinutes       int32
	remainingVacationDays float32

	errorMessage  string
	errorCategory ErrorCategory
}

// Kind returns the active variant.
func (s State) Kind() Kind { return s.kind }

// Now returns the Idle clock instant. Valid only when Kind() == KindIdle.
func (s State) Now() time.Time { return s.now }

// LoadingTag returns the in-flight scan's tag. Valid only when
// Kind() == KindLoading.
func (s State) LoadingTag() string { return s.loadingTag }

// SecondsRemaining returns the countdown to auto-return-to-Idle. Valid for
// every non-Idle, non-Loading variant.
func (s State) SecondsRemaining() int { return s.secondsRemaining }

// EmployeeName returns the confirmation's display name. Valid for
// ClockInConfirm/ClockOutConfirm.
func (s State) EmployeeName() string { return s.employeeName }

// PhotoURL returns the employee's optional photo URL, or "" when the
// server didn't supply one. Valid for ClockInConfirm/ClockOutConfirm.
func (s State) PhotoURL() string { return s.photoURL }

// FormattedTimestamp returns the confirmation's display timestamp. Valid for
// ClockInConfirm/ClockOutConfirm/OfflineConfirm.
func (s State) FormattedTimestamp() string { return s.formattedTimestamp }

// WorkedHours returns today's accumulated worked hours. Valid for
// ClockOutConfirm.
func (s State) WorkedHours() float32 { return s.workedHours }

// BreakMinutes returns today's accumulated break minutes. Valid for
// ClockOutConfirm.
func (s State) BreakMinutes() uint32 { return s.breakMinutes }

// OvertimeMinutes returns signed overtime minutes. Valid for ClockOutConfirm.
func (s State) OvertimeMinutes() int32 { return s.overtimeMinutes }

// RemainingVacationDays returns fractional remaining vacation days. Valid
// for ClockOutConfirm.
func (s State) RemainingVacationDays() float32 { return s.remainingVacationDays }

// ErrorMessage returns the user-facing error text. Valid for Error.
func (s State) ErrorMessage() string { return s.errorMessage }

// ErrorCategory returns the error classification. Valid for Error.
func (s State) ErrorCategory() ErrorCategory { return s.errorCategory }

// NewIdle constructs the Idle state.
func NewIdle(now time.Time) State {
	return State{kind: KindIdle, now: now}
}

// NewLoading constructs the Loading state for an in-flight scan of tag.
func NewLoading(tag string) State {
	return State{kind: KindLoading, loadingTag: tag}
}

// NewClockInConfirm constructs a ClockInConfirm state. photoURL is the
// employee's optional photo URL, passed through as "" when absent.
func NewClockInConfirm(employeeName, photoURL, formattedTimestamp string, secondsRemaining int) State {
	return State{
		kind:               KindClockInConfirm,
		employeeName:       employeeName,
		photoURL:           photoURL,
		formattedTimestamp: formattedTimestamp,
		secondsRemaining:   secondsRemaining,
	}
}

// ClockOutDetails bundles the payload fields specific to ClockOutConfirm.
type ClockOutDetails struct {
	EmployeeName          string
	PhotoURL              string
	FormattedTimestamp    string
	WorkedHours           float32
	BreakMinutes          uint32
	OvertimeMinutes       int32
	RemainingVacationDays float32
	SecondsRemaining      int
}

// NewClockOutConfirm constructs a ClockOutConfirm state.
func NewClockOutConfirm(d ClockOutDetails) State {
	return State{
		kind:                  KindClockOutConfirm,
		employeeName:          d.EmployeeName,
		photoURL:              d.PhotoURL,
		formattedTimestamp:    d.FormattedTimestamp,
		workedHours:           d.WorkedHours,
		breakMinutes:          d.BreakMinutes,
		overtimeMinutes:       d.OvertimeMinutes,
		remainingVacationDays: d.RemainingVacationDays,
		secondsRemaining:      d.SecondsRemaining,
	}
}

// NewOfflineConfirm constructs an OfflineConfirm state. No employee
// identity is known offline.
func NewOfflineConfirm(formattedTimestamp string, secondsRemaining int) State {
	return State{
		kind:               KindOfflineConfirm,
		formattedTimestamp: formattedTimestamp,
		secondsRemaining:   secondsRemaining,
	}
}

// NewError constructs an Error state.
func NewError(category ErrorCategory, message string, secondsRemaining int) State {
	return State{
		kind:             KindError,
		errorCategory:    category,
		errorMessage:     message,
		secondsRemaining: secondsRemaining,
	}
}
