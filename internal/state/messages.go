package state

import (
	"time"

	"github.com/gagarinlg/zeiterfassung-terminal/internal/apiclient"
)

// Msg is one of the five message kinds the Terminal State Machine consumes
// (§4.5). At most one payload field is populated per message (Tick and
// SyncTick carry none); construct via the New* helpers.
type Msg struct {
	kind msgKind

	tag string // RfidScanned

	outcome scanOutcome // ScanResult

	syncedCount int // SyncComplete
}

type msgKind int

const (
	msgTick msgKind = iota
	msgSyncTick
	msgRfidScanned
	msgScanResult
	msgSyncComplete
)

// scanOutcome is the resolved result of a dispatched scan: either a
// successful ClockResponse or a classified apiclient error.
type scanOutcome struct {
	response *apiclient.ClockResponse
	err      error
}

// NewTick builds a Tick message (1 Hz).
func NewTick() Msg { return Msg{kind: msgTick} }

// NewSyncTick builds a SyncTick message (fired at the sync interval).
func NewSyncTick() Msg { return Msg{kind: msgSyncTick} }

// NewRfidScanned builds an RfidScanned message for a debounced tag.
func NewRfidScanned(tag string) Msg { return Msg{kind: msgRfidScanned, tag: tag} }

// NewScanResultOK builds a ScanResult message carrying a successful response.
func NewScanResultOK(resp *apiclient.ClockResponse) Msg {
	return Msg{kind: msgScanResult, outcome: scanOutcome{response: resp}}
}

// NewScanResultErr builds a ScanResult message carrying a classified error.
func NewScanResultErr(err error) Msg {
	return Msg{kind: msgScanResult, outcome: scanOutcome{err: err}}
}

// NewSyncComplete builds a SyncComplete message reporting how many events a
// sync pass replayed successfully.
func NewSyncComplete(count int) Msg { return Msg{kind: msgSyncComplete, syncedCount: count} }

// Clock abstracts "now" so tests can drive deterministic ticks without
// sleeping; production code passes time.Now.
type Clock func() time.Time
