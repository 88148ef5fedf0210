// Package rfid produces a debounced stream of scanned badge tag strings
// (the RFID Source, component C3).
package rfid

import "time"

// Source is anything that can be polled for a newly-scanned, debounced tag.
// Implementations never block: Poll drains whatever has arrived since the
// last call and returns immediately.
type Source interface {
	// Poll returns the next debounced tag, or ok=false if none has arrived.
	Poll() (tag string, ok bool)
	// Close releases the source's background resources.
	Close()
}

// DebounceWindow is a 500 ms inter-arrival window below which identical
// consecutive tags are suppressed, equal to the default rfid.debounce_ms.
// NewStdinSource and NewUSBSource take their window as a parameter and do
// not fall back to this constant.
const DebounceWindow = 500 * time.Millisecond
