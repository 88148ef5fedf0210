// Package syncworker implements the Sync Worker (component C4): on a
// fixed interval, it replays the buffered event FIFO against the API
// Client and clears whatever the server accepts.
package syncworker

import (
	"log"

	"github.com/gagarinlg/zeiterfassung-terminal/internal/apiclient"
	"github.com/gagarinlg/zeiterfassung-terminal/internal/bufferstore"
)

// Scanner is the subset of apiclient.Client the worker replays scans
// through.
type Scanner interface {
	Scan(tag, terminal string) (*apiclient.ClockResponse, error)
}

// Buffer is the subset of bufferstore.Buffer the worker drains.
type Buffer interface {
	GetPending() ([]bufferstore.Event, error)
	MarkSynced(id int64) error
}

// Worker replays buffered events against the server, oldest first.
type Worker struct {
	scanner Scanner
	buffer  Buffer
}

// New builds a Worker.
func New(scanner Scanner, buffer Buffer) *Worker {
	return &Worker{scanner: scanner, buffer: buffer}
}

// Run performs one sync pass: it snapshots the current pending FIFO and
// replays it in order, stopping at the first NetworkError or Timeout
// (the server is still unreachable, so nothing further in the queue can
// succeed either). Every other disposition — success, Conflict,
// NotFoundError, Unauthorized, or any other server-side rejection —
// marks the event synced and moves on, logging a warning for the
// rejections so buffered junk never wedges the queue open (§4.4).
//
// Each event replays with its own stored tag and terminal (§4.1, §4.4) —
// not the caller's current terminal identity — since a buffered event is
// an immutable record of what was scanned, where.
//
// It returns the number of events successfully replayed.
func (w *Worker) Run() (int, error) {
	pending, err := w.buffer.GetPending()
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, ev := range pending {
		_, err := w.scanner.Scan(ev.Tag, ev.Terminal)
		switch err.(type) {
		case nil:
			if markErr := w.buffer.MarkSynced(ev.ID); markErr != nil {
				log.Printf("syncworker: failed to mark event %d synced: %v", ev.ID, markErr)
				continue
			}
			synced++
		case apiclient.NetworkError, apiclient.Timeout:
			// Server is unreachable; stop this pass and retry the whole
			// remaining queue on the next tick.
			return synced, nil
		default:
			log.Printf("syncworker: dropping event %d (tag %s): %v", ev.ID, ev.Tag, err)
			if markErr := w.buffer.MarkSynced(ev.ID); markErr != nil {
				log.Printf("syncworker: failed to mark rejected event %d synced: %v", ev.ID, markErr)
				continue
			}
		}
	}
	return synced, nil
}
