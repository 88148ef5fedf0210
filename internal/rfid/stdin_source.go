package rfid

import (
	"bufio"
	"io"
	"log"
	"strings"
	"time"
)

// StdinSource reads tag strings line-by-line from an input stream (typically
// standard input fed by an HID-style badge reader that types the tag
// followed by a newline). It runs the blocking read on a dedicated
// goroutine and writes into a non-blocking channel, mirroring the worker
// thread + channel shape of the teacher's NFCReader and
// original_source/terminal/src/rfid/mod.rs.
type StdinSource struct {
	scans chan string
	done  chan struct{}
	deb   *debouncer
}

// NewStdinSource starts reading r on a background goroutine. Each line is
// trimmed; empty lines are discarded.
func NewStdinSource(r io.Reader, debounce time.Duration) *StdinSource {
	s := &StdinSource{
		scans: make(chan string, 16),
		done:  make(chan struct{}),
		deb:   newDebouncer(debounce),
	}
	go s.readLoop(r)
	return s
}

func (s *StdinSource) readLoop(r io.Reader) {
	log.Println("RFID reader started, reading from input stream")
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		tag := strings.TrimSpace(scanner.Text())
		if tag == "" {
			continue
		}
		log.Printf("RFID tag scanned: %s", tag)
		select {
		case s.scans <- tag:
		case <-s.done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("error reading RFID input: %v", err)
	}
}

// Poll drains the channel without blocking, applying the debounce window
// (§4.3): identical consecutive tags within the window are suppressed.
func (s *StdinSource) Poll() (string, bool) {
	for {
		select {
		case tag := <-s.scans:
			if s.deb.accept(tag, time.Now()) {
				return tag, true
			}
			// Duplicate within the debounce window: keep draining.
		default:
			return "", false
		}
	}
}

// Close stops the background read loop from delivering further scans. The
// underlying blocking read (e.g. on stdin) is not interrupted — it simply
// stops being consumed, matching the teacher's "receiver dropped" handling.
func (s *StdinSource) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
