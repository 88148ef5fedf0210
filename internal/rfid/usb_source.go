package rfid

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/clausecker/freefare"
	"github.com/clausecker/nfc/v2"
)

// Retry tuning for USBSource's reconnect loop, grounded on the teacher's
// nfc.MaxRetries/BaseDelay/MaxReconnectTries/ReconnectDelay constants
// (nfc/common.go) — badge UID polling needs the same reconnect discipline
// as the teacher's NDEF reader, without any of the tag-format plumbing.
const (
	usbMaxRetries        = 5
	usbBaseDelay         = 500 * time.Millisecond
	usbMaxReconnectTries = 10
	usbReconnectDelay    = 2 * time.Second
	usbPollInterval      = 100 * time.Millisecond
	usbDeviceCheckPeriod = 2 * time.Second
)

// USBSource polls a PC-attached PC/SC-or-libnfc badge reader via
// clausecker/nfc and clausecker/freefare, emitting the UID of whatever
// Mifare-family tag is presented. It is an alternate Source implementation
// to StdinSource for sites wiring a USB reader directly into the terminal
// rather than through an HID keyboard-wedge device.
type USBSource struct {
	devicePath string

	mu       sync.Mutex
	device   nfc.Device
	hasDev   bool
	stopCh   chan struct{}
	scans    chan string
	deb      *debouncer
	stopOnce sync.Once
}

// NewUSBSource starts polling devicePath (or the first device nfc.ListDevices
// finds, when empty) on a background goroutine.
func NewUSBSource(devicePath string, debounce time.Duration) *USBSource {
	s := &USBSource{
		devicePath: devicePath,
		stopCh:     make(chan struct{}),
		scans:      make(chan string, 16),
		deb:        newDebouncer(debounce),
	}
	go s.worker()
	return s
}

// Poll drains the channel without blocking, applying the debounce window.
func (s *USBSource) Poll() (string, bool) {
	for {
		select {
		case tag := <-s.scans:
			if s.deb.accept(tag, time.Now()) {
				return tag, true
			}
		default:
			return "", false
		}
	}
}

// Close stops the polling worker and releases the device handle.
func (s *USBSource) Close() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *USBSource) worker() {
	log.Println("USB badge reader worker started")
	defer log.Println("USB badge reader worker stopped")

	checkTicker := time.NewTicker(usbDeviceCheckPeriod)
	defer checkTicker.Stop()

	defer func() {
		s.mu.Lock()
		if s.hasDev {
			s.device.Close()
			s.hasDev = false
		}
		s.mu.Unlock()
	}()

	retryCount := 0
	for {
		select {
		case <-s.stopCh:
			return
		case <-checkTicker.C:
			s.mu.Lock()
			hasDev := s.hasDev
			s.mu.Unlock()
			if !hasDev {
				if err := s.tryConnect(); err != nil {
					log.Printf("USB reader connect attempt failed: %v", err)
				} else {
					retryCount = 0
				}
			}
		default:
			s.mu.Lock()
			hasDev := s.hasDev
			s.mu.Unlock()
			if !hasDev {
				time.Sleep(200 * time.Millisecond)
				continue
			}

			uid, err := s.pollUID()
			if err != nil {
				log.Printf("error polling USB badge reader: %v", err)
				delay := time.Duration(math.Pow(2, float64(retryCount))) * usbBaseDelay
				retryCount++
				if retryCount > usbMaxRetries {
					s.disconnect()
					retryCount = 0
				}
				select {
				case <-time.After(delay):
				case <-s.stopCh:
					return
				}
				continue
			}
			retryCount = 0

			if uid != "" {
				select {
				case s.scans <- uid:
				case <-s.stopCh:
					return
				default:
					log.Println("USB badge reader: scan channel full, dropping read")
				}
			}
			time.Sleep(usbPollInterval)
		}
	}
}

func (s *USBSource) tryConnect() error {
	path := s.devicePath
	if path == "" || path == "auto" {
		devices, err := nfc.ListDevices()
		if err != nil {
			return fmt.Errorf("listing NFC devices: %w", err)
		}
		if len(devices) == 0 {
			return fmt.Errorf("no NFC devices found")
		}
		path = devices[0]
	}

	dev, err := nfc.Open(path)
	if err != nil {
		return fmt.Errorf("opening device %s: %w", path, err)
	}
	if err := dev.InitiatorInit(); err != nil {
		dev.Close()
		return fmt.Errorf("initializing device %s: %w", path, err)
	}

	s.mu.Lock()
	s.device = dev
	s.hasDev = true
	s.devicePath = path
	s.mu.Unlock()

	log.Printf("connected to USB badge reader: %s", path)
	return nil
}

func (s *USBSource) disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasDev {
		s.device.Close()
		s.hasDev = false
	}
}

// pollUID returns the UID of the first Mifare-family tag present, or "" if
// none is. Badge-ID terminals only need the UID — none of the
// NDEF/sector-level reads the teacher's hardware backend performs for
// full tag content apply here.
func (s *USBSource) pollUID() (string, error) {
	s.mu.Lock()
	dev := s.device
	hasDev := s.hasDev
	s.mu.Unlock()
	if !hasDev {
		return "", fmt.Errorf("no device connected")
	}

	tags, err := freefare.GetTags(dev)
	if err != nil {
		return "", fmt.Errorf("freefare.GetTags: %w", err)
	}
	if len(tags) == 0 {
		return "", nil
	}
	return tags[0].UID(), nil
}
