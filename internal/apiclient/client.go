// Package apiclient is a thin HTTP client for the attendance server (the
// API Client, component C2). It holds no state beyond its configured base
// URL, per-request timeout, and retry count.
package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

// EmployeeInfo identifies the employee a scan resolved to.
type EmployeeInfo struct {
	ID        string  `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	PhotoURL  *string `json:"photoUrl,omitempty"`
}

// EntryKind is the kind of attendance event the server recorded.
type EntryKind string

const (
	EntryClockIn  EntryKind = "CLOCK_IN"
	EntryClockOut EntryKind = "CLOCK_OUT"
)

// ClockResponse is the server's reply to a successful scan.
type ClockResponse struct {
	Employee              EmployeeInfo `json:"employee"`
	EntryType             EntryKind    `json:"entryType"`
	Timestamp             time.Time    `json:"timestamp"`
	TodayWorkMinutes      uint32       `json:"todayWorkMinutes"`
	TodayBreakMinutes     uint32       `json:"todayBreakMinutes"`
	OvertimeMinutes       int32        `json:"overtimeMinutes"`
	RemainingVacationDays float32      `json:"remainingVacationDays"`
}

type clockRequest struct {
	RFIDTagID  string `json:"rfidTagId"`
	TerminalID string `json:"terminalId"`
}

// Config configures the API Client.
type Config struct {
	BaseURL        string
	TimeoutSeconds uint64
	RetryAttempts  uint32
}

// Client talks to the attendance server over HTTP.
type Client struct {
	http          *http.Client
	baseURL       string
	retryAttempts uint32
}

// New builds a Client from Config.
func New(cfg Config) *Client {
	return &Client{
		http:          &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		baseURL:       cfg.BaseURL,
		retryAttempts: cfg.RetryAttempts,
	}
}

// Scan posts a badge scan to the attendance server and classifies the
// response per §4.2. It retries network errors and timeouts up to
// retryAttempts total, returning on first success.
func (c *Client) Scan(tag, terminal string) (*ClockResponse, error) {
	url := c.baseURL + "/terminal/scan"
	body, err := json.Marshal(clockRequest{RFIDTagID: tag, TerminalID: terminal})
	if err != nil {
		return nil, fmt.Errorf("apiclient: encoding request: %w", err)
	}

	var lastErr error = NetworkError{Message: "no attempts made"}

	attempts := c.retryAttempts
	if attempts == 0 {
		attempts = 1
	}

	for attempt := uint32(1); attempt <= attempts; attempt++ {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("apiclient: building request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if isTimeout(err) {
				log.Printf("request timed out (attempt %d/%d)", attempt, attempts)
				lastErr = Timeout{}
			} else {
				log.Printf("network error (attempt %d/%d): %v", attempt, attempts, err)
				lastErr = NetworkError{Message: err.Error()}
			}
			continue
		}

		return classifyResponse(resp)
	}

	log.Printf("all %d retry attempts failed", attempts)
	return nil, lastErr
}

// classifyResponse reads and classifies one HTTP response per §4.2. Every
// branch here is terminal: only NetworkError and Timeout — produced when
// c.http.Do itself fails, never reaching this function — are retried. A
// non-2xx status the server did answer with is an authoritative semantic
// decision, not a transient failure, so it is never retried even when
// uncategorized (the default ServerError case).
func classifyResponse(resp *http.Response) (*ClockResponse, error) {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var parsed ClockResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, ServerError{Message: fmt.Sprintf("failed to parse response: %v", err)}
		}
		return &parsed, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, NotFoundError{Message: "RFID tag not registered"}
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, Unauthorized{}
	case resp.StatusCode == http.StatusConflict:
		return nil, Conflict{}
	default:
		return nil, ServerError{Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
}

// Health reports whether the attendance server answers with a 2xx status
// before the configured timeout.
func (c *Client) Health() bool {
	resp, err := c.http.Get(c.baseURL + "/actuator/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	if errors.As(err, &te) {
		return te.Timeout()
	}
	return false
}
