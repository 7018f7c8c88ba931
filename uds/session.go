package uds

import (
	"errors"
	"sync"
	"time"
)

// Exchange errors
var (
	ErrExchangeInProgress      = errors.New("uds: exchange already in progress")
	ErrTimeout                 = errors.New("uds: response timeout")
	ErrResponsePendingExceeded = errors.New("uds: too many response pending extensions")
)

// SecurityStatus is the phase of the SecurityAccess sequence.
type SecurityStatus int

const (
	SecurityLocked SecurityStatus = iota
	SecuritySeedIssued
	SecurityUnlocked
)

func (s SecurityStatus) String() string {
	switch s {
	case SecurityLocked:
		return "locked"
	case SecuritySeedIssued:
		return "seed issued"
	case SecurityUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// SecurityState tracks the security-access level negotiated with the
// server. Level is meaningful for SeedIssued and Unlocked.
type SecurityState struct {
	Status SecurityStatus
	Level  byte
}

type exchangeState int

const (
	stateIdle exchangeState = iota
	stateAwaitingResponse
	stateResponsePendingWait
)

// Tracker enforces the strictly serialized request/response discipline of
// UDS over a single transport channel: at most one pending exchange, a
// per-exchange deadline, and a bounded number of "response pending"
// extensions.
type Tracker struct {
	mu          sync.Mutex
	state       exchangeState
	request     Request
	deadline    time.Time
	extensions  int
	timeout     time.Duration
	pendingWait time.Duration
	pendingMax  int
}

// NewTracker creates a tracker with the per-exchange timeout and the
// maximum number of response-pending extensions.
func NewTracker(timeout time.Duration, pendingMax int) *Tracker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if pendingMax < 0 {
		pendingMax = 0
	}
	return &Tracker{
		timeout: timeout,
		// a pending server announced more processing time, so the wait
		// window per extension is wider than the base timeout
		pendingWait: 5 * time.Second,
		pendingMax:  pendingMax,
	}
}

// SetPendingWait overrides the deadline extension applied on each
// response-pending frame.
func (t *Tracker) SetPendingWait(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pendingWait = d
}

// Submit records req as the pending exchange. A second submission while
// one is outstanding fails with ErrExchangeInProgress and leaves the
// first exchange untouched.
func (t *Tracker) Submit(req Request) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != stateIdle {
		return ErrExchangeInProgress
	}
	t.state = stateAwaitingResponse
	t.request = req
	t.deadline = time.Now().Add(t.timeout)
	t.extensions = 0
	return nil
}

// Request returns the outstanding request.
func (t *Tracker) Request() (Request, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.request, t.state != stateIdle
}

// Deadline returns the current response deadline.
func (t *Tracker) Deadline() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline
}

// Busy reports whether an exchange is outstanding.
func (t *Tracker) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state != stateIdle
}

// Observe feeds a decoded response into the state machine. A negative
// response with NRC 0x78 keeps the exchange open and extends the
// deadline until the extension budget is spent, at which point the
// exchange fails with ErrResponsePendingExceeded. Any other response
// resolves the exchange; done is true and the caller owns the result.
func (t *Tracker) Observe(resp Response) (done bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == stateIdle {
		// stray frame after a timeout, nothing to resolve
		return false, nil
	}
	if !resp.Positive() && resp.Code == NRCRequestCorrectlyReceivedResponsePending {
		t.extensions++
		if t.extensions > t.pendingMax {
			t.state = stateIdle
			return false, ErrResponsePendingExceeded
		}
		t.state = stateResponsePendingWait
		t.deadline = time.Now().Add(t.pendingWait)
		return false, nil
	}
	t.state = stateIdle
	return true, nil
}

// Expire resolves the exchange with ErrTimeout once the deadline has
// elapsed; before that it returns nil and the exchange stays open.
func (t *Tracker) Expire(now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == stateIdle {
		return nil
	}
	if now.Before(t.deadline) {
		return nil
	}
	t.state = stateIdle
	return ErrTimeout
}

// Abort drops the pending exchange, e.g. when the transport failed.
func (t *Tracker) Abort() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = stateIdle
}
