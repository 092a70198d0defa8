package resilience

import (
	"fmt"
	"sync"
	"time"
)

// State enumerates circuit breaker states.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Transition reasons reported to the state-change callback.
const (
	reasonThreshold    = "failure threshold reached"
	reasonCooldown     = "cooldown period elapsed"
	reasonProbeSuccess = "probe request succeeded"
	reasonProbeFailure = "probe request failed"
	reasonManualReset  = "manual reset"
)

// Config controls breaker behavior.
type Config struct {
	FailureThreshold int           // consecutive failures in CLOSED before opening
	Cooldown         time.Duration // how long OPEN rejects calls before a probe is allowed
}

// DefaultConfig returns the breaker defaults used when a registry is built without overrides.
func DefaultConfig() Config {
	return Config{FailureThreshold: 5, Cooldown: 30 * time.Second}
}

// StateChange receives every breaker transition. Observability only; never control flow.
type StateChange func(from, to State, reason string)

// CircuitOpenError signals a call was rejected without execution because the breaker is OPEN.
type CircuitOpenError struct {
	State             State
	CooldownRemaining time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker is %s, retry in %s", e.State, e.CooldownRemaining)
}

// Metrics is a point-in-time snapshot of a breaker's counters.
type Metrics struct {
	State           State      `json:"state"`
	SuccessCount    int        `json:"success_count"`
	FailureCount    int        `json:"failure_count"`
	RejectedCount   int        `json:"rejected_count"`
	LastFailureTime *time.Time `json:"last_failure_time,omitempty"`
}

// Breaker wraps an external-call function with failure-count tracking and fail-fast behavior.
//
// CLOSED passes calls through and counts consecutive failures; OPEN rejects
// calls outright until the cooldown elapses; HALF_OPEN admits a single probe
// whose outcome decides between CLOSED and OPEN. State transitions are
// guarded by a mutex; the wrapped call itself runs outside the lock.
type Breaker struct {
	mu       sync.Mutex
	cfg      Config
	onChange StateChange
	now      func() time.Time

	state         State
	probing       bool
	failureCount  int
	successCount  int
	rejectedCount int
	lastFailure   *time.Time
	openedAt      time.Time
}

// NewBreaker creates a CLOSED breaker with the given configuration.
func NewBreaker(cfg Config, onChange StateChange) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	return &Breaker{cfg: cfg, onChange: onChange, now: time.Now}
}

// transition moves the breaker to a new state and notifies the callback.
// Callers must hold b.mu.
func (b *Breaker) transition(to State, reason string) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onChange != nil {
		b.onChange(from, to, reason)
	}
}

// Execute invokes fn under breaker protection.
//
// Failures of fn are rethrown unchanged; a rejected call returns
// [*CircuitOpenError] and never invokes fn. The breaker does not retry;
// retries, if any, are the caller's responsibility.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	if b.state == StateOpen {
		elapsed := b.now().Sub(b.openedAt)
		if elapsed < b.cfg.Cooldown {
			b.rejectedCount++
			remaining := b.cfg.Cooldown - elapsed
			b.mu.Unlock()
			return &CircuitOpenError{State: StateOpen, CooldownRemaining: remaining}
		}
		b.transition(StateHalfOpen, reasonCooldown)
	}
	if b.state == StateHalfOpen && b.probing {
		// Exactly one probe may be in flight; concurrent callers are
		// rejected until its outcome settles the state.
		b.rejectedCount++
		b.mu.Unlock()
		return &CircuitOpenError{State: StateHalfOpen}
	}
	admitted := b.state
	if admitted == StateHalfOpen {
		b.probing = true
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if admitted == StateHalfOpen {
		b.probing = false
	}

	if err != nil {
		now := b.now()
		b.lastFailure = &now
		if admitted == StateHalfOpen {
			b.openedAt = now
			b.transition(StateOpen, reasonProbeFailure)
			return err
		}
		b.failureCount++
		if b.failureCount >= b.cfg.FailureThreshold && b.state == StateClosed {
			b.openedAt = now
			b.transition(StateOpen, reasonThreshold)
		}
		return err
	}

	b.successCount++
	b.failureCount = 0
	if admitted == StateHalfOpen {
		b.transition(StateClosed, reasonProbeSuccess)
	}
	return nil
}

// GetState returns the current state.
func (b *Breaker) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// GetMetrics returns a snapshot of the breaker's counters.
func (b *Breaker) GetMetrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Metrics{
		State:           b.state,
		SuccessCount:    b.successCount,
		FailureCount:    b.failureCount,
		RejectedCount:   b.rejectedCount,
		LastFailureTime: b.lastFailure,
	}
}

// Reset forces the breaker to CLOSED and zeroes all counters regardless of current state.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed, reasonManualReset)
	b.probing = false
	b.failureCount = 0
	b.successCount = 0
	b.rejectedCount = 0
	b.lastFailure = nil
	b.openedAt = time.Time{}
}
