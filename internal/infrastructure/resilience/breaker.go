package resilience

import (
	"sync"
	"time"
)

type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// CircuitBreaker trips after FailureThreshold consecutive failures, rejects
// calls for OpenTimeout, then lets probes through until SuccessThreshold of
// them succeed. Any failure while half-open reopens the circuit.
type CircuitBreaker struct {
	mu sync.Mutex

	name             string
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration

	state     State
	failures  int
	successes int
	openedAt  time.Time
	now       func() time.Time

	onChange func(name string, from, to State)
}

type BreakerSettings struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

func NewCircuitBreaker(name string, s BreakerSettings) *CircuitBreaker {
	if s.FailureThreshold < 1 {
		s.FailureThreshold = 5
	}
	if s.SuccessThreshold < 1 {
		s.SuccessThreshold = 1
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 60 * time.Second
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: s.FailureThreshold,
		successThreshold: s.SuccessThreshold,
		openTimeout:      s.OpenTimeout,
		state:            StateClosed,
		now:              time.Now,
	}
}

func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.now = now
	return cb
}

// OnStateChange registers a hook invoked (under the breaker lock) on transitions.
func (cb *CircuitBreaker) OnStateChange(fn func(name string, from, to State)) {
	cb.mu.Lock()
	cb.onChange = fn
	cb.mu.Unlock()
}

func (cb *CircuitBreaker) Name() string { return cb.name }

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.openTimeout {
			return false
		}
		cb.transition(StateHalfOpen)
	}
	return true
}

func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.transition(StateClosed)
		}
	default:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.transition(StateOpen)
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.transition(StateOpen)
		}
	}
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	if cb.onChange != nil && from != to {
		cb.onChange(cb.name, from, to)
	}
}
