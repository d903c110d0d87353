package provider

import (
	"sync"
	"time"
)

// HealthState is the availability of one chain entry.
type HealthState int

// Health states. A provider in cooldown is skipped until its backoff
// expires; a dead provider is skipped until a health probe succeeds.
const (
	StateHealthy HealthState = iota
	StateCooldown
	StateDead
)

func (s HealthState) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateCooldown:
		return "cooldown"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// HealthConfig controls health tracking. Zero fields take defaults.
type HealthConfig struct {
	// InitialBackoff is the cooldown after the first failure. Default 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the doubling backoff. Default 60s.
	MaxBackoff time.Duration

	// MaxFailures consecutive failures mark the provider dead. Default 5.
	MaxFailures int

	// CheckInterval is how often unavailable providers are probed. Default 10s.
	CheckInterval time.Duration
}

func (c *HealthConfig) defaults() {
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 60 * time.Second
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = 5
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 10 * time.Second
	}
}

// HealthReport is a point-in-time view of one chain entry.
type HealthReport struct {
	Name     string        `json:"name"`
	Model    string        `json:"model"`
	Role     Role          `json:"role"`
	State    string        `json:"state"`
	Failures int           `json:"failures"`
	Backoff  time.Duration `json:"backoff_ns,omitempty"`
}

type healthTracker struct {
	cfg HealthConfig

	// onStateChange runs outside the lock after every transition.
	onStateChange func(from, to HealthState)

	mu              sync.Mutex
	state           HealthState
	failures        int
	currentBackoff  time.Duration
	cooldownExpires time.Time

	now func() time.Time
}

func newHealthTracker(cfg HealthConfig) *healthTracker {
	cfg.defaults()
	return &healthTracker{cfg: cfg, now: time.Now}
}

// IsAvailable reports whether the provider may receive a request.
func (h *healthTracker) IsAvailable() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case StateHealthy:
		return true
	case StateCooldown:
		return !h.now().Before(h.cooldownExpires)
	default:
		return false
	}
}

func (h *healthTracker) RecordSuccess() {
	h.mu.Lock()
	prev := h.state
	h.state = StateHealthy
	h.failures = 0
	h.currentBackoff = 0
	h.mu.Unlock()

	if prev != StateHealthy && h.onStateChange != nil {
		h.onStateChange(prev, StateHealthy)
	}
}

// RecordFailure moves the tracker to cooldown with a doubled backoff, or
// to dead once MaxFailures is reached.
func (h *healthTracker) RecordFailure() {
	h.mu.Lock()
	prev := h.state
	h.failures++

	next := StateCooldown
	if h.failures >= h.cfg.MaxFailures {
		next = StateDead
	} else {
		h.currentBackoff = min(max(h.currentBackoff*2, h.cfg.InitialBackoff), h.cfg.MaxBackoff)
		h.cooldownExpires = h.now().Add(h.currentBackoff)
	}
	h.state = next
	h.mu.Unlock()

	if prev != next && h.onStateChange != nil {
		h.onStateChange(prev, next)
	}
}

// ShouldHealthCheck is true for dead providers and expired cooldowns.
func (h *healthTracker) ShouldHealthCheck() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case StateDead:
		return true
	case StateCooldown:
		return !h.now().Before(h.cooldownExpires)
	default:
		return false
	}
}

func (h *healthTracker) snapshot() (HealthState, int, time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state, h.failures, h.currentBackoff
}
