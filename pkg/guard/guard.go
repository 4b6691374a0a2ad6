// Package guard implements the rate-limit guard: a NORMAL/COOLDOWN state
// machine that decides whether a request may use the reasoning backend or
// must be served by the fallback router.
package guard

import (
	"sync"
	"time"

	"sentinai/pkg/logx"
)

// Mode is the guard state.
type Mode string

const (
	// ModeNormal routes requests to the reasoning loop.
	ModeNormal Mode = "NORMAL"
	// ModeCooldown routes requests to the fallback router until the window elapses.
	ModeCooldown Mode = "COOLDOWN"
)

// Route is the guard's routing decision.
type Route string

const (
	RouteReasoning Route = "reasoning"
	RouteFallback  Route = "fallback"
)

// DefaultWindow is the cooldown applied after a quota failure.
const DefaultWindow = 60 * time.Second

// State is a snapshot of the guard.
type State struct {
	CooldownUntil time.Time `json:"cooldown_until"`
	LastError     string    `json:"last_error,omitempty"`
	Mode          Mode      `json:"mode"`
	RequestCount  int64     `json:"request_count"`
	FailureCount  int64     `json:"failure_count"`
	Exhausted     bool      `json:"exhausted"`
}

// Remaining returns how long the cooldown still lasts at now, or zero.
func (s State) Remaining(now time.Time) time.Duration {
	if !s.Exhausted || !now.Before(s.CooldownUntil) {
		return 0
	}
	return s.CooldownUntil.Sub(now)
}

// Config configures a Guard.
type Config struct {
	Window time.Duration
	// EarlyReset lets any successful backend call end the cooldown.
	EarlyReset bool
	// Now is the clock; nil uses time.Now.
	Now func() time.Time
	// OnChange, when set, is called with the new mode after every transition.
	OnChange func(Mode)
}

// Guard is safe for concurrent use.
type Guard struct {
	cfg    Config
	logger *logx.Logger

	mu    sync.Mutex
	state State
}

// New creates a guard in NORMAL mode.
func New(cfg Config) *Guard {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Guard{
		cfg:    cfg,
		logger: logx.NewLogger("guard"),
		state:  State{Mode: ModeNormal},
	}
}

// Decide counts a request and returns its route. An elapsed cooldown is
// observed here: the guard returns to NORMAL and the request is the live retry.
func (g *Guard) Decide() Route {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state.RequestCount++
	if !g.state.Exhausted {
		return RouteReasoning
	}
	now := g.cfg.Now()
	if now.Before(g.state.CooldownUntil) {
		return RouteFallback
	}

	g.resetLocked("cooldown elapsed")
	return RouteReasoning
}

// RecordQuotaFailure arms the cooldown, or re-arms it when already in cooldown.
func (g *Guard) RecordQuotaFailure(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	until := g.cfg.Now().Add(g.cfg.Window)
	wasExhausted := g.state.Exhausted
	g.state.Exhausted = true
	g.state.Mode = ModeCooldown
	g.state.CooldownUntil = until
	g.state.FailureCount++
	if err != nil {
		g.state.LastError = err.Error()
	}

	if wasExhausted {
		g.logger.Warn("quota failure during cooldown, extended until %s", until.Format(time.RFC3339))
		return
	}
	g.logger.Warn("backend quota exhausted, routing to fallback until %s", until.Format(time.RFC3339))
	g.notify(ModeCooldown)
}

// RecordSuccess records a successful backend call.
func (g *Guard) RecordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.state.Exhausted {
		return
	}
	if g.cfg.EarlyReset || !g.cfg.Now().Before(g.state.CooldownUntil) {
		g.resetLocked("backend call succeeded")
	}
}

// State returns a snapshot.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Window returns the configured cooldown window.
func (g *Guard) Window() time.Duration {
	return g.cfg.Window
}

// Now returns the guard's clock reading.
func (g *Guard) Now() time.Time {
	return g.cfg.Now()
}

func (g *Guard) resetLocked(reason string) {
	g.state.Exhausted = false
	g.state.Mode = ModeNormal
	g.state.CooldownUntil = time.Time{}
	g.logger.Info("rate-limit guard back to NORMAL: %s", reason)
	g.notify(ModeNormal)
}

func (g *Guard) notify(m Mode) {
	if g.cfg.OnChange != nil {
		g.cfg.OnChange(m)
	}
}
