package transition

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Reasons reported on cancelled results.
const (
	ReasonLocked     = "locked"
	ReasonSuperseded = "superseded"
	ReasonCancel     = "cancel"
)

// Curtain is the opaque overlay animated around scene swaps.
type Curtain interface {
	// SetVisible applies visibility immediately.
	SetVisible(visible bool)
	// Fade animates to visible over d and returns once the animation has
	// settled or ctx is done.
	Fade(ctx context.Context, visible bool, d time.Duration) error
}

// Spec describes one curtain transition.
type Spec struct {
	ID      string
	FadeIn  time.Duration
	Hold    time.Duration
	FadeOut time.Duration
	// OnBlack runs while the curtain is fully visible. Its context is
	// cancelled as soon as the attempt's token is superseded.
	OnBlack func(ctx context.Context, token uint64) error
}

// Result reports how a transition attempt settled. Cancellation is a
// normal outcome and is never reported through Err.
type Result struct {
	OK        bool
	Cancelled bool
	Reason    string
	Token     uint64
	Err       error
}

// Snapshot is a point-in-time view of the engine's token protocol.
type Snapshot struct {
	Token  uint64 `json:"token"`
	Locked bool   `json:"locked"`
}

// Engine sequences single-flight, cancellable curtain transitions. Each
// attempt owns a token; an attempt whose token is no longer current stops
// at the next phase boundary.
type Engine struct {
	curtain Curtain
	logger  *slog.Logger
	label   string

	mu     sync.Mutex
	token  uint64
	locked bool
	reason string
	cancel context.CancelFunc
	idle   chan struct{} // closed whenever the engine is unlocked
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for phase tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLabel sets the label attached to every log record.
func WithLabel(label string) Option {
	return func(e *Engine) {
		if label != "" {
			e.label = label
		}
	}
}

// New creates an engine driving curtain.
func New(curtain Curtain, opts ...Option) *Engine {
	e := &Engine{
		curtain: curtain,
		logger:  slog.Default(),
		label:   "TRANSITION",
		idle:    make(chan struct{}),
	}
	close(e.idle)
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("engine", e.label)
	return e
}

// State returns the current token and lock flag.
func (e *Engine) State() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{Token: e.token, Locked: e.locked}
}

// SetCurtainInstant applies visibility without touching the token protocol.
func (e *Engine) SetCurtainInstant(visible bool) {
	e.curtain.SetVisible(visible)
}

// Cancel invalidates any in-flight attempt, releases the lock and hides
// the curtain immediately.
func (e *Engine) Cancel(reason string) {
	if reason == "" {
		reason = ReasonCancel
	}

	e.mu.Lock()
	e.token++
	token := e.token
	e.reason = reason
	cancel := e.cancel
	e.cancel = nil
	e.unlock()
	if cancel != nil {
		cancel()
	}
	e.curtain.SetVisible(false)
	e.mu.Unlock()

	e.logger.Info("Transition cancelled", "token", token, "reason", reason)
}

// Run performs one transition: fade in, run OnBlack, hold, fade out. A call
// made while another transition holds the lock is rejected immediately
// with reason "locked" and has no side effects.
func (e *Engine) Run(ctx context.Context, spec Spec) Result {
	e.mu.Lock()
	if e.locked {
		e.mu.Unlock()
		return Result{Cancelled: true, Reason: ReasonLocked}
	}
	e.token++
	token := e.token
	e.locked = true
	e.idle = make(chan struct{})
	attemptCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()

	id := spec.ID
	if id == "" {
		id = "transition"
	}
	log := e.logger.With("transition", id, "token", token)
	log.Debug("Transition begin")

	res := e.run(attemptCtx, token, id, spec, log)

	e.mu.Lock()
	if e.token == token {
		e.cancel = nil
		e.unlock()
		log.Debug("Transition end", "ok", res.OK)
	}
	e.mu.Unlock()
	return res
}

type phase struct {
	name     string
	duration time.Duration
	fn       func() error
}

func (e *Engine) run(ctx context.Context, token uint64, id string, spec Spec, log *slog.Logger) Result {
	phases := []phase{
		{"fade-in", spec.FadeIn, func() error { return e.fade(ctx, token, true, spec.FadeIn) }},
		{"on-black", 0, func() error {
			if spec.OnBlack == nil {
				return nil
			}
			return spec.OnBlack(ctx, token)
		}},
		{"hold", spec.Hold, func() error { return wait(ctx, spec.Hold) }},
		{"fade-out", spec.FadeOut, func() error { return e.fade(ctx, token, false, spec.FadeOut) }},
	}

	for _, p := range phases {
		if res, stop := e.checkpoint(ctx, token); stop {
			log.Debug("Transition cancelled before phase", "phase", p.name, "reason", res.Reason)
			return res
		}
		log.Debug("Transition phase start", "phase", p.name, "duration_ms", p.duration.Milliseconds())

		err := p.fn()

		if res, stop := e.checkpoint(ctx, token); stop {
			log.Debug("Transition cancelled during phase", "phase", p.name, "reason", res.Reason)
			return res
		}
		if err != nil {
			e.abort(token)
			log.Error("Transition phase failed", "phase", p.name, "error", err)
			return Result{Token: token, Err: fmt.Errorf("transition %s %s: %w", id, p.name, err)}
		}
		log.Debug("Transition phase end", "phase", p.name)
	}
	return Result{OK: true, Token: token}
}

// checkpoint reports whether the attempt holding token must stop. A done
// caller context cancels the attempt as if Cancel had been called.
func (e *Engine) checkpoint(ctx context.Context, token uint64) (Result, bool) {
	e.mu.Lock()
	current := e.token == token
	reason := e.reason
	e.mu.Unlock()

	if !current {
		if reason == "" {
			reason = ReasonSuperseded
		}
		return Result{Cancelled: true, Reason: reason, Token: token}, true
	}
	if err := ctx.Err(); err != nil {
		e.Cancel(err.Error())
		return Result{Cancelled: true, Reason: err.Error(), Token: token}, true
	}
	return Result{}, false
}

// abort hides the curtain and releases the lock after a failed phase,
// provided token is still current.
func (e *Engine) abort(token uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.token != token {
		return
	}
	e.cancel = nil
	e.unlock()
	e.curtain.SetVisible(false)
}

// unlock releases the lock and wakes waiters. Callers hold mu.
func (e *Engine) unlock() {
	if !e.locked {
		return
	}
	e.locked = false
	close(e.idle)
}

func (e *Engine) fade(ctx context.Context, token uint64, visible bool, d time.Duration) error {
	if d <= 0 {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.token != token || ctx.Err() != nil {
			return ctx.Err()
		}
		e.curtain.SetVisible(visible)
		return nil
	}
	return e.curtain.Fade(ctx, visible, d)
}

// WaitIdle blocks until the engine is unlocked or ctx is done.
func (e *Engine) WaitIdle(ctx context.Context) error {
	for {
		e.mu.Lock()
		if !e.locked {
			e.mu.Unlock()
			return nil
		}
		idle := e.idle
		e.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunQueued waits for the engine to become idle and then runs spec. If
// another caller wins the lock first it waits again; it never polls.
func (e *Engine) RunQueued(ctx context.Context, spec Spec) Result {
	for {
		if err := e.WaitIdle(ctx); err != nil {
			return Result{Cancelled: true, Reason: err.Error()}
		}
		res := e.Run(ctx, spec)
		if !res.Cancelled || res.Reason != ReasonLocked {
			return res
		}
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
