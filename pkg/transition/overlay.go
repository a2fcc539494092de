package transition

import (
	"context"
	"math"
	"sync"
	"time"
)

// DefaultFrame is the animation step used by Overlay.
const DefaultFrame = 16 * time.Millisecond

// Overlay is an in-memory Curtain that tracks opacity in [0, 1] and steps
// it linearly during fades. Renderers read Opacity or subscribe with
// OnChange.
type Overlay struct {
	mu       sync.Mutex
	opacity  float64
	gen      uint64 // bumped by SetVisible; a fade started earlier stops writing
	frame    time.Duration
	onChange func(opacity float64)
}

// NewOverlay returns a hidden overlay. onChange, when non-nil, is called
// after every opacity change outside the overlay's lock.
func NewOverlay(onChange func(opacity float64)) *Overlay {
	return &Overlay{frame: DefaultFrame, onChange: onChange}
}

// Opacity returns the current opacity.
func (o *Overlay) Opacity() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opacity
}

// Visible reports whether the overlay is more than half opaque.
func (o *Overlay) Visible() bool {
	return o.Opacity() >= 0.5
}

// SetVisible implements Curtain. Any fade in progress stops applying
// frames.
func (o *Overlay) SetVisible(visible bool) {
	o.mu.Lock()
	o.gen++
	v := target(visible)
	o.opacity = v
	fn := o.onChange
	o.mu.Unlock()
	if fn != nil {
		fn(v)
	}
}

// Fade implements Curtain. When the overlay already sits at the target it
// restarts from the opposite end so the animation is always observable.
// A fade whose ctx is done, or that was overtaken by SetVisible, writes
// nothing further.
func (o *Overlay) Fade(ctx context.Context, visible bool, d time.Duration) error {
	to := target(visible)
	o.mu.Lock()
	gen := o.gen
	from := o.opacity
	o.mu.Unlock()

	if math.Abs(from-to) < 1e-9 {
		from = 1 - to
		if !o.step(ctx, gen, from) {
			return ctx.Err()
		}
	}
	if d <= 0 {
		o.step(ctx, gen, to)
		return ctx.Err()
	}

	start := time.Now()
	ticker := time.NewTicker(o.frame)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			p := float64(now.Sub(start)) / float64(d)
			if p >= 1 {
				o.step(ctx, gen, to)
				return ctx.Err()
			}
			if !o.step(ctx, gen, from+(to-from)*p) {
				return ctx.Err()
			}
		}
	}
}

// step applies one frame of the fade started at gen. It reports false and
// leaves the overlay untouched once ctx is done or gen is stale.
func (o *Overlay) step(ctx context.Context, gen uint64, v float64) bool {
	o.mu.Lock()
	if ctx.Err() != nil || o.gen != gen {
		o.mu.Unlock()
		return false
	}
	o.opacity = v
	fn := o.onChange
	o.mu.Unlock()
	if fn != nil {
		fn(v)
	}
	return true
}

func target(visible bool) float64 {
	if visible {
		return 1
	}
	return 0
}
