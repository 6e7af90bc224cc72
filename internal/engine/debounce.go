package engine

import "time"

// DebounceWindow is how long a condition must hold before it is reported
const DebounceWindow = 500 * time.Millisecond

// debouncer raises after its condition has held for window of accumulated
// tick time and clears on the first tick where it does not hold.
type debouncer struct {
	window time.Duration
	held   time.Duration
	active bool
}

func newDebouncer(window time.Duration, active bool) debouncer {
	return debouncer{window: window, active: active}
}

// update feeds one tick and returns the debounced state
func (d *debouncer) update(cond bool, elapsed time.Duration) bool {
	if !cond {
		d.held = 0
		d.active = false
		return false
	}
	if elapsed > 0 {
		d.held += elapsed
	}
	if d.held >= d.window {
		d.active = true
	}
	return d.active
}

func (d *debouncer) reset(active bool) {
	d.held = 0
	d.active = active
}
