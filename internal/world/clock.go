package world

import (
	"math"
	"time"

	"foxhollow.gg/internal/protocol"
)

// Phase derives the day/night phase in [0,1) from wall-clock elapsed time.
// It is recomputed fresh on every call, never accumulated per tick, so it
// self-corrects across ticker jitter.
func (w *World) Phase(now time.Time) float64 {
	cycle := w.cfg.ClockCycle.Seconds()
	elapsed := now.Sub(w.startedAt).Seconds()
	phase := math.Mod(elapsed, cycle) / cycle
	if phase < 0 {
		phase += 1
	}
	return phase
}

func (w *World) broadcastClock() {
	w.broadcastAll(protocol.ClockUpdateMsg{
		Type:  protocol.TypeClockUpdate,
		Phase: w.Phase(w.now()),
	})
}
