package world

import (
	"context"
	"time"
)

// Run drives the world until ctx is done or Stop is called. Connection
// lifecycle, client events, NPC simulation and clock broadcasts all interleave
// on this one goroutine, so every mutation is a single atomic step.
func (w *World) Run(ctx context.Context) error {
	npcTicker := time.NewTicker(w.cfg.NPCTick)
	defer npcTicker.Stop()
	clockTicker := time.NewTicker(w.cfg.ClockEvery)
	defer clockTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.connect:
			w.handleConnect(req)
		case id := <-w.leave:
			w.handleDisconnect(id)
		case env := <-w.inbox:
			w.dispatch(env)
		case obj := <-w.placed:
			w.handleObjectPlaced(obj)
		case <-npcTicker.C:
			w.stepNPCs()
		case <-clockTicker.C:
			w.broadcastClock()
		}
	}
}

func (w *World) Stop() { close(w.stop) }
