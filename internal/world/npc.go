package world

import (
	"fmt"
	"math"

	"foxhollow.gg/internal/protocol"
)

func (w *World) spawnNPCs() {
	for _, spec := range w.cfg.NPCs {
		for i := 0; i < spec.Count; i++ {
			pos := Vec2{
				X: (w.rng.Float64()*2 - 1) * w.cfg.MapSize,
				Y: (w.rng.Float64()*2 - 1) * w.cfg.MapSize,
			}
			w.npcs = append(w.npcs, &NPC{
				ID:        fmt.Sprintf("npc_%s_%d", spec.Archetype, i+1),
				Archetype: spec.Archetype,
				Pos:       pos,
				Target:    pos, // forces a retarget on the first tick
				Speed:     w.cfg.NPCBaseSpeed * spec.SpeedMult,
				HP:        w.cfg.MaxHP,
			})
		}
	}
}

// stepNPCs advances every NPC one simulation tick and broadcasts the whole
// set as a single combined delta, bounding message volume regardless of NPC
// count. A broadcast failure never stops the simulation.
func (w *World) stepNPCs() {
	dt := w.cfg.NPCTick.Seconds()
	updates := make(map[string]protocol.NPCPos, len(w.npcs))

	for _, n := range w.npcs {
		dx := n.Target.X - n.Pos.X
		dy := n.Target.Y - n.Pos.Y
		dist := math.Hypot(dx, dy)

		if dist < w.cfg.NPCRetargetDist {
			n.Target = w.clampToBounds(Vec2{
				X: n.Pos.X + (w.rng.Float64()*2-1)*w.cfg.NPCWanderRadius,
				Y: n.Pos.Y + (w.rng.Float64()*2-1)*w.cfg.NPCWanderRadius,
			})
		} else {
			step := n.Speed * dt
			if step >= dist {
				n.Pos = n.Target
			} else {
				n.Pos.X += dx / dist * step
				n.Pos.Y += dy / dist * step
			}
		}
		updates[n.ID] = protocol.NPCPos{X: n.Pos.X, Y: n.Pos.Y}
	}

	if len(updates) == 0 {
		return
	}
	w.broadcastAll(protocol.NPCTickMsg{Type: protocol.TypeNPCTick, NPCs: updates})
}

func (w *World) clampToBounds(v Vec2) Vec2 {
	return Vec2{
		X: math.Max(-w.cfg.MapSize, math.Min(w.cfg.MapSize, v.X)),
		Y: math.Max(-w.cfg.MapSize, math.Min(w.cfg.MapSize, v.Y)),
	}
}
