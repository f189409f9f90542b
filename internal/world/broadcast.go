package world

import "encoding/json"

// The bus has exactly two addressing primitives: everyone, and everyone but
// the sender. Delivery is best-effort per connection; a full or dead outbox
// never blocks the world goroutine or the other recipients.

func (w *World) broadcastAll(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		w.log.Errorw("marshal broadcast", "err", err)
		return
	}
	for _, out := range w.outboxes("") {
		sendLatest(out, b)
	}
}

func (w *World) broadcastExcept(senderID string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		w.log.Errorw("marshal broadcast", "err", err)
		return
	}
	for _, out := range w.outboxes(senderID) {
		sendLatest(out, b)
	}
}

func (w *World) sendTo(connID string, v any) {
	c, ok := w.clients[connID]
	if !ok {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		w.log.Errorw("marshal send", "err", err)
		return
	}
	sendLatest(c.Out, b)
}

// outboxes snapshots the recipient set so a disconnect occurring mid-delivery
// cannot disturb iteration.
func (w *World) outboxes(skipID string) []chan []byte {
	outs := make([]chan []byte, 0, len(w.clients))
	for id, c := range w.clients {
		if id == skipID {
			continue
		}
		outs = append(outs, c.Out)
	}
	return outs
}

// sendLatest enqueues without blocking. If the channel is full, the oldest
// queued message is dropped to make room; slow clients see fresh state.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
