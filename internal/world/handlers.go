package world

import (
	"context"
	"encoding/json"
	"strings"

	"foxhollow.gg/internal/journal"
	"foxhollow.gg/internal/protocol"
	"foxhollow.gg/internal/store"
)

// dispatch routes one raw client event. Events for ids that are no longer
// connected are dropped silently: that is the normal disconnect/event race.
func (w *World) dispatch(env EventEnvelope) {
	if _, ok := w.players[env.ConnID]; !ok {
		return
	}
	switch env.Type {
	case protocol.TypeJoin:
		var msg protocol.JoinMsg
		if json.Unmarshal(env.Data, &msg) != nil {
			w.rejectBadPayload(env.ConnID)
			return
		}
		w.handleJoin(env.ConnID, msg)
	case protocol.TypeMove:
		var msg protocol.MoveMsg
		if json.Unmarshal(env.Data, &msg) != nil {
			w.rejectBadPayload(env.ConnID)
			return
		}
		w.handleMove(env.ConnID, msg)
	case protocol.TypeGuestbookPost:
		var msg protocol.GuestbookPostMsg
		if json.Unmarshal(env.Data, &msg) != nil {
			w.rejectBadPayload(env.ConnID)
			return
		}
		w.handleGuestbookPost(env.ConnID, msg)
	case protocol.TypeGesture:
		var msg protocol.GestureMsg
		if json.Unmarshal(env.Data, &msg) != nil {
			w.rejectBadPayload(env.ConnID)
			return
		}
		w.handleGesture(env.ConnID, msg)
	}
}

func (w *World) rejectBadPayload(connID string) {
	w.sendTo(connID, protocol.JoinRejectedMsg{
		Type:    protocol.TypeJoinRejected,
		Code:    protocol.ErrBadRequest,
		Message: "malformed payload",
	})
}

// handleMove overwrites the sender's position verbatim. The server does not
// range- or speed-check client coordinates; see the tuning notes in DESIGN.md.
func (w *World) handleMove(connID string, msg protocol.MoveMsg) {
	p, ok := w.players[connID]
	if !ok {
		return
	}
	p.Pos = Vec2{X: msg.X, Y: msg.Y}
	w.broadcastAll(protocol.PeerMovedMsg{
		Type: protocol.TypePeerMoved,
		ID:   connID,
		X:    msg.X,
		Y:    msg.Y,
	})
}

// handleGesture is transient: broadcast to everyone but the sender, nothing
// persisted.
func (w *World) handleGesture(connID string, msg protocol.GestureMsg) {
	if _, ok := w.players[connID]; !ok {
		return
	}
	if msg.Emoji == "" {
		return
	}
	w.broadcastExcept(connID, protocol.GestureShownMsg{
		Type:  protocol.TypeGestureShown,
		ID:    connID,
		Emoji: msg.Emoji,
	})
}

// handleGuestbookPost persists first and broadcasts only after the write is
// confirmed, so clients never see a post that did not land.
func (w *World) handleGuestbookPost(connID string, msg protocol.GuestbookPostMsg) {
	p, ok := w.players[connID]
	if !ok {
		return
	}
	text := strings.TrimSpace(msg.Message)
	if text == "" || len(text) > w.cfg.GuestbookMaxChars {
		w.rejectBadPayload(connID)
		return
	}

	now := w.now()
	if err := w.gw.InsertGuestbookPost(context.Background(), p.Nickname, text, now); err != nil {
		w.log.Warnw("guestbook write failed", "conn", connID, "err", err)
		w.sendTo(connID, protocol.JoinRejectedMsg{
			Type:    protocol.TypeJoinRejected,
			Code:    protocol.ErrInternal,
			Message: "could not save guestbook post",
		})
		return
	}
	w.broadcastAll(protocol.GuestbookPostedMsg{
		Type:      protocol.TypeGuestbookPosted,
		Nickname:  p.Nickname,
		Message:   text,
		Timestamp: now.Unix(),
	})
	w.record(journal.Entry{At: now.Unix(), Kind: journal.KindGuestbook, ConnID: connID, Nickname: p.Nickname, Message: text})
}

func (w *World) handleObjectPlaced(obj store.PlacedObject) {
	w.objects = append(w.objects, obj)
	w.broadcastAll(protocol.ObjectPlacedMsg{
		Type:   protocol.TypeObjectPlaced,
		Object: protocol.PlacedObjectInfo{ID: obj.ID, Kind: obj.Kind, X: obj.X, Y: obj.Y, Owner: obj.Owner},
	})
}
