package world

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"foxhollow.gg/internal/auth"
	"foxhollow.gg/internal/journal"
	"foxhollow.gg/internal/protocol"
)

func (w *World) handleConnect(req ConnectRequest) {
	id := w.newID()
	p := &Player{
		ID: id,
		Pos: Vec2{
			X: (w.rng.Float64()*2 - 1) * w.cfg.SpawnExtent,
			Y: (w.rng.Float64()*2 - 1) * w.cfg.SpawnExtent,
		},
		Nickname: "Unknown",
		Skin:     w.cfg.DefaultSkin,
		Color:    w.randomColor(),
		HP:       w.cfg.MaxHP,
		MaxHP:    w.cfg.MaxHP,
	}
	w.players[id] = p
	w.clients[id] = &clientState{Out: req.Out}

	// The full snapshot must be enqueued to the new connection before its
	// arrival is announced; per-connection FIFO then guarantees the client
	// never learns about itself from a broadcast first.
	w.sendTo(id, w.buildSnapshot(id))
	w.broadcastAll(protocol.PeerJoinedMsg{
		Type:   protocol.TypePeerJoined,
		ID:     id,
		Player: playerInfo(p),
	})

	w.record(journal.Entry{At: w.now().Unix(), Kind: journal.KindJoin, ConnID: id})
	req.Resp <- ConnectResponse{ID: id}
}

func (w *World) handleDisconnect(id string) {
	p, ok := w.players[id]
	if !ok {
		return
	}
	delete(w.players, id)
	delete(w.clients, id)
	w.broadcastAll(protocol.PeerLeftMsg{Type: protocol.TypePeerLeft, ID: id})
	w.record(journal.Entry{At: w.now().Unix(), Kind: journal.KindLeave, ConnID: id, Nickname: p.Nickname})
}

func (w *World) buildSnapshot(selfID string) protocol.WorldSnapshotMsg {
	peers := make(map[string]protocol.PlayerInfo, len(w.players))
	for id, p := range w.players {
		peers[id] = playerInfo(p)
	}

	npcs := make([]protocol.NPCInfo, 0, len(w.npcs))
	for _, n := range w.npcs {
		npcs = append(npcs, protocol.NPCInfo{ID: n.ID, Archetype: n.Archetype, X: n.Pos.X, Y: n.Pos.Y, HP: n.HP})
	}

	objects := make([]protocol.PlacedObjectInfo, 0, len(w.objects))
	for _, o := range w.objects {
		objects = append(objects, protocol.PlacedObjectInfo{ID: o.ID, Kind: o.Kind, X: o.X, Y: o.Y, Owner: o.Owner})
	}

	var guestbook []protocol.GuestbookEntryInfo
	entries, err := w.gw.RecentGuestbook(context.Background(), w.cfg.GuestbookRecent)
	if err != nil {
		// Snapshot still goes out; the guestbook panel just starts empty.
		w.log.Warnw("load guestbook for snapshot", "err", err)
	} else {
		for _, e := range entries {
			guestbook = append(guestbook, protocol.GuestbookEntryInfo{
				Nickname:  e.Nickname,
				Message:   e.Message,
				Timestamp: e.CreatedAt.Unix(),
			})
		}
	}

	return protocol.WorldSnapshotMsg{
		Type:      protocol.TypeWorldSnapshot,
		SelfID:    selfID,
		Peers:     peers,
		Trees:     w.trees,
		Objects:   objects,
		NPCs:      npcs,
		Guestbook: guestbook,
		Phase:     w.Phase(w.now()),
	}
}

func (w *World) handleJoin(connID string, msg protocol.JoinMsg) {
	p, ok := w.players[connID]
	if !ok {
		return // connect/disconnect race, not an error
	}

	nickname := strings.TrimSpace(msg.Nickname)
	if nickname == "" || len(nickname) > w.cfg.NicknameMaxChars {
		w.sendTo(connID, protocol.JoinRejectedMsg{
			Type:    protocol.TypeJoinRejected,
			Code:    protocol.ErrBadRequest,
			Message: "nickname must be 1-" + fmt.Sprint(w.cfg.NicknameMaxChars) + " characters",
		})
		return
	}
	skin := msg.Skin
	if skin == "" {
		skin = w.cfg.DefaultSkin
	}

	ctx := context.Background()
	accountID := int64(0)
	if msg.Token != "" {
		acct, err := w.gate.Verify(ctx, msg.Token, w.now())
		switch {
		case err == nil:
			// Server record wins over the client claim.
			nickname = acct.Nickname
			accountID = acct.ID
		case errors.Is(err, auth.ErrInvalidToken):
			// Degrade to an unauthenticated join.
		default:
			w.log.Warnw("verify join token", "err", err)
		}
	}

	for otherID, other := range w.players {
		if otherID == connID || !other.named {
			continue
		}
		if strings.EqualFold(other.Nickname, nickname) {
			w.sendTo(connID, protocol.JoinRejectedMsg{
				Type:    protocol.TypeJoinRejected,
				Code:    protocol.ErrNicknameTaken,
				Message: fmt.Sprintf("nickname %q is already in use", nickname),
			})
			return
		}
	}

	p.Nickname = nickname
	p.Skin = skin
	p.named = true
	if accountID != 0 {
		p.AccountID = accountID
		// Best effort: the join stands even if the skin write fails.
		if err := w.gw.UpdateAccountSkin(ctx, accountID, skin); err != nil {
			w.log.Warnw("persist skin", "account", accountID, "err", err)
		}
	}

	w.sendTo(connID, protocol.JoinAckMsg{Type: protocol.TypeJoinAck, Nickname: nickname, Skin: skin})
	w.broadcastAll(protocol.PeerJoinedMsg{Type: protocol.TypePeerJoined, ID: connID, Player: playerInfo(p)})
	w.record(journal.Entry{At: w.now().Unix(), Kind: journal.KindJoin, ConnID: connID, Nickname: nickname})
}

func playerInfo(p *Player) protocol.PlayerInfo {
	return protocol.PlayerInfo{
		ID:       p.ID,
		X:        p.Pos.X,
		Y:        p.Pos.Y,
		Nickname: p.Nickname,
		Skin:     p.Skin,
		Color:    p.Color,
		HP:       p.HP,
		MaxHP:    p.MaxHP,
	}
}
