package protocol

import "encoding/json"

// Client -> server event types.
const (
	TypeJoin          = "join"
	TypeMove          = "move"
	TypeGuestbookPost = "guestbook_post"
	TypeGesture       = "gesture"
)

// Server -> client event types.
const (
	TypeJoinAck         = "join_ack"
	TypeJoinRejected    = "join_rejected"
	TypePeerJoined      = "peer_joined"
	TypePeerMoved       = "peer_moved"
	TypePeerLeft        = "peer_left"
	TypeGuestbookPosted = "guestbook_posted"
	TypeGestureShown    = "gesture"
	TypeNPCTick         = "npc_tick"
	TypeClockUpdate     = "clock_update"
	TypeWorldSnapshot   = "world_snapshot"
	TypeObjectPlaced    = "object_placed"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// IsClientEvent reports whether t is an event type clients may send.
func IsClientEvent(t string) bool {
	switch t {
	case TypeJoin, TypeMove, TypeGuestbookPost, TypeGesture:
		return true
	}
	return false
}
