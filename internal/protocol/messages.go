package protocol

// join (client -> server)
type JoinMsg struct {
	Type     string `json:"type"`
	Nickname string `json:"nickname"`
	Skin     string `json:"skin"`
	Token    string `json:"token,omitempty"`
}

// move (client -> server)
type MoveMsg struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// guestbook_post (client -> server)
type GuestbookPostMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// gesture (client -> server)
type GestureMsg struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
}

// PlayerInfo is the public view of one connected player.
type PlayerInfo struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Nickname string  `json:"nickname"`
	Skin     string  `json:"skin"`
	Color    string  `json:"color"`
	HP       int     `json:"hp"`
	MaxHP    int     `json:"max_hp"`
}

// NPCInfo is the public view of one server-simulated NPC.
type NPCInfo struct {
	ID        string  `json:"id"`
	Archetype string  `json:"archetype"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	HP        int     `json:"hp"`
}

// NPCPos is one entry of the combined per-tick NPC delta.
type NPCPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TreeInfo is a static world object. Trees are generated once and never move.
type TreeInfo struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlacedObjectInfo is a player-placed world object.
type PlacedObjectInfo struct {
	ID    int64   `json:"id"`
	Kind  string  `json:"kind"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Owner string  `json:"owner,omitempty"`
}

// GuestbookEntryInfo is one guestbook post as shown to clients.
type GuestbookEntryInfo struct {
	Nickname  string `json:"nickname"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// join_ack (server -> requester)
type JoinAckMsg struct {
	Type     string `json:"type"`
	Nickname string `json:"nickname"`
	Skin     string `json:"skin"`
}

// join_rejected (server -> requester)
type JoinRejectedMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// peer_joined (server -> all); also reused as the info-update broadcast
// after an accepted join, server record wins over the client claim.
type PeerJoinedMsg struct {
	Type   string     `json:"type"`
	ID     string     `json:"id"`
	Player PlayerInfo `json:"player"`
}

// peer_moved (server -> all)
type PeerMovedMsg struct {
	Type string  `json:"type"`
	ID   string  `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// peer_left (server -> all)
type PeerLeftMsg struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// guestbook_posted (server -> all)
type GuestbookPostedMsg struct {
	Type      string `json:"type"`
	Nickname  string `json:"nickname"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// gesture (server -> all except sender)
type GestureShownMsg struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Emoji string `json:"emoji"`
}

// npc_tick (server -> all): one combined delta per simulation tick.
type NPCTickMsg struct {
	Type string            `json:"type"`
	NPCs map[string]NPCPos `json:"npcs"`
}

// clock_update (server -> all)
type ClockUpdateMsg struct {
	Type  string  `json:"type"`
	Phase float64 `json:"phase"`
}

// world_snapshot (server -> the new connection, before its arrival is announced)
type WorldSnapshotMsg struct {
	Type      string                `json:"type"`
	SelfID    string                `json:"self_id"`
	Peers     map[string]PlayerInfo `json:"peers"`
	Trees     []TreeInfo            `json:"trees"`
	Objects   []PlacedObjectInfo    `json:"objects"`
	NPCs      []NPCInfo             `json:"npcs"`
	Guestbook []GuestbookEntryInfo  `json:"guestbook_recent"`
	Phase     float64               `json:"phase"`
}

// object_placed (server -> all)
type ObjectPlacedMsg struct {
	Type   string           `json:"type"`
	Object PlacedObjectInfo `json:"object"`
}
