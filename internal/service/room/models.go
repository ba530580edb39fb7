package room

// Server-originated event types.
const (
	EventRoomState   = "room-state"
	EventNewHost     = "new-host"
	EventVideoSet    = "video-set"
	EventPlayed      = "played"
	EventPaused      = "paused"
	EventSeeked      = "seeked"
	EventChatMessage = "chat-message"
)

// Output is the envelope for every server-originated websocket message.
type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// RoomState is the full room snapshot sent to a joiner. VideoRef is null
// while no video is selected.
type RoomState struct {
	VideoRef        *string `json:"videoRef"`
	Playing         bool    `json:"playing"`
	PositionSeconds float64 `json:"positionSeconds"`
	HostId          string  `json:"hostId"`
}

type ChatMessage struct {
	SenderId string `json:"senderId"`
	Text     string `json:"text"`
}
