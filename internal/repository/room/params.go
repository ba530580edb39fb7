package room

type CreateRoomParams struct {
	RoomId string
	HostId string
}

type AddMemberParams struct {
	RoomId   string
	MemberId string
}

type RemoveMemberParams struct {
	RoomId   string
	MemberId string
}

type SetHostParams struct {
	RoomId string
	HostId string
}

// SetVideoParams selects a video. Selecting always resets the transport state
// to paused at position zero.
type SetVideoParams struct {
	RoomId   string
	VideoRef *string
}

type SetPlayerStateParams struct {
	RoomId          string
	Playing         bool
	PositionSeconds float64
}
