package room

// Room is the per-room transport state. VideoRef is nil while no video is
// selected. PositionSeconds is authoritative only at the instant the host
// last set it. HostId always identifies a currently-joined member while the
// room is non-empty.
type Room struct {
	VideoRef        *string
	Playing         bool
	PositionSeconds float64
	HostId          string
}
