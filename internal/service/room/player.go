package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/watchroom/server/internal/repository/room"
)

type BecomeHostParams struct {
	SenderId string
}

type BecomeHostResponse struct {
	RoomState RoomState
}

// BecomeHost reassigns host authority to the sender unconditionally: any
// member may seize it, no prior-host consent required. Authority is
// cooperative, not access-controlled beyond room membership.
func (s *service) BecomeHost(ctx context.Context, params *BecomeHostParams) (BecomeHostResponse, error) {
	roomId, err := s.roomRepo.GetMemberRoomId(ctx, params.SenderId)
	if err != nil {
		if errors.Is(err, room.ErrMemberNotFound) {
			return BecomeHostResponse{}, ErrNoRoom
		}

		return BecomeHostResponse{}, fmt.Errorf("failed to get member room: %w", err)
	}

	unlock := s.lockRoom(roomId)
	defer unlock()

	if err := s.roomRepo.SetHost(ctx, &room.SetHostParams{
		RoomId: roomId,
		HostId: params.SenderId,
	}); err != nil {
		return BecomeHostResponse{}, fmt.Errorf("failed to set host: %w", err)
	}

	state, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		return BecomeHostResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	conns, err := s.getConnsByRoomId(ctx, roomId, "")
	if err != nil {
		return BecomeHostResponse{}, fmt.Errorf("failed to get conns: %w", err)
	}
	s.broadcast(ctx, conns, &Output{Type: EventNewHost, Payload: params.SenderId})

	s.logger.InfoContext(ctx, "host seized", "room_id", roomId, "host_id", params.SenderId)

	return BecomeHostResponse{RoomState: snapshotOf(state)}, nil
}

type SetVideoParams struct {
	SenderId string
	VideoRef string
}

type SetVideoResponse struct {
	RoomState RoomState
}

// SetVideo selects a new video and resets the transport state. Unlike the
// play/pause/seek notifications, video-set reaches the sender too: the host's
// own player must also load the new source.
func (s *service) SetVideo(ctx context.Context, params *SetVideoParams) (SetVideoResponse, error) {
	roomId, _, unlock, err := s.beginHostCommand(ctx, params.SenderId)
	if err != nil {
		return SetVideoResponse{}, err
	}
	defer unlock()

	videoRef := params.VideoRef
	if err := s.roomRepo.SetVideo(ctx, &room.SetVideoParams{
		RoomId:   roomId,
		VideoRef: &videoRef,
	}); err != nil {
		return SetVideoResponse{}, fmt.Errorf("failed to set video: %w", err)
	}

	state, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		return SetVideoResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	conns, err := s.getConnsByRoomId(ctx, roomId, "")
	if err != nil {
		return SetVideoResponse{}, fmt.Errorf("failed to get conns: %w", err)
	}
	s.broadcast(ctx, conns, &Output{Type: EventVideoSet, Payload: videoRef})

	s.logger.InfoContext(ctx, "video set", "room_id", roomId, "video_ref", videoRef)

	return SetVideoResponse{RoomState: snapshotOf(state)}, nil
}

type PlayParams struct {
	SenderId        string
	PositionSeconds float64
}

type PlayResponse struct {
	RoomState RoomState
}

// Play starts playback at the given position. The sender has already applied
// the change locally, so only the followers get the notice.
func (s *service) Play(ctx context.Context, params *PlayParams) (PlayResponse, error) {
	state, err := s.updatePlayer(ctx, params.SenderId, EventPlayed, playerUpdate{
		playing:         true,
		positionSeconds: params.PositionSeconds,
	})
	if err != nil {
		return PlayResponse{}, err
	}

	return PlayResponse{RoomState: state}, nil
}

type PauseParams struct {
	SenderId        string
	PositionSeconds float64
}

type PauseResponse struct {
	RoomState RoomState
}

func (s *service) Pause(ctx context.Context, params *PauseParams) (PauseResponse, error) {
	state, err := s.updatePlayer(ctx, params.SenderId, EventPaused, playerUpdate{
		playing:         false,
		positionSeconds: params.PositionSeconds,
	})
	if err != nil {
		return PauseResponse{}, err
	}

	return PauseResponse{RoomState: state}, nil
}

type SeekParams struct {
	SenderId        string
	PositionSeconds float64
}

type SeekResponse struct {
	RoomState RoomState
}

// Seek moves the playback position without touching the playing flag.
func (s *service) Seek(ctx context.Context, params *SeekParams) (SeekResponse, error) {
	state, err := s.updatePlayer(ctx, params.SenderId, EventSeeked, playerUpdate{
		keepPlaying:     true,
		positionSeconds: params.PositionSeconds,
	})
	if err != nil {
		return SeekResponse{}, err
	}

	return SeekResponse{RoomState: state}, nil
}

type playerUpdate struct {
	playing         bool
	keepPlaying     bool
	positionSeconds float64
}

// updatePlayer runs one guarded player command: verify host authority, apply
// the state change and notify everyone but the sender, all under the room
// lock.
func (s *service) updatePlayer(ctx context.Context, senderId, eventType string, update playerUpdate) (RoomState, error) {
	roomId, state, unlock, err := s.beginHostCommand(ctx, senderId)
	if err != nil {
		return RoomState{}, err
	}
	defer unlock()

	playing := update.playing
	if update.keepPlaying {
		playing = state.Playing
	}

	if err := s.roomRepo.SetPlayerState(ctx, &room.SetPlayerStateParams{
		RoomId:          roomId,
		Playing:         playing,
		PositionSeconds: update.positionSeconds,
	}); err != nil {
		return RoomState{}, fmt.Errorf("failed to set player state: %w", err)
	}

	state.Playing = playing
	state.PositionSeconds = update.positionSeconds

	conns, err := s.getConnsByRoomId(ctx, roomId, senderId)
	if err != nil {
		return RoomState{}, fmt.Errorf("failed to get conns: %w", err)
	}
	s.broadcast(ctx, conns, &Output{Type: eventType, Payload: update.positionSeconds})

	return snapshotOf(state), nil
}
