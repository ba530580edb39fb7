package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/watchroom/server/internal/domain"
	"github.com/watchroom/server/internal/repository/room"
)

type ConnectParams struct {
	Conn domain.Conn
}

// Connect registers a freshly upgraded connection. The connection is not in
// any room until it sends a join.
func (s *service) Connect(ctx context.Context, params *ConnectParams) error {
	if err := s.connRepo.Add(params.Conn); err != nil {
		return fmt.Errorf("failed to add connection: %w", err)
	}

	s.logger.DebugContext(ctx, "connection registered", "conn_id", params.Conn.Id())
	return nil
}

type JoinRoomParams struct {
	ConnId   string
	RoomName string
}

type JoinRoomResponse struct {
	RoomState RoomState
}

// JoinRoom moves the connection into the named room, creating the room with
// the joiner as host when it does not exist yet. The joiner receives a
// directed room-state snapshot, then the whole room (joiner included) gets a
// new-host broadcast; the two must agree on the host id. Joining implicitly
// leaves the previous room, which for a departing host triggers the same
// failover as a disconnect would.
func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	prevRoomId, err := s.roomRepo.GetMemberRoomId(ctx, params.ConnId)
	switch {
	case err == nil:
		if err := s.leaveRoom(ctx, params.ConnId, prevRoomId); err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to leave previous room: %w", err)
		}
	case !errors.Is(err, room.ErrMemberNotFound):
		return JoinRoomResponse{}, fmt.Errorf("failed to get member room: %w", err)
	}

	unlock := s.lockRoom(params.RoomName)
	defer unlock()

	if _, err := s.roomRepo.GetRoom(ctx, params.RoomName); err != nil {
		if !errors.Is(err, room.ErrRoomNotFound) {
			return JoinRoomResponse{}, fmt.Errorf("failed to get room: %w", err)
		}

		if err := s.roomRepo.CreateRoom(ctx, &room.CreateRoomParams{
			RoomId: params.RoomName,
			HostId: params.ConnId,
		}); err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to create room: %w", err)
		}

		s.logger.InfoContext(ctx, "room created", "room_id", params.RoomName, "host_id", params.ConnId)
	}

	if err := s.roomRepo.AddMember(ctx, &room.AddMemberParams{
		RoomId:   params.RoomName,
		MemberId: params.ConnId,
	}); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to add member: %w", err)
	}

	state, err := s.roomRepo.GetRoom(ctx, params.RoomName)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	snapshot := snapshotOf(state)

	if conn, err := s.connRepo.GetConn(params.ConnId); err == nil {
		if err := conn.Send(&Output{Type: EventRoomState, Payload: snapshot}); err != nil {
			s.logger.DebugContext(ctx, "failed to send room state", "conn_id", params.ConnId, "error", err)
		}
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomName, "")
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get conns: %w", err)
	}
	s.broadcast(ctx, conns, &Output{Type: EventNewHost, Payload: state.HostId})

	s.logger.InfoContext(ctx, "member joined", "room_id", params.RoomName, "conn_id", params.ConnId)

	return JoinRoomResponse{RoomState: snapshot}, nil
}

type DisconnectParams struct {
	ConnId string
}

// Disconnect handles a closed channel: the connection leaves its room (with
// host failover if it was the host) and is forgotten.
func (s *service) Disconnect(ctx context.Context, params *DisconnectParams) error {
	defer func() {
		if err := s.connRepo.Remove(params.ConnId); err != nil {
			s.logger.DebugContext(ctx, "failed to remove connection", "conn_id", params.ConnId, "error", err)
		}
	}()

	roomId, err := s.roomRepo.GetMemberRoomId(ctx, params.ConnId)
	if err != nil {
		if errors.Is(err, room.ErrMemberNotFound) {
			return nil
		}

		return fmt.Errorf("failed to get member room: %w", err)
	}

	if err := s.leaveRoom(ctx, params.ConnId, roomId); err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	s.logger.InfoContext(ctx, "member disconnected", "room_id", roomId, "conn_id", params.ConnId)
	return nil
}

// leaveRoom drops the member from the room. The last member leaving deletes
// the room; a leaving host hands authority to the first-joined remaining
// member and the room is reset to "no video selected" rather than trusting
// mid-stream state to survive the handoff. Remaining members are told
// new-host first, video-set(null) second.
func (s *service) leaveRoom(ctx context.Context, connId, roomId string) error {
	unlock := s.lockRoom(roomId)
	defer unlock()

	state, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return nil
		}

		return fmt.Errorf("failed to get room: %w", err)
	}

	if err := s.roomRepo.RemoveMember(ctx, &room.RemoveMemberParams{
		RoomId:   roomId,
		MemberId: connId,
	}); err != nil && !errors.Is(err, room.ErrMemberNotFound) {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	memberIds, err := s.roomRepo.GetMemberIds(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to get member ids: %w", err)
	}

	if len(memberIds) == 0 {
		if err := s.roomRepo.DeleteRoom(ctx, roomId); err != nil {
			return fmt.Errorf("failed to delete room: %w", err)
		}

		s.logger.InfoContext(ctx, "empty room deleted", "room_id", roomId)
		return nil
	}

	if state.HostId != connId {
		return nil
	}

	successorId := memberIds[0]
	if err := s.roomRepo.SetHost(ctx, &room.SetHostParams{
		RoomId: roomId,
		HostId: successorId,
	}); err != nil {
		return fmt.Errorf("failed to set host: %w", err)
	}

	if err := s.roomRepo.SetVideo(ctx, &room.SetVideoParams{
		RoomId:   roomId,
		VideoRef: nil,
	}); err != nil {
		return fmt.Errorf("failed to reset video: %w", err)
	}

	conns, err := s.getConnsByRoomId(ctx, roomId, "")
	if err != nil {
		return fmt.Errorf("failed to get conns: %w", err)
	}
	s.broadcast(ctx, conns, &Output{Type: EventNewHost, Payload: successorId})
	s.broadcast(ctx, conns, &Output{Type: EventVideoSet, Payload: (*string)(nil)})

	s.logger.InfoContext(ctx, "host failover", "room_id", roomId, "old_host_id", connId, "new_host_id", successorId)
	return nil
}
