package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/watchroom/server/internal/domain"
	"github.com/watchroom/server/internal/repository/room"
)

// getConnsByRoomId returns the live connections of a room's members in join
// order. excludeId, when non-empty, drops the sender from the audience.
// Members without a live connection are skipped: a dropped recipient is a
// channel-level failure, not an application-level one.
func (s *service) getConnsByRoomId(ctx context.Context, roomId, excludeId string) ([]domain.Conn, error) {
	memberIds, err := s.roomRepo.GetMemberIds(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	conns := make([]domain.Conn, 0, len(memberIds))
	for _, memberId := range memberIds {
		if memberId == excludeId {
			continue
		}

		conn, err := s.connRepo.GetConn(memberId)
		if err != nil {
			s.logger.DebugContext(ctx, "skipping member without live connection", "member_id", memberId)
			continue
		}

		conns = append(conns, conn)
	}

	return conns, nil
}

// broadcast delivers msg to every conn, best effort. A failed send only
// costs that one recipient.
func (s *service) broadcast(ctx context.Context, conns []domain.Conn, msg *Output) {
	for _, conn := range conns {
		if err := conn.Send(msg); err != nil {
			s.logger.DebugContext(ctx, "failed to send message", "conn_id", conn.Id(), "type", msg.Type, "error", err)
		}
	}
}

// beginHostCommand resolves the sender's room, locks it and verifies host
// authority. On success the caller owns the returned unlock; on failure the
// lock is already released.
func (s *service) beginHostCommand(ctx context.Context, senderId string) (string, room.Room, func(), error) {
	roomId, err := s.roomRepo.GetMemberRoomId(ctx, senderId)
	if err != nil {
		if errors.Is(err, room.ErrMemberNotFound) {
			return "", room.Room{}, nil, ErrNoRoom
		}

		return "", room.Room{}, nil, fmt.Errorf("failed to get member room: %w", err)
	}

	unlock := s.lockRoom(roomId)

	state, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		unlock()
		if errors.Is(err, room.ErrRoomNotFound) {
			return "", room.Room{}, nil, ErrNoRoom
		}

		return "", room.Room{}, nil, fmt.Errorf("failed to get room: %w", err)
	}

	if state.HostId != senderId {
		unlock()
		return "", room.Room{}, nil, ErrNotHost
	}

	return roomId, state, unlock, nil
}

func snapshotOf(state room.Room) RoomState {
	return RoomState{
		VideoRef:        state.VideoRef,
		Playing:         state.Playing,
		PositionSeconds: state.PositionSeconds,
		HostId:          state.HostId,
	}
}
