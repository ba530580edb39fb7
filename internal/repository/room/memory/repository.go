package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/watchroom/server/internal/repository/room"
)

type roomRecord struct {
	state     room.Room
	memberIds []string
}

// repo is the process-local room registry. Members are kept in join order so
// successor selection on host failover stays deterministic.
type repo struct {
	rooms      map[string]*roomRecord
	memberRoom map[string]string
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		rooms:      make(map[string]*roomRecord),
		memberRoom: make(map[string]string),
		logger:     logger,
	}
}

func (r *repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rooms[params.RoomId] = &roomRecord{
		state: room.Room{
			VideoRef:        nil,
			Playing:         false,
			PositionSeconds: 0,
			HostId:          params.HostId,
		},
	}

	r.logger.DebugContext(ctx, "room created", "room_id", params.RoomId, "host_id", params.HostId)
	return nil
}

func (r *repo) GetRoom(ctx context.Context, roomId string) (room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.rooms[roomId]
	if !ok {
		return room.Room{}, room.ErrRoomNotFound
	}

	return rec.state, nil
}

func (r *repo) DeleteRoom(ctx context.Context, roomId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[roomId]
	if !ok {
		return room.ErrRoomNotFound
	}

	for _, memberId := range rec.memberIds {
		delete(r.memberRoom, memberId)
	}
	delete(r.rooms, roomId)

	r.logger.DebugContext(ctx, "room deleted", "room_id", roomId)
	return nil
}

func (r *repo) AddMember(ctx context.Context, params *room.AddMemberParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[params.RoomId]
	if !ok {
		return room.ErrRoomNotFound
	}

	rec.memberIds = append(rec.memberIds, params.MemberId)
	r.memberRoom[params.MemberId] = params.RoomId

	return nil
}

func (r *repo) RemoveMember(ctx context.Context, params *room.RemoveMemberParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[params.RoomId]
	if !ok {
		return room.ErrRoomNotFound
	}

	for i, memberId := range rec.memberIds {
		if memberId == params.MemberId {
			rec.memberIds = append(rec.memberIds[:i], rec.memberIds[i+1:]...)
			delete(r.memberRoom, params.MemberId)
			return nil
		}
	}

	return room.ErrMemberNotFound
}

// GetMemberIds returns the room's member ids in join order.
func (r *repo) GetMemberIds(ctx context.Context, roomId string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.rooms[roomId]
	if !ok {
		return nil, room.ErrRoomNotFound
	}

	memberIds := make([]string, len(rec.memberIds))
	copy(memberIds, rec.memberIds)

	return memberIds, nil
}

func (r *repo) GetMemberRoomId(ctx context.Context, memberId string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomId, ok := r.memberRoom[memberId]
	if !ok {
		return "", room.ErrMemberNotFound
	}

	return roomId, nil
}

func (r *repo) SetHost(ctx context.Context, params *room.SetHostParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[params.RoomId]
	if !ok {
		return room.ErrRoomNotFound
	}

	rec.state.HostId = params.HostId

	return nil
}

func (r *repo) SetVideo(ctx context.Context, params *room.SetVideoParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[params.RoomId]
	if !ok {
		return room.ErrRoomNotFound
	}

	rec.state.VideoRef = params.VideoRef
	rec.state.Playing = false
	rec.state.PositionSeconds = 0

	return nil
}

func (r *repo) SetPlayerState(ctx context.Context, params *room.SetPlayerStateParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rooms[params.RoomId]
	if !ok {
		return room.ErrRoomNotFound
	}

	rec.state.Playing = params.Playing
	rec.state.PositionSeconds = params.PositionSeconds

	return nil
}

func (r *repo) RoomsCount(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms), nil
}
