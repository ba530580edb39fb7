package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/watchroom/server/internal/repository/room"
)

const (
	roomsSetKey = "rooms"

	videoRefField        = "video_ref"
	playingField         = "playing"
	positionSecondsField = "position_seconds"
	hostIdField          = "host_id"
)

// repo keeps the room registry in redis. Membership is a redis list per room
// so join order, and with it failover successor selection, stays
// deterministic.
type repo struct {
	rc     *redis.Client
	logger *slog.Logger
}

func NewRepo(rc *redis.Client, logger *slog.Logger) *repo {
	return &repo{
		rc:     rc,
		logger: logger,
	}
}

func roomKey(roomId string) string {
	return "room:" + roomId
}

func roomMembersKey(roomId string) string {
	return "room:" + roomId + ":members"
}

func memberRoomKey(memberId string) string {
	return "member:" + memberId + ":room"
}

func (r *repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) error {
	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, roomKey(params.RoomId),
		playingField, "0",
		positionSecondsField, "0",
		hostIdField, params.HostId,
	)
	pipe.SAdd(ctx, roomsSetKey, params.RoomId)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	r.logger.DebugContext(ctx, "room created", "room_id", params.RoomId, "host_id", params.HostId)
	return nil
}

func (r *repo) GetRoom(ctx context.Context, roomId string) (room.Room, error) {
	fields, err := r.rc.HGetAll(ctx, roomKey(roomId)).Result()
	if err != nil {
		return room.Room{}, fmt.Errorf("failed to get room: %w", err)
	}
	if len(fields) == 0 {
		return room.Room{}, room.ErrRoomNotFound
	}

	playing, err := strconv.ParseBool(fields[playingField])
	if err != nil {
		return room.Room{}, fmt.Errorf("failed to parse playing field: %w", err)
	}

	positionSeconds, err := strconv.ParseFloat(fields[positionSecondsField], 64)
	if err != nil {
		return room.Room{}, fmt.Errorf("failed to parse position field: %w", err)
	}

	state := room.Room{
		Playing:         playing,
		PositionSeconds: positionSeconds,
		HostId:          fields[hostIdField],
	}
	if videoRef, ok := fields[videoRefField]; ok {
		state.VideoRef = &videoRef
	}

	return state, nil
}

func (r *repo) DeleteRoom(ctx context.Context, roomId string) error {
	exists, err := r.rc.Exists(ctx, roomKey(roomId)).Result()
	if err != nil {
		return fmt.Errorf("failed to check room existence: %w", err)
	}
	if exists == 0 {
		return room.ErrRoomNotFound
	}

	memberIds, err := r.rc.LRange(ctx, roomMembersKey(roomId), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to get members: %w", err)
	}

	pipe := r.rc.TxPipeline()
	for _, memberId := range memberIds {
		pipe.Del(ctx, memberRoomKey(memberId))
	}
	pipe.Del(ctx, roomKey(roomId), roomMembersKey(roomId))
	pipe.SRem(ctx, roomsSetKey, roomId)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	r.logger.DebugContext(ctx, "room deleted", "room_id", roomId)
	return nil
}

func (r *repo) AddMember(ctx context.Context, params *room.AddMemberParams) error {
	exists, err := r.rc.Exists(ctx, roomKey(params.RoomId)).Result()
	if err != nil {
		return fmt.Errorf("failed to check room existence: %w", err)
	}
	if exists == 0 {
		return room.ErrRoomNotFound
	}

	pipe := r.rc.TxPipeline()
	pipe.RPush(ctx, roomMembersKey(params.RoomId), params.MemberId)
	pipe.Set(ctx, memberRoomKey(params.MemberId), params.RoomId, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	return nil
}

func (r *repo) RemoveMember(ctx context.Context, params *room.RemoveMemberParams) error {
	removed, err := r.rc.LRem(ctx, roomMembersKey(params.RoomId), 1, params.MemberId).Result()
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if removed == 0 {
		return room.ErrMemberNotFound
	}

	if err := r.rc.Del(ctx, memberRoomKey(params.MemberId)).Err(); err != nil {
		return fmt.Errorf("failed to remove member room mapping: %w", err)
	}

	return nil
}

// GetMemberIds returns the room's member ids in join order.
func (r *repo) GetMemberIds(ctx context.Context, roomId string) ([]string, error) {
	exists, err := r.rc.Exists(ctx, roomKey(roomId)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check room existence: %w", err)
	}
	if exists == 0 {
		return nil, room.ErrRoomNotFound
	}

	memberIds, err := r.rc.LRange(ctx, roomMembersKey(roomId), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}

	return memberIds, nil
}

func (r *repo) GetMemberRoomId(ctx context.Context, memberId string) (string, error) {
	roomId, err := r.rc.Get(ctx, memberRoomKey(memberId)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", room.ErrMemberNotFound
		}

		return "", fmt.Errorf("failed to get member room: %w", err)
	}

	return roomId, nil
}

func (r *repo) SetHost(ctx context.Context, params *room.SetHostParams) error {
	exists, err := r.rc.Exists(ctx, roomKey(params.RoomId)).Result()
	if err != nil {
		return fmt.Errorf("failed to check room existence: %w", err)
	}
	if exists == 0 {
		return room.ErrRoomNotFound
	}

	if err := r.rc.HSet(ctx, roomKey(params.RoomId), hostIdField, params.HostId).Err(); err != nil {
		return fmt.Errorf("failed to set host: %w", err)
	}

	return nil
}

func (r *repo) SetVideo(ctx context.Context, params *room.SetVideoParams) error {
	exists, err := r.rc.Exists(ctx, roomKey(params.RoomId)).Result()
	if err != nil {
		return fmt.Errorf("failed to check room existence: %w", err)
	}
	if exists == 0 {
		return room.ErrRoomNotFound
	}

	pipe := r.rc.TxPipeline()
	if params.VideoRef != nil {
		pipe.HSet(ctx, roomKey(params.RoomId), videoRefField, *params.VideoRef)
	} else {
		pipe.HDel(ctx, roomKey(params.RoomId), videoRefField)
	}
	pipe.HSet(ctx, roomKey(params.RoomId), playingField, "0", positionSecondsField, "0")

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set video: %w", err)
	}

	return nil
}

func (r *repo) SetPlayerState(ctx context.Context, params *room.SetPlayerStateParams) error {
	exists, err := r.rc.Exists(ctx, roomKey(params.RoomId)).Result()
	if err != nil {
		return fmt.Errorf("failed to check room existence: %w", err)
	}
	if exists == 0 {
		return room.ErrRoomNotFound
	}

	if err := r.rc.HSet(ctx, roomKey(params.RoomId),
		playingField, strconv.FormatBool(params.Playing),
		positionSecondsField, strconv.FormatFloat(params.PositionSeconds, 'f', -1, 64),
	).Err(); err != nil {
		return fmt.Errorf("failed to set player state: %w", err)
	}

	return nil
}

func (r *repo) RoomsCount(ctx context.Context) (int, error) {
	count, err := r.rc.SCard(ctx, roomsSetKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count rooms: %w", err)
	}

	return int(count), nil
}
