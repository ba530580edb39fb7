package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchroom/server/internal/repository/room"
)

func newTestRepo(t *testing.T) *repo {
	t.Helper()

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func strPtr(s string) *string { return &s }

func TestCreateAndGetRoom(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.GetRoom(ctx, "movie-night")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	require.NoError(t, r.CreateRoom(ctx, &room.CreateRoomParams{RoomId: "movie-night", HostId: "host"}))

	state, err := r.GetRoom(ctx, "movie-night")
	require.NoError(t, err)
	assert.Equal(t, room.Room{HostId: "host"}, state)
}

func TestMembers_JoinOrderIsPreserved(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.CreateRoom(ctx, &room.CreateRoomParams{RoomId: "movie-night", HostId: "a"}))
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.AddMember(ctx, &room.AddMemberParams{RoomId: "movie-night", MemberId: id}))
	}

	memberIds, err := r.GetMemberIds(ctx, "movie-night")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, memberIds)

	require.NoError(t, r.RemoveMember(ctx, &room.RemoveMemberParams{RoomId: "movie-night", MemberId: "b"}))

	memberIds, err = r.GetMemberIds(ctx, "movie-night")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, memberIds)

	err = r.RemoveMember(ctx, &room.RemoveMemberParams{RoomId: "movie-night", MemberId: "b"})
	assert.ErrorIs(t, err, room.ErrMemberNotFound)
}

func TestGetMemberRoomId(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.CreateRoom(ctx, &room.CreateRoomParams{RoomId: "movie-night", HostId: "a"}))
	require.NoError(t, r.AddMember(ctx, &room.AddMemberParams{RoomId: "movie-night", MemberId: "a"}))

	roomId, err := r.GetMemberRoomId(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "movie-night", roomId)

	require.NoError(t, r.RemoveMember(ctx, &room.RemoveMemberParams{RoomId: "movie-night", MemberId: "a"}))

	_, err = r.GetMemberRoomId(ctx, "a")
	assert.ErrorIs(t, err, room.ErrMemberNotFound)
}

func TestDeleteRoom_ForgetsMembers(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.CreateRoom(ctx, &room.CreateRoomParams{RoomId: "movie-night", HostId: "a"}))
	require.NoError(t, r.AddMember(ctx, &room.AddMemberParams{RoomId: "movie-night", MemberId: "a"}))

	require.NoError(t, r.DeleteRoom(ctx, "movie-night"))

	_, err := r.GetRoom(ctx, "movie-night")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
	_, err = r.GetMemberRoomId(ctx, "a")
	assert.ErrorIs(t, err, room.ErrMemberNotFound)

	assert.ErrorIs(t, r.DeleteRoom(ctx, "movie-night"), room.ErrRoomNotFound)
}

func TestSetVideo_ResetsTransport(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.CreateRoom(ctx, &room.CreateRoomParams{RoomId: "movie-night", HostId: "a"}))
	require.NoError(t, r.SetPlayerState(ctx, &room.SetPlayerStateParams{RoomId: "movie-night", Playing: true, PositionSeconds: 42}))

	require.NoError(t, r.SetVideo(ctx, &room.SetVideoParams{RoomId: "movie-night", VideoRef: strPtr("path/a.mp4")}))

	state, err := r.GetRoom(ctx, "movie-night")
	require.NoError(t, err)
	require.NotNil(t, state.VideoRef)
	assert.Equal(t, "path/a.mp4", *state.VideoRef)
	assert.False(t, state.Playing)
	assert.Equal(t, float64(0), state.PositionSeconds)

	// a nil ref clears the hash field entirely
	require.NoError(t, r.SetVideo(ctx, &room.SetVideoParams{RoomId: "movie-night", VideoRef: nil}))

	state, err = r.GetRoom(ctx, "movie-night")
	require.NoError(t, err)
	assert.Nil(t, state.VideoRef)
}

func TestSetHostAndPlayerState(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.CreateRoom(ctx, &room.CreateRoomParams{RoomId: "movie-night", HostId: "a"}))

	require.NoError(t, r.SetHost(ctx, &room.SetHostParams{RoomId: "movie-night", HostId: "b"}))
	require.NoError(t, r.SetPlayerState(ctx, &room.SetPlayerStateParams{RoomId: "movie-night", Playing: true, PositionSeconds: 12.5}))

	state, err := r.GetRoom(ctx, "movie-night")
	require.NoError(t, err)
	assert.Equal(t, "b", state.HostId)
	assert.True(t, state.Playing)
	assert.Equal(t, 12.5, state.PositionSeconds)

	assert.ErrorIs(t, r.SetHost(ctx, &room.SetHostParams{RoomId: "nope", HostId: "b"}), room.ErrRoomNotFound)
	assert.ErrorIs(t, r.SetPlayerState(ctx, &room.SetPlayerStateParams{RoomId: "nope"}), room.ErrRoomNotFound)
	assert.ErrorIs(t, r.AddMember(ctx, &room.AddMemberParams{RoomId: "nope", MemberId: "b"}), room.ErrRoomNotFound)
}

func TestRoomsCount(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	count, err := r.RoomsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, r.CreateRoom(ctx, &room.CreateRoomParams{RoomId: "one", HostId: "a"}))
	require.NoError(t, r.CreateRoom(ctx, &room.CreateRoomParams{RoomId: "two", HostId: "b"}))

	count, err = r.RoomsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, r.DeleteRoom(ctx, "one"))

	count, err = r.RoomsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
