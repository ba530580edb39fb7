package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/watchroom/server/internal/domain"
	"github.com/watchroom/server/internal/repository/room"
)

// Guard failures for transport commands. The transport layer swallows these
// without replying: non-host clients have their controls disabled already, so
// the guard is defense-in-depth and a stale or spoofing client gets no signal.
var (
	ErrNotHost = errors.New("sender is not the room host")
	ErrNoRoom  = errors.New("sender is not in a room")
)

// RoomRepo is the room registry contract. Implementations must keep member
// ids in join order.
type RoomRepo interface {
	CreateRoom(context.Context, *room.CreateRoomParams) error
	GetRoom(ctx context.Context, roomId string) (room.Room, error)
	DeleteRoom(ctx context.Context, roomId string) error
	AddMember(context.Context, *room.AddMemberParams) error
	RemoveMember(context.Context, *room.RemoveMemberParams) error
	GetMemberIds(ctx context.Context, roomId string) ([]string, error)
	GetMemberRoomId(ctx context.Context, memberId string) (string, error)
	SetHost(context.Context, *room.SetHostParams) error
	SetVideo(context.Context, *room.SetVideoParams) error
	SetPlayerState(context.Context, *room.SetPlayerStateParams) error
	RoomsCount(ctx context.Context) (int, error)
}

type iConnRepo interface {
	Add(conn domain.Conn) error
	Remove(connId string) error
	GetConn(connId string) (domain.Conn, error)
	Len() int
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

type service struct {
	roomRepo RoomRepo
	connRepo iConnRepo
	logger   *slog.Logger

	locksMu   sync.Mutex
	roomLocks map[string]*roomLock
}

func NewService(roomRepo RoomRepo, connRepo iConnRepo, logger *slog.Logger) *service {
	return &service{
		roomRepo:  roomRepo,
		connRepo:  connRepo,
		logger:    logger,
		roomLocks: make(map[string]*roomLock),
	}
}

// lockRoom serializes every mutation of a room's state together with the
// broadcast it produces. Locks are refcounted so deleted rooms do not leak
// entries. Callers must not hold two room locks at once.
func (s *service) lockRoom(roomId string) func() {
	s.locksMu.Lock()
	l, ok := s.roomLocks[roomId]
	if !ok {
		l = &roomLock{}
		s.roomLocks[roomId] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.roomLocks, roomId)
		}
		s.locksMu.Unlock()
	}
}
