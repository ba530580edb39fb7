package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/watchroom/server/internal/repository/room"
)

type SendChatMessageParams struct {
	SenderId string
	Text     string
}

type SendChatMessageResponse struct {
	Message ChatMessage
}

// SendChatMessage fans a chat line out to the whole room, sender included:
// the sender appends its own line from the broadcast so everyone sees the
// same delivery order. No host restriction, no persistence, no replay to
// late joiners.
func (s *service) SendChatMessage(ctx context.Context, params *SendChatMessageParams) (SendChatMessageResponse, error) {
	roomId, err := s.roomRepo.GetMemberRoomId(ctx, params.SenderId)
	if err != nil {
		if errors.Is(err, room.ErrMemberNotFound) {
			return SendChatMessageResponse{}, ErrNoRoom
		}

		return SendChatMessageResponse{}, fmt.Errorf("failed to get member room: %w", err)
	}

	unlock := s.lockRoom(roomId)
	defer unlock()

	msg := ChatMessage{
		SenderId: params.SenderId,
		Text:     params.Text,
	}

	conns, err := s.getConnsByRoomId(ctx, roomId, "")
	if err != nil {
		return SendChatMessageResponse{}, fmt.Errorf("failed to get conns: %w", err)
	}
	s.broadcast(ctx, conns, &Output{Type: EventChatMessage, Payload: msg})

	return SendChatMessageResponse{Message: msg}, nil
}
