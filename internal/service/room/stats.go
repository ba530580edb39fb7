package room

import (
	"context"
	"fmt"
)

type StatsResponse struct {
	Rooms   int `json:"rooms"`
	Clients int `json:"clients"`
}

func (s *service) Stats(ctx context.Context) (StatsResponse, error) {
	rooms, err := s.roomRepo.RoomsCount(ctx)
	if err != nil {
		return StatsResponse{}, fmt.Errorf("failed to count rooms: %w", err)
	}

	return StatsResponse{
		Rooms:   rooms,
		Clients: s.connRepo.Len(),
	}, nil
}
