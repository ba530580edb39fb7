package inmemory

import (
	"sync"

	"github.com/watchroom/server/internal/domain"
	"github.com/watchroom/server/internal/repository/connection"
)

type repo struct {
	conns map[string]domain.Conn
	mu    sync.RWMutex
}

func NewRepo() *repo {
	return &repo{
		conns: make(map[string]domain.Conn),
	}
}

func (r *repo) Add(conn domain.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.Id()]; ok {
		return connection.ErrAlreadyExists
	}

	r.conns[conn.Id()] = conn

	return nil
}

func (r *repo) Remove(connId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connId]; !ok {
		return connection.ErrNotFound
	}

	delete(r.conns, connId)

	return nil
}

func (r *repo) GetConn(connId string) (domain.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

func (r *repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
