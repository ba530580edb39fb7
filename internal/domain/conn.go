package domain

// Conn is one client channel. A connection has a process-unique ephemeral id
// assigned at upgrade time and belongs to at most one room at a time.
// Implementations must be safe for concurrent Send calls.
type Conn interface {
	Id() string
	Send(msg any) error
	Close() error
}
