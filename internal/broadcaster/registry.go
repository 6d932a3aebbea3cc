package broadcaster

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultTransitionBufferSize = 1024

// Transition is a presence edge: the first connection of an identity appeared
// (StatusOnline) or its last one went away (StatusOffline).
type Transition struct {
	UserId    string
	Status    Status
	Timestamp time.Time
}

type Registry interface {
	Register(connection *Connection) bool
	Unregister(connection *Connection) bool
	ConnectionsOf(userId string) []*Connection
	IsOnline(userId string) bool
	LastSeen(userId string) (time.Time, bool)
	OnlineUserIds() []string
	ConnectionCount() int
	Transitions() <-chan Transition
}

type presenceRecord struct {
	connections map[string]*Connection
	lastSeen    time.Time
}

type InMemoryRegistry struct {
	logger *zap.Logger
	mu     sync.RWMutex

	// A user id is a key only while its record holds at least one connection.
	records          map[string]*presenceRecord
	connectionsCount int

	transitions chan Transition
}

func NewInMemoryRegistry(
	logger *zap.Logger,
) *InMemoryRegistry {
	return NewInMemoryRegistryWithBuffer(logger, DefaultTransitionBufferSize)
}

func NewInMemoryRegistryWithBuffer(
	logger *zap.Logger,
	transitionBufferSize int,
) *InMemoryRegistry {
	return &InMemoryRegistry{
		logger:      logger,
		records:     make(map[string]*presenceRecord),
		transitions: make(chan Transition, transitionBufferSize),
	}
}

// Register adds the connection to its identity's set and reports whether the
// identity just came online. Registering the same connection twice is a no-op.
func (r *InMemoryRegistry) Register(connection *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	record, ok := r.records[connection.UserId]
	if !ok {
		record = &presenceRecord{
			connections: make(map[string]*Connection),
		}
		r.records[connection.UserId] = record
	}

	record.lastSeen = now

	if _, ok := record.connections[connection.Id]; ok {
		return false
	}

	record.connections[connection.Id] = connection
	r.connectionsCount++

	cameOnline := len(record.connections) == 1
	if cameOnline {
		r.emitLocked(Transition{
			UserId:    connection.UserId,
			Status:    StatusOnline,
			Timestamp: now,
		})
	}

	return cameOnline
}

// Unregister removes the connection and reports whether the identity just went
// offline. Unknown connections are ignored.
func (r *InMemoryRegistry) Unregister(connection *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[connection.UserId]
	if !ok {
		return false
	}

	if _, ok := record.connections[connection.Id]; !ok {
		return false
	}

	delete(record.connections, connection.Id)
	r.connectionsCount--

	if len(record.connections) > 0 {
		return false
	}

	delete(r.records, connection.UserId)

	r.emitLocked(Transition{
		UserId:    connection.UserId,
		Status:    StatusOffline,
		Timestamp: time.Now(),
	})

	return true
}

func (r *InMemoryRegistry) ConnectionsOf(userId string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[userId]
	if !ok {
		return nil
	}

	connections := make([]*Connection, 0, len(record.connections))
	for _, connection := range record.connections {
		connections = append(connections, connection)
	}

	return connections
}

func (r *InMemoryRegistry) IsOnline(userId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.records[userId]

	return ok
}

func (r *InMemoryRegistry) LastSeen(userId string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[userId]
	if !ok {
		return time.Time{}, false
	}

	return record.lastSeen, true
}

func (r *InMemoryRegistry) OnlineUserIds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userIds := make([]string, 0, len(r.records))
	for userId := range r.records {
		userIds = append(userIds, userId)
	}

	return userIds
}

func (r *InMemoryRegistry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.connectionsCount
}

func (r *InMemoryRegistry) Transitions() <-chan Transition {
	return r.transitions
}

// IMPORTANT: It must be called only when a write lock is already held, so that
// edges of one identity are queued in the order they happened.
func (r *InMemoryRegistry) emitLocked(transition Transition) {
	select {
	case r.transitions <- transition:
	default:
		r.logger.Warn("presence transition queue is full, dropping transition",
			zap.String("userId", transition.UserId),
			zap.String("status", string(transition.Status)))
	}
}
