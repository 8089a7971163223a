// Package presence tracks which realtime connections belong to which user.
// It is the only persistently shared mutable structure in the dispatch core,
// so it is sharded to keep connect/disconnect storms from serializing
// unrelated dispatch calls.
package presence

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 32

// Mirror receives online/offline transitions, e.g. to publish presence to
// other instances via Redis. Calls are best-effort and must not block.
type Mirror interface {
	SetOnline(ctx context.Context, userID string, at time.Time) error
	SetOffline(ctx context.Context, userID string) error
}

type userShard struct {
	mu    sync.RWMutex
	users map[string]map[string]time.Time // userID -> connectionID -> connectedAt
}

type connShard struct {
	mu    sync.RWMutex
	conns map[string]string // connectionID -> userID
}

// Registry is a concurrency-safe presence store. The zero value is not
// usable; construct with NewRegistry.
type Registry struct {
	userShards [shardCount]*userShard
	connShards [shardCount]*connShard
	mirror     Mirror
	now        func() time.Time
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	r := &Registry{now: time.Now}
	for i := range r.userShards {
		r.userShards[i] = &userShard{users: make(map[string]map[string]time.Time)}
		r.connShards[i] = &connShard{conns: make(map[string]string)}
	}
	return r
}

// SetMirror attaches an optional cross-instance presence mirror. Must be
// called before the registry is shared.
func (r *Registry) SetMirror(m Mirror) {
	r.mirror = m
}

func shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}

// Register adds a connection under a user. Registering an already known
// connection is a no-op, so reconnect races are harmless.
func (r *Registry) Register(userID, connectionID string) {
	if userID == "" || connectionID == "" {
		return
	}
	now := r.now()

	cs := r.connShards[shardIndex(connectionID)]
	cs.mu.Lock()
	if _, exists := cs.conns[connectionID]; exists {
		cs.mu.Unlock()
		return
	}
	cs.conns[connectionID] = userID
	cs.mu.Unlock()

	us := r.userShards[shardIndex(userID)]
	us.mu.Lock()
	set, ok := us.users[userID]
	if !ok {
		set = make(map[string]time.Time, 1)
		us.users[userID] = set
	}
	wasOffline := len(set) == 0
	set[connectionID] = now
	us.mu.Unlock()

	if wasOffline && r.mirror != nil {
		_ = r.mirror.SetOnline(context.Background(), userID, now)
	}
}

// Deregister removes a connection by id. Removing the user's last connection
// drops the user entry entirely. Unknown connections are a no-op.
func (r *Registry) Deregister(connectionID string) {
	cs := r.connShards[shardIndex(connectionID)]
	cs.mu.Lock()
	userID, ok := cs.conns[connectionID]
	if ok {
		delete(cs.conns, connectionID)
	}
	cs.mu.Unlock()
	if !ok {
		return
	}

	us := r.userShards[shardIndex(userID)]
	us.mu.Lock()
	set := us.users[userID]
	delete(set, connectionID)
	nowOffline := len(set) == 0
	if nowOffline {
		delete(us.users, userID)
	}
	us.mu.Unlock()

	if nowOffline && r.mirror != nil {
		_ = r.mirror.SetOffline(context.Background(), userID)
	}
}

// ActiveConnections returns the user's open connection ids. The result is a
// copy and never nil.
func (r *Registry) ActiveConnections(userID string) []string {
	us := r.userShards[shardIndex(userID)]
	us.mu.RLock()
	defer us.mu.RUnlock()
	set := us.users[userID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// IsOnline reports whether the user has at least one open connection.
func (r *Registry) IsOnline(userID string) bool {
	us := r.userShards[shardIndex(userID)]
	us.mu.RLock()
	defer us.mu.RUnlock()
	return len(us.users[userID]) > 0
}

// OnlineUserCount returns the number of distinct users with at least one
// connection. O(shards); meant for health and capacity metrics, not hot paths.
func (r *Registry) OnlineUserCount() int {
	total := 0
	for _, us := range r.userShards {
		us.mu.RLock()
		total += len(us.users)
		us.mu.RUnlock()
	}
	return total
}

// ConnectionCount returns the number of open connections across all users.
func (r *Registry) ConnectionCount() int {
	total := 0
	for _, cs := range r.connShards {
		cs.mu.RLock()
		total += len(cs.conns)
		cs.mu.RUnlock()
	}
	return total
}
