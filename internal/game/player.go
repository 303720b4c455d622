package game

import (
	"fmt"
	"sync"

	"github.com/StaleHyena/websweeper/internal/metrics"
	"github.com/StaleHyena/websweeper/internal/network"
)

// Conn is the network half of a player, kept behind an interface so
// the room runtime never touches websockets directly.
type Conn interface {
	Send(f network.Frame) error
	Close() error
	RemoteAddr() string
}

// Player is a registered connection within a room.
type Player struct {
	UID   uint32
	Name  string
	Color string
	Conn  Conn
}

func (p *Player) String() string {
	return fmt.Sprintf("%q@%s", p.Name, p.Conn.RemoteAddr())
}

// Players maps peer addresses to registered players and owns the
// room-local uid counter.
//
// Thread safety: a RWMutex guards the map. Broadcasts take the read
// lock; register and disconnect take the write lock. Callers must not
// hold the lock across sends; Snapshot first, then fan out.
type Players struct {
	mu      sync.RWMutex
	byAddr  map[string]*Player
	nextUID uint32
}

// NewPlayers creates an empty registry.
func NewPlayers() *Players {
	return &Players{byAddr: make(map[string]*Player)}
}

// Add registers a connection under its peer address, assigning the
// next uid.
func (ps *Players) Add(name, color string, conn Conn) *Player {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	p := &Player{
		UID:   ps.nextUID,
		Name:  name,
		Color: color,
		Conn:  conn,
	}
	ps.nextUID++
	ps.byAddr[conn.RemoteAddr()] = p
	metrics.PlayersLive.Inc()
	return p
}

// Remove drops the player at addr, returning it if present.
func (ps *Players) Remove(addr string) *Player {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	p, ok := ps.byAddr[addr]
	if !ok {
		return nil
	}
	delete(ps.byAddr, addr)
	metrics.PlayersLive.Dec()
	return p
}

// Get looks up the player registered at addr.
func (ps *Players) Get(addr string) (*Player, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	p, ok := ps.byAddr[addr]
	return p, ok
}

// Count returns the current number of registered players.
func (ps *Players) Count() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.byAddr)
}

// Snapshot copies the current roster so callers can iterate without
// holding the lock.
func (ps *Players) Snapshot() []*Player {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	out := make([]*Player, 0, len(ps.byAddr))
	for _, p := range ps.byAddr {
		out = append(out, p)
	}
	return out
}
