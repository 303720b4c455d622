// Package registry owns the process-wide room map: slot accounting,
// id generation, empty-room reclamation and the public listing.
package registry

import (
	"encoding/json"
	"errors"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"github.com/StaleHyena/websweeper/config"
	"github.com/StaleHyena/websweeper/internal/game"
	"github.com/StaleHyena/websweeper/internal/metrics"
)

var (
	ErrBoardTooBig = errors.New("board too big")
	ErrNoRoomSlots = errors.New("no more room slots")
)

const roomIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Registry tracks every live room and the public subset.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*game.Room
	public map[string]json.RawMessage // room id -> serialized RoomConf

	areaLimit int
	slots     int
	log       zerolog.Logger
}

// New creates a registry bounded by the configured limits.
func New(cfg *config.ServerConfig, logger zerolog.Logger) *Registry {
	return &Registry{
		rooms:     make(map[string]*game.Room),
		public:    make(map[string]json.RawMessage),
		areaLimit: cfg.BoardArea,
		slots:     cfg.RoomSlots,
		log:       logger,
	}
}

// Create validates the configuration, claims a slot (evicting one
// empty room when full), and starts the room's loops. Returns the
// running room.
func (reg *Registry) Create(conf game.RoomConf) (*game.Room, error) {
	if conf.Board.Width*conf.Board.Height > reg.areaLimit {
		return nil, ErrBoardTooBig
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if len(reg.rooms) >= reg.slots {
		if !reg.evictEmptyRoom() {
			return nil, ErrNoRoomSlots
		}
	}

	id := reg.newRoomID()
	if conf.Name == "" {
		conf.Name = id
	}

	room := game.NewRoom(id, conf, reg.log)
	reg.rooms[id] = room
	if conf.Public {
		serialized, err := json.Marshal(conf)
		if err != nil {
			delete(reg.rooms, id)
			return nil, err
		}
		reg.public[id] = serialized
	}
	room.Start()
	metrics.RoomsLive.Set(float64(len(reg.rooms)))

	reg.log.Info().Str("room", id).Str("name", conf.Name).Bool("public", conf.Public).Msg("room created")
	return room, nil
}

// evictEmptyRoom stops and removes the first room with no players.
// Caller holds the write lock.
func (reg *Registry) evictEmptyRoom() bool {
	for id, room := range reg.rooms {
		if room.Players.Count() == 0 {
			room.Stop()
			delete(reg.rooms, id)
			delete(reg.public, id)
			reg.log.Info().Str("room", id).Msg("evicted empty room")
			return true
		}
	}
	return false
}

// newRoomID draws 16-character alphanumeric ids until one is free.
// Caller holds the lock.
func (reg *Registry) newRoomID() string {
	for {
		buf := make([]byte, config.RoomIDLength)
		for i := range buf {
			buf[i] = roomIDAlphabet[rand.Intn(len(roomIDAlphabet))]
		}
		id := string(buf)
		if _, taken := reg.rooms[id]; !taken {
			return id
		}
	}
}

// Get looks up a live room.
func (reg *Registry) Get(id string) (*game.Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, ok := reg.rooms[id]
	return room, ok
}

// EmptyRooms lists ids of rooms with no players.
func (reg *Registry) EmptyRooms() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var out []string
	for id, room := range reg.rooms {
		if room.Players.Count() == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Space reports how many rooms can still be created, counting empty
// rooms as reclaimable.
func (reg *Registry) Space() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	empty := 0
	for _, room := range reg.rooms {
		if room.Players.Count() == 0 {
			empty++
		}
	}
	return reg.slots - len(reg.rooms) + empty
}

// Listing builds the rlist payload: the public conf map plus a map of
// room id to [player count, player cap].
func (reg *Registry) Listing() ([]byte, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	counts := make(map[string][2]int, len(reg.public))
	for id := range reg.public {
		room := reg.rooms[id]
		counts[id] = [2]int{room.Players.Count(), room.Conf.PlayerCap}
	}
	return json.Marshal([]any{reg.public, counts})
}

// Stats aggregates registry-wide counters for the periodic log line.
type Stats struct {
	TotalRooms   int
	TotalPlayers int
}

// GetStats returns current registry statistics.
func (reg *Registry) GetStats() Stats {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	stats := Stats{TotalRooms: len(reg.rooms)}
	for _, room := range reg.rooms {
		stats.TotalPlayers += room.Players.Count()
	}
	return stats
}
