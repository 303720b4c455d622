package game

import (
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/StaleHyena/websweeper/config"
	"github.com/StaleHyena/websweeper/internal/metrics"
	"github.com/StaleHyena/websweeper/internal/network"
)

// ErrRoomClosed is returned by the submit methods once the room has
// been evicted.
var ErrRoomClosed = errors.New("room closed")

// RoomConf is fixed at creation time. Its JSON form backs the public
// room listing.
type RoomConf struct {
	Name      string    `json:"name"`
	PlayerCap int       `json:"player_cap"`
	Public    bool      `json:"public"`
	Board     BoardConf `json:"board_conf"`
}

// metaMove is a message to the game loop.
type metaMove struct {
	kind metaKind
	move Move
	addr string
}

type metaKind uint8

const (
	metaApply metaKind = iota
	metaReset
	metaStateSync
	metaStateDump
)

// cursorReq is a message to the cursor tracker.
type cursorReq struct {
	kind cursorKind
	uid  uint32
	x, y int
}

type cursorKind uint8

const (
	cursorPos cursorKind = iota
	cursorDump
	cursorQuit
)

// Room is one independent game session: a board, its players, and the
// two background loops driving them.
//
// The game loop is the single consumer of the move queue; the cursor
// tracker is the single consumer of the cursor queue. Both fan out to
// every player's outbound queue. Neither loop is cancelled when the
// room empties; they idle until the registry evicts the room.
type Room struct {
	ID      string
	Conf    RoomConf
	Players *Players

	moves  chan metaMove
	cursor chan cursorReq
	done   chan struct{}

	running atomic.Bool
	log     zerolog.Logger
}

// NewRoom creates a room. Call Start to launch its loops.
func NewRoom(id string, conf RoomConf, logger zerolog.Logger) *Room {
	return &Room{
		ID:      id,
		Conf:    conf,
		Players: NewPlayers(),
		moves:   make(chan metaMove, config.RoomQueueSize),
		cursor:  make(chan cursorReq, config.RoomQueueSize),
		done:    make(chan struct{}),
		log:     logger.With().Str("room", id).Logger(),
	}
}

// Start launches the game loop and the cursor tracker.
// Safe to call multiple times - subsequent calls are no-ops.
func (r *Room) Start() {
	if r.running.Swap(true) {
		return
	}
	go r.gameLoop()
	go r.cursorLoop()
	r.log.Info().Str("name", r.Conf.Name).Msg("room started")
}

// Stop releases both loops. Safe to call multiple times.
func (r *Room) Stop() {
	if !r.running.Swap(false) {
		return
	}
	close(r.done)
	r.log.Info().Msg("room stopped")
}

// BoardConfJSON serializes the board configuration for regack and the
// public listing.
func (r *Room) BoardConfJSON() []byte {
	out, err := json.Marshal(r.Conf.Board)
	if err != nil {
		r.log.Error().Err(err).Msg("couldn't serialize board conf")
		return []byte("{}")
	}
	return out
}

// SubmitMove queues a player move for the game loop.
func (r *Room) SubmitMove(m Move, addr string) error {
	return r.submit(metaMove{kind: metaApply, move: m, addr: addr})
}

// SubmitReset queues a game reset.
func (r *Room) SubmitReset() error {
	return r.submit(metaMove{kind: metaReset})
}

// RequestStateDump asks the game loop to re-broadcast the board.
func (r *Room) RequestStateDump() error {
	return r.submit(metaMove{kind: metaStateDump})
}

func (r *Room) submit(mm metaMove) error {
	select {
	case r.moves <- mm:
		return nil
	case <-r.done:
		return ErrRoomClosed
	}
}

// SubmitCursor forwards a cursor position update.
func (r *Room) SubmitCursor(uid uint32, x, y int) error {
	return r.submitCursor(cursorReq{kind: cursorPos, uid: uid, x: x, y: y})
}

// RequestCursorDump forces the next tick to broadcast every cursor.
func (r *Room) RequestCursorDump(uid uint32) error {
	return r.submitCursor(cursorReq{kind: cursorDump, uid: uid})
}

// CursorQuit drops a departed player's cursor.
func (r *Room) CursorQuit(uid uint32) error {
	return r.submitCursor(cursorReq{kind: cursorQuit, uid: uid})
}

func (r *Room) submitCursor(req cursorReq) error {
	select {
	case r.cursor <- req:
		return nil
	case <-r.done:
		return ErrRoomClosed
	}
}

// Broadcast sends a frame to every current player. Per-recipient
// failures are logged and skipped.
func (r *Room) Broadcast(f network.Frame) {
	for _, p := range r.Players.Snapshot() {
		if err := p.Conn.Send(f); err != nil {
			r.log.Warn().Err(err).Stringer("player", p).Msg("couldn't send broadcast")
		}
	}
}

// gameLoop consumes the move queue. Applied moves mark the state dirty
// and trail a sync token; the first token to find the state dirty
// queues one dump, so a batch of moves broadcasts once.
func (r *Room) gameLoop() {
	g := NewGame(r.Conf.Board)
	var lastActor string
	dirty := false

	for {
		var mm metaMove
		select {
		case mm = <-r.moves:
		case <-r.done:
			return
		}

		switch mm.kind {
		case metaApply:
			if g.Phase.Terminal() {
				continue
			}
			g.Act(mm.move)
			metrics.MovesApplied.Inc()
			if g.Phase.Terminal() {
				g.Board.Grade()
				lastActor = ""
				if p, ok := r.Players.Get(mm.addr); ok {
					lastActor = p.Name
				}
			}
			dirty = true
			r.selfSync(g, &dirty, lastActor)

		case metaReset:
			if !g.Phase.Terminal() {
				continue
			}
			g = NewGame(r.Conf.Board)
			r.log.Info().Msg("game reset")
			dirty = true
			r.selfSync(g, &dirty, lastActor)

		case metaStateSync:
			if dirty {
				dirty = false
				r.dump(g, lastActor)
			}

		case metaStateDump:
			r.dump(g, lastActor)
		}
	}
}

// selfSync trails a coalescing token behind the message that just
// dirtied the state. If the queue is saturated the dump happens
// inline instead.
func (r *Room) selfSync(g *Game, dirty *bool, lastActor string) {
	select {
	case r.moves <- metaMove{kind: metaStateSync}:
	default:
		*dirty = false
		r.dump(g, lastActor)
	}
}

// dump broadcasts the compressed board, plus the end-of-game line when
// the game just finished.
func (r *Room) dump(g *Game, lastActor string) {
	payload, err := network.CompressBoard(g.Board.Render())
	if err != nil {
		r.log.Error().Err(err).Msg("couldn't compress board snapshot")
		return
	}
	frames := []network.Frame{network.Binary(payload)}
	if g.Phase.Terminal() {
		name := lastActor
		if name == "" {
			name = "unknown player"
		}
		frames = append(frames, network.GameOver(g.Phase == PhaseWin, name))
	}
	for _, p := range r.Players.Snapshot() {
		for _, f := range frames {
			if err := p.Conn.Send(f); err != nil {
				r.log.Warn().Err(err).Stringer("player", p).Msg("couldn't send game update")
			}
		}
	}
	metrics.BoardSnapshots.Inc()
}

// cursorLoop tracks live cursor positions and broadcasts coalesced
// updates on a fixed tick. Only positions that changed since the last
// broadcast go out; a dump request re-dirties everything.
func (r *Room) cursorLoop() {
	positions := make(map[uint32][2]int)
	dirty := make(map[uint32]struct{})

	ticker := time.NewTicker(config.CursorBroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case req := <-r.cursor:
			switch req.kind {
			case cursorPos:
				p := [2]int{req.x, req.y}
				if positions[req.uid] != p {
					dirty[req.uid] = struct{}{}
				}
				positions[req.uid] = p
			case cursorDump:
				clear(dirty)
				for uid := range positions {
					dirty[uid] = struct{}{}
				}
			case cursorQuit:
				delete(positions, req.uid)
				delete(dirty, req.uid)
			}

		case <-ticker.C:
			if len(dirty) == 0 {
				continue
			}
			entries := make([]network.CursorEntry, 0, len(dirty))
			for uid := range dirty {
				p := positions[uid]
				entries = append(entries, network.CursorEntry{UID: uid, X: p[0], Y: p[1]})
			}
			clear(dirty)
			payload, err := network.EncodeCursors(entries)
			if err != nil {
				r.log.Error().Err(err).Msg("couldn't serialize cursor positions")
				continue
			}
			r.Broadcast(network.Cursors(payload))
			metrics.CursorBroadcasts.Inc()

		case <-r.done:
			return
		}
	}
}
