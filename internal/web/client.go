package web

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/StaleHyena/websweeper/config"
	"github.com/StaleHyena/websweeper/internal/game"
	"github.com/StaleHyena/websweeper/internal/network"
)

var errConnClosed = errors.New("connection closed")

const writeTimeout = 10 * time.Second

// client drives the protocol state machine for one socket.
// A nil player means the connection is still unregistered; joining the
// room's player map is what registers it.
//
// Each client has its own goroutines for reading and writing messages.
type client struct {
	ws   *websocket.Conn
	room *game.Room

	player *game.Player

	sendChan chan network.Frame
	done     chan struct{}

	maxInbound int
	closeOnce  sync.Once
	log        zerolog.Logger
}

func newClient(ws *websocket.Conn, room *game.Room, maxInbound int, logger zerolog.Logger) *client {
	return &client{
		ws:         ws,
		room:       room,
		sendChan:   make(chan network.Frame, config.OutboundQueueSize),
		done:       make(chan struct{}),
		maxInbound: maxInbound,
		log:        logger.With().Str("room", room.ID).Str("peer", ws.RemoteAddr().String()).Logger(),
	}
}

// run starts the write pump and drives reads until disconnect.
func (c *client) run() {
	go c.writePump()
	c.readPump()
}

// Send queues a frame for the writer. Drops the frame when the queue
// is full so a slow client cannot stall a broadcast.
func (c *client) Send(f network.Frame) error {
	select {
	case c.sendChan <- f:
		return nil
	case <-c.done:
		return errConnClosed
	default:
		return nil
	}
}

// Close shuts the socket down. Safe to call multiple times.
func (c *client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return c.ws.Close()
}

// RemoteAddr returns the peer address that keys the player map.
func (c *client) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

// writePump drains the outbound queue onto the socket.
func (c *client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case f := <-c.sendChan:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(f.Kind, f.Data); err != nil {
				c.log.Warn().Err(err).Msg("anomalous close")
				return
			}
		}
	}
}

// readPump consumes inbound frames until EOF or a protocol violation,
// then runs the disconnect cleanup.
func (c *client) readPump() {
	defer c.teardown()

	c.ws.SetReadLimit(int64(c.maxInbound))
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("read error")
			}
			return
		}
		if kind != websocket.TextMessage {
			return
		}
		if len(data) > c.maxInbound {
			c.log.Warn().Int("len", len(data)).Msg("inbound frame too big")
			return
		}
		c.handleCommand(string(data))
	}
}

// handleCommand dispatches one inbound line. Unregistered connections
// only understand register; everything else is silently ignored.
func (c *client) handleCommand(line string) {
	verb, args := network.SplitCommand(line)

	if c.player == nil {
		if verb == network.CmdRegister {
			c.handleRegister(args)
		}
		return
	}

	switch verb {
	case network.CmdHeartbeat:

	case network.CmdPos:
		if x, y, ok := network.ParsePos(args); ok {
			if err := c.room.SubmitCursor(c.player.UID, x, y); err != nil {
				c.log.Warn().Err(err).Stringer("player", c.player).Msg("couldn't process position update")
			}
		}

	case network.CmdReveal:
		c.submitMove(game.MoveReveal, args)

	case network.CmdFlag:
		c.submitMove(game.MoveToggleFlag, args)

	case network.CmdReset:
		if err := c.room.SubmitReset(); err != nil {
			c.log.Warn().Err(err).Stringer("player", c.player).Msg("couldn't request reset")
		}

	default:
		c.log.Warn().Str("verb", verb).Str("cmd", line).Stringer("player", c.player).Msg("unknown command")
	}
}

func (c *client) submitMove(kind game.MoveKind, args []string) {
	x, y, ok := network.ParsePos(args)
	if !ok {
		c.log.Warn().Stringer("player", c.player).Msg("bad move arguments")
		return
	}
	if err := c.room.SubmitMove(game.Move{Kind: kind, X: x, Y: y}, c.RemoteAddr()); err != nil {
		c.log.Warn().Err(err).Stringer("player", c.player).Msg("couldn't process move")
	}
}

// handleRegister validates the registration, joins the player map, and
// kicks off the state dumps that bring the new player up to date.
// All tokens except the last form the display name; the last token is
// the color.
func (c *client) handleRegister(args []string) {
	if len(args) == 0 {
		c.log.Warn().Msg("register without color")
		return
	}
	color := network.SanitizeColor(args[len(args)-1])
	name := network.SanitizeName(args[:len(args)-1])

	p := c.room.Players.Add(name, color, c)
	c.player = p
	c.log.Info().Str("name", name).Uint32("uid", p.UID).Msg("registered")

	if err := c.Send(network.RegAck(c.room.Conf.Name, name, p.UID, c.room.BoardConfJSON())); err != nil {
		c.log.Error().Err(err).Msg("couldn't send register ack")
		return
	}

	roster := c.room.Players.Snapshot()
	infos := make([]network.PlayerInfo, 0, len(roster))
	for _, rp := range roster {
		infos = append(infos, network.PlayerInfo{UID: rp.UID, Name: rp.Name, Color: rp.Color})
	}
	payload, err := network.EncodePlayers(infos)
	if err != nil {
		c.log.Error().Err(err).Msg("couldn't serialize players")
	} else {
		c.room.Broadcast(network.Players(payload))
	}

	if err := c.room.RequestCursorDump(p.UID); err != nil {
		c.log.Warn().Err(err).Msg("couldn't request cursor dump")
	}
	if err := c.room.RequestStateDump(); err != nil {
		c.log.Warn().Err(err).Msg("couldn't request board dump")
	}
}

// teardown removes the player from the room and tells everyone left.
func (c *client) teardown() {
	defer c.Close()

	p := c.room.Players.Remove(c.RemoteAddr())
	if p == nil {
		c.log.Info().Msg("disconnected")
		return
	}
	if err := c.room.CursorQuit(p.UID); err != nil {
		c.log.Warn().Err(err).Stringer("player", p).Msg("couldn't remove cursor")
	}
	c.room.Broadcast(network.Logoff(p.UID))
	c.log.Info().Stringer("player", p).Msg("disconnected")
}
