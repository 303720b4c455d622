// Package network implements the text command protocol and the
// outbound frame encoding shared by the room runtime and the
// connection handlers.
package network

import "github.com/gorilla/websocket"

// Client -> Server command verbs. Commands are space-separated text
// frames; the verb is the first token.
const (
	CmdRegister  = "register"
	CmdPos       = "pos"
	CmdReveal    = "reveal"
	CmdFlag      = "flag"
	CmdReset     = "reset"
	CmdHeartbeat = "<3"
)

// Server -> Client message prefixes.
const (
	MsgRegAck  = "regack"
	MsgPlayers = "players"
	MsgLogoff  = "logoff"
	MsgPos     = "pos"
	MsgWin     = "win"
	MsgLose    = "lose"
)

// Frame is one outbound websocket message. Kind is a gorilla message
// type: TextMessage for protocol lines, BinaryMessage for compressed
// board snapshots.
type Frame struct {
	Kind int
	Data []byte
}

// Text wraps a protocol line in a frame.
func Text(s string) Frame {
	return Frame{Kind: websocket.TextMessage, Data: []byte(s)}
}

// Binary wraps a compressed payload in a frame.
func Binary(b []byte) Frame {
	return Frame{Kind: websocket.BinaryMessage, Data: b}
}
