package network

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var namePolicy = bluemonday.UGCPolicy()

// EscapeSpaces substitutes spaces with "&nbsp", with no trailing semicolon.
// Clients depend on the exact bytes; the players payload and the
// win/lose announcements use this form.
func EscapeSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "&nbsp")
}

// EscapeSpacesEntity substitutes spaces with the full "&nbsp;" entity.
// Only the regack name fields use this form.
func EscapeSpacesEntity(s string) string {
	return strings.ReplaceAll(s, " ", "&nbsp;")
}

// SanitizeColor keeps only hex digits and '#'.
func SanitizeColor(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9',
			r >= 'a' && r <= 'f',
			r >= 'A' && r <= 'F',
			r == '#':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeName joins the name tokens and strips dangerous markup.
// Empty or whitespace-only names become "anon".
func SanitizeName(tokens []string) string {
	if len(tokens) == 0 {
		return "anon"
	}
	n := strings.TrimSpace(namePolicy.Sanitize(strings.Join(tokens, " ")))
	if n == "" {
		return "anon"
	}
	return n
}

// SplitCommand tokenizes an inbound command line. Splitting is on
// single spaces, so doubled spaces yield empty tokens, as the clients
// expect.
func SplitCommand(line string) (verb string, args []string) {
	fields := strings.Split(line, " ")
	return fields[0], fields[1:]
}

// ParsePos reads the two leading args as non-negative integers.
func ParsePos(args []string) (x, y int, ok bool) {
	if len(args) < 2 {
		return 0, 0, false
	}
	xv, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	yv, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	return int(xv), int(yv), true
}

// PlayerInfo is one entry of the players broadcast.
type PlayerInfo struct {
	UID   uint32
	Name  string
	Color string
}

// EncodePlayers serializes the roster as a JSON array of
// [uid, name, color] triples, names space-escaped. HTML escaping is
// off so the "&nbsp" bytes reach the client as written.
func EncodePlayers(players []PlayerInfo) (string, error) {
	pairs := make([][]any, 0, len(players))
	for _, p := range players {
		pairs = append(pairs, []any{p.UID, EscapeSpaces(p.Name), p.Color})
	}
	var out strings.Builder
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(pairs); err != nil {
		return "", err
	}
	return strings.TrimSuffix(out.String(), "\n"), nil
}

// CursorEntry is one dirty cursor in a pos broadcast.
type CursorEntry struct {
	UID  uint32
	X, Y int
}

// EncodeCursors serializes cursors as a JSON array of [uid, [x, y]].
func EncodeCursors(entries []CursorEntry) (string, error) {
	pairs := make([][]any, 0, len(entries))
	for _, e := range entries {
		pairs = append(pairs, []any{e.UID, [2]int{e.X, e.Y}})
	}
	out, err := json.Marshal(pairs)
	return string(out), err
}

// RegAck acknowledges a successful register.
func RegAck(roomName, playerName string, uid uint32, boardConf []byte) Frame {
	return Text(fmt.Sprintf("%s %s %s %d %s",
		MsgRegAck, EscapeSpacesEntity(roomName), EscapeSpacesEntity(playerName), uid, boardConf))
}

// Players wraps an encoded roster payload.
func Players(payload string) Frame {
	return Text(MsgPlayers + " " + payload)
}

// Logoff announces a departed player.
func Logoff(uid uint32) Frame {
	return Text(fmt.Sprintf("%s %d", MsgLogoff, uid))
}

// Cursors wraps an encoded cursor payload.
func Cursors(payload string) Frame {
	return Text(MsgPos + " " + payload)
}

// GameOver announces the end of a game. The name travels space-escaped
// without the entity semicolon.
func GameOver(won bool, name string) Frame {
	verb := MsgLose
	if won {
		verb = MsgWin
	}
	return Text(verb + " " + EscapeSpaces(name))
}
