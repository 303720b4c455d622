package game

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/flate"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StaleHyena/websweeper/internal/network"
)

// fakeConn records every frame sent to it.
type fakeConn struct {
	addr string

	mu     sync.Mutex
	frames []network.Frame
}

func (f *fakeConn) Send(fr network.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() error       { return nil }
func (f *fakeConn) RemoteAddr() string { return f.addr }

func (f *fakeConn) snapshot() []network.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]network.Frame(nil), f.frames...)
}

func (f *fakeConn) textFrames(prefix string) []string {
	var out []string
	for _, fr := range f.snapshot() {
		if fr.Kind == websocket.TextMessage && strings.HasPrefix(string(fr.Data), prefix) {
			out = append(out, string(fr.Data))
		}
	}
	return out
}

func (f *fakeConn) lastBinary(t *testing.T) ([]byte, bool) {
	t.Helper()
	frames := f.snapshot()
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Kind == websocket.BinaryMessage {
			return inflate(t, frames[i].Data), true
		}
	}
	return nil, false
}

func inflate(t *testing.T, data []byte) []byte {
	t.Helper()
	r := flate.NewReader(strings.NewReader(string(data)))
	defer r.Close()
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return out
}

func testRoom(t *testing.T, conf BoardConf) *Room {
	t.Helper()
	r := NewRoom("testroom", RoomConf{Name: "testroom", PlayerCap: 16, Board: conf}, zerolog.Nop())
	r.Start()
	t.Cleanup(r.Stop)
	return r
}

func TestStateDumpBroadcastsBoard(t *testing.T) {
	r := testRoom(t, BoardConf{Width: 3, Height: 3, MineRatio: [2]int{0, 1}})
	fc := &fakeConn{addr: "1.2.3.4:5"}
	r.Players.Add("Alice", "#ff0000", fc)

	require.NoError(t, r.RequestStateDump())
	require.Eventually(t, func() bool {
		_, ok := fc.lastBinary(t)
		return ok
	}, time.Second, 5*time.Millisecond)

	board, _ := fc.lastBinary(t)
	assert.Equal(t, "###<br>###<br>###<br>", string(board))
}

func TestMoveBroadcastsWin(t *testing.T) {
	r := testRoom(t, BoardConf{Width: 3, Height: 3, MineRatio: [2]int{0, 1}})
	fc := &fakeConn{addr: "1.2.3.4:5"}
	r.Players.Add("Alice", "#ff0000", fc)

	require.NoError(t, r.SubmitMove(Move{Kind: MoveReveal, X: 1, Y: 1}, fc.addr))
	require.Eventually(t, func() bool {
		return len(fc.textFrames("win ")) > 0
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"win Alice"}, fc.textFrames("win "))
	board, ok := fc.lastBinary(t)
	require.True(t, ok)
	assert.Equal(t, "   <br>   <br>   <br>", string(board))
}

func TestTerminalMovesIgnored(t *testing.T) {
	r := testRoom(t, BoardConf{Width: 3, Height: 3, MineRatio: [2]int{0, 1}})
	fc := &fakeConn{addr: "1.2.3.4:5"}
	r.Players.Add("Alice", "#ff0000", fc)

	require.NoError(t, r.SubmitMove(Move{Kind: MoveReveal, X: 1, Y: 1}, fc.addr))
	require.Eventually(t, func() bool {
		return len(fc.textFrames("win ")) > 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, r.SubmitMove(Move{Kind: MoveToggleFlag, X: 0, Y: 0}, fc.addr))
	require.NoError(t, r.RequestStateDump())
	require.Eventually(t, func() bool {
		board, ok := fc.lastBinary(t)
		return ok && string(board) == "   <br>   <br>   <br>"
	}, time.Second, 5*time.Millisecond)
}

func TestResetOnlyWhenTerminal(t *testing.T) {
	r := testRoom(t, BoardConf{Width: 3, Height: 3, MineRatio: [2]int{0, 1}})
	fc := &fakeConn{addr: "1.2.3.4:5"}
	r.Players.Add("Alice", "#ff0000", fc)

	// mid-run reset is a no-op: no broadcast follows
	require.NoError(t, r.SubmitReset())
	time.Sleep(50 * time.Millisecond)
	_, ok := fc.lastBinary(t)
	assert.False(t, ok)

	require.NoError(t, r.SubmitMove(Move{Kind: MoveReveal, X: 1, Y: 1}, fc.addr))
	require.Eventually(t, func() bool {
		return len(fc.textFrames("win ")) > 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, r.SubmitReset())
	require.Eventually(t, func() bool {
		board, ok := fc.lastBinary(t)
		return ok && string(board) == "###<br>###<br>###<br>"
	}, time.Second, 5*time.Millisecond)
}

func TestCursorCoalescing(t *testing.T) {
	r := testRoom(t, BoardConf{Width: 3, Height: 3, MineRatio: [2]int{0, 1}})
	fc := &fakeConn{addr: "1.2.3.4:5"}
	p := r.Players.Add("Alice", "#ff0000", fc)

	for i := 0; i < 10; i++ {
		require.NoError(t, r.SubmitCursor(p.UID, 10, 10))
	}

	require.Eventually(t, func() bool {
		return len(fc.textFrames("pos ")) > 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{`pos [[0,[10,10]]]`}, fc.textFrames("pos "))

	// quiet ticks broadcast nothing
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, fc.textFrames("pos "), 1)
}

func TestCursorQuitDropsPlayer(t *testing.T) {
	r := testRoom(t, BoardConf{Width: 3, Height: 3, MineRatio: [2]int{0, 1}})
	fc := &fakeConn{addr: "1.2.3.4:5"}
	p := r.Players.Add("Alice", "#ff0000", fc)

	require.NoError(t, r.SubmitCursor(p.UID, 4, 2))
	require.Eventually(t, func() bool {
		return len(fc.textFrames("pos ")) > 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, r.CursorQuit(p.UID))
	require.NoError(t, r.RequestCursorDump(p.UID))
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, fc.textFrames("pos "), 1)
}

func TestSubmitAfterStop(t *testing.T) {
	r := NewRoom("gone", RoomConf{Name: "gone", PlayerCap: 1, Board: BoardConf{Width: 1, Height: 1, MineRatio: [2]int{0, 1}}}, zerolog.Nop())
	r.Start()
	r.Stop()

	// a stopped room eventually refuses everything; drain until it does
	require.Eventually(t, func() bool {
		return r.SubmitReset() == ErrRoomClosed
	}, time.Second, time.Millisecond)
}

func TestPlayerUIDsAreMonotonic(t *testing.T) {
	ps := NewPlayers()
	a := ps.Add("a", "#fff", &fakeConn{addr: "a:1"})
	b := ps.Add("b", "#fff", &fakeConn{addr: "b:1"})
	assert.Equal(t, uint32(0), a.UID)
	assert.Equal(t, uint32(1), b.UID)

	ps.Remove("a:1")
	c := ps.Add("c", "#fff", &fakeConn{addr: "c:1"})
	assert.Equal(t, uint32(2), c.UID, "uids are never reused")
}
