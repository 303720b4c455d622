package network

import (
	"io"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeSpaces(t *testing.T) {
	// one variant carries the entity semicolon, the other doesn't;
	// clients match the exact bytes
	assert.Equal(t, "a&nbspb&nbspc", EscapeSpaces("a b c"))
	assert.Equal(t, "a&nbsp;b&nbsp;c", EscapeSpacesEntity("a b c"))
}

func TestSanitizeColor(t *testing.T) {
	assert.Equal(t, "#ff0000", SanitizeColor("#ff0000"))
	assert.Equal(t, "#cafe", SanitizeColor("#caZZfe<script>"))
	assert.Equal(t, "", SanitizeColor("zzz"))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Alice", SanitizeName([]string{"Alice"}))
	assert.Equal(t, "Alice Bob", SanitizeName([]string{"Alice", "Bob"}))
	assert.Equal(t, "anon", SanitizeName(nil))
	assert.Equal(t, "anon", SanitizeName([]string{""}))
	assert.Equal(t, "anon", SanitizeName([]string{"<script>alert(1)</script>"}))
}

func TestSplitCommand(t *testing.T) {
	verb, args := SplitCommand("reveal 3 4")
	assert.Equal(t, "reveal", verb)
	assert.Equal(t, []string{"3", "4"}, args)

	verb, args = SplitCommand("<3")
	assert.Equal(t, "<3", verb)
	assert.Empty(t, args)
}

func TestParsePos(t *testing.T) {
	x, y, ok := ParsePos([]string{"3", "4"})
	require.True(t, ok)
	assert.Equal(t, 3, x)
	assert.Equal(t, 4, y)

	_, _, ok = ParsePos([]string{"3"})
	assert.False(t, ok)
	_, _, ok = ParsePos([]string{"-1", "4"})
	assert.False(t, ok)
	_, _, ok = ParsePos([]string{"a", "b"})
	assert.False(t, ok)
	_, _, ok = ParsePos(nil)
	assert.False(t, ok)
}

func TestEncodePlayers(t *testing.T) {
	payload, err := EncodePlayers([]PlayerInfo{
		{UID: 0, Name: "Alice", Color: "#ff0000"},
		{UID: 3, Name: "Bob Jr", Color: "#00ff00"},
	})
	require.NoError(t, err)
	assert.Equal(t, `[[0,"Alice","#ff0000"],[3,"Bob&nbspJr","#00ff00"]]`, payload)
}

func TestEncodeCursors(t *testing.T) {
	payload, err := EncodeCursors([]CursorEntry{{UID: 7, X: 10, Y: 20}})
	require.NoError(t, err)
	assert.Equal(t, `[[7,[10,20]]]`, payload)
}

func TestRegAck(t *testing.T) {
	f := RegAck("my room", "Alice Smith", 4, []byte(`{"w":3}`))
	assert.Equal(t, websocket.TextMessage, f.Kind)
	assert.Equal(t, `regack my&nbsp;room Alice&nbsp;Smith 4 {"w":3}`, string(f.Data))
}

func TestGameOver(t *testing.T) {
	assert.Equal(t, "win Alice&nbspSmith", string(GameOver(true, "Alice Smith").Data))
	assert.Equal(t, "lose unknown&nbspplayer", string(GameOver(false, "unknown player").Data))
}

func TestLogoff(t *testing.T) {
	f := Logoff(12)
	assert.Equal(t, websocket.TextMessage, f.Kind)
	assert.Equal(t, "logoff 12", string(f.Data))
}

func TestCompressBoardRoundTrip(t *testing.T) {
	rendered := []byte("###<br>###<br>###<br>")
	compressed, err := CompressBoard(rendered)
	require.NoError(t, err)

	r := flate.NewReader(strings.NewReader(string(compressed)))
	defer r.Close()
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, rendered, out)
}
