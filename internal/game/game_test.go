package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGamePhase(t *testing.T) {
	g := NewGame(BoardConf{Width: 3, Height: 3, MineRatio: [2]int{0, 1}})
	assert.Equal(t, PhaseRun, g.Phase)

	g = NewGame(BoardConf{Width: 3, Height: 3, MineRatio: [2]int{0, 1}, AlwaysSafeFirstMove: true})
	assert.Equal(t, PhaseSafeFirstMove, g.Phase)
}

func TestWinOnFullReveal(t *testing.T) {
	g := NewGame(BoardConf{Width: 3, Height: 3, MineRatio: [2]int{0, 1}})
	g.Act(Move{Kind: MoveReveal, X: 1, Y: 1})
	assert.Equal(t, PhaseWin, g.Phase)
	assert.Zero(t, g.Board.HiddenTiles)
}

func TestDieOnMine(t *testing.T) {
	g := NewGame(BoardConf{Width: 2, Height: 2, MineRatio: [2]int{1, 1}})
	g.Act(Move{Kind: MoveReveal, X: 0, Y: 0})
	assert.Equal(t, PhaseDie, g.Phase)
}

func TestFlagKeepsPhase(t *testing.T) {
	g := NewGame(BoardConf{Width: 3, Height: 3, MineRatio: [2]int{1, 9}})
	g.Act(Move{Kind: MoveToggleFlag, X: 0, Y: 0})
	assert.Equal(t, PhaseRun, g.Phase)
	assert.Equal(t, 9, g.Board.HiddenTiles)
}

// A protected first reveal must never die, for any mine layout the rng
// produced.
func TestSafeFirstMove(t *testing.T) {
	for i := 0; i < 50; i++ {
		g := NewGame(BoardConf{
			Width: 2, Height: 2,
			MineRatio:           [2]int{3, 4},
			AlwaysSafeFirstMove: true,
		})
		require.Equal(t, 3, g.Board.MineCount)

		g.Act(Move{Kind: MoveReveal, X: 0, Y: 0})
		require.Equal(t, PhaseRun, g.Phase)
		require.Zero(t, g.Board.Data[0]&TileHidden, "first tile still hidden")
		require.False(t, IsMine(g.Board.Data[0]), "first tile still mined")
		require.Equal(t, 3, g.Board.MineCount)
		checkCounts(t, g.Board)
	}
}

// On a board with no vacancy the protected first move dies instead of
// relocating.
func TestSafeFirstMoveUnwinnable(t *testing.T) {
	g := NewGame(BoardConf{
		Width: 1, Height: 1,
		MineRatio:           [2]int{1, 1},
		AlwaysSafeFirstMove: true,
	})
	g.Act(Move{Kind: MoveReveal, X: 0, Y: 0})
	assert.Equal(t, PhaseDie, g.Phase)
}

func TestSafeFirstMoveFlagDoesNotConsumeProtection(t *testing.T) {
	g := NewGame(BoardConf{
		Width: 2, Height: 2,
		MineRatio:           [2]int{3, 4},
		AlwaysSafeFirstMove: true,
	})
	g.Act(Move{Kind: MoveToggleFlag, X: 0, Y: 0})
	assert.Equal(t, PhaseSafeFirstMove, g.Phase)
}

func TestRevealOnLose(t *testing.T) {
	conf := BoardConf{Width: 2, Height: 2, MineRatio: [2]int{2, 4}, RevealOnLose: true}
	b := &Board{
		Data:        []byte{TileMined, TileHidden | 2, TileMined, TileHidden | 2},
		Width:       2,
		Height:      2,
		HiddenTiles: 4,
		MineCount:   2,
	}
	g := &Game{Phase: PhaseRun, Board: b, Conf: conf}

	g.Act(Move{Kind: MoveReveal, X: 0, Y: 0})
	assert.Equal(t, PhaseDie, g.Phase)
	for i, v := range b.Data {
		if IsMine(v) {
			assert.Zero(t, v&TileHidden, "mine %d still hidden after loss", i)
		}
	}
	checkCounts(t, b)
}

func TestResetKeepsConf(t *testing.T) {
	conf := BoardConf{Width: 4, Height: 4, MineRatio: [2]int{1, 4}}
	g := NewGame(conf)
	fresh := NewGame(conf)
	assert.Equal(t, g.Board.MineCount, fresh.Board.MineCount)
	assert.Equal(t, g.Board.HiddenTiles, fresh.Board.HiddenTiles)
	checkCounts(t, fresh.Board)
}
