// Package game implements the minesweeper engine and the per-room runtime.
package game

import (
	"math/rand"
)

// Tile layout: the top three bits are state flags, the low five bits hold
// either the adjacent-mine count (0-8) or the all-ones mine sentinel.
const (
	TileHidden  byte = 1 << 7
	TileFlagged byte = 1 << 6
	TileSpecial byte = 1 << 5 // grading mark for a rightly flagged mine, or the question flag

	TileNumBits byte = ^(TileHidden | TileFlagged | TileSpecial) // 0x1f

	TileMined    byte = TileHidden | TileNumBits
	TileQuestion byte = TileFlagged | TileSpecial
	TileCorrect  byte = TileMined | TileSpecial
)

// IsMine reports whether a tile's low bits carry the mine sentinel,
// hidden or not.
func IsMine(v byte) bool {
	return v&TileNumBits == TileNumBits
}

func unhide(v byte) byte {
	return v & TileNumBits
}

// BoardConf describes a board. Immutable once a room is created.
// The JSON form is part of the wire protocol (regack, room listing).
type BoardConf struct {
	Width               int    `json:"w"`
	Height              int    `json:"h"`
	MineRatio           [2]int `json:"mine_ratio"` // mines/tiles as (numerator, denominator)
	AlwaysSafeFirstMove bool   `json:"always_safe_first_move"`
	RevealedBorders     bool   `json:"revealed_borders"`
	RevealOnLose        bool   `json:"reveal_on_lose"`
	NumTileReveal       bool   `json:"num_tile_reveal"`
}

// Board is a bit-packed tile grid. HiddenTiles always equals the number
// of tiles with TileHidden set; neighbor counts are maintained
// incrementally through placement and relocation.
type Board struct {
	Data        []byte
	Width       int
	Height      int
	HiddenTiles int
	MineCount   int

	numTileReveal bool
}

// NewBoard constructs a fully hidden board and places its mines.
// Boards thinner than 3 tiles cannot have revealed borders.
func NewBoard(conf BoardConf) *Board {
	w, h := conf.Width, conf.Height
	area := w * h
	if w < 3 || h < 3 {
		conf.RevealedBorders = false
	}
	minedArea := area
	if conf.RevealedBorders {
		minedArea = area - (2*(w-1) + 2*(h-1))
	}
	mineCount := 0
	if conf.MineRatio[1] > 0 {
		mineCount = clamp(conf.MineRatio[0]*minedArea/conf.MineRatio[1], 0, minedArea)
	}

	b := &Board{
		Data:          make([]byte, area),
		Width:         w,
		Height:        h,
		HiddenTiles:   area,
		MineCount:     mineCount,
		numTileReveal: conf.NumTileReveal,
	}
	for i := range b.Data {
		b.Data[i] = TileHidden
	}

	if conf.RevealedBorders {
		b.SpreadMines(mineCount, true)
		for x := 0; x < w; x++ {
			b.Reveal(x, 0)
			b.Reveal(x, h-1)
		}
		for y := 1; y < h-1; y++ {
			b.Reveal(0, y)
			b.Reveal(w-1, y)
		}
	} else {
		b.SpreadMines(mineCount, false)
	}
	return b
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (b *Board) offset(x, y int) int {
	return y*b.Width + x
}

func (b *Board) inBounds(x, y int) bool {
	return x >= 0 && x < b.Width && y >= 0 && y < b.Height
}

var neighOffsets = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// neighbors returns the in-bounds Chebyshev neighbors of (x,y).
func (b *Board) neighbors(x, y int) [][2]int {
	out := make([][2]int, 0, 8)
	for _, d := range neighOffsets {
		nx, ny := x+d[0], y+d[1]
		if b.inBounds(nx, ny) {
			out = append(out, [2]int{nx, ny})
		}
	}
	return out
}

func (b *Board) mapNeighbors(x, y int, f func(byte) byte) {
	for _, n := range b.neighbors(x, y) {
		off := b.offset(n[0], n[1])
		b.Data[off] = f(b.Data[off])
	}
}

// SpreadMines places count mines uniformly at random, resampling
// occupied tiles, and bumps the counts of each affected neighbor.
// count must not exceed the placement region's area.
func (b *Board) SpreadMines(count int, withoutEdges bool) {
	xlo, xhi := 0, b.Width
	ylo, yhi := 0, b.Height
	if withoutEdges {
		xlo, xhi = 1, b.Width-1
		ylo, yhi = 1, b.Height-1
	}
	for count > 0 {
		x := xlo + rand.Intn(xhi-xlo)
		y := ylo + rand.Intn(yhi-ylo)
		off := b.offset(x, y)
		if b.Data[off] == TileMined {
			continue
		}
		b.Data[off] = TileMined
		count--
		b.mapNeighbors(x, y, func(v byte) byte {
			if v != TileMined {
				return v + 1
			}
			return v
		})
	}
}

// FloodReveal uncovers (x,y) and, from zero-count tiles, its neighbors
// transitively. A hard-flagged tile blocks the flood; a question tile
// does not. Returns true if a mine was uncovered.
func (b *Board) FloodReveal(x, y int) bool {
	stack := [][2]int{{x, y}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		off := b.offset(p[0], p[1])
		c := b.Data[off]
		unrevealable := (c&TileFlagged != 0) != (c&TileSpecial != 0)
		if c&TileHidden != 0 && !unrevealable {
			c = unhide(c)
			b.Data[off] = c
			b.HiddenTiles--
			if IsMine(c) {
				return true
			}
			if c > 0 {
				continue
			}
			stack = append(stack, b.neighbors(p[0], p[1])...)
		}
	}
	return false
}

// RevealNumTile chord-reveals around an exposed 1-8 tile whose
// hard-flagged neighbor count matches its value.
func (b *Board) RevealNumTile(x, y int) bool {
	off := b.offset(x, y)
	count := int(b.Data[off])
	if count < 1 || count > 8 {
		return false
	}
	neighs := b.neighbors(x, y)
	total := len(neighs)
	kept := neighs[:0]
	for _, n := range neighs {
		if b.Data[b.offset(n[0], n[1])]&(TileFlagged|TileSpecial) != TileFlagged {
			kept = append(kept, n)
		}
	}
	if total-len(kept) == count {
		for _, n := range kept {
			if b.FloodReveal(n[0], n[1]) {
				return true
			}
		}
	}
	return false
}

// Reveal is the public reveal operation. Out-of-bounds is a no-op.
func (b *Board) Reveal(x, y int) bool {
	if !b.inBounds(x, y) {
		return false
	}
	v := b.Data[b.offset(x, y)]
	if b.numTileReveal && v >= 1 && v <= 8 {
		return b.RevealNumTile(x, y)
	}
	return b.FloodReveal(x, y)
}

// Flag cycles a hidden tile through unflagged -> flagged -> question ->
// unflagged. Revealed and out-of-bounds tiles are untouched.
func (b *Board) Flag(x, y int) {
	if !b.inBounds(x, y) {
		return
	}
	off := b.offset(x, y)
	c := b.Data[off]
	if c&TileHidden == 0 {
		return
	}
	var top byte
	switch c & (TileFlagged | TileSpecial) {
	case TileFlagged:
		top = TileQuestion
	case TileQuestion:
		top = 0
	default:
		top = TileFlagged
	}
	b.Data[off] = (c & TileNumBits) | TileHidden | top
}

// Grade rewrites correctly flagged mines so rendering can tell them
// apart from wrong flags. Called once the game is over.
func (b *Board) Grade() {
	for i, v := range b.Data {
		if v == TileMined|TileFlagged {
			b.Data[i] = TileCorrect
		}
	}
}

// MoveMineElsewhere relocates the just-uncovered mine at (x,y) to the
// first vacant tile in row-major order, fixing up neighbor counts on
// both ends. Requires a vacancy to exist; (x,y) ends up hidden again
// with its surround count, ready to be re-revealed.
func (b *Board) MoveMineElsewhere(x, y int) {
	var surround byte
	b.mapNeighbors(x, y, func(v byte) byte {
		if v&^TileFlagged == TileMined {
			surround++
			return v
		}
		return v - 1
	})

	vacant := -1
	for i, v := range b.Data {
		if v&TileNumBits != TileNumBits {
			vacant = i
			break
		}
	}
	vx, vy := vacant%b.Width, vacant/b.Width

	b.Data[vacant] |= TileMined
	b.Data[b.offset(x, y)] = TileHidden | surround

	b.mapNeighbors(vx, vy, func(v byte) byte {
		if v&^TileFlagged == TileMined {
			return v
		}
		return v + 1
	})
}

// Render emits one ASCII byte per tile, rows separated by "<br>".
// This is the uncompressed snapshot payload.
func (b *Board) Render() []byte {
	out := make([]byte, 0, (b.Width+4)*b.Height)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			c := b.Data[b.offset(x, y)]
			switch {
			case c == 0:
				out = append(out, ' ')
			case c <= 8:
				out = append(out, '0'+c)
			case c&(TileSpecial|TileFlagged) == TileSpecial|TileFlagged:
				out = append(out, 'Q')
			case c&TileSpecial != 0:
				out = append(out, 'C')
			case c&TileFlagged != 0:
				out = append(out, 'F')
			case c&TileHidden != 0:
				out = append(out, '#')
			case c == TileNumBits:
				out = append(out, 'O')
			default:
				out = append(out, '?')
			}
		}
		out = append(out, "<br>"...)
	}
	return out
}
