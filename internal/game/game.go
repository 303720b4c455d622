package game

// Phase is the game-level state machine.
type Phase uint8

const (
	PhaseSafeFirstMove Phase = iota
	PhaseFirstMoveFail
	PhaseRun
	PhaseDie
	PhaseWin
)

// Terminal reports whether no further moves are accepted.
func (p Phase) Terminal() bool {
	return p == PhaseDie || p == PhaseWin
}

func (p Phase) String() string {
	switch p {
	case PhaseSafeFirstMove:
		return "safe-first-move"
	case PhaseFirstMoveFail:
		return "first-move-fail"
	case PhaseRun:
		return "run"
	case PhaseDie:
		return "die"
	case PhaseWin:
		return "win"
	}
	return "unknown"
}

// MoveKind selects between the two board operations.
type MoveKind uint8

const (
	MoveReveal MoveKind = iota
	MoveToggleFlag
)

// Move is a single player action on a board position.
type Move struct {
	Kind MoveKind
	X, Y int
}

// Game wraps a Board with its Phase and configuration.
type Game struct {
	Phase Phase
	Board *Board
	Conf  BoardConf
}

// NewGame builds a fresh game. The first move is protected only when
// the configuration asks for it.
func NewGame(conf BoardConf) *Game {
	phase := PhaseRun
	if conf.AlwaysSafeFirstMove {
		phase = PhaseSafeFirstMove
	}
	return &Game{
		Phase: phase,
		Board: NewBoard(conf),
		Conf:  conf,
	}
}

// Act applies one move. Uncovering a mine on a protected first move
// relocates the mine and re-executes the move exactly once; on a board
// with no vacancy it dies instead. Callers filter moves once the phase
// is terminal.
func (g *Game) Act(m Move) {
	switch m.Kind {
	case MoveReveal:
		kaboom := g.Board.Reveal(m.X, m.Y)
		if kaboom {
			if g.Phase == PhaseSafeFirstMove {
				g.Phase = PhaseFirstMoveFail
			} else {
				g.Phase = PhaseDie
			}
		}
		if g.Phase == PhaseSafeFirstMove {
			g.Phase = PhaseRun
		}
	case MoveToggleFlag:
		g.Board.Flag(m.X, m.Y)
	}

	if g.Phase == PhaseFirstMoveFail {
		winnable := g.Board.MineCount < g.Board.Width*g.Board.Height
		if winnable {
			g.Board.HiddenTiles++
			g.Board.MoveMineElsewhere(m.X, m.Y)
			g.Phase = PhaseRun
			g.Act(m)
		} else {
			g.Phase = PhaseDie
		}
	} else if g.Phase != PhaseDie && g.Board.HiddenTiles == g.Board.MineCount {
		g.Phase = PhaseWin
	} else if g.Phase == PhaseDie && g.Conf.RevealOnLose {
		for i, v := range g.Board.Data {
			if IsMine(v) && v&TileHidden != 0 {
				g.Board.Data[i] = unhide(v)
				g.Board.HiddenTiles--
			}
		}
	}
}
