package chess

import "log/slog"

var knightJumps = [8][2]int{
	{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2},
	{1, -2}, {1, 2}, {2, -1}, {2, 1},
}

// Moves returns the shape moves of the piece on square as UCI strings
// ("e2e4"). Only the pawn looks at occupancy, and only its single push.
func (b Board) Moves(square string) []string {
	from, err := ParseSquare(square)
	if err != nil {
		return nil
	}
	p := b[from.Row][from.File]
	if p == 0 {
		return nil
	}

	var moves []string
	add := func(to Square) {
		if to.onBoard() {
			moves = append(moves, square+to.String())
		}
	}

	switch lower(p) {
	case 'p':
		dir := -1
		if p == 'p' {
			dir = 1
		}
		to := Square{Row: from.Row + dir, File: from.File}
		if to.onBoard() && b[to.Row][to.File] == 0 {
			add(to)
		}
	case 'r':
		for f := 0; f < 8; f++ {
			if f != from.File {
				add(Square{Row: from.Row, File: f})
			}
		}
		for r := 0; r < 8; r++ {
			if r != from.Row {
				add(Square{Row: r, File: from.File})
			}
		}
	case 'n':
		for _, j := range knightJumps {
			add(Square{Row: from.Row + j[1], File: from.File + j[0]})
		}
	case 'b':
		for i := 1; i < 8; i++ {
			for _, d := range [4][2]int{{i, i}, {i, -i}, {-i, i}, {-i, -i}} {
				add(Square{Row: from.Row + d[1], File: from.File + d[0]})
			}
		}
	case 'q':
		for f := 0; f < 8; f++ {
			for r := 0; r < 8; r++ {
				if f != from.File || r != from.Row {
					add(Square{Row: r, File: f})
				}
			}
		}
	case 'k':
		for df := -1; df <= 1; df++ {
			for dr := -1; dr <= 1; dr++ {
				if df != 0 || dr != 0 {
					add(Square{Row: from.Row + dr, File: from.File + df})
				}
			}
		}
	}
	return moves
}

// LegalMovesFor parses fen and returns the moves of the piece on square.
// A malformed position yields no moves and a warning.
func LegalMovesFor(fen, square string) []string {
	b, err := ParseBoard(fen)
	if err != nil {
		slog.Warn("unparseable position", "fen", fen, "error", err)
		return nil
	}
	return b.Moves(square)
}

// Position is the analysis of a position from white's side.
type Position struct {
	FEN         string   `json:"fen"`
	LegalMoves  []string `json:"legalMoves"`
	Evaluation  int      `json:"evaluation"`
	BestMove    string   `json:"bestMove"`
	PieceToMove string   `json:"pieceToMove"`
	Phase       string   `json:"phase"`
}

// Analyze lists every white move and the material balance. The best move is
// simply the first generated one. A malformed position analyzes as an empty
// board.
func Analyze(fen string) Position {
	b, err := ParseBoard(fen)
	if err != nil {
		slog.Warn("unparseable position, analyzing empty board", "fen", fen, "error", err)
	}

	moves := []string{}
	for row := 0; row < 8; row++ {
		for file := 0; file < 8; file++ {
			if p := b[row][file]; p != 0 && isWhite(p) {
				moves = append(moves, b.Moves(Square{Row: row, File: file}.String())...)
			}
		}
	}

	pos := Position{
		FEN:         fen,
		LegalMoves:  moves,
		Evaluation:  b.Material(),
		PieceToMove: "e2",
		Phase:       "opening",
	}
	if len(moves) > 0 {
		pos.BestMove = moves[0]
	}
	return pos
}
