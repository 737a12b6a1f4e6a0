// Package chess is a simplified board utility: FEN placement parsing,
// shape-only move generation and material evaluation. It does not check
// legality (checks, pins, castling, en passant).
package chess

import (
	"fmt"
	"strings"
)

// Board is indexed [row][file]; row 0 is rank 8. Empty squares hold 0.
type Board [8][8]rune

// Piece values for material evaluation. The king counts as zero.
var pieceValues = map[rune]int{'p': 1, 'n': 3, 'b': 3, 'r': 5, 'q': 9, 'k': 0}

// ParseBoard reads the piece-placement field of a FEN string.
func ParseBoard(fen string) (Board, error) {
	var b Board
	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return b, fmt.Errorf("empty fen")
	}
	rows := strings.Split(fields[0], "/")
	if len(rows) != 8 {
		return b, fmt.Errorf("fen has %d ranks, want 8", len(rows))
	}

	for row, s := range rows {
		file := 0
		for _, c := range s {
			switch {
			case c >= '1' && c <= '8':
				file += int(c - '0')
			case strings.ContainsRune("pnbrqkPNBRQK", c):
				if file < 8 {
					b[row][file] = c
				}
				file++
			default:
				return Board{}, fmt.Errorf("rank %d: unexpected %q", 8-row, c)
			}
		}
		if file != 8 {
			return Board{}, fmt.Errorf("rank %d has %d files, want 8", 8-row, file)
		}
	}
	return b, nil
}

// Square is a board coordinate.
type Square struct {
	Row, File int
}

// ParseSquare reads algebraic notation such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return Square{}, fmt.Errorf("invalid square %q", s)
	}
	return Square{Row: 8 - int(s[1]-'0'), File: int(s[0] - 'a')}, nil
}

func (s Square) String() string {
	return fmt.Sprintf("%c%d", 'a'+s.File, 8-s.Row)
}

func (s Square) onBoard() bool {
	return s.Row >= 0 && s.Row < 8 && s.File >= 0 && s.File < 8
}

// PieceAt returns the FEN letter on square, or 0 when empty or off-board.
func (b Board) PieceAt(square string) rune {
	sq, err := ParseSquare(square)
	if err != nil {
		return 0
	}
	return b[sq.Row][sq.File]
}

// Material is white material minus black material.
func (b Board) Material() int {
	total := 0
	for _, row := range b {
		for _, p := range row {
			if p == 0 {
				continue
			}
			if isWhite(p) {
				total += PieceValue(p)
			} else {
				total -= PieceValue(p)
			}
		}
	}
	return total
}

// PieceValue returns the material value of a FEN letter of either colour.
func PieceValue(p rune) int {
	return pieceValues[lower(p)]
}

var pieceNames = map[rune]string{
	'P': "White Pawn", 'N': "White Knight", 'B': "White Bishop",
	'R': "White Rook", 'Q': "White Queen", 'K': "White King",
	'p': "Black Pawn", 'n': "Black Knight", 'b': "Black Bishop",
	'r': "Black Rook", 'q': "Black Queen", 'k': "Black King",
}

var pieceIcons = map[rune]string{
	'P': "♙", 'N': "♘", 'B': "♗", 'R': "♖", 'Q': "♕", 'K': "♔",
	'p': "♟", 'n': "♞", 'b': "♝", 'r': "♜", 'q': "♛", 'k': "♚",
}

func PieceName(p rune) string {
	if n, ok := pieceNames[p]; ok {
		return n
	}
	return "Unknown"
}

func PieceIcon(p rune) string {
	if i, ok := pieceIcons[p]; ok {
		return i
	}
	return "?"
}

func isWhite(p rune) bool { return p >= 'A' && p <= 'Z' }

func lower(p rune) rune {
	if isWhite(p) {
		return p + ('a' - 'A')
	}
	return p
}
