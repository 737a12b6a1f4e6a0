package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zsenarchitect/ManVsGod/internal/chess"
)

var analyzeFlags struct {
	square string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <fen>",
	Short: "Print the material balance and moves of a position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fen := args[0]
		board, err := chess.ParseBoard(fen)
		if err != nil {
			return fmt.Errorf("parse position: %w", err)
		}
		out := cmd.OutOrStdout()

		if sq := analyzeFlags.square; sq != "" {
			moves := chess.LegalMovesFor(fen, sq)
			fmt.Fprintf(out, "%s %s: %s\n", sq, pieceLabel(board.PieceAt(sq)), strings.Join(moves, " "))
			return nil
		}

		pos := chess.Analyze(fen)
		fmt.Fprintf(out, "Evaluation: %+d\n", pos.Evaluation)
		fmt.Fprintf(out, "Phase:      %s\n", pos.Phase)
		if pos.BestMove != "" {
			from := pos.BestMove[:2]
			fmt.Fprintf(out, "Best move:  %s (%s)\n", pos.BestMove, pieceLabel(board.PieceAt(from)))
		} else {
			fmt.Fprintln(out, "Best move:  none")
		}
		fmt.Fprintf(out, "Moves (%d): %s\n", len(pos.LegalMoves), strings.Join(pos.LegalMoves, " "))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFlags.square, "square", "", "Only list moves from this square")
}

func pieceLabel(p rune) string {
	if p == 0 {
		return "empty"
	}
	return chess.PieceIcon(p) + " " + chess.PieceName(p)
}
