package chess

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestParseBoard(t *testing.T) {
	b, err := ParseBoard(startFEN)
	require.NoError(t, err)

	assert.Equal(t, 'r', b[0][0])
	assert.Equal(t, 'K', b[7][4])
	assert.Equal(t, 'P', b.PieceAt("e2"))
	assert.Equal(t, rune(0), b.PieceAt("e4"))
	assert.Equal(t, rune(0), b.PieceAt("z9"))
	assert.Equal(t, 0, b.Material())
}

func TestParseBoardRejectsMalformed(t *testing.T) {
	for _, fen := range []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNRR w",
		"rnbqkbnr/ppppxppp/8/8/8/8/PPPPPPPP/RNBQKBNR w",
		"rnbqkbnr/pppppppp/7/8/8/8/PPPPPPPP/RNBQKBNR w",
	} {
		_, err := ParseBoard(fen)
		assert.Error(t, err, fen)
	}
}

func TestMoves(t *testing.T) {
	b, err := ParseBoard("4k3/8/8/3q4/4P3/8/8/R3K1N1 w - - 0 1")
	require.NoError(t, err)

	assert.Equal(t, []string{"e4e5"}, b.Moves("e4"))
	assert.Equal(t, []string{"g1e2", "g1f3", "g1h3"}, b.Moves("g1"))
	assert.Len(t, b.Moves("a1"), 14)
	assert.Len(t, b.Moves("d5"), 63)
	assert.Equal(t, []string{"e1d2", "e1d1", "e1e2", "e1f2", "e1f1"}, b.Moves("e1"))
	assert.Nil(t, b.Moves("h8"))

	blocked, err := ParseBoard("4k3/8/8/8/4p3/4P3/8/4K3 w - - 0 1")
	require.NoError(t, err)
	assert.Empty(t, blocked.Moves("e3"))
	assert.Empty(t, blocked.Moves("e4"), "black pawn blocked by the white pawn below it")
}

func TestBishopMovesOrder(t *testing.T) {
	b, err := ParseBoard("8/8/8/8/8/8/8/2B5 w - - 0 1")
	require.NoError(t, err)
	want := []string{"c1d2", "c1b2", "c1e3", "c1a3", "c1f4", "c1g5", "c1h6"}
	if diff := cmp.Diff(want, b.Moves("c1")); diff != "" {
		t.Errorf("bishop moves (-want +got):\n%s", diff)
	}
}

func TestLegalMovesForMalformed(t *testing.T) {
	assert.Nil(t, LegalMovesFor("not a fen", "e2"))
	assert.Equal(t, []string{"e2e3"}, LegalMovesFor(startFEN, "e2"))
}

func TestAnalyze(t *testing.T) {
	pos := Analyze("4k3/8/8/8/8/8/4P3/4K2Q w - - 0 1")
	assert.Equal(t, 10, pos.Evaluation)
	assert.Equal(t, "e2e3", pos.BestMove)
	assert.Contains(t, pos.LegalMoves, "h1a8")

	empty := Analyze("garbage")
	assert.Empty(t, empty.LegalMoves)
	assert.Zero(t, empty.Evaluation)
	assert.Empty(t, empty.BestMove)
}

func TestPieceNames(t *testing.T) {
	assert.Equal(t, "White Knight", PieceName('N'))
	assert.Equal(t, "Unknown", PieceName('x'))
	assert.Equal(t, "♛", PieceIcon('q'))
	assert.Equal(t, "?", PieceIcon('x'))
	assert.Equal(t, 9, PieceValue('Q'))
}

func TestFallbackPuzzleClamps(t *testing.T) {
	assert.Equal(t, "fallback-1", FallbackPuzzle(0).ID)
	assert.Equal(t, "fallback-3", FallbackPuzzle(3).ID)
	assert.Equal(t, "fallback-5", FallbackPuzzle(99).ID)
}

func TestPuzzleClientDaily(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/puzzle/daily", r.URL.Path)
		w.Write([]byte(`{"game":{"url":"https://lichess.org/abc"},
			"puzzle":{"id":"K69di","fen":"` + startFEN + `","moves":"e2e4 e7e5","rating":1500,"themes":["opening"]}}`))
	}))
	defer srv.Close()

	c := NewPuzzleClient(srv.URL)
	p := c.Daily(context.Background())
	assert.Equal(t, "K69di", p.ID)
	assert.Equal(t, []string{"e2e4", "e7e5"}, p.Moves)
	assert.Equal(t, p.Moves, p.Solution)
	assert.Equal(t, "https://lichess.org/abc", p.GameURL)
	assert.EqualValues(t, 1, hits.Load())
}

func TestPuzzleClientFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewPuzzleClient(srv.URL).Random(context.Background())
	assert.Equal(t, "fallback-1", p.ID)

	var nilClient *PuzzleClient
	assert.Equal(t, "fallback-1", nilClient.Daily(context.Background()).ID)
}

func TestPuzzleClientConcurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"puzzle":{"id":"p1","fen":"` + startFEN + `","moves":"e2e4"}}`))
	}))
	defer srv.Close()

	c := NewPuzzleClient(srv.URL)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "p1", c.Daily(context.Background()).ID)
		}()
	}
	wg.Wait()
}
