package chess

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultPuzzleURL is the Lichess API root.
const DefaultPuzzleURL = "https://lichess.org/api"

// Puzzle is a chess problem with its solution line.
type Puzzle struct {
	ID       string   `json:"id"`
	FEN      string   `json:"fen"`
	Moves    []string `json:"moves"`
	Rating   int      `json:"rating"`
	Themes   []string `json:"themes"`
	GameURL  string   `json:"gameUrl"`
	Solution []string `json:"solution"`
}

var fallbackPuzzles = []Puzzle{
	{ID: "fallback-1", FEN: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		Moves: []string{"e2e4"}, Rating: 1000, Themes: []string{"opening"}, Solution: []string{"e2e4"}},
	{ID: "fallback-2", FEN: "rnbqkb1r/pppp1ppp/5n2/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 0 1",
		Moves: []string{"d2d4"}, Rating: 1200, Themes: []string{"opening", "development"}, Solution: []string{"d2d4"}},
	{ID: "fallback-3", FEN: "r1bqkb1r/pppp1ppp/2n2n2/4p3/4P3/3P1N2/PPP2PPP/RNBQKB1R w KQkq - 0 1",
		Moves: []string{"c2c4"}, Rating: 1400, Themes: []string{"opening", "center-control"}, Solution: []string{"c2c4"}},
	{ID: "fallback-4", FEN: "r1bqkb1r/pppp1ppp/2n2n2/4p3/4P3/3P1N2/PPP2PPP/RNBQKB1R w KQkq - 0 1",
		Moves: []string{"b1c3"}, Rating: 1600, Themes: []string{"development", "knight"}, Solution: []string{"b1c3"}},
	{ID: "fallback-5", FEN: "r1bqkb1r/pppp1ppp/2n2n2/4p3/4P3/3P1N2/PPP2PPP/RNBQKB1R w KQkq - 0 1",
		Moves: []string{"f1c4"}, Rating: 1800, Themes: []string{"development", "bishop"}, Solution: []string{"f1c4"}},
}

// FallbackPuzzle returns the built-in puzzle for a level, clamped to the
// available range.
func FallbackPuzzle(level int) Puzzle {
	i := level - 1
	if i < 0 {
		i = 0
	}
	if i >= len(fallbackPuzzles) {
		i = len(fallbackPuzzles) - 1
	}
	p := fallbackPuzzles[i]
	p.Moves = append([]string(nil), p.Moves...)
	p.Solution = append([]string(nil), p.Solution...)
	p.Themes = append([]string(nil), p.Themes...)
	return p
}

// PuzzleClient fetches puzzles from Lichess. Concurrent fetches of the same
// kind share one request. Any failure falls back to a built-in puzzle.
type PuzzleClient struct {
	baseURL string
	client  *http.Client
	group   singleflight.Group
}

// NewPuzzleClient returns a client for baseURL, or DefaultPuzzleURL when empty.
func NewPuzzleClient(baseURL string) *PuzzleClient {
	if baseURL == "" {
		baseURL = DefaultPuzzleURL
	}
	return &PuzzleClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Daily returns today's puzzle.
func (c *PuzzleClient) Daily(ctx context.Context) Puzzle {
	return c.fetch(ctx, "daily")
}

// Random returns a random puzzle.
func (c *PuzzleClient) Random(ctx context.Context) Puzzle {
	return c.fetch(ctx, "random")
}

// ForLevel returns the puzzle for a level. Lichess has no rating filter on
// these endpoints, so levels map onto the built-in set.
func (c *PuzzleClient) ForLevel(_ context.Context, level int) Puzzle {
	return FallbackPuzzle(level)
}

func (c *PuzzleClient) fetch(ctx context.Context, kind string) Puzzle {
	if c == nil {
		return FallbackPuzzle(1)
	}
	v, err, _ := c.group.Do(kind, func() (any, error) {
		return c.get(ctx, c.baseURL+"/puzzle/"+kind)
	})
	if err != nil {
		slog.Debug("puzzle fetch failed, using fallback", "kind", kind, "error", err)
		return FallbackPuzzle(1)
	}
	return v.(Puzzle)
}

func (c *PuzzleClient) get(ctx context.Context, url string) (Puzzle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Puzzle{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Puzzle{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Puzzle{}, fmt.Errorf("lichess returned %d", resp.StatusCode)
	}

	var body struct {
		Game struct {
			URL string `json:"url"`
		} `json:"game"`
		Puzzle struct {
			ID     string   `json:"id"`
			FEN    string   `json:"fen"`
			Moves  string   `json:"moves"`
			Rating int      `json:"rating"`
			Themes []string `json:"themes"`
		} `json:"puzzle"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Puzzle{}, fmt.Errorf("decode puzzle: %w", err)
	}
	if _, err := ParseBoard(body.Puzzle.FEN); err != nil {
		return Puzzle{}, fmt.Errorf("puzzle %s: %w", body.Puzzle.ID, err)
	}

	moves := strings.Fields(body.Puzzle.Moves)
	themes := body.Puzzle.Themes
	if themes == nil {
		themes = []string{}
	}
	return Puzzle{
		ID:       body.Puzzle.ID,
		FEN:      body.Puzzle.FEN,
		Moves:    moves,
		Rating:   body.Puzzle.Rating,
		Themes:   themes,
		GameURL:  body.Game.URL,
		Solution: append([]string(nil), moves...),
	}, nil
}
