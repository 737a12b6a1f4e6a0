package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsenarchitect/ManVsGod/internal/decisions"
)

// fakeSheet serves the two values endpoints the store uses.
type fakeSheet struct {
	mu     sync.Mutex
	rows   [][]interface{}
	keys   []string
	inputs []string
	fail   bool
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.keys = append(f.keys, r.URL.Query().Get("key"))
	if f.fail {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"denied"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append") {
		f.inputs = append(f.inputs, r.URL.Query().Get("valueInputOption"))
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.rows = append(f.rows, body.Values...)
		w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"range":          "Decisions!A1:F10",
		"majorDimension": "ROWS",
		"values":         f.rows,
	})
}

func newStore(t *testing.T, f *fakeSheet) *Store {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	s, err := New(context.Background(), Config{
		SpreadsheetID: "sheet-1",
		APIKey:        "test-key",
		Endpoint:      srv.URL + "/",
	})
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func TestNewUnconfigured(t *testing.T) {
	s, err := New(context.Background(), Config{SpreadsheetID: "sheet-1"})
	assert.NoError(t, err)
	assert.Nil(t, s)

	s, err = New(context.Background(), Config{APIKey: "k"})
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestAppendAndReadAll(t *testing.T) {
	f := &fakeSheet{rows: [][]interface{}{
		{"timestamp", "scenarioId", "choice", "choiceA", "choiceB", "playerId"},
	}}
	s := newStore(t, f)
	ctx := context.Background()

	d := decisions.ScenarioDecision{
		Timestamp:     time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		ScenarioID:    3,
		Choice:        1,
		Probabilities: decisions.Probabilities{ChoiceA: 35, ChoiceB: 65},
		PlayerID:      "player-7",
	}
	require.NoError(t, s.Append(ctx, d))
	assert.Equal(t, []string{"RAW"}, f.inputs)
	assert.Equal(t, "test-key", f.keys[0])

	got, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, d, got[0])
}

func TestReadAllSkipsMalformedRows(t *testing.T) {
	f := &fakeSheet{rows: [][]interface{}{
		{"2026-06-01T10:00:00Z", "1", "0"},
		{"2026-06-01T10:00:00Z", "x", "0"},
		{"only", "two"},
		{"not a time", "2", "1", "40", "60"},
	}}
	s := newStore(t, f)

	got, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ScenarioID)
	assert.Equal(t, 2, got[1].ScenarioID)
	assert.True(t, got[1].Timestamp.IsZero())
	assert.Equal(t, 60.0, got[1].Probabilities.ChoiceB)
}

func TestErrorsSurface(t *testing.T) {
	s := newStore(t, &fakeSheet{fail: true})
	ctx := context.Background()

	assert.Error(t, s.Append(ctx, decisions.ScenarioDecision{ScenarioID: 1}))
	_, err := s.ReadAll(ctx)
	assert.Error(t, err)
}
