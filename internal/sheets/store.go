// Package sheets stores scenario decisions in a Google Sheet, one row per
// decision: timestamp, scenario, choice, the two probabilities and the
// player id.
package sheets

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/zsenarchitect/ManVsGod/internal/decisions"
)

const DefaultRange = "Decisions!A:F"

type Config struct {
	SpreadsheetID string
	APIKey        string
	// Endpoint overrides the API base URL.
	Endpoint string
	Range    string
}

// Store is a decisions.Store backed by a spreadsheet.
type Store struct {
	svc   *gsheets.Service
	sheet string
	rng   string
}

// New connects to the spreadsheet. It returns a nil Store and no error
// when the key or sheet id is missing, meaning remote storage is off.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.APIKey == "" || cfg.SpreadsheetID == "" {
		return nil, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}

	rng := cfg.Range
	if rng == "" {
		rng = DefaultRange
	}
	return &Store{svc: svc, sheet: cfg.SpreadsheetID, rng: rng}, nil
}

func (s *Store) Append(ctx context.Context, d decisions.ScenarioDecision) error {
	row := []interface{}{
		d.Timestamp.UTC().Format(time.RFC3339Nano),
		d.ScenarioID,
		d.Choice,
		d.Probabilities.ChoiceA,
		d.Probabilities.ChoiceB,
		d.PlayerID,
	}
	vr := &gsheets.ValueRange{Values: [][]interface{}{row}}

	_, err := s.svc.Spreadsheets.Values.Append(s.sheet, s.rng, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append decision: %w", err)
	}
	return nil
}

// ReadAll returns every parseable row. Header and malformed rows are
// skipped.
func (s *Store) ReadAll(ctx context.Context) ([]decisions.ScenarioDecision, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.sheet, s.rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read decisions: %w", err)
	}

	var out []decisions.ScenarioDecision
	for _, row := range resp.Values {
		d, ok := parseRow(row)
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func parseRow(row []interface{}) (decisions.ScenarioDecision, bool) {
	if len(row) < 3 {
		return decisions.ScenarioDecision{}, false
	}
	cell := func(i int) string {
		if i >= len(row) {
			return ""
		}
		return fmt.Sprint(row[i])
	}

	id, err := strconv.Atoi(cell(1))
	if err != nil {
		return decisions.ScenarioDecision{}, false
	}
	choice, err := strconv.Atoi(cell(2))
	if err != nil {
		return decisions.ScenarioDecision{}, false
	}

	d := decisions.ScenarioDecision{ScenarioID: id, Choice: choice, PlayerID: cell(5)}
	if ts, err := time.Parse(time.RFC3339Nano, cell(0)); err == nil {
		d.Timestamp = ts
	}
	d.Probabilities.ChoiceA, _ = strconv.ParseFloat(cell(3), 64)
	d.Probabilities.ChoiceB, _ = strconv.ParseFloat(cell(4), 64)
	return d, true
}
