package persistence

import (
	"context"
	"fmt"

	"github.com/zsenarchitect/ManVsGod/internal/decisions"
)

// ScenarioStore is the local decisions.Store.
type ScenarioStore struct {
	db *DB
}

func (db *DB) Scenarios() *ScenarioStore { return &ScenarioStore{db: db} }

type scenarioRow struct {
	At         int64   `db:"at"`
	ScenarioID int     `db:"scenario_id"`
	Choice     int     `db:"choice"`
	ChoiceA    float64 `db:"choice_a"`
	ChoiceB    float64 `db:"choice_b"`
	PlayerID   string  `db:"player_id"`
}

func (s *ScenarioStore) Append(ctx context.Context, d decisions.ScenarioDecision) error {
	_, err := s.db.conn.ExecContext(ctx, `INSERT INTO scenario_decisions
		(at, scenario_id, choice, choice_a, choice_b, player_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.Timestamp.UnixNano(), d.ScenarioID, d.Choice,
		d.Probabilities.ChoiceA, d.Probabilities.ChoiceB, d.PlayerID,
	)
	if err != nil {
		return fmt.Errorf("insert scenario decision: %w", err)
	}
	return nil
}

func (s *ScenarioStore) ReadAll(ctx context.Context) ([]decisions.ScenarioDecision, error) {
	var rows []scenarioRow
	err := s.db.conn.SelectContext(ctx, &rows, `SELECT at, scenario_id, choice, choice_a, choice_b, player_id
		FROM scenario_decisions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load scenario decisions: %w", err)
	}

	out := make([]decisions.ScenarioDecision, 0, len(rows))
	for _, r := range rows {
		out = append(out, decisions.ScenarioDecision{
			Timestamp:     fromNanos(r.At),
			ScenarioID:    r.ScenarioID,
			Choice:        r.Choice,
			Probabilities: decisions.Probabilities{ChoiceA: r.ChoiceA, ChoiceB: r.ChoiceB},
			PlayerID:      r.PlayerID,
		})
	}
	return out, nil
}
