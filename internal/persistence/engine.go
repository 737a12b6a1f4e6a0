package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zsenarchitect/ManVsGod/internal/rules"
)

const metaSavedAt = "engine_saved_at"

type ruleRow struct {
	ID            string  `db:"id"`
	Category      string  `db:"category"`
	Current       float64 `db:"current_value"`
	Influence     float64 `db:"influence"`
	LastEvolvedAt int64   `db:"last_evolved_at"`
	Active        bool    `db:"active"`
}

type eventRow struct {
	RuleID       string  `db:"rule_id"`
	Category     string  `db:"category"`
	Previous     float64 `db:"previous_value"`
	New          float64 `db:"new_value"`
	Trigger      string  `db:"trigger_desc"`
	Influence    float64 `db:"influence"`
	SuccessRate  float64 `db:"success_rate"`
	AdoptionRate float64 `db:"adoption_rate"`
	Kind         string  `db:"kind"`
	At           int64   `db:"at"`
}

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

// SaveEngine writes the rules and evolution history (full replace). The
// decision log is append-only and saved with AppendDecision.
func (db *DB) SaveEngine(s rules.Snapshot) error {
	slog.Info("saving rules engine", "rules", len(s.Rules), "events", len(s.History))

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM rules"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM evolution_events"); err != nil {
		return err
	}

	for _, r := range s.Rules {
		_, err := tx.Exec(`INSERT INTO rules
			(id, category, current_value, influence, last_evolved_at, active)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, string(r.Category), r.Current.Float64(), r.Influence,
			r.LastEvolvedAt.UnixNano(), r.Active,
		)
		if err != nil {
			return fmt.Errorf("insert rule %s: %w", r.ID, err)
		}
	}

	for _, e := range s.History {
		_, err := tx.Exec(`INSERT INTO evolution_events
			(rule_id, category, previous_value, new_value, trigger_desc, influence,
			 success_rate, adoption_rate, kind, at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.RuleID, string(e.Category), e.Previous.Float64(), e.New.Float64(),
			e.Trigger, e.Influence, e.EstimatedSuccessRate, e.EstimatedAdoptionRate,
			string(e.Kind), e.Timestamp.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("insert evolution of %s: %w", e.RuleID, err)
		}
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		metaSavedAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	return tx.Commit()
}

// LoadEngine reads back everything SaveEngine and AppendDecision wrote.
// It returns ErrNoState when no engine has been saved.
func (db *DB) LoadEngine() (rules.Snapshot, error) {
	var s rules.Snapshot

	var ruleRows []ruleRow
	if err := db.conn.Select(&ruleRows, "SELECT * FROM rules ORDER BY rowid"); err != nil {
		return s, fmt.Errorf("load rules: %w", err)
	}
	if len(ruleRows) == 0 {
		return s, ErrNoState
	}
	for _, rr := range ruleRows {
		v, err := rules.NewValue(rules.Category(rr.Category), rr.Current)
		if err != nil {
			return s, fmt.Errorf("load rule %s: %w", rr.ID, err)
		}
		s.Rules = append(s.Rules, rules.Rule{
			ID:            rr.ID,
			Category:      rules.Category(rr.Category),
			Current:       v,
			Influence:     rr.Influence,
			LastEvolvedAt: fromNanos(rr.LastEvolvedAt),
			Active:        rr.Active,
		})
	}

	var eventRows []eventRow
	err := db.conn.Select(&eventRows, `SELECT rule_id, category, previous_value, new_value,
		trigger_desc, influence, success_rate, adoption_rate, kind, at
		FROM evolution_events ORDER BY id`)
	if err != nil {
		return s, fmt.Errorf("load evolution history: %w", err)
	}
	for _, er := range eventRows {
		c := rules.Category(er.Category)
		prev, err := rules.NewValue(c, er.Previous)
		if err != nil {
			return s, fmt.Errorf("load evolution of %s: %w", er.RuleID, err)
		}
		next, err := rules.NewValue(c, er.New)
		if err != nil {
			return s, fmt.Errorf("load evolution of %s: %w", er.RuleID, err)
		}
		s.History = append(s.History, rules.EvolutionEvent{
			RuleID:                er.RuleID,
			Category:              c,
			Previous:              prev,
			New:                   next,
			Trigger:               er.Trigger,
			Influence:             er.Influence,
			EstimatedSuccessRate:  er.SuccessRate,
			EstimatedAdoptionRate: er.AdoptionRate,
			Timestamp:             fromNanos(er.At),
			Kind:                  rules.MutationKind(er.Kind),
		})
	}

	ds, err := db.LoadDecisions()
	if err != nil {
		return s, err
	}
	s.Decisions = ds
	return s, nil
}

// AppendDecision adds one engine decision to the log.
func (db *DB) AppendDecision(d rules.Decision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	_, err = db.conn.Exec("INSERT INTO decisions (actor_id, at, payload) VALUES (?, ?, ?)",
		d.ActorID, d.Timestamp.UnixNano(), string(payload))
	return err
}

// LoadDecisions returns the engine decision log, oldest first.
func (db *DB) LoadDecisions() ([]rules.Decision, error) {
	var payloads []string
	if err := db.conn.Select(&payloads, "SELECT payload FROM decisions ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load decisions: %w", err)
	}
	out := make([]rules.Decision, 0, len(payloads))
	for _, p := range payloads {
		var d rules.Decision
		if err := json.Unmarshal([]byte(p), &d); err != nil {
			return nil, fmt.Errorf("decode decision: %w", err)
		}
		out = append(out, d)
	}
	return out, nil
}

// ClearDecisions empties the engine decision log, matching Engine.Reset.
func (db *DB) ClearDecisions() error {
	_, err := db.conn.Exec("DELETE FROM decisions")
	return err
}

// SavedAt reports when SaveEngine last ran.
func (db *DB) SavedAt() (time.Time, error) {
	v, err := db.GetMeta(metaSavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNoState
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}
