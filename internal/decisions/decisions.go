// Package decisions records which way players went on each scenario and
// turns the tally into crowd statistics.
package decisions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/zsenarchitect/ManVsGod/internal/telemetry"
)

var ErrInvalid = errors.New("invalid scenario decision")

var validate = validator.New()

// Probabilities are the percentages shown for each choice.
type Probabilities struct {
	ChoiceA float64 `json:"choiceA" validate:"gte=0,lte=100"`
	ChoiceB float64 `json:"choiceB" validate:"gte=0,lte=100"`
}

// ScenarioDecision is one player's pick on one scenario. Choice 0 is A,
// 1 is B.
type ScenarioDecision struct {
	Timestamp     time.Time     `json:"timestamp"`
	ScenarioID    int           `json:"scenarioId" validate:"gte=1"`
	Choice        int           `json:"choice" validate:"oneof=0 1"`
	Probabilities Probabilities `json:"probabilities"`
	PlayerID      string        `json:"playerId,omitempty"`
}

func (d ScenarioDecision) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Store persists scenario decisions.
type Store interface {
	Append(ctx context.Context, d ScenarioDecision) error
	ReadAll(ctx context.Context) ([]ScenarioDecision, error)
}

// Fallback writes to a remote store when one is configured and falls back
// to the local store when it fails. Remote failures are logged and
// counted, never returned.
type Fallback struct {
	remote Store
	local  Store
	logger *slog.Logger
}

// NewFallback pairs local with an optional remote. Pass a nil interface,
// not a typed nil pointer, when there is no remote.
func NewFallback(local, remote Store, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{remote: remote, local: local, logger: logger}
}

// Remote reports whether a remote store is configured.
func (f *Fallback) Remote() bool { return f.remote != nil }

func (f *Fallback) Append(ctx context.Context, d ScenarioDecision) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if f.remote != nil {
		err := f.remote.Append(ctx, d)
		if err == nil {
			return nil
		}
		f.logger.Warn("remote decision store failed, writing locally", "error", err)
		telemetry.StoreFallbacks.WithLabelValues("append").Inc()
	}
	return f.local.Append(ctx, d)
}

// ReadAll returns the remote rows followed by the local ones. With a remote
// configured the local store only holds what was written during outages,
// so nothing is counted twice.
func (f *Fallback) ReadAll(ctx context.Context) ([]ScenarioDecision, error) {
	if f.remote == nil {
		return f.local.ReadAll(ctx)
	}

	ds, err := f.remote.ReadAll(ctx)
	if err != nil {
		f.logger.Warn("remote decision store failed, reading locally", "error", err)
		telemetry.StoreFallbacks.WithLabelValues("read").Inc()
		return f.local.ReadAll(ctx)
	}
	local, err := f.local.ReadAll(ctx)
	if err != nil {
		f.logger.Warn("local decision store failed, serving remote rows only", "error", err)
		return ds, nil
	}
	return append(ds, local...), nil
}
