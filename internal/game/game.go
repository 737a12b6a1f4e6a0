// Package game runs play sessions: a player works through the campaign one
// level at a time, wagering currency and choosing whether to capture or
// spare, while every turn feeds the rules engine and the crowd tally.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zsenarchitect/ManVsGod/internal/decisions"
	"github.com/zsenarchitect/ManVsGod/internal/dilemma"
	"github.com/zsenarchitect/ManVsGod/internal/entropy"
	"github.com/zsenarchitect/ManVsGod/internal/levels"
	"github.com/zsenarchitect/ManVsGod/internal/rules"
	"github.com/zsenarchitect/ManVsGod/internal/telemetry"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionComplete      = errors.New("session already complete")
	ErrInsufficientCurrency = errors.New("insufficient currency")
	ErrBetOutOfRange        = errors.New("bet out of range")
	ErrInvalidMove          = errors.New("invalid move")
	ErrInvalidTurn          = errors.New("invalid turn")
)

var validate = validator.New()

// Turn is what the player submits for the current level. Bet is the
// currency staked on the choice. Confidence is the player's own
// probability for it, set against God's.
type Turn struct {
	Choice       int           `json:"choice" validate:"oneof=0 1"`
	Move         string        `json:"move" validate:"required"`
	Bet          int64         `json:"bet" validate:"gte=0"`
	Confidence   int           `json:"confidence" validate:"gte=0,lte=100"`
	DecisionTime time.Duration `json:"decisionTime,omitempty"`
}

// TurnResult reports one played level.
type TurnResult struct {
	Level            int                     `json:"level"`
	Choice           int                     `json:"choice"`
	Move             string                  `json:"move"`
	Bet              int64                   `json:"bet"`
	GodBet           int                     `json:"godBet"`
	FollowedGod      bool                    `json:"followedGod"`
	Score            int                     `json:"score"`
	MoveCost         decimal.Decimal         `json:"moveCost"`
	DisobedienceCost decimal.Decimal         `json:"disobedienceCost"`
	SurvivalBonus    decimal.Decimal         `json:"survivalBonus"`
	Currency         decimal.Decimal         `json:"currency"`
	MoralChoice      levels.MoralChoice      `json:"moralChoice"`
	Probabilities    decisions.Probabilities `json:"probabilities"`
	Outcome          rules.Outcome           `json:"outcome"`
}

// Session is one player's run through the campaign.
type Session struct {
	ID           string           `json:"id"`
	PlayerID     string           `json:"playerId"`
	Level        int              `json:"level"`
	Currency     decimal.Decimal  `json:"currency"`
	TotalScore   int              `json:"totalScore"`
	MoralChoices []dilemma.Choice `json:"moralChoices"`
	MoralScore   float64          `json:"moralScore"`
	Weighted     float64          `json:"weightedScore"`
	Completed    bool             `json:"completed"`
	Outcome      rules.Outcome    `json:"outcome"`
	Ranking      string           `json:"ranking,omitempty"`
	MoralRanking string           `json:"moralRanking,omitempty"`
	Turns        []TurnResult     `json:"turns"`
	StartedAt    time.Time        `json:"startedAt"`
}

func (s Session) clone() Session {
	s.MoralChoices = append([]dilemma.Choice(nil), s.MoralChoices...)
	s.Turns = append([]TurnResult(nil), s.Turns...)
	return s
}

// session serializes turns on one Session.
type session struct {
	mu    sync.Mutex
	state Session
}

// Service owns the live sessions.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*session

	catalog    *levels.Catalog
	engine     *rules.Engine
	store      decisions.Store
	jitter     entropy.Source
	noise      decisions.TimeNoise
	sink       *telemetry.Sink
	onDecision func(rules.Decision)
	now        func() time.Time
}

type Option func(*Service)

// WithStore records each turn's scenario decision in s.
func WithStore(s decisions.Store) Option {
	return func(svc *Service) { svc.store = s }
}

// WithJitter sets the randomness behind God's bet.
func WithJitter(j entropy.Source) Option {
	return func(svc *Service) { svc.jitter = j }
}

// WithNoise sets the time noise behind the displayed probabilities.
func WithNoise(n decisions.TimeNoise) Option {
	return func(svc *Service) { svc.noise = n }
}

func WithSink(s *telemetry.Sink) Option {
	return func(svc *Service) { svc.sink = s }
}

// OnDecision is called with every decision the engine accepts.
func OnDecision(fn func(rules.Decision)) Option {
	return func(svc *Service) { svc.onDecision = fn }
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

func NewService(catalog *levels.Catalog, engine *rules.Engine, opts ...Option) *Service {
	svc := &Service{
		sessions: make(map[string]*session),
		catalog:  catalog,
		engine:   engine,
		now:      time.Now,
	}
	for _, o := range opts {
		o(svc)
	}
	if svc.sink == nil {
		svc.sink = telemetry.NewSink()
	}
	return svc
}

// Start opens a session at level 1 with the starting purse. An empty
// playerID gets a generated one.
func (svc *Service) Start(playerID string) Session {
	if playerID == "" {
		playerID = "player_" + uuid.NewString()
	}
	s := Session{
		ID:        uuid.NewString(),
		PlayerID:  playerID,
		Level:     1,
		Currency:  decimal.NewFromInt(int64(svc.catalog.Config().StartingCurrency)),
		Outcome:   rules.OutcomeContinue,
		StartedAt: svc.now(),
	}

	svc.mu.Lock()
	svc.sessions[s.ID] = &session{state: s}
	svc.mu.Unlock()

	slog.Info("session started", "session", s.ID, "player", playerID)
	return s.clone()
}

func (svc *Service) lookup(id string) (*session, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	s, ok := svc.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return s, nil
}

// Session returns a copy of session id.
func (svc *Service) Session(id string) (Session, error) {
	s, err := svc.lookup(id)
	if err != nil {
		return Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone(), nil
}

// Count returns the number of live sessions.
func (svc *Service) Count() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return len(svc.sessions)
}

// CurrentLevel loads the level the session is on, with its dilemma and board.
func (svc *Service) CurrentLevel(ctx context.Context, id string) (levels.Level, error) {
	s, err := svc.lookup(id)
	if err != nil {
		return levels.Level{}, err
	}
	s.mu.Lock()
	level, done := s.state.Level, s.state.Completed
	s.mu.Unlock()
	if done {
		return levels.Level{}, ErrSessionComplete
	}
	return svc.catalog.Load(ctx, level)
}
