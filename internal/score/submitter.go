// internal/score/submitter.go
//
// LocalSubmitter records finished games straight into the score store.
// It is the round.Submitter used when the server hosts the Scoring API itself.

package score

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/robalobadob/gamecentr/internal/events"
	"github.com/robalobadob/gamecentr/internal/round"
)

var (
	ErrUnknownGame = errors.New("unknown game")
	ErrNoOwner     = errors.New("owner is required")
)

// GameSet reports which game codes accept scores.
type GameSet interface {
	HasGame(code string) bool
}

type LocalSubmitter struct {
	store  *Store
	games  GameSet
	events events.Publisher
	log    zerolog.Logger
}

// NewLocalSubmitter wires a store, the known games and an optional event publisher.
func NewLocalSubmitter(st *Store, games GameSet, pub events.Publisher, l zerolog.Logger) *LocalSubmitter {
	return &LocalSubmitter{store: st, games: games, events: pub, log: l}
}

// Record validates and stores sc, then publishes a score event.
// Publishing failures are logged and do not fail the call.
func (l *LocalSubmitter) Record(ctx context.Context, sc *Score) error {
	if sc.Owner == "" {
		return ErrNoOwner
	}
	if !l.games.HasGame(sc.Game) {
		return fmt.Errorf("%w: %q", ErrUnknownGame, sc.Game)
	}
	if err := l.store.Insert(ctx, sc); err != nil {
		return err
	}
	if l.events != nil {
		ev := events.ScoreEvent{
			ID:        uuid.NewString(),
			ScoreID:   sc.ID,
			Owner:     sc.Owner,
			Game:      sc.Game,
			Value:     sc.Value,
			Text:      sc.Text,
			Timestamp: sc.CreatedAt,
		}
		if err := l.events.PublishScore(ctx, ev); err != nil {
			l.log.Warn().Err(err).Str("scoreId", sc.ID).Msg("publish score event")
		}
	}
	return nil
}

// Submit implements round.Submitter.
func (l *LocalSubmitter) Submit(ctx context.Context, s round.Submission) (round.SubmitResult, error) {
	sc := &Score{Owner: s.Owner, Game: s.Game, Value: s.Value, Text: s.Text}
	if err := l.Record(ctx, sc); err != nil {
		return round.SubmitResult{}, err
	}
	return round.SubmitResult{Success: true, Data: sc}, nil
}
