// internal/events/submitter.go
//
// Publishing decorates a round.Submitter that stores scores elsewhere (the
// remote Scoring API client) so its accepted scores are announced too.

package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/robalobadob/gamecentr/internal/round"
)

type publishing struct {
	next  round.Submitter
	pub   Publisher
	clock clockwork.Clock
	log   zerolog.Logger
}

// Publishing returns a submitter that publishes a ScoreEvent after next
// accepted a score. Publish failures are logged only.
func Publishing(next round.Submitter, pub Publisher, clock clockwork.Clock, l zerolog.Logger) round.Submitter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &publishing{next: next, pub: pub, clock: clock, log: l}
}

func (p *publishing) Submit(ctx context.Context, s round.Submission) (round.SubmitResult, error) {
	res, err := p.next.Submit(ctx, s)
	if err != nil {
		return res, err
	}
	ev := ScoreEvent{
		ID:        uuid.NewString(),
		ScoreID:   remoteID(res.Data),
		Owner:     s.Owner,
		Game:      s.Game,
		Value:     s.Value,
		Text:      s.Text,
		Timestamp: p.clock.Now().UTC(),
	}
	if err := p.pub.PublishScore(ctx, ev); err != nil {
		p.log.Warn().Err(err).Str("game", s.Game).Msg("publish score event")
	}
	return res, nil
}

// remoteID picks the score id out of a decoded response payload, if any.
func remoteID(data any) string {
	if m, ok := data.(map[string]any); ok {
		if id, ok := m["id"].(string); ok {
			return id
		}
	}
	return ""
}
