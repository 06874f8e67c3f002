// internal/events/events.go
//
// Score events emitted after a score is stored.
// Responsibilities:
//   - ScoreEvent: the payload other services consume.
//   - Publisher: where events go (NATS when configured, the log otherwise).

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// SubjectPrefix is prepended to the game code to form the NATS subject.
const SubjectPrefix = "gamecentr.scores"

// ScoreEvent announces a stored score.
type ScoreEvent struct {
	ID        string    `json:"eventId"`
	ScoreID   string    `json:"scoreId"`
	Owner     string    `json:"owner"`
	Game      string    `json:"game"`
	Value     int       `json:"value"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Subject is the NATS subject an event is published on.
func (e ScoreEvent) Subject() string { return fmt.Sprintf("%s.%s", SubjectPrefix, e.Game) }

func (e ScoreEvent) encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return b, nil
}

// Publisher delivers score events.
type Publisher interface {
	PublishScore(ctx context.Context, e ScoreEvent) error
	Close()
}

// LogPublisher writes events to a logger. Used when no broker is configured.
type LogPublisher struct{ log zerolog.Logger }

func NewLogPublisher(l zerolog.Logger) *LogPublisher { return &LogPublisher{log: l} }

func (p *LogPublisher) PublishScore(_ context.Context, e ScoreEvent) error {
	p.log.Info().
		Str("subject", e.Subject()).
		Str("scoreId", e.ScoreID).
		Str("owner", e.Owner).
		Int("value", e.Value).
		Msg("score event")
	return nil
}

func (p *LogPublisher) Close() {}
