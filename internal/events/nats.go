package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSPublisher publishes score events on core NATS subjects.
type NATSPublisher struct {
	nc *nats.Conn
}

// Connect dials url with reconnects enabled.
func Connect(url string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("gamecentr"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{nc: nc}, nil
}

func (p *NATSPublisher) PublishScore(ctx context.Context, e ScoreEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := e.encode()
	if err != nil {
		return err
	}
	msg := &nats.Msg{
		Subject: e.Subject(),
		Data:    data,
		Header: nats.Header{
			"Event-ID": []string{e.ID},
			"Game":     []string{e.Game},
		},
	}
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
