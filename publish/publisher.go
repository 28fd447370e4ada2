// Package publish forwards session events to Redis subscribers.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/neurotrack/neurotrack/eeg"
	"github.com/neurotrack/neurotrack/session"
	"github.com/neurotrack/neurotrack/sim"
)

// A Sink delivers payloads to a pub/sub channel.
type Sink interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisSink publishes with a Redis client.
type RedisSink struct {
	client *redis.Client
}

// DialRedis connects to a Redis server and checks that it answers.
func DialRedis(
	ctx context.Context,
	addr, password string,
	db int,
) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}

	return &RedisSink{client: client}, nil
}

// Publish sends the payload to the channel.
func (s *RedisSink) Publish(
	ctx context.Context,
	channel string,
	payload []byte,
) error {
	return s.client.Publish(ctx, channel, payload).Err()
}

// Close closes the connection.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

// Event is the envelope of a published message.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Data      any    `json:"data"`
}

const queueSize = 128

// A Publisher is a hook that publishes phase changes and acute events. The
// hook only queues; Run does the network work on its own goroutine.
type Publisher struct {
	sink      Sink
	channel   string
	queue     chan []byte
	sessionID string
	dropped   atomic.Int64
}

// NewPublisher creates a publisher that sends to <prefix>:events.
func NewPublisher(sink Sink, prefix string) *Publisher {
	return &Publisher{
		sink:    sink,
		channel: prefix + ":events",
		queue:   make(chan []byte, queueSize),
	}
}

// Channel returns the channel events are published on.
func (p *Publisher) Channel() string {
	return p.channel
}

// Dropped returns how many events were discarded because the queue was full.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Func queues phase changes and acute events.
func (p *Publisher) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case session.HookPosPhaseChange:
		change := ctx.Item.(session.PhaseChange)
		if change.SessionID != "" {
			p.sessionID = change.SessionID
		}

		p.enqueue(Event{"phase_change", p.sessionID, change})

		if change.To == session.PhaseIdle {
			p.sessionID = ""
		}
	case eeg.HookPosAcuteEvent:
		p.enqueue(Event{"acute_event", p.sessionID, ctx.Item.(eeg.AcuteEvent)})
	}
}

func (p *Publisher) enqueue(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("publish: cannot encode %s: %v", e.Type, err)
		return
	}

	select {
	case p.queue <- payload:
	default:
		p.dropped.Add(1)
	}
}

// Run publishes queued events until the context is canceled. Failed
// publications are logged and skipped.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-p.queue:
			err := p.sink.Publish(ctx, p.channel, payload)
			if err != nil && ctx.Err() == nil {
				log.Printf("publish: %v", err)
			}
		}
	}
}
