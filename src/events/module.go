package events

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/stake-plus/bountyboard/src/actions/core"
	sharedconfig "github.com/stake-plus/bountyboard/src/data/config"
)

var _ core.Module = (*Module)(nil)

// Module owns the Redis connection behind the event stream.
type Module struct {
	rdb       *redis.Client
	publisher *Publisher
}

// NewModule connects to Redis so the publisher can be registered as a sink
// before the dispatcher starts.
func NewModule(ctx context.Context, cfg *sharedconfig.EventsConfig) (*Module, error) {
	rdb, err := NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	return &Module{rdb: rdb, publisher: NewPublisher(rdb, cfg.Stream, cfg.MaxLen)}, nil
}

func (m *Module) Publisher() *Publisher { return m.publisher }

// Name implements actions.Module.
func (m *Module) Name() string { return "events" }

func (m *Module) Start(ctx context.Context) error {
	log.Printf("events: publishing to stream %s", m.publisher.stream)
	return nil
}

func (m *Module) Stop(ctx context.Context) {
	if err := m.rdb.Close(); err != nil {
		log.Printf("events: close redis: %v", err)
	}
}
