package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/openai"
	"github.com/yungbote/neurobridge-roadmap/internal/realtime/bus"
)

type Clients struct {
	Redis    *goredis.Client
	EventBus bus.Bus
	OpenAI   openai.Client
}

// wireClients connects optional backends. Without REDIS_ADDR events stay in
// process; without OPENAI_API_KEY only MCQs can be graded.
func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	if cfg.Redis.Addr != "" {
		rdb, err := bus.NewRedisClient(ctx, cfg.Redis.Addr)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		b, err := bus.NewRedisBus(log, rdb, cfg.Redis.Channel)
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init redis event bus: %w", err)
		}
		out.Redis, out.EventBus = rdb, b
	} else {
		log.Warn("REDIS_ADDR not set; using in-process event bus")
		out.EventBus = bus.NewLocalBus()
	}

	if cfg.OpenAI.APIKey != "" {
		c, err := openai.NewClient(log, cfg.OpenAI)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		out.OpenAI = c
	} else {
		log.Warn("OPENAI_API_KEY not set; coding and explanation answers cannot be graded")
	}
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.EventBus != nil {
		_ = c.EventBus.Close()
	}
}
