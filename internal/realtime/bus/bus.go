package bus

import (
	"context"

	"github.com/yungbote/neurobridge-roadmap/internal/realtime"
)

// Bus carries roadmap events between API nodes. Every node forwards what it
// receives into its local hub.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}
