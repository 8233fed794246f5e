package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pinger is implemented by sinks whose reachability can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

const probeTimeout = 2 * time.Second

// sinkState caches the result of a sink reachability probe.
// Per-instance state, no package-level globals: each Trail owns its own.
type sinkState struct {
	mu        sync.Mutex
	checkedAt time.Time
	available bool
}

// Trail is the pipeline's best-effort audit writer. A failure to reach the
// sink never blocks or fails the governed action: events fall back to the
// structured zap fallback writer.
//
// Sink reachability is probed once at construction and cached; the accepted
// staleness window is the lifetime of the Trail.
type Trail struct {
	sink     EventWriter
	fallback EventWriter
	state    sinkState
	logger   *zap.Logger
}

// NewTrail creates a Trail over the given sink. If the sink implements
// Pinger the probe runs immediately; a sink that fails the probe (or a nil
// sink) degrades to the zap fallback writer.
func NewTrail(sink EventWriter, logger *zap.Logger) *Trail {
	t := &Trail{
		sink:     sink,
		fallback: NewLogWriter(logger),
		logger:   logger,
	}

	available := sink != nil
	if p, ok := sink.(Pinger); ok && available {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			logger.Warn("audit sink unreachable, degrading to log writer",
				zap.Error(err),
			)
			available = false
		}
	}

	t.state.mu.Lock()
	t.state.checkedAt = time.Now()
	t.state.available = available
	t.state.mu.Unlock()

	return t
}

// Log appends an event to the trail. Best-effort and non-blocking: the
// outcome of the governed action is never affected by the sink.
func (t *Trail) Log(actorID, eventType string, payload map[string]any) {
	event := &Event{
		EventID:   uuid.New().String(),
		ActorID:   actorID,
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	t.state.mu.Lock()
	available := t.state.available
	t.state.mu.Unlock()

	if available {
		t.sink.Write(event)
		return
	}
	t.fallback.Write(event)
}

// Close flushes the underlying sink.
func (t *Trail) Close() {
	if t.sink != nil {
		t.sink.Close()
	}
	t.fallback.Close()
}
