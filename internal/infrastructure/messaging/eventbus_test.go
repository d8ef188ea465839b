package messaging

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
)

type countingHandler struct {
	mu   sync.Mutex
	name string
	seen []shared.EventType
	fail error
}

func (h *countingHandler) Handle(event shared.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, event.EventType())
	return h.fail
}

func (h *countingHandler) Name() string { return h.name }

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

// stubEvent gives BaseEvent the Payload method the bus requires of
// published events.
type stubEvent struct {
	shared.BaseEvent
}

func (stubEvent) Payload() map[string]interface{} { return nil }

func newEvent(typ shared.EventType, aggregateID string) shared.Event {
	return stubEvent{BaseEvent: shared.NewBaseEvent(typ, aggregateID)}
}

func syncBus() *InMemoryEventBus {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = false
	return NewInMemoryEventBus(cfg)
}

func TestEventBus_DeliversByType(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	xp := &countingHandler{name: "xp"}
	level := &countingHandler{name: "level"}
	require.NoError(t, bus.Subscribe(shared.EventXPCredited, xp))
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, level))

	require.NoError(t, bus.Publish(newEvent(shared.EventXPCredited, "user-1")))
	require.NoError(t, bus.Publish(newEvent(shared.EventXPCredited, "user-2")))

	assert.Equal(t, 2, xp.count())
	assert.Equal(t, 0, level.count())
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	all := &countingHandler{name: "audit"}
	require.NoError(t, bus.SubscribeAll(all))

	require.NoError(t, bus.Publish(newEvent(shared.EventXPCredited, "user-1")))
	require.NoError(t, bus.Publish(newEvent(shared.EventLevelUp, "user-1")))

	assert.Equal(t, 2, all.count())
}

func TestEventBus_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	failing := &countingHandler{name: "failing", fail: errors.New("boom")}
	healthy := &countingHandler{name: "healthy"}
	require.NoError(t, bus.Subscribe(shared.EventXPCredited, failing))
	require.NoError(t, bus.Subscribe(shared.EventXPCredited, healthy))

	require.NoError(t, bus.Publish(newEvent(shared.EventXPCredited, "user-1")))

	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, healthy.count())
}

func TestEventBus_AsyncDelivery(t *testing.T) {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.WorkerPoolSize = 2
	bus := NewInMemoryEventBus(cfg)
	defer bus.Close()

	h := &countingHandler{name: "async"}
	require.NoError(t, bus.Subscribe(shared.EventXPCredited, h))

	const published = 10
	for i := 0; i < published; i++ {
		require.NoError(t, bus.Publish(newEvent(shared.EventXPCredited, "user-1")))
	}

	assert.Eventually(t, func() bool { return h.count() == published },
		2*time.Second, 10*time.Millisecond)
}

func TestEventBus_RejectsNilAndClosed(t *testing.T) {
	bus := syncBus()

	assert.ErrorIs(t, bus.Subscribe(shared.EventXPCredited, nil), ErrNilHandler)
	assert.ErrorIs(t, bus.Publish(nil), ErrNilEvent)

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(newEvent(shared.EventXPCredited, "user-1")), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventXPCredited, &countingHandler{name: "late"}), ErrEventBusClosed)

	// A second close is a no-op.
	assert.NoError(t, bus.Close())
}

func TestEventBus_Metrics(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	h := &countingHandler{name: "metrics"}
	require.NoError(t, bus.Subscribe(shared.EventXPCredited, h))
	require.NoError(t, bus.Publish(newEvent(shared.EventXPCredited, "user-1")))

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalPublished)
	assert.Equal(t, int64(1), snap.TotalHandlerExecs)
	assert.Equal(t, 1.0, snap.HandlerSuccessRate)
}
