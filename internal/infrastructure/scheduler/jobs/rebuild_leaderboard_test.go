package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/leaderboard"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
)

type fakeSnapshotter struct {
	snapshot []leaderboard.RankedUser
	err      error
}

func (f *fakeSnapshotter) SnapshotAll(ctx context.Context) ([]leaderboard.RankedUser, error) {
	return f.snapshot, f.err
}

type fakeRebuilder struct {
	mu       sync.Mutex
	received [][]leaderboard.RankedUser
	err      error
}

func (f *fakeRebuilder) RebuildFromSnapshot(ctx context.Context, snapshot []leaderboard.RankedUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, snapshot)
	return f.err
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func quietSlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRebuildJob_Run(t *testing.T) {
	snapshot := []leaderboard.RankedUser{
		{UserID: "alice", TotalXP: 200},
		{UserID: "bob", TotalXP: 100},
	}
	source := &fakeSnapshotter{snapshot: snapshot}
	target := &fakeRebuilder{}
	pub := &capturingPublisher{}

	job := NewRebuildLeaderboardJob(source, target, pub, quietSlog(), time.Minute)
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, target.received, 1)
	assert.Equal(t, snapshot, target.received[0])

	stats := job.LastRebuildStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.Entries)

	require.Len(t, pub.events, 1)
	assert.Equal(t, shared.EventLeaderboardRebuilt, pub.events[0].EventType())
}

func TestRebuildJob_SnapshotFailure(t *testing.T) {
	boom := errors.New("boom")
	source := &fakeSnapshotter{err: boom}
	target := &fakeRebuilder{}

	job := NewRebuildLeaderboardJob(source, target, nil, quietSlog(), time.Minute)
	err := job.Run(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, target.received)
	assert.Nil(t, job.LastRebuildStats())
}

func TestRebuildJob_RebuildFailureRetriesThenSurfaces(t *testing.T) {
	boom := errors.New("boom")
	source := &fakeSnapshotter{snapshot: nil}
	target := &fakeRebuilder{err: boom}

	job := NewRebuildLeaderboardJob(source, target, nil, quietSlog(), time.Minute)
	err := job.Run(context.Background())

	assert.ErrorIs(t, err, boom)
	// The cache retrier makes more than one attempt before giving up.
	assert.GreaterOrEqual(t, len(target.received), 2)
}
