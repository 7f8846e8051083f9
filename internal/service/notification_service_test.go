package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oncolab/leukoflow/internal/domain"
	"github.com/oncolab/leukoflow/pkg/metrics"
)

// gatedNotificationRepo blocks inside Create until released, so a test
// can hold the worker mid-write while it fills the buffer.
type gatedNotificationRepo struct {
	entered chan struct{}
	release chan struct{}

	mu      sync.Mutex
	created int
}

func newGatedNotificationRepo() *gatedNotificationRepo {
	return &gatedNotificationRepo{
		entered: make(chan struct{}, notificationBufferSize+2),
		release: make(chan struct{}),
	}
}

func (g *gatedNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	g.entered <- struct{}{}
	<-g.release
	g.mu.Lock()
	g.created++
	g.mu.Unlock()
	return nil
}

func (g *gatedNotificationRepo) createdCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.created
}

func TestNotifyAsyncDropsWhenBufferFull(t *testing.T) {
	repo := newGatedNotificationRepo()
	collector := metrics.NewCollector("leukoflow_notifytest")
	svc := NewNotificationService(repo, collector, zap.NewNop())

	enqueue := func() {
		svc.NotifyAsync(uuid.New(), uuid.New(), uuid.New(), domain.NotificationReportStatusChange, "status moved")
	}

	// Park the worker inside its first write, then fill the buffer
	// behind it.
	enqueue()
	select {
	case <-repo.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never picked up the first entry")
	}
	for i := 0; i < notificationBufferSize; i++ {
		enqueue()
	}

	// The buffer is at capacity; one more must drop, not block.
	enqueue()
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.NotificationsDropped))

	close(repo.release)
	svc.Shutdown()

	assert.Equal(t, notificationBufferSize+1, repo.createdCount())
	assert.Equal(t, float64(notificationBufferSize+1), testutil.ToFloat64(collector.NotificationsTotal))
}

func TestNotifyAsyncAfterShutdown(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, nil, zap.NewNop())
	svc.Shutdown()

	require.NotPanics(t, func() {
		svc.NotifyAsync(uuid.New(), uuid.New(), uuid.New(), domain.NotificationNewReport, "late entry")
	})
	assert.Empty(t, repo.all())

	// Repeated shutdowns are a no-op.
	require.NotPanics(t, svc.Shutdown)
}
