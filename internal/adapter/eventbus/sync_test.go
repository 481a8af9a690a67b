package eventbus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/logger"
)

func newBus(t *testing.T) *SyncEventBus {
	t.Helper()
	bus := NewSyncEventBus(logger.NewTestLogger())
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestPublishDeliversTypedEvent(t *testing.T) {
	bus := newBus(t)

	var got []domain.Event
	id := bus.Subscribe(domain.EventExportProgress, func(e domain.Event) { got = append(got, e) })
	require.NotEmpty(t, id)

	job := domain.ExportJob{ID: "job-1", State: domain.ExportCapturing, Progress: 42, FramesRendered: 10, TotalFrames: 30}
	bus.Publish(domain.NewExportProgressEvent(job))
	bus.Publish(domain.NewExportResetEvent("job-1"))

	require.Len(t, got, 1)
	progress, ok := got[0].(domain.ExportProgressEvent)
	require.True(t, ok)
	assert.Equal(t, "job-1", progress.JobID)
	assert.InDelta(t, 42.0, progress.Progress, 1e-9)
	assert.Equal(t, 10, progress.FramesRendered)
}

func TestHandlersRunInSubscriptionOrder(t *testing.T) {
	bus := newBus(t)

	var order []string
	bus.SubscribeAll(func(domain.Event) { order = append(order, "all") })
	bus.Subscribe(domain.EventSceneChanged, func(domain.Event) { order = append(order, "first") })
	second := bus.Subscribe(domain.EventSceneChanged, func(domain.Event) { order = append(order, "second") })
	bus.Subscribe(domain.EventSceneChanged, func(domain.Event) { order = append(order, "third") })

	bus.Publish(domain.NewSceneChangedEvent(domain.DefaultScene()))
	assert.Equal(t, []string{"first", "second", "third", "all"}, order)

	order = nil
	bus.Unsubscribe(second)
	bus.Publish(domain.NewSceneChangedEvent(domain.DefaultScene()))
	assert.Equal(t, []string{"first", "third", "all"}, order, "unsubscribe keeps the remaining order")
}

func TestUnsubscribeWildcard(t *testing.T) {
	bus := newBus(t)

	var calls int
	id := bus.SubscribeAll(func(domain.Event) { calls++ })
	assert.True(t, bus.HasSubscribers(domain.EventLiveStarted))

	bus.Unsubscribe(id)
	bus.Unsubscribe("sub-404")
	bus.Publish(domain.NewLiveStartedEvent(time.Second / 30))

	assert.Zero(t, calls)
	assert.False(t, bus.HasSubscribers(domain.EventLiveStarted))
	assert.Zero(t, bus.SubscriberCount())
}

func TestPanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := newBus(t)

	var delivered bool
	bus.Subscribe(domain.EventExportFailed, func(domain.Event) { panic("boom") })
	bus.Subscribe(domain.EventExportFailed, func(domain.Event) { delivered = true })

	assert.NotPanics(t, func() {
		bus.Publish(domain.NewExportFailedEvent("job", "encode", "encoding failed", nil))
	})
	assert.True(t, delivered)
}

func TestCloseStopsDelivery(t *testing.T) {
	bus := NewSyncEventBus(nil)

	var calls int
	bus.Subscribe(domain.EventExportCompleted, func(domain.Event) { calls++ })
	require.NoError(t, bus.Close())

	bus.Publish(domain.NewExportCompletedEvent("job", "song.mp4", 10, time.Second))
	assert.Zero(t, calls)
	assert.ErrorIs(t, bus.Close(), ErrClosed)
	assert.Panics(t, func() { bus.SubscribeAll(func(domain.Event) {}) })
}

func TestSubscribeNilHandlerPanics(t *testing.T) {
	bus := newBus(t)
	assert.Panics(t, func() { bus.Subscribe(domain.EventMediaLoaded, nil) })
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	bus := newBus(t)

	var received atomic.Int64
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			bus.Subscribe(domain.EventMediaLoaded, func(domain.Event) { received.Add(1) })
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				bus.Publish(domain.NewMediaLoadedEvent("background", "bg.png"))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, bus.SubscriberCount())
	before := received.Load()
	bus.Publish(domain.NewMediaLoadedEvent("album_art", "cover.jpg"))
	assert.Equal(t, before+8, received.Load())
}
