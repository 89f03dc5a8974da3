package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/multisense-org/sensor-native/api/driver"
	"github.com/multisense-org/sensor-native/api/errorkinds"
	"github.com/multisense-org/sensor-native/api/eventbus"
	"github.com/multisense-org/sensor-native/api/sensor"
	"github.com/multisense-org/sensor-native/orchestrator/internal/normalize"
)

// streamingHub owns the pump goroutines of continuous sensor kinds.
//
// Each running kind has exactly one pump, which normalizes raw samples,
// overwrites the kind's snapshot slot and publishes the reading to the event
// stream. Snapshot reads never take the arm lock, and a pump failure is
// isolated to its own kind.
type streamingHub struct {
	set      driver.ProducerSet
	gate     *permissionGate
	interval time.Duration
	clock    clock.Clock
	logger   *zap.Logger

	latest  *xsync.MapOf[sensor.Kind, sensor.Reading]
	streams *xsync.MapOf[sensor.Kind, *streamHandle]

	closed atomic.Bool
	wg     sync.WaitGroup

	// mu serializes arming and disarming, so that a kind never holds two
	// live pumps. The sample path never takes it.
	mu sync.Mutex
}

type streamHandle struct {
	id     uuid.UUID
	cancel context.CancelFunc
	done   chan struct{}
	closed atomic.Bool
}

func newStreamingHub(set driver.ProducerSet, gate *permissionGate, interval time.Duration, clk clock.Clock, logger *zap.Logger) *streamingHub {
	return &streamingHub{
		set:      set,
		gate:     gate,
		interval: interval,
		clock:    clk,
		logger:   logger,
		latest:   xsync.NewMapOf[sensor.Kind, sensor.Reading](),
		streams:  xsync.NewMapOf[sensor.Kind, *streamHandle](),
	}
}

// Start arms a pump for every provided kind that has a stream driver.
// Kinds without a driver are skipped, and kinds that are already streaming
// are left untouched. A kind whose permission domain resolves to a refusal
// raises an error event without affecting other kinds; only a cancelled
// ctx surfaces as a returned error.
func (h *streamingHub) Start(ctx context.Context, kinds ...sensor.Kind) error {
	var errs error

	for _, kind := range kinds {
		errs = multierr.Append(errs, h.startOne(ctx, kind))
	}

	return errs
}

// Stop disarms the pumps of the provided kinds and waits for them to exit.
// The latest snapshots are retained.
func (h *streamingHub) Stop(kinds ...sensor.Kind) {
	for _, kind := range kinds {
		h.stopOne(kind)
	}
}

// StopAll disarms every running pump, refuses further arming, and waits
// for all pumps to exit.
func (h *streamingHub) StopAll() {
	h.closed.Store(true)
	h.Stop(sensor.Kinds()...)
	h.wg.Wait()
}

// Streaming reports whether a kind currently has a running pump.
func (h *streamingHub) Streaming(kind sensor.Kind) bool {
	_, ok := h.streams.Load(kind)
	return ok
}

// Snapshot returns the latest normalized reading of a kind.
func (h *streamingHub) Snapshot(kind sensor.Kind) (sensor.Reading, bool) {
	return h.latest.Load(kind)
}

// Forget drops every retained snapshot.
func (h *streamingHub) Forget() {
	h.latest.Clear()
}

func (h *streamingHub) startOne(ctx context.Context, kind sensor.Kind) error {
	producer, ok := h.set.Streams[kind]
	if !ok {
		return nil
	}

	if _, err := h.gate.Authorize(ctx, kind.PermissionDomain()); err != nil {
		h.logger.Warn("stream not authorized",
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		eventbus.Publish(sensor.ErrorEvent(kind), sensor.ProducerErrorData{
			Kind: kind,
			At:   h.clock.Now(),
			Err:  err,
		})

		if errors.Is(err, errorkinds.ErrCancelled) {
			return err
		}

		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed.Load() {
		return nil
	}
	if _, running := h.streams.Load(kind); running {
		return nil
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	handle := &streamHandle{
		id:     uuid.New(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	h.streams.Store(kind, handle)

	h.wg.Add(1)
	go h.pump(pumpCtx, kind, producer, handle)

	h.publishState(kind, sensor.StateActive, handle.id, nil)
	h.logger.Debug("stream armed", zap.String("kind", kind.String()))

	return nil
}

func (h *streamingHub) stopOne(kind sensor.Kind) {
	h.mu.Lock()
	defer h.mu.Unlock()

	handle, ok := h.streams.Load(kind)
	if !ok {
		return
	}

	h.streams.Delete(kind)
	handle.cancel()
	<-handle.done

	if handle.closed.CompareAndSwap(false, true) {
		h.publishState(kind, sensor.StateIdle, handle.id, nil)
	}
	h.logger.Debug("stream disarmed", zap.String("kind", kind.String()))
}

func (h *streamingHub) pump(ctx context.Context, kind sensor.Kind, producer driver.StreamProducer, handle *streamHandle) {
	defer h.wg.Done()
	defer close(handle.done)

	err := producer.Stream(ctx, h.interval, func(sample any) {
		h.ingest(kind, sample)
	})

	if ctx.Err() != nil {
		return
	}

	// The producer ended on its own. Disarm the kind, keeping its snapshot,
	// unless a concurrent stop got there first. Compute stores the returned
	// value when the delete flag is false, so the no-entry case must also
	// report a delete to stay a no-op.
	owned := false
	h.streams.Compute(kind, func(current *streamHandle, loaded bool) (*streamHandle, bool) {
		owned = loaded && current == handle
		return current, owned || !loaded
	})
	if !owned || !handle.closed.CompareAndSwap(false, true) {
		return
	}

	if err != nil {
		h.logger.Warn("stream failed",
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		eventbus.Publish(sensor.ErrorEvent(kind), sensor.ProducerErrorData{
			Kind: kind,
			At:   h.clock.Now(),
			Err:  err,
		})
	}

	h.publishState(kind, sensor.StateIdle, handle.id, err)
}

func (h *streamingHub) ingest(kind sensor.Kind, sample any) {
	reading, err := normalize.Reading(kind, h.clock.Now(), sample)
	if err != nil {
		h.logger.Warn("dropping sample",
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		eventbus.Publish(sensor.ErrorEvent(kind), sensor.ProducerErrorData{
			Kind: kind,
			At:   h.clock.Now(),
			Err:  err,
		})

		return
	}

	h.latest.Store(kind, reading)
	eventbus.Publish(sensor.ReadingEvent(kind), reading)
}

func (h *streamingHub) publishState(kind sensor.Kind, state sensor.SessionState, id uuid.UUID, reason error) {
	eventbus.Publish(sensor.StateEvent(kind), sensor.StateChangeData{
		Kind:      kind,
		State:     state,
		SessionID: id,
		At:        h.clock.Now(),
		Reason:    reason,
	})
}
