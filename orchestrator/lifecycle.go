package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/multisense-org/sensor-native/api/driver"
	"github.com/multisense-org/sensor-native/api/errorkinds"
	"github.com/multisense-org/sensor-native/api/eventbus"
	"github.com/multisense-org/sensor-native/api/helpers/discovery"
	"github.com/multisense-org/sensor-native/api/sensor"
	"github.com/multisense-org/sensor-native/orchestrator/internal/normalize"
)

// sessionController runs the lifecycle state machine of single-shot, toggle
// and peer-session sensor kinds.
//
// Every state mutation of one kind is serialized through the kind's record
// mutex, so a platform callback and a caller can never interleave. Terminal
// states are published on the event stream exactly once and immediately
// reset to idle inside the same critical section, which keeps them invisible
// to state queries.
type sessionController struct {
	set    driver.ProducerSet
	gate   *permissionGate
	clock  clock.Clock
	logger *zap.Logger
	token  *discovery.Token

	records map[sensor.Kind]*kindSession

	latest *xsync.MapOf[sensor.Kind, sensor.Reading]
	peers  *xsync.MapOf[uuid.UUID, sensor.RangingSample]

	closed atomic.Bool
	wg     sync.WaitGroup
}

// kindSession holds the per-kind session record. A session exists from a
// start call until the record returns to idle; the id changes on every
// start, so stale producer callbacks can be told apart and dropped.
type kindSession struct {
	mu sync.Mutex

	state       sensor.SessionState
	id          uuid.UUID
	cancel      context.CancelFunc
	pendingStop bool
}

func newSessionController(set driver.ProducerSet, gate *permissionGate, token *discovery.Token, clk clock.Clock, logger *zap.Logger) *sessionController {
	records := make(map[sensor.Kind]*kindSession)
	for _, kind := range sensor.Kinds() {
		if kind.Class() != sensor.Continuous {
			records[kind] = &kindSession{state: sensor.StateIdle}
		}
	}

	return &sessionController{
		set:     set,
		gate:    gate,
		clock:   clk,
		logger:  logger,
		token:   token,
		records: records,
		latest:  xsync.NewMapOf[sensor.Kind, sensor.Reading](),
		peers:   xsync.NewMapOf[uuid.UUID, sensor.RangingSample](),
	}
}

// Start begins a session for one kind.
//
// A kind that is not idle returns ErrSessionConflict synchronously.
// Authorization refusals and missing drivers resolve into a Failed state
// change on the event stream, not an error return. Cancelling ctx while the
// authorization prompt is pending resolves the session as Cancelled and
// returns the cancellation.
func (c *sessionController) Start(ctx context.Context, kind sensor.Kind) error {
	record, ok := c.records[kind]
	if !ok {
		return fault.Wrap(errorkinds.ErrUnknownKind,
			fctx.With(ctx, "kind", kind.String()),
			ftag.With(errorkinds.TagSystemError),
			fmsg.With("The kind is not managed by the lifecycle controller"),
		)
	}

	record.mu.Lock()
	if record.state != sensor.StateIdle {
		state := record.state
		record.mu.Unlock()

		return fault.Wrap(errorkinds.ErrSessionConflict,
			fctx.With(ctx, "kind", kind.String(), "state", state.String()),
			ftag.With(errorkinds.TagSessionConflict),
			fmsg.With("A session for this kind is already in flight"),
		)
	}

	record.state = sensor.StateRequesting
	record.id = uuid.New()
	record.pendingStop = false
	id := record.id
	c.publishState(kind, sensor.StateRequesting, id, nil)
	record.mu.Unlock()

	_, authErr := c.gate.Authorize(ctx, kind.PermissionDomain())

	record.mu.Lock()
	defer record.mu.Unlock()

	if authErr != nil {
		if errors.Is(authErr, errorkinds.ErrCancelled) {
			c.finishLocked(record, kind, id, sensor.StateCancelled, authErr)
			return authErr
		}

		c.finishLocked(record, kind, id, sensor.StateFailed, authErr)
		return nil
	}

	if !c.set.Has(kind) {
		c.finishLocked(record, kind, id, sensor.StateFailed,
			fault.Wrap(errorkinds.ErrUnavailable,
				fctx.With(ctx, "kind", kind.String()),
				ftag.With(errorkinds.TagUnavailable),
				fmsg.With("No driver services this sensor kind"),
			),
		)

		return nil
	}

	if kind.Class() == sensor.PeerSession && !c.token.Valid() {
		c.finishLocked(record, kind, id, sensor.StateFailed,
			fault.Wrap(errorkinds.ErrTokenInvalid,
				fctx.With(ctx, "kind", kind.String()),
				ftag.With(errorkinds.TagUnavailable),
				fmsg.With("No discovery token is configured for ranging"),
			),
		)

		return nil
	}

	// A stop that arrived while the prompt was pending is honored here:
	// the session reaches Active and is torn down at once, never left
	// running unowned. A closed controller is treated the same way.
	if record.pendingStop || c.closed.Load() {
		record.state = sensor.StateActive
		c.publishState(kind, sensor.StateActive, id, nil)
		c.resetLocked(record, kind, id)

		return nil
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	record.cancel = cancel
	record.state = sensor.StateActive
	c.publishState(kind, sensor.StateActive, id, nil)
	c.logger.Debug("session armed",
		zap.String("kind", kind.String()),
		zap.String("session_id", id.String()),
	)

	c.wg.Add(1)
	switch kind.Class() {
	case sensor.SingleShot:
		go c.runOneShot(sessionCtx, kind, record, id, c.set.OneShots[kind])
	case sensor.Toggle:
		go c.runToggle(sessionCtx, kind, record, id, c.set.Toggles[kind])
	case sensor.PeerSession:
		go c.runRanging(sessionCtx, kind, record, id, c.set.Rangers[kind])
	}

	return nil
}

// Stop requests an orderly stop of one kind. Stopping an idle kind is a
// no-op. A stop issued during a pending authorization is recorded and
// honored when the request resolves.
func (c *sessionController) Stop(kind sensor.Kind) {
	record, ok := c.records[kind]
	if !ok {
		return
	}

	record.mu.Lock()
	defer record.mu.Unlock()

	switch record.state {
	case sensor.StateIdle:
		return

	case sensor.StateRequesting:
		record.pendingStop = true
		return
	}

	c.teardownLocked(record, kind)
}

// StopAll stops every managed kind, refuses further starts, and waits for
// the session goroutines to exit.
func (c *sessionController) StopAll() {
	c.closed.Store(true)
	for kind := range c.records {
		c.Stop(kind)
	}
	c.wg.Wait()
}

// StateOf returns the lifecycle state of one kind. Terminal states are
// never returned; sessions rest at idle once their terminal observation
// has been published.
func (c *sessionController) StateOf(kind sensor.Kind) sensor.SessionState {
	record, ok := c.records[kind]
	if !ok {
		return sensor.StateIdle
	}

	record.mu.Lock()
	defer record.mu.Unlock()

	return record.state
}

// Latest returns the most recent reading delivered by one kind's session.
// Readings survive the end of the session that produced them.
func (c *sessionController) Latest(kind sensor.Kind) (sensor.Reading, bool) {
	return c.latest.Load(kind)
}

// Peers returns a snapshot of the peers tracked by the ranging session.
func (c *sessionController) Peers() []sensor.RangingSample {
	samples := make([]sensor.RangingSample, 0, c.peers.Size())
	c.peers.Range(func(_ uuid.UUID, sample sensor.RangingSample) bool {
		samples = append(samples, sample)
		return true
	})

	return samples
}

// Forget drops every retained reading and tracked peer.
func (c *sessionController) Forget() {
	c.latest.Clear()
	c.peers.Clear()
}

func (c *sessionController) runOneShot(ctx context.Context, kind sensor.Kind, record *kindSession, id uuid.UUID, producer driver.OneShotProducer) {
	defer c.wg.Done()

	result, err := producer.Run(ctx)
	if ctx.Err() != nil {
		return
	}

	record.mu.Lock()
	defer record.mu.Unlock()

	if record.id != id || record.state != sensor.StateActive {
		return
	}

	if err != nil {
		c.finishLocked(record, kind, id, sensor.StateFailed,
			fault.Wrap(err,
				fctx.With(ctx, "kind", kind.String()),
				ftag.With(errorkinds.TagSystemError),
				fmsg.With("The activation failed"),
			),
		)

		return
	}

	reading, err := normalize.Reading(kind, c.clock.Now(), result)
	if err != nil {
		c.finishLocked(record, kind, id, sensor.StateFailed, err)
		return
	}

	c.latest.Store(kind, reading)
	eventbus.Publish(sensor.ReadingEvent(kind), reading)
	c.finishLocked(record, kind, id, sensor.StateCompleted, nil)
}

func (c *sessionController) runToggle(ctx context.Context, kind sensor.Kind, record *kindSession, id uuid.UUID, producer driver.ToggleProducer) {
	defer c.wg.Done()

	err := producer.Watch(ctx, func(level driver.ProximityLevel) {
		c.deliver(kind, record, id, level)
	})

	c.watchEnded(ctx, kind, record, id, err)
}

func (c *sessionController) runRanging(ctx context.Context, kind sensor.Kind, record *kindSession, id uuid.UUID, producer driver.RangingProducer) {
	defer c.wg.Done()

	err := producer.Range(ctx, c.token, func(event driver.RangingEvent) {
		c.handleRanging(kind, record, id, event)
	})

	c.watchEnded(ctx, kind, record, id, err)
}

// watchEnded resolves a long-lived producer that returned while its session
// was still armed. A return after a stop or an invalidation is stale and
// ignored.
func (c *sessionController) watchEnded(ctx context.Context, kind sensor.Kind, record *kindSession, id uuid.UUID, err error) {
	if ctx.Err() != nil {
		return
	}

	record.mu.Lock()
	defer record.mu.Unlock()

	if record.id != id || !record.state.Running() {
		return
	}

	reason := err
	if reason == nil {
		reason = errorkinds.ErrInvalidated
	}

	if kind.Class() == sensor.PeerSession {
		c.peers.Clear()
	}

	c.finishLocked(record, kind, id, sensor.StateFailed,
		fault.Wrap(reason,
			fctx.With(context.Background(), "kind", kind.String()),
			ftag.With(errorkinds.TagInvalidated),
			fmsg.With("The platform ended the session unexpectedly"),
		),
	)
}

// deliver normalizes and publishes one mid-session sample without leaving
// the Active state.
func (c *sessionController) deliver(kind sensor.Kind, record *kindSession, id uuid.UUID, sample any) {
	record.mu.Lock()
	defer record.mu.Unlock()

	if record.id != id || !record.state.Running() {
		return
	}

	reading, err := normalize.Reading(kind, c.clock.Now(), sample)
	if err != nil {
		eventbus.Publish(sensor.ErrorEvent(kind), sensor.ProducerErrorData{
			Kind: kind,
			At:   c.clock.Now(),
			Err:  err,
		})

		return
	}

	c.latest.Store(kind, reading)
	eventbus.Publish(sensor.ReadingEvent(kind), reading)
}

// handleRanging applies one raw ranging event to the peer map and the
// session state.
func (c *sessionController) handleRanging(kind sensor.Kind, record *kindSession, id uuid.UUID, event driver.RangingEvent) {
	record.mu.Lock()
	defer record.mu.Unlock()

	if record.id != id || !record.state.Running() {
		return
	}

	switch event.Type {
	case driver.RangingUpdate:
		sample := normalize.Ranging(event)
		c.peers.Store(sample.PeerID, sample)

		reading, err := sensor.NewRangingReading(kind, c.clock.Now(), sample)
		if err != nil {
			return
		}
		c.latest.Store(kind, reading)
		eventbus.Publish(sensor.ReadingEvent(kind), reading)

	case driver.RangingRemove:
		c.peers.Delete(event.PeerID)

	case driver.RangingSuspend:
		if record.state == sensor.StateActive {
			record.state = sensor.StateSuspended
			c.publishState(kind, sensor.StateSuspended, id, nil)
		}

	case driver.RangingResume:
		if record.state == sensor.StateSuspended {
			record.state = sensor.StateActive
			c.publishState(kind, sensor.StateActive, id, nil)
		}

	case driver.RangingInvalidate:
		reason := event.Err
		if reason == nil {
			reason = errorkinds.ErrInvalidated
		}

		if record.cancel != nil {
			record.cancel()
		}
		c.peers.Clear()
		c.finishLocked(record, kind, id, sensor.StateFailed,
			fault.Wrap(reason,
				fctx.With(context.Background(), "kind", kind.String()),
				ftag.With(errorkinds.TagInvalidated),
				fmsg.With("The ranging session was invalidated"),
			),
		)
	}
}

// finishLocked publishes one terminal observation and resets the record to
// idle inside the caller's critical section.
func (c *sessionController) finishLocked(record *kindSession, kind sensor.Kind, id uuid.UUID, terminal sensor.SessionState, reason error) {
	record.state = terminal
	c.publishState(kind, terminal, id, reason)

	if reason != nil {
		c.logger.Debug("session ended",
			zap.String("kind", kind.String()),
			zap.String("state", terminal.String()),
			zap.Error(reason),
		)
	}

	c.resetLocked(record, kind, id)
}

// teardownLocked releases a running session and its per-session data.
func (c *sessionController) teardownLocked(record *kindSession, kind sensor.Kind) {
	if record.cancel != nil {
		record.cancel()
	}
	if kind.Class() == sensor.PeerSession {
		c.peers.Clear()
	}

	c.resetLocked(record, kind, record.id)
}

// resetLocked returns the record to idle and publishes the transition.
func (c *sessionController) resetLocked(record *kindSession, kind sensor.Kind, id uuid.UUID) {
	record.state = sensor.StateIdle
	record.id = uuid.Nil
	record.cancel = nil
	record.pendingStop = false

	c.publishState(kind, sensor.StateIdle, id, nil)
}

func (c *sessionController) publishState(kind sensor.Kind, state sensor.SessionState, id uuid.UUID, reason error) {
	eventbus.Publish(sensor.StateEvent(kind), sensor.StateChangeData{
		Kind:      kind,
		State:     state,
		SessionID: id,
		At:        c.clock.Now(),
		Reason:    reason,
	})
}
