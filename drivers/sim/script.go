package sim

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/multisense-org/sensor-native/api/driver"
	"github.com/multisense-org/sensor-native/api/helpers/discovery"
)

// OneShot resolves a scripted single-shot result after an optional delay.
type OneShot struct {
	// Clock paces the delay. A nil clock selects the wall clock.
	Clock clock.Clock
	Delay time.Duration

	Result any
	Err    error
}

// Run waits out the delay and returns the scripted outcome.
func (s *OneShot) Run(ctx context.Context) (any, error) {
	if s.Delay > 0 {
		clk := s.Clock
		if clk == nil {
			clk = clock.New()
		}

		timer := clk.Timer(s.Delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if s.Err != nil {
		return nil, s.Err
	}

	return s.Result, nil
}

// BiometricMatch returns a one-shot that reports a successful verification.
func BiometricMatch() *OneShot {
	return &OneShot{Result: driver.AuthResult{OK: true}}
}

// BiometricNoMatch returns a one-shot that reports a failed verification
// with the given reason.
func BiometricNoMatch(reason string) *OneShot {
	return &OneShot{Result: driver.AuthResult{OK: false, Reason: reason}}
}

// TagScan returns a one-shot that delivers the given records as a single
// scanned tag.
func TagScan(records ...driver.TagRecord) *OneShot {
	return &OneShot{Result: driver.TagPayload{Records: records}}
}

// Toggle replays a scripted sequence of proximity levels, then holds the
// last level until the watch is cancelled.
type Toggle struct {
	// Clock paces the script. A nil clock selects the wall clock.
	Clock clock.Clock

	// Script lists the levels to deliver. The first level is delivered as
	// soon as the watch is armed.
	Script []driver.ProximityLevel

	// Period is the delay between script steps.
	Period time.Duration

	// Err ends the watch once the script is exhausted instead of holding.
	Err error
}

// Watch replays the script.
func (t *Toggle) Watch(ctx context.Context, emit func(level driver.ProximityLevel)) error {
	clk := t.Clock
	if clk == nil {
		clk = clock.New()
	}
	period := t.Period
	if period <= 0 {
		period = time.Second
	}

	for i, level := range t.Script {
		if i > 0 {
			timer := clk.Timer(period)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}

		emit(level)
	}

	if t.Err != nil {
		return t.Err
	}

	<-ctx.Done()
	return nil
}

// Ranging replays a scripted sequence of ranging events, then holds until
// the session is cancelled.
type Ranging struct {
	// Clock paces the script. A nil clock selects the wall clock.
	Clock clock.Clock

	// Script lists the events to deliver. The first event is delivered as
	// soon as the session is armed.
	Script []driver.RangingEvent

	// Period is the delay between script steps.
	Period time.Duration

	// Err ends the session once the script is exhausted instead of holding.
	Err error
}

// Range replays the script. Invalidation events end the replay, matching a
// platform session that cannot continue.
func (r *Ranging) Range(ctx context.Context, token *discovery.Token, emit func(event driver.RangingEvent)) error {
	clk := r.Clock
	if clk == nil {
		clk = clock.New()
	}
	period := r.Period
	if period <= 0 {
		period = 200 * time.Millisecond
	}

	for i, event := range r.Script {
		if i > 0 {
			timer := clk.Timer(period)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}

		emit(event)

		if event.Type == driver.RangingInvalidate {
			return nil
		}
	}

	if r.Err != nil {
		return r.Err
	}

	<-ctx.Done()
	return nil
}

// PeerOrbit returns a ranging script in which a single peer approaches,
// retreats and holds, with sidedness reported throughout.
func PeerOrbit(peer uuid.UUID, steps int) []driver.RangingEvent {
	if steps <= 0 {
		steps = 8
	}

	script := make([]driver.RangingEvent, 0, steps)
	for i := 0; i < steps; i++ {
		phase := float64(i) / float64(steps)
		script = append(script, driver.RangingEvent{
			Type:         driver.RangingUpdate,
			PeerID:       peer,
			Distance:     1.5 + 0.9*phase,
			Direction:    orbitDirection(phase),
			HasDirection: true,
		})
	}

	return script
}

func orbitDirection(phase float64) r3.Vector {
	angle := 2 * math.Pi * phase
	return r3.Vector{X: math.Cos(angle), Y: math.Sin(angle), Z: -0.1}.Normalize()
}
