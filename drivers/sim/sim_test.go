package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multisense-org/sensor-native/api/driver"
	"github.com/multisense-org/sensor-native/api/helpers/discovery"
	"github.com/multisense-org/sensor-native/api/sensor"
)

const interval = 10 * time.Millisecond

func TestStreamPacing(t *testing.T) {
	clk := clock.NewMock()
	stream := &Stream{Clock: clk, Next: func(step int) any { return step }}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	samples := make(chan any, 16)
	errs := make(chan error, 1)
	go func() {
		errs <- stream.Stream(ctx, interval, func(sample any) { samples <- sample })
	}()

	var collected []any
	require.Eventually(t, func() bool {
		clk.Add(interval)
		for {
			select {
			case sample := <-samples:
				collected = append(collected, sample)
			default:
				return len(collected) >= 3
			}
		}
	}, 2*time.Second, time.Millisecond)

	assert.Equal(t, []any{0, 1, 2}, collected[:3])

	cancel()
	require.NoError(t, <-errs)
}

func TestStreamScriptedFault(t *testing.T) {
	boom := errors.New("backend crashed")

	clk := clock.NewMock()
	stream := &Stream{
		Clock:     clk,
		Next:      func(step int) any { return step },
		FailAfter: 2,
		Err:       boom,
	}

	emitted := 0
	errs := make(chan error, 1)
	go func() {
		errs <- stream.Stream(context.Background(), interval, func(any) { emitted++ })
	}()

	var got error
	require.Eventually(t, func() bool {
		clk.Add(interval)
		select {
		case got = <-errs:
			return true
		default:
			return false
		}
	}, 2*time.Second, time.Millisecond)

	assert.ErrorIs(t, got, boom)
	assert.Equal(t, 2, emitted)
}

func TestStreamFaultWithoutErr(t *testing.T) {
	clk := clock.NewMock()
	stream := &Stream{Clock: clk, Next: func(step int) any { return step }, FailAfter: 1}

	errs := make(chan error, 1)
	go func() {
		errs <- stream.Stream(context.Background(), interval, func(any) {})
	}()

	var got error
	require.Eventually(t, func() bool {
		clk.Add(interval)
		select {
		case got = <-errs:
			return true
		default:
			return false
		}
	}, 2*time.Second, time.Millisecond)

	assert.Error(t, got)
}

func TestWaveforms(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()

	t.Run("accelerometer rests near gravity", func(t *testing.T) {
		sample := Accelerometer(clk).Next(0).(driver.MotionSample)
		assert.InDelta(t, -9.81, sample.Z, 0.05)
	})

	t.Run("barometer rests near sea level", func(t *testing.T) {
		sample := Barometer(clk).Next(0).(driver.PressureSample)
		assert.InDelta(t, 1013.25, sample.HPa, 1)
	})

	t.Run("location walks around its anchor", func(t *testing.T) {
		sample := Location(clk).Next(0).(driver.GeoSample)
		assert.InDelta(t, 52.52, sample.Latitude, 0.001)
		assert.InDelta(t, 13.405, sample.Longitude, 0.001)
		assert.Greater(t, sample.HorizontalAccuracy, 0.0)
	})

	t.Run("heading stays within the compass circle", func(t *testing.T) {
		for step := 0; step < 2000; step += 100 {
			sample := Heading(clk).Next(step).(driver.HeadingSample)
			assert.GreaterOrEqual(t, sample.Magnetic, 0.0)
			assert.Less(t, sample.Magnetic, 360.0)
		}
	})

	t.Run("face shapes stay within intensity bounds", func(t *testing.T) {
		for step := 0; step < 300; step += 7 {
			sample := Face(clk).Next(step).(driver.FaceSample)
			for name, value := range sample.Shapes {
				assert.GreaterOrEqual(t, value, 0.0, "shape %s", name)
				assert.LessOrEqual(t, value, 1.0, "shape %s", name)
			}
		}
	})
}

func TestOneShotResolvesAfterDelay(t *testing.T) {
	clk := clock.NewMock()
	shot := &OneShot{Clock: clk, Delay: 50 * time.Millisecond, Result: "done"}

	type outcome struct {
		result any
		err    error
	}

	outcomes := make(chan outcome, 1)
	go func() {
		result, err := shot.Run(context.Background())
		outcomes <- outcome{result, err}
	}()

	var got outcome
	require.Eventually(t, func() bool {
		clk.Add(50 * time.Millisecond)
		select {
		case got = <-outcomes:
			return true
		default:
			return false
		}
	}, 2*time.Second, time.Millisecond)

	require.NoError(t, got.err)
	assert.Equal(t, "done", got.result)
}

func TestOneShotCancel(t *testing.T) {
	clk := clock.NewMock()
	shot := &OneShot{Clock: clk, Delay: time.Hour, Result: "never"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := shot.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestOneShotOutcomes(t *testing.T) {
	t.Parallel()

	t.Run("biometric match", func(t *testing.T) {
		result, err := BiometricMatch().Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, driver.AuthResult{OK: true}, result)
	})

	t.Run("biometric no match", func(t *testing.T) {
		result, err := BiometricNoMatch("finger not recognized").Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, driver.AuthResult{OK: false, Reason: "finger not recognized"}, result)
	})

	t.Run("tag scan", func(t *testing.T) {
		record := driver.TagRecord{TypeFormat: 0x01, Payload: []byte{0x02}}
		result, err := TagScan(record).Run(context.Background())
		require.NoError(t, err)

		payload, ok := result.(driver.TagPayload)
		require.True(t, ok)
		require.Len(t, payload.Records, 1)
		assert.Equal(t, record, payload.Records[0])
	})

	t.Run("scripted failure", func(t *testing.T) {
		boom := errors.New("device busy")
		_, err := (&OneShot{Err: boom}).Run(context.Background())
		assert.ErrorIs(t, err, boom)
	})
}

func TestToggleReplay(t *testing.T) {
	clk := clock.NewMock()
	toggle := &Toggle{
		Clock:  clk,
		Script: []driver.ProximityLevel{{Near: false}, {Near: true}},
		Period: interval,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	levels := make(chan driver.ProximityLevel, 8)
	errs := make(chan error, 1)
	go func() {
		errs <- toggle.Watch(ctx, func(level driver.ProximityLevel) { levels <- level })
	}()

	// The armed level is delivered without waiting for the period.
	select {
	case level := <-levels:
		assert.False(t, level.Near)
	case <-time.After(2 * time.Second):
		t.Fatal("no armed level delivered")
	}

	var second driver.ProximityLevel
	require.Eventually(t, func() bool {
		clk.Add(interval)
		select {
		case second = <-levels:
			return true
		default:
			return false
		}
	}, 2*time.Second, time.Millisecond)
	assert.True(t, second.Near)

	// The script is exhausted; the watch holds until cancelled.
	select {
	case level := <-levels:
		t.Fatalf("unexpected level: %v", level)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-errs)
}

func TestToggleScriptedFault(t *testing.T) {
	boom := errors.New("sensor gone")

	clk := clock.NewMock()
	toggle := &Toggle{
		Clock:  clk,
		Script: []driver.ProximityLevel{{Near: true}},
		Period: interval,
		Err:    boom,
	}

	levels := make(chan driver.ProximityLevel, 8)
	err := toggle.Watch(context.Background(), func(level driver.ProximityLevel) { levels <- level })

	require.ErrorIs(t, err, boom)
	require.Len(t, levels, 1)
	assert.True(t, (<-levels).Near)
}

func TestRangingInvalidateEndsReplay(t *testing.T) {
	peer := uuid.New()

	clk := clock.NewMock()
	ranging := &Ranging{
		Clock: clk,
		Script: []driver.RangingEvent{
			{Type: driver.RangingUpdate, PeerID: peer, Distance: 1.0},
			{Type: driver.RangingInvalidate},
		},
		Period: interval,
	}

	events := make(chan driver.RangingEvent, 8)
	errs := make(chan error, 1)
	go func() {
		errs <- ranging.Range(context.Background(), discovery.NewToken(discovery.RoleInitiator),
			func(event driver.RangingEvent) { events <- event })
	}()

	var done bool
	require.Eventually(t, func() bool {
		clk.Add(interval)
		select {
		case <-errs:
			done = true
			return true
		default:
			return false
		}
	}, 2*time.Second, time.Millisecond)

	require.True(t, done, "the replay should end at the invalidation without a cancel")
	require.Len(t, events, 2)
	assert.Equal(t, driver.RangingUpdate, (<-events).Type)
	assert.Equal(t, driver.RangingInvalidate, (<-events).Type)
}

func TestRangingHoldsAfterScript(t *testing.T) {
	clk := clock.NewMock()
	ranging := &Ranging{
		Clock:  clk,
		Script: []driver.RangingEvent{{Type: driver.RangingUpdate, PeerID: uuid.New()}},
		Period: interval,
	}

	ctx, cancel := context.WithCancel(context.Background())

	events := make(chan driver.RangingEvent, 8)
	errs := make(chan error, 1)
	go func() {
		errs <- ranging.Range(ctx, discovery.NewToken(discovery.RoleResponder),
			func(event driver.RangingEvent) { events <- event })
	}()

	select {
	case event := <-events:
		assert.Equal(t, driver.RangingUpdate, event.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}

	cancel()
	require.NoError(t, <-errs)
}

func TestPeerOrbit(t *testing.T) {
	t.Parallel()

	peer := uuid.New()
	script := PeerOrbit(peer, 6)
	require.Len(t, script, 6)

	previous := 0.0
	for i, event := range script {
		assert.Equal(t, driver.RangingUpdate, event.Type)
		assert.Equal(t, peer, event.PeerID)
		assert.Greater(t, event.Distance, previous, "step %d", i)
		require.True(t, event.HasDirection)
		assert.InDelta(t, 1.0, event.Direction.Norm(), 1e-9, "step %d", i)

		previous = event.Distance
	}
}

func TestNewSetCoversEveryKind(t *testing.T) {
	t.Parallel()

	set := NewSet(clock.NewMock())

	for _, kind := range sensor.Kinds() {
		assert.True(t, set.Has(kind), "kind %s has no simulated driver", kind)
	}
	assert.ElementsMatch(t, sensor.Kinds(), set.Kinds())
}
