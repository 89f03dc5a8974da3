// Package nmea turns an NMEA 0183 sentence stream from a serial device into
// location and heading producers. Both producers sample one shared feed, so
// a single port serves both kinds.
package nmea

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/benbjohnson/clock"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/multisense-org/sensor-native/api/driver"
	"github.com/multisense-org/sensor-native/api/errorkinds"
)

// OpenPort opens the serial device at path. Injected by tests to run the
// feed against scripted sentence data.
type OpenPort func(path string, baud int) (io.ReadCloser, error)

func openSerial(path string, baud int) (io.ReadCloser, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	return serial.Open(path, mode)
}

// Config describes a feed over one serial device.
type Config struct {
	// Path is the serial device path.
	Path string

	// BaudRate defaults to 9600, the NMEA 0183 standard rate.
	BaudRate int

	// Open defaults to opening the device with go.bug.st/serial.
	Open OpenPort

	// Clock paces the producers. A nil clock selects the wall clock.
	Clock clock.Clock

	Logger *zap.Logger
}

// Feed reads sentences from a serial device and keeps the most recent
// geodetic and compass fixes. The device is opened when the first producer
// starts streaming and closed when the last one stops.
type Feed struct {
	path   string
	baud   int
	open   OpenPort
	clock  clock.Clock
	logger *zap.Logger

	mu     sync.Mutex
	refs   int
	cancel context.CancelFunc
	done   chan struct{}

	fixMu      sync.RWMutex
	geo        driver.GeoSample
	hasGeo     bool
	heading    driver.HeadingSample
	hasHeading bool
	readErr    error
}

// NewFeed builds a feed over the configured device. The device is not
// touched until a producer starts.
func NewFeed(cfg Config) *Feed {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 9600
	}
	if cfg.Open == nil {
		cfg.Open = openSerial
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Feed{
		path:   cfg.Path,
		baud:   cfg.BaudRate,
		open:   cfg.Open,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}
}

// Location returns a producer streaming geodetic fixes from the feed.
func (f *Feed) Location() driver.StreamProducer {
	return &sampler{feed: f, pick: f.geoFix}
}

// Heading returns a producer streaming compass fixes from the feed.
func (f *Feed) Heading() driver.StreamProducer {
	return &sampler{feed: f, pick: f.headingFix}
}

func (f *Feed) acquire(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.refs == 0 {
		port, err := f.open(f.path, f.baud)
		if err != nil {
			return fault.Wrap(err,
				fctx.With(ctx, "error_at", "nmea-open", "path", f.path),
				ftag.With(errorkinds.TagUnavailable),
				fmsg.With("Cannot open the positioning serial device"),
			)
		}

		f.fixMu.Lock()
		f.readErr = nil
		f.fixMu.Unlock()

		pumpCtx, cancel := context.WithCancel(context.Background())
		f.cancel = cancel
		f.done = make(chan struct{})

		go f.pump(pumpCtx, port)
	}

	f.refs++
	return nil
}

func (f *Feed) release() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.refs--
	if f.refs > 0 {
		return
	}

	f.cancel()
	<-f.done
}

// pump owns the port. A separate goroutine runs the blocking scan so that
// cancellation is never stuck behind a read.
func (f *Feed) pump(ctx context.Context, port io.ReadCloser) {
	defer close(f.done)
	defer port.Close()

	scan := bufio.NewScanner(port)
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		for scan.Scan() {
			select {
			case lines <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErr <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case err := <-scanErr:
			f.fail(ctx, err)
			return

		case line, ok := <-lines:
			if !ok {
				f.fail(ctx, io.EOF)
				return
			}
			f.ingest(line)
		}
	}
}

func (f *Feed) fail(ctx context.Context, err error) {
	f.fixMu.Lock()
	defer f.fixMu.Unlock()

	f.readErr = fault.Wrap(err,
		fctx.With(ctx, "error_at", "nmea-read", "path", f.path),
		ftag.With(errorkinds.TagSystemError),
		fmsg.With("The positioning serial device stopped responding"),
	)
}

func (f *Feed) ingest(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	parsed, err := nmea.Parse(line)
	if err != nil {
		f.logger.Debug("Discarding an unparsable sentence", zap.String("line", line), zap.Error(err))
		return
	}

	f.fixMu.Lock()
	f.apply(parsed)
	f.fixMu.Unlock()
}

func (f *Feed) geoFix() (any, bool) {
	f.fixMu.RLock()
	defer f.fixMu.RUnlock()
	return f.geo, f.hasGeo
}

func (f *Feed) headingFix() (any, bool) {
	f.fixMu.RLock()
	defer f.fixMu.RUnlock()
	return f.heading, f.hasHeading
}

func (f *Feed) fault() error {
	f.fixMu.RLock()
	defer f.fixMu.RUnlock()
	return f.readErr
}

// sampler adapts the feed to one sensor kind, emitting the current fix at
// the pacing interval.
type sampler struct {
	feed *Feed
	pick func() (any, bool)
}

func (s *sampler) Stream(ctx context.Context, interval time.Duration, emit func(sample any)) error {
	if err := s.feed.acquire(ctx); err != nil {
		return err
	}
	defer s.feed.release()

	ticker := s.feed.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := s.feed.fault(); err != nil {
			return err
		}

		if sample, ok := s.pick(); ok {
			emit(sample)
		}
	}
}
