// Package session drives one BLE robot: it owns the connection, retransmits
// the full outbound command state every poll period, ingests telemetry and
// declares the link dead when telemetry stops.
package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"github.com/srg/botlink/internal/device"
	"github.com/srg/botlink/internal/groutine"
	"github.com/srg/botlink/internal/protocol"
	"github.com/srg/botlink/internal/ringchan"
	"golang.org/x/time/rate"
)

// Peripheral is a robot found by the current scan.
type Peripheral struct {
	ID   string // BLE address
	Name string
	RSSI int
}

// Stats are cumulative counters over the session lifetime.
type Stats struct {
	FramesQueued  int64
	FramesWritten int64
	FramesSkipped int64
	WriteErrors   int64
	Messages      int64
	Malformed     int64
}

// Session is the device session for one robot. All methods are safe for
// concurrent use.
type Session struct {
	id        ulid.ULID
	profile   Profile
	desc      Descriptor
	transport device.Transport
	opts      Options
	logger    *logrus.Entry

	// mu serializes every access to profile: encoders, ticks and ingestion.
	mu sync.Mutex

	connMu      sync.Mutex
	state       State
	generation  uint64
	armSeq      uint64
	scanSeq     uint64
	scanCancel  context.CancelFunc
	link        device.Link
	group       *groutine.Group
	outbox      *ringchan.RingChannel[[]byte]
	watchdog    *time.Timer
	peripherals *hashmap.Map[string, Peripheral]

	telemetry  atomic.Pointer[protocol.Telemetry]
	events     *ringchan.RingChannel[protocol.Telemetry]
	discovered *ringchan.RingChannel[Peripheral]
	errs       *ringchan.RingChannel[error]
	onError    atomic.Pointer[func(error)]

	stats struct {
		queued, written, skipped, writeErrors, messages, malformed atomic.Int64
	}
	writeLog     rate.Sometimes
	malformedLog rate.Sometimes
}

// New creates a disconnected session. The profile is put into its safe state.
func New(profile Profile, transport device.Transport, opts Options, logger *logrus.Logger) *Session {
	opts = opts.withDefaults()
	desc := profile.Descriptor()
	id := ulid.Make()

	s := &Session{
		id:        id,
		profile:   profile,
		desc:      desc,
		transport: transport,
		opts:      opts,
		logger: logger.WithFields(logrus.Fields{
			"session":   id.String(),
			"extension": desc.ID,
		}),
		peripherals:  hashmap.New[string, Peripheral](),
		events:       ringchan.New[protocol.Telemetry](opts.TelemetryBuffer),
		discovered:   ringchan.New[Peripheral](16),
		errs:         ringchan.New[error](8),
		writeLog:     rate.Sometimes{Interval: time.Second},
		malformedLog: rate.Sometimes{Interval: time.Second},
	}
	empty := protocol.NewTelemetry()
	s.telemetry.Store(&empty)
	profile.Reset()
	return s
}

// ID is the unique session identifier used in logs.
func (s *Session) ID() string {
	return s.id.String()
}

// Descriptor returns the device family descriptor.
func (s *Session) Descriptor() Descriptor {
	return s.desc
}

// Options returns the effective options.
func (s *Session) Options() Options {
	return s.opts
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.state
}

// IsConnected is true iff a link exists and reports connected.
func (s *Session) IsConnected() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.state == Connected && s.link != nil && s.link.IsConnected()
}

// SetErrorHandler installs the sink for transport and liveness errors.
// Errors are also queued on Errors().
func (s *Session) SetErrorHandler(fn func(error)) {
	if fn == nil {
		s.onError.Store(nil)
		return
	}
	s.onError.Store(&fn)
}

// Errors streams signalled errors.
func (s *Session) Errors() <-chan error {
	return s.errs.C()
}

// Events streams every accepted telemetry snapshot.
func (s *Session) Events() <-chan protocol.Telemetry {
	return s.events.C()
}

// Discovered streams peripherals as the scan finds them.
func (s *Session) Discovered() <-chan Peripheral {
	return s.discovered.C()
}

// Telemetry returns the latest snapshot without locking.
func (s *Session) Telemetry() protocol.Telemetry {
	return *s.telemetry.Load()
}

// Update applies an encoder mutation to the outbound state. The change is
// visible to the next poll tick. fn must not call back into the session.
func (s *Session) Update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// StopAll handles the runtime-wide stop signal. The device's safe state is
// flushed once before the session is torn down without signalling an error.
// A pending scan is cancelled.
func (s *Session) StopAll() {
	s.mu.Lock()
	s.profile.Reset()
	frame := s.profile.Frame()
	s.mu.Unlock()

	s.connMu.Lock()
	if s.state == Scanning && s.scanCancel != nil {
		s.scanCancel()
		s.scanCancel = nil
	}
	var link device.Link
	var group *groutine.Group
	if s.state == Connected {
		link, group = s.teardownLocked()
	}
	s.state = Disconnected
	s.connMu.Unlock()

	if group != nil {
		group.Stop(nil)
		// the writer may be mid-write; the safe frame must land last
		group.Wait()
	}
	if link != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
		if err := link.Write(ctx, frame, !s.opts.WriteWithoutResponse); err != nil {
			s.logger.WithField("error", err).Debug("Final safe-state frame not delivered")
		}
		cancel()
	}
	s.release(link, nil)
	s.logger.Debug("Session stopped by stop-all")
}

// Stats returns a snapshot of the counters.
func (s *Session) Stats() Stats {
	return Stats{
		FramesQueued:  s.stats.queued.Load(),
		FramesWritten: s.stats.written.Load(),
		FramesSkipped: s.stats.skipped.Load(),
		WriteErrors:   s.stats.writeErrors.Load(),
		Messages:      s.stats.messages.Load(),
		Malformed:     s.stats.malformed.Load(),
	}
}

// Scan starts discovery filtered by the device service. A connected session
// is disconnected first; a scan already in progress makes this a no-op.
func (s *Session) Scan(ctx context.Context) error {
	s.connMu.Lock()
	if s.state == Scanning {
		s.connMu.Unlock()
		s.logger.Debug("Scan already in progress, ignoring request")
		return nil
	}

	var link device.Link
	var group *groutine.Group
	if s.state == Connected {
		link, group = s.teardownLocked()
	}

	scanCtx, cancel := context.WithCancel(ctx)
	s.scanSeq++
	seq := s.scanSeq
	s.scanCancel = cancel
	s.state = Scanning
	s.peripherals = hashmap.New[string, Peripheral]()
	peripherals := s.peripherals
	s.connMu.Unlock()

	s.release(link, group)
	s.discovered.Drain()

	s.logger.WithField("service", s.desc.ServiceUUID).Info("Scanning for peripherals...")
	filter := []string{s.desc.ServiceUUID}
	groutine.Go(scanCtx, "session-scan", func(ctx context.Context) {
		err := s.transport.Scan(ctx, true, func(adv device.Advertisement) {
			if !device.AdvertisesAny(adv, filter) {
				return
			}
			p := Peripheral{ID: adv.Addr(), Name: adv.LocalName(), RSSI: adv.RSSI()}
			_, seen := peripherals.Get(p.ID)
			peripherals.Set(p.ID, p)
			if !seen {
				s.logger.WithFields(logrus.Fields{
					"address": p.ID,
					"name":    p.Name,
					"rssi":    p.RSSI,
				}).Debug("Peripheral discovered")
				s.discovered.Send(p)
			}
		})
		if err == nil {
			return
		}

		s.connMu.Lock()
		current := s.state == Scanning && s.scanSeq == seq
		if current {
			s.state = Disconnected
			s.scanCancel = nil
		}
		s.connMu.Unlock()
		if current {
			s.logger.WithField("error", err).Error("Scan failed")
			s.signal(err)
		}
	})
	return nil
}

// Peripherals lists what the current scan found, strongest signal first.
func (s *Session) Peripherals() []Peripheral {
	s.connMu.Lock()
	peripherals := s.peripherals
	s.connMu.Unlock()

	var out []Peripheral
	peripherals.Range(func(_ string, p Peripheral) bool {
		out = append(out, p)
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].RSSI != out[j].RSSI {
			return out[i].RSSI > out[j].RSSI
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Connect connects to a peripheral found by the active scan. Without a scan
// in progress it does nothing.
func (s *Session) Connect(ctx context.Context, peripheralID string) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.state != Scanning {
		s.logger.WithField("peripheral", peripheralID).Debug("Connect ignored: no scan in progress")
		return nil
	}
	if s.scanCancel != nil {
		s.scanCancel()
		s.scanCancel = nil
	}

	link, err := s.transport.Connect(ctx, &device.ConnectOptions{
		Address:        peripheralID,
		ServiceUUID:    s.desc.ServiceUUID,
		RxUUID:         s.desc.RxUUID,
		TxUUID:         s.desc.TxUUID,
		ConnectTimeout: s.opts.ConnectTimeout,
	})
	if err != nil {
		s.state = Disconnected
		return err
	}

	s.generation++
	gen := s.generation
	s.link = link
	s.state = Connected
	s.outbox = ringchan.New[[]byte](1)

	if err := link.Subscribe(func(data []byte) { s.handleMessage(gen, data) }); err != nil {
		s.link = nil
		s.state = Disconnected
		s.generation++
		if cerr := link.Close(); cerr != nil {
			s.logger.WithField("error", cerr).Warn("Failed to close link after subscribe failure")
		}
		return err
	}

	s.armWatchdogLocked(gen)

	group := groutine.NewGroup(context.Background())
	s.group = group
	outbox := s.outbox
	group.Go("session-writer", func(ctx context.Context) { s.writeLoop(ctx, link, outbox) })
	group.Go("session-poll", func(ctx context.Context) { s.pollLoop(ctx, gen) })
	group.Go("session-link-monitor", func(ctx context.Context) { s.monitorLink(ctx, gen, link) })

	s.logger.WithFields(logrus.Fields{
		"peripheral": peripheralID,
		"poll":       s.opts.PollInterval,
		"watchdog":   s.opts.WatchdogTimeout,
	}).Info("Session connected")
	return nil
}

// Disconnect tears the session down without signalling an error.
func (s *Session) Disconnect() error {
	s.connMu.Lock()
	if s.state == Scanning && s.scanCancel != nil {
		s.scanCancel()
		s.scanCancel = nil
	}
	var link device.Link
	var group *groutine.Group
	if s.state == Connected {
		link, group = s.teardownLocked()
	}
	s.state = Disconnected
	s.connMu.Unlock()

	err := s.release(link, group)
	s.logger.Debug("Session disconnected")
	return err
}

// PollOnce runs a single poll tick for the current connection. It reports
// false when the session is not connected.
func (s *Session) PollOnce() bool {
	s.connMu.Lock()
	gen := s.generation
	s.connMu.Unlock()
	return s.tick(gen)
}

func (s *Session) pollLoop(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.tick(gen) {
				return
			}
		}
	}
}

func (s *Session) tick(gen uint64) bool {
	s.connMu.Lock()
	if s.state != Connected || s.generation != gen {
		s.connMu.Unlock()
		return false
	}
	outbox := s.outbox
	s.connMu.Unlock()

	s.mu.Lock()
	s.profile.Tick()
	frame := s.profile.Frame()
	s.mu.Unlock()

	s.stats.queued.Add(1)
	if outbox.Send(frame) {
		// the writer is still busy with an older frame; only the newest state matters
		s.stats.skipped.Add(1)
	}
	return true
}

func (s *Session) writeLoop(ctx context.Context, link device.Link, outbox *ringchan.RingChannel[[]byte]) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-outbox.C():
			wctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
			err := link.Write(wctx, frame, !s.opts.WriteWithoutResponse)
			cancel()
			if err != nil {
				s.stats.writeErrors.Add(1)
				s.writeLog.Do(func() {
					s.logger.WithFields(logrus.Fields{
						"error":  err,
						"failed": s.stats.writeErrors.Load(),
					}).Warn("Frame write failed, next tick retransmits")
				})
				continue
			}
			s.stats.written.Add(1)
		}
	}
}

func (s *Session) monitorLink(ctx context.Context, gen uint64, link device.Link) {
	select {
	case <-ctx.Done():
	case <-link.Done():
		cause := link.Err()
		if cause == nil {
			cause = device.ErrNotConnected
		}
		s.expire(gen, 0, false, cause)
	}
}

func (s *Session) handleMessage(gen uint64, data []byte) {
	s.connMu.Lock()
	if s.state != Connected || s.generation != gen {
		s.connMu.Unlock()
		return
	}
	s.armWatchdogLocked(gen)

	s.stats.messages.Add(1)
	t, err := protocol.ParseTelemetry(data)
	if err != nil {
		s.connMu.Unlock()
		s.stats.malformed.Add(1)
		s.malformedLog.Do(func() {
			s.logger.WithFields(logrus.Fields{
				"error": err,
				"data":  string(data),
			}).Warn("Dropping malformed telemetry")
		})
		return
	}

	// stored under connMu so a concurrent teardown cannot be overwritten
	s.mu.Lock()
	s.telemetry.Store(&t)
	s.profile.Ingest(t)
	s.mu.Unlock()
	s.connMu.Unlock()

	s.events.Send(t)
}

func (s *Session) armWatchdogLocked(gen uint64) {
	if s.watchdog != nil {
		s.watchdog.Stop()
	}
	s.armSeq++
	seq := s.armSeq
	s.watchdog = time.AfterFunc(s.opts.WatchdogTimeout, func() {
		s.expire(gen, seq, true, ErrWatchdogExpired)
	})
}

// expire tears down connection gen and signals the data-stopped error once.
// Watchdog callbacks also carry their arm sequence so a timer that fired while
// a message was re-arming it cannot win.
func (s *Session) expire(gen, seq uint64, fromWatchdog bool, cause error) {
	s.connMu.Lock()
	if s.state != Connected || s.generation != gen || (fromWatchdog && s.armSeq != seq) {
		s.connMu.Unlock()
		return
	}
	link, group := s.teardownLocked()
	s.connMu.Unlock()

	s.logger.WithField("cause", cause).Warn("Device stopped sending data, session torn down")
	s.release(link, group)
	s.signal(&DataStoppedError{Extension: s.desc.product(), Cause: cause})
}

// teardownLocked detaches the live connection and resets session state.
// The caller releases the returned resources outside connMu.
func (s *Session) teardownLocked() (device.Link, *groutine.Group) {
	if s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}
	s.armSeq++
	s.generation++

	link, group := s.link, s.group
	s.link, s.group, s.outbox = nil, nil, nil
	s.state = Disconnected

	s.mu.Lock()
	s.profile.Reset()
	s.mu.Unlock()
	empty := protocol.NewTelemetry()
	s.telemetry.Store(&empty)
	return link, group
}

func (s *Session) release(link device.Link, group *groutine.Group) error {
	if group != nil {
		group.Stop(nil)
	}
	if link == nil {
		return nil
	}
	if err := link.Close(); err != nil && !errors.Is(err, device.ErrNotConnected) {
		s.logger.WithField("error", err).Warn("Link closed with errors")
		return err
	}
	return nil
}

func (s *Session) signal(err error) {
	s.errs.Send(err)
	if fn := s.onError.Load(); fn != nil {
		(*fn)(err)
	}
}
