// Package scanner discovers nearby robots of every supported family.
package scanner

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/botlink/internal/device"
	"github.com/srg/botlink/internal/extensions/catalog"
	"github.com/srg/botlink/internal/ringchan"
)

// ProgressCallback is called when the scan phase changes
type ProgressCallback func(phase string)

// DeviceEventType marks if the device was newly discovered or updated
type DeviceEventType int

const (
	EventNew DeviceEventType = iota
	EventUpdated
)

func (t DeviceEventType) String() string {
	if t == EventNew {
		return "new"
	}
	return "updated"
}

// Discovered is one robot seen during a scan. Families lists the extension
// IDs able to drive it; robots sharing a service UUID match several.
type Discovered struct {
	Address     string    `json:"address"`
	Name        string    `json:"name"`
	RSSI        int       `json:"rssi"`
	Connectable bool      `json:"connectable"`
	Families    []string  `json:"families"`
	LastSeen    time.Time `json:"last_seen"`
}

type DeviceEvent struct {
	Type   DeviceEventType
	Device Discovered
}

// ScanOptions configures scanning behavior
type ScanOptions struct {
	Duration        time.Duration
	DuplicateFilter bool
	AllowList       []string
	BlockList       []string
	// Families restricts discovery to these extension IDs. Empty means all.
	Families []string
}

// DefaultScanOptions returns default scanning options
func DefaultScanOptions() *ScanOptions {
	return &ScanOptions{
		Duration:        10 * time.Second,
		DuplicateFilter: true,
	}
}

// Scanner matches advertisements against the service UUIDs of the known
// robot families.
type Scanner struct {
	transport device.Scanner
	families  []catalog.Family
	devices   *hashmap.Map[string, *Discovered]
	events    *ringchan.RingChannel[DeviceEvent]
	logger    *logrus.Logger
}

// NewScanner creates a scanner over transport for every catalog family.
func NewScanner(transport device.Scanner, logger *logrus.Logger) (*Scanner, error) {
	if transport == nil {
		return nil, fmt.Errorf("scanner: transport is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Scanner{
		transport: transport,
		families:  catalog.Families(),
		devices:   hashmap.New[string, *Discovered](),
		events:    ringchan.New[DeviceEvent](100),
		logger:    logger,
	}, nil
}

// Scan discovers robots until opts.Duration elapses or ctx ends. Results
// are sorted by signal strength, strongest first.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions, progressCallback ProgressCallback) ([]Discovered, error) {
	s.devices = hashmap.New[string, *Discovered]()

	if opts == nil {
		opts = DefaultScanOptions()
	}
	if progressCallback == nil {
		progressCallback = func(string) {}
	}

	families, err := s.selectFamilies(opts.Families)
	if err != nil {
		return nil, err
	}

	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	s.logger.WithFields(logrus.Fields{
		"duration": opts.Duration,
		"families": len(families),
	}).Info("Starting robot scan...")
	progressCallback("Scanning")

	err = s.transport.Scan(ctx, !opts.DuplicateFilter, func(adv device.Advertisement) {
		s.handleAdvertisement(adv, opts, families)
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	progressCallback("Processing results")
	result := s.Devices()
	s.logger.WithField("device_count", len(result)).Info("Robot scan completed")
	return result, nil
}

func (s *Scanner) selectFamilies(ids []string) ([]catalog.Family, error) {
	if len(ids) == 0 {
		return s.families, nil
	}
	out := make([]catalog.Family, 0, len(ids))
	for _, id := range ids {
		f, err := catalog.Lookup(id)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// matchFamilies lists the IDs of the families whose service adv advertises.
func matchFamilies(adv device.Advertisement, families []catalog.Family) []string {
	var ids []string
	for _, f := range families {
		if device.AdvertisesAny(adv, []string{f.ServiceUUID}) {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

// handleAdvertisement updates existing or adds a new device
func (s *Scanner) handleAdvertisement(adv device.Advertisement, opts *ScanOptions, families []catalog.Family) {
	addr := adv.Addr()

	if existing, ok := s.devices.Get(addr); ok {
		updated := *existing
		updated.RSSI = adv.RSSI()
		updated.LastSeen = time.Now()
		// scan responses often come without a name
		if name := adv.LocalName(); name != "" {
			updated.Name = name
		}
		s.devices.Set(addr, &updated)
		s.events.Send(DeviceEvent{Type: EventUpdated, Device: updated})
		return
	}

	if !shouldInclude(addr, opts) {
		return
	}
	matched := matchFamilies(adv, families)
	if len(matched) == 0 {
		return
	}

	d := &Discovered{
		Address:     addr,
		Name:        adv.LocalName(),
		RSSI:        adv.RSSI(),
		Connectable: adv.Connectable(),
		Families:    matched,
		LastSeen:    time.Now(),
	}
	// Set, not GetOrInsert: Range keeps yielding a GetOrInsert value after
	// later Sets on the same key.
	s.devices.Set(addr, d)

	s.logger.WithFields(logrus.Fields{
		"device":   d.Name,
		"address":  d.Address,
		"rssi":     d.RSSI,
		"families": d.Families,
	}).Info("Discovered robot")
	s.events.Send(DeviceEvent{Type: EventNew, Device: *d})
}

// shouldInclude applies the allow and block lists
func shouldInclude(addr string, opts *ScanOptions) bool {
	if slices.Contains(opts.BlockList, addr) {
		return false
	}
	if len(opts.AllowList) > 0 && !slices.Contains(opts.AllowList, addr) {
		return false
	}
	return true
}

// Devices returns the robots found by the last scan, strongest signal first.
func (s *Scanner) Devices() []Discovered {
	out := make([]Discovered, 0, s.devices.Len())
	s.devices.Range(func(_ string, d *Discovered) bool {
		out = append(out, *d)
		return true
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RSSI != out[j].RSSI {
			return out[i].RSSI > out[j].RSSI
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// Events return a read-only channel of device events
func (s *Scanner) Events() <-chan DeviceEvent {
	return s.events.C()
}
