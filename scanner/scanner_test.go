package scanner_test

import (
	"context"
	"testing"
	"time"

	"github.com/srg/botlink/internal/device"
	"github.com/srg/botlink/internal/extension"
	"github.com/srg/botlink/internal/testutils"
	"github.com/srg/botlink/scanner"
	"github.com/stretchr/testify/suite"
)

type fakeAdv struct {
	name     string
	addr     string
	rssi     int
	services []string
}

func (a fakeAdv) LocalName() string        { return a.name }
func (a fakeAdv) Addr() string             { return a.addr }
func (a fakeAdv) RSSI() int                { return a.rssi }
func (a fakeAdv) Services() []string       { return a.services }
func (a fakeAdv) ManufacturerData() []byte { return nil }
func (a fakeAdv) Connectable() bool        { return true }

// fakeTransport reports its advertisements and then blocks like a real scan.
type fakeTransport struct {
	ads      []device.Advertisement
	allowDup bool
}

func (f *fakeTransport) Scan(ctx context.Context, allowDup bool, handler func(device.Advertisement)) error {
	f.allowDup = allowDup
	for _, adv := range f.ads {
		handler(adv)
	}
	<-ctx.Done()
	return nil
}

type ScannerTestSuite struct {
	suite.Suite
	transport *fakeTransport
	scanner   *scanner.Scanner
}

func (suite *ScannerTestSuite) SetupTest() {
	suite.transport = &fakeTransport{ads: []device.Advertisement{
		fakeAdv{name: "AICoBot", addr: "AA:00:00:00:00:01", rssi: -60, services: []string{"00002261-0000-1000-8000-00805f9b34fb"}},
		fakeAdv{name: "RoboDog", addr: "AA:00:00:00:00:02", rssi: -40, services: []string{"2264"}},
		fakeAdv{name: "JCBoard", addr: "AA:00:00:00:00:03", rssi: -75, services: []string{"2262", "180f"}},
		fakeAdv{name: "Headphones", addr: "AA:00:00:00:00:04", rssi: -30, services: []string{"110b"}},
		// scan response without a name
		fakeAdv{addr: "AA:00:00:00:00:01", rssi: -50},
	}}

	s, err := scanner.NewScanner(suite.transport, testutils.NewSilentLogger())
	suite.Require().NoError(err)
	suite.scanner = s
}

func (suite *ScannerTestSuite) scan(opts *scanner.ScanOptions) []scanner.Discovered {
	if opts.Duration == 0 {
		opts.Duration = 20 * time.Millisecond
	}
	found, err := suite.scanner.Scan(context.Background(), opts, nil)
	suite.Require().NoError(err)
	return found
}

func (suite *ScannerTestSuite) TestNewScanner() {
	_, err := scanner.NewScanner(nil, nil)
	suite.Error(err, "a scanner without transport MUST be rejected")

	opts := scanner.DefaultScanOptions()
	suite.Equal(10*time.Second, opts.Duration)
	suite.True(opts.DuplicateFilter)
}

func (suite *ScannerTestSuite) TestScanMatchesFamilies() {
	// GOAL: Verify only supported robots are reported, with every family able to drive them
	//
	// TEST SCENARIO: Scan mixed advertisements → robots sorted by RSSI → unrelated device dropped
	found := suite.scan(&scanner.ScanOptions{DuplicateFilter: true})
	suite.Require().Len(found, 3)

	suite.Equal("AA:00:00:00:00:02", found[0].Address, "strongest signal MUST come first")
	suite.Equal([]string{"robodog"}, found[0].Families)

	suite.Equal("AA:00:00:00:00:01", found[1].Address)
	suite.Equal("AICoBot", found[1].Name, "a nameless scan response MUST keep the known name")
	suite.Equal(-50, found[1].RSSI, "updates MUST refresh the RSSI")
	suite.Equal([]string{"aicobot", "aidrone", "firmtech", "jdcode"}, found[1].Families)

	suite.Equal([]string{"jcboard"}, found[2].Families)
	suite.False(suite.transport.allowDup)
	suite.Equal(found, suite.scanner.Devices(), "Devices MUST report the refreshed sightings")
}

func (suite *ScannerTestSuite) TestScanFilters() {
	suite.Run("Families", func() {
		found := suite.scan(&scanner.ScanOptions{Families: []string{"robodog", "jcboard"}})
		suite.Len(found, 2)
	})

	suite.Run("UnknownFamily", func() {
		_, err := suite.scanner.Scan(context.Background(), &scanner.ScanOptions{Families: []string{"tello"}}, nil)
		suite.ErrorIs(err, extension.ErrUnknownExtension)
	})

	suite.Run("AllowList", func() {
		found := suite.scan(&scanner.ScanOptions{AllowList: []string{"AA:00:00:00:00:03"}})
		suite.Require().Len(found, 1)
		suite.Equal("JCBoard", found[0].Name)
	})

	suite.Run("BlockList", func() {
		found := suite.scan(&scanner.ScanOptions{BlockList: []string{"AA:00:00:00:00:01"}})
		suite.Len(found, 2)
	})
}

func (suite *ScannerTestSuite) TestEventsAndProgress() {
	var phases []string
	_, err := suite.scanner.Scan(context.Background(), &scanner.ScanOptions{Duration: 20 * time.Millisecond},
		func(phase string) { phases = append(phases, phase) })
	suite.Require().NoError(err)
	suite.Equal([]string{"Scanning", "Processing results"}, phases)

	var events []scanner.DeviceEvent
	for len(suite.scanner.Events()) > 0 {
		events = append(events, <-suite.scanner.Events())
	}
	suite.Require().Len(events, 4)
	suite.Equal(scanner.EventNew, events[0].Type)
	suite.Equal(scanner.EventUpdated, events[3].Type)
	suite.Equal("updated", events[3].Type.String())
}

func (suite *ScannerTestSuite) TestContextCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	found, err := suite.scanner.Scan(ctx, &scanner.ScanOptions{Duration: time.Hour}, nil)
	suite.NoError(err, "cancellation MUST end the scan without error")
	suite.Len(found, 3)
}

func TestScannerTestSuite(t *testing.T) {
	suite.Run(t, new(ScannerTestSuite))
}
