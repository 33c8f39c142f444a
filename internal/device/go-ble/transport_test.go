//go:build test

package goble_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/srg/botlink/internal/device"
	goble "github.com/srg/botlink/internal/device/go-ble"
	"github.com/srg/botlink/internal/testutils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type TransportTestSuite struct {
	testutils.MockBLEPeripheralSuite
}

func (s *TransportTestSuite) connectOptions() *device.ConnectOptions {
	return &device.ConnectOptions{
		Address:        testutils.RobotAddress,
		ServiceUUID:    testutils.RobotServiceUUID,
		RxUUID:         testutils.RobotCharUUID,
		TxUUID:         testutils.RobotCharUUID,
		ConnectTimeout: time.Second,
	}
}

func (s *TransportTestSuite) TestScan() {
	// GOAL: Verify advertisements are adapted and scan cancellation is not an error
	//
	// TEST SCENARIO: scan with timeout → default robot advertisement reported → nil error
	transport := goble.NewTransport(s.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var mu sync.Mutex
	var seen []device.Advertisement
	err := transport.Scan(ctx, true, func(adv device.Advertisement) {
		mu.Lock()
		seen = append(seen, adv)
		mu.Unlock()
	})
	s.Require().NoError(err, "scan ending on deadline MUST NOT be an error")

	mu.Lock()
	defer mu.Unlock()
	s.Require().Len(seen, 1)
	s.Assert().Equal("AICoBot", seen[0].LocalName())
	s.Assert().Equal(-48, seen[0].RSSI())
	s.Assert().True(device.AdvertisesAny(seen[0], []string{"00002261-0000-1000-8000-00805f9b34fb"}))
}

func (s *TransportTestSuite) TestConnect() {
	s.Run("binds the characteristic pair", func() {
		transport := goble.NewTransport(s.Logger)
		link, err := transport.Connect(context.Background(), s.connectOptions())
		s.Require().NoError(err)
		defer link.Close()

		s.Assert().True(link.IsConnected())
		s.Require().NoError(link.Write(context.Background(), []byte{1, 2, 3}, true))

		w, ok := s.Peripheral().NextWrite(time.Second)
		s.Require().True(ok, "write MUST reach the peripheral")
		s.Assert().Equal([]byte{1, 2, 3}, w)
	})

	s.Run("empty address", func() {
		transport := goble.NewTransport(s.Logger)
		_, err := transport.Connect(context.Background(), &device.ConnectOptions{})
		s.Assert().ErrorContains(err, "address is empty")
	})

	s.Run("missing service", func() {
		transport := goble.NewTransport(s.Logger)
		opts := s.connectOptions()
		opts.ServiceUUID = "2264"

		_, err := transport.Connect(context.Background(), opts)
		var nf *device.NotFoundError
		s.Require().True(errors.As(err, &nf), "MUST return NotFoundError, got %v", err)
		s.Assert().Equal("service", nf.Resource)
	})

	s.Run("missing characteristic", func() {
		transport := goble.NewTransport(s.Logger)
		opts := s.connectOptions()
		opts.TxUUID = "ffe1"

		_, err := transport.Connect(context.Background(), opts)
		var nf *device.NotFoundError
		s.Require().True(errors.As(err, &nf), "MUST return NotFoundError, got %v", err)
		s.Assert().Equal("characteristic", nf.Resource)
	})
}

func (s *TransportTestSuite) TestLinkNotifications() {
	// GOAL: Verify notifications reach the subscriber as private copies
	//
	// TEST SCENARIO: subscribe → peripheral notifies → handler gets the bytes → buffer reuse does not leak
	transport := goble.NewTransport(s.Logger)
	link, err := transport.Connect(context.Background(), s.connectOptions())
	s.Require().NoError(err)
	defer link.Close()

	got := make(chan []byte, 1)
	s.Require().NoError(link.Subscribe(func(data []byte) { got <- data }))

	buf := []byte("10,20")
	s.Require().True(s.Peripheral().Notify(testutils.RobotCharUUID, buf))
	buf[0] = 'X'

	select {
	case data := <-got:
		s.Assert().Equal("10,20", string(data))
	case <-time.After(time.Second):
		s.Fail("notification MUST be delivered")
	}
}

func (s *TransportTestSuite) TestLinkLifecycle() {
	s.Run("peripheral drop", func() {
		// GOAL: Verify a peripheral-side disconnect closes Done with ErrNotConnected
		//
		// TEST SCENARIO: connect → simulate disconnect → Done closed → Err is ErrNotConnected → writes refused
		transport := goble.NewTransport(s.Logger)
		link, err := transport.Connect(context.Background(), s.connectOptions())
		s.Require().NoError(err)

		s.Peripheral().SimulateDisconnect()
		select {
		case <-link.Done():
		case <-time.After(time.Second):
			s.Require().Fail("Done MUST close on link loss")
		}
		s.Assert().ErrorIs(link.Err(), device.ErrNotConnected)
		s.Assert().False(link.IsConnected())
		s.Assert().ErrorIs(link.Write(context.Background(), []byte{0}, true), device.ErrNotConnected)
		s.Assert().NoError(link.Close())
	})
}

func (s *TransportTestSuite) TestLinkClose() {
	transport := goble.NewTransport(s.Logger)
	link, err := transport.Connect(context.Background(), s.connectOptions())
	s.Require().NoError(err)
	s.Require().NoError(link.Subscribe(func([]byte) {}))

	s.Require().NoError(link.Close())
	s.Assert().NoError(link.Close(), "second close MUST be a no-op")
	s.Assert().NoError(link.Err(), "explicit close MUST NOT report an error")
	s.Assert().False(link.IsConnected())

	s.Peripheral().Client().AssertCalled(s.T(), "Unsubscribe", mock.Anything, false)
	s.Peripheral().Client().AssertCalled(s.T(), "CancelConnection")
}

func (s *TransportTestSuite) TestDialError() {
	// GOAL: Verify dial failures are surfaced with the address
	//
	// TEST SCENARIO: peripheral refuses dial → error names the address
	s.MockBLEPeripheralSuite.TearDownTest()
	s.WithPeripheral().
		WithService(testutils.RobotServiceUUID).
		WithCharacteristic(testutils.RobotCharUUID, "write,notify").
		WithDialError(errors.New("connection refused"))
	s.MockBLEPeripheralSuite.SetupTest()

	transport := goble.NewTransport(s.Logger)
	_, err := transport.Connect(context.Background(), s.connectOptions())
	s.Require().Error(err)
	s.Assert().Contains(err.Error(), testutils.RobotAddress)
}

func TestTransportTestSuite(t *testing.T) {
	suite.Run(t, new(TransportTestSuite))
}
