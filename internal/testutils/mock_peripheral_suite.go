//go:build test

package testutils

import (
	"testing"
	"time"

	blelib "github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	goble "github.com/srg/botlink/internal/device/go-ble"
	"github.com/stretchr/testify/suite"
)

const (
	// RobotServiceUUID and RobotCharUUID describe the default mocked peripheral:
	// a robot exposing the shared rx/tx characteristic in service 0x2261.
	RobotServiceUUID = "2261"
	RobotCharUUID    = "00000227-0000-1000-8000-00805f9b34fb"
	RobotAddress     = "00:00:00:00:00:01"
)

// MockBLEPeripheralSuite swaps goble.DeviceFactory for a mocked peripheral
// around every test.
//
// Custom profiles are configured before the parent SetupTest runs:
//
//	func (s *DogSuite) SetupTest() {
//	    s.WithPeripheral().
//	        WithService("2264").
//	        WithCharacteristic(testutils.RobotCharUUID, "write,notify").
//	        WithAdvertisements(testutils.NewAdvertisementBuilder().
//	            WithName("RoboDog").WithAddress("00:00:00:00:00:02").WithServices("2264").Build())
//
//	    s.MockBLEPeripheralSuite.SetupTest()
//	}
type MockBLEPeripheralSuite struct {
	suite.Suite

	Helper *TestHelper
	Logger *logrus.Logger

	OriginalDeviceFactory func() (blelib.Device, error)
	TestTimeout           time.Duration

	PeripheralBuilder *PeripheralDeviceBuilder
}

// SetupSuite runs once before all tests in the suite.
func (s *MockBLEPeripheralSuite) SetupSuite() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
	s.TestTimeout = 5 * time.Second

	s.OriginalDeviceFactory = goble.DeviceFactory
	s.T().Cleanup(func() {
		if s.OriginalDeviceFactory != nil {
			goble.DeviceFactory = s.OriginalDeviceFactory
		}
	})
}

// SetupTest installs the mocked device factory.
func (s *MockBLEPeripheralSuite) SetupTest() {
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = createDefaultPeripheralBuilder(s.T())
	}

	builder := s.PeripheralBuilder
	goble.DeviceFactory = func() (blelib.Device, error) {
		return builder.Build(), nil
	}
	s.Logger.Debug("Test setup completed - ready for execution")
}

// TearDownTest restores the factory and forgets the peripheral.
func (s *MockBLEPeripheralSuite) TearDownTest() {
	if s.OriginalDeviceFactory != nil {
		goble.DeviceFactory = s.OriginalDeviceFactory
	}
	s.PeripheralBuilder = nil
}

// WithPeripheral returns the peripheral builder for fluent configuration.
func (s *MockBLEPeripheralSuite) WithPeripheral() *PeripheralDeviceBuilder {
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = NewPeripheralDeviceBuilder(s.T())
	}
	return s.PeripheralBuilder
}

// Peripheral returns the builder of the currently installed peripheral.
func (s *MockBLEPeripheralSuite) Peripheral() *PeripheralDeviceBuilder {
	return s.PeripheralBuilder
}

func createDefaultPeripheralBuilder(t *testing.T) *PeripheralDeviceBuilder {
	return NewPeripheralDeviceBuilder(t).
		FromJSON(`
		{
			"services": [
				{
					"uuid": %q,
					"characteristics": [
						{ "uuid": %q, "properties": "read,write,notify" }
					]
				}
			]
		}`, RobotServiceUUID, RobotCharUUID).
		WithAdvertisements(NewAdvertisementBuilder().
			WithName("AICoBot").
			WithAddress(RobotAddress).
			WithRSSI(-48).
			WithServices(RobotServiceUUID).
			Build())
}
