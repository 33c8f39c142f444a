//go:build test

package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/srg/botlink/internal/device"
	"github.com/srg/botlink/internal/testutils/mocks"
	"github.com/stretchr/testify/mock"
)

// CharacteristicConfig represents a BLE characteristic configuration for mocking
type CharacteristicConfig struct {
	UUID       string `json:"uuid"`
	Properties string `json:"properties,omitempty"` // e.g. "read,write,notify"
}

// ServiceConfig represents a BLE service configuration for mocking
type ServiceConfig struct {
	UUID            string                 `json:"uuid"`
	Characteristics []CharacteristicConfig `json:"characteristics,omitempty"`
}

// DeviceProfileConfig represents the complete device profile for mocking
type DeviceProfileConfig struct {
	Services []ServiceConfig `json:"services"`
}

// PeripheralDeviceBuilder builds a mocked ble.Device that advertises, accepts
// a connection, records every write and lets the test push notifications.
type PeripheralDeviceBuilder struct {
	t              *testing.T
	profile        DeviceProfileConfig
	advertisements []ble.Advertisement
	dialErr        error
	writeErr       error

	once   sync.Once
	device *mocks.MockDevice
	client *mocks.MockClient
	chars  map[string]*ble.Characteristic
	writes chan []byte
}

// NewPeripheralDeviceBuilder creates a builder with an empty profile.
func NewPeripheralDeviceBuilder(t *testing.T) *PeripheralDeviceBuilder {
	return &PeripheralDeviceBuilder{
		t:      t,
		chars:  make(map[string]*ble.Characteristic),
		writes: make(chan []byte, 1024),
	}
}

// WithService adds a service to the device profile
func (b *PeripheralDeviceBuilder) WithService(uuid string) *PeripheralDeviceBuilder {
	b.profile.Services = append(b.profile.Services, ServiceConfig{UUID: uuid})
	return b
}

// WithCharacteristic adds a characteristic to the last added service
func (b *PeripheralDeviceBuilder) WithCharacteristic(uuid, properties string) *PeripheralDeviceBuilder {
	if len(b.profile.Services) == 0 {
		panic("WithCharacteristic: no service added yet, call WithService first")
	}
	last := len(b.profile.Services) - 1
	b.profile.Services[last].Characteristics = append(b.profile.Services[last].Characteristics,
		CharacteristicConfig{UUID: uuid, Properties: properties})
	return b
}

// FromJSON fills the device profile from JSON
func (b *PeripheralDeviceBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *PeripheralDeviceBuilder {
	var config DeviceProfileConfig
	if err := json.Unmarshal([]byte(fmt.Sprintf(jsonStrFmt, args...)), &config); err != nil {
		panic(fmt.Sprintf("PeripheralDeviceBuilder.FromJSON: failed to unmarshal: %v", err))
	}
	b.profile = config
	return b
}

// WithAdvertisements adds advertisements reported by Scan.
func (b *PeripheralDeviceBuilder) WithAdvertisements(ads ...ble.Advertisement) *PeripheralDeviceBuilder {
	b.advertisements = append(b.advertisements, ads...)
	return b
}

// WithDialError makes every connection attempt fail with err.
func (b *PeripheralDeviceBuilder) WithDialError(err error) *PeripheralDeviceBuilder {
	b.dialErr = err
	return b
}

// WithWriteError makes every characteristic write fail with err.
func (b *PeripheralDeviceBuilder) WithWriteError(err error) *PeripheralDeviceBuilder {
	b.writeErr = err
	return b
}

func parseCharacteristicProperties(props string) ble.Property {
	switch props {
	case "read":
		return ble.CharRead
	case "write":
		return ble.CharWrite
	case "notify":
		return ble.CharNotify
	case "write,notify":
		return ble.CharWrite | ble.CharNotify
	case "read,notify":
		return ble.CharRead | ble.CharNotify
	default:
		return ble.CharRead | ble.CharWrite | ble.CharNotify
	}
}

// Build creates the mocked ble.Device. Repeated calls return the same device.
func (b *PeripheralDeviceBuilder) Build() ble.Device {
	b.once.Do(b.build)
	return b.device
}

func (b *PeripheralDeviceBuilder) build() {
	b.device = &mocks.MockDevice{}
	b.client = mocks.NewMockClient()

	profile := &ble.Profile{}
	for _, svcConfig := range b.profile.Services {
		svc := &ble.Service{UUID: ble.MustParse(svcConfig.UUID)}
		for _, charConfig := range svcConfig.Characteristics {
			c := &ble.Characteristic{
				UUID:     ble.MustParse(charConfig.UUID),
				Property: parseCharacteristicProperties(charConfig.Properties),
			}
			svc.Characteristics = append(svc.Characteristics, c)
			b.chars[device.NormalizeUUID(charConfig.UUID)] = c
		}
		profile.Services = append(profile.Services, svc)
	}

	if b.dialErr != nil {
		b.device.On("Dial", mock.Anything, mock.Anything).Return(nil, b.dialErr)
	} else {
		b.device.On("Dial", mock.Anything, mock.Anything).Return(b.client, nil)
	}
	b.device.On("Stop").Return(nil).Maybe()

	// Scan reports every advertisement, then blocks like a real scan until cancelled.
	b.device.On("Scan", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		handler := args.Get(2).(ble.AdvHandler)
		for _, adv := range b.advertisements {
			handler(adv)
		}
		<-ctx.Done()
	}).Return(nil).Maybe()

	b.client.On("DiscoverProfile", true).Return(profile, nil).Maybe()
	b.client.On("CancelConnection").Return(nil).Maybe()
	b.client.On("Subscribe", mock.Anything, false, mock.Anything).Return(nil).Maybe()
	b.client.On("Unsubscribe", mock.Anything, mock.Anything).Return(nil).Maybe()
	b.client.On("WriteCharacteristic", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		select {
		case b.writes <- args.Get(1).([]byte):
		default:
		}
	}).Return(b.writeErr).Maybe()

	if b.t != nil {
		b.t.Cleanup(b.client.SimulateDisconnect)
	}
}

// Client returns the mocked client handed out by Dial.
func (b *PeripheralDeviceBuilder) Client() *mocks.MockClient {
	b.Build()
	return b.client
}

// Notify pushes data to the subscriber of the characteristic uuid.
// It reports false when nobody subscribed yet.
func (b *PeripheralDeviceBuilder) Notify(uuid string, data []byte) bool {
	b.Build()
	c, ok := b.chars[device.NormalizeUUID(uuid)]
	if !ok {
		panic(fmt.Sprintf("Notify: characteristic %s is not in the profile", uuid))
	}
	return b.client.Notify(c, data)
}

// SimulateDisconnect drops the link from the peripheral side.
func (b *PeripheralDeviceBuilder) SimulateDisconnect() {
	b.Build()
	b.client.SimulateDisconnect()
}

// NextWrite waits for the next recorded characteristic write.
func (b *PeripheralDeviceBuilder) NextWrite(timeout time.Duration) ([]byte, bool) {
	select {
	case w := <-b.writes:
		return w, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Writes exposes the recorded writes.
func (b *PeripheralDeviceBuilder) Writes() <-chan []byte {
	return b.writes
}
