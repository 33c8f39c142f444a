//go:build test

// Package mocks holds testify doubles for the go-ble interfaces.
// Each double embeds the interface it stands in for, so calls nobody stubbed
// fail loudly with a nil dereference instead of silently succeeding.
package mocks

import (
	"context"
	"sync"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/mock"
)

// MockDevice is a ble.Device double covering scan and dial.
type MockDevice struct {
	mock.Mock
	ble.Device
}

func (m *MockDevice) Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error {
	args := m.Called(ctx, allowDup, h)
	return args.Error(0)
}

func (m *MockDevice) Dial(ctx context.Context, a ble.Addr) (ble.Client, error) {
	args := m.Called(ctx, a)
	if c, ok := args.Get(0).(ble.Client); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDevice) Stop() error {
	args := m.Called()
	return args.Error(0)
}

// MockClient is a ble.Client double. Notification handlers registered through
// Subscribe are kept so tests can push data with Notify.
type MockClient struct {
	mock.Mock
	ble.Client

	mu           sync.Mutex
	handlers     map[*ble.Characteristic]ble.NotificationHandler
	disconnected chan struct{}
	closeOnce    sync.Once
}

// NewMockClient creates a client whose Disconnected channel is open.
func NewMockClient() *MockClient {
	return &MockClient{
		handlers:     make(map[*ble.Characteristic]ble.NotificationHandler),
		disconnected: make(chan struct{}),
	}
}

func (m *MockClient) DiscoverProfile(force bool) (*ble.Profile, error) {
	args := m.Called(force)
	if p, ok := args.Get(0).(*ble.Profile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error {
	data := make([]byte, len(value))
	copy(data, value)
	args := m.Called(c, data, noRsp)
	return args.Error(0)
}

func (m *MockClient) ReadCharacteristic(c *ble.Characteristic) ([]byte, error) {
	args := m.Called(c)
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error {
	args := m.Called(c, ind, h)
	if args.Error(0) == nil {
		m.mu.Lock()
		m.handlers[c] = h
		m.mu.Unlock()
	}
	return args.Error(0)
}

func (m *MockClient) Unsubscribe(c *ble.Characteristic, ind bool) error {
	args := m.Called(c, ind)
	m.mu.Lock()
	delete(m.handlers, c)
	m.mu.Unlock()
	return args.Error(0)
}

func (m *MockClient) CancelConnection() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockClient) Disconnected() <-chan struct{} {
	return m.disconnected
}

// Notify delivers data to the handler subscribed on c.
// It reports false when nothing is subscribed.
func (m *MockClient) Notify(c *ble.Characteristic, data []byte) bool {
	m.mu.Lock()
	h := m.handlers[c]
	m.mu.Unlock()
	if h == nil {
		return false
	}
	h(data)
	return true
}

// SimulateDisconnect closes the Disconnected channel as a peripheral drop would.
func (m *MockClient) SimulateDisconnect() {
	m.closeOnce.Do(func() { close(m.disconnected) })
}

// MockAdvertisement is a fixed ble.Advertisement.
type MockAdvertisement struct {
	ble.Advertisement

	Name       string
	Address    string
	Rssi       int
	ServiceIDs []ble.UUID
	ManufData  []byte
	CanConnect bool
}

func (a *MockAdvertisement) LocalName() string           { return a.Name }
func (a *MockAdvertisement) ManufacturerData() []byte    { return a.ManufData }
func (a *MockAdvertisement) Services() []ble.UUID        { return a.ServiceIDs }
func (a *MockAdvertisement) OverflowService() []ble.UUID { return nil }
func (a *MockAdvertisement) Connectable() bool           { return a.CanConnect }
func (a *MockAdvertisement) RSSI() int                   { return a.Rssi }
func (a *MockAdvertisement) Addr() ble.Addr              { return ble.NewAddr(a.Address) }
