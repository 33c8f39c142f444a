package session

import (
	"context"
	"sync"
	"time"

	"github.com/srg/botlink/internal/device"
	"github.com/srg/botlink/internal/protocol"
	"github.com/stretchr/testify/mock"
)

type fakeAdvertisement struct {
	name, addr string
	rssi       int
	services   []string
}

func (a fakeAdvertisement) LocalName() string        { return a.name }
func (a fakeAdvertisement) Addr() string             { return a.addr }
func (a fakeAdvertisement) RSSI() int                { return a.rssi }
func (a fakeAdvertisement) Services() []string       { return a.services }
func (a fakeAdvertisement) ManufacturerData() []byte { return nil }
func (a fakeAdvertisement) Connectable() bool        { return true }

// mockTransport reports its advertisements and then blocks like a real scan.
type mockTransport struct {
	mock.Mock
	ads []device.Advertisement
}

func (t *mockTransport) Scan(ctx context.Context, allowDup bool, handler func(device.Advertisement)) error {
	args := t.Called(ctx, allowDup)
	for _, a := range t.ads {
		handler(a)
	}
	<-ctx.Done()
	return args.Error(0)
}

func (t *mockTransport) Connect(ctx context.Context, opts *device.ConnectOptions) (device.Link, error) {
	args := t.Called(ctx, opts)
	if l, ok := args.Get(0).(device.Link); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeLink records writes and lets tests inject notifications and drops.
type fakeLink struct {
	mu        sync.Mutex
	handler   func([]byte)
	connected bool
	closed    int
	writeErr  error
	writes    chan []byte
	done      chan struct{}
	doneOnce  sync.Once
	err       error
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		connected: true,
		writes:    make(chan []byte, 4096),
		done:      make(chan struct{}),
	}
}

func (l *fakeLink) Write(ctx context.Context, data []byte, withResponse bool) error {
	l.mu.Lock()
	err := l.writeErr
	l.mu.Unlock()
	if err != nil {
		return err
	}
	select {
	case l.writes <- data:
	default:
	}
	return nil
}

func (l *fakeLink) Subscribe(handler func([]byte)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = handler
	return nil
}

func (l *fakeLink) Done() <-chan struct{} { return l.done }

func (l *fakeLink) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *fakeLink) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	l.connected = false
	l.closed++
	l.mu.Unlock()
	l.doneOnce.Do(func() { close(l.done) })
	return nil
}

func (l *fakeLink) notify(text string) {
	l.mu.Lock()
	h := l.handler
	l.mu.Unlock()
	if h != nil {
		h([]byte(text))
	}
}

func (l *fakeLink) drop() {
	l.mu.Lock()
	l.connected = false
	l.err = device.ErrNotConnected
	l.mu.Unlock()
	l.doneOnce.Do(func() { close(l.done) })
}

func (l *fakeLink) closeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *fakeLink) nextWrite(timeout time.Duration) ([]byte, bool) {
	select {
	case w := <-l.writes:
		return w, true
	case <-time.After(timeout):
		return nil, false
	}
}

// testProfile is a four byte command buffer. Byte 3 counts ticks, and a
// telemetry frame whose first field is 9 trips an interlock clearing byte 0.
type testProfile struct {
	buf      [4]byte
	ingested []protocol.Telemetry
	onIngest func()
}

func (p *testProfile) Descriptor() Descriptor {
	return Descriptor{
		ID:          "testbot",
		Name:        "TestBot",
		ServiceUUID: "2261",
		RxUUID:      "0227",
		TxUUID:      "0227",
	}
}

func (p *testProfile) Reset() {
	p.buf = [4]byte{0xAA, 0, 0, 0}
}

func (p *testProfile) Tick() {
	p.buf[3]++
}

func (p *testProfile) Frame() []byte {
	out := make([]byte, len(p.buf))
	copy(out, p.buf[:])
	return out
}

func (p *testProfile) Ingest(t protocol.Telemetry) {
	p.ingested = append(p.ingested, t)
	if p.onIngest != nil {
		p.onIngest()
	}
	if t.Field(0) == 9 {
		p.buf[0] = 0
	}
}
