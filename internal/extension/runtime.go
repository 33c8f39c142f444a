package extension

import (
	"context"
	"fmt"
	"sync"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
)

// Runtime is the registry scripts call blocks through. It owns the
// runtime-wide stop-all signal.
type Runtime struct {
	logger     *logrus.Logger
	extensions *hashmap.Map[string, Extension]

	mu        sync.Mutex
	order     []string
	listeners []func()
}

// NewRuntime creates an empty runtime.
func NewRuntime(logger *logrus.Logger) *Runtime {
	return &Runtime{
		logger:     logger,
		extensions: hashmap.New[string, Extension](),
	}
}

// Register advertises ext. Extension IDs are unique.
func (r *Runtime) Register(ext Extension) error {
	info := ext.Info()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.extensions.Get(info.ID); exists {
		return fmt.Errorf("%s: %w", info.ID, ErrDuplicate)
	}
	r.extensions.Set(info.ID, ext)
	r.order = append(r.order, info.ID)

	r.logger.WithFields(logrus.Fields{
		"extension": info.ID,
		"name":      info.Name,
		"blocks":    info.Blocks.Len(),
		"menus":     info.Menus.Len(),
	}).Debug("Extension registered")
	return nil
}

// Extension looks up a registered extension.
func (r *Runtime) Extension(id string) (Extension, bool) {
	return r.extensions.Get(id)
}

// Extensions lists registered extensions in registration order.
func (r *Runtime) Extensions() []Extension {
	r.mu.Lock()
	ids := append([]string(nil), r.order...)
	r.mu.Unlock()

	out := make([]Extension, 0, len(ids))
	for _, id := range ids {
		if ext, ok := r.extensions.Get(id); ok {
			out = append(out, ext)
		}
	}
	return out
}

// Call invokes a block of a registered extension.
func (r *Runtime) Call(ctx context.Context, extID, opcode string, args Args) (any, error) {
	ext, ok := r.extensions.Get(extID)
	if !ok {
		return nil, fmt.Errorf("%s: %w", extID, ErrUnknownExtension)
	}
	return ext.Call(ctx, opcode, args)
}

// OnStopAll subscribes fn to the stop-all signal.
func (r *Runtime) OnStopAll(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// StopAll resets every registered device to its safe state and ends its
// session, then notifies subscribers.
func (r *Runtime) StopAll() {
	for _, ext := range r.Extensions() {
		if s := ext.Session(); s != nil {
			s.StopAll()
		}
	}

	r.mu.Lock()
	listeners := append([]func(){}, r.listeners...)
	r.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
	r.logger.Debug("Stop-all broadcast")
}
