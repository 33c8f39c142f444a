// Package groutine starts named goroutines so they show up with a label in
// pprof goroutine dumps, and tracks groups of them for orderly shutdown.
package groutine

import (
	"context"
	"runtime/pprof"
	"sync"
)

type ctxKey string

const goroutineNameKey ctxKey = "goroutine_name"

// Go starts fn in a goroutine labelled with name.
// If parentCtx is nil, context.Background() is used.
//
//	groutine.Go(ctx, "session-poll", func(ctx context.Context) {
//	    // work
//	})
func Go(parentCtx context.Context, name string, fn func(ctx context.Context)) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	labels := pprof.Labels("goroutine_name", name)

	go pprof.Do(parentCtx, labels, func(ctx context.Context) {
		ctx = context.WithValue(ctx, goroutineNameKey, name)
		fn(ctx)
	})
}

// GetName retrieves the goroutine name from the context.
func GetName(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(goroutineNameKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Group runs named goroutines that share one cancellable lifetime.
type Group struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	wg     sync.WaitGroup
}

// NewGroup derives the group lifetime from parent.
func NewGroup(parent context.Context) *Group {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)
	return &Group{ctx: ctx, cancel: cancel}
}

// Go starts fn as a named member of the group.
func (g *Group) Go(name string, fn func(ctx context.Context)) {
	g.wg.Add(1)
	Go(g.ctx, name, func(ctx context.Context) {
		defer g.wg.Done()
		fn(ctx)
	})
}

// Context is cancelled when the group stops.
func (g *Group) Context() context.Context {
	return g.ctx
}

// Stop cancels the group with cause. A nil cause means a normal shutdown.
func (g *Group) Stop(cause error) {
	g.cancel(cause)
}

// Wait blocks until every member has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}
