// Package extension is the scripting-runtime contract: extensions advertise
// their blocks and menus, callers invoke blocks by opcode, and a runtime-wide
// stop-all signal resets every device.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/srg/botlink/internal/session"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	ErrUnknownExtension = errors.New("unknown extension")
	ErrUnknownBlock     = errors.New("unknown block")
	ErrDuplicate        = errors.New("extension already registered")
)

// Handler runs one block. Commands return nil; reporters return a float64,
// booleans a bool.
type Handler func(args Args) any

// Extension is one device family exposed to scripts.
type Extension interface {
	Info() *Info
	Session() *session.Session
	Call(ctx context.Context, opcode string, args Args) (any, error)
}

// Base implements Extension from an Info and a handler table. Device packages
// embed it and register their blocks with Handle.
type Base struct {
	info     *Info
	session  *session.Session
	handlers *orderedmap.OrderedMap[string, Handler]
}

// NewBase creates an extension bound to s.
func NewBase(info *Info, s *session.Session) *Base {
	return &Base{
		info:     info,
		session:  s,
		handlers: orderedmap.New[string, Handler](),
	}
}

// Handle declares block b and binds h to it.
func (b *Base) Handle(block Block, h Handler) error {
	if err := b.info.AddBlock(block); err != nil {
		return err
	}
	b.handlers.Set(block.Opcode, h)
	return nil
}

// MustHandle is Handle for static block tables.
func (b *Base) MustHandle(block Block, h Handler) {
	if err := b.Handle(block, h); err != nil {
		panic(err)
	}
}

func (b *Base) Info() *Info {
	return b.info
}

func (b *Base) Session() *session.Session {
	return b.session
}

// Call resolves args against the block declaration and runs the handler.
// Missing arguments take their declared default. Menu arguments are mapped to
// canonical values; anything outside the menu reaches the handler as "".
func (b *Base) Call(ctx context.Context, opcode string, args Args) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	block, ok := b.info.Block(opcode)
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", b.info.ID, opcode, ErrUnknownBlock)
	}
	h, _ := b.handlers.Get(opcode)

	resolved := make(Args, len(block.Args))
	for _, a := range block.Args {
		v, present := args[a.Name]
		if !present || v == nil {
			v = a.Default
		}
		if a.Menu != "" {
			menu, _ := b.info.Menu(a.Menu)
			if canon, ok := menu.Resolve(v); ok {
				v = menuValue(canon)
			}
		}
		resolved[a.Name] = v
	}
	return h(resolved), nil
}
