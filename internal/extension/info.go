package extension

import (
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// BlockType is the block category shown to the script author.
type BlockType string

const (
	Command  BlockType = "command"
	Reporter BlockType = "reporter"
	Boolean  BlockType = "boolean"
)

// ArgType is the declared type of a block argument.
type ArgType string

const (
	NumberArg ArgType = "number"
	StringArg ArgType = "string"
)

// Arg describes one block argument. Menu names an entry of Info.Menus.
type Arg struct {
	Name    string  `json:"name"`
	Type    ArgType `json:"type"`
	Menu    string  `json:"menu,omitempty"`
	Default any     `json:"default,omitempty"`
}

// Block describes one operation an extension exposes.
type Block struct {
	Opcode string    `json:"opcode"`
	Type   BlockType `json:"type"`
	Text   string    `json:"text"`
	Args   []Arg     `json:"args,omitempty"`
}

// Arg returns the argument called name.
func (b Block) Arg(name string) (Arg, bool) {
	for _, a := range b.Args {
		if a.Name == name {
			return a, true
		}
	}
	return Arg{}, false
}

// MenuItem pairs the label shown in the editor with the canonical value
// handlers switch on.
type MenuItem struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// Menu is an enumerated set of literal argument values.
type Menu struct {
	AcceptReporters bool       `json:"acceptReporters"`
	Items           []MenuItem `json:"items"`
}

// Items builds menu items from alternating label, value pairs.
func Items(pairs ...string) []MenuItem {
	if len(pairs)%2 != 0 {
		panic("extension.Items: odd number of label/value strings")
	}
	items := make([]MenuItem, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		items = append(items, MenuItem{Text: pairs[i], Value: pairs[i+1]})
	}
	return items
}

// Resolve maps an argument to the canonical item value. Both the value and the
// label are accepted; labels may carry stray whitespace from the editor.
func (m Menu) Resolve(arg any) (string, bool) {
	s := strings.TrimSpace(stringify(arg))
	for _, it := range m.Items {
		if s == it.Value {
			return it.Value, true
		}
	}
	for _, it := range m.Items {
		if s == strings.TrimSpace(it.Text) {
			return it.Value, true
		}
	}
	return "", false
}

// Index returns the position of the item whose value is v, or -1.
func (m Menu) Index(v string) int {
	for i, it := range m.Items {
		if it.Value == v {
			return i
		}
	}
	return -1
}

// Values lists the canonical item values in order.
func (m Menu) Values() []string {
	out := make([]string, len(m.Items))
	for i, it := range m.Items {
		out[i] = it.Value
	}
	return out
}

// Info is what an extension advertises at registration. Icon is part of the
// registration shape but no bundled extension ships icon assets, so it is
// left empty and omitted from the JSON.
type Info struct {
	ID     string                                `json:"id"`
	Name   string                                `json:"name"`
	Icon   string                                `json:"icon,omitempty"`
	Blocks *orderedmap.OrderedMap[string, Block] `json:"blocks"`
	Menus  *orderedmap.OrderedMap[string, Menu]  `json:"menus"`
}

// NewInfo creates an Info with empty block and menu tables.
func NewInfo(id, name string) *Info {
	return &Info{
		ID:     id,
		Name:   name,
		Blocks: orderedmap.New[string, Block](),
		Menus:  orderedmap.New[string, Menu](),
	}
}

// AddMenu declares a menu. Declaring the same name twice replaces it.
func (i *Info) AddMenu(name string, m Menu) {
	i.Menus.Set(name, m)
}

// AddBlock declares a block. Every menu it references must already exist.
func (i *Info) AddBlock(b Block) error {
	if _, dup := i.Blocks.Get(b.Opcode); dup {
		return fmt.Errorf("%s: duplicate block %q", i.ID, b.Opcode)
	}
	for _, a := range b.Args {
		if a.Menu == "" {
			continue
		}
		if _, ok := i.Menus.Get(a.Menu); !ok {
			return fmt.Errorf("%s.%s: argument %s references unknown menu %q", i.ID, b.Opcode, a.Name, a.Menu)
		}
	}
	i.Blocks.Set(b.Opcode, b)
	return nil
}

// Block looks up a block by opcode.
func (i *Info) Block(opcode string) (Block, bool) {
	return i.Blocks.Get(opcode)
}

// Menu looks up a menu by name.
func (i *Info) Menu(name string) (Menu, bool) {
	return i.Menus.Get(name)
}

// BlockList returns the blocks in declaration order.
func (i *Info) BlockList() []Block {
	out := make([]Block, 0, i.Blocks.Len())
	for pair := i.Blocks.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// MenuNames returns the menu names in declaration order.
func (i *Info) MenuNames() []string {
	out := make([]string, 0, i.Menus.Len())
	for pair := i.Menus.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// JSON renders the registration payload with blocks and menus in order.
func (i *Info) JSON() ([]byte, error) {
	return json.MarshalIndent(i, "", "  ")
}
