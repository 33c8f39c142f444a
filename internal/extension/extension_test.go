package extension

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtension(t *testing.T, id string) (*Base, *[]Args) {
	t.Helper()

	var calls []Args
	info := NewInfo(id, "Test "+id)
	info.AddMenu("rightleft", Menu{AcceptReporters: true, Items: Items("오른쪽", "right", "왼쪽", "left")})
	info.AddMenu("delay", Menu{AcceptReporters: true, Items: Items("0.5", "0.5", "1", "1")})

	b := NewBase(info, nil)
	b.MustHandle(Block{
		Opcode: "motor",
		Type:   Command,
		Text:   "[RIGHTLEFT] motor [TEXT]",
		Args: []Arg{
			{Name: "RIGHTLEFT", Type: StringArg, Menu: "rightleft", Default: "오른쪽"},
			{Name: "TEXT", Type: NumberArg, Default: 0},
		},
	}, func(args Args) any {
		calls = append(calls, args)
		return nil
	})
	b.MustHandle(Block{
		Opcode: "wait",
		Type:   Command,
		Text:   "beep for [DELAY]",
		Args:   []Arg{{Name: "DELAY", Type: StringArg, Menu: "delay", Default: "1"}},
	}, func(args Args) any {
		calls = append(calls, args)
		return nil
	})
	b.MustHandle(Block{Opcode: "getvalue", Type: Reporter, Text: "value"}, func(Args) any {
		return float64(42)
	})
	return b, &calls
}

func TestMenuResolve(t *testing.T) {
	m := Menu{Items: Items("오른쪽", "right", "왼쪽\r", "left", "1번", "1")}

	tests := []struct {
		name string
		arg  any
		want string
		ok   bool
	}{
		{"canonical value", "right", "right", true},
		{"label", "오른쪽", "right", true},
		{"label with stray carriage return", "왼쪽", "left", true},
		{"number matches value", 1, "1", true},
		{"float matches value", float64(1), "1", true},
		{"unknown", "up", "", false},
		{"nil", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Resolve(tt.arg)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, 1, m.Index("left"))
	assert.Equal(t, -1, m.Index("nope"))
	assert.Equal(t, []string{"right", "left", "1"}, m.Values())
}

func TestItemsPanicsOnOddPairs(t *testing.T) {
	assert.Panics(t, func() { Items("a", "b", "c") })
}

func TestInfoAddBlock(t *testing.T) {
	info := NewInfo("x", "X")
	err := info.AddBlock(Block{Opcode: "a", Args: []Arg{{Name: "M", Menu: "missing"}}})
	assert.ErrorContains(t, err, "unknown menu")

	require.NoError(t, info.AddBlock(Block{Opcode: "a"}))
	assert.ErrorContains(t, info.AddBlock(Block{Opcode: "a"}), "duplicate block")
}

func TestBaseCall(t *testing.T) {
	b, calls := newTestExtension(t, "test")
	ctx := context.Background()

	t.Run("labels resolve to canonical values", func(t *testing.T) {
		_, err := b.Call(ctx, "motor", Args{"RIGHTLEFT": "왼쪽", "TEXT": "55.7"})
		require.NoError(t, err)
		got := (*calls)[len(*calls)-1]
		assert.Equal(t, "left", got.Item("RIGHTLEFT"))
		assert.Equal(t, 55.7, got.Number("TEXT"))
		assert.Equal(t, 55, got.Int("TEXT"))
	})

	t.Run("defaults fill missing arguments", func(t *testing.T) {
		_, err := b.Call(ctx, "motor", Args{})
		require.NoError(t, err)
		got := (*calls)[len(*calls)-1]
		assert.Equal(t, "right", got.Item("RIGHTLEFT"))
		assert.Equal(t, 0, got.Int("TEXT"))
	})

	t.Run("numeric menu values keep their number", func(t *testing.T) {
		_, err := b.Call(ctx, "wait", Args{"DELAY": 0.5})
		require.NoError(t, err)
		got := (*calls)[len(*calls)-1]
		assert.Equal(t, "0.5", got.Item("DELAY"))
		assert.Equal(t, 0.5, got.Number("DELAY"))
	})

	t.Run("values outside the menu reach the handler empty", func(t *testing.T) {
		_, err := b.Call(ctx, "motor", Args{"RIGHTLEFT": "sideways"})
		require.NoError(t, err)
		got := (*calls)[len(*calls)-1]
		assert.Equal(t, "", got.Item("RIGHTLEFT"))
		assert.Equal(t, "sideways", got.String("RIGHTLEFT"))
	})

	t.Run("garbage numbers are zero", func(t *testing.T) {
		_, err := b.Call(ctx, "motor", Args{"TEXT": "abc"})
		require.NoError(t, err)
		assert.Equal(t, float64(0), (*calls)[len(*calls)-1].Number("TEXT"))
	})

	t.Run("reporters return their value", func(t *testing.T) {
		v, err := b.Call(ctx, "getvalue", nil)
		require.NoError(t, err)
		assert.Equal(t, float64(42), v)
	})

	t.Run("unknown opcode", func(t *testing.T) {
		_, err := b.Call(ctx, "fly", nil)
		assert.ErrorIs(t, err, ErrUnknownBlock)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := b.Call(cctx, "motor", nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestInfoJSONKeepsDeclarationOrder(t *testing.T) {
	b, _ := newTestExtension(t, "test")

	data, err := b.Info().JSON()
	require.NoError(t, err)

	var decoded struct {
		ID     string                     `json:"id"`
		Blocks map[string]json.RawMessage `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "test", decoded.ID)
	assert.Len(t, decoded.Blocks, 3)

	s := string(data)
	assert.Less(t, strings.Index(s, `"motor"`), strings.Index(s, `"wait"`))
	assert.Less(t, strings.Index(s, `"wait"`), strings.Index(s, `"getvalue"`))

	var opcodes []string
	for _, blk := range b.Info().BlockList() {
		opcodes = append(opcodes, blk.Opcode)
	}
	assert.Equal(t, []string{"motor", "wait", "getvalue"}, opcodes)
	assert.Equal(t, []string{"rightleft", "delay"}, b.Info().MenuNames())
	assert.NotContains(t, s, `"icon"`, "an empty icon MUST be omitted")
}

func TestRuntime(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	rt := NewRuntime(logger)

	first, calls := newTestExtension(t, "first")
	second, _ := newTestExtension(t, "second")
	require.NoError(t, rt.Register(first))
	require.NoError(t, rt.Register(second))
	assert.ErrorIs(t, rt.Register(first), ErrDuplicate)

	exts := rt.Extensions()
	require.Len(t, exts, 2)
	assert.Equal(t, "first", exts[0].Info().ID)
	assert.Equal(t, "second", exts[1].Info().ID)

	_, err := rt.Call(context.Background(), "first", "motor", Args{"TEXT": 10})
	require.NoError(t, err)
	assert.Len(t, *calls, 1)

	_, err = rt.Call(context.Background(), "nope", "motor", nil)
	assert.ErrorIs(t, err, ErrUnknownExtension)

	var stopped int
	rt.OnStopAll(func() { stopped++ })
	rt.OnStopAll(func() { stopped++ })
	rt.StopAll()
	assert.Equal(t, 2, stopped, "every stop-all subscriber MUST be notified")
}
