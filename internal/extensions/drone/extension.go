package drone

import (
	"github.com/sirupsen/logrus"
	"github.com/srg/botlink/internal/device"
	"github.com/srg/botlink/internal/extension"
	"github.com/srg/botlink/internal/session"
)

// Extension exposes the drone blocks of one variant.
type Extension struct {
	*extension.Base
	profile *Profile
}

// New creates the extension for variant v together with its device session.
func New(v Variant, transport device.Transport, opts session.Options, logger *logrus.Logger) *Extension {
	p := NewProfile(v)
	e := &Extension{
		Base:    extension.NewBase(newInfo(v), session.New(p, transport, opts, logger)),
		profile: p,
	}
	e.register(v)
	return e
}

func (e *Extension) Profile() *Profile {
	return e.profile
}

func menuOf(labels []string, values []string) extension.Menu {
	pairs := make([]string, 0, 2*len(values))
	for i, v := range values {
		pairs = append(pairs, labels[i], v)
	}
	return extension.Menu{AcceptReporters: true, Items: extension.Items(pairs...)}
}

func newInfo(v Variant) *extension.Info {
	info := extension.NewInfo(v.ID, v.Name)
	info.AddMenu("fbrl", menuOf(v.FBRL[:], FBRLValues[:]))
	info.AddMenu("rotdir", menuOf(v.RotDir[:], RotDirValues[:]))
	info.AddMenu("fblr", menuOf(v.FBLR[:], FBLRValues[:]))
	info.AddMenu("ltrb", menuOf(v.LTRB[:], LTRBValues[:]))
	return info
}

func (e *Extension) update(fn func(p *Profile)) {
	e.Session().Update(func() { fn(e.profile) })
}

func (e *Extension) register(v Variant) {
	num := func(name string, def any) extension.Arg {
		return extension.Arg{Name: name, Type: extension.NumberArg, Default: def}
	}
	menu := func(name, menu string, def string) extension.Arg {
		return extension.Arg{Name: name, Type: extension.StringArg, Menu: menu, Default: def}
	}
	command := func(opcode string, args []extension.Arg, fn func(a extension.Args, p *Profile)) {
		e.MustHandle(extension.Block{Opcode: opcode, Type: extension.Command, Text: v.text(opcode), Args: args},
			func(a extension.Args) any {
				e.update(func(p *Profile) { fn(a, p) })
				return nil
			})
	}

	// takeoff reads readiness before taking the profile lock
	e.MustHandle(extension.Block{Opcode: "takeoff", Type: extension.Command, Text: v.text("takeoff")},
		func(extension.Args) any {
			ready := Ready(e.Session().Telemetry())
			e.update(func(p *Profile) { p.Takeoff(ready) })
			return nil
		})
	command("landing", nil, func(_ extension.Args, p *Profile) { p.Landing() })
	command("alt", []extension.Arg{num("TEXT", 100)}, func(a extension.Args, p *Profile) {
		p.Altitude(a.Number("TEXT"))
	})
	command("velocity", []extension.Arg{menu("FBRL", "fbrl", v.FBRL[0]), num("TEXT", 70)},
		func(a extension.Args, p *Profile) { p.Velocity(a.Item("FBRL"), a.Number("TEXT")) })
	command("move", []extension.Arg{menu("FBRL", "fbrl", v.FBRL[0]), num("TEXT1", 100), num("TEXT2", 100)},
		func(a extension.Args, p *Profile) { p.Move(a.Item("FBRL"), a.Number("TEXT1"), a.Number("TEXT2")) })
	command("rotation", []extension.Arg{menu("ROTDIR", "rotdir", v.RotDir[0]), num("TEXT1", 90), num("TEXT2", 70)},
		func(a extension.Args, p *Profile) {
			p.Rotate(a.Item("ROTDIR") == "Clockwise", a.Number("TEXT1"), a.Number("TEXT2"))
		})
	command("proprot", []extension.Arg{num("TEXT", 0)}, func(a extension.Args, p *Profile) {
		p.Propeller(a.Number("TEXT"))
	})
	command("motorot", []extension.Arg{menu("LTRB", "ltrb", v.LTRB[0]), num("TEXT", 0)},
		func(a extension.Args, p *Profile) { p.MotorTest(a.Item("LTRB"), a.Number("TEXT")) })
	command("emergency", nil, func(_ extension.Args, p *Profile) { p.Emergency() })

	reporter := func(opcode string, args []extension.Arg, fn func(a extension.Args) int) {
		e.MustHandle(extension.Block{Opcode: opcode, Type: extension.Reporter, Text: v.text(opcode), Args: args},
			func(a extension.Args) any { return float64(fn(a)) })
	}
	reporter("getready", nil, func(extension.Args) int {
		if Ready(e.Session().Telemetry()) {
			return 1
		}
		return 0
	})
	reporter("getbattery", nil, func(extension.Args) int { return Battery(e.Session().Telemetry()) })
	reporter("getalt", nil, func(extension.Args) int { return Altitude(e.Session().Telemetry()) })
	reporter("gettilt", []extension.Arg{menu("FBLR", "fblr", v.FBLR[0])}, func(a extension.Args) int {
		return Tilt(e.Session().Telemetry(), a.Item("FBLR") == "left_right")
	})
	reporter("getmove", []extension.Arg{menu("FBLR", "fblr", v.FBLR[0])}, func(a extension.Args) int {
		return Displacement(e.Session().Telemetry(), a.Item("FBLR") == "left_right")
	})
}
