package aicobot

import (
	"github.com/sirupsen/logrus"
	"github.com/srg/botlink/internal/device"
	"github.com/srg/botlink/internal/extension"
	"github.com/srg/botlink/internal/session"
)

var (
	tuneNotes  = map[string]int{"do": 1, "re": 2, "mi": 3, "fa": 4, "sol": 5, "la": 6, "si": 7}
	delayTicks = map[string]byte{"0.5": 5, "0.8": 8, "1": 10, "2": 20, "3": 30, "4": 40, "5": 50}
)

// Extension exposes the AICoBot blocks.
type Extension struct {
	*extension.Base
	profile *Profile
}

// New creates the extension together with its device session.
func New(transport device.Transport, opts session.Options, logger *logrus.Logger) *Extension {
	p := NewProfile()
	e := &Extension{
		Base:    extension.NewBase(newInfo(), session.New(p, transport, opts, logger)),
		profile: p,
	}
	e.register()
	return e
}

// Profile exposes the outbound state for inspection.
func (e *Extension) Profile() *Profile {
	return e.profile
}

func newInfo() *extension.Info {
	info := extension.NewInfo(ID, Name)
	info.AddMenu("rightleft", extension.Menu{AcceptReporters: true, Items: extension.Items("오른쪽", "right", "왼쪽", "left")})
	info.AddMenu("lmr", extension.Menu{AcceptReporters: true, Items: extension.Items("왼쪽", "left", "중간", "middle", "오른쪽", "right")})
	info.AddMenu("frontback", extension.Menu{AcceptReporters: true, Items: extension.Items("앞", "front", "뒤", "back")})
	info.AddMenu("onoff", extension.Menu{AcceptReporters: true, Items: extension.Items("켜기", "on", "끄기", "off")})
	info.AddMenu("tune", extension.Menu{AcceptReporters: true, Items: extension.Items(
		"도", "do", "레", "re", "미", "mi", "파", "fa", "솔", "sol", "라", "la", "시", "si")})
	info.AddMenu("delay", extension.Menu{AcceptReporters: true, Items: extension.Items(
		"0.5", "0.5", "0.8", "0.8", "1", "1", "2", "2", "3", "3", "4", "4", "5", "5")})
	info.AddMenu("rotdir", extension.Menu{AcceptReporters: true, Items: extension.Items("시계방향", "cw", "반시계방향", "ccw")})
	info.AddMenu("onetwo", extension.Menu{AcceptReporters: true, Items: extension.Items("1번", "1", "2번", "2")})
	info.AddMenu("fblr", extension.Menu{AcceptReporters: true, Items: extension.Items("앞뒤", "fb", "좌우", "lr")})
	return info
}

func (e *Extension) update(fn func(p *Profile)) {
	e.Session().Update(func() { fn(e.profile) })
}

func (e *Extension) register() {
	num := func(name string, def any) extension.Arg {
		return extension.Arg{Name: name, Type: extension.NumberArg, Default: def}
	}
	menu := func(name, menu string, def any) extension.Arg {
		return extension.Arg{Name: name, Type: extension.StringArg, Menu: menu, Default: def}
	}

	e.MustHandle(extension.Block{
		Opcode: "led", Type: extension.Command, Text: "[RIGHTLEFT] LED [ONOFF]",
		Args: []extension.Arg{menu("RIGHTLEFT", "rightleft", "오른쪽"), menu("ONOFF", "onoff", "켜기")},
	}, func(a extension.Args) any {
		side := LEDLeft
		if a.Item("RIGHTLEFT") == "right" {
			side = LEDRight
		}
		on := a.Item("ONOFF") == "on"
		e.update(func(p *Profile) { p.SetLED(side, on) })
		return nil
	})

	e.MustHandle(extension.Block{
		Opcode: "buzzer", Type: extension.Command, Text: "[TUNE] 음을 [DELAY] 초동안 소리내기",
		Args: []extension.Arg{menu("TUNE", "tune", "도"), menu("DELAY", "delay", "1")},
	}, func(a extension.Args) any {
		note := tuneNotes[a.Item("TUNE")]
		ticks := delayTicks[a.Item("DELAY")]
		e.update(func(p *Profile) { p.Buzz(note, ticks) })
		return nil
	})

	e.MustHandle(extension.Block{
		Opcode: "motor", Type: extension.Command, Text: "[RIGHTLEFT] 모터를 [TEXT] 세기로 회전",
		Args: []extension.Arg{menu("RIGHTLEFT", "rightleft", "오른쪽"), num("TEXT", 0)},
	}, func(a extension.Args) any {
		right := a.Item("RIGHTLEFT") == "right"
		power := a.Number("TEXT")
		e.update(func(p *Profile) { p.SetMotor(right, power) })
		return nil
	})

	e.MustHandle(extension.Block{
		Opcode: "move", Type: extension.Command, Text: "[FRONTBACK] (으)로 [TEXT] cm 이동",
		Args: []extension.Arg{menu("FRONTBACK", "frontback", "앞"), num("TEXT", 0)},
	}, func(a extension.Args) any {
		cm := a.Number("TEXT")
		if a.Item("FRONTBACK") == "back" {
			cm = -cm
		}
		e.update(func(p *Profile) { p.Move(cm) })
		return nil
	})

	e.MustHandle(extension.Block{
		Opcode: "rotate", Type: extension.Command, Text: "[ROTDIR] 으로 [TEXT] 도 회전",
		Args: []extension.Arg{menu("ROTDIR", "rotdir", "시계방향"), num("TEXT", 0)},
	}, func(a extension.Args) any {
		deg := a.Number("TEXT")
		if a.Item("ROTDIR") == "ccw" {
			deg = -deg
		}
		e.update(func(p *Profile) { p.Rotate(deg) })
		return nil
	})

	e.MustHandle(extension.Block{
		Opcode: "servo", Type: extension.Command, Text: "[ONETWO] 서보모터를 [TEXT] 도 회전",
		Args: []extension.Arg{menu("ONETWO", "onetwo", "1번"), num("TEXT", 0)},
	}, func(a extension.Args) any {
		first := a.Item("ONETWO") == "1"
		deg := a.Number("TEXT")
		e.update(func(p *Profile) { p.SetServo(first, deg) })
		return nil
	})

	e.MustHandle(extension.Block{
		Opcode: "irsensor", Type: extension.Command, Text: "[LMR] 적외선 센서를 [ONOFF]",
		Args: []extension.Arg{menu("LMR", "lmr", "왼쪽"), menu("ONOFF", "onoff", "켜기")},
	}, func(a extension.Args) any {
		mask := irMask(a.Item("LMR"))
		on := a.Item("ONOFF") == "on"
		e.update(func(p *Profile) { p.SetIR(mask, on) })
		return nil
	})

	e.reporter("getbutton", "짐칸 버튼값", nil, func(a extension.Args) int {
		return Button(e.Session().Telemetry())
	})
	e.reporter("getirsensor", "[LMR] 적외선센서 값", []extension.Arg{menu("LMR", "lmr", "왼쪽")}, func(a extension.Args) int {
		return IR(e.Session().Telemetry(), irIndex(a.Item("LMR")))
	})
	e.reporter("getultrasonic", "초음파센서 값", nil, func(extension.Args) int {
		return Ultrasonic(e.Session().Telemetry())
	})
	e.reporter("getjoystic", "[FBLR] 조이스틱 값", []extension.Arg{menu("FBLR", "fblr", "앞뒤")}, func(a extension.Args) int {
		return Joystick(e.Session().Telemetry(), a.Item("FBLR") != "fb")
	})
	e.reporter("gettilt", "[FBLR] 기울기 값", []extension.Arg{menu("FBLR", "fblr", "앞뒤")}, func(a extension.Args) int {
		return Tilt(e.Session().Telemetry(), a.Item("FBLR") != "fb")
	})
	e.reporter("getsound", "소리센서 값", nil, func(extension.Args) int {
		return Sound(e.Session().Telemetry())
	})
	e.reporter("getillum", "조도센서 값", nil, func(extension.Args) int {
		return Illumination(e.Session().Telemetry())
	})
}

func (e *Extension) reporter(opcode, text string, args []extension.Arg, fn func(extension.Args) int) {
	e.MustHandle(extension.Block{Opcode: opcode, Type: extension.Reporter, Text: text, Args: args},
		func(a extension.Args) any { return float64(fn(a)) })
}

func irMask(item string) byte {
	switch item {
	case "left":
		return IRLeft
	case "middle":
		return IRMiddle
	default:
		return IRRight
	}
}

func irIndex(item string) int {
	switch item {
	case "left":
		return 0
	case "middle":
		return 1
	default:
		return 2
	}
}
