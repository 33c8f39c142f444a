package jcboard

import (
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/srg/botlink/internal/device"
	"github.com/srg/botlink/internal/extension"
	"github.com/srg/botlink/internal/session"
)

var (
	tuneNotes  = map[string]int{"do": 1, "re": 2, "mi": 3, "fa": 4, "sol": 5, "la": 6, "si": 7}
	delayTicks = map[string]byte{"0.5": 5, "0.8": 8, "1": 10, "2": 20, "3": 30, "4": 40, "5": 50}
)

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

func (e *Extension) Profile() *Profile {
	return e.profile
}

// numbered builds a "1번".."n번" menu whose values are the port numbers.
func numbered(n int) extension.Menu {
	pairs := make([]string, 0, 2*n)
	for i := 1; i <= n; i++ {
		v := strconv.Itoa(i)
		pairs = append(pairs, v+"번", v)
	}
	return extension.Menu{AcceptReporters: true, Items: extension.Items(pairs...)}
}

func newInfo() *extension.Info {
	info := extension.NewInfo(ID, Name)
	info.AddMenu("onoff", extension.Menu{AcceptReporters: true, Items: extension.Items("켜기", "on", "끄기", "off")})
	info.AddMenu("tune", extension.Menu{AcceptReporters: true, Items: extension.Items(
		"도", "do", "레", "re", "미", "mi", "파", "fa", "솔", "sol", "라", "la", "시", "si")})
	info.AddMenu("delay", extension.Menu{AcceptReporters: true, Items: extension.Items(
		"0.5", "0.5", "0.8", "0.8", "1", "1", "2", "2", "3", "3", "4", "4", "5", "5")})
	info.AddMenu("onetwo", numbered(2))
	info.AddMenu("onefour", numbered(4))
	info.AddMenu("onefive", numbered(5))
	info.AddMenu("highlow", extension.Menu{AcceptReporters: true, Items: extension.Items("HIGH", "HIGH", "LOW", "LOW")})
	return info
}

func (e *Extension) register() {
	num := func(name string) extension.Arg {
		return extension.Arg{Name: name, Type: extension.NumberArg, Default: 0}
	}
	menu := func(name, menu, def string) extension.Arg {
		return extension.Arg{Name: name, Type: extension.StringArg, Menu: menu, Default: def}
	}
	command := func(opcode, text string, args []extension.Arg, fn func(a extension.Args, p *Profile)) {
		e.MustHandle(extension.Block{Opcode: opcode, Type: extension.Command, Text: text, Args: args},
			func(a extension.Args) any {
				e.Session().Update(func() { fn(a, e.profile) })
				return nil
			})
	}
	// port reads a numbered menu selection; anything outside the menu is 0
	port := func(a extension.Args, name string) int {
		n, _ := strconv.Atoi(a.Item(name))
		return n
	}

	command("ultrasonic", "[ONEFIVE] 포트를 초음파센서로 사용", []extension.Arg{menu("ONEFIVE", "onefive", "1번")},
		func(a extension.Args, p *Profile) { p.UseUltrasonic(port(a, "ONEFIVE")) })
	command("led", "[ONETWO] LED [ONOFF]", []extension.Arg{menu("ONETWO", "onetwo", "1번"), menu("ONOFF", "onoff", "켜기")},
		func(a extension.Args, p *Profile) { p.SetLED(a.Item("ONETWO") == "1", a.Item("ONOFF") == "on") })
	command("buzzer", "[TUNE] 음을 [DELAY] 초동안 소리내기", []extension.Arg{menu("TUNE", "tune", "도"), menu("DELAY", "delay", "1")},
		func(a extension.Args, p *Profile) { p.Buzz(tuneNotes[a.Item("TUNE")], delayTicks[a.Item("DELAY")]) })
	command("motor", "[ONETWO] DC모터를 [TEXT] 세기로 회전", []extension.Arg{menu("ONETWO", "onetwo", "1번"), num("TEXT")},
		func(a extension.Args, p *Profile) { p.SetMotor(a.Item("ONETWO") == "1", a.Number("TEXT")) })
	command("servo", "[ONEFOUR] 서보모터를 [TEXT] 도 회전", []extension.Arg{menu("ONEFOUR", "onefour", "1번"), num("TEXT")},
		func(a extension.Args, p *Profile) { p.SetServo(port(a, "ONEFOUR"), a.Number("TEXT")) })
	command("digitalpin", "[ONEFIVE] 디지털핀을 [HIGHLOW] 로 설정", []extension.Arg{menu("ONEFIVE", "onefive", "1번"), menu("HIGHLOW", "highlow", "HIGH")},
		func(a extension.Args, p *Profile) { p.SetDigital(port(a, "ONEFIVE"), a.Item("HIGHLOW") == "HIGH") })

	e.MustHandle(extension.Block{
		Opcode: "getbutton", Type: extension.Reporter, Text: "[ONETWO] 버튼 값",
		Args: []extension.Arg{menu("ONETWO", "onetwo", "1번")},
	}, func(a extension.Args) any {
		return float64(Button(e.Session().Telemetry(), port(a, "ONETWO")))
	})
	e.MustHandle(extension.Block{
		Opcode: "getanalog", Type: extension.Reporter, Text: "[ONEFIVE] 아날로그 값",
		Args: []extension.Arg{menu("ONEFIVE", "onefive", "1번")},
	}, func(a extension.Args) any {
		return float64(Analog(e.Session().Telemetry(), port(a, "ONEFIVE")))
	})
}
