package robodog

import (
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/srg/botlink/internal/device"
	"github.com/srg/botlink/internal/extension"
	"github.com/srg/botlink/internal/protocol"
	"github.com/srg/botlink/internal/session"
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

func items(pairs ...string) extension.Menu {
	return extension.Menu{AcceptReporters: true, Items: extension.Items(pairs...)}
}

func newInfo() *extension.Info {
	info := extension.NewInfo(ID, Name)
	info.AddMenu("motion", items("준비", "ready", "앉기", "sit", "물구나무서기", "handstand", "기지개 켜기", "stretch"))
	info.AddMenu("legwhat", items("네다리", "all", "앞다리", "front", "뒷다리", "back", "왼쪽다리", "left", "오른쪽다리", "right"))
	info.AddMenu("fb", items("앞", "front", "뒤", "back"))
	info.AddMenu("legpos", items("왼쪽 위", "left_up", "왼쪽 아래", "left_down", "오른쪽 아래", "right_down", "오른쪽 위", "right_up"))
	info.AddMenu("rotdir", items("시계방향", "cw", "반시계방향", "ccw"))
	info.AddMenu("ledexp", items(
		"초롱초롱", "sparkle", "I❤U", "love", "눈감기", "closed", "감사", "thanks", "고마워요", "grateful",
		"뱁새", "squint", "좌우굴리기", "roll", "찢눈", "slit", "찢눈 깜박임", "slit_blink", "곤충", "insect",
		"깜박", "blink", "뱀눈", "snake", "바람개비", "pinwheel"))
	info.AddMenu("lr", items("왼쪽", "left", "오른쪽", "right"))
	info.AddMenu("xy", items("X", "X", "Y", "Y"))
	info.AddMenu("mp3effect", items("멍멍", "1", "으르렁", "2", "깨갱", "3"))
	info.AddMenu("mp3volume", items("작게", "1", "중간으로", "2", "크게", "3"))
	info.AddMenu("lrfb", items("좌우", "lr", "앞뒤", "fb"))
	info.AddMenu("rbdata", items("0", "0", "1", "1", "2", "2", "3", "3"))
	return info
}

func (e *Extension) register() {
	num := func(name string, def any) extension.Arg {
		return extension.Arg{Name: name, Type: extension.NumberArg, Default: def}
	}
	menu := func(name, menu, def string) extension.Arg {
		return extension.Arg{Name: name, Type: extension.StringArg, Menu: menu, Default: def}
	}
	// index is the position of the selected item; anything outside the menu
	// selects the first item
	index := func(a extension.Args, arg, menu string) int {
		m, _ := e.Info().Menu(menu)
		if i := m.Index(a.Item(arg)); i >= 0 {
			return i
		}
		return 0
	}
	command := func(opcode, text string, args []extension.Arg, fn func(a extension.Args, p *Profile)) {
		e.MustHandle(extension.Block{Opcode: opcode, Type: extension.Command, Text: text, Args: args},
			func(a extension.Args) any {
				e.Session().Update(func() { fn(a, e.profile) })
				return nil
			})
	}

	command("gesture", "[MOTION]자세 취하기", []extension.Arg{menu("MOTION", "motion", "준비")},
		func(a extension.Args, p *Profile) { p.Gesture(index(a, "MOTION", "motion")) })
	command("legact", "[LEGWHAT]를[TEXT]높이로 설정하기", []extension.Arg{menu("LEGWHAT", "legwhat", "네다리"), num("TEXT", 60)},
		func(a extension.Args, p *Profile) { p.SetHeight(index(a, "LEGWHAT", "legwhat"), a.Number("TEXT")) })
	command("move", "[FB](으)로[TEXT]빠르기로 이동하기", []extension.Arg{menu("FB", "fb", "앞"), num("TEXT", 50)},
		func(a extension.Args, p *Profile) {
			v := a.Number("TEXT")
			if a.Item("FB") == "back" {
				// the sign flips after clamping
				p.Walk(-protocol.Clamp(v, -100, 100))
				return
			}
			p.Walk(v)
		})
	command("leg", "[LEGPOS]다리 높이 [TEXT1], 발끝 앞뒤[TEXT2]로 설정하기",
		[]extension.Arg{menu("LEGPOS", "legpos", "왼쪽 위"), num("TEXT1", 60), num("TEXT2", 0)},
		func(a extension.Args, p *Profile) {
			p.PoseLeg(index(a, "LEGPOS", "legpos"), a.Number("TEXT1"), a.Number("TEXT2"))
		})
	command("motor", "[LEGPOS]어깨 [TEXT1]도, 무릎[TEXT2]도 설정하기",
		[]extension.Arg{menu("LEGPOS", "legpos", "왼쪽 위"), num("TEXT1", 0), num("TEXT2", 0)},
		func(a extension.Args, p *Profile) {
			p.SetJoints(index(a, "LEGPOS", "legpos"), a.Number("TEXT1"), a.Number("TEXT2"))
		})
	command("rotation", "[ROTDIR]으로[TEXT1]도를 [TEXT2]각속도로 회전하기",
		[]extension.Arg{menu("ROTDIR", "rotdir", "시계방향"), num("TEXT1", 90), num("TEXT2", 100)},
		func(a extension.Args, p *Profile) {
			deg := protocol.Clamp(a.Number("TEXT1"), -1000, 1000)
			if a.Item("ROTDIR") == "ccw" {
				deg = -deg
			}
			p.Turn(deg, a.Number("TEXT2"))
		})
	command("rotvel", "모터 회전속도를[TEXT](으)로 설정하기", []extension.Arg{num("TEXT", 50)},
		func(a extension.Args, p *Profile) { p.SetRotationSpeed(a.Number("TEXT")) })
	command("headledexp", "[LEDEXP]표정을 헤드LED 에 출력하기", []extension.Arg{menu("LEDEXP", "ledexp", "초롱초롱")},
		func(a extension.Args, p *Profile) { p.ShowExpression(index(a, "LEDEXP", "ledexp")) })

	bitmapArgs := []extension.Arg{menu("LR", "lr", "왼쪽")}
	for i := 1; i <= 8; i++ {
		bitmapArgs = append(bitmapArgs, num("TEXT"+strconv.Itoa(i), 0))
	}
	command("headled", "[LR]헤드 LED에 [TEXT1][TEXT2][TEXT3][TEXT4][TEXT5][TEXT6][TEXT7][TEXT8]모양으로 출력하기", bitmapArgs,
		func(a extension.Args, p *Profile) {
			var rows [8]byte
			for i := range rows {
				rows[i] = byte(a.Int("TEXT" + strconv.Itoa(i+1)))
			}
			p.ShowBitmap(a.Item("LR") == "right", rows)
		})
	command("bodyled", "R:[TEXT1], G:[TEXT2], B:[TEXT3]로 바디 LED 색상 출력하기",
		[]extension.Arg{num("TEXT1", 255), num("TEXT2", 255), num("TEXT3", 255)},
		func(a extension.Args, p *Profile) {
			p.SetBodyColor(a.Number("TEXT1"), a.Number("TEXT2"), a.Number("TEXT3"))
		})
	command("mp3play", "[MP3EFFECT] 소리를 볼률 [MP3VOLUME](으)로 출력하기",
		[]extension.Arg{menu("MP3EFFECT", "mp3effect", "멍멍"), menu("MP3VOLUME", "mp3volume", "크게")},
		func(a extension.Args, p *Profile) {
			effect, _ := strconv.Atoi(a.Item("MP3EFFECT"))
			volume, _ := strconv.Atoi(a.Item("MP3VOLUME"))
			p.PlaySound(effect, volume)
		})
	command("expservo", "확장 서보모터[TEXT]도 설정하기", []extension.Arg{num("TEXT", 0)},
		func(a extension.Args, p *Profile) { p.SetExtensionServo(a.Number("TEXT")) })

	reporter := func(opcode, text string, args []extension.Arg, fn func(a extension.Args) int) {
		e.MustHandle(extension.Block{Opcode: opcode, Type: extension.Reporter, Text: text, Args: args},
			func(a extension.Args) any { return float64(fn(a)) })
	}
	reporter("getbattery", "배터리(%)", nil, func(extension.Args) int { return Battery(e.Session().Telemetry()) })
	reporter("getalt", "거리 센서", nil, func(extension.Args) int { return Distance(e.Session().Telemetry()) })
	reporter("gettilt", "[LRFB]기울기", []extension.Arg{menu("LRFB", "lrfb", "좌우")}, func(a extension.Args) int {
		return Tilt(e.Session().Telemetry(), a.Item("LRFB") == "lr")
	})
	reporter("getyaw", "회전", nil, func(extension.Args) int { return Yaw(e.Session().Telemetry()) })
	reporter("getrbdata", "라즈베리파이[RBDATA]번 값", []extension.Arg{menu("RBDATA", "rbdata", "0")}, func(a extension.Args) int {
		n, _ := strconv.Atoi(a.Item("RBDATA"))
		return PiData(e.Session().Telemetry(), n)
	})
}
