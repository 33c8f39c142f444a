package drone

// Variant is one branded build of the drone extension. Every variant drives
// the same firmware; only the identity and the editor labels differ.
type Variant struct {
	ID      string
	Name    string
	Product string

	// FBRL, RotDir, FBLR and LTRB label the canonical menu values, in the
	// order of the *Values slices.
	FBRL   [4]string
	RotDir [2]string
	FBLR   [2]string
	LTRB   [4]string

	Texts map[string]string
}

// Canonical menu values the handlers switch on.
var (
	FBRLValues   = [4]string{"forward", "backward", "right", "left"}
	RotDirValues = [2]string{"Clockwise", "Counterclockwise"}
	FBLRValues   = [2]string{"forward_backward", "left_right"}
	LTRBValues   = [4]string{"left_down", "left_up", "right_down", "right_up"}
)

var koreanTexts = map[string]string{
	"takeoff":    "드론 이륙하기",
	"landing":    "드론 착륙하기",
	"alt":        "[TEXT] cm 높이로 비행",
	"velocity":   "[FBRL] (으)로 [TEXT] 속도(cm/s)로 비행",
	"move":       "[FBRL](으)로 [TEXT1]cm 거리를 [TEXT2] 속도(cm/s)로 비행",
	"rotation":   "[ROTDIR]으로 [TEXT1] 도를 [TEXT2]각속도(deg/s)로 회전",
	"proprot":    "프로펠러를 [TEXT]세기로 돌리기",
	"motorot":    "[LTRB]모터를 [TEXT]세기로 돌리기",
	"emergency":  "드론비행을 즉시 멈춤",
	"getready":   "드론 비행 준비 상태",
	"getbattery": "배터리(%)",
	"getalt":     "드론 높이",
	"gettilt":    "드론[FBLR] 기울기",
	"getmove":    "드론[FBLR] 이동",
}

var (
	koreanFBRL   = [4]string{"앞", "뒤", "오른쪽", "왼쪽"}
	koreanRotDir = [2]string{"시계방향", "반시계방향"}
	koreanFBLR   = [2]string{"앞뒤", "좌우"}
	koreanLTRB   = [4]string{"왼쪽아래", "왼쪽위", "오른쪽아래", "오른쪽위"}
)

var (
	AIDrone = Variant{
		ID:      "aidrone",
		Name:    "AIDrone",
		Product: "AI Drone",
		FBRL:    FBRLValues,
		RotDir:  RotDirValues,
		FBLR:    FBLRValues,
		LTRB:    LTRBValues,
		Texts: map[string]string{
			"takeoff":    "Take Off",
			"landing":    "Landing",
			"alt":        "Fly up [TEXT] in/cm",
			"velocity":   "Fly [FBRL] [TEXT] cm/s",
			"move":       "Fly [FBRL] [TEXT1] cm at [TEXT2] cm/s",
			"rotation":   "Yaw [ROTDIR] [TEXT1] degree [TEXT2] deg/s",
			"proprot":    "Propeller speed [TEXT]",
			"motorot":    "[LTRB] Motor speed [TEXT]",
			"emergency":  "Fly Stop",
			"getready":   "Ready to Fly",
			"getbattery": "Battery(%)",
			"getalt":     "height",
			"gettilt":    "[FBLR] Degree",
			"getmove":    "Move [FBLR]",
		},
	}

	Firmtech = Variant{
		ID:      "firmtech",
		Name:    "FDrone2",
		Product: "Firmtech",
		FBRL:    koreanFBRL,
		RotDir:  koreanRotDir,
		FBLR:    koreanFBLR,
		LTRB:    koreanLTRB,
		Texts:   koreanTexts,
	}

	JDCode = Variant{
		ID:      "jdcode",
		Name:    "JDCode",
		Product: "JDCode",
		FBRL:    koreanFBRL,
		RotDir:  koreanRotDir,
		FBLR:    koreanFBLR,
		LTRB:    koreanLTRB,
		Texts:   koreanTexts,
	}
)

// Variants lists every supported build.
func Variants() []Variant {
	return []Variant{AIDrone, Firmtech, JDCode}
}

func (v Variant) text(opcode string) string {
	if t, ok := v.Texts[opcode]; ok {
		return t
	}
	return opcode
}
