package canvas

import (
	"strings"

	"github.com/matzehuels/patchcanvas/pkg/patch"
)

// Kind is the closed set of visual node variants.
type Kind uint8

const (
	KindText Kind = iota // plain object box, also invalid boxes
	KindComment
	KindCycloneComment
	KindMessage
	KindMessbox
	KindTextDefine

	KindBang
	KindButton
	KindSlider
	KindToggle
	KindNumber
	KindNumboxTilde
	KindRadio
	KindCanvasGUI
	KindVUMeter

	KindFloatAtom
	KindSymbolAtom
	KindListAtom

	KindSubpatch
	KindGraphOnParent
	KindArray
	KindArrayDefine
	KindClone
	KindScalar

	KindMousePad
	KindMouse
	KindKeyboard
	KindPicture
	KindKey
	KindKeyName
	KindKeyUp
	KindOscope
	KindScope
	KindFunction
	KindBicoeff

	KindCanvasActive
	KindCanvasMouse
	KindCanvasVisible
	KindCanvasZoom
	KindCanvasEdit

	KindNonPatchable
)

var kindNames = [...]string{
	KindText:           "text",
	KindComment:        "comment",
	KindCycloneComment: "cyclone-comment",
	KindMessage:        "message",
	KindMessbox:        "messbox",
	KindTextDefine:     "text-define",
	KindBang:           "bang",
	KindButton:         "button",
	KindSlider:         "slider",
	KindToggle:         "toggle",
	KindNumber:         "number",
	KindNumboxTilde:    "numbox~",
	KindRadio:          "radio",
	KindCanvasGUI:      "cnv",
	KindVUMeter:        "vu",
	KindFloatAtom:      "floatatom",
	KindSymbolAtom:     "symbolatom",
	KindListAtom:       "listatom",
	KindSubpatch:       "subpatch",
	KindGraphOnParent:  "graph-on-parent",
	KindArray:          "array",
	KindArrayDefine:    "array-define",
	KindClone:          "clone",
	KindScalar:         "scalar",
	KindMousePad:       "pad",
	KindMouse:          "mouse",
	KindKeyboard:       "keyboard",
	KindPicture:        "pic",
	KindKey:            "key",
	KindKeyName:        "keyname",
	KindKeyUp:          "keyup",
	KindOscope:         "oscope~",
	KindScope:          "scope~",
	KindFunction:       "function",
	KindBicoeff:        "bicoeff",
	KindCanvasActive:   "canvas.active",
	KindCanvasMouse:    "canvas.mouse",
	KindCanvasVisible:  "canvas.vis",
	KindCanvasZoom:     "canvas.zoom",
	KindCanvasEdit:     "canvas.edit",
	KindNonPatchable:   "non-patchable",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Classify maps a runtime unit to its visual kind. The order of the checks
// matters: the runtime reuses a few class names across unrelated objects.
func Classify(u patch.UnitInfo) Kind {
	switch u.Class {
	case "bng":
		return KindBang
	case "button":
		return KindButton
	case "hsl", "vsl", "slider":
		return KindSlider
	case "tgl":
		return KindToggle
	case "nbx":
		return KindNumber
	case "numbox~":
		return KindNumboxTilde
	case "vradio", "hradio":
		return KindRadio
	case "cnv":
		return KindCanvasGUI
	case "vu":
		return KindVUMeter
	case "text":
		if u.TextType == patch.TextObject {
			return KindText
		}
		return KindComment
	case "comment":
		return KindCycloneComment
	}

	// else/message is an ordinary object; only real message boxes qualify.
	if u.Class == "message" && u.TextType == patch.TextMessage {
		return KindMessage
	}

	switch u.Class {
	case "pad":
		return KindMousePad
	case "mouse":
		return KindMouse
	case "keyboard":
		return KindKeyboard
	case "pic":
		return KindPicture
	case "text define":
		return KindTextDefine
	case "gatom":
		switch u.Flavor {
		case patch.FlavorFloat:
			return KindFloatAtom
		case patch.FlavorSymbol:
			return KindSymbolAtom
		case patch.FlavorList:
			return KindListAtom
		}
		return KindText
	case "canvas", "graph":
		switch {
		case u.FirstChild == "array":
			return KindArray
		case u.IsGraph:
			return KindGraphOnParent
		default:
			return KindSubpatch
		}
	case "array define":
		return KindArrayDefine
	case "clone":
		return KindClone
	case "pd":
		return KindSubpatch
	case "scalar":
		if u.Hidden {
			return KindScalar
		}
		return KindText
	case "key":
		return KindKey
	case "keyname":
		return KindKeyName
	case "keyup":
		return KindKeyUp
	case "oscope~":
		return KindOscope
	case "scope~":
		return KindScope
	case "function":
		return KindFunction
	case "bicoeff":
		return KindBicoeff
	case "messbox":
		return KindMessbox
	case "canvas.active":
		return KindCanvasActive
	case "canvas.mouse":
		return KindCanvasMouse
	case "canvas.vis":
		return KindCanvasVisible
	case "canvas.zoom":
		return KindCanvasZoom
	case "canvas.edit":
		return KindCanvasEdit
	default:
		if u.Hidden {
			return KindNonPatchable
		}
	}
	return KindText
}

// TypeName returns the name shown for a unit's type in inspectors.
func TypeName(u patch.UnitInfo) string {
	if u.Abstraction && (u.Class == "canvas" || u.Class == "graph") {
		fields := strings.Fields(u.Text)
		if len(fields) == 0 {
			return ""
		}
		name := fields[0]
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		return name
	}

	if u.Class == "text" {
		switch u.TextType {
		case patch.TextObject:
			return "invalid"
		case patch.TextComment:
			return "comment"
		case patch.TextMessage:
			return "message"
		}
	}

	if u.Class == "gatom" {
		switch u.Flavor {
		case patch.FlavorFloat:
			return "floatbox"
		case patch.FlavorSymbol:
			return "symbolbox"
		case patch.FlavorList:
			return "listbox"
		}
	}
	return u.Class
}
