package canvas

import (
	"image"
	"slices"

	"github.com/matzehuels/patchcanvas/pkg/patch"
)

// Behavior is the per-kind capability set of a node.
type Behavior interface {
	// UpdateBounds derives the visual bounds from runtime geometry.
	UpdateBounds(runtime image.Rectangle) image.Rectangle
	// ApplyBounds converts visual bounds into the geometry pushed to the
	// runtime. ok is false for kinds whose geometry is not editable.
	ApplyBounds(visual image.Rectangle) (r image.Rectangle, ok bool)
	// Parameters lists the inspector parameters of the kind.
	Parameters() []Parameter
	// ReceiveMessage handles a message sent to the unit's editor side and
	// reports whether the node geometry must be re-read from the runtime.
	ReceiveMessage(symbol string, args []patch.Atom) bool
}

// ParamType is the value type of an inspector parameter.
type ParamType uint8

const (
	ParamBool ParamType = iota
	ParamInt
	ParamFloat
	ParamString
	ParamColour
	ParamCombo
)

// ParamCategory groups parameters in an inspector.
type ParamCategory uint8

const (
	CategoryGeneral ParamCategory = iota
	CategoryAppearance
	CategoryLabel
	CategoryExtra
)

// Parameter describes one inspector entry.
type Parameter struct {
	Name     string        `json:"name"`
	Type     ParamType     `json:"type"`
	Category ParamCategory `json:"category"`
	Options  []string      `json:"options,omitempty"`
}

// geometrySymbols are the messages after which a node re-reads its bounds.
var geometrySymbols = []string{"size", "delta", "pos", "dim", "width", "height"}

func isGeometryMessage(symbol string) bool {
	return slices.Contains(geometrySymbols, symbol)
}

// behaviorFor returns the behavior of a kind.
func behaviorFor(k Kind) Behavior {
	switch k {
	case KindBang, KindToggle:
		return iemBehavior{square: true, params: iemParams}
	case KindButton, KindSlider, KindNumber, KindNumboxTilde, KindRadio, KindVUMeter:
		return iemBehavior{params: iemParams}
	case KindCanvasGUI:
		return iemBehavior{params: canvasParams}
	case KindFloatAtom, KindListAtom:
		return atomBehavior{params: numberAtomParams}
	case KindSymbolAtom:
		return atomBehavior{params: atomParams}
	case KindSubpatch, KindClone:
		return containerBehavior{params: subpatchParams}
	case KindGraphOnParent:
		return containerBehavior{params: graphParams}
	case KindArray, KindArrayDefine:
		return containerBehavior{params: arrayParams}
	case KindScalar:
		return containerBehavior{}
	case KindMousePad, KindKeyboard, KindPicture, KindOscope, KindScope, KindFunction, KindBicoeff:
		return graphicBehavior{}
	case KindNonPatchable:
		return nonPatchable{}
	case KindComment, KindCycloneComment:
		return textBehavior{params: commentParams}
	default:
		return textBehavior{}
	}
}

// =============================================================================
// Text boxes
// =============================================================================

const minTextWidth = 30

type textBehavior struct {
	params []Parameter
}

func (textBehavior) UpdateBounds(r image.Rectangle) image.Rectangle {
	if r.Dx() < minTextWidth {
		r.Max.X = r.Min.X + minTextWidth
	}
	return r
}

func (textBehavior) ApplyBounds(r image.Rectangle) (image.Rectangle, bool) { return r, true }

func (b textBehavior) Parameters() []Parameter { return b.params }

func (textBehavior) ReceiveMessage(symbol string, _ []patch.Atom) bool {
	return isGeometryMessage(symbol)
}

// =============================================================================
// IEM GUIs
// =============================================================================

const minIemSize = 15

type iemBehavior struct {
	square bool
	params []Parameter
}

func (b iemBehavior) UpdateBounds(r image.Rectangle) image.Rectangle {
	w, h := max(r.Dx(), minIemSize), max(r.Dy(), minIemSize)
	if b.square {
		w = max(w, h)
		h = w
	}
	return image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Min.Y+h)
}

func (b iemBehavior) ApplyBounds(r image.Rectangle) (image.Rectangle, bool) {
	return b.UpdateBounds(r), true
}

func (b iemBehavior) Parameters() []Parameter { return b.params }

func (iemBehavior) ReceiveMessage(symbol string, _ []patch.Atom) bool {
	return isGeometryMessage(symbol)
}

// =============================================================================
// Atom boxes
// =============================================================================

type atomBehavior struct {
	params []Parameter
}

func (atomBehavior) UpdateBounds(r image.Rectangle) image.Rectangle { return r }

func (atomBehavior) ApplyBounds(r image.Rectangle) (image.Rectangle, bool) { return r, true }

func (b atomBehavior) Parameters() []Parameter { return b.params }

func (atomBehavior) ReceiveMessage(symbol string, _ []patch.Atom) bool {
	return isGeometryMessage(symbol)
}

// =============================================================================
// Containers
// =============================================================================

type containerBehavior struct {
	params []Parameter
}

func (containerBehavior) UpdateBounds(r image.Rectangle) image.Rectangle { return r }

func (containerBehavior) ApplyBounds(r image.Rectangle) (image.Rectangle, bool) { return r, true }

func (b containerBehavior) Parameters() []Parameter { return b.params }

func (containerBehavior) ReceiveMessage(symbol string, _ []patch.Atom) bool {
	// "coords" changes graph-on-parent geometry.
	return symbol == "coords" || isGeometryMessage(symbol)
}

// =============================================================================
// Graphic externals
// =============================================================================

type graphicBehavior struct{}

func (graphicBehavior) UpdateBounds(r image.Rectangle) image.Rectangle { return r }

func (graphicBehavior) ApplyBounds(r image.Rectangle) (image.Rectangle, bool) { return r, true }

func (graphicBehavior) Parameters() []Parameter { return dimensionParams }

func (graphicBehavior) ReceiveMessage(symbol string, _ []patch.Atom) bool {
	return isGeometryMessage(symbol)
}

// =============================================================================
// Non-patchable
// =============================================================================

// nonPatchable covers runtime objects with no box of their own.
type nonPatchable struct{}

func (nonPatchable) UpdateBounds(r image.Rectangle) image.Rectangle { return r }

func (nonPatchable) ApplyBounds(image.Rectangle) (image.Rectangle, bool) {
	return image.Rectangle{}, false
}

func (nonPatchable) Parameters() []Parameter { return nil }

func (nonPatchable) ReceiveMessage(string, []patch.Atom) bool { return false }

// =============================================================================
// Parameter tables
// =============================================================================

var (
	iemParams = []Parameter{
		{Name: "Size", Type: ParamInt, Category: CategoryAppearance},
		{Name: "Foreground", Type: ParamColour, Category: CategoryAppearance},
		{Name: "Background", Type: ParamColour, Category: CategoryAppearance},
		{Name: "Send symbol", Type: ParamString, Category: CategoryGeneral},
		{Name: "Receive symbol", Type: ParamString, Category: CategoryGeneral},
		{Name: "Label", Type: ParamString, Category: CategoryLabel},
		{Name: "Label colour", Type: ParamColour, Category: CategoryLabel},
		{Name: "Init", Type: ParamBool, Category: CategoryExtra, Options: []string{"No", "Yes"}},
	}

	canvasParams = []Parameter{
		{Name: "Size", Type: ParamInt, Category: CategoryAppearance},
		{Name: "Background", Type: ParamColour, Category: CategoryAppearance},
		{Name: "Receive symbol", Type: ParamString, Category: CategoryGeneral},
		{Name: "Label", Type: ParamString, Category: CategoryLabel},
	}

	atomParams = []Parameter{
		{Name: "Width (chars)", Type: ParamInt, Category: CategoryAppearance},
		{Name: "Send symbol", Type: ParamString, Category: CategoryGeneral},
		{Name: "Receive symbol", Type: ParamString, Category: CategoryGeneral},
		{Name: "Label", Type: ParamString, Category: CategoryLabel},
		{Name: "Label position", Type: ParamCombo, Category: CategoryLabel, Options: []string{"left", "right", "top", "bottom"}},
	}

	numberAtomParams = append(slices.Clone(atomParams),
		Parameter{Name: "Minimum", Type: ParamFloat, Category: CategoryGeneral},
		Parameter{Name: "Maximum", Type: ParamFloat, Category: CategoryGeneral},
	)

	subpatchParams = []Parameter{
		{Name: "Is graph", Type: ParamBool, Category: CategoryGeneral, Options: []string{"No", "Yes"}},
	}

	graphParams = []Parameter{
		{Name: "Is graph", Type: ParamBool, Category: CategoryGeneral, Options: []string{"No", "Yes"}},
		{Name: "Hide name and arguments", Type: ParamBool, Category: CategoryGeneral, Options: []string{"No", "Yes"}},
	}

	arrayParams = []Parameter{
		{Name: "Name", Type: ParamString, Category: CategoryGeneral},
		{Name: "Size", Type: ParamInt, Category: CategoryGeneral},
		{Name: "Draw style", Type: ParamCombo, Category: CategoryAppearance, Options: []string{"Points", "Polygon", "Bezier"}},
		{Name: "Save contents", Type: ParamBool, Category: CategoryGeneral, Options: []string{"No", "Yes"}},
	}

	commentParams = []Parameter{
		{Name: "Width", Type: ParamInt, Category: CategoryAppearance},
	}

	dimensionParams = []Parameter{
		{Name: "Width", Type: ParamInt, Category: CategoryAppearance},
		{Name: "Height", Type: ParamInt, Category: CategoryAppearance},
	}
)
