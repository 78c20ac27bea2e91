package models

// Target names the subsystem an event is meant for.
type Target string

const (
	TargetDocument  Target = "HTML"
	TargetSignature Target = "SIGN"
)

// Kind is the user action an event replays.
type Kind string

const (
	KindPointerDown         Kind = "MOUSE_DOWN"
	KindPointerUp           Kind = "MOUSE_UP"
	KindPointerMove         Kind = "MOUSE_MOVE"
	KindScroll              Kind = "SCROLL"
	KindCheckboxToggle      Kind = "CHECKBOX"
	KindSignatureSubmit     Kind = "SIGN_SUBMIT"
	KindSignatureRegionOpen Kind = "SIGN_OPEN"
)

// Detail is the kind-specific part of an event.
type Detail interface {
	isDetail()
}

// PointDetail carries drawing-surface coordinates.
type PointDetail struct {
	X float64
	Y float64
}

// ScrollDetail carries a vertical viewport offset.
type ScrollDetail struct {
	Position float64
}

// ElementDetail carries an element or region identifier.
type ElementDetail struct {
	ID string
}

// EmptyDetail is used by kinds without a payload.
type EmptyDetail struct{}

func (PointDetail) isDetail()   {}
func (ScrollDetail) isDetail()  {}
func (ElementDetail) isDetail() {}
func (EmptyDetail) isDetail()   {}

// Event is an immutable user-action record relayed within a room.
type Event struct {
	Target Target
	Kind   Kind
	Detail Detail
}

func PointerDown() Event {
	return Event{Target: TargetSignature, Kind: KindPointerDown, Detail: EmptyDetail{}}
}

func PointerMove(x, y float64) Event {
	return Event{Target: TargetSignature, Kind: KindPointerMove, Detail: PointDetail{X: x, Y: y}}
}

func PointerUp() Event {
	return Event{Target: TargetSignature, Kind: KindPointerUp, Detail: EmptyDetail{}}
}

func SignatureSubmit() Event {
	return Event{Target: TargetSignature, Kind: KindSignatureSubmit, Detail: EmptyDetail{}}
}

func Scroll(position float64) Event {
	return Event{Target: TargetDocument, Kind: KindScroll, Detail: ScrollDetail{Position: position}}
}

func CheckboxToggle(elementID string) Event {
	return Event{Target: TargetDocument, Kind: KindCheckboxToggle, Detail: ElementDetail{ID: elementID}}
}

func SignatureRegionOpen(regionID string) Event {
	return Event{Target: TargetDocument, Kind: KindSignatureRegionOpen, Detail: ElementDetail{ID: regionID}}
}

// Point returns the coordinates of a pointer event.
func (e Event) Point() (x, y float64, ok bool) {
	d, ok := e.Detail.(PointDetail)
	return d.X, d.Y, ok
}

// ElementID returns the identifier of a checkbox or region event.
func (e Event) ElementID() (string, bool) {
	d, ok := e.Detail.(ElementDetail)
	return d.ID, ok
}

// ScrollPosition returns the offset of a scroll event.
func (e Event) ScrollPosition() (float64, bool) {
	d, ok := e.Detail.(ScrollDetail)
	return d.Position, ok
}
