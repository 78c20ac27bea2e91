package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type wireEvent struct {
	EventTarget Target          `json:"eventTarget"`
	MouseAction Kind            `json:"mouseAction"`
	Detail      json.RawMessage `json:"detail"`
}

type wirePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Serialize encodes an event into its wire form.
func Serialize(ev Event) ([]byte, error) {
	var (
		detail any
		ok     bool
	)
	switch ev.Kind {
	case KindPointerMove:
		var d PointDetail
		if d, ok = ev.Detail.(PointDetail); ok {
			detail = wirePoint{X: d.X, Y: d.Y}
		}
	case KindScroll:
		var d ScrollDetail
		if d, ok = ev.Detail.(ScrollDetail); ok {
			detail = strconv.FormatFloat(d.Position, 'f', -1, 64)
		}
	case KindCheckboxToggle, KindSignatureRegionOpen:
		var d ElementDetail
		if d, ok = ev.Detail.(ElementDetail); ok && d.ID != "" {
			detail = d.ID
		} else {
			ok = false
		}
	case KindPointerDown, KindPointerUp, KindSignatureSubmit:
		switch ev.Detail.(type) {
		case nil, EmptyDetail:
			detail, ok = "", true
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventKind, ev.Kind)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %T for %s", ErrMalformedDetail, ev.Detail, ev.Kind)
	}
	switch ev.Target {
	case TargetDocument, TargetSignature:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventTarget, ev.Target)
	}

	raw, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDetail, err)
	}
	return json.Marshal(wireEvent{EventTarget: ev.Target, MouseAction: ev.Kind, Detail: raw})
}

// Deserialize decodes a wire event. Unknown kinds and details that do not
// match their kind are rejected with a protocol error.
func Deserialize(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	ev := Event{Target: w.EventTarget, Kind: w.MouseAction}
	switch w.MouseAction {
	case KindPointerMove:
		var p struct {
			X json.RawMessage `json:"x"`
			Y json.RawMessage `json:"y"`
		}
		if err := json.Unmarshal(w.Detail, &p); err != nil {
			return Event{}, malformed(w, err)
		}
		x, okX := parseNumber(p.X)
		y, okY := parseNumber(p.Y)
		if !okX || !okY {
			return Event{}, malformed(w, nil)
		}
		ev.Detail = PointDetail{X: x, Y: y}
	case KindScroll:
		pos, ok := parseNumber(w.Detail)
		if !ok {
			return Event{}, malformed(w, nil)
		}
		ev.Detail = ScrollDetail{Position: pos}
	case KindCheckboxToggle, KindSignatureRegionOpen:
		var id string
		if err := json.Unmarshal(w.Detail, &id); err != nil {
			return Event{}, malformed(w, err)
		}
		if id == "" {
			return Event{}, malformed(w, nil)
		}
		ev.Detail = ElementDetail{ID: id}
	case KindPointerDown, KindPointerUp, KindSignatureSubmit:
		if !isEmptyDetail(w.Detail) {
			return Event{}, malformed(w, nil)
		}
		ev.Detail = EmptyDetail{}
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEventKind, w.MouseAction)
	}

	switch w.EventTarget {
	case TargetDocument, TargetSignature:
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEventTarget, w.EventTarget)
	}
	return ev, nil
}

func malformed(w wireEvent, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s detail %s: %v", ErrMalformedDetail, w.MouseAction, w.Detail, err)
	}
	return fmt.Errorf("%w: %s detail %s", ErrMalformedDetail, w.MouseAction, w.Detail)
}

// parseNumber accepts a JSON number or a numeric string.
func parseNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		if v, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, false
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func isEmptyDetail(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`))
}
