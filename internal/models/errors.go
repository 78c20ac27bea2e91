package models

import "errors"

// Protocol errors. A receiver drops the offending message and keeps the
// session open.
var (
	ErrUnknownEventKind   = errors.New("unknown event kind")
	ErrUnknownEventTarget = errors.New("unknown event target")
	ErrMalformedDetail    = errors.New("malformed event detail")
	ErrMalformedEnvelope  = errors.New("malformed envelope")
)

// IsProtocolError reports whether err came from decoding a peer message.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrUnknownEventKind) ||
		errors.Is(err, ErrUnknownEventTarget) ||
		errors.Is(err, ErrMalformedDetail) ||
		errors.Is(err, ErrMalformedEnvelope)
}
