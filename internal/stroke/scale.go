package stroke

import (
	"errors"
	"fmt"
	"math"
)

// UndefinedScale is returned by DeriveScaleFactor when a signature cannot be
// placed. Results carrying it must be discarded.
const UndefinedScale = 0.0

var (
	// ErrNonPositiveFactor rejects a rescale by a factor that is not a
	// positive finite number.
	ErrNonPositiveFactor = errors.New("scale factor must be positive")
	// ErrUndefinedScale marks a signature whose target region had no size.
	ErrUndefinedScale = errors.New("could not place signature: undefined scale")
)

func errNonPositive(f float64) error {
	return fmt.Errorf("%w: got %v", ErrNonPositiveFactor, f)
}

// DeriveScaleFactor maps drawing-surface coordinates onto a region of
// originalHeight. A zero surface yields UndefinedScale instead of dividing.
func DeriveScaleFactor(originalHeight, surfaceHeight float64) float64 {
	if surfaceHeight == 0 {
		return UndefinedScale
	}
	f := originalHeight / surfaceHeight
	if !Renderable(f) {
		return UndefinedScale
	}
	return f
}

// Renderable reports whether f can be applied to an outline.
func Renderable(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// PenSize is the pen thickness used on a drawing surface of the given height.
func PenSize(surfaceHeight float64) float64 {
	if surfaceHeight <= 0 {
		return 0
	}
	return math.Floor(surfaceHeight / 22)
}
