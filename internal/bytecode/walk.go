package bytecode

import (
	"fmt"
	"log/slog"

	"bcfreq/internal/image"
)

// WalkFunc is called for every instruction before the stop marker, in
// increasing offset order.
type WalkFunc func(off int, in Inst) error

// Walk decodes the code section linearly from offset 0 until the stop
// marker. Running off the end of the code before the marker is an
// image.ErrUnexpectedEnd failure. The first error from decoding or from fn
// ends the walk.
func Walk(img *image.Image, fn WalkFunc) error {
	size := img.CodeSize()
	n := 0
	for off := 0; ; {
		if off >= size {
			return fmt.Errorf("%w: no stop marker in %d bytes of code", image.ErrUnexpectedEnd, size)
		}
		in, length, err := Decode(img, off)
		if err != nil {
			return err
		}
		if _, ok := in.(Stop); ok {
			slog.Debug("Reached stop marker", "offset", off, "instructions", n)
			return nil
		}
		if err := fn(off, in); err != nil {
			return err
		}
		n++
		off += length
	}
}
