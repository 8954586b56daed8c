package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"

	"bcfreq/internal/image"
)

// ErrInvalidOpcode is returned for opcode, location, operator or pattern
// codes outside the instruction set.
var ErrInvalidOpcode = errors.New("invalid opcode")

// captureSize is the encoded size of one closure capture descriptor.
const captureSize = 5

// Decode decodes the instruction at code offset off. It returns the
// instruction and its length, or an error wrapping one of
// image.ErrUnexpectedEnd, image.ErrStringOutOfBounds or ErrInvalidOpcode.
// No instruction is returned on error.
func Decode(img *image.Image, off int) (Inst, int, error) {
	in, err := decode(img, off)
	if err != nil {
		return nil, 0, fmt.Errorf("offset %d: %w", off, err)
	}
	return in, in.Len(), nil
}

func decode(img *image.Image, off int) (Inst, error) {
	b, err := img.ByteAt(off)
	if err != nil {
		return nil, err
	}
	op := Opcode(b)
	size, ok := fixedSize(op)
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrInvalidOpcode, op)
	}

	r, err := img.Slice(off, size)
	if err != nil {
		return nil, err
	}
	if op == OpClosure {
		// The capture count sits inside the fixed prefix just validated;
		// only now can the full length be checked.
		n := binary.LittleEndian.Uint32(r[5:9])
		total := uint64(size) + captureSize*uint64(n)
		if total > uint64(img.CodeSize()-off) {
			return nil, fmt.Errorf("%w: closure with %d captures at offset %d", image.ErrUnexpectedEnd, n, off)
		}
		if r, err = img.Slice(off, int(total)); err != nil {
			return nil, err
		}
	}
	return operands(img, raw(r))
}

func i32(r raw, at int) int32 {
	return int32(binary.LittleEndian.Uint32(r[at : at+4]))
}

// operands decodes r, whose length has already been validated against op.
func operands(img *image.Image, r raw) (Inst, error) {
	op := r.Opcode()
	switch op.Category() {
	case CatStop:
		return Stop{r}, nil
	case CatBinop:
		return Binop{raw: r, Op: BinaryOp(op.Sub())}, nil
	case CatLoad, CatLoadA, CatStore:
		return Mem{raw: r, Op: MemOp(op.Category()), Loc: Location(op.Sub()), Index: i32(r, 1)}, nil
	case CatPattern:
		return Patt{raw: r, Pattern: Pattern(op.Sub())}, nil
	}

	switch op {
	case OpConst:
		return Const{raw: r, Value: i32(r, 1)}, nil
	case OpString:
		return String{raw: r, Offset: i32(r, 1)}, nil
	case OpSexp:
		tag, err := img.StringAt(uint32(i32(r, 1)))
		if err != nil {
			return nil, err
		}
		return Sexp{raw: r, Tag: tag, Arity: i32(r, 5)}, nil
	case OpSti, OpSta, OpEnd, OpRet, OpDrop, OpDup, OpSwap, OpElem:
		return Simple{r}, nil
	case OpJmp:
		return Jump{raw: r, Target: i32(r, 1)}, nil
	case OpCJmpZ, OpCJmpNZ:
		return CondJump{raw: r, NonZero: op == OpCJmpNZ, Target: i32(r, 1)}, nil
	case OpBegin, OpCBegin:
		return Begin{raw: r, Closure: op == OpCBegin, Arity: i32(r, 1), Locals: i32(r, 5)}, nil
	case OpClosure:
		return decodeClosure(r)
	case OpCallC:
		return CallC{raw: r, Arity: i32(r, 1)}, nil
	case OpCall:
		return Call{raw: r, Addr: i32(r, 1), Arity: i32(r, 5)}, nil
	case OpTag:
		tag, err := img.StringAt(uint32(i32(r, 1)))
		if err != nil {
			return nil, err
		}
		return Tag{raw: r, Tag: tag, Arity: i32(r, 5)}, nil
	case OpArray:
		return Array{raw: r, Size: i32(r, 1)}, nil
	case OpFail:
		return Fail{raw: r, Line: i32(r, 1), Col: i32(r, 5)}, nil
	case OpLine:
		return Line{raw: r, Line: i32(r, 1)}, nil
	case OpLread, OpLwrite, OpLlength, OpLstring:
		return BuiltinCall{raw: r, Fn: Builtin(op.Sub())}, nil
	case OpBarray:
		return BArray{raw: r, Size: i32(r, 1)}, nil
	}
	return nil, fmt.Errorf("%w %s", ErrInvalidOpcode, op)
}

func decodeClosure(r raw) (Inst, error) {
	n := (len(r) - 9) / captureSize
	c := Closure{raw: r, Entry: i32(r, 1), Captures: make([]Capture, n)}
	for i := range c.Captures {
		at := 9 + captureSize*i
		loc := Location(r[at])
		if !loc.valid() {
			return nil, fmt.Errorf("%w: closure capture %d has location %d", ErrInvalidOpcode, i, r[at])
		}
		c.Captures[i] = Capture{Loc: loc, Index: i32(r, at+1)}
	}
	return c, nil
}
