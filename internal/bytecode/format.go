package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders in as mnemonic and operands. The text is a pure function of
// the instruction's encoding and the image's string pool.
func Format(in Inst) (string, error) {
	switch in := in.(type) {
	case Stop:
		return "<end>", nil
	case Binop:
		if !in.Op.valid() {
			break
		}
		return "BINOP " + in.Op.String(), nil
	case Const:
		return "CONST " + strconv.Itoa(int(in.Value)), nil
	case String:
		return "STRING " + strconv.Itoa(int(in.Offset)), nil
	case Sexp:
		return fmt.Sprintf("SEXP\t%s %d", in.Tag, in.Arity), nil
	case Simple:
		if name := in.Name(); name != "" {
			return name, nil
		}
	case Jump:
		return "JMP\t" + addr(in.Target), nil
	case CondJump:
		if in.NonZero {
			return "CJMPnz\t" + addr(in.Target), nil
		}
		return "CJMPz\t" + addr(in.Target), nil
	case Mem:
		if !in.Loc.valid() {
			break
		}
		return fmt.Sprintf("%s\t%s(%d)", in.Op, in.Loc, in.Index), nil
	case Begin:
		name := "BEGIN"
		if in.Closure {
			name = "CBEGIN"
		}
		return fmt.Sprintf("%s\t%d %d", name, in.Arity, in.Locals), nil
	case Closure:
		var sb strings.Builder
		sb.WriteString("CLOSURE\t")
		sb.WriteString(addr(in.Entry))
		for _, c := range in.Captures {
			if !c.Loc.valid() {
				return "", fmt.Errorf("%w: closure capture location %d", ErrInvalidOpcode, byte(c.Loc))
			}
			fmt.Fprintf(&sb, " %s(%d)", c.Loc, c.Index)
		}
		return sb.String(), nil
	case CallC:
		return fmt.Sprintf("CALLC\t%d", in.Arity), nil
	case Call:
		return fmt.Sprintf("CALL\t%s %d", addr(in.Addr), in.Arity), nil
	case Tag:
		return fmt.Sprintf("TAG\t%s %d", in.Tag, in.Arity), nil
	case Array:
		return fmt.Sprintf("ARRAY\t%d", in.Size), nil
	case Fail:
		return fmt.Sprintf("FAIL\t%d %d", in.Line, in.Col), nil
	case Line:
		return fmt.Sprintf("LINE\t%d", in.Line), nil
	case Patt:
		if !in.Pattern.valid() {
			break
		}
		return "PATT\t" + in.Pattern.String(), nil
	case BuiltinCall:
		if !in.Fn.valid() {
			break
		}
		return "CALL\t" + in.Fn.String(), nil
	case BArray:
		return fmt.Sprintf("CALL\tBarray\t%d", in.Size), nil
	}
	return "", fmt.Errorf("%w %s", ErrInvalidOpcode, in.Opcode())
}

// MustFormat is like Format but panics on error. Every instruction returned by
// Decode formats successfully.
func MustFormat(in Inst) string {
	s, err := Format(in)
	if err != nil {
		panic(err)
	}
	return s
}

// addr renders a code address as 0x-prefixed, zero-padded hex.
func addr(v int32) string {
	return fmt.Sprintf("0x%08x", uint32(v))
}
