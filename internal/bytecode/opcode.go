// Package bytecode decodes and formats the instructions of a bytecode image.
package bytecode

import "fmt"

// Opcode is the first byte of an instruction. The high nibble selects a
// category, the low nibble a sub-code within it.
type Opcode byte

// Category returns the high nibble.
func (op Opcode) Category() byte { return byte(op) >> 4 }

// Sub returns the low nibble.
func (op Opcode) Sub() byte { return byte(op) & 0x0F }

func (op Opcode) String() string { return fmt.Sprintf("0x%02X", byte(op)) }

// Categories.
const (
	CatBinop   = 0
	CatData    = 1
	CatLoad    = 2
	CatLoadA   = 3
	CatStore   = 4
	CatControl = 5
	CatPattern = 6
	CatBuiltin = 7
	CatStop    = 15
)

// Opcodes with a fixed byte value.
const (
	OpConst   Opcode = 0x10
	OpString  Opcode = 0x11
	OpSexp    Opcode = 0x12
	OpSti     Opcode = 0x13
	OpSta     Opcode = 0x14
	OpJmp     Opcode = 0x15
	OpEnd     Opcode = 0x16
	OpRet     Opcode = 0x17
	OpDrop    Opcode = 0x18
	OpDup     Opcode = 0x19
	OpSwap    Opcode = 0x1A
	OpElem    Opcode = 0x1B
	OpCJmpZ   Opcode = 0x50
	OpCJmpNZ  Opcode = 0x51
	OpBegin   Opcode = 0x52
	OpCBegin  Opcode = 0x53
	OpClosure Opcode = 0x54
	OpCallC   Opcode = 0x55
	OpCall    Opcode = 0x56
	OpTag     Opcode = 0x57
	OpArray   Opcode = 0x58
	OpFail    Opcode = 0x59
	OpLine    Opcode = 0x5A
	OpLread   Opcode = 0x70
	OpLwrite  Opcode = 0x71
	OpLlength Opcode = 0x72
	OpLstring Opcode = 0x73
	OpBarray  Opcode = 0x74
	OpStop    Opcode = 0xF0
)

// BinaryOp is the low nibble of a category-0 opcode, 1..13.
type BinaryOp byte

var binops = [...]string{"+", "-", "*", "/", "%", "<", "<=", ">", ">=", "==", "!=", "&&", "!!"}

func (b BinaryOp) valid() bool { return b >= 1 && int(b) <= len(binops) }

func (b BinaryOp) String() string {
	if !b.valid() {
		return fmt.Sprintf("binop(%d)", byte(b))
	}
	return binops[b-1]
}

// Location is a variable location class, 0..3.
type Location byte

const (
	Global Location = iota
	Local
	Arg
	Captured
)

func (l Location) valid() bool { return l <= Captured }

func (l Location) String() string {
	switch l {
	case Global:
		return "G"
	case Local:
		return "L"
	case Arg:
		return "A"
	case Captured:
		return "C"
	}
	return fmt.Sprintf("loc(%d)", byte(l))
}

// MemOp is the family of a category 2..4 instruction.
type MemOp byte

const (
	Ld  MemOp = CatLoad
	Lda MemOp = CatLoadA
	St  MemOp = CatStore
)

func (m MemOp) String() string {
	switch m {
	case Ld:
		return "LD"
	case Lda:
		return "LDA"
	case St:
		return "ST"
	}
	return fmt.Sprintf("memop(%d)", byte(m))
}

// Pattern is the low nibble of a category-6 opcode, 0..6.
type Pattern byte

var patterns = [...]string{"=str", "#string", "#array", "#sexp", "#ref", "#val", "#fun"}

func (p Pattern) valid() bool { return int(p) < len(patterns) }

func (p Pattern) String() string {
	if !p.valid() {
		return fmt.Sprintf("patt(%d)", byte(p))
	}
	return patterns[p]
}

// Builtin is one of the operand-less runtime calls, 0..3.
type Builtin byte

var builtins = [...]string{"Lread", "Lwrite", "Llength", "Lstring"}

func (b Builtin) valid() bool { return int(b) < len(builtins) }

func (b Builtin) String() string {
	if !b.valid() {
		return fmt.Sprintf("builtin(%d)", byte(b))
	}
	return builtins[b]
}

// simpleNames names the operand-less category-1 instructions.
var simpleNames = map[Opcode]string{
	OpSti:  "STI",
	OpSta:  "STA",
	OpEnd:  "END",
	OpRet:  "RET",
	OpDrop: "DROP",
	OpDup:  "DUP",
	OpSwap: "SWAP",
	OpElem: "ELEM",
}

// fixedSize returns the encoded length of every opcode whose length does not
// depend on its operands. Closures report their 9-byte prefix.
func fixedSize(op Opcode) (int, bool) {
	switch op.Category() {
	case CatStop:
		return 1, true
	case CatBinop:
		return 1, BinaryOp(op.Sub()).valid()
	case CatLoad, CatLoadA, CatStore:
		return 5, Location(op.Sub()).valid()
	case CatPattern:
		return 1, Pattern(op.Sub()).valid()
	}

	switch op {
	case OpSti, OpSta, OpEnd, OpRet, OpDrop, OpDup, OpSwap, OpElem,
		OpLread, OpLwrite, OpLlength, OpLstring:
		return 1, true
	case OpConst, OpString, OpJmp, OpCJmpZ, OpCJmpNZ, OpCallC, OpArray, OpLine, OpBarray:
		return 5, true
	case OpSexp, OpBegin, OpCBegin, OpClosure, OpCall, OpTag, OpFail:
		return 9, true
	}
	return 0, false
}
