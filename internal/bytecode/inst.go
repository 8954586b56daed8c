package bytecode

// Inst is a decoded instruction. The set of implementations is closed; use a
// type switch to inspect operands.
//
// An Inst aliases the image it was decoded from and must not outlive it.
type Inst interface {
	// Opcode returns the first byte of the encoding.
	Opcode() Opcode
	// Encoding returns the instruction's raw bytes. Two instructions are the
	// same instruction iff their encodings are equal.
	Encoding() []byte
	// Len returns the encoded length in bytes.
	Len() int

	inst()
}

// raw is the encoding shared by every instruction type.
type raw []byte

func (r raw) Opcode() Opcode   { return Opcode(r[0]) }
func (r raw) Encoding() []byte { return r }
func (r raw) Len() int         { return len(r) }
func (raw) inst()              {}

// Stop marks the end of the code stream.
type Stop struct{ raw }

// Binop is a binary operator.
type Binop struct {
	raw
	Op BinaryOp
}

// Const pushes an integer constant.
type Const struct {
	raw
	Value int32
}

// String pushes a string given by its pool offset.
type String struct {
	raw
	Offset int32
}

// Sexp constructs a tagged tuple.
type Sexp struct {
	raw
	Tag   string
	Arity int32
}

// Simple is an operand-less data instruction: STI, STA, END, RET, DROP, DUP,
// SWAP or ELEM.
type Simple struct{ raw }

// Name returns the mnemonic.
func (s Simple) Name() string { return simpleNames[s.Opcode()] }

// Jump is an unconditional jump.
type Jump struct {
	raw
	Target int32
}

// CondJump jumps when the popped value is zero (CJMPz) or non-zero (CJMPnz).
type CondJump struct {
	raw
	NonZero bool
	Target  int32
}

// Mem is a load, address load or store of a variable.
type Mem struct {
	raw
	Op    MemOp
	Loc   Location
	Index int32
}

// Begin opens a function frame. Closure is set for CBEGIN.
type Begin struct {
	raw
	Closure bool
	Arity   int32
	Locals  int32
}

// Capture is one captured variable of a closure.
type Capture struct {
	Loc   Location
	Index int32
}

// Closure creates a closure over Captures with the given entry address.
type Closure struct {
	raw
	Entry    int32
	Captures []Capture
}

// CallC calls the closure on top of the stack.
type CallC struct {
	raw
	Arity int32
}

// Call calls a function at a fixed address.
type Call struct {
	raw
	Addr  int32
	Arity int32
}

// Tag checks an S-expression's tag and arity.
type Tag struct {
	raw
	Tag   string
	Arity int32
}

// Array checks that a value is an array of the given size.
type Array struct {
	raw
	Size int32
}

// Fail raises a match failure at a source position.
type Fail struct {
	raw
	Line int32
	Col  int32
}

// Line records the current source line.
type Line struct {
	raw
	Line int32
}

// Patt is a pattern-match test.
type Patt struct {
	raw
	Pattern Pattern
}

// BuiltinCall calls an operand-less runtime function.
type BuiltinCall struct {
	raw
	Fn Builtin
}

// BArray allocates a boxed array of Size elements.
type BArray struct {
	raw
	Size int32
}
