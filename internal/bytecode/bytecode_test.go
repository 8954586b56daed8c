package bytecode_test

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"bcfreq/internal/bytecode"
	"bcfreq/internal/image"
	"bcfreq/internal/image/imagetest"
)

func TestDecodeFormat(t *testing.T) {
	b := &imagetest.Builder{}
	cons := int32(b.String("cons"))
	nilTag := int32(b.String("Nil"))

	tests := []struct {
		name string
		code []byte
		want string
	}{
		{"stop", []byte{0xF0}, "<end>"},
		{"stop any sub-code", []byte{0xFF}, "<end>"},
		{"binop +", []byte{0x01}, "BINOP +"},
		{"binop -", []byte{0x02}, "BINOP -"},
		{"binop <=", []byte{0x07}, "BINOP <="},
		{"binop !=", []byte{0x0B}, "BINOP !="},
		{"binop !!", []byte{0x0D}, "BINOP !!"},
		{"const", op(0x10, 42), "CONST 42"},
		{"const negative", op(0x10, -7), "CONST -7"},
		{"string", op(0x11, 3), "STRING 3"},
		{"sexp", op(0x12, cons, 2), "SEXP\tcons 2"},
		{"sti", []byte{0x13}, "STI"},
		{"sta", []byte{0x14}, "STA"},
		{"jmp", op(0x15, 0x1c), "JMP\t0x0000001c"},
		{"jmp negative", op(0x15, -1), "JMP\t0xffffffff"},
		{"end", []byte{0x16}, "END"},
		{"ret", []byte{0x17}, "RET"},
		{"drop", []byte{0x18}, "DROP"},
		{"dup", []byte{0x19}, "DUP"},
		{"swap", []byte{0x1A}, "SWAP"},
		{"elem", []byte{0x1B}, "ELEM"},
		{"ld global", op(0x20, 0), "LD\tG(0)"},
		{"ld local", op(0x21, 1), "LD\tL(1)"},
		{"lda arg", op(0x32, 2), "LDA\tA(2)"},
		{"st captured", op(0x43, 3), "ST\tC(3)"},
		{"cjmpz", op(0x50, 256), "CJMPz\t0x00000100"},
		{"cjmpnz", op(0x51, 16), "CJMPnz\t0x00000010"},
		{"begin", op(0x52, 2, 5), "BEGIN\t2 5"},
		{"cbegin", op(0x53, 1, 0), "CBEGIN\t1 0"},
		{"closure no captures", op(0x54, 0x30, 0), "CLOSURE\t0x00000030"},
		{
			"closure captures",
			append(op(0x54, 0x30, 2), 0, 1, 0, 0, 0, 3, 2, 0, 0, 0),
			"CLOSURE\t0x00000030 G(1) C(2)",
		},
		{"callc", op(0x55, 3), "CALLC\t3"},
		{"call", op(0x56, 0x40, 2), "CALL\t0x00000040 2"},
		{"tag", op(0x57, nilTag, 0), "TAG\tNil 0"},
		{"array", op(0x58, 2), "ARRAY\t2"},
		{"fail", op(0x59, 10, 4), "FAIL\t10 4"},
		{"line", op(0x5A, 12), "LINE\t12"},
		{"patt =str", []byte{0x60}, "PATT\t=str"},
		{"patt #string", []byte{0x61}, "PATT\t#string"},
		{"patt #array", []byte{0x62}, "PATT\t#array"},
		{"patt #sexp", []byte{0x63}, "PATT\t#sexp"},
		{"patt #ref", []byte{0x64}, "PATT\t#ref"},
		{"patt #val", []byte{0x65}, "PATT\t#val"},
		{"patt #fun", []byte{0x66}, "PATT\t#fun"},
		{"lread", []byte{0x70}, "CALL\tLread"},
		{"lwrite", []byte{0x71}, "CALL\tLwrite"},
		{"llength", []byte{0x72}, "CALL\tLlength"},
		{"lstring", []byte{0x73}, "CALL\tLstring"},
		{"barray", op(0x74, 4), "CALL\tBarray\t4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := *b
			img := fb.Code(tt.code...).Load(t)

			in, n, err := bytecode.Decode(img, 0)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if n != len(tt.code) {
				t.Errorf("Decode() length = %d, want %d", n, len(tt.code))
			}
			if !bytes.Equal(in.Encoding(), tt.code) {
				t.Errorf("Encoding() = % x, want % x", in.Encoding(), tt.code)
			}
			got, err := bytecode.Format(in)
			if err != nil {
				t.Fatalf("Format() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeOperands(t *testing.T) {
	b := &imagetest.Builder{}
	cons := int32(b.String("cons"))
	img := b.Code(op(0x12, cons, 3)...).
		Code(append(op(0x54, 7, 1), 2, 9, 0, 0, 0)...).
		Code(op(0x42, 5)...).
		Load(t)

	in, n, err := bytecode.Decode(img, 0)
	if err != nil {
		t.Fatal(err)
	}
	sexp, ok := in.(bytecode.Sexp)
	if !ok || sexp.Tag != "cons" || sexp.Arity != 3 {
		t.Errorf("Decode(0) = %#v, want SEXP cons 3", in)
	}

	in, m, err := bytecode.Decode(img, n)
	if err != nil {
		t.Fatal(err)
	}
	closure, ok := in.(bytecode.Closure)
	if !ok {
		t.Fatalf("Decode(%d) = %T, want Closure", n, in)
	}
	if closure.Entry != 7 || len(closure.Captures) != 1 {
		t.Fatalf("closure = %+v", closure)
	}
	if c := closure.Captures[0]; c.Loc != bytecode.Arg || c.Index != 9 {
		t.Errorf("capture = %+v, want A(9)", c)
	}
	if m != 14 {
		t.Errorf("closure length = %d, want 14", m)
	}

	in, _, err = bytecode.Decode(img, n+m)
	if err != nil {
		t.Fatal(err)
	}
	mem, ok := in.(bytecode.Mem)
	if !ok || mem.Op != bytecode.St || mem.Loc != bytecode.Arg || mem.Index != 5 {
		t.Errorf("Decode(%d) = %#v, want ST A(5)", n+m, in)
	}
}

func TestDecodeErrors(t *testing.T) {
	b := &imagetest.Builder{}
	b.String("x")

	tests := []struct {
		name    string
		code    []byte
		wantErr error
	}{
		{"builtin sub-code 5", []byte{0x75}, bytecode.ErrInvalidOpcode},
		{"category 8", []byte{0x80}, bytecode.ErrInvalidOpcode},
		{"category 14", []byte{0xE0}, bytecode.ErrInvalidOpcode},
		{"binop 0", []byte{0x00}, bytecode.ErrInvalidOpcode},
		{"binop 14", []byte{0x0E}, bytecode.ErrInvalidOpcode},
		{"data sub-code 12", []byte{0x1C}, bytecode.ErrInvalidOpcode},
		{"ld location 4", op(0x24, 0), bytecode.ErrInvalidOpcode},
		{"control sub-code 11", []byte{0x5B}, bytecode.ErrInvalidOpcode},
		{"patt 7", []byte{0x67}, bytecode.ErrInvalidOpcode},
		{"closure bad capture location", append(op(0x54, 0, 1), 4, 0, 0, 0, 0), bytecode.ErrInvalidOpcode},
		{"truncated const", []byte{0x10, 1, 0, 0}, image.ErrUnexpectedEnd},
		{"truncated call", op(0x56, 1, 2)[:7], image.ErrUnexpectedEnd},
		{"truncated closure prefix", op(0x54, 0, 0)[:6], image.ErrUnexpectedEnd},
		{"closure missing capture", append(op(0x54, 0, 2), 0, 1, 0, 0, 0), image.ErrUnexpectedEnd},
		{"closure short capture", append(op(0x54, 0, 1), 0, 1, 0), image.ErrUnexpectedEnd},
		{"closure huge count", op(0x54, 0, -1), image.ErrUnexpectedEnd},
		{"sexp bad string", op(0x12, 2, 0), image.ErrStringOutOfBounds},
		{"tag negative string", op(0x57, -1, 0), image.ErrStringOutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := *b
			img := fb.Code(tt.code...).Load(t)
			in, n, err := bytecode.Decode(img, 0)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
			}
			if in != nil || n != 0 {
				t.Errorf("Decode() returned %v, %d alongside an error", in, n)
			}
		})
	}
}

func TestDecodePastEnd(t *testing.T) {
	img := imagetest.Code(t, 0x01)
	if _, _, err := bytecode.Decode(img, 1); !errors.Is(err, image.ErrUnexpectedEnd) {
		t.Errorf("Decode(1) error = %v, want ErrUnexpectedEnd", err)
	}
}

func TestFormatDeterministic(t *testing.T) {
	img := imagetest.Code(t, append(op(0x15, 9), op(0x15, 9)...)...)
	a, _, err := bytecode.Decode(img, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := bytecode.Decode(img, 5)
	if err != nil {
		t.Fatal(err)
	}
	if bytecode.MustFormat(a) != bytecode.MustFormat(b) {
		t.Errorf("identical encodings formatted differently: %q vs %q", bytecode.MustFormat(a), bytecode.MustFormat(b))
	}
}

func TestWalk(t *testing.T) {
	img := imagetest.Code(t, append(append(op(0x52, 0, 0), 0x01, 0x18), op(0x58, 2)...)...)
	// no stop marker yet; Walk must fail after visiting everything
	var offs []int
	err := bytecode.Walk(img, func(off int, in bytecode.Inst) error {
		offs = append(offs, off)
		return nil
	})
	if !errors.Is(err, image.ErrUnexpectedEnd) {
		t.Fatalf("Walk() without stop marker error = %v, want ErrUnexpectedEnd", err)
	}
	if want := []int{0, 9, 10, 11}; !slices.Equal(offs, want) {
		t.Errorf("visited offsets %v, want %v", offs, want)
	}

	img = imagetest.Code(t, 0x01, 0xF0, 0x01)
	offs = nil
	err = bytecode.Walk(img, func(off int, in bytecode.Inst) error {
		offs = append(offs, off)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if !slices.Equal(offs, []int{0}) {
		t.Errorf("visited offsets %v, want [0]", offs)
	}

	stop := errors.New("stop")
	err = bytecode.Walk(img, func(int, bytecode.Inst) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("Walk() error = %v, want callback error", err)
	}
}

func TestWalkAdvancesByLength(t *testing.T) {
	// Decoding at o+L always lands on the next instruction.
	code := append(append(op(0x54, 0, 1), 1, 0, 0, 0, 0), 0x17, 0xF0)
	img := imagetest.Code(t, code...)
	var names []string
	err := bytecode.Walk(img, func(off int, in bytecode.Inst) error {
		names = append(names, bytecode.MustFormat(in))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[1] != "RET" {
		t.Errorf("walked %q", names)
	}
}

func op(code byte, args ...int32) []byte {
	b := &imagetest.Builder{}
	return b.Op(code, args...).Bytes()[image.HeaderSize:]
}
