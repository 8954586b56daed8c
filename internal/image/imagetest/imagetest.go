// Package imagetest builds bytecode image files for tests.
package imagetest

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"bcfreq/internal/image"
)

// Builder assembles an image file: header, symbol table, string pool, code.
type Builder struct {
	Globals uint32
	symbols [][2]uint32
	pool    []byte
	code    []byte
}

// String appends s to the string pool and returns its pool offset.
func (b *Builder) String(s string) uint32 {
	off := uint32(len(b.pool))
	b.pool = append(b.pool, s...)
	b.pool = append(b.pool, 0)
	return off
}

// Symbol adds a public symbol named name at code offset off.
func (b *Builder) Symbol(name string, off uint32) *Builder {
	b.symbols = append(b.symbols, [2]uint32{b.String(name), off})
	return b
}

// Code appends raw bytes to the code section.
func (b *Builder) Code(bs ...byte) *Builder {
	b.code = append(b.code, bs...)
	return b
}

// Op appends an opcode followed by little-endian 32-bit operands.
func (b *Builder) Op(op byte, args ...int32) *Builder {
	b.code = append(b.code, op)
	for _, a := range args {
		b.code = binary.LittleEndian.AppendUint32(b.code, uint32(a))
	}
	return b
}

// Bytes returns the encoded file.
func (b *Builder) Bytes() []byte {
	out := make([]byte, 0, image.HeaderSize+len(b.symbols)*image.SymbolSize+len(b.pool)+len(b.code))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(b.pool)))
	out = binary.LittleEndian.AppendUint32(out, b.Globals)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(b.symbols)))
	for _, s := range b.symbols {
		out = binary.LittleEndian.AppendUint32(out, s[0])
		out = binary.LittleEndian.AppendUint32(out, s[1])
	}
	out = append(out, b.pool...)
	return append(out, b.code...)
}

// Load encodes b and loads it, failing the test on error.
func (b *Builder) Load(t testing.TB) *image.Image {
	t.Helper()
	img, err := image.Load(b.Bytes())
	if err != nil {
		t.Fatalf("load image: %v", err)
	}
	return img
}

// WriteFile writes the encoded image to name in a temporary directory and
// returns its path.
func (b *Builder) WriteFile(t testing.TB, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

// Code builds an image with an empty pool and the given code section.
func Code(t testing.TB, code ...byte) *image.Image {
	t.Helper()
	b := &Builder{}
	return b.Code(code...).Load(t)
}
