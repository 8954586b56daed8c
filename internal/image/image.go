// Package image provides helpers for loading bytecode images, locating their regions, and reading code-section fields with bounds checks.
package image

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
)

// HeaderSize is the size of the three leading little-endian header words.
const HeaderSize = 12

// SymbolSize is the size of one public-symbol table entry.
const SymbolSize = 8

var (
	ErrMalformedHeader        = errors.New("malformed header")
	ErrUnterminatedStringPool = errors.New("unterminated string pool")
	ErrUnexpectedEnd          = errors.New("unexpected end of code")
	ErrStringOutOfBounds      = errors.New("string offset out of bounds")
)

// Image is a loaded bytecode file. It is read-only after Load returns.
type Image struct {
	Path              string
	StringPoolSize    uint32
	GlobalAreaSize    uint32
	PublicSymbolCount uint32

	bytes       []byte // everything after the header
	symbolStart int
	poolStart   int
	codeStart   int

	mapped []byte
	f      *os.File
}

// Symbol is a public symbol: a name in the string pool and a code offset.
type Symbol struct {
	Name   string
	Offset uint32
}

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	unwrap func([]byte) ([]byte, error)
}

// WithUnwrap sets a transform applied to the raw file contents before they
// are parsed (decompression, decryption).
func WithUnwrap(fn func([]byte) ([]byte, error)) Option {
	return func(c *openConfig) { c.unwrap = fn }
}

// Load parses raw file contents. The returned image aliases raw.
func Load(raw []byte) (*Image, error) {
	if len(raw) < HeaderSize {
		return nil, fmt.Errorf("%w: file is %d bytes, header needs %d", ErrMalformedHeader, len(raw), HeaderSize)
	}
	im := &Image{
		StringPoolSize:    binary.LittleEndian.Uint32(raw[0:4]),
		GlobalAreaSize:    binary.LittleEndian.Uint32(raw[4:8]),
		PublicSymbolCount: binary.LittleEndian.Uint32(raw[8:12]),
		bytes:             raw[HeaderSize:],
	}

	// 64-bit arithmetic so that huge header values cannot wrap.
	size := uint64(len(im.bytes))
	poolStart := uint64(SymbolSize) * uint64(im.PublicSymbolCount)
	codeStart := poolStart + uint64(im.StringPoolSize)
	if poolStart >= size {
		return nil, fmt.Errorf("%w: public symbol count %d", ErrMalformedHeader, im.PublicSymbolCount)
	}
	if codeStart >= size {
		return nil, fmt.Errorf("%w: string pool size %d", ErrMalformedHeader, im.StringPoolSize)
	}
	if im.StringPoolSize != 0 && im.bytes[codeStart-1] != 0 {
		return nil, ErrUnterminatedStringPool
	}

	im.symbolStart = 0
	im.poolStart = int(poolStart)
	im.codeStart = int(codeStart)

	slog.Debug("Loaded image",
		"symbols", im.PublicSymbolCount,
		"pool_size", im.StringPoolSize,
		"code_size", im.CodeSize())
	return im, nil
}

// Open maps the file at path into memory and loads it.
func Open(path string, opts ...Option) (*Image, error) {
	var cfg openConfig
	for _, o := range opts {
		o(&cfg)
	}

	of, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	fi, err := of.Stat()
	if err != nil {
		of.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	var all []byte
	if fi.Size() > 0 {
		all, err = syscall.Mmap(int(of.Fd()), 0, int(fi.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
		if err != nil {
			of.Close()
			return nil, fmt.Errorf("mmap file: %w", err)
		}
	}

	data := all
	if cfg.unwrap != nil {
		data, err = cfg.unwrap(all)
		if err != nil {
			unmap(all)
			of.Close()
			return nil, err
		}
	}

	im, err := Load(data)
	if err != nil {
		unmap(all)
		of.Close()
		return nil, err
	}
	im.Path = path
	im.mapped = all
	im.f = of
	return im, nil
}

func unmap(b []byte) {
	if b != nil {
		_ = syscall.Munmap(b)
	}
}

// Close unmaps the memory and closes the underlying file. Images built with
// Load have nothing to release.
func (im *Image) Close() error {
	var err1, err2 error
	if im.mapped != nil {
		err1 = syscall.Munmap(im.mapped)
		im.mapped = nil
		im.bytes = nil
	}
	if im.f != nil {
		err2 = im.f.Close()
		im.f = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

// CodeSize returns the length of the code section in bytes.
func (im *Image) CodeSize() int {
	return len(im.bytes) - im.codeStart
}

// Code returns the code section. Callers must not modify it.
func (im *Image) Code() []byte {
	return im.bytes[im.codeStart:]
}

// Slice returns the code bytes [off, off+n).
func (im *Image) Slice(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off > im.CodeSize() || n > im.CodeSize()-off {
		return nil, fmt.Errorf("%w: %d bytes at offset %d", ErrUnexpectedEnd, n, off)
	}
	start := im.codeStart + off
	return im.bytes[start : start+n : start+n], nil
}

// ByteAt returns the code byte at off.
func (im *Image) ByteAt(off int) (byte, error) {
	if off < 0 || off >= im.CodeSize() {
		return 0, fmt.Errorf("%w: byte at offset %d", ErrUnexpectedEnd, off)
	}
	return im.bytes[im.codeStart+off], nil
}

// U32At reads a little-endian unsigned 32-bit integer at code offset off.
func (im *Image) U32At(off int) (uint32, error) {
	b, err := im.Slice(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// I32At reads a little-endian signed 32-bit integer at code offset off.
func (im *Image) I32At(off int) (int32, error) {
	v, err := im.U32At(off)
	return int32(v), err
}

// StringAt returns the null-terminated string starting at the given
// string-pool offset.
func (im *Image) StringAt(poolOff uint32) (string, error) {
	if poolOff >= im.StringPoolSize {
		return "", fmt.Errorf("%w: %d (pool size %d)", ErrStringOutOfBounds, poolOff, im.StringPoolSize)
	}
	pool := im.bytes[im.poolStart:im.codeStart]
	for i := int(poolOff); i < len(pool); i++ {
		if pool[i] == 0 {
			return string(pool[poolOff:i]), nil
		}
	}
	return "", fmt.Errorf("%w: string at %d runs past the pool", ErrStringOutOfBounds, poolOff)
}

// Symbols decodes the public symbol table.
func (im *Image) Symbols() ([]Symbol, error) {
	syms := make([]Symbol, 0, im.PublicSymbolCount)
	for i := 0; i < int(im.PublicSymbolCount); i++ {
		entry := im.bytes[im.symbolStart+i*SymbolSize:]
		nameOff := binary.LittleEndian.Uint32(entry[0:4])
		name, err := im.StringAt(nameOff)
		if err != nil {
			return nil, fmt.Errorf("symbol %d: %w", i, err)
		}
		syms = append(syms, Symbol{
			Name:   name,
			Offset: binary.LittleEndian.Uint32(entry[4:8]),
		})
	}
	return syms, nil
}
