package freq

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"bcfreq/internal/bytecode"
	"bcfreq/internal/image"
	"bcfreq/internal/image/imagetest"
)

func scanText(t *testing.T, img *image.Image) string {
	t.Helper()
	r, err := Scan(img)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	return buf.String()
}

func TestScanArray(t *testing.T) {
	img := imagetest.Code(t, 0x58, 0x02, 0x00, 0x00, 0x00, 0xF0)
	require.Equal(t, "1 x ARRAY\t2\n", scanText(t, img))
}

func TestScanBinop(t *testing.T) {
	img := imagetest.Code(t, 0x01, 0x01, 0xF0)
	require.Equal(t, "2 x BINOP +\n", scanText(t, img))
}

func TestScanOrdering(t *testing.T) {
	b := &imagetest.Builder{}
	b.Op(0x52, 0, 1).
		Op(0x10, 2).Op(0x10, 1).Op(0x10, 2).Op(0x10, 1).
		Op(0x01).Op(0x01).Op(0x01).
		Op(0x18).
		Op(0x17).
		Code(0xF0)
	img := b.Load(t)

	r, err := Scan(img)
	require.NoError(t, err)
	require.Equal(t, 10, r.Total)
	require.Equal(t, 6, r.Distinct())

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	require.Equal(t, ""+
		"3 x BINOP +\n"+
		"2 x CONST 1\n"+
		"2 x CONST 2\n"+
		"1 x RET\n"+
		"1 x DROP\n"+
		"1 x BEGIN\t0 1\n", buf.String())

	sum := 0
	for i, e := range r.Entries {
		sum += e.Count
		if i == 0 {
			continue
		}
		prev := r.Entries[i-1]
		if prev.Count == e.Count {
			require.LessOrEqual(t, bytes.Compare(prev.Inst.Encoding(), e.Inst.Encoding()), 0)
		} else {
			require.Greater(t, prev.Count, e.Count)
		}
	}
	require.Equal(t, r.Total, sum)
}

func TestScanIdentityByEncoding(t *testing.T) {
	b := &imagetest.Builder{}
	b.Op(0x54, 0x10, 1).Code(0, 1, 0, 0, 0).
		Op(0x54, 0x10, 1).Code(0, 1, 0, 0, 0).
		Op(0x54, 0x10, 1).Code(1, 1, 0, 0, 0).
		Code(0xF0)
	r, err := Scan(b.Load(t))
	require.NoError(t, err)
	require.Len(t, r.Entries, 2)
	require.Equal(t, 2, r.Entries[0].Count)
	require.Equal(t, "CLOSURE\t0x00000010 G(1)", r.Entries[0].Text)
	require.Equal(t, "CLOSURE\t0x00000010 L(1)", r.Entries[1].Text)
}

func TestScanSkipsAfterStop(t *testing.T) {
	// Bytes after the stop marker are never decoded.
	img := imagetest.Code(t, 0x16, 0xF0, 0xEE, 0xEE)
	require.Equal(t, "1 x END\n", scanText(t, img))
}

func TestScanErrors(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		kind string
	}{
		{"truncated const", []byte{0x10, 1, 0, 0}, "UnexpectedEnd"},
		{"no stop marker", []byte{0x01, 0x02}, "UnexpectedEnd"},
		{"closure short captures", []byte{0x54, 0, 0, 0, 0, 2, 0, 0, 0, 0, 1, 0, 0, 0}, "UnexpectedEnd"},
		{"invalid builtin", []byte{0x01, 0x75, 0xF0}, "InvalidOpcode"},
		{"bad tag string", []byte{0x57, 5, 0, 0, 0, 0, 0, 0, 0, 0xF0}, "StringOutOfBounds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Scan(imagetest.Code(t, tt.code...))
			require.Error(t, err)
			require.Nil(t, r)
			require.Equal(t, tt.kind, Kind(err))
		})
	}
}

func TestKindAndExitCode(t *testing.T) {
	tests := []struct {
		err  error
		kind string
		code int
	}{
		{nil, "", 0},
		{fmt.Errorf("open: %w", fmt.Errorf("nope")), "", 1},
		{fmt.Errorf("x: %w", image.ErrMalformedHeader), "MalformedHeader", 2},
		{image.ErrUnterminatedStringPool, "UnterminatedStringPool", 3},
		{fmt.Errorf("offset 3: %w", image.ErrUnexpectedEnd), "UnexpectedEnd", 4},
		{image.ErrStringOutOfBounds, "StringOutOfBounds", 5},
		{fmt.Errorf("offset 0: %w", bytecode.ErrInvalidOpcode), "InvalidOpcode", 6},
	}
	for _, tt := range tests {
		require.Equal(t, tt.kind, Kind(tt.err))
		require.Equal(t, tt.code, ExitCode(tt.err))
	}
}

func TestEncode(t *testing.T) {
	img := imagetest.Code(t, 0x01, 0x01, 0x58, 0x02, 0x00, 0x00, 0x00, 0xF0)
	r, err := Scan(img)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Encode(&buf, FormatJSON))
	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Equal(t, Document{
		Total:    3,
		Distinct: 2,
		Entries: []DocumentRow{
			{Count: 2, Text: "BINOP +", Bytes: "01"},
			{Count: 1, Text: "ARRAY\t2", Bytes: "5802000000"},
		},
	}, doc)

	buf.Reset()
	require.NoError(t, r.Encode(&buf, FormatCBOR))
	fromCBOR, err := DecodeCBOR(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, doc, fromCBOR)

	buf.Reset()
	require.NoError(t, r.Encode(&buf, FormatMarkdown))
	require.Contains(t, buf.String(), "| 2 | `BINOP +` | `01` |")
	require.Contains(t, buf.String(), "| 1 | `ARRAY 2` | `5802000000` |")

	buf.Reset()
	require.NoError(t, r.Encode(&buf, ""))
	require.Equal(t, "2 x BINOP +\n1 x ARRAY\t2\n", buf.String())

	require.Error(t, r.Encode(&buf, "yaml"))
}
