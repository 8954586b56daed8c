package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bcfreq/internal/freq"
	"bcfreq/internal/image/imagetest"
)

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer s.Close()

	r, err := freq.Scan(imagetest.Code(t, 0x01, 0x01, 0x18, 0xF0))
	require.NoError(t, err)

	t0 := time.Unix(1700000000, 0)
	first, err := s.Record(ctx, "a.bc", "aaaa", t0, r)
	require.NoError(t, err)
	second, err := s.Record(ctx, "b.bc", "bbbb", t0.Add(time.Minute), r)
	require.NoError(t, err)

	scans, err := s.Scans(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, scans, 2)
	require.Equal(t, second, scans[0].ID)
	require.Equal(t, first, scans[1].ID)
	require.Equal(t, "b.bc", scans[0].File)
	require.Equal(t, 3, scans[0].Total)
	require.Equal(t, 2, scans[0].Distinct)
	require.True(t, scans[1].ScannedAt.Equal(t0))

	scans, err = s.Scans(ctx, "aaaa", 0)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	require.Equal(t, "a.bc", scans[0].File)

	scans, err = s.Scans(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, scans, 1)

	counts, err := s.Counts(ctx, first)
	require.NoError(t, err)
	require.Equal(t, []Count{
		{Encoding: "01", Text: "BINOP +", Count: 2},
		{Encoding: "18", Text: "DROP", Count: 1},
	}, counts)
}

func TestOpenMemory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	scans, err := s.Scans(ctx, "", 10)
	require.NoError(t, err)
	require.Empty(t, scans)
}
