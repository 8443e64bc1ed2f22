package chunkstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkMap(t *testing.T) {
	// 2x2 chunk grid: starts 0 and 2 along dim 0, 0 and 3 along dim 1.
	p := Partition{{2, 1}, {3, 3}}
	m := NewChunkMap(p)

	require.Equal(t, 0, m.NumPresent())
	require.False(t, m.Complete())
	require.False(t, m.Contains("00000_00000"))

	require.NoError(t, m.Mark("00000_00000"))
	require.NoError(t, m.Mark("00002_00003"))
	require.Equal(t, 2, m.NumPresent())
	require.True(t, m.Contains("00000_00000"))
	require.True(t, m.Contains("00002_00003"))
	require.False(t, m.Contains("00000_00003"))

	// Marking twice changes nothing.
	require.NoError(t, m.Mark("00000_00000"))
	require.Equal(t, 2, m.NumPresent())

	var missing []string
	for chunk := range m.Missing() {
		missing = append(missing, ChunkID(chunk))
	}
	require.Equal(t, []string{"00000_00003", "00002_00000"}, missing)

	require.NoError(t, m.MarkAll(missing))
	require.True(t, m.Complete())
	require.Equal(t, 4, m.NumPresent())

	count := 0
	for range m.Missing() {
		count++
	}
	require.Zero(t, count)
}

func TestChunkMap_BadIDs(t *testing.T) {
	m := NewChunkMap(Partition{{2, 1}, {3, 3}})

	tests := []struct {
		name string
		id   string
	}{
		{"OffGrid", "00001_00000"},
		{"WrongRank", "00000"},
		{"Garbage", "zz_00000"},
		{"Empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Mark(tt.id)
			require.ErrorIs(t, err, ErrBadChunk)
			assert.False(t, m.Contains(tt.id))
		})
	}
}

func TestChunkMap_Scalar(t *testing.T) {
	m := NewChunkMap(Partition{})
	require.False(t, m.Complete())

	// The single chunk of a 0-dimensional array has the empty identifier.
	require.NoError(t, m.Mark(""))
	require.True(t, m.Complete())
	require.Error(t, m.Mark("00000"))
}

func TestChunkMap_MarkAllStopsOnError(t *testing.T) {
	m := NewChunkMap(Partition{{2, 2}})

	err := m.MarkAll([]string{"00000", "bogus", "00002"})
	require.ErrorIs(t, err, ErrBadChunk)
	require.Equal(t, 1, m.NumPresent())
	require.True(t, m.Contains("00000"))
	require.False(t, m.Contains("00002"))
}
