package modality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leowmjw/go-walk-sync/pkg/timeline"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	require.NoError(t, r.Validate())

	primary, secondary := r.Split()
	require.Len(t, primary, 1)
	assert.Equal(t, "np", primary[0].Name)
	assert.Len(t, secondary, 10)

	gps, ok := r.Lookup("pupilphone_gps")
	require.True(t, ok)
	assert.Equal(t, Sparse, gps.Strategy)
	assert.Equal(t, 7*time.Second, gps.MaxGap)

	_, ok = r.Lookup("gopro")
	assert.False(t, ok)
}

func TestRegistryValidate(t *testing.T) {
	tests := []struct {
		name string
		reg  Registry
	}{
		{"duplicate", Registry{{Name: "a"}, {Name: "a"}}},
		{"empty name", Registry{{Name: ""}}},
		{"sparse without gap", Registry{{Name: "gps", Strategy: Sparse}}},
		{"negative rate", Registry{{Name: "acc", SampleRate: -1}}},
		{"bad column", Registry{{Name: "np", Strategy: IndexAligned, IndexColumn: "Bogus"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.reg.Validate())
		})
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []Strategy{IndexAligned, TimestampAligned, Sparse} {
		parsed, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseStrategy("interpolated")
	assert.Error(t, err)
}

func TestStreamResample(t *testing.T) {
	s := &Stream{
		Name: "gps",
		Times: []timeline.Timestamp{
			timeline.MustParseTimestamp("2024-01-09_14-00-00-100"),
			timeline.MustParseTimestamp("2024-01-09_14-00-00-900"),
			timeline.MustParseTimestamp("2024-01-09_14-00-01-100"),
		},
		Data: [][]float64{{40.0, -74.0}, {40.2, -74.2}, {41.0, -75.0}},
	}
	require.NoError(t, s.Validate())

	out := s.Resample(timeline.ResampleOptions{})
	require.Equal(t, 2, out.Len())
	assert.InDelta(t, 40.1, out.Data[0][0], 1e-9)
	assert.InDelta(t, -74.1, out.Data[0][1], 1e-9)
	assert.Equal(t, "2024-01-09_14-00-01-100", out.Times[1].String())

	indexOnly := &Stream{Name: "np", Data: [][]float64{{1}}}
	assert.Same(t, indexOnly, indexOnly.Resample(timeline.ResampleOptions{}))
}
